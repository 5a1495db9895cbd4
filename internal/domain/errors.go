package domain

import "errors"

var (
	// ErrLookupFailed means the Keer product id could not be resolved to a
	// marketplace product id.
	ErrLookupFailed = errors.New("product lookup failed")

	// ErrDetailUnavailable means the marketplace returned no detail for a
	// resolved product id.
	ErrDetailUnavailable = errors.New("product detail unavailable")

	// ErrAllPricesZero means every quote line carried a non-positive price.
	ErrAllPricesZero = errors.New("all quoted prices are zero")

	// ErrNoPriceParameters means no usable (line, variant) pair survived
	// reconciliation.
	ErrNoPriceParameters = errors.New("no price parameters generated")

	// ErrAlreadyQuoted means the marketplace refused to mark a product
	// non-quotable because a quotation already exists for it.
	ErrAlreadyQuoted = errors.New("quotation already given")
)
