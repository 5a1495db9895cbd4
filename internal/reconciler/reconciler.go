// Package reconciler turns a task's quote lines and a marketplace
// product's variant catalog into the combined submission payload: one
// price parameter per (quantity, variant) pair, plus the variant
// deletions for countries no positive-price line covers.
package reconciler

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/Kewen526/serv-qoute/internal/country"
	"github.com/Kewen526/serv-qoute/internal/domain"
)

// Submitted prices carry a fixed 1% discount against the quoted price.
var priceFactor = decimal.NewFromFloat(0.99)

// Result is the outcome of reconciling one task against one product.
// PriceParams and DeleteVariants never share a country: a country is
// either priced or deleted, not both.
type Result struct {
	PriceParams    map[string]string
	DeleteVariants map[string][]domain.ID

	SkippedZeroPrice int
	SkippedUnmatched int
}

// Build reconciles quote lines against the product's quotation
// information. Lines with a non-positive price are excluded from pricing
// and from country coverage, but counted for diagnostics. Lines whose
// country the product does not carry are skipped, also counted.
func Build(detail *domain.ProductDetail, lines []domain.QuoteLine) (*Result, error) {
	positive := 0
	for _, line := range lines {
		if line.Price > 0 {
			positive++
		}
	}
	if positive == 0 {
		return nil, domain.ErrAllPricesZero
	}

	countryVariants := make(map[string][]domain.Variant)
	countryIDs := make(map[string]domain.ID)
	for code, variants := range detail.QuotationInformation {
		if len(variants) == 0 {
			continue
		}
		countryVariants[code] = variants
		countryIDs[code] = variants[0].CountryID
	}
	if len(countryVariants) == 0 {
		return nil, fmt.Errorf("%w: product carries no variant information", domain.ErrNoPriceParameters)
	}

	result := &Result{
		PriceParams:    make(map[string]string),
		DeleteVariants: make(map[string][]domain.ID),
	}

	covered := make(map[string]struct{})

	for _, line := range lines {
		if line.Nation == "" {
			continue
		}
		if line.Price <= 0 {
			result.SkippedZeroPrice++
			continue
		}

		code := country.Normalize(line.Nation)
		covered[code] = struct{}{}

		countryID, ok := countryIDs[code]
		variants := countryVariants[code]
		if !ok || len(variants) == 0 {
			result.SkippedUnmatched++
			continue
		}

		price := decimal.NewFromFloat(line.Price).Mul(priceFactor).Round(2).StringFixed(2)
		for _, variant := range variants {
			if variant.VariantID.IsZero() {
				continue
			}

			name := fmt.Sprintf("pcs_%d_%s_%s", line.Quantity, variant.VariantID, countryID)
			result.PriceParams[name] = price
		}
	}

	if len(result.PriceParams) == 0 {
		return nil, domain.ErrNoPriceParameters
	}

	for code, variants := range countryVariants {
		if _, ok := covered[code]; ok {
			continue
		}

		countryID, ok := countryIDs[code]
		if !ok || countryID.IsZero() {
			continue
		}

		var ids []domain.ID
		for _, variant := range variants {
			if !variant.VariantID.IsZero() {
				ids = append(ids, variant.VariantID)
			}
		}
		if len(ids) > 0 {
			result.DeleteVariants[countryID.String()] = ids
		}
	}

	return result, nil
}
