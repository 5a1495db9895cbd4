package domain

import (
	"bytes"
	"encoding/json"
)

// Variant is one marketplace (country, pricing tier) unit, nested under
// its country inside the product's quotation information.
type Variant struct {
	VariantID ID `json:"variant_id"`
	CountryID ID `json:"country_id"`
}

// SupplierDetail carries the supplier identity attached to a marketplace
// product. Search results use "name", product details use "supplier_name".
// Some historical responses put a non-object here; those decode as empty.
type SupplierDetail struct {
	Name         string `json:"name"`
	SupplierName string `json:"supplier_name"`
}

func (d *SupplierDetail) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || data[0] != '{' {
		*d = SupplierDetail{}
		return nil
	}

	type alias SupplierDetail
	var a alias
	if err := json.Unmarshal(data, &a); err != nil {
		return err
	}
	*d = SupplierDetail(a)

	return nil
}

// ProductRef is the result of looking a Keer product id up in the
// internal store: the marketplace product id plus the supplier the task
// was created under.
type ProductRef struct {
	ProductID    ID     `json:"product_id"`
	SupplierName string `json:"supplier_name"`
}

// ProductDetail is the full marketplace quotation view of a product.
// QuotationID and the client ids are only minted after a quotation has
// been submitted and are empty before that.
type ProductDetail struct {
	ProductShopifyID     ID                   `json:"product_shopify_id"`
	QuotationInformation map[string][]Variant `json:"quotation_information"`
	SupplierDetail       SupplierDetail       `json:"supplier_detail"`
	QuotationID          ID                   `json:"quotation_id"`
	ClientAccountID      ID                   `json:"client_account_id"`
	ClientUserID         ID                   `json:"client_user_id"`
	QuotationRequestID   ID                   `json:"quotation_request_id"`
}

// SearchProduct is one candidate from a keyword product search.
type SearchProduct struct {
	ProductID      ID             `json:"product_id"`
	Store          string         `json:"store"`
	SupplierDetail SupplierDetail `json:"supplier_detail"`
}

// ResolvedProduct is a task's product resolved against the marketplace.
// DriftNote is non-empty when the supplier recorded at task time differs
// from the supplier currently assigned to the product; the mismatch is
// reported alongside the final status, not treated as a failure.
type ResolvedProduct struct {
	ProductID        ID
	ShopifyProductID ID
	Detail           *ProductDetail
	DriftNote        string
}
