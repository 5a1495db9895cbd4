// Package matcher resolves internal Keer product ids to marketplace
// products and reconciles supplier identity between the two systems.
package matcher

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/Kewen526/serv-qoute/internal/client"
	"github.com/Kewen526/serv-qoute/internal/domain"
)

// supplierCodePrefixes maps a quoting account name to the store-code
// prefix registered for it on the internal side.
var supplierCodePrefixes = map[string]string{
	"Yu Liu":         "LPP-SP00001",
	"Panpan Liu (1)": "LYN-SP00001",
	"Liu Lila":       "QY-SP00001",
	"XU Liam":        "LDD-SP00001",
	"Liu Hong":       "SQQ-SP00001",
	"Li Yanshuang":   "LYS-SP00001",
	"Xuelian qi":     "SJL-SP00002",
	"Sain xu":        "LY-SP00002",
}

type Matcher struct {
	tasks       client.TaskSource
	marketplace client.Marketplace
	logger      *zap.SugaredLogger
}

func New(tasks client.TaskSource, marketplace client.Marketplace, logger *zap.SugaredLogger) *Matcher {
	return &Matcher{
		tasks:       tasks,
		marketplace: marketplace,
		logger:      logger,
	}
}

// Resolve looks a task's Keer product id up in the task store and
// fetches the marketplace detail for the resolved product. When the
// direct lookup misses, a keyword search over the task title matched by
// store code is tried before giving up. When the supplier the task was
// created under no longer matches the supplier on the product, the
// mismatch is recorded as a drift note on the result; the task still
// proceeds against the currently assigned product.
func (m *Matcher) Resolve(ctx context.Context, task domain.QuotationTask, attachmentNeeded bool) (*domain.ResolvedProduct, error) {
	ref, err := m.tasks.LookupProduct(ctx, task.KeerProductID)
	if err != nil {
		if !errors.Is(err, domain.ErrLookupFailed) {
			return nil, err
		}
		ref, err = m.resolveByTitle(ctx, task, err)
		if err != nil {
			return nil, err
		}
	}

	detail, err := m.marketplace.ProductQuotation(ctx, ref.ProductID, attachmentNeeded)
	if err != nil {
		return nil, err
	}

	resolved := &domain.ResolvedProduct{
		ProductID:        ref.ProductID,
		ShopifyProductID: detail.ProductShopifyID,
		Detail:           detail,
	}

	current := detail.SupplierDetail.SupplierName
	if ref.SupplierName != "" && current != "" && ref.SupplierName != current {
		resolved.DriftNote = fmt.Sprintf("product was quoted under account %s, now assigned to account %s", ref.SupplierName, current)
		m.logger.Warnw("supplier identity drift detected",
			"keer_product_id", task.KeerProductID,
			"task_supplier", ref.SupplierName,
			"current_supplier", current,
		)
	}

	return resolved, nil
}

// resolveByTitle is the fallback for a missed id lookup: keyword-search
// the marketplace by the task title and pick a candidate by store code.
// The task-time supplier is unknown on this path, so no drift comparison
// happens downstream.
func (m *Matcher) resolveByTitle(ctx context.Context, task domain.QuotationTask, lookupErr error) (*domain.ProductRef, error) {
	if task.ClientProductTitle == "" || task.StoreCode == "" {
		return nil, lookupErr
	}

	products, err := m.marketplace.SearchProducts(ctx, task.ClientProductTitle)
	if err != nil || len(products) == 0 {
		return nil, lookupErr
	}

	candidate := MatchByStore(products, task.StoreCode)
	if candidate == nil || candidate.ProductID.IsZero() {
		return nil, lookupErr
	}

	m.logger.Infow("resolved product via title search",
		"keer_product_id", task.KeerProductID,
		"product_id", candidate.ProductID,
		"store", candidate.Store,
	)

	return &domain.ProductRef{ProductID: candidate.ProductID}, nil
}

// MatchByStore picks a product from keyword-search candidates by store
// code. It first reconstructs each candidate's composite store code from
// its supplier's registered prefix and the candidate's own store field,
// accepting an exact or prefix match. Failing that it falls back to
// substring matching on segments of the target code, and as a last
// resort returns the first candidate. The cascade mirrors how
// inconsistently store codes are recorded upstream; it is best effort,
// not a guarantee.
func MatchByStore(products []domain.SearchProduct, storeCode string) *domain.SearchProduct {
	if len(products) == 0 || storeCode == "" {
		return nil
	}

	for i := range products {
		product := &products[i]

		prefix, ok := supplierCodePrefixes[product.SupplierDetail.Name]
		if !ok {
			continue
		}

		combined := prefix + "-" + product.Store
		if combined == storeCode || strings.HasPrefix(storeCode, combined) {
			return product
		}
	}

	parts := strings.Split(storeCode, "-")
	var partial *domain.SearchProduct

	for i := range products {
		product := &products[i]

		if product.Store == storeCode {
			return product
		}

		if partial != nil {
			continue
		}
		for _, part := range parts {
			if len(part) > 3 && strings.Contains(product.Store, part) {
				partial = product
				break
			}
		}
	}

	if partial != nil {
		return partial
	}

	return &products[0]
}
