package service

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/Kewen526/serv-qoute/internal/client"
	"github.com/Kewen526/serv-qoute/internal/domain"
)

const statusMarkFailed = "failed to mark product non-quotable"

// NonQuotablePipeline handles the sibling task variant: instead of
// pricing the product, it flags it as not quotable on the marketplace.
type NonQuotablePipeline struct {
	tasks       client.TaskSource
	marketplace client.Marketplace
	resolver    ProductResolver
	logger      *zap.SugaredLogger
}

func NewNonQuotablePipeline(
	tasks client.TaskSource,
	marketplace client.Marketplace,
	resolver ProductResolver,
	logger *zap.SugaredLogger,
) *NonQuotablePipeline {
	return &NonQuotablePipeline{
		tasks:       tasks,
		marketplace: marketplace,
		resolver:    resolver,
		logger:      logger,
	}
}

// Process flags one product as non-quotable. A product that already
// carries a quotation is a distinct failure; the marketplace message is
// recorded verbatim so operators can tell the two cases apart.
func (p *NonQuotablePipeline) Process(ctx context.Context, task domain.QuotationTask) error {
	if task.ClientProductTitle == "" || task.KeerProductID.IsZero() {
		return fmt.Errorf("task %s is missing required fields", task.KeerProductID)
	}

	resolved, err := p.resolver.Resolve(ctx, task, false)
	if err != nil {
		status := statusDetailUnavailable
		if errors.Is(err, domain.ErrLookupFailed) {
			status = statusLookupFailed
		}
		p.report(ctx, task.KeerProductID, domain.FeedbackFailed, status)

		return fmt.Errorf("failed to resolve product for task %s: %w", task.KeerProductID, err)
	}

	defer p.finalize(ctx, task.KeerProductID)

	if err := p.marketplace.MarkNonQuotable(ctx, resolved.ProductID, resolved.ShopifyProductID); err != nil {
		status := statusMarkFailed
		if errors.Is(err, domain.ErrAlreadyQuoted) {
			status = err.Error()
		}
		p.report(ctx, task.KeerProductID, domain.FeedbackFailed, status)

		return fmt.Errorf("failed to mark task %s non-quotable: %w", task.KeerProductID, err)
	}

	p.report(ctx, task.KeerProductID, domain.FeedbackSuccess, resolved.DriftNote)

	p.logger.Infow("product marked non-quotable",
		"keer_product_id", task.KeerProductID,
		"product_id", resolved.ProductID,
	)

	return nil
}

func (p *NonQuotablePipeline) report(ctx context.Context, keerProductID domain.ID, status domain.FeedbackStatus, spStatus string) {
	if err := p.tasks.ReportFeedback(ctx, keerProductID, status, spStatus); err != nil {
		p.logger.Errorw("failed to report feedback",
			"keer_product_id", keerProductID, "status", status, "error", err)
	}
}

func (p *NonQuotablePipeline) finalize(ctx context.Context, keerProductID domain.ID) {
	if err := p.tasks.FinalizeTask(ctx, keerProductID); err != nil {
		p.logger.Errorw("failed to finalize task",
			"keer_product_id", keerProductID, "error", err)
	}
}
