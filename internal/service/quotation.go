package service

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/Kewen526/serv-qoute/internal/client"
	"github.com/Kewen526/serv-qoute/internal/domain"
	"github.com/Kewen526/serv-qoute/internal/ledger"
	"github.com/Kewen526/serv-qoute/internal/reconciler"
)

// Status strings written alongside failure feedback.
const (
	statusLookupFailed      = "product lookup failed"
	statusDetailUnavailable = "product detail unavailable"
	statusAllPricesZero     = "all quoted prices are zero"
	statusNoPriceParams     = "no price parameters generated"
	statusSubmissionFailed  = "quotation submission failed"
	statusRefetchFailed     = "quotation submitted but product detail refetch failed"
	statusAllImagesFailed   = "quotation submitted but every pending image failed to upload"
	statusDispatchFailed    = "quotation submitted but message dispatch failed"
)

// ProductResolver resolves a task to its marketplace product,
// annotating supplier drift.
type ProductResolver interface {
	Resolve(ctx context.Context, task domain.QuotationTask, attachmentNeeded bool) (*domain.ResolvedProduct, error)
}

// ImageNormalizer turns one remote image URL into an upload payload.
type ImageNormalizer interface {
	Normalize(ctx context.Context, imageURL string, index int) (*domain.EncodedImage, error)
}

// QuotationPipeline runs one quoting task end to end: resolve the
// product, reconcile variants into the price payload, submit it, then
// deliver the chat message with any pending real-shot images. Every
// stage is attempted once; only the image pipeline retries internally.
type QuotationPipeline struct {
	tasks       client.TaskSource
	marketplace client.Marketplace
	resolver    ProductResolver
	normalizer  ImageNormalizer
	logger      *zap.SugaredLogger
}

func NewQuotationPipeline(
	tasks client.TaskSource,
	marketplace client.Marketplace,
	resolver ProductResolver,
	normalizer ImageNormalizer,
	logger *zap.SugaredLogger,
) *QuotationPipeline {
	return &QuotationPipeline{
		tasks:       tasks,
		marketplace: marketplace,
		resolver:    resolver,
		normalizer:  normalizer,
		logger:      logger,
	}
}

// Process runs one task to a terminal feedback code. A returned error
// means the task failed; the feedback code has already been written
// unless the task never passed validation. Once the product resolved,
// the marketplace-side status is finalized no matter how the task ends.
func (p *QuotationPipeline) Process(ctx context.Context, task domain.QuotationTask) error {
	if task.ClientProductTitle == "" || task.QuotationResult == "" || task.KeerProductID.IsZero() {
		return fmt.Errorf("task %s is missing required fields", task.KeerProductID)
	}

	lines, err := domain.ParseQuoteLines(task.QuotationResult)
	if err != nil {
		return fmt.Errorf("task %s: %w", task.KeerProductID, err)
	}

	resolved, err := p.resolver.Resolve(ctx, task, true)
	if err != nil {
		status := statusDetailUnavailable
		if errors.Is(err, domain.ErrLookupFailed) {
			status = statusLookupFailed
		}
		p.report(ctx, task.KeerProductID, domain.FeedbackFailed, status)

		return fmt.Errorf("failed to resolve product for task %s: %w", task.KeerProductID, err)
	}

	defer p.finalize(ctx, task.KeerProductID)

	result, err := reconciler.Build(resolved.Detail, lines)
	if err != nil {
		status := statusNoPriceParams
		if errors.Is(err, domain.ErrAllPricesZero) {
			status = statusAllPricesZero
		}
		p.report(ctx, task.KeerProductID, domain.FeedbackFailed, status)

		return fmt.Errorf("failed to reconcile task %s: %w", task.KeerProductID, err)
	}

	if result.SkippedZeroPrice > 0 || result.SkippedUnmatched > 0 {
		p.logger.Infow("some quote lines were skipped",
			"keer_product_id", task.KeerProductID,
			"zero_price", result.SkippedZeroPrice,
			"unmatched_country", result.SkippedUnmatched,
		)
	}

	submission := client.QuotationSubmission{
		ProductID:        resolved.ProductID,
		ShopifyProductID: resolved.ShopifyProductID,
		PriceParams:      result.PriceParams,
		DeleteVariants:   result.DeleteVariants,
	}
	if err := p.marketplace.SubmitQuotation(ctx, submission); err != nil {
		p.report(ctx, task.KeerProductID, domain.FeedbackFailed, statusSubmissionFailed)
		return fmt.Errorf("failed to submit quotation for task %s: %w", task.KeerProductID, err)
	}

	p.logger.Infow("quotation submitted",
		"keer_product_id", task.KeerProductID,
		"product_id", resolved.ProductID,
		"price_params", len(result.PriceParams),
		"deleted_countries", len(result.DeleteVariants),
	)

	// The quotation id and client ids are minted by the submission, so
	// the detail has to be fetched again before messaging.
	detail, err := p.marketplace.ProductQuotation(ctx, resolved.ProductID, true)
	if err != nil {
		p.report(ctx, task.KeerProductID, domain.FeedbackPricedMessageFailed, statusRefetchFailed)
		return fmt.Errorf("failed to refetch detail for task %s: %w", task.KeerProductID, err)
	}

	description := p.tasks.MessageContent(ctx, task.KeerProductID)

	previousLedger, err := p.tasks.UploadedImages(ctx, task.KeerProductID)
	if err != nil {
		p.logger.Warnw("failed to fetch uploaded-image ledger, assuming empty",
			"keer_product_id", task.KeerProductID, "error", err)
		previousLedger = ""
	}

	allImages, err := p.tasks.ProductImages(ctx, task.KeerProductID)
	if err != nil {
		p.logger.Warnw("failed to fetch real-shot image list, sending message without images",
			"keer_product_id", task.KeerProductID, "error", err)
		allImages = ""
	}

	pending := ledger.Pending(allImages, previousLedger)

	var (
		files    []domain.EncodedImage
		uploaded []string
	)
	for i, imageURL := range pending {
		encoded, err := p.normalizer.Normalize(ctx, imageURL, i+1)
		if err != nil {
			p.logger.Warnw("image lost",
				"keer_product_id", task.KeerProductID, "url", imageURL, "error", err)
			continue
		}

		files = append(files, *encoded)
		uploaded = append(uploaded, imageURL)
	}

	if len(pending) > 0 && len(files) == 0 {
		p.report(ctx, task.KeerProductID, domain.FeedbackPricedMessageFailed, statusAllImagesFailed)
		return fmt.Errorf("all %d pending images failed for task %s", len(pending), task.KeerProductID)
	}

	message := client.ChatMessage{
		ProductID:          resolved.ProductID,
		ShopifyProductID:   resolved.ShopifyProductID,
		QuotationID:        detail.QuotationID,
		ClientAccountID:    detail.ClientAccountID,
		ClientUserID:       detail.ClientUserID,
		QuotationRequestID: detail.QuotationRequestID,
		Description:        description,
		Files:              files,
	}
	if err := p.marketplace.SendChatMessage(ctx, message); err != nil {
		// The ledger stays untouched so the images are retried next time.
		p.report(ctx, task.KeerProductID, domain.FeedbackPricedMessageFailed, statusDispatchFailed)
		return fmt.Errorf("failed to dispatch message for task %s: %w", task.KeerProductID, err)
	}

	if len(uploaded) > 0 {
		updated := ledger.Record(previousLedger, uploaded)
		if err := p.tasks.SaveImageLedger(ctx, task.KeerProductID, updated); err != nil {
			p.logger.Errorw("failed to save image ledger",
				"keer_product_id", task.KeerProductID, "error", err)
		}
	}

	p.report(ctx, task.KeerProductID, domain.FeedbackSuccess, resolved.DriftNote)

	p.logger.Infow("task completed",
		"keer_product_id", task.KeerProductID,
		"images_uploaded", len(uploaded),
		"supplier_drift", resolved.DriftNote != "",
	)

	return nil
}

func (p *QuotationPipeline) report(ctx context.Context, keerProductID domain.ID, status domain.FeedbackStatus, spStatus string) {
	if err := p.tasks.ReportFeedback(ctx, keerProductID, status, spStatus); err != nil {
		p.logger.Errorw("failed to report feedback",
			"keer_product_id", keerProductID, "status", status, "error", err)
	}
}

func (p *QuotationPipeline) finalize(ctx context.Context, keerProductID domain.ID) {
	if err := p.tasks.FinalizeTask(ctx, keerProductID); err != nil {
		p.logger.Errorw("failed to finalize task",
			"keer_product_id", keerProductID, "error", err)
	}
}
