// Package client declares the interfaces the pipelines consume for the
// two remote systems: the internal Keer task store and the Service Points
// marketplace. Implementations live in the subpackages.
package client

import (
	"context"

	"github.com/Kewen526/serv-qoute/internal/domain"
)

// TaskSource is the internal Keer task store.
type TaskSource interface {
	QuotationTasks(ctx context.Context, storeCode, createdAt string) ([]domain.QuotationTask, error)
	NonQuotableTasks(ctx context.Context, storeCode, createdAt string) ([]domain.QuotationTask, error)
	LookupProduct(ctx context.Context, keerProductID domain.ID) (*domain.ProductRef, error)
	MessageContent(ctx context.Context, keerProductID domain.ID) string
	UploadedImages(ctx context.Context, keerProductID domain.ID) (string, error)
	ProductImages(ctx context.Context, keerProductID domain.ID) (string, error)
	ReportFeedback(ctx context.Context, keerProductID domain.ID, status domain.FeedbackStatus, spStatus string) error
	SaveImageLedger(ctx context.Context, keerProductID domain.ID, ledger string) error
	FinalizeTask(ctx context.Context, keerProductID domain.ID) error
}

// Marketplace is the Service Points product-quotation API.
type Marketplace interface {
	SearchProducts(ctx context.Context, keyword string) ([]domain.SearchProduct, error)
	ProductQuotation(ctx context.Context, productID domain.ID, attachmentNeeded bool) (*domain.ProductDetail, error)
	SubmitQuotation(ctx context.Context, submission QuotationSubmission) error
	SendChatMessage(ctx context.Context, message ChatMessage) error
	MarkNonQuotable(ctx context.Context, productID, shopifyProductID domain.ID) error
}

// QuotationSubmission is the combined marketplace write for one task:
// dynamic pcs_* price parameters plus the variant deletions for countries
// no offer covers. Both are applied in one atomic call; pricing without
// deletion (or the reverse) is never submitted.
type QuotationSubmission struct {
	ProductID        domain.ID
	ShopifyProductID domain.ID
	PriceParams      map[string]string
	DeleteVariants   map[string][]domain.ID
}

// ChatMessage is one message to a product's quotation chat channel,
// optionally carrying normalized image payloads.
type ChatMessage struct {
	ProductID          domain.ID
	ShopifyProductID   domain.ID
	QuotationID        domain.ID
	ClientAccountID    domain.ID
	ClientUserID       domain.ID
	QuotationRequestID domain.ID
	Description        string
	Files              []domain.EncodedImage
}
