// Package servicepoints implements the HTTP client for the Service
// Points product-quotation API.
package servicepoints

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/Kewen526/serv-qoute/internal/client"
	"github.com/Kewen526/serv-qoute/internal/domain"
)

const (
	pathSearchProducts   = "/get-products"
	pathProductQuotation = "/get-product-quotation"
	pathUpdateQuotation  = "/update-product-quotation"
	pathChatMessages     = "/save-product-chat-messages"
	pathMarkNonQuotable  = "/mark-product-non-quotable"

	// is_quotation_product discriminates the quotation catalog from the
	// regular product catalog on every endpoint.
	quotationProductKind = 2
)

// Static metadata carried on every quotation submission.
var submissionDefaults = map[string]any{
	"is_quotation_product":     quotationProductKind,
	"is_new_price_submitted":   0,
	"expected_processing_time": "3-5 days",
	"expecting_shipping_time":  "7-9 days",
	"product_quality":          "3",
	"start_fulfillment_delay":  "0 day",
	"reason_fulfillment_delay": "",
}

type Client struct {
	baseURL       string
	apiKey        string
	client        *http.Client
	messageClient *http.Client
	logger        *zap.SugaredLogger
}

type Config struct {
	BaseURL string
	APIKey  string
	// Client handles the regular API calls; MessageClient handles chat
	// dispatch, which carries inline image payloads and needs a longer
	// timeout.
	Client        *http.Client
	MessageClient *http.Client
	Logger        *zap.SugaredLogger
}

func New(cfg Config) *Client {
	httpClient := cfg.Client
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}

	messageClient := cfg.MessageClient
	if messageClient == nil {
		messageClient = &http.Client{Timeout: 60 * time.Second}
	}

	return &Client{
		baseURL:       strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:        cfg.APIKey,
		client:        httpClient,
		messageClient: messageClient,
		logger:        cfg.Logger,
	}
}

type apiResponse struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

func (c *Client) post(ctx context.Context, httpClient *http.Client, path string, payload any) (*http.Response, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Service-Point-Access-Token", c.apiKey)

	resp, err := httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to call %s: %w", path, err)
	}

	return resp, nil
}

func (c *Client) postJSON(ctx context.Context, path string, payload any) (*apiResponse, error) {
	resp, err := c.post(ctx, c.client, path, payload)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("%s returned status %d", path, resp.StatusCode)
	}

	var result apiResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("failed to decode %s response: %w", path, err)
	}

	return &result, nil
}

// SearchProducts runs a keyword search over the quotation catalog.
func (c *Client) SearchProducts(ctx context.Context, keyword string) ([]domain.SearchProduct, error) {
	payload := map[string]any{
		"is_quotation_product": quotationProductKind,
		"product_search_keys":  keyword,
		"page":                 1,
	}

	result, err := c.postJSON(ctx, pathSearchProducts, payload)
	if err != nil {
		return nil, err
	}
	if !result.Success {
		return nil, fmt.Errorf("product search failed: %s", result.Message)
	}

	var products []domain.SearchProduct
	if err := json.Unmarshal(result.Data, &products); err != nil {
		return nil, fmt.Errorf("failed to decode search results: %w", err)
	}

	return products, nil
}

// ProductQuotation fetches the full quotation view of a product. The
// view is always fetched fresh: the quotation id and client ids on it
// only exist after a submission.
func (c *Client) ProductQuotation(ctx context.Context, productID domain.ID, attachmentNeeded bool) (*domain.ProductDetail, error) {
	attachment := 0
	if attachmentNeeded {
		attachment = 1
	}

	payload := map[string]any{
		"product_id":           idValue(productID),
		"is_quotation_product": quotationProductKind,
		"is_attachment_needed": attachment,
	}

	result, err := c.postJSON(ctx, pathProductQuotation, payload)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrDetailUnavailable, err)
	}
	if !result.Success {
		return nil, fmt.Errorf("%w: %s", domain.ErrDetailUnavailable, result.Message)
	}

	var details []domain.ProductDetail
	if err := json.Unmarshal(result.Data, &details); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrDetailUnavailable, err)
	}
	if len(details) == 0 {
		return nil, fmt.Errorf("%w: empty detail for product %s", domain.ErrDetailUnavailable, productID)
	}

	return &details[0], nil
}

// SubmitQuotation writes the combined price/deletion payload in one call.
func (c *Client) SubmitQuotation(ctx context.Context, submission client.QuotationSubmission) error {
	payload := map[string]any{
		"product_id":         idValue(submission.ProductID),
		"shopify_product_id": idValue(submission.ShopifyProductID),
	}
	for key, value := range submissionDefaults {
		payload[key] = value
	}
	for name, price := range submission.PriceParams {
		payload[name] = price
	}
	if len(submission.DeleteVariants) > 0 {
		payload["delete_variant"] = submission.DeleteVariants
	}

	result, err := c.postJSON(ctx, pathUpdateQuotation, payload)
	if err != nil {
		return fmt.Errorf("failed to submit quotation: %w", err)
	}
	if !result.Success {
		return fmt.Errorf("quotation rejected: %s", result.Message)
	}

	return nil
}

// SendChatMessage posts a message (and any normalized images) to the
// product's quotation chat channel.
func (c *Client) SendChatMessage(ctx context.Context, message client.ChatMessage) error {
	payload := map[string]any{
		"product_id":           idValue(message.ProductID),
		"quotation_id":         idValue(message.QuotationID),
		"client_account_id":    idValue(message.ClientAccountID),
		"client_user_id":       idValue(message.ClientUserID),
		"quotation_request_id": idValue(message.QuotationRequestID),
		"is_quotation_product": quotationProductKind,
		"shopify_product_id":   idValue(message.ShopifyProductID),
		"description":          message.Description,
	}
	if len(message.Files) > 0 {
		payload["myProductfiles"] = message.Files
	}

	resp, err := c.post(ctx, c.messageClient, pathChatMessages, payload)
	if err != nil {
		return fmt.Errorf("failed to send chat message: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return fmt.Errorf("chat message returned status %d", resp.StatusCode)
	}

	var result apiResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return fmt.Errorf("failed to decode chat response: %w", err)
	}
	if !result.Success {
		return fmt.Errorf("chat message rejected: %s", result.Message)
	}

	return nil
}

// Known request shapes for the mark-non-quotable endpoint. Its accepted
// schema has changed without notice before, so both are tried in order.
func nonQuotablePayloads(productID, shopifyProductID any) []map[string]any {
	return []map[string]any{
		{
			"product_id":           productID,
			"shopify_product_id":   shopifyProductID,
			"is_quotation_product": quotationProductKind,
			"is_quotable":          0,
		},
		{
			"product_id":           productID,
			"shopify_product_id":   shopifyProductID,
			"is_quotation_product": quotationProductKind,
			"quotation_status":     "not_available",
		},
	}
}

// MarkNonQuotable flags a product as not quotable. A product that
// already carries a quotation cannot be flagged; that case surfaces as
// domain.ErrAlreadyQuoted.
func (c *Client) MarkNonQuotable(ctx context.Context, productID, shopifyProductID domain.ID) error {
	for i, payload := range nonQuotablePayloads(idValue(productID), idValue(shopifyProductID)) {
		resp, err := c.post(ctx, c.client, pathMarkNonQuotable, payload)
		if err != nil {
			c.logger.Warnw("mark-non-quotable request failed", "shape", i+1, "error", err)
			continue
		}

		// 404/405 means this request shape missed the endpoint entirely.
		if resp.StatusCode == http.StatusNotFound || resp.StatusCode == http.StatusMethodNotAllowed {
			resp.Body.Close()
			continue
		}

		var result apiResponse
		err = json.NewDecoder(resp.Body).Decode(&result)
		resp.Body.Close()
		if err != nil {
			c.logger.Warnw("mark-non-quotable returned invalid json", "shape", i+1, "error", err)
			continue
		}

		if result.Success {
			return nil
		}

		if strings.Contains(result.Message, "Quotation already given") {
			return fmt.Errorf("%w: %s", domain.ErrAlreadyQuoted, result.Message)
		}

		c.logger.Warnw("mark-non-quotable rejected", "shape", i+1, "message", result.Message)
	}

	return fmt.Errorf("failed to mark product %s non-quotable: all request shapes rejected", productID)
}

// idValue renders an ID the way the API expects: numeric when possible.
func idValue(id domain.ID) any {
	if n, err := id.Int(); err == nil {
		return n
	}

	return id.String()
}
