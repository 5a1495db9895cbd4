// Package keer implements the HTTP client for the internal Keer task
// store.
package keer

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/Kewen526/serv-qoute/internal/domain"
)

// DefaultMessage is sent to the client chat when no custom message is
// configured for the product.
const DefaultMessage = "Your quotation has been completed. We are waiting for the supplier to provide product " +
	"real-shot pictures and the size chart, which will ensure we offer you the most accurate " +
	"and clear product information. We will upload them as soon as we receive the physical " +
	"product images from the factory. Thank you for your understanding."

// Endpoint paths are part of the compatibility contract with the task
// store and are not configurable.
const (
	pathQuotationTasks   = "/api/up-sp-bj"
	pathNonQuotableTasks = "/api/up-sp-bj_copy_9LotzZVQ"
	pathProductLookup    = "/api/sp_productid"
	pathSaveTaskStatus   = "/api/task-data/save"
	pathFinalizeTask     = "/api/up_sp_status"
	pathMessageContent   = "/api/product-attributes"
	pathTaskDetail       = "/api/getTaskDetailById"
	pathProductInfo      = "/api/get_product_info"
)

type Client struct {
	baseURL string
	client  *http.Client
	logger  *zap.SugaredLogger
}

type Config struct {
	BaseURL string
	Client  *http.Client
	Logger  *zap.SugaredLogger
}

func New(cfg Config) *Client {
	httpClient := cfg.Client
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}

	return &Client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		client:  httpClient,
		logger:  cfg.Logger,
	}
}

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
}

func (c *Client) postJSON(ctx context.Context, path string, payload any, out any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to call %s: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return fmt.Errorf("%s returned status %d", path, resp.StatusCode)
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("failed to decode %s response: %w", path, err)
		}
	}

	return nil
}

func (c *Client) fetchTasks(ctx context.Context, path, storeCode, createdAt string) ([]domain.QuotationTask, error) {
	payload := map[string]string{
		"store_code": storeCode,
		"created_at": createdAt,
	}

	var env envelope
	if err := c.postJSON(ctx, path, payload, &env); err != nil {
		return nil, err
	}

	return decodeTaskList(env), nil
}

// QuotationTasks fetches the pending quotation tasks for one store and
// creation date.
func (c *Client) QuotationTasks(ctx context.Context, storeCode, createdAt string) ([]domain.QuotationTask, error) {
	return c.fetchTasks(ctx, pathQuotationTasks, storeCode, createdAt)
}

// NonQuotableTasks fetches the pending mark-non-quotable tasks.
func (c *Client) NonQuotableTasks(ctx context.Context, storeCode, createdAt string) ([]domain.QuotationTask, error) {
	return c.fetchTasks(ctx, pathNonQuotableTasks, storeCode, createdAt)
}

// decodeTaskList accepts the three envelope shapes the task store has
// shipped over time, in priority order:
//
//	[claimedCount, [claimed...], pendingCount, [tasks...]]
//	[[tasks...]]
//	[tasks...]
//
// Anything else, including a non-success envelope, means zero tasks.
func decodeTaskList(env envelope) []domain.QuotationTask {
	if !env.Success || len(env.Data) == 0 {
		return nil
	}

	var elems []json.RawMessage
	if err := json.Unmarshal(env.Data, &elems); err != nil {
		return nil
	}
	if len(elems) == 0 {
		return nil
	}

	if len(elems) >= 4 {
		if tasks := tryTaskArray(elems[3]); tasks != nil {
			return tasks
		}
	}

	if tasks := tryTaskArray(elems[0]); tasks != nil {
		return tasks
	}

	return tryTaskArray(env.Data)
}

func tryTaskArray(raw json.RawMessage) []domain.QuotationTask {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || raw[0] != '[' {
		return nil
	}

	var tasks []domain.QuotationTask
	if err := json.Unmarshal(raw, &tasks); err != nil {
		return nil
	}
	if len(tasks) == 0 {
		return nil
	}

	return tasks
}

// LookupProduct resolves a Keer product id to the marketplace product id
// and the supplier the task was created under.
func (c *Client) LookupProduct(ctx context.Context, keerProductID domain.ID) (*domain.ProductRef, error) {
	id, err := keerProductID.Int()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrLookupFailed, err)
	}

	var result struct {
		Success bool                `json:"success"`
		Data    []domain.ProductRef `json:"data"`
	}
	if err := c.postJSON(ctx, pathProductLookup, map[string]int{"keep_product_id": id}, &result); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrLookupFailed, err)
	}

	if !result.Success || len(result.Data) == 0 {
		return nil, fmt.Errorf("%w: empty lookup response for keer product %s", domain.ErrLookupFailed, keerProductID)
	}

	ref := result.Data[0]
	if ref.ProductID.IsZero() {
		return nil, fmt.Errorf("%w: lookup returned no product id for keer product %s", domain.ErrLookupFailed, keerProductID)
	}

	return &ref, nil
}

// MessageContent fetches the custom chat message configured for a
// product. Any failure or empty value falls back to DefaultMessage; this
// call never blocks a task. The endpoint is form-encoded, unlike the rest
// of the task-store API.
func (c *Client) MessageContent(ctx context.Context, keerProductID domain.ID) string {
	form := url.Values{"id": {keerProductID.String()}}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+pathMessageContent, strings.NewReader(form.Encode()))
	if err != nil {
		return DefaultMessage
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.client.Do(req)
	if err != nil {
		c.logger.Warnw("failed to fetch message content, using default", "keer_product_id", keerProductID, "error", err)
		return DefaultMessage
	}
	defer resp.Body.Close()

	var result struct {
		Success bool `json:"success"`
		Data    []struct {
			ProductAttribute string `json:"product_attribute"`
		} `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil || !result.Success || len(result.Data) == 0 {
		return DefaultMessage
	}

	if message := strings.TrimSpace(result.Data[0].ProductAttribute); message != "" {
		return message
	}

	return DefaultMessage
}

// UploadedImages returns the persisted ledger of already-uploaded image
// URLs for a product.
func (c *Client) UploadedImages(ctx context.Context, keerProductID domain.ID) (string, error) {
	var result struct {
		Success bool `json:"success"`
		Data    []struct {
			ShiImageNote string `json:"shi_image_note"`
		} `json:"data"`
	}

	payload := map[string]string{"keer_product_id": keerProductID.String()}
	if err := c.postJSON(ctx, pathTaskDetail, payload, &result); err != nil {
		return "", err
	}

	if !result.Success || len(result.Data) == 0 {
		return "", nil
	}

	return nullableValue(result.Data[0].ShiImageNote), nil
}

// ProductImages returns the comma-joined list of every real-shot image
// URL known for a product.
func (c *Client) ProductImages(ctx context.Context, keerProductID domain.ID) (string, error) {
	var result struct {
		Success bool `json:"success"`
		Data    []struct {
			ProductShiImg string `json:"product_shi_img"`
		} `json:"data"`
	}

	payload := map[string]string{"id": keerProductID.String()}
	if err := c.postJSON(ctx, pathProductInfo, payload, &result); err != nil {
		return "", err
	}

	if !result.Success || len(result.Data) == 0 {
		return "", nil
	}

	return nullableValue(result.Data[0].ProductShiImg), nil
}

// The task store stores the literal string "null" in cleared text fields.
func nullableValue(s string) string {
	s = strings.TrimSpace(s)
	if s == "null" {
		return ""
	}

	return s
}

// ReportFeedback records a terminal feedback code for a task, optionally
// with a free-text status annotation.
func (c *Client) ReportFeedback(ctx context.Context, keerProductID domain.ID, status domain.FeedbackStatus, spStatus string) error {
	payload := map[string]any{
		"keer_product_id":           keerProductID.String(),
		"quotation_feedback_status": int(status),
	}
	if spStatus != "" {
		payload["sp_status"] = spStatus
	}

	if err := c.postJSON(ctx, pathSaveTaskStatus, payload, nil); err != nil {
		return fmt.Errorf("failed to report feedback: %w", err)
	}

	return nil
}

// SaveImageLedger persists the updated uploaded-image ledger.
func (c *Client) SaveImageLedger(ctx context.Context, keerProductID domain.ID, ledger string) error {
	payload := map[string]any{
		"keer_product_id": keerProductID.String(),
		"shi_image_note":  ledger,
	}

	if err := c.postJSON(ctx, pathSaveTaskStatus, payload, nil); err != nil {
		return fmt.Errorf("failed to save image ledger: %w", err)
	}

	return nil
}

// FinalizeTask marks the task's marketplace-side status as finished. It
// is called for every task that reached product resolution, whatever the
// feedback code was.
func (c *Client) FinalizeTask(ctx context.Context, keerProductID domain.ID) error {
	id, err := keerProductID.Int()
	if err != nil {
		return fmt.Errorf("failed to finalize task: %w", err)
	}

	payload := map[string]int{
		"id":        id,
		"sp_status": 2,
	}

	if err := c.postJSON(ctx, pathFinalizeTask, payload, nil); err != nil {
		return fmt.Errorf("failed to finalize task: %w", err)
	}

	return nil
}
