package keer

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"go.uber.org/zap"

	"github.com/Kewen526/serv-qoute/internal/domain"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()

	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	return New(Config{
		BaseURL: srv.URL,
		Client:  srv.Client(),
		Logger:  zap.NewNop().Sugar(),
	})
}

func TestDecodeTaskListShapes(t *testing.T) {
	t.Parallel()

	task := `{"client_product_title":"widget","store_code":"SQQ-SP00001-x","keer_product_id":41,"quotation_result":"[]"}`

	cases := []struct {
		name string
		body string
		want int
	}{
		{"positional four element", `{"success":true,"data":[0,[],1,[` + task + `]]}`, 1},
		{"wrapped list", `{"success":true,"data":[[` + task + `,` + task + `]]}`, 2},
		{"bare list", `{"success":true,"data":[` + task + `]}`, 1},
		{"not success", `{"success":false,"data":[` + task + `]}`, 0},
		{"empty data", `{"success":true,"data":[]}`, 0},
		{"data missing", `{"success":true}`, 0},
		{"data not a list", `{"success":true,"data":{"x":1}}`, 0},
		{"four elements but junk", `{"success":true,"data":[0,1,2,3]}`, 0},
	}

	for _, tc := range cases {
		var env envelope
		if err := json.Unmarshal([]byte(tc.body), &env); err != nil {
			t.Fatalf("%s: bad fixture: %v", tc.name, err)
		}

		got := decodeTaskList(env)
		if len(got) != tc.want {
			t.Fatalf("%s: expected %d tasks, got %d", tc.name, tc.want, len(got))
		}
		if tc.want > 0 && got[0].KeerProductID != "41" {
			t.Fatalf("%s: unexpected keer product id %q", tc.name, got[0].KeerProductID)
		}
	}
}

func TestQuotationTasksRequest(t *testing.T) {
	t.Parallel()

	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/up-sp-bj" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		body, _ := io.ReadAll(r.Body)
		var payload map[string]string
		if err := json.Unmarshal(body, &payload); err != nil {
			t.Errorf("bad payload: %v", err)
		}
		if payload["store_code"] != "SP00001" || payload["created_at"] != "2026-08-30" {
			t.Errorf("unexpected payload: %v", payload)
		}
		io.WriteString(w, `{"success":true,"data":[{"client_product_title":"t","keer_product_id":"7","quotation_result":"[]","store_code":"SP00001"}]}`)
	})

	tasks, err := c.QuotationTasks(context.Background(), "SP00001", "2026-08-30")
	if err != nil {
		t.Fatalf("QuotationTasks: %v", err)
	}
	if len(tasks) != 1 || tasks[0].KeerProductID != "7" {
		t.Fatalf("unexpected tasks: %v", tasks)
	}
}

func TestLookupProduct(t *testing.T) {
	t.Parallel()

	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		var payload map[string]int
		if err := json.Unmarshal(body, &payload); err != nil {
			t.Errorf("keep_product_id must be numeric: %v", err)
		}
		if payload["keep_product_id"] != 41 {
			t.Errorf("unexpected payload: %v", payload)
		}
		io.WriteString(w, `{"success":true,"data":[{"product_id":9001,"supplier_name":"Liu Hong"}]}`)
	})

	ref, err := c.LookupProduct(context.Background(), domain.ID("41"))
	if err != nil {
		t.Fatalf("LookupProduct: %v", err)
	}
	if ref.ProductID != "9001" || ref.SupplierName != "Liu Hong" {
		t.Fatalf("unexpected ref: %+v", ref)
	}
}

func TestLookupProductEmptyResponse(t *testing.T) {
	t.Parallel()

	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `{"success":true,"data":[]}`)
	})

	_, err := c.LookupProduct(context.Background(), domain.ID("41"))
	if !errors.Is(err, domain.ErrLookupFailed) {
		t.Fatalf("expected ErrLookupFailed, got %v", err)
	}
}

func TestMessageContentFallsBackToDefault(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name string
		body string
	}{
		{"empty attribute", `{"success":true,"data":[{"product_attribute":"  "}]}`},
		{"not success", `{"success":false}`},
		{"garbage", `{{{`},
	}

	for _, tc := range cases {
		c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			if ct := r.Header.Get("Content-Type"); ct != "application/x-www-form-urlencoded" {
				t.Errorf("%s: unexpected content type %s", tc.name, ct)
			}
			io.WriteString(w, tc.body)
		})

		if got := c.MessageContent(context.Background(), domain.ID("41")); got != DefaultMessage {
			t.Fatalf("%s: expected default message, got %q", tc.name, got)
		}
	}
}

func TestMessageContentCustom(t *testing.T) {
	t.Parallel()

	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `{"success":true,"data":[{"product_attribute":" custom text "}]}`)
	})

	if got := c.MessageContent(context.Background(), domain.ID("41")); got != "custom text" {
		t.Fatalf("expected custom text, got %q", got)
	}
}

func TestUploadedImagesNullLiteral(t *testing.T) {
	t.Parallel()

	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `{"success":true,"data":[{"shi_image_note":"null"}]}`)
	})

	got, err := c.UploadedImages(context.Background(), domain.ID("41"))
	if err != nil {
		t.Fatalf("UploadedImages: %v", err)
	}
	if got != "" {
		t.Fatalf("expected empty ledger for null literal, got %q", got)
	}
}

func TestReportFeedbackOmitsEmptyStatus(t *testing.T) {
	t.Parallel()

	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		var payload map[string]any
		if err := json.Unmarshal(body, &payload); err != nil {
			t.Errorf("bad payload: %v", err)
		}
		if payload["keer_product_id"] != "41" {
			t.Errorf("keer_product_id must be a string: %v", payload)
		}
		if payload["quotation_feedback_status"] != float64(2) {
			t.Errorf("unexpected feedback status: %v", payload)
		}
		if _, ok := payload["sp_status"]; ok {
			t.Errorf("sp_status must be omitted when empty")
		}
		io.WriteString(w, `{"success":true}`)
	})

	if err := c.ReportFeedback(context.Background(), domain.ID("41"), domain.FeedbackFailed, ""); err != nil {
		t.Fatalf("ReportFeedback: %v", err)
	}
}

func TestFinalizeTask(t *testing.T) {
	t.Parallel()

	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/up_sp_status" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		body, _ := io.ReadAll(r.Body)
		var payload map[string]int
		if err := json.Unmarshal(body, &payload); err != nil {
			t.Errorf("bad payload: %v", err)
		}
		if payload["id"] != 41 || payload["sp_status"] != 2 {
			t.Errorf("unexpected payload: %v", payload)
		}
		io.WriteString(w, `{"success":true}`)
	})

	if err := c.FinalizeTask(context.Background(), domain.ID("41")); err != nil {
		t.Fatalf("FinalizeTask: %v", err)
	}
}
