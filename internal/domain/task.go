package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
)

// ID is an identifier that upstream systems encode inconsistently,
// sometimes as a JSON string and sometimes as a number.
type ID string

func (id *ID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*id = ""
		return nil
	}

	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*id = ID(s)
		return nil
	}

	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*id = ID(n.String())

	return nil
}

func (id ID) String() string {
	return string(id)
}

func (id ID) Int() (int, error) {
	n, err := strconv.Atoi(string(id))
	if err != nil {
		return 0, fmt.Errorf("failed to parse id %q: %w", string(id), err)
	}

	return n, nil
}

func (id ID) IsZero() bool {
	return id == "" || id == "0"
}

// QuotationTask is a pending quoting task from the Keer backlog. The
// quotation result arrives serialized as a JSON array of quote lines.
type QuotationTask struct {
	ClientProductTitle string `json:"client_product_title"`
	QuotationResult    string `json:"quotation_result"`
	StoreCode          string `json:"store_code"`
	KeerProductID      ID     `json:"keer_product_id"`
}

// QuoteLine is one country/quantity/price tuple inside a task's
// serialized quotation result.
type QuoteLine struct {
	Nation   string  `json:"nation"`
	Quantity int     `json:"quantity"`
	Price    float64 `json:"price"`
	Profit   float64 `json:"profit"`
}

// ParseQuoteLines decodes the serialized quotation result of a task.
func ParseQuoteLines(raw string) ([]QuoteLine, error) {
	var lines []QuoteLine
	if err := json.Unmarshal([]byte(raw), &lines); err != nil {
		return nil, fmt.Errorf("failed to parse quotation result: %w", err)
	}

	return lines, nil
}

type FeedbackStatus int

// Feedback codes reported back to the Keer task store.
const (
	FeedbackSuccess             FeedbackStatus = 1 // quotation and message both delivered
	FeedbackFailed              FeedbackStatus = 2 // quotation was not delivered
	FeedbackPricedMessageFailed FeedbackStatus = 3 // quotation delivered, message was not
	FeedbackMessageOnly         FeedbackStatus = 4 // message delivered, quotation was not
)
