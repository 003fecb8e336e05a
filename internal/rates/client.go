// Package rates calls the external currency-conversion collaborator.
package rates

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"

	"github.com/shopspring/decimal"
)

// Conversion is one successful rate lookup: the converted amount plus the
// rate and timestamp recording its provenance.
type Conversion struct {
	Amount    decimal.Decimal `json:"convertedAmount"`
	Rate      decimal.Decimal `json:"rate"`
	Timestamp time.Time       `json:"timestamp"`
}

type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *log.Logger
}

func New(baseURL string, logger *log.Logger) *Client {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	return &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: 10 * time.Second},
		logger:     logger,
	}
}

type convertRequest struct {
	Amount       decimal.Decimal `json:"amount"`
	FromCurrency string          `json:"fromCurrency"`
	ToCurrency   string          `json:"toCurrency"`
}

// Convert asks the rate service to express amount (in from) as to.
func (c *Client) Convert(ctx context.Context, amount decimal.Decimal, from, to string) (*Conversion, error) {
	body, err := json.Marshal(convertRequest{Amount: amount, FromCurrency: from, ToCurrency: to})
	if err != nil {
		return nil, fmt.Errorf("marshal convert request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/convert", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build convert request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Printf("rates: convert %s->%s error=%v", from, to, err)
		return nil, fmt.Errorf("call rate service: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		c.logger.Printf("rates: convert %s->%s status=%d", from, to, resp.StatusCode)
		return nil, fmt.Errorf("rate service returned status %d", resp.StatusCode)
	}

	var conv Conversion
	if err := json.NewDecoder(resp.Body).Decode(&conv); err != nil {
		return nil, fmt.Errorf("decode conversion: %w", err)
	}
	return &conv, nil
}
