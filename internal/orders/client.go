// Package orders calls the external order-processing collaborator that
// creates orders against the payment providers and captures redirect
// payments when the shopper returns.
package orders

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"

	"github.com/domespa/digital-store-sub001/internal/domain"
)

// CreateOrderInput is the order request. Prices are deliberately absent;
// the collaborator re-derives them from its catalog.
type CreateOrderInput struct {
	CustomerEmail     string                 `json:"customerEmail"`
	CustomerFirstName string                 `json:"customerFirstName"`
	CustomerLastName  string                 `json:"customerLastName"`
	Items             []OrderItemInput       `json:"items"`
	PaymentProvider   domain.PaymentProvider `json:"paymentProvider"`
	Currency          string                 `json:"currency"`
}

type OrderItemInput struct {
	ProductID string `json:"productId"`
	Quantity  int    `json:"quantity"`
}

// CreateOrderResponse echoes the provider and carries exactly one of
// ClientSecret (card provider), ApprovalURL (redirect provider) or
// neither (order already completed).
type CreateOrderResponse struct {
	PaymentProvider domain.PaymentProvider `json:"paymentProvider"`
	ClientSecret    string                 `json:"clientSecret,omitempty"`
	ApprovalURL     string                 `json:"approvalUrl,omitempty"`
	Order           domain.Order           `json:"order"`
}

type CaptureResponse struct {
	Success bool         `json:"success"`
	Order   domain.Order `json:"order"`
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
		httpClient: &http.Client{Timeout: 30 * time.Second},
		logger:     logger,
	}
}

func (c *Client) CreateOrder(ctx context.Context, in CreateOrderInput) (*CreateOrderResponse, error) {
	var out CreateOrderResponse
	if err := c.post(ctx, "/orders", in, &out); err != nil {
		c.logger.Printf("orders: create provider=%s error=%v", in.PaymentProvider, err)
		return nil, err
	}
	return &out, nil
}

// CaptureOrder finalizes a redirect-provider order after the shopper
// returns from the approval page.
func (c *Client) CaptureOrder(ctx context.Context, orderID string) (*CaptureResponse, error) {
	var out CaptureResponse
	if err := c.post(ctx, "/orders/"+orderID+"/capture", struct{}{}, &out); err != nil {
		c.logger.Printf("orders: capture id=%s error=%v", orderID, err)
		return nil, err
	}
	return &out, nil
}

func (c *Client) post(ctx context.Context, path string, in, out interface{}) error {
	body, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("call order service: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("order service returned status %d", resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
