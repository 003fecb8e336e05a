// Package checkout validates shopper contact data, submits orders to the
// external order-processing collaborator and drives the step state
// machine from cart to success across both payment providers.
package checkout

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"regexp"
	"strings"

	"github.com/domespa/digital-store-sub001/internal/domain"
	"github.com/domespa/digital-store-sub001/internal/orders"
)

// Validation errors, each mapping to a distinct user-facing message.
var (
	ErrContactRequired = errors.New("all contact fields are required")
	ErrInvalidEmail    = errors.New("invalid email address")
	ErrEmptyCart       = errors.New("cart is empty")
)

var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// ResultKind discriminates how a successful submission continues.
type ResultKind string

const (
	// ResultEmbeddedPayment means card details are still to be collected
	// through the provider's inline form, using ClientSecret.
	ResultEmbeddedPayment ResultKind = "embedded-payment"
	// ResultRedirectPending means the browser must navigate to
	// ApprovalURL and the flow resumes when the shopper returns.
	ResultRedirectPending ResultKind = "redirect-pending"
	// ResultCompleted means the order needed no further payment step.
	ResultCompleted ResultKind = "completed"
)

type Result struct {
	Kind         ResultKind
	ClientSecret string
	ApprovalURL  string
	Order        domain.Order
}

type orderCreator interface {
	CreateOrder(ctx context.Context, in orders.CreateOrderInput) (*orders.CreateOrderResponse, error)
}

// Orchestrator packages the cart into an order request and branches on
// the collaborator's response.
type Orchestrator struct {
	orders orderCreator
	logger *log.Logger
}

func NewOrchestrator(orderClient orderCreator, logger *log.Logger) *Orchestrator {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	return &Orchestrator{orders: orderClient, logger: logger}
}

// Validate checks the form against the cart, stopping at the first
// failure: contact fields present, email shape, non-empty cart.
func Validate(form domain.CheckoutForm, state domain.CartState) error {
	if strings.TrimSpace(form.Email) == "" ||
		strings.TrimSpace(form.FirstName) == "" ||
		strings.TrimSpace(form.LastName) == "" {
		return ErrContactRequired
	}
	if !emailPattern.MatchString(strings.TrimSpace(form.Email)) {
		return ErrInvalidEmail
	}
	if len(state.Items) == 0 {
		return ErrEmptyCart
	}
	return nil
}

// Submit validates and creates the order. Line items are reduced to
// product id and quantity; prices are never sent, the collaborator
// re-derives them. The cart is not touched here on any outcome.
func (o *Orchestrator) Submit(ctx context.Context, form domain.CheckoutForm, state domain.CartState) (*Result, error) {
	if err := Validate(form, state); err != nil {
		return nil, err
	}

	items := make([]orders.OrderItemInput, 0, len(state.Items))
	for _, line := range state.Items {
		items = append(items, orders.OrderItemInput{
			ProductID: line.ProductID,
			Quantity:  line.Quantity,
		})
	}

	resp, err := o.orders.CreateOrder(ctx, orders.CreateOrderInput{
		CustomerEmail:     strings.ToLower(strings.TrimSpace(form.Email)),
		CustomerFirstName: strings.TrimSpace(form.FirstName),
		CustomerLastName:  strings.TrimSpace(form.LastName),
		Items:             items,
		PaymentProvider:   form.Provider,
		Currency:          state.DisplayCurrency,
	})
	if err != nil {
		return nil, fmt.Errorf("create order: %w", err)
	}

	switch {
	case resp.PaymentProvider == domain.ProviderCard && resp.ClientSecret != "":
		return &Result{Kind: ResultEmbeddedPayment, ClientSecret: resp.ClientSecret, Order: resp.Order}, nil
	case resp.PaymentProvider == domain.ProviderRedirect && resp.ApprovalURL != "":
		return &Result{Kind: ResultRedirectPending, ApprovalURL: resp.ApprovalURL, Order: resp.Order}, nil
	default:
		o.logger.Printf("checkout: order %s completed without payment step", resp.Order.ID)
		return &Result{Kind: ResultCompleted, Order: resp.Order}, nil
	}
}
