package checkout

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/domespa/digital-store-sub001/internal/domain"
	"github.com/domespa/digital-store-sub001/internal/orders"
)

type stubOrderClient struct {
	resp      *orders.CreateOrderResponse
	err       error
	lastInput orders.CreateOrderInput
	calls     int
}

func (s *stubOrderClient) CreateOrder(_ context.Context, in orders.CreateOrderInput) (*orders.CreateOrderResponse, error) {
	s.calls++
	s.lastInput = in
	return s.resp, s.err
}

func validForm() domain.CheckoutForm {
	return domain.CheckoutForm{
		Email:     "Shopper@Example.COM ",
		FirstName: " Ada ",
		LastName:  " Lovelace ",
		Provider:  domain.ProviderCard,
	}
}

func cartWithOneLine() domain.CartState {
	return domain.CartState{
		Items: []domain.CartLine{
			{
				ID:               "l1",
				ProductID:        "p1",
				Quantity:         1,
				OriginalPrice:    decimal.RequireFromString("27.00"),
				OriginalCurrency: "USD",
				DisplayPrice:     decimal.RequireFromString("27.00"),
				DisplayCurrency:  "USD",
			},
		},
		DisplayCurrency: "USD",
		ItemsCount:      1,
	}
}

func TestValidateContactFieldsRequired(t *testing.T) {
	form := validForm()
	form.FirstName = "   "
	if err := Validate(form, cartWithOneLine()); !errors.Is(err, ErrContactRequired) {
		t.Fatalf("expected ErrContactRequired, got %v", err)
	}
}

func TestValidateEmailShape(t *testing.T) {
	form := validForm()
	form.Email = "not-an-email"
	if err := Validate(form, cartWithOneLine()); !errors.Is(err, ErrInvalidEmail) {
		t.Fatalf("expected ErrInvalidEmail, got %v", err)
	}

	form.Email = "a@b.co"
	if err := Validate(form, cartWithOneLine()); err != nil {
		t.Fatalf("expected a@b.co to validate, got %v", err)
	}
}

func TestValidateEmptyCart(t *testing.T) {
	if err := Validate(validForm(), domain.CartState{}); !errors.Is(err, ErrEmptyCart) {
		t.Fatalf("expected ErrEmptyCart, got %v", err)
	}
}

func TestSubmitValidationStopsBeforeOrderCall(t *testing.T) {
	client := &stubOrderClient{}
	orch := NewOrchestrator(client, nil)

	form := validForm()
	form.Email = "bad"
	if _, err := orch.Submit(context.Background(), form, cartWithOneLine()); !errors.Is(err, ErrInvalidEmail) {
		t.Fatalf("expected ErrInvalidEmail, got %v", err)
	}
	if client.calls != 0 {
		t.Fatalf("order client must not be called on validation failure")
	}
}

func TestSubmitBuildsOrderRequest(t *testing.T) {
	client := &stubOrderClient{
		resp: &orders.CreateOrderResponse{
			PaymentProvider: domain.ProviderCard,
			ClientSecret:    "secret_1",
			Order:           domain.Order{ID: "o1", Status: "pending"},
		},
	}
	orch := NewOrchestrator(client, nil)

	state := cartWithOneLine()
	state.Items[0].Quantity = 3
	if _, err := orch.Submit(context.Background(), validForm(), state); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	in := client.lastInput
	if in.CustomerEmail != "shopper@example.com" {
		t.Fatalf("email must be lower-cased and trimmed, got %q", in.CustomerEmail)
	}
	if in.CustomerFirstName != "Ada" || in.CustomerLastName != "Lovelace" {
		t.Fatalf("names must be trimmed, got %q %q", in.CustomerFirstName, in.CustomerLastName)
	}
	if len(in.Items) != 1 || in.Items[0].ProductID != "p1" || in.Items[0].Quantity != 3 {
		t.Fatalf("unexpected items %+v", in.Items)
	}
	if in.Currency != "USD" || in.PaymentProvider != domain.ProviderCard {
		t.Fatalf("unexpected provider/currency %+v", in)
	}
}

func TestSubmitBranchesEmbedded(t *testing.T) {
	client := &stubOrderClient{
		resp: &orders.CreateOrderResponse{
			PaymentProvider: domain.ProviderCard,
			ClientSecret:    "secret_1",
			Order:           domain.Order{ID: "o1"},
		},
	}
	orch := NewOrchestrator(client, nil)

	res, err := orch.Submit(context.Background(), validForm(), cartWithOneLine())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Kind != ResultEmbeddedPayment || res.ClientSecret != "secret_1" {
		t.Fatalf("expected embedded-payment result, got %+v", res)
	}
}

func TestSubmitBranchesRedirect(t *testing.T) {
	client := &stubOrderClient{
		resp: &orders.CreateOrderResponse{
			PaymentProvider: domain.ProviderRedirect,
			ApprovalURL:     "https://pay.example/x",
			Order:           domain.Order{ID: "o2"},
		},
	}
	orch := NewOrchestrator(client, nil)

	form := validForm()
	form.Provider = domain.ProviderRedirect
	res, err := orch.Submit(context.Background(), form, cartWithOneLine())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Kind != ResultRedirectPending || res.ApprovalURL != "https://pay.example/x" {
		t.Fatalf("expected redirect-pending result, got %+v", res)
	}
}

func TestSubmitBranchesCompleted(t *testing.T) {
	client := &stubOrderClient{
		resp: &orders.CreateOrderResponse{
			PaymentProvider: domain.ProviderCard,
			Order:           domain.Order{ID: "o3", Status: "completed"},
		},
	}
	orch := NewOrchestrator(client, nil)

	res, err := orch.Submit(context.Background(), validForm(), cartWithOneLine())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Kind != ResultCompleted || res.Order.ID != "o3" {
		t.Fatalf("expected completed result, got %+v", res)
	}
}

func TestSubmitWrapsOrderError(t *testing.T) {
	client := &stubOrderClient{err: errors.New("boom")}
	orch := NewOrchestrator(client, nil)

	if _, err := orch.Submit(context.Background(), validForm(), cartWithOneLine()); err == nil {
		t.Fatalf("expected error")
	}
}
