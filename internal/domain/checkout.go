package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type PaymentProvider string

const (
	// ProviderCard hosts its payment form inline and needs a client-side
	// setup token before it can collect card details.
	ProviderCard PaymentProvider = "card"
	// ProviderRedirect sends the shopper to an external approval page and
	// returns them via a callback URL carrying a provider token.
	ProviderRedirect PaymentProvider = "redirect"
)

func (p PaymentProvider) Valid() bool {
	return p == ProviderCard || p == ProviderRedirect
}

func (p PaymentProvider) String() string {
	return string(p)
}

// CheckoutForm is the shopper-entered contact data for one checkout
// attempt. It is not persisted except transiently across a
// redirect-payment round trip.
type CheckoutForm struct {
	Email     string          `json:"email"`
	FirstName string          `json:"firstName"`
	LastName  string          `json:"lastName"`
	Provider  PaymentProvider `json:"paymentProvider"`
}

type Order struct {
	ID         string          `json:"id"`
	Total      decimal.Decimal `json:"total"`
	Currency   string          `json:"currency,omitempty"`
	Status     string          `json:"status"`
	OrderItems []OrderItem     `json:"orderItems"`
	CreatedAt  time.Time       `json:"createdAt"`
}

type OrderItem struct {
	ProductID string          `json:"productId"`
	Quantity  int             `json:"quantity"`
	Price     decimal.Decimal `json:"price"`
}
