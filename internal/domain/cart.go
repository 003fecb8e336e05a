package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// CartLine is one product entry in the cart. OriginalPrice/OriginalCurrency
// record what the shopper will actually be charged and never change after
// creation; DisplayPrice/DisplayCurrency are re-derived whenever the
// shopper's preferred currency changes.
type CartLine struct {
	ID               string          `json:"id"`
	ProductID        string          `json:"productId"`
	Name             string          `json:"name,omitempty"`
	Quantity         int             `json:"quantity"`
	OriginalPrice    decimal.Decimal `json:"originalPrice"`
	OriginalCurrency string          `json:"originalCurrency"`
	DisplayPrice     decimal.Decimal `json:"displayPrice"`
	DisplayCurrency  string          `json:"displayCurrency"`
	ConversionRate   decimal.Decimal `json:"conversionRate"`
	ConversionTime   time.Time       `json:"conversionTime"`
}

// CartState is the cart aggregate. Totals and ItemsCount are derived from
// Items on every mutation. IsOpen and IsConverting are UI state and are
// not persisted.
type CartState struct {
	Items            []CartLine      `json:"items"`
	OriginalCurrency string          `json:"originalCurrency"`
	DisplayCurrency  string          `json:"displayCurrency"`
	OriginalTotal    decimal.Decimal `json:"originalTotal"`
	DisplayTotal     decimal.Decimal `json:"displayTotal"`
	ItemsCount       int             `json:"itemsCount"`
	IsOpen           bool            `json:"isOpen"`
	IsConverting     bool            `json:"isConverting"`
}
