// Package money holds the price arithmetic and formatting shared by the
// cart and checkout code. Amounts are decimal and rounded at cent
// granularity; float64 never enters a price computation.
package money

import (
	"fmt"

	"github.com/shopspring/decimal"
	"golang.org/x/text/currency"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

var printer = message.NewPrinter(language.English)

// Round rounds an amount to 2 decimal places, half up.
func Round(amount decimal.Decimal) decimal.Decimal {
	return amount.Round(2)
}

// Format renders an amount with the symbol of the given ISO 4217 code,
// e.g. Format(d(27), "USD") == "$ 27.00". An unknown code falls back to
// "CODE amount" so a bad currency never breaks rendering.
func Format(amount decimal.Decimal, code string) string {
	rounded := Round(amount)
	unit, err := currency.ParseISO(code)
	if err != nil {
		return fmt.Sprintf("%s %s", code, rounded.StringFixed(2))
	}
	value, _ := rounded.Float64()
	return printer.Sprintf("%v", currency.NarrowSymbol(unit.Amount(value)))
}
