package summary

import (
	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// FormatBRL renders an amount as Brazilian reais, e.g. "R$ 1.234,56" or
// "-R$ 10,00".
func FormatBRL(amount decimal.Decimal) string {
	sign := ""
	if amount.IsNegative() {
		sign = "-"
	}
	p := message.NewPrinter(language.BrazilianPortuguese)
	return sign + "R$ " + p.Sprintf("%.2f", amount.Abs().Round(2).InexactFloat64())
}
