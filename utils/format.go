package utils

import (
	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

var printer = message.NewPrinter(language.English)

// FormatTokens renders an amount with thousands separators ("1,250" or "1,250.50").
func FormatTokens(amount decimal.Decimal) string {
	if amount.Equal(amount.Truncate(0)) {
		return printer.Sprintf("%d", amount.IntPart())
	}
	f, _ := amount.Round(2).Float64()
	return printer.Sprintf("%.2f", f)
}

// FormatPoints renders an integer count with thousands separators.
func FormatPoints(points int64) string {
	return printer.Sprintf("%d", points)
}
