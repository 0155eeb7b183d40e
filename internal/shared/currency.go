package shared

import (
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"
)

var currencyPrinter = message.NewPrinter(language.English)

// FormatGHS renders an amount in Ghanaian cedi with grouped thousands,
// the way every dashboard figure and notification shows money.
func FormatGHS(amount float64) string {
	return currencyPrinter.Sprintf("GH₵%v", number.Decimal(amount,
		number.MinFractionDigits(2), number.MaxFractionDigits(2)))
}
