package currency

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/currency"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"
)

// Formatter renders prices for display in one locale. It never converts
// between currencies.
type Formatter struct {
	printer *message.Printer
}

func NewFormatter(tag language.Tag) *Formatter {
	return &Formatter{printer: message.NewPrinter(tag)}
}

var english = NewFormatter(language.English)

// Format renders amount in the English locale.
func Format(amount float64, code string) string {
	return english.Format(amount, code)
}

// Format renders amount with the currency's symbol and standard number of
// decimals, e.g. "$1,299.00" or "¥45,000". Unrecognized codes are printed
// as-is in front of the amount.
func (f *Formatter) Format(amount float64, code string) string {
	code = strings.ToUpper(strings.TrimSpace(code))
	unit, err := currency.ParseISO(code)
	if err != nil {
		return code + " " + f.printer.Sprint(number.Decimal(amount, number.Scale(2)))
	}

	scale, _ := currency.Standard.Rounding(unit)
	symbol := f.printer.Sprint(currency.Symbol(unit))
	amountStr := f.printer.Sprint(number.Decimal(amount, number.Scale(scale)))

	negative := strings.HasPrefix(amountStr, "-")
	amountStr = strings.TrimPrefix(amountStr, "-")

	sep := ""
	if r, _ := utf8.DecodeLastRuneInString(symbol); unicode.IsLetter(r) {
		sep = " "
	}
	out := symbol + sep + amountStr
	if negative {
		out = "-" + out
	}
	return out
}
