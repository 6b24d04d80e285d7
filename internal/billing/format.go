package billing

import (
	"strings"

	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"
)

// Locale is the display locale for amounts.
var Locale = language.MustParse("es-CO")

var printer = message.NewPrinter(Locale)

// groupSep and decimalSep are the locale's separators, read off a sample
// number so amounts can be grouped from their exact decimal digits.
var groupSep, decimalSep = separators()

func separators() (string, string) {
	r := []rune(printer.Sprint(number.Decimal(1234.5, number.Scale(1))))
	if len(r) != 7 {
		return ".", ","
	}
	return string(r[1]), string(r[5])
}

// FormatAmount renders d with es-CO grouping and exactly two decimals,
// e.g. 229162.5 -> "229.162,50". Digits come from d itself, so amounts of
// any size keep their precision.
func FormatAmount(d decimal.Decimal) string {
	s := d.StringFixed(2)
	neg := strings.HasPrefix(s, "-")
	s = strings.TrimPrefix(s, "-")
	whole, frac, _ := strings.Cut(s, ".")

	var b strings.Builder
	if neg && strings.Trim(whole+frac, "0") != "" {
		b.WriteByte('-')
	}
	for i, c := range whole {
		if i > 0 && (len(whole)-i)%3 == 0 {
			b.WriteString(groupSep)
		}
		b.WriteRune(c)
	}
	b.WriteString(decimalSep)
	b.WriteString(frac)
	return b.String()
}

// FormatCurrency is FormatAmount with a "$" prefix.
func FormatCurrency(d decimal.Decimal) string {
	return "$" + FormatAmount(d)
}

// FormatInteger renders n with es-CO grouping, e.g. 15300 -> "15.300".
func FormatInteger(n int64) string {
	return printer.Sprint(number.Decimal(n))
}

// FormatQuantity renders a consumption value without trailing zeros.
func FormatQuantity(d decimal.Decimal) string {
	return d.String()
}
