// Package render turns sessions and orders into outbound message text.
// Amounts stay float64 currency units until they reach a Formatter.
package render

import (
	"strings"

	"golang.org/x/text/currency"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/Chative-core-poc-v1/orderbot/internal/bot/model"
)

// Formatter prints amounts in one currency for one locale.
type Formatter struct {
	unit    currency.Unit
	printer *message.Printer
}

// NewFormatter falls back to USD and American English on unparseable input.
func NewFormatter(iso, locale string) Formatter {
	unit, err := currency.ParseISO(strings.TrimSpace(iso))
	if err != nil {
		unit = currency.USD
	}
	tag, err := language.Parse(strings.TrimSpace(locale))
	if err != nil {
		tag = language.AmericanEnglish
	}
	return Formatter{unit: unit, printer: message.NewPrinter(tag)}
}

// ForTenant prefers the tenant's own currency and locale.
func ForTenant(t *model.Tenant, defaultCurrency, defaultLocale string) Formatter {
	cur, loc := defaultCurrency, defaultLocale
	if t != nil {
		if t.Currency != "" {
			cur = t.Currency
		}
		if t.Locale != "" {
			loc = t.Locale
		}
	}
	return NewFormatter(cur, loc)
}

// Money renders v with exactly two decimals, e.g. "USD 1,234.50".
func (f Formatter) Money(v float64) string {
	if f.printer == nil {
		f = NewFormatter("", "")
	}
	return f.unit.String() + " " + f.printer.Sprintf("%.2f", v)
}

// Signed renders modifiers with an explicit sign, e.g. "+USD 1.00".
func (f Formatter) Signed(v float64) string {
	if v < 0 {
		return "-" + f.Money(-v)
	}
	return "+" + f.Money(v)
}
