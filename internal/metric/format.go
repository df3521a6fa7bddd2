package metric

import (
	"fmt"
	"math"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/text/currency"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"
)

// Formatter renders monetary, percentage, and date cells for the configured
// locale. Every report and dashboard value passes through one Formatter so all
// views agree to the cent.
type Formatter struct {
	tag     language.Tag
	printer *message.Printer
	unit    currency.Unit
	symbol  string
	months  [12]string
}

// Three-letter month labels in the date-fns style the charts were built
// against. English is the fallback for any other locale.
var ptMonths = [12]string{"jan", "fev", "mar", "abr", "mai", "jun", "jul", "ago", "set", "out", "nov", "dez"}
var enMonths = [12]string{"Jan", "Feb", "Mar", "Apr", "May", "Jun", "Jul", "Aug", "Sep", "Oct", "Nov", "Dec"}

// NewFormatter builds a Formatter for a BCP 47 locale (e.g. "pt-BR") and an
// ISO 4217 currency code (e.g. "BRL").
func NewFormatter(locale, currencyCode string) (*Formatter, error) {
	tag, err := language.Parse(locale)
	if err != nil {
		return nil, fmt.Errorf("metric: parse locale %q: %w", locale, err)
	}
	unit, err := currency.ParseISO(currencyCode)
	if err != nil {
		return nil, fmt.Errorf("metric: parse currency %q: %w", currencyCode, err)
	}
	printer := message.NewPrinter(tag)
	f := &Formatter{
		tag:     tag,
		printer: printer,
		unit:    unit,
		symbol:  printer.Sprint(currency.Symbol(unit)),
	}
	base, _ := tag.Base()
	if base.String() == "pt" {
		f.months = ptMonths
	} else {
		f.months = enMonths
	}
	return f, nil
}

// MustFormatter is a convenience for wiring and tests with known-good inputs.
func MustFormatter(locale, currencyCode string) *Formatter {
	f, err := NewFormatter(locale, currencyCode)
	if err != nil {
		panic(err)
	}
	return f
}

// Currency renders a monetary amount with the locale symbol and two decimals.
func (f *Formatter) Currency(v decimal.Decimal) string {
	return f.symbol + " " + f.printer.Sprint(number.Decimal(v.InexactFloat64(), number.Scale(2)))
}

// CurrencyPtr renders an optional amount; absent values format as the empty
// string rather than an error.
func (f *Formatter) CurrencyPtr(v *decimal.Decimal) string {
	if v == nil {
		return ""
	}
	return f.Currency(*v)
}

// Percent renders a percentage with one decimal place. Non-finite input
// formats as the empty string.
func (f *Formatter) Percent(v float64) string {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return ""
	}
	return f.printer.Sprint(number.Decimal(v, number.Scale(1))) + "%"
}

// Number renders a plain quantity with locale grouping and no forced scale.
func (f *Formatter) Number(v float64) string {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return ""
	}
	return f.printer.Sprint(number.Decimal(v))
}

// Date renders a day-precision date as dd/MM/yyyy.
func (f *Formatter) Date(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format("02/01/2006")
}

// DatePtr renders an optional date; nil formats as the empty string.
func (f *Formatter) DatePtr(t *time.Time) string {
	if t == nil {
		return ""
	}
	return f.Date(*t)
}

// DateTime renders a timestamp as dd/MM/yyyy HH:mm.
func (f *Formatter) DateTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format("02/01/2006 15:04")
}

// MonthShort returns the localized three-letter month label used as the
// chart bucket key.
func (f *Formatter) MonthShort(t time.Time) string {
	return f.months[t.Month()-1]
}
