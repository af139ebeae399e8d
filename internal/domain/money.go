package domain

import (
	"strings"

	"github.com/shopspring/decimal"
	"golang.org/x/text/currency"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// Amount is a decimal that travels as a bare JSON number.
// It accepts both numbers and quoted strings on input.
type Amount struct {
	decimal.Decimal
}

func NewAmount(d decimal.Decimal) Amount {
	return Amount{Decimal: d}
}

func (a Amount) MarshalJSON() ([]byte, error) {
	return []byte(a.Decimal.String()), nil
}

func (a *Amount) UnmarshalJSON(b []byte) error {
	return a.Decimal.UnmarshalJSON(b)
}

// FormatMoney renders amount in the conventions of tag, e.g. "$ 12.50" for en-US.
// Unknown currency codes fall back to "12.50 XYZ".
func FormatMoney(tag language.Tag, amount decimal.Decimal, code string) string {
	code = strings.ToUpper(strings.TrimSpace(code))
	unit, err := currency.ParseISO(code)
	if err != nil || tag == language.Und {
		return plainMoney(amount, code)
	}

	p := message.NewPrinter(tag)
	out := p.Sprint(currency.Symbol(unit.Amount(amount.Round(2).InexactFloat64())))
	if strings.TrimSpace(out) == "" {
		return plainMoney(amount, code)
	}
	return out
}

func plainMoney(amount decimal.Decimal, code string) string {
	if code == "" {
		return amount.StringFixed(2)
	}
	return amount.StringFixed(2) + " " + code
}
