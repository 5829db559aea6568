package core

import (
	"encoding/json"
	"strings"

	"github.com/shopspring/decimal"
)

// MaxAmount is the largest value a money column holds (10 digits, 2 decimals).
var MaxAmount = decimal.RequireFromString("99999999.99")

// ParseAmount parses a money string. Blank input is zero.
func ParseAmount(field, s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero, nil
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, &InvalidAmountError{Field: field, Value: s, Reason: "not a number"}
	}
	if err := CheckAmount(field, d); err != nil {
		return decimal.Zero, err
	}
	return d, nil
}

// CheckAmount enforces the money domain: non-negative, at most two decimal
// places, at most MaxAmount.
func CheckAmount(field string, d decimal.Decimal) error {
	switch {
	case d.IsNegative():
		return &InvalidAmountError{Field: field, Value: d.String(), Reason: "must not be negative"}
	case !d.Equal(d.Round(2)):
		return &InvalidAmountError{Field: field, Value: d.String(), Reason: "at most two decimal places"}
	case d.GreaterThan(MaxAmount):
		return &InvalidAmountError{Field: field, Value: d.String(), Reason: "exceeds " + MaxAmount.StringFixed(2)}
	}
	return nil
}

// CheckPositiveAmount is CheckAmount plus a 0.01 minimum.
func CheckPositiveAmount(field string, d decimal.Decimal) error {
	if !d.IsPositive() {
		return &InvalidAmountError{Field: field, Value: d.String(), Reason: "must be at least 0.01"}
	}
	return CheckAmount(field, d)
}

// FormatRupees renders an amount the way ledger notes show it: ₹150.00.
func FormatRupees(d decimal.Decimal) string {
	return "₹" + d.StringFixed(2)
}

// AmountText is a money value as typed by an operator. It decodes from both
// JSON strings and JSON numbers so "150.00" and 150 are equivalent.
type AmountText string

func (a *AmountText) UnmarshalJSON(data []byte) error {
	s := strings.TrimSpace(string(data))
	if s == "null" {
		*a = ""
		return nil
	}
	if strings.HasPrefix(s, `"`) {
		var str string
		if err := json.Unmarshal(data, &str); err != nil {
			return err
		}
		*a = AmountText(str)
		return nil
	}
	*a = AmountText(s)
	return nil
}
