package ledger

import (
	"errors"
	"strings"

	"github.com/govalues/decimal"
	"github.com/govalues/money"
)

// AmountScale is the storage precision of every amount, matching decimal(12,2).
const AmountScale = 2

var maxAmount = decimal.MustParse("9999999999.99")

// ParseAmount parses a decimal string in the given currency. It rejects
// non-positive values, more than two fractional digits and values that do not
// fit decimal(12,2).
func ParseAmount(curr Currency, s string) (money.Amount, error) {
	a, err := money.ParseAmount(string(curr), strings.TrimSpace(s))
	if err != nil {
		return money.Amount{}, err
	}
	if err := CheckAmount(a); err != nil {
		return money.Amount{}, err
	}
	return a.Trim(AmountScale), nil
}

// CheckAmount applies the ParseAmount rules to an already built amount.
func CheckAmount(a money.Amount) error {
	if !a.IsPos() {
		return errors.New("amount must be > 0")
	}
	if a.Trim(0).Scale() > AmountScale {
		return errors.New("amount must have at most 2 decimal places")
	}
	if a.Decimal().Cmp(maxAmount) > 0 {
		return errors.New("amount too large")
	}
	return nil
}

// Zero returns a zero amount in curr at storage precision.
func Zero(curr Currency) money.Amount {
	return money.MustNewAmount(string(curr), 0, AmountScale)
}

// FormatAmount renders a with exactly two fractional digits, without currency.
func FormatAmount(a money.Amount) string {
	return a.Decimal().Trim(AmountScale).Pad(AmountScale).String()
}
