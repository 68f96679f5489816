package ledger

import (
	"fmt"

	"github.com/govalues/money"
)

// Totals are the summed credit and debit magnitudes of a wallet's ledger.
type Totals struct {
	Credits money.Amount
	Debits  money.Amount
}

// Balance returns credits minus debits.
func (t Totals) Balance() (money.Amount, error) {
	return t.Credits.Sub(t.Debits)
}

// Tally folds ledger rows into credit and debit sums. Order does not matter.
// Rows of unknown type are rejected rather than silently skipped.
func Tally(curr Currency, txs []FundTransaction) (Totals, error) {
	t := Totals{Credits: Zero(curr), Debits: Zero(curr)}
	var err error
	for _, tx := range txs {
		switch {
		case tx.Type.IsCredit():
			t.Credits, err = t.Credits.Add(tx.Amount)
		case tx.Type.IsDebit():
			t.Debits, err = t.Debits.Add(tx.Amount)
		default:
			return Totals{}, fmt.Errorf("transaction %s: unknown type %q", tx.ID, tx.Type)
		}
		if err != nil {
			return Totals{}, fmt.Errorf("transaction %s: %w", tx.ID, err)
		}
	}
	return t, nil
}

// BalanceState is a presentation classification of a balance.
type BalanceState string

const (
	BalanceOK                    BalanceState = "ok"
	BalanceNegative              BalanceState = "negative"
	BalanceSignificantlyNegative BalanceState = "significantly_negative"
)

// SignificantNegativeThreshold is the display threshold for a large overdraft.
const SignificantNegativeThreshold = -1000

// StateOf classifies bal for display. Negative balances are never an error.
func StateOf(bal money.Amount) BalanceState {
	if !bal.IsNeg() {
		return BalanceOK
	}
	limit := money.MustNewAmount(bal.Curr().Code(), SignificantNegativeThreshold, 0)
	if diff, err := bal.Sub(limit); err == nil && diff.IsNeg() {
		return BalanceSignificantlyNegative
	}
	return BalanceNegative
}
