package storage

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/govalues/money"

	"github.com/supaspend/ledger/internal/ledger"
)

// snapshotJSON is the stored shape of previous_data / new_data.
type snapshotJSON struct {
	Amount      string `json:"amount"`
	Currency    string `json:"currency"`
	Category    string `json:"category"`
	Description string `json:"description"`
	Date        string `json:"date"`
}

// EncodeSnapshot renders an expense snapshot for the SQL adapters.
func EncodeSnapshot(s ledger.ExpenseSnapshot) ([]byte, error) {
	return json.Marshal(snapshotJSON{
		Amount:      ledger.FormatAmount(s.Amount),
		Currency:    s.Amount.Curr().Code(),
		Category:    string(s.Category),
		Description: s.Description,
		Date:        s.Date.Format(ledger.DateLayout),
	})
}

// DecodeSnapshot is the inverse of EncodeSnapshot.
func DecodeSnapshot(b []byte) (ledger.ExpenseSnapshot, error) {
	var raw snapshotJSON
	if err := json.Unmarshal(b, &raw); err != nil {
		return ledger.ExpenseSnapshot{}, fmt.Errorf("decode snapshot: %w", err)
	}
	amt, err := money.ParseAmount(raw.Currency, raw.Amount)
	if err != nil {
		return ledger.ExpenseSnapshot{}, fmt.Errorf("decode snapshot amount: %w", err)
	}
	date, err := time.Parse(ledger.DateLayout, raw.Date)
	if err != nil {
		return ledger.ExpenseSnapshot{}, fmt.Errorf("decode snapshot date: %w", err)
	}
	return ledger.ExpenseSnapshot{
		Amount:      amt,
		Category:    ledger.Category(raw.Category),
		Description: raw.Description,
		Date:        date,
	}, nil
}
