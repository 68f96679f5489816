package servicetest

import (
	"context"
	"errors"

	"github.com/supaspend/ledger/internal/ledger"
	"github.com/supaspend/ledger/internal/service"
	"github.com/supaspend/ledger/internal/storage"
)

// ErrInjected is returned by the write a FaultyStore was told to break.
var ErrInjected = errors.New("injected write failure")

// Write names a Tx mutation FaultyStore can fail.
type Write string

const (
	FailCreateWallet      Write = "CreateWallet"
	FailAppendTransaction Write = "AppendTransaction"
	FailCreateExpense     Write = "CreateExpense"
	FailUpdateExpense     Write = "UpdateExpense"
	FailAppendEditHistory Write = "AppendEditHistory"
)

// FaultyStore hands out transactions whose FailOn write returns ErrInjected.
// Every other call reaches the wrapped store.
type FaultyStore struct {
	storage.Store
	FailOn Write
}

func (s FaultyStore) BeginTx(ctx context.Context) (storage.Tx, error) {
	tx, err := s.Store.BeginTx(ctx)
	if err != nil {
		return nil, err
	}
	return faultyTx{Tx: tx, failOn: s.FailOn}, nil
}

type faultyTx struct {
	storage.Tx
	failOn Write
}

func (t faultyTx) CreateWallet(ctx context.Context, w ledger.Wallet) error {
	if t.failOn == FailCreateWallet {
		return ErrInjected
	}
	return t.Tx.CreateWallet(ctx, w)
}

func (t faultyTx) AppendTransaction(ctx context.Context, row ledger.FundTransaction) error {
	if t.failOn == FailAppendTransaction {
		return ErrInjected
	}
	return t.Tx.AppendTransaction(ctx, row)
}

func (t faultyTx) CreateExpense(ctx context.Context, e ledger.Expense) error {
	if t.failOn == FailCreateExpense {
		return ErrInjected
	}
	return t.Tx.CreateExpense(ctx, e)
}

func (t faultyTx) UpdateExpense(ctx context.Context, e ledger.Expense) error {
	if t.failOn == FailUpdateExpense {
		return ErrInjected
	}
	return t.Tx.UpdateExpense(ctx, e)
}

func (t faultyTx) AppendEditHistory(ctx context.Context, h ledger.ExpenseEdit) error {
	if t.failOn == FailAppendEditHistory {
		return ErrInjected
	}
	return t.Tx.AppendEditHistory(ctx, h)
}

// Faulty returns a copy of the fixture's deps whose store fails on w.
func (f *Fixture) Faulty(w Write) service.Deps {
	d := f.Deps
	d.Store = FaultyStore{Store: f.Store, FailOn: w}
	return d
}
