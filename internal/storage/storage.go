// Package storage declares the Ledger Store capability. Adapters live in the
// memory, postgres and sqlite subpackages and are interchangeable.
//
// Missing rows are reported as errs.ErrNotFound. Any other error is treated by
// the services as a storage failure.
package storage

import (
	"context"

	"github.com/google/uuid"

	"github.com/supaspend/ledger/internal/ledger"
)

// Reader groups the read operations available both on the store and inside a
// transaction.
type Reader interface {
	GetUser(ctx context.Context, id uuid.UUID) (ledger.User, error)
	GetUserByUsername(ctx context.Context, username string) (ledger.User, error)
	ListUsers(ctx context.Context) ([]ledger.User, error)

	GetWallet(ctx context.Context, id uuid.UUID) (ledger.Wallet, error)
	// ListWallets returns a user's wallets ordered by creation time.
	ListWallets(ctx context.Context, userID uuid.UUID) ([]ledger.Wallet, error)

	// ListTransactions returns a wallet's ledger rows newest first. limit <= 0 means all.
	ListTransactions(ctx context.Context, walletID uuid.UUID, limit int) ([]ledger.FundTransaction, error)
	// ListUserTransactions returns ledger rows across all of a user's wallets, newest first.
	ListUserTransactions(ctx context.Context, userID uuid.UUID, limit int) ([]ledger.FundTransaction, error)
	// SumCreditsDebits sums the wallet's full history. ErrNotFound if the wallet is absent.
	SumCreditsDebits(ctx context.Context, walletID uuid.UUID) (ledger.Totals, error)

	GetExpense(ctx context.Context, id uuid.UUID) (ledger.Expense, error)
	// ListExpenses returns a user's expenses, newest date first.
	ListExpenses(ctx context.Context, userID uuid.UUID) ([]ledger.Expense, error)
	// ListEditHistory returns an expense's edits ordered by created_at ascending.
	ListEditHistory(ctx context.Context, expenseID uuid.UUID) ([]ledger.ExpenseEdit, error)
}

// Writer groups the mutations. They are only reachable through a Tx.
type Writer interface {
	// LockUser serializes writers on one user's wallets until the Tx ends.
	LockUser(ctx context.Context, userID uuid.UUID) error
	// LockWallet serializes writers on one wallet's ledger until the Tx ends.
	LockWallet(ctx context.Context, walletID uuid.UUID) error

	CreateUser(ctx context.Context, u ledger.User) error
	// DeleteUser removes the profile with its wallets, ledger rows, expenses and history.
	DeleteUser(ctx context.Context, id uuid.UUID) error

	CreateWallet(ctx context.Context, w ledger.Wallet) error
	// UpdateWallet persists name, is_default and updated_at.
	UpdateWallet(ctx context.Context, w ledger.Wallet) error
	// DeleteWallet removes the wallet together with its ledger rows and expenses.
	DeleteWallet(ctx context.Context, id uuid.UUID) error
	// ClearDefaultWallets unsets is_default on all of a user's wallets.
	ClearDefaultWallets(ctx context.Context, userID uuid.UUID) error

	// AppendTransaction inserts a ledger row. Rows are never updated.
	AppendTransaction(ctx context.Context, tx ledger.FundTransaction) error

	CreateExpense(ctx context.Context, e ledger.Expense) error
	UpdateExpense(ctx context.Context, e ledger.Expense) error
	// DeleteExpense removes the expense and its history; linked ledger rows keep
	// their amounts and lose the link.
	DeleteExpense(ctx context.Context, id uuid.UUID) error
	AppendEditHistory(ctx context.Context, h ledger.ExpenseEdit) error
}

// Tx is one atomic unit of work. Reads inside it observe its own staged writes.
type Tx interface {
	Reader
	Writer
	Commit(ctx context.Context) error
	// Rollback discards staged writes. Calling it after Commit is a no-op.
	Rollback(ctx context.Context) error
}

// Store is the Ledger Store.
type Store interface {
	Reader
	BeginTx(ctx context.Context) (Tx, error)
}

// ReadyChecker is optionally implemented by stores to indicate readiness.
type ReadyChecker interface {
	Ready(ctx context.Context) error
}

// InTx runs fn inside a transaction, committing on success and rolling back on
// error or panic.
func InTx(ctx context.Context, s Store, fn func(tx Tx) error) (err error) {
	tx, err := s.BeginTx(ctx)
	if err != nil {
		return err
	}
	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback(ctx)
			panic(p)
		}
		if err != nil {
			_ = tx.Rollback(ctx)
		}
	}()
	if err = fn(tx); err != nil {
		return err
	}
	return tx.Commit(ctx)
}
