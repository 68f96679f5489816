// Package storetest is a conformance suite run against every Ledger Store
// adapter.
package storetest

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/supaspend/ledger/internal/errs"
	"github.com/supaspend/ledger/internal/ledger"
	"github.com/supaspend/ledger/internal/storage"
)

// Factory returns an empty store. It registers its own cleanup.
type Factory func(t *testing.T) storage.Store

// Run executes the suite.
func Run(t *testing.T, newStore Factory) {
	t.Run("UsersAndWallets", func(t *testing.T) { testUsersAndWallets(t, newStore(t)) })
	t.Run("RollbackDiscards", func(t *testing.T) { testRollback(t, newStore(t)) })
	t.Run("LedgerSums", func(t *testing.T) { testLedgerSums(t, newStore(t)) })
	t.Run("ExpenseCascade", func(t *testing.T) { testExpenseCascade(t, newStore(t)) })
	t.Run("SubSecondOrdering", func(t *testing.T) { testSubSecondOrdering(t, newStore(t)) })
	t.Run("DeleteUserCascade", func(t *testing.T) { testDeleteUser(t, newStore(t)) })
}

var base = time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)

func inTx(t *testing.T, s storage.Store, fn func(ctx context.Context, tx storage.Tx) error) {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, storage.InTx(ctx, s, func(tx storage.Tx) error { return fn(ctx, tx) }))
}

func seedUser(t *testing.T, s storage.Store, name string) ledger.User {
	t.Helper()
	u := ledger.User{ID: uuid.New(), Username: name, Role: ledger.RoleUser, DisplayName: name, CreatedAt: base, UpdatedAt: base}
	inTx(t, s, func(ctx context.Context, tx storage.Tx) error { return tx.CreateUser(ctx, u) })
	return u
}

func seedWallet(t *testing.T, s storage.Store, userID uuid.UUID, name string, def bool, offset time.Duration) ledger.Wallet {
	t.Helper()
	w := ledger.Wallet{ID: uuid.New(), UserID: userID, Currency: ledger.CurrencyUSD, Name: name, IsDefault: def,
		CreatedAt: base.Add(offset), UpdatedAt: base.Add(offset)}
	inTx(t, s, func(ctx context.Context, tx storage.Tx) error { return tx.CreateWallet(ctx, w) })
	return w
}

func usd(t *testing.T, v string) ledger.FundTransaction {
	t.Helper()
	a, err := ledger.ParseAmount(ledger.CurrencyUSD, v)
	require.NoError(t, err)
	zero := ledger.Zero(ledger.CurrencyUSD)
	return ledger.FundTransaction{ID: uuid.New(), AdminID: uuid.New(), Amount: a, BalanceBefore: zero, BalanceAfter: zero, CreatedAt: base}
}

func testUsersAndWallets(t *testing.T, s storage.Store) {
	ctx := context.Background()
	alice := seedUser(t, s, "Alice")

	got, err := s.GetUserByUsername(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, alice.ID, got.ID)
	assert.Equal(t, ledger.RoleUser, got.Role)

	err = storage.InTx(ctx, s, func(tx storage.Tx) error {
		return tx.CreateUser(ctx, ledger.User{ID: uuid.New(), Username: "ALICE", Role: ledger.RoleUser, CreatedAt: base, UpdatedAt: base})
	})
	assert.ErrorIs(t, err, errs.ErrInvariantViolation)

	_, err = s.GetUser(ctx, uuid.New())
	assert.ErrorIs(t, err, errs.ErrNotFound)

	w1 := seedWallet(t, s, alice.ID, "Main", true, 0)
	w2 := seedWallet(t, s, alice.ID, "Travel", false, time.Second)

	ws, err := s.ListWallets(ctx, alice.ID)
	require.NoError(t, err)
	require.Len(t, ws, 2)
	assert.Equal(t, w1.ID, ws[0].ID, "wallets are listed in creation order")
	assert.True(t, ws[0].IsDefault)

	inTx(t, s, func(ctx context.Context, tx storage.Tx) error {
		if err := tx.ClearDefaultWallets(ctx, alice.ID); err != nil {
			return err
		}
		w2.IsDefault = true
		w2.Name = "Trips"
		return tx.UpdateWallet(ctx, w2)
	})
	got1, err := s.GetWallet(ctx, w1.ID)
	require.NoError(t, err)
	got2, err := s.GetWallet(ctx, w2.ID)
	require.NoError(t, err)
	assert.False(t, got1.IsDefault)
	assert.True(t, got2.IsDefault)
	assert.Equal(t, "Trips", got2.Name)

	err = storage.InTx(ctx, s, func(tx storage.Tx) error {
		return tx.CreateWallet(ctx, ledger.Wallet{ID: uuid.New(), UserID: uuid.New(), Currency: ledger.CurrencyUSD, Name: "x", CreatedAt: base, UpdatedAt: base})
	})
	assert.ErrorIs(t, err, errs.ErrNotFound)
}

func testRollback(t *testing.T, s storage.Store) {
	ctx := context.Background()
	u := seedUser(t, s, "bob")
	tx, err := s.BeginTx(ctx)
	require.NoError(t, err)
	require.NoError(t, tx.CreateWallet(ctx, ledger.Wallet{ID: uuid.New(), UserID: u.ID, Currency: ledger.CurrencyVND, Name: "Cash", IsDefault: true, CreatedAt: base, UpdatedAt: base}))
	staged, err := tx.ListWallets(ctx, u.ID)
	require.NoError(t, err)
	assert.Len(t, staged, 1, "a transaction sees its own writes")
	require.NoError(t, tx.Rollback(ctx))

	ws, err := s.ListWallets(ctx, u.ID)
	require.NoError(t, err)
	assert.Empty(t, ws)
}

func testLedgerSums(t *testing.T, s storage.Store) {
	ctx := context.Background()
	u := seedUser(t, s, "carol")
	w := seedWallet(t, s, u.ID, "Main", true, 0)

	totals, err := s.SumCreditsDebits(ctx, w.ID)
	require.NoError(t, err)
	bal, err := totals.Balance()
	require.NoError(t, err)
	assert.True(t, bal.IsZero(), "empty wallet has zero balance")

	rows := []ledger.FundTransaction{usd(t, "100.00"), usd(t, "10.25"), usd(t, "25.50"), usd(t, "4.75"), usd(t, "0.01")}
	types := []ledger.TransactionType{ledger.TxFundIn, ledger.TxDeposit, ledger.TxExpense, ledger.TxFundOut, ledger.TxWithdrawal}
	inTx(t, s, func(ctx context.Context, tx storage.Tx) error {
		for i := range rows {
			rows[i].WalletID = w.ID
			rows[i].Type = types[i]
			if err := tx.AppendTransaction(ctx, rows[i]); err != nil {
				return err
			}
		}
		return nil
	})

	totals, err = s.SumCreditsDebits(ctx, w.ID)
	require.NoError(t, err)
	assert.Equal(t, "110.25", ledger.FormatAmount(totals.Credits))
	assert.Equal(t, "30.26", ledger.FormatAmount(totals.Debits))
	bal, err = totals.Balance()
	require.NoError(t, err)
	assert.Equal(t, "79.99", ledger.FormatAmount(bal))

	list, err := s.ListTransactions(ctx, w.ID, 0)
	require.NoError(t, err)
	require.Len(t, list, 5)
	assert.Equal(t, rows[4].ID, list[0].ID, "newest first")
	assert.Equal(t, ledger.TxWithdrawal, list[0].Type, "stored tag is returned as written")

	limited, err := s.ListUserTransactions(ctx, u.ID, 2)
	require.NoError(t, err)
	assert.Len(t, limited, 2)

	_, err = s.SumCreditsDebits(ctx, uuid.New())
	assert.ErrorIs(t, err, errs.ErrNotFound)

	// Listing order is insertion order even when created_at disagrees.
	early := usd(t, "1.00")
	early.WalletID, early.Type, early.CreatedAt = w.ID, ledger.TxFundIn, base.Add(time.Hour)
	late := usd(t, "2.00")
	late.WalletID, late.Type, late.CreatedAt = w.ID, ledger.TxFundIn, base.Add(-time.Hour)
	inTx(t, s, func(ctx context.Context, tx storage.Tx) error {
		if err := tx.AppendTransaction(ctx, early); err != nil {
			return err
		}
		return tx.AppendTransaction(ctx, late)
	})
	byWallet, err := s.ListTransactions(ctx, w.ID, 2)
	require.NoError(t, err)
	byUser, err := s.ListUserTransactions(ctx, u.ID, 2)
	require.NoError(t, err)
	for _, got := range [][]ledger.FundTransaction{byWallet, byUser} {
		require.Len(t, got, 2)
		assert.Equal(t, []uuid.UUID{late.ID, early.ID}, []uuid.UUID{got[0].ID, got[1].ID})
	}
}

func testExpenseCascade(t *testing.T, s storage.Store) {
	ctx := context.Background()
	u := seedUser(t, s, "dave")
	w := seedWallet(t, s, u.ID, "Main", true, 0)
	amt, err := ledger.ParseAmount(ledger.CurrencyUSD, "25.50")
	require.NoError(t, err)
	e := ledger.Expense{ID: uuid.New(), UserID: u.ID, WalletID: w.ID, Date: time.Date(2024, 4, 30, 0, 0, 0, 0, time.UTC),
		Amount: amt, Category: "Meals", Description: "lunch", CreatedAt: base, UpdatedAt: base}
	debit := usd(t, "25.50")
	debit.WalletID = w.ID
	debit.Type = ledger.TxExpense
	debit.ExpenseID = &e.ID

	inTx(t, s, func(ctx context.Context, tx storage.Tx) error {
		if err := tx.CreateExpense(ctx, e); err != nil {
			return err
		}
		if err := tx.AppendTransaction(ctx, debit); err != nil {
			return err
		}
		next := e
		next.Amount, _ = ledger.ParseAmount(ledger.CurrencyUSD, "30")
		next.Category = "Food"
		if err := tx.UpdateExpense(ctx, next); err != nil {
			return err
		}
		return tx.AppendEditHistory(ctx, ledger.ExpenseEdit{ID: uuid.New(), ExpenseID: e.ID, EditedBy: u.ID,
			PreviousData: e.Snapshot(), NewData: next.Snapshot(), Reason: "fix", CreatedAt: base.Add(time.Minute)})
	})

	got, err := s.GetExpense(ctx, e.ID)
	require.NoError(t, err)
	assert.Equal(t, "30.00", ledger.FormatAmount(got.Amount))
	assert.Equal(t, ledger.Category("Food"), got.Category)
	assert.Equal(t, "2024-04-30", got.Date.Format(ledger.DateLayout))

	hist, err := s.ListEditHistory(ctx, e.ID)
	require.NoError(t, err)
	require.Len(t, hist, 1)
	assert.Equal(t, "25.50", ledger.FormatAmount(hist[0].PreviousData.Amount))
	assert.Equal(t, "30.00", ledger.FormatAmount(hist[0].NewData.Amount))
	assert.Equal(t, "fix", hist[0].Reason)

	list, err := s.ListExpenses(ctx, u.ID)
	require.NoError(t, err)
	assert.Len(t, list, 1)

	inTx(t, s, func(ctx context.Context, tx storage.Tx) error { return tx.DeleteExpense(ctx, e.ID) })
	_, err = s.GetExpense(ctx, e.ID)
	assert.ErrorIs(t, err, errs.ErrNotFound)
	hist, err = s.ListEditHistory(ctx, e.ID)
	require.NoError(t, err)
	assert.Empty(t, hist, "history cascades with the expense")

	rows, err := s.ListTransactions(ctx, w.ID, 0)
	require.NoError(t, err)
	require.Len(t, rows, 1, "ledger rows survive expense deletion")
	assert.Nil(t, rows[0].ExpenseID)
}

// Timestamps whose fractional parts differ in length still sort by time.
func testSubSecondOrdering(t *testing.T, s storage.Store) {
	ctx := context.Background()
	u := seedUser(t, s, "frank")
	w1 := seedWallet(t, s, u.ID, "Later", false, 500*time.Millisecond)
	w0 := seedWallet(t, s, u.ID, "First", true, 0)

	ws, err := s.ListWallets(ctx, u.ID)
	require.NoError(t, err)
	require.Len(t, ws, 2)
	assert.Equal(t, []uuid.UUID{w0.ID, w1.ID}, []uuid.UUID{ws[0].ID, ws[1].ID})

	amt, err := ledger.ParseAmount(ledger.CurrencyUSD, "10")
	require.NoError(t, err)
	e := ledger.Expense{ID: uuid.New(), UserID: u.ID, WalletID: w0.ID, Date: time.Date(2024, 4, 30, 0, 0, 0, 0, time.UTC),
		Amount: amt, Category: "Meals", CreatedAt: base, UpdatedAt: base}
	offsets := []time.Duration{120 * time.Millisecond, 100 * time.Millisecond, time.Second, 500 * time.Millisecond}
	inTx(t, s, func(ctx context.Context, tx storage.Tx) error {
		if err := tx.CreateExpense(ctx, e); err != nil {
			return err
		}
		for i, off := range offsets {
			err := tx.AppendEditHistory(ctx, ledger.ExpenseEdit{ID: uuid.New(), ExpenseID: e.ID, EditedBy: u.ID,
				PreviousData: e.Snapshot(), NewData: e.Snapshot(), Reason: string(rune('a' + i)), CreatedAt: base.Add(off)})
			if err != nil {
				return err
			}
		}
		return nil
	})

	hist, err := s.ListEditHistory(ctx, e.ID)
	require.NoError(t, err)
	require.Len(t, hist, len(offsets))
	var reasons []string
	for i, h := range hist {
		reasons = append(reasons, h.Reason)
		if i > 0 {
			assert.False(t, h.CreatedAt.Before(hist[i-1].CreatedAt), "history ascending by created_at")
		}
	}
	assert.Equal(t, []string{"b", "a", "d", "c"}, reasons)
}

func testDeleteUser(t *testing.T, s storage.Store) {
	ctx := context.Background()
	u := seedUser(t, s, "erin")
	w := seedWallet(t, s, u.ID, "Main", true, 0)
	row := usd(t, "5.00")
	row.WalletID = w.ID
	row.Type = ledger.TxFundIn
	inTx(t, s, func(ctx context.Context, tx storage.Tx) error { return tx.AppendTransaction(ctx, row) })

	inTx(t, s, func(ctx context.Context, tx storage.Tx) error { return tx.DeleteUser(ctx, u.ID) })
	_, err := s.GetWallet(ctx, w.ID)
	assert.ErrorIs(t, err, errs.ErrNotFound)
	rows, err := s.ListTransactions(ctx, w.ID, 0)
	require.NoError(t, err)
	assert.Empty(t, rows)

	err = storage.InTx(ctx, s, func(tx storage.Tx) error { return tx.DeleteUser(ctx, u.ID) })
	assert.ErrorIs(t, err, errs.ErrNotFound)
}
