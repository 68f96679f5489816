package funding

import (
	"context"
	"strings"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/supaspend/ledger/internal/errs"
	"github.com/supaspend/ledger/internal/ledger"
	"github.com/supaspend/ledger/internal/service/balance"
	"github.com/supaspend/ledger/internal/service/servicetest"
	"github.com/supaspend/ledger/internal/storage"
)

type env struct {
	f      *servicetest.Fixture
	svc    Service
	owner  ledger.Actor
	admin  ledger.Actor
	wallet ledger.Wallet
}

func setup(t *testing.T) env {
	f := servicetest.New(t)
	owner := f.Actor("alice", ledger.RoleUser)
	w := ledger.Wallet{ID: uuid.New(), UserID: owner.ID, Currency: ledger.CurrencyUSD, Name: "Main", IsDefault: true}
	f.Store.SeedWallet(w)
	return env{f: f, svc: New(f.Deps), owner: owner, admin: f.Actor("root", ledger.RoleAdmin), wallet: w}
}

func (e env) balance(t *testing.T) string {
	t.Helper()
	bal, err := balance.Compute(context.Background(), e.f.Store, e.wallet.ID)
	require.NoError(t, err)
	return ledger.FormatAmount(bal)
}

func TestFund_ReturnsNewBalance(t *testing.T) {
	e := setup(t)
	r, err := e.svc.Fund(context.Background(), e.admin, Request{WalletID: e.wallet.ID, Amount: "100.00", Description: "float"})
	require.NoError(t, err)
	assert.Equal(t, "100.00", ledger.FormatAmount(r.NewBalance))
	assert.Equal(t, ledger.TxFundIn, r.Type)
	assert.NotEqual(t, uuid.Nil, r.TransactionID)

	rows, err := e.f.Store.ListTransactions(context.Background(), e.wallet.ID, 0)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, e.admin.ID, rows[0].AdminID)
	assert.Equal(t, "0.00", ledger.FormatAmount(rows[0].BalanceBefore))
	assert.Equal(t, "100.00", ledger.FormatAmount(rows[0].BalanceAfter))
	assert.Equal(t, "float", rows[0].Description)
}

func TestFund_InvalidAmountWritesNothing(t *testing.T) {
	e := setup(t)
	ctx := context.Background()
	for _, amt := range []string{"-5", "0", "1.234", "abc", ""} {
		_, err := e.svc.Fund(ctx, e.admin, Request{WalletID: e.wallet.ID, Amount: amt})
		assert.ErrorIs(t, err, errs.ErrInvalidAmount, amt)
	}
	rows, err := e.f.Store.ListTransactions(ctx, e.wallet.ID, 0)
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestFund_UnknownWallet(t *testing.T) {
	e := setup(t)
	_, err := e.svc.Fund(context.Background(), e.admin, Request{WalletID: uuid.New(), Amount: "1"})
	assert.ErrorIs(t, err, errs.ErrNotFound)
}

func TestFund_Authorization(t *testing.T) {
	e := setup(t)
	ctx := context.Background()
	bob := e.f.Actor("bob", ledger.RoleUser)

	_, err := e.svc.Fund(ctx, bob, Request{WalletID: e.wallet.ID, Amount: "1"})
	assert.ErrorIs(t, err, errs.ErrForbidden)
	_, err = e.svc.Fund(ctx, ledger.Actor{}, Request{WalletID: e.wallet.ID, Amount: "1"})
	assert.ErrorIs(t, err, errs.ErrUnauthenticated)

	r, err := e.svc.Fund(ctx, e.owner, Request{WalletID: e.wallet.ID, Amount: "5"})
	require.NoError(t, err, "owners may top up their own wallet")
	assert.Equal(t, "5.00", ledger.FormatAmount(r.NewBalance))
}

func TestWithdraw_AllowsNegativeBalance(t *testing.T) {
	e := setup(t)
	ctx := context.Background()
	_, err := e.svc.Fund(ctx, e.admin, Request{WalletID: e.wallet.ID, Amount: "10"})
	require.NoError(t, err)
	r, err := e.svc.Withdraw(ctx, e.admin, Request{WalletID: e.wallet.ID, Amount: "1010.50"})
	require.NoError(t, err)
	assert.Equal(t, ledger.TxFundOut, r.Type)
	assert.Equal(t, "-1000.50", ledger.FormatAmount(r.NewBalance))
	assert.Equal(t, ledger.BalanceSignificantlyNegative, ledger.StateOf(r.NewBalance))
	assert.Equal(t, "-1000.50", e.balance(t))
}

// Concurrent writers on one wallet still produce an unbroken snapshot chain.
func TestFund_ConcurrentSnapshotsChain(t *testing.T) {
	e := setup(t)
	ctx := context.Background()
	const n = 25
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := e.svc.Fund(ctx, e.admin, Request{WalletID: e.wallet.ID, Amount: "1.00"})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()
	assert.Equal(t, "25.00", e.balance(t))

	rows, err := e.f.Store.ListTransactions(ctx, e.wallet.ID, 0)
	require.NoError(t, err)
	require.Len(t, rows, n)
	for i := 0; i+1 < len(rows); i++ {
		assert.Equal(t, ledger.FormatAmount(rows[i+1].BalanceAfter), ledger.FormatAmount(rows[i].BalanceBefore))
	}
}

func TestListTransactions(t *testing.T) {
	e := setup(t)
	ctx := context.Background()
	for _, amt := range []string{"1", "2", "3"} {
		_, err := e.svc.Fund(ctx, e.admin, Request{WalletID: e.wallet.ID, Amount: amt})
		require.NoError(t, err)
	}
	// A legacy row written before the vocabulary was unified.
	legacy, _ := ledger.ParseAmount(ledger.CurrencyUSD, "4")
	require.NoError(t, storage.InTx(ctx, e.f.Store, func(tx storage.Tx) error {
		return tx.AppendTransaction(ctx, ledger.FundTransaction{ID: uuid.New(), WalletID: e.wallet.ID, AdminID: e.admin.ID,
			Type: ledger.TxDeposit, Amount: legacy, BalanceBefore: legacy, BalanceAfter: legacy})
	}))

	rows, err := e.svc.ListTransactions(ctx, e.owner, e.wallet.ID, 2)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, ledger.TxFundIn, rows[0].Type, "legacy deposit is reported as fund_in")
	assert.Equal(t, "3.00", ledger.FormatAmount(rows[1].Amount))
	assert.Equal(t, "10.00", e.balance(t))

	all, err := e.svc.ListUserTransactions(ctx, e.admin, e.owner.ID, 0)
	require.NoError(t, err)
	assert.Len(t, all, 4)

	bob := e.f.Actor("bob", ledger.RoleUser)
	_, err = e.svc.ListTransactions(ctx, bob, e.wallet.ID, 10)
	assert.ErrorIs(t, err, errs.ErrForbidden)
	_, err = e.svc.ListUserTransactions(ctx, bob, e.owner.ID, 10)
	assert.ErrorIs(t, err, errs.ErrForbidden)
	_, err = e.svc.ListUserTransactions(ctx, e.admin, uuid.New(), 10)
	assert.ErrorIs(t, err, errs.ErrNotFound)
}

func TestClampLimit(t *testing.T) {
	assert.Equal(t, DefaultListLimit, clampLimit(0))
	assert.Equal(t, 7, clampLimit(7))
	assert.Equal(t, MaxListLimit, clampLimit(10_000))
}

func TestFund_DescriptionLimitCountsCharacters(t *testing.T) {
	e := setup(t)
	ctx := context.Background()
	// 255 two-byte runes fit; one more does not.
	_, err := e.svc.Fund(ctx, e.admin, Request{WalletID: e.wallet.ID, Amount: "1", Description: strings.Repeat("đ", MaxDescriptionLen)})
	require.NoError(t, err)
	_, err = e.svc.Fund(ctx, e.admin, Request{WalletID: e.wallet.ID, Amount: "1", Description: strings.Repeat("đ", MaxDescriptionLen+1)})
	assert.ErrorIs(t, err, errs.ErrInvalid)
}
