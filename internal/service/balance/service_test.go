package balance

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/supaspend/ledger/internal/errs"
	"github.com/supaspend/ledger/internal/ledger"
	"github.com/supaspend/ledger/internal/service/servicetest"
	"github.com/supaspend/ledger/internal/storage"
)

// stalledStore never answers balance sums before the caller gives up.
type stalledStore struct {
	storage.Store
}

func (stalledStore) SumCreditsDebits(ctx context.Context, _ uuid.UUID) (ledger.Totals, error) {
	<-ctx.Done()
	return ledger.Totals{}, ctx.Err()
}

func TestBalance(t *testing.T) {
	f := servicetest.New(t)
	ctx := context.Background()
	alice := f.Actor("alice", ledger.RoleUser)
	bob := f.Actor("bob", ledger.RoleUser)
	admin := f.Actor("root", ledger.RoleAdmin)
	w := ledger.Wallet{ID: uuid.New(), UserID: alice.ID, Currency: ledger.CurrencyPHP, Name: "Main", IsDefault: true}
	f.Store.SeedWallet(w)
	svc := New(f.Deps)

	bal, err := svc.Balance(ctx, alice, w.ID)
	require.NoError(t, err)
	assert.True(t, bal.IsZero())
	assert.Equal(t, "PHP", bal.Curr().Code())

	_, err = svc.Balance(ctx, admin, w.ID)
	assert.NoError(t, err)
	_, err = svc.Balance(ctx, bob, w.ID)
	assert.ErrorIs(t, err, errs.ErrForbidden)
	_, err = svc.Balance(ctx, alice, uuid.New())
	assert.ErrorIs(t, err, errs.ErrNotFound)
	_, err = svc.Balance(ctx, ledger.Actor{}, w.ID)
	assert.ErrorIs(t, err, errs.ErrUnauthenticated)

	list, err := svc.WalletBalances(ctx, alice, alice.ID)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, ledger.BalanceOK, list[0].State)
}

func TestBalance_StoreTimeoutIsStorageError(t *testing.T) {
	f := servicetest.New(t)
	alice := f.Actor("alice", ledger.RoleUser)
	w := ledger.Wallet{ID: uuid.New(), UserID: alice.ID, Currency: ledger.CurrencyUSD, Name: "Main", IsDefault: true}
	f.Store.SeedWallet(w)

	d := f.Deps
	d.Store = stalledStore{Store: f.Store}
	d.Timeout = 20 * time.Millisecond
	_, err := New(d).Balance(context.Background(), alice, w.ID)
	assert.ErrorIs(t, err, errs.ErrStorage)
}
