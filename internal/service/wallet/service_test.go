package wallet

import (
	"context"
	"math/rand"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/supaspend/ledger/internal/errs"
	"github.com/supaspend/ledger/internal/ledger"
	"github.com/supaspend/ledger/internal/service/servicetest"
)

func setup(t *testing.T) (*servicetest.Fixture, Service, ledger.Actor) {
	f := servicetest.New(t)
	return f, New(f.Deps), f.Actor("alice", ledger.RoleUser)
}

func create(t *testing.T, svc Service, actor ledger.Actor, userID uuid.UUID, name string, def bool) ledger.Wallet {
	t.Helper()
	w, err := svc.Create(context.Background(), actor, CreateInput{UserID: userID, Currency: "USD", Name: name, IsDefault: def})
	require.NoError(t, err)
	return w
}

func defaults(t *testing.T, f *servicetest.Fixture, userID uuid.UUID) []uuid.UUID {
	t.Helper()
	ws, err := f.Store.ListWallets(context.Background(), userID)
	require.NoError(t, err)
	var out []uuid.UUID
	for _, w := range ws {
		if w.IsDefault {
			out = append(out, w.ID)
		}
	}
	return out
}

func TestCreate_FirstWalletIsDefault(t *testing.T) {
	_, svc, alice := setup(t)
	w := create(t, svc, alice, alice.ID, "  Main  ", false)
	assert.True(t, w.IsDefault)
	assert.Equal(t, "Main", w.Name)
	assert.Equal(t, ledger.CurrencyUSD, w.Currency)
}

func TestCreate_FifthSucceedsSixthFails(t *testing.T) {
	f, svc, alice := setup(t)
	for i := 0; i < ledger.MaxWalletsPerUser; i++ {
		create(t, svc, alice, alice.ID, "W", false)
	}
	_, err := svc.Create(context.Background(), alice, CreateInput{UserID: alice.ID, Currency: "VND", Name: "Sixth"})
	assert.ErrorIs(t, err, errs.ErrLimitExceeded)
	ws, _ := f.Store.ListWallets(context.Background(), alice.ID)
	assert.Len(t, ws, ledger.MaxWalletsPerUser)
}

func TestCreate_DefaultRequestMovesDefault(t *testing.T) {
	f, svc, alice := setup(t)
	create(t, svc, alice, alice.ID, "Main", false)
	w2 := create(t, svc, alice, alice.ID, "Travel", true)
	assert.Equal(t, []uuid.UUID{w2.ID}, defaults(t, f, alice.ID))
}

func TestCreate_Validation(t *testing.T) {
	_, svc, alice := setup(t)
	ctx := context.Background()
	for _, in := range []CreateInput{
		{UserID: alice.ID, Currency: "EUR", Name: "Euro"},
		{UserID: alice.ID, Currency: "USD", Name: "   "},
		{UserID: alice.ID, Currency: "USD", Name: strings.Repeat("x", 51)},
	} {
		_, err := svc.Create(ctx, alice, in)
		assert.ErrorIs(t, err, errs.ErrInvalid, "%+v", in)
	}
	_, err := svc.Create(ctx, alice, CreateInput{UserID: alice.ID, Currency: "usd", Name: strings.Repeat("x", 50)})
	assert.NoError(t, err)
}

func TestCreate_Authorization(t *testing.T) {
	f, svc, alice := setup(t)
	ctx := context.Background()
	bob := f.Actor("bob", ledger.RoleUser)
	admin := f.Actor("root", ledger.RoleAdmin)

	_, err := svc.Create(ctx, bob, CreateInput{UserID: alice.ID, Currency: "USD", Name: "x"})
	assert.ErrorIs(t, err, errs.ErrForbidden)
	_, err = svc.Create(ctx, ledger.Actor{}, CreateInput{UserID: alice.ID, Currency: "USD", Name: "x"})
	assert.ErrorIs(t, err, errs.ErrUnauthenticated)

	w := create(t, svc, admin, alice.ID, "Provisioned", false)
	assert.Equal(t, alice.ID, w.UserID)

	_, err = svc.Create(ctx, admin, CreateInput{UserID: uuid.New(), Currency: "USD", Name: "x"})
	assert.ErrorIs(t, err, errs.ErrNotFound)
}

func TestSetDefault_Idempotent(t *testing.T) {
	f, svc, alice := setup(t)
	ctx := context.Background()
	create(t, svc, alice, alice.ID, "Main", false)
	w2 := create(t, svc, alice, alice.ID, "Travel", false)

	require.NoError(t, svc.SetDefault(ctx, alice, alice.ID, w2.ID))
	require.NoError(t, svc.SetDefault(ctx, alice, alice.ID, w2.ID))
	assert.Equal(t, []uuid.UUID{w2.ID}, defaults(t, f, alice.ID))
}

func TestSetDefault_ForeignWallet(t *testing.T) {
	f, svc, alice := setup(t)
	bob := f.Actor("bob", ledger.RoleUser)
	bw := create(t, svc, bob, bob.ID, "Bob's", false)
	err := svc.SetDefault(context.Background(), alice, alice.ID, bw.ID)
	assert.ErrorIs(t, err, errs.ErrNotFound)
	err = svc.SetDefault(context.Background(), alice, alice.ID, uuid.New())
	assert.ErrorIs(t, err, errs.ErrNotFound)
}

func TestDelete_DefaultWithSiblings(t *testing.T) {
	f, svc, alice := setup(t)
	ctx := context.Background()
	w1 := create(t, svc, alice, alice.ID, "Main", false)
	create(t, svc, alice, alice.ID, "Travel", false)
	create(t, svc, alice, alice.ID, "Food", false)

	err := svc.Delete(ctx, alice, w1.ID)
	assert.ErrorIs(t, err, errs.ErrInvariantViolation)
	assert.Equal(t, []uuid.UUID{w1.ID}, defaults(t, f, alice.ID))
}

func TestDelete_OnlyWallet(t *testing.T) {
	f, svc, alice := setup(t)
	w := create(t, svc, alice, alice.ID, "Main", false)
	require.NoError(t, svc.Delete(context.Background(), alice, w.ID))
	ws, _ := f.Store.ListWallets(context.Background(), alice.ID)
	assert.Empty(t, ws)

	err := svc.Delete(context.Background(), alice, w.ID)
	assert.ErrorIs(t, err, errs.ErrNotFound)
}

func TestSetDefaultThenDeleteFormerDefault(t *testing.T) {
	f, svc, alice := setup(t)
	ctx := context.Background()
	w1 := create(t, svc, alice, alice.ID, "W1", false)
	w2 := create(t, svc, alice, alice.ID, "W2", false)
	require.True(t, w1.IsDefault)

	require.NoError(t, svc.SetDefault(ctx, alice, alice.ID, w2.ID))
	got1, _ := f.Store.GetWallet(ctx, w1.ID)
	got2, _ := f.Store.GetWallet(ctx, w2.ID)
	assert.False(t, got1.IsDefault)
	assert.True(t, got2.IsDefault)

	require.NoError(t, svc.Delete(ctx, alice, w1.ID))
	assert.Equal(t, []uuid.UUID{w2.ID}, defaults(t, f, alice.ID))
}

func TestRename(t *testing.T) {
	f, svc, alice := setup(t)
	ctx := context.Background()
	w := create(t, svc, alice, alice.ID, "Main", false)

	got, err := svc.Rename(ctx, alice, w.ID, " Daily ")
	require.NoError(t, err)
	assert.Equal(t, "Daily", got.Name)
	assert.True(t, got.IsDefault, "rename keeps the default flag")

	bob := f.Actor("bob", ledger.RoleUser)
	_, err = svc.Rename(ctx, bob, w.ID, "Mine")
	assert.ErrorIs(t, err, errs.ErrForbidden)
	_, err = svc.Rename(ctx, alice, uuid.New(), "x")
	assert.ErrorIs(t, err, errs.ErrNotFound)
	_, err = svc.Rename(ctx, alice, w.ID, "")
	assert.ErrorIs(t, err, errs.ErrInvalid)
}

// Any sequence of operations that respects the documented preconditions
// leaves exactly one default wallet whenever the user has wallets.
func TestSingleDefaultInvariant(t *testing.T) {
	f, svc, alice := setup(t)
	ctx := context.Background()
	rng := rand.New(rand.NewSource(7))

	for step := 0; step < 300; step++ {
		ws, err := svc.List(ctx, alice, alice.ID)
		require.NoError(t, err)
		switch op := rng.Intn(3); {
		case op == 0 || len(ws) == 0:
			_, err := svc.Create(ctx, alice, CreateInput{UserID: alice.ID, Currency: "PHP", Name: "w", IsDefault: rng.Intn(2) == 0})
			if len(ws) >= ledger.MaxWalletsPerUser {
				require.ErrorIs(t, err, errs.ErrLimitExceeded)
			} else {
				require.NoError(t, err)
			}
		case op == 1:
			target := ws[rng.Intn(len(ws))]
			require.NoError(t, svc.SetDefault(ctx, alice, alice.ID, target.ID))
		default:
			target := ws[rng.Intn(len(ws))]
			err := svc.Delete(ctx, alice, target.ID)
			if target.IsDefault && len(ws) > 1 {
				require.ErrorIs(t, err, errs.ErrInvariantViolation)
			} else {
				require.NoError(t, err)
			}
		}

		after, err := f.Store.ListWallets(ctx, alice.ID)
		require.NoError(t, err)
		if len(after) > 0 {
			require.Len(t, defaults(t, f, alice.ID), 1, "step %d", step)
		}
	}
}

func TestCreate_WriteFailureKeepsOldDefault(t *testing.T) {
	f, svc, alice := setup(t)
	w1 := create(t, svc, alice, alice.ID, "Main", false)

	faulty := New(f.Faulty(servicetest.FailCreateWallet))
	_, err := faulty.Create(context.Background(), alice, CreateInput{UserID: alice.ID, Currency: "USD", Name: "Travel", IsDefault: true})
	require.ErrorIs(t, err, errs.ErrStorage)

	assert.Equal(t, []uuid.UUID{w1.ID}, defaults(t, f, alice.ID))
	ws, err := f.Store.ListWallets(context.Background(), alice.ID)
	require.NoError(t, err)
	assert.Len(t, ws, 1)
}

func TestCreate_WaitingOnBusyStoreTimesOut(t *testing.T) {
	f, _, alice := setup(t)
	ctx := context.Background()
	held, err := f.Store.BeginTx(ctx)
	require.NoError(t, err)
	defer held.Rollback(ctx)

	d := f.Deps
	d.Timeout = 50 * time.Millisecond
	start := time.Now()
	_, err = New(d).Create(ctx, alice, CreateInput{UserID: alice.ID, Currency: "USD", Name: "Main"})
	require.ErrorIs(t, err, errs.ErrStorage)
	assert.Less(t, time.Since(start), time.Second)

	require.NoError(t, held.Rollback(ctx))
	ws, err := f.Store.ListWallets(ctx, alice.ID)
	require.NoError(t, err)
	assert.Empty(t, ws)
}
