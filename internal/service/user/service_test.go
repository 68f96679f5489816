package user

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/supaspend/ledger/internal/errs"
	"github.com/supaspend/ledger/internal/ledger"
	"github.com/supaspend/ledger/internal/service/funding"
	"github.com/supaspend/ledger/internal/service/servicetest"
	"github.com/supaspend/ledger/internal/service/wallet"
)

func TestCreate(t *testing.T) {
	f := servicetest.New(t)
	svc := New(f.Deps)
	ctx := context.Background()
	admin := f.Actor("root", ledger.RoleAdmin)

	u, err := svc.Create(ctx, admin, CreateInput{Username: "  carol  "})
	require.NoError(t, err)
	assert.Equal(t, "carol", u.Username)
	assert.Equal(t, "carol", u.DisplayName)
	assert.Equal(t, ledger.RoleUser, u.Role)
	require.NotNil(t, u.CreatedBy)
	assert.Equal(t, admin.ID, *u.CreatedBy)

	_, err = svc.Create(ctx, admin, CreateInput{Username: "CAROL"})
	assert.ErrorIs(t, err, errs.ErrInvariantViolation)
	_, err = svc.Create(ctx, admin, CreateInput{Username: "   "})
	assert.ErrorIs(t, err, errs.ErrInvalid)
	_, err = svc.Create(ctx, admin, CreateInput{Username: "dan", Role: "owner"})
	assert.ErrorIs(t, err, errs.ErrInvalid)
	_, err = svc.Create(ctx, admin, CreateInput{Username: "dan", Role: ledger.RoleSuperadmin})
	assert.ErrorIs(t, err, errs.ErrForbidden, "cannot grant above own role")

	plain := f.Actor("eve", ledger.RoleUser)
	_, err = svc.Create(ctx, plain, CreateInput{Username: "mallory"})
	assert.ErrorIs(t, err, errs.ErrForbidden)
}

func TestDelete(t *testing.T) {
	f := servicetest.New(t)
	svc := New(f.Deps)
	ctx := context.Background()
	super := f.Actor("root", ledger.RoleSuperadmin)
	admin := f.Actor("ops", ledger.RoleAdmin)
	alice := f.Actor("alice", ledger.RoleUser)
	w, err := wallet.New(f.Deps).Create(ctx, alice, wallet.CreateInput{UserID: alice.ID, Currency: "IDR", Name: "Main"})
	require.NoError(t, err)

	assert.ErrorIs(t, svc.Delete(ctx, admin, alice.ID), errs.ErrForbidden)
	assert.ErrorIs(t, svc.Delete(ctx, super, super.ID), errs.ErrInvariantViolation)
	assert.ErrorIs(t, svc.Delete(ctx, super, uuid.New()), errs.ErrNotFound)

	require.NoError(t, svc.Delete(ctx, super, alice.ID))
	_, err = f.Store.GetWallet(ctx, w.ID)
	assert.ErrorIs(t, err, errs.ErrNotFound, "wallets go with the user")
	_, err = svc.Resolve(ctx, alice.ID)
	assert.ErrorIs(t, err, errs.ErrUnauthenticated)
}

func TestResolve(t *testing.T) {
	f := servicetest.New(t)
	svc := New(f.Deps)
	admin := f.Actor("root", ledger.RoleAdmin)

	a, err := svc.Resolve(context.Background(), admin.ID)
	require.NoError(t, err)
	assert.Equal(t, admin, a)

	_, err = svc.Resolve(context.Background(), uuid.Nil)
	assert.ErrorIs(t, err, errs.ErrUnauthenticated)
	_, err = svc.Resolve(context.Background(), uuid.New())
	assert.ErrorIs(t, err, errs.ErrUnauthenticated)
}

func TestListWithBalances(t *testing.T) {
	f := servicetest.New(t)
	svc := New(f.Deps)
	ctx := context.Background()
	admin := f.Actor("root", ledger.RoleAdmin)
	alice := f.Actor("alice", ledger.RoleUser)

	ws := wallet.New(f.Deps)
	w1, err := ws.Create(ctx, alice, wallet.CreateInput{UserID: alice.ID, Currency: "USD", Name: "Main"})
	require.NoError(t, err)
	_, err = ws.Create(ctx, alice, wallet.CreateInput{UserID: alice.ID, Currency: "VND", Name: "Trip"})
	require.NoError(t, err)
	_, err = funding.New(f.Deps).Withdraw(ctx, admin, funding.Request{WalletID: w1.ID, Amount: "1500"})
	require.NoError(t, err)

	out, err := svc.ListWithBalances(ctx, admin)
	require.NoError(t, err)
	require.Len(t, out, 2)
	assert.Equal(t, "root", out[0].User.Username)
	assert.Empty(t, out[0].Wallets)
	require.Len(t, out[1].Wallets, 2)
	assert.Equal(t, "-1500.00", ledger.FormatAmount(out[1].Wallets[0].Balance))
	assert.Equal(t, ledger.BalanceSignificantlyNegative, out[1].Wallets[0].State)
	assert.Equal(t, ledger.BalanceOK, out[1].Wallets[1].State)

	_, err = svc.ListWithBalances(ctx, alice)
	assert.ErrorIs(t, err, errs.ErrForbidden)
}
