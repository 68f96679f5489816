// Package balance derives wallet balances from the ledger. Nothing is cached:
// every call re-sums the wallet's full history.
package balance

import (
	"context"

	"github.com/google/uuid"
	"github.com/govalues/money"

	"github.com/supaspend/ledger/internal/authz"
	"github.com/supaspend/ledger/internal/errs"
	"github.com/supaspend/ledger/internal/ledger"
	"github.com/supaspend/ledger/internal/service"
)

// Repo defines read operations needed by the calculator. Both the store and a
// storage.Tx satisfy it.
type Repo interface {
	GetWallet(ctx context.Context, id uuid.UUID) (ledger.Wallet, error)
	ListWallets(ctx context.Context, userID uuid.UUID) ([]ledger.Wallet, error)
	SumCreditsDebits(ctx context.Context, walletID uuid.UUID) (ledger.Totals, error)
}

// WalletBalance is a wallet with its derived balance.
type WalletBalance struct {
	Wallet  ledger.Wallet
	Balance money.Amount
	State   ledger.BalanceState
}

// Service exposes balance reads gated by ownership.
type Service interface {
	Balance(ctx context.Context, actor ledger.Actor, walletID uuid.UUID) (money.Amount, error)
	WalletBalances(ctx context.Context, actor ledger.Actor, userID uuid.UUID) ([]WalletBalance, error)
}

type svc struct {
	d service.Deps
}

func New(d service.Deps) Service { return &svc{d: d.Normalize()} }

// Compute returns credits minus debits for walletID. It performs no
// authorization and is shared by the writers that snapshot balances.
func Compute(ctx context.Context, r Repo, walletID uuid.UUID) (money.Amount, error) {
	totals, err := r.SumCreditsDebits(ctx, walletID)
	if err != nil {
		return money.Amount{}, err
	}
	return totals.Balance()
}

// ForUser returns all of a user's wallets with balances, without authorization.
func ForUser(ctx context.Context, r Repo, userID uuid.UUID) ([]WalletBalance, error) {
	wallets, err := r.ListWallets(ctx, userID)
	if err != nil {
		return nil, err
	}
	out := make([]WalletBalance, 0, len(wallets))
	for _, w := range wallets {
		bal, err := Compute(ctx, r, w.ID)
		if err != nil {
			return nil, err
		}
		out = append(out, WalletBalance{Wallet: w, Balance: bal, State: ledger.StateOf(bal)})
	}
	return out, nil
}

func (s *svc) Balance(ctx context.Context, actor ledger.Actor, walletID uuid.UUID) (money.Amount, error) {
	if err := authz.Authenticated(actor); err != nil {
		return money.Amount{}, err
	}
	ctx, cancel := s.d.Bound(ctx)
	defer cancel()
	w, err := s.d.Store.GetWallet(ctx, walletID)
	if err != nil {
		return money.Amount{}, errs.FromStore(err)
	}
	if err := authz.RequireSelfOrAdmin(actor, w.UserID); err != nil {
		return money.Amount{}, err
	}
	bal, err := Compute(ctx, s.d.Store, walletID)
	return bal, errs.FromStore(err)
}

func (s *svc) WalletBalances(ctx context.Context, actor ledger.Actor, userID uuid.UUID) ([]WalletBalance, error) {
	if err := authz.RequireSelfOrAdmin(actor, userID); err != nil {
		return nil, err
	}
	ctx, cancel := s.d.Bound(ctx)
	defer cancel()
	out, err := ForUser(ctx, s.d.Store, userID)
	return out, errs.FromStore(err)
}
