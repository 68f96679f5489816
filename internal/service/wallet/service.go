// Package wallet implements the wallet invariants: at most five wallets per
// user, exactly one default once any wallet exists, and no deleting the
// default wallet while siblings remain.
package wallet

import (
	"context"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/supaspend/ledger/internal/authz"
	"github.com/supaspend/ledger/internal/errs"
	"github.com/supaspend/ledger/internal/ledger"
	"github.com/supaspend/ledger/internal/metrics"
	"github.com/supaspend/ledger/internal/service"
	"github.com/supaspend/ledger/internal/storage"
)

// CreateInput describes a new wallet.
type CreateInput struct {
	UserID    uuid.UUID
	Currency  string
	Name      string
	IsDefault bool
}

type Service interface {
	Create(ctx context.Context, actor ledger.Actor, in CreateInput) (ledger.Wallet, error)
	SetDefault(ctx context.Context, actor ledger.Actor, userID, walletID uuid.UUID) error
	Delete(ctx context.Context, actor ledger.Actor, walletID uuid.UUID) error
	Rename(ctx context.Context, actor ledger.Actor, walletID uuid.UUID, name string) (ledger.Wallet, error)
	List(ctx context.Context, actor ledger.Actor, userID uuid.UUID) ([]ledger.Wallet, error)
}

type svc struct {
	d service.Deps
}

func New(d service.Deps) Service { return &svc{d: d.Normalize()} }

// ValidateName trims name and checks the 1..50 character bound.
func ValidateName(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", errs.Wrap(errs.ErrInvalid, "name is required")
	}
	if utf8.RuneCountInString(name) > ledger.MaxWalletNameLen {
		return "", errs.Wrap(errs.ErrInvalid, "name must be at most 50 characters")
	}
	return name, nil
}

// Create adds a wallet. The user's first wallet is always the default. Asking
// for default on a later wallet clears the previous default in the same
// transaction, so a user never ends up with two.
func (s *svc) Create(ctx context.Context, actor ledger.Actor, in CreateInput) (w ledger.Wallet, err error) {
	defer func() { metrics.Operation("create_wallet", err) }()
	if err := authz.RequireSelfOrAdmin(actor, in.UserID); err != nil {
		return ledger.Wallet{}, err
	}
	curr, ok := ledger.ParseCurrency(in.Currency)
	if !ok {
		return ledger.Wallet{}, errs.Wrap(errs.ErrInvalid, "currency must be one of USD, VND, IDR, PHP")
	}
	name, err := ValidateName(in.Name)
	if err != nil {
		return ledger.Wallet{}, err
	}
	now := s.d.Now()
	w = ledger.Wallet{ID: uuid.New(), UserID: in.UserID, Currency: curr, Name: name, IsDefault: in.IsDefault, CreatedAt: now, UpdatedAt: now}
	err = s.d.InTx(ctx, func(ctx context.Context, tx storage.Tx) error {
		if _, err := tx.GetUser(ctx, in.UserID); err != nil {
			return err
		}
		if err := tx.LockUser(ctx, in.UserID); err != nil {
			return err
		}
		existing, err := tx.ListWallets(ctx, in.UserID)
		if err != nil {
			return err
		}
		if len(existing) >= ledger.MaxWalletsPerUser {
			return errs.Wrap(errs.ErrLimitExceeded, "a user may hold at most 5 wallets")
		}
		if len(existing) == 0 {
			w.IsDefault = true
		} else if w.IsDefault {
			if err := tx.ClearDefaultWallets(ctx, in.UserID); err != nil {
				return err
			}
		}
		return tx.CreateWallet(ctx, w)
	})
	if err != nil {
		return ledger.Wallet{}, err
	}
	s.d.Log.Info("wallet created", "wallet_id", w.ID, "user_id", w.UserID, "currency", w.Currency, "is_default", w.IsDefault)
	return w, nil
}

// SetDefault clears every default flag of the user and sets it on walletID.
// Running it again with the same arguments leaves the same single default.
func (s *svc) SetDefault(ctx context.Context, actor ledger.Actor, userID, walletID uuid.UUID) (err error) {
	defer func() { metrics.Operation("set_default_wallet", err) }()
	if err := authz.RequireSelfOrAdmin(actor, userID); err != nil {
		return err
	}
	return s.d.InTx(ctx, func(ctx context.Context, tx storage.Tx) error {
		if err := tx.LockUser(ctx, userID); err != nil {
			return err
		}
		w, err := tx.GetWallet(ctx, walletID)
		if err != nil {
			return err
		}
		if w.UserID != userID {
			return errs.Wrap(errs.ErrNotFound, "wallet does not belong to user")
		}
		if err := tx.ClearDefaultWallets(ctx, userID); err != nil {
			return err
		}
		w.IsDefault = true
		w.UpdatedAt = s.d.Now()
		return tx.UpdateWallet(ctx, w)
	})
}

// Delete removes a wallet. The default wallet may only go when it is the
// user's last one. Remaining wallets keep their flags.
func (s *svc) Delete(ctx context.Context, actor ledger.Actor, walletID uuid.UUID) (err error) {
	defer func() { metrics.Operation("delete_wallet", err) }()
	if err := authz.Authenticated(actor); err != nil {
		return err
	}
	err = s.d.InTx(ctx, func(ctx context.Context, tx storage.Tx) error {
		w, err := tx.GetWallet(ctx, walletID)
		if err != nil {
			return err
		}
		if err := authz.RequireSelfOrAdmin(actor, w.UserID); err != nil {
			return err
		}
		if err := tx.LockUser(ctx, w.UserID); err != nil {
			return err
		}
		// Re-read under the lock: the flag may have moved since the first read.
		if w, err = tx.GetWallet(ctx, walletID); err != nil {
			return err
		}
		if w.IsDefault {
			all, err := tx.ListWallets(ctx, w.UserID)
			if err != nil {
				return err
			}
			if len(all) > 1 {
				return errs.Wrap(errs.ErrInvariantViolation, "cannot delete default wallet while other wallets exist")
			}
		}
		return tx.DeleteWallet(ctx, walletID)
	})
	if err == nil {
		s.d.Log.Info("wallet deleted", "wallet_id", walletID, "actor_id", actor.ID)
	}
	return err
}

func (s *svc) Rename(ctx context.Context, actor ledger.Actor, walletID uuid.UUID, name string) (ledger.Wallet, error) {
	if err := authz.Authenticated(actor); err != nil {
		return ledger.Wallet{}, err
	}
	name, err := ValidateName(name)
	if err != nil {
		return ledger.Wallet{}, err
	}
	var out ledger.Wallet
	err = s.d.InTx(ctx, func(ctx context.Context, tx storage.Tx) error {
		w, err := tx.GetWallet(ctx, walletID)
		if err != nil {
			return err
		}
		if err := authz.RequireSelfOrAdmin(actor, w.UserID); err != nil {
			return err
		}
		w.Name = name
		w.UpdatedAt = s.d.Now()
		if err := tx.UpdateWallet(ctx, w); err != nil {
			return err
		}
		out = w
		return nil
	})
	metrics.Operation("update_wallet", err)
	return out, err
}

func (s *svc) List(ctx context.Context, actor ledger.Actor, userID uuid.UUID) ([]ledger.Wallet, error) {
	if err := authz.RequireSelfOrAdmin(actor, userID); err != nil {
		return nil, err
	}
	ctx, cancel := s.d.Bound(ctx)
	defer cancel()
	out, err := s.d.Store.ListWallets(ctx, userID)
	return out, errs.FromStore(err)
}
