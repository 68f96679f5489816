// Package user provisions and removes profiles and serves the admin overview
// of every user with wallet balances.
package user

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
	"github.com/supaspend/ledger/internal/service/balance"
	"github.com/supaspend/ledger/internal/storage"
)

const MaxUsernameLen = 50

type CreateInput struct {
	Username    string
	Role        ledger.Role
	DisplayName string
	AvatarURL   string
}

// Overview is one row of the admin user listing.
type Overview struct {
	User    ledger.User
	Wallets []balance.WalletBalance
}

type Service interface {
	// Resolve maps an authenticated identity to its role-bearing actor.
	Resolve(ctx context.Context, id uuid.UUID) (ledger.Actor, error)
	Get(ctx context.Context, actor ledger.Actor, id uuid.UUID) (ledger.User, error)
	Create(ctx context.Context, actor ledger.Actor, in CreateInput) (ledger.User, error)
	Delete(ctx context.Context, actor ledger.Actor, id uuid.UUID) error
	ListWithBalances(ctx context.Context, actor ledger.Actor) ([]Overview, error)
}

type svc struct {
	d service.Deps
}

func New(d service.Deps) Service { return &svc{d: d.Normalize()} }

func (s *svc) Resolve(ctx context.Context, id uuid.UUID) (ledger.Actor, error) {
	if id == uuid.Nil {
		return ledger.Actor{}, errs.ErrUnauthenticated
	}
	ctx, cancel := s.d.Bound(ctx)
	defer cancel()
	u, err := s.d.Store.GetUser(ctx, id)
	if err != nil {
		if errs.Code(err) == errs.ErrNotFound.Error() {
			return ledger.Actor{}, errs.Wrap(errs.ErrUnauthenticated, "unknown profile")
		}
		return ledger.Actor{}, errs.FromStore(err)
	}
	return u.Actor(), nil
}

func (s *svc) Get(ctx context.Context, actor ledger.Actor, id uuid.UUID) (ledger.User, error) {
	if err := authz.RequireSelfOrAdmin(actor, id); err != nil {
		return ledger.User{}, err
	}
	ctx, cancel := s.d.Bound(ctx)
	defer cancel()
	u, err := s.d.Store.GetUser(ctx, id)
	return u, errs.FromStore(err)
}

// Create provisions a profile. The actor may not grant a role above its own.
func (s *svc) Create(ctx context.Context, actor ledger.Actor, in CreateInput) (u ledger.User, err error) {
	defer func() { metrics.Operation("create_user", err) }()
	if err := authz.RequireRole(actor, ledger.RoleAdmin); err != nil {
		return ledger.User{}, err
	}
	if in.Role == "" {
		in.Role = ledger.RoleUser
	}
	if !in.Role.Valid() {
		return ledger.User{}, errs.Wrap(errs.ErrInvalid, "unknown role "+string(in.Role))
	}
	if !authz.CanGrant(actor, in.Role) {
		return ledger.User{}, errs.Wrap(errs.ErrForbidden, "cannot grant role "+string(in.Role))
	}
	name := strings.TrimSpace(in.Username)
	if name == "" {
		return ledger.User{}, errs.Wrap(errs.ErrInvalid, "username is required")
	}
	if utf8.RuneCountInString(name) > MaxUsernameLen {
		return ledger.User{}, errs.Wrap(errs.ErrInvalid, "username too long")
	}
	now := s.d.Now()
	creator := actor.ID
	u = ledger.User{
		ID:          uuid.New(),
		Username:    name,
		Role:        in.Role,
		CreatedBy:   &creator,
		DisplayName: strings.TrimSpace(in.DisplayName),
		AvatarURL:   strings.TrimSpace(in.AvatarURL),
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if u.DisplayName == "" {
		u.DisplayName = name
	}
	err = s.d.InTx(ctx, func(ctx context.Context, tx storage.Tx) error {
		_, err := tx.GetUserByUsername(ctx, name)
		switch {
		case err == nil:
			return errs.Wrap(errs.ErrInvariantViolation, "username already taken")
		case errs.Code(err) != errs.ErrNotFound.Error():
			return err
		}
		return tx.CreateUser(ctx, u)
	})
	if err != nil {
		return ledger.User{}, err
	}
	s.d.Log.Info("user created", "user_id", u.ID, "role", u.Role, "created_by", actor.ID)
	return u, nil
}

// Delete removes a user with everything they own. Superadmin only, never self.
func (s *svc) Delete(ctx context.Context, actor ledger.Actor, id uuid.UUID) (err error) {
	defer func() { metrics.Operation("delete_user", err) }()
	if err := authz.RequireRole(actor, ledger.RoleSuperadmin); err != nil {
		return err
	}
	if actor.ID == id {
		return errs.Wrap(errs.ErrInvariantViolation, "cannot delete own account")
	}
	err = s.d.InTx(ctx, func(ctx context.Context, tx storage.Tx) error {
		if err := tx.LockUser(ctx, id); err != nil {
			return err
		}
		return tx.DeleteUser(ctx, id)
	})
	if err == nil {
		s.d.Log.Warn("user deleted", "user_id", id, "actor_id", actor.ID)
	}
	return err
}

func (s *svc) ListWithBalances(ctx context.Context, actor ledger.Actor) ([]Overview, error) {
	if err := authz.RequireRole(actor, ledger.RoleAdmin); err != nil {
		return nil, err
	}
	ctx, cancel := s.d.Bound(ctx)
	defer cancel()
	users, err := s.d.Store.ListUsers(ctx)
	if err != nil {
		return nil, errs.FromStore(err)
	}
	out := make([]Overview, 0, len(users))
	for _, u := range users {
		wb, err := balance.ForUser(ctx, s.d.Store, u.ID)
		if err != nil {
			return nil, errs.FromStore(err)
		}
		out = append(out, Overview{User: u, Wallets: wb})
	}
	return out, nil
}
