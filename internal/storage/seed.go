package storage

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/supaspend/ledger/internal/errs"
	"github.com/supaspend/ledger/internal/ledger"
)

// EnsureSuperadmin returns the profile named username, creating it as a
// superadmin when absent. It bootstraps an empty store for development.
func EnsureSuperadmin(ctx context.Context, s Store, username string, now time.Time) (ledger.User, error) {
	var u ledger.User
	err := InTx(ctx, s, func(tx Tx) error {
		existing, err := tx.GetUserByUsername(ctx, username)
		if err == nil {
			u = existing
			return nil
		}
		if !errors.Is(err, errs.ErrNotFound) {
			return err
		}
		u = ledger.User{ID: uuid.New(), Username: username, Role: ledger.RoleSuperadmin, DisplayName: username, CreatedAt: now, UpdatedAt: now}
		return tx.CreateUser(ctx, u)
	})
	return u, err
}
