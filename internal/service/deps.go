// Package service holds what the domain services share: the store handle,
// the store call timeout, the clock and the logger.
package service

import (
	"context"
	"io"
	"log/slog"
	"time"

	"github.com/supaspend/ledger/internal/errs"
	"github.com/supaspend/ledger/internal/storage"
)

// DefaultTimeout bounds every store round trip when Deps.Timeout is zero.
const DefaultTimeout = 5 * time.Second

// Deps is passed to every service constructor.
type Deps struct {
	Store   storage.Store
	Log     *slog.Logger
	Timeout time.Duration
	Now     func() time.Time
}

// Normalize fills zero fields with defaults.
func (d Deps) Normalize() Deps {
	if d.Log == nil {
		d.Log = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if d.Timeout <= 0 {
		d.Timeout = DefaultTimeout
	}
	if d.Now == nil {
		d.Now = func() time.Time { return time.Now().UTC() }
	}
	return d
}

// Bound derives a context that expires after the store timeout.
func (d Deps) Bound(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, d.Timeout)
}

// InTx runs fn in one store transaction under the store timeout and maps
// adapter failures onto errs.ErrStorage.
func (d Deps) InTx(ctx context.Context, fn func(ctx context.Context, tx storage.Tx) error) error {
	ctx, cancel := d.Bound(ctx)
	defer cancel()
	err := storage.InTx(ctx, d.Store, func(tx storage.Tx) error { return fn(ctx, tx) })
	return errs.FromStore(err)
}
