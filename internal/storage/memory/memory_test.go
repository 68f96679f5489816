package memory

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/supaspend/ledger/internal/ledger"
	"github.com/supaspend/ledger/internal/storage"
	"github.com/supaspend/ledger/internal/storage/storetest"
)

func TestConformance(t *testing.T) {
	storetest.Run(t, func(t *testing.T) storage.Store { return New() })
}

func TestTxIsolatedUntilCommit(t *testing.T) {
	ctx := context.Background()
	s := New()
	u := ledger.User{ID: uuid.New(), Username: "alice", Role: ledger.RoleUser}
	s.SeedUser(u)

	tx, err := s.BeginTx(ctx)
	require.NoError(t, err)
	w := ledger.Wallet{ID: uuid.New(), UserID: u.ID, Currency: ledger.CurrencyUSD, Name: "Main", IsDefault: true}
	require.NoError(t, tx.CreateWallet(ctx, w))

	_, err = s.GetWallet(ctx, w.ID)
	assert.Error(t, err, "committed state must not see staged writes")

	require.NoError(t, tx.Commit(ctx))
	require.NoError(t, tx.Rollback(ctx), "rollback after commit is a no-op")

	got, err := s.GetWallet(ctx, w.ID)
	require.NoError(t, err)
	assert.Equal(t, "Main", got.Name)
}

func TestBeginTxHonoursCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := New().BeginTx(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestBeginTxGivesUpWhileAnotherTxIsOpen(t *testing.T) {
	s := New()
	held, err := s.BeginTx(context.Background())
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()
	_, err = s.BeginTx(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	require.NoError(t, held.Rollback(context.Background()))
	next, err := s.BeginTx(context.Background())
	require.NoError(t, err, "the slot is free again after rollback")
	require.NoError(t, next.Commit(context.Background()))
}
