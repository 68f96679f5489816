package storage_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/supaspend/ledger/internal/ledger"
	"github.com/supaspend/ledger/internal/storage"
	"github.com/supaspend/ledger/internal/storage/memory"
)

func TestEnsureSuperadmin_Idempotent(t *testing.T) {
	s := memory.New()
	ctx := context.Background()
	now := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)

	first, err := storage.EnsureSuperadmin(ctx, s, "admin", now)
	require.NoError(t, err)
	assert.Equal(t, ledger.RoleSuperadmin, first.Role)

	again, err := storage.EnsureSuperadmin(ctx, s, "admin", now.Add(time.Hour))
	require.NoError(t, err)
	assert.Equal(t, first.ID, again.ID)

	users, err := s.ListUsers(ctx)
	require.NoError(t, err)
	assert.Len(t, users, 1)
}
