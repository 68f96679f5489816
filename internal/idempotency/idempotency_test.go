package idempotency

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func exercise(t *testing.T, s Store) {
	t.Helper()
	ctx := context.Background()
	key := uuid.NewString()

	_, ok, err := s.Get(ctx, key)
	require.NoError(t, err)
	assert.False(t, ok)

	rec := Record{BodyHash: HashBytes([]byte(`{"amount":"10"}`)), Status: 201, Payload: []byte(`{"new_balance":"10.00"}`)}
	require.NoError(t, s.Put(ctx, key, rec))
	got, ok, err := s.Get(ctx, key)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, rec, got)
}

func TestMemory(t *testing.T) {
	exercise(t, NewMemory(0))
}

func TestMemory_Expires(t *testing.T) {
	m := NewMemory(time.Minute)
	now := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)
	m.now = func() time.Time { return now }
	ctx := context.Background()
	require.NoError(t, m.Put(ctx, "k", Record{Status: 200}))

	now = now.Add(59 * time.Second)
	_, ok, _ := m.Get(ctx, "k")
	assert.True(t, ok)
	now = now.Add(time.Second)
	_, ok, _ = m.Get(ctx, "k")
	assert.False(t, ok)
}

func TestHashBytes(t *testing.T) {
	assert.Equal(t, HashBytes([]byte("a")), HashBytes([]byte("a")))
	assert.NotEqual(t, HashBytes([]byte("a")), HashBytes([]byte("b")))
	assert.Len(t, HashBytes(nil), 64)
}

func TestRedis(t *testing.T) {
	addr := os.Getenv("TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("TEST_REDIS_ADDR not set; skipping Redis idempotency tests")
	}
	rdb := redis.NewClient(&redis.Options{Addr: addr})
	t.Cleanup(func() { _ = rdb.Close() })
	r := NewRedis(rdb, time.Minute)
	require.NoError(t, r.Ready(context.Background()))
	exercise(t, r)
}
