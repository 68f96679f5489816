// Package idempotency remembers the response produced for an Idempotency-Key
// so retried fund and withdraw requests are answered without posting twice.
package idempotency

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"sync"
	"time"
)

// DefaultTTL is how long a stored response stays replayable.
const DefaultTTL = 24 * time.Hour

// Record is a stored response keyed by the client's Idempotency-Key.
type Record struct {
	BodyHash string `json:"body_hash"`
	Status   int    `json:"status"`
	Payload  []byte `json:"payload"`
}

// Store persists records. Get reports false when the key is unknown or expired.
type Store interface {
	Get(ctx context.Context, key string) (Record, bool, error)
	Put(ctx context.Context, key string, rec Record) error
}

// HashBytes returns the hex sha256 of b, used to detect a key reused with a
// different request body.
func HashBytes(b []byte) string {
	h := sha256.Sum256(b)
	return hex.EncodeToString(h[:])
}

// Memory is a process-local Store.
type Memory struct {
	mu   sync.Mutex
	ttl  time.Duration
	now  func() time.Time
	recs map[string]memRecord
}

type memRecord struct {
	Record
	expires time.Time
}

func NewMemory(ttl time.Duration) *Memory {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Memory{ttl: ttl, now: time.Now, recs: make(map[string]memRecord)}
}

func (m *Memory) Get(_ context.Context, key string) (Record, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.recs[key]
	if !ok {
		return Record{}, false, nil
	}
	if !m.now().Before(r.expires) {
		delete(m.recs, key)
		return Record{}, false, nil
	}
	return r.Record, true, nil
}

func (m *Memory) Put(_ context.Context, key string, rec Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec.Payload = append([]byte(nil), rec.Payload...)
	m.recs[key] = memRecord{Record: rec, expires: m.now().Add(m.ttl)}
	return nil
}
