// Package servicetest builds service dependencies over the memory store for
// tests.
package servicetest

import (
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/supaspend/ledger/internal/ledger"
	"github.com/supaspend/ledger/internal/service"
	"github.com/supaspend/ledger/internal/storage/memory"
)

// Fixture holds a fresh store and a clock that advances one second per call,
// so created_at ordering is deterministic.
type Fixture struct {
	Store *memory.Store
	Deps  service.Deps

	mu  sync.Mutex
	now time.Time
}

func New(t *testing.T) *Fixture {
	t.Helper()
	f := &Fixture{Store: memory.New(), now: time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)}
	f.Deps = service.Deps{Store: f.Store, Now: f.tick}.Normalize()
	return f
}

func (f *Fixture) tick() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.now = f.now.Add(time.Second)
	return f.now
}

// Actor seeds a profile with role and returns it as an actor.
func (f *Fixture) Actor(name string, role ledger.Role) ledger.Actor {
	now := f.tick()
	u := ledger.User{ID: uuid.New(), Username: name, Role: role, DisplayName: strings.ToUpper(name[:1]) + name[1:], CreatedAt: now, UpdatedAt: now}
	f.Store.SeedUser(u)
	return u.Actor()
}
