package v1

import (
	"github.com/supaspend/ledger/internal/idempotency"
	"github.com/supaspend/ledger/internal/storage"
)

// Compile-time checks for the backends the server probes in readyz.
var (
	_ idempotency.Store    = (*idempotency.Memory)(nil)
	_ idempotency.Store    = (*idempotency.Redis)(nil)
	_ storage.ReadyChecker = (*idempotency.Redis)(nil)
)
