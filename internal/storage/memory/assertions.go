package memory

import "github.com/supaspend/ledger/internal/storage"

// Compile-time interface assertions documenting which interfaces Store satisfies.
var (
	_ storage.Store = (*Store)(nil)
	_ storage.Tx    = (*Tx)(nil)
)
