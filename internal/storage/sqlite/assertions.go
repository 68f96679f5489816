package sqlite

import "github.com/supaspend/ledger/internal/storage"

var (
	_ storage.Store        = (*Store)(nil)
	_ storage.Tx           = (*Tx)(nil)
	_ storage.ReadyChecker = (*Store)(nil)
)
