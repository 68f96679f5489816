// Package memory provides a simple in-memory implementation used for development and tests.
// A transaction works on a private copy of the state and swaps it in on commit,
// so staged writes are all-or-nothing. Only one transaction runs at a time.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/supaspend/ledger/internal/errs"
	"github.com/supaspend/ledger/internal/ledger"
	"github.com/supaspend/ledger/internal/storage"
)

// Store is an in-memory implementation of storage.Store.
// Reads take an RLock on the committed state; writers hold the single wsem slot.
type Store struct {
	mu    sync.RWMutex
	wsem  chan struct{}
	state *state
}

// New constructs an empty in-memory store.
func New() *Store { return &Store{state: newState(), wsem: make(chan struct{}, 1)} }

type state struct {
	users    map[uuid.UUID]ledger.User
	wallets  map[uuid.UUID]ledger.Wallet
	expenses map[uuid.UUID]ledger.Expense
	// Append-only, in commit order.
	txs   []ledger.FundTransaction
	edits []ledger.ExpenseEdit
}

func newState() *state {
	return &state{
		users:    make(map[uuid.UUID]ledger.User),
		wallets:  make(map[uuid.UUID]ledger.Wallet),
		expenses: make(map[uuid.UUID]ledger.Expense),
	}
}

func (st *state) clone() *state {
	out := &state{
		users:    make(map[uuid.UUID]ledger.User, len(st.users)),
		wallets:  make(map[uuid.UUID]ledger.Wallet, len(st.wallets)),
		expenses: make(map[uuid.UUID]ledger.Expense, len(st.expenses)),
		txs:      append([]ledger.FundTransaction(nil), st.txs...),
		edits:    append([]ledger.ExpenseEdit(nil), st.edits...),
	}
	for k, v := range st.users {
		out.users[k] = v
	}
	for k, v := range st.wallets {
		out.wallets[k] = v
	}
	for k, v := range st.expenses {
		out.expenses[k] = v
	}
	return out
}

// Seed helpers for local dev/tests.
func (s *Store) SeedUser(u ledger.User) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.users[u.ID] = u
}

func (s *Store) SeedWallet(w ledger.Wallet) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.wallets[w.ID] = w
}

// BeginTx implements storage.Store. It waits for the open transaction, if any,
// to finish and gives up with ctx.Err() when ctx is done first.
func (s *Store) BeginTx(ctx context.Context) (storage.Tx, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	select {
	case s.wsem <- struct{}{}:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	s.mu.RLock()
	working := s.state.clone()
	s.mu.RUnlock()
	return &Tx{state: working, store: s}, nil
}

// Tx is a memory transaction. Its reads see its own staged writes.
type Tx struct {
	*state
	store *Store
	done  bool
}

// Commit publishes the staged state.
func (t *Tx) Commit(_ context.Context) error {
	if t.done {
		return errs.Wrap(errs.ErrStorage, "transaction already closed")
	}
	t.store.mu.Lock()
	t.store.state = t.state
	t.store.mu.Unlock()
	t.done = true
	<-t.store.wsem
	return nil
}

// Rollback discards the staged state.
func (t *Tx) Rollback(_ context.Context) error {
	if t.done {
		return nil
	}
	t.done = true
	<-t.store.wsem
	return nil
}

// --- Store reads (committed state) ---

func (s *Store) GetUser(ctx context.Context, id uuid.UUID) (ledger.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.GetUser(ctx, id)
}

func (s *Store) GetUserByUsername(ctx context.Context, username string) (ledger.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.GetUserByUsername(ctx, username)
}

func (s *Store) ListUsers(ctx context.Context) ([]ledger.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.ListUsers(ctx)
}

func (s *Store) GetWallet(ctx context.Context, id uuid.UUID) (ledger.Wallet, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.GetWallet(ctx, id)
}

func (s *Store) ListWallets(ctx context.Context, userID uuid.UUID) ([]ledger.Wallet, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.ListWallets(ctx, userID)
}

func (s *Store) ListTransactions(ctx context.Context, walletID uuid.UUID, limit int) ([]ledger.FundTransaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.ListTransactions(ctx, walletID, limit)
}

func (s *Store) ListUserTransactions(ctx context.Context, userID uuid.UUID, limit int) ([]ledger.FundTransaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.ListUserTransactions(ctx, userID, limit)
}

func (s *Store) SumCreditsDebits(ctx context.Context, walletID uuid.UUID) (ledger.Totals, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.SumCreditsDebits(ctx, walletID)
}

func (s *Store) GetExpense(ctx context.Context, id uuid.UUID) (ledger.Expense, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.GetExpense(ctx, id)
}

func (s *Store) ListExpenses(ctx context.Context, userID uuid.UUID) ([]ledger.Expense, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.ListExpenses(ctx, userID)
}

func (s *Store) ListEditHistory(ctx context.Context, expenseID uuid.UUID) ([]ledger.ExpenseEdit, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.ListEditHistory(ctx, expenseID)
}

// --- state reads ---

func (st *state) GetUser(_ context.Context, id uuid.UUID) (ledger.User, error) {
	u, ok := st.users[id]
	if !ok {
		return ledger.User{}, errs.ErrNotFound
	}
	return u, nil
}

func (st *state) GetUserByUsername(_ context.Context, username string) (ledger.User, error) {
	for _, u := range st.users {
		if strings.EqualFold(u.Username, username) {
			return u, nil
		}
	}
	return ledger.User{}, errs.ErrNotFound
}

func (st *state) ListUsers(_ context.Context) ([]ledger.User, error) {
	out := make([]ledger.User, 0, len(st.users))
	for _, u := range st.users {
		out = append(out, u)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].Username < out[j].Username
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

func (st *state) GetWallet(_ context.Context, id uuid.UUID) (ledger.Wallet, error) {
	w, ok := st.wallets[id]
	if !ok {
		return ledger.Wallet{}, errs.ErrNotFound
	}
	return w, nil
}

func (st *state) ListWallets(_ context.Context, userID uuid.UUID) ([]ledger.Wallet, error) {
	out := make([]ledger.Wallet, 0)
	for _, w := range st.wallets {
		if w.UserID == userID {
			out = append(out, w)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID.String() < out[j].ID.String()
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

func (st *state) ListTransactions(_ context.Context, walletID uuid.UUID, limit int) ([]ledger.FundTransaction, error) {
	return st.newestFirst(func(tx ledger.FundTransaction) bool { return tx.WalletID == walletID }, limit), nil
}

func (st *state) ListUserTransactions(_ context.Context, userID uuid.UUID, limit int) ([]ledger.FundTransaction, error) {
	return st.newestFirst(func(tx ledger.FundTransaction) bool {
		w, ok := st.wallets[tx.WalletID]
		return ok && w.UserID == userID
	}, limit), nil
}

func (st *state) newestFirst(keep func(ledger.FundTransaction) bool, limit int) []ledger.FundTransaction {
	out := make([]ledger.FundTransaction, 0)
	for i := len(st.txs) - 1; i >= 0; i-- {
		if !keep(st.txs[i]) {
			continue
		}
		out = append(out, st.txs[i])
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out
}

func (st *state) SumCreditsDebits(_ context.Context, walletID uuid.UUID) (ledger.Totals, error) {
	w, ok := st.wallets[walletID]
	if !ok {
		return ledger.Totals{}, errs.ErrNotFound
	}
	rows := make([]ledger.FundTransaction, 0)
	for _, tx := range st.txs {
		if tx.WalletID == walletID {
			rows = append(rows, tx)
		}
	}
	return ledger.Tally(w.Currency, rows)
}

func (st *state) GetExpense(_ context.Context, id uuid.UUID) (ledger.Expense, error) {
	e, ok := st.expenses[id]
	if !ok {
		return ledger.Expense{}, errs.ErrNotFound
	}
	return e, nil
}

func (st *state) ListExpenses(_ context.Context, userID uuid.UUID) ([]ledger.Expense, error) {
	out := make([]ledger.Expense, 0)
	for _, e := range st.expenses {
		if e.UserID == userID {
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Date.Equal(out[j].Date) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].Date.After(out[j].Date)
	})
	return out, nil
}

func (st *state) ListEditHistory(_ context.Context, expenseID uuid.UUID) ([]ledger.ExpenseEdit, error) {
	out := make([]ledger.ExpenseEdit, 0)
	for _, h := range st.edits {
		if h.ExpenseID == expenseID {
			out = append(out, h)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

// --- state writes (only reachable through Tx) ---

// LockUser is a no-op: a memory transaction already excludes all other writers.
func (st *state) LockUser(_ context.Context, _ uuid.UUID) error { return nil }

// LockWallet is a no-op for the same reason as LockUser.
func (st *state) LockWallet(_ context.Context, _ uuid.UUID) error { return nil }

func (st *state) CreateUser(_ context.Context, u ledger.User) error {
	for _, other := range st.users {
		if strings.EqualFold(other.Username, u.Username) {
			return errs.Wrap(errs.ErrInvariantViolation, "username already taken")
		}
	}
	st.users[u.ID] = u
	return nil
}

func (st *state) DeleteUser(_ context.Context, id uuid.UUID) error {
	if _, ok := st.users[id]; !ok {
		return errs.ErrNotFound
	}
	delete(st.users, id)
	for wid, w := range st.wallets {
		if w.UserID == id {
			st.dropWallet(wid)
		}
	}
	for eid, e := range st.expenses {
		if e.UserID == id {
			st.dropExpense(eid)
		}
	}
	return nil
}

func (st *state) CreateWallet(_ context.Context, w ledger.Wallet) error {
	if _, ok := st.users[w.UserID]; !ok {
		return errs.Wrap(errs.ErrNotFound, "user")
	}
	st.wallets[w.ID] = w
	return nil
}

func (st *state) UpdateWallet(_ context.Context, w ledger.Wallet) error {
	cur, ok := st.wallets[w.ID]
	if !ok {
		return errs.ErrNotFound
	}
	cur.Name = w.Name
	cur.IsDefault = w.IsDefault
	cur.UpdatedAt = w.UpdatedAt
	st.wallets[w.ID] = cur
	return nil
}

func (st *state) DeleteWallet(_ context.Context, id uuid.UUID) error {
	if _, ok := st.wallets[id]; !ok {
		return errs.ErrNotFound
	}
	st.dropWallet(id)
	return nil
}

func (st *state) ClearDefaultWallets(_ context.Context, userID uuid.UUID) error {
	for id, w := range st.wallets {
		if w.UserID == userID && w.IsDefault {
			w.IsDefault = false
			st.wallets[id] = w
		}
	}
	return nil
}

func (st *state) AppendTransaction(_ context.Context, tx ledger.FundTransaction) error {
	if _, ok := st.wallets[tx.WalletID]; !ok {
		return errs.Wrap(errs.ErrNotFound, "wallet")
	}
	st.txs = append(st.txs, tx)
	return nil
}

func (st *state) CreateExpense(_ context.Context, e ledger.Expense) error {
	if _, ok := st.wallets[e.WalletID]; !ok {
		return errs.Wrap(errs.ErrNotFound, "wallet")
	}
	st.expenses[e.ID] = e
	return nil
}

func (st *state) UpdateExpense(_ context.Context, e ledger.Expense) error {
	if _, ok := st.expenses[e.ID]; !ok {
		return errs.ErrNotFound
	}
	st.expenses[e.ID] = e
	return nil
}

func (st *state) DeleteExpense(_ context.Context, id uuid.UUID) error {
	if _, ok := st.expenses[id]; !ok {
		return errs.ErrNotFound
	}
	st.dropExpense(id)
	return nil
}

func (st *state) AppendEditHistory(_ context.Context, h ledger.ExpenseEdit) error {
	if _, ok := st.expenses[h.ExpenseID]; !ok {
		return errs.Wrap(errs.ErrNotFound, "expense")
	}
	st.edits = append(st.edits, h)
	return nil
}

// dropWallet removes a wallet with its ledger rows and expenses.
func (st *state) dropWallet(id uuid.UUID) {
	delete(st.wallets, id)
	kept := st.txs[:0:0]
	for _, tx := range st.txs {
		if tx.WalletID != id {
			kept = append(kept, tx)
		}
	}
	st.txs = kept
	for eid, e := range st.expenses {
		if e.WalletID == id {
			st.dropExpense(eid)
		}
	}
}

// dropExpense removes an expense and its history and unlinks its ledger rows.
func (st *state) dropExpense(id uuid.UUID) {
	delete(st.expenses, id)
	kept := st.edits[:0:0]
	for _, h := range st.edits {
		if h.ExpenseID != id {
			kept = append(kept, h)
		}
	}
	st.edits = kept
	for i, tx := range st.txs {
		if tx.ExpenseID != nil && *tx.ExpenseID == id {
			tx.ExpenseID = nil
			st.txs[i] = tx
		}
	}
}
