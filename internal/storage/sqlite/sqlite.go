/*
Package sqlite provides a SQLite-backed Ledger Store for single-node
deployments and local development.

The schema is auto-migrated on New. Amounts are stored as decimal TEXT and
summed in Go with ledger.Tally, so no value ever passes through REAL.
Timestamps are RFC 3339 TEXT in UTC with nine fractional digits, so they
sort as text in time order. Expense dates are YYYY-MM-DD.

Transactions are opened with _txlock=immediate: SQLite takes the database
write lock at BEGIN, so every write transaction is already serialized and
LockUser / LockWallet have nothing left to do.

USAGE:

	store, err := sqlite.New("./data/supaspend.db")
	if err != nil {
		log.Fatal(err)
	}
	defer store.Close()
*/
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/govalues/money"
	"github.com/mattn/go-sqlite3"

	"github.com/supaspend/ledger/internal/errs"
	"github.com/supaspend/ledger/internal/ledger"
	"github.com/supaspend/ledger/internal/storage"
)

// Store implements storage.Store on database/sql.
type Store struct {
	reader
	db *sql.DB
}

// New opens (creating if needed) the database at dbPath and migrates it.
// Use ":memory:" for a throwaway database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL&_busy_timeout=5000&_txlock=immediate")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if dbPath == ":memory:" {
		// Every connection to :memory: is a separate database.
		db.SetMaxOpenConns(1)
	}
	s := &Store{reader: reader{q: db}, db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error { return s.db.Close() }

// Ready pings the database.
func (s *Store) Ready(ctx context.Context) error { return s.db.PingContext(ctx) }

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS profiles (
		id TEXT PRIMARY KEY,
		username TEXT NOT NULL,
		role TEXT NOT NULL CHECK (role IN ('user', 'admin', 'superadmin')),
		created_by TEXT REFERENCES profiles(id) ON DELETE SET NULL,
		display_name TEXT NOT NULL DEFAULT '',
		avatar_url TEXT NOT NULL DEFAULT '',
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);
	CREATE UNIQUE INDEX IF NOT EXISTS idx_profiles_username ON profiles(username COLLATE NOCASE);

	CREATE TABLE IF NOT EXISTS wallets (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL REFERENCES profiles(id) ON DELETE CASCADE,
		currency TEXT NOT NULL CHECK (currency IN ('USD', 'VND', 'IDR', 'PHP')),
		name TEXT NOT NULL,
		is_default INTEGER NOT NULL DEFAULT 0,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_wallets_user ON wallets(user_id, created_at);
	-- At most one default wallet per user.
	CREATE UNIQUE INDEX IF NOT EXISTS idx_wallets_one_default ON wallets(user_id) WHERE is_default = 1;

	CREATE TABLE IF NOT EXISTS expenses (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL REFERENCES profiles(id) ON DELETE CASCADE,
		wallet_id TEXT NOT NULL REFERENCES wallets(id) ON DELETE CASCADE,
		date TEXT NOT NULL,
		amount TEXT NOT NULL,
		category TEXT NOT NULL,
		description TEXT NOT NULL DEFAULT '',
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_expenses_user_date ON expenses(user_id, date DESC);

	-- Append-only: no UPDATE or DELETE statement targets this table.
	CREATE TABLE IF NOT EXISTS fund_transactions (
		seq INTEGER PRIMARY KEY AUTOINCREMENT,
		id TEXT NOT NULL UNIQUE,
		wallet_id TEXT NOT NULL REFERENCES wallets(id) ON DELETE CASCADE,
		admin_id TEXT NOT NULL,
		expense_id TEXT REFERENCES expenses(id) ON DELETE SET NULL,
		transaction_type TEXT NOT NULL CHECK (transaction_type IN ('fund_in', 'fund_out', 'expense', 'deposit', 'withdrawal')),
		amount TEXT NOT NULL,
		description TEXT NOT NULL DEFAULT '',
		balance_before TEXT NOT NULL,
		balance_after TEXT NOT NULL,
		created_at TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_fund_transactions_wallet ON fund_transactions(wallet_id, seq DESC);

	CREATE TABLE IF NOT EXISTS expense_edit_history (
		seq INTEGER PRIMARY KEY AUTOINCREMENT,
		id TEXT NOT NULL UNIQUE,
		expense_id TEXT NOT NULL REFERENCES expenses(id) ON DELETE CASCADE,
		edited_by TEXT NOT NULL,
		previous_data TEXT NOT NULL,
		new_data TEXT NOT NULL,
		reason TEXT NOT NULL DEFAULT '',
		created_at TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_edit_history_expense ON expense_edit_history(expense_id, seq);
	`
	_, err := s.db.Exec(schema)
	return err
}

// BeginTx starts an immediate transaction.
func (s *Store) BeginTx(ctx context.Context) (storage.Tx, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	return &Tx{reader: reader{q: tx}, tx: tx}, nil
}

// Tx wraps a *sql.Tx.
type Tx struct {
	reader
	tx *sql.Tx
}

func (t *Tx) Commit(_ context.Context) error { return t.tx.Commit() }

func (t *Tx) Rollback(_ context.Context) error {
	if err := t.tx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
		return err
	}
	return nil
}

type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type scanner interface {
	Scan(dest ...any) error
}

// =============================================================================
// READS
// =============================================================================

type reader struct{ q querier }

const profileCols = `id, username, role, created_by, display_name, avatar_url, created_at, updated_at`

func scanUser(row scanner) (ledger.User, error) {
	var u ledger.User
	var role, created, updated string
	err := row.Scan(&u.ID, &u.Username, &role, &u.CreatedBy, &u.DisplayName, &u.AvatarURL, &created, &updated)
	if errors.Is(err, sql.ErrNoRows) {
		return ledger.User{}, errs.ErrNotFound
	}
	if err != nil {
		return ledger.User{}, err
	}
	u.Role = ledger.Role(role)
	if u.CreatedAt, err = parseTime(created); err != nil {
		return ledger.User{}, err
	}
	u.UpdatedAt, err = parseTime(updated)
	return u, err
}

func (r reader) GetUser(ctx context.Context, id uuid.UUID) (ledger.User, error) {
	return scanUser(r.q.QueryRowContext(ctx, `SELECT `+profileCols+` FROM profiles WHERE id = ?`, id))
}

func (r reader) GetUserByUsername(ctx context.Context, username string) (ledger.User, error) {
	return scanUser(r.q.QueryRowContext(ctx,
		`SELECT `+profileCols+` FROM profiles WHERE username = TRIM(?) COLLATE NOCASE`, username))
}

func (r reader) ListUsers(ctx context.Context) ([]ledger.User, error) {
	rows, err := r.q.QueryContext(ctx, `SELECT `+profileCols+` FROM profiles ORDER BY created_at, username`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]ledger.User, 0)
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, u)
	}
	return out, rows.Err()
}

const walletCols = `id, user_id, currency, name, is_default, created_at, updated_at`

func scanWallet(row scanner) (ledger.Wallet, error) {
	var w ledger.Wallet
	var curr, created, updated string
	err := row.Scan(&w.ID, &w.UserID, &curr, &w.Name, &w.IsDefault, &created, &updated)
	if errors.Is(err, sql.ErrNoRows) {
		return ledger.Wallet{}, errs.ErrNotFound
	}
	if err != nil {
		return ledger.Wallet{}, err
	}
	w.Currency = ledger.Currency(curr)
	if w.CreatedAt, err = parseTime(created); err != nil {
		return ledger.Wallet{}, err
	}
	w.UpdatedAt, err = parseTime(updated)
	return w, err
}

func (r reader) GetWallet(ctx context.Context, id uuid.UUID) (ledger.Wallet, error) {
	return scanWallet(r.q.QueryRowContext(ctx, `SELECT `+walletCols+` FROM wallets WHERE id = ?`, id))
}

func (r reader) ListWallets(ctx context.Context, userID uuid.UUID) ([]ledger.Wallet, error) {
	rows, err := r.q.QueryContext(ctx, `SELECT `+walletCols+` FROM wallets WHERE user_id = ? ORDER BY created_at, id`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]ledger.Wallet, 0)
	for rows.Next() {
		w, err := scanWallet(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, w)
	}
	return out, rows.Err()
}

const txSelect = `
	SELECT t.id, t.wallet_id, t.admin_id, t.expense_id, t.transaction_type, t.amount, t.description,
	       t.balance_before, t.balance_after, t.created_at, w.currency
	FROM fund_transactions t
	JOIN wallets w ON w.id = t.wallet_id`

func (r reader) queryTransactions(ctx context.Context, query string, args ...any) ([]ledger.FundTransaction, error) {
	rows, err := r.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]ledger.FundTransaction, 0)
	for rows.Next() {
		var t ledger.FundTransaction
		var typ, amount, before, after, created, curr string
		if err := rows.Scan(&t.ID, &t.WalletID, &t.AdminID, &t.ExpenseID, &typ, &amount, &t.Description,
			&before, &after, &created, &curr); err != nil {
			return nil, err
		}
		t.Type = ledger.TransactionType(typ)
		if t.Amount, err = money.ParseAmount(curr, amount); err != nil {
			return nil, fmt.Errorf("transaction %s amount: %w", t.ID, err)
		}
		if t.BalanceBefore, err = money.ParseAmount(curr, before); err != nil {
			return nil, fmt.Errorf("transaction %s balance_before: %w", t.ID, err)
		}
		if t.BalanceAfter, err = money.ParseAmount(curr, after); err != nil {
			return nil, fmt.Errorf("transaction %s balance_after: %w", t.ID, err)
		}
		if t.CreatedAt, err = parseTime(created); err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// sqliteLimit maps "no limit" onto SQLite's LIMIT -1.
func sqliteLimit(limit int) int {
	if limit <= 0 {
		return -1
	}
	return limit
}

func (r reader) ListTransactions(ctx context.Context, walletID uuid.UUID, limit int) ([]ledger.FundTransaction, error) {
	return r.queryTransactions(ctx, txSelect+` WHERE t.wallet_id = ? ORDER BY t.seq DESC LIMIT ?`, walletID, sqliteLimit(limit))
}

func (r reader) ListUserTransactions(ctx context.Context, userID uuid.UUID, limit int) ([]ledger.FundTransaction, error) {
	return r.queryTransactions(ctx, txSelect+` WHERE w.user_id = ? ORDER BY t.seq DESC LIMIT ?`, userID, sqliteLimit(limit))
}

// SumCreditsDebits loads the wallet's full history and folds it in Go.
func (r reader) SumCreditsDebits(ctx context.Context, walletID uuid.UUID) (ledger.Totals, error) {
	w, err := r.GetWallet(ctx, walletID)
	if err != nil {
		return ledger.Totals{}, err
	}
	rows, err := r.queryTransactions(ctx, txSelect+` WHERE t.wallet_id = ? ORDER BY t.seq`, walletID)
	if err != nil {
		return ledger.Totals{}, err
	}
	return ledger.Tally(w.Currency, rows)
}

const expenseSelect = `
	SELECT e.id, e.user_id, e.wallet_id, e.date, e.amount, e.category, e.description,
	       e.created_at, e.updated_at, w.currency
	FROM expenses e
	JOIN wallets w ON w.id = e.wallet_id`

func scanExpense(row scanner) (ledger.Expense, error) {
	var e ledger.Expense
	var date, amount, category, created, updated, curr string
	err := row.Scan(&e.ID, &e.UserID, &e.WalletID, &date, &amount, &category, &e.Description, &created, &updated, &curr)
	if errors.Is(err, sql.ErrNoRows) {
		return ledger.Expense{}, errs.ErrNotFound
	}
	if err != nil {
		return ledger.Expense{}, err
	}
	e.Category = ledger.Category(category)
	if e.Date, err = time.Parse(ledger.DateLayout, date); err != nil {
		return ledger.Expense{}, fmt.Errorf("expense %s date: %w", e.ID, err)
	}
	if e.Amount, err = money.ParseAmount(curr, amount); err != nil {
		return ledger.Expense{}, fmt.Errorf("expense %s amount: %w", e.ID, err)
	}
	if e.CreatedAt, err = parseTime(created); err != nil {
		return ledger.Expense{}, err
	}
	e.UpdatedAt, err = parseTime(updated)
	return e, err
}

func (r reader) GetExpense(ctx context.Context, id uuid.UUID) (ledger.Expense, error) {
	return scanExpense(r.q.QueryRowContext(ctx, expenseSelect+` WHERE e.id = ?`, id))
}

func (r reader) ListExpenses(ctx context.Context, userID uuid.UUID) ([]ledger.Expense, error) {
	rows, err := r.q.QueryContext(ctx, expenseSelect+` WHERE e.user_id = ? ORDER BY e.date DESC, e.created_at DESC`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]ledger.Expense, 0)
	for rows.Next() {
		e, err := scanExpense(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func (r reader) ListEditHistory(ctx context.Context, expenseID uuid.UUID) ([]ledger.ExpenseEdit, error) {
	rows, err := r.q.QueryContext(ctx, `
		SELECT id, expense_id, edited_by, previous_data, new_data, reason, created_at
		FROM expense_edit_history
		WHERE expense_id = ?
		ORDER BY created_at, seq
	`, expenseID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]ledger.ExpenseEdit, 0)
	for rows.Next() {
		var h ledger.ExpenseEdit
		var prev, next, created string
		if err := rows.Scan(&h.ID, &h.ExpenseID, &h.EditedBy, &prev, &next, &h.Reason, &created); err != nil {
			return nil, err
		}
		if h.PreviousData, err = storage.DecodeSnapshot([]byte(prev)); err != nil {
			return nil, err
		}
		if h.NewData, err = storage.DecodeSnapshot([]byte(next)); err != nil {
			return nil, err
		}
		if h.CreatedAt, err = parseTime(created); err != nil {
			return nil, err
		}
		out = append(out, h)
	}
	return out, rows.Err()
}

// =============================================================================
// WRITES (Tx only)
// =============================================================================

// LockUser is a no-op: the immediate transaction already holds the write lock.
func (t *Tx) LockUser(ctx context.Context, userID uuid.UUID) error {
	_, err := t.GetUser(ctx, userID)
	return err
}

// LockWallet only checks existence, for the same reason as LockUser.
func (t *Tx) LockWallet(ctx context.Context, walletID uuid.UUID) error {
	_, err := t.GetWallet(ctx, walletID)
	return err
}

func (t *Tx) CreateUser(ctx context.Context, u ledger.User) error {
	_, err := t.tx.ExecContext(ctx, `INSERT INTO profiles (`+profileCols+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		u.ID, u.Username, string(u.Role), u.CreatedBy, u.DisplayName, u.AvatarURL, formatTime(u.CreatedAt), formatTime(u.UpdatedAt))
	if isConstraint(err, sqlite3.ErrConstraintUnique) {
		return errs.Wrap(errs.ErrInvariantViolation, "username already taken")
	}
	return err
}

func (t *Tx) DeleteUser(ctx context.Context, id uuid.UUID) error {
	return execOne(t.tx.ExecContext(ctx, `DELETE FROM profiles WHERE id = ?`, id))
}

func (t *Tx) CreateWallet(ctx context.Context, w ledger.Wallet) error {
	_, err := t.tx.ExecContext(ctx, `INSERT INTO wallets (`+walletCols+`) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		w.ID, w.UserID, string(w.Currency), w.Name, w.IsDefault, formatTime(w.CreatedAt), formatTime(w.UpdatedAt))
	switch {
	case isConstraint(err, sqlite3.ErrConstraintForeignKey):
		return errs.Wrap(errs.ErrNotFound, "user")
	case isConstraint(err, sqlite3.ErrConstraintUnique):
		return errs.Wrap(errs.ErrInvariantViolation, "user already has a default wallet")
	}
	return err
}

func (t *Tx) UpdateWallet(ctx context.Context, w ledger.Wallet) error {
	res, err := t.tx.ExecContext(ctx, `UPDATE wallets SET name = ?, is_default = ?, updated_at = ? WHERE id = ?`,
		w.Name, w.IsDefault, formatTime(w.UpdatedAt), w.ID)
	if isConstraint(err, sqlite3.ErrConstraintUnique) {
		return errs.Wrap(errs.ErrInvariantViolation, "user already has a default wallet")
	}
	return execOne(res, err)
}

func (t *Tx) DeleteWallet(ctx context.Context, id uuid.UUID) error {
	return execOne(t.tx.ExecContext(ctx, `DELETE FROM wallets WHERE id = ?`, id))
}

func (t *Tx) ClearDefaultWallets(ctx context.Context, userID uuid.UUID) error {
	_, err := t.tx.ExecContext(ctx, `UPDATE wallets SET is_default = 0, updated_at = ? WHERE user_id = ? AND is_default = 1`,
		formatTime(time.Now()), userID)
	return err
}

func (t *Tx) AppendTransaction(ctx context.Context, ft ledger.FundTransaction) error {
	_, err := t.tx.ExecContext(ctx, `
		INSERT INTO fund_transactions
		(id, wallet_id, admin_id, expense_id, transaction_type, amount, description, balance_before, balance_after, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, ft.ID, ft.WalletID, ft.AdminID, ft.ExpenseID, string(ft.Type), ledger.FormatAmount(ft.Amount), ft.Description,
		ledger.FormatAmount(ft.BalanceBefore), ledger.FormatAmount(ft.BalanceAfter), formatTime(ft.CreatedAt))
	if isConstraint(err, sqlite3.ErrConstraintForeignKey) {
		return errs.Wrap(errs.ErrNotFound, "wallet")
	}
	return err
}

func (t *Tx) CreateExpense(ctx context.Context, e ledger.Expense) error {
	_, err := t.tx.ExecContext(ctx, `
		INSERT INTO expenses (id, user_id, wallet_id, date, amount, category, description, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, e.ID, e.UserID, e.WalletID, e.Date.Format(ledger.DateLayout), ledger.FormatAmount(e.Amount),
		string(e.Category), e.Description, formatTime(e.CreatedAt), formatTime(e.UpdatedAt))
	if isConstraint(err, sqlite3.ErrConstraintForeignKey) {
		return errs.Wrap(errs.ErrNotFound, "wallet")
	}
	return err
}

func (t *Tx) UpdateExpense(ctx context.Context, e ledger.Expense) error {
	return execOne(t.tx.ExecContext(ctx, `
		UPDATE expenses SET date = ?, amount = ?, category = ?, description = ?, updated_at = ? WHERE id = ?
	`, e.Date.Format(ledger.DateLayout), ledger.FormatAmount(e.Amount), string(e.Category), e.Description,
		formatTime(e.UpdatedAt), e.ID))
}

// DeleteExpense relies on the foreign keys: history cascades, ledger links go null.
func (t *Tx) DeleteExpense(ctx context.Context, id uuid.UUID) error {
	return execOne(t.tx.ExecContext(ctx, `DELETE FROM expenses WHERE id = ?`, id))
}

func (t *Tx) AppendEditHistory(ctx context.Context, h ledger.ExpenseEdit) error {
	prev, err := storage.EncodeSnapshot(h.PreviousData)
	if err != nil {
		return err
	}
	next, err := storage.EncodeSnapshot(h.NewData)
	if err != nil {
		return err
	}
	_, err = t.tx.ExecContext(ctx, `
		INSERT INTO expense_edit_history (id, expense_id, edited_by, previous_data, new_data, reason, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, h.ID, h.ExpenseID, h.EditedBy, string(prev), string(next), h.Reason, formatTime(h.CreatedAt))
	if isConstraint(err, sqlite3.ErrConstraintForeignKey) {
		return errs.Wrap(errs.ErrNotFound, "expense")
	}
	return err
}

// =============================================================================
// HELPERS
// =============================================================================

// timeLayout is fixed width so text order matches time order.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

func formatTime(t time.Time) string { return t.UTC().Format(timeLayout) }

func parseTime(s string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse time %q: %w", s, err)
	}
	return t, nil
}

func execOne(res sql.Result, err error) error {
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return errs.ErrNotFound
	}
	return nil
}

func isConstraint(err error, code sqlite3.ErrNoExtended) bool {
	var se sqlite3.Error
	return errors.As(err, &se) && se.ExtendedCode == code
}
