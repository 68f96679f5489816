// Package postgres provides a pgx-backed Ledger Store.
//
// The schema lives under db/migrations. Amounts are numeric(12,2) and cross
// the wire as text so no value passes through a float. Mutations run on a Tx
// that takes row locks (select ... for update) on the profile or wallet being
// written.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/govalues/money"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/supaspend/ledger/internal/errs"
	"github.com/supaspend/ledger/internal/ledger"
	"github.com/supaspend/ledger/internal/storage"
)

// querier is satisfied by both *pgxpool.Pool and pgx.Tx.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Store holds a pgx connection pool. All methods are safe for concurrent use.
type Store struct {
	reader
	pool *pgxpool.Pool
}

// Open establishes a pgx pool using the provided connection string.
func Open(ctx context.Context, dsn string) (*Store, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, err
	}
	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, err
	}
	// Verify connection
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return &Store{reader: reader{q: pool}, pool: pool}, nil
}

// Close releases the underlying pool.
func (s *Store) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

// Ready pings the pool to verify connectivity.
func (s *Store) Ready(ctx context.Context) error { return s.pool.Ping(ctx) }

// Migrate applies an SQL script, typically db/migrations/0001_init.sql.
func (s *Store) Migrate(ctx context.Context, script string) error {
	_, err := s.pool.Exec(ctx, script)
	return err
}

// BeginTx starts a read-committed transaction.
func (s *Store) BeginTx(ctx context.Context) (storage.Tx, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	return &Tx{reader: reader{q: tx}, tx: tx}, nil
}

// Tx wraps a pgx.Tx. Reads see the transaction's own writes.
type Tx struct {
	reader
	tx pgx.Tx
}

func (t *Tx) Commit(ctx context.Context) error { return t.tx.Commit(ctx) }

// Rollback is a no-op after Commit.
func (t *Tx) Rollback(ctx context.Context) error {
	err := t.tx.Rollback(ctx)
	if errors.Is(err, pgx.ErrTxClosed) {
		return nil
	}
	return err
}

// --- reads ---

type reader struct{ q querier }

const profileCols = `id, username, role, created_by, display_name, avatar_url, created_at, updated_at`

func scanUser(row pgx.Row) (ledger.User, error) {
	var u ledger.User
	var role string
	err := row.Scan(&u.ID, &u.Username, &role, &u.CreatedBy, &u.DisplayName, &u.AvatarURL, &u.CreatedAt, &u.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return ledger.User{}, errs.ErrNotFound
	}
	u.Role = ledger.Role(role)
	return u, err
}

func (r reader) GetUser(ctx context.Context, id uuid.UUID) (ledger.User, error) {
	return scanUser(r.q.QueryRow(ctx, `select `+profileCols+` from profiles where id = $1`, id))
}

func (r reader) GetUserByUsername(ctx context.Context, username string) (ledger.User, error) {
	return scanUser(r.q.QueryRow(ctx,
		`select `+profileCols+` from profiles where lower(username) = lower($1)`, strings.TrimSpace(username)))
}

func (r reader) ListUsers(ctx context.Context) ([]ledger.User, error) {
	rows, err := r.q.Query(ctx, `select `+profileCols+` from profiles order by created_at, username`)
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

func scanWallet(row pgx.Row) (ledger.Wallet, error) {
	var w ledger.Wallet
	var curr string
	err := row.Scan(&w.ID, &w.UserID, &curr, &w.Name, &w.IsDefault, &w.CreatedAt, &w.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return ledger.Wallet{}, errs.ErrNotFound
	}
	w.Currency = ledger.Currency(curr)
	return w, err
}

func (r reader) GetWallet(ctx context.Context, id uuid.UUID) (ledger.Wallet, error) {
	return scanWallet(r.q.QueryRow(ctx, `select `+walletCols+` from wallets where id = $1`, id))
}

func (r reader) ListWallets(ctx context.Context, userID uuid.UUID) ([]ledger.Wallet, error) {
	rows, err := r.q.Query(ctx, `select `+walletCols+` from wallets where user_id = $1 order by created_at, id`, userID)
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
	select t.id, t.wallet_id, t.admin_id, t.expense_id, t.transaction_type,
	       t.amount::text, t.description, t.balance_before::text, t.balance_after::text,
	       t.created_at, w.currency
	from fund_transactions t
	join wallets w on w.id = t.wallet_id`

func scanTransactions(rows pgx.Rows) ([]ledger.FundTransaction, error) {
	defer rows.Close()
	out := make([]ledger.FundTransaction, 0)
	for rows.Next() {
		var t ledger.FundTransaction
		var typ, amount, before, after, curr string
		if err := rows.Scan(&t.ID, &t.WalletID, &t.AdminID, &t.ExpenseID, &typ,
			&amount, &t.Description, &before, &after, &t.CreatedAt, &curr); err != nil {
			return nil, err
		}
		t.Type = ledger.TransactionType(typ)
		var err error
		if t.Amount, err = money.ParseAmount(curr, amount); err != nil {
			return nil, fmt.Errorf("transaction %s amount: %w", t.ID, err)
		}
		if t.BalanceBefore, err = money.ParseAmount(curr, before); err != nil {
			return nil, fmt.Errorf("transaction %s balance_before: %w", t.ID, err)
		}
		if t.BalanceAfter, err = money.ParseAmount(curr, after); err != nil {
			return nil, fmt.Errorf("transaction %s balance_after: %w", t.ID, err)
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func limitClause(limit int) string {
	if limit <= 0 {
		return ""
	}
	return fmt.Sprintf(" limit %d", limit)
}

func (r reader) ListTransactions(ctx context.Context, walletID uuid.UUID, limit int) ([]ledger.FundTransaction, error) {
	rows, err := r.q.Query(ctx, txSelect+` where t.wallet_id = $1 order by t.seq desc`+limitClause(limit), walletID)
	if err != nil {
		return nil, err
	}
	return scanTransactions(rows)
}

func (r reader) ListUserTransactions(ctx context.Context, userID uuid.UUID, limit int) ([]ledger.FundTransaction, error) {
	rows, err := r.q.Query(ctx, txSelect+` where w.user_id = $1 order by t.seq desc`+limitClause(limit), userID)
	if err != nil {
		return nil, err
	}
	return scanTransactions(rows)
}

// SumCreditsDebits sums in SQL; legacy tags count on their side of the ledger.
func (r reader) SumCreditsDebits(ctx context.Context, walletID uuid.UUID) (ledger.Totals, error) {
	var curr, credits, debits string
	err := r.q.QueryRow(ctx, `
		select w.currency,
		       coalesce(sum(t.amount) filter (where t.transaction_type in ('fund_in', 'deposit')), 0)::text,
		       coalesce(sum(t.amount) filter (where t.transaction_type in ('expense', 'fund_out', 'withdrawal')), 0)::text
		from wallets w
		left join fund_transactions t on t.wallet_id = w.id
		where w.id = $1
		group by w.currency
	`, walletID).Scan(&curr, &credits, &debits)
	if errors.Is(err, pgx.ErrNoRows) {
		return ledger.Totals{}, errs.ErrNotFound
	}
	if err != nil {
		return ledger.Totals{}, err
	}
	var t ledger.Totals
	if t.Credits, err = money.ParseAmount(curr, credits); err != nil {
		return ledger.Totals{}, err
	}
	if t.Debits, err = money.ParseAmount(curr, debits); err != nil {
		return ledger.Totals{}, err
	}
	return t, nil
}

const expenseSelect = `
	select e.id, e.user_id, e.wallet_id, e.date, e.amount::text, e.category, e.description,
	       e.created_at, e.updated_at, w.currency
	from expenses e
	join wallets w on w.id = e.wallet_id`

func scanExpense(row pgx.Row) (ledger.Expense, error) {
	var e ledger.Expense
	var amount, category, curr string
	err := row.Scan(&e.ID, &e.UserID, &e.WalletID, &e.Date, &amount, &category, &e.Description,
		&e.CreatedAt, &e.UpdatedAt, &curr)
	if errors.Is(err, pgx.ErrNoRows) {
		return ledger.Expense{}, errs.ErrNotFound
	}
	if err != nil {
		return ledger.Expense{}, err
	}
	e.Category = ledger.Category(category)
	e.Date = ledger.DateOnly(e.Date)
	if e.Amount, err = money.ParseAmount(curr, amount); err != nil {
		return ledger.Expense{}, fmt.Errorf("expense %s amount: %w", e.ID, err)
	}
	return e, nil
}

func (r reader) GetExpense(ctx context.Context, id uuid.UUID) (ledger.Expense, error) {
	return scanExpense(r.q.QueryRow(ctx, expenseSelect+` where e.id = $1`, id))
}

func (r reader) ListExpenses(ctx context.Context, userID uuid.UUID) ([]ledger.Expense, error) {
	rows, err := r.q.Query(ctx, expenseSelect+` where e.user_id = $1 order by e.date desc, e.created_at desc`, userID)
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
	rows, err := r.q.Query(ctx, `
		select id, expense_id, edited_by, previous_data, new_data, reason, created_at
		from expense_edit_history
		where expense_id = $1
		order by created_at, seq
	`, expenseID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]ledger.ExpenseEdit, 0)
	for rows.Next() {
		var h ledger.ExpenseEdit
		var prev, next []byte
		if err := rows.Scan(&h.ID, &h.ExpenseID, &h.EditedBy, &prev, &next, &h.Reason, &h.CreatedAt); err != nil {
			return nil, err
		}
		if h.PreviousData, err = storage.DecodeSnapshot(prev); err != nil {
			return nil, err
		}
		if h.NewData, err = storage.DecodeSnapshot(next); err != nil {
			return nil, err
		}
		out = append(out, h)
	}
	return out, rows.Err()
}

// --- writes (Tx only) ---

func (t *Tx) lockRow(ctx context.Context, table string, id uuid.UUID) error {
	var got uuid.UUID
	err := t.tx.QueryRow(ctx, `select id from `+table+` where id = $1 for update`, id).Scan(&got)
	if errors.Is(err, pgx.ErrNoRows) {
		return errs.ErrNotFound
	}
	return err
}

// LockUser holds the profile row lock until the transaction ends.
func (t *Tx) LockUser(ctx context.Context, userID uuid.UUID) error {
	return t.lockRow(ctx, "profiles", userID)
}

// LockWallet holds the wallet row lock until the transaction ends.
func (t *Tx) LockWallet(ctx context.Context, walletID uuid.UUID) error {
	return t.lockRow(ctx, "wallets", walletID)
}

func (t *Tx) CreateUser(ctx context.Context, u ledger.User) error {
	_, err := t.tx.Exec(ctx, `
		insert into profiles (`+profileCols+`)
		values ($1,$2,$3,$4,$5,$6,$7,$8)
	`, u.ID, u.Username, string(u.Role), u.CreatedBy, u.DisplayName, u.AvatarURL, u.CreatedAt, u.UpdatedAt)
	if isUniqueViolation(err) {
		return errs.Wrap(errs.ErrInvariantViolation, "username already taken")
	}
	return err
}

func (t *Tx) DeleteUser(ctx context.Context, id uuid.UUID) error {
	return execOne(t.tx.Exec(ctx, `delete from profiles where id = $1`, id))
}

func (t *Tx) CreateWallet(ctx context.Context, w ledger.Wallet) error {
	_, err := t.tx.Exec(ctx, `
		insert into wallets (`+walletCols+`)
		values ($1,$2,$3,$4,$5,$6,$7)
	`, w.ID, w.UserID, string(w.Currency), w.Name, w.IsDefault, w.CreatedAt, w.UpdatedAt)
	if isForeignKeyViolation(err) {
		return errs.Wrap(errs.ErrNotFound, "user")
	}
	if isUniqueViolation(err) {
		return errs.Wrap(errs.ErrInvariantViolation, "user already has a default wallet")
	}
	return err
}

func (t *Tx) UpdateWallet(ctx context.Context, w ledger.Wallet) error {
	ct, err := t.tx.Exec(ctx, `
		update wallets set name = $1, is_default = $2, updated_at = $3 where id = $4
	`, w.Name, w.IsDefault, w.UpdatedAt, w.ID)
	if isUniqueViolation(err) {
		return errs.Wrap(errs.ErrInvariantViolation, "user already has a default wallet")
	}
	return execOne(ct, err)
}

func (t *Tx) DeleteWallet(ctx context.Context, id uuid.UUID) error {
	return execOne(t.tx.Exec(ctx, `delete from wallets where id = $1`, id))
}

func (t *Tx) ClearDefaultWallets(ctx context.Context, userID uuid.UUID) error {
	_, err := t.tx.Exec(ctx, `
		update wallets set is_default = false, updated_at = now() where user_id = $1 and is_default
	`, userID)
	return err
}

func (t *Tx) AppendTransaction(ctx context.Context, ft ledger.FundTransaction) error {
	_, err := t.tx.Exec(ctx, `
		insert into fund_transactions
		  (id, wallet_id, admin_id, expense_id, transaction_type, amount, description,
		   balance_before, balance_after, created_at)
		values ($1,$2,$3,$4,$5,$6::text::numeric,$7,$8::text::numeric,$9::text::numeric,$10)
	`, ft.ID, ft.WalletID, ft.AdminID, ft.ExpenseID, string(ft.Type),
		ledger.FormatAmount(ft.Amount), ft.Description,
		ledger.FormatAmount(ft.BalanceBefore), ledger.FormatAmount(ft.BalanceAfter), ft.CreatedAt)
	if isForeignKeyViolation(err) {
		return errs.Wrap(errs.ErrNotFound, "wallet")
	}
	return err
}

func (t *Tx) CreateExpense(ctx context.Context, e ledger.Expense) error {
	_, err := t.tx.Exec(ctx, `
		insert into expenses (id, user_id, wallet_id, date, amount, category, description, created_at, updated_at)
		values ($1,$2,$3,$4,$5::text::numeric,$6,$7,$8,$9)
	`, e.ID, e.UserID, e.WalletID, dateArg(e.Date), ledger.FormatAmount(e.Amount),
		string(e.Category), e.Description, e.CreatedAt, e.UpdatedAt)
	if isForeignKeyViolation(err) {
		return errs.Wrap(errs.ErrNotFound, "wallet")
	}
	return err
}

func (t *Tx) UpdateExpense(ctx context.Context, e ledger.Expense) error {
	return execOne(t.tx.Exec(ctx, `
		update expenses
		set date = $1, amount = $2::text::numeric, category = $3, description = $4, updated_at = $5
		where id = $6
	`, dateArg(e.Date), ledger.FormatAmount(e.Amount), string(e.Category), e.Description, e.UpdatedAt, e.ID))
}

// DeleteExpense relies on the schema: history cascades, ledger links go null.
func (t *Tx) DeleteExpense(ctx context.Context, id uuid.UUID) error {
	return execOne(t.tx.Exec(ctx, `delete from expenses where id = $1`, id))
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
	_, err = t.tx.Exec(ctx, `
		insert into expense_edit_history (id, expense_id, edited_by, previous_data, new_data, reason, created_at)
		values ($1,$2,$3,$4,$5,$6,$7)
	`, h.ID, h.ExpenseID, h.EditedBy, prev, next, h.Reason, h.CreatedAt)
	if isForeignKeyViolation(err) {
		return errs.Wrap(errs.ErrNotFound, "expense")
	}
	return err
}

// --- helpers ---

func execOne(ct pgconn.CommandTag, err error) error {
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return errs.ErrNotFound
	}
	return nil
}

func dateArg(t time.Time) time.Time { return ledger.DateOnly(t) }

func pgCode(err error) string {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code
	}
	return ""
}

func isUniqueViolation(err error) bool     { return pgCode(err) == "23505" }
func isForeignKeyViolation(err error) bool { return pgCode(err) == "23503" }
