// Package funding is the only writer of fund_in and fund_out ledger rows.
// Each write locks the wallet, snapshots the balance and appends one row in a
// single store transaction.
package funding

import (
	"context"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/govalues/money"

	"github.com/supaspend/ledger/internal/authz"
	"github.com/supaspend/ledger/internal/errs"
	"github.com/supaspend/ledger/internal/ledger"
	"github.com/supaspend/ledger/internal/metrics"
	"github.com/supaspend/ledger/internal/service"
	"github.com/supaspend/ledger/internal/service/balance"
	"github.com/supaspend/ledger/internal/storage"
)

// MaxListLimit caps list queries. Zero or negative limits mean DefaultListLimit.
const (
	DefaultListLimit = 50
	MaxListLimit     = 500
)

// MaxDescriptionLen bounds free-text descriptions on ledger rows.
const MaxDescriptionLen = 255

// Request is a fund or withdraw call. Amount is the raw decimal string.
type Request struct {
	WalletID    uuid.UUID
	Amount      string
	Description string
}

// Receipt is returned by a successful ledger write.
type Receipt struct {
	TransactionID uuid.UUID
	Type          ledger.TransactionType
	Amount        money.Amount
	NewBalance    money.Amount
}

type Service interface {
	// Fund appends a fund_in credit.
	Fund(ctx context.Context, actor ledger.Actor, req Request) (Receipt, error)
	// Withdraw appends a fund_out debit. The balance may go negative.
	Withdraw(ctx context.Context, actor ledger.Actor, req Request) (Receipt, error)
	ListTransactions(ctx context.Context, actor ledger.Actor, walletID uuid.UUID, limit int) ([]ledger.FundTransaction, error)
	ListUserTransactions(ctx context.Context, actor ledger.Actor, userID uuid.UUID, limit int) ([]ledger.FundTransaction, error)
}

type svc struct {
	d service.Deps
}

func New(d service.Deps) Service { return &svc{d: d.Normalize()} }

func (s *svc) Fund(ctx context.Context, actor ledger.Actor, req Request) (Receipt, error) {
	r, err := s.write(ctx, actor, req, ledger.TxFundIn)
	metrics.Operation("fund", err)
	return r, err
}

func (s *svc) Withdraw(ctx context.Context, actor ledger.Actor, req Request) (Receipt, error) {
	r, err := s.write(ctx, actor, req, ledger.TxFundOut)
	metrics.Operation("withdraw", err)
	return r, err
}

func (s *svc) write(ctx context.Context, actor ledger.Actor, req Request, typ ledger.TransactionType) (Receipt, error) {
	if err := authz.Authenticated(actor); err != nil {
		return Receipt{}, err
	}
	desc := strings.TrimSpace(req.Description)
	if utf8.RuneCountInString(desc) > MaxDescriptionLen {
		return Receipt{}, errs.Wrap(errs.ErrInvalid, "description too long")
	}
	var out Receipt
	err := s.d.InTx(ctx, func(ctx context.Context, tx storage.Tx) error {
		w, err := tx.GetWallet(ctx, req.WalletID)
		if err != nil {
			return err
		}
		if err := authz.RequireSelfOrAdmin(actor, w.UserID); err != nil {
			return err
		}
		// Validation happens before the first write of the transaction.
		amt, err := ledger.ParseAmount(w.Currency, req.Amount)
		if err != nil {
			return errs.Wrap(errs.ErrInvalidAmount, err.Error())
		}
		row, err := Append(ctx, tx, ledger.FundTransaction{
			ID:          uuid.New(),
			WalletID:    w.ID,
			AdminID:     actor.ID,
			Type:        typ,
			Amount:      amt,
			Description: desc,
			CreatedAt:   s.d.Now(),
		})
		if err != nil {
			return err
		}
		out = Receipt{TransactionID: row.ID, Type: row.Type, Amount: row.Amount, NewBalance: row.BalanceAfter}
		return nil
	})
	if err != nil {
		s.d.Log.Warn("ledger write rejected", "wallet_id", req.WalletID, "type", typ, "actor_id", actor.ID, "err", err)
		return Receipt{}, err
	}
	s.d.Log.Info("ledger row appended",
		"tx_id", out.TransactionID,
		"wallet_id", req.WalletID,
		"type", typ,
		"amount", ledger.FormatAmount(out.Amount),
		"balance", ledger.FormatAmount(out.NewBalance),
		"actor_id", actor.ID,
	)
	return out, nil
}

// Append locks the wallet, fills the balance snapshots of row and appends it.
// It must run inside a transaction; the expense service uses it too.
func Append(ctx context.Context, tx storage.Tx, row ledger.FundTransaction) (ledger.FundTransaction, error) {
	if err := tx.LockWallet(ctx, row.WalletID); err != nil {
		return ledger.FundTransaction{}, err
	}
	before, err := balance.Compute(ctx, tx, row.WalletID)
	if err != nil {
		return ledger.FundTransaction{}, err
	}
	var after money.Amount
	switch {
	case row.Type.IsCredit():
		after, err = before.Add(row.Amount)
	case row.Type.IsDebit():
		after, err = before.Sub(row.Amount)
	default:
		return ledger.FundTransaction{}, errs.Wrap(errs.ErrInvalid, "unknown transaction type "+string(row.Type))
	}
	if err != nil {
		return ledger.FundTransaction{}, errs.Wrap(errs.ErrInvalidAmount, err.Error())
	}
	row.Type = row.Type.Canonical()
	row.BalanceBefore = before
	row.BalanceAfter = after
	if err := tx.AppendTransaction(ctx, row); err != nil {
		return ledger.FundTransaction{}, err
	}
	metrics.LedgerRow(row.Type)
	return row, nil
}

func (s *svc) ListTransactions(ctx context.Context, actor ledger.Actor, walletID uuid.UUID, limit int) ([]ledger.FundTransaction, error) {
	if err := authz.Authenticated(actor); err != nil {
		return nil, err
	}
	ctx, cancel := s.d.Bound(ctx)
	defer cancel()
	w, err := s.d.Store.GetWallet(ctx, walletID)
	if err != nil {
		return nil, errs.FromStore(err)
	}
	if err := authz.RequireSelfOrAdmin(actor, w.UserID); err != nil {
		return nil, err
	}
	rows, err := s.d.Store.ListTransactions(ctx, walletID, clampLimit(limit))
	return canonical(rows), errs.FromStore(err)
}

func (s *svc) ListUserTransactions(ctx context.Context, actor ledger.Actor, userID uuid.UUID, limit int) ([]ledger.FundTransaction, error) {
	if err := authz.RequireSelfOrAdmin(actor, userID); err != nil {
		return nil, err
	}
	ctx, cancel := s.d.Bound(ctx)
	defer cancel()
	if _, err := s.d.Store.GetUser(ctx, userID); err != nil {
		return nil, errs.FromStore(err)
	}
	rows, err := s.d.Store.ListUserTransactions(ctx, userID, clampLimit(limit))
	return canonical(rows), errs.FromStore(err)
}

func clampLimit(limit int) int {
	if limit <= 0 {
		return DefaultListLimit
	}
	if limit > MaxListLimit {
		return MaxListLimit
	}
	return limit
}

// canonical rewrites legacy deposit/withdrawal tags on output.
func canonical(rows []ledger.FundTransaction) []ledger.FundTransaction {
	for i := range rows {
		rows[i].Type = rows[i].Type.Canonical()
	}
	return rows
}
