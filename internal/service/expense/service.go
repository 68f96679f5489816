// Package expense records expenses against a user's wallets and keeps an
// immutable edit trail. Every expense write has a matching ledger row:
// creating debits the wallet, an amount edit posts the difference and a
// delete posts a reversing credit.
package expense

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/supaspend/ledger/internal/authz"
	"github.com/supaspend/ledger/internal/errs"
	"github.com/supaspend/ledger/internal/ledger"
	"github.com/supaspend/ledger/internal/metrics"
	"github.com/supaspend/ledger/internal/service"
	"github.com/supaspend/ledger/internal/service/funding"
	"github.com/supaspend/ledger/internal/storage"
)

const (
	MaxCategoryLen    = 50
	MaxDescriptionLen = 500
	MaxReasonLen      = 500
)

// CreateInput is a new expense. Amount and Date are raw strings
// ("25.50", "2024-05-01").
type CreateInput struct {
	UserID      uuid.UUID
	WalletID    uuid.UUID
	Date        string
	Amount      string
	Category    string
	Description string
}

// Patch lists the fields to change; nil fields are kept.
type Patch struct {
	Amount      *string
	Category    *string
	Description *string
	Date        *string
}

func (p Patch) empty() bool {
	return p.Amount == nil && p.Category == nil && p.Description == nil && p.Date == nil
}

type Service interface {
	Create(ctx context.Context, actor ledger.Actor, in CreateInput) (ledger.Expense, error)
	Edit(ctx context.Context, actor ledger.Actor, expenseID uuid.UUID, p Patch, reason string) (ledger.Expense, error)
	Delete(ctx context.Context, actor ledger.Actor, expenseID uuid.UUID) error
	List(ctx context.Context, actor ledger.Actor, userID uuid.UUID) ([]ledger.Expense, error)
	// History returns the edit trail ordered by created_at ascending.
	History(ctx context.Context, actor ledger.Actor, expenseID uuid.UUID) ([]ledger.ExpenseEdit, error)
}

type svc struct {
	d service.Deps
}

func New(d service.Deps) Service { return &svc{d: d.Normalize()} }

// ParseDate accepts a YYYY-MM-DD calendar date.
func ParseDate(s string) (time.Time, error) {
	t, err := time.Parse(ledger.DateLayout, strings.TrimSpace(s))
	if err != nil {
		return time.Time{}, errs.Wrap(errs.ErrInvalid, "date must be YYYY-MM-DD")
	}
	return ledger.DateOnly(t), nil
}

func checkText(field, s string, max int) (string, error) {
	s = strings.TrimSpace(s)
	if utf8.RuneCountInString(s) > max {
		return "", errs.Wrap(errs.ErrInvalid, fmt.Sprintf("%s must be at most %d characters", field, max))
	}
	return s, nil
}

func (s *svc) Create(ctx context.Context, actor ledger.Actor, in CreateInput) (e ledger.Expense, err error) {
	defer func() { metrics.Operation("create_expense", err) }()
	if err := authz.RequireSelf(actor, in.UserID); err != nil {
		return ledger.Expense{}, err
	}
	cat := ledger.Category(strings.TrimSpace(in.Category))
	if !cat.IsCanonical() {
		return ledger.Expense{}, errs.Wrap(errs.ErrInvalid, "unknown category "+string(cat))
	}
	date, err := ParseDate(in.Date)
	if err != nil {
		return ledger.Expense{}, err
	}
	desc, err := checkText("description", in.Description, MaxDescriptionLen)
	if err != nil {
		return ledger.Expense{}, err
	}
	now := s.d.Now()
	err = s.d.InTx(ctx, func(ctx context.Context, tx storage.Tx) error {
		w, err := tx.GetWallet(ctx, in.WalletID)
		if err != nil {
			return err
		}
		if w.UserID != in.UserID {
			return errs.Wrap(errs.ErrNotFound, "wallet does not belong to user")
		}
		amt, err := ledger.ParseAmount(w.Currency, in.Amount)
		if err != nil {
			return errs.Wrap(errs.ErrInvalidAmount, err.Error())
		}
		e = ledger.Expense{
			ID: uuid.New(), UserID: in.UserID, WalletID: w.ID,
			Date: date, Amount: amt, Category: cat, Description: desc,
			CreatedAt: now, UpdatedAt: now,
		}
		if err := tx.CreateExpense(ctx, e); err != nil {
			return err
		}
		_, err = funding.Append(ctx, tx, ledger.FundTransaction{
			ID:          uuid.New(),
			WalletID:    w.ID,
			AdminID:     actor.ID,
			ExpenseID:   &e.ID,
			Type:        ledger.TxExpense,
			Amount:      amt,
			Description: expenseMemo(cat, desc),
			CreatedAt:   now,
		})
		return err
	})
	if err != nil {
		return ledger.Expense{}, err
	}
	s.d.Log.Info("expense recorded", "expense_id", e.ID, "wallet_id", e.WalletID, "amount", ledger.FormatAmount(e.Amount))
	return e, nil
}

// Edit applies p to an expense owned by actor and appends one history row in
// the same transaction. Other users' expenses look absent: admins get no bypass.
func (s *svc) Edit(ctx context.Context, actor ledger.Actor, expenseID uuid.UUID, p Patch, reason string) (out ledger.Expense, err error) {
	defer func() { metrics.Operation("edit_expense", err) }()
	if err := authz.Authenticated(actor); err != nil {
		return ledger.Expense{}, err
	}
	if p.empty() {
		return ledger.Expense{}, errs.Wrap(errs.ErrInvalid, "nothing to update")
	}
	reason, err = checkText("reason", reason, MaxReasonLen)
	if err != nil {
		return ledger.Expense{}, err
	}
	now := s.d.Now()
	err = s.d.InTx(ctx, func(ctx context.Context, tx storage.Tx) error {
		cur, err := s.owned(ctx, tx, actor, expenseID)
		if err != nil {
			return err
		}
		w, err := tx.GetWallet(ctx, cur.WalletID)
		if err != nil {
			return err
		}
		next, err := apply(cur, p, w.Currency)
		if err != nil {
			return err
		}
		next.UpdatedAt = now
		if err := adjust(ctx, tx, actor, cur, next, now); err != nil {
			return err
		}
		if err := tx.UpdateExpense(ctx, next); err != nil {
			return err
		}
		if err := tx.AppendEditHistory(ctx, ledger.ExpenseEdit{
			ID:           uuid.New(),
			ExpenseID:    cur.ID,
			EditedBy:     actor.ID,
			PreviousData: cur.Snapshot(),
			NewData:      next.Snapshot(),
			Reason:       reason,
			CreatedAt:    now,
		}); err != nil {
			return err
		}
		out = next
		return nil
	})
	if err != nil {
		return ledger.Expense{}, err
	}
	s.d.Log.Info("expense edited", "expense_id", out.ID, "actor_id", actor.ID)
	return out, nil
}

// apply validates p and returns the patched copy of e. Category is free text
// here: the canonical list only gates creation.
func apply(e ledger.Expense, p Patch, curr ledger.Currency) (ledger.Expense, error) {
	if p.Amount != nil {
		amt, err := ledger.ParseAmount(curr, *p.Amount)
		if err != nil {
			return e, errs.Wrap(errs.ErrInvalidAmount, err.Error())
		}
		e.Amount = amt
	}
	if p.Category != nil {
		c, err := checkText("category", *p.Category, MaxCategoryLen)
		if err != nil {
			return e, err
		}
		if c == "" {
			return e, errs.Wrap(errs.ErrInvalid, "category is required")
		}
		e.Category = ledger.Category(c)
	}
	if p.Description != nil {
		d, err := checkText("description", *p.Description, MaxDescriptionLen)
		if err != nil {
			return e, err
		}
		e.Description = d
	}
	if p.Date != nil {
		d, err := ParseDate(*p.Date)
		if err != nil {
			return e, err
		}
		e.Date = d
	}
	return e, nil
}

// adjust posts the amount difference between cur and next to the ledger.
func adjust(ctx context.Context, tx storage.Tx, actor ledger.Actor, cur, next ledger.Expense, now time.Time) error {
	delta, err := next.Amount.Sub(cur.Amount)
	if err != nil {
		return errs.Wrap(errs.ErrInvalidAmount, err.Error())
	}
	if delta.IsZero() {
		return nil
	}
	typ := ledger.TxExpense
	if delta.IsNeg() {
		typ = ledger.TxFundIn
		delta = delta.Neg()
	}
	_, err = funding.Append(ctx, tx, ledger.FundTransaction{
		ID:          uuid.New(),
		WalletID:    cur.WalletID,
		AdminID:     actor.ID,
		ExpenseID:   &cur.ID,
		Type:        typ,
		Amount:      delta,
		Description: "adjustment: " + expenseMemo(next.Category, next.Description),
		CreatedAt:   now,
	})
	return err
}

func (s *svc) Delete(ctx context.Context, actor ledger.Actor, expenseID uuid.UUID) (err error) {
	defer func() { metrics.Operation("delete_expense", err) }()
	if err := authz.Authenticated(actor); err != nil {
		return err
	}
	err = s.d.InTx(ctx, func(ctx context.Context, tx storage.Tx) error {
		e, err := s.owned(ctx, tx, actor, expenseID)
		if err != nil {
			return err
		}
		if _, err := funding.Append(ctx, tx, ledger.FundTransaction{
			ID:          uuid.New(),
			WalletID:    e.WalletID,
			AdminID:     actor.ID,
			Type:        ledger.TxFundIn,
			Amount:      e.Amount,
			Description: "reversal: " + expenseMemo(e.Category, e.Description),
			CreatedAt:   s.d.Now(),
		}); err != nil {
			return err
		}
		return tx.DeleteExpense(ctx, e.ID)
	})
	if err == nil {
		s.d.Log.Info("expense deleted", "expense_id", expenseID, "actor_id", actor.ID)
	}
	return err
}

func (s *svc) List(ctx context.Context, actor ledger.Actor, userID uuid.UUID) ([]ledger.Expense, error) {
	if err := authz.RequireSelfOrAdmin(actor, userID); err != nil {
		return nil, err
	}
	ctx, cancel := s.d.Bound(ctx)
	defer cancel()
	out, err := s.d.Store.ListExpenses(ctx, userID)
	return out, errs.FromStore(err)
}

func (s *svc) History(ctx context.Context, actor ledger.Actor, expenseID uuid.UUID) ([]ledger.ExpenseEdit, error) {
	if err := authz.Authenticated(actor); err != nil {
		return nil, err
	}
	ctx, cancel := s.d.Bound(ctx)
	defer cancel()
	if _, err := s.owned(ctx, s.d.Store, actor, expenseID); err != nil {
		return nil, errs.FromStore(err)
	}
	out, err := s.d.Store.ListEditHistory(ctx, expenseID)
	return out, errs.FromStore(err)
}

type expenseReader interface {
	GetExpense(ctx context.Context, id uuid.UUID) (ledger.Expense, error)
}

// owned loads the expense filtered by owner.
func (s *svc) owned(ctx context.Context, r expenseReader, actor ledger.Actor, id uuid.UUID) (ledger.Expense, error) {
	e, err := r.GetExpense(ctx, id)
	if err != nil {
		return ledger.Expense{}, err
	}
	if e.UserID != actor.ID {
		return ledger.Expense{}, errs.Wrap(errs.ErrNotFound, "expense")
	}
	return e, nil
}

func expenseMemo(c ledger.Category, desc string) string {
	if desc == "" {
		return string(c)
	}
	return string(c) + ": " + desc
}
