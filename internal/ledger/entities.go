package ledger

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/govalues/money"
)

// Role is a user's authorization level.
type Role string

const (
	RoleUser       Role = "user"
	RoleAdmin      Role = "admin"
	RoleSuperadmin Role = "superadmin"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleUser, RoleAdmin, RoleSuperadmin:
		return true
	}
	return false
}

// Actor is the authenticated identity performing an operation.
type Actor struct {
	ID   uuid.UUID
	Role Role
}

// IsZero reports whether no identity was resolved.
func (a Actor) IsZero() bool { return a.ID == uuid.Nil }

// User captures a profile row.
type User struct {
	ID       uuid.UUID
	Username string
	Role     Role
	// CreatedBy references the admin who provisioned the account. Lookup only.
	CreatedBy   *uuid.UUID
	DisplayName string
	AvatarURL   string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Actor returns the user as an acting identity.
func (u User) Actor() Actor { return Actor{ID: u.ID, Role: u.Role} }

// Currency enumerates wallet currencies.
type Currency string

const (
	CurrencyUSD Currency = "USD"
	CurrencyVND Currency = "VND"
	CurrencyIDR Currency = "IDR"
	CurrencyPHP Currency = "PHP"
)

// Currencies lists the supported wallet currencies in display order.
var Currencies = []Currency{CurrencyUSD, CurrencyVND, CurrencyIDR, CurrencyPHP}

// ParseCurrency normalizes s and checks it against the supported list.
func ParseCurrency(s string) (Currency, bool) {
	c := Currency(strings.ToUpper(strings.TrimSpace(s)))
	for _, known := range Currencies {
		if c == known {
			return c, true
		}
	}
	return "", false
}

// Wallet holds funds in a single currency for one user.
type Wallet struct {
	ID        uuid.UUID
	UserID    uuid.UUID
	Currency  Currency
	Name      string
	IsDefault bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

const (
	// MaxWalletsPerUser caps how many wallets a user may hold.
	MaxWalletsPerUser = 5
	// MaxWalletNameLen is the longest accepted wallet name, in characters.
	MaxWalletNameLen = 50
)

// TransactionType tags a ledger row.
type TransactionType string

const (
	TxFundIn  TransactionType = "fund_in"
	TxFundOut TransactionType = "fund_out"
	TxExpense TransactionType = "expense"
	// Legacy tags written before multi-wallet support. Read, never written.
	TxDeposit    TransactionType = "deposit"
	TxWithdrawal TransactionType = "withdrawal"
)

// IsCredit reports whether rows of this type increase the balance.
func (t TransactionType) IsCredit() bool { return t == TxFundIn || t == TxDeposit }

// IsDebit reports whether rows of this type decrease the balance.
func (t TransactionType) IsDebit() bool {
	return t == TxExpense || t == TxFundOut || t == TxWithdrawal
}

// Canonical maps legacy tags onto the wallet-aware vocabulary.
func (t TransactionType) Canonical() TransactionType {
	switch t {
	case TxDeposit:
		return TxFundIn
	case TxWithdrawal:
		return TxFundOut
	}
	return t
}

// FundTransaction is an immutable ledger row.
type FundTransaction struct {
	ID       uuid.UUID
	WalletID uuid.UUID
	// AdminID is the actor who performed the mutation.
	AdminID uuid.UUID
	// ExpenseID links expense debits and their adjustments to the expense.
	ExpenseID     *uuid.UUID
	Type          TransactionType
	Amount        money.Amount
	Description   string
	BalanceBefore money.Amount
	BalanceAfter  money.Amount
	CreatedAt     time.Time
}

// Category is an expense category. The canonical list is enforced on create.
type Category string

// Categories is the canonical category list.
var Categories = []Category{
	"Travel", "Supplies", "Meals", "Transportation", "Entertainment",
	"Office", "Marketing", "Utilities", "Other",
}

// IsCanonical reports whether c is on the canonical list.
func (c Category) IsCanonical() bool {
	for _, k := range Categories {
		if c == k {
			return true
		}
	}
	return false
}

// Expense is a spend recorded by a user against one of their wallets.
type Expense struct {
	ID       uuid.UUID
	UserID   uuid.UUID
	WalletID uuid.UUID
	// Date is a calendar date stored at UTC midnight.
	Date        time.Time
	Amount      money.Amount
	Category    Category
	Description string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Snapshot captures the editable fields of the expense.
func (e Expense) Snapshot() ExpenseSnapshot {
	return ExpenseSnapshot{Amount: e.Amount, Category: e.Category, Description: e.Description, Date: e.Date}
}

// ExpenseSnapshot is the audited shape of an expense before or after an edit.
type ExpenseSnapshot struct {
	Amount      money.Amount
	Category    Category
	Description string
	Date        time.Time
}

// ExpenseEdit is one append-only history row.
type ExpenseEdit struct {
	ID           uuid.UUID
	ExpenseID    uuid.UUID
	EditedBy     uuid.UUID
	PreviousData ExpenseSnapshot
	NewData      ExpenseSnapshot
	Reason       string
	CreatedAt    time.Time
}

// DateOnly truncates t to its UTC calendar date.
func DateOnly(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// DateLayout is the wire and storage format of expense dates.
const DateLayout = "2006-01-02"
