package v1

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/govalues/money"

	"github.com/supaspend/ledger/internal/ledger"
	"github.com/supaspend/ledger/internal/service/balance"
	"github.com/supaspend/ledger/internal/service/funding"
	"github.com/supaspend/ledger/internal/service/user"
)

// Requests

type createUserRequest struct {
	Username    string      `json:"username"`
	Role        ledger.Role `json:"role,omitempty"`
	DisplayName string      `json:"display_name,omitempty"`
	AvatarURL   string      `json:"avatar_url,omitempty"`
}

type createWalletRequest struct {
	Currency  string `json:"currency"`
	Name      string `json:"name"`
	IsDefault bool   `json:"is_default,omitempty"`
}

type patchWalletRequest struct {
	Name *string `json:"name"`
}

// fundRequest is shared by fund and withdraw. Amount is a decimal string.
type fundRequest struct {
	Amount      string `json:"amount"`
	Description string `json:"description,omitempty"`
}

type createExpenseRequest struct {
	WalletID    uuid.UUID `json:"wallet_id"`
	Date        string    `json:"date"`
	Amount      string    `json:"amount"`
	Category    string    `json:"category"`
	Description string    `json:"description,omitempty"`
}

// patchExpenseRequest carries only the fields being changed, plus a reason.
type patchExpenseRequest struct {
	Amount      *string `json:"amount,omitempty"`
	Category    *string `json:"category,omitempty"`
	Description *string `json:"description,omitempty"`
	Date        *string `json:"date,omitempty"`
	Reason      string  `json:"reason,omitempty"`
}

// Responses

type userResponse struct {
	ID          uuid.UUID   `json:"id"`
	Username    string      `json:"username"`
	Role        ledger.Role `json:"role"`
	DisplayName string      `json:"display_name"`
	AvatarURL   string      `json:"avatar_url,omitempty"`
	CreatedBy   *uuid.UUID  `json:"created_by,omitempty"`
	CreatedAt   time.Time   `json:"created_at"`
}

type walletResponse struct {
	ID        uuid.UUID       `json:"id"`
	UserID    uuid.UUID       `json:"user_id"`
	Currency  ledger.Currency `json:"currency"`
	Name      string          `json:"name"`
	IsDefault bool            `json:"is_default"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
	// Balance and State are present in listings that compute them.
	Balance *string             `json:"balance,omitempty"`
	State   ledger.BalanceState `json:"balance_state,omitempty"`
}

type userOverviewResponse struct {
	userResponse
	Wallets []walletResponse `json:"wallets"`
}

type balanceResponse struct {
	WalletID uuid.UUID           `json:"wallet_id"`
	Currency string              `json:"currency"`
	Balance  string              `json:"balance"`
	State    ledger.BalanceState `json:"balance_state"`
}

type transactionResponse struct {
	ID            uuid.UUID              `json:"id"`
	WalletID      uuid.UUID              `json:"wallet_id"`
	AdminID       uuid.UUID              `json:"admin_id"`
	ExpenseID     *uuid.UUID             `json:"expense_id,omitempty"`
	Type          ledger.TransactionType `json:"type"`
	Amount        string                 `json:"amount"`
	Description   string                 `json:"description,omitempty"`
	BalanceBefore string                 `json:"balance_before"`
	BalanceAfter  string                 `json:"balance_after"`
	CreatedAt     time.Time              `json:"created_at"`
}

type receiptResponse struct {
	TransactionID uuid.UUID              `json:"transaction_id"`
	Type          ledger.TransactionType `json:"type"`
	Amount        string                 `json:"amount"`
	NewBalance    string                 `json:"new_balance"`
	State         ledger.BalanceState    `json:"balance_state"`
}

type expenseResponse struct {
	ID          uuid.UUID       `json:"id"`
	UserID      uuid.UUID       `json:"user_id"`
	WalletID    uuid.UUID       `json:"wallet_id"`
	Date        string          `json:"date"`
	Amount      string          `json:"amount"`
	Category    ledger.Category `json:"category"`
	Description string          `json:"description"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

type snapshotResponse struct {
	Amount      string          `json:"amount"`
	Category    ledger.Category `json:"category"`
	Description string          `json:"description"`
	Date        string          `json:"date"`
}

type editResponse struct {
	ID           uuid.UUID        `json:"id"`
	Label        string           `json:"label"`
	EditedBy     uuid.UUID        `json:"edited_by"`
	PreviousData snapshotResponse `json:"previous_data"`
	NewData      snapshotResponse `json:"new_data"`
	Reason       string           `json:"reason,omitempty"`
	CreatedAt    time.Time        `json:"created_at"`
}

// Mapping

func toUserResponse(u ledger.User) userResponse {
	return userResponse{ID: u.ID, Username: u.Username, Role: u.Role, DisplayName: u.DisplayName,
		AvatarURL: u.AvatarURL, CreatedBy: u.CreatedBy, CreatedAt: u.CreatedAt}
}

func toWalletResponse(w ledger.Wallet) walletResponse {
	return walletResponse{ID: w.ID, UserID: w.UserID, Currency: w.Currency, Name: w.Name,
		IsDefault: w.IsDefault, CreatedAt: w.CreatedAt, UpdatedAt: w.UpdatedAt}
}

func toWalletBalanceResponse(wb balance.WalletBalance) walletResponse {
	out := toWalletResponse(wb.Wallet)
	bal := ledger.FormatAmount(wb.Balance)
	out.Balance = &bal
	out.State = wb.State
	return out
}

func toOverviewResponse(o user.Overview) userOverviewResponse {
	out := userOverviewResponse{userResponse: toUserResponse(o.User), Wallets: make([]walletResponse, 0, len(o.Wallets))}
	for _, wb := range o.Wallets {
		out.Wallets = append(out.Wallets, toWalletBalanceResponse(wb))
	}
	return out
}

func toBalanceResponse(walletID uuid.UUID, bal money.Amount) balanceResponse {
	return balanceResponse{WalletID: walletID, Currency: bal.Curr().Code(), Balance: ledger.FormatAmount(bal), State: ledger.StateOf(bal)}
}

func toTransactionResponse(t ledger.FundTransaction) transactionResponse {
	return transactionResponse{
		ID:            t.ID,
		WalletID:      t.WalletID,
		AdminID:       t.AdminID,
		ExpenseID:     t.ExpenseID,
		Type:          t.Type,
		Amount:        ledger.FormatAmount(t.Amount),
		Description:   t.Description,
		BalanceBefore: ledger.FormatAmount(t.BalanceBefore),
		BalanceAfter:  ledger.FormatAmount(t.BalanceAfter),
		CreatedAt:     t.CreatedAt,
	}
}

func toReceiptResponse(r funding.Receipt) receiptResponse {
	return receiptResponse{TransactionID: r.TransactionID, Type: r.Type, Amount: ledger.FormatAmount(r.Amount),
		NewBalance: ledger.FormatAmount(r.NewBalance), State: ledger.StateOf(r.NewBalance)}
}

func toExpenseResponse(e ledger.Expense) expenseResponse {
	return expenseResponse{ID: e.ID, UserID: e.UserID, WalletID: e.WalletID, Date: e.Date.Format(ledger.DateLayout),
		Amount: ledger.FormatAmount(e.Amount), Category: e.Category, Description: e.Description,
		CreatedAt: e.CreatedAt, UpdatedAt: e.UpdatedAt}
}

func toSnapshotResponse(s ledger.ExpenseSnapshot) snapshotResponse {
	return snapshotResponse{Amount: ledger.FormatAmount(s.Amount), Category: s.Category,
		Description: s.Description, Date: s.Date.Format(ledger.DateLayout)}
}

// toHistoryResponse presents edits newest first, labelled "Edit #N".
func toHistoryResponse(history []ledger.ExpenseEdit) []editResponse {
	labeled := ledger.NewestFirst(history)
	out := make([]editResponse, 0, len(labeled))
	for _, le := range labeled {
		e := le.Edit
		out = append(out, editResponse{
			ID:           e.ID,
			Label:        fmt.Sprintf("Edit #%d", le.Number),
			EditedBy:     e.EditedBy,
			PreviousData: toSnapshotResponse(e.PreviousData),
			NewData:      toSnapshotResponse(e.NewData),
			Reason:       e.Reason,
			CreatedAt:    e.CreatedAt,
		})
	}
	return out
}
