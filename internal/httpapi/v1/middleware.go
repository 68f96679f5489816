package v1

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	chi "github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/supaspend/ledger/internal/service/expense"
	"github.com/supaspend/ledger/internal/service/user"
	"github.com/supaspend/ledger/internal/service/wallet"
)

type ctxKey string

const (
	ctxKeyCreateUser    ctxKey = "validatedCreateUser"
	ctxKeyCreateWallet  ctxKey = "validatedCreateWallet"
	ctxKeyCreateExpense ctxKey = "validatedCreateExpense"
)

// validateCreateUser decodes POST /v1/users and stores user.CreateInput in the context.
func (s *Server) validateCreateUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req createUserRequest
		if _, ok := readJSON(w, r, &req); !ok {
			return
		}
		if strings.TrimSpace(req.Username) == "" {
			badRequest(w, "username is required")
			return
		}
		in := user.CreateInput{Username: req.Username, Role: req.Role, DisplayName: req.DisplayName, AvatarURL: req.AvatarURL}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), ctxKeyCreateUser, in)))
	})
}

// validateCreateWallet decodes POST /v1/users/{userID}/wallets.
func (s *Server) validateCreateWallet(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userID, ok := uuidParam(w, r, "userID")
		if !ok {
			return
		}
		var req createWalletRequest
		if _, ok := readJSON(w, r, &req); !ok {
			return
		}
		in := wallet.CreateInput{UserID: userID, Currency: req.Currency, Name: req.Name, IsDefault: req.IsDefault}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), ctxKeyCreateWallet, in)))
	})
}

// validateCreateExpense decodes POST /v1/expenses. The expense is always
// recorded for the caller.
func (s *Server) validateCreateExpense(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req createExpenseRequest
		if _, ok := readJSON(w, r, &req); !ok {
			return
		}
		if req.WalletID == uuid.Nil {
			badRequest(w, "wallet_id is required")
			return
		}
		in := expense.CreateInput{
			UserID:      actorFrom(r.Context()).ID,
			WalletID:    req.WalletID,
			Date:        req.Date,
			Amount:      req.Amount,
			Category:    req.Category,
			Description: req.Description,
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), ctxKeyCreateExpense, in)))
	})
}

// uuidParam parses a chi path parameter, writing 400 when it is not a UUID.
func uuidParam(w http.ResponseWriter, r *http.Request, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, name))
	if err != nil {
		badRequest(w, "invalid "+name)
		return uuid.Nil, false
	}
	return id, true
}

// limitParam reads ?limit=. Zero means the service default.
func limitParam(w http.ResponseWriter, r *http.Request) (int, bool) {
	raw := r.URL.Query().Get("limit")
	if raw == "" {
		return 0, true
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 {
		badRequest(w, "limit must be a positive integer")
		return 0, false
	}
	return n, true
}
