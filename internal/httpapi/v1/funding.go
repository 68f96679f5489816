package v1

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/supaspend/ledger/internal/idempotency"
	"github.com/supaspend/ledger/internal/ledger"
	"github.com/supaspend/ledger/internal/service/funding"
)

type fundingOp func(ctx context.Context, actor ledger.Actor, req funding.Request) (funding.Receipt, error)

// POST /v1/wallets/{walletID}/fund
func (s *Server) postFund(w http.ResponseWriter, r *http.Request) {
	s.postFunding(w, r, s.funding.Fund)
}

// POST /v1/wallets/{walletID}/withdraw
func (s *Server) postWithdraw(w http.ResponseWriter, r *http.Request) {
	s.postFunding(w, r, s.funding.Withdraw)
}

func (s *Server) postFunding(w http.ResponseWriter, r *http.Request, op fundingOp) {
	walletID, ok := uuidParam(w, r, "walletID")
	if !ok {
		return
	}
	var req fundRequest
	if _, ok := readJSON(w, r, &req); !ok {
		return
	}
	actor := actorFrom(r.Context())
	handle := func(w http.ResponseWriter) {
		receipt, err := op(r.Context(), actor, funding.Request{WalletID: walletID, Amount: req.Amount, Description: req.Description})
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		toJSON(w, http.StatusCreated, toReceiptResponse(receipt))
	}

	key := strings.TrimSpace(r.Header.Get(idempotencyHeader))
	if key == "" {
		handle(w)
		return
	}
	// Keys are scoped to the caller and the endpoint; the hash covers the
	// decoded request so formatting differences are not conflicts.
	norm, _ := json.Marshal(req)
	scoped := actor.ID.String() + ":" + r.URL.Path + ":" + key
	s.idempotent(w, r, scoped, idempotency.HashBytes(norm), handle)
}

// GET /v1/wallets/{walletID}/transactions?limit=
func (s *Server) listWalletTransactions(w http.ResponseWriter, r *http.Request) {
	walletID, ok := uuidParam(w, r, "walletID")
	if !ok {
		return
	}
	limit, ok := limitParam(w, r)
	if !ok {
		return
	}
	rows, err := s.funding.ListTransactions(r.Context(), actorFrom(r.Context()), walletID, limit)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeTransactions(w, rows)
}

// GET /v1/users/{userID}/transactions?limit=
func (s *Server) listUserTransactions(w http.ResponseWriter, r *http.Request) {
	userID, ok := uuidParam(w, r, "userID")
	if !ok {
		return
	}
	limit, ok := limitParam(w, r)
	if !ok {
		return
	}
	rows, err := s.funding.ListUserTransactions(r.Context(), actorFrom(r.Context()), userID, limit)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeTransactions(w, rows)
}

func writeTransactions(w http.ResponseWriter, rows []ledger.FundTransaction) {
	out := struct {
		Items []transactionResponse `json:"items"`
	}{Items: make([]transactionResponse, 0, len(rows))}
	for _, t := range rows {
		out.Items = append(out.Items, toTransactionResponse(t))
	}
	toJSON(w, http.StatusOK, out)
}
