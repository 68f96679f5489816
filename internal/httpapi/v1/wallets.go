package v1

import (
	"net/http"

	"github.com/supaspend/ledger/internal/errs"
	"github.com/supaspend/ledger/internal/service/wallet"
)

// GET /v1/users/{userID}/wallets lists wallets with their balances.
func (s *Server) listWallets(w http.ResponseWriter, r *http.Request) {
	userID, ok := uuidParam(w, r, "userID")
	if !ok {
		return
	}
	list, err := s.balances.WalletBalances(r.Context(), actorFrom(r.Context()), userID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	out := struct {
		Items []walletResponse `json:"items"`
	}{Items: make([]walletResponse, 0, len(list))}
	for _, wb := range list {
		out.Items = append(out.Items, toWalletBalanceResponse(wb))
	}
	toJSON(w, http.StatusOK, out)
}

// POST /v1/users/{userID}/wallets
func (s *Server) postWallet(w http.ResponseWriter, r *http.Request) {
	in, _ := r.Context().Value(ctxKeyCreateWallet).(wallet.CreateInput)
	created, err := s.wallets.Create(r.Context(), actorFrom(r.Context()), in)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	toJSON(w, http.StatusCreated, toWalletResponse(created))
}

// POST /v1/users/{userID}/wallets/{walletID}/default
func (s *Server) setDefaultWallet(w http.ResponseWriter, r *http.Request) {
	userID, ok := uuidParam(w, r, "userID")
	if !ok {
		return
	}
	walletID, ok := uuidParam(w, r, "walletID")
	if !ok {
		return
	}
	if err := s.wallets.SetDefault(r.Context(), actorFrom(r.Context()), userID, walletID); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// PATCH /v1/wallets/{walletID} renames a wallet. The default flag moves only
// through the default endpoint.
func (s *Server) patchWallet(w http.ResponseWriter, r *http.Request) {
	walletID, ok := uuidParam(w, r, "walletID")
	if !ok {
		return
	}
	var req patchWalletRequest
	if _, ok := readJSON(w, r, &req); !ok {
		return
	}
	if req.Name == nil {
		s.writeError(w, r, errs.Wrap(errs.ErrInvalid, "nothing to update"))
		return
	}
	updated, err := s.wallets.Rename(r.Context(), actorFrom(r.Context()), walletID, *req.Name)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	toJSON(w, http.StatusOK, toWalletResponse(updated))
}

// DELETE /v1/wallets/{walletID}
func (s *Server) deleteWallet(w http.ResponseWriter, r *http.Request) {
	walletID, ok := uuidParam(w, r, "walletID")
	if !ok {
		return
	}
	if err := s.wallets.Delete(r.Context(), actorFrom(r.Context()), walletID); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// GET /v1/wallets/{walletID}/balance
func (s *Server) getBalance(w http.ResponseWriter, r *http.Request) {
	walletID, ok := uuidParam(w, r, "walletID")
	if !ok {
		return
	}
	bal, err := s.balances.Balance(r.Context(), actorFrom(r.Context()), walletID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	toJSON(w, http.StatusOK, toBalanceResponse(walletID, bal))
}
