package v1

import (
	"context"
	"net/http"
	"time"

	"github.com/supaspend/ledger/internal/dictionary"
	"github.com/supaspend/ledger/internal/storage"
)

func (s *Server) healthz(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) }

// readyz pings the store and the idempotency backend when they support it.
func (s *Server) readyz(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 800*time.Millisecond)
	defer cancel()
	for _, dep := range []any{s.deps.Store, s.idem} {
		rc, ok := dep.(storage.ReadyChecker)
		if !ok {
			continue
		}
		if err := rc.Ready(ctx); err != nil {
			s.log.Warn("not ready", "err", err)
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
	}
	w.WriteHeader(http.StatusOK)
}

// GET /v1/dictionary/categories
func (s *Server) getCategories(w http.ResponseWriter, r *http.Request) {
	toJSON(w, http.StatusOK, struct {
		Items []dictionary.CategoryDef `json:"items"`
	}{Items: dictionary.Categories()})
}

// GET /v1/dictionary/currencies
func (s *Server) getCurrencies(w http.ResponseWriter, r *http.Request) {
	toJSON(w, http.StatusOK, struct {
		Items []dictionary.CurrencyDef `json:"items"`
	}{Items: dictionary.Currencies()})
}
