// Package v1 wires the HTTP surface of the SupaSpend ledger.
// Handlers stay thin and delegate every rule to the service layer.
package v1

import (
	"log/slog"
	"net/http"

	chi "github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/supaspend/ledger/internal/idempotency"
	"github.com/supaspend/ledger/internal/service"
	"github.com/supaspend/ledger/internal/service/balance"
	"github.com/supaspend/ledger/internal/service/expense"
	"github.com/supaspend/ledger/internal/service/funding"
	"github.com/supaspend/ledger/internal/service/user"
	"github.com/supaspend/ledger/internal/service/wallet"
)

// Options configure the server. Deps is required; the rest have defaults.
type Options struct {
	Deps        service.Deps
	Idempotency idempotency.Store
	Auth        AuthConfig
	// AllowedOrigins enables CORS for the web UI. Empty disables it.
	AllowedOrigins []string
	Logger         *slog.Logger
}

// Server wires handlers and middleware using Chi.
type Server struct {
	users    user.Service
	wallets  wallet.Service
	balances balance.Service
	funding  funding.Service
	expenses expense.Service

	deps      service.Deps
	idem      idempotency.Store
	idemLocks keyLocks
	auth      AuthConfig
	log       *slog.Logger
	rt        *chi.Mux
}

// New constructs the HTTP server with routes and middleware.
func New(opts Options) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = opts.Deps.Normalize().Log
	}
	d := opts.Deps
	d.Log = logger
	d = d.Normalize()
	idem := opts.Idempotency
	if idem == nil {
		idem = idempotency.NewMemory(0)
	}

	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(requestLogger(logger))
	r.Use(recoverer(logger))
	r.Use(metricsMiddleware)
	if len(opts.AllowedOrigins) > 0 {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins:   opts.AllowedOrigins,
			AllowedMethods:   []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
			AllowedHeaders:   []string{"Authorization", "Content-Type", "Idempotency-Key", actorHeader},
			ExposedHeaders:   []string{"X-Request-Id"},
			AllowCredentials: true,
			MaxAge:           300,
		}))
	}

	s := &Server{
		users:    user.New(d),
		wallets:  wallet.New(d),
		balances: balance.New(d),
		funding:  funding.New(d),
		expenses: expense.New(d),
		deps:     d,
		idem:     idem,
		auth:     opts.Auth,
		log:      logger,
		rt:       r,
	}
	s.routes()
	return s
}

// Handler exposes the configured http.Handler.
func (s *Server) Handler() http.Handler { return s.rt }

func (s *Server) routes() {
	// Ops and dictionaries (unauthenticated)
	s.rt.Get("/healthz", s.healthz)
	s.rt.Get("/readyz", s.readyz)
	s.rt.Handle("/metrics", metricsHandler())
	s.rt.Get("/v1/dictionary/categories", s.getCategories)
	s.rt.Get("/v1/dictionary/currencies", s.getCurrencies)

	s.rt.Group(func(r chi.Router) {
		r.Use(s.authenticate)

		r.Get("/v1/me", s.getMe)

		// Users
		r.With(s.validateCreateUser).Post("/v1/users", s.postUser)
		r.Get("/v1/users", s.listUsers)
		r.Delete("/v1/users/{userID}", s.deleteUser)
		r.Get("/v1/users/{userID}/wallets", s.listWallets)
		r.With(s.validateCreateWallet).Post("/v1/users/{userID}/wallets", s.postWallet)
		r.Post("/v1/users/{userID}/wallets/{walletID}/default", s.setDefaultWallet)
		r.Get("/v1/users/{userID}/transactions", s.listUserTransactions)
		r.Get("/v1/users/{userID}/expenses", s.listExpenses)

		// Wallets
		r.Patch("/v1/wallets/{walletID}", s.patchWallet)
		r.Delete("/v1/wallets/{walletID}", s.deleteWallet)
		r.Get("/v1/wallets/{walletID}/balance", s.getBalance)
		r.Post("/v1/wallets/{walletID}/fund", s.postFund)
		r.Post("/v1/wallets/{walletID}/withdraw", s.postWithdraw)
		r.Get("/v1/wallets/{walletID}/transactions", s.listWalletTransactions)

		// Expenses
		r.With(s.validateCreateExpense).Post("/v1/expenses", s.postExpense)
		r.Patch("/v1/expenses/{expenseID}", s.patchExpense)
		r.Delete("/v1/expenses/{expenseID}", s.deleteExpense)
		r.Get("/v1/expenses/{expenseID}/history", s.getExpenseHistory)
	})
}
