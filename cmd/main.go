package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/supaspend/ledger/db"
	"github.com/supaspend/ledger/internal/config"
	httpapi "github.com/supaspend/ledger/internal/httpapi/v1"
	"github.com/supaspend/ledger/internal/idempotency"
	"github.com/supaspend/ledger/internal/ledger"
	"github.com/supaspend/ledger/internal/service"
	"github.com/supaspend/ledger/internal/service/wallet"
	"github.com/supaspend/ledger/internal/storage"
	"github.com/supaspend/ledger/internal/storage/memory"
	pgstore "github.com/supaspend/ledger/internal/storage/postgres"
	"github.com/supaspend/ledger/internal/storage/sqlite"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, "config:", err)
		os.Exit(1)
	}
	logger := cfg.Logger()
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, closeStore, err := openStore(ctx, cfg)
	if err != nil {
		logger.Error("failed to open store", "backend", cfg.Backend(), "err", err)
		os.Exit(1)
	}
	defer closeStore()
	logger.Info("storage backend: " + cfg.Backend())

	idem, closeIdem := openIdempotency(ctx, cfg, logger)
	defer closeIdem()

	deps := service.Deps{Store: store, Log: logger, Timeout: cfg.StoreTimeout}
	auth := httpapi.AuthConfig{Secret: cfg.JWT.Secret, Issuer: cfg.JWT.Issuer, Audience: cfg.JWT.Audience}
	if auth.Secret == "" {
		logger.Warn("JWT_HS256_SECRET not set; trusting the X-Actor-ID header")
	}
	if cfg.DevSeed {
		if err := devSeed(ctx, deps, auth, logger); err != nil {
			logger.Error("dev seed failed", "err", err)
		}
	}

	api := httpapi.New(httpapi.Options{
		Deps:           deps,
		Idempotency:    idem,
		Auth:           auth,
		AllowedOrigins: cfg.CORSAllowedOrigins,
		Logger:         logger,
	})
	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           api.Handler(),
		ReadTimeout:       5 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("supaspend ledger listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		ctxShutdown, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(ctxShutdown); err != nil {
			logger.Error("server shutdown error", "err", err)
		}
	case err := <-errCh:
		logger.Error("server error", "err", err)
	}
}

// openStore picks Postgres, then SQLite, then memory.
func openStore(ctx context.Context, cfg config.Config) (storage.Store, func(), error) {
	switch cfg.Backend() {
	case "postgres":
		pg, err := pgstore.Open(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, nil, err
		}
		script, err := db.Script()
		if err == nil {
			err = pg.Migrate(ctx, script)
		}
		if err != nil {
			pg.Close()
			return nil, nil, fmt.Errorf("migrate: %w", err)
		}
		return pg, pg.Close, nil
	case "sqlite":
		s, err := sqlite.New(cfg.SQLitePath)
		if err != nil {
			return nil, nil, err
		}
		return s, func() { _ = s.Close() }, nil
	}
	return memory.New(), func() {}, nil
}

// openIdempotency uses Redis when configured and reachable, else process memory.
func openIdempotency(ctx context.Context, cfg config.Config, logger *slog.Logger) (idempotency.Store, func()) {
	if cfg.Redis.Addr == "" {
		return idempotency.NewMemory(cfg.IdempotencyTTL), func() {}
	}
	rdb := redis.NewClient(&redis.Options{Addr: cfg.Redis.Addr, Password: cfg.Redis.Password, DB: cfg.Redis.DB})
	pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		logger.Warn("redis unreachable; idempotency keys kept in memory", "addr", cfg.Redis.Addr, "err", err)
		_ = rdb.Close()
		return idempotency.NewMemory(cfg.IdempotencyTTL), func() {}
	}
	logger.Info("idempotency backend: redis", "addr", cfg.Redis.Addr)
	return idempotency.NewRedis(rdb, cfg.IdempotencyTTL), func() { _ = rdb.Close() }
}

// devSeed ensures a superadmin with a default USD wallet and prints how to
// call the API as them.
func devSeed(ctx context.Context, d service.Deps, auth httpapi.AuthConfig, logger *slog.Logger) error {
	admin, err := storage.EnsureSuperadmin(ctx, d.Store, "admin", time.Now().UTC())
	if err != nil {
		return err
	}
	wallets := wallet.New(d)
	existing, err := wallets.List(ctx, admin.Actor(), admin.ID)
	if err != nil {
		return err
	}
	if len(existing) == 0 {
		if _, err := wallets.Create(ctx, admin.Actor(), wallet.CreateInput{UserID: admin.ID, Currency: string(ledger.CurrencyUSD), Name: "Main"}); err != nil {
			return err
		}
	}
	logger.Info("DEV seed", "user_id", admin.ID.String(), "username", admin.Username)

	fmt.Println("==================== DEV SEED ====================")
	fmt.Printf("superadmin user_id: %s\n", admin.ID)
	if auth.Secret != "" {
		tok, err := httpapi.IssueToken(auth, admin.ID, 24*time.Hour)
		if err != nil {
			return err
		}
		fmt.Printf("Authorization: Bearer %s\n", tok)
	} else {
		fmt.Printf("X-Actor-ID: %s\n", admin.ID)
	}
	fmt.Println("==================================================")
	return nil
}
