package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/boddenberg/console-bank-go/internal/config"
	"github.com/boddenberg/console-bank-go/internal/console"
	"github.com/boddenberg/console-bank-go/internal/domain"
	"github.com/boddenberg/console-bank-go/internal/handler"
	"github.com/boddenberg/console-bank-go/internal/infra/memory"
	"github.com/boddenberg/console-bank-go/internal/infra/observability"
	"github.com/boddenberg/console-bank-go/internal/infra/resilience"
	"github.com/boddenberg/console-bank-go/internal/service"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

func main() {
	// --- Load .env file (for local development) ---
	_ = config.LoadDotEnv(".env")

	// --- Config ---
	cfg := config.Load()

	// --- Logger ---
	logger := observability.NewLogger(cfg.LogLevel, cfg.LogOutput)
	defer logger.Sync()

	logger.Info("configuration loaded",
		zap.String("log_level", cfg.LogLevel),
		zap.String("log_output", cfg.LogOutput),
		zap.Int("http_port", cfg.HTTPPort),
		zap.Int("max_concurrency", cfg.MaxConcurrency),
		zap.Duration("idempotency_ttl", cfg.IdempotencyTTL),
		zap.Duration("shutdown_timeout", cfg.ShutdownTimeout),
	)

	// --- Tracing ---
	shutdown, err := observability.InitTracer(cfg.OTLPEndpoint, "console-bank")
	if err != nil {
		logger.Fatal("failed to init tracer", zap.Error(err))
	}
	defer shutdown(context.Background())

	// --- Metrics ---
	metrics := observability.NewMetrics()

	// --- Stores ---
	accounts := memory.NewAccountStore()
	ledger := memory.NewTransactionLog()

	// --- Services ---
	bankSvc := service.NewBankService(accounts, ledger, metrics, logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, bankSvc, metrics, logger, os.Stdin, os.Stdout); err != nil {
		var dup *domain.ErrDuplicateAccount
		if errors.As(err, &dup) {
			logger.Error("account number collision, stopping", zap.String("account_number", dup.AccountNumber))
		}
		logger.Error("bank stopped with error", zap.Error(err))
		_ = logger.Sync()
		os.Exit(1)
	}

	logger.Info("bank stopped")
}

// run drives the console and, when enabled, the HTTP API. Without the HTTP
// API the process ends with the console session. With it, the API keeps
// serving after the console ends (stdin closed or exit chosen) and stops
// only when ctx is cancelled or a component fails.
func run(ctx context.Context, cfg *config.Config, bankSvc *service.BankService, metrics *observability.Metrics, logger *zap.Logger, in io.Reader, out io.Writer) error {
	g, ctx := errgroup.WithContext(ctx)

	// --- Console ---
	g.Go(func() error {
		if err := console.New(bankSvc, in, out, logger).Run(ctx); err != nil {
			return err
		}
		if cfg.HTTPEnabled() && ctx.Err() == nil {
			logger.Info("console session ended, HTTP API keeps serving until shutdown signal")
		}
		return nil
	})

	if !cfg.HTTPEnabled() {
		logger.Info("HTTP API disabled")
		return g.Wait()
	}

	// --- Idempotency cache & bulkhead ---
	replay := handler.NewReplayCache(cfg.IdempotencyTTL)
	defer replay.Close()
	bulkhead := resilience.NewBulkhead(cfg.MaxConcurrency)

	// --- Router ---
	router := handler.NewRouter(bankSvc, replay, bulkhead, metrics, logger)

	// --- Server ---
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	g.Go(func() error {
		logger.Info("server starting", zap.Int("port", cfg.HTTPPort))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	// --- Graceful shutdown ---
	g.Go(func() error {
		<-ctx.Done()
		logger.Info("server shutting down...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server forced shutdown: %w", err)
		}
		logger.Info("server stopped")
		return nil
	})

	return g.Wait()
}
