package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"budgetplanner/internal/backend"
	"budgetplanner/internal/cli"
	"budgetplanner/internal/core"
	apphttp "budgetplanner/internal/http"
	"budgetplanner/internal/log"
	"budgetplanner/internal/rates"
	"budgetplanner/internal/session"
)

type pinger interface {
	Ping(ctx context.Context) error
}

func main() {
	cli.LoadEnvFile()

	cfg := cli.LoadAndValidateConfig(log.Default(log.ComponentApp))
	logger := cli.SetupLogger(cfg).WithComponent(log.ComponentApp)

	backendConfig, err := backend.FromAppConfig(cfg)
	if err != nil {
		logger.Error("Invalid backend configuration", "error", err)
		os.Exit(1)
	}
	res, err := backend.NewFactory(logger.WithComponent(log.ComponentBackend)).CreateBackend(context.Background(), backendConfig)
	if err != nil {
		logger.Error("Failed to create backend", "error", err, "backend", cfg.DataBackend)
		os.Exit(1)
	}

	clock := core.SystemClock{}
	rateStore := rates.NewStore(
		rates.NewHTTPProvider(cfg.RatesAPIURL, cfg.RatesHTTPTimeout),
		rates.WithClock(clock),
		rates.WithStaleAfter(cfg.RatesStaleAfter),
		rates.WithRetry(cfg.RatesMaxRetries, 500*time.Millisecond),
	)

	opts := []session.Option{
		session.WithClock(clock),
		session.WithStore(res.Store),
		session.WithLogger(logger.WithComponent(log.ComponentSession)),
	}
	if res.Publisher != nil {
		opts = append(opts, session.WithPublisher(res.Publisher))
	}
	sess := session.New(rateStore, opts...)
	if err := sess.Load(context.Background()); err != nil {
		logger.Error("Failed to load budget", "error", err)
		os.Exit(1)
	}

	srv := apphttp.NewServer(":"+cfg.Port, sess,
		apphttp.WithLogger(logger.WithComponent(log.ComponentHTTP)),
		apphttp.WithClock(clock),
		apphttp.WithReadinessCheck(func(ctx context.Context) error {
			if p, ok := res.Store.(pinger); ok {
				return p.Ping(ctx)
			}
			return nil
		}),
	)

	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, func(ctx context.Context) {
		if err := srv.Shutdown(ctx); err != nil {
			logger.Error("Server shutdown error", "error", err)
		}
		if err := sess.Save(ctx); err != nil {
			logger.Error("Failed to save budget on shutdown", "error", err)
		}
		if err := res.Cleanup(); err != nil {
			logger.Error("Backend cleanup error", "error", err)
		}
	})

	go refreshRates(ctx, sess, cfg.RatesCheckInterval, logger.WithComponent(log.ComponentRates))

	logger.Info("Starting budget planner", "port", cfg.Port, "backend", cfg.DataBackend, "amqp", res.Publisher != nil)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("Server error", "error", err, "port", cfg.Port)
		os.Exit(1)
	}

	cli.WaitForShutdown(ctx, done)
	logger.Info("Server stopped gracefully")
}

// refreshRates refreshes stale exchange rates at startup and then on every
// tick until ctx is cancelled.
func refreshRates(ctx context.Context, sess *session.Session, every time.Duration, logger *log.Logger) {
	if sess.RefreshRatesIfStale(ctx) {
		logger.Info("Exchange rates refreshed at startup")
	}

	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if sess.RefreshRatesIfStale(ctx) {
				logger.Debug("Exchange rates refreshed")
			}
		}
	}
}
