package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"

	"fintrack/internal/api"
	"fintrack/internal/config"
	"fintrack/internal/coordinator"
	"fintrack/internal/ledger"
	"fintrack/internal/ledger/memory"
	"fintrack/internal/ledger/sqlite"
	"fintrack/internal/log"
	"fintrack/internal/remote"
	"fintrack/internal/remote/amqpbus"
	"fintrack/internal/remote/membus"
)

func main() {
	// .env is optional; real deployments configure through the environment.
	_ = godotenv.Load()

	cfg := config.Load()
	logger := log.New(log.Config{Level: cfg.LogLevel})
	log.SetDefault(logger)

	if err := cfg.Validate(); err != nil {
		logger.Error("Configuration validation failed", "error", err)
		os.Exit(1)
	}

	var base ledger.Store
	switch cfg.LedgerBackend {
	case "sqlite":
		repo, err := sqlite.NewRepository(cfg.SQLiteDBPath)
		if err != nil {
			logger.Error("Failed to initialize SQLite ledger", "error", err, "path", cfg.SQLiteDBPath)
			os.Exit(1)
		}
		defer repo.Close()
		base = repo
	default:
		base = memory.New()
	}
	logger.Info("Initialized ledger backend", "backend", cfg.LedgerBackend)

	var (
		bus  remote.Bus
		pump func(context.Context) error
	)
	switch cfg.SnapshotBus {
	case "amqp":
		b, err := amqpbus.New(cfg.AMQPURL, cfg.AMQPExchange)
		if err != nil {
			logger.Error("Failed to connect snapshot bus", "error", err, "exchange", cfg.AMQPExchange)
			os.Exit(1)
		}
		defer b.Close()
		bus = b
	default:
		mb := membus.New()
		bus = mb
		pump = mb.Run
	}
	logger.Info("Initialized snapshot bus", "bus", cfg.SnapshotBus)

	store := ledger.NewEchoing(base, bus)
	sessions := coordinator.NewSessions(store, bus)
	defer sessions.Close()

	srv := api.NewServer(":"+cfg.Port, sessions, cfg.DefaultOwner, logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("Starting fintrack server", "port", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	})
	if pump != nil {
		g.Go(func() error {
			if err := pump(ctx); !errors.Is(err, context.Canceled) {
				return err
			}
			return nil
		})
	}
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		logger.Error("Server error", "error", err)
		os.Exit(1)
	}
	logger.Info("Server stopped gracefully")
}
