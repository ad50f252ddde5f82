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

	"credit-circuit/config"
	"credit-circuit/handler"
	"credit-circuit/logging"
	"credit-circuit/simulation"
	"credit-circuit/storage"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}
	logger := logging.New(cfg.Logging)

	// Setup signal handling for graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("exiting", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg config.Config, logger *slog.Logger) error {
	var store storage.Store
	if cfg.Database.URL != "" {
		pg, err := storage.NewPostgresStore(ctx, cfg.Database.URL)
		if err != nil {
			return fmt.Errorf("initialize database: %w", err)
		}
		defer pg.Close()
		logger.Info("database connection established")
		store = pg
	} else {
		logger.Info("DATABASE_URL not set, keeping reports in memory")
		store = storage.NewMemoryStore()
	}

	circuit, err := simulation.New(simulation.Config{
		Seed:       cfg.Simulation.Seed,
		Firms:      cfg.Simulation.Firms,
		Households: cfg.Simulation.Households,
		Banks:      cfg.Simulation.Banks,
		Params:     cfg.Simulation.Params,
		Logger:     logger,
	}, store)
	if err != nil {
		return err
	}

	router := handler.NewRouter(logger, handler.RouterDependencies{
		Reports:  handler.NewReportHandler(store, logger),
		Accounts: handler.NewAccountHandler(circuit, logger),
		Shocks:   handler.NewShockHandler(circuit, logger),
	})
	server := &http.Server{
		Addr:    cfg.HTTP.Addr,
		Handler: router,
	}

	serverErr := make(chan error, 1)
	go func() {
		logger.Info("starting server", "addr", cfg.HTTP.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	go func() {
		logger.Info("simulation started",
			"seed", cfg.Simulation.Seed,
			"periods", cfg.Simulation.Periods,
			"banks", len(cfg.Simulation.Banks),
		)
		err := circuit.Run(ctx, cfg.Simulation.Periods)
		switch {
		case errors.Is(err, context.Canceled):
			logger.Info("simulation interrupted", "period", circuit.Period())
		case err != nil:
			// a protocol violation ends the run; reports stay served
			logger.Error("simulation stopped", "period", circuit.Period(), "error", err)
		default:
			logger.Info("simulation finished", "period", circuit.Period())
		}
	}()

	// Wait for shutdown signal
	select {
	case <-ctx.Done():
	case err := <-serverErr:
		return fmt.Errorf("listen: %w", err)
	}
	logger.Info("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}
	logger.Info("server gracefully stopped")
	return nil
}
