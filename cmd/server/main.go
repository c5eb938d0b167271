package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/guileen/finledger/auth"
	"github.com/guileen/finledger/config"
	"github.com/guileen/finledger/idgen"
	"github.com/guileen/finledger/logger"
	"github.com/guileen/finledger/protocol/api"
	"github.com/guileen/finledger/storage"
	"github.com/guileen/finledger/store"
)

func main() {
	configPath := flag.String("config", os.Getenv("FINLEDGER_CONFIG"), "path to a YAML config file")
	flag.Parse()

	if err := run(*configPath); err != nil {
		logger.Error("server stopped", logger.ErrorField(err))
		os.Exit(1)
	}
}

func run(configPath string) error {
	startTime := time.Now()
	logger.Configure(logger.LoadConfig())

	cfg, err := config.LoadServerConfig(configPath)
	if err != nil {
		return err
	}
	logger.Info("Starting finledger server",
		logger.String("addr", cfg.Addr()),
		logger.String("store", cfg.Store.Driver))

	ids, err := idgen.NewIDGenerator(cfg.Store.MachineID)
	if err != nil {
		return err
	}

	st, err := openStore(context.Background(), cfg.Store, ids)
	if err != nil {
		return err
	}
	defer func() {
		if err := st.Close(); err != nil {
			logger.Warn("Failed to close store", logger.ErrorField(err))
		}
	}()

	mailer, err := auth.NewMailer(cfg.SMTP)
	if err != nil {
		return err
	}
	authService, err := auth.NewService(st, ids, mailer, cfg.Auth)
	if err != nil {
		return err
	}

	router := api.NewRouter(api.NewRESTHandler(st, authService), cfg.AllowedOrigin)
	server := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("HTTP server listening", logger.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()
	logger.Info("HTTP server initialized", logger.Duration("init_duration", time.Since(startTime)))

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	select {
	case err := <-errCh:
		return err
	case sig := <-sigChan:
		logger.Info("Shutting down HTTP server", logger.String("signal", sig.String()))
	}

	shutdownStart := time.Now()
	ctx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		return err
	}
	logger.Info("HTTP server shutdown complete", logger.Duration("shutdown_duration", time.Since(shutdownStart)))
	return nil
}

// openStore builds the record store the config selects.
func openStore(ctx context.Context, cfg config.StoreConfig, ids idgen.IDGeneratorInterface) (store.Store, error) {
	switch cfg.Driver {
	case config.DriverPostgres:
		logger.Info("Connecting to PostgreSQL")
		pg, err := store.NewPGStore(ctx, cfg.DSN, ids)
		if err != nil {
			return nil, err
		}
		return pg, nil
	default:
		logger.Info("Opening Pebble store", logger.String("path", cfg.PebblePath))
		kv, err := storage.NewPebbleKV(storage.DefaultPebbleConfig(cfg.PebblePath))
		if err != nil {
			return nil, err
		}
		return store.NewKVStore(kv, ids), nil
	}
}
