package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Nzyazin/momopay/internal/core/logger"
	"github.com/Nzyazin/momopay/internal/server"
	"github.com/Nzyazin/momopay/pkg/config"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load("config.env")
	if err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}

	log, cleanup, err := logger.NewLogger(logger.Config{Level: cfg.Log.Level, Dir: cfg.Log.Dir})
	if err != nil {
		return fmt.Errorf("logger error: %w", err)
	}
	defer cleanup()

	log.Info("Configuration loaded",
		logger.StringField("target_environment", cfg.Momo.TargetEnvironment),
		logger.StringField("momo_base_url", cfg.Momo.BaseURL),
		logger.StringField("default_currency", cfg.Momo.DefaultCurrency))

	initCtx, initCancel := context.WithTimeout(context.Background(), 15*time.Second)
	srv, err := server.NewServer(initCtx, cfg, log)
	initCancel()
	if err != nil {
		log.Error("Failed to create server", logger.ErrorField("error", err))
		return err
	}

	serverErr := make(chan error, 1)
	go func() {
		if err := srv.Serve(cfg.Server); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	var runErr error
	select {
	case <-quit:
		log.Info("Shutting down server...")
	case runErr = <-serverErr:
		log.Error("Server failed", logger.ErrorField("error", runErr))
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Error("Server shutdown failed", logger.ErrorField("error", err))
		if runErr == nil {
			runErr = err
		}
	}

	if runErr != nil {
		return runErr
	}
	log.Info("Server exited properly")
	return nil
}
