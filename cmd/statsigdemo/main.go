// Command statsigdemo is a minimal embedding example for the statsig
// package: config.Load -> build components -> start servers -> signal-based
// graceful shutdown, reduced to what an embedded SDK actually needs: no
// client-facing API server, just the optional operator control plane.
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/TimurManjosov/goflagship/internal/config"
	"github.com/TimurManjosov/goflagship/internal/controlplane"
	"github.com/TimurManjosov/goflagship/internal/statsig"
	"github.com/TimurManjosov/goflagship/internal/statsiguser"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	cfg, err := config.Load()
	if err != nil {
		logger.Error("config load failed", "error", err)
		os.Exit(1)
	}

	sdk, err := statsig.New(cfg)
	if err != nil {
		logger.Error("statsig: failed to construct facade", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := sdk.Initialize(ctx); err != nil {
		logger.Warn("statsig: initialize did not reach a fresh ruleset, continuing with defaults", "error", err)
	} else {
		logger.Info("statsig: initialized")
	}

	gate, err := controlplane.NewTokenGate(os.Getenv("STATSIG_CONTROL_PLANE_TOKEN"))
	if err != nil {
		logger.Error("controlplane: failed to build token gate", "error", err)
		os.Exit(1)
	}
	cpSrv := &http.Server{
		Addr:         ":9090",
		Handler:      controlplane.New(sdk.Store(), gate, nil).Router(),
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 5 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	go func() {
		logger.Info("controlplane: listening", "addr", cpSrv.Addr)
		if err := cpSrv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			logger.Error("controlplane: server error", "error", err)
		}
	}()

	user := statsiguser.New("example-user-1")
	if sdk.CheckGate(user, "example_gate") {
		logger.Info("example_gate passed for example-user-1")
	} else {
		logger.Info("example_gate did not pass for example-user-1")
	}

	<-ctx.Done()
	logger.Info("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := cpSrv.Shutdown(shutdownCtx); err != nil {
		logger.Error("controlplane: shutdown error", "error", err)
	}
	if err := sdk.Shutdown(shutdownCtx); err != nil {
		logger.Error("statsig: shutdown error", "error", err)
	}
	logger.Info("shutdown complete")
}
