package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"refrigee/internal/inventory"
	"refrigee/internal/service"
)

func newMux(a *app) *http.ServeMux {
	mux := http.NewServeMux()
	service.NewHandler(a.manager).Register(mux)
	inventory.NewHandler(a.inventory, a.manager).Register(mux)

	ro := &readyOnce{}
	ro.Add(ReadyFunc(func(ctx context.Context) error {
		if _, err := a.cache.List(ctx, "", ""); err != nil {
			return fmt.Errorf("storage unavailable: %w", err)
		}
		return nil
	}))
	ro.Add(ReadyFunc(func(ctx context.Context) error {
		_, err := a.settings.Config(ctx)
		return err
	}))
	mux.Handle("GET /ready", ro)
	return mux
}

func runServer(a *app, addr string) error {
	server := &http.Server{
		Addr:              addr,
		Handler:           WithMiddleware(newMux(a)),
		ReadHeaderTimeout: 10 * time.Second,
	}

	serverErrors := make(chan error, 1)
	go func() {
		slog.Info("Serving Refrigee", "address", addr, "provider", a.manager.CurrentProvider(context.Background()).ID)
		serverErrors <- server.ListenAndServe()
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		if err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	case sig := <-shutdown:
		slog.Info("Shutdown signal received", "signal", sig)
		return gracefulShutdown(server)
	}
}

func gracefulShutdown(svr *http.Server) error {
	// provider calls can take up to the request timeout; give them most of a k8s grace period
	ctx, cancel := context.WithTimeout(context.Background(), 25*time.Second)
	defer cancel()

	if err := svr.Shutdown(ctx); err != nil {
		slog.Error("Server shutdown error", "error", err)
		if closeErr := svr.Close(); closeErr != nil {
			slog.Error("Server close error", "error", closeErr)
		}
		return err
	}
	return nil
}
