package main

import (
	"context"
	"log/slog"
	"net/http"
	"sync/atomic"
)

type Readyable interface {
	Ready(context.Context) error
}

type ReadyFunc func(context.Context) error

func (f ReadyFunc) Ready(ctx context.Context) error { return f(ctx) }

// readyOnce reports ready once every check has passed, then stops checking.
type readyOnce struct {
	done   atomic.Bool
	checks []Readyable
}

func (r *readyOnce) Ready(ctx context.Context) error {
	if r.done.Load() {
		return nil
	}
	for _, check := range r.checks {
		if err := check.Ready(ctx); err != nil {
			return err
		}
	}
	r.done.Store(true)
	return nil
}

func (r *readyOnce) Add(f ...Readyable) {
	r.checks = append(r.checks, f...)
}

func (r *readyOnce) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	if err := r.Ready(req.Context()); err != nil {
		http.Error(w, "not ready: "+err.Error(), http.StatusServiceUnavailable)
		return
	}
	if _, err := w.Write([]byte("OK")); err != nil {
		slog.ErrorContext(req.Context(), "failed to write readiness response", "error", err)
	}
}
