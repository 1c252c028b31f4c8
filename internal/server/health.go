package server

import (
	"context"
	"log/slog"
	"net/http"
	"time"
)

// Checker reports whether a backing dependency is reachable.
type Checker interface {
	Check(ctx context.Context) error
}

// CheckFunc adapts a function to Checker.
type CheckFunc func(ctx context.Context) error

func (f CheckFunc) Check(ctx context.Context) error { return f(ctx) }

type HealthCheck struct {
	Status string `json:"status"`
}

// HealthResponse maps dependency names to their status.
type HealthResponse map[string]HealthCheck

func handleHealth(logger *slog.Logger, checks map[string]Checker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
		defer cancel()

		resp := make(HealthResponse, len(checks))
		status := http.StatusOK

		for name, c := range checks {
			if err := c.Check(ctx); err != nil {
				logger.Error("health check failed", "name", name, "error", err)
				resp[name] = HealthCheck{Status: "error"}
				status = http.StatusServiceUnavailable
				continue
			}
			resp[name] = HealthCheck{Status: "ok"}
		}

		writeJSON(w, status, resp)
	}
}
