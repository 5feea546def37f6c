package http

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// ReadyCheck probes one backing dependency for the readiness endpoint.
type ReadyCheck struct {
	Name  string
	Check func(ctx context.Context) error
}

// NewRouter exposes the operational surface: liveness, readiness and
// Prometheus metrics. The event pipeline itself has no request/response API.
func NewRouter(logger *slog.Logger, checks []ReadyCheck) http.Handler {
	r := chi.NewRouter()

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	r.Get("/readyz", func(w http.ResponseWriter, req *http.Request) {
		ctx, cancel := context.WithTimeout(req.Context(), 5*time.Second)
		defer cancel()

		status := http.StatusOK
		results := make(map[string]string, len(checks))
		for _, check := range checks {
			if err := check.Check(ctx); err != nil {
				logger.Warn("readiness check failed", "dependency", check.Name, "error", err)
				results[check.Name] = err.Error()
				status = http.StatusServiceUnavailable
				continue
			}
			results[check.Name] = "ok"
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_ = json.NewEncoder(w).Encode(results)
	})

	r.Handle("/metrics", promhttp.Handler())

	return r
}
