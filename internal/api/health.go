package api

import (
	"context"
	"net/http"
	"time"

	"github.com/Priya8975/event-registry/internal/version"
)

// HealthResponse represents the health check response.
type HealthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version"`
	Storage string `json:"storage"`
}

// Pinger reports whether the backing store is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthHandler returns the health check handler.
func HealthHandler(p Pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		resp := HealthResponse{
			Status:  "healthy",
			Version: version.Version,
			Storage: "ok",
		}
		status := http.StatusOK

		if err := p.Ping(ctx); err != nil {
			resp.Status = "unhealthy"
			resp.Storage = "unreachable"
			status = http.StatusServiceUnavailable
		}

		respondJSON(w, status, resp)
	}
}
