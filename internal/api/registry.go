package api

import (
	"log/slog"
	"net/http"

	"github.com/Priya8975/event-registry/internal/registry"
)

type RegistryHandler struct {
	registry *registry.Registry
	logger   *slog.Logger
}

func NewRegistryHandler(reg *registry.Registry, logger *slog.Logger) *RegistryHandler {
	return &RegistryHandler{registry: reg, logger: logger}
}

// State returns the owner, the event counter, and aggregate counts.
func (h *RegistryHandler) State(w http.ResponseWriter, r *http.Request) {
	stats, err := h.registry.Stats(r.Context())
	if err != nil {
		respondRegistryError(w, h.logger, err, "failed to get registry state")
		return
	}

	respondJSON(w, http.StatusOK, stats)
}
