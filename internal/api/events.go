package api

import (
	"log/slog"
	"net/http"

	"github.com/Priya8975/event-registry/internal/domain"
	"github.com/Priya8975/event-registry/internal/identity"
	"github.com/Priya8975/event-registry/internal/registry"
)

type EventHandler struct {
	registry *registry.Registry
	logger   *slog.Logger
}

func NewEventHandler(reg *registry.Registry, logger *slog.Logger) *EventHandler {
	return &EventHandler{registry: reg, logger: logger}
}

type verifyEventResponse struct {
	ID       int64 `json:"id"`
	Verified bool  `json:"verified"`
}

// Create registers a new event organized by the caller.
func (h *EventHandler) Create(w http.ResponseWriter, r *http.Request) {
	caller, _ := identity.PrincipalFrom(r.Context())

	var req domain.RegisterEventRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	id, err := h.registry.RegisterEvent(r.Context(), caller, req.Name, req.Venue, req.Date)
	if err != nil {
		respondRegistryError(w, h.logger, err, "failed to register event")
		return
	}

	respondJSON(w, http.StatusCreated, domain.RegisterEventResponse{ID: id})
}

func (h *EventHandler) Verify(w http.ResponseWriter, r *http.Request) {
	caller, _ := identity.PrincipalFrom(r.Context())

	id, ok := eventIDParam(w, r)
	if !ok {
		return
	}

	verified, err := h.registry.VerifyEvent(r.Context(), caller, id)
	if err != nil {
		respondRegistryError(w, h.logger, err, "failed to verify event")
		return
	}

	respondJSON(w, http.StatusOK, verifyEventResponse{ID: id, Verified: verified})
}

// Verified reports the verification flag. Unknown ids answer false, not 404.
func (h *EventHandler) Verified(w http.ResponseWriter, r *http.Request) {
	id, ok := eventIDParam(w, r)
	if !ok {
		return
	}

	verified, err := h.registry.IsEventVerified(r.Context(), id)
	if err != nil {
		respondRegistryError(w, h.logger, err, "failed to read event status")
		return
	}

	respondJSON(w, http.StatusOK, verifyEventResponse{ID: id, Verified: verified})
}

func (h *EventHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := eventIDParam(w, r)
	if !ok {
		return
	}

	event, err := h.registry.GetEvent(r.Context(), id)
	if err != nil {
		respondRegistryError(w, h.logger, err, "failed to get event")
		return
	}

	respondJSON(w, http.StatusOK, event)
}
