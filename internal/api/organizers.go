package api

import (
	"log/slog"
	"net/http"

	"github.com/Priya8975/event-registry/internal/domain"
	"github.com/Priya8975/event-registry/internal/identity"
	"github.com/Priya8975/event-registry/internal/registry"
	"github.com/go-chi/chi/v5"
)

type OrganizerHandler struct {
	registry *registry.Registry
	logger   *slog.Logger
}

func NewOrganizerHandler(reg *registry.Registry, logger *slog.Logger) *OrganizerHandler {
	return &OrganizerHandler{registry: reg, logger: logger}
}

type addOrganizerResponse struct {
	Principal domain.Principal `json:"principal"`
	Added     bool             `json:"added"`
}

type organizerRoleResponse struct {
	Principal   domain.Principal `json:"principal"`
	IsOrganizer bool             `json:"is_organizer"`
	IsOwner     bool             `json:"is_owner"`
}

// Add grants organizer rights. Only the owner may call it.
func (h *OrganizerHandler) Add(w http.ResponseWriter, r *http.Request) {
	caller, _ := identity.PrincipalFrom(r.Context())

	var req domain.AddOrganizerRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	added, err := h.registry.AddEventOrganizer(r.Context(), caller, req.Principal)
	if err != nil {
		respondRegistryError(w, h.logger, err, "failed to add organizer")
		return
	}

	respondJSON(w, http.StatusOK, addOrganizerResponse{Principal: req.Principal, Added: added})
}

func (h *OrganizerHandler) List(w http.ResponseWriter, r *http.Request) {
	organizers, err := h.registry.ListOrganizers(r.Context())
	if err != nil {
		respondRegistryError(w, h.logger, err, "failed to list organizers")
		return
	}

	respondJSON(w, http.StatusOK, organizers)
}

func (h *OrganizerHandler) Get(w http.ResponseWriter, r *http.Request) {
	p := domain.Principal(chi.URLParam(r, "principal"))

	isOrganizer, isOwner, err := h.registry.RoleOf(r.Context(), p)
	if err != nil {
		respondRegistryError(w, h.logger, err, "failed to read organizer role")
		return
	}

	respondJSON(w, http.StatusOK, organizerRoleResponse{
		Principal:   p,
		IsOrganizer: isOrganizer,
		IsOwner:     isOwner,
	})
}
