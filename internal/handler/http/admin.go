package http

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/NurulloMahmud/tafakkur/internal/domain"
	"github.com/NurulloMahmud/tafakkur/internal/service"
	apperrors "github.com/NurulloMahmud/tafakkur/pkg/errors"
	"github.com/NurulloMahmud/tafakkur/pkg/httputil"
)

// AdminHandler exposes index maintenance to staff.
type AdminHandler struct {
	projector *service.Projector
	logger    *slog.Logger
}

// NewAdminHandler creates a new admin HTTP handler.
func NewAdminHandler(projector *service.Projector, logger *slog.Logger) *AdminHandler {
	return &AdminHandler{projector: projector, logger: logger}
}

// Bootstrap handles POST /api/v1/admin/search/bootstrap. It answers once
// every index has been rebuilt and refreshed.
func (h *AdminHandler) Bootstrap(w http.ResponseWriter, r *http.Request) {
	report, err := h.projector.Bootstrap(r.Context())
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: report})
}

// Project handles POST /api/v1/admin/search/{entity}/{id}/project
func (h *AdminHandler) Project(w http.ResponseWriter, r *http.Request) {
	entity, err := domain.ParseEntity(chi.URLParam(r, "entity"))
	if err != nil {
		httputil.WriteError(w, r, apperrors.InvalidInput(err.Error()), h.logger)
		return
	}
	id, ok := httputil.ParseUUID(w, chi.URLParam(r, "id"))
	if !ok {
		return
	}

	if err := h.projector.ProjectByID(r.Context(), entity, id.String()); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: map[string]string{
		"entity": string(entity),
		"id":     id.String(),
		"status": "projected",
	}})
}
