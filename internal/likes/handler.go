package likes

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/lumen-lms/lumen-lms/internal/platform/httpx"
	"github.com/lumen-lms/lumen-lms/internal/shared"
)

// Handler exposes the toggle API.
type Handler struct {
	logger  *slog.Logger
	service *Service
}

// NewHandler constructs a Handler.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service}
}

// MountRoutes attaches like routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Post("/{kind}/{id}/toggle", h.toggle)
	r.Get("/{kind}/{id}", h.status)
}

func (h *Handler) toggle(w http.ResponseWriter, r *http.Request) {
	actor := shared.ActorFromContext(r.Context())
	if actor == nil {
		httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "")
		return
	}
	kind := TargetKind(chi.URLParam(r, "kind"))
	if !kind.Valid() {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "unknown target kind")
		return
	}
	result, err := h.service.Toggle(r.Context(), *actor, chi.URLParam(r, "id"), kind)
	if err != nil {
		h.logger.Error("toggle like", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, result)
}

func (h *Handler) status(w http.ResponseWriter, r *http.Request) {
	actor := shared.ActorFromContext(r.Context())
	if actor == nil {
		httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "")
		return
	}
	kind := TargetKind(chi.URLParam(r, "kind"))
	if !kind.Valid() {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "unknown target kind")
		return
	}
	result, err := h.service.Status(r.Context(), *actor, chi.URLParam(r, "id"), kind)
	if err != nil {
		h.logger.Error("like status", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, result)
}
