package comments

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/lumen-lms/lumen-lms/internal/platform/httpx"
	"github.com/lumen-lms/lumen-lms/internal/shared"
)

// Handler exposes the comment API.
type Handler struct {
	logger   *slog.Logger
	service  *Service
	validate *validator.Validate
}

// NewHandler constructs a Handler.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{
		logger:   logger,
		service:  service,
		validate: validator.New(validator.WithRequiredStructEnabled()),
	}
}

// MountRoutes attaches comment routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Post("/", h.create)
	r.Get("/lesson/{lessonID}", h.listByLesson)
	r.Delete("/{id}", h.delete)
}

type createPayload struct {
	LessonID string `json:"lesson_id" validate:"required"`
	Content  string `json:"content" validate:"required,max=4000"`
	ParentID string `json:"parent_id"`
}

type commentResponse struct {
	ID        string    `json:"id"`
	LessonID  string    `json:"lesson_id"`
	AuthorID  string    `json:"author_id"`
	Content   string    `json:"content"`
	ParentID  string    `json:"parent_id,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

func toCommentResponse(c Comment) commentResponse {
	return commentResponse{
		ID:        c.ID,
		LessonID:  c.LessonID,
		AuthorID:  c.AuthorID,
		Content:   c.Content,
		ParentID:  c.ParentID,
		CreatedAt: c.CreatedAt,
	}
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	actor := shared.ActorFromContext(r.Context())
	if actor == nil {
		httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "")
		return
	}
	var payload createPayload
	if err := httpx.DecodeJSON(r, &payload); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid JSON", err.Error())
		return
	}
	if err := h.validate.Struct(payload); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation failed", err.Error())
		return
	}
	comment, err := h.service.Create(r.Context(), *actor, CreateInput{
		LessonID: payload.LessonID,
		Content:  payload.Content,
		ParentID: payload.ParentID,
	})
	if err != nil {
		h.logger.Error("create comment", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, toCommentResponse(comment))
}

func (h *Handler) listByLesson(w http.ResponseWriter, r *http.Request) {
	actor := shared.ActorFromContext(r.Context())
	if actor == nil {
		httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "")
		return
	}
	rows, err := h.service.ListByLesson(r.Context(), *actor, chi.URLParam(r, "lessonID"))
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	resp := make([]commentResponse, 0, len(rows))
	for _, c := range rows {
		resp = append(resp, toCommentResponse(c))
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"comments": resp})
}

func (h *Handler) delete(w http.ResponseWriter, r *http.Request) {
	actor := shared.ActorFromContext(r.Context())
	if actor == nil {
		httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "")
		return
	}
	if err := h.service.Delete(r.Context(), *actor, chi.URLParam(r, "id")); err != nil {
		httpx.RespondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
