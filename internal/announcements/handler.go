package announcements

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/orgmanage/orgmanage/internal/auth"
	"github.com/orgmanage/orgmanage/internal/platform/httpx"
	"github.com/orgmanage/orgmanage/internal/policy"
	"github.com/orgmanage/orgmanage/internal/roles"
)

// Handler exposes the announcements feed. Reading is open to every
// signed-in principal; posting and deleting require an hr or ceo grant.
type Handler struct {
	logger   *slog.Logger
	service  *Service
	validate *validator.Validate
}

func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service, validate: validator.New()}
}

func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/", h.list)
	r.Post("/", h.create)
	r.Delete("/{id}", h.delete)
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	items, err := h.service.List(r.Context())
	if err != nil {
		h.logger.Error("list announcements", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	if items == nil {
		items = []Announcement{}
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"announcements": items})
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	author, ok := auth.PrincipalID(r)
	if !ok {
		httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "session required")
		return
	}
	if !policy.CanPostAnnouncement(roles.FromContext(r.Context())) {
		httpx.Problem(w, http.StatusForbidden, "Forbidden", "posting announcements requires an hr or ceo grant")
		return
	}
	var req CreateRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid payload", err.Error())
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusUnprocessableEntity, "Validation failed", err.Error())
		return
	}
	a, err := h.service.Create(r.Context(), author, req)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, a)
}

func (h *Handler) delete(w http.ResponseWriter, r *http.Request) {
	if !policy.CanPostAnnouncement(roles.FromContext(r.Context())) {
		httpx.Problem(w, http.StatusForbidden, "Forbidden", "deleting announcements requires an hr or ceo grant")
		return
	}
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid id", "announcement id must be a uuid")
		return
	}
	if err := h.service.Delete(r.Context(), id); err != nil {
		httpx.RespondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
