package finance

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

// Handler exposes the expense workflow.
type Handler struct {
	logger   *slog.Logger
	service  *Service
	validate *validator.Validate
}

func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service, validate: validator.New()}
}

// MountRoutes attaches the finance-gated surface: full listing and review.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Route("/expenses", func(r chi.Router) {
		r.Get("/", h.listAll)
		r.Post("/{id}/review", h.review)
	})
}

// MountSelfRoutes attaches the self-service surface open to any principal.
func (h *Handler) MountSelfRoutes(r chi.Router) {
	r.Get("/", h.listOwn)
	r.Post("/", h.submit)
}

func (h *Handler) submit(w http.ResponseWriter, r *http.Request) {
	actor, ok := auth.PrincipalID(r)
	if !ok {
		httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "session required")
		return
	}
	var req Submission
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid payload", err.Error())
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusUnprocessableEntity, "Validation failed", err.Error())
		return
	}
	e, err := h.service.Submit(r.Context(), actor, req)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, e)
}

func (h *Handler) listOwn(w http.ResponseWriter, r *http.Request) {
	actor, ok := auth.PrincipalID(r)
	if !ok {
		httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "session required")
		return
	}
	h.respondList(w, r, actor, false)
}

func (h *Handler) listAll(w http.ResponseWriter, r *http.Request) {
	actor, _ := auth.PrincipalID(r)
	h.respondList(w, r, actor, true)
}

func (h *Handler) respondList(w http.ResponseWriter, r *http.Request, actor uuid.UUID, reviewer bool) {
	items, err := h.service.List(r.Context(), actor, reviewer)
	if err != nil {
		h.logger.Error("list expenses", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	if items == nil {
		items = []Expense{}
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"expenses": items})
}

type reviewRequest struct {
	Approve bool   `json:"approve"`
	Note    string `json:"note" validate:"max=2000"`
}

func (h *Handler) review(w http.ResponseWriter, r *http.Request) {
	reviewer, ok := auth.PrincipalID(r)
	if !ok {
		httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "session required")
		return
	}
	if !policy.CanReviewExpense(roles.FromContext(r.Context())) {
		httpx.Problem(w, http.StatusForbidden, "Forbidden", "expense review requires a finance or ceo grant")
		return
	}
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid id", "expense id must be a uuid")
		return
	}
	var req reviewRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid payload", err.Error())
		return
	}
	e, err := h.service.Review(r.Context(), reviewer, id, req.Approve, req.Note)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, e)
}
