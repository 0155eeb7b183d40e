package hr

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

// Handler exposes roster management and the leave workflow.
type Handler struct {
	logger   *slog.Logger
	service  *Service
	validate *validator.Validate
}

func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service, validate: validator.New()}
}

// MountRoutes attaches the hr-gated surface: roster CRUD and leave review.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Route("/employees", func(r chi.Router) {
		r.Get("/", h.listEmployees)
		r.Post("/", h.createEmployee)
		r.Put("/{id}", h.updateEmployee)
		r.Delete("/{id}", h.deleteEmployee)
	})
	r.Route("/leave", func(r chi.Router) {
		r.Get("/", h.listAllLeave)
		r.Post("/{id}/review", h.reviewLeave)
	})
}

// MountSelfRoutes attaches the self-service surface open to any principal.
func (h *Handler) MountSelfRoutes(r chi.Router) {
	r.Get("/", h.listOwnLeave)
	r.Post("/", h.submitLeave)
}

func (h *Handler) listEmployees(w http.ResponseWriter, r *http.Request) {
	items, err := h.service.ListEmployees(r.Context())
	if err != nil {
		h.logger.Error("list employees", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	if items == nil {
		items = []Employee{}
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"employees": items})
}

func (h *Handler) createEmployee(w http.ResponseWriter, r *http.Request) {
	var req EmployeeRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid payload", err.Error())
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusUnprocessableEntity, "Validation failed", err.Error())
		return
	}
	e, err := h.service.CreateEmployee(r.Context(), req)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, e)
}

func (h *Handler) updateEmployee(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid id", "employee id must be a uuid")
		return
	}
	var req EmployeeRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid payload", err.Error())
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusUnprocessableEntity, "Validation failed", err.Error())
		return
	}
	e, err := h.service.UpdateEmployee(r.Context(), id, req)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, e)
}

func (h *Handler) deleteEmployee(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid id", "employee id must be a uuid")
		return
	}
	if err := h.service.DeleteEmployee(r.Context(), id); err != nil {
		httpx.RespondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) submitLeave(w http.ResponseWriter, r *http.Request) {
	actor, ok := auth.PrincipalID(r)
	if !ok {
		httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "session required")
		return
	}
	var req LeaveSubmission
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid payload", err.Error())
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusUnprocessableEntity, "Validation failed", err.Error())
		return
	}
	lr, err := h.service.SubmitLeave(r.Context(), actor, req)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, lr)
}

func (h *Handler) listOwnLeave(w http.ResponseWriter, r *http.Request) {
	actor, ok := auth.PrincipalID(r)
	if !ok {
		httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "session required")
		return
	}
	h.respondLeaveList(w, r, actor, false)
}

func (h *Handler) listAllLeave(w http.ResponseWriter, r *http.Request) {
	actor, _ := auth.PrincipalID(r)
	h.respondLeaveList(w, r, actor, true)
}

func (h *Handler) respondLeaveList(w http.ResponseWriter, r *http.Request, actor uuid.UUID, reviewer bool) {
	items, err := h.service.ListLeave(r.Context(), actor, reviewer)
	if err != nil {
		h.logger.Error("list leave requests", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	if items == nil {
		items = []LeaveRequest{}
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"leave_requests": items})
}

type reviewRequest struct {
	Approve bool   `json:"approve"`
	Note    string `json:"note" validate:"max=2000"`
}

func (h *Handler) reviewLeave(w http.ResponseWriter, r *http.Request) {
	reviewer, ok := auth.PrincipalID(r)
	if !ok {
		httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "session required")
		return
	}
	if !policy.CanReviewLeave(roles.FromContext(r.Context())) {
		httpx.Problem(w, http.StatusForbidden, "Forbidden", "leave review requires an hr, manager or ceo grant")
		return
	}
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid id", "leave request id must be a uuid")
		return
	}
	var req reviewRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid payload", err.Error())
		return
	}
	lr, err := h.service.ReviewLeave(r.Context(), reviewer, id, req.Approve, req.Note)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, lr)
}
