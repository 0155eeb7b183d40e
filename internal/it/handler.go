package it

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/orgmanage/orgmanage/internal/auth"
	"github.com/orgmanage/orgmanage/internal/platform/httpx"
)

// Handler exposes asset management and the ticket workflow.
type Handler struct {
	logger   *slog.Logger
	service  *Service
	validate *validator.Validate
}

func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service, validate: validator.New()}
}

// MountRoutes attaches the it-gated surface: the asset register and the
// full ticket queue.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Route("/assets", func(r chi.Router) {
		r.Get("/", h.listAssets)
		r.Post("/", h.createAsset)
		r.Put("/{id}", h.updateAsset)
		r.Delete("/{id}", h.deleteAsset)
	})
	r.Route("/tickets", func(r chi.Router) {
		r.Get("/", h.listAllTickets)
		r.Post("/{id}/status", h.advanceTicket)
	})
}

// MountSelfRoutes attaches the self-service surface open to any principal.
func (h *Handler) MountSelfRoutes(r chi.Router) {
	r.Get("/", h.listOwnTickets)
	r.Post("/", h.submitTicket)
}

func (h *Handler) listAssets(w http.ResponseWriter, r *http.Request) {
	items, err := h.service.ListAssets(r.Context())
	if err != nil {
		h.logger.Error("list assets", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	if items == nil {
		items = []Asset{}
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"assets": items})
}

func (h *Handler) createAsset(w http.ResponseWriter, r *http.Request) {
	var req AssetRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid payload", err.Error())
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusUnprocessableEntity, "Validation failed", err.Error())
		return
	}
	a, err := h.service.CreateAsset(r.Context(), req)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, a)
}

func (h *Handler) updateAsset(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid id", "asset id must be a uuid")
		return
	}
	var req AssetRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid payload", err.Error())
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusUnprocessableEntity, "Validation failed", err.Error())
		return
	}
	a, err := h.service.UpdateAsset(r.Context(), id, req)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, a)
}

func (h *Handler) deleteAsset(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid id", "asset id must be a uuid")
		return
	}
	if err := h.service.DeleteAsset(r.Context(), id); err != nil {
		httpx.RespondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) submitTicket(w http.ResponseWriter, r *http.Request) {
	actor, ok := auth.PrincipalID(r)
	if !ok {
		httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "session required")
		return
	}
	var req TicketRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid payload", err.Error())
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusUnprocessableEntity, "Validation failed", err.Error())
		return
	}
	t, err := h.service.SubmitTicket(r.Context(), actor, req)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, t)
}

func (h *Handler) listOwnTickets(w http.ResponseWriter, r *http.Request) {
	actor, ok := auth.PrincipalID(r)
	if !ok {
		httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "session required")
		return
	}
	h.respondTickets(w, r, actor, false)
}

func (h *Handler) listAllTickets(w http.ResponseWriter, r *http.Request) {
	actor, _ := auth.PrincipalID(r)
	h.respondTickets(w, r, actor, true)
}

func (h *Handler) respondTickets(w http.ResponseWriter, r *http.Request, actor uuid.UUID, desk bool) {
	items, err := h.service.ListTickets(r.Context(), actor, desk)
	if err != nil {
		h.logger.Error("list tickets", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	if items == nil {
		items = []Ticket{}
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"tickets": items})
}

type statusRequest struct {
	Status     string `json:"status" validate:"required"`
	AssignedTo string `json:"assigned_to" validate:"omitempty,uuid"`
}

func (h *Handler) advanceTicket(w http.ResponseWriter, r *http.Request) {
	actor, ok := auth.PrincipalID(r)
	if !ok {
		httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "session required")
		return
	}
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid id", "ticket id must be a uuid")
		return
	}
	var req statusRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid payload", err.Error())
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusUnprocessableEntity, "Validation failed", err.Error())
		return
	}
	var assignee *uuid.UUID
	if req.AssignedTo != "" {
		uid, err := uuid.Parse(req.AssignedTo)
		if err == nil {
			assignee = &uid
		}
	}
	t, err := h.service.AdvanceTicket(r.Context(), actor, id, req.Status, assignee)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, t)
}
