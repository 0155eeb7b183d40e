package analytics

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/orgmanage/orgmanage/internal/auth"
	"github.com/orgmanage/orgmanage/internal/platform/httpx"
	"github.com/orgmanage/orgmanage/internal/roles"
)

// Handler exposes the aggregate endpoints behind the dashboard charts.
type Handler struct {
	logger  *slog.Logger
	service *Service
}

func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service}
}

func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/dashboard", h.dashboard)
}

func (h *Handler) dashboard(w http.ResponseWriter, r *http.Request) {
	actor, ok := auth.PrincipalID(r)
	if !ok {
		httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "session required")
		return
	}
	set := roles.FromContext(r.Context())

	window := 30
	if raw := r.URL.Query().Get("window"); raw != "" {
		if v, err := strconv.Atoi(raw); err == nil && v > 0 && v <= 365 {
			window = v
		}
	}

	dashboard, err := h.service.GetDashboard(r.Context(), actor, set, window)
	if err != nil {
		h.logger.Error("dashboard aggregates", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, dashboard)
}
