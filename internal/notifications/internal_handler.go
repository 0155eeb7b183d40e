package notifications

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/orgmanage/orgmanage/internal/platform/httpx"
	"github.com/orgmanage/orgmanage/internal/shared"
)

// InternalHandler accepts machine-to-machine notification submissions,
// guarded by an HS256 service token instead of a browser session.
type InternalHandler struct {
	logger     *slog.Logger
	dispatcher *Dispatcher
	secret     string
	validate   *validator.Validate
}

func NewInternalHandler(logger *slog.Logger, dispatcher *Dispatcher, secret string) *InternalHandler {
	return &InternalHandler{
		logger:     logger,
		dispatcher: dispatcher,
		secret:     secret,
		validate:   validator.New(),
	}
}

func (h *InternalHandler) MountRoutes(r chi.Router) {
	r.With(h.requireServiceToken).Post("/", h.submit)
}

func (h *InternalHandler) requireServiceToken(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
		if raw == "" {
			httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "service token required")
			return
		}
		caller, err := shared.VerifyServiceToken(h.secret, raw)
		if err != nil {
			httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "service token rejected")
			return
		}
		h.logger.Debug("internal notification call", slog.String("caller", caller))
		next.ServeHTTP(w, r)
	})
}

type submitRequest struct {
	Type      string `json:"type" validate:"required,max=64"`
	UserID    string `json:"userId" validate:"required,uuid"`
	Title     string `json:"title" validate:"required,max=200"`
	Message   string `json:"message" validate:"required,max=2000"`
	RelatedID string `json:"relatedId" validate:"omitempty,uuid"`
}

func (h *InternalHandler) submit(w http.ResponseWriter, r *http.Request) {
	var req submitRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid payload", err.Error())
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusUnprocessableEntity, "Validation failed", err.Error())
		return
	}

	userID, err := uuid.Parse(req.UserID)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid payload", "userId must be a uuid")
		return
	}
	relatedID := uuid.Nil
	if req.RelatedID != "" {
		relatedID, _ = uuid.Parse(req.RelatedID)
	}

	h.dispatcher.NotifyUser(r.Context(), userID, req.Type, req.Title, req.Message, relatedID)
	httpx.JSON(w, http.StatusAccepted, map[string]string{"status": "queued"})
}
