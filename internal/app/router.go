package app

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/orgmanage/orgmanage/internal/admin"
	"github.com/orgmanage/orgmanage/internal/announcements"
	"github.com/orgmanage/orgmanage/internal/analytics"
	"github.com/orgmanage/orgmanage/internal/auth"
	"github.com/orgmanage/orgmanage/internal/finance"
	"github.com/orgmanage/orgmanage/internal/goals"
	"github.com/orgmanage/orgmanage/internal/hr"
	"github.com/orgmanage/orgmanage/internal/it"
	"github.com/orgmanage/orgmanage/internal/notifications"
	"github.com/orgmanage/orgmanage/internal/observability"
	"github.com/orgmanage/orgmanage/internal/policy"
	"github.com/orgmanage/orgmanage/internal/realtime"
	"github.com/orgmanage/orgmanage/internal/sales"
	"github.com/orgmanage/orgmanage/jobs"
)

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger                *slog.Logger
	Config                *Config
	Middlewares           []func(http.Handler) http.Handler
	Guard                 policy.Guard
	AuthHandler           *auth.Handler
	SalesHandler          *sales.Handler
	AnalyticsHandler      *analytics.Handler
	GoalsHandler          *goals.Handler
	HRHandler             *hr.Handler
	FinanceHandler        *finance.Handler
	ITHandler             *it.Handler
	AnnouncementsHandler  *announcements.Handler
	NotificationsHandler  *notifications.Handler
	InternalNotifications *notifications.InternalHandler
	AdminHandler          *admin.Handler
	RealtimeHandler       *realtime.Handler
	JobHandler            *jobs.Handler
	Metrics               *observability.Metrics
}

// NewRouter constructs the chi.Router with OrgManage defaults.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()

	for _, mw := range params.Middlewares {
		r.Use(mw)
	}
	r.Use(chimw.Logger)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	// API routes run under the request timeout; the SSE feed does not,
	// since a standing stream outlives any sensible request deadline.
	r.Group(func(r chi.Router) {
		timeout := params.Config.AppRequestTimeout
		if timeout > 0 {
			r.Use(chimw.Timeout(timeout))
		}

		r.Route("/api/v1", func(r chi.Router) {
			r.Route("/auth", params.AuthHandler.MountRoutes)

			r.Group(func(r chi.Router) {
				r.Use(auth.RequireSession)

				r.Route("/transactions", params.SalesHandler.MountRoutes)
				r.Route("/analytics", params.AnalyticsHandler.MountRoutes)
				r.Route("/notifications", params.NotificationsHandler.MountRoutes)

				// Self-service submissions stay open to every signed-in
				// principal; the gated groups below carry the review and
				// management surfaces.
				r.Route("/leave", params.HRHandler.MountSelfRoutes)
				r.Route("/expenses", params.FinanceHandler.MountSelfRoutes)
				r.Route("/tickets", params.ITHandler.MountSelfRoutes)

				r.With(params.Guard.Require(policy.TargetGoals)).
					Route("/goals", params.GoalsHandler.MountRoutes)
				r.With(params.Guard.Require(policy.TargetAnnouncements)).
					Route("/announcements", params.AnnouncementsHandler.MountRoutes)
				r.With(params.Guard.Require(policy.TargetHR)).
					Route("/hr", params.HRHandler.MountRoutes)
				r.With(params.Guard.Require(policy.TargetFinance)).
					Route("/finance", params.FinanceHandler.MountRoutes)
				r.With(params.Guard.Require(policy.TargetIT)).
					Route("/it", params.ITHandler.MountRoutes)
				r.With(params.Guard.Require(policy.TargetAdmin)).
					Route("/admin", params.AdminHandler.MountRoutes)

				r.Get("/navigation", params.Guard.Navigation)
			})
		})

		if params.InternalNotifications != nil {
			r.Route("/internal/notifications", params.InternalNotifications.MountRoutes)
		}

		if params.JobHandler != nil {
			r.Route("/jobs", params.JobHandler.MountRoutes)
		}
	})

	if params.RealtimeHandler != nil {
		r.Route("/realtime", func(r chi.Router) {
			r.Use(auth.RequireSession)
			params.RealtimeHandler.MountRoutes(r)
		})
	}

	if params.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", params.Metrics.Handler())
	}

	return r
}
