package policy

import (
	"log/slog"
	"net/http"

	"github.com/orgmanage/orgmanage/internal/platform/httpx"
	"github.com/orgmanage/orgmanage/internal/roles"
)

// Guard wires policy checks into HTTP handlers.
type Guard struct {
	Logger *slog.Logger
}

// Require rejects requests whose resolved role set cannot see the target.
func (g Guard) Require(target Target) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			set := roles.FromContext(r.Context())
			if !Visible(set, target) {
				if g.Logger != nil {
					g.Logger.Warn("navigation denied",
						slog.String("target", string(target)),
						slog.String("path", r.URL.Path))
				}
				httpx.Problem(w, http.StatusForbidden, "Forbidden", "not visible for your roles")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// Navigation returns the sidebar destinations visible to the caller.
func (g Guard) Navigation(w http.ResponseWriter, r *http.Request) {
	set := roles.FromContext(r.Context())
	httpx.JSON(w, http.StatusOK, map[string]any{
		"roles":   set.Slice(),
		"targets": Targets(set),
	})
}
