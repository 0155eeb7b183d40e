package auth

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/orgmanage/orgmanage/internal/platform/httpx"
	"github.com/orgmanage/orgmanage/internal/shared"
)

// RequireSession rejects requests without an authenticated principal.
func RequireSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sess := shared.SessionFromContext(r.Context())
		if sess == nil || sess.User() == "" {
			httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "sign in required")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// PrincipalID extracts the authenticated principal id from the request
// context. ok is false for anonymous requests.
func PrincipalID(r *http.Request) (uuid.UUID, bool) {
	sess := shared.SessionFromContext(r.Context())
	if sess == nil || sess.User() == "" {
		return uuid.Nil, false
	}
	id, err := uuid.Parse(sess.User())
	if err != nil {
		return uuid.Nil, false
	}
	return id, true
}
