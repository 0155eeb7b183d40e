package shared

import (
	"context"
	"net/http"
	"strings"
)

type sessionContextKey struct{}

// ContextWithSession stores the session in context.
func ContextWithSession(ctx context.Context, sess *Session) context.Context {
	return context.WithValue(ctx, sessionContextKey{}, sess)
}

// SessionFromContext extracts the session from context.
func SessionFromContext(ctx context.Context) *Session {
	sess, _ := ctx.Value(sessionContextKey{}).(*Session)
	return sess
}

// SkipCSRF reports whether the request is exempt from CSRF verification.
// Internal endpoints carry a service token instead of a browser session.
func SkipCSRF(r *http.Request) bool {
	return strings.HasPrefix(r.URL.Path, "/internal/")
}
