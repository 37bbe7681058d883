package middleware

import (
	"net/http"

	"github.com/go-chi/chi/v5/middleware"

	platformauth "github.com/zenGate-Global/palmyra-gacha/platform/go/auth"
	platformlogging "github.com/zenGate-Global/palmyra-gacha/platform/go/logging"
	"github.com/zenGate-Global/palmyra-gacha/platform/go/requesttrace"
)

// RequestTrace populates the context with request-scoped AuditInfo so services can stamp logs.
// It must run after auth.Authenticate so the principal is available.
func RequestTrace(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := middleware.GetReqID(r.Context())
		audit := requesttrace.FromPrincipal(platformauth.FromContext(r.Context()), requestID)

		ctx := requesttrace.IntoContext(r.Context(), audit)
		if logger := platformlogging.FromRequest(r, nil); logger != nil {
			ctx = platformlogging.WithLogger(ctx, logger.With(audit.Fields()...))
		}

		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
