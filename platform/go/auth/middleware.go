package auth

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/zenGate-Global/palmyra-gacha/platform/go/problems"
	"github.com/zenGate-Global/palmyra-gacha/platform/go/tenant"
)

// Authenticate builds the request Principal from the session cookie once and stores it in context.
func Authenticate(codec *SessionCodec) func(http.Handler) http.Handler {
	if codec == nil {
		panic("auth.Authenticate: codec must not be nil")
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			p := codec.Read(r)
			next.ServeHTTP(w, r.WithContext(WithPrincipal(r.Context(), p)))
		})
	}
}

// RequireMaster rejects requests whose principal lacks the master flag.
func RequireMaster(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := AuthorizeMaster(FromContext(r.Context())); err != nil {
			problems.Write(w, problems.Unauthorized())
			return
		}
		next.ServeHTTP(w, r)
	})
}

// RequireTenant rejects requests unless the session slug matches the {slug} path parameter.
// Routes behind it must also run RequireTenantSpace after the tenant space is resolved.
func RequireTenant(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		slug := chi.URLParam(r, "slug")
		if !tenant.ValidSlug(slug) {
			problems.Write(w, problems.BadRequest("invalid slug"))
			return
		}
		if _, err := AuthorizeTenantSlug(FromContext(r.Context()), slug); err != nil {
			problems.Write(w, problems.Unauthorized())
			return
		}
		next.ServeHTTP(w, r)
	})
}

// RequireTenantSpace rejects requests whose session does not belong to the tenant.Space
// resolved for this request. It must run after the tenant space middleware.
func RequireTenantSpace(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		space, ok := tenant.FromContext(r.Context())
		if !ok {
			problems.Write(w, problems.Unauthorized())
			return
		}
		if _, err := AuthorizeTenant(FromContext(r.Context()), space); err != nil {
			problems.Write(w, problems.Unauthorized())
			return
		}
		next.ServeHTTP(w, r)
	})
}
