package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/stretchr/testify/require"

	platformauth "github.com/zenGate-Global/palmyra-gacha/platform/go/auth"
	"github.com/zenGate-Global/palmyra-gacha/platform/go/requesttrace"
)

func TestRequestTraceWithTenantSession(t *testing.T) {
	codec := platformauth.NewSessionCodec(platformauth.SessionConfig{Secret: []byte("k")})

	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(platformauth.Authenticate(codec))
	r.Use(RequestTrace)

	handler := http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		audit, ok := requesttrace.FromContext(req.Context())
		require.True(t, ok)
		require.Equal(t, requesttrace.ActorKindTenantUser, audit.ActorKind)
		require.NotNil(t, audit.UserID)
		require.EqualValues(t, 123, *audit.UserID)
		require.Equal(t, "acme", audit.TenantSlug)
		require.NotEmpty(t, audit.RequestID)
		w.WriteHeader(http.StatusOK)
	})

	r.Get("/test", handler)

	token, err := codec.Encode(platformauth.Anonymous().WithTenantUser(platformauth.TenantUser{UserID: 123, TenantID: 1, Slug: "acme"}))
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/test", nil)
	req.AddCookie(&http.Cookie{Name: codec.CookieName(), Value: token})

	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, req)

	require.Equal(t, http.StatusOK, resp.Code)
}

func TestRequestTraceAnonymous(t *testing.T) {
	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(RequestTrace)

	handler := http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		audit, ok := requesttrace.FromContext(req.Context())
		require.True(t, ok)
		require.Equal(t, requesttrace.ActorKindAnonymous, audit.ActorKind)
		require.Nil(t, audit.UserID)
		w.WriteHeader(http.StatusOK)
	})

	r.Get("/test", handler)

	req := httptest.NewRequest(http.MethodGet, "/test", nil)
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, req)

	require.Equal(t, http.StatusOK, resp.Code)
}
