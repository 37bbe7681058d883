package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"

	"github.com/zenGate-Global/palmyra-gacha/platform/go/problems"
	"github.com/zenGate-Global/palmyra-gacha/platform/go/tenant"
)

type stubResolver struct {
	calls  atomic.Int32
	spaces map[string]tenant.Space
}

func (s *stubResolver) ResolveTenantSpace(_ context.Context, slug string) (tenant.Space, error) {
	s.calls.Add(1)
	space, ok := s.spaces[slug]
	if !ok {
		return tenant.Space{}, problems.ErrNotFound
	}
	return space, nil
}

func newTestRouter(resolver Resolver, cfg Config) http.Handler {
	r := chi.NewRouter()
	r.With(WithTenantSpace(resolver, cfg)).Get("/api/{slug}/meta", func(w http.ResponseWriter, req *http.Request) {
		space, ok := tenant.FromContext(req.Context())
		if !ok {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		_, _ = w.Write([]byte(space.BasePrefix))
	})
	return r
}

func TestWithTenantSpace(t *testing.T) {
	t.Parallel()

	resolver := &stubResolver{spaces: map[string]tenant.Space{
		"shop": tenant.NewSpace("dev", "shop", 1),
	}}
	router := newTestRouter(resolver, Config{})

	tests := []struct {
		name   string
		path   string
		status int
	}{
		{name: "known tenant", path: "/api/shop/meta", status: http.StatusOK},
		{name: "unknown tenant", path: "/api/ghost/meta", status: http.StatusNotFound},
		{name: "malformed slug", path: "/api/Bad.Slug/meta", status: http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, tt.path, nil))
			require.Equal(t, tt.status, rec.Code)
		})
	}
}

func TestWithTenantSpaceCachesLookups(t *testing.T) {
	t.Parallel()

	resolver := &stubResolver{spaces: map[string]tenant.Space{
		"shop": tenant.NewSpace("dev", "shop", 1),
	}}
	router := newTestRouter(resolver, Config{CacheTTL: time.Minute})

	for i := 0; i < 3; i++ {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/shop/meta", nil))
		require.Equal(t, http.StatusOK, rec.Code)
		require.Equal(t, "dev/shop-000001/", rec.Body.String())
	}
	require.Equal(t, int32(1), resolver.calls.Load())
}
