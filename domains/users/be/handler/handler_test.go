package handler

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/zenGate-Global/palmyra-gacha/platform/go/auth"
	"github.com/zenGate-Global/palmyra-gacha/platform/go/persistence"
	"github.com/zenGate-Global/palmyra-gacha/platform/go/problems"
)

type mockService struct {
	masterLoginFn    func(ctx context.Context, password string) error
	tenantLoginFn    func(ctx context.Context, slug, username, password string) (auth.TenantUser, error)
	changePasswordFn func(ctx context.Context, user auth.TenantUser, oldPassword, newPassword string) error
	createUserFn     func(ctx context.Context, tenantSlug, username, password string) (persistence.User, error)
	resetPasswordFn  func(ctx context.Context, username, newPassword string) error
}

func (m *mockService) MasterLogin(ctx context.Context, password string) error {
	if m.masterLoginFn == nil {
		panic("masterLoginFn not configured")
	}
	return m.masterLoginFn(ctx, password)
}

func (m *mockService) TenantLogin(ctx context.Context, slug, username, password string) (auth.TenantUser, error) {
	if m.tenantLoginFn == nil {
		panic("tenantLoginFn not configured")
	}
	return m.tenantLoginFn(ctx, slug, username, password)
}

func (m *mockService) ChangePassword(ctx context.Context, user auth.TenantUser, oldPassword, newPassword string) error {
	if m.changePasswordFn == nil {
		panic("changePasswordFn not configured")
	}
	return m.changePasswordFn(ctx, user, oldPassword, newPassword)
}

func (m *mockService) CreateUser(ctx context.Context, tenantSlug, username, password string) (persistence.User, error) {
	if m.createUserFn == nil {
		panic("createUserFn not configured")
	}
	return m.createUserFn(ctx, tenantSlug, username, password)
}

func (m *mockService) ResetPassword(ctx context.Context, username, newPassword string) error {
	if m.resetPasswordFn == nil {
		panic("resetPasswordFn not configured")
	}
	return m.resetPasswordFn(ctx, username, newPassword)
}

func newRouter(t *testing.T, svc *mockService) (http.Handler, *auth.SessionCodec) {
	t.Helper()
	codec := auth.NewSessionCodec(auth.SessionConfig{Secret: []byte("test-secret")})
	h := New(svc, codec, zaptest.NewLogger(t))

	r := chi.NewRouter()
	r.Use(auth.Authenticate(codec))
	r.Post("/api/master/login", h.MasterLogin)
	r.Post("/api/master/logout", h.MasterLogout)
	r.Post("/api/{slug}/login", h.TenantLogin)
	r.Post("/api/{slug}/logout", h.TenantLogout)
	r.Post("/api/{slug}/change-password", h.ChangePassword)
	return r, codec
}

func post(t *testing.T, h http.Handler, path, body string, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	for _, c := range cookies {
		req.AddCookie(c)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func sessionCookie(t *testing.T, rec *httptest.ResponseRecorder) *http.Cookie {
	t.Helper()
	for _, c := range rec.Result().Cookies() {
		if c.Name == auth.DefaultSessionCookie {
			return c
		}
	}
	t.Fatalf("no session cookie in response")
	return nil
}

func TestMasterLoginSetsSession(t *testing.T) {
	t.Parallel()

	svc := &mockService{masterLoginFn: func(_ context.Context, password string) error {
		if password != "pw" {
			return problems.ErrUnauthorized
		}
		return nil
	}}
	r, codec := newRouter(t, svc)

	rec := post(t, r, "/api/master/login", `{"password":"bad"}`)
	require.Equal(t, http.StatusUnauthorized, rec.Code)
	require.Empty(t, rec.Result().Cookies())

	rec = post(t, r, "/api/master/login", `{"password":"pw"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	cookie := sessionCookie(t, rec)
	p, err := codec.Decode(cookie.Value)
	require.NoError(t, err)
	require.True(t, p.IsMaster())

	rec = post(t, r, "/api/master/logout", ``, cookie)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, -1, sessionCookie(t, rec).MaxAge)
}

func TestTenantLoginAndLogout(t *testing.T) {
	t.Parallel()

	svc := &mockService{tenantLoginFn: func(_ context.Context, slug, username, password string) (auth.TenantUser, error) {
		if slug == "shop" && username == "alice" && password == "secret1" {
			return auth.TenantUser{UserID: 5, TenantID: 2, Slug: "shop"}, nil
		}
		return auth.TenantUser{}, problems.ErrUnauthorized
	}}
	r, codec := newRouter(t, svc)

	rec := post(t, r, "/api/shop/login", `{"username":"alice","password":"wrong"}`)
	require.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = post(t, r, "/api/shop/login", `{"username":"alice","password":"secret1"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	cookie := sessionCookie(t, rec)

	// Logging out of another tenant keeps the identity.
	rec = post(t, r, "/api/other/logout", ``, cookie)
	require.Equal(t, http.StatusOK, rec.Code)
	p, err := codec.Decode(sessionCookie(t, rec).Value)
	require.NoError(t, err)
	user, ok := p.TenantUser()
	require.True(t, ok)
	require.Equal(t, "shop", user.Slug)

	rec = post(t, r, "/api/shop/logout", ``, cookie)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, -1, sessionCookie(t, rec).MaxAge)
}

func TestChangePasswordRequiresMatchingSession(t *testing.T) {
	t.Parallel()

	var got auth.TenantUser
	svc := &mockService{changePasswordFn: func(_ context.Context, user auth.TenantUser, oldPassword, newPassword string) error {
		got = user
		return nil
	}}
	r, codec := newRouter(t, svc)

	token, err := codec.Encode(auth.Anonymous().WithTenantUser(auth.TenantUser{UserID: 5, TenantID: 2, Slug: "shop"}))
	require.NoError(t, err)
	cookie := &http.Cookie{Name: auth.DefaultSessionCookie, Value: token}

	body := `{"old_password":"secret1","new_password":"secret2"}`
	require.Equal(t, http.StatusUnauthorized, post(t, r, "/api/shop/change-password", body).Code)
	require.Equal(t, http.StatusUnauthorized, post(t, r, "/api/other/change-password", body, cookie).Code)

	require.Equal(t, http.StatusOK, post(t, r, "/api/shop/change-password", body, cookie).Code)
	require.Equal(t, int64(5), got.UserID)
}

func TestMasterUserEndpoints(t *testing.T) {
	t.Parallel()

	svc := &mockService{
		createUserFn: func(_ context.Context, tenantSlug, username, password string) (persistence.User, error) {
			if username == "taken" {
				return persistence.User{}, persistence.ErrConflict
			}
			return persistence.User{ID: 9, Username: username}, nil
		},
		resetPasswordFn: func(_ context.Context, username, newPassword string) error {
			return persistence.ErrNotFound
		},
	}
	codec := auth.NewSessionCodec(auth.SessionConfig{Secret: []byte("test-secret")})
	h := New(svc, codec, zaptest.NewLogger(t))

	rec := httptest.NewRecorder()
	h.CreateUser(rec, httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"tenant_slug":"shop","username":"alice","password":"secret1"}`)))
	require.Equal(t, http.StatusOK, rec.Code)
	require.JSONEq(t, `{"ok":true,"id":9}`, rec.Body.String())

	rec = httptest.NewRecorder()
	h.CreateUser(rec, httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"tenant_slug":"shop","username":"taken","password":"secret1"}`)))
	require.Equal(t, http.StatusConflict, rec.Code)

	rec = httptest.NewRecorder()
	h.ResetPassword(rec, httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"username":"ghost","new_password":"secret1"}`)))
	require.Equal(t, http.StatusNotFound, rec.Code)

	rec = httptest.NewRecorder()
	h.ResetPassword(rec, httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"username":`)))
	require.Equal(t, http.StatusBadRequest, rec.Code)
}
