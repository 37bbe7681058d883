package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
	"golang.org/x/crypto/bcrypt"

	"github.com/zenGate-Global/palmyra-gacha/domains/tenants/be/service"
	"github.com/zenGate-Global/palmyra-gacha/platform/go/auth"
	"github.com/zenGate-Global/palmyra-gacha/platform/go/persistence"
	"github.com/zenGate-Global/palmyra-gacha/platform/go/persistence/memory"
	"github.com/zenGate-Global/palmyra-gacha/platform/go/problems"
	"github.com/zenGate-Global/palmyra-gacha/platform/go/storage"
	"github.com/zenGate-Global/palmyra-gacha/platform/go/tenant"
)

func newHandler(t *testing.T) (*Handler, *service.Service) {
	t.Helper()
	svc := service.New(
		memory.New(),
		storage.NewLocalStore(t.TempDir()),
		auth.NewHasher(bcrypt.MinCost),
		"test",
		zaptest.NewLogger(t),
	)
	return New(svc, zaptest.NewLogger(t)), svc
}

func jsonRequest(method, target, body string) *http.Request {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	return req
}

func withSpace(t *testing.T, svc *service.Service, req *http.Request, slug string) *http.Request {
	t.Helper()
	space, err := svc.ResolveTenantSpace(req.Context(), slug)
	require.NoError(t, err)
	return req.WithContext(tenant.WithSpace(req.Context(), space))
}

func decodeProblem(t *testing.T, rec *httptest.ResponseRecorder) problems.Problem {
	t.Helper()
	require.Equal(t, "application/problem+json", rec.Header().Get("Content-Type"))
	var p problems.Problem
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &p))
	return p
}

func TestCreateAndListTenants(t *testing.T) {
	t.Parallel()

	h, _ := newHandler(t)

	rec := httptest.NewRecorder()
	h.CreateTenant(rec, jsonRequest(http.MethodPost, "/api/master/tenants", `{"slug":"shop","name":"Shop","plan":"premium"}`))
	require.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	h.CreateTenant(rec, jsonRequest(http.MethodPost, "/api/master/tenants", `{"slug":"shop","name":"Again"}`))
	require.Equal(t, http.StatusConflict, rec.Code)
	require.Equal(t, problems.CodeConflict, decodeProblem(t, rec).Code)

	rec = httptest.NewRecorder()
	h.CreateTenant(rec, jsonRequest(http.MethodPost, "/api/master/tenants", `{"slug":"master","name":"Nope"}`))
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Contains(t, decodeProblem(t, rec).Errors, "slug")

	rec = httptest.NewRecorder()
	h.ListTenants(rec, httptest.NewRequest(http.MethodGet, "/api/master/tenants", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var items []tenantSummary
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &items))
	require.Len(t, items, 1)
	require.Equal(t, "shop", items[0].Slug)
	require.Equal(t, persistence.PlanPremium, items[0].Plan)
	require.Nil(t, items[0].Username)
}

func TestDeleteTenantRoute(t *testing.T) {
	t.Parallel()

	h, svc := newHandler(t)
	_, err := svc.Create(context.Background(), service.CreateInput{Slug: "shop", Name: "Shop"})
	require.NoError(t, err)

	r := chi.NewRouter()
	r.Delete("/api/master/tenants/{slug}", h.DeleteTenant)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodDelete, "/api/master/tenants/shop", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodDelete, "/api/master/tenants/shop", nil))
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestPoweredByRequiresValue(t *testing.T) {
	t.Parallel()

	h, svc := newHandler(t)
	_, err := svc.Create(context.Background(), service.CreateInput{Slug: "shop", Name: "Shop"})
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	h.PoweredBy(rec, jsonRequest(http.MethodPost, "/", `{"slug":"shop"}`))
	require.Equal(t, http.StatusBadRequest, rec.Code)

	rec = httptest.NewRecorder()
	h.PoweredBy(rec, jsonRequest(http.MethodPost, "/", `{"slug":"shop","powered_by":""}`))
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestUpdateEffectSettings(t *testing.T) {
	t.Parallel()

	h, svc := newHandler(t)
	_, err := svc.Create(context.Background(), service.CreateInput{Slug: "shop", Name: "Shop"})
	require.NoError(t, err)

	cases := []struct {
		name   string
		body   string
		status int
		want   persistence.EffectWeights
	}{
		{name: "numbers", body: `{"star1":10,"star2":0,"star3":5,"star4":1}`, status: http.StatusOK, want: persistence.EffectWeights{Star1: 10, Star3: 5, Star4: 1}},
		{name: "numeric strings", body: `{"star1":"7","star2":" 3 ","star3":"","star4":null}`, status: http.StatusOK, want: persistence.EffectWeights{Star1: 7, Star2: 3}},
		{name: "missing fields", body: `{"star2":4}`, status: http.StatusOK, want: persistence.EffectWeights{Star2: 4}},
		{name: "negative", body: `{"star1":-1}`, status: http.StatusBadRequest},
		{name: "fraction", body: `{"star1":1.5}`, status: http.StatusBadRequest},
		{name: "text", body: `{"star1":"lots"}`, status: http.StatusBadRequest},
		{name: "at cap", body: `{"star1":1000000000,"star2":"1000000000"}`, status: http.StatusOK, want: persistence.EffectWeights{Star1: persistence.MaxEffectWeight, Star2: persistence.MaxEffectWeight}},
		{name: "over cap", body: `{"star1":1000000001}`, status: http.StatusBadRequest},
		{name: "int64 max", body: `{"star1":"9223372036854775807","star2":9223372036854775807}`, status: http.StatusBadRequest},
		{name: "huge float", body: `{"star1":1e30}`, status: http.StatusBadRequest},
	}
	for _, tc := range cases {
		rec := httptest.NewRecorder()
		req := withSpace(t, svc, jsonRequest(http.MethodPost, "/api/shop/effect-settings", tc.body), "shop")
		h.UpdateEffectSettings(rec, req)
		require.Equal(t, tc.status, rec.Code, tc.name)
		if tc.status != http.StatusOK {
			continue
		}
		got, err := svc.Get(context.Background(), "shop")
		require.NoError(t, err)
		require.Equal(t, tc.want, got.EffectWeights, tc.name)
	}
}

func TestBackgroundsUploadAndClear(t *testing.T) {
	t.Parallel()

	h, svc := newHandler(t)
	_, err := svc.Create(context.Background(), service.CreateInput{Slug: "shop", Name: "Shop"})
	require.NoError(t, err)

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile("bg_sp", "phone.webp")
	require.NoError(t, err)
	_, err = part.Write([]byte("webp"))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/shop/backgrounds", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rec := httptest.NewRecorder()
	h.UploadBackgrounds(rec, withSpace(t, svc, req, "shop"))
	require.Equal(t, http.StatusOK, rec.Code)

	var resp backgroundsResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Empty(t, resp.BgPCURL)
	require.True(t, strings.HasPrefix(resp.BgSPURL, "/uploads/test/shop-000001/backgrounds/"))
	require.True(t, strings.HasSuffix(resp.BgSPURL, ".webp"))

	rec = httptest.NewRecorder()
	h.ClearBackgrounds(rec, withSpace(t, svc, jsonRequest(http.MethodPost, "/", `{"target":"sp"}`), "shop"))
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Empty(t, resp.BgSPURL)
}

func TestTenantRoutesRequireSpace(t *testing.T) {
	t.Parallel()

	h, _ := newHandler(t)
	rec := httptest.NewRecorder()
	h.ClearBackgrounds(rec, jsonRequest(http.MethodPost, "/", `{}`))
	require.Equal(t, http.StatusNotFound, rec.Code)
}
