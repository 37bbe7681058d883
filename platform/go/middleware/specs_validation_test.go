package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/getkin/kin-openapi/openapi3"
	"github.com/stretchr/testify/require"
)

const testSpec = `
openapi: 3.0.3
info: {title: test, version: "1"}
components:
  securitySchemes:
    sessionCookie: {type: apiKey, in: cookie, name: gacha_session}
paths:
  /api/{slug}/effect-settings:
    post:
      security: [{sessionCookie: []}]
      parameters:
        - {name: slug, in: path, required: true, schema: {type: string, pattern: "^[a-z0-9_-]{1,32}$"}}
      requestBody:
        required: true
        content:
          application/json:
            schema:
              type: object
              properties:
                star1: {type: integer, minimum: 0}
      responses:
        "200": {description: ok}
`

func TestSpecValidator(t *testing.T) {
	t.Parallel()

	spec, err := openapi3.NewLoader().LoadFromData([]byte(testSpec))
	require.NoError(t, err)

	h := SpecValidator(spec)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	send := func(path, body string, cookie bool) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		if cookie {
			req.AddCookie(&http.Cookie{Name: "gacha_session", Value: "token"})
		}
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec
	}

	require.Equal(t, http.StatusOK, send("/api/shop/effect-settings", `{"star1":3}`, true).Code)

	rec := send("/api/shop/effect-settings", `{"star1":-3}`, true)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Equal(t, "application/problem+json", rec.Header().Get("Content-Type"))

	require.Equal(t, http.StatusUnauthorized, send("/api/shop/effect-settings", `{"star1":3}`, false).Code)
	require.Equal(t, http.StatusNotFound, send("/api/shop/unknown", `{}`, true).Code)
}
