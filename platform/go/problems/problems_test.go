package problems

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func TestFromError(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		err    error
		status int
		code   string
		known  bool
	}{
		{name: "validation", err: Invalid("slug", "invalid slug"), status: http.StatusBadRequest, code: CodeValidation, known: true},
		{name: "wrapped unauthorized", err: fmt.Errorf("login: %w", ErrUnauthorized), status: http.StatusUnauthorized, code: CodeUnauthorized, known: true},
		{name: "quota", err: ErrQuotaExceeded, status: http.StatusConflict, code: CodeQuota, known: true},
		{name: "not found", err: ErrNotFound, status: http.StatusNotFound, code: CodeNotFound, known: true},
		{name: "conflict", err: ErrConflict, status: http.StatusConflict, code: CodeConflict, known: true},
		{name: "unexpected", err: errors.New("disk on fire"), status: http.StatusInternalServerError, code: CodeInternal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			p, known := FromError(tt.err)
			require.Equal(t, tt.known, known)
			require.Equal(t, tt.status, p.Status)
			require.Equal(t, tt.code, p.Code)
		})
	}
}

func TestUnauthorizedDoesNotLeakCause(t *testing.T) {
	t.Parallel()

	p, _ := FromError(fmt.Errorf("wrong password for alice: %w", ErrUnauthorized))
	require.Equal(t, "unauthorized", p.Detail)
}

func TestRespondHidesInternalErrors(t *testing.T) {
	t.Parallel()

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	Respond(rec, req, zaptest.NewLogger(t), errors.New("pq: connection refused"))

	require.Equal(t, http.StatusInternalServerError, rec.Code)
	require.Equal(t, "application/problem+json", rec.Header().Get("Content-Type"))
	require.NotContains(t, rec.Body.String(), "connection refused")
}

func TestFieldErrorsErr(t *testing.T) {
	t.Parallel()

	fe := FieldErrors{}
	require.NoError(t, fe.Err())

	fe.Add("end_at", "end_at must be after start_at")
	err := fe.Err()
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	require.Equal(t, []string{"end_at must be after start_at"}, verr.Fields["end_at"])
}

func TestDecodeJSON(t *testing.T) {
	t.Parallel()

	var body struct {
		Password string `json:"password"`
	}
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"password":"secret"}`))
	require.NoError(t, DecodeJSON(req, &body))
	require.Equal(t, "secret", body.Password)

	req = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(""))
	require.NoError(t, DecodeJSON(req, &body))

	req = httptest.NewRequest(http.MethodPost, "/", strings.NewReader("{"))
	var verr *ValidationError
	require.ErrorAs(t, DecodeJSON(req, &body), &verr)

	rec := httptest.NewRecorder()
	WriteJSON(rec, http.StatusCreated, map[string]bool{"ok": true})
	require.Equal(t, http.StatusCreated, rec.Code)
	var out map[string]bool
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	require.True(t, out["ok"])
}
