package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/zenGate-Global/palmyra-gacha/domains/users/be/service"
	platformauth "github.com/zenGate-Global/palmyra-gacha/platform/go/auth"
	platformlogging "github.com/zenGate-Global/palmyra-gacha/platform/go/logging"
	"github.com/zenGate-Global/palmyra-gacha/platform/go/problems"
)

type operation string

const (
	masterLoginOperation    operation = "masterLogin"
	masterLogoutOperation   operation = "masterLogout"
	tenantLoginOperation    operation = "tenantLogin"
	tenantLogoutOperation   operation = "tenantLogout"
	changePasswordOperation operation = "tenantChangePassword"
	createOperation         operation = "usersCreate"
	resetOperation          operation = "usersReset"
)

// Handler wires the users service and the session cookie to HTTP.
type Handler struct {
	svc      service.Service
	sessions *platformauth.SessionCodec
	logger   *zap.Logger
}

// New constructs a Handler instance.
func New(svc service.Service, sessions *platformauth.SessionCodec, logger *zap.Logger) *Handler {
	if svc == nil {
		panic("users service is required")
	}
	if sessions == nil {
		panic("session codec is required")
	}
	if logger == nil {
		panic("logger is required")
	}
	return &Handler{svc: svc, sessions: sessions, logger: logger}
}

type masterLoginRequest struct {
	Password string `json:"password"`
}

type tenantLoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type changePasswordRequest struct {
	OldPassword string `json:"old_password"`
	NewPassword string `json:"new_password"`
}

type createUserRequest struct {
	TenantSlug string `json:"tenant_slug"`
	Username   string `json:"username"`
	Password   string `json:"password"`
}

type resetPasswordRequest struct {
	Username    string `json:"username"`
	NewPassword string `json:"new_password"`
}

type okResponse struct {
	OK bool `json:"ok"`
}

// MasterLogin handles POST /api/master/login.
func (h *Handler) MasterLogin(w http.ResponseWriter, r *http.Request) {
	var body masterLoginRequest
	if err := problems.DecodeJSON(r, &body); err != nil {
		h.fail(w, r, err, masterLoginOperation)
		return
	}
	if err := h.svc.MasterLogin(r.Context(), body.Password); err != nil {
		h.fail(w, r, err, masterLoginOperation)
		return
	}
	p := platformauth.FromContext(r.Context()).WithMaster(true)
	h.writeSession(w, r, p, masterLoginOperation)
}

// MasterLogout handles POST /api/master/logout. A tenant identity in the same session survives.
func (h *Handler) MasterLogout(w http.ResponseWriter, r *http.Request) {
	p := platformauth.FromContext(r.Context()).WithMaster(false)
	h.writeSession(w, r, p, masterLogoutOperation)
}

// TenantLogin handles POST /api/{slug}/login.
func (h *Handler) TenantLogin(w http.ResponseWriter, r *http.Request) {
	var body tenantLoginRequest
	if err := problems.DecodeJSON(r, &body); err != nil {
		h.fail(w, r, err, tenantLoginOperation)
		return
	}
	user, err := h.svc.TenantLogin(r.Context(), chi.URLParam(r, "slug"), body.Username, body.Password)
	if err != nil {
		h.fail(w, r, err, tenantLoginOperation)
		return
	}
	p := platformauth.FromContext(r.Context()).WithTenantUser(user)
	h.writeSession(w, r, p, tenantLoginOperation)
}

// TenantLogout handles POST /api/{slug}/logout. The tenant identity is cleared only when it
// belongs to the addressed tenant; the call succeeds either way.
func (h *Handler) TenantLogout(w http.ResponseWriter, r *http.Request) {
	p := platformauth.FromContext(r.Context())
	if _, err := platformauth.AuthorizeTenantSlug(p, chi.URLParam(r, "slug")); err == nil {
		p = p.WithoutTenantUser()
	}
	h.writeSession(w, r, p, tenantLogoutOperation)
}

// ChangePassword handles POST /api/{slug}/change-password.
func (h *Handler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	user, err := platformauth.AuthorizeTenantSlug(platformauth.FromContext(r.Context()), chi.URLParam(r, "slug"))
	if err != nil {
		h.fail(w, r, err, changePasswordOperation)
		return
	}
	var body changePasswordRequest
	if err := problems.DecodeJSON(r, &body); err != nil {
		h.fail(w, r, err, changePasswordOperation)
		return
	}
	if err := h.svc.ChangePassword(r.Context(), user, body.OldPassword, body.NewPassword); err != nil {
		h.fail(w, r, err, changePasswordOperation)
		return
	}
	problems.WriteJSON(w, http.StatusOK, okResponse{OK: true})
}

// CreateUser handles POST /api/master/users.
func (h *Handler) CreateUser(w http.ResponseWriter, r *http.Request) {
	var body createUserRequest
	if err := problems.DecodeJSON(r, &body); err != nil {
		h.fail(w, r, err, createOperation)
		return
	}
	u, err := h.svc.CreateUser(r.Context(), body.TenantSlug, body.Username, body.Password)
	if err != nil {
		h.fail(w, r, err, createOperation)
		return
	}
	problems.WriteJSON(w, http.StatusOK, map[string]any{"ok": true, "id": u.ID})
}

// ResetPassword handles POST /api/master/users/reset.
func (h *Handler) ResetPassword(w http.ResponseWriter, r *http.Request) {
	var body resetPasswordRequest
	if err := problems.DecodeJSON(r, &body); err != nil {
		h.fail(w, r, err, resetOperation)
		return
	}
	if err := h.svc.ResetPassword(r.Context(), body.Username, body.NewPassword); err != nil {
		h.fail(w, r, err, resetOperation)
		return
	}
	problems.WriteJSON(w, http.StatusOK, okResponse{OK: true})
}

func (h *Handler) writeSession(w http.ResponseWriter, r *http.Request, p platformauth.Principal, op operation) {
	if err := h.sessions.Write(w, p); err != nil {
		h.fail(w, r, err, op)
		return
	}
	problems.WriteJSON(w, http.StatusOK, okResponse{OK: true})
}

func (h *Handler) fail(w http.ResponseWriter, r *http.Request, err error, op operation) {
	p, _ := problems.FromError(err)

	logger := platformlogging.FromRequest(r, h.logger)
	fields := []zap.Field{
		zap.String("operation", string(op)),
		zap.Int("status", p.Status),
	}
	switch {
	case p.Status >= http.StatusInternalServerError:
		logger.Error("users operation failed", append(fields, zap.Error(err))...)
	case p.Status == http.StatusUnauthorized:
		// The cause would reveal which credential part failed.
		logger.Warn("users request unauthorized", fields...)
	default:
		logger.Warn("users request rejected", append(fields, zap.Error(err))...)
	}

	problems.Write(w, p)
}
