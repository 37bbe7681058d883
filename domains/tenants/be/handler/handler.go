package handler

import (
	"encoding/json"
	"errors"
	"math"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/zenGate-Global/palmyra-gacha/domains/tenants/be/service"
	platformlogging "github.com/zenGate-Global/palmyra-gacha/platform/go/logging"
	"github.com/zenGate-Global/palmyra-gacha/platform/go/persistence"
	"github.com/zenGate-Global/palmyra-gacha/platform/go/problems"
	"github.com/zenGate-Global/palmyra-gacha/platform/go/storage"
	"github.com/zenGate-Global/palmyra-gacha/platform/go/tenant"
)

type operation string

const (
	listOperation         operation = "tenantsList"
	createOperation       operation = "tenantsCreate"
	updateOperation       operation = "tenantsUpdate"
	broadcastOperation    operation = "tenantsBroadcast"
	poweredByOperation    operation = "tenantsPoweredBy"
	deleteOperation       operation = "tenantsDelete"
	backgroundsOperation  operation = "tenantsBackgrounds"
	clearOperation        operation = "tenantsBackgroundsClear"
	effectSettingsOperate operation = "tenantsEffectSettings"
)

// Handler serves the master tenant registry and the tenant settings endpoints.
type Handler struct {
	svc    *service.Service
	logger *zap.Logger
}

// New constructs a Handler instance.
func New(svc *service.Service, logger *zap.Logger) *Handler {
	if svc == nil {
		panic("tenants service is required")
	}
	if logger == nil {
		panic("logger is required")
	}
	return &Handler{svc: svc, logger: logger}
}

type tenantSummary struct {
	ID           int64   `json:"id"`
	Slug         string  `json:"slug"`
	Name         string  `json:"name"`
	Plan         string  `json:"plan"`
	PoweredBy    string  `json:"powered_by"`
	Announcement *string `json:"announcement"`
	CreatedAt    int64   `json:"created_at"`
	Username     *string `json:"username"`
}

type createTenantRequest struct {
	Slug      string `json:"slug"`
	Name      string `json:"name"`
	Plan      string `json:"plan"`
	PoweredBy string `json:"powered_by"`
}

type updateTenantRequest struct {
	Slug         string  `json:"slug"`
	Name         *string `json:"name"`
	Plan         *string `json:"plan"`
	PoweredBy    *string `json:"powered_by"`
	Announcement *string `json:"announcement"`
	Username     *string `json:"username"`
	Password     *string `json:"password"`
}

type broadcastRequest struct {
	Announcement string `json:"announcement"`
}

type poweredByRequest struct {
	Slug      string  `json:"slug"`
	PoweredBy *string `json:"powered_by"`
}

type clearBackgroundsRequest struct {
	Target string `json:"target"`
}

type backgroundsResponse struct {
	OK      bool   `json:"ok"`
	BgPCURL string `json:"bg_pc_url"`
	BgSPURL string `json:"bg_sp_url"`
}

type okResponse struct {
	OK bool `json:"ok"`
}

// ListTenants handles GET /api/master/tenants.
func (h *Handler) ListTenants(w http.ResponseWriter, r *http.Request) {
	rows, err := h.svc.List(r.Context())
	if err != nil {
		h.fail(w, r, err, listOperation)
		return
	}
	items := make([]tenantSummary, 0, len(rows))
	for _, row := range rows {
		items = append(items, tenantSummary{
			ID:           row.ID,
			Slug:         row.Slug,
			Name:         row.Name,
			Plan:         row.Plan,
			PoweredBy:    row.PoweredBy,
			Announcement: row.Announcement,
			CreatedAt:    row.CreatedAt.UnixMilli(),
			Username:     row.Username,
		})
	}
	problems.WriteJSON(w, http.StatusOK, items)
}

// CreateTenant handles POST /api/master/tenants.
func (h *Handler) CreateTenant(w http.ResponseWriter, r *http.Request) {
	var body createTenantRequest
	if err := problems.DecodeJSON(r, &body); err != nil {
		h.fail(w, r, err, createOperation)
		return
	}
	created, err := h.svc.Create(r.Context(), service.CreateInput{
		Slug:      body.Slug,
		Name:      body.Name,
		Plan:      body.Plan,
		PoweredBy: body.PoweredBy,
	})
	if err != nil {
		h.fail(w, r, err, createOperation)
		return
	}
	problems.WriteJSON(w, http.StatusOK, map[string]any{"ok": true, "id": created.ID, "slug": created.Slug})
}

// UpdateTenant handles POST /api/master/tenants/update.
func (h *Handler) UpdateTenant(w http.ResponseWriter, r *http.Request) {
	var body updateTenantRequest
	if err := problems.DecodeJSON(r, &body); err != nil {
		h.fail(w, r, err, updateOperation)
		return
	}
	_, err := h.svc.Update(r.Context(), service.UpdateInput{
		Slug:         body.Slug,
		Name:         body.Name,
		Plan:         body.Plan,
		PoweredBy:    body.PoweredBy,
		Announcement: body.Announcement,
		Username:     body.Username,
		Password:     body.Password,
	})
	if err != nil {
		h.fail(w, r, err, updateOperation)
		return
	}
	problems.WriteJSON(w, http.StatusOK, okResponse{OK: true})
}

// Broadcast handles POST /api/master/tenants/broadcast.
func (h *Handler) Broadcast(w http.ResponseWriter, r *http.Request) {
	var body broadcastRequest
	if err := problems.DecodeJSON(r, &body); err != nil {
		h.fail(w, r, err, broadcastOperation)
		return
	}
	n, err := h.svc.Broadcast(r.Context(), body.Announcement)
	if err != nil {
		h.fail(w, r, err, broadcastOperation)
		return
	}
	problems.WriteJSON(w, http.StatusOK, map[string]any{"ok": true, "updated": n})
}

// PoweredBy handles POST /api/master/tenants/poweredby.
func (h *Handler) PoweredBy(w http.ResponseWriter, r *http.Request) {
	var body poweredByRequest
	if err := problems.DecodeJSON(r, &body); err != nil {
		h.fail(w, r, err, poweredByOperation)
		return
	}
	if body.PoweredBy == nil {
		h.fail(w, r, problems.Invalid("powered_by", "powered_by is required"), poweredByOperation)
		return
	}
	if err := h.svc.SetPoweredBy(r.Context(), body.Slug, *body.PoweredBy); err != nil {
		h.fail(w, r, err, poweredByOperation)
		return
	}
	problems.WriteJSON(w, http.StatusOK, okResponse{OK: true})
}

// DeleteTenant handles DELETE /api/master/tenants/{slug}.
func (h *Handler) DeleteTenant(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.Delete(r.Context(), chi.URLParam(r, "slug")); err != nil {
		h.fail(w, r, err, deleteOperation)
		return
	}
	problems.WriteJSON(w, http.StatusOK, okResponse{OK: true})
}

// UploadBackgrounds handles POST /api/{slug}/backgrounds (multipart bg_pc, bg_sp).
func (h *Handler) UploadBackgrounds(w http.ResponseWriter, r *http.Request) {
	space, ok := h.space(w, r, backgroundsOperation)
	if !ok {
		return
	}

	uploads, cleanup, err := storage.FormUploads(w, r, "bg_pc", "bg_sp")
	defer cleanup()
	if err != nil {
		h.fail(w, r, err, backgroundsOperation)
		return
	}

	bg, err := h.svc.SetBackgrounds(r.Context(), space, service.BackgroundUploads{
		PC: uploads["bg_pc"],
		SP: uploads["bg_sp"],
	})
	if err != nil {
		h.fail(w, r, err, backgroundsOperation)
		return
	}
	problems.WriteJSON(w, http.StatusOK, toBackgroundsResponse(bg))
}

// ClearBackgrounds handles POST /api/{slug}/backgrounds/clear.
func (h *Handler) ClearBackgrounds(w http.ResponseWriter, r *http.Request) {
	space, ok := h.space(w, r, clearOperation)
	if !ok {
		return
	}
	var body clearBackgroundsRequest
	if err := problems.DecodeJSON(r, &body); err != nil {
		h.fail(w, r, err, clearOperation)
		return
	}
	bg, err := h.svc.ClearBackgrounds(r.Context(), space, body.Target)
	if err != nil {
		h.fail(w, r, err, clearOperation)
		return
	}
	problems.WriteJSON(w, http.StatusOK, toBackgroundsResponse(bg))
}

// UpdateEffectSettings handles POST /api/{slug}/effect-settings. Each weight may be a JSON
// number or a numeric string; absent, null and empty values count as 0.
func (h *Handler) UpdateEffectSettings(w http.ResponseWriter, r *http.Request) {
	space, ok := h.space(w, r, effectSettingsOperate)
	if !ok {
		return
	}
	var raw map[string]json.RawMessage
	if err := problems.DecodeJSON(r, &raw); err != nil {
		h.fail(w, r, err, effectSettingsOperate)
		return
	}

	weights, err := parseEffectWeights(raw)
	if err != nil {
		h.fail(w, r, err, effectSettingsOperate)
		return
	}
	if err := h.svc.SetEffectWeights(r.Context(), space, weights); err != nil {
		h.fail(w, r, err, effectSettingsOperate)
		return
	}
	problems.WriteJSON(w, http.StatusOK, map[string]any{"ok": true, "effect_probs": weights})
}

func parseEffectWeights(raw map[string]json.RawMessage) (persistence.EffectWeights, error) {
	fields := problems.FieldErrors{}
	var values [4]int
	for i := range values {
		name := "star" + strconv.Itoa(i+1)
		v, err := parseWeight(raw[name])
		if err != nil {
			fields.Add(name, err.Error())
			continue
		}
		values[i] = v
	}
	if err := fields.Err(); err != nil {
		return persistence.EffectWeights{}, err
	}
	return persistence.EffectWeights{Star1: values[0], Star2: values[1], Star3: values[2], Star4: values[3]}, nil
}

var errWeight = errors.New("weight must be an integer between 0 and 1000000000")

func parseWeight(raw json.RawMessage) (int, error) {
	text := strings.TrimSpace(string(raw))
	if text == "" || text == "null" {
		return 0, nil
	}

	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		text = strings.TrimSpace(s)
		if text == "" {
			return 0, nil
		}
	}

	n, err := strconv.Atoi(text)
	if err != nil {
		f, ferr := strconv.ParseFloat(text, 64)
		if ferr != nil || f < 0 || f > persistence.MaxEffectWeight || f != math.Trunc(f) {
			return 0, errWeight
		}
		n = int(f)
	}
	if n < 0 || n > persistence.MaxEffectWeight {
		return 0, errWeight
	}
	return n, nil
}

func toBackgroundsResponse(bg service.Backgrounds) backgroundsResponse {
	return backgroundsResponse{
		OK:      true,
		BgPCURL: storage.PublicURL(bg.PC),
		BgSPURL: storage.PublicURL(bg.SP),
	}
}

func (h *Handler) space(w http.ResponseWriter, r *http.Request, op operation) (tenant.Space, bool) {
	space, ok := tenant.FromContext(r.Context())
	if !ok {
		h.fail(w, r, persistence.ErrNotFound, op)
		return tenant.Space{}, false
	}
	return space, true
}

func (h *Handler) fail(w http.ResponseWriter, r *http.Request, err error, op operation) {
	p, _ := problems.FromError(err)

	logger := platformlogging.FromRequest(r, h.logger)
	fields := []zap.Field{
		zap.String("operation", string(op)),
		zap.Int("status", p.Status),
		zap.Error(err),
	}
	switch {
	case p.Status >= http.StatusInternalServerError:
		logger.Error("tenants operation failed", fields...)
	case p.Status == http.StatusNotFound:
		logger.Info("tenants resource not found", fields...)
	default:
		logger.Warn("tenants request rejected", fields...)
	}

	problems.Write(w, p)
}
