package handler

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/oapi-codegen/runtime"
	"go.uber.org/zap"

	"github.com/zenGate-Global/palmyra-gacha/domains/images/be/service"
	platformlogging "github.com/zenGate-Global/palmyra-gacha/platform/go/logging"
	"github.com/zenGate-Global/palmyra-gacha/platform/go/persistence"
	"github.com/zenGate-Global/palmyra-gacha/platform/go/problems"
	"github.com/zenGate-Global/palmyra-gacha/platform/go/storage"
	"github.com/zenGate-Global/palmyra-gacha/platform/go/tenant"
)

type operation string

const (
	listOperation   operation = "imagesList"
	createOperation operation = "imagesCreate"
	deleteOperation operation = "imagesDelete"
)

const defaultProbability = 100

// Handler serves the tenant admin image endpoints.
type Handler struct {
	svc    *service.Service
	logger *zap.Logger
	now    func() time.Time
}

// New constructs a Handler instance.
func New(svc *service.Service, logger *zap.Logger) *Handler {
	if svc == nil {
		panic("images service is required")
	}
	if logger == nil {
		panic("logger is required")
	}
	return &Handler{svc: svc, logger: logger, now: time.Now}
}

type imageResponse struct {
	ID          int64  `json:"id"`
	URL         string `json:"url"`
	StartAt     int64  `json:"start_at"`
	EndAt       int64  `json:"end_at"`
	Probability int    `json:"probability"`
	CreatedAt   int64  `json:"created_at"`
}

// ListImages handles GET /api/{slug}/images. Expired rows are reaped first.
func (h *Handler) ListImages(w http.ResponseWriter, r *http.Request) {
	space, ok := h.space(w, r, listOperation)
	if !ok {
		return
	}
	images, err := h.svc.List(r.Context(), space, h.now())
	if err != nil {
		h.fail(w, r, err, listOperation)
		return
	}
	items := make([]imageResponse, 0, len(images))
	for _, img := range images {
		items = append(items, toImageResponse(img))
	}
	problems.WriteJSON(w, http.StatusOK, items)
}

// CreateImage handles POST /api/{slug}/images (multipart image, start_at, end_at, probability).
func (h *Handler) CreateImage(w http.ResponseWriter, r *http.Request) {
	space, ok := h.space(w, r, createOperation)
	if !ok {
		return
	}

	uploads, cleanup, err := storage.FormUploads(w, r, "image")
	defer cleanup()
	if err != nil {
		h.fail(w, r, err, createOperation)
		return
	}

	input, err := parseCreateForm(r)
	if err != nil {
		h.fail(w, r, err, createOperation)
		return
	}
	if up, ok := uploads["image"]; ok {
		input.Upload = *up
	}

	img, err := h.svc.Create(r.Context(), space, input, h.now())
	if err != nil {
		h.fail(w, r, err, createOperation)
		return
	}
	problems.WriteJSON(w, http.StatusOK, map[string]any{"ok": true, "id": img.ID, "image": toImageResponse(img)})
}

// DeleteImage handles DELETE /api/{slug}/images/{id}.
func (h *Handler) DeleteImage(w http.ResponseWriter, r *http.Request) {
	space, ok := h.space(w, r, deleteOperation)
	if !ok {
		return
	}

	var id int64
	err := runtime.BindStyledParameterWithOptions("simple", "id", chi.URLParam(r, "id"), &id,
		runtime.BindStyledParameterOptions{ParamLocation: runtime.ParamLocationPath, Explode: false, Required: true})
	if err != nil || id <= 0 {
		h.fail(w, r, problems.Invalid("id", "id must be a positive integer"), deleteOperation)
		return
	}

	if err := h.svc.Delete(r.Context(), space, id); err != nil {
		h.fail(w, r, err, deleteOperation)
		return
	}
	problems.WriteJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

func parseCreateForm(r *http.Request) (service.CreateInput, error) {
	fields := problems.FieldErrors{}
	var input service.CreateInput

	if start, ok := parseMillis(r.FormValue("start_at")); ok {
		input.StartAt = start
	} else {
		fields.Add("start_at", "start_at must be epoch milliseconds")
	}
	if end, ok := parseMillis(r.FormValue("end_at")); ok {
		input.EndAt = end
	} else {
		fields.Add("end_at", "end_at must be epoch milliseconds")
	}

	input.Probability = defaultProbability
	if raw := strings.TrimSpace(r.FormValue("probability")); raw != "" {
		p, err := strconv.Atoi(raw)
		if err != nil {
			fields.Add("probability", "probability must be an integer")
		} else {
			input.Probability = p
		}
	}

	if err := fields.Err(); err != nil {
		return service.CreateInput{}, err
	}
	return input, nil
}

func parseMillis(raw string) (time.Time, bool) {
	ms, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
	if err != nil || ms <= 0 {
		return time.Time{}, false
	}
	return time.UnixMilli(ms).UTC(), true
}

func toImageResponse(img persistence.Image) imageResponse {
	return imageResponse{
		ID:          img.ID,
		URL:         storage.PublicURL(img.AssetKey),
		StartAt:     img.StartAt.UnixMilli(),
		EndAt:       img.EndAt.UnixMilli(),
		Probability: img.Probability,
		CreatedAt:   img.CreatedAt.UnixMilli(),
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
		logger.Error("images operation failed", fields...)
	case p.Status == http.StatusNotFound:
		logger.Info("images resource not found", fields...)
	default:
		logger.Warn("images request rejected", fields...)
	}

	problems.Write(w, p)
}
