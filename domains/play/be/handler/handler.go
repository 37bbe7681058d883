package handler

import (
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/zenGate-Global/palmyra-gacha/domains/play/be/engine"
	"github.com/zenGate-Global/palmyra-gacha/domains/play/be/service"
	platformlogging "github.com/zenGate-Global/palmyra-gacha/platform/go/logging"
	"github.com/zenGate-Global/palmyra-gacha/platform/go/persistence"
	"github.com/zenGate-Global/palmyra-gacha/platform/go/problems"
	"github.com/zenGate-Global/palmyra-gacha/platform/go/storage"
	"github.com/zenGate-Global/palmyra-gacha/platform/go/tenant"
)

type operation string

const (
	metaOperation   operation = "playMeta"
	activeOperation operation = "playActiveImages"
	startOperation  operation = "playStart"
	resultOperation operation = "playResult"
)

// Handler serves the public game endpoints.
type Handler struct {
	svc    *service.Service
	logger *zap.Logger
	now    func() time.Time
}

func New(svc *service.Service, logger *zap.Logger) *Handler {
	if svc == nil {
		panic("play service is required")
	}
	if logger == nil {
		panic("logger is required")
	}
	return &Handler{svc: svc, logger: logger, now: time.Now}
}

type metaResponse struct {
	Slug         string                    `json:"slug"`
	Name         string                    `json:"name"`
	PoweredBy    string                    `json:"powered_by"`
	Announcement string                    `json:"announcement"`
	BgPCURL      string                    `json:"bg_pc_url"`
	BgSPURL      string                    `json:"bg_sp_url"`
	EffectProbs  persistence.EffectWeights `json:"effect_probs"`
}

type prizeResponse struct {
	ID          int64  `json:"id"`
	URL         string `json:"url"`
	StartAt     int64  `json:"start_at"`
	EndAt       int64  `json:"end_at"`
	Probability int    `json:"probability"`
}

type activeResponse struct {
	Now    int64           `json:"now"`
	Tenant metaResponse    `json:"tenant"`
	Images []prizeResponse `json:"images"`
}

type startResponse struct {
	Tier      string `json:"tier"`
	EffectURL string `json:"effect_url"`
}

type resultResponse struct {
	Now     int64           `json:"now"`
	Outcome string          `json:"outcome"`
	Won     []prizeResponse `json:"won"`
}

// Meta handles GET /api/{slug}/meta.
func (h *Handler) Meta(w http.ResponseWriter, r *http.Request) {
	space, ok := h.space(w, r, metaOperation)
	if !ok {
		return
	}
	t, err := h.svc.Tenant(r.Context(), space)
	if err != nil {
		h.fail(w, r, err, metaOperation)
		return
	}
	problems.WriteJSON(w, http.StatusOK, toMeta(t))
}

// ActiveImages handles GET /api/{slug}/active-images.
func (h *Handler) ActiveImages(w http.ResponseWriter, r *http.Request) {
	space, ok := h.space(w, r, activeOperation)
	if !ok {
		return
	}
	now := h.now()
	t, prizes, err := h.svc.ActivePrizes(r.Context(), space, now)
	if err != nil {
		h.fail(w, r, err, activeOperation)
		return
	}
	problems.WriteJSON(w, http.StatusOK, activeResponse{
		Now:    now.UnixMilli(),
		Tenant: toMeta(t),
		Images: toPrizes(prizes),
	})
}

// Start handles POST /api/{slug}/play/start.
func (h *Handler) Start(w http.ResponseWriter, r *http.Request) {
	space, ok := h.space(w, r, startOperation)
	if !ok {
		return
	}
	effect, err := h.svc.Start(r.Context(), space)
	if err != nil {
		h.fail(w, r, err, startOperation)
		return
	}
	problems.WriteJSON(w, http.StatusOK, startResponse{Tier: effect.Tier.String(), EffectURL: effect.URL})
}

// Result handles POST /api/{slug}/play/result.
func (h *Handler) Result(w http.ResponseWriter, r *http.Request) {
	space, ok := h.space(w, r, resultOperation)
	if !ok {
		return
	}
	res, err := h.svc.Result(r.Context(), space, h.now())
	if err != nil {
		h.fail(w, r, err, resultOperation)
		return
	}
	problems.WriteJSON(w, http.StatusOK, resultResponse{
		Now:     res.Now.UnixMilli(),
		Outcome: res.Outcome,
		Won:     toPrizes(res.Won),
	})
}

func toMeta(t persistence.Tenant) metaResponse {
	resp := metaResponse{
		Slug:        t.Slug,
		Name:        t.Name,
		PoweredBy:   t.PoweredBy,
		EffectProbs: t.EffectWeights,
	}
	if t.Announcement != nil {
		resp.Announcement = *t.Announcement
	}
	if t.BgPC != nil {
		resp.BgPCURL = storage.PublicURL(*t.BgPC)
	}
	if t.BgSP != nil {
		resp.BgSPURL = storage.PublicURL(*t.BgSP)
	}
	return resp
}

func toPrizes(prizes []engine.Prize) []prizeResponse {
	out := make([]prizeResponse, 0, len(prizes))
	for _, p := range prizes {
		out = append(out, prizeResponse{
			ID:          p.ID,
			URL:         storage.PublicURL(p.AssetKey),
			StartAt:     p.StartAt.UnixMilli(),
			EndAt:       p.EndAt.UnixMilli(),
			Probability: p.Probability,
		})
	}
	return out
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
	if p.Status >= http.StatusInternalServerError {
		logger.Error("play operation failed", zap.String("operation", string(op)), zap.Error(err))
	} else {
		logger.Info("play request rejected", zap.String("operation", string(op)), zap.Int("status", p.Status))
	}
	problems.Write(w, p)
}
