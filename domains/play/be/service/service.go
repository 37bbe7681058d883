// Package service runs the public game: tenant meta, the active prize set, the effect
// draw and the result draw.
package service

import (
	"context"
	"fmt"
	"slices"
	"time"

	"go.uber.org/zap"

	"github.com/zenGate-Global/palmyra-gacha/domains/play/be/engine"
	"github.com/zenGate-Global/palmyra-gacha/platform/go/persistence"
	"github.com/zenGate-Global/palmyra-gacha/platform/go/random"
	"github.com/zenGate-Global/palmyra-gacha/platform/go/tenant"
)

// Outcomes reported by Result.
const (
	OutcomeWin  = "win"
	OutcomeLose = "lose"
)

// Store is the read-only persistence surface used by the game.
type Store interface {
	GetTenantByID(ctx context.Context, id int64) (persistence.Tenant, error)
	ListImagesForTenant(ctx context.Context, tenantID int64) ([]persistence.Image, error)
}

// Recorder receives draw events.
type Recorder interface {
	Draw(outcome string)
	Effect(tier string)
}

// Effect is the presentation drawn at play start.
type Effect struct {
	Tier engine.Tier
	URL  string
}

// Result is one result draw.
type Result struct {
	Now     time.Time
	Outcome string
	Won     []engine.Prize
}

// Service draws effects and outcomes for a tenant.
type Service struct {
	store    Store
	src      random.Source
	recorder Recorder
	logger   *zap.Logger
}

// New constructs a Service. recorder may be nil.
func New(store Store, src random.Source, recorder Recorder, logger *zap.Logger) *Service {
	if store == nil {
		panic("play store is required")
	}
	if src == nil {
		panic("random source is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{store: store, src: src, recorder: recorder, logger: logger}
}

// Tenant returns the tenant addressed by space.
func (s *Service) Tenant(ctx context.Context, space tenant.Space) (persistence.Tenant, error) {
	return s.store.GetTenantByID(ctx, space.TenantID)
}

// ActivePrizes returns the tenant and its prizes active at now, ordered by start.
func (s *Service) ActivePrizes(ctx context.Context, space tenant.Space, now time.Time) (persistence.Tenant, []engine.Prize, error) {
	t, err := s.store.GetTenantByID(ctx, space.TenantID)
	if err != nil {
		return persistence.Tenant{}, nil, err
	}
	prizes, err := s.prizes(ctx, space.TenantID)
	if err != nil {
		return persistence.Tenant{}, nil, err
	}
	return t, slices.Collect(engine.ActiveAt(prizes, now)), nil
}

// Start draws the effect tier from the tenant's effect weights.
func (s *Service) Start(ctx context.Context, space tenant.Space) (Effect, error) {
	t, err := s.store.GetTenantByID(ctx, space.TenantID)
	if err != nil {
		return Effect{}, err
	}
	tier := engine.PickEffect(s.src, engine.Weights(t.EffectWeights.Array()))
	if s.recorder != nil {
		s.recorder.Effect(tier.String())
	}
	return Effect{Tier: tier, URL: EffectURL(tier)}, nil
}

// Result draws the winners among the prizes active at now. An empty active set and a
// draw where nothing wins both report OutcomeLose.
func (s *Service) Result(ctx context.Context, space tenant.Space, now time.Time) (Result, error) {
	prizes, err := s.prizes(ctx, space.TenantID)
	if err != nil {
		return Result{}, err
	}

	won := engine.Resolve(s.src, engine.ActiveAt(prizes, now))
	outcome := OutcomeLose
	if len(won) > 0 {
		outcome = OutcomeWin
	}
	if s.recorder != nil {
		s.recorder.Draw(outcome)
	}
	s.logger.Debug("result drawn",
		zap.String("tenant_slug", space.Slug),
		zap.String("outcome", outcome),
		zap.Int("won", len(won)),
	)
	return Result{Now: now, Outcome: outcome, Won: won}, nil
}

func (s *Service) prizes(ctx context.Context, tenantID int64) ([]engine.Prize, error) {
	images, err := s.store.ListImagesForTenant(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	prizes := make([]engine.Prize, 0, len(images))
	for _, img := range images {
		prizes = append(prizes, engine.Prize{
			ID:          img.ID,
			AssetKey:    img.AssetKey,
			StartAt:     img.StartAt,
			EndAt:       img.EndAt,
			Probability: img.Probability,
		})
	}
	return prizes, nil
}

// EffectURL is the static video played for tier.
func EffectURL(tier engine.Tier) string {
	return fmt.Sprintf("/fx/fx%d.mp4", int(tier))
}
