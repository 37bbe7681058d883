package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/zenGate-Global/palmyra-gacha/domains/play/be/engine"
	"github.com/zenGate-Global/palmyra-gacha/platform/go/persistence"
	"github.com/zenGate-Global/palmyra-gacha/platform/go/persistence/memory"
	"github.com/zenGate-Global/palmyra-gacha/platform/go/random"
	"github.com/zenGate-Global/palmyra-gacha/platform/go/tenant"
)

type recorded struct {
	draws   []string
	effects []string
}

func (r *recorded) Draw(outcome string) { r.draws = append(r.draws, outcome) }
func (r *recorded) Effect(tier string)  { r.effects = append(r.effects, tier) }

func seed(t *testing.T, now time.Time, probabilities ...int) (*memory.Store, tenant.Space) {
	t.Helper()
	ctx := context.Background()
	store := memory.New()
	shop, err := store.CreateTenant(ctx, persistence.CreateTenantParams{Slug: "shop", Name: "Shop", CreatedAt: now})
	require.NoError(t, err)
	for i, p := range probabilities {
		_, err := store.InsertImage(ctx, persistence.CreateImageParams{
			TenantID:    shop.ID,
			AssetKey:    "k" + string(rune('a'+i)),
			StartAt:     now.Add(-time.Hour),
			EndAt:       now.Add(time.Hour),
			Probability: p,
			CreatedAt:   now,
		}, 5)
		require.NoError(t, err)
	}
	return store, tenant.NewSpace("test", shop.Slug, shop.ID)
}

func TestResultAlwaysAndNever(t *testing.T) {
	t.Parallel()

	now := time.Now().Truncate(time.Millisecond)
	store, space := seed(t, now, 100, 0)
	rec := &recorded{}
	svc := New(store, random.NewSeeded(7), rec, zaptest.NewLogger(t))

	for i := 0; i < 200; i++ {
		res, err := svc.Result(context.Background(), space, now)
		require.NoError(t, err)
		require.Equal(t, OutcomeWin, res.Outcome)
		require.Len(t, res.Won, 1)
		require.Equal(t, 100, res.Won[0].Probability)
	}
	require.Len(t, rec.draws, 200)
}

func TestResultKeepsMultipleWins(t *testing.T) {
	t.Parallel()

	now := time.Now().Truncate(time.Millisecond)
	store, space := seed(t, now, 50, 50, 50)
	svc := New(store, random.NewSequence(0.1, 0.9, 0.2), nil, zaptest.NewLogger(t))

	res, err := svc.Result(context.Background(), space, now)
	require.NoError(t, err)
	require.Equal(t, OutcomeWin, res.Outcome)
	require.Len(t, res.Won, 2)
}

func TestResultLosesWithoutActivePrizes(t *testing.T) {
	t.Parallel()

	now := time.Now().Truncate(time.Millisecond)
	store, space := seed(t, now, 100)
	svc := New(store, random.NewSequence(0), nil, zaptest.NewLogger(t))

	// Two hours later the only window has closed.
	res, err := svc.Result(context.Background(), space, now.Add(2*time.Hour))
	require.NoError(t, err)
	require.Equal(t, OutcomeLose, res.Outcome)
	require.NotNil(t, res.Won)
	require.Empty(t, res.Won)
}

func TestActivePrizesBounds(t *testing.T) {
	t.Parallel()

	now := time.Now().Truncate(time.Millisecond)
	store, space := seed(t, now, 10)
	svc := New(store, random.NewSequence(), nil, zaptest.NewLogger(t))

	tn, active, err := svc.ActivePrizes(context.Background(), space, now.Add(time.Hour))
	require.NoError(t, err)
	require.Equal(t, "Shop", tn.Name)
	require.Len(t, active, 1)

	_, active, err = svc.ActivePrizes(context.Background(), space, now.Add(time.Hour+time.Millisecond))
	require.NoError(t, err)
	require.Empty(t, active)
}

func TestStartUsesTenantWeights(t *testing.T) {
	t.Parallel()

	now := time.Now()
	store, space := seed(t, now)
	require.NoError(t, store.SetEffectWeights(context.Background(), space.TenantID, persistence.EffectWeights{Star3: 1}))

	rec := &recorded{}
	svc := New(store, random.NewSeeded(1), rec, zaptest.NewLogger(t))
	for i := 0; i < 20; i++ {
		effect, err := svc.Start(context.Background(), space)
		require.NoError(t, err)
		require.Equal(t, engine.Star3, effect.Tier)
		require.Equal(t, "/fx/fx3.mp4", effect.URL)
	}
	require.Equal(t, "star3", rec.effects[0])

	require.NoError(t, store.SetEffectWeights(context.Background(), space.TenantID, persistence.EffectWeights{}))
	effect, err := svc.Start(context.Background(), space)
	require.NoError(t, err)
	require.Equal(t, engine.Star1, effect.Tier)
}
