package engine

import (
	"slices"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/zenGate-Global/palmyra-gacha/platform/go/random"
)

func TestWinsConvergesToProbability(t *testing.T) {
	t.Parallel()

	src := random.NewSeeded(20240601)
	const trials = 10_000
	wins := 0
	for i := 0; i < trials; i++ {
		if Wins(src, 30) {
			wins++
		}
	}
	rate := float64(wins) / trials
	require.GreaterOrEqual(t, rate, 0.27)
	require.LessOrEqual(t, rate, 0.33)
}

func TestWinsExtremes(t *testing.T) {
	t.Parallel()

	src := random.NewSeeded(99)
	for i := 0; i < 5_000; i++ {
		require.False(t, Wins(src, 0))
		require.False(t, Wins(src, -10))
		require.True(t, Wins(src, 100))
		require.True(t, Wins(src, 150))
	}

	edge := random.NewSequence(0, 0.999999)
	require.False(t, Wins(edge, 0))
	require.True(t, Wins(edge, 100))
}

func TestWinsThreshold(t *testing.T) {
	t.Parallel()

	// 0.3*100 is not strictly below 30.
	require.False(t, Wins(random.NewSequence(0.3), 30))
	require.True(t, Wins(random.NewSequence(0.29), 30))
}

func TestResolveIndependentDrawsKeepOrder(t *testing.T) {
	t.Parallel()

	now := time.Now()
	prizes := []Prize{
		{ID: 1, StartAt: now.Add(-3 * time.Minute), EndAt: now.Add(time.Minute), Probability: 50},
		{ID: 2, StartAt: now.Add(-2 * time.Minute), EndAt: now.Add(time.Minute), Probability: 50},
		{ID: 3, StartAt: now.Add(-1 * time.Minute), EndAt: now.Add(time.Minute), Probability: 50},
	}

	won := Resolve(random.NewSequence(0.1, 0.9, 0.2), ActiveAt(prizes, now))
	require.Equal(t, []int64{1, 3}, ids(won))
}

func TestResolveEmptyOutcomesLookTheSame(t *testing.T) {
	t.Parallel()

	now := time.Now()
	none := Resolve(random.NewSeeded(1), ActiveAt(nil, now))
	lost := Resolve(random.NewSeeded(1), slices.Values([]Prize{{ID: 1, Probability: 0}}))

	require.NotNil(t, none)
	require.NotNil(t, lost)
	require.Equal(t, none, lost)
}

func TestResolveAlwaysAndNever(t *testing.T) {
	t.Parallel()

	now := time.Now()
	prizes := []Prize{
		{ID: 10, StartAt: now.Add(-time.Hour), EndAt: now.Add(time.Hour), Probability: 100},
		{ID: 20, StartAt: now.Add(-time.Hour), EndAt: now.Add(time.Hour), Probability: 0},
	}
	src := random.NewSeeded(3)
	for i := 0; i < 1_000; i++ {
		require.Equal(t, []int64{10}, ids(Resolve(src, ActiveAt(prizes, now))))
	}
}
