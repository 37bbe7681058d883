package random

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNewSeededIsDeterministic(t *testing.T) {
	t.Parallel()

	a := NewSeeded(42)
	b := NewSeeded(42)
	for i := 0; i < 100; i++ {
		require.Equal(t, a.Float64(), b.Float64())
	}
}

func TestSourcesStayInUnitInterval(t *testing.T) {
	t.Parallel()

	secure, err := NewSecure()
	require.NoError(t, err)

	for _, src := range []Source{NewSeeded(7), secure} {
		for i := 0; i < 10_000; i++ {
			v := src.Float64()
			require.GreaterOrEqual(t, v, 0.0)
			require.Less(t, v, 1.0)
		}
	}
}

func TestLockedIsSafeForConcurrentUse(t *testing.T) {
	t.Parallel()

	src := NewSeeded(1)
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 1000; j++ {
				_ = src.Float64()
			}
		}()
	}
	wg.Wait()
}

func TestSequenceWrapsAndClamps(t *testing.T) {
	t.Parallel()

	seq := NewSequence(0.25, 1.5, -3)
	require.Equal(t, 0.25, seq.Float64())
	require.Less(t, seq.Float64(), 1.0)
	require.Equal(t, 0.0, seq.Float64())
	require.Equal(t, 0.25, seq.Float64())

	require.Equal(t, 0.0, NewSequence().Float64())
}

func TestNewSeed(t *testing.T) {
	t.Parallel()

	a, err := NewSeed()
	require.NoError(t, err)
	b, err := NewSeed()
	require.NoError(t, err)
	require.NotEqual(t, a, b)
}
