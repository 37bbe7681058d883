package auth

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestHasher(t *testing.T) {
	t.Parallel()

	h := NewHasher(bcrypt.MinCost)
	hash, err := h.Hash("hunter22")
	require.NoError(t, err)
	require.NotEqual(t, "hunter22", hash)

	require.True(t, h.Compare(hash, "hunter22"))
	require.False(t, h.Compare(hash, "hunter23"))
	require.False(t, h.Compare("not-a-hash", "hunter22"))

	_, err = h.Hash(strings.Repeat("a", 73))
	require.ErrorIs(t, err, ErrPasswordTooLong)

	h.CompareDummy("anything")
}

func TestDummyHashUsesHasherCost(t *testing.T) {
	t.Parallel()

	for _, cost := range []int{bcrypt.MinCost, bcrypt.MinCost + 1} {
		h := NewHasher(cost)
		got, err := bcrypt.Cost(h.dummyHash())
		require.NoError(t, err)
		require.Equal(t, cost, got)
		require.Equal(t, h.dummyHash(), h.dummyHash())
	}

	got, err := bcrypt.Cost(NewHasher(0).dummyHash())
	require.NoError(t, err)
	require.Equal(t, bcrypt.DefaultCost, got)
}
