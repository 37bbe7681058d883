package tenant

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNormalizeSlug(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name        string
		input       string
		expectSlug  string
		expectError bool
	}{
		{name: "already normalized", input: "shop-01", expectSlug: "shop-01"},
		{name: "underscores allowed", input: "tokyo_store", expectSlug: "tokyo_store"},
		{name: "trims whitespace and lowercases", input: "  Akiba-Shop ", expectSlug: "akiba-shop"},
		{name: "empty string", input: "   ", expectError: true},
		{name: "invalid characters", input: "shop.01", expectError: true},
		{name: "too long", input: strings.Repeat("a", 33), expectError: true},
		{name: "max length", input: strings.Repeat("a", 32), expectSlug: strings.Repeat("a", 32)},
		{name: "reserved", input: "Master", expectError: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			slug, err := NormalizeSlug(tt.input)
			if tt.expectError {
				require.Error(t, err)
				return
			}

			require.NoError(t, err)
			require.Equal(t, tt.expectSlug, slug)
		})
	}
}

func TestValidSlugDoesNotNormalize(t *testing.T) {
	t.Parallel()

	require.True(t, ValidSlug("shop"))
	require.False(t, ValidSlug("Shop"))
	require.False(t, ValidSlug(""))
	require.False(t, ValidSlug("../etc"))
}

func TestBuildBasePrefix(t *testing.T) {
	t.Parallel()

	require.Equal(t, "dev/shop-000042/", BuildBasePrefix("dev/", "shop", 42))
	space := NewSpace("prod", "akiba", 7)
	require.Equal(t, int64(7), space.TenantID)
	require.Equal(t, "prod/akiba-000007/", space.BasePrefix)
}
