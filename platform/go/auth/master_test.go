package auth

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestVerifyMasterSecret(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		configured string
		supplied   string
		want       bool
	}{
		{"match", "s3cret", "s3cret", true},
		{"mismatch", "s3cret", "s3cret!", false},
		{"prefix", "s3cret", "s3c", false},
		{"empty supplied", "s3cret", "", false},
		{"empty configured never matches", "", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			require.Equal(t, tt.want, VerifyMasterSecret(tt.configured, tt.supplied))
		})
	}
}
