package main

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	platformauth "github.com/zenGate-Global/palmyra-gacha/platform/go/auth"
)

func TestMint(t *testing.T) {
	t.Parallel()

	token, err := mint("s3cret", true, "shop", 3, 7, time.Hour)
	require.NoError(t, err)

	p, err := platformauth.NewSessionCodec(platformauth.SessionConfig{Secret: []byte("s3cret")}).Decode(token)
	require.NoError(t, err)
	require.True(t, p.IsMaster())
	user, ok := p.TenantUser()
	require.True(t, ok)
	require.Equal(t, platformauth.TenantUser{UserID: 7, TenantID: 3, Slug: "shop"}, user)

	_, err = mint("", true, "", 0, 0, time.Hour)
	require.Error(t, err)
	_, err = mint("s3cret", false, "", 0, 0, time.Hour)
	require.Error(t, err)
	_, err = mint("s3cret", false, "shop", 0, 7, time.Hour)
	require.Error(t, err)
}
