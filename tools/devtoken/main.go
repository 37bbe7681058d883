// Command devtoken mints a signed session cookie value without touching the store.
// It is meant for local curl sessions against an API started with the same SESSION_SECRET.
package main

import (
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"

	platformauth "github.com/zenGate-Global/palmyra-gacha/platform/go/auth"
	"github.com/zenGate-Global/palmyra-gacha/platform/go/tenant"
)

func main() {
	_ = godotenv.Load()

	secret := flag.String("secret", os.Getenv("SESSION_SECRET"), "session signing secret (defaults to SESSION_SECRET)")
	master := flag.Bool("master", false, "grant the master flag")
	slug := flag.String("slug", "", "tenant slug for a tenant admin session")
	tenantID := flag.Int64("tenant-id", 0, "tenant id for a tenant admin session")
	userID := flag.Int64("user-id", 0, "user id for a tenant admin session")
	expiresIn := flag.Duration("expires-in", time.Hour, "token lifetime (duration, e.g. 30m, 2h)")

	flag.Parse()

	token, err := mint(strings.TrimSpace(*secret), *master, strings.TrimSpace(*slug), *tenantID, *userID, *expiresIn)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("%s=%s\n", platformauth.DefaultSessionCookie, token)
}

func mint(secret string, master bool, slug string, tenantID, userID int64, ttl time.Duration) (string, error) {
	if secret == "" {
		return "", fmt.Errorf("secret is required")
	}

	p := platformauth.Anonymous().WithMaster(master)
	if slug != "" || tenantID != 0 || userID != 0 {
		if !tenant.ValidSlug(slug) || tenantID <= 0 || userID <= 0 {
			return "", fmt.Errorf("tenant sessions need a valid -slug, -tenant-id and -user-id")
		}
		p = p.WithTenantUser(platformauth.TenantUser{UserID: userID, TenantID: tenantID, Slug: slug})
	}
	if p.IsAnonymous() {
		return "", fmt.Errorf("pass -master and/or the tenant flags")
	}

	codec := platformauth.NewSessionCodec(platformauth.SessionConfig{Secret: []byte(secret), TTL: ttl})
	return codec.Encode(p)
}
