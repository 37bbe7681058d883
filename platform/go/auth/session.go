package auth

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const (
	DefaultSessionCookie = "gacha_session"
	DefaultSessionTTL    = 12 * time.Hour
)

// SessionConfig configures the signed session cookie.
type SessionConfig struct {
	Secret     []byte
	TTL        time.Duration
	CookieName string
	Secure     bool
	Now        func() time.Time
}

// SessionCodec stores a Principal in an HS256-signed JWT cookie.
type SessionCodec struct {
	secret []byte
	ttl    time.Duration
	name   string
	secure bool
	now    func() time.Time
}

type sessionClaims struct {
	Master   bool   `json:"mst,omitempty"`
	UserID   int64  `json:"uid,omitempty"`
	TenantID int64  `json:"tid,omitempty"`
	Slug     string `json:"tsl,omitempty"`
	jwt.RegisteredClaims
}

func NewSessionCodec(cfg SessionConfig) *SessionCodec {
	if len(cfg.Secret) == 0 {
		panic("auth.NewSessionCodec: secret must not be empty")
	}
	c := &SessionCodec{
		secret: cfg.Secret,
		ttl:    cfg.TTL,
		name:   cfg.CookieName,
		secure: cfg.Secure,
		now:    cfg.Now,
	}
	if c.ttl <= 0 {
		c.ttl = DefaultSessionTTL
	}
	if c.name == "" {
		c.name = DefaultSessionCookie
	}
	if c.now == nil {
		c.now = time.Now
	}
	return c
}

// CookieName is the name of the session cookie.
func (c *SessionCodec) CookieName() string { return c.name }

// Encode signs p into a token valid for the configured TTL.
func (c *SessionCodec) Encode(p Principal) (string, error) {
	now := c.now()
	claims := sessionClaims{
		Master: p.master,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(c.ttl)),
		},
	}
	if u, ok := p.TenantUser(); ok {
		claims.UserID = u.UserID
		claims.TenantID = u.TenantID
		claims.Slug = u.Slug
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(c.secret)
	if err != nil {
		return "", fmt.Errorf("sign session: %w", err)
	}
	return token, nil
}

// Decode verifies token and rebuilds the principal it carries.
func (c *SessionCodec) Decode(token string) (Principal, error) {
	var claims sessionClaims
	_, err := jwt.ParseWithClaims(token, &claims,
		func(*jwt.Token) (any, error) { return c.secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(c.now),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return Anonymous(), fmt.Errorf("parse session: %w", err)
	}

	p := Anonymous().WithMaster(claims.Master)
	if claims.UserID != 0 || claims.TenantID != 0 || claims.Slug != "" {
		if claims.UserID == 0 || claims.TenantID == 0 || claims.Slug == "" {
			return Anonymous(), errors.New("parse session: incomplete tenant identity")
		}
		p = p.WithTenantUser(TenantUser{UserID: claims.UserID, TenantID: claims.TenantID, Slug: claims.Slug})
	}
	return p, nil
}

// Read returns the principal in the request cookie. Missing, expired or
// tampered cookies read as Anonymous.
func (c *SessionCodec) Read(r *http.Request) Principal {
	cookie, err := r.Cookie(c.name)
	if err != nil || cookie.Value == "" {
		return Anonymous()
	}
	p, err := c.Decode(cookie.Value)
	if err != nil {
		return Anonymous()
	}
	return p
}

// Write stores p in the response cookie; an anonymous principal clears it.
func (c *SessionCodec) Write(w http.ResponseWriter, p Principal) error {
	if p.IsAnonymous() {
		c.Clear(w)
		return nil
	}
	token, err := c.Encode(p)
	if err != nil {
		return err
	}
	http.SetCookie(w, &http.Cookie{
		Name:     c.name,
		Value:    token,
		Path:     "/",
		Expires:  c.now().Add(c.ttl),
		MaxAge:   int(c.ttl / time.Second),
		HttpOnly: true,
		Secure:   c.secure,
		SameSite: http.SameSiteLaxMode,
	})
	return nil
}

func (c *SessionCodec) Clear(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     c.name,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   c.secure,
		SameSite: http.SameSiteLaxMode,
	})
}
