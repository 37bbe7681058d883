package auth

import (
	"context"
)

type ctxKey string

const ctxPrincipal ctxKey = "GACHA_PRINCIPAL"

// TenantUser identifies a logged-in tenant admin and the tenant it belongs to.
type TenantUser struct {
	UserID   int64
	TenantID int64
	Slug     string
}

// Principal is the caller identity for one request. It is immutable; the With*
// methods return modified copies. The master flag and the tenant user are
// independent and may both be present.
type Principal struct {
	master bool
	user   *TenantUser
}

// Anonymous returns a principal with no credentials.
func Anonymous() Principal { return Principal{} }

func (p Principal) IsMaster() bool { return p.master }

func (p Principal) TenantUser() (TenantUser, bool) {
	if p.user == nil {
		return TenantUser{}, false
	}
	return *p.user, true
}

func (p Principal) IsAnonymous() bool { return !p.master && p.user == nil }

func (p Principal) WithMaster(master bool) Principal {
	p.master = master
	return p
}

func (p Principal) WithTenantUser(u TenantUser) Principal {
	p.user = &u
	return p
}

func (p Principal) WithoutTenantUser() Principal {
	p.user = nil
	return p
}

const (
	KindMaster     = "master"
	KindTenantUser = "tenant_user"
	KindAnonymous  = "anonymous"
)

// Kind names the strongest credential held, for logs and traces.
func (p Principal) Kind() string {
	switch {
	case p.master:
		return KindMaster
	case p.user != nil:
		return KindTenantUser
	default:
		return KindAnonymous
	}
}

func WithPrincipal(ctx context.Context, p Principal) context.Context {
	return context.WithValue(ctx, ctxPrincipal, p)
}

// FromContext returns the request principal, or Anonymous when none was set.
func FromContext(ctx context.Context) Principal {
	if ctx == nil {
		return Anonymous()
	}
	p, ok := ctx.Value(ctxPrincipal).(Principal)
	if !ok {
		return Anonymous()
	}
	return p
}
