package auth

import (
	"github.com/zenGate-Global/palmyra-gacha/platform/go/problems"
	"github.com/zenGate-Global/palmyra-gacha/platform/go/tenant"
)

// AuthorizeMaster fails unless the master flag is set.
func AuthorizeMaster(p Principal) error {
	if !p.IsMaster() {
		return problems.ErrUnauthorized
	}
	return nil
}

// AuthorizeTenantSlug returns the tenant user only when its session slug equals slug.
// Anonymous callers and callers logged into another tenant get the same error.
// It is a pre-check; AuthorizeTenant must still run once the tenant is resolved.
func AuthorizeTenantSlug(p Principal, slug string) (TenantUser, error) {
	u, ok := p.TenantUser()
	if !ok || slug == "" || u.Slug != slug {
		return TenantUser{}, problems.ErrUnauthorized
	}
	return u, nil
}

// AuthorizeTenant returns the tenant user only when both its slug and tenant id match the
// resolved space. A session issued for a deleted tenant whose slug was later reused fails here.
func AuthorizeTenant(p Principal, space tenant.Space) (TenantUser, error) {
	u, err := AuthorizeTenantSlug(p, space.Slug)
	if err != nil {
		return TenantUser{}, err
	}
	if space.TenantID == 0 || u.TenantID != space.TenantID {
		return TenantUser{}, problems.ErrUnauthorized
	}
	return u, nil
}
