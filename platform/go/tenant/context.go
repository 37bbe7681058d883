package tenant

import (
	"context"
)

// Space captures the resolved tenant routing metadata for a request.
// Middleware attaches it to the context once the path slug has been resolved.
type Space struct {
	TenantID   int64
	Slug       string
	BasePrefix string
}

type ctxKey string

const spaceKey ctxKey = "GACHA_TENANT_SPACE"

// WithSpace returns a derived context carrying the tenant Space.
func WithSpace(ctx context.Context, space Space) context.Context {
	return context.WithValue(ctx, spaceKey, space)
}

// FromContext extracts the tenant Space and a boolean indicating presence.
func FromContext(ctx context.Context) (Space, bool) {
	v := ctx.Value(spaceKey)
	if v == nil {
		return Space{}, false
	}

	space, ok := v.(Space)
	return space, ok
}
