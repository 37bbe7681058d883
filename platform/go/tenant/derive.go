package tenant

import (
	"fmt"
	"strings"
)

// ShortID renders the numeric tenant id as a fixed width, zero padded string.
func ShortID(id int64) string {
	return fmt.Sprintf("%06d", id)
}

// BuildBasePrefix returns `<envKey>/<tenantSlug>-<shortTenantId>/`.
// The id suffix keeps assets of a deleted tenant apart from a new tenant reusing its slug.
func BuildBasePrefix(envKey, slug string, id int64) string {
	envKey = strings.TrimSuffix(strings.TrimSpace(envKey), "/")
	return envKey + "/" + slug + "-" + ShortID(id) + "/"
}

// NewSpace derives the Space for a stored tenant.
func NewSpace(envKey, slug string, id int64) Space {
	return Space{TenantID: id, Slug: slug, BasePrefix: BuildBasePrefix(envKey, slug, id)}
}
