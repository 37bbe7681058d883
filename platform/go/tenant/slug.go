package tenant

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
)

var slugPattern = regexp.MustCompile(`^[a-z0-9_-]{1,32}$`)

// reservedSlugs would shadow fixed routes under /api.
var reservedSlugs = map[string]struct{}{
	"master": {},
}

// ValidSlug reports whether s can address a tenant.
func ValidSlug(s string) bool {
	return slugPattern.MatchString(s)
}

// NormalizeSlug trims whitespace and lowercases the value, then checks the slug pattern
// and the reserved names. Used when a new tenant is created.
func NormalizeSlug(input string) (string, error) {
	trimmed := strings.TrimSpace(input)
	if trimmed == "" {
		return "", errors.New("slug is required")
	}

	normalized := strings.ToLower(trimmed)
	if !ValidSlug(normalized) {
		return "", fmt.Errorf("invalid slug %q: must match ^[a-z0-9_-]{1,32}$", input)
	}
	if _, reserved := reservedSlugs[normalized]; reserved {
		return "", fmt.Errorf("slug %q is reserved", normalized)
	}

	return normalized, nil
}
