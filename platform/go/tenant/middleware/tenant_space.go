package middleware

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/zenGate-Global/palmyra-gacha/platform/go/problems"
	"github.com/zenGate-Global/palmyra-gacha/platform/go/tenant"
)

// Resolver defines the minimal lookup capability required to populate a tenant Space.
// Implemented by the tenants service.
type Resolver interface {
	ResolveTenantSpace(ctx context.Context, slug string) (tenant.Space, error)
}

// Config controls middleware behavior.
type Config struct {
	// URLParam names the chi route parameter carrying the slug. Defaults to "slug".
	URLParam string
	// Optional small in-memory TTL cache to avoid store hits; zero disables caching.
	CacheTTL time.Duration
}

// WithTenantSpace resolves the tenant addressed by the path slug and attaches tenant.Space
// to the context. Malformed slugs are rejected with 400 and unknown tenants with 404.
func WithTenantSpace(resolver Resolver, cfg Config) func(http.Handler) http.Handler {
	if resolver == nil {
		panic("tenant middleware: resolver is required")
	}
	param := cfg.URLParam
	if param == "" {
		param = "slug"
	}

	var cache *tenantCache
	if cfg.CacheTTL > 0 {
		cache = newTenantCache(cfg.CacheTTL)
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			slug := chi.URLParam(r, param)
			if !tenant.ValidSlug(slug) {
				problems.Write(w, problems.BadRequest("invalid slug"))
				return
			}

			if cached, ok := cache.get(slug); ok {
				next.ServeHTTP(w, r.WithContext(tenant.WithSpace(r.Context(), cached)))
				return
			}

			space, err := resolver.ResolveTenantSpace(r.Context(), slug)
			if err != nil {
				problems.Respond(w, r, nil, err)
				return
			}

			cache.put(space)

			next.ServeHTTP(w, r.WithContext(tenant.WithSpace(r.Context(), space)))
		})
	}
}

type tenantCache struct {
	ttl   time.Duration
	mu    sync.Mutex
	items map[string]cacheItem
}

type cacheItem struct {
	space     tenant.Space
	expiresAt time.Time
}

func newTenantCache(ttl time.Duration) *tenantCache {
	return &tenantCache{ttl: ttl, items: make(map[string]cacheItem)}
}

func (c *tenantCache) get(slug string) (tenant.Space, bool) {
	if c == nil {
		return tenant.Space{}, false
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	item, ok := c.items[slug]
	if !ok || time.Now().After(item.expiresAt) {
		delete(c.items, slug)
		return tenant.Space{}, false
	}
	return item.space, true
}

func (c *tenantCache) put(space tenant.Space) {
	if c == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items[space.Slug] = cacheItem{space: space, expiresAt: time.Now().Add(c.ttl)}
}
