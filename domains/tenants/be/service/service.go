package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/zenGate-Global/palmyra-gacha/platform/go/auth"
	"github.com/zenGate-Global/palmyra-gacha/platform/go/persistence"
	"github.com/zenGate-Global/palmyra-gacha/platform/go/problems"
	"github.com/zenGate-Global/palmyra-gacha/platform/go/storage"
	"github.com/zenGate-Global/palmyra-gacha/platform/go/tenant"
)

// Store is the persistence surface used by the tenants service.
type Store interface {
	persistence.TenantStore
	CreateUser(ctx context.Context, params persistence.CreateUserParams) (persistence.User, error)
	FirstUserForTenant(ctx context.Context, tenantID int64) (persistence.User, error)
	UpdateUser(ctx context.Context, id int64, update persistence.UserUpdate) (persistence.User, error)
}

// CreateInput represents the request to create a tenant.
type CreateInput struct {
	Slug      string
	Name      string
	Plan      string
	PoweredBy string
}

// UpdateInput carries the master edit form. Nil fields are left untouched. When Username is
// set the tenant's first user is renamed, or created when the tenant has none.
type UpdateInput struct {
	Slug         string
	Name         *string
	Plan         *string
	PoweredBy    *string
	Announcement *string
	Username     *string
	Password     *string
}

// Service provides tenant registry and tenant settings operations.
type Service struct {
	store  Store
	assets storage.Store
	hasher auth.Hasher
	envKey string
	logger *zap.Logger
	now    func() time.Time
}

// New constructs a Service with required dependencies.
func New(store Store, assets storage.Store, hasher auth.Hasher, envKey string, logger *zap.Logger) *Service {
	if store == nil {
		panic("tenants store is required")
	}
	if assets == nil {
		panic("asset store is required")
	}
	if strings.TrimSpace(envKey) == "" {
		panic("envKey is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{store: store, assets: assets, hasher: hasher, envKey: envKey, logger: logger, now: time.Now}
}

// List returns every tenant newest first with its first admin username.
func (s *Service) List(ctx context.Context) ([]persistence.TenantSummary, error) {
	return s.store.ListTenants(ctx)
}

// Get returns a tenant by slug. Malformed slugs are reported as not found.
func (s *Service) Get(ctx context.Context, slug string) (persistence.Tenant, error) {
	if !tenant.ValidSlug(slug) {
		return persistence.Tenant{}, persistence.ErrNotFound
	}
	return s.store.GetTenantBySlug(ctx, slug)
}

// Create registers a tenant and checks that its asset prefix is writable.
func (s *Service) Create(ctx context.Context, input CreateInput) (persistence.Tenant, error) {
	fields := problems.FieldErrors{}

	slug, err := tenant.NormalizeSlug(input.Slug)
	if err != nil {
		fields.Add("slug", err.Error())
	}
	name := strings.TrimSpace(input.Name)
	if name == "" {
		fields.Add("name", "name is required")
	}
	plan, ok := parsePlan(input.Plan)
	if !ok {
		fields.Add("plan", "plan must be normal or premium")
	}
	if err := fields.Err(); err != nil {
		return persistence.Tenant{}, err
	}

	created, err := s.store.CreateTenant(ctx, persistence.CreateTenantParams{
		Slug:      slug,
		Name:      name,
		Plan:      plan,
		PoweredBy: input.PoweredBy,
		CreatedAt: s.now(),
	})
	if err != nil {
		if errors.Is(err, persistence.ErrConflict) {
			return persistence.Tenant{}, fmt.Errorf("slug %q already exists: %w", slug, err)
		}
		return persistence.Tenant{}, err
	}

	space := s.space(created)
	if err := s.assets.Check(ctx, space.BasePrefix); err != nil {
		s.logger.Warn("tenant asset prefix not writable",
			zap.String("tenant_slug", created.Slug),
			zap.String("prefix", space.BasePrefix),
			zap.Error(err),
		)
	}

	s.logger.Info("tenant created", zap.String("tenant_slug", created.Slug), zap.Int64("tenant_id", created.ID))
	return created, nil
}

// Update applies the master edit form, including the optional user upsert.
func (s *Service) Update(ctx context.Context, input UpdateInput) (persistence.Tenant, error) {
	fields := problems.FieldErrors{}
	if !tenant.ValidSlug(input.Slug) {
		fields.Add("slug", "invalid slug")
	}

	update := persistence.TenantUpdate{
		PoweredBy:    input.PoweredBy,
		Announcement: input.Announcement,
	}
	if input.Name != nil {
		name := strings.TrimSpace(*input.Name)
		if name == "" {
			fields.Add("name", "name must not be empty")
		}
		update.Name = &name
	}
	if input.Plan != nil {
		plan, ok := parsePlan(*input.Plan)
		if !ok {
			fields.Add("plan", "plan must be normal or premium")
		}
		update.Plan = &plan
	}

	var username string
	if input.Username != nil {
		username = strings.TrimSpace(*input.Username)
		if username == "" {
			fields.Add("username", "username must not be empty")
		}
	}
	if input.Password != nil && *input.Password != "" && len(*input.Password) < auth.MinPasswordLength {
		fields.Add("password", fmt.Sprintf("password must be at least %d characters", auth.MinPasswordLength))
	}
	if err := fields.Err(); err != nil {
		return persistence.Tenant{}, err
	}

	current, err := s.store.GetTenantBySlug(ctx, input.Slug)
	if err != nil {
		return persistence.Tenant{}, err
	}

	updated, err := s.store.UpdateTenant(ctx, current.ID, update)
	if err != nil {
		return persistence.Tenant{}, err
	}

	if input.Username != nil {
		var password string
		if input.Password != nil {
			password = *input.Password
		}
		if err := s.upsertUser(ctx, updated.ID, username, password); err != nil {
			return persistence.Tenant{}, err
		}
	}
	return updated, nil
}

func (s *Service) upsertUser(ctx context.Context, tenantID int64, username, password string) error {
	existing, err := s.store.FirstUserForTenant(ctx, tenantID)
	switch {
	case err == nil:
		update := persistence.UserUpdate{Username: &username}
		if password != "" {
			hash, err := s.hash(password)
			if err != nil {
				return err
			}
			update.PasswordHash = &hash
		}
		if _, err := s.store.UpdateUser(ctx, existing.ID, update); err != nil {
			return err
		}
		return nil
	case errors.Is(err, persistence.ErrNotFound):
		if password == "" {
			return problems.Invalid("password", "password is required to create the tenant user")
		}
		hash, err := s.hash(password)
		if err != nil {
			return err
		}
		_, err = s.store.CreateUser(ctx, persistence.CreateUserParams{
			TenantID:     tenantID,
			Username:     username,
			PasswordHash: hash,
			CreatedAt:    s.now(),
		})
		return err
	default:
		return err
	}
}

func (s *Service) hash(password string) (string, error) {
	hash, err := s.hasher.Hash(password)
	if errors.Is(err, auth.ErrPasswordTooLong) {
		return "", problems.Invalid("password", "password is too long")
	}
	return hash, err
}

// Broadcast sets the same announcement on every tenant.
func (s *Service) Broadcast(ctx context.Context, announcement string) (int64, error) {
	n, err := s.store.SetAnnouncementAll(ctx, announcement)
	if err != nil {
		return 0, err
	}
	s.logger.Info("announcement broadcast", zap.Int64("tenants", n))
	return n, nil
}

// SetPoweredBy replaces the tenant's powered-by credit.
func (s *Service) SetPoweredBy(ctx context.Context, slug, poweredBy string) error {
	if !tenant.ValidSlug(slug) {
		return problems.Invalid("slug", "invalid slug")
	}
	current, err := s.store.GetTenantBySlug(ctx, slug)
	if err != nil {
		return err
	}
	_, err = s.store.UpdateTenant(ctx, current.ID, persistence.TenantUpdate{PoweredBy: &poweredBy})
	return err
}

// Delete removes the tenant, its users and images, then the stored assets they referenced.
func (s *Service) Delete(ctx context.Context, slug string) error {
	if !tenant.ValidSlug(slug) {
		return problems.Invalid("slug", "invalid slug")
	}
	current, err := s.store.GetTenantBySlug(ctx, slug)
	if err != nil {
		return err
	}
	keys, err := s.store.DeleteTenant(ctx, current.ID)
	if err != nil {
		return err
	}
	s.deleteAssets(ctx, keys)
	s.logger.Info("tenant deleted", zap.String("tenant_slug", slug), zap.Int("assets", len(keys)))
	return nil
}

// ResolveTenantSpace returns the lightweight tenant Space used by the tenant middleware.
func (s *Service) ResolveTenantSpace(ctx context.Context, slug string) (tenant.Space, error) {
	t, err := s.store.GetTenantBySlug(ctx, slug)
	if err != nil {
		return tenant.Space{}, err
	}
	return s.space(t), nil
}

func (s *Service) space(t persistence.Tenant) tenant.Space {
	return tenant.NewSpace(s.envKey, t.Slug, t.ID)
}

// deleteAssets removes objects best effort; failures are logged and skipped.
func (s *Service) deleteAssets(ctx context.Context, keys []string) {
	for _, key := range keys {
		if key == "" {
			continue
		}
		if err := s.assets.Delete(ctx, key); err != nil {
			s.logger.Warn("delete asset failed", zap.String("key", key), zap.Error(err))
		}
	}
}

func parsePlan(plan string) (string, bool) {
	switch strings.TrimSpace(plan) {
	case "", persistence.PlanNormal:
		return persistence.PlanNormal, true
	case persistence.PlanPremium:
		return persistence.PlanPremium, true
	default:
		return "", false
	}
}
