package persistence

import (
	"context"
	"fmt"
	"time"

	"github.com/zenGate-Global/palmyra-gacha/platform/go/problems"
)

var (
	// ErrNotFound is returned when a tenant, user or image row does not exist.
	ErrNotFound = fmt.Errorf("record %w", problems.ErrNotFound)
	// ErrConflict is returned when a unique slug or username is already taken.
	ErrConflict = fmt.Errorf("record %w", problems.ErrConflict)
	// ErrQuotaExceeded is returned by InsertImage when the tenant is at its image limit.
	ErrQuotaExceeded = fmt.Errorf("image %w", problems.ErrQuotaExceeded)
)

const (
	PlanNormal  = "normal"
	PlanPremium = "premium"
)

// Tenant is a shop running the game.
type Tenant struct {
	ID            int64
	Slug          string
	Name          string
	Plan          string
	PoweredBy     string
	Announcement  *string
	EffectWeights EffectWeights
	BgPC          *string
	BgSP          *string
	CreatedAt     time.Time
}

// TenantSummary is a tenant row joined with its first admin username.
type TenantSummary struct {
	Tenant
	Username *string
}

type CreateTenantParams struct {
	Slug      string
	Name      string
	Plan      string
	PoweredBy string
	CreatedAt time.Time
}

// TenantUpdate carries optional changes; nil fields are left untouched.
type TenantUpdate struct {
	Name         *string
	Plan         *string
	PoweredBy    *string
	Announcement *string
}

// User is a tenant admin credential.
type User struct {
	ID           int64
	TenantID     int64
	Username     string
	PasswordHash string
	CreatedAt    time.Time
}

type CreateUserParams struct {
	TenantID     int64
	Username     string
	PasswordHash string
	CreatedAt    time.Time
}

// UserUpdate carries optional changes; nil fields are left untouched.
type UserUpdate struct {
	Username     *string
	PasswordHash *string
}

// Image is a prize image with its validity window and win probability.
type Image struct {
	ID          int64
	TenantID    int64
	AssetKey    string
	StartAt     time.Time
	EndAt       time.Time
	Probability int
	CreatedAt   time.Time
}

type CreateImageParams struct {
	TenantID    int64
	AssetKey    string
	StartAt     time.Time
	EndAt       time.Time
	Probability int
	CreatedAt   time.Time
}

// TenantStore persists tenants.
type TenantStore interface {
	CreateTenant(ctx context.Context, params CreateTenantParams) (Tenant, error)
	GetTenantBySlug(ctx context.Context, slug string) (Tenant, error)
	GetTenantByID(ctx context.Context, id int64) (Tenant, error)
	// ListTenants returns every tenant newest first, joined with its first username.
	ListTenants(ctx context.Context) ([]TenantSummary, error)
	UpdateTenant(ctx context.Context, id int64, update TenantUpdate) (Tenant, error)
	// SetAnnouncementAll overwrites the announcement of every tenant and returns the row count.
	SetAnnouncementAll(ctx context.Context, announcement string) (int64, error)
	SetEffectWeights(ctx context.Context, id int64, weights EffectWeights) error
	// SetBackgrounds writes both background keys as given; nil clears a slot.
	SetBackgrounds(ctx context.Context, id int64, pc, sp *string) error
	// DeleteTenant removes the tenant with its users and images and returns the
	// asset keys that were referenced by the deleted rows.
	DeleteTenant(ctx context.Context, id int64) ([]string, error)
}

// UserStore persists tenant admin users.
type UserStore interface {
	CreateUser(ctx context.Context, params CreateUserParams) (User, error)
	GetUserByUsername(ctx context.Context, username string) (User, error)
	GetUserByID(ctx context.Context, id int64) (User, error)
	// FirstUserForTenant returns the tenant's oldest user.
	FirstUserForTenant(ctx context.Context, tenantID int64) (User, error)
	UpdateUser(ctx context.Context, id int64, update UserUpdate) (User, error)
}

// ImageStore persists prize images.
type ImageStore interface {
	// InsertImage counts the tenant's rows and inserts only while the count is
	// below limit. Count and insert are serialized per tenant.
	InsertImage(ctx context.Context, params CreateImageParams, limit int) (Image, error)
	CountImages(ctx context.Context, tenantID int64) (int, error)
	// ListImagesForTenant returns rows ordered by start_at then id.
	ListImagesForTenant(ctx context.Context, tenantID int64) ([]Image, error)
	// ReapImages deletes the tenant's rows created before cutoff and returns them.
	ReapImages(ctx context.Context, tenantID int64, cutoff time.Time) ([]Image, error)
	// ReapAndListImages reaps like ReapImages and lists the remaining rows newest
	// first, in one transaction.
	ReapAndListImages(ctx context.Context, tenantID int64, cutoff time.Time) (reaped, remaining []Image, err error)
	// ReapAllImages reaps across every tenant.
	ReapAllImages(ctx context.Context, cutoff time.Time) ([]Image, error)
	// DeleteImage removes one of the tenant's rows and returns it.
	DeleteImage(ctx context.Context, tenantID, id int64) (Image, error)
}

// Store is the full persistence surface used by the API and CLI.
type Store interface {
	TenantStore
	UserStore
	ImageStore
	Ping(ctx context.Context) error
	Close() error
}

// NormalizePlan maps empty or unknown plans to PlanNormal.
func NormalizePlan(plan string) string {
	if plan == PlanPremium {
		return PlanPremium
	}
	return PlanNormal
}
