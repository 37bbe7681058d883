// Package memory provides an in-process persistence.Store for tests and demos.
package memory

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/zenGate-Global/palmyra-gacha/platform/go/persistence"
)

// Store keeps every table in maps guarded by one mutex.
type Store struct {
	mu      sync.Mutex
	nextID  int64
	tenants map[int64]persistence.Tenant
	users   map[int64]persistence.User
	images  map[int64]persistence.Image
}

func New() *Store {
	return &Store{
		tenants: make(map[int64]persistence.Tenant),
		users:   make(map[int64]persistence.User),
		images:  make(map[int64]persistence.Image),
	}
}

func (s *Store) Ping(context.Context) error { return nil }
func (s *Store) Close() error               { return nil }

func (s *Store) id() int64 {
	s.nextID++
	return s.nextID
}

func clonePtr(v *string) *string {
	if v == nil {
		return nil
	}
	c := *v
	return &c
}

func cloneTenant(t persistence.Tenant) persistence.Tenant {
	t.Announcement = clonePtr(t.Announcement)
	t.BgPC = clonePtr(t.BgPC)
	t.BgSP = clonePtr(t.BgSP)
	return t
}

func ms(t time.Time) time.Time { return t.UTC().Truncate(time.Millisecond) }

func (s *Store) CreateTenant(_ context.Context, params persistence.CreateTenantParams) (persistence.Tenant, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, t := range s.tenants {
		if t.Slug == params.Slug {
			return persistence.Tenant{}, fmt.Errorf("tenant slug %q: %w", params.Slug, persistence.ErrConflict)
		}
	}
	rec := persistence.Tenant{
		ID:            s.id(),
		Slug:          params.Slug,
		Name:          params.Name,
		Plan:          persistence.NormalizePlan(params.Plan),
		PoweredBy:     params.PoweredBy,
		EffectWeights: persistence.DefaultEffectWeights,
		CreatedAt:     ms(params.CreatedAt),
	}
	s.tenants[rec.ID] = rec
	return cloneTenant(rec), nil
}

func (s *Store) GetTenantBySlug(_ context.Context, slug string) (persistence.Tenant, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, t := range s.tenants {
		if t.Slug == slug {
			return cloneTenant(t), nil
		}
	}
	return persistence.Tenant{}, persistence.ErrNotFound
}

func (s *Store) GetTenantByID(_ context.Context, id int64) (persistence.Tenant, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.tenants[id]
	if !ok {
		return persistence.Tenant{}, persistence.ErrNotFound
	}
	return cloneTenant(t), nil
}

func (s *Store) ListTenants(context.Context) ([]persistence.TenantSummary, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]persistence.TenantSummary, 0, len(s.tenants))
	for _, t := range s.tenants {
		sum := persistence.TenantSummary{Tenant: cloneTenant(t)}
		if u, ok := s.firstUserLocked(t.ID); ok {
			name := u.Username
			sum.Username = &name
		}
		out = append(out, sum)
	}
	slices.SortFunc(out, func(a, b persistence.TenantSummary) int {
		if c := b.CreatedAt.Compare(a.CreatedAt); c != 0 {
			return c
		}
		return cmp.Compare(b.ID, a.ID)
	})
	return out, nil
}

func (s *Store) UpdateTenant(_ context.Context, id int64, update persistence.TenantUpdate) (persistence.Tenant, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.tenants[id]
	if !ok {
		return persistence.Tenant{}, persistence.ErrNotFound
	}
	if update.Name != nil {
		t.Name = *update.Name
	}
	if update.Plan != nil {
		t.Plan = persistence.NormalizePlan(*update.Plan)
	}
	if update.PoweredBy != nil {
		t.PoweredBy = *update.PoweredBy
	}
	if update.Announcement != nil {
		t.Announcement = clonePtr(update.Announcement)
	}
	s.tenants[id] = t
	return cloneTenant(t), nil
}

func (s *Store) SetAnnouncementAll(_ context.Context, announcement string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for id, t := range s.tenants {
		t.Announcement = clonePtr(&announcement)
		s.tenants[id] = t
	}
	return int64(len(s.tenants)), nil
}

func (s *Store) SetEffectWeights(_ context.Context, id int64, weights persistence.EffectWeights) error {
	if _, err := persistence.MarshalEffectWeights(weights); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.tenants[id]
	if !ok {
		return persistence.ErrNotFound
	}
	t.EffectWeights = weights
	s.tenants[id] = t
	return nil
}

func (s *Store) SetBackgrounds(_ context.Context, id int64, pc, sp *string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.tenants[id]
	if !ok {
		return persistence.ErrNotFound
	}
	t.BgPC = clonePtr(pc)
	t.BgSP = clonePtr(sp)
	s.tenants[id] = t
	return nil
}

func (s *Store) DeleteTenant(_ context.Context, id int64) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.tenants[id]
	if !ok {
		return nil, persistence.ErrNotFound
	}

	var keys []string
	for _, img := range s.sortedImagesLocked(func(img persistence.Image) bool { return img.TenantID == id }) {
		keys = append(keys, img.AssetKey)
		delete(s.images, img.ID)
	}
	for uid, u := range s.users {
		if u.TenantID == id {
			delete(s.users, uid)
		}
	}
	for _, bg := range []*string{t.BgPC, t.BgSP} {
		if bg != nil && *bg != "" {
			keys = append(keys, *bg)
		}
	}
	delete(s.tenants, id)
	return keys, nil
}

func (s *Store) CreateUser(_ context.Context, params persistence.CreateUserParams) (persistence.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.tenants[params.TenantID]; !ok {
		return persistence.User{}, persistence.ErrNotFound
	}
	for _, u := range s.users {
		if u.Username == params.Username {
			return persistence.User{}, fmt.Errorf("username %q: %w", params.Username, persistence.ErrConflict)
		}
	}
	u := persistence.User{
		ID:           s.id(),
		TenantID:     params.TenantID,
		Username:     params.Username,
		PasswordHash: params.PasswordHash,
		CreatedAt:    ms(params.CreatedAt),
	}
	s.users[u.ID] = u
	return u, nil
}

func (s *Store) GetUserByUsername(_ context.Context, username string) (persistence.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, u := range s.users {
		if u.Username == username {
			return u, nil
		}
	}
	return persistence.User{}, persistence.ErrNotFound
}

func (s *Store) GetUserByID(_ context.Context, id int64) (persistence.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[id]
	if !ok {
		return persistence.User{}, persistence.ErrNotFound
	}
	return u, nil
}

func (s *Store) FirstUserForTenant(_ context.Context, tenantID int64) (persistence.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.firstUserLocked(tenantID)
	if !ok {
		return persistence.User{}, persistence.ErrNotFound
	}
	return u, nil
}

func (s *Store) firstUserLocked(tenantID int64) (persistence.User, bool) {
	var (
		first persistence.User
		found bool
	)
	for _, u := range s.users {
		if u.TenantID != tenantID {
			continue
		}
		if !found || u.CreatedAt.Before(first.CreatedAt) || (u.CreatedAt.Equal(first.CreatedAt) && u.ID < first.ID) {
			first, found = u, true
		}
	}
	return first, found
}

func (s *Store) UpdateUser(_ context.Context, id int64, update persistence.UserUpdate) (persistence.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[id]
	if !ok {
		return persistence.User{}, persistence.ErrNotFound
	}
	if update.Username != nil {
		for _, other := range s.users {
			if other.ID != id && other.Username == *update.Username {
				return persistence.User{}, fmt.Errorf("update user: %w", persistence.ErrConflict)
			}
		}
		u.Username = *update.Username
	}
	if update.PasswordHash != nil {
		u.PasswordHash = *update.PasswordHash
	}
	s.users[id] = u
	return u, nil
}

func (s *Store) InsertImage(_ context.Context, params persistence.CreateImageParams, limit int) (persistence.Image, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.tenants[params.TenantID]; !ok {
		return persistence.Image{}, persistence.ErrNotFound
	}
	if s.countLocked(params.TenantID) >= limit {
		return persistence.Image{}, persistence.ErrQuotaExceeded
	}
	img := persistence.Image{
		ID:          s.id(),
		TenantID:    params.TenantID,
		AssetKey:    params.AssetKey,
		StartAt:     ms(params.StartAt),
		EndAt:       ms(params.EndAt),
		Probability: params.Probability,
		CreatedAt:   ms(params.CreatedAt),
	}
	s.images[img.ID] = img
	return img, nil
}

func (s *Store) CountImages(_ context.Context, tenantID int64) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.countLocked(tenantID), nil
}

func (s *Store) countLocked(tenantID int64) int {
	n := 0
	for _, img := range s.images {
		if img.TenantID == tenantID {
			n++
		}
	}
	return n
}

func (s *Store) ListImagesForTenant(_ context.Context, tenantID int64) ([]persistence.Image, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := s.sortedImagesLocked(func(img persistence.Image) bool { return img.TenantID == tenantID })
	slices.SortStableFunc(out, func(a, b persistence.Image) int {
		if c := a.StartAt.Compare(b.StartAt); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})
	return out, nil
}

func (s *Store) ReapImages(_ context.Context, tenantID int64, cutoff time.Time) ([]persistence.Image, error) {
	cutoff = ms(cutoff)
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.reapLocked(func(img persistence.Image) bool {
		return img.TenantID == tenantID && img.CreatedAt.Before(cutoff)
	}), nil
}

func (s *Store) ReapAndListImages(_ context.Context, tenantID int64, cutoff time.Time) ([]persistence.Image, []persistence.Image, error) {
	cutoff = ms(cutoff)
	s.mu.Lock()
	defer s.mu.Unlock()

	reaped := s.reapLocked(func(img persistence.Image) bool {
		return img.TenantID == tenantID && img.CreatedAt.Before(cutoff)
	})
	remaining := s.sortedImagesLocked(func(img persistence.Image) bool { return img.TenantID == tenantID })
	slices.SortFunc(remaining, func(a, b persistence.Image) int {
		if c := b.CreatedAt.Compare(a.CreatedAt); c != 0 {
			return c
		}
		return cmp.Compare(b.ID, a.ID)
	})
	return reaped, remaining, nil
}

func (s *Store) ReapAllImages(_ context.Context, cutoff time.Time) ([]persistence.Image, error) {
	cutoff = ms(cutoff)
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.reapLocked(func(img persistence.Image) bool { return img.CreatedAt.Before(cutoff) }), nil
}

func (s *Store) DeleteImage(_ context.Context, tenantID, id int64) (persistence.Image, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	img, ok := s.images[id]
	if !ok || img.TenantID != tenantID {
		return persistence.Image{}, persistence.ErrNotFound
	}
	delete(s.images, id)
	return img, nil
}

func (s *Store) reapLocked(match func(persistence.Image) bool) []persistence.Image {
	reaped := s.sortedImagesLocked(match)
	for _, img := range reaped {
		delete(s.images, img.ID)
	}
	return reaped
}

// sortedImagesLocked returns matching images ordered by id.
func (s *Store) sortedImagesLocked(match func(persistence.Image) bool) []persistence.Image {
	out := []persistence.Image{}
	for _, img := range s.images {
		if match(img) {
			out = append(out, img)
		}
	}
	slices.SortFunc(out, func(a, b persistence.Image) int { return cmp.Compare(a.ID, b.ID) })
	return out
}

var _ persistence.Store = (*Store)(nil)
