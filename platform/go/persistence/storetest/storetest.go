// Package storetest holds the behavioural suite every persistence.Store backend must pass.
package storetest

import (
	"context"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/zenGate-Global/palmyra-gacha/platform/go/persistence"
)

// Factory returns a fresh, empty store. Cleanup is registered on t.
type Factory func(t *testing.T) persistence.Store

var base = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

// Run executes the suite against stores built by newStore.
func Run(t *testing.T, newStore Factory) {
	t.Run("tenants", func(t *testing.T) { testTenants(t, newStore(t)) })
	t.Run("users", func(t *testing.T) { testUsers(t, newStore(t)) })
	t.Run("image quota", func(t *testing.T) { testImageQuota(t, newStore(t)) })
	t.Run("image quota concurrent", func(t *testing.T) { testImageQuotaConcurrent(t, newStore(t)) })
	t.Run("image listing and reap", func(t *testing.T) { testImageReap(t, newStore(t)) })
	t.Run("delete tenant cascades", func(t *testing.T) { testDeleteTenant(t, newStore(t)) })
}

func mustTenant(t *testing.T, s persistence.Store, slug string, at time.Time) persistence.Tenant {
	t.Helper()
	rec, err := s.CreateTenant(context.Background(), persistence.CreateTenantParams{
		Slug: slug, Name: "Shop " + slug, CreatedAt: at,
	})
	require.NoError(t, err)
	return rec
}

func strPtr(s string) *string { return &s }

func testTenants(t *testing.T, s persistence.Store) {
	ctx := context.Background()

	a := mustTenant(t, s, "alpha", base)
	require.NotZero(t, a.ID)
	require.Equal(t, persistence.PlanNormal, a.Plan)
	require.Equal(t, "", a.PoweredBy)
	require.Nil(t, a.Announcement)
	require.Equal(t, persistence.DefaultEffectWeights, a.EffectWeights)
	require.True(t, a.CreatedAt.Equal(base))

	_, err := s.CreateTenant(ctx, persistence.CreateTenantParams{Slug: "alpha", Name: "dup", CreatedAt: base})
	require.ErrorIs(t, err, persistence.ErrConflict)

	b := mustTenant(t, s, "beta", base.Add(time.Hour))

	got, err := s.GetTenantBySlug(ctx, "beta")
	require.NoError(t, err)
	require.Equal(t, b.ID, got.ID)

	got, err = s.GetTenantByID(ctx, a.ID)
	require.NoError(t, err)
	require.Equal(t, "alpha", got.Slug)

	_, err = s.GetTenantBySlug(ctx, "missing")
	require.ErrorIs(t, err, persistence.ErrNotFound)

	_, err = s.CreateUser(ctx, persistence.CreateUserParams{TenantID: a.ID, Username: "alice", PasswordHash: "h", CreatedAt: base})
	require.NoError(t, err)
	_, err = s.CreateUser(ctx, persistence.CreateUserParams{TenantID: a.ID, Username: "alice2", PasswordHash: "h", CreatedAt: base.Add(time.Minute)})
	require.NoError(t, err)

	list, err := s.ListTenants(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	require.Equal(t, "beta", list[0].Slug)
	require.Nil(t, list[0].Username)
	require.Equal(t, "alpha", list[1].Slug)
	require.NotNil(t, list[1].Username)
	require.Equal(t, "alice", *list[1].Username)

	updated, err := s.UpdateTenant(ctx, a.ID, persistence.TenantUpdate{
		Name: strPtr("Alpha Renamed"), Plan: strPtr("premium"), Announcement: strPtr("hello"),
	})
	require.NoError(t, err)
	require.Equal(t, "Alpha Renamed", updated.Name)
	require.Equal(t, persistence.PlanPremium, updated.Plan)
	require.Equal(t, "", updated.PoweredBy)
	require.Equal(t, "hello", *updated.Announcement)

	updated, err = s.UpdateTenant(ctx, a.ID, persistence.TenantUpdate{PoweredBy: strPtr("ACME")})
	require.NoError(t, err)
	require.Equal(t, "Alpha Renamed", updated.Name)
	require.Equal(t, "ACME", updated.PoweredBy)

	_, err = s.UpdateTenant(ctx, 999999, persistence.TenantUpdate{Name: strPtr("x")})
	require.ErrorIs(t, err, persistence.ErrNotFound)

	n, err := s.SetAnnouncementAll(ctx, "sale")
	require.NoError(t, err)
	require.EqualValues(t, 2, n)
	got, err = s.GetTenantByID(ctx, b.ID)
	require.NoError(t, err)
	require.Equal(t, "sale", *got.Announcement)

	weights := persistence.EffectWeights{Star1: 10, Star2: 0, Star3: 0, Star4: 0}
	require.NoError(t, s.SetEffectWeights(ctx, a.ID, weights))
	got, err = s.GetTenantByID(ctx, a.ID)
	require.NoError(t, err)
	require.Equal(t, weights, got.EffectWeights)
	require.ErrorIs(t, s.SetEffectWeights(ctx, 999999, weights), persistence.ErrNotFound)

	require.NoError(t, s.SetBackgrounds(ctx, a.ID, strPtr("k/pc.png"), nil))
	got, err = s.GetTenantByID(ctx, a.ID)
	require.NoError(t, err)
	require.Equal(t, "k/pc.png", *got.BgPC)
	require.Nil(t, got.BgSP)
	require.NoError(t, s.SetBackgrounds(ctx, a.ID, nil, nil))
	got, err = s.GetTenantByID(ctx, a.ID)
	require.NoError(t, err)
	require.Nil(t, got.BgPC)
}

func testUsers(t *testing.T, s persistence.Store) {
	ctx := context.Background()
	a := mustTenant(t, s, "alpha", base)
	b := mustTenant(t, s, "beta", base)

	u, err := s.CreateUser(ctx, persistence.CreateUserParams{TenantID: a.ID, Username: "alice", PasswordHash: "hash-a", CreatedAt: base})
	require.NoError(t, err)
	require.Equal(t, a.ID, u.TenantID)

	_, err = s.CreateUser(ctx, persistence.CreateUserParams{TenantID: b.ID, Username: "alice", PasswordHash: "x", CreatedAt: base})
	require.ErrorIs(t, err, persistence.ErrConflict)

	_, err = s.CreateUser(ctx, persistence.CreateUserParams{TenantID: 999999, Username: "ghost", PasswordHash: "x", CreatedAt: base})
	require.ErrorIs(t, err, persistence.ErrNotFound)

	got, err := s.GetUserByUsername(ctx, "alice")
	require.NoError(t, err)
	require.Equal(t, u.ID, got.ID)
	require.Equal(t, "hash-a", got.PasswordHash)

	got, err = s.GetUserByID(ctx, u.ID)
	require.NoError(t, err)
	require.Equal(t, "alice", got.Username)

	_, err = s.GetUserByUsername(ctx, "nobody")
	require.ErrorIs(t, err, persistence.ErrNotFound)

	first, err := s.FirstUserForTenant(ctx, a.ID)
	require.NoError(t, err)
	require.Equal(t, u.ID, first.ID)
	_, err = s.FirstUserForTenant(ctx, b.ID)
	require.ErrorIs(t, err, persistence.ErrNotFound)

	updated, err := s.UpdateUser(ctx, u.ID, persistence.UserUpdate{PasswordHash: strPtr("hash-b")})
	require.NoError(t, err)
	require.Equal(t, "alice", updated.Username)
	require.Equal(t, "hash-b", updated.PasswordHash)

	updated, err = s.UpdateUser(ctx, u.ID, persistence.UserUpdate{Username: strPtr("alicia")})
	require.NoError(t, err)
	require.Equal(t, "alicia", updated.Username)
	require.Equal(t, "hash-b", updated.PasswordHash)

	_, err = s.CreateUser(ctx, persistence.CreateUserParams{TenantID: b.ID, Username: "bob", PasswordHash: "x", CreatedAt: base})
	require.NoError(t, err)
	_, err = s.UpdateUser(ctx, u.ID, persistence.UserUpdate{Username: strPtr("bob")})
	require.ErrorIs(t, err, persistence.ErrConflict)

	_, err = s.UpdateUser(ctx, 999999, persistence.UserUpdate{Username: strPtr("x")})
	require.ErrorIs(t, err, persistence.ErrNotFound)
}

func imageParams(tenantID int64, key string, createdAt time.Time) persistence.CreateImageParams {
	return persistence.CreateImageParams{
		TenantID:    tenantID,
		AssetKey:    key,
		StartAt:     createdAt,
		EndAt:       createdAt.Add(time.Hour),
		Probability: 50,
		CreatedAt:   createdAt,
	}
}

func testImageQuota(t *testing.T, s persistence.Store) {
	ctx := context.Background()
	a := mustTenant(t, s, "alpha", base)
	b := mustTenant(t, s, "beta", base)

	// Windows already ended: expired rows still count toward the limit.
	for i := range 5 {
		p := imageParams(a.ID, "k", base.Add(-time.Duration(i+1)*time.Hour))
		img, err := s.InsertImage(ctx, p, 5)
		require.NoError(t, err)
		require.Equal(t, 50, img.Probability)
	}

	_, err := s.InsertImage(ctx, imageParams(a.ID, "k6", base), 5)
	require.ErrorIs(t, err, persistence.ErrQuotaExceeded)

	count, err := s.CountImages(ctx, a.ID)
	require.NoError(t, err)
	require.Equal(t, 5, count)

	_, err = s.InsertImage(ctx, imageParams(b.ID, "kb", base), 5)
	require.NoError(t, err)

	_, err = s.InsertImage(ctx, imageParams(999999, "kx", base), 5)
	require.ErrorIs(t, err, persistence.ErrNotFound)
}

func testImageQuotaConcurrent(t *testing.T, s persistence.Store) {
	ctx := context.Background()
	a := mustTenant(t, s, "alpha", base)

	const attempts = 12
	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		errs []error
		ok   int
	)
	for i := range attempts {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.InsertImage(ctx, imageParams(a.ID, "k", base.Add(time.Duration(i)*time.Second)), 5)
			mu.Lock()
			defer mu.Unlock()
			if err == nil {
				ok++
				return
			}
			errs = append(errs, err)
		}()
	}
	wg.Wait()

	require.Equal(t, 5, ok)
	require.Len(t, errs, attempts-5)
	for _, err := range errs {
		require.ErrorIs(t, err, persistence.ErrQuotaExceeded)
	}
	count, err := s.CountImages(ctx, a.ID)
	require.NoError(t, err)
	require.Equal(t, 5, count)
}

func testImageReap(t *testing.T, s persistence.Store) {
	ctx := context.Background()
	a := mustTenant(t, s, "alpha", base)
	b := mustTenant(t, s, "beta", base)

	now := base.Add(100 * time.Hour)
	cutoff := now.Add(-72 * time.Hour)

	kept, err := s.InsertImage(ctx, persistence.CreateImageParams{
		TenantID: a.ID, AssetKey: "kept", StartAt: now.Add(2 * time.Hour), EndAt: now.Add(3 * time.Hour),
		Probability: 100, CreatedAt: cutoff.Add(time.Millisecond),
	}, 5)
	require.NoError(t, err)
	early, err := s.InsertImage(ctx, persistence.CreateImageParams{
		TenantID: a.ID, AssetKey: "early", StartAt: now.Add(-time.Hour), EndAt: now.Add(time.Hour),
		Probability: 100, CreatedAt: now,
	}, 5)
	require.NoError(t, err)
	old, err := s.InsertImage(ctx, persistence.CreateImageParams{
		TenantID: a.ID, AssetKey: "old", StartAt: base, EndAt: base.Add(time.Hour),
		Probability: 100, CreatedAt: cutoff.Add(-time.Millisecond),
	}, 5)
	require.NoError(t, err)
	other, err := s.InsertImage(ctx, imageParams(b.ID, "other", base), 5)
	require.NoError(t, err)

	all, err := s.ListImagesForTenant(ctx, a.ID)
	require.NoError(t, err)
	require.Equal(t, []int64{old.ID, early.ID, kept.ID}, ids(all))
	require.True(t, all[0].StartAt.Equal(base))

	reaped, remaining, err := s.ReapAndListImages(ctx, a.ID, cutoff)
	require.NoError(t, err)
	require.Equal(t, []int64{old.ID}, ids(reaped))
	require.Equal(t, "old", reaped[0].AssetKey)
	require.Equal(t, []int64{early.ID, kept.ID}, ids(remaining))

	reaped, remaining, err = s.ReapAndListImages(ctx, a.ID, cutoff)
	require.NoError(t, err)
	require.Empty(t, reaped)
	require.Len(t, remaining, 2)

	reaped, err = s.ReapImages(ctx, a.ID, cutoff)
	require.NoError(t, err)
	require.Empty(t, reaped)

	reaped, err = s.ReapAllImages(ctx, cutoff)
	require.NoError(t, err)
	require.Equal(t, []int64{other.ID}, ids(reaped))

	deleted, err := s.DeleteImage(ctx, a.ID, kept.ID)
	require.NoError(t, err)
	require.Equal(t, "kept", deleted.AssetKey)

	_, err = s.DeleteImage(ctx, a.ID, kept.ID)
	require.ErrorIs(t, err, persistence.ErrNotFound)
	_, err = s.DeleteImage(ctx, b.ID, early.ID)
	require.ErrorIs(t, err, persistence.ErrNotFound)
}

func testDeleteTenant(t *testing.T, s persistence.Store) {
	ctx := context.Background()
	a := mustTenant(t, s, "alpha", base)
	b := mustTenant(t, s, "beta", base)

	_, err := s.CreateUser(ctx, persistence.CreateUserParams{TenantID: a.ID, Username: "alice", PasswordHash: "h", CreatedAt: base})
	require.NoError(t, err)
	_, err = s.InsertImage(ctx, imageParams(a.ID, "img-a", base), 5)
	require.NoError(t, err)
	_, err = s.InsertImage(ctx, imageParams(b.ID, "img-b", base), 5)
	require.NoError(t, err)
	require.NoError(t, s.SetBackgrounds(ctx, a.ID, strPtr("bg-pc"), strPtr("bg-sp")))

	keys, err := s.DeleteTenant(ctx, a.ID)
	require.NoError(t, err)
	sort.Strings(keys)
	require.Equal(t, []string{"bg-pc", "bg-sp", "img-a"}, keys)

	_, err = s.GetTenantByID(ctx, a.ID)
	require.ErrorIs(t, err, persistence.ErrNotFound)
	_, err = s.GetUserByUsername(ctx, "alice")
	require.ErrorIs(t, err, persistence.ErrNotFound)
	count, err := s.CountImages(ctx, a.ID)
	require.NoError(t, err)
	require.Zero(t, count)

	count, err = s.CountImages(ctx, b.ID)
	require.NoError(t, err)
	require.Equal(t, 1, count)

	_, err = s.DeleteTenant(ctx, a.ID)
	require.ErrorIs(t, err, persistence.ErrNotFound)
}

func ids(images []persistence.Image) []int64 {
	out := make([]int64, 0, len(images))
	for _, img := range images {
		out = append(out, img.ID)
	}
	return out
}
