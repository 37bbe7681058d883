package service

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/zenGate-Global/palmyra-gacha/platform/go/persistence"
	"github.com/zenGate-Global/palmyra-gacha/platform/go/persistence/memory"
	"github.com/zenGate-Global/palmyra-gacha/platform/go/problems"
	"github.com/zenGate-Global/palmyra-gacha/platform/go/storage"
	"github.com/zenGate-Global/palmyra-gacha/platform/go/tenant"
)

type countingRecorder struct {
	mu     sync.Mutex
	quota  int
	reaped int
}

func (c *countingRecorder) QuotaRejected() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.quota++
}

func (c *countingRecorder) Reaped(n int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.reaped += n
}

func (c *countingRecorder) counts() (quota, reaped int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.quota, c.reaped
}

type fixture struct {
	svc      *Service
	store    *memory.Store
	assets   *storage.LocalStore
	recorder *countingRecorder
	shop     tenant.Space
	other    tenant.Space
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	ctx := context.Background()
	store := memory.New()

	shop, err := store.CreateTenant(ctx, persistence.CreateTenantParams{Slug: "shop", Name: "Shop", CreatedAt: time.Now()})
	require.NoError(t, err)
	other, err := store.CreateTenant(ctx, persistence.CreateTenantParams{Slug: "other", Name: "Other", CreatedAt: time.Now()})
	require.NoError(t, err)

	assets := storage.NewLocalStore(t.TempDir())
	recorder := &countingRecorder{}
	return fixture{
		svc:      New(store, assets, recorder, zaptest.NewLogger(t)),
		store:    store,
		assets:   assets,
		recorder: recorder,
		shop:     tenant.NewSpace("test", shop.Slug, shop.ID),
		other:    tenant.NewSpace("test", other.Slug, other.ID),
	}
}

func input(start, end time.Time, probability int) CreateInput {
	return CreateInput{
		Upload:      storage.Upload{Filename: "prize.png", Body: strings.NewReader("png")},
		StartAt:     start,
		EndAt:       end,
		Probability: probability,
	}
}

func requireAssetGone(t *testing.T, assets storage.Store, key string) {
	t.Helper()
	_, err := assets.Open(context.Background(), key)
	require.ErrorIs(t, err, storage.ErrObjectNotFound)
}

func TestCreateValidation(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ctx := context.Background()
	now := time.Now()

	cases := []struct {
		name  string
		input CreateInput
		field string
	}{
		{name: "end equals start", input: input(now, now, 50), field: "end_at"},
		{name: "end before start", input: input(now, now.Add(-time.Second), 50), field: "end_at"},
		{name: "missing start", input: input(time.Time{}, now, 50), field: "end_at"},
		{name: "probability too high", input: input(now, now.Add(time.Hour), 101), field: "probability"},
		{name: "negative probability", input: input(now, now.Add(time.Hour), -1), field: "probability"},
		{name: "no file", input: CreateInput{StartAt: now, EndAt: now.Add(time.Hour)}, field: "image"},
	}
	for _, tc := range cases {
		_, err := f.svc.Create(ctx, f.shop, tc.input, now)
		var verr *problems.ValidationError
		require.True(t, errors.As(err, &verr), tc.name)
		require.Contains(t, verr.Fields, tc.field, tc.name)
	}
}

func TestSixthImageExceedsQuotaEvenWhenExpired(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ctx := context.Background()
	now := time.Now()
	past := now.Add(-10 * 24 * time.Hour)

	for i := 0; i < MaxImagesPerTenant; i++ {
		_, err := f.svc.Create(ctx, f.shop, input(past, past.Add(time.Hour), 100), now)
		require.NoError(t, err)
	}

	_, err := f.svc.Create(ctx, f.shop, input(now, now.Add(time.Hour), 100), now)
	require.ErrorIs(t, err, problems.ErrQuotaExceeded)
	p, known := problems.FromError(err)
	require.True(t, known)
	require.Equal(t, problems.CodeQuota, p.Code)

	// Quota is per tenant.
	_, err = f.svc.Create(ctx, f.other, input(now, now.Add(time.Hour), 100), now)
	require.NoError(t, err)

	quota, _ := f.recorder.counts()
	require.Equal(t, 1, quota)
}

// racingStore hides the existing rows from the pre-check so the atomic insert decides.
type racingStore struct {
	*memory.Store
}

func (racingStore) CountImages(context.Context, int64) (int, error) { return 0, nil }

func TestQuotaRejectedInsertRemovesAsset(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ctx := context.Background()
	now := time.Now()

	for i := 0; i < MaxImagesPerTenant; i++ {
		_, err := f.svc.Create(ctx, f.shop, input(now, now.Add(time.Hour), 100), now)
		require.NoError(t, err)
	}

	svc := New(racingStore{f.store}, f.assets, nil, zaptest.NewLogger(t))
	_, err := svc.Create(ctx, f.shop, input(now, now.Add(time.Hour), 100), now)
	require.ErrorIs(t, err, persistence.ErrQuotaExceeded)

	// Only the five admitted assets remain under the tenant prefix.
	list, err := f.svc.List(ctx, f.shop, now)
	require.NoError(t, err)
	require.Len(t, list, MaxImagesPerTenant)
	require.Equal(t, MaxImagesPerTenant, countFiles(t, f.assets, f.shop))
}

func TestListReapsAtRetentionBoundary(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ctx := context.Background()
	now := time.Now().Truncate(time.Millisecond)
	window := input(now, now.Add(time.Hour), 100)

	kept, err := f.svc.Create(ctx, f.shop, window, now.Add(-Retention+time.Millisecond))
	require.NoError(t, err)
	window = input(now, now.Add(time.Hour), 100)
	purged, err := f.svc.Create(ctx, f.shop, window, now.Add(-Retention-time.Millisecond))
	require.NoError(t, err)
	window = input(now, now.Add(time.Hour), 100)
	fresh, err := f.svc.Create(ctx, f.shop, window, now)
	require.NoError(t, err)

	list, err := f.svc.List(ctx, f.shop, now)
	require.NoError(t, err)
	require.Len(t, list, 2)
	require.Equal(t, fresh.ID, list[0].ID)
	require.Equal(t, kept.ID, list[1].ID)
	requireAssetGone(t, f.assets, purged.AssetKey)

	list, err = f.svc.List(ctx, f.shop, now)
	require.NoError(t, err)
	require.Len(t, list, 2)

	_, reaped := f.recorder.counts()
	require.Equal(t, 1, reaped)
}

func TestReapIsIdempotent(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ctx := context.Background()
	now := time.Now()

	old, err := f.svc.Create(ctx, f.shop, input(now, now.Add(time.Hour), 50), now.Add(-Retention-time.Hour))
	require.NoError(t, err)
	otherOld, err := f.svc.Create(ctx, f.other, input(now, now.Add(time.Hour), 50), now.Add(-Retention-time.Hour))
	require.NoError(t, err)

	reaped, err := f.svc.Reap(ctx, f.shop.TenantID, now)
	require.NoError(t, err)
	require.Len(t, reaped, 1)
	require.Equal(t, old.ID, reaped[0].ID)

	reaped, err = f.svc.Reap(ctx, f.shop.TenantID, now)
	require.NoError(t, err)
	require.Empty(t, reaped)

	all, err := f.svc.ReapAll(ctx, now)
	require.NoError(t, err)
	require.Len(t, all, 1)
	require.Equal(t, otherOld.ID, all[0].ID)
	requireAssetGone(t, f.assets, otherOld.AssetKey)
}

func TestDeleteIsTenantScoped(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ctx := context.Background()
	now := time.Now()

	img, err := f.svc.Create(ctx, f.shop, input(now, now.Add(time.Hour), 50), now)
	require.NoError(t, err)

	require.ErrorIs(t, f.svc.Delete(ctx, f.other, img.ID), problems.ErrNotFound)
	require.NoError(t, f.svc.Delete(ctx, f.shop, img.ID))
	requireAssetGone(t, f.assets, img.AssetKey)
	require.ErrorIs(t, f.svc.Delete(ctx, f.shop, img.ID), problems.ErrNotFound)
}

func TestRunReaperStopsWithContext(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	now := time.Now()
	_, err := f.svc.Create(context.Background(), f.shop, input(now, now.Add(time.Hour), 50), now.Add(-Retention-time.Hour))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		f.svc.RunReaper(ctx, 5*time.Millisecond, func() time.Time { return now })
	}()

	require.Eventually(t, func() bool {
		_, reaped := f.recorder.counts()
		return reaped == 1
	}, time.Second, 5*time.Millisecond)

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("reaper did not stop")
	}

	// A zero interval disables the sweep.
	f.svc.RunReaper(context.Background(), 0, nil)
}

func countFiles(t *testing.T, assets *storage.LocalStore, space tenant.Space) int {
	t.Helper()
	entries, err := os.ReadDir(filepath.Join(assets.BasePath, filepath.FromSlash(space.BasePrefix), "images"))
	require.NoError(t, err)
	n := 0
	for _, e := range entries {
		if e.Type().IsRegular() {
			n++
		}
	}
	return n
}
