// Package service implements prize image admission, listing and retention.
package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/zenGate-Global/palmyra-gacha/platform/go/persistence"
	"github.com/zenGate-Global/palmyra-gacha/platform/go/problems"
	"github.com/zenGate-Global/palmyra-gacha/platform/go/storage"
	"github.com/zenGate-Global/palmyra-gacha/platform/go/tenant"
)

// Recorder receives quota and retention events.
type Recorder interface {
	QuotaRejected()
	Reaped(n int)
}

// CreateInput describes one uploaded prize image.
type CreateInput struct {
	Upload      storage.Upload
	StartAt     time.Time
	EndAt       time.Time
	Probability int
}

// Service manages a tenant's prize images and their stored assets.
type Service struct {
	store    persistence.ImageStore
	assets   storage.Store
	recorder Recorder
	logger   *zap.Logger
}

// New constructs a Service. recorder may be nil.
func New(store persistence.ImageStore, assets storage.Store, recorder Recorder, logger *zap.Logger) *Service {
	if store == nil {
		panic("image store is required")
	}
	if assets == nil {
		panic("asset store is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{store: store, assets: assets, recorder: recorder, logger: logger}
}

// Create validates the schedule, stores the asset and inserts the row under the tenant quota.
// The asset is removed again when the insert is rejected.
func (s *Service) Create(ctx context.Context, space tenant.Space, input CreateInput, now time.Time) (persistence.Image, error) {
	fields := problems.FieldErrors{}
	if input.StartAt.IsZero() || input.EndAt.IsZero() || !input.EndAt.After(input.StartAt) {
		fields.Add("end_at", "end_at must be after start_at")
	}
	if input.Probability < 0 || input.Probability > 100 {
		fields.Add("probability", "probability must be between 0 and 100")
	}
	if input.Upload.Body == nil {
		fields.Add("image", "image file is required")
	}
	if err := fields.Err(); err != nil {
		return persistence.Image{}, err
	}

	// Cheap rejection before the upload is written; InsertImage re-checks atomically.
	count, err := s.store.CountImages(ctx, space.TenantID)
	if err != nil {
		return persistence.Image{}, err
	}
	if count >= MaxImagesPerTenant {
		return persistence.Image{}, s.quotaExceeded()
	}

	key, err := storage.PutUpload(ctx, s.assets, space, "images", input.Upload)
	if err != nil {
		if errors.Is(err, storage.ErrUploadTooLarge) {
			return persistence.Image{}, problems.Invalid("image", "file exceeds the 10 MiB limit")
		}
		return persistence.Image{}, err
	}

	img, err := s.store.InsertImage(ctx, persistence.CreateImageParams{
		TenantID:    space.TenantID,
		AssetKey:    key,
		StartAt:     input.StartAt,
		EndAt:       input.EndAt,
		Probability: input.Probability,
		CreatedAt:   now,
	}, MaxImagesPerTenant)
	if err != nil {
		s.deleteAsset(ctx, key)
		if errors.Is(err, persistence.ErrQuotaExceeded) {
			return persistence.Image{}, s.quotaExceeded()
		}
		return persistence.Image{}, err
	}

	s.logger.Info("image created",
		zap.String("tenant_slug", space.Slug),
		zap.Int64("image_id", img.ID),
		zap.Int("probability", img.Probability),
	)
	return img, nil
}

// List reaps the tenant's expired rows and returns the remaining ones newest first.
// A listing never contains a row older than Retention.
func (s *Service) List(ctx context.Context, space tenant.Space, now time.Time) ([]persistence.Image, error) {
	reaped, remaining, err := s.store.ReapAndListImages(ctx, space.TenantID, RetentionCutoff(now))
	if err != nil {
		return nil, err
	}
	s.afterReap(ctx, reaped)
	return remaining, nil
}

// Reap deletes the tenant's rows created before now minus Retention and returns them.
// Calling it again at the same instant deletes nothing.
func (s *Service) Reap(ctx context.Context, tenantID int64, now time.Time) ([]persistence.Image, error) {
	reaped, err := s.store.ReapImages(ctx, tenantID, RetentionCutoff(now))
	if err != nil {
		return nil, err
	}
	s.afterReap(ctx, reaped)
	return reaped, nil
}

// ReapAll runs Reap across every tenant.
func (s *Service) ReapAll(ctx context.Context, now time.Time) ([]persistence.Image, error) {
	reaped, err := s.store.ReapAllImages(ctx, RetentionCutoff(now))
	if err != nil {
		return nil, err
	}
	s.afterReap(ctx, reaped)
	return reaped, nil
}

// Delete removes one of the tenant's images. Images of other tenants are not found.
func (s *Service) Delete(ctx context.Context, space tenant.Space, id int64) error {
	img, err := s.store.DeleteImage(ctx, space.TenantID, id)
	if err != nil {
		return err
	}
	s.deleteAsset(ctx, img.AssetKey)
	s.logger.Info("image deleted", zap.String("tenant_slug", space.Slug), zap.Int64("image_id", id))
	return nil
}

func (s *Service) afterReap(ctx context.Context, reaped []persistence.Image) {
	if len(reaped) == 0 {
		return
	}
	for _, img := range reaped {
		s.deleteAsset(ctx, img.AssetKey)
	}
	if s.recorder != nil {
		s.recorder.Reaped(len(reaped))
	}
	s.logger.Info("images reaped", zap.Int("count", len(reaped)))
}

func (s *Service) deleteAsset(ctx context.Context, key string) {
	if key == "" {
		return
	}
	if err := s.assets.Delete(ctx, key); err != nil {
		s.logger.Warn("delete image asset failed", zap.String("key", key), zap.Error(err))
	}
}

func (s *Service) quotaExceeded() error {
	if s.recorder != nil {
		s.recorder.QuotaRejected()
	}
	return fmt.Errorf("tenant already holds %d images: %w", MaxImagesPerTenant, persistence.ErrQuotaExceeded)
}
