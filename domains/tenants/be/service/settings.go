package service

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/zenGate-Global/palmyra-gacha/platform/go/persistence"
	"github.com/zenGate-Global/palmyra-gacha/platform/go/problems"
	"github.com/zenGate-Global/palmyra-gacha/platform/go/storage"
	"github.com/zenGate-Global/palmyra-gacha/platform/go/tenant"
)

// Background slots accepted by ClearBackgrounds.
const (
	TargetPC  = "pc"
	TargetSP  = "sp"
	TargetAll = "all"
)

// Backgrounds are the tenant's current background keys; empty means unset.
type Backgrounds struct {
	PC string
	SP string
}

// BackgroundUploads carries the files of one upload request. Nil slots are kept as they are.
type BackgroundUploads struct {
	PC *storage.Upload
	SP *storage.Upload
}

// SetBackgrounds stores the uploaded backgrounds and deletes the assets they replace.
func (s *Service) SetBackgrounds(ctx context.Context, space tenant.Space, uploads BackgroundUploads) (Backgrounds, error) {
	if uploads.PC == nil && uploads.SP == nil {
		return Backgrounds{}, problems.Invalid("files", "bg_pc or bg_sp is required")
	}

	current, err := s.store.GetTenantByID(ctx, space.TenantID)
	if err != nil {
		return Backgrounds{}, err
	}

	nextPC, nextSP := current.BgPC, current.BgSP
	var stored, replaced []string

	put := func(up *storage.Upload) (*string, error) {
		key, err := storage.PutUpload(ctx, s.assets, space, "backgrounds", *up)
		if err != nil {
			s.deleteAssets(ctx, stored)
			if errors.Is(err, storage.ErrUploadTooLarge) {
				return nil, problems.Invalid("files", "file exceeds the 10 MiB limit")
			}
			return nil, err
		}
		stored = append(stored, key)
		return &key, nil
	}

	if uploads.PC != nil {
		key, err := put(uploads.PC)
		if err != nil {
			return Backgrounds{}, err
		}
		if current.BgPC != nil {
			replaced = append(replaced, *current.BgPC)
		}
		nextPC = key
	}
	if uploads.SP != nil {
		key, err := put(uploads.SP)
		if err != nil {
			return Backgrounds{}, err
		}
		if current.BgSP != nil {
			replaced = append(replaced, *current.BgSP)
		}
		nextSP = key
	}

	if err := s.store.SetBackgrounds(ctx, current.ID, nextPC, nextSP); err != nil {
		s.deleteAssets(ctx, stored)
		return Backgrounds{}, err
	}
	s.deleteAssets(ctx, replaced)

	s.logger.Info("backgrounds updated", zap.String("tenant_slug", current.Slug), zap.Int("uploaded", len(stored)))
	return Backgrounds{PC: deref(nextPC), SP: deref(nextSP)}, nil
}

// ClearBackgrounds unsets the targeted slots (pc, sp or all; empty means all) and deletes their assets.
func (s *Service) ClearBackgrounds(ctx context.Context, space tenant.Space, target string) (Backgrounds, error) {
	if target == "" {
		target = TargetAll
	}
	if target != TargetPC && target != TargetSP && target != TargetAll {
		return Backgrounds{}, problems.Invalid("target", "target must be pc, sp or all")
	}

	current, err := s.store.GetTenantByID(ctx, space.TenantID)
	if err != nil {
		return Backgrounds{}, err
	}

	nextPC, nextSP := current.BgPC, current.BgSP
	var removed []string
	if target == TargetPC || target == TargetAll {
		if current.BgPC != nil {
			removed = append(removed, *current.BgPC)
		}
		nextPC = nil
	}
	if target == TargetSP || target == TargetAll {
		if current.BgSP != nil {
			removed = append(removed, *current.BgSP)
		}
		nextSP = nil
	}

	if err := s.store.SetBackgrounds(ctx, current.ID, nextPC, nextSP); err != nil {
		return Backgrounds{}, err
	}
	s.deleteAssets(ctx, removed)
	return Backgrounds{PC: deref(nextPC), SP: deref(nextSP)}, nil
}

// SetEffectWeights replaces the tenant's effect tier weights. Each weight must lie in
// [0, persistence.MaxEffectWeight]; there is no constraint on their sum.
func (s *Service) SetEffectWeights(ctx context.Context, space tenant.Space, w persistence.EffectWeights) error {
	fields := problems.FieldErrors{}
	for i, v := range w.Array() {
		if v < 0 || v > persistence.MaxEffectWeight {
			fields.Add(fmt.Sprintf("star%d", i+1), "weight must be an integer between 0 and 1000000000")
		}
	}
	if err := fields.Err(); err != nil {
		return err
	}
	return s.store.SetEffectWeights(ctx, space.TenantID, w)
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
