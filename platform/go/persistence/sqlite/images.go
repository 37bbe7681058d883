package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/zenGate-Global/palmyra-gacha/platform/go/persistence"
)

const imageColumns = `id, tenant_id, asset_key, start_at, end_at, probability, created_at`

func (s *Store) InsertImage(ctx context.Context, params persistence.CreateImageParams, limit int) (persistence.Image, error) {
	var out persistence.Image
	err := s.inTx(ctx, func(tx *sql.Tx) error {
		var exists int
		if err := tx.QueryRowContext(ctx, `SELECT 1 FROM tenants WHERE id = ?`, params.TenantID).Scan(&exists); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return persistence.ErrNotFound
			}
			return err
		}

		var count int
		if err := tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM images WHERE tenant_id = ?`, params.TenantID).Scan(&count); err != nil {
			return err
		}
		if count >= limit {
			return persistence.ErrQuotaExceeded
		}

		img, err := scanImage(tx.QueryRowContext(ctx, `
            INSERT INTO images (tenant_id, asset_key, start_at, end_at, probability, created_at)
            VALUES (?, ?, ?, ?, ?, ?)
            RETURNING `+imageColumns,
			params.TenantID, params.AssetKey, toMillis(params.StartAt), toMillis(params.EndAt),
			params.Probability, toMillis(params.CreatedAt),
		))
		if err != nil {
			return err
		}
		out = img
		return nil
	})
	if err != nil {
		if errors.Is(err, persistence.ErrNotFound) || errors.Is(err, persistence.ErrQuotaExceeded) {
			return persistence.Image{}, err
		}
		return persistence.Image{}, fmt.Errorf("insert image: %w", err)
	}
	return out, nil
}

func (s *Store) CountImages(ctx context.Context, tenantID int64) (int, error) {
	var count int
	if err := s.sqlDB.QueryRowContext(ctx, `SELECT COUNT(*) FROM images WHERE tenant_id = ?`, tenantID).Scan(&count); err != nil {
		return 0, fmt.Errorf("count images: %w", err)
	}
	return count, nil
}

func (s *Store) ListImagesForTenant(ctx context.Context, tenantID int64) ([]persistence.Image, error) {
	rows, err := s.sqlDB.QueryContext(ctx, `SELECT `+imageColumns+` FROM images WHERE tenant_id = ? ORDER BY start_at, id`, tenantID)
	if err != nil {
		return nil, fmt.Errorf("list images: %w", err)
	}
	return collectImages(rows)
}

func (s *Store) ReapImages(ctx context.Context, tenantID int64, cutoff time.Time) ([]persistence.Image, error) {
	var reaped []persistence.Image
	err := s.inTx(ctx, func(tx *sql.Tx) error {
		var err error
		reaped, err = reapTx(ctx, tx, `tenant_id = ? AND created_at < ?`, tenantID, toMillis(cutoff))
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("reap images: %w", err)
	}
	return reaped, nil
}

func (s *Store) ReapAndListImages(ctx context.Context, tenantID int64, cutoff time.Time) ([]persistence.Image, []persistence.Image, error) {
	var reaped, remaining []persistence.Image
	err := s.inTx(ctx, func(tx *sql.Tx) error {
		var err error
		if reaped, err = reapTx(ctx, tx, `tenant_id = ? AND created_at < ?`, tenantID, toMillis(cutoff)); err != nil {
			return err
		}
		rows, err := tx.QueryContext(ctx, `
            SELECT `+imageColumns+` FROM images
            WHERE tenant_id = ?
            ORDER BY created_at DESC, id DESC`, tenantID)
		if err != nil {
			return err
		}
		remaining, err = collectImages(rows)
		return err
	})
	if err != nil {
		return nil, nil, fmt.Errorf("reap and list images: %w", err)
	}
	return reaped, remaining, nil
}

func (s *Store) ReapAllImages(ctx context.Context, cutoff time.Time) ([]persistence.Image, error) {
	var reaped []persistence.Image
	err := s.inTx(ctx, func(tx *sql.Tx) error {
		var err error
		reaped, err = reapTx(ctx, tx, `created_at < ?`, toMillis(cutoff))
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("reap all images: %w", err)
	}
	return reaped, nil
}

func (s *Store) DeleteImage(ctx context.Context, tenantID, id int64) (persistence.Image, error) {
	img, err := scanImage(s.sqlDB.QueryRowContext(ctx, `
        DELETE FROM images WHERE id = ? AND tenant_id = ?
        RETURNING `+imageColumns, id, tenantID))
	if err != nil && !errors.Is(err, persistence.ErrNotFound) {
		return persistence.Image{}, fmt.Errorf("delete image: %w", err)
	}
	return img, err
}

// reapTx selects then deletes the matching rows so the returned order is stable.
func reapTx(ctx context.Context, tx *sql.Tx, where string, args ...any) ([]persistence.Image, error) {
	rows, err := tx.QueryContext(ctx, `SELECT `+imageColumns+` FROM images WHERE `+where+` ORDER BY id`, args...)
	if err != nil {
		return nil, err
	}
	reaped, err := collectImages(rows)
	if err != nil {
		return nil, err
	}
	if len(reaped) == 0 {
		return reaped, nil
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM images WHERE `+where, args...); err != nil {
		return nil, err
	}
	return reaped, nil
}

func scanImage(row rowScanner) (persistence.Image, error) {
	var (
		img                       persistence.Image
		startAt, endAt, createdAt int64
	)
	if err := row.Scan(&img.ID, &img.TenantID, &img.AssetKey, &startAt, &endAt, &img.Probability, &createdAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return persistence.Image{}, persistence.ErrNotFound
		}
		return persistence.Image{}, err
	}
	img.StartAt = fromMillis(startAt)
	img.EndAt = fromMillis(endAt)
	img.CreatedAt = fromMillis(createdAt)
	return img, nil
}

func collectImages(rows *sql.Rows) ([]persistence.Image, error) {
	defer rows.Close()

	out := []persistence.Image{}
	for rows.Next() {
		img, err := scanImage(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, img)
	}
	return out, rows.Err()
}
