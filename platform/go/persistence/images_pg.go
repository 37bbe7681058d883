package persistence

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
)

const imageColumns = `id, tenant_id, asset_key, start_at, end_at, probability, created_at`

func (s *PostgresStore) InsertImage(ctx context.Context, params CreateImageParams, limit int) (Image, error) {
	var out Image
	err := s.inTx(ctx, func(tx pgx.Tx) error {
		// Row lock on the tenant serializes concurrent admissions.
		var tenantID int64
		if err := tx.QueryRow(ctx, `SELECT id FROM tenants WHERE id = $1 FOR UPDATE`, params.TenantID).Scan(&tenantID); err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return ErrNotFound
			}
			return err
		}

		var count int
		if err := tx.QueryRow(ctx, `SELECT COUNT(*) FROM images WHERE tenant_id = $1`, params.TenantID).Scan(&count); err != nil {
			return err
		}
		if count >= limit {
			return ErrQuotaExceeded
		}

		img, err := scanPgImage(tx.QueryRow(ctx, `
            INSERT INTO images (tenant_id, asset_key, start_at, end_at, probability, created_at)
            VALUES ($1, $2, $3, $4, $5, $6)
            RETURNING `+imageColumns,
			params.TenantID, params.AssetKey, pgTime(params.StartAt), pgTime(params.EndAt),
			params.Probability, pgTime(params.CreatedAt),
		))
		if err != nil {
			return err
		}
		out = img
		return nil
	})
	if err != nil {
		if errors.Is(err, ErrNotFound) || errors.Is(err, ErrQuotaExceeded) {
			return Image{}, err
		}
		return Image{}, fmt.Errorf("insert image: %w", err)
	}
	return out, nil
}

func (s *PostgresStore) CountImages(ctx context.Context, tenantID int64) (int, error) {
	var count int
	if err := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM images WHERE tenant_id = $1`, tenantID).Scan(&count); err != nil {
		return 0, fmt.Errorf("count images: %w", err)
	}
	return count, nil
}

func (s *PostgresStore) ListImagesForTenant(ctx context.Context, tenantID int64) ([]Image, error) {
	rows, err := s.pool.Query(ctx, `SELECT `+imageColumns+` FROM images WHERE tenant_id = $1 ORDER BY start_at, id`, tenantID)
	if err != nil {
		return nil, fmt.Errorf("list images: %w", err)
	}
	return collectPgImages(rows)
}

func (s *PostgresStore) ReapImages(ctx context.Context, tenantID int64, cutoff time.Time) ([]Image, error) {
	rows, err := s.pool.Query(ctx, `
        DELETE FROM images WHERE tenant_id = $1 AND created_at < $2
        RETURNING `+imageColumns, tenantID, pgTime(cutoff))
	if err != nil {
		return nil, fmt.Errorf("reap images: %w", err)
	}
	return collectPgImages(rows)
}

func (s *PostgresStore) ReapAndListImages(ctx context.Context, tenantID int64, cutoff time.Time) ([]Image, []Image, error) {
	var reaped, remaining []Image
	err := s.inTx(ctx, func(tx pgx.Tx) error {
		rows, err := tx.Query(ctx, `
            DELETE FROM images WHERE tenant_id = $1 AND created_at < $2
            RETURNING `+imageColumns, tenantID, pgTime(cutoff))
		if err != nil {
			return err
		}
		if reaped, err = collectPgImages(rows); err != nil {
			return err
		}

		rows, err = tx.Query(ctx, `
            SELECT `+imageColumns+` FROM images
            WHERE tenant_id = $1
            ORDER BY created_at DESC, id DESC`, tenantID)
		if err != nil {
			return err
		}
		remaining, err = collectPgImages(rows)
		return err
	})
	if err != nil {
		return nil, nil, fmt.Errorf("reap and list images: %w", err)
	}
	return reaped, remaining, nil
}

func (s *PostgresStore) ReapAllImages(ctx context.Context, cutoff time.Time) ([]Image, error) {
	rows, err := s.pool.Query(ctx, `DELETE FROM images WHERE created_at < $1 RETURNING `+imageColumns, pgTime(cutoff))
	if err != nil {
		return nil, fmt.Errorf("reap all images: %w", err)
	}
	return collectPgImages(rows)
}

func (s *PostgresStore) DeleteImage(ctx context.Context, tenantID, id int64) (Image, error) {
	img, err := scanPgImage(s.pool.QueryRow(ctx, `
        DELETE FROM images WHERE id = $1 AND tenant_id = $2
        RETURNING `+imageColumns, id, tenantID))
	if err != nil && !errors.Is(err, ErrNotFound) {
		return Image{}, fmt.Errorf("delete image: %w", err)
	}
	return img, err
}

func scanPgImage(row pgx.Row) (Image, error) {
	var img Image
	if err := row.Scan(&img.ID, &img.TenantID, &img.AssetKey, &img.StartAt, &img.EndAt, &img.Probability, &img.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Image{}, ErrNotFound
		}
		return Image{}, err
	}
	img.StartAt = img.StartAt.UTC()
	img.EndAt = img.EndAt.UTC()
	img.CreatedAt = img.CreatedAt.UTC()
	return img, nil
}

func collectPgImages(rows pgx.Rows) ([]Image, error) {
	defer rows.Close()

	out := []Image{}
	for rows.Next() {
		img, err := scanPgImage(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, img)
	}
	return out, rows.Err()
}
