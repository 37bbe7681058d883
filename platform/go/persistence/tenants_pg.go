package persistence

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
)

const tenantColumns = `t.id, t.slug, t.name, t.plan, t.powered_by, t.announcement, t.effect_probs, t.bg_pc, t.bg_sp, t.created_at`

func (s *PostgresStore) CreateTenant(ctx context.Context, params CreateTenantParams) (Tenant, error) {
	row := s.pool.QueryRow(ctx, `
        INSERT INTO tenants AS t (slug, name, plan, powered_by, created_at)
        VALUES ($1, $2, $3, $4, $5)
        RETURNING `+tenantColumns,
		params.Slug, params.Name, NormalizePlan(params.Plan), params.PoweredBy, pgTime(params.CreatedAt),
	)
	rec, err := scanPgTenant(row)
	if err != nil {
		if isUniqueViolation(err) {
			return Tenant{}, fmt.Errorf("tenant slug %q: %w", params.Slug, ErrConflict)
		}
		return Tenant{}, fmt.Errorf("insert tenant: %w", err)
	}
	return rec, nil
}

func (s *PostgresStore) GetTenantBySlug(ctx context.Context, slug string) (Tenant, error) {
	return scanPgTenant(s.pool.QueryRow(ctx, `SELECT `+tenantColumns+` FROM tenants t WHERE t.slug = $1`, slug))
}

func (s *PostgresStore) GetTenantByID(ctx context.Context, id int64) (Tenant, error) {
	return scanPgTenant(s.pool.QueryRow(ctx, `SELECT `+tenantColumns+` FROM tenants t WHERE t.id = $1`, id))
}

func (s *PostgresStore) ListTenants(ctx context.Context) ([]TenantSummary, error) {
	rows, err := s.pool.Query(ctx, `
        SELECT `+tenantColumns+`,
            (SELECT u.username FROM users u WHERE u.tenant_id = t.id ORDER BY u.created_at, u.id LIMIT 1)
        FROM tenants t
        ORDER BY t.created_at DESC, t.id DESC`)
	if err != nil {
		return nil, fmt.Errorf("list tenants: %w", err)
	}
	defer rows.Close()

	out := []TenantSummary{}
	for rows.Next() {
		var (
			sum TenantSummary
			raw []byte
		)
		if err := rows.Scan(&sum.ID, &sum.Slug, &sum.Name, &sum.Plan, &sum.PoweredBy, &sum.Announcement,
			&raw, &sum.BgPC, &sum.BgSP, &sum.CreatedAt, &sum.Username); err != nil {
			return nil, fmt.Errorf("scan tenant: %w", err)
		}
		sum.EffectWeights = EffectWeightsOrDefault(raw)
		sum.CreatedAt = sum.CreatedAt.UTC()
		out = append(out, sum)
	}
	return out, rows.Err()
}

func (s *PostgresStore) UpdateTenant(ctx context.Context, id int64, update TenantUpdate) (Tenant, error) {
	var plan *string
	if update.Plan != nil {
		p := NormalizePlan(*update.Plan)
		plan = &p
	}
	return scanPgTenant(s.pool.QueryRow(ctx, `
        UPDATE tenants AS t SET
            name = COALESCE($2, t.name),
            plan = COALESCE($3, t.plan),
            powered_by = COALESCE($4, t.powered_by),
            announcement = COALESCE($5, t.announcement)
        WHERE t.id = $1
        RETURNING `+tenantColumns,
		id, update.Name, plan, update.PoweredBy, update.Announcement,
	))
}

func (s *PostgresStore) SetAnnouncementAll(ctx context.Context, announcement string) (int64, error) {
	tag, err := s.pool.Exec(ctx, `UPDATE tenants SET announcement = $1`, announcement)
	if err != nil {
		return 0, fmt.Errorf("broadcast announcement: %w", err)
	}
	return tag.RowsAffected(), nil
}

func (s *PostgresStore) SetEffectWeights(ctx context.Context, id int64, weights EffectWeights) error {
	raw, err := MarshalEffectWeights(weights)
	if err != nil {
		return err
	}
	tag, err := s.pool.Exec(ctx, `UPDATE tenants SET effect_probs = $2::jsonb WHERE id = $1`, id, string(raw))
	if err != nil {
		return fmt.Errorf("update effect weights: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PostgresStore) SetBackgrounds(ctx context.Context, id int64, pc, sp *string) error {
	tag, err := s.pool.Exec(ctx, `UPDATE tenants SET bg_pc = $2, bg_sp = $3 WHERE id = $1`, id, pc, sp)
	if err != nil {
		return fmt.Errorf("update backgrounds: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PostgresStore) DeleteTenant(ctx context.Context, id int64) ([]string, error) {
	var keys []string
	err := s.inTx(ctx, func(tx pgx.Tx) error {
		var pc, sp *string
		err := tx.QueryRow(ctx, `SELECT bg_pc, bg_sp FROM tenants WHERE id = $1 FOR UPDATE`, id).Scan(&pc, &sp)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return ErrNotFound
			}
			return err
		}

		rows, err := tx.Query(ctx, `SELECT asset_key FROM images WHERE tenant_id = $1 ORDER BY id`, id)
		if err != nil {
			return err
		}
		imageKeys, err := pgx.CollectRows(rows, pgx.RowTo[string])
		if err != nil {
			return err
		}

		if _, err := tx.Exec(ctx, `DELETE FROM tenants WHERE id = $1`, id); err != nil {
			return err
		}

		keys = append(imageKeys, derefKeys(pc, sp)...)
		return nil
	})
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("delete tenant: %w", err)
	}
	return keys, nil
}

func scanPgTenant(row pgx.Row) (Tenant, error) {
	var (
		rec Tenant
		raw []byte
	)
	if err := row.Scan(&rec.ID, &rec.Slug, &rec.Name, &rec.Plan, &rec.PoweredBy, &rec.Announcement,
		&raw, &rec.BgPC, &rec.BgSP, &rec.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Tenant{}, ErrNotFound
		}
		return Tenant{}, err
	}
	rec.EffectWeights = EffectWeightsOrDefault(raw)
	rec.CreatedAt = rec.CreatedAt.UTC()
	return rec, nil
}

func derefKeys(keys ...*string) []string {
	out := make([]string, 0, len(keys))
	for _, k := range keys {
		if k != nil && *k != "" {
			out = append(out, *k)
		}
	}
	return out
}
