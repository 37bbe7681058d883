package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/zenGate-Global/palmyra-gacha/platform/go/persistence"
)

const tenantColumns = `t.id, t.slug, t.name, t.plan, t.powered_by, t.announcement, t.effect_probs, t.bg_pc, t.bg_sp, t.created_at`

func (s *Store) CreateTenant(ctx context.Context, params persistence.CreateTenantParams) (persistence.Tenant, error) {
	res, err := s.sqlDB.ExecContext(ctx, `
        INSERT INTO tenants (slug, name, plan, powered_by, created_at)
        VALUES (?, ?, ?, ?, ?)`,
		params.Slug, params.Name, persistence.NormalizePlan(params.Plan), params.PoweredBy, toMillis(params.CreatedAt),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return persistence.Tenant{}, fmt.Errorf("tenant slug %q: %w", params.Slug, persistence.ErrConflict)
		}
		return persistence.Tenant{}, fmt.Errorf("insert tenant: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return persistence.Tenant{}, fmt.Errorf("tenant id: %w", err)
	}
	return s.GetTenantByID(ctx, id)
}

func (s *Store) GetTenantBySlug(ctx context.Context, slug string) (persistence.Tenant, error) {
	return scanTenant(s.sqlDB.QueryRowContext(ctx, `SELECT `+tenantColumns+` FROM tenants t WHERE t.slug = ?`, slug))
}

func (s *Store) GetTenantByID(ctx context.Context, id int64) (persistence.Tenant, error) {
	return scanTenant(s.sqlDB.QueryRowContext(ctx, `SELECT `+tenantColumns+` FROM tenants t WHERE t.id = ?`, id))
}

func (s *Store) ListTenants(ctx context.Context) ([]persistence.TenantSummary, error) {
	rows, err := s.sqlDB.QueryContext(ctx, `
        SELECT `+tenantColumns+`,
            (SELECT u.username FROM users u WHERE u.tenant_id = t.id ORDER BY u.created_at, u.id LIMIT 1)
        FROM tenants t
        ORDER BY t.created_at DESC, t.id DESC`)
	if err != nil {
		return nil, fmt.Errorf("list tenants: %w", err)
	}
	defer rows.Close()

	out := []persistence.TenantSummary{}
	for rows.Next() {
		var (
			sum      persistence.TenantSummary
			username sql.NullString
		)
		tenant, err := scanTenantWith(rows, &username)
		if err != nil {
			return nil, fmt.Errorf("scan tenant: %w", err)
		}
		sum.Tenant = tenant
		if username.Valid {
			sum.Username = &username.String
		}
		out = append(out, sum)
	}
	return out, rows.Err()
}

func (s *Store) UpdateTenant(ctx context.Context, id int64, update persistence.TenantUpdate) (persistence.Tenant, error) {
	var plan *string
	if update.Plan != nil {
		p := persistence.NormalizePlan(*update.Plan)
		plan = &p
	}
	res, err := s.sqlDB.ExecContext(ctx, `
        UPDATE tenants SET
            name = COALESCE(?, name),
            plan = COALESCE(?, plan),
            powered_by = COALESCE(?, powered_by),
            announcement = COALESCE(?, announcement)
        WHERE id = ?`,
		update.Name, plan, update.PoweredBy, update.Announcement, id,
	)
	if err != nil {
		return persistence.Tenant{}, fmt.Errorf("update tenant: %w", err)
	}
	if err := requireAffected(res); err != nil {
		return persistence.Tenant{}, err
	}
	return s.GetTenantByID(ctx, id)
}

func (s *Store) SetAnnouncementAll(ctx context.Context, announcement string) (int64, error) {
	res, err := s.sqlDB.ExecContext(ctx, `UPDATE tenants SET announcement = ?`, announcement)
	if err != nil {
		return 0, fmt.Errorf("broadcast announcement: %w", err)
	}
	return res.RowsAffected()
}

func (s *Store) SetEffectWeights(ctx context.Context, id int64, weights persistence.EffectWeights) error {
	raw, err := persistence.MarshalEffectWeights(weights)
	if err != nil {
		return err
	}
	res, err := s.sqlDB.ExecContext(ctx, `UPDATE tenants SET effect_probs = ? WHERE id = ?`, string(raw), id)
	if err != nil {
		return fmt.Errorf("update effect weights: %w", err)
	}
	return requireAffected(res)
}

func (s *Store) SetBackgrounds(ctx context.Context, id int64, pc, sp *string) error {
	res, err := s.sqlDB.ExecContext(ctx, `UPDATE tenants SET bg_pc = ?, bg_sp = ? WHERE id = ?`, pc, sp, id)
	if err != nil {
		return fmt.Errorf("update backgrounds: %w", err)
	}
	return requireAffected(res)
}

func (s *Store) DeleteTenant(ctx context.Context, id int64) ([]string, error) {
	var keys []string
	err := s.inTx(ctx, func(tx *sql.Tx) error {
		var pc, sp sql.NullString
		if err := tx.QueryRowContext(ctx, `SELECT bg_pc, bg_sp FROM tenants WHERE id = ?`, id).Scan(&pc, &sp); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return persistence.ErrNotFound
			}
			return err
		}

		rows, err := tx.QueryContext(ctx, `SELECT asset_key FROM images WHERE tenant_id = ? ORDER BY id`, id)
		if err != nil {
			return err
		}
		defer rows.Close()
		for rows.Next() {
			var key string
			if err := rows.Scan(&key); err != nil {
				return err
			}
			keys = append(keys, key)
		}
		if err := rows.Err(); err != nil {
			return err
		}
		_ = rows.Close()

		if _, err := tx.ExecContext(ctx, `DELETE FROM tenants WHERE id = ?`, id); err != nil {
			return err
		}
		for _, bg := range []sql.NullString{pc, sp} {
			if bg.Valid && bg.String != "" {
				keys = append(keys, bg.String)
			}
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, persistence.ErrNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("delete tenant: %w", err)
	}
	return keys, nil
}

func scanTenant(row rowScanner) (persistence.Tenant, error) {
	return scanTenantWith(row)
}

func scanTenantWith(row rowScanner, extra ...any) (persistence.Tenant, error) {
	var (
		rec          persistence.Tenant
		announcement sql.NullString
		bgPC, bgSP   sql.NullString
		raw          string
		createdAt    int64
	)
	dest := []any{&rec.ID, &rec.Slug, &rec.Name, &rec.Plan, &rec.PoweredBy, &announcement, &raw, &bgPC, &bgSP, &createdAt}
	if err := row.Scan(append(dest, extra...)...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return persistence.Tenant{}, persistence.ErrNotFound
		}
		return persistence.Tenant{}, err
	}
	rec.Announcement = nullString(announcement)
	rec.BgPC = nullString(bgPC)
	rec.BgSP = nullString(bgSP)
	rec.EffectWeights = persistence.EffectWeightsOrDefault([]byte(raw))
	rec.CreatedAt = fromMillis(createdAt)
	return rec, nil
}

func nullString(v sql.NullString) *string {
	if !v.Valid {
		return nil
	}
	s := v.String
	return &s
}

func requireAffected(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return persistence.ErrNotFound
	}
	return nil
}
