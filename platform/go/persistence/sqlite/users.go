package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/zenGate-Global/palmyra-gacha/platform/go/persistence"
)

const userColumns = `id, tenant_id, username, password_hash, created_at`

func (s *Store) CreateUser(ctx context.Context, params persistence.CreateUserParams) (persistence.User, error) {
	res, err := s.sqlDB.ExecContext(ctx, `
        INSERT INTO users (tenant_id, username, password_hash, created_at)
        VALUES (?, ?, ?, ?)`,
		params.TenantID, params.Username, params.PasswordHash, toMillis(params.CreatedAt),
	)
	if err != nil {
		switch {
		case isUniqueViolation(err):
			return persistence.User{}, fmt.Errorf("username %q: %w", params.Username, persistence.ErrConflict)
		case isForeignKeyViolation(err):
			return persistence.User{}, persistence.ErrNotFound
		}
		return persistence.User{}, fmt.Errorf("insert user: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return persistence.User{}, fmt.Errorf("user id: %w", err)
	}
	return s.GetUserByID(ctx, id)
}

func (s *Store) GetUserByUsername(ctx context.Context, username string) (persistence.User, error) {
	return scanUser(s.sqlDB.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE username = ?`, username))
}

func (s *Store) GetUserByID(ctx context.Context, id int64) (persistence.User, error) {
	return scanUser(s.sqlDB.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE id = ?`, id))
}

func (s *Store) FirstUserForTenant(ctx context.Context, tenantID int64) (persistence.User, error) {
	return scanUser(s.sqlDB.QueryRowContext(ctx, `
        SELECT `+userColumns+` FROM users
        WHERE tenant_id = ?
        ORDER BY created_at, id
        LIMIT 1`, tenantID))
}

func (s *Store) UpdateUser(ctx context.Context, id int64, update persistence.UserUpdate) (persistence.User, error) {
	res, err := s.sqlDB.ExecContext(ctx, `
        UPDATE users SET
            username = COALESCE(?, username),
            password_hash = COALESCE(?, password_hash)
        WHERE id = ?`,
		update.Username, update.PasswordHash, id,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return persistence.User{}, fmt.Errorf("update user: %w", persistence.ErrConflict)
		}
		return persistence.User{}, fmt.Errorf("update user: %w", err)
	}
	if err := requireAffected(res); err != nil {
		return persistence.User{}, err
	}
	return s.GetUserByID(ctx, id)
}

func scanUser(row rowScanner) (persistence.User, error) {
	var (
		u         persistence.User
		createdAt int64
	)
	if err := row.Scan(&u.ID, &u.TenantID, &u.Username, &u.PasswordHash, &createdAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return persistence.User{}, persistence.ErrNotFound
		}
		return persistence.User{}, err
	}
	u.CreatedAt = fromMillis(createdAt)
	return u, nil
}
