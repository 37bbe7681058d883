package persistence

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
)

const userColumns = `id, tenant_id, username, password_hash, created_at`

func (s *PostgresStore) CreateUser(ctx context.Context, params CreateUserParams) (User, error) {
	row := s.pool.QueryRow(ctx, `
        INSERT INTO users (tenant_id, username, password_hash, created_at)
        VALUES ($1, $2, $3, $4)
        RETURNING `+userColumns,
		params.TenantID, params.Username, params.PasswordHash, pgTime(params.CreatedAt),
	)
	user, err := scanPgUser(row)
	if err != nil {
		switch {
		case isUniqueViolation(err):
			return User{}, fmt.Errorf("username %q: %w", params.Username, ErrConflict)
		case isForeignKeyViolation(err):
			return User{}, ErrNotFound
		}
		return User{}, fmt.Errorf("insert user: %w", err)
	}
	return user, nil
}

func (s *PostgresStore) GetUserByUsername(ctx context.Context, username string) (User, error) {
	return scanPgUser(s.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE username = $1`, username))
}

func (s *PostgresStore) GetUserByID(ctx context.Context, id int64) (User, error) {
	return scanPgUser(s.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id))
}

func (s *PostgresStore) FirstUserForTenant(ctx context.Context, tenantID int64) (User, error) {
	return scanPgUser(s.pool.QueryRow(ctx, `
        SELECT `+userColumns+` FROM users
        WHERE tenant_id = $1
        ORDER BY created_at, id
        LIMIT 1`, tenantID))
}

func (s *PostgresStore) UpdateUser(ctx context.Context, id int64, update UserUpdate) (User, error) {
	user, err := scanPgUser(s.pool.QueryRow(ctx, `
        UPDATE users SET
            username = COALESCE($2, username),
            password_hash = COALESCE($3, password_hash)
        WHERE id = $1
        RETURNING `+userColumns,
		id, update.Username, update.PasswordHash,
	))
	if err != nil && isUniqueViolation(err) {
		return User{}, fmt.Errorf("update user: %w", ErrConflict)
	}
	return user, err
}

func scanPgUser(row pgx.Row) (User, error) {
	var u User
	if err := row.Scan(&u.ID, &u.TenantID, &u.Username, &u.PasswordHash, &u.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return User{}, ErrNotFound
		}
		return User{}, err
	}
	u.CreatedAt = u.CreatedAt.UTC()
	return u, nil
}
