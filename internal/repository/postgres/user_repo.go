package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/xela07ax/restguard/internal/domain"
)

// GetUserByUsername возвращает nil, nil, если пользователя нет.
func (r *Repo) GetUserByUsername(ctx context.Context, username string) (*domain.User, error) {
	query := `
		SELECT id, email, username, password_hash, created_at, updated_at
		FROM users WHERE username = $1`

	u := &domain.User{}
	err := r.db.QueryRowContext(ctx, query, username).Scan(
		&u.ID, &u.Email, &u.Username, &u.PasswordHash, &u.CreatedAt, &u.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("postgres: failed to get user: %w", err)
	}

	rows, err := r.db.QueryContext(ctx,
		`SELECT role_name FROM user_roles WHERE user_id = $1 ORDER BY role_name`, u.ID)
	if err != nil {
		return nil, fmt.Errorf("postgres: failed to get user roles: %w", err)
	}
	defer rows.Close()

	u.Roles = make([]string, 0)
	for rows.Next() {
		var role string
		if err := rows.Scan(&role); err != nil {
			return nil, fmt.Errorf("postgres: scan role error: %w", err)
		}
		u.Roles = append(u.Roles, role)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: rows iteration error: %w", err)
	}
	return u, nil
}
