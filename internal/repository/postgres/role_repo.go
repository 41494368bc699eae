package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/xela07ax/restguard/internal/domain"
)

// ListRoles: источник ролей для реестра прав.
func (r *Repo) ListRoles(ctx context.Context) ([]domain.Role, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT name, display_name, capabilities FROM roles ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("postgres: failed to query roles: %w", err)
	}
	defer rows.Close()

	roles := make([]domain.Role, 0)
	for rows.Next() {
		var (
			role domain.Role
			caps []byte
		)
		if err := rows.Scan(&role.Name, &role.DisplayName, &caps); err != nil {
			return nil, fmt.Errorf("postgres: failed to scan role: %w", err)
		}
		if len(caps) > 0 {
			if err := json.Unmarshal(caps, &role.Capabilities); err != nil {
				return nil, fmt.Errorf("postgres: corrupted capabilities of role %s: %w", role.Name, err)
			}
		}
		roles = append(roles, role)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: rows iteration error: %w", err)
	}
	return roles, nil
}

// SeedRoles добавляет роли, которых еще нет. Измененные администратором роли не трогаем.
func (r *Repo) SeedRoles(ctx context.Context, roles []domain.Role) (int, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("postgres: begin: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO roles (name, display_name, capabilities)
		VALUES ($1, $2, $3)
		ON CONFLICT (name) DO NOTHING`)
	if err != nil {
		return 0, fmt.Errorf("postgres: prepare: %w", err)
	}
	defer stmt.Close()

	created := 0
	for _, role := range roles {
		caps, err := json.Marshal(role.Capabilities)
		if err != nil {
			return 0, fmt.Errorf("postgres: encode role %s: %w", role.Name, err)
		}
		res, err := stmt.ExecContext(ctx, role.Name, role.DisplayName, caps)
		if err != nil {
			return 0, fmt.Errorf("postgres: failed to seed role %s: %w", role.Name, err)
		}
		n, _ := res.RowsAffected()
		created += int(n)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("postgres: commit: %w", err)
	}
	return created, nil
}
