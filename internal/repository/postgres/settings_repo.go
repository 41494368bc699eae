package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/xela07ax/restguard/internal/domain"
	"github.com/xela07ax/restguard/internal/settings"
)

// GetSettings читает опции сайта. Сохраненные ключи накладываются поверх
// DefaultSettings, поэтому запись, сделанная старой версией, получает дефолты новых полей.
func (r *Repo) GetSettings(ctx context.Context, siteID int64) (domain.Settings, error) {
	var raw []byte
	err := r.db.QueryRowContext(ctx,
		`SELECT options FROM guard_options WHERE site_id = $1`, siteID).Scan(&raw)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.DefaultSettings(), settings.ErrNotFound
		}
		return domain.Settings{}, fmt.Errorf("postgres: failed to get settings: %w", err)
	}

	s := domain.DefaultSettings()
	if err := json.Unmarshal(raw, &s); err != nil {
		return domain.Settings{}, fmt.Errorf("postgres: corrupted settings for site %d: %w", siteID, err)
	}
	return s, nil
}

// SaveSettings перезаписывает опции сайта целиком.
func (r *Repo) SaveSettings(ctx context.Context, siteID int64, s domain.Settings) error {
	raw, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("postgres: encode settings: %w", err)
	}
	query := `
		INSERT INTO guard_options (site_id, options, updated_at)
		VALUES ($1, $2, NOW())
		ON CONFLICT (site_id) DO UPDATE SET options = EXCLUDED.options, updated_at = NOW()`

	if _, err := r.db.ExecContext(ctx, query, siteID, raw); err != nil {
		return fmt.Errorf("postgres: failed to save settings: %w", err)
	}
	return nil
}

// SeedSettings записывает опции, только если их еще нет. true: запись создана.
func (r *Repo) SeedSettings(ctx context.Context, siteID int64, s domain.Settings) (bool, error) {
	raw, err := json.Marshal(s)
	if err != nil {
		return false, fmt.Errorf("postgres: encode settings: %w", err)
	}
	res, err := r.db.ExecContext(ctx, `
		INSERT INTO guard_options (site_id, options, updated_at)
		VALUES ($1, $2, NOW())
		ON CONFLICT (site_id) DO NOTHING`, siteID, raw)
	if err != nil {
		return false, fmt.Errorf("postgres: failed to seed settings: %w", err)
	}
	n, _ := res.RowsAffected()
	return n > 0, nil
}

// DeleteSettings удаляет опции сайта. Отсутствие записи: не ошибка.
func (r *Repo) DeleteSettings(ctx context.Context, siteID int64) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM guard_options WHERE site_id = $1`, siteID); err != nil {
		return fmt.Errorf("postgres: failed to delete settings: %w", err)
	}
	return nil
}

// ListSiteIDs: все сайты сети (для удаления в multisite).
func (r *Repo) ListSiteIDs(ctx context.Context) ([]int64, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT id FROM sites ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("postgres: failed to list sites: %w", err)
	}
	defer rows.Close()

	ids := make([]int64, 0)
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("postgres: scan site id error: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: rows iteration error: %w", err)
	}
	return ids, nil
}
