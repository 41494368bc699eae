package postgres

import (
	"context"
	"fmt"

	"github.com/xela07ax/restguard/internal/domain"
)

// GetAccessStats собирает агрегаты решений за последние 60 минут и активность по часам за сутки.
func (r *AuditRepo) GetAccessStats(ctx context.Context, siteID int64) (*domain.AccessStats, error) {
	s := &domain.AccessStats{Window: "60m", HourlyActivity: make([]domain.ActivityPoint, 0, 24)}

	err := r.db.QueryRowContext(ctx, `
		SELECT
			COUNT(*),
			COUNT(*) FILTER (WHERE outcome = 'allowed'),
			COUNT(*) FILTER (WHERE outcome = 'allowed_sanitized'),
			COUNT(*) FILTER (WHERE outcome = 'blocked_unauthenticated'),
			COUNT(*) FILTER (WHERE outcome = 'blocked_forbidden')
		FROM access_audit
		WHERE site_id = $1 AND timestamp > NOW() - INTERVAL '60 minutes'`, siteID).Scan(
		&s.TotalRequests, &s.Allowed, &s.Sanitized, &s.BlockedUnauthenticated, &s.BlockedForbidden,
	)
	if err != nil {
		return nil, fmt.Errorf("postgres: failed to aggregate audit: %w", err)
	}
	if s.TotalRequests > 0 {
		s.BlockRatio = float64(s.BlockedUnauthenticated+s.BlockedForbidden) / float64(s.TotalRequests)
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT date_trunc('hour', timestamp) AS hour, COUNT(*)
		FROM access_audit
		WHERE site_id = $1 AND timestamp > NOW() - INTERVAL '24 hours'
		GROUP BY hour
		ORDER BY hour`, siteID)
	if err != nil {
		return nil, fmt.Errorf("postgres: failed to query hourly activity: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var p domain.ActivityPoint
		if err := rows.Scan(&p.Hour, &p.Count); err != nil {
			return nil, fmt.Errorf("postgres: scan activity error: %w", err)
		}
		s.HourlyActivity = append(s.HourlyActivity, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: rows iteration error: %w", err)
	}
	return s, nil
}
