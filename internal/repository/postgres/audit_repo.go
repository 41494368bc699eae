package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/xela07ax/restguard/internal/audit"
)

const auditColumns = "id, trace_id, site_id, method, route, user_id, outcome, http_status, remote_addr, duration_ms, timestamp"

type AuditRepo struct {
	db *sql.DB
}

func NewAuditRepo(db *sql.DB) *AuditRepo {
	return &AuditRepo{db: db}
}

// WriteBatch: одна многострочная вставка на пачку событий.
func (r *AuditRepo) WriteBatch(ctx context.Context, events []audit.AccessEvent) error {
	if len(events) == 0 {
		return nil
	}

	// Количество колонок в таблице access_audit
	const numFields = 11
	var placeholders strings.Builder
	vals := make([]interface{}, 0, len(events)*numFields)

	for i, e := range events {
		if i > 0 {
			placeholders.WriteString(",")
		}
		placeholders.WriteString("(")
		for f := 1; f <= numFields; f++ {
			if f > 1 {
				placeholders.WriteString(", ")
			}
			fmt.Fprintf(&placeholders, "$%d", i*numFields+f)
		}
		placeholders.WriteString(")")

		vals = append(vals,
			e.ID, e.TraceID, e.SiteID, e.Method, e.Route, e.UserID,
			e.Outcome, e.HTTPStatus, e.RemoteAddr, e.DurationMs, e.Timestamp,
		)
	}

	query := fmt.Sprintf("INSERT INTO access_audit (%s) VALUES %s", auditColumns, placeholders.String())

	if _, err := r.db.ExecContext(ctx, query, vals...); err != nil {
		return fmt.Errorf("postgres: failed to write audit batch: %w", err)
	}
	return nil
}

// FetchLogs: последние решения, новые сверху. Пустой outcome, без фильтра.
func (r *AuditRepo) FetchLogs(ctx context.Context, siteID int64, outcome string, limit int) ([]audit.AccessEvent, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}

	query := "SELECT " + auditColumns + " FROM access_audit WHERE site_id = $1"
	args := []interface{}{siteID}
	if outcome != "" {
		query += " AND outcome = $2"
		args = append(args, outcome)
	}
	query += fmt.Sprintf(" ORDER BY timestamp DESC LIMIT %d", limit)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("postgres: failed to query audit: %w", err)
	}
	defer rows.Close()

	// Пустой слайс, чтобы в JSON был [] вместо null
	events := make([]audit.AccessEvent, 0)
	for rows.Next() {
		var e audit.AccessEvent
		if err := rows.Scan(
			&e.ID, &e.TraceID, &e.SiteID, &e.Method, &e.Route, &e.UserID,
			&e.Outcome, &e.HTTPStatus, &e.RemoteAddr, &e.DurationMs, &e.Timestamp,
		); err != nil {
			return nil, fmt.Errorf("postgres: failed to scan audit event: %w", err)
		}
		events = append(events, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: rows iteration error: %w", err)
	}
	return events, nil
}
