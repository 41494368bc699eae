package audit

import "time"

// AccessEvent: одно решение шлюза по маршруту пользователей.
type AccessEvent struct {
	ID         string    `json:"id"`       // UUID события
	TraceID    string    `json:"trace_id"` // Сквозной ID запроса (X-Trace-ID)
	SiteID     int64     `json:"site_id"`
	Method     string    `json:"method"`
	Route      string    `json:"route"`   // REST-маршрут без /wp-json
	UserID     string    `json:"user_id"` // Пусто для гостя
	Outcome    string    `json:"outcome"` // allowed, allowed_sanitized, blocked_*
	HTTPStatus int       `json:"http_status"`
	RemoteAddr string    `json:"remote_addr"`
	Timestamp  time.Time `json:"timestamp"`
	DurationMs int64     `json:"duration_ms"`
}
