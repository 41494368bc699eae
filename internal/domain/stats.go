package domain

import "time"

// AccessStats: агрегаты решений за окно (для дашборда консоли).
type AccessStats struct {
	Window                 string          `json:"window"`
	TotalRequests          int64           `json:"total_requests"`
	Allowed                int64           `json:"allowed"`
	Sanitized              int64           `json:"sanitized"`
	BlockedUnauthenticated int64           `json:"blocked_unauthenticated"`
	BlockedForbidden       int64           `json:"blocked_forbidden"`
	BlockRatio             float64         `json:"block_ratio"`
	HourlyActivity         []ActivityPoint `json:"hourly_activity"`
}

type ActivityPoint struct {
	Hour  time.Time `json:"hour"`
	Count int64     `json:"count"`
}
