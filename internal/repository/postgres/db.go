package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib" // Драйвер Postgres
	"github.com/xela07ax/restguard/internal/infra"
)

// Open открывает пул соединений. Доступность проверяется отдельно (infra.WaitReady + Ping).
func Open(cfg infra.DatabaseConfig) (*sql.DB, error) {
	db, err := sql.Open("pgx", cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("postgres: open: %w", err)
	}
	maxConns := int(cfg.MaxConns)
	if maxConns <= 0 {
		maxConns = 25
	}
	db.SetMaxOpenConns(maxConns)
	db.SetMaxIdleConns(int(cfg.MinConns))
	db.SetConnMaxLifetime(5 * time.Minute)
	return db, nil
}

// Repo: настройки, сайты, роли и пользователи.
type Repo struct {
	db *sql.DB
}

func NewRepo(db *sql.DB) *Repo {
	return &Repo{db: db}
}

// Ping проверяет доступность базы при старте
func (r *Repo) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}
