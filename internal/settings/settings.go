// Package settings хранит настройки защиты: персистентный слой (Repository),
// кэш guard в памяти (Store) и путь записи для консоли и CLI (Writer).
package settings

import (
	"context"
	"errors"

	"github.com/xela07ax/restguard/internal/domain"
)

// ErrNotFound: для сайта еще нет записи настроек.
var ErrNotFound = errors.New("settings not found")

// Repository: долговременное хранилище (PostgreSQL).
// GetSettings возвращает значения, наложенные поверх DefaultSettings.
type Repository interface {
	GetSettings(ctx context.Context, siteID int64) (domain.Settings, error)
	SaveSettings(ctx context.Context, siteID int64, s domain.Settings) error
}
