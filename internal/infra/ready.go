package infra

import (
	"context"
	"fmt"
	"time"

	"github.com/avast/retry-go/v5"
	"go.uber.org/zap"
)

// readyDelay: базовая задержка между попытками (в тестах уменьшается)
var readyDelay = 500 * time.Millisecond

// WaitReady ждет зависимость (Postgres, Redis) при старте, пока не кончатся попытки.
// В hot path ретраев нет, это только про порядок запуска контейнеров.
func WaitReady(ctx context.Context, logger *zap.Logger, name string, ping func(ctx context.Context) error) error {
	attempt := 0
	r := retry.New(
		retry.Context(ctx),
		retry.Attempts(5),
		retry.Delay(readyDelay),
		retry.LastErrorOnly(true),
	)

	err := r.Do(func() error {
		attempt++
		pCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
		defer cancel()

		if err := ping(pCtx); err != nil {
			logger.Warn("dependency not ready", zap.String("dep", name), zap.Int("attempt", attempt), zap.Error(err))
			return err
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("%s unreachable: %w", name, err)
	}

	logger.Info("dependency ready", zap.String("dep", name))
	return nil
}
