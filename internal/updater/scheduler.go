package updater

import (
	"context"
	"fmt"
	"sync"

	"github.com/robfig/cron/v3"
	"github.com/xela07ax/restguard/internal/domain"
	"go.uber.org/zap"
)

// Checker: то, что умеет проверить наличие обновления (Updater).
type Checker interface {
	Check(ctx context.Context, bypassCache bool) *domain.UpdateInfo
}

// Scheduler периодически проверяет релизы по cron-выражению ("@every 12h", "0 3 * * *").
// Результат каждой проверки отдается в onResult (nil: обновления нет).
type Scheduler struct {
	checker  Checker
	schedule string
	onResult func(*domain.UpdateInfo)
	logger   *zap.Logger

	mu      sync.Mutex
	cron    *cron.Cron
	running bool
}

func NewScheduler(checker Checker, schedule string, onResult func(*domain.UpdateInfo), logger *zap.Logger) *Scheduler {
	if onResult == nil {
		onResult = func(*domain.UpdateInfo) {}
	}
	return &Scheduler{
		checker:  checker,
		schedule: schedule,
		onResult: onResult,
		logger:   logger.Named("update-scheduler"),
		cron:     cron.New(),
	}
}

// Start регистрирует задачу и запускает планировщик. Пустое расписание: проверок нет.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.schedule == "" {
		s.logger.Info("update schedule not configured, skipping scheduler")
		return nil
	}
	if _, err := cron.ParseStandard(s.schedule); err != nil {
		return fmt.Errorf("invalid cron schedule %q: %w", s.schedule, err)
	}
	if _, err := s.cron.AddFunc(s.schedule, func() { s.RunOnce(ctx) }); err != nil {
		return fmt.Errorf("failed to schedule update check: %w", err)
	}

	s.cron.Start()
	s.running = true
	s.logger.Info("update scheduler started", zap.String("schedule", s.schedule))

	go func() {
		<-ctx.Done()
		s.Stop()
	}()
	return nil
}

// RunOnce: одна проверка вне расписания (и при старте сервиса).
func (s *Scheduler) RunOnce(ctx context.Context) {
	s.onResult(s.checker.Check(ctx, false))
}

// Stop дожидается завершения текущей проверки.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		return
	}
	<-s.cron.Stop().Done()
	s.running = false
	s.logger.Info("update scheduler stopped")
}
