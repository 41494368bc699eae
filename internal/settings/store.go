package settings

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"

	"github.com/redis/go-redis/v9"
	"github.com/xela07ax/restguard/internal/domain"
	"github.com/xela07ax/restguard/internal/infra"
	"go.uber.org/zap"
)

// Store: L1 (RAM) кэш настроек одного сайта для шлюза.
// На каждый запрос только читается.
type Store struct {
	repo   Repository
	siteID int64
	logger *zap.Logger

	mu      sync.RWMutex
	current domain.Settings
}

func NewStore(repo Repository, siteID int64, logger *zap.Logger) *Store {
	return &Store{
		repo:    repo,
		siteID:  siteID,
		logger:  logger.With(zap.String("mod", "settings_store")),
		current: domain.DefaultSettings(),
	}
}

// Load перечитывает настройки из БД. Нет записи: работаем на дефолтах.
func (s *Store) Load(ctx context.Context) error {
	fresh, err := s.repo.GetSettings(ctx, s.siteID)
	if err != nil && !errors.Is(err, ErrNotFound) {
		return fmt.Errorf("load settings for site %d: %w", s.siteID, err)
	}
	if errors.Is(err, ErrNotFound) {
		fresh = domain.DefaultSettings()
	}

	s.mu.Lock()
	s.current = fresh
	s.mu.Unlock()

	s.logger.Info("settings loaded", zap.Int64("site_id", s.siteID), zap.Object("settings", fresh))
	return nil
}

// Current: копия текущих настроек.
func (s *Store) Current() domain.Settings {
	s.mu.RLock()
	defer s.mu.RUnlock()
	cp := s.current
	if s.current.Modules != nil {
		cp.Modules = make(map[string]bool, len(s.current.Modules))
		for k, v := range s.current.Modules {
			cp.Modules[k] = v
		}
	}
	return cp
}

// Get: Current в форме SettingsSource (updater на стороне guard читает из кэша).
func (s *Store) Get(context.Context) (domain.Settings, error) {
	return s.Current(), nil
}

// StartListener держит подписку на сигнал об изменении настроек.
// Пейлоад сигнала: id сайта; "*" означает все сайты.
func (s *Store) StartListener(ctx context.Context, rdb *redis.Client) {
	reload := func() error { return s.Load(ctx) }

	ListenResilient(ctx, rdb, s.logger, infra.RedisChanSettingsUpdate, reload, func(payload string) {
		if !s.concerns(payload) {
			return
		}
		if err := reload(); err != nil {
			s.logger.Error("settings reload failed", zap.Error(err))
		}
	})
}

func (s *Store) concerns(payload string) bool {
	payload = strings.TrimSpace(payload)
	if payload == "*" {
		return true
	}
	id, err := strconv.ParseInt(payload, 10, 64)
	if err != nil {
		s.logger.Error("invalid signal format", zap.String("payload", payload))
		return false
	}
	return id == s.siteID
}
