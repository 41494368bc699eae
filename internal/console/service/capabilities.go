package service

import (
	"context"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/xela07ax/restguard/internal/capability"
	"github.com/xela07ax/restguard/internal/infra"
	"github.com/xela07ax/restguard/internal/settings"
	"go.uber.org/zap"
)

// CapabilityService: реестр прав консоли. Пересчет на одном инстансе
// рассылается остальным через Redis.
type CapabilityService struct {
	registry   *capability.Registry
	rdb        *redis.Client
	instanceID string
	logger     *zap.Logger
}

func NewCapabilityService(registry *capability.Registry, rdb *redis.Client, logger *zap.Logger) *CapabilityService {
	return &CapabilityService{
		registry:   registry,
		rdb:        rdb,
		instanceID: uuid.NewString(),
		logger:     logger.Named("capability-service"),
	}
}

func (s *CapabilityService) List(ctx context.Context) []string {
	return s.registry.Capabilities(ctx)
}

// Refresh пересчитывает реестр и сообщает об этом другим инстансам.
// При недоступных ролях отдается базовый набор, сигнал не рассылается.
func (s *CapabilityService) Refresh(ctx context.Context) []string {
	caps, err := s.registry.Refresh(ctx)
	if err != nil {
		s.logger.Warn("capability refresh degraded to common set", zap.Error(err))
		return caps
	}
	if err := settings.Publish(ctx, s.rdb, infra.RedisChanCapabilityRefresh, s.instanceID); err != nil {
		s.logger.Warn("capability refresh signal failed", zap.Error(err))
	}
	return caps
}

// StartListener пересчитывает реестр по сигналам чужих инстансов.
func (s *CapabilityService) StartListener(ctx context.Context) {
	refresh := func() error {
		_, err := s.registry.Refresh(ctx)
		return err
	}
	settings.ListenResilient(ctx, s.rdb, s.logger, infra.RedisChanCapabilityRefresh, refresh, func(payload string) {
		if payload == s.instanceID {
			return
		}
		if err := refresh(); err != nil {
			s.logger.Error("capability refresh failed", zap.Error(err))
		}
	})
}
