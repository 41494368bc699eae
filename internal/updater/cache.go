package updater

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/xela07ax/restguard/internal/domain"
	"github.com/xela07ax/restguard/internal/infra"
)

// ReleaseCache: временный кэш последнего релиза (аналог transient).
type ReleaseCache interface {
	Get(ctx context.Context, repo Repo) (*domain.Release, bool, error)
	Set(ctx context.Context, repo Repo, rel *domain.Release, ttl time.Duration) error
	Delete(ctx context.Context, repo Repo) error
}

type RedisReleaseCache struct {
	rdb *redis.Client
}

func NewRedisReleaseCache(rdb *redis.Client) *RedisReleaseCache {
	return &RedisReleaseCache{rdb: rdb}
}

func (c *RedisReleaseCache) Get(ctx context.Context, repo Repo) (*domain.Release, bool, error) {
	raw, err := c.rdb.Get(ctx, infra.ReleaseCacheKey(repo.Owner, repo.Name)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("release cache get: %w", err)
	}
	var rel domain.Release
	if err := json.Unmarshal(raw, &rel); err != nil {
		// Битая запись равносильна промаху
		return nil, false, nil
	}
	return &rel, true, nil
}

func (c *RedisReleaseCache) Set(ctx context.Context, repo Repo, rel *domain.Release, ttl time.Duration) error {
	raw, err := json.Marshal(rel)
	if err != nil {
		return err
	}
	return c.rdb.Set(ctx, infra.ReleaseCacheKey(repo.Owner, repo.Name), raw, ttl).Err()
}

func (c *RedisReleaseCache) Delete(ctx context.Context, repo Repo) error {
	return c.rdb.Del(ctx, infra.ReleaseCacheKey(repo.Owner, repo.Name)).Err()
}
