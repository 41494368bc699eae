package settings

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xela07ax/restguard/internal/domain"
	"github.com/xela07ax/restguard/internal/infra"
	"go.uber.org/zap"
)

type memRepo struct {
	mu     sync.Mutex
	data   map[int64]domain.Settings
	getErr error
	saves  int
}

func newMemRepo() *memRepo {
	return &memRepo{data: map[int64]domain.Settings{}}
}

func (m *memRepo) GetSettings(_ context.Context, siteID int64) (domain.Settings, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.getErr != nil {
		return domain.Settings{}, m.getErr
	}
	s, ok := m.data[siteID]
	if !ok {
		return domain.DefaultSettings(), ErrNotFound
	}
	return s, nil
}

func (m *memRepo) SaveSettings(_ context.Context, siteID int64, s domain.Settings) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[siteID] = s
	m.saves++
	return nil
}

func newRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })
	return mr, rdb
}

func TestStoreLoad(t *testing.T) {
	ctx := context.Background()

	t.Run("missing record falls back to defaults", func(t *testing.T) {
		store := NewStore(newMemRepo(), 1, zap.NewNop())
		require.NoError(t, store.Load(ctx))
		assert.Equal(t, domain.DefaultSettings(), store.Current())
		assert.Equal(t, domain.ProtectionConfig{Enabled: true, Mode: domain.ModeBlock, RequiredCapability: "list_users"}, store.Current().Protection())
	})

	t.Run("stored record", func(t *testing.T) {
		repo := newMemRepo()
		repo.data[1] = domain.Settings{Enabled: true, ProtectionMode: domain.ModeSanitize, RequiredCapability: "edit_posts"}
		store := NewStore(repo, 1, zap.NewNop())
		require.NoError(t, store.Load(ctx))
		assert.Equal(t, domain.ModeSanitize, store.Current().Protection().Mode)
		assert.Equal(t, "edit_posts", store.Current().Protection().RequiredCapability)
	})

	t.Run("repository failure keeps previous state", func(t *testing.T) {
		repo := newMemRepo()
		repo.getErr = errors.New("connection refused")
		store := NewStore(repo, 1, zap.NewNop())
		assert.Error(t, store.Load(ctx))
		assert.Equal(t, domain.DefaultSettings(), store.Current())
	})

	t.Run("current is a copy", func(t *testing.T) {
		repo := newMemRepo()
		repo.data[1] = domain.Settings{Modules: map[string]bool{"x": true}}
		store := NewStore(repo, 1, zap.NewNop())
		require.NoError(t, store.Load(ctx))
		cur := store.Current()
		cur.Modules["x"] = false
		assert.True(t, store.Current().Modules["x"])
	})
}

func TestStoreListenerReloadsOnSignal(t *testing.T) {
	_, rdb := newRedis(t)
	repo := newMemRepo()
	store := NewStore(repo, 1, zap.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		store.StartListener(ctx, rdb)
		close(done)
	}()
	defer func() {
		cancel()
		<-done
	}()

	// ждем подписку
	require.Eventually(t, func() bool {
		n, _ := rdb.PubSubNumSub(context.Background(), infra.RedisChanSettingsUpdate).Result()
		return n[infra.RedisChanSettingsUpdate] == 1
	}, time.Second, 5*time.Millisecond)

	repo.mu.Lock()
	repo.data[1] = domain.Settings{Enabled: false, ProtectionMode: domain.ModeBlock, RequiredCapability: "list_users"}
	repo.mu.Unlock()

	// чужой сайт не трогает кэш
	require.NoError(t, rdb.Publish(context.Background(), infra.RedisChanSettingsUpdate, "2").Err())
	require.NoError(t, rdb.Publish(context.Background(), infra.RedisChanSettingsUpdate, "1").Err())

	assert.Eventually(t, func() bool { return !store.Current().Enabled }, time.Second, 5*time.Millisecond)
}

func TestStoreConcerns(t *testing.T) {
	store := NewStore(newMemRepo(), 3, zap.NewNop())
	assert.True(t, store.concerns("3"))
	assert.True(t, store.concerns(" * "))
	assert.False(t, store.concerns("4"))
	assert.False(t, store.concerns("site-3"))
}

func TestWriterMutate(t *testing.T) {
	ctx := context.Background()
	lockRetryDelay = time.Millisecond

	t.Run("saves and publishes", func(t *testing.T) {
		_, rdb := newRedis(t)
		repo := newMemRepo()
		w := NewWriter(repo, rdb, 1, zap.NewNop())

		sub := rdb.Subscribe(ctx, infra.RedisChanSettingsUpdate)
		defer sub.Close()
		_, err := sub.Receive(ctx)
		require.NoError(t, err)

		saved, err := w.Mutate(ctx, func(s *domain.Settings) error {
			s.ProtectionMode = domain.ModeSanitize
			return nil
		})
		require.NoError(t, err)
		assert.Equal(t, domain.ModeSanitize, saved.ProtectionMode)
		assert.True(t, saved.Enabled)
		assert.Equal(t, saved, repo.data[1])

		msg, err := sub.ReceiveMessage(ctx)
		require.NoError(t, err)
		assert.Equal(t, "1", msg.Payload)

		exists, err := rdb.Exists(ctx, infra.SettingsLockKey(1)).Result()
		require.NoError(t, err)
		assert.Zero(t, exists, "lock must be released")
	})

	t.Run("busy lock", func(t *testing.T) {
		mr, rdb := newRedis(t)
		require.NoError(t, mr.Set(infra.SettingsLockKey(1), "processing"))
		repo := newMemRepo()
		w := NewWriter(repo, rdb, 1, zap.NewNop())

		_, err := w.Mutate(ctx, func(s *domain.Settings) error { return nil })
		assert.ErrorIs(t, err, ErrBusy)
		assert.Zero(t, repo.saves)
	})

	t.Run("expired lock taken by another instance survives", func(t *testing.T) {
		mr, rdb := newRedis(t)
		repo := newMemRepo()
		w := NewWriter(repo, rdb, 1, zap.NewNop())
		key := infra.SettingsLockKey(1)

		_, err := w.Mutate(ctx, func(s *domain.Settings) error {
			mr.FastForward(lockTTL + time.Second)
			require.False(t, mr.Exists(key))
			require.NoError(t, mr.Set(key, "other-instance"))
			return nil
		})
		require.NoError(t, err)

		got, err := mr.Get(key)
		require.NoError(t, err)
		assert.Equal(t, "other-instance", got)
	})

	t.Run("lock value is unique per holder", func(t *testing.T) {
		mr, rdb := newRedis(t)
		w := NewWriter(newMemRepo(), rdb, 1, zap.NewNop())
		key := infra.SettingsLockKey(1)

		var first, second string
		_, err := w.Mutate(ctx, func(s *domain.Settings) error {
			first, _ = mr.Get(key)
			return nil
		})
		require.NoError(t, err)
		_, err = w.Mutate(ctx, func(s *domain.Settings) error {
			second, _ = mr.Get(key)
			return nil
		})
		require.NoError(t, err)
		assert.NotEmpty(t, first)
		assert.NotEqual(t, first, second)
		assert.False(t, mr.Exists(key))
	})

	t.Run("mutation error aborts save", func(t *testing.T) {
		repo := newMemRepo()
		w := NewWriter(repo, nil, 1, zap.NewNop())
		boom := errors.New("boom")

		_, err := w.Mutate(ctx, func(s *domain.Settings) error { return boom })
		assert.ErrorIs(t, err, boom)
		assert.Zero(t, repo.saves)
	})
}

func TestWriterGetDefaults(t *testing.T) {
	w := NewWriter(newMemRepo(), nil, 5, zap.NewNop())
	s, err := w.Get(context.Background())
	require.NoError(t, err)
	assert.Equal(t, domain.DefaultSettings(), s)
}
