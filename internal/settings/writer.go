package settings

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/avast/retry-go/v5"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/xela07ax/restguard/internal/domain"
	"github.com/xela07ax/restguard/internal/infra"
	"go.uber.org/zap"
)

// ErrBusy: другой инстанс держит блокировку записи настроек.
var ErrBusy = errors.New("settings are being updated by another instance")

var lockRetryDelay = 100 * time.Millisecond

const lockTTL = 10 * time.Second

// unlockScript снимает блокировку, только если она все еще наша:
// после истечения TTL ключ мог занять другой инстанс.
var unlockScript = redis.NewScript(`
if redis.call("get", KEYS[1]) == ARGV[1] then
	return redis.call("del", KEYS[1])
end
return 0
`)

// Writer: единственный путь изменения настроек (консоль, модули, CLI).
// Чтение-изменение-запись идет под распределенной блокировкой (SetNX),
// после записи шлюзы получают сигнал перечитать кэш.
type Writer struct {
	repo   Repository
	rdb    *redis.Client // nil: без блокировки и без сигнала (CLI без Redis)
	siteID int64
	logger *zap.Logger
}

func NewWriter(repo Repository, rdb *redis.Client, siteID int64, logger *zap.Logger) *Writer {
	return &Writer{
		repo:   repo,
		rdb:    rdb,
		siteID: siteID,
		logger: logger.With(zap.String("mod", "settings_writer")),
	}
}

// Get: текущие настройки (дефолты, если записи нет).
func (w *Writer) Get(ctx context.Context) (domain.Settings, error) {
	s, err := w.repo.GetSettings(ctx, w.siteID)
	if errors.Is(err, ErrNotFound) {
		return domain.DefaultSettings(), nil
	}
	if err != nil {
		return domain.Settings{}, fmt.Errorf("get settings: %w", err)
	}
	return s, nil
}

// Mutate применяет fn к текущим настройкам и сохраняет результат.
func (w *Writer) Mutate(ctx context.Context, fn func(*domain.Settings) error) (domain.Settings, error) {
	unlock, err := w.lock(ctx)
	if err != nil {
		return domain.Settings{}, err
	}
	defer unlock()

	s, err := w.Get(ctx)
	if err != nil {
		return domain.Settings{}, err
	}
	if err := fn(&s); err != nil {
		return domain.Settings{}, err
	}
	if err := w.repo.SaveSettings(ctx, w.siteID, s); err != nil {
		return domain.Settings{}, fmt.Errorf("save settings: %w", err)
	}

	// Сигнал не критичен: шлюз все равно перечитает настройки при переподключении
	if err := Publish(ctx, w.rdb, infra.RedisChanSettingsUpdate, strconv.FormatInt(w.siteID, 10)); err != nil {
		w.logger.Warn("settings update signal failed", zap.Error(err))
	}

	w.logger.Info("settings saved", zap.Int64("site_id", w.siteID), zap.Object("settings", s))
	return s, nil
}

func (w *Writer) lock(ctx context.Context) (func(), error) {
	if w.rdb == nil {
		return func() {}, nil
	}
	key := infra.SettingsLockKey(w.siteID)
	token := uuid.NewString()

	err := retry.New(
		retry.Context(ctx),
		retry.Attempts(5),
		retry.Delay(lockRetryDelay),
		retry.LastErrorOnly(true),
	).Do(func() error {
		ok, err := w.rdb.SetNX(ctx, key, token, lockTTL).Result()
		if err != nil {
			return retry.Unrecoverable(fmt.Errorf("settings lock: %w", err))
		}
		if !ok {
			return ErrBusy
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return func() {
		released, err := unlockScript.Run(context.Background(), w.rdb, []string{key}, token).Int()
		if err != nil {
			w.logger.Warn("settings lock release failed", zap.Error(err))
			return
		}
		if released == 0 {
			w.logger.Warn("settings lock expired before release", zap.Duration("ttl", lockTTL))
		}
	}, nil
}
