package audit

/*
Recorder собирает журнал решений по маршруту /wp/v2/users.

- Горячий путь не блокируется: событие кладется в буферизованный канал,
  при переполнении событие сбрасывается (load shedding) и считается.
- Запись в PostgreSQL пачками: по таймеру или при наборе batchSize событий.
- Stop закрывает вход, вычитывает остаток канала и делает финальный flush.
*/

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const batchSize = 100

// Storage определяет, куда физически будут сохраняться события
type Storage interface {
	// WriteBatch сохраняет пачку событий за один раз
	WriteBatch(ctx context.Context, events []AccessEvent) error
}

type Auditor interface {
	Log(event AccessEvent)
}

type Recorder struct {
	ch       chan AccessEvent
	repo     Storage
	logger   *zap.Logger
	interval time.Duration
	wg       sync.WaitGroup

	mu      sync.RWMutex // Защищает закрытие канала от параллельных Log
	closed  bool
	dropped atomic.Uint64
}

func NewRecorder(repo Storage, bufferSize int, interval time.Duration, logger *zap.Logger) *Recorder {
	if bufferSize <= 0 {
		bufferSize = 10000
	}
	if interval <= 0 {
		interval = 500 * time.Millisecond
	}
	return &Recorder{
		ch:       make(chan AccessEvent, bufferSize),
		repo:     repo,
		interval: interval,
		logger:   logger.With(zap.String("mod", "audit")),
	}
}

func (r *Recorder) Start() {
	r.wg.Add(1)
	go r.worker()
}

// Stop запирает вход в канал и ждет, пока воркер всё допишет.
func (r *Recorder) Stop() {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return
	}
	r.closed = true
	r.logger.Info("stopping auditor: closing channel and flushing buffer...")
	close(r.ch)
	r.mu.Unlock()

	r.wg.Wait()
	r.logger.Info("auditor stopped gracefully")
}

func (r *Recorder) Log(event AccessEvent) {
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.closed {
		r.logger.Warn("audit event dropped: auditor is stopping", zap.String("id", event.ID))
		r.dropped.Add(1)
		return
	}

	select {
	case r.ch <- event:
	default:
		r.dropped.Add(1)
		r.logger.Error("audit_buffer_overflow",
			zap.String("trace_id", event.TraceID),
			zap.String("outcome", event.Outcome),
		)
	}
}

// Pending: сколько событий ждут записи.
func (r *Recorder) Pending() int {
	return len(r.ch)
}

// Dropped: сколько событий потеряно из-за переполнения или остановки.
func (r *Recorder) Dropped() uint64 {
	return r.dropped.Load()
}

func (r *Recorder) worker() {
	defer r.wg.Done()

	batch := make([]AccessEvent, 0, batchSize)
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	flush := func() {
		if len(batch) == 0 {
			return
		}
		// Background: основной контекст к этому моменту может быть закрыт
		if err := r.repo.WriteBatch(context.Background(), batch); err != nil {
			r.logger.Error("audit flush failed", zap.Int("events", len(batch)), zap.Error(err))
		}
		batch = batch[:0]
	}

	for {
		select {
		case event, ok := <-r.ch:
			if !ok {
				flush()
				r.logger.Info("audit worker finished")
				return
			}
			batch = append(batch, event)
			if len(batch) >= batchSize {
				flush()
			}
		case <-ticker.C:
			flush()
		}
	}
}
