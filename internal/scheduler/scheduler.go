package scheduler

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/shaiso/futurejob/internal/domain"
	"github.com/shaiso/futurejob/internal/queue"
	"github.com/shaiso/futurejob/internal/telemetry"
	"github.com/shaiso/futurejob/internal/worker"
)

// DefaultMaxSleep — верхняя граница одного сна dispatcher'а.
// После неё due_at перепроверяется по текущему wall clock.
const DefaultMaxSleep = 60 * time.Second

// Scheduler — фасад планировщика.
type Scheduler struct {
	queue    *queue.Queue
	sink     *worker.Sink
	logger   *slog.Logger
	metrics  *telemetry.Metrics
	maxSleep time.Duration

	// seq — счётчик submission'ов этого экземпляра.
	seq   atomic.Uint64
	state atomic.Int32

	// mu защищает stopped: Schedule держит RLock на время вставки,
	// поэтому после Shutdown в очередь ничего не попадёт.
	mu      sync.RWMutex
	stopped bool

	// Lifecycle
	cancelFunc context.CancelFunc
	done       chan struct{}
	stopOnce   sync.Once
	discarded  int

	// held — кандидат, отброшенный dispatcher'ом при остановке (0 или 1).
	held int
}

// Config — конфигурация Scheduler.
type Config struct {
	// Logger (опционально; если nil — логи отбрасываются)
	Logger *slog.Logger

	// Metrics (опционально)
	Metrics *telemetry.Metrics

	// MaxSleep — максимальная длительность одного сна dispatcher'а (default: 60s).
	MaxSleep time.Duration
}

// Stats — снимок состояния планировщика.
type Stats struct {
	State       State  `json:"state"`
	QueueDepth  int    `json:"queue_depth"`
	SinkBacklog int    `json:"sink_backlog"`
	Scheduled   uint64 `json:"scheduled"`
}

// New создаёт Scheduler и запускает dispatcher и sink.
func New(cfg Config) *Scheduler {
	maxSleep := cfg.MaxSleep
	if maxSleep <= 0 {
		maxSleep = DefaultMaxSleep
	}

	logger := telemetry.OrNop(cfg.Logger)

	s := &Scheduler{
		queue: queue.New(),
		sink: worker.NewSink(worker.SinkConfig{
			Logger:  logger,
			Metrics: cfg.Metrics,
		}),
		logger:   telemetry.WithComponent(logger, "scheduler"),
		metrics:  cfg.Metrics,
		maxSleep: maxSleep,
		done:     make(chan struct{}),
	}

	ctx, cancel := context.WithCancel(context.Background())
	s.cancelFunc = cancel

	s.sink.Start(ctx)
	go s.dispatch(ctx)

	s.logger.Debug("scheduler started", "max_sleep", maxSleep)
	return s
}

// Schedule ставит payload на выполнение не раньше dueAt.
// dueAt в прошлом допустим: такая entry выполняется сразу.
//
// Возвращает порядковый номер entry. Никогда не блокируется на выполнении.
// Ошибки: ErrNilPayload, ErrStopped после Shutdown.
func (s *Scheduler) Schedule(dueAt time.Time, payload domain.Payload) (uint64, error) {
	if payload == nil {
		return 0, ErrNilPayload
	}

	s.mu.RLock()
	if s.stopped {
		s.mu.RUnlock()
		return 0, ErrStopped
	}
	e := domain.NewEntry(0, dueAt, payload)
	s.queue.InsertNext(e, s.nextSeq)
	s.mu.RUnlock()

	s.metrics.EntryScheduled()
	s.metrics.SetQueueDepth(s.queue.Len())
	s.logger.Debug("scheduled entry",
		"entry_id", e.ID,
		"seq", e.Seq,
		"due_at", e.DueAt,
	)

	return e.Seq, nil
}

// nextSeq выдаёт следующий порядковый номер. Вызывается под локом очереди.
func (s *Scheduler) nextSeq() uint64 {
	return s.seq.Add(1)
}

// Shutdown прекращает приём entries и останавливает dispatcher и sink.
//
// Текущий выполняющийся payload доделывается; всё, что ещё не начало
// выполняться, отбрасывается. Возвращает количество отброшенных entries.
// Повторные вызовы возвращают то же число.
//
// Shutdown нельзя вызывать из payload'а этого же планировщика.
func (s *Scheduler) Shutdown() int {
	s.stopOnce.Do(func() {
		s.mu.Lock()
		s.stopped = true
		s.mu.Unlock()

		s.cancelFunc()
		<-s.done

		pending := len(s.queue.Drain())
		backlog := s.sink.Stop()

		s.discarded = s.held + pending + backlog
		s.metrics.EntriesDiscarded(s.discarded)
		s.metrics.SetQueueDepth(0)

		s.logger.Info("scheduler stopped",
			"discarded", s.discarded,
			"scheduled", s.seq.Load(),
		)
	})
	return s.discarded
}

// State возвращает текущее состояние dispatcher'а.
func (s *Scheduler) State() State {
	return State(s.state.Load())
}

// Len возвращает количество entries, ожидающих dispatch.
func (s *Scheduler) Len() int {
	return s.queue.Len()
}

// Stats возвращает снимок состояния планировщика.
func (s *Scheduler) Stats() Stats {
	return Stats{
		State:       s.State(),
		QueueDepth:  s.queue.Len(),
		SinkBacklog: s.sink.Backlog(),
		Scheduled:   s.seq.Load(),
	}
}

func (s *Scheduler) setState(st State) {
	s.state.Store(int32(st))
}
