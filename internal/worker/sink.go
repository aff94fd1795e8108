package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/shaiso/futurejob/internal/domain"
	"github.com/shaiso/futurejob/internal/telemetry"
)

// Sink — строго последовательный исполнитель payload'ов.
//
// Sink выполняет entries по одной, в порядке передачи через Submit.
// Submit не блокируется: entries копятся в неограниченном FIFO-backlog,
// поэтому медленный payload задерживает только выполнение, но не dispatcher.
//
// Ошибка или паника payload'а логируется и не выходит за пределы Sink.
type Sink struct {
	logger  *slog.Logger
	metrics *telemetry.Metrics

	mu      sync.Mutex
	pending []*domain.Entry
	stopped bool
	notify  chan struct{}

	// Lifecycle
	cancelFunc context.CancelFunc
	done       chan struct{}
	startOnce  sync.Once
	stopOnce   sync.Once
	discarded  int
}

// SinkConfig — конфигурация Sink.
type SinkConfig struct {
	// Logger (опционально; если nil — логи отбрасываются)
	Logger *slog.Logger

	// Metrics (опционально)
	Metrics *telemetry.Metrics
}

// NewSink создаёт Sink. Выполнение начинается после Start.
func NewSink(cfg SinkConfig) *Sink {
	return &Sink{
		logger:  telemetry.WithComponent(telemetry.OrNop(cfg.Logger), "sink"),
		metrics: cfg.Metrics,
		notify:  make(chan struct{}, 1),
		done:    make(chan struct{}),
	}
}

// Start запускает горутину выполнения. Повторные вызовы игнорируются.
func (s *Sink) Start(ctx context.Context) {
	s.startOnce.Do(func() {
		ctx, cancel := context.WithCancel(ctx)
		s.cancelFunc = cancel
		go s.run(ctx)
	})
}

// Submit передаёт entry на выполнение. Никогда не блокируется.
// После Stop возвращает ErrSinkStopped.
func (s *Sink) Submit(e *domain.Entry) error {
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return ErrSinkStopped
	}
	s.pending = append(s.pending, e)
	// Gauge обновляется под локом, как и в next: иначе значения могут перемешаться.
	s.metrics.SetSinkBacklog(len(s.pending))
	s.mu.Unlock()

	select {
	case s.notify <- struct{}{}:
	default:
	}
	return nil
}

// Backlog возвращает количество entries, ожидающих выполнения.
func (s *Sink) Backlog() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.pending)
}

// Stop прекращает приём entries и ждёт завершения текущего payload'а.
// Невыполненный backlog отбрасывается; возвращается его размер.
func (s *Sink) Stop() int {
	s.stopOnce.Do(func() {
		s.mu.Lock()
		s.stopped = true
		s.mu.Unlock()

		if s.cancelFunc != nil {
			s.cancelFunc()
			<-s.done
		}

		s.mu.Lock()
		s.discarded = len(s.pending)
		s.pending = nil
		s.metrics.SetSinkBacklog(0)
		s.mu.Unlock()
		if s.discarded > 0 {
			s.logger.Warn("sink stopped with pending payloads", "discarded", s.discarded)
		}
	})
	return s.discarded
}

// run — основной цикл: забирает entries по одной и выполняет.
func (s *Sink) run(ctx context.Context) {
	defer close(s.done)

	for {
		// Остановка проверяется только между payload'ами:
		// текущий payload всегда выполняется до конца.
		if ctx.Err() != nil {
			return
		}

		e, ok := s.next()
		if !ok {
			select {
			case <-ctx.Done():
				return
			case <-s.notify:
				continue
			}
		}

		s.execute(e)
	}
}

// next снимает голову backlog'а.
func (s *Sink) next() (*domain.Entry, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.pending) == 0 {
		return nil, false
	}
	e := s.pending[0]
	s.pending[0] = nil
	s.pending = s.pending[1:]
	s.metrics.SetSinkBacklog(len(s.pending))
	return e, true
}

// execute выполняет один payload и сообщает о результате.
func (s *Sink) execute(e *domain.Entry) {
	start := time.Now()
	err := invoke(e.Payload)
	elapsed := time.Since(start)

	switch {
	case err == nil:
		s.metrics.PayloadExecuted(telemetry.ResultSuccess, elapsed)
		s.logger.Debug("payload executed",
			"entry_id", e.ID,
			"seq", e.Seq,
			"due_at", e.DueAt,
			"duration", elapsed,
		)
	case errors.Is(err, ErrPayloadPanic):
		s.metrics.PayloadExecuted(telemetry.ResultPanic, elapsed)
		s.logger.Error("payload panicked",
			"entry_id", e.ID,
			"seq", e.Seq,
			"due_at", e.DueAt,
			"error", err,
		)
	default:
		s.metrics.PayloadExecuted(telemetry.ResultError, elapsed)
		s.logger.Error("payload failed",
			"entry_id", e.ID,
			"seq", e.Seq,
			"due_at", e.DueAt,
			"error", err,
		)
	}
}

// invoke вызывает payload, превращая панику в ErrPayloadPanic.
func invoke(p domain.Payload) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %v", ErrPayloadPanic, r)
		}
	}()
	return p()
}
