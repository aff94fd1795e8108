package scheduler

import (
	"context"
	"time"

	"github.com/shaiso/futurejob/internal/domain"
)

// dispatch — цикл dispatcher'а. Работает до отмены ctx.
//
// Инвариант: любая entry, не переданная в sink, находится в очереди,
// кроме кандидата в HAVE_CANDIDATE. Кандидат либо передаётся в sink,
// либо возвращается в очередь до сна, либо отбрасывается при остановке.
func (s *Scheduler) dispatch(ctx context.Context) {
	defer close(s.done)
	defer s.setState(StateStopped)

	for {
		s.setState(StateWaitingForAny)

		e, err := s.queue.TakeMin(ctx)
		if err != nil {
			return
		}

		s.setState(StateHaveCandidate)

		if ctx.Err() != nil {
			s.held = 1
			s.logger.Debug("discarding candidate on stop", "entry_id", e.ID, "seq", e.Seq)
			return
		}

		now := time.Now()
		if e.IsDue(now) {
			s.setState(StateDispatching)
			s.handOff(e, now)
			continue
		}

		s.queue.Requeue(e)
		s.setState(StateSleepingUntilDue)

		if !s.sleep(ctx, now) {
			return
		}
	}
}

// handOff передаёт due entry в sink.
func (s *Scheduler) handOff(e *domain.Entry, now time.Time) {
	lag := now.Sub(e.DueAt)

	s.logger.Debug("dispatching entry",
		"entry_id", e.ID,
		"seq", e.Seq,
		"due_at", e.DueAt,
		"lag", lag,
	)

	if err := s.sink.Submit(e); err != nil {
		// Sink останавливается только после dispatcher'а
		s.logger.Error("failed to hand off entry", "entry_id", e.ID, "error", err)
		return
	}

	s.metrics.EntryDispatched(lag)
	s.metrics.SetQueueDepth(s.queue.Len())
}

// sleep ждёт ближайшего due_at (не дольше maxSleep) или новой entry.
// Возвращает false, если ctx отменён.
func (s *Scheduler) sleep(ctx context.Context, now time.Time) bool {
	// Минимум мог смениться после Requeue: спим до фактического минимума
	dueAt, ok := s.queue.PeekEarliestDueAt()
	if !ok {
		return true
	}

	delay := dueAt.Sub(now)
	if delay <= 0 {
		return true
	}
	if delay > s.maxSleep {
		delay = s.maxSleep
	}

	s.logger.Debug("entry not yet due, sleeping",
		"due_at", dueAt,
		"delay", delay,
	)

	timer := time.NewTimer(delay)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
	case <-s.queue.Notify():
	}
	return true
}
