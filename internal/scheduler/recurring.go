package scheduler

import (
	"errors"
	"time"

	"github.com/shaiso/futurejob/internal/domain"
)

// ScheduleRecurring ставит payload на выполнение по расписанию rec.
//
// Первое выполнение — в first (нулевое значение — ближайшее время по rec).
// После каждого выполнения, успешного или нет, ставится НОВАЯ entry
// на следующее время с новым seq. Пропущенные за время простоя
// occurrences не догоняются: следующее время считается от max(due_at, now).
//
// Возвращает seq первой entry. После Shutdown цепочка молча прекращается.
func (s *Scheduler) ScheduleRecurring(first time.Time, rec Recurrence, payload domain.Payload) (uint64, error) {
	if payload == nil {
		return 0, ErrNilPayload
	}
	if err := rec.Validate(); err != nil {
		return 0, err
	}

	if first.IsZero() {
		next, err := NextOccurrence(rec, time.Now())
		if err != nil {
			return 0, err
		}
		first = next
	}

	return s.scheduleOccurrence(first, rec, payload)
}

// scheduleOccurrence ставит одно выполнение цепочки.
func (s *Scheduler) scheduleOccurrence(dueAt time.Time, rec Recurrence, payload domain.Payload) (uint64, error) {
	return s.Schedule(dueAt, func() error {
		// defer — чтобы паника payload'а не обрывала цепочку
		defer s.scheduleNext(dueAt, rec, payload)
		return payload()
	})
}

// scheduleNext ставит следующее выполнение после dueAt.
func (s *Scheduler) scheduleNext(dueAt time.Time, rec Recurrence, payload domain.Payload) {
	from := dueAt
	if now := time.Now(); now.After(from) {
		from = now
	}

	next, err := NextOccurrence(rec, from)
	if err != nil {
		s.logger.Error("failed to calculate next occurrence", "error", err)
		return
	}

	seq, err := s.scheduleOccurrence(next, rec, payload)
	if err != nil {
		if errors.Is(err, ErrStopped) {
			s.logger.Debug("recurring chain stopped", "next_due_at", next)
			return
		}
		s.logger.Error("failed to schedule next occurrence", "error", err)
		return
	}

	s.logger.Debug("scheduled next occurrence", "seq", seq, "due_at", next)
}
