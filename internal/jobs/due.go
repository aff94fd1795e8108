package jobs

import (
	"fmt"
	"math"
	"time"
)

// MaxDelaySec — наибольший delay_sec, представимый как time.Duration.
const MaxDelaySec = float64(math.MaxInt64 / int64(time.Second))

// ResolveDueAt вычисляет время выполнения из due_at / delay_sec.
//
// due_at имеет приоритет над delay_sec. Если не задано ни то, ни другое,
// возвращается нулевое время: Submit подставит "сейчас".
// Некорректный delay_sec (NaN, ±Inf, отрицательный или не влезающий
// в time.Duration) отклоняется с ErrInvalidJob, даже если задан due_at.
func ResolveDueAt(dueAt *time.Time, delaySec float64, now time.Time) (time.Time, error) {
	switch {
	case math.IsNaN(delaySec) || math.IsInf(delaySec, 0):
		return time.Time{}, fmt.Errorf("%w: delay_sec must be a finite number", ErrInvalidJob)
	case delaySec < 0:
		return time.Time{}, fmt.Errorf("%w: delay_sec must not be negative", ErrInvalidJob)
	case delaySec > MaxDelaySec:
		return time.Time{}, fmt.Errorf("%w: delay_sec must not exceed %.0f", ErrInvalidJob, MaxDelaySec)
	}

	switch {
	case dueAt != nil:
		return *dueAt, nil
	case delaySec > 0:
		return now.Add(time.Duration(delaySec * float64(time.Second))), nil
	}
	return time.Time{}, nil
}
