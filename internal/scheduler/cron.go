package scheduler

import (
	"fmt"
	"math"
	"time"

	"github.com/robfig/cron/v3"
)

// MaxIntervalSec — наибольший interval_sec, представимый как time.Duration.
const MaxIntervalSec = math.MaxInt64 / int64(time.Second)

// cronParser — парсер cron-выражений (5 полей, без секунд).
var cronParser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)

// Recurrence описывает повторение: ровно одно из CronExpr / IntervalSec.
type Recurrence struct {
	// CronExpr — cron-выражение, например "*/5 * * * *".
	CronExpr string `json:"cron_expr,omitempty"`

	// IntervalSec — фиксированный интервал в секундах.
	IntervalSec int `json:"interval_sec,omitempty"`

	// Timezone — IANA timezone для CronExpr. Default: UTC.
	Timezone string `json:"timezone,omitempty"`
}

// IsCron возвращает true, если повторение задано cron-выражением.
func (r Recurrence) IsCron() bool {
	return r.CronExpr != ""
}

// IsZero возвращает true, если повторение не задано.
func (r Recurrence) IsZero() bool {
	return r.CronExpr == "" && r.IntervalSec == 0
}

// Validate проверяет описание повторения.
func (r Recurrence) Validate() error {
	switch {
	case r.CronExpr != "" && r.IntervalSec != 0:
		return fmt.Errorf("%w: both cron_expr and interval_sec set", ErrInvalidRecurrence)
	case r.CronExpr == "" && r.IntervalSec == 0:
		return fmt.Errorf("%w: neither cron_expr nor interval_sec set", ErrInvalidRecurrence)
	case r.IntervalSec < 0:
		return fmt.Errorf("%w: interval_sec must be positive", ErrInvalidRecurrence)
	case int64(r.IntervalSec) > MaxIntervalSec:
		return fmt.Errorf("%w: interval_sec must not exceed %d", ErrInvalidRecurrence, MaxIntervalSec)
	}

	if r.IsCron() {
		if err := ValidateCronExpr(r.CronExpr); err != nil {
			return err
		}
	}

	if _, err := r.location(); err != nil {
		return fmt.Errorf("%w: timezone %q: %v", ErrInvalidRecurrence, r.Timezone, err)
	}
	return nil
}

// location загружает timezone (пустая строка — UTC).
func (r Recurrence) location() (*time.Location, error) {
	if r.Timezone == "" {
		return time.UTC, nil
	}
	return time.LoadLocation(r.Timezone)
}

// NextOccurrence вычисляет первое время выполнения строго после from.
//
// Cron вычисляется в timezone повторения; результат возвращается в UTC.
func NextOccurrence(rec Recurrence, from time.Time) (time.Time, error) {
	if err := rec.Validate(); err != nil {
		return time.Time{}, err
	}

	if !rec.IsCron() {
		return from.Add(time.Duration(rec.IntervalSec) * time.Second).UTC(), nil
	}

	loc, _ := rec.location()
	schedule, _ := cronParser.Parse(rec.CronExpr)

	next := schedule.Next(from.In(loc))
	if next.IsZero() {
		return time.Time{}, fmt.Errorf("%w: %q never fires", ErrInvalidCron, rec.CronExpr)
	}
	return next.UTC(), nil
}

// ValidateCronExpr проверяет валидность cron-выражения.
func ValidateCronExpr(cronExpr string) error {
	if _, err := cronParser.Parse(cronExpr); err != nil {
		return fmt.Errorf("%w %q: %v", ErrInvalidCron, cronExpr, err)
	}
	return nil
}
