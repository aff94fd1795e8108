package scheduler

import "errors"

var (
	// ErrNilPayload — Schedule вызван с nil payload.
	ErrNilPayload = errors.New("payload is nil")

	// ErrStopped — планировщик остановлен, новые entries не принимаются.
	ErrStopped = errors.New("scheduler is stopped")

	// ErrInvalidCron — cron-выражение не парсится.
	ErrInvalidCron = errors.New("invalid cron expression")

	// ErrInvalidRecurrence — некорректное описание повторения.
	ErrInvalidRecurrence = errors.New("invalid recurrence")
)
