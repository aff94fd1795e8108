package worker

import "errors"

// Ошибки воркера.
var (
	// ErrSinkStopped — sink остановлен и больше не принимает entries.
	ErrSinkStopped = errors.New("sink stopped")

	// ErrPayloadPanic — payload запаниковал во время выполнения.
	ErrPayloadPanic = errors.New("payload panicked")

	// ErrUnknownJobKind — нет executor'а для данного типа job.
	ErrUnknownJobKind = errors.New("unknown job kind")

	// ErrHTTPRequest — HTTP-запрос завершился ошибкой.
	ErrHTTPRequest = errors.New("http request failed")

	// ErrPublish — публикация сообщения не удалась.
	ErrPublish = errors.New("publish failed")

	// ErrInvalidConfig — конфигурация job некорректна для executor'а.
	ErrInvalidConfig = errors.New("invalid job config")
)
