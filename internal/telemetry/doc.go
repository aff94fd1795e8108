// Package telemetry обеспечивает наблюдаемость планировщика.
//
// Включает:
//   - logging.go — structured logging через slog
//   - metrics.go — Prometheus метрики очереди, dispatcher'а и sink'а
//
// Ядро планировщика не зависит от конкретного backend'а логирования:
// оно принимает *slog.Logger, а обработчик (JSON, text, discard)
// выбирается при сборке процесса.
package telemetry
