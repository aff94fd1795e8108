package worker

import (
	"context"
	"log/slog"

	"github.com/shaiso/futurejob/internal/domain"
	"github.com/shaiso/futurejob/internal/telemetry"
)

// LogExecutor — executor для job типа "log".
//
// Пишет запись в лог. Полезен для проверки расписаний и отладки.
//
// Config (из job.Config):
//   - message (string): текст записи. Default: "job fired"
//   - level (string): DEBUG, INFO, WARN, ERROR. Default: INFO
//
// Остальные ключи config выводятся как атрибуты записи и возвращаются как outputs.
type LogExecutor struct {
	// Logger — куда писать. Если nil, используется логгер из ctx.
	Logger *slog.Logger
}

// Execute пишет запись в лог.
func (e *LogExecutor) Execute(ctx context.Context, job *domain.Job) (*ExecutionResult, error) {
	logger := e.Logger
	if logger == nil {
		logger = telemetry.FromContext(ctx)
	}

	message := getString(job.Config, "message", "job fired")
	level := telemetry.ParseLevel(getString(job.Config, "level", "INFO"))

	outputs := make(map[string]any, len(job.Config))
	attrs := []any{"job_id", job.ID, "job_name", job.Name, "attempt", job.Attempt}
	for key, val := range job.Config {
		if key == "message" || key == "level" {
			continue
		}
		outputs[key] = val
		attrs = append(attrs, key, val)
	}

	logger.Log(ctx, level, message, attrs...)

	return &ExecutionResult{Outputs: outputs}, nil
}
