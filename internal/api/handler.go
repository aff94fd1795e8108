package api

import (
	"context"
	"log/slog"

	"github.com/google/uuid"

	"github.com/shaiso/futurejob/internal/domain"
	"github.com/shaiso/futurejob/internal/jobs"
	"github.com/shaiso/futurejob/internal/repo"
	"github.com/shaiso/futurejob/internal/telemetry"
)

// JobService — операции сервиса jobs, нужные API.
type JobService interface {
	Submit(ctx context.Context, job *domain.Job) (*domain.Job, error)
	Get(ctx context.Context, id uuid.UUID) (*domain.Job, error)
	List(ctx context.Context, filter repo.JobFilter) ([]domain.Job, error)
	Stats() jobs.Stats
}

// Handler — главный обработчик API с зависимостями.
type Handler struct {
	jobs   JobService
	logger *slog.Logger
}

// Config — конфигурация для создания Handler.
type Config struct {
	Jobs   JobService
	Logger *slog.Logger
}

// NewHandler создаёт новый Handler.
func NewHandler(cfg Config) *Handler {
	return &Handler{
		jobs:   cfg.Jobs,
		logger: telemetry.WithComponent(telemetry.OrNop(cfg.Logger), "api"),
	}
}
