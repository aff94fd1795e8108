package jobs

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/shaiso/futurejob/internal/domain"
	"github.com/shaiso/futurejob/internal/mq"
	"github.com/shaiso/futurejob/internal/repo"
	"github.com/shaiso/futurejob/internal/scheduler"
	"github.com/shaiso/futurejob/internal/telemetry"
	"github.com/shaiso/futurejob/internal/worker"
)

const defaultExecTimeout = 5 * time.Minute

// EventPublisher публикует события о выполненных jobs.
type EventPublisher interface {
	PublishJobCompleted(ctx context.Context, payload mq.JobCompletedPayload) error
}

// Service — сервис jobs поверх планировщика.
type Service struct {
	sched       *scheduler.Scheduler
	store       Store
	registry    *worker.Registry
	events      EventPublisher
	logger      *slog.Logger
	execTimeout time.Duration

	// active — jobs, у которых есть entry в планировщике.
	mu     sync.Mutex
	active map[uuid.UUID]*jobRun
}

// Config — конфигурация Service.
type Config struct {
	// Scheduler (обязательно)
	Scheduler *scheduler.Scheduler

	// Store — журнал (default: MemoryStore)
	Store Store

	// Registry — executor'ы (default: worker.NewRegistry())
	Registry *worker.Registry

	// Events — публикация job.completed (опционально)
	Events EventPublisher

	// Logger (опционально)
	Logger *slog.Logger

	// ExecTimeout — таймаут одного выполнения (default: 5m)
	ExecTimeout time.Duration
}

// Stats — статистика сервиса.
type Stats struct {
	Scheduler  scheduler.Stats `json:"scheduler"`
	ActiveJobs int             `json:"active_jobs"`
	Kinds      []string        `json:"kinds"`
}

// jobRun — состояние job между выполнениями.
// mu держится на время постановки entry и на всё время выполнения payload'а.
type jobRun struct {
	mu  sync.Mutex
	job *domain.Job
}

// New создаёт Service.
func New(cfg Config) *Service {
	store := cfg.Store
	if store == nil {
		store = NewMemoryStore()
	}
	registry := cfg.Registry
	if registry == nil {
		registry = worker.NewRegistry()
	}
	execTimeout := cfg.ExecTimeout
	if execTimeout <= 0 {
		execTimeout = defaultExecTimeout
	}

	return &Service{
		sched:       cfg.Scheduler,
		store:       store,
		registry:    registry,
		events:      cfg.Events,
		logger:      telemetry.WithComponent(telemetry.OrNop(cfg.Logger), "jobs"),
		execTimeout: execTimeout,
		active:      make(map[uuid.UUID]*jobRun),
	}
}

// Recover помечает jobs, оставшиеся незавершёнными после прошлого процесса, как DISCARDED.
func (s *Service) Recover(ctx context.Context) (int64, error) {
	n, err := s.store.DiscardUnfinished(ctx)
	if err != nil {
		return 0, fmt.Errorf("recover: %w", err)
	}
	if n > 0 {
		s.logger.Warn("discarded jobs left by previous process", "count", n)
	}
	return n, nil
}

// Submit валидирует job, записывает её в журнал и ставит в планировщик.
//
// Нулевой DueAt означает "сейчас" (для повторяющихся — ближайшее время по расписанию).
// Возвращает копию job в статусе SCHEDULED.
func (s *Service) Submit(ctx context.Context, job *domain.Job) (*domain.Job, error) {
	if err := s.validate(job); err != nil {
		return nil, err
	}

	now := time.Now()
	if job.ID == uuid.Nil {
		job.ID = uuid.New()
	}
	if job.DueAt.IsZero() {
		job.DueAt = now
		if job.IsRecurring() {
			next, err := scheduler.NextOccurrence(recurrenceOf(job), now)
			if err != nil {
				return nil, fmt.Errorf("%w: %v", ErrInvalidJob, err)
			}
			job.DueAt = next
		}
	}
	job.Status = domain.JobStatusScheduled
	job.Attempt = 0
	job.Runs = 0
	job.CreatedAt = now
	job.UpdatedAt = now

	if err := s.store.Create(ctx, job); err != nil {
		return nil, fmt.Errorf("create job: %w", err)
	}

	run := &jobRun{job: job}

	run.mu.Lock()
	defer run.mu.Unlock()

	if err := s.schedule(ctx, run, job.DueAt); err != nil {
		return nil, err
	}

	s.logger.Info("job scheduled",
		"job_id", job.ID,
		"kind", job.Kind,
		"due_at", job.DueAt,
		"seq", job.Seq,
	)

	snapshot := *job
	return &snapshot, nil
}

// Get возвращает job из журнала.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (*domain.Job, error) {
	job, err := s.store.GetByID(ctx, id)
	if errors.Is(err, repo.ErrNotFound) {
		return nil, ErrNotFound
	}
	return job, err
}

// List возвращает jobs из журнала.
func (s *Service) List(ctx context.Context, filter repo.JobFilter) ([]domain.Job, error) {
	return s.store.List(ctx, filter)
}

// Stats возвращает статистику планировщика и сервиса.
func (s *Service) Stats() Stats {
	s.mu.Lock()
	active := len(s.active)
	s.mu.Unlock()

	return Stats{
		Scheduler:  s.sched.Stats(),
		ActiveJobs: active,
		Kinds:      s.registry.Kinds(),
	}
}

// Shutdown останавливает планировщик и помечает невыполненные jobs как DISCARDED.
// Возвращает количество отброшенных entries.
func (s *Service) Shutdown(ctx context.Context) int {
	discarded := s.sched.Shutdown()

	s.mu.Lock()
	runs := make([]*jobRun, 0, len(s.active))
	for _, run := range s.active {
		runs = append(runs, run)
	}
	s.active = make(map[uuid.UUID]*jobRun)
	s.mu.Unlock()

	for _, run := range runs {
		run.mu.Lock()
		if run.job.Status == domain.JobStatusScheduled {
			run.job.MarkDiscarded()
			s.save(ctx, run.job)
		}
		run.mu.Unlock()
	}

	s.logger.Info("jobs service stopped", "discarded", discarded)
	return discarded
}

// validate проверяет job перед постановкой.
func (s *Service) validate(job *domain.Job) error {
	if job == nil {
		return fmt.Errorf("%w: job is nil", ErrInvalidJob)
	}
	if job.Kind == "" {
		return fmt.Errorf("%w: kind is required", ErrInvalidJob)
	}
	if _, err := s.registry.Get(job.Kind); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidJob, err)
	}
	if job.IsRecurring() || job.Timezone != "" {
		rec := recurrenceOf(job)
		if rec.IsZero() {
			return fmt.Errorf("%w: timezone requires cron_expr or interval_sec", ErrInvalidJob)
		}
		if err := rec.Validate(); err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidJob, err)
		}
	}
	if job.IntervalSec < 0 {
		return fmt.Errorf("%w: interval_sec must be positive", ErrInvalidJob)
	}
	if job.Retry != nil {
		if job.Retry.MaxAttempts < 0 {
			return fmt.Errorf("%w: retry.max_attempts must not be negative", ErrInvalidJob)
		}
		switch job.Retry.Backoff {
		case "", "fixed", "exponential":
		default:
			return fmt.Errorf("%w: unknown backoff %q", ErrInvalidJob, job.Retry.Backoff)
		}
		for _, f := range []struct {
			name string
			ms   int
		}{
			{"retry.initial_delay_ms", job.Retry.InitialDelayMs},
			{"retry.max_delay_ms", job.Retry.MaxDelayMs},
		} {
			if f.ms < 0 || int64(f.ms) > domain.MaxRetryDelayMs {
				return fmt.Errorf("%w: %s must be between 0 and %d", ErrInvalidJob, f.name, domain.MaxRetryDelayMs)
			}
		}
	}
	return nil
}

// schedule ставит новую entry для run. Вызывающий держит run.mu.
func (s *Service) schedule(ctx context.Context, run *jobRun, dueAt time.Time) error {
	seq, err := s.sched.Schedule(dueAt, func() error { return s.execute(run) })
	if err != nil {
		run.job.MarkDiscarded()
		s.save(ctx, run.job)
		s.untrack(run.job.ID)
		return fmt.Errorf("schedule job: %w", err)
	}

	run.job.MarkScheduled(dueAt, seq)
	s.save(ctx, run.job)
	s.track(run)
	return nil
}

// execute — payload entry: одна попытка выполнения job.
func (s *Service) execute(run *jobRun) error {
	run.mu.Lock()
	defer run.mu.Unlock()

	job := run.job
	logger := telemetry.WithJobID(s.logger, job.ID.String())

	ctx, cancel := context.WithTimeout(telemetry.WithLogger(context.Background(), logger), s.execTimeout)
	defer cancel()

	job.MarkRunning()
	s.save(ctx, job)

	errMsg := s.runExecutor(ctx, job)
	if errMsg == "" {
		job.MarkSucceeded()
		logger.Info("job succeeded", "attempt", job.Attempt, "duration", job.Duration())
	} else {
		job.MarkFailed(errMsg)
		logger.Warn("job failed", "attempt", job.Attempt, "error", errMsg)
	}
	s.save(ctx, job)
	s.publishCompleted(ctx, job)

	// Следующая entry: retry или следующее повторение
	switch {
	case errMsg != "" && job.CanRetry():
		dueAt := time.Now().Add(job.Retry.Delay(job.Attempt))
		logger.Info("retry scheduled", "attempt", job.Attempt, "due_at", dueAt)
		s.reschedule(ctx, run, dueAt)

	case job.IsRecurring():
		from := job.DueAt
		if now := time.Now(); now.After(from) {
			from = now
		}
		next, err := scheduler.NextOccurrence(recurrenceOf(job), from)
		if err != nil {
			logger.Error("failed to calculate next occurrence", "error", err)
			s.untrack(job.ID)
			break
		}
		job.ResetForNextRun()
		s.reschedule(ctx, run, next)

	default:
		s.untrack(job.ID)
	}

	if errMsg != "" {
		return fmt.Errorf("job %s: %s", job.ID, errMsg)
	}
	return nil
}

// runExecutor выполняет job и возвращает текст ошибки ("" при успехе).
func (s *Service) runExecutor(ctx context.Context, job *domain.Job) string {
	executor, err := s.registry.Get(job.Kind)
	if err != nil {
		return err.Error()
	}

	result, err := executor.Execute(ctx, job)
	switch {
	case err != nil:
		return err.Error()
	case result.Failed():
		return result.Error
	default:
		return ""
	}
}

// reschedule ставит следующую entry изнутри payload'а.
// После Shutdown job помечается DISCARDED.
func (s *Service) reschedule(ctx context.Context, run *jobRun, dueAt time.Time) {
	if err := s.schedule(ctx, run, dueAt); err != nil {
		if errors.Is(err, scheduler.ErrStopped) {
			s.logger.Debug("scheduler stopped, job discarded", "job_id", run.job.ID)
			return
		}
		s.logger.Error("failed to reschedule job", "job_id", run.job.ID, "error", err)
	}
}

// save пишет job в журнал. Ошибка журнала не влияет на выполнение.
func (s *Service) save(ctx context.Context, job *domain.Job) {
	if err := s.store.Update(ctx, job); err != nil {
		s.logger.Warn("failed to update job journal",
			"job_id", job.ID,
			"status", job.Status,
			"error", err,
		)
	}
}

// publishCompleted публикует job.completed, если publisher настроен.
func (s *Service) publishCompleted(ctx context.Context, job *domain.Job) {
	if s.events == nil {
		return
	}

	payload := mq.JobCompletedPayload{
		JobID:   job.ID,
		Name:    job.Name,
		Kind:    job.Kind,
		Status:  string(job.Status),
		Error:   job.Error,
		Attempt: job.Attempt,
		DueAt:   job.DueAt,
	}
	if job.FinishedAt != nil {
		payload.FinishedAt = *job.FinishedAt
	}

	if err := s.events.PublishJobCompleted(ctx, payload); err != nil {
		// Не фатально: результат уже в журнале
		s.logger.Warn("failed to publish job.completed", "job_id", job.ID, "error", err)
	}
}

func (s *Service) track(run *jobRun) {
	s.mu.Lock()
	s.active[run.job.ID] = run
	s.mu.Unlock()
}

func (s *Service) untrack(id uuid.UUID) {
	s.mu.Lock()
	delete(s.active, id)
	s.mu.Unlock()
}

// recurrenceOf возвращает описание повторения job.
func recurrenceOf(job *domain.Job) scheduler.Recurrence {
	return scheduler.Recurrence{
		CronExpr:    job.CronExpr,
		IntervalSec: job.IntervalSec,
		Timezone:    job.Timezone,
	}
}
