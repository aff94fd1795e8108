package api

import (
	"time"

	"github.com/google/uuid"

	"github.com/shaiso/futurejob/internal/domain"
	"github.com/shaiso/futurejob/internal/jobs"
)

// CreateJobRequest — запрос на постановку job.
//
// Время выполнения: due_at, либо delay_sec от текущего момента, либо "сейчас".
// Для повторяющихся jobs — cron_expr или interval_sec.
type CreateJobRequest struct {
	Name        string              `json:"name,omitempty"`
	Kind        string              `json:"kind"`
	Config      map[string]any      `json:"config,omitempty"`
	DueAt       *time.Time          `json:"due_at,omitempty"`
	DelaySec    float64             `json:"delay_sec,omitempty"`
	CronExpr    string              `json:"cron_expr,omitempty"`
	IntervalSec int                 `json:"interval_sec,omitempty"`
	Timezone    string              `json:"timezone,omitempty"`
	Retry       *domain.RetryPolicy `json:"retry,omitempty"`
}

// ToDomain конвертирует запрос в domain.Job.
// Некорректный delay_sec возвращает jobs.ErrInvalidJob.
func (r CreateJobRequest) ToDomain(now time.Time) (*domain.Job, error) {
	dueAt, err := jobs.ResolveDueAt(r.DueAt, r.DelaySec, now)
	if err != nil {
		return nil, err
	}

	return &domain.Job{
		Name:        r.Name,
		Kind:        r.Kind,
		Config:      r.Config,
		CronExpr:    r.CronExpr,
		IntervalSec: r.IntervalSec,
		Timezone:    r.Timezone,
		Retry:       r.Retry,
		DueAt:       dueAt,
	}, nil
}

// JobResponse — ответ с job.
type JobResponse struct {
	ID          uuid.UUID           `json:"id"`
	Name        string              `json:"name,omitempty"`
	Kind        string              `json:"kind"`
	Config      map[string]any      `json:"config,omitempty"`
	Status      domain.JobStatus    `json:"status"`
	DueAt       time.Time           `json:"due_at"`
	CronExpr    string              `json:"cron_expr,omitempty"`
	IntervalSec int                 `json:"interval_sec,omitempty"`
	Timezone    string              `json:"timezone,omitempty"`
	Retry       *domain.RetryPolicy `json:"retry,omitempty"`
	Seq         uint64              `json:"seq"`
	Attempt     int                 `json:"attempt"`
	Runs        int                 `json:"runs"`
	StartedAt   *time.Time          `json:"started_at,omitempty"`
	FinishedAt  *time.Time          `json:"finished_at,omitempty"`
	DurationMs  int64               `json:"duration_ms,omitempty"`
	Error       string              `json:"error,omitempty"`
	CreatedAt   time.Time           `json:"created_at"`
	UpdatedAt   time.Time           `json:"updated_at"`
}

// JobFromDomain конвертирует domain.Job в JobResponse.
func JobFromDomain(j *domain.Job) JobResponse {
	return JobResponse{
		ID:          j.ID,
		Name:        j.Name,
		Kind:        j.Kind,
		Config:      j.Config,
		Status:      j.Status,
		DueAt:       j.DueAt,
		CronExpr:    j.CronExpr,
		IntervalSec: j.IntervalSec,
		Timezone:    j.Timezone,
		Retry:       j.Retry,
		Seq:         j.Seq,
		Attempt:     j.Attempt,
		Runs:        j.Runs,
		StartedAt:   j.StartedAt,
		FinishedAt:  j.FinishedAt,
		DurationMs:  j.Duration().Milliseconds(),
		Error:       j.Error,
		CreatedAt:   j.CreatedAt,
		UpdatedAt:   j.UpdatedAt,
	}
}
