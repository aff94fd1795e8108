package repo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/shaiso/futurejob/internal/domain"
)

// uniqueViolation — код ошибки PostgreSQL для нарушения уникальности.
const uniqueViolation = "23505"

const jobColumns = `
	id, name, kind, config, due_at, cron_expr, interval_sec, timezone, retry,
	status, seq, attempt, runs, started_at, finished_at, error, created_at, updated_at
`

// JobRepo — журнал jobs.
type JobRepo struct {
	pool *pgxpool.Pool
}

// NewJobRepo создаёт новый JobRepo.
func NewJobRepo(pool *pgxpool.Pool) *JobRepo {
	return &JobRepo{pool: pool}
}

// JobFilter — параметры фильтрации jobs.
type JobFilter struct {
	Status domain.JobStatus
	Kind   string
	Limit  int
	Offset int
}

// Create записывает новую job.
func (r *JobRepo) Create(ctx context.Context, job *domain.Job) error {
	configJSON, retryJSON, err := marshalJobJSON(job)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO jobs (id, name, kind, config, due_at, cron_expr, interval_sec, timezone, retry,
		                  status, seq, attempt, runs, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
	`
	_, err = r.pool.Exec(ctx, query,
		job.ID,
		nullString(job.Name),
		job.Kind,
		configJSON,
		job.DueAt,
		nullString(job.CronExpr),
		nullInt(job.IntervalSec),
		nullString(job.Timezone),
		retryJSON,
		job.Status,
		int64(job.Seq),
		job.Attempt,
		job.Runs,
		job.CreatedAt,
		job.UpdatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return fmt.Errorf("%w: job %s", ErrAlreadyExists, job.ID)
		}
		return fmt.Errorf("insert job: %w", err)
	}
	return nil
}

// Update сохраняет изменяемые поля job (статус, попытки, время выполнения).
func (r *JobRepo) Update(ctx context.Context, job *domain.Job) error {
	query := `
		UPDATE jobs
		SET status = $2, due_at = $3, seq = $4, attempt = $5, runs = $6,
		    started_at = $7, finished_at = $8, error = $9, updated_at = $10
		WHERE id = $1
	`
	result, err := r.pool.Exec(ctx, query,
		job.ID,
		job.Status,
		job.DueAt,
		int64(job.Seq),
		job.Attempt,
		job.Runs,
		job.StartedAt,
		job.FinishedAt,
		nullString(job.Error),
		job.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("update job: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// GetByID возвращает job по ID.
func (r *JobRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Job, error) {
	query := `SELECT ` + jobColumns + ` FROM jobs WHERE id = $1`

	job, err := scanJob(r.pool.QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	return job, err
}

// List возвращает jobs с фильтрацией, новые первыми.
func (r *JobRepo) List(ctx context.Context, filter JobFilter) ([]domain.Job, error) {
	limit := filter.Limit
	if limit <= 0 {
		limit = 50
	}

	query := `SELECT ` + jobColumns + ` FROM jobs
		WHERE ($1::text IS NULL OR status = $1)
		  AND ($2::text IS NULL OR kind = $2)
		ORDER BY created_at DESC
		LIMIT $3 OFFSET $4
	`
	rows, err := r.pool.Query(ctx, query,
		nullString(string(filter.Status)),
		nullString(filter.Kind),
		limit,
		filter.Offset,
	)
	if err != nil {
		return nil, fmt.Errorf("list jobs: %w", err)
	}
	defer rows.Close()

	var jobs []domain.Job
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, *job)
	}
	return jobs, rows.Err()
}

// DiscardUnfinished переводит в DISCARDED все jobs, оставшиеся в SCHEDULED/RUNNING.
// Вызывается при старте: очередь предыдущего процесса не сохранилась.
func (r *JobRepo) DiscardUnfinished(ctx context.Context) (int64, error) {
	query := `
		UPDATE jobs
		SET status = 'DISCARDED', updated_at = now()
		WHERE status IN ('SCHEDULED', 'RUNNING')
	`
	result, err := r.pool.Exec(ctx, query)
	if err != nil {
		return 0, fmt.Errorf("discard unfinished jobs: %w", err)
	}
	return result.RowsAffected(), nil
}

// --- Helpers ---

// scanJob сканирует одну строку (pgx.Row или pgx.Rows) в Job.
func scanJob(row pgx.Row) (*domain.Job, error) {
	var (
		job         domain.Job
		name        *string
		configJSON  []byte
		cronExpr    *string
		intervalSec *int
		timezone    *string
		retryJSON   []byte
		seq         int64
		jobError    *string
	)

	err := row.Scan(
		&job.ID,
		&name,
		&job.Kind,
		&configJSON,
		&job.DueAt,
		&cronExpr,
		&intervalSec,
		&timezone,
		&retryJSON,
		&job.Status,
		&seq,
		&job.Attempt,
		&job.Runs,
		&job.StartedAt,
		&job.FinishedAt,
		&jobError,
		&job.CreatedAt,
		&job.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scan job: %w", err)
	}

	if configJSON != nil {
		if err := json.Unmarshal(configJSON, &job.Config); err != nil {
			return nil, fmt.Errorf("unmarshal config: %w", err)
		}
	}
	if retryJSON != nil {
		if err := json.Unmarshal(retryJSON, &job.Retry); err != nil {
			return nil, fmt.Errorf("unmarshal retry: %w", err)
		}
	}

	job.Seq = uint64(seq)
	job.Name = deref(name)
	job.CronExpr = deref(cronExpr)
	job.Timezone = deref(timezone)
	job.Error = deref(jobError)
	if intervalSec != nil {
		job.IntervalSec = *intervalSec
	}

	return &job, nil
}

// marshalJobJSON сериализует JSONB-поля job.
func marshalJobJSON(job *domain.Job) (configJSON, retryJSON []byte, err error) {
	if job.Config != nil {
		if configJSON, err = json.Marshal(job.Config); err != nil {
			return nil, nil, fmt.Errorf("marshal config: %w", err)
		}
	}
	if job.Retry != nil {
		if retryJSON, err = json.Marshal(job.Retry); err != nil {
			return nil, nil, fmt.Errorf("marshal retry: %w", err)
		}
	}
	return configJSON, retryJSON, nil
}

// nullString возвращает nil для пустой строки (для NULL в БД).
func nullString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// nullInt возвращает nil для нуля.
func nullInt(i int) *int {
	if i == 0 {
		return nil
	}
	return &i
}

// deref возвращает значение строки или "".
func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
