package domain

import (
	"math"
	"time"

	"github.com/google/uuid"
)

// Job — отложенная задача, поставленная через API или очередь jobs.submit.
//
// Job описывает, ЧТО выполнить (Kind + Config) и КОГДА (DueAt).
// Планировщик исполняет её как Entry; Job хранится в журнале
// для истории и статуса, но не для восстановления очереди после рестарта.
type Job struct {
	// ID — уникальный идентификатор job.
	ID uuid.UUID `json:"id"`

	// Name — имя для удобства.
	Name string `json:"name,omitempty"`

	// Kind — тип исполнителя: "http", "publish", "log".
	Kind string `json:"kind"`

	// Config — конфигурация исполнителя (url, method, body, exchange, ...).
	Config map[string]any `json:"config,omitempty"`

	// DueAt — время выполнения текущей попытки/повторения.
	DueAt time.Time `json:"due_at"`

	// CronExpr — cron-выражение для повторяющихся jobs.
	// Формат: "минуты часы дни месяцы дни_недели".
	// Если задан CronExpr, IntervalSec игнорируется.
	CronExpr string `json:"cron_expr,omitempty"`

	// IntervalSec — интервал в секундах между повторениями.
	IntervalSec int `json:"interval_sec,omitempty"`

	// Timezone — часовой пояс для cron. По умолчанию: "UTC".
	Timezone string `json:"timezone,omitempty"`

	// Retry — политика повторных попыток при ошибке.
	Retry *RetryPolicy `json:"retry,omitempty"`

	// Status — текущий статус.
	Status JobStatus `json:"status"`

	// Seq — порядковый номер последней entry в планировщике.
	Seq uint64 `json:"seq"`

	// Attempt — номер попытки (начиная с 1).
	Attempt int `json:"attempt"`

	// Runs — сколько раз job запускалась (все попытки и повторения).
	Runs int `json:"runs"`

	// StartedAt — время начала последнего выполнения.
	StartedAt *time.Time `json:"started_at,omitempty"`

	// FinishedAt — время завершения последнего выполнения.
	FinishedAt *time.Time `json:"finished_at,omitempty"`

	// Error — текст ошибки последнего выполнения.
	Error string `json:"error,omitempty"`

	// CreatedAt — время создания.
	CreatedAt time.Time `json:"created_at"`

	// UpdatedAt — время последнего обновления.
	UpdatedAt time.Time `json:"updated_at"`
}

// IsRecurring возвращает true, если job повторяется по cron или интервалу.
func (j *Job) IsRecurring() bool {
	return j.CronExpr != "" || j.IntervalSec > 0
}

// IsFinished возвращает true, если job в финальном статусе.
func (j *Job) IsFinished() bool {
	return j.Status.IsTerminal()
}

// Duration возвращает продолжительность последнего выполнения.
func (j *Job) Duration() time.Duration {
	if j.StartedAt == nil || j.FinishedAt == nil {
		return 0
	}
	return j.FinishedAt.Sub(*j.StartedAt)
}

// MarkScheduled переводит job в статус SCHEDULED на время dueAt.
func (j *Job) MarkScheduled(dueAt time.Time, seq uint64) {
	j.Status = JobStatusScheduled
	j.DueAt = dueAt
	j.Seq = seq
	j.UpdatedAt = time.Now()
}

// MarkRunning переводит job в статус RUNNING.
func (j *Job) MarkRunning() {
	now := time.Now()
	j.Status = JobStatusRunning
	j.StartedAt = &now
	j.FinishedAt = nil
	j.Error = ""
	j.Attempt++
	j.Runs++
	j.UpdatedAt = now
}

// MarkSucceeded переводит job в статус SUCCEEDED.
func (j *Job) MarkSucceeded() {
	now := time.Now()
	j.Status = JobStatusSucceeded
	j.FinishedAt = &now
	j.UpdatedAt = now
}

// MarkFailed переводит job в статус FAILED с ошибкой.
func (j *Job) MarkFailed(err string) {
	now := time.Now()
	j.Status = JobStatusFailed
	j.FinishedAt = &now
	j.Error = err
	j.UpdatedAt = now
}

// MarkDiscarded переводит job в статус DISCARDED (остановка планировщика).
func (j *Job) MarkDiscarded() {
	j.Status = JobStatusDiscarded
	j.UpdatedAt = time.Now()
}

// ResetForNextRun готовит повторяющуюся job к следующему повторению.
func (j *Job) ResetForNextRun() {
	j.Attempt = 0
}

// CanRetry проверяет, можно ли сделать ещё одну попытку.
func (j *Job) CanRetry() bool {
	if j.Retry == nil {
		return false
	}
	return j.Attempt < j.Retry.MaxAttempts
}

// MaxRetryDelayMs — наибольшая задержка retry в миллисекундах, представимая как time.Duration.
const MaxRetryDelayMs = math.MaxInt64 / int64(time.Millisecond)

// RetryPolicy — политика повторных попыток.
type RetryPolicy struct {
	// MaxAttempts — максимальное количество попыток (включая первую).
	MaxAttempts int `json:"max_attempts,omitempty"`

	// Backoff — стратегия задержки: "fixed", "exponential".
	Backoff string `json:"backoff,omitempty"`

	// InitialDelayMs — начальная задержка в миллисекундах.
	InitialDelayMs int `json:"initial_delay_ms,omitempty"`

	// MaxDelayMs — максимальная задержка в миллисекундах.
	MaxDelayMs int `json:"max_delay_ms,omitempty"`
}

// Delay вычисляет задержку перед попыткой номер attempt+1.
//
//   - "exponential": initialDelay * 2^(attempt-1), но не больше maxDelay
//   - "fixed" (или неизвестная стратегия): initialDelay
func (p *RetryPolicy) Delay(attempt int) time.Duration {
	if p == nil {
		return time.Second
	}

	initialDelay := msDuration(p.InitialDelayMs)
	if initialDelay <= 0 {
		initialDelay = time.Second
	}

	maxDelay := msDuration(p.MaxDelayMs)
	if maxDelay <= 0 {
		maxDelay = 30 * time.Second
	}

	delay := initialDelay
	if p.Backoff == "exponential" {
		for i := 1; i < attempt && delay < maxDelay; i++ {
			if delay > maxDelay/2 {
				delay = maxDelay
				break
			}
			delay *= 2
		}
	}

	if delay > maxDelay {
		delay = maxDelay
	}
	return delay
}

// msDuration переводит миллисекунды в Duration с насыщением на MaxRetryDelayMs.
func msDuration(ms int) time.Duration {
	if int64(ms) > MaxRetryDelayMs {
		return time.Duration(MaxRetryDelayMs) * time.Millisecond
	}
	return time.Duration(ms) * time.Millisecond
}
