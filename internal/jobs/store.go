package jobs

import (
	"context"
	"fmt"
	"slices"
	"sync"

	"github.com/google/uuid"

	"github.com/shaiso/futurejob/internal/domain"
	"github.com/shaiso/futurejob/internal/repo"
)

// Store — журнал jobs. Реализации: repo.JobRepo, MemoryStore.
type Store interface {
	Create(ctx context.Context, job *domain.Job) error
	Update(ctx context.Context, job *domain.Job) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Job, error)
	List(ctx context.Context, filter repo.JobFilter) ([]domain.Job, error)
	DiscardUnfinished(ctx context.Context) (int64, error)
}

// MemoryStore — журнал в памяти. Используется без DB_URL и в тестах.
type MemoryStore struct {
	mu   sync.RWMutex
	jobs map[uuid.UUID]domain.Job
}

// NewMemoryStore создаёт пустой MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{jobs: make(map[uuid.UUID]domain.Job)}
}

// Create сохраняет копию job.
func (m *MemoryStore) Create(_ context.Context, job *domain.Job) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.jobs[job.ID]; ok {
		return fmt.Errorf("%w: job %s", repo.ErrAlreadyExists, job.ID)
	}
	m.jobs[job.ID] = *job
	return nil
}

// Update перезаписывает job.
func (m *MemoryStore) Update(_ context.Context, job *domain.Job) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.jobs[job.ID]; !ok {
		return repo.ErrNotFound
	}
	m.jobs[job.ID] = *job
	return nil
}

// GetByID возвращает копию job.
func (m *MemoryStore) GetByID(_ context.Context, id uuid.UUID) (*domain.Job, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	job, ok := m.jobs[id]
	if !ok {
		return nil, repo.ErrNotFound
	}
	return &job, nil
}

// List возвращает jobs с фильтрацией, новые первыми.
func (m *MemoryStore) List(_ context.Context, filter repo.JobFilter) ([]domain.Job, error) {
	m.mu.RLock()
	out := make([]domain.Job, 0, len(m.jobs))
	for _, job := range m.jobs {
		if filter.Status != "" && job.Status != filter.Status {
			continue
		}
		if filter.Kind != "" && job.Kind != filter.Kind {
			continue
		}
		out = append(out, job)
	}
	m.mu.RUnlock()

	slices.SortFunc(out, func(a, b domain.Job) int {
		return b.CreatedAt.Compare(a.CreatedAt)
	})

	if filter.Offset >= len(out) {
		return nil, nil
	}
	out = out[filter.Offset:]

	limit := filter.Limit
	if limit <= 0 {
		limit = 50
	}
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// DiscardUnfinished переводит SCHEDULED/RUNNING jobs в DISCARDED.
func (m *MemoryStore) DiscardUnfinished(_ context.Context) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var n int64
	for id, job := range m.jobs {
		if job.Status == domain.JobStatusScheduled || job.Status == domain.JobStatusRunning {
			job.MarkDiscarded()
			m.jobs[id] = job
			n++
		}
	}
	return n, nil
}
