package worker

import (
	"context"
	"fmt"
	"sort"

	"github.com/shaiso/futurejob/internal/domain"
)

// Executor — интерфейс для выполнения конкретного типа job.
//
// Реализации: HTTPExecutor, PublishExecutor, LogExecutor.
//
// job.Config содержит конфигурацию исполнителя.
type Executor interface {
	Execute(ctx context.Context, job *domain.Job) (*ExecutionResult, error)
}

// ExecutionResult — результат выполнения job.
type ExecutionResult struct {
	// Outputs — выходные данные выполнения.
	Outputs map[string]any

	// Error — сообщение об ошибке (логическая ошибка выполнения).
	// Инфраструктурные ошибки возвращаются через error в Execute().
	Error string
}

// Failed возвращает true, если результат содержит логическую ошибку.
func (r *ExecutionResult) Failed() bool {
	return r != nil && r.Error != ""
}

// Registry — реестр executor'ов по типу job.
//
// Registry заполняется при старте процесса и дальше только читается.
type Registry struct {
	executors map[string]Executor
}

// NewRegistry создаёт реестр с executor'ами по умолчанию.
//
// Регистрирует: http, log.
// publish требует соединения с RabbitMQ и регистрируется отдельно.
func NewRegistry() *Registry {
	r := &Registry{executors: make(map[string]Executor)}
	r.Register("http", &HTTPExecutor{})
	r.Register("log", &LogExecutor{})
	return r
}

// Register добавляет executor для типа job.
func (r *Registry) Register(kind string, executor Executor) {
	r.executors[kind] = executor
}

// Get возвращает executor для типа job.
func (r *Registry) Get(kind string) (Executor, error) {
	executor, ok := r.executors[kind]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownJobKind, kind)
	}
	return executor, nil
}

// Kinds возвращает отсортированный список зарегистрированных типов.
func (r *Registry) Kinds() []string {
	kinds := make([]string, 0, len(r.executors))
	for kind := range r.executors {
		kinds = append(kinds, kind)
	}
	sort.Strings(kinds)
	return kinds
}
