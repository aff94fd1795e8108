package domain

// JobStatus — статус job.
//
// Жизненный цикл:
//
//	SCHEDULED → RUNNING → SUCCEEDED
//	                    ↘ FAILED
//	RUNNING → SCHEDULED (retry или следующее повторение)
//	SCHEDULED → DISCARDED (остановка планировщика)
type JobStatus string

const (
	// JobStatusScheduled — job ждёт своего времени в очереди.
	JobStatusScheduled JobStatus = "SCHEDULED"

	// JobStatusRunning — job выполняется.
	JobStatusRunning JobStatus = "RUNNING"

	// JobStatusSucceeded — job выполнена успешно.
	JobStatusSucceeded JobStatus = "SUCCEEDED"

	// JobStatusFailed — job завершилась ошибкой, попытки исчерпаны.
	JobStatusFailed JobStatus = "FAILED"

	// JobStatusDiscarded — job отброшена при остановке (очередь не персистится).
	JobStatusDiscarded JobStatus = "DISCARDED"
)

// IsTerminal возвращает true, если статус финальный.
func (s JobStatus) IsTerminal() bool {
	switch s {
	case JobStatusSucceeded, JobStatusFailed, JobStatusDiscarded:
		return true
	default:
		return false
	}
}

// IsValid проверяет, что статус известен.
func (s JobStatus) IsValid() bool {
	switch s {
	case JobStatusScheduled, JobStatusRunning, JobStatusSucceeded, JobStatusFailed, JobStatusDiscarded:
		return true
	default:
		return false
	}
}
