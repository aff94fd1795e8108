package domain

import (
	"cmp"
	"time"

	"github.com/google/uuid"
)

// Payload — отложенная работа. Вызывается ровно один раз, когда entry становится due.
// Возвращённая ошибка сообщается через логгер sink'а и никуда дальше не уходит.
type Payload func() error

// Entry — неизменяемая запись очереди: payload + время выполнения + порядковый номер.
//
// Порядок entries полный: сначала по DueAt, затем по Seq.
// Seq выдаётся фасадом планировщика атомарно в момент submission
// и никогда не переиспользуется, поэтому две разные entries никогда не равны.
type Entry struct {
	// ID — идентификатор для логов и журнала.
	ID uuid.UUID

	// DueAt — время, не раньше которого payload должен быть выполнен.
	// Хранится без показаний монотонных часов: сравнение идёт по wall clock.
	DueAt time.Time

	// Seq — порядковый номер submission (tie-breaker для равных DueAt).
	Seq uint64

	// Payload — сама работа.
	Payload Payload
}

// NewEntry создаёт Entry. Монотонная составляющая dueAt отбрасывается.
func NewEntry(seq uint64, dueAt time.Time, payload Payload) *Entry {
	return &Entry{
		ID:      uuid.New(),
		DueAt:   dueAt.Round(0),
		Seq:     seq,
		Payload: payload,
	}
}

// Compare сравнивает entries: DueAt по возрастанию, затем Seq по возрастанию.
// Никакие другие поля не участвуют.
func Compare(a, b *Entry) int {
	if c := a.DueAt.Compare(b.DueAt); c != 0 {
		return c
	}
	return cmp.Compare(a.Seq, b.Seq)
}

// Less возвращает true, если e должна выполниться раньше other.
func (e *Entry) Less(other *Entry) bool {
	return Compare(e, other) < 0
}

// IsDue проверяет, пора ли выполнять entry (DueAt <= now).
func (e *Entry) IsDue(now time.Time) bool {
	return !e.DueAt.After(now)
}

// Until возвращает, сколько осталось ждать относительно now.
// Для due entries возвращает 0.
func (e *Entry) Until(now time.Time) time.Duration {
	if e.IsDue(now) {
		return 0
	}
	return e.DueAt.Sub(now)
}
