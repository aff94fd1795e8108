package queue

import (
	"context"
	"sync"
	"time"

	"github.com/shaiso/futurejob/internal/domain"
)

// Queue — потокобезопасная очередь entries, упорядоченная по domain.Compare.
//
// Содержимое очереди всегда равно множеству ещё не отданных на выполнение entries:
// dispatcher, забравший не-due entry, возвращает её через Requeue до того, как уснуть.
type Queue struct {
	mu    sync.Mutex
	items entryHeap

	// notify — сигнал "появилась новая entry". Ёмкость 1, отправка неблокирующая.
	notify chan struct{}
}

// New создаёт пустую Queue.
func New() *Queue {
	return &Queue{
		notify: make(chan struct{}, 1),
	}
}

// Insert добавляет entry и будит ожидающего потребителя.
// Всегда успешен.
func (q *Queue) Insert(e *domain.Entry) {
	q.mu.Lock()
	heapPush(&q.items, e)
	q.mu.Unlock()

	q.signal()
}

// InsertNext присваивает entry порядковый номер nextSeq() и добавляет её
// в одной критической секции с извлечением минимума. Поэтому entry с
// меньшим Seq всегда видна в очереди раньше любой entry с большим Seq.
func (q *Queue) InsertNext(e *domain.Entry, nextSeq func() uint64) {
	q.mu.Lock()
	e.Seq = nextSeq()
	heapPush(&q.items, e)
	q.mu.Unlock()

	q.signal()
}

// Requeue возвращает entry в очередь без сигнала пробуждения.
// Используется dispatcher'ом для entry, время которой ещё не пришло.
func (q *Queue) Requeue(e *domain.Entry) {
	q.mu.Lock()
	heapPush(&q.items, e)
	q.mu.Unlock()
}

// TakeMin блокируется, пока в очереди нет ни одной entry, затем атомарно
// удаляет и возвращает минимальную.
//
// Минимум выбирается под локом в момент удаления, поэтому он никогда не устаревший.
// Возвращает ctx.Err(), если ctx отменён раньше.
func (q *Queue) TakeMin(ctx context.Context) (*domain.Entry, error) {
	for {
		q.mu.Lock()
		if len(q.items) > 0 {
			e := heapPop(&q.items)
			q.mu.Unlock()
			return e, nil
		}
		q.mu.Unlock()

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-q.notify:
		}
	}
}

// TryTakeMin — неблокирующий вариант TakeMin. ok=false для пустой очереди.
func (q *Queue) TryTakeMin() (*domain.Entry, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.items) == 0 {
		return nil, false
	}
	return heapPop(&q.items), true
}

// PeekEarliestDueAt возвращает DueAt минимальной entry без удаления.
// ok=false для пустой очереди.
func (q *Queue) PeekEarliestDueAt() (time.Time, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	e := heapPeek(q.items)
	if e == nil {
		return time.Time{}, false
	}
	return e.DueAt, true
}

// Notify возвращает канал пробуждения.
// Dispatcher слушает его во время сна до DueAt.
func (q *Queue) Notify() <-chan struct{} {
	return q.notify
}

// Len возвращает количество entries в очереди.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

// Drain удаляет все entries и возвращает их в порядке выполнения.
func (q *Queue) Drain() []*domain.Entry {
	q.mu.Lock()
	defer q.mu.Unlock()

	out := make([]*domain.Entry, 0, len(q.items))
	for len(q.items) > 0 {
		out = append(out, heapPop(&q.items))
	}
	return out
}

// signal отправляет сигнал пробуждения, если в буфере его ещё нет.
func (q *Queue) signal() {
	select {
	case q.notify <- struct{}{}:
	default:
	}
}
