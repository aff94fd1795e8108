package queue

import (
	"container/heap"

	"github.com/shaiso/futurejob/internal/domain"
)

// entryHeap реализует container/heap.Interface для *domain.Entry.
// Минимум — entry с наименьшим (DueAt, Seq).
type entryHeap []*domain.Entry

func (h entryHeap) Len() int           { return len(h) }
func (h entryHeap) Less(i, j int) bool { return domain.Compare(h[i], h[j]) < 0 }
func (h entryHeap) Swap(i, j int)      { h[i], h[j] = h[j], h[i] }

func (h *entryHeap) Push(x any) {
	*h = append(*h, x.(*domain.Entry))
}

func (h *entryHeap) Pop() any {
	old := *h
	n := len(old)
	x := old[n-1]
	old[n-1] = nil
	*h = old[:n-1]
	return x
}

// heapPush добавляет entry, сохраняя инвариант heap.
func heapPush(h *entryHeap, e *domain.Entry) {
	heap.Push(h, e)
}

// heapPop удаляет и возвращает минимальную entry.
// Паникует на пустом heap.
func heapPop(h *entryHeap) *domain.Entry {
	return heap.Pop(h).(*domain.Entry)
}

// heapPeek возвращает минимальную entry без удаления (nil для пустого heap).
func heapPeek(h entryHeap) *domain.Entry {
	if len(h) == 0 {
		return nil
	}
	return h[0]
}
