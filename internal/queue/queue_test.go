package queue

import (
	"context"
	"errors"
	"math/rand"
	"sync"
	"testing"
	"time"

	"github.com/shaiso/futurejob/internal/domain"
)

func noop() error { return nil }

// --- Ordering ---

func TestQueue_TakeMin_OrdersByDueAtThenSeq(t *testing.T) {
	q := New()
	base := time.Now()

	// Вставляем в перемешанном порядке
	q.Insert(domain.NewEntry(3, base.Add(2*time.Second), noop))
	q.Insert(domain.NewEntry(1, base.Add(time.Second), noop))
	q.Insert(domain.NewEntry(0, base.Add(time.Second), noop))
	q.Insert(domain.NewEntry(2, base, noop))

	want := []uint64{2, 0, 1, 3}
	for i, seq := range want {
		e, err := q.TakeMin(context.Background())
		if err != nil {
			t.Fatalf("take %d: unexpected error: %v", i, err)
		}
		if e.Seq != seq {
			t.Errorf("take %d: expected seq %d, got %d", i, seq, e.Seq)
		}
	}

	if q.Len() != 0 {
		t.Errorf("expected empty queue, got %d", q.Len())
	}
}

func TestQueue_SameDueAt_SubmissionOrder(t *testing.T) {
	q := New()
	dueAt := time.Now().Add(time.Second)

	perm := rand.Perm(500)
	for _, i := range perm {
		q.Insert(domain.NewEntry(uint64(i), dueAt, noop))
	}

	for i := 0; i < 500; i++ {
		e, ok := q.TryTakeMin()
		if !ok {
			t.Fatalf("queue drained early at %d", i)
		}
		if e.Seq != uint64(i) {
			t.Fatalf("expected seq %d, got %d", i, e.Seq)
		}
	}
}

// --- Blocking ---

func TestQueue_TakeMin_BlocksUntilInsert(t *testing.T) {
	q := New()

	got := make(chan *domain.Entry, 1)
	go func() {
		e, err := q.TakeMin(context.Background())
		if err != nil {
			t.Errorf("unexpected error: %v", err)
			return
		}
		got <- e
	}()

	// TakeMin не должен вернуться на пустой очереди
	select {
	case <-got:
		t.Fatal("TakeMin returned on empty queue")
	case <-time.After(50 * time.Millisecond):
	}

	q.Insert(domain.NewEntry(7, time.Now(), noop))

	select {
	case e := <-got:
		if e.Seq != 7 {
			t.Errorf("expected seq 7, got %d", e.Seq)
		}
	case <-time.After(time.Second):
		t.Fatal("TakeMin did not wake up after Insert")
	}
}

func TestQueue_TakeMin_Cancelled(t *testing.T) {
	q := New()
	ctx, cancel := context.WithCancel(context.Background())

	errCh := make(chan error, 1)
	go func() {
		_, err := q.TakeMin(ctx)
		errCh <- err
	}()

	time.Sleep(20 * time.Millisecond)
	cancel()

	select {
	case err := <-errCh:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("expected context.Canceled, got %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("TakeMin was not interrupted by cancel")
	}
}

func TestQueue_InsertBeforeWait_NotLost(t *testing.T) {
	q := New()

	// Сигнал отправлен до того, как кто-либо ждёт
	q.Insert(domain.NewEntry(1, time.Now(), noop))
	if _, ok := q.TryTakeMin(); !ok {
		t.Fatal("expected entry")
	}

	select {
	case <-q.Notify():
	default:
		t.Fatal("notify signal should stay buffered")
	}
}

func TestQueue_Requeue_DoesNotSignal(t *testing.T) {
	q := New()
	q.Requeue(domain.NewEntry(1, time.Now(), noop))

	select {
	case <-q.Notify():
		t.Fatal("Requeue must not raise wake signal")
	default:
	}

	if q.Len() != 1 {
		t.Errorf("expected 1 entry, got %d", q.Len())
	}
}

// --- Peek / Drain ---

func TestQueue_PeekEarliestDueAt(t *testing.T) {
	q := New()

	if _, ok := q.PeekEarliestDueAt(); ok {
		t.Error("empty queue should report ok=false")
	}

	base := time.Now().Round(0)
	q.Insert(domain.NewEntry(0, base.Add(time.Minute), noop))
	q.Insert(domain.NewEntry(1, base, noop))

	dueAt, ok := q.PeekEarliestDueAt()
	if !ok {
		t.Fatal("expected ok=true")
	}
	if !dueAt.Equal(base) {
		t.Errorf("expected %v, got %v", base, dueAt)
	}
	if q.Len() != 2 {
		t.Errorf("peek must not remove, len=%d", q.Len())
	}
}

func TestQueue_Drain(t *testing.T) {
	q := New()
	base := time.Now()
	q.Insert(domain.NewEntry(1, base.Add(time.Second), noop))
	q.Insert(domain.NewEntry(0, base, noop))

	drained := q.Drain()
	if len(drained) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(drained))
	}
	if drained[0].Seq != 0 || drained[1].Seq != 1 {
		t.Errorf("drain should return entries in order, got %d,%d", drained[0].Seq, drained[1].Seq)
	}
	if q.Len() != 0 {
		t.Errorf("queue should be empty after drain")
	}
}

// --- Concurrency ---

func TestQueue_ConcurrentInsert_NoLoss(t *testing.T) {
	q := New()
	dueAt := time.Now()

	const producers = 8
	const perProducer = 250

	var wg sync.WaitGroup
	for p := 0; p < producers; p++ {
		wg.Add(1)
		go func(p int) {
			defer wg.Done()
			for i := 0; i < perProducer; i++ {
				q.Insert(domain.NewEntry(uint64(p*perProducer+i), dueAt, noop))
			}
		}(p)
	}

	seen := make(map[uint64]bool)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	for len(seen) < producers*perProducer {
		e, err := q.TakeMin(ctx)
		if err != nil {
			t.Fatalf("took %d entries, then: %v", len(seen), err)
		}
		if seen[e.Seq] {
			t.Fatalf("duplicate seq %d", e.Seq)
		}
		seen[e.Seq] = true
	}
	wg.Wait()

	if q.Len() != 0 {
		t.Errorf("expected empty queue, got %d", q.Len())
	}
}

func TestQueue_InsertNext_TakenSeqNeverDecreases(t *testing.T) {
	q := New()
	dueAt := time.Now().Add(-time.Hour)

	const producers = 8
	const perProducer = 250

	var (
		mu  sync.Mutex
		seq uint64
	)
	nextSeq := func() uint64 {
		mu.Lock()
		defer mu.Unlock()
		seq++
		return seq
	}

	var wg sync.WaitGroup
	for p := 0; p < producers; p++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < perProducer; i++ {
				q.InsertNext(domain.NewEntry(0, dueAt, noop), nextSeq)
			}
		}()
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	// Все entries уже просрочены: порядок извлечения определяется только Seq,
	// и он не должен убывать даже при параллельной вставке.
	var last uint64
	for taken := 0; taken < producers*perProducer; taken++ {
		e, err := q.TakeMin(ctx)
		if err != nil {
			t.Fatalf("took %d entries, then: %v", taken, err)
		}
		if e.Seq <= last {
			t.Fatalf("seq %d taken after %d", e.Seq, last)
		}
		last = e.Seq
	}
	wg.Wait()
}
