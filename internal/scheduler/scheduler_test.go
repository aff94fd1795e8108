package scheduler

import (
	"errors"
	"math/rand/v2"
	"slices"
	"sync"
	"testing"
	"time"
)

// recorder собирает значения в порядке выполнения payload'ов.
type recorder struct {
	mu   sync.Mutex
	vals []int
}

func (r *recorder) payload(v int) func() error {
	return func() error {
		r.mu.Lock()
		r.vals = append(r.vals, v)
		r.mu.Unlock()
		return nil
	}
}

func (r *recorder) snapshot() []int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return slices.Clone(r.vals)
}

func (r *recorder) waitLen(t *testing.T, n int, timeout time.Duration) []int {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for {
		got := r.snapshot()
		if len(got) >= n {
			return got
		}
		if time.Now().After(deadline) {
			t.Fatalf("expected %d invocations within %v, got %d", n, timeout, len(got))
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func waitState(t *testing.T, s *Scheduler, want State) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for s.State() != want {
		if time.Now().After(deadline) {
			t.Fatalf("dispatcher did not reach %s, state %s", want, s.State())
		}
		time.Sleep(time.Millisecond)
	}
}

func TestSchedule_EntryAtNow(t *testing.T) {
	s := New(Config{})
	defer s.Shutdown()

	var rec recorder
	if _, err := s.Schedule(time.Now(), rec.payload(1)); err != nil {
		t.Fatalf("schedule: %v", err)
	}

	rec.waitLen(t, 1, time.Second)

	// Не должно быть повторного выполнения
	time.Sleep(50 * time.Millisecond)
	if got := rec.snapshot(); len(got) != 1 {
		t.Errorf("expected exactly one invocation, got %v", got)
	}
}

func TestSchedule_PastDueRunsImmediately(t *testing.T) {
	s := New(Config{})
	defer s.Shutdown()

	var rec recorder
	start := time.Now()
	if _, err := s.Schedule(start.Add(-1000*time.Second), rec.payload(1)); err != nil {
		t.Fatalf("schedule: %v", err)
	}

	rec.waitLen(t, 1, 500*time.Millisecond)
	if elapsed := time.Since(start); elapsed > 500*time.Millisecond {
		t.Errorf("past-due entry took %v", elapsed)
	}
}

func TestSchedule_SameDueAtRunsInSubmissionOrder(t *testing.T) {
	s := New(Config{})
	defer s.Shutdown()

	var rec recorder
	dueAt := time.Now().Add(time.Second)
	for i := range 100 {
		if _, err := s.Schedule(dueAt, rec.payload(i)); err != nil {
			t.Fatalf("schedule %d: %v", i, err)
		}
	}

	time.Sleep(2 * time.Second)
	got := rec.snapshot()
	if len(got) != 100 {
		t.Fatalf("expected 100 invocations, got %d", len(got))
	}
	for i, v := range got {
		if v != i {
			t.Fatalf("position %d: expected %d, got %d", i, i, v)
		}
	}
}

func TestSchedule_ConcurrentSubmittersNoLossNoDuplicates(t *testing.T) {
	s := New(Config{})
	defer s.Shutdown()

	perm := rand.Perm(100)
	const threads = 4

	var rec recorder
	dueAt := time.Now().Add(time.Second)

	// seqByValue — порядок, который вернул Schedule
	var seqMu sync.Mutex
	seqByValue := make(map[int]uint64, 100)

	var wg sync.WaitGroup
	for w := range threads {
		part := perm[w*25 : (w+1)*25]
		wg.Add(1)
		go func() {
			defer wg.Done()
			for _, v := range part {
				seq, err := s.Schedule(dueAt, rec.payload(v))
				if err != nil {
					t.Errorf("schedule %d: %v", v, err)
					return
				}
				seqMu.Lock()
				seqByValue[v] = seq
				seqMu.Unlock()
			}
		}()
	}
	wg.Wait()

	time.Sleep(2 * time.Second)
	got := rec.snapshot()

	sorted := slices.Clone(got)
	slices.Sort(sorted)
	for i := range 100 {
		if i >= len(sorted) || sorted[i] != i {
			t.Fatalf("expected exactly {0..99}, got %v", sorted)
		}
	}
	if len(sorted) != 100 {
		t.Fatalf("expected 100 invocations, got %d", len(sorted))
	}

	// Одинаковый due_at: порядок выполнения = порядок seq
	for i := 1; i < len(got); i++ {
		if seqByValue[got[i-1]] > seqByValue[got[i]] {
			t.Fatalf("value %d (seq %d) ran before %d (seq %d)",
				got[i-1], seqByValue[got[i-1]], got[i], seqByValue[got[i]])
		}
	}

	// Порядок внутри одного submitter'а сохраняется
	pos := make(map[int]int, len(got))
	for i, v := range got {
		pos[v] = i
	}
	for w := range threads {
		part := perm[w*25 : (w+1)*25]
		for i := 1; i < len(part); i++ {
			if pos[part[i-1]] > pos[part[i]] {
				t.Fatalf("thread %d: %d ran after %d", w, part[i-1], part[i])
			}
		}
	}
}

func TestSchedule_ConcurrentPastDueRunsInSeqOrder(t *testing.T) {
	s := New(Config{})
	defer s.Shutdown()

	const threads = 8
	const perThread = 200
	const total = threads * perThread

	var rec recorder
	dueAt := time.Now().Add(-time.Hour)

	// Dispatcher забирает просроченные entries, пока submitter'ы ещё вставляют.
	seqByValue := make([]uint64, total)

	var wg sync.WaitGroup
	for w := range threads {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range perThread {
				v := w*perThread + i
				seq, err := s.Schedule(dueAt, rec.payload(v))
				if err != nil {
					t.Errorf("schedule %d: %v", v, err)
					return
				}
				seqByValue[v] = seq
			}
		}()
	}
	wg.Wait()

	got := rec.waitLen(t, total, 5*time.Second)
	for i := 1; i < len(got); i++ {
		if seqByValue[got[i-1]] > seqByValue[got[i]] {
			t.Fatalf("seq %d ran before seq %d", seqByValue[got[i-1]], seqByValue[got[i]])
		}
	}
}

func TestSchedule_EarlierDueAtRunsFirst(t *testing.T) {
	s := New(Config{})
	defer s.Shutdown()

	var rec recorder
	now := time.Now()
	s.Schedule(now.Add(300*time.Millisecond), rec.payload(3))
	s.Schedule(now.Add(100*time.Millisecond), rec.payload(1))
	s.Schedule(now.Add(200*time.Millisecond), rec.payload(2))

	got := rec.waitLen(t, 3, 2*time.Second)
	if !slices.Equal(got, []int{1, 2, 3}) {
		t.Errorf("expected [1 2 3], got %v", got)
	}
}

func TestSchedule_EarlierInsertWakesSleepingDispatcher(t *testing.T) {
	s := New(Config{})
	defer s.Shutdown()

	var rec recorder
	s.Schedule(time.Now().Add(10*time.Second), rec.payload(2))
	waitState(t, s, StateSleepingUntilDue)

	start := time.Now()
	s.Schedule(start.Add(50*time.Millisecond), rec.payload(1))

	got := rec.waitLen(t, 1, time.Second)
	if got[0] != 1 {
		t.Fatalf("expected earlier entry first, got %v", got)
	}
	if elapsed := time.Since(start); elapsed > 500*time.Millisecond {
		t.Errorf("earlier entry delayed by %v", elapsed)
	}
	waitState(t, s, StateSleepingUntilDue)
	if s.Len() != 1 {
		t.Errorf("later entry should still be pending, queue len %d", s.Len())
	}
}

func TestSchedule_MaxSleepCapsWait(t *testing.T) {
	s := New(Config{MaxSleep: 20 * time.Millisecond})
	defer s.Shutdown()

	var rec recorder
	s.Schedule(time.Now().Add(150*time.Millisecond), rec.payload(1))

	rec.waitLen(t, 1, time.Second)
}

func TestSchedule_FailingPayloadDoesNotStopDispatch(t *testing.T) {
	s := New(Config{})
	defer s.Shutdown()

	var rec recorder
	now := time.Now()
	s.Schedule(now, func() error { return errors.New("boom") })
	s.Schedule(now, func() error { panic("kaboom") })
	s.Schedule(now, rec.payload(1))

	rec.waitLen(t, 1, time.Second)
}

func TestSchedule_NilPayload(t *testing.T) {
	s := New(Config{})
	defer s.Shutdown()

	if _, err := s.Schedule(time.Now(), nil); !errors.Is(err, ErrNilPayload) {
		t.Errorf("expected ErrNilPayload, got %v", err)
	}
}

func TestSchedule_SequenceIsPerInstance(t *testing.T) {
	a := New(Config{})
	defer a.Shutdown()
	b := New(Config{})
	defer b.Shutdown()

	later := time.Now().Add(time.Hour)
	noop := func() error { return nil }

	s1, _ := a.Schedule(later, noop)
	s2, _ := a.Schedule(later, noop)
	s3, _ := b.Schedule(later, noop)

	if s2 <= s1 {
		t.Errorf("sequence should increase: %d then %d", s1, s2)
	}
	if s3 != s1 {
		t.Errorf("independent schedulers should have independent counters: %d vs %d", s1, s3)
	}
}

func TestShutdown_DiscardsPendingAndRejectsNew(t *testing.T) {
	s := New(Config{})

	var rec recorder
	later := time.Now().Add(time.Hour)
	for i := range 5 {
		s.Schedule(later, rec.payload(i))
	}
	waitState(t, s, StateSleepingUntilDue)

	if n := s.Shutdown(); n != 5 {
		t.Errorf("expected 5 discarded, got %d", n)
	}
	if s.State() != StateStopped {
		t.Errorf("expected STOPPED, got %s", s.State())
	}
	if _, err := s.Schedule(time.Now(), rec.payload(9)); !errors.Is(err, ErrStopped) {
		t.Errorf("expected ErrStopped, got %v", err)
	}
	if n := s.Shutdown(); n != 5 {
		t.Errorf("repeated Shutdown should return the same count, got %d", n)
	}
	if got := rec.snapshot(); len(got) != 0 {
		t.Errorf("no payload should run, got %v", got)
	}
}

func TestShutdown_InterruptsIndefiniteWait(t *testing.T) {
	s := New(Config{})
	waitState(t, s, StateWaitingForAny)

	done := make(chan int)
	go func() { done <- s.Shutdown() }()

	select {
	case n := <-done:
		if n != 0 {
			t.Errorf("expected 0 discarded, got %d", n)
		}
	case <-time.After(time.Second):
		t.Fatal("Shutdown did not interrupt the dispatcher")
	}
}

func TestShutdown_WaitsForInFlightPayload(t *testing.T) {
	s := New(Config{})

	started := make(chan struct{})
	var finished bool
	s.Schedule(time.Now(), func() error {
		close(started)
		time.Sleep(50 * time.Millisecond)
		finished = true
		return nil
	})

	<-started
	s.Shutdown()
	if !finished {
		t.Error("in-flight payload should complete before Shutdown returns")
	}
}

func TestStats(t *testing.T) {
	s := New(Config{})
	defer s.Shutdown()

	s.Schedule(time.Now().Add(time.Hour), func() error { return nil })
	waitState(t, s, StateSleepingUntilDue)

	st := s.Stats()
	if st.QueueDepth != 1 {
		t.Errorf("expected queue depth 1, got %d", st.QueueDepth)
	}
	if st.Scheduled != 1 {
		t.Errorf("expected 1 scheduled, got %d", st.Scheduled)
	}
	if st.State != StateSleepingUntilDue {
		t.Errorf("expected SLEEPING_UNTIL_DUE, got %s", st.State)
	}
}

func TestState_MarshalText(t *testing.T) {
	b, err := StateSleepingUntilDue.MarshalText()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(b) != "SLEEPING_UNTIL_DUE" {
		t.Errorf("unexpected text %q", b)
	}
	if State(42).String() != "UNKNOWN" {
		t.Errorf("unexpected name for unknown state")
	}
}
