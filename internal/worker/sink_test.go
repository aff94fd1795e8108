package worker

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/shaiso/futurejob/internal/domain"
	"github.com/shaiso/futurejob/internal/telemetry"
)

func entry(seq uint64, p domain.Payload) *domain.Entry {
	return domain.NewEntry(seq, time.Now(), p)
}

// waitFor ждёт, пока cond не станет true.
func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatal("condition not met in time")
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestSink_ExecutesInSubmitOrder(t *testing.T) {
	s := NewSink(SinkConfig{})
	s.Start(context.Background())
	defer s.Stop()

	var (
		mu  sync.Mutex
		got []uint64
	)
	const n = 100
	for i := range uint64(n) {
		seq := i
		if err := s.Submit(entry(seq, func() error {
			mu.Lock()
			got = append(got, seq)
			mu.Unlock()
			return nil
		})); err != nil {
			t.Fatalf("submit: %v", err)
		}
	}

	waitFor(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(got) == n
	})

	for i, seq := range got {
		if seq != uint64(i) {
			t.Fatalf("position %d: expected seq %d, got %d", i, i, seq)
		}
	}
}

func TestSink_NeverOverlaps(t *testing.T) {
	s := NewSink(SinkConfig{})
	s.Start(context.Background())
	defer s.Stop()

	var (
		running  atomic.Int32
		overlaps atomic.Int32
		done     atomic.Int32
	)
	for i := range uint64(20) {
		s.Submit(entry(i, func() error {
			if running.Add(1) > 1 {
				overlaps.Add(1)
			}
			time.Sleep(time.Millisecond)
			running.Add(-1)
			done.Add(1)
			return nil
		}))
	}

	waitFor(t, func() bool { return done.Load() == 20 })
	if overlaps.Load() != 0 {
		t.Errorf("payloads overlapped %d times", overlaps.Load())
	}
}

func TestSink_ContainsErrorsAndPanics(t *testing.T) {
	s := NewSink(SinkConfig{})
	s.Start(context.Background())
	defer s.Stop()

	var after atomic.Bool
	s.Submit(entry(0, func() error { return errors.New("boom") }))
	s.Submit(entry(1, func() error { panic("kaboom") }))
	s.Submit(entry(2, func() error {
		after.Store(true)
		return nil
	}))

	waitFor(t, after.Load)
}

func TestSink_SubmitDoesNotBlockOnSlowPayload(t *testing.T) {
	s := NewSink(SinkConfig{})
	s.Start(context.Background())

	release := make(chan struct{})
	s.Submit(entry(0, func() error {
		<-release
		return nil
	}))

	start := time.Now()
	for i := range uint64(10) {
		if err := s.Submit(entry(i+1, func() error { return nil })); err != nil {
			t.Fatalf("submit: %v", err)
		}
	}
	if elapsed := time.Since(start); elapsed > time.Second {
		t.Errorf("submit blocked for %v", elapsed)
	}

	close(release)
	s.Stop()
}

func TestSink_BacklogGaugeMatchesAfterConcurrentSubmits(t *testing.T) {
	reg := prometheus.NewRegistry()
	s := NewSink(SinkConfig{Metrics: telemetry.NewMetrics(reg)})
	s.Start(context.Background())

	started := make(chan struct{})
	release := make(chan struct{})
	s.Submit(entry(0, func() error {
		close(started)
		<-release
		return nil
	}))
	<-started

	const submitters = 16
	const perSubmitter = 50

	var wg sync.WaitGroup
	for range submitters {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range perSubmitter {
				s.Submit(entry(1, func() error { return nil }))
			}
		}()
	}
	wg.Wait()

	if got := s.Backlog(); got != submitters*perSubmitter {
		t.Fatalf("expected backlog %d, got %d", submitters*perSubmitter, got)
	}
	if got := gaugeValue(t, reg, "futurejob_sink_backlog"); got != float64(submitters*perSubmitter) {
		t.Errorf("sink_backlog gauge = %v, want %d", got, submitters*perSubmitter)
	}

	close(release)
	s.Stop()
	if got := gaugeValue(t, reg, "futurejob_sink_backlog"); got != 0 {
		t.Errorf("sink_backlog gauge after Stop = %v, want 0", got)
	}
}

// gaugeValue достаёт значение gauge из registry.
func gaugeValue(t *testing.T, reg *prometheus.Registry, name string) float64 {
	t.Helper()

	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather: %v", err)
	}
	for _, mf := range families {
		if mf.GetName() == name && len(mf.GetMetric()) > 0 {
			return mf.GetMetric()[0].GetGauge().GetValue()
		}
	}
	t.Fatalf("metric %s not found", name)
	return 0
}

func TestSink_StopDiscardsBacklog(t *testing.T) {
	s := NewSink(SinkConfig{})
	s.Start(context.Background())

	started := make(chan struct{})
	release := make(chan struct{})
	var ran atomic.Int32

	s.Submit(entry(0, func() error {
		close(started)
		<-release
		return nil
	}))
	for i := range uint64(5) {
		s.Submit(entry(i+1, func() error {
			ran.Add(1)
			return nil
		}))
	}

	<-started
	go func() {
		time.Sleep(20 * time.Millisecond)
		close(release)
	}()

	// Stop ждёт текущий payload, остальные отбрасываются
	discarded := s.Stop()
	if discarded != 5 {
		t.Errorf("expected 5 discarded, got %d", discarded)
	}
	if ran.Load() != 0 {
		t.Errorf("no payload should run after stop, got %d", ran.Load())
	}

	if err := s.Submit(entry(9, func() error { return nil })); !errors.Is(err, ErrSinkStopped) {
		t.Errorf("expected ErrSinkStopped, got %v", err)
	}
	if s.Stop() != 5 {
		t.Error("repeated Stop should report the same count")
	}
}

func TestInvoke_RecoversPanic(t *testing.T) {
	err := invoke(func() error { panic("oops") })
	if !errors.Is(err, ErrPayloadPanic) {
		t.Errorf("expected ErrPayloadPanic, got %v", err)
	}

	want := errors.New("plain")
	if got := invoke(func() error { return want }); got != want {
		t.Errorf("expected plain error passthrough, got %v", got)
	}
}
