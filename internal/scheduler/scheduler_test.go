package scheduler

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/go-logr/logr"
)

type countingPurger struct {
	calls atomic.Int32
}

func (p *countingPurger) Purge() int {
	p.calls.Add(1)
	return 2
}

func TestSchedulerPurgesOnStart(t *testing.T) {
	p := &countingPurger{}
	s := New(p, time.Hour, logr.Discard())
	if err := s.Start(); err != nil {
		t.Fatalf("start: %v", err)
	}
	defer s.Stop()

	deadline := time.Now().Add(2 * time.Second)
	for p.calls.Load() == 0 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	if p.calls.Load() == 0 {
		t.Fatal("expected the purge job to run")
	}
}

func TestSchedulerWithoutPurger(t *testing.T) {
	s := New(nil, time.Minute, logr.Discard())
	if err := s.Start(); err != nil {
		t.Fatalf("start: %v", err)
	}
	s.Stop()
}

func TestRunOnce(t *testing.T) {
	p := &countingPurger{}
	s := New(p, time.Minute, logr.Discard())
	if n := s.RunOnce(); n != 2 {
		t.Errorf("expected 2 purged entries, got %d", n)
	}
}
