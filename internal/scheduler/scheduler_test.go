package scheduler

import (
	"testing"
	"time"

	"aibrief/internal/pipeline"
)

func TestNewRejectsBadTriggerTime(t *testing.T) {
	for _, bad := range []string{"", "9", "25:00", "09:99"} {
		if _, err := New(bad, time.UTC, &pipeline.Pipeline{}); err == nil {
			t.Errorf("trigger time %q should be rejected", bad)
		}
	}
}

func TestNewAcceptsValidTriggerTime(t *testing.T) {
	s, err := New("09:20", time.UTC, &pipeline.Pipeline{})
	if err != nil {
		t.Fatal(err)
	}
	if s == nil {
		t.Fatal("scheduler is nil")
	}
}

func TestConcurrencyGuard(t *testing.T) {
	s := &Scheduler{}
	if !s.tryAcquire() {
		t.Fatal("first acquire should succeed")
	}
	if s.tryAcquire() {
		t.Fatal("second acquire should fail while running")
	}
	s.finish()
	if !s.tryAcquire() {
		t.Fatal("acquire after finish should succeed")
	}
}
