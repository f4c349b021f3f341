// internal/app/system/tasks/runner_test.go
package tasks

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"go.uber.org/zap"
)

func TestRunnerRunsJobImmediatelyAndOnInterval(t *testing.T) {
	var runs atomic.Int64

	r := NewRunner(zap.NewNop(), Job{
		Name:     "counter",
		Interval: 10 * time.Millisecond,
		Run: func(ctx context.Context) error {
			runs.Add(1)
			return nil
		},
	})
	r.Start()

	deadline := time.Now().Add(2 * time.Second)
	for runs.Load() < 3 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	r.Stop()

	if got := runs.Load(); got < 3 {
		t.Fatalf("expected at least 3 runs, got %d", got)
	}
}

func TestRunnerStopPreventsFurtherRuns(t *testing.T) {
	var runs atomic.Int64

	r := NewRunner(zap.NewNop(), Job{
		Name:     "stoppable",
		Interval: 5 * time.Millisecond,
		Run: func(ctx context.Context) error {
			runs.Add(1)
			return nil
		},
	})
	r.Start()
	time.Sleep(20 * time.Millisecond)
	r.Stop()

	after := runs.Load()
	time.Sleep(30 * time.Millisecond)
	if got := runs.Load(); got != after {
		t.Fatalf("job ran after Stop: %d runs before, %d after", after, got)
	}
}

func TestRunnerKeepsGoingAfterJobError(t *testing.T) {
	var runs atomic.Int64

	r := NewRunner(zap.NewNop(), Job{
		Name:     "flaky",
		Interval: 5 * time.Millisecond,
		Run: func(ctx context.Context) error {
			runs.Add(1)
			return errors.New("transient failure")
		},
	})
	r.Start()

	deadline := time.Now().Add(2 * time.Second)
	for runs.Load() < 2 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	r.Stop()

	if got := runs.Load(); got < 2 {
		t.Fatalf("expected job to keep running after an error, got %d runs", got)
	}
}
