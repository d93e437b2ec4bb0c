package scheduler

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"go.uber.org/zap"
)

type countingBuilder struct {
	calls atomic.Int32
}

func (b *countingBuilder) Build(_ context.Context) error {
	b.calls.Add(1)
	return nil
}

func TestSchedulerRegistersJob(t *testing.T) {
	// Arrange
	builder := &countingBuilder{}
	sched := New(builder, time.Minute, zap.NewNop())

	// Act
	if err := sched.Start(); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	defer sched.Stop()

	// Assert: the job is registered and the scheduler is running.
	jobs := sched.scheduler.Jobs()
	if len(jobs) != 1 {
		t.Fatalf("registered %d jobs, want 1", len(jobs))
	}
	if !sched.scheduler.IsRunning() {
		t.Error("scheduler not running after Start()")
	}
}

func TestSchedulerStopIsIdempotent(t *testing.T) {
	// Arrange
	sched := New(&countingBuilder{}, time.Minute, zap.NewNop())
	if err := sched.Start(); err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	// Act
	sched.Stop()
	sched.Stop()

	// Assert
	if sched.scheduler.IsRunning() {
		t.Error("scheduler still running after Stop()")
	}
}

func TestSchedulerDefaultsInterval(t *testing.T) {
	// Arrange: a zero interval must not register a zero-period job.
	sched := New(&countingBuilder{}, 0, zap.NewNop())

	// Act
	err := sched.Start()
	defer sched.Stop()

	// Assert
	if err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	if len(sched.scheduler.Jobs()) != 1 {
		t.Fatalf("registered %d jobs, want 1", len(sched.scheduler.Jobs()))
	}
}
