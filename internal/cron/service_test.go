package cron

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/brickfield/brickfield-backend/pkg/logger"
	"github.com/rs/zerolog"
)

type fakeJob struct {
	name string
	runs int
	err  error
}

func (j *fakeJob) Name() string { return j.name }

func (j *fakeJob) Run(ctx context.Context) error {
	j.runs++
	return j.err
}

type fakeLock struct {
	acquired bool
	releases int
}

func (l *fakeLock) Acquire(ctx context.Context) (bool, error) { return l.acquired, nil }

func (l *fakeLock) Release(ctx context.Context) error {
	l.releases++
	return nil
}

func testLogger() *logger.Logger {
	return logger.New(logger.Options{ServiceName: "cron-test", Level: zerolog.ErrorLevel})
}

func TestRunCycleExecutesJobsInOrder(t *testing.T) {
	first := &fakeJob{name: "first"}
	second := &fakeJob{name: "second"}
	lock := &fakeLock{acquired: true}
	service, err := NewService(ServiceParams{
		Logger:   testLogger(),
		Registry: NewRegistry(first, second),
		Lock:     lock,
	})
	if err != nil {
		t.Fatalf("setup service: %v", err)
	}

	if err := service.runCycle(context.Background()); err != nil {
		t.Fatalf("runCycle: %v", err)
	}
	if first.runs != 1 || second.runs != 1 {
		t.Fatalf("expected each job to run once, got %d and %d", first.runs, second.runs)
	}
	if lock.releases != 1 {
		t.Fatalf("expected lock released once, got %d", lock.releases)
	}
}

func TestRunCycleSkipsWhenLockHeldElsewhere(t *testing.T) {
	job := &fakeJob{name: "sweep"}
	lock := &fakeLock{acquired: false}
	service, err := NewService(ServiceParams{
		Logger:   testLogger(),
		Registry: NewRegistry(job),
		Lock:     lock,
	})
	if err != nil {
		t.Fatalf("setup service: %v", err)
	}

	if err := service.runCycle(context.Background()); err != nil {
		t.Fatalf("runCycle: %v", err)
	}
	if job.runs != 0 {
		t.Fatalf("job must not run without the lock")
	}
	if lock.releases != 0 {
		t.Fatalf("lock must not be released when never acquired")
	}
}

func TestRunCycleContinuesPastFailingJob(t *testing.T) {
	failing := &fakeJob{name: "broken", err: errors.New("boom")}
	healthy := &fakeJob{name: "healthy"}
	service, err := NewService(ServiceParams{
		Logger:   testLogger(),
		Registry: NewRegistry(failing, healthy),
		Lock:     &fakeLock{acquired: true},
	})
	if err != nil {
		t.Fatalf("setup service: %v", err)
	}

	if err := service.runCycle(context.Background()); err != nil {
		t.Fatalf("runCycle: %v", err)
	}
	if healthy.runs != 1 {
		t.Fatalf("healthy job skipped after failure")
	}
}

func TestRunStopsOnContextCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	service, err := NewService(ServiceParams{
		Logger:   testLogger(),
		Registry: NewRegistry(),
		Lock:     &fakeLock{acquired: true},
		Interval: 10 * time.Millisecond,
	})
	if err != nil {
		t.Fatalf("setup service: %v", err)
	}

	done := make(chan error, 1)
	go func() { done <- service.Run(ctx) }()
	cancel()

	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Fatalf("expected context.Canceled, got %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("Run did not stop after cancel")
	}
}
