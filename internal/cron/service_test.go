package cron

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/angelmondragon/library-backend/pkg/logger"
	"github.com/angelmondragon/library-backend/pkg/metrics"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/multierr"
)

type fakeLock struct {
	acquired bool
}

func (f *fakeLock) Acquire(context.Context) (bool, error) {
	if f.acquired {
		return false, nil
	}
	f.acquired = true
	return true, nil
}

func (f *fakeLock) Release(context.Context) error { f.acquired = false; return nil }

type testJob struct {
	name string
	err  error
	runs int
}

func (t *testJob) Name() string { return t.name }

func (t *testJob) Run(context.Context) error {
	t.runs++
	return t.err
}

type signalJob struct {
	ran chan struct{}
}

func (s *signalJob) Name() string { return "signal" }

func (s *signalJob) Run(context.Context) error {
	select {
	case s.ran <- struct{}{}:
	default:
	}
	return nil
}

func mustRegistry(t *testing.T, jobs ...Job) *Registry {
	t.Helper()
	registry, err := NewRegistry(jobs...)
	if err != nil {
		t.Fatalf("build registry: %v", err)
	}
	return registry
}

func newTestLogger(buf *bytes.Buffer) *logger.Logger {
	return logger.New(logger.Options{ServiceName: "cron-test", Output: buf})
}

func TestServiceRunCycleRunsAllJobsEvenOnFailure(t *testing.T) {
	var logs bytes.Buffer
	success := &testJob{name: "success"}
	failA := &testJob{name: "fail-a", err: errors.New("boom")}
	failB := &testJob{name: "fail-b", err: errors.New("bang")}
	registry := mustRegistry(t, success, failA, failB)
	service, err := NewService(ServiceParams{
		Logger:   newTestLogger(&logs),
		Registry: registry,
		Lock:     &fakeLock{},
		Metrics:  metrics.NewCronJobMetrics(prometheus.NewRegistry()),
		Interval: 0,
	})
	if err != nil {
		t.Fatalf("construct service: %v", err)
	}

	err = service.RunOnce(context.Background())
	if err == nil {
		t.Fatal("expected failing jobs to surface an error")
	}
	if got := len(multierr.Errors(err)); got != 2 {
		t.Fatalf("expected 2 combined errors, got %d: %v", got, err)
	}
	if !strings.Contains(err.Error(), "fail-a: boom") || !strings.Contains(err.Error(), "fail-b: bang") {
		t.Fatalf("expected job names in error, got %v", err)
	}
	for _, job := range []*testJob{success, failA, failB} {
		if job.runs != 1 {
			t.Fatalf("expected %s to run once, ran %d", job.name, job.runs)
		}
	}
	if !strings.Contains(logs.String(), "job completed") {
		t.Fatalf("expected completion log, got %s", logs.String())
	}
}

func TestServiceSkipsCycleWhenLockHeld(t *testing.T) {
	var logs bytes.Buffer
	job := &testJob{name: "job"}
	lock := &fakeLock{acquired: true}
	service, err := NewService(ServiceParams{
		Logger:   newTestLogger(&logs),
		Registry: mustRegistry(t, job),
		Lock:     lock,
	})
	if err != nil {
		t.Fatalf("construct service: %v", err)
	}

	if err := service.RunOnce(context.Background()); err != nil {
		t.Fatalf("run cycle: %v", err)
	}
	if job.runs != 0 {
		t.Fatalf("expected job to be skipped, ran %d", job.runs)
	}
}

func TestServiceRunStopsOnCancel(t *testing.T) {
	var logs bytes.Buffer
	job := &signalJob{ran: make(chan struct{}, 1)}
	service, err := NewService(ServiceParams{
		Logger:   newTestLogger(&logs),
		Registry: mustRegistry(t, job),
		Lock:     NewLocalLock(),
		Interval: time.Hour,
	})
	if err != nil {
		t.Fatalf("construct service: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- service.Run(ctx) }()

	select {
	case <-job.ran:
	case <-time.After(2 * time.Second):
		t.Fatal("initial cycle never ran")
	}
	cancel()

	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Fatalf("expected context.Canceled, got %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not stop after cancel")
	}
}

func TestNewServiceRequiresLoggerAndLock(t *testing.T) {
	if _, err := NewService(ServiceParams{Lock: NewLocalLock()}); err == nil {
		t.Fatal("expected missing logger to fail")
	}
	var logs bytes.Buffer
	if _, err := NewService(ServiceParams{Logger: newTestLogger(&logs)}); err == nil {
		t.Fatal("expected missing lock to fail")
	}
}

func TestLocalLock(t *testing.T) {
	lock := NewLocalLock()
	ctx := context.Background()

	ok, err := lock.Acquire(ctx)
	if err != nil || !ok {
		t.Fatalf("expected first acquire to succeed, ok=%v err=%v", ok, err)
	}
	ok, err = lock.Acquire(ctx)
	if err != nil || ok {
		t.Fatalf("expected second acquire to fail, ok=%v err=%v", ok, err)
	}
	if err := lock.Release(ctx); err != nil {
		t.Fatalf("release: %v", err)
	}
	ok, _ = lock.Acquire(ctx)
	if !ok {
		t.Fatal("expected acquire after release to succeed")
	}

	canceled, cancel := context.WithCancel(ctx)
	cancel()
	if _, err := NewLocalLock().Acquire(canceled); err == nil {
		t.Fatal("expected canceled context to fail acquire")
	}
}

type funcJob struct {
	name string
	run  func(context.Context) error
}

func (f funcJob) Name() string                  { return f.name }
func (f funcJob) Run(ctx context.Context) error { return f.run(ctx) }

func TestServiceRecoversPanickingJob(t *testing.T) {
	var logs bytes.Buffer
	after := &testJob{name: "after"}
	service, err := NewService(ServiceParams{
		Logger: newTestLogger(&logs),
		Registry: mustRegistry(t,
			funcJob{name: "panics", run: func(context.Context) error { panic("boom") }},
			after,
		),
		Lock: &fakeLock{},
	})
	if err != nil {
		t.Fatalf("construct service: %v", err)
	}

	err = service.RunOnce(context.Background())
	if err == nil || !strings.Contains(err.Error(), "panics: job panicked: boom") {
		t.Fatalf("expected panic to surface as error, got %v", err)
	}
	if after.runs != 1 {
		t.Fatalf("expected later job to still run, ran %d", after.runs)
	}
}

func TestServiceAppliesJobTimeout(t *testing.T) {
	var logs bytes.Buffer
	service, err := NewService(ServiceParams{
		Logger: newTestLogger(&logs),
		Registry: mustRegistry(t, funcJob{name: "slow", run: func(ctx context.Context) error {
			<-ctx.Done()
			return ctx.Err()
		}}),
		Lock:       &fakeLock{},
		JobTimeout: 20 * time.Millisecond,
	})
	if err != nil {
		t.Fatalf("construct service: %v", err)
	}

	if err := service.RunOnce(context.Background()); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline exceeded, got %v", err)
	}
	if !strings.Contains(logs.String(), "cycle_id") {
		t.Fatalf("expected cycle id in logs, got %s", logs.String())
	}
}
