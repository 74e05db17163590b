package job

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"go.opentelemetry.io/otel/trace"
)

type stubPipeline struct {
	mu    sync.Mutex
	calls int
	err   error
}

func (s *stubPipeline) Run(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	return s.err
}

func (s *stubPipeline) runs() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

func TestNewPipelineSchedulerInterval(t *testing.T) {
	tracer := trace.NewNoopTracerProvider().Tracer("test")
	scheduler := NewPipelineScheduler(tracer, &stubPipeline{}, 300)
	if scheduler.interval != 300*time.Second {
		t.Fatalf("expected 300s interval, got %v", scheduler.interval)
	}
}

func TestPipelineSchedulerRunsImmediately(t *testing.T) {
	t.Parallel()

	tracer := trace.NewNoopTracerProvider().Tracer("test")
	stub := &stubPipeline{}
	scheduler := NewPipelineScheduler(tracer, stub, 3600)

	ctx, cancel := context.WithCancel(context.Background())
	go scheduler.Start(ctx)

	eventually(t, func() bool { return stub.runs() > 0 })
	cancel()
}

func TestPipelineSchedulerSurvivesRunErrors(t *testing.T) {
	t.Parallel()

	tracer := trace.NewNoopTracerProvider().Tracer("test")
	stub := &stubPipeline{err: errors.New("source down")}
	scheduler := NewPipelineScheduler(tracer, stub, 1)

	ctx, cancel := context.WithCancel(context.Background())
	go scheduler.Start(ctx)

	eventually(t, func() bool { return stub.runs() >= 2 })
	cancel()
}

func TestRunnerFunc(t *testing.T) {
	called := false
	fn := RunnerFunc(func(ctx context.Context) error {
		called = true
		return nil
	})
	if err := fn.Run(context.Background()); err != nil || !called {
		t.Fatalf("adapter did not invoke the function: err=%v called=%v", err, called)
	}
}

func eventually(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met")
}
