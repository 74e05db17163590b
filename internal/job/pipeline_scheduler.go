package job

import (
	"context"
	"log"
	"time"

	"go.opentelemetry.io/otel/trace"
)

// PipelineScheduler reruns the ingestion pipeline on a fixed interval.
type PipelineScheduler struct {
	tracer   trace.Tracer
	pipeline PipelineRunner
	interval time.Duration
}

type PipelineRunner interface {
	Run(ctx context.Context) error
}

// RunnerFunc adapts a plain function to the PipelineRunner interface.
type RunnerFunc func(ctx context.Context) error

func (f RunnerFunc) Run(ctx context.Context) error { return f(ctx) }

func NewPipelineScheduler(tracer trace.Tracer, pipeline PipelineRunner, intervalSecs int) *PipelineScheduler {
	return &PipelineScheduler{
		tracer:   tracer,
		pipeline: pipeline,
		interval: time.Duration(intervalSecs) * time.Second,
	}
}

// Start runs the pipeline immediately, then on every tick. Blocks until
// ctx is cancelled.
func (s *PipelineScheduler) Start(ctx context.Context) {
	log.Println("Pipeline scheduler starting...")

	if err := s.runOnce(ctx); err != nil {
		log.Printf("pipeline initial run error: %v", err)
	}

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Println("Pipeline scheduler stopped")
			return
		case <-ticker.C:
			if err := s.runOnce(ctx); err != nil {
				log.Printf("pipeline run error: %v", err)
			}
		}
	}
}

func (s *PipelineScheduler) runOnce(ctx context.Context) error {
	ctx, span := s.tracer.Start(ctx, "pipeline-scheduler.run")
	defer span.End()

	return s.pipeline.Run(ctx)
}
