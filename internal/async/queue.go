package async

import (
	"context"
	"time"

	"github.com/joseph-ayodele/benefits-extractor/internal/entity"
)

// Job is one background extraction run.
type Job struct {
	Document    *entity.Document
	ProfileID   string
	Refill      bool
	SubmittedAt time.Time
	RequestID   string
}

// Processor runs a job; the queue only logs and counts its error.
type Processor interface {
	Process(ctx context.Context, job Job) error
}

// ProcessorFunc adapts a function to Processor.
type ProcessorFunc func(ctx context.Context, job Job) error

func (f ProcessorFunc) Process(ctx context.Context, job Job) error { return f(ctx, job) }

type Queue interface {
	Enqueue(ctx context.Context, job Job) error
	Shutdown(ctx context.Context)
}
