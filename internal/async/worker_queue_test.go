package async

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/benefits-extractor/internal/common"
	"github.com/joseph-ayodele/benefits-extractor/internal/entity"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func job(id string) Job {
	return Job{Document: &entity.Document{ID: id}, ProfileID: "acme", RequestID: "req-" + id}
}

func TestWorkerQueueProcessesAndDrains(t *testing.T) {
	var (
		mu   sync.Mutex
		seen []string
		reqs []string
	)
	proc := ProcessorFunc(func(ctx context.Context, j Job) error {
		mu.Lock()
		defer mu.Unlock()
		seen = append(seen, j.Document.ID)
		reqs = append(reqs, common.RequestIDFromContext(ctx))
		if j.Document.ID == "bad" {
			return errors.New("boom")
		}
		return nil
	})
	q := NewWorkerQueue(proc, quietLogger(), WithWorkers(3), WithQueueSize(10))

	for _, id := range []string{"a", "b", "bad", "c"} {
		require.NoError(t, q.Enqueue(t.Context(), job(id)))
	}
	q.Shutdown(t.Context())

	assert.ElementsMatch(t, []string{"a", "b", "bad", "c"}, seen)
	assert.ElementsMatch(t, []string{"req-a", "req-b", "req-bad", "req-c"}, reqs)
	assert.ErrorIs(t, q.Enqueue(t.Context(), job("late")), ErrQueueClosed)
	assert.ErrorIs(t, q.Enqueue(t.Context(), job("late")), common.ErrUnavailable)
	q.Shutdown(t.Context())
}

func TestWorkerQueueRejectsWhenFull(t *testing.T) {
	started := make(chan struct{}, 1)
	release := make(chan struct{})
	proc := ProcessorFunc(func(ctx context.Context, j Job) error {
		started <- struct{}{}
		<-release
		return nil
	})
	q := NewWorkerQueue(proc, quietLogger(), WithWorkers(1), WithQueueSize(1))

	require.NoError(t, q.Enqueue(t.Context(), job("running")))
	<-started
	require.NoError(t, q.Enqueue(t.Context(), job("buffered")))
	assert.ErrorIs(t, q.Enqueue(t.Context(), job("rejected")), ErrQueueFull)

	close(release)
	q.Shutdown(t.Context())
}

func TestWorkerQueueShutdownCancelsInFlight(t *testing.T) {
	var cancelled atomic.Bool
	started := make(chan struct{})
	proc := ProcessorFunc(func(ctx context.Context, j Job) error {
		close(started)
		<-ctx.Done()
		cancelled.Store(true)
		return ctx.Err()
	})
	q := NewWorkerQueue(proc, quietLogger(), WithWorkers(1), WithProcessTimeout(time.Hour))
	require.NoError(t, q.Enqueue(t.Context(), job("slow")))
	<-started

	ctx, cancel := context.WithTimeout(t.Context(), 20*time.Millisecond)
	defer cancel()
	q.Shutdown(ctx)
	assert.True(t, cancelled.Load())
}

func TestWorkerQueueRejectsJobWithoutDocument(t *testing.T) {
	q := NewWorkerQueue(ProcessorFunc(func(context.Context, Job) error { return nil }), nil)
	defer q.Shutdown(t.Context())
	assert.ErrorIs(t, q.Enqueue(t.Context(), Job{}), common.ErrInvalidInput)
}
