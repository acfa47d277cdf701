package extract

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/benefits-extractor/internal/llm"
)

type scripted struct {
	answers []any
	errs    []error
	calls   int
}

func (s *scripted) Extract(ctx context.Context, req llm.ExtractRequest) (any, error) {
	i := s.calls
	s.calls++
	var err error
	if i < len(s.errs) {
		err = s.errs[i]
	}
	if err != nil {
		return nil, err
	}
	if i < len(s.answers) {
		return s.answers[i], nil
	}
	return nil, nil
}

func newExtractor(c llm.Capability, retries int) *Extractor {
	return New(c, WithRetries(retries, time.Millisecond), WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))))
}

func TestExtract_Present(t *testing.T) {
	c := &scripted{answers: []any{"Flat $20,000"}}
	out, err := newExtractor(c, 2).Extract(t.Context(), llm.ExtractRequest{})
	require.NoError(t, err)
	assert.Equal(t, "Flat $20,000", out.Value)
	assert.False(t, out.Empty)
	assert.Equal(t, 1, out.Attempts)
}

func TestExtract_EmptyIsNotRetried(t *testing.T) {
	c := &scripted{answers: []any{"   "}}
	out, err := newExtractor(c, 2).Extract(t.Context(), llm.ExtractRequest{})
	require.NoError(t, err)
	assert.True(t, out.Empty)
	assert.Equal(t, 1, c.calls)
}

func TestExtract_RetriesTransientThenSucceeds(t *testing.T) {
	transient := llm.Retryable(errors.New("429"))
	c := &scripted{errs: []error{transient, transient}, answers: []any{nil, nil, "ok"}}
	out, err := newExtractor(c, 2).Extract(t.Context(), llm.ExtractRequest{})
	require.NoError(t, err)
	assert.Equal(t, "ok", out.Value)
	assert.Equal(t, 3, out.Attempts)
}

func TestExtract_RetriesExhaustedIsEmpty(t *testing.T) {
	transient := llm.Retryable(errors.New("502"))
	c := &scripted{errs: []error{transient, transient, transient, transient}}
	out, err := newExtractor(c, 2).Extract(t.Context(), llm.ExtractRequest{})
	require.NoError(t, err)
	assert.True(t, out.Empty)
	assert.Equal(t, 3, c.calls)
	assert.ErrorIs(t, out.Err, transient)
}

func TestExtract_PermanentErrorNotRetried(t *testing.T) {
	c := &scripted{errs: []error{errors.New("bad request")}}
	out, err := newExtractor(c, 2).Extract(t.Context(), llm.ExtractRequest{})
	require.NoError(t, err)
	assert.True(t, out.Empty)
	assert.Equal(t, 1, c.calls)
}

func TestExtract_UnavailableEndsRun(t *testing.T) {
	down := llm.Unavailable(errors.New("connection refused"))
	c := &scripted{errs: []error{down, down, down}}
	_, err := newExtractor(c, 2).Extract(t.Context(), llm.ExtractRequest{CategoryID: "life", FieldID: "schedule"})
	require.Error(t, err)
	assert.ErrorIs(t, err, llm.ErrUnavailable)
	assert.Equal(t, 3, c.calls)
}

func TestExtract_CanceledDuringBackoff(t *testing.T) {
	ctx, cancel := context.WithCancel(t.Context())
	c := llm.CapabilityFunc(func(context.Context, llm.ExtractRequest) (any, error) {
		cancel()
		return nil, llm.Retryable(errors.New("503"))
	})
	e := New(c, WithRetries(3, time.Hour))
	_, err := e.Extract(ctx, llm.ExtractRequest{})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestIsEmpty(t *testing.T) {
	assert.True(t, IsEmpty(nil))
	assert.True(t, IsEmpty(" \n"))
	assert.True(t, IsEmpty([]any{}))
	assert.True(t, IsEmpty([]any{" ", ""}))
	assert.True(t, IsEmpty([]string{""}))
	assert.True(t, IsEmpty(map[string]any{}))
	assert.False(t, IsEmpty("x"))
	assert.False(t, IsEmpty([]any{"x"}))
	assert.False(t, IsEmpty(map[string]any{"a": nil}))
	assert.False(t, IsEmpty(0.0))
}
