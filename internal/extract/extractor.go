// Package extract runs single field extractions against the injected
// capability with bounded retry.
package extract

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"reflect"
	"strings"
	"time"

	"github.com/joseph-ayodele/benefits-extractor/internal/llm"
)

const (
	DefaultMaxRetries   = 2
	DefaultRetryBackoff = 500 * time.Millisecond
)

// Extractor calls the capability for one field at a time. Transient errors
// are retried with exponential backoff; empty answers are not retried.
type Extractor struct {
	capability llm.Capability
	maxRetries int
	backoff    time.Duration
	logger     *slog.Logger
}

// Option configures an Extractor.
type Option func(*Extractor)

// WithRetries sets the retry count after the first attempt and the base
// backoff, which doubles per retry.
func WithRetries(n int, backoff time.Duration) Option {
	return func(e *Extractor) {
		if n >= 0 {
			e.maxRetries = n
		}
		if backoff >= 0 {
			e.backoff = backoff
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(e *Extractor) {
		if l != nil {
			e.logger = l
		}
	}
}

func New(c llm.Capability, opts ...Option) *Extractor {
	e := &Extractor{
		capability: c,
		maxRetries: DefaultMaxRetries,
		backoff:    DefaultRetryBackoff,
		logger:     slog.Default(),
	}
	for _, o := range opts {
		o(e)
	}
	return e
}

// Extract runs req. A capability failure that survives the retries becomes an
// empty Outcome with Err set, except llm.ErrUnavailable and context
// cancellation, which are returned as errors and end the run.
func (e *Extractor) Extract(ctx context.Context, req llm.ExtractRequest) (Outcome, error) {
	var lastErr error
	attempts := 0
	for attempt := 0; attempt <= e.maxRetries; attempt++ {
		if attempt > 0 {
			wait := e.backoff * time.Duration(1<<(attempt-1))
			select {
			case <-time.After(wait):
			case <-ctx.Done():
				return Outcome{Attempts: attempts}, ctx.Err()
			}
		}
		attempts++

		v, err := e.capability.Extract(ctx, req)
		if err == nil {
			if IsEmpty(v) {
				return Outcome{Empty: true, Attempts: attempts}, nil
			}
			return Outcome{Value: v, Attempts: attempts}, nil
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return Outcome{Attempts: attempts}, ctxErr
		}

		lastErr = err
		if !llm.IsRetryable(err) {
			break
		}
		e.logger.Warn("extract.field.retry",
			"category_id", req.CategoryID,
			"field_id", req.FieldID,
			"attempt", attempts,
			"err", err,
		)
	}

	if errors.Is(lastErr, llm.ErrUnavailable) {
		return Outcome{Attempts: attempts, Err: lastErr},
			fmt.Errorf("extract %s.%s: %w", req.CategoryID, req.FieldID, lastErr)
	}
	e.logger.Error("extract.field.failed",
		"category_id", req.CategoryID,
		"field_id", req.FieldID,
		"attempts", attempts,
		"err", lastErr,
	)
	return Outcome{Empty: true, Attempts: attempts, Err: lastErr}, nil
}

// IsEmpty reports semantically empty answers: nil, a whitespace-only string,
// or a list or mapping with nothing in it. A list of only blank strings is
// empty too.
func IsEmpty(v any) bool {
	switch t := v.(type) {
	case nil:
		return true
	case string:
		return strings.TrimSpace(t) == ""
	case []any:
		for _, e := range t {
			if !IsEmpty(e) {
				return false
			}
		}
		return true
	case []string:
		for _, s := range t {
			if strings.TrimSpace(s) != "" {
				return false
			}
		}
		return true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Map, reflect.Slice, reflect.Array:
		return rv.Len() == 0
	case reflect.Pointer, reflect.Interface:
		return rv.IsNil()
	}
	return false
}
