package llm

import (
	"context"
	"fmt"

	"golang.org/x/time/rate"
)

type limited struct {
	next    Capability
	limiter *rate.Limiter
}

// WithRateLimit makes every call wait on limiter before reaching next.
func WithRateLimit(next Capability, limiter *rate.Limiter) Capability {
	if limiter == nil {
		return next
	}
	return &limited{next: next, limiter: limiter}
}

func (l *limited) Extract(ctx context.Context, req ExtractRequest) (any, error) {
	if err := l.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limiter error: %w", err)
	}
	return l.next.Extract(ctx, req)
}
