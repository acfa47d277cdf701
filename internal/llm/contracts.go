// Package llm defines the extraction capability the pipeline depends on and
// the shared plumbing its HTTP-backed implementations use.
package llm

import (
	"context"

	"github.com/joseph-ayodele/benefits-extractor/constants"
)

// ExtractRequest is one field extraction: the category block text plus the
// field's instruction and output-shape guidance.
type ExtractRequest struct {
	CategoryID  string
	FieldID     string
	Text        string
	Instruction string
	Format      constants.Format
	Examples    []any
}

// Capability turns a request into a raw candidate value. A nil candidate
// means nothing was found. Implementations need not be deterministic.
type Capability interface {
	Extract(ctx context.Context, req ExtractRequest) (any, error)
}

// CapabilityFunc adapts a function to Capability.
type CapabilityFunc func(ctx context.Context, req ExtractRequest) (any, error)

func (f CapabilityFunc) Extract(ctx context.Context, req ExtractRequest) (any, error) {
	return f(ctx, req)
}
