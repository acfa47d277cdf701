package llm

import (
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/joseph-ayodele/benefits-extractor/constants"
	"github.com/joseph-ayodele/benefits-extractor/internal/formats"
)

// DecodeEnvelope turns a model answer into a candidate value.
//
// A strict {"value": ...} answer is validated against the envelope schema
// first. Answers that fail it are unwrapped leniently: a bare JSON value, an
// object answered directly for an object field, or a single-key object named
// after the field. The candidate is still subject to format normalization.
func DecodeEnvelope(content string, format constants.Format, logger *slog.Logger) (any, error) {
	if logger == nil {
		logger = slog.Default()
	}
	raw := StripCodeFences(content)

	var v any
	if err := json.Unmarshal([]byte(raw), &v); err != nil {
		if format == constants.FormatScalarString {
			// plain text answer to a string field
			if nullish(raw) {
				return nil, nil
			}
			logger.Warn("llm.decode.lenient_plain_text", "format", format, "bytes", len(raw))
			return raw, nil
		}
		return nil, fmt.Errorf("decode model answer: %w", err)
	}

	if err := formats.ValidateEnvelope(format, []byte(raw)); err == nil {
		return v.(map[string]any)["value"], nil
	}

	out := unwrap(v, format)
	if s, ok := out.(string); ok && nullish(s) {
		out = nil
	}
	logger.Warn("llm.decode.lenient_envelope", "format", format)
	return out, nil
}

func unwrap(v any, format constants.Format) any {
	m, ok := v.(map[string]any)
	if !ok {
		return v
	}
	if inner, ok := m["value"]; ok {
		return inner
	}
	if format == constants.FormatStructuredObject {
		return m
	}
	if len(m) == 1 {
		for _, inner := range m {
			return inner
		}
	}
	return m
}
