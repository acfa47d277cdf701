// Package formats holds the JSON-schema oracle for the three declared field formats.
// Profile examples are checked against it at load time and normalized extraction
// output is checked against it before it is reported as present.
package formats

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/joseph-ayodele/benefits-extractor/constants"
)

// Schema returns the JSON-Schema (draft 2020-12 subset) for a declared format as a
// generic map. The same map is handed to the capability as output-shape guidance.
func Schema(format constants.Format) map[string]any {
	switch format {
	case constants.FormatScalarString:
		return map[string]any{
			"type":      "string",
			"minLength": 1,
			"pattern":   `\S`,
		}
	case constants.FormatStructuredObject:
		return map[string]any{
			"type": "object",
		}
	case constants.FormatListOfString:
		return map[string]any{
			"type":     "array",
			"minItems": 1,
			"items": map[string]any{
				"type":      "string",
				"minLength": 1,
			},
		}
	default:
		return nil
	}
}

// EnvelopeSchema wraps a format schema in the {"value": ...} object the
// capability is asked to return. value may be null when nothing was found.
func EnvelopeSchema(format constants.Format) map[string]any {
	inner := Schema(format)
	return map[string]any{
		"type":                 "object",
		"additionalProperties": false,
		"properties": map[string]any{
			"value": map[string]any{
				"anyOf": []any{inner, map[string]any{"type": "null"}},
			},
		},
		"required": []string{"value"},
	}
}

var (
	compileMu sync.Mutex
	compiled  = map[string]*jsonschema.Schema{}
)

func compiledSchema(format constants.Format, envelope bool) (*jsonschema.Schema, error) {
	key := string(format)
	if envelope {
		key += ".envelope"
	}
	compileMu.Lock()
	defer compileMu.Unlock()
	if s, ok := compiled[key]; ok {
		return s, nil
	}
	if Schema(format) == nil {
		return nil, fmt.Errorf("unknown format %q", format)
	}
	schemaMap := Schema(format)
	if envelope {
		schemaMap = EnvelopeSchema(format)
	}
	b, err := json.Marshal(schemaMap)
	if err != nil {
		return nil, fmt.Errorf("marshal schema: %w", err)
	}
	compiler := jsonschema.NewCompiler()
	url := key + ".json"
	if err := compiler.AddResource(url, bytes.NewReader(b)); err != nil {
		return nil, fmt.Errorf("add schema: %w", err)
	}
	s, err := compiler.Compile(url)
	if err != nil {
		return nil, fmt.Errorf("compile schema: %w", err)
	}
	compiled[key] = s
	return s, nil
}

func validate(format constants.Format, envelope bool, data []byte) error {
	s, err := compiledSchema(format, envelope)
	if err != nil {
		return err
	}
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return fmt.Errorf("unmarshal data: %w", err)
	}
	if err := s.Validate(v); err != nil {
		return fmt.Errorf("value does not match %s: %w", format, err)
	}
	return nil
}

// ValidateEnvelope validates a raw capability response against the
// {"value": ...} envelope of format.
func ValidateEnvelope(format constants.Format, data []byte) error {
	return validate(format, true, data)
}

// Validate validates raw JSON data against the schema of format.
func Validate(format constants.Format, data []byte) error {
	return validate(format, false, data)
}

// ValidateValue validates an in-memory value (string, []string, map, decoded JSON)
// against the schema of format.
func ValidateValue(format constants.Format, v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal value: %w", err)
	}
	return Validate(format, b)
}

// Conforms reports whether v satisfies format without any coercion.
func Conforms(format constants.Format, v any) bool {
	return ValidateValue(format, v) == nil
}
