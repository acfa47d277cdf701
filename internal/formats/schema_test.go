package formats

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/benefits-extractor/constants"
)

func TestConforms(t *testing.T) {
	tests := []struct {
		name   string
		format constants.Format
		value  any
		want   bool
	}{
		{"scalar ok", constants.FormatScalarString, "Flat $20,000", true},
		{"scalar blank", constants.FormatScalarString, "   ", false},
		{"scalar empty", constants.FormatScalarString, "", false},
		{"scalar list", constants.FormatScalarString, []string{"a"}, false},
		{"object ok", constants.FormatStructuredObject, map[string]any{"max": "$1,500"}, true},
		{"object string", constants.FormatStructuredObject, "max $1,500", false},
		{"list ok", constants.FormatListOfString, []string{"cleanings", "x-rays"}, true},
		{"list any ok", constants.FormatListOfString, []any{"a", "b"}, true},
		{"list empty", constants.FormatListOfString, []string{}, false},
		{"list mixed", constants.FormatListOfString, []any{"a", 3}, false},
		{"list string", constants.FormatListOfString, "a, b", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Conforms(tt.format, tt.value))
		})
	}
}

func TestValidateUnknownFormat(t *testing.T) {
	err := ValidateValue(constants.Format("table"), "x")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown format")
}

func TestEnvelopeSchemaAllowsNull(t *testing.T) {
	env := EnvelopeSchema(constants.FormatListOfString)
	props := env["properties"].(map[string]any)
	value := props["value"].(map[string]any)
	assert.Len(t, value["anyOf"], 2)
	assert.Equal(t, []string{"value"}, env["required"])
}

func TestValidateEnvelope(t *testing.T) {
	assert.NoError(t, ValidateEnvelope(constants.FormatScalarString, []byte(`{"value":"Flat $20,000"}`)))
	assert.NoError(t, ValidateEnvelope(constants.FormatScalarString, []byte(`{"value":null}`)))
	assert.Error(t, ValidateEnvelope(constants.FormatScalarString, []byte(`{"value":["a"]}`)))
	assert.Error(t, ValidateEnvelope(constants.FormatListOfString, []byte(`{"items":["a"]}`)))
	assert.Error(t, ValidateEnvelope(constants.FormatStructuredObject, []byte(`{"value":{},"extra":1}`)))
}
