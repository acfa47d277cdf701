package normalize

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/benefits-extractor/constants"
)

func TestValue(t *testing.T) {
	tests := []struct {
		name      string
		format    constants.Format
		candidate any
		want      any
		wantErr   bool
	}{
		{"scalar trims", constants.FormatScalarString, "  Flat $20,000 \n", "Flat $20,000", false},
		{"scalar blank", constants.FormatScalarString, " \t", nil, true},
		{"scalar number", constants.FormatScalarString, 119.0, "119", false},
		{"scalar joins list", constants.FormatScalarString, []any{"80%", " up to $1,500 "}, "80%, up to $1,500", false},
		{"scalar rejects map", constants.FormatScalarString, map[string]any{"a": "b"}, nil, true},
		{"object passes", constants.FormatStructuredObject, map[string]any{"max": "$1,500"}, map[string]any{"max": "$1,500"}, false},
		{"object from string map", constants.FormatStructuredObject, map[string]string{"max": "$1,500"}, map[string]any{"max": "$1,500"}, false},
		{"object rejects string", constants.FormatStructuredObject, "max $1,500", nil, true},
		{"object rejects list", constants.FormatStructuredObject, []any{"a"}, nil, true},
		{"list native", constants.FormatListOfString, []any{"Cleanings", " Fillings"}, []string{"Cleanings", "Fillings"}, false},
		{"list typed", constants.FormatListOfString, []string{"a", "", "b"}, []string{"a", "b"}, false},
		{"list splits", constants.FormatListOfString, "Chiropractor; Massage Therapist, Physiotherapist", []string{"Chiropractor", "Massage Therapist", "Physiotherapist"}, false},
		{"list only delimiters", constants.FormatListOfString, " , ; ", nil, true},
		{"list mixed types", constants.FormatListOfString, []any{"a", 2.0}, nil, true},
		{"list rejects map", constants.FormatListOfString, map[string]any{"a": "b"}, nil, true},
		{"unknown format", constants.Format("table"), "x", nil, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Value(tt.format, tt.candidate)
			if tt.wantErr {
				require.Error(t, err)
				assert.ErrorIs(t, err, ErrUnrecoverable)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
