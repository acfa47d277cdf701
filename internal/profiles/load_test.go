package profiles

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/benefits-extractor/constants"
	"github.com/joseph-ayodele/benefits-extractor/internal/common"
)

const validProfile = `
company: acme
document_structure:
  start_markers: [Benefit Summary]
  end_markers: [General Provisions]
  toc_markers: [Table of Contents]
benefit_headers:
  life_insurance:
    headers: [LIFE INSURANCE]
    fields:
      schedule:
        prompt: Extract the life insurance schedule.
        format: scalar-string
        examples: ["Flat $20,000"]
      beneficiaries:
        prompt: List the eligible beneficiaries.
        format: list-of-string
        examples:
          - [Spouse, Children]
  dental_care:
    headers: [DENTAL CARE, Dental]
    fields:
      basic_and_preventative:
        prompt: Extract basic and preventative coverage.
        format: structured-object
        examples:
          - {coinsurance: 80%, maximum: "$1,500"}
`

func TestLoad_KeepsDeclarationOrder(t *testing.T) {
	p, err := Load("fallback", []byte(validProfile))
	require.NoError(t, err)

	assert.Equal(t, "acme", p.ID)
	require.Len(t, p.Categories, 2)
	assert.Equal(t, "life_insurance", p.Categories[0].ID)
	assert.Equal(t, "dental_care", p.Categories[1].ID)
	assert.Equal(t, []string{"schedule", "beneficiaries"},
		[]string{p.Categories[0].Fields[0].ID, p.Categories[0].Fields[1].ID})
	assert.Equal(t, 3, p.FieldCount())
	assert.Equal(t, []string{"Benefit Summary"}, p.Structure.StartMarkers)
	assert.False(t, p.AllowHeaderOverlap)

	f, ok := p.Field("dental_care", "basic_and_preventative")
	require.True(t, ok)
	assert.Equal(t, constants.FormatStructuredObject, f.Format)

	_, ok = p.Field("dental_care", "nope")
	assert.False(t, ok)
}

func TestLoad_DefaultsIDWhenCompanyMissing(t *testing.T) {
	src := `
benefit_headers:
  life:
    headers: [LIFE]
    fields:
      amount:
        prompt: amount
        format: string
        examples: [x]
`
	p, err := Load("fallback", []byte(src))
	require.NoError(t, err)
	assert.Equal(t, "fallback", p.ID)
	assert.Equal(t, constants.FormatScalarString, p.Categories[0].Fields[0].Format)
}

func TestLoad_ConfigErrors(t *testing.T) {
	tests := []struct {
		name      string
		src       string
		wantField string
	}{
		{
			name: "unknown format",
			src: `
benefit_headers:
  life:
    headers: [LIFE]
    fields:
      amount: {prompt: p, format: number, examples: [x]}
`,
			wantField: "benefit_headers.life.fields.amount.format",
		},
		{
			name: "example violates list format",
			src: `
benefit_headers:
  life:
    headers: [LIFE]
    fields:
      names: {prompt: p, format: list-of-string, examples: [just a string]}
`,
			wantField: "benefit_headers.life.fields.names.examples[0]",
		},
		{
			name: "empty list example",
			src: `
benefit_headers:
  life:
    headers: [LIFE]
    fields:
      names: {prompt: p, format: list-of-string, examples: [[]]}
`,
			wantField: "benefit_headers.life.fields.names.examples[0]",
		},
		{
			name: "missing examples",
			src: `
benefit_headers:
  life:
    headers: [LIFE]
    fields:
      amount: {prompt: p, format: scalar-string}
`,
			wantField: "benefit_headers.life.fields.amount.examples",
		},
		{
			name: "zero headers",
			src: `
benefit_headers:
  life:
    headers: []
    fields:
      amount: {prompt: p, format: scalar-string, examples: [x]}
`,
			wantField: "benefit_headers.life.headers",
		},
		{
			name: "zero fields",
			src: `
benefit_headers:
  life:
    headers: [LIFE]
    fields: {}
`,
			wantField: "benefit_headers.life.fields",
		},
		{
			name: "blank prompt",
			src: `
benefit_headers:
  life:
    headers: [LIFE]
    fields:
      amount: {prompt: "  ", format: scalar-string, examples: [x]}
`,
			wantField: "benefit_headers.life.fields.amount.prompt",
		},
		{
			name: "alias collision without precedence",
			src: `
benefit_headers:
  life:
    headers: [Life  Insurance]
    fields:
      amount: {prompt: p, format: scalar-string, examples: [x]}
  optional_life:
    headers: [LIFE INSURANCE]
    fields:
      amount: {prompt: p, format: scalar-string, examples: [x]}
`,
			wantField: "benefit_headers.optional_life.headers",
		},
		{
			name: "blank marker",
			src: `
document_structure:
  end_markers: [""]
benefit_headers:
  life:
    headers: [LIFE]
    fields:
      amount: {prompt: p, format: scalar-string, examples: [x]}
`,
			wantField: "document_structure.end_markers[0]",
		},
		{
			name: "no categories",
			src: `
company: empty
`,
			wantField: "benefit_headers",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load("p", []byte(tt.src))
			require.Error(t, err)
			assert.True(t, errors.Is(err, common.ErrConfig))

			var cfgErr *ConfigError
			require.True(t, errors.As(err, &cfgErr))
			fields := make([]string, 0, len(cfgErr.Problems))
			for _, p := range cfgErr.Problems {
				fields = append(fields, p.Field)
			}
			assert.Contains(t, fields, tt.wantField)
		})
	}
}

func TestLoad_DuplicateKeys(t *testing.T) {
	src := `
benefit_headers:
  life:
    headers: [LIFE]
    fields:
      amount: {prompt: p, format: scalar-string, examples: [x]}
      amount: {prompt: q, format: scalar-string, examples: [y]}
`
	_, err := Load("p", []byte(src))
	require.Error(t, err)
	assert.ErrorIs(t, err, common.ErrConfig)
}

func TestLoad_DeclarationOrderPrecedenceAllowsOverlap(t *testing.T) {
	src := `
header_precedence: declaration-order
benefit_headers:
  life:
    headers: [LIFE INSURANCE]
    fields:
      amount: {prompt: p, format: scalar-string, examples: [x]}
  optional_life:
    headers: [life insurance]
    fields:
      amount: {prompt: p, format: scalar-string, examples: [x]}
`
	p, err := Load("p", []byte(src))
	require.NoError(t, err)
	assert.True(t, p.AllowHeaderOverlap)
}

func TestLoadFile_JSONWithTabs(t *testing.T) {
	src := "{\n\t\"company\": \"tabbed\",\n\t\"benefit_headers\": {\n\t\t\"life\": {\n\t\t\t\"headers\": [\"LIFE\"],\n" +
		"\t\t\t\"fields\": {\"amount\": {\"prompt\": \"p\", \"format\": \"scalar-string\", \"examples\": [\"x\"]}}\n\t\t}\n\t}\n}\n"
	path := filepath.Join(t.TempDir(), "tabbed.json")
	require.NoError(t, os.WriteFile(path, []byte(src), 0o600))

	p, err := LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "tabbed", p.ID)
}

func TestNormalizeHeader(t *testing.T) {
	assert.Equal(t, "life insurance", NormalizeHeader("  LIFE \n\t Insurance "))
	assert.Equal(t, "", NormalizeHeader(" \t"))
}
