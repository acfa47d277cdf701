package profiles

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/joseph-ayodele/benefits-extractor/constants"
	"github.com/joseph-ayodele/benefits-extractor/internal/common"
	"github.com/joseph-ayodele/benefits-extractor/internal/formats"
)

// Header precedence policies accepted in a profile file.
const (
	PrecedenceStrict           = "strict"
	PrecedenceDeclarationOrder = "declaration-order"
)

// ConfigError reports every problem found in one profile source.
type ConfigError struct {
	Profile  string
	Source   string
	Problems []common.ValidationError
	Cause    error
}

func (e *ConfigError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "profile %q", e.Profile)
	if e.Source != "" {
		fmt.Fprintf(&b, " (%s)", e.Source)
	}
	if e.Cause != nil {
		fmt.Fprintf(&b, ": %v", e.Cause)
	}
	for i, p := range e.Problems {
		if i == 0 {
			b.WriteString(": ")
		} else {
			b.WriteString("; ")
		}
		fmt.Fprintf(&b, "%s: %s", p.Field, p.Message)
	}
	return b.String()
}

func (e *ConfigError) Unwrap() error {
	return common.ErrConfig
}

type rawProfile struct {
	Company           string            `yaml:"company"`
	HeaderPrecedence  string            `yaml:"header_precedence"`
	DocumentStructure rawStructure      `yaml:"document_structure"`
	BenefitHeaders    orderedCategories `yaml:"benefit_headers"`
}

type rawStructure struct {
	StartMarkers []string `yaml:"start_markers"`
	EndMarkers   []string `yaml:"end_markers"`
	TOCMarkers   []string `yaml:"toc_markers"`
	TOCLookahead int      `yaml:"toc_lookahead"`
}

type rawCategory struct {
	Headers []string      `yaml:"headers"`
	Fields  orderedFields `yaml:"fields"`
}

type rawField struct {
	Prompt   string `yaml:"prompt"`
	Format   string `yaml:"format"`
	Examples []any  `yaml:"examples"`
}

type namedCategory struct {
	ID string
	rawCategory
}

type namedField struct {
	ID string
	rawField
}

// orderedCategories keeps benefit_headers in file order; a plain map would not.
type orderedCategories []namedCategory

func (o *orderedCategories) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.MappingNode {
		return fmt.Errorf("line %d: benefit_headers must be a mapping", node.Line)
	}
	seen := make(map[string]struct{}, len(node.Content)/2)
	for i := 0; i+1 < len(node.Content); i += 2 {
		key, val := node.Content[i], node.Content[i+1]
		if _, dup := seen[key.Value]; dup {
			return fmt.Errorf("line %d: duplicate category %q", key.Line, key.Value)
		}
		seen[key.Value] = struct{}{}
		var c rawCategory
		if err := val.Decode(&c); err != nil {
			return fmt.Errorf("category %q: %w", key.Value, err)
		}
		*o = append(*o, namedCategory{ID: key.Value, rawCategory: c})
	}
	return nil
}

type orderedFields []namedField

func (o *orderedFields) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.MappingNode {
		return fmt.Errorf("line %d: fields must be a mapping", node.Line)
	}
	seen := make(map[string]struct{}, len(node.Content)/2)
	for i := 0; i+1 < len(node.Content); i += 2 {
		key, val := node.Content[i], node.Content[i+1]
		if _, dup := seen[key.Value]; dup {
			return fmt.Errorf("line %d: duplicate field %q", key.Line, key.Value)
		}
		seen[key.Value] = struct{}{}
		var f rawField
		if err := val.Decode(&f); err != nil {
			return fmt.Errorf("field %q: %w", key.Value, err)
		}
		*o = append(*o, namedField{ID: key.Value, rawField: f})
	}
	return nil
}

// LoadFile loads one profile file (.yaml, .yml or .json). The profile id is the
// file's "company" key, or the file name without extension.
func LoadFile(path string) (*CompanyProfile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read profile: %w", err)
	}
	base := filepath.Base(path)
	id := strings.TrimSuffix(base, filepath.Ext(base))
	if strings.EqualFold(filepath.Ext(path), ".json") {
		// JSON forbids raw tabs inside strings, so they can only be indentation,
		// which YAML rejects.
		data = bytes.ReplaceAll(data, []byte("\t"), []byte("  "))
	}
	p, err := load(id, path, data)
	if err != nil {
		return nil, err
	}
	return p, nil
}

// Load decodes and validates a profile source. defaultID is used when the
// source carries no "company" key.
func Load(defaultID string, data []byte) (*CompanyProfile, error) {
	return load(defaultID, "", data)
}

func load(defaultID, source string, data []byte) (*CompanyProfile, error) {
	var raw rawProfile
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, &ConfigError{Profile: defaultID, Source: source, Cause: err}
	}
	id := strings.TrimSpace(raw.Company)
	if id == "" {
		id = defaultID
	}
	p, problems := build(id, raw)
	if len(problems) > 0 {
		return nil, &ConfigError{Profile: id, Source: source, Problems: problems}
	}
	return p, nil
}

func build(id string, raw rawProfile) (*CompanyProfile, []common.ValidationError) {
	v := common.NewValidator()
	v.Field("company", id, common.Required)

	p := &CompanyProfile{
		ID: id,
		Structure: DocumentStructure{
			StartMarkers: raw.DocumentStructure.StartMarkers,
			EndMarkers:   raw.DocumentStructure.EndMarkers,
			TOCMarkers:   raw.DocumentStructure.TOCMarkers,
			TOCLookahead: raw.DocumentStructure.TOCLookahead,
		},
	}

	switch strings.ToLower(strings.TrimSpace(raw.HeaderPrecedence)) {
	case "", PrecedenceStrict:
	case PrecedenceDeclarationOrder:
		p.AllowHeaderOverlap = true
	default:
		v.Fail("header_precedence", raw.HeaderPrecedence, "must be strict or declaration-order")
	}

	checkMarkers(v, "document_structure.start_markers", p.Structure.StartMarkers)
	checkMarkers(v, "document_structure.end_markers", p.Structure.EndMarkers)
	checkMarkers(v, "document_structure.toc_markers", p.Structure.TOCMarkers)
	if p.Structure.TOCLookahead < 0 {
		v.Fail("document_structure.toc_lookahead", p.Structure.TOCLookahead, "must not be negative")
	}

	v.Field("benefit_headers", []namedCategory(raw.BenefitHeaders), common.NotEmpty)

	owner := make(map[string]string) // normalized alias -> category id
	for _, rc := range raw.BenefitHeaders {
		path := "benefit_headers." + rc.ID
		cat := BenefitCategory{ID: rc.ID}

		v.Field(path+".headers", rc.Headers, common.NotEmpty)
		seenAlias := make(map[string]struct{}, len(rc.Headers))
		for _, h := range rc.Headers {
			norm := NormalizeHeader(h)
			if norm == "" {
				v.Fail(path+".headers", h, "header alias must not be blank")
				continue
			}
			if _, dup := seenAlias[norm]; dup {
				continue
			}
			seenAlias[norm] = struct{}{}
			if prev, taken := owner[norm]; taken && !p.AllowHeaderOverlap {
				v.Fail(path+".headers", h, fmt.Sprintf("alias already declared by category %q", prev))
			} else if !taken {
				owner[norm] = rc.ID
			}
			cat.Headers = append(cat.Headers, h)
		}

		v.Field(path+".fields", []namedField(rc.Fields), common.NotEmpty)
		for _, rf := range rc.Fields {
			cat.Fields = append(cat.Fields, buildField(v, path+".fields."+rf.ID, rf))
		}
		p.Categories = append(p.Categories, cat)
	}

	if v.HasErrors() {
		return nil, v.Errors()
	}
	p.buildIndex()
	return p, nil
}

func buildField(v *common.Validator, path string, rf namedField) FieldSpec {
	f := FieldSpec{ID: rf.ID, Prompt: strings.TrimSpace(rf.Prompt), Examples: rf.Examples}
	v.Field(path+".prompt", f.Prompt, common.Required)

	format, ok := constants.ParseFormat(rf.Format)
	if !ok {
		v.Fail(path+".format", rf.Format, "must be one of scalar-string, structured-object, list-of-string")
		return f
	}
	f.Format = format

	v.Field(path+".examples", rf.Examples, common.NotEmpty)
	for i, ex := range rf.Examples {
		if err := formats.ValidateValue(format, ex); err != nil {
			v.Fail(fmt.Sprintf("%s.examples[%d]", path, i), ex, fmt.Sprintf("example does not satisfy %s", format))
		}
	}
	return f
}

func checkMarkers(v *common.Validator, path string, markers []string) {
	for i, m := range markers {
		if strings.TrimSpace(m) == "" {
			v.Fail(fmt.Sprintf("%s[%d]", path, i), m, "marker must not be blank")
		}
	}
}
