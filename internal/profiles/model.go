// Package profiles loads company extraction profiles: the document structure
// markers and the ordered benefit categories with their field specs.
//
// A profile is built once by Load and never mutated afterwards; the Registry
// holding them is read concurrently without locking.
package profiles

import (
	"strings"

	"github.com/joseph-ayodele/benefits-extractor/constants"
)

// CompanyProfile is the extraction profile of one insurer/company.
type CompanyProfile struct {
	ID         string
	Structure  DocumentStructure
	Categories []BenefitCategory // declaration order

	// AllowHeaderOverlap lets aliases repeat across categories; the first
	// declared category wins on a tie.
	AllowHeaderOverlap bool

	categoryIdx map[string]int
}

// DocumentStructure delimits the operative region of a document. All markers
// are matched case-insensitively with whitespace runs collapsed.
type DocumentStructure struct {
	StartMarkers []string
	EndMarkers   []string
	TOCMarkers   []string
	TOCLookahead int // bytes; 0 means the engine default
}

// BenefitCategory is one class of coverage with its header aliases and fields.
type BenefitCategory struct {
	ID      string
	Headers []string
	Fields  []FieldSpec // declaration order

	fieldIdx map[string]int
}

// FieldSpec is a single extractable datum.
type FieldSpec struct {
	ID       string
	Prompt   string
	Format   constants.Format
	Examples []any
}

// Category returns the category with id.
func (p *CompanyProfile) Category(id string) (*BenefitCategory, bool) {
	i, ok := p.categoryIdx[id]
	if !ok {
		return nil, false
	}
	return &p.Categories[i], true
}

// Field returns the field spec categoryID.fieldID.
func (p *CompanyProfile) Field(categoryID, fieldID string) (*FieldSpec, bool) {
	c, ok := p.Category(categoryID)
	if !ok {
		return nil, false
	}
	return c.Field(fieldID)
}

// FieldCount is the number of configured fields across all categories.
func (p *CompanyProfile) FieldCount() int {
	n := 0
	for _, c := range p.Categories {
		n += len(c.Fields)
	}
	return n
}

// Field returns the field spec with id.
func (c *BenefitCategory) Field(id string) (*FieldSpec, bool) {
	i, ok := c.fieldIdx[id]
	if !ok {
		return nil, false
	}
	return &c.Fields[i], true
}

// NormalizeHeader lowercases s and collapses whitespace runs into one space.
// Header aliases and markers are compared in this form.
func NormalizeHeader(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), " ")
}

func (p *CompanyProfile) buildIndex() {
	p.categoryIdx = make(map[string]int, len(p.Categories))
	for i := range p.Categories {
		c := &p.Categories[i]
		p.categoryIdx[c.ID] = i
		c.fieldIdx = make(map[string]int, len(c.Fields))
		for j, f := range c.Fields {
			c.fieldIdx[f.ID] = j
		}
	}
}
