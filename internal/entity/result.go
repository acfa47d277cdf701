package entity

import (
	"slices"

	"github.com/joseph-ayodele/benefits-extractor/constants"
)

// Span is a half-open byte range [Start, End) of the source document.
type Span struct {
	Start int `json:"start"`
	End   int `json:"end"`
}

// Result is the outcome of one extraction run. Categories and their fields
// follow profile declaration order. A Result is not modified once assembled.
type Result struct {
	ProfileID      string           `json:"profile_id"`
	DocumentID     string           `json:"document_id"`
	Region         Region           `json:"region"`
	Categories     []CategoryResult `json:"categories"`
	MissingHeaders []string         `json:"missing_headers"`
}

// Region describes the operative region the run was bounded to.
type Region struct {
	Start       int    `json:"start"`
	End         int    `json:"end"`
	StartMarker string `json:"start_marker,omitempty"`
	EndMarker   string `json:"end_marker,omitempty"`
	Excluded    []Span `json:"excluded,omitempty"`
}

// CategoryResult holds the fields of one benefit category.
type CategoryResult struct {
	ID          string       `json:"id"`
	HeaderFound bool         `json:"header_found"`
	Header      *Span        `json:"header,omitempty"` // first accepted header occurrence
	Blocks      int          `json:"blocks,omitempty"`
	Fields      []FieldValue `json:"fields"`
}

// FieldValue is either present with a value in its declared format, or
// absent with a reason.
type FieldValue struct {
	FieldID string                 `json:"field_id"`
	Format  constants.Format       `json:"format"`
	Status  constants.FieldStatus  `json:"status"`
	Value   any                    `json:"value,omitempty"`
	Reason  constants.AbsentReason `json:"reason,omitempty"`
	Span    *Span                  `json:"span,omitempty"` // source text the value was read from
	Detail  string                 `json:"detail,omitempty"`
}

// Present builds a present field value.
func Present(fieldID string, format constants.Format, value any, span *Span) FieldValue {
	return FieldValue{FieldID: fieldID, Format: format, Status: constants.FieldPresent, Value: value, Span: span}
}

// Absent builds an absent field value.
func Absent(fieldID string, format constants.Format, reason constants.AbsentReason, detail string) FieldValue {
	return FieldValue{FieldID: fieldID, Format: format, Status: constants.FieldAbsent, Reason: reason, Detail: detail}
}

// IsPresent reports whether the field carries a value.
func (f FieldValue) IsPresent() bool { return f.Status == constants.FieldPresent }

// FieldRef names one field of one category.
type FieldRef struct {
	CategoryID string                 `json:"category_id"`
	FieldID    string                 `json:"field_id"`
	Reason     constants.AbsentReason `json:"reason"`
}

// Category returns the category result with id.
func (r *Result) Category(id string) (*CategoryResult, bool) {
	for i := range r.Categories {
		if r.Categories[i].ID == id {
			return &r.Categories[i], true
		}
	}
	return nil, false
}

// Field returns categoryID.fieldID.
func (r *Result) Field(categoryID, fieldID string) (*FieldValue, bool) {
	c, ok := r.Category(categoryID)
	if !ok {
		return nil, false
	}
	for i := range c.Fields {
		if c.Fields[i].FieldID == fieldID {
			return &c.Fields[i], true
		}
	}
	return nil, false
}

// MissingFields lists every absent field in declaration order.
func (r *Result) MissingFields() []FieldRef {
	var out []FieldRef
	for _, c := range r.Categories {
		for _, f := range c.Fields {
			if !f.IsPresent() {
				out = append(out, FieldRef{CategoryID: c.ID, FieldID: f.FieldID, Reason: f.Reason})
			}
		}
	}
	return out
}

// Counts returns the number of present and absent fields.
func (r *Result) Counts() (present, absent int) {
	for _, c := range r.Categories {
		for _, f := range c.Fields {
			if f.IsPresent() {
				present++
			} else {
				absent++
			}
		}
	}
	return present, absent
}

// Clone copies the result structure. Field values are shared; they are
// never mutated after assembly.
func (r *Result) Clone() *Result {
	out := *r
	// slices.Clone keeps an empty manifest non-nil, so it still encodes as [].
	out.Region.Excluded = slices.Clone(r.Region.Excluded)
	out.MissingHeaders = slices.Clone(r.MissingHeaders)
	out.Categories = make([]CategoryResult, len(r.Categories))
	for i, c := range r.Categories {
		c.Fields = slices.Clone(c.Fields)
		out.Categories[i] = c
	}
	return &out
}
