package constants

import (
	"strings"
)

// Format is the declared output shape of a configured field.
type Format string

const (
	FormatScalarString     Format = "scalar-string"
	FormatStructuredObject Format = "structured-object"
	FormatListOfString     Format = "list-of-string"
)

var allFormats = []Format{
	FormatScalarString,
	FormatStructuredObject,
	FormatListOfString,
}

func AllFormats() []Format {
	out := make([]Format, len(allFormats))
	copy(out, allFormats)
	return out
}

func (f Format) Valid() bool {
	for _, known := range allFormats {
		if f == known {
			return true
		}
	}
	return false
}

// ParseFormat resolves a format token from a profile file. Besides the canonical
// names it accepts the short spellings used by older profile files.
func ParseFormat(input string) (Format, bool) {
	normalized := strings.ToLower(strings.TrimSpace(input))
	if normalized == "" {
		return "", false
	}

	synonyms := map[string]Format{
		"string":          FormatScalarString,
		"str":             FormatScalarString,
		"scalar":          FormatScalarString,
		"text":            FormatScalarString,
		"object":          FormatStructuredObject,
		"dict":            FormatStructuredObject,
		"map":             FormatStructuredObject,
		"list":            FormatListOfString,
		"list[str]":       FormatListOfString,
		"list_of_strings": FormatListOfString,
		"array":           FormatListOfString,
	}
	if f, ok := synonyms[normalized]; ok {
		return f, true
	}

	for _, f := range allFormats {
		if normalized == string(f) {
			return f, true
		}
	}
	return "", false
}
