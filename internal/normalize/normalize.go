// Package normalize checks extraction candidates against their declared
// format and applies the few coercions that are safe to make.
package normalize

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/joseph-ayodele/benefits-extractor/constants"
	"github.com/joseph-ayodele/benefits-extractor/internal/formats"
)

// ErrUnrecoverable means the candidate cannot be brought into its declared
// format without inventing data.
var ErrUnrecoverable = errors.New("format unrecoverable")

// ListDelimiters split a single string answer for a list-of-string field.
const ListDelimiters = ",;"

// Value returns candidate in the canonical shape of format:
//
//	scalar-string      trimmed string; a list of strings is joined with ", "
//	structured-object  the mapping unchanged; anything else is rejected
//	list-of-string     []string of trimmed items; one delimited string is split
//
// The result is validated against the format schema before it is returned.
func Value(format constants.Format, candidate any) (any, error) {
	var (
		out any
		err error
	)
	switch format {
	case constants.FormatScalarString:
		out, err = scalar(candidate)
	case constants.FormatStructuredObject:
		out, err = object(candidate)
	case constants.FormatListOfString:
		out, err = list(candidate)
	default:
		return nil, fmt.Errorf("%w: unknown format %q", ErrUnrecoverable, format)
	}
	if err != nil {
		return nil, err
	}
	if err := formats.ValidateValue(format, out); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnrecoverable, err)
	}
	return out, nil
}

func scalar(v any) (any, error) {
	switch t := v.(type) {
	case string:
		s := strings.TrimSpace(t)
		if s == "" {
			return nil, fmt.Errorf("%w: blank string", ErrUnrecoverable)
		}
		return s, nil
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64), nil
	case int:
		return strconv.Itoa(t), nil
	case int64:
		return strconv.FormatInt(t, 10), nil
	case bool:
		return strconv.FormatBool(t), nil
	case []string, []any:
		items, err := stringItems(t)
		if err != nil {
			return nil, err
		}
		if len(items) == 0 {
			return nil, fmt.Errorf("%w: empty list for scalar", ErrUnrecoverable)
		}
		return strings.Join(items, ", "), nil
	default:
		return nil, fmt.Errorf("%w: %T is not a string", ErrUnrecoverable, v)
	}
}

func object(v any) (any, error) {
	switch t := v.(type) {
	case map[string]any:
		return t, nil
	case map[string]string:
		out := make(map[string]any, len(t))
		for k, s := range t {
			out[k] = s
		}
		return out, nil
	default:
		return nil, fmt.Errorf("%w: %T is not a mapping", ErrUnrecoverable, v)
	}
}

func list(v any) (any, error) {
	var (
		items []string
		err   error
	)
	switch t := v.(type) {
	case []string, []any:
		items, err = stringItems(t)
	case string:
		items = split(t)
	default:
		return nil, fmt.Errorf("%w: %T is not a list of strings", ErrUnrecoverable, v)
	}
	if err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return nil, fmt.Errorf("%w: empty list", ErrUnrecoverable)
	}
	return items, nil
}

// stringItems trims list elements and drops blank ones. Non-string elements
// are rejected.
func stringItems(v any) ([]string, error) {
	var raw []any
	switch t := v.(type) {
	case []string:
		raw = make([]any, len(t))
		for i, s := range t {
			raw[i] = s
		}
	case []any:
		raw = t
	}
	items := make([]string, 0, len(raw))
	for i, e := range raw {
		s, ok := e.(string)
		if !ok {
			return nil, fmt.Errorf("%w: list item %d is %T", ErrUnrecoverable, i, e)
		}
		if s = strings.TrimSpace(s); s != "" {
			items = append(items, s)
		}
	}
	return items, nil
}

func split(s string) []string {
	parts := strings.FieldsFunc(s, func(r rune) bool { return strings.ContainsRune(ListDelimiters, r) })
	items := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			items = append(items, p)
		}
	}
	return items
}
