package llm

import (
	"regexp"
	"strings"
)

var reCodeFence = regexp.MustCompile("(?s)^```[a-zA-Z]*\\s*(.*?)\\s*```$")

// StripCodeFences removes a surrounding markdown code fence, which some
// models add around JSON even in JSON mode.
func StripCodeFences(content string) string {
	s := strings.TrimSpace(content)
	if m := reCodeFence.FindStringSubmatch(s); m != nil {
		return m[1]
	}
	return s
}

// nullish reports string answers that mean "not found".
func nullish(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "null", "none", "n/a", "not found", "not stated", "not specified":
		return true
	}
	return false
}
