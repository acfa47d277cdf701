package llm

import (
	"encoding/json"
	"strings"
	"unicode/utf8"

	"github.com/joseph-ayodele/benefits-extractor/constants"
	"github.com/joseph-ayodele/benefits-extractor/internal/formats"
)

// MaxPromptTextBytes bounds the section text sent with one request.
const MaxPromptTextBytes = 12000

// BuildSystemPrompt composes the system message: the envelope contract,
// format rules and the JSON schema the answer must satisfy.
func BuildSystemPrompt(format constants.Format) string {
	parts := []string{
		"You extract a single field from one section of an insurance benefits booklet.",
		`Return ONLY a JSON object of the form {"value": ...} that matches the JSON Schema provided.`,
		`If the section does not state the field, return {"value": null}. Never guess or invent values.`,
		"Copy amounts, percentages, limits and waiting periods exactly as written.",
		formatRule(format),
	}
	return strings.Join(parts, " ") + "\n\nJSON Schema:\n" + mustJSON(formats.EnvelopeSchema(format))
}

func formatRule(format constants.Format) string {
	switch format {
	case constants.FormatStructuredObject:
		return "value must be a JSON object whose keys name the parts of the benefit."
	case constants.FormatListOfString:
		return "value must be a non-empty JSON array of strings, one item per entry."
	default:
		return "value must be a single non-empty string."
	}
}

// BuildUserPrompt packages the instruction, the examples and the section text.
// Text beyond MaxPromptTextBytes is truncated on a rune boundary.
func BuildUserPrompt(req ExtractRequest) string {
	var b strings.Builder
	if req.CategoryID != "" {
		b.WriteString("Benefit category: ")
		b.WriteString(req.CategoryID)
		b.WriteString("\n")
	}
	if req.FieldID != "" {
		b.WriteString("Field: ")
		b.WriteString(req.FieldID)
		b.WriteString("\n")
	}
	b.WriteString("Instruction: ")
	b.WriteString(strings.TrimSpace(req.Instruction))
	b.WriteString("\n")

	if len(req.Examples) > 0 {
		b.WriteString("\nExamples of valid values:\n")
		for _, ex := range req.Examples {
			b.WriteString("- ")
			b.WriteString(compactJSON(ex))
			b.WriteString("\n")
		}
	}

	text := strings.TrimSpace(req.Text)
	b.WriteString("\nSection text:\n")
	if len(text) > MaxPromptTextBytes {
		b.WriteString(truncate(text, MaxPromptTextBytes))
		b.WriteString("\n…(truncated)")
	} else {
		b.WriteString(text)
	}
	return b.String()
}

// DroppedBytes reports how much of req.Text BuildUserPrompt leaves out.
func DroppedBytes(req ExtractRequest) int {
	text := strings.TrimSpace(req.Text)
	if len(text) <= MaxPromptTextBytes {
		return 0
	}
	return len(text) - len(truncate(text, MaxPromptTextBytes))
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}

func mustJSON(v any) string {
	b, _ := json.MarshalIndent(v, "", "  ")
	return string(b)
}

func compactJSON(v any) string {
	b, err := json.Marshal(v)
	if err != nil {
		return ""
	}
	return string(b)
}
