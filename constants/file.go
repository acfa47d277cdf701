package constants

import "strings"

const (
	TEXT = "TEXT"
	PDF  = "PDF"
)

// AllowedExtensions holds the document extensions accepted for extraction.
var AllowedExtensions = map[string]struct{}{
	"txt":  {},
	"text": {},
	"md":   {},
	"pdf":  {},
}

// NormalizeExt lowercases and trims the dot from a file extension.
func NormalizeExt(ext string) string {
	return strings.ToLower(strings.TrimPrefix(ext, "."))
}

// MapExtToFormat maps an extension onto the document source type, "" when unsupported.
func MapExtToFormat(ext string) string {
	switch NormalizeExt(ext) {
	case "pdf":
		return PDF
	case "txt", "text", "md":
		return TEXT
	default:
		return ""
	}
}
