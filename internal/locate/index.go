package locate

import (
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"
)

// Span is a half-open byte range [Start, End) of the original document.
type Span struct {
	Start int `json:"start"`
	End   int `json:"end"`
}

// Len is the span width in bytes.
func (s Span) Len() int { return s.End - s.Start }

// Index is a lowercased, whitespace-collapsed view of a document that maps
// every normalized byte back to the original rune it came from. Matches found
// in the normalized text are reported in original offsets.
type Index struct {
	text   string
	norm   string
	starts []int // original offset of the rune that produced norm[i]
	ends   []int // original offset just past that rune (or whitespace run)
}

// NewIndex builds the normalized view of text.
func NewIndex(text string) *Index {
	var b strings.Builder
	b.Grow(len(text))
	starts := make([]int, 0, len(text))
	ends := make([]int, 0, len(text))

	var buf [utf8.UTFMax]byte
	inSpace := false
	for off := 0; off < len(text); {
		r, size := utf8.DecodeRuneInString(text[off:])
		next := off + size
		if unicode.IsSpace(r) {
			if inSpace {
				ends[len(ends)-1] = next
			} else {
				inSpace = true
				b.WriteByte(' ')
				starts = append(starts, off)
				ends = append(ends, next)
			}
			off = next
			continue
		}
		inSpace = false
		n := utf8.EncodeRune(buf[:], unicode.ToLower(r))
		b.Write(buf[:n])
		for i := 0; i < n; i++ {
			starts = append(starts, off)
			ends = append(ends, next)
		}
		off = next
	}
	return &Index{text: text, norm: b.String(), starts: starts, ends: ends}
}

// Text returns the original document.
func (ix *Index) Text() string { return ix.text }

// Len is the original document length in bytes.
func (ix *Index) Len() int { return len(ix.text) }

// Normalize puts a needle into the same form the index is searched in.
func Normalize(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), " ")
}

// FindAll returns every occurrence of needle that lies entirely within
// [from, to) of the original text, in ascending offset order. Occurrences
// may overlap.
func (ix *Index) FindAll(needle string, from, to int) []Span {
	n := Normalize(needle)
	if n == "" || from >= to {
		return nil
	}
	lo, hi := ix.bounds(from, to)
	var out []Span
	for i := lo; i < hi; {
		k := strings.Index(ix.norm[i:hi], n)
		if k < 0 {
			break
		}
		at := i + k
		out = append(out, Span{Start: ix.starts[at], End: ix.ends[at+len(n)-1]})
		_, w := utf8.DecodeRuneInString(ix.norm[at:])
		i = at + w
	}
	return out
}

// First returns the earliest occurrence of needle within [from, to).
func (ix *Index) First(needle string, from, to int) (Span, bool) {
	n := Normalize(needle)
	if n == "" || from >= to {
		return Span{}, false
	}
	lo, hi := ix.bounds(from, to)
	k := strings.Index(ix.norm[lo:hi], n)
	if k < 0 {
		return Span{}, false
	}
	at := lo + k
	return Span{Start: ix.starts[at], End: ix.ends[at+len(n)-1]}, true
}

// bounds maps original [from, to) onto the normalized range whose source
// runes lie fully inside it.
func (ix *Index) bounds(from, to int) (int, int) {
	lo := sort.Search(len(ix.starts), func(i int) bool { return ix.starts[i] >= from })
	hi := sort.Search(len(ix.ends), func(i int) bool { return ix.ends[i] > to })
	if hi < lo {
		hi = lo
	}
	return lo, hi
}
