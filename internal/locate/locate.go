// Package locate bounds the operative region of a benefits document and
// carves table-of-contents listings out of it.
package locate

import (
	"sort"
	"strings"

	"github.com/joseph-ayodele/benefits-extractor/internal/profiles"
)

// DefaultTOCLookahead caps a TOC span when no blank-line run ends it sooner.
const DefaultTOCLookahead = 1500

// Region is the operative part of a document: [Start, End) minus Excluded.
type Region struct {
	Start       int    `json:"start"`
	End         int    `json:"end"`
	Excluded    []Span `json:"excluded,omitempty"`
	StartMarker string `json:"start_marker,omitempty"` // empty when no start marker matched
	EndMarker   string `json:"end_marker,omitempty"`   // empty when the region runs to the end
}

// Includes reports whether off lies in the region and outside every TOC span.
func (r Region) Includes(off int) bool {
	if off < r.Start || off >= r.End {
		return false
	}
	return !r.Excludes(off)
}

// Excludes reports whether off falls inside a TOC span.
func (r Region) Excludes(off int) bool {
	i := sort.Search(len(r.Excluded), func(i int) bool { return r.Excluded[i].End > off })
	return i < len(r.Excluded) && r.Excluded[i].Start <= off
}

// Slice returns text[from:to] clipped to the region with TOC spans cut out.
func (r Region) Slice(text string, from, to int) string {
	from = max(from, r.Start)
	to = min(to, r.End, len(text))
	if from >= to {
		return ""
	}
	var b strings.Builder
	pos := from
	for _, ex := range r.Excluded {
		if ex.End <= pos || ex.Start >= to {
			continue
		}
		if ex.Start > pos {
			b.WriteString(text[pos:ex.Start])
		}
		pos = max(pos, ex.End)
	}
	if pos < to {
		b.WriteString(text[pos:to])
	}
	return b.String()
}

// Locate finds the operative region of the indexed document.
//
// The start is the earliest start-marker occurrence (declaration order breaks
// ties), or 0 when none matches. The end is the earliest end-marker occurrence
// beginning strictly after the start, or the document length. Every TOC marker
// inside the region excludes the listing that follows it, see tocSpan.
func Locate(ix *Index, ds profiles.DocumentStructure, lookahead int) Region {
	if ds.TOCLookahead > 0 {
		lookahead = ds.TOCLookahead
	}
	if lookahead <= 0 {
		lookahead = DefaultTOCLookahead
	}

	r := Region{Start: 0, End: ix.Len()}

	searchFrom := 0
	if m, marker, ok := earliest(ix, ds.StartMarkers, 0, ix.Len()); ok {
		r.Start = m.Start
		r.StartMarker = marker
		searchFrom = m.End
	}
	// An end marker starting at the start offset itself never counts.
	searchFrom = max(searchFrom, r.Start+1)
	if m, marker, ok := earliest(ix, ds.EndMarkers, searchFrom, ix.Len()); ok {
		r.End = m.Start
		r.EndMarker = marker
	}

	var spans []Span
	for _, marker := range ds.TOCMarkers {
		for _, m := range ix.FindAll(marker, r.Start, r.End) {
			spans = append(spans, tocSpan(ix.Text(), m, r.End, lookahead))
		}
	}
	r.Excluded = merge(spans)
	return r
}

func earliest(ix *Index, markers []string, from, to int) (Span, string, bool) {
	var (
		best   Span
		marker string
		found  bool
	)
	for _, mk := range markers {
		m, ok := ix.First(mk, from, to)
		if !ok {
			continue
		}
		if !found || m.Start < best.Start {
			best, marker, found = m, mk, true
		}
	}
	return best, marker, found
}

// tocSpan covers the marker and the listing after it. Blank lines directly
// after the marker are skipped; the listing then runs to the next blank-line
// run or lookahead bytes, whichever comes first, clipped to limit.
func tocSpan(text string, m Span, limit, lookahead int) Span {
	body := skipBlankLines(text, m.End, limit)
	end := min(body+lookahead, limit)
	if b := nextBlankLine(text, body, end); b >= 0 {
		end = b
	}
	return Span{Start: m.Start, End: end}
}

// skipBlankLines advances past the remainder of the current line and any
// following lines when they hold only whitespace.
func skipBlankLines(text string, pos, limit int) int {
	for pos < limit {
		nl := strings.IndexByte(text[pos:limit], '\n')
		if nl < 0 {
			if strings.TrimSpace(text[pos:limit]) == "" {
				return limit
			}
			return pos
		}
		if strings.TrimSpace(text[pos:pos+nl]) != "" {
			return pos
		}
		pos += nl + 1
	}
	return pos
}

// nextBlankLine returns the offset of the first newline that starts a
// blank-line run in text[from:to], or -1.
func nextBlankLine(text string, from, to int) int {
	for i := from; i < to; i++ {
		if text[i] != '\n' {
			continue
		}
		for j := i + 1; j < to; j++ {
			c := text[j]
			if c == '\n' {
				return i
			}
			if c != ' ' && c != '\t' && c != '\r' && c != '\f' && c != '\v' {
				break
			}
		}
	}
	return -1
}

func merge(spans []Span) []Span {
	if len(spans) == 0 {
		return nil
	}
	sort.Slice(spans, func(i, j int) bool { return spans[i].Start < spans[j].Start })
	out := []Span{spans[0]}
	for _, s := range spans[1:] {
		last := &out[len(out)-1]
		if s.Start <= last.End {
			last.End = max(last.End, s.End)
			continue
		}
		out = append(out, s)
	}
	return out
}
