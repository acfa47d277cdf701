package locate

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/benefits-extractor/internal/profiles"
)

const tocDoc = "Group Plan\nBenefit Summary\nTable of Contents\n\n" +
	"Life Insurance ........ 3\nDental Care ........ 5\n\n" +
	"LIFE INSURANCE\nFlat $20,000\n\nDENTAL CARE\n100% up to $1,500\n\n" +
	"General Provisions\nThe policy terminates..."

func structure() profiles.DocumentStructure {
	return profiles.DocumentStructure{
		StartMarkers: []string{"Benefit Summary"},
		EndMarkers:   []string{"General Provisions"},
		TOCMarkers:   []string{"Table of Contents"},
	}
}

func TestIndex_FindAllNormalizesCaseAndWhitespace(t *testing.T) {
	text := "intro LIFE\n\t INSURANCE and life insurance"
	ix := NewIndex(text)

	got := ix.FindAll("Life Insurance", 0, len(text))
	require.Len(t, got, 2)
	assert.Equal(t, "LIFE\n\t INSURANCE", text[got[0].Start:got[0].End])
	assert.Equal(t, "life insurance", text[got[1].Start:got[1].End])

	// The second occurrence is cut by the upper bound.
	assert.Len(t, ix.FindAll("life insurance", 0, len(text)-1), 1)
	assert.Empty(t, ix.FindAll("  ", 0, len(text)))
}

func TestIndex_MultibyteOffsets(t *testing.T) {
	text := "Régime — SOINS DENTAIRES"
	ix := NewIndex(text)
	m, ok := ix.First("soins dentaires", 0, len(text))
	require.True(t, ok)
	assert.Equal(t, "SOINS DENTAIRES", text[m.Start:m.End])
}

func TestLocate_MarkersAndTOC(t *testing.T) {
	ix := NewIndex(tocDoc)
	r := Locate(ix, structure(), 0)

	assert.Equal(t, strings.Index(tocDoc, "Benefit Summary"), r.Start)
	assert.Equal(t, strings.Index(tocDoc, "General Provisions"), r.End)
	assert.Equal(t, "Benefit Summary", r.StartMarker)
	assert.Equal(t, "General Provisions", r.EndMarker)

	require.Len(t, r.Excluded, 1)
	toc := r.Excluded[0]
	assert.Equal(t, strings.Index(tocDoc, "Table of Contents"), toc.Start)
	assert.Equal(t, strings.Index(tocDoc, "5\n\n")+1, toc.End)

	tocEntry := strings.Index(tocDoc, "Life Insurance ....")
	assert.False(t, r.Includes(tocEntry))
	assert.True(t, r.Includes(strings.Index(tocDoc, "LIFE INSURANCE")))
	assert.False(t, r.Includes(0))
}

func TestLocate_NoStartMarkerStartsAtZero(t *testing.T) {
	doc := "LIFE INSURANCE Flat $20,000\nGeneral Provisions apply"
	r := Locate(NewIndex(doc), structure(), 0)
	assert.Equal(t, 0, r.Start)
	assert.Empty(t, r.StartMarker)
	assert.Equal(t, strings.Index(doc, "General Provisions"), r.End)
}

func TestLocate_NoEndMarkerRunsToDocumentEnd(t *testing.T) {
	doc := "Benefit Summary LIFE INSURANCE Flat $20,000"
	r := Locate(NewIndex(doc), structure(), 0)
	assert.Equal(t, 0, r.Start)
	assert.Equal(t, len(doc), r.End)
	assert.Empty(t, r.EndMarker)
}

func TestLocate_EndMarkerBeforeStartIsIgnored(t *testing.T) {
	doc := "General Provisions (see below)\nBenefit Summary\nLIFE INSURANCE\nGeneral Provisions"
	r := Locate(NewIndex(doc), structure(), 0)
	assert.Equal(t, strings.Index(doc, "Benefit Summary"), r.Start)
	assert.Equal(t, strings.LastIndex(doc, "General Provisions"), r.End)
}

func TestLocate_EarliestStartMarkerWins(t *testing.T) {
	doc := "Summary of Benefits\n...\nBenefit Summary\n"
	ds := profiles.DocumentStructure{StartMarkers: []string{"Benefit Summary", "Summary of Benefits"}}
	r := Locate(NewIndex(doc), ds, 0)
	assert.Equal(t, 0, r.Start)
	assert.Equal(t, "Summary of Benefits", r.StartMarker)
}

func TestLocate_SameOffsetTieGoesToDeclarationOrder(t *testing.T) {
	doc := "Benefit Summary Schedule\n"
	ds := profiles.DocumentStructure{StartMarkers: []string{"Benefit Summary Schedule", "Benefit Summary"}}
	r := Locate(NewIndex(doc), ds, 0)
	assert.Equal(t, "Benefit Summary Schedule", r.StartMarker)
}

func TestLocate_TOCLookaheadCapsSpan(t *testing.T) {
	doc := "Table of Contents\nLife Insurance 3\nDental Care 5\nLIFE INSURANCE\nFlat $20,000"
	ds := profiles.DocumentStructure{TOCMarkers: []string{"Table of Contents"}, TOCLookahead: 10}
	r := Locate(NewIndex(doc), ds, 0)
	require.Len(t, r.Excluded, 1)
	body := strings.Index(doc, "Life Insurance")
	assert.Equal(t, Span{Start: 0, End: body + 10}, r.Excluded[0])
}

func TestRegion_SliceSkipsExcluded(t *testing.T) {
	text := "0123456789"
	r := Region{Start: 1, End: 9, Excluded: []Span{{Start: 3, End: 5}, {Start: 6, End: 7}}}
	assert.Equal(t, "12578", r.Slice(text, 0, 10))
	assert.Equal(t, "5", r.Slice(text, 4, 6))
	assert.Equal(t, "", r.Slice(text, 3, 5))
}

func TestMerge(t *testing.T) {
	got := merge([]Span{{Start: 10, End: 20}, {Start: 0, End: 5}, {Start: 4, End: 8}, {Start: 20, End: 22}})
	assert.Equal(t, []Span{{Start: 0, End: 8}, {Start: 10, End: 22}}, got)
}
