package pipeline

import (
	"strings"

	"github.com/joseph-ayodele/benefits-extractor/internal/entity"
	"github.com/joseph-ayodele/benefits-extractor/internal/headers"
	"github.com/joseph-ayodele/benefits-extractor/internal/locate"
	"github.com/joseph-ayodele/benefits-extractor/internal/profiles"
)

// Layout is the structural reading of a document under a profile: its
// operative region and the text owned by each category. It involves no
// capability calls.
type Layout struct {
	Region   locate.Region
	Hits     []headers.Hit
	Sections map[string]Section // by category id; absent when no header matched
}

// Section is the combined text of every block of one category.
type Section struct {
	Header locate.Span // first header occurrence
	Span   locate.Span // first block body
	Blocks int
	Text   string
}

// Analyze locates the region and maps headers to category sections.
// Repeated headers of one category contribute one block each; their texts
// are joined by a blank line.
func Analyze(text string, p *profiles.CompanyProfile, tocLookahead int) *Layout {
	ix := locate.NewIndex(text)
	region := locate.Locate(ix, p.Structure, tocLookahead)
	hits := headers.Find(ix, region, p)

	l := &Layout{Region: region, Hits: hits, Sections: make(map[string]Section)}
	for id, blocks := range headers.ByCategory(headers.Blocks(hits, region)) {
		parts := make([]string, 0, len(blocks))
		for _, b := range blocks {
			if s := strings.TrimSpace(region.Slice(text, b.Body.Start, b.Body.End)); s != "" {
				parts = append(parts, s)
			}
		}
		l.Sections[id] = Section{
			Header: blocks[0].Header,
			Span:   blocks[0].Body,
			Blocks: len(blocks),
			Text:   strings.Join(parts, "\n\n"),
		}
	}
	return l
}

// RegionText is the whole operative region with TOC spans removed.
func (l *Layout) RegionText(text string) string {
	return l.Region.Slice(text, l.Region.Start, l.Region.End)
}

func toEntityRegion(r locate.Region) entity.Region {
	out := entity.Region{Start: r.Start, End: r.End, StartMarker: r.StartMarker, EndMarker: r.EndMarker}
	for _, s := range r.Excluded {
		out.Excluded = append(out.Excluded, entity.Span{Start: s.Start, End: s.End})
	}
	return out
}

func toEntitySpan(s locate.Span) *entity.Span {
	return &entity.Span{Start: s.Start, End: s.End}
}
