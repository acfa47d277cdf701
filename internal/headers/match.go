// Package headers maps the operative region of a document onto benefit
// categories by scanning for their header aliases.
package headers

import (
	"sort"

	"github.com/joseph-ayodele/benefits-extractor/internal/locate"
	"github.com/joseph-ayodele/benefits-extractor/internal/profiles"
)

// Hit is one accepted header occurrence.
type Hit struct {
	CategoryID string
	Alias      string
	Header     locate.Span

	category int
	alias    int
}

// Block is the text owned by one header occurrence: from the end of its
// header to the start of the next accepted header, or the region end.
type Block struct {
	CategoryID string
	Header     locate.Span
	Body       locate.Span
}

// Find returns the accepted header hits of every category in document order.
// Hits inside TOC spans are ignored. When hits overlap, the one starting first
// wins; at the same offset the earlier declared category, then alias, wins.
func Find(ix *locate.Index, r locate.Region, p *profiles.CompanyProfile) []Hit {
	var all []Hit
	for ci, cat := range p.Categories {
		for ai, alias := range cat.Headers {
			for _, m := range ix.FindAll(alias, r.Start, r.End) {
				if r.Excludes(m.Start) {
					continue
				}
				all = append(all, Hit{CategoryID: cat.ID, Alias: alias, Header: m, category: ci, alias: ai})
			}
		}
	}

	sort.SliceStable(all, func(i, j int) bool {
		a, b := all[i], all[j]
		if a.Header.Start != b.Header.Start {
			return a.Header.Start < b.Header.Start
		}
		if a.category != b.category {
			return a.category < b.category
		}
		return a.alias < b.alias
	})

	kept := all[:0]
	end := -1
	for _, h := range all {
		if h.Header.Start < end {
			continue
		}
		kept = append(kept, h)
		end = h.Header.End
	}
	return kept
}

// Blocks turns ordered hits into category blocks.
func Blocks(hits []Hit, r locate.Region) []Block {
	out := make([]Block, 0, len(hits))
	for i, h := range hits {
		bodyEnd := r.End
		if i+1 < len(hits) {
			bodyEnd = hits[i+1].Header.Start
		}
		out = append(out, Block{
			CategoryID: h.CategoryID,
			Header:     h.Header,
			Body:       locate.Span{Start: h.Header.End, End: bodyEnd},
		})
	}
	return out
}

// ByCategory groups blocks by category id, keeping document order.
func ByCategory(blocks []Block) map[string][]Block {
	out := make(map[string][]Block)
	for _, b := range blocks {
		out[b.CategoryID] = append(out[b.CategoryID], b)
	}
	return out
}
