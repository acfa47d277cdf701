package pipeline

import (
	"context"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/joseph-ayodele/benefits-extractor/constants"
	"github.com/joseph-ayodele/benefits-extractor/internal/common"
	"github.com/joseph-ayodele/benefits-extractor/internal/entity"
	"github.com/joseph-ayodele/benefits-extractor/internal/llm"
	"github.com/joseph-ayodele/benefits-extractor/internal/profiles"
)

// refillOverlap is repeated at the start of each region window so a value
// cut by a window boundary is whole in the next one.
const refillOverlap = 512

// RefillOptions controls the second pass over absent fields.
type RefillOptions struct {
	BatchSize int // fields per batch; 0 uses the engine default
	// IncludeUnmatched also retries fields whose category header was not found.
	IncludeUnmatched bool
}

// Refill re-extracts the absent fields of prev against the whole operative
// region, batch by batch, and returns a copy of prev with newly present values
// merged in. A region longer than one prompt is read in overlapping windows
// and a field stops at the first window that yields a value. Values that stay
// absent keep their original reason. Header status and the missing-header
// manifest are left as they were.
func (e *Engine) Refill(ctx context.Context, doc entity.Document, p *profiles.CompanyProfile, prev *entity.Result, opts RefillOptions) (*entity.Result, error) {
	if p == nil || prev == nil {
		return nil, common.InvalidArgumentError("profile and previous result are required")
	}
	if prev.ProfileID != p.ID {
		return nil, common.InvalidArgumentErrorf("result belongs to profile %q, not %q", prev.ProfileID, p.ID)
	}
	batchSize := opts.BatchSize
	if batchSize <= 0 {
		batchSize = e.Cfg.RefillBatchSize
	}
	start := time.Now()
	logger := e.Logger.With("profile_id", p.ID, "document_id", doc.ID)

	layout := Analyze(doc.Text, p, e.Cfg.TOCLookahead)
	text := layout.RegionText(doc.Text)

	out := prev.Clone()
	var tasks []task
	for ci, cr := range out.Categories {
		cat, ok := p.Category(cr.ID)
		if !ok {
			continue
		}
		for fi, fv := range cr.Fields {
			if fv.IsPresent() {
				continue
			}
			if fv.Reason == constants.ReasonHeaderNotFound && !opts.IncludeUnmatched {
				continue
			}
			spec, ok := cat.Field(fv.FieldID)
			if !ok {
				continue
			}
			tasks = append(tasks, task{category: ci, field: fi, spec: *spec})
		}
	}
	if len(tasks) == 0 || text == "" {
		return out, nil
	}

	// Windows are cut in document offsets; excluded ranges only shrink them.
	base := layout.Region.Start
	wins := windows(doc.Text[base:min(layout.Region.End, len(doc.Text))], llm.MaxPromptTextBytes, refillOverlap)
	for b := 0; b < len(tasks); b += batchSize {
		pending := tasks[b:min(b+batchSize, len(tasks))]
		for wi, w := range wins {
			if len(pending) == 0 {
				break
			}
			wtext := layout.Region.Slice(doc.Text, base+w.start, base+w.end)
			if strings.TrimSpace(wtext) == "" {
				continue
			}
			span := &entity.Span{Start: base + w.start, End: base + w.end}
			batch := make([]task, len(pending))
			for i, t := range pending {
				t.span = span
				t.req = request(out.Categories[t.category].ID, t.spec, wtext)
				batch[i] = t
			}
			err := e.dispatch(ctx, p.ID, batch, func(t task, fv entity.FieldValue) {
				if fv.IsPresent() {
					out.Categories[t.category].Fields[t.field] = fv
				}
			})
			if err != nil {
				logger.Error("pipeline.refill.failed", "batch", b/batchSize, "window", wi, "err", err)
				return nil, err
			}
			var next []task
			for _, t := range pending {
				if !out.Categories[t.category].Fields[t.field].IsPresent() {
					next = append(next, t)
				}
			}
			logger.Debug("pipeline.refill.window",
				"batch", b/batchSize,
				"window", wi,
				"size", len(batch),
				"filled", len(batch)-len(next),
			)
			pending = next
		}
	}

	filled := 0
	for _, t := range tasks {
		if out.Categories[t.category].Fields[t.field].IsPresent() {
			filled++
		}
	}
	logger.Info("pipeline.refill.ok",
		"candidates", len(tasks),
		"windows", len(wins),
		"filled", filled,
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return out, nil
}

type window struct{ start, end int }

// windows covers text with slices of at most size bytes. A slice ends after
// the last newline in its second half when there is one, otherwise on a rune
// boundary. Each following slice starts overlap bytes before the previous end.
func windows(text string, size, overlap int) []window {
	if size <= 0 || len(text) <= size {
		return []window{{0, len(text)}}
	}
	if overlap < 0 || overlap >= size/2 {
		overlap = 0
	}
	var out []window
	start := 0
	for {
		end := start + size
		if end >= len(text) {
			return append(out, window{start, len(text)})
		}
		if nl := strings.LastIndexByte(text[start+size/2:end], '\n'); nl >= 0 {
			end = start + size/2 + nl + 1
		} else {
			for end > start && !utf8.RuneStart(text[end]) {
				end--
			}
		}
		out = append(out, window{start, end})
		next := end - overlap
		for next < end && !utf8.RuneStart(text[next]) {
			next++
		}
		start = next
	}
}
