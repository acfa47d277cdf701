// Package pipeline runs configuration-driven benefit extraction over one
// document: locate the region, match category headers, extract every field
// through the capability and assemble the result in declaration order.
package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/joseph-ayodele/benefits-extractor/constants"
	"github.com/joseph-ayodele/benefits-extractor/internal/common"
	"github.com/joseph-ayodele/benefits-extractor/internal/entity"
	"github.com/joseph-ayodele/benefits-extractor/internal/extract"
	"github.com/joseph-ayodele/benefits-extractor/internal/llm"
	"github.com/joseph-ayodele/benefits-extractor/internal/locate"
	"github.com/joseph-ayodele/benefits-extractor/internal/metrics"
	"github.com/joseph-ayodele/benefits-extractor/internal/normalize"
	"github.com/joseph-ayodele/benefits-extractor/internal/profiles"
)

// Config holds the pipeline policy knobs.
type Config struct {
	Concurrency     int           // parallel capability calls per run; default 4
	MaxRetries      int           // retries after the first attempt; default 2
	RetryBackoff    time.Duration // base backoff, doubled per retry; default 500ms
	TOCLookahead    int           // bytes; default locate.DefaultTOCLookahead
	RefillBatchSize int           // fields per refill batch; default 10
}

// Engine runs extractions. It holds no per-document state and is safe for
// concurrent runs.
type Engine struct {
	Logger    *slog.Logger
	Cfg       Config
	Extractor *extract.Extractor
	Metrics   *metrics.Metrics
}

func NewEngine(logger *slog.Logger, cfg Config, capability llm.Capability, m *metrics.Metrics) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 4
	}
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = extract.DefaultMaxRetries
	}
	if cfg.RetryBackoff <= 0 {
		cfg.RetryBackoff = extract.DefaultRetryBackoff
	}
	if cfg.TOCLookahead <= 0 {
		cfg.TOCLookahead = locate.DefaultTOCLookahead
	}
	if cfg.RefillBatchSize <= 0 {
		cfg.RefillBatchSize = 10
	}
	return &Engine{
		Logger: logger,
		Cfg:    cfg,
		Extractor: extract.New(capability,
			extract.WithRetries(cfg.MaxRetries, cfg.RetryBackoff),
			extract.WithLogger(logger)),
		Metrics: m,
	}
}

// task is one capability call whose outcome lands in a fixed result slot.
type task struct {
	category int
	field    int
	spec     profiles.FieldSpec
	req      llm.ExtractRequest
	span     *entity.Span
}

// Run extracts every configured field of p from doc. Field and category
// failures are recorded as absent values; only capability unavailability and
// cancellation fail the run, in which case no result is returned.
func (e *Engine) Run(ctx context.Context, doc entity.Document, p *profiles.CompanyProfile) (*entity.Result, error) {
	if p == nil {
		return nil, common.InvalidArgumentError("profile is required")
	}
	start := time.Now()
	logger := e.Logger.With("profile_id", p.ID, "document_id", doc.ID)

	layout := Analyze(doc.Text, p, e.Cfg.TOCLookahead)
	logger.Info("pipeline.locate.ok",
		"region_start", layout.Region.Start,
		"region_end", layout.Region.End,
		"start_marker", layout.Region.StartMarker,
		"end_marker", layout.Region.EndMarker,
		"toc_spans", len(layout.Region.Excluded),
		"header_hits", len(layout.Hits),
	)

	res := &entity.Result{
		ProfileID:      p.ID,
		DocumentID:     doc.ID,
		Region:         toEntityRegion(layout.Region),
		Categories:     make([]entity.CategoryResult, len(p.Categories)),
		MissingHeaders: []string{},
	}

	var tasks []task
	for ci, cat := range p.Categories {
		cr := entity.CategoryResult{ID: cat.ID, Fields: make([]entity.FieldValue, len(cat.Fields))}
		sec, found := layout.Sections[cat.ID]
		if !found {
			for fi, f := range cat.Fields {
				cr.Fields[fi] = entity.Absent(f.ID, f.Format, constants.ReasonHeaderNotFound, "")
			}
			res.MissingHeaders = append(res.MissingHeaders, cat.ID)
			e.Metrics.ObserveMissingHeader(p.ID, cat.ID)
			res.Categories[ci] = cr
			continue
		}

		cr.HeaderFound = true
		cr.Header = toEntitySpan(sec.Header)
		cr.Blocks = sec.Blocks
		span := toEntitySpan(sec.Span)
		for fi, f := range cat.Fields {
			if sec.Text == "" {
				cr.Fields[fi] = entity.Absent(f.ID, f.Format, constants.ReasonExtractionEmpty, "section has no text")
				continue
			}
			tasks = append(tasks, task{
				category: ci,
				field:    fi,
				spec:     f,
				span:     span,
				req:      request(cat.ID, f, sec.Text),
			})
		}
		res.Categories[ci] = cr
	}

	if err := e.dispatch(ctx, p.ID, tasks, func(t task, fv entity.FieldValue) {
		res.Categories[t.category].Fields[t.field] = fv
	}); err != nil {
		e.Metrics.ObserveRun(p.ID, "failed", time.Since(start))
		logger.Error("pipeline.run.failed", "err", err, "elapsed_ms", time.Since(start).Milliseconds())
		return nil, err
	}

	present, absent := res.Counts()
	for _, c := range res.Categories {
		for _, f := range c.Fields {
			e.Metrics.ObserveField(p.ID, string(f.Status), string(f.Reason))
		}
	}
	e.Metrics.ObserveRun(p.ID, "completed", time.Since(start))
	logger.Info("pipeline.run.ok",
		"present", present,
		"absent", absent,
		"missing_headers", len(res.MissingHeaders),
		"capability_calls", len(tasks),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return res, nil
}

// dispatch runs tasks on a bounded worker pool and hands each resolved value
// to store. Every task writes a distinct slot, so store needs no locking.
func (e *Engine) dispatch(ctx context.Context, profileID string, tasks []task, store func(task, entity.FieldValue)) error {
	if len(tasks) == 0 {
		return ctx.Err()
	}
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.Cfg.Concurrency)
	for _, t := range tasks {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			out, err := e.Extractor.Extract(gctx, t.req)
			e.Metrics.AddCapabilityCalls(profileID, out.Attempts)
			if err != nil {
				return err
			}
			store(t, resolve(t.spec, out, t.span))
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	// The loop may have stopped early on a canceled parent context.
	if err := ctx.Err(); err != nil {
		return err
	}
	return nil
}

func request(categoryID string, f profiles.FieldSpec, text string) llm.ExtractRequest {
	return llm.ExtractRequest{
		CategoryID:  categoryID,
		FieldID:     f.ID,
		Text:        text,
		Instruction: f.Prompt,
		Format:      f.Format,
		Examples:    f.Examples,
	}
}

// resolve turns an extraction outcome into a field value.
func resolve(f profiles.FieldSpec, out extract.Outcome, span *entity.Span) entity.FieldValue {
	if out.Empty {
		detail := ""
		if out.Err != nil {
			detail = out.Err.Error()
		}
		return entity.Absent(f.ID, f.Format, constants.ReasonExtractionEmpty, detail)
	}
	v, err := normalize.Value(f.Format, out.Value)
	if err != nil {
		return entity.Absent(f.ID, f.Format, constants.ReasonFormatUnrecoverable, err.Error())
	}
	return entity.Present(f.ID, f.Format, v, span)
}

// IsRunLevel reports errors that fail a run as a whole rather than a field.
func IsRunLevel(err error) bool {
	return errors.Is(err, llm.ErrUnavailable) ||
		errors.Is(err, context.Canceled) ||
		errors.Is(err, context.DeadlineExceeded)
}
