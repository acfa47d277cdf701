// Package benefits ties document loading, the extraction engine and the
// record store together behind the operations the transports expose.
package benefits

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/joseph-ayodele/benefits-extractor/constants"
	"github.com/joseph-ayodele/benefits-extractor/internal/async"
	"github.com/joseph-ayodele/benefits-extractor/internal/common"
	"github.com/joseph-ayodele/benefits-extractor/internal/entity"
	"github.com/joseph-ayodele/benefits-extractor/internal/export"
	"github.com/joseph-ayodele/benefits-extractor/internal/ingest"
	"github.com/joseph-ayodele/benefits-extractor/internal/llm"
	"github.com/joseph-ayodele/benefits-extractor/internal/pipeline"
	"github.com/joseph-ayodele/benefits-extractor/internal/profiles"
	"github.com/joseph-ayodele/benefits-extractor/internal/repository"
)

const defaultInlineName = "inline.txt"

// Service handles extraction business logic.
type Service struct {
	registry *profiles.Registry
	engine   *pipeline.Engine
	repo     repository.ExtractionRepository
	loader   *ingest.Loader
	exporter *export.Exporter
	queue    async.Queue
	refill   bool
	logger   *slog.Logger
	now      func() time.Time
}

type Option func(*Service)

// WithRefill turns the missing-field second pass on by default.
func WithRefill(on bool) Option {
	return func(s *Service) { s.refill = on }
}

// WithClock overrides the record timestamp source.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// NewService creates a new extraction service.
func NewService(reg *profiles.Registry, engine *pipeline.Engine, repo repository.ExtractionRepository, loader *ingest.Loader, logger *slog.Logger, opts ...Option) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Service{
		registry: reg,
		engine:   engine,
		repo:     repo,
		loader:   loader,
		exporter: export.NewExporter(logger),
		logger:   logger,
		now:      time.Now,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// UseQueue enables asynchronous extraction requests.
func (s *Service) UseQueue(q async.Queue) {
	s.queue = q
}

// ExtractRequest names the document to extract and how. Exactly one of
// Text, Data or Path carries the document.
type ExtractRequest struct {
	ProfileID  string
	DocumentID string // overrides the content-derived ID
	FileName   string
	Text       string
	Data       []byte
	Path       string
	Refill     *bool // nil uses the service default
	Async      bool
}

// RunOptions controls one extraction run of an already loaded document.
type RunOptions struct {
	Refill bool
	Async  bool
}

// Extract loads the requested document and runs it. Synchronous runs
// return the terminal record; asynchronous runs return the PENDING record.
func (s *Service) Extract(ctx context.Context, req ExtractRequest) (*entity.ExtractionRecord, error) {
	v := common.NewValidator()
	v.Field("profile_id", req.ProfileID, common.Required)
	sources := 0
	for _, set := range []bool{req.Text != "", len(req.Data) > 0, req.Path != ""} {
		if set {
			sources++
		}
	}
	if sources != 1 {
		v.Fail("document", sources, "exactly one of text, file or path is required")
	}
	if v.HasErrors() {
		return nil, v.Error()
	}

	doc, err := s.load(ctx, req)
	if err != nil {
		return nil, err
	}
	if id := strings.TrimSpace(req.DocumentID); id != "" {
		doc.ID = id
	}

	refill := s.refill
	if req.Refill != nil {
		refill = *req.Refill
	}
	return s.ExtractDocument(ctx, doc, req.ProfileID, RunOptions{Refill: refill, Async: req.Async})
}

func (s *Service) load(ctx context.Context, req ExtractRequest) (*entity.Document, error) {
	switch {
	case req.Path != "":
		return s.loader.LoadFile(ctx, req.Path)
	case len(req.Data) > 0:
		return s.loader.LoadBytes(ctx, req.FileName, req.Data)
	default:
		name := req.FileName
		if name == "" {
			name = defaultInlineName
		}
		if constants.MapExtToFormat(filepath.Ext(name)) != constants.TEXT {
			return nil, common.InvalidArgumentErrorf("inline text needs a text file name, got %q", name)
		}
		return s.loader.LoadBytes(ctx, name, []byte(req.Text))
	}
}

// ExtractDocument records a PENDING run for doc and either executes it or
// hands it to the queue.
func (s *Service) ExtractDocument(ctx context.Context, doc *entity.Document, profileID string, opts RunOptions) (*entity.ExtractionRecord, error) {
	if doc == nil {
		return nil, common.InvalidArgumentError("document is required")
	}
	if opts.Async && s.queue == nil {
		return nil, common.InvalidArgumentError("asynchronous extraction is not enabled")
	}
	p, err := s.registry.Get(profileID)
	if err != nil {
		return nil, err
	}

	rec := entity.NewExtractionRecord(doc.ID, p.ID, doc.FileName, doc.ContentHash, s.now().UTC())
	if err := s.repo.Save(ctx, rec); err != nil {
		return nil, err
	}
	s.logger.Info("benefits.extract.accepted",
		"document_id", doc.ID,
		"profile_id", p.ID,
		"async", opts.Async,
		"refill", opts.Refill,
		"request_id", common.RequestIDFromContext(ctx),
	)

	if !opts.Async {
		return s.execute(ctx, rec, doc, p, opts.Refill)
	}
	job := async.Job{
		Document:    doc,
		ProfileID:   p.ID,
		Refill:      opts.Refill,
		SubmittedAt: s.now(),
		RequestID:   common.RequestIDFromContext(ctx),
	}
	if err := s.queue.Enqueue(ctx, job); err != nil {
		return nil, s.fail(ctx, rec, err)
	}
	return rec, nil
}

// Process runs a queued job. It makes Service an async.Processor.
func (s *Service) Process(ctx context.Context, job async.Job) error {
	p, err := s.registry.Get(job.ProfileID)
	if err != nil {
		return err
	}
	rec, err := s.repo.Get(ctx, job.Document.ID)
	if errors.Is(err, common.ErrNotFound) {
		rec = entity.NewExtractionRecord(job.Document.ID, p.ID, job.Document.FileName, job.Document.ContentHash, s.now().UTC())
	} else if err != nil {
		return err
	}
	_, err = s.execute(ctx, rec, job.Document, p, job.Refill)
	return err
}

// execute moves rec through RUNNING to COMPLETED or FAILED.
func (s *Service) execute(ctx context.Context, rec *entity.ExtractionRecord, doc *entity.Document, p *profiles.CompanyProfile, refill bool) (*entity.ExtractionRecord, error) {
	start := time.Now()
	if err := s.transition(ctx, rec, constants.RunStatusRunning); err != nil {
		return nil, err
	}

	res, err := s.engine.Run(ctx, *doc, p)
	if err != nil {
		return nil, s.fail(ctx, rec, runError(err))
	}

	if refill {
		if missing := res.MissingFields(); len(missing) > 0 {
			refilled, rerr := s.engine.Refill(ctx, *doc, p, res, pipeline.RefillOptions{})
			switch {
			case rerr == nil:
				res = refilled
			case pipeline.IsRunLevel(rerr) && ctx.Err() != nil:
				return nil, s.fail(ctx, rec, rerr)
			default:
				// first pass stands on its own
				s.logger.Warn("benefits.refill.failed", "document_id", rec.DocumentID, "missing", len(missing), "error", rerr)
			}
		}
	}

	rec.Result = res
	rec.Error = nil
	if err := s.transition(ctx, rec, constants.RunStatusCompleted); err != nil {
		return nil, err
	}
	present, absent := res.Counts()
	s.logger.Info("benefits.extract.completed",
		"document_id", rec.DocumentID,
		"profile_id", rec.ProfileID,
		"present", present,
		"absent", absent,
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return rec, nil
}

func (s *Service) transition(ctx context.Context, rec *entity.ExtractionRecord, status constants.RunStatus) error {
	rec.Status = status
	rec.UpdatedAt = s.now().UTC()
	if err := s.repo.Save(ctx, rec); err != nil {
		s.logger.Error("benefits.record.save_failed", "document_id", rec.DocumentID, "status", status, "error", err)
		return err
	}
	return nil
}

// fail records cause on rec as FAILED and returns cause. The record is
// written even when ctx is already cancelled.
func (s *Service) fail(ctx context.Context, rec *entity.ExtractionRecord, cause error) error {
	msg := cause.Error()
	rec.Error = &msg
	if err := s.transition(context.WithoutCancel(ctx), rec, constants.RunStatusFailed); err != nil {
		return errors.Join(cause, err)
	}
	s.logger.Error("benefits.extract.failed", "document_id", rec.DocumentID, "profile_id", rec.ProfileID, "error", cause)
	return cause
}

// runError maps run-level pipeline failures onto application errors.
func runError(err error) error {
	if errors.Is(err, llm.ErrUnavailable) {
		return common.NewAppError("CAPABILITY_UNAVAILABLE", "extraction capability unavailable", errors.Join(common.ErrUnavailable, err))
	}
	return err
}

// Get returns the stored record of a document.
func (s *Service) Get(ctx context.Context, documentID string) (*entity.ExtractionRecord, error) {
	if strings.TrimSpace(documentID) == "" {
		return nil, common.InvalidArgumentError("document_id is required")
	}
	return s.repo.Get(ctx, documentID)
}

// List returns stored records, optionally for one profile.
func (s *Service) List(ctx context.Context, profileID string) ([]*entity.ExtractionRecord, error) {
	return s.repo.List(ctx, strings.TrimSpace(profileID))
}

// Delete removes the stored record of a document.
func (s *Service) Delete(ctx context.Context, documentID string) error {
	if strings.TrimSpace(documentID) == "" {
		return common.InvalidArgumentError("document_id is required")
	}
	if err := s.repo.Delete(ctx, documentID); err != nil {
		return err
	}
	s.logger.Info("benefits.record.deleted", "document_id", documentID)
	return nil
}

// Export renders a completed record as an XLSX workbook.
func (s *Service) Export(ctx context.Context, documentID string) ([]byte, *entity.ExtractionRecord, error) {
	rec, err := s.Get(ctx, documentID)
	if err != nil {
		return nil, nil, err
	}
	if rec.Status != constants.RunStatusCompleted {
		return nil, nil, common.InvalidArgumentErrorf("extraction for document %s is %s", documentID, rec.Status)
	}
	b, err := s.exporter.RecordXLSX(rec)
	if err != nil {
		return nil, nil, fmt.Errorf("export %s: %w", documentID, err)
	}
	return b, rec, nil
}

// Profiles lists the loaded company profiles.
func (s *Service) Profiles() []*profiles.CompanyProfile {
	return s.registry.List()
}

// Profile returns one company profile.
func (s *Service) Profile(id string) (*profiles.CompanyProfile, error) {
	return s.registry.Get(id)
}

// Health checks the record store.
func (s *Service) Health(ctx context.Context) error {
	return repository.HealthCheck(ctx, s.repo, 2*time.Second)
}
