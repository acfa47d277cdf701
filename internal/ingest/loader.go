package ingest

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/ledongthuc/pdf"

	"github.com/joseph-ayodele/benefits-extractor/constants"
	"github.com/joseph-ayodele/benefits-extractor/internal/common"
	"github.com/joseph-ayodele/benefits-extractor/internal/entity"
)

const (
	DefaultPdftotext    = "pdftotext"
	DefaultMaxFileBytes = 64 << 20
)

// ErrNoText is returned when a document yields no extractable text.
var ErrNoText = errors.New("document has no extractable text")

// documentNamespace seeds the content-derived document IDs.
var documentNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("benefits-extractor/document"))

// Config holds settings for document loading.
type Config struct {
	Pdftotext    string // fallback binary for PDFs the native reader cannot decode
	MaxFileBytes int64
}

// Loader turns raw files into entity.Document values.
type Loader struct {
	cfg    Config
	runner Runner
	logger *slog.Logger
}

// Option customises a Loader.
type Option func(*Loader)

// WithRunner replaces the external command runner.
func WithRunner(r Runner) Option {
	return func(l *Loader) { l.runner = r }
}

// NewLoader builds a Loader; zero config values fall back to defaults.
func NewLoader(cfg Config, logger *slog.Logger, opts ...Option) *Loader {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Pdftotext == "" {
		cfg.Pdftotext = DefaultPdftotext
	}
	if cfg.MaxFileBytes <= 0 {
		cfg.MaxFileBytes = DefaultMaxFileBytes
	}
	// pdftotext -layout pads lines, so allow several times the input size
	l := &Loader{cfg: cfg, logger: logger, runner: execRunner{logger: logger, maxOutput: int(cfg.MaxFileBytes) * 4}}
	for _, o := range opts {
		o(l)
	}
	return l
}

// DocumentID derives a stable document ID from a content hash.
func DocumentID(contentHash string) string {
	return uuid.NewSHA1(documentNamespace, []byte(contentHash)).String()
}

// Supported reports whether the file name carries an accepted extension.
func Supported(name string) bool {
	_, ok := constants.AllowedExtensions[constants.NormalizeExt(filepath.Ext(name))]
	return ok
}

// LoadFile reads and loads the document at path.
func (l *Loader) LoadFile(ctx context.Context, path string) (*entity.Document, error) {
	if !Supported(path) {
		return nil, common.InvalidArgumentErrorf("unsupported file type: %s", filepath.Ext(path))
	}
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, common.NotFoundError(fmt.Sprintf("file %s not found", path))
		}
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	data, err := io.ReadAll(io.LimitReader(f, l.cfg.MaxFileBytes+1))
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return l.LoadBytes(ctx, filepath.Base(path), data)
}

// LoadBytes loads an in-memory document; name selects the decoder by extension.
func (l *Loader) LoadBytes(ctx context.Context, name string, data []byte) (*entity.Document, error) {
	if int64(len(data)) > l.cfg.MaxFileBytes {
		return nil, common.InvalidArgumentErrorf("file %s exceeds %d bytes", name, l.cfg.MaxFileBytes)
	}
	source := constants.MapExtToFormat(filepath.Ext(name))
	if source == "" {
		return nil, common.InvalidArgumentErrorf("unsupported file type: %q", filepath.Ext(name))
	}

	sum := sha256.Sum256(data)
	hash := hex.EncodeToString(sum[:])

	var (
		text  string
		pages = 1
		err   error
	)
	switch source {
	case constants.PDF:
		text, pages, err = l.pdfText(ctx, name, data)
		if err != nil {
			return nil, err
		}
	default:
		text = string(data)
		if !utf8.ValidString(text) {
			l.logger.Warn("ingest.text.invalid_utf8", "file", name)
			text = strings.ToValidUTF8(text, "\uFFFD")
		}
	}

	text = Normalize(text)
	if text == "" {
		return nil, common.NewAppError("EMPTY_DOCUMENT", name, errors.Join(common.ErrInvalidInput, ErrNoText))
	}

	l.logger.Info("ingest.document.loaded",
		"file", name,
		"source_type", source,
		"pages", pages,
		"chars", len(text),
		"hash", hash[:12],
	)
	return &entity.Document{
		ID:          DocumentID(hash),
		FileName:    name,
		SourceType:  source,
		ContentHash: hash,
		Text:        text,
		Pages:       pages,
	}, nil
}

// pdfText uses the native reader first and falls back to pdftotext when the
// reader fails or finds no text layer.
func (l *Loader) pdfText(ctx context.Context, name string, data []byte) (string, int, error) {
	text, pages, err := nativePDFText(data)
	if err == nil && strings.TrimSpace(text) != "" {
		return text, pages, nil
	}
	if err == nil {
		err = ErrNoText
	}
	l.logger.Info("ingest.pdf.fallback", "file", name, "reason", err.Error(), "cmd", l.cfg.Pdftotext)

	ftext, fpages, ferr := l.pdftotext(ctx, data)
	if ferr != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return "", 0, ctxErr
		}
		return "", 0, common.NewAppError("UNREADABLE_PDF", name, errors.Join(common.ErrInvalidInput, err, ferr))
	}
	return ftext, fpages, nil
}

func (l *Loader) pdftotext(ctx context.Context, data []byte) (string, int, error) {
	tmp, err := os.CreateTemp("", "benefits-*.pdf")
	if err != nil {
		return "", 0, err
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return "", 0, err
	}
	if err := tmp.Close(); err != nil {
		return "", 0, err
	}

	// pdftotext -layout -enc UTF-8 -eol unix <path> -
	out, errb, err := l.runner.Run(ctx, l.cfg.Pdftotext, "-layout", "-enc", "UTF-8", "-eol", "unix", tmp.Name(), "-")
	if err != nil {
		if msg := strings.TrimSpace(string(errb)); msg != "" {
			return "", 0, fmt.Errorf("%s: %w: %s", l.cfg.Pdftotext, err, truncate(msg, 512))
		}
		return "", 0, fmt.Errorf("%s: %w", l.cfg.Pdftotext, err)
	}
	text := string(out)
	// form feeds separate pages
	pages := 1 + strings.Count(strings.TrimRight(text, "\f\n"), "\f")
	return text, pages, nil
}

// nativePDFText reads the text layer page by page. The reader panics on some
// malformed inputs, so panics are turned into errors.
func nativePDFText(data []byte) (text string, pages int, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("pdf reader: %v", r)
		}
	}()

	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", 0, fmt.Errorf("open pdf: %w", err)
	}

	var sb strings.Builder
	pages = reader.NumPage()
	for i := 1; i <= pages; i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		content, err := page.GetPlainText(nil)
		if err != nil {
			return "", 0, fmt.Errorf("page %d: %w", i, err)
		}
		if sb.Len() > 0 {
			sb.WriteString("\n\n")
		}
		sb.WriteString(content)
	}
	return sb.String(), pages, nil
}
