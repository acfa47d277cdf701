// Package ollama implements the extraction capability on a local Ollama
// server through langchaingo.
package ollama

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/tmc/langchaingo/llms"
	lcollama "github.com/tmc/langchaingo/llms/ollama"

	"github.com/joseph-ayodele/benefits-extractor/internal/llm"
)

// Config for the Ollama client.
type Config struct {
	BaseURL     string // default http://localhost:11434
	Model       string
	Temperature float32
	Timeout     time.Duration
}

// Client implements llm.Capability over any langchaingo chat model.
type Client struct {
	cfg    Config
	model  llms.Model
	logger *slog.Logger
}

// NewClient connects to an Ollama server in JSON output mode.
func NewClient(cfg Config, logger *slog.Logger) (*Client, error) {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "http://localhost:11434"
	}
	if cfg.Model == "" {
		cfg.Model = "llama3.1:8b"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 60 * time.Second
	}
	m, err := lcollama.New(
		lcollama.WithModel(cfg.Model),
		lcollama.WithServerURL(cfg.BaseURL),
		lcollama.WithFormat("json"),
		lcollama.WithHTTPClient(&http.Client{Timeout: cfg.Timeout}),
	)
	if err != nil {
		return nil, fmt.Errorf("create ollama model: %w", err)
	}
	return NewWithModel(cfg, m, logger), nil
}

// NewWithModel wraps an already constructed model.
func NewWithModel(cfg Config, model llms.Model, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{cfg: cfg, model: model, logger: logger}
}

// Extract implements llm.Capability.
func (c *Client) Extract(ctx context.Context, req llm.ExtractRequest) (any, error) {
	rid := uuid.New().String()
	start := time.Now()

	if dropped := llm.DroppedBytes(req); dropped > 0 {
		c.logger.Warn("llm.prompt.truncated",
			"req_id", rid,
			"category_id", req.CategoryID,
			"field_id", req.FieldID,
			"dropped_bytes", dropped,
		)
	}
	content := []llms.MessageContent{
		llms.TextParts(llms.ChatMessageTypeSystem, llm.BuildSystemPrompt(req.Format)),
		llms.TextParts(llms.ChatMessageTypeHuman, llm.BuildUserPrompt(req)),
	}
	resp, err := c.model.GenerateContent(ctx, content, llms.WithTemperature(float64(c.cfg.Temperature)))
	if err != nil {
		c.logger.Error("llm.extract.ollama_error",
			"req_id", rid, "error", err,
			"elapsed_ms", time.Since(start).Milliseconds(),
		)
		return nil, classify(ctx, err)
	}
	if resp == nil || len(resp.Choices) == 0 {
		return nil, llm.Retryable(errors.New("no choices in ollama response"))
	}

	value, err := llm.DecodeEnvelope(resp.Choices[0].Content, req.Format, c.logger)
	if err != nil {
		return nil, err
	}
	c.logger.Debug("llm.extract.ok",
		"req_id", rid,
		"category_id", req.CategoryID,
		"field_id", req.FieldID,
		"found", value != nil,
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return value, nil
}

func classify(ctx context.Context, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}
	return llm.TransportError(err)
}
