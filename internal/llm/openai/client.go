package openai

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/benefits-extractor/internal/llm"
)

// Extract implements llm.Capability using text-only chat/completions.
func (c *Client) Extract(ctx context.Context, req llm.ExtractRequest) (any, error) {
	rid := uuid.New().String()
	start := time.Now()

	c.logger.Debug("llm.extract.start",
		"req_id", rid,
		"model", c.cfg.Model,
		"category_id", req.CategoryID,
		"field_id", req.FieldID,
		"format", req.Format,
		"text_len", len(req.Text),
	)
	if dropped := llm.DroppedBytes(req); dropped > 0 {
		c.logger.Warn("llm.prompt.truncated",
			"req_id", rid,
			"category_id", req.CategoryID,
			"field_id", req.FieldID,
			"dropped_bytes", dropped,
		)
	}

	body := map[string]any{
		"model":           c.cfg.Model,
		"temperature":     c.cfg.Temperature,
		"response_format": map[string]any{"type": "json_object"},
		"messages": []map[string]any{
			{"role": "system", "content": llm.BuildSystemPrompt(req.Format)},
			{"role": "user", "content": llm.BuildUserPrompt(req)},
		},
	}

	endpoint := strings.TrimRight(c.cfg.BaseURL, "/") + "/chat/completions"
	headers := map[string]string{"Authorization": "Bearer " + c.cfg.APIKey}
	raw, status, err := llm.SendJSON(ctx, c.http, endpoint, body, headers, c.logger)
	if err != nil {
		c.logger.Error("llm.extract.http_error",
			"req_id", rid, "status", status, "error", err,
			"elapsed_ms", time.Since(start).Milliseconds(),
		)
		return nil, err
	}

	var cc struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := json.Unmarshal(raw, &cc); err != nil {
		c.logger.Error("llm.extract.decode_error",
			"req_id", rid, "error", err, "raw_bytes", len(raw),
			"elapsed_ms", time.Since(start).Milliseconds(),
		)
		return nil, fmt.Errorf("decode openai response: %w", err)
	}
	if len(cc.Choices) == 0 {
		c.logger.Error("llm.extract.no_choices",
			"req_id", rid,
			"elapsed_ms", time.Since(start).Milliseconds(),
		)
		return nil, llm.Retryable(fmt.Errorf("no choices in openai response"))
	}

	value, err := llm.DecodeEnvelope(cc.Choices[0].Message.Content, req.Format, c.logger)
	if err != nil {
		c.logger.Error("llm.extract.envelope_error",
			"req_id", rid, "error", err,
			"elapsed_ms", time.Since(start).Milliseconds(),
		)
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
