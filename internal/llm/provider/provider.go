// Package provider builds the configured extraction capability.
package provider

import (
	"log/slog"

	"golang.org/x/time/rate"

	"github.com/joseph-ayodele/benefits-extractor/internal/common"
	"github.com/joseph-ayodele/benefits-extractor/internal/llm"
	"github.com/joseph-ayodele/benefits-extractor/internal/llm/ollama"
	"github.com/joseph-ayodele/benefits-extractor/internal/llm/openai"
)

// New returns a rate-limited capability for cfg.Provider.
func New(cfg common.LLMConfig, logger *slog.Logger) (llm.Capability, error) {
	var c llm.Capability
	switch cfg.Provider {
	case "openai", "":
		c = openai.NewClient(openai.Config{
			APIKey:      cfg.APIKey,
			BaseURL:     cfg.BaseURL,
			Model:       cfg.Model,
			Temperature: cfg.Temperature,
			Timeout:     cfg.Timeout,
		}, logger)
	case "ollama":
		oc, err := ollama.NewClient(ollama.Config{
			BaseURL:     cfg.BaseURL,
			Model:       cfg.Model,
			Temperature: cfg.Temperature,
			Timeout:     cfg.Timeout,
		}, logger)
		if err != nil {
			return nil, err
		}
		c = oc
	default:
		return nil, common.InvalidArgumentErrorf("unknown llm provider %q", cfg.Provider)
	}

	if cfg.RateLimit > 0 {
		burst := cfg.Burst
		if burst <= 0 {
			burst = 1
		}
		c = llm.WithRateLimit(c, rate.NewLimiter(rate.Limit(cfg.RateLimit), burst))
	}
	logger.Info("llm.provider.ready", "provider", cfg.Provider, "model", cfg.Model, "rate_limit", cfg.RateLimit)
	return c, nil
}

