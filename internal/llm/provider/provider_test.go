package provider

import (
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/benefits-extractor/internal/common"
)

func TestNew(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	c, err := New(common.LLMConfig{Provider: "openai", APIKey: "k", RateLimit: 2, Burst: 1}, logger)
	require.NoError(t, err)
	assert.NotNil(t, c)

	c, err = New(common.LLMConfig{Provider: "ollama", BaseURL: "http://127.0.0.1:1"}, logger)
	require.NoError(t, err)
	assert.NotNil(t, c)

	_, err = New(common.LLMConfig{Provider: "carrier-pigeon"}, logger)
	assert.ErrorIs(t, err, common.ErrInvalidInput)
}
