package openai

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/benefits-extractor/constants"
	"github.com/joseph-ayodele/benefits-extractor/internal/llm"
)

func newTestClient(t *testing.T, h http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return NewClient(Config{APIKey: "test-key", BaseURL: srv.URL, Model: "test-model"},
		slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func completion(content string) string {
	b, _ := json.Marshal(map[string]any{
		"choices": []any{map[string]any{"message": map[string]any{"content": content}}},
	})
	return string(b)
}

func TestClient_Extract(t *testing.T) {
	var got map[string]any
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = io.WriteString(w, completion(`{"value":"Flat $20,000"}`))
	})

	v, err := c.Extract(t.Context(), llm.ExtractRequest{
		CategoryID:  "life_insurance",
		FieldID:     "schedule",
		Text:        "Flat $20,000",
		Instruction: "Extract the schedule.",
		Format:      constants.FormatScalarString,
		Examples:    []any{"Flat $10,000"},
	})
	require.NoError(t, err)
	assert.Equal(t, "Flat $20,000", v)

	assert.Equal(t, "test-model", got["model"])
	msgs := got["messages"].([]any)
	require.Len(t, msgs, 2)
	user := msgs[1].(map[string]any)["content"].(string)
	assert.True(t, strings.Contains(user, "Extract the schedule."))
	assert.True(t, strings.Contains(user, `"Flat $10,000"`))
}

func TestClient_NullValue(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, completion(`{"value": null}`))
	})
	v, err := c.Extract(t.Context(), llm.ExtractRequest{Format: constants.FormatListOfString})
	require.NoError(t, err)
	assert.Nil(t, v)
}

func TestClient_RetryableStatuses(t *testing.T) {
	for _, status := range []int{http.StatusTooManyRequests, http.StatusBadGateway} {
		c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(status)
		})
		_, err := c.Extract(t.Context(), llm.ExtractRequest{Format: constants.FormatScalarString})
		require.Error(t, err)
		assert.True(t, llm.IsRetryable(err), "status %d", status)
		assert.False(t, errors.Is(err, llm.ErrUnavailable))
	}
}

func TestClient_BadRequestIsPermanent(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "bad", http.StatusBadRequest)
	})
	_, err := c.Extract(t.Context(), llm.ExtractRequest{Format: constants.FormatScalarString})
	require.Error(t, err)
	assert.False(t, llm.IsRetryable(err))
}

func TestClient_UnreachableIsUnavailable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	c := NewClient(Config{APIKey: "k", BaseURL: url}, slog.New(slog.NewTextHandler(io.Discard, nil)))
	_, err := c.Extract(t.Context(), llm.ExtractRequest{Format: constants.FormatScalarString})
	require.Error(t, err)
	assert.True(t, llm.IsRetryable(err))
	assert.ErrorIs(t, err, llm.ErrUnavailable)
}
