package pipeline

import (
	"context"
	"strings"
	"sync/atomic"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/benefits-extractor/constants"
	"github.com/joseph-ayodele/benefits-extractor/internal/entity"
	"github.com/joseph-ayodele/benefits-extractor/internal/llm"
)

// The vision benefit sits under a heading the profile does not know.
const refillDoc = "Benefit Summary\nLIFE INSURANCE Flat $20,000\nDENTAL CARE Cleanings\n" +
	"EYE EXAMS and frames up to $250\nGeneral Provisions"

func TestRefill_MergesNewlyPresentValues(t *testing.T) {
	p := loadProfile(t)
	doc := entity.Document{ID: "d", Text: refillDoc}
	e := newEngine(stub(), 2)

	first, err := e.Run(t.Context(), doc, p)
	require.NoError(t, err)
	frames, _ := first.Field("vision_care", "frames")
	require.Equal(t, constants.ReasonHeaderNotFound, frames.Reason)

	// Header-not-found fields are left alone by default.
	same, err := e.Refill(t.Context(), doc, p, first, RefillOptions{})
	require.NoError(t, err)
	frames, _ = same.Field("vision_care", "frames")
	assert.False(t, frames.IsPresent())

	filled, err := e.Refill(t.Context(), doc, p, first, RefillOptions{IncludeUnmatched: true, BatchSize: 1})
	require.NoError(t, err)
	frames, _ = filled.Field("vision_care", "frames")
	assert.True(t, frames.IsPresent())
	assert.Equal(t, map[string]any{"maximum": "$250"}, frames.Value)
	assert.Equal(t, strings.Index(refillDoc, "Benefit Summary"), frames.Span.Start)

	// Header status and manifest are unchanged, and prev is untouched.
	vision, _ := filled.Category("vision_care")
	assert.False(t, vision.HeaderFound)
	assert.Equal(t, []string{"vision_care"}, filled.MissingHeaders)
	frames, _ = first.Field("vision_care", "frames")
	assert.False(t, frames.IsPresent())
}

func TestRefill_OnlyAbsentFieldsAreRequested(t *testing.T) {
	p := loadProfile(t)
	doc := entity.Document{ID: "d", Text: refillDoc}
	first, err := newEngine(stub(), 2).Run(t.Context(), doc, p)
	require.NoError(t, err)

	var calls atomic.Int64
	counting := llm.CapabilityFunc(func(ctx context.Context, req llm.ExtractRequest) (any, error) {
		calls.Add(1)
		assert.NotEqual(t, "schedule", req.FieldID)
		return nil, nil
	})
	_, err = newEngine(counting, 2).Refill(t.Context(), doc, p, first, RefillOptions{IncludeUnmatched: true})
	require.NoError(t, err)
	assert.Equal(t, int64(len(first.MissingFields())), calls.Load())
}

func TestRefill_RejectsForeignResult(t *testing.T) {
	p := loadProfile(t)
	_, err := newEngine(stub(), 1).Refill(t.Context(), entity.Document{}, p, &entity.Result{ProfileID: "other"}, RefillOptions{})
	assert.Error(t, err)
}

func TestRefill_ReadsLongRegionInWindows(t *testing.T) {
	doc := "Benefit Summary\nLIFE INSURANCE Flat $20,000\n" +
		strings.Repeat("Plan notes apply to every enrolled member.\n", 500) +
		"EYE EXAMS and frames up to $250\nGeneral Provisions"
	require.Greater(t, strings.Index(doc, "frames up to $250"), llm.MaxPromptTextBytes)

	p := loadProfile(t)
	first, err := newEngine(stub(), 2).Run(t.Context(), entity.Document{ID: "d", Text: doc}, p)
	require.NoError(t, err)

	var calls atomic.Int64
	checked := llm.CapabilityFunc(func(ctx context.Context, req llm.ExtractRequest) (any, error) {
		calls.Add(1)
		assert.LessOrEqual(t, len(req.Text), llm.MaxPromptTextBytes)
		assert.Zero(t, llm.DroppedBytes(req))
		return stub().Extract(ctx, req)
	})
	filled, err := newEngine(checked, 2).Refill(t.Context(), entity.Document{ID: "d", Text: doc}, p, first,
		RefillOptions{IncludeUnmatched: true})
	require.NoError(t, err)

	frames, _ := filled.Field("vision_care", "frames")
	require.True(t, frames.IsPresent())
	assert.Equal(t, map[string]any{"maximum": "$250"}, frames.Value)
	at := strings.Index(doc, "frames up to $250")
	assert.LessOrEqual(t, frames.Span.Start, at)
	assert.GreaterOrEqual(t, frames.Span.End, at+len("frames up to $250"))
	assert.Greater(t, frames.Span.Start, strings.Index(doc, "Benefit Summary"))

	// three absent fields, each tried until the last window
	assert.Greater(t, calls.Load(), int64(3))
}

func TestWindows(t *testing.T) {
	text := strings.Repeat("abcdefghi\n", 50)
	wins := windows(text, 100, 20)
	require.NotEmpty(t, wins)
	assert.Equal(t, 0, wins[0].start)
	assert.Equal(t, len(text), wins[len(wins)-1].end)
	for i, w := range wins {
		assert.LessOrEqual(t, w.end-w.start, 100)
		if i == len(wins)-1 {
			continue
		}
		assert.Equal(t, byte('\n'), text[w.end-1], "window %d ends on a line", i)
		assert.Less(t, wins[i+1].start, w.end, "windows %d and %d overlap", i, i+1)
		assert.Greater(t, wins[i+1].start, w.start)
	}

	wide := strings.Repeat("é", 100)
	for _, w := range windows(wide, 51, 10) {
		assert.True(t, utf8.ValidString(wide[w.start:w.end]))
		assert.LessOrEqual(t, w.end-w.start, 51)
	}

	assert.Equal(t, []window{{0, 5}}, windows("short", 100, 20))
}
