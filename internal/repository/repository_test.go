package repository

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/benefits-extractor/constants"
	"github.com/joseph-ayodele/benefits-extractor/internal/common"
	"github.com/joseph-ayodele/benefits-extractor/internal/entity"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func sampleResult() *entity.Result {
	return &entity.Result{
		ProfileID:  "acme",
		DocumentID: "doc-1",
		Categories: []entity.CategoryResult{{
			ID:          "life_insurance",
			HeaderFound: true,
			Fields: []entity.FieldValue{
				entity.Present("schedule", constants.FormatScalarString, "Flat $10,000", nil),
			},
		}},
		MissingHeaders: []string{"vision_care"},
	}
}

// exerciseRepository runs the shared contract against any store.
func exerciseRepository(t *testing.T, repo ExtractionRepository) {
	ctx := t.Context()
	base := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

	first := entity.NewExtractionRecord("doc-1", "acme", "plan.pdf", "abc", base)
	require.NoError(t, repo.Save(ctx, first))

	got, err := repo.Get(ctx, "doc-1")
	require.NoError(t, err)
	assert.Equal(t, first.ID, got.ID)
	assert.Equal(t, constants.RunStatusPending, got.Status)
	assert.Nil(t, got.Result)
	assert.True(t, base.Equal(got.CreatedAt))

	first.Status = constants.RunStatusCompleted
	first.Result = sampleResult()
	first.UpdatedAt = base.Add(time.Minute)
	require.NoError(t, repo.Save(ctx, first))

	got, err = repo.Get(ctx, "doc-1")
	require.NoError(t, err)
	assert.Equal(t, constants.RunStatusCompleted, got.Status)
	require.NotNil(t, got.Result)
	assert.Equal(t, []string{"vision_care"}, got.Result.MissingHeaders)
	fv, ok := got.Result.Field("life_insurance", "schedule")
	require.True(t, ok)
	assert.Equal(t, "Flat $10,000", fv.Value)

	msg := "capability unavailable"
	second := entity.NewExtractionRecord("doc-2", "globex", "other.txt", "def", base.Add(time.Hour))
	second.Status = constants.RunStatusFailed
	second.Error = &msg
	require.NoError(t, repo.Save(ctx, second))

	all, err := repo.List(ctx, "")
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "doc-2", all[0].DocumentID, "newest first")
	require.NotNil(t, all[0].Error)
	assert.Equal(t, msg, *all[0].Error)

	acme, err := repo.List(ctx, "acme")
	require.NoError(t, err)
	require.Len(t, acme, 1)
	assert.Equal(t, "doc-1", acme[0].DocumentID)

	none, err := repo.List(ctx, "initech")
	require.NoError(t, err)
	assert.Empty(t, none)

	require.NoError(t, repo.Delete(ctx, "doc-1"))
	_, err = repo.Get(ctx, "doc-1")
	assert.ErrorIs(t, err, common.ErrNotFound)
	assert.ErrorIs(t, repo.Delete(ctx, "doc-1"), common.ErrNotFound)

	err = repo.Save(ctx, &entity.ExtractionRecord{ProfileID: "acme", Status: constants.RunStatusPending})
	assert.ErrorIs(t, err, common.ErrValidation)
}

func TestSQLiteRepository(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "extractions.db")
	repo, err := NewSQLite(t.Context(), path, quietLogger())
	require.NoError(t, err)
	t.Cleanup(func() { _ = repo.Close() })

	exerciseRepository(t, repo)
	assert.NoError(t, HealthCheck(t.Context(), repo, time.Second))
}

func TestSQLiteReopenKeepsRecords(t *testing.T) {
	path := filepath.Join(t.TempDir(), "extractions.db")
	repo, err := NewSQLite(t.Context(), path, quietLogger())
	require.NoError(t, err)
	require.NoError(t, repo.Save(t.Context(), entity.NewExtractionRecord("doc-9", "acme", "", "", time.Now())))
	require.NoError(t, repo.Close())

	repo, err = Open(t.Context(), common.DatabaseConfig{DSN: path}, quietLogger())
	require.NoError(t, err)
	defer repo.Close()
	got, err := repo.Get(t.Context(), "doc-9")
	require.NoError(t, err)
	assert.Equal(t, "acme", got.ProfileID)
}

func TestPostgresRepository(t *testing.T) {
	dsn := os.Getenv("BENEFITS_TEST_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("BENEFITS_TEST_POSTGRES_DSN not set")
	}
	ctx, cancel := context.WithTimeout(t.Context(), 30*time.Second)
	defer cancel()

	repo, err := Open(ctx, common.DatabaseConfig{DSN: dsn, DialTimeout: 5 * time.Second}, quietLogger())
	require.NoError(t, err)
	t.Cleanup(func() { _ = repo.Close() })
	for _, id := range []string{"doc-1", "doc-2"} {
		_ = repo.Delete(ctx, id)
	}

	exerciseRepository(t, repo)
}
