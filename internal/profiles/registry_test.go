package profiles

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/benefits-extractor/internal/common"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestLoadDir(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "acme.yaml"), []byte(validProfile), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "README.md"), []byte("ignored"), 0o600))

	reg, err := LoadDir(dir, discardLogger())
	require.NoError(t, err)
	assert.Equal(t, 1, reg.Len())

	p, err := reg.Get("acme")
	require.NoError(t, err)
	assert.Equal(t, "acme", p.ID)

	_, err = reg.Get("missing")
	assert.ErrorIs(t, err, common.ErrNotFound)
}

func TestLoadDir_BundledProfiles(t *testing.T) {
	reg, err := LoadDir(filepath.Join("..", "..", "configs", "profiles"), discardLogger())
	require.NoError(t, err)

	p, err := reg.Get("general")
	require.NoError(t, err)
	_, ok := p.Field("life_insurance", "schedule")
	assert.True(t, ok)
	_, ok = p.Field("dental_care", "basic_and_preventative")
	assert.True(t, ok)
}

func TestLoadDir_InvalidProfileFails(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "bad.yml"), []byte("benefit_headers: {}"), 0o600))

	_, err := LoadDir(dir, discardLogger())
	assert.ErrorIs(t, err, common.ErrConfig)
}

func TestNewRegistry_DuplicateID(t *testing.T) {
	a, err := Load("acme", []byte(validProfile))
	require.NoError(t, err)
	b, err := Load("acme", []byte(validProfile))
	require.NoError(t, err)

	_, err = NewRegistry(a, b)
	assert.ErrorIs(t, err, common.ErrConfig)
}

func TestRegistry_ListSorted(t *testing.T) {
	a, err := Load("zeta", []byte(validProfile[len("\ncompany: acme"):]))
	require.NoError(t, err)
	b, err := Load("acme", []byte(validProfile))
	require.NoError(t, err)

	reg, err := NewRegistry(a, b)
	require.NoError(t, err)
	list := reg.List()
	require.Len(t, list, 2)
	assert.Equal(t, "acme", list[0].ID)
	assert.Equal(t, "zeta", list[1].ID)
}
