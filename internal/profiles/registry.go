package profiles

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/joseph-ayodele/benefits-extractor/internal/common"
)

// Registry is the process-wide set of loaded profiles keyed by company id.
// It is filled once and only read afterwards.
type Registry struct {
	byID map[string]*CompanyProfile
	ids  []string
}

// NewRegistry builds a registry, rejecting duplicate ids.
func NewRegistry(ps ...*CompanyProfile) (*Registry, error) {
	r := &Registry{byID: make(map[string]*CompanyProfile, len(ps))}
	for _, p := range ps {
		if p == nil {
			continue
		}
		if _, dup := r.byID[p.ID]; dup {
			return nil, &ConfigError{Profile: p.ID, Cause: errors.New("duplicate profile id")}
		}
		r.byID[p.ID] = p
		r.ids = append(r.ids, p.ID)
	}
	sort.Strings(r.ids)
	return r, nil
}

// LoadDir loads every .yaml, .yml and .json file in dir. Any invalid profile
// fails the whole load so a bad file never goes unnoticed.
func LoadDir(dir string, logger *slog.Logger) (*Registry, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read profiles dir: %w", err)
	}

	var (
		loaded []*CompanyProfile
		errs   []error
	)
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		switch strings.ToLower(filepath.Ext(e.Name())) {
		case ".yaml", ".yml", ".json":
		default:
			continue
		}
		path := filepath.Join(dir, e.Name())
		p, err := LoadFile(path)
		if err != nil {
			logger.Error("profiles.load.failed", "path", path, "err", err)
			errs = append(errs, err)
			continue
		}
		logger.Info("profiles.load.ok", "profile_id", p.ID, "path", path,
			"categories", len(p.Categories), "fields", p.FieldCount())
		loaded = append(loaded, p)
	}
	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	return NewRegistry(loaded...)
}

// Get returns the profile with id or a not-found error.
func (r *Registry) Get(id string) (*CompanyProfile, error) {
	p, ok := r.byID[id]
	if !ok {
		return nil, common.NotFoundError(fmt.Sprintf("profile %q not found", id))
	}
	return p, nil
}

// List returns all profiles sorted by id.
func (r *Registry) List() []*CompanyProfile {
	out := make([]*CompanyProfile, 0, len(r.ids))
	for _, id := range r.ids {
		out = append(out, r.byID[id])
	}
	return out
}

// Len is the number of registered profiles.
func (r *Registry) Len() int { return len(r.ids) }
