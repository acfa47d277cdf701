package ingest

import (
	"context"
	"fmt"
	"io/fs"
	"path/filepath"
	"strings"

	"github.com/joseph-ayodele/benefits-extractor/constants"
	"github.com/joseph-ayodele/benefits-extractor/internal/common"
	"github.com/joseph-ayodele/benefits-extractor/internal/entity"
)

// FileResult is the outcome of loading one file during a directory walk.
type FileResult struct {
	Path     string
	Document *entity.Document
	Err      error
}

// DirStats aggregates a directory walk.
type DirStats struct {
	Scanned   uint32
	Matched   uint32
	Succeeded uint32
	Failed    uint32
}

// DirOptions filters a directory walk. Empty Extensions means every
// supported extension.
type DirOptions struct {
	Extensions []string
	SkipHidden bool
}

// LoadDirectory walks root, loads every matching file and hands each result
// to fn in walk order. A load failure is reported through fn and the walk
// continues; an error returned by fn stops it.
func (l *Loader) LoadDirectory(ctx context.Context, root string, opts DirOptions, fn func(FileResult) error) (DirStats, error) {
	var stats DirStats
	if strings.TrimSpace(root) == "" {
		return stats, common.InvalidArgumentError("root path is required")
	}
	exts := extensionSet(opts.Extensions)

	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, walkErr error) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		stats.Scanned++
		if walkErr != nil {
			if path == root {
				return walkErr
			}
			stats.Failed++
			return fn(FileResult{Path: path, Err: walkErr})
		}
		if opts.SkipHidden && path != root && IsHidden(path) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() || !matches(path, exts) {
			return nil
		}
		stats.Matched++

		doc, err := l.LoadFile(ctx, path)
		if err != nil {
			stats.Failed++
			l.logger.Warn("ingest.directory.file_failed", "path", path, "error", err)
			return fn(FileResult{Path: path, Err: err})
		}
		stats.Succeeded++
		return fn(FileResult{Path: path, Document: doc})
	})
	if err != nil {
		return stats, fmt.Errorf("walk %s: %w", root, err)
	}
	l.logger.Info("ingest.directory.done",
		"root", root,
		"scanned", stats.Scanned,
		"matched", stats.Matched,
		"succeeded", stats.Succeeded,
		"failed", stats.Failed,
	)
	return stats, nil
}

// IsHidden checks if a file or directory is hidden (starts with '.').
func IsHidden(path string) bool {
	return strings.HasPrefix(filepath.Base(path), ".")
}

func extensionSet(list []string) map[string]struct{} {
	if len(list) == 0 {
		return constants.AllowedExtensions
	}
	exts := make(map[string]struct{}, len(list))
	for _, e := range list {
		e = constants.NormalizeExt(strings.TrimSpace(e))
		if _, ok := constants.AllowedExtensions[e]; ok {
			exts[e] = struct{}{}
		}
	}
	return exts
}

func matches(path string, exts map[string]struct{}) bool {
	_, ok := exts[constants.NormalizeExt(filepath.Ext(path))]
	return ok
}
