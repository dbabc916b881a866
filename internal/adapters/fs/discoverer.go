// Package fs provides file system adapters for discovering, hashing and resolving files.
package fs

import (
	"context"
	"io/fs"
	"iter"
	"path/filepath"
	"slices"
	"strings"

	"go.trai.ch/kiln/internal/core/domain"
	"go.trai.ch/kiln/internal/core/ports"
	"go.trai.ch/zerr"
)

var _ ports.Discoverer = (*Walker)(nil)

// Walker walks a source tree.
type Walker struct{}

// NewWalker creates a new Walker.
func NewWalker() *Walker {
	return &Walker{}
}

// Discover returns every regular file under root that no ignore glob matches, sorted by path.
// A directory whose relative path matches an ignore glob is skipped entirely.
func (w *Walker) Discover(ctx context.Context, root string, ignore []string) ([]domain.SourceFile, error) {
	patterns, err := domain.CompilePatterns(ignore)
	if err != nil {
		return nil, err
	}

	var files []domain.SourceFile
	walkErr := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}

		if path == root {
			return nil
		}

		rel, relErr := filepath.Rel(root, path)
		if relErr != nil {
			return relErr
		}
		rel = filepath.ToSlash(rel)

		if d.IsDir() {
			if IsSkippedDir(d.Name()) || domain.MatchAny(patterns, rel) {
				return filepath.SkipDir
			}
			return nil
		}

		if !d.Type().IsRegular() || domain.MatchAny(patterns, rel) {
			return nil
		}

		files = append(files, domain.NewSourceFile(rel))
		return nil
	})
	if walkErr != nil {
		return nil, zerr.With(zerr.Wrap(walkErr, domain.ErrWalkFailed.Error()), "root", root)
	}

	slices.SortFunc(files, func(a, b domain.SourceFile) int {
		return strings.Compare(a.String(), b.String())
	})
	return files, nil
}

// WalkFiles yields every regular file below root as an absolute path, skipping version control
// metadata and node_modules.
func (w *Walker) WalkFiles(root string) iter.Seq[string] {
	return func(yield func(string) bool) {
		_ = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return nil //nolint:nilerr // unreadable entries are skipped
			}
			if d.IsDir() {
				if path != root && IsSkippedDir(d.Name()) {
					return filepath.SkipDir
				}
				return nil
			}
			if !d.Type().IsRegular() {
				return nil
			}
			if !yield(path) {
				return filepath.SkipAll
			}
			return nil
		})
	}
}

// IsSkippedDir reports whether a directory with the given base name is never descended into.
func IsSkippedDir(name string) bool {
	return slices.Contains(domain.SkippedDirs(), name)
}
