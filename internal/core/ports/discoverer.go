package ports

import (
	"context"

	"go.trai.ch/kiln/internal/core/domain"
)

// Discoverer enumerates the source tree.
//
//go:generate mockgen -source=discoverer.go -destination=mocks/mock_discoverer.go -package=mocks
type Discoverer interface {
	// Discover returns every regular file under root whose relative path matches none of the
	// ignore globs, sorted by path. Version control metadata and node_modules are always skipped.
	Discover(ctx context.Context, root string, ignore []string) ([]domain.SourceFile, error)
}
