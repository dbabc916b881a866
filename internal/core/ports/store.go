package ports

import "go.trai.ch/kiln/internal/core/domain"

// BuildInfoStore defines the interface for storing and retrieving build information.
//
//go:generate mockgen -source=store.go -destination=mocks/mock_store.go -package=mocks
type BuildInfoStore interface {
	// Get retrieves the build info for a destination.
	// Returns nil, nil if not found.
	Get(root, destination string) (*domain.BuildInfo, error)

	// Put stores the build info.
	Put(root string, info domain.BuildInfo) error

	// Delete forgets the build info of a destination.
	Delete(root, destination string) error

	// Close releases every open database.
	Close() error
}
