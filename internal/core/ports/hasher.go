package ports

import "go.trai.ch/kiln/internal/core/domain"

// Hasher defines the interface for computing hashes.
//
//go:generate mockgen -source=hasher.go -destination=mocks/mock_hasher.go -package=mocks
type Hasher interface {
	// ComputeInputHash hashes the job's action, options, toolchain, source, satellites and the
	// extra inputs recorded by a previous run.
	ComputeInputHash(job domain.Job, extra []string) (string, error)

	// ComputeOutputHash hashes the contents of the given files.
	ComputeOutputHash(outputs []string) (string, error)
}
