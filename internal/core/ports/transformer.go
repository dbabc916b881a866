package ports

import (
	"context"
	"io"

	"go.trai.ch/kiln/internal/core/domain"
)

// Transformer applies an action to a job.
//
//go:generate mockgen -source=transformer.go -destination=mocks/mock_transformer.go -package=mocks
type Transformer interface {
	// Transform reads job.Input, writes job.Output and returns the files it read and wrote.
	// Diagnostics from external tools are written to log.
	Transform(ctx context.Context, job domain.Job, log io.Writer) (domain.Artifact, error)
}
