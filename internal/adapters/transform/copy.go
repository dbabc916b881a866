package transform

import (
	"context"
	"io"
	"os"

	"go.trai.ch/kiln/internal/core/domain"
)

// Copier copies a source byte for byte.
type Copier struct{}

// NewCopier creates a new Copier.
func NewCopier() *Copier {
	return &Copier{}
}

// Transform copies job.Input to job.Output.
func (c *Copier) Transform(_ context.Context, job domain.Job, _ io.Writer) (domain.Artifact, error) {
	src, err := os.Open(job.Input)
	if err != nil {
		return domain.Artifact{}, readError(err, job.Input)
	}
	defer src.Close() //nolint:errcheck // read only

	if err := writeFrom(job.Output, src); err != nil {
		return domain.Artifact{}, err
	}
	return domain.Artifact{Outputs: []string{job.Output}}, nil
}
