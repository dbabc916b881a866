// Package transform implements the per-action compilers behind ports.Transformer.
package transform

import (
	"context"
	"io"

	"go.trai.ch/kiln/internal/core/domain"
	"go.trai.ch/kiln/internal/core/ports"
	"go.trai.ch/zerr"
)

var _ ports.Transformer = (*Dispatcher)(nil)

// Dispatcher routes a job to the compiler for its action.
type Dispatcher struct {
	copier  *Copier
	scripts *ScriptTranspiler
	bundler *Bundler
	styles  *StyleCompiler
}

// NewDispatcher creates a Dispatcher whose style compiler runs sass through runner.
func NewDispatcher(runner ports.CommandRunner) *Dispatcher {
	return &Dispatcher{
		copier:  NewCopier(),
		scripts: NewScriptTranspiler(),
		bundler: NewBundler(),
		styles:  NewStyleCompiler(runner),
	}
}

// Transform runs the compiler for job.Task.Action.
func (d *Dispatcher) Transform(ctx context.Context, job domain.Job, log io.Writer) (domain.Artifact, error) {
	if err := ctx.Err(); err != nil {
		return domain.Artifact{}, err
	}

	switch job.Task.Action {
	case domain.ActionCopy, domain.ActionPassThrough:
		return d.copier.Transform(ctx, job, log)
	case domain.ActionTranspile:
		return d.scripts.Transform(ctx, job, log)
	case domain.ActionBundle:
		return d.bundler.Transform(ctx, job, log)
	case domain.ActionCompileStyle:
		return d.styles.Transform(ctx, job, log)
	default:
		return domain.Artifact{}, zerr.With(domain.ErrUnsupportedAction, "action", job.Task.Action.String())
	}
}
