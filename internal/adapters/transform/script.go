package transform

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/evanw/esbuild/pkg/api"
	"go.trai.ch/kiln/internal/core/domain"
)

// ScriptTranspiler compiles one modern script file to plain JavaScript without bundling it.
type ScriptTranspiler struct{}

// NewScriptTranspiler creates a new ScriptTranspiler.
func NewScriptTranspiler() *ScriptTranspiler {
	return &ScriptTranspiler{}
}

// Transform transpiles job.Input into job.Output, plus a .map file when source maps are on.
func (s *ScriptTranspiler) Transform(_ context.Context, job domain.Job, log io.Writer) (domain.Artifact, error) {
	code, err := os.ReadFile(job.Input)
	if err != nil {
		return domain.Artifact{}, readError(err, job.Input)
	}

	target, engines, err := resolveTargets(job.Toolchain.Targets)
	if err != nil {
		return domain.Artifact{}, err
	}

	opts := job.Options
	sourcemap := api.SourceMapNone
	if opts.SourceMaps {
		sourcemap = api.SourceMapExternal
	}

	result := api.Transform(string(code), api.TransformOptions{
		Loader:            loaderFor(strings.ToLower(filepath.Ext(job.Input))),
		Sourcefile:        relativeSource(job.Input, job.Output),
		Sourcemap:         sourcemap,
		Target:            target,
		Engines:           engines,
		LegalComments:     legalComments(opts),
		MinifyWhitespace:  opts.Minify,
		MinifyIdentifiers: opts.Minify,
		MinifySyntax:      opts.Minify,
		LogLevel:          api.LogLevelSilent,
	})
	if err := reportMessages(log, result.Errors, result.Warnings); err != nil {
		return domain.Artifact{}, err
	}

	artifact := domain.Artifact{Outputs: []string{job.Output}}
	out := result.Code
	if opts.SourceMaps {
		out = append(out, sourceMapComment(job.Output, false)...)
		mapPath := job.Output + ".map"
		if err := writeFile(mapPath, result.Map); err != nil {
			return domain.Artifact{}, err
		}
		artifact.Outputs = append(artifact.Outputs, mapPath)
	}

	if err := writeFile(job.Output, out); err != nil {
		return domain.Artifact{}, err
	}
	return artifact, nil
}
