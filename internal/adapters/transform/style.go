package transform

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/evanw/esbuild/pkg/api"
	"go.trai.ch/kiln/internal/core/domain"
	"go.trai.ch/kiln/internal/core/ports"
	"go.trai.ch/zerr"
)

// StyleCompiler compiles a stylesheet entry with the sass CLI and post-processes the CSS with
// esbuild for vendor prefixes and minification.
type StyleCompiler struct {
	runner ports.CommandRunner
}

// NewStyleCompiler creates a StyleCompiler that runs sass through runner.
func NewStyleCompiler(runner ports.CommandRunner) *StyleCompiler {
	return &StyleCompiler{runner: runner}
}

// Transform compiles job.Input into job.Output, plus a .map file when source maps are on.
func (s *StyleCompiler) Transform(ctx context.Context, job domain.Job, log io.Writer) (domain.Artifact, error) {
	target, engines, err := resolveTargets(job.Toolchain.Targets)
	if err != nil {
		return domain.Artifact{}, err
	}

	scratch, err := os.MkdirTemp("", "kiln-sass-*")
	if err != nil {
		return domain.Artifact{}, zerr.Wrap(err, domain.ErrTransformFailed.Error())
	}
	defer func() { _ = os.RemoveAll(scratch) }()

	compiled := filepath.Join(scratch, strings.TrimSuffix(filepath.Base(job.Output), ".css")+".css")
	if err := s.runner.Run(ctx, sassCommand(job, compiled), log); err != nil {
		return domain.Artifact{}, err
	}

	css, err := os.ReadFile(compiled)
	if err != nil {
		return domain.Artifact{}, zerr.With(zerr.Wrap(err, domain.ErrTransformFailed.Error()), "reason", "sass produced no output")
	}

	opts := job.Options
	sourcemap := api.SourceMapNone
	if opts.SourceMaps {
		sourcemap = api.SourceMapExternal
	}

	result := api.Transform(string(css), api.TransformOptions{
		Loader:           api.LoaderCSS,
		Sourcefile:       relativeSource(job.Input, job.Output),
		Sourcemap:        sourcemap,
		Target:           target,
		Engines:          engines,
		LegalComments:    legalComments(opts),
		MinifyWhitespace: opts.Minify,
		MinifySyntax:     opts.Minify,
		LogLevel:         api.LogLevelSilent,
	})
	if err := reportMessages(log, result.Errors, result.Warnings); err != nil {
		return domain.Artifact{}, err
	}

	artifact := domain.Artifact{Outputs: []string{job.Output}}
	out := result.Code
	if opts.SourceMaps {
		out = append(out, sourceMapComment(job.Output, true)...)
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

// sassCommand builds the sass CLI invocation writing to output.
// With source maps on, sass embeds its map so esbuild can chain it into the final one.
func sassCommand(job domain.Job, output string) ports.Command {
	args := []string{"--no-error-css"}
	if job.Options.Minify {
		args = append(args, "--style=compressed")
	} else {
		args = append(args, "--style=expanded")
	}
	if job.Options.SourceMaps {
		args = append(args, "--embed-source-map", "--embed-sources")
	} else {
		args = append(args, "--no-source-map")
	}
	for _, dir := range job.Toolchain.LoadPaths {
		args = append(args, "--load-path="+dir)
	}
	args = append(args, job.Input, output)

	var env []string
	if len(job.Toolchain.SearchPath) > 0 {
		env = append(env, "PATH="+strings.Join(job.Toolchain.SearchPath, string(os.PathListSeparator)))
	}

	return ports.Command{
		Name: job.Toolchain.SassBinary,
		Args: args,
		Dir:  filepath.Dir(job.Input),
		Env:  env,
	}
}
