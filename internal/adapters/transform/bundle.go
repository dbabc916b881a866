package transform

import (
	"context"
	"io"
	"path/filepath"
	"slices"
	"strings"

	"github.com/evanw/esbuild/pkg/api"
	"github.com/tidwall/gjson"
	"go.trai.ch/kiln/internal/core/domain"
)

// Bundler resolves an entry script's imports into a single browser script.
type Bundler struct{}

// NewBundler creates a new Bundler.
func NewBundler() *Bundler {
	return &Bundler{}
}

// Transform bundles job.Input into job.Output. The artifact lists every file the bundle read, so
// edits to imports outside the plan still invalidate it.
func (b *Bundler) Transform(_ context.Context, job domain.Job, log io.Writer) (domain.Artifact, error) {
	target, engines, err := resolveTargets(job.Toolchain.Targets)
	if err != nil {
		return domain.Artifact{}, err
	}

	opts := job.Options
	sourcemap := api.SourceMapNone
	if opts.SourceMaps {
		sourcemap = api.SourceMapLinked
	}

	workDir := filepath.Dir(job.Input)
	result := api.Build(api.BuildOptions{
		EntryPoints:       []string{job.Input},
		Outfile:           job.Output,
		AbsWorkingDir:     workDir,
		NodePaths:         job.Toolchain.LoadPaths,
		Bundle:            true,
		Write:             false,
		Metafile:          true,
		Format:            api.FormatIIFE,
		Platform:          api.PlatformBrowser,
		Target:            target,
		Engines:           engines,
		Loader:            scriptLoaders(),
		Sourcemap:         sourcemap,
		LegalComments:     legalComments(opts),
		MinifyWhitespace:  opts.Minify,
		MinifyIdentifiers: opts.Minify,
		MinifySyntax:      opts.Minify,
		LogLevel:          api.LogLevelSilent,
	})
	if err := reportMessages(log, result.Errors, result.Warnings); err != nil {
		return domain.Artifact{}, err
	}

	artifact := domain.Artifact{Inputs: metafileInputs(result.Metafile, workDir, job.Input)}
	for _, file := range result.OutputFiles {
		if err := writeFile(file.Path, file.Contents); err != nil {
			return domain.Artifact{}, err
		}
		artifact.Outputs = append(artifact.Outputs, file.Path)
	}
	slices.Sort(artifact.Outputs)
	return artifact, nil
}

// metafileInputs returns the absolute paths of the files esbuild read, minus the entry itself.
// Inputs in a plugin namespace have no file on disk and are left out.
func metafileInputs(metafile, workDir, entry string) []string {
	var inputs []string
	gjson.Get(metafile, "inputs").ForEach(func(key, _ gjson.Result) bool {
		name := key.String()
		if ns, _, ok := strings.Cut(name, ":"); ok && !filepath.IsAbs(name) && len(ns) > 1 {
			return true
		}
		path := name
		if !filepath.IsAbs(path) {
			path = filepath.Join(workDir, filepath.FromSlash(name))
		}
		if path != entry {
			inputs = append(inputs, path)
		}
		return true
	})
	slices.Sort(inputs)
	return inputs
}
