package transform_test

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.trai.ch/kiln/internal/core/domain"
	"go.trai.ch/kiln/internal/core/ports"
	"go.trai.ch/zerr"
	"go.uber.org/mock/gomock"
)

// fakeSass returns a Run implementation that writes css to the output argument.
func fakeSass(t *testing.T, css string, seen *ports.Command) func(context.Context, ports.Command, io.Writer) error {
	t.Helper()
	return func(_ context.Context, cmd ports.Command, out io.Writer) error {
		*seen = cmd
		_, _ = io.WriteString(out, "sass: compiled\n")
		output := cmd.Args[len(cmd.Args)-1]
		return os.WriteFile(output, []byte(css), domain.PrivateFilePerm)
	}
}

func TestStyleCompiler_Debug(t *testing.T) {
	p := newProject(t, map[string]string{"src/styles.scss": "@use 'partial';", "src/_partial.scss": ".a { color: red }"})
	d, runner := newDispatcher(t)

	var cmd ports.Command
	runner.EXPECT().Run(gomock.Any(), gomock.Any(), gomock.Any()).DoAndReturn(fakeSass(t, ".a {\n  color: red;\n}\n", &cmd))

	job := p.job(domain.ActionCompileStyle, "styles.scss", "styles.css", domain.ModeDebug)
	var log bytes.Buffer
	artifact, err := d.Transform(context.Background(), job, &log)
	require.NoError(t, err)

	assert.Equal(t, []string{job.Output}, artifact.Outputs)
	assert.Contains(t, p.read(t, "dist/styles.css"), "color: red")
	assert.Contains(t, log.String(), "sass: compiled")

	assert.Equal(t, "sass", cmd.Name)
	assert.Equal(t, filepath.Join(p.root, "src"), cmd.Dir)
	assert.Equal(t, []string{"PATH=" + filepath.Join(p.root, "node_modules", ".bin")}, cmd.Env)
	assert.Equal(t, []string{
		"--no-error-css",
		"--style=expanded",
		"--no-source-map",
		"--load-path=" + filepath.Join(p.root, "src"),
		"--load-path=" + filepath.Join(p.root, "node_modules"),
		job.Input,
	}, cmd.Args[:len(cmd.Args)-1])
}

func TestStyleCompiler_Release(t *testing.T) {
	p := newProject(t, map[string]string{"src/styles.scss": ".a { color: red }"})
	d, runner := newDispatcher(t)

	var cmd ports.Command
	runner.EXPECT().Run(gomock.Any(), gomock.Any(), gomock.Any()).DoAndReturn(fakeSass(t, ".a{color:red}\n.b{color:blue}\n", &cmd))

	job := p.job(domain.ActionCompileStyle, "styles.scss", "css/site.css", domain.ModeRelease)
	artifact, err := d.Transform(context.Background(), job, &bytes.Buffer{})
	require.NoError(t, err)

	assert.Equal(t, []string{job.Output, job.Output + ".map"}, artifact.Outputs)
	assert.Contains(t, cmd.Args, "--style=compressed")
	assert.Contains(t, cmd.Args, "--embed-source-map")

	out := p.read(t, "dist/css/site.css")
	assert.Contains(t, out, ".a{color:red}")
	assert.Contains(t, out, "/*# sourceMappingURL=site.css.map */")
	assert.FileExists(t, job.Output+".map")
}

func TestStyleCompiler_SassFailure(t *testing.T) {
	p := newProject(t, map[string]string{"src/styles.scss": ".a { color: $missing }"})
	d, runner := newDispatcher(t)

	runner.EXPECT().Run(gomock.Any(), gomock.Any(), gomock.Any()).
		Return(zerr.With(domain.ErrCommandFailed, "output", "Error: Undefined variable."))

	_, err := d.Transform(context.Background(), p.job(domain.ActionCompileStyle, "styles.scss", "styles.css", domain.ModeDebug), &bytes.Buffer{})
	require.Error(t, err)
	assert.ErrorContains(t, err, "command failed")
	assert.NoFileExists(t, filepath.Join(p.root, "dist", "styles.css"))
}

func TestStyleCompiler_NoOutput(t *testing.T) {
	p := newProject(t, map[string]string{"src/styles.scss": ""})
	d, runner := newDispatcher(t)

	runner.EXPECT().Run(gomock.Any(), gomock.Any(), gomock.Any()).Return(nil)

	_, err := d.Transform(context.Background(), p.job(domain.ActionCompileStyle, "styles.scss", "styles.css", domain.ModeDebug), &bytes.Buffer{})
	require.Error(t, err)
	assert.Equal(t, "sass produced no output", metadata(t, err)["reason"])
}
