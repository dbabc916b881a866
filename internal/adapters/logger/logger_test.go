package logger_test

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"testing"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.trai.ch/kiln/internal/adapters/logger"
	"go.trai.ch/kiln/internal/core/domain"
	"go.trai.ch/zerr"
)

// newTestLogger creates a logger writing to a buffer with colors disabled.
func newTestLogger(t *testing.T) (*logger.Logger, *bytes.Buffer) {
	t.Helper()
	t.Setenv("NO_COLOR", "1")

	buf := &bytes.Buffer{}
	lg := logger.New().(*logger.Logger)
	lg.SetOutput(buf)
	return lg, buf
}

func TestLogger_InfoWarn(t *testing.T) {
	lg, buf := newTestLogger(t)
	lg.Info("watching src")
	lg.Warn("notes.md matches no rule\nit is left out of the plan")

	g := goldie.New(t)
	g.Assert(t, "info_warn", buf.Bytes())
}

func TestLogger_Error(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		goldenName string
	}{
		{
			name:       "simple error",
			err:        os.ErrPermission,
			goldenName: "error_simple",
		},
		{
			name:       "multiline error",
			err:        errors.New("yaml: unmarshal errors:\n  line 3: field sourceRot not found"),
			goldenName: "error_multiline",
		},
		{
			name: "zerr chain",
			err: zerr.Wrap(
				zerr.Wrap(errors.New("unexpected end of file"), "transform failed"),
				"task execution failed",
			),
			goldenName: "error_chain_zerr",
		},
		{
			name: "stdlib chain is printed whole",
			err: fmt.Errorf("failed to start: %w",
				fmt.Errorf("listen tcp :18080: %w", errors.New("address already in use"))),
			goldenName: "error_chain_stdlib",
		},
		{
			name: "configuration error with metadata",
			err: func() error {
				err := zerr.With(domain.ErrDestinationCollision, "destination", "app.entry.js")
				err = zerr.With(err, "first_source", "app.entry.js (bundle)")
				return zerr.With(err, "second_source", "app.entry.jsx (transpile)")
			}(),
			goldenName: "error_collision",
		},
		{
			name: "metadata on a standard error",
			err:  zerr.With(errors.New("exit status 65"), "command", "sass"),
			goldenName: "error_metadata_stdlib",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			lg, buf := newTestLogger(t)
			lg.Error(tt.err)

			g := goldie.New(t)
			g.Assert(t, tt.goldenName, buf.Bytes())
		})
	}
}

func TestLogger_Error_Joined(t *testing.T) {
	lg, buf := newTestLogger(t)
	lg.Error(errors.Join(errors.New("first"), errors.New("second")))

	assert.Equal(t, "✗ Error: first\n✗ Error: second\n", buf.String())
}

func TestLogger_Error_Nil(t *testing.T) {
	lg, buf := newTestLogger(t)
	lg.Error(nil)

	assert.Empty(t, buf.String())
}

func TestLogger_SetJSON_WithErrorChain(t *testing.T) {
	err := zerr.With(zerr.Wrap(errors.New("no such file"), "failed to read source file"), "path", "page.html")

	lg, buf := newTestLogger(t)
	lg.SetJSON(true)
	lg.Error(err)

	output := buf.String()
	assert.Contains(t, output, `"level":"ERROR"`)
	assert.Contains(t, output, `"error":"failed to read source file: no such file"`)
	assert.Contains(t, output, `"path":"page.html"`)
	assert.NotContains(t, output, "✗")
}

func TestLogger_FormatSwitching(t *testing.T) {
	lg, buf := newTestLogger(t)

	lg.Error(errors.New("pretty"))
	pretty := buf.String()
	buf.Reset()

	lg.SetJSON(true)
	lg.Error(errors.New("json"))
	jsonOut := buf.String()
	buf.Reset()

	lg.SetJSON(false)
	lg.Error(errors.New("pretty again"))
	back := buf.String()

	assert.Contains(t, pretty, "✗")
	assert.Contains(t, jsonOut, `"error"`)
	assert.NotContains(t, jsonOut, "✗")
	assert.Contains(t, back, "✗")
}

func TestLogger_SetOutput_Nil(t *testing.T) {
	require.NotPanics(t, func() {
		lg := logger.New().(*logger.Logger)
		lg.SetOutput(nil)
	})
}

func TestLogger_ConcurrentAccess(t *testing.T) {
	lg, _ := newTestLogger(t)

	done := make(chan struct{}, 5)
	run := func(f func()) {
		go func() {
			f()
			done <- struct{}{}
		}()
	}

	run(func() { lg.Info("concurrent info") })
	run(func() { lg.Warn("concurrent warn") })
	run(func() { lg.Error(errors.New("concurrent error")) })
	run(func() { lg.SetJSON(true) })
	run(func() { lg.SetOutput(&bytes.Buffer{}) })

	for range 5 {
		<-done
	}
}
