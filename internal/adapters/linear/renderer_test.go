package linear_test

import (
	"bytes"
	"errors"
	"testing"
	"time"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.trai.ch/kiln/internal/adapters/detector"
	"go.trai.ch/kiln/internal/adapters/linear"
	"go.trai.ch/kiln/internal/core/domain"
	"go.trai.ch/kiln/internal/ui/output"
	"go.trai.ch/zerr"
)

func newRenderer(t *testing.T, kind output.Kind) (*linear.Renderer, *bytes.Buffer, *bytes.Buffer) {
	t.Helper()
	t.Setenv("NO_COLOR", "1")
	var stdout, stderr bytes.Buffer
	return linear.NewRenderer(&stdout, &stderr, kind), &stdout, &stderr
}

func TestRenderer_TaskLifecycle(t *testing.T) {
	r, stdout, stderr := newRenderer(t, output.Interactive)
	require.NoError(t, r.Start(t.Context()))

	r.OnPlanEmit([]string{"css/main.css", "js/app.js"})
	assert.Equal(t, "Building 2 destination(s)\n", stderr.String())
	stderr.Reset()

	start := time.Now()
	r.OnTaskStart("span1", "", "css/main.css", start)
	r.OnTaskLog("span1", []byte("first line\n"))
	r.OnTaskLog("span1", []byte("second line\r\n"))
	assert.Equal(t, "[css/main.css] first line\n[css/main.css] second line\n", stdout.String())

	r.OnTaskComplete("span1", start.Add(100*time.Millisecond), nil, false)
	assert.Equal(t, "✓ css/main.css (100ms)\n", stderr.String())

	require.NoError(t, r.Stop())
	require.NoError(t, r.Wait())
}

func TestRenderer_EmptyPlan(t *testing.T) {
	r, _, stderr := newRenderer(t, output.Plain)
	r.OnPlanEmit(nil)
	assert.Equal(t, "Nothing to build\n", stderr.String())
}

func TestRenderer_PartialLines(t *testing.T) {
	r, stdout, _ := newRenderer(t, output.Plain)

	start := time.Now()
	r.OnTaskStart("span1", "", "task1", start)

	r.OnTaskLog("span1", []byte("partial"))
	assert.Empty(t, stdout.String(), "partial lines are held back")

	r.OnTaskLog("span1", []byte(" line\nnext"))
	assert.Equal(t, "[task1] partial line\n", stdout.String())

	r.OnTaskComplete("span1", start, nil, false)
	assert.Equal(t, "[task1] partial line\n[task1] next\n", stdout.String())
}

func TestRenderer_StopFlushesPartialLines(t *testing.T) {
	r, stdout, _ := newRenderer(t, output.Plain)

	r.OnTaskStart("span1", "", "task1", time.Now())
	r.OnTaskLog("span1", []byte("unterminated"))
	require.NoError(t, r.Stop())

	assert.Equal(t, "[task1] unterminated\n", stdout.String())
}

func TestRenderer_UnknownSpan(t *testing.T) {
	r, stdout, stderr := newRenderer(t, output.Plain)

	r.OnTaskLog("missing", []byte("dropped\n"))
	r.OnTaskComplete("missing", time.Now(), nil, false)

	assert.Empty(t, stdout.String())
	assert.Empty(t, stderr.String())
}

func TestRenderer_Failure(t *testing.T) {
	r, _, stderr := newRenderer(t, output.Interactive)

	start := time.Now()
	r.OnTaskStart("span1", "", "js/app.js", start)
	r.OnTaskComplete("span1", start.Add(2*time.Second), errors.New("transform failed"), false)

	assert.Equal(t, "✗ js/app.js (2s): transform failed\n", stderr.String())
}

func TestRenderer_CachedTasks(t *testing.T) {
	tests := []struct {
		name string
		kind output.Kind
		want string
	}{
		{name: "interactive hides cached tasks", kind: output.Interactive, want: ""},
		{name: "plain lists cached tasks", kind: output.Plain, want: "~ img/logo.png (cached)\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, _, stderr := newRenderer(t, tt.kind)

			start := time.Now()
			r.OnTaskStart("span1", "", "img/logo.png", start)
			r.OnTaskComplete("span1", start, nil, true)

			assert.Equal(t, tt.want, stderr.String())
		})
	}
}

func TestRenderer_BuildComplete(t *testing.T) {
	tests := []struct {
		name   string
		report *domain.BuildReport
	}{
		{
			name:   "success",
			report: &domain.BuildReport{Built: 4, Cached: 12, Duration: 830 * time.Millisecond},
		},
		{
			name: "failures",
			report: &domain.BuildReport{
				Built:    3,
				Cached:   2,
				Duration: 1250 * time.Millisecond,
				Failures: []domain.TaskFailure{
					{
						Source:      "js/app.js",
						Destination: "js/app.js",
						Action:      domain.ActionBundle,
						Err:         zerr.With(zerr.New("transform failed"), "line", 3),
					},
					{
						Source:      "scss/main.scss",
						Destination: "css/main.css",
						Action:      domain.ActionCompileStyle,
						Err:         errors.New("sass exited\nstatus 65"),
					},
				},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, stdout, stderr := newRenderer(t, output.Plain)
			r.OnBuildComplete(tt.report)

			assert.Empty(t, stdout.String())
			g := goldie.New(t)
			g.Assert(t, "build_complete_"+tt.name, stderr.Bytes())
		})
	}
}

func TestRenderer_BuildCompleteNil(t *testing.T) {
	r, _, stderr := newRenderer(t, output.Plain)
	r.OnBuildComplete(nil)
	assert.Empty(t, stderr.String())
}

func TestForMode(t *testing.T) {
	t.Setenv("NO_COLOR", "1")

	tests := []struct {
		mode detector.OutputMode
		want string
	}{
		{mode: detector.ModePlain, want: "~ a.html (cached)\n"},
		{mode: detector.ModePretty, want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.mode.String(), func(t *testing.T) {
			var stdout, stderr bytes.Buffer
			r := linear.ForMode(&stdout, &stderr, tt.mode)

			now := time.Now()
			r.OnTaskStart("1", "", "a.html", now)
			r.OnTaskComplete("1", now, nil, true)

			assert.Equal(t, tt.want, stderr.String())
			assert.Empty(t, stdout.String())
		})
	}
}
