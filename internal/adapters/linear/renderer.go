// Package linear provides a synchronous, line-buffered renderer for terminals and CI logs.
package linear

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"maps"
	"os"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/lipgloss"
	"go.trai.ch/kiln/internal/core/domain"
	"go.trai.ch/kiln/internal/core/ports"
	"go.trai.ch/kiln/internal/ui/output"
	"go.trai.ch/kiln/internal/ui/style"
)

var _ ports.Renderer = (*Renderer)(nil)

// Renderer implements ports.Renderer with chronological, prefixed lines.
// Task output goes to stdout; status lines and the build summary go to stderr.
type Renderer struct {
	stdout io.Writer
	stderr io.Writer
	kind   output.Kind
	styles styles

	mu      sync.Mutex
	tasks   map[string]*taskState // spanID -> task state
	buffers map[string]*bytes.Buffer
}

type taskState struct {
	name      string
	startTime time.Time
}

type styles struct {
	faint   lipgloss.Style
	name    lipgloss.Style
	success lipgloss.Style
	failure lipgloss.Style
	cached  lipgloss.Style
	heading lipgloss.Style
}

func newStyles(r *lipgloss.Renderer) styles {
	return styles{
		faint:   r.NewStyle().Faint(true),
		name:    r.NewStyle().Foreground(style.Ember),
		success: r.NewStyle().Foreground(style.Green),
		failure: r.NewStyle().Foreground(style.Red),
		cached:  r.NewStyle().Foreground(style.Slate).Faint(true),
		heading: r.NewStyle().Bold(true),
	}
}

// NewRenderer creates a renderer writing to stdout and stderr, or to the process streams when nil.
// Plain output uses basic ANSI colors and reports every task, including cached ones.
func NewRenderer(stdout, stderr io.Writer, kind output.Kind) *Renderer {
	if stdout == nil {
		stdout = os.Stdout
	}
	if stderr == nil {
		stderr = os.Stderr
	}

	lr := lipgloss.NewRenderer(stderr)
	lr.SetColorProfile(output.Profile(kind))

	return &Renderer{
		stdout:  stdout,
		stderr:  stderr,
		kind:    kind,
		styles:  newStyles(lr),
		tasks:   make(map[string]*taskState),
		buffers: make(map[string]*bytes.Buffer),
	}
}

// Start is a no-op for linear renderer (synchronous).
func (r *Renderer) Start(_ context.Context) error {
	return nil
}

// Stop flushes all remaining buffers.
func (r *Renderer) Stop() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, spanID := range slices.Sorted(maps.Keys(r.buffers)) {
		r.flushBufferLocked(spanID)
	}
	return nil
}

// Wait is a no-op for linear renderer (synchronous).
func (r *Renderer) Wait() error {
	return nil
}

// OnPlanEmit prints the number of destinations about to be built.
func (r *Renderer) OnPlanEmit(tasks []string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	msg := fmt.Sprintf("Building %d destination(s)", len(tasks))
	if len(tasks) == 0 {
		msg = "Nothing to build"
	}
	_, _ = fmt.Fprintln(r.stderr, r.styles.faint.Render(msg))
}

// OnTaskStart records the task so its output can be prefixed.
func (r *Renderer) OnTaskStart(spanID, _ /* parentID */, name string, startTime time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.tasks[spanID] = &taskState{
		name:      name,
		startTime: startTime,
	}
	r.buffers[spanID] = new(bytes.Buffer)
}

// OnTaskLog buffers log data and prints complete lines with the task prefix.
func (r *Renderer) OnTaskLog(spanID string, data []byte) {
	r.mu.Lock()
	defer r.mu.Unlock()

	task, ok := r.tasks[spanID]
	if !ok {
		return
	}

	buf := r.buffers[spanID]
	buf.Write(data)

	for {
		idx := bytes.IndexByte(buf.Bytes(), '\n')
		if idx < 0 {
			break
		}
		r.printLineLocked(task.name, buf.Next(idx+1))
	}
}

// OnTaskComplete flushes the remaining output and prints the task status.
// Cached tasks are only reported by plain output.
func (r *Renderer) OnTaskComplete(spanID string, endTime time.Time, err error, cached bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	task, ok := r.tasks[spanID]
	if !ok {
		return
	}

	r.flushBufferLocked(spanID)
	delete(r.tasks, spanID)
	delete(r.buffers, spanID)

	duration := endTime.Sub(task.startTime).Round(time.Millisecond)
	name := r.styles.name.Render(task.name)

	switch {
	case err != nil:
		_, _ = fmt.Fprintf(r.stderr, "%s %s %s: %v\n",
			r.styles.failure.Render(style.Cross), name, r.styles.faint.Render(fmt.Sprintf("(%v)", duration)), err)
	case cached:
		if r.kind == output.Plain {
			_, _ = fmt.Fprintf(r.stderr, "%s %s\n",
				r.styles.cached.Render(style.Cached), r.styles.cached.Render(task.name+" (cached)"))
		}
	default:
		_, _ = fmt.Fprintf(r.stderr, "%s %s %s\n",
			r.styles.success.Render(style.Check), name, r.styles.faint.Render(fmt.Sprintf("(%v)", duration)))
	}
}

// OnBuildComplete prints the totals of a build followed by every failure with its source,
// action and message.
func (r *Renderer) OnBuildComplete(report *domain.BuildReport) {
	if report == nil {
		return
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	totals := fmt.Sprintf("Built %d, cached %d", report.Built, report.Cached)
	icon := r.styles.success.Render(style.Check)
	if report.Failed() {
		totals += fmt.Sprintf(", failed %d", len(report.Failures))
		icon = r.styles.failure.Render(style.Cross)
	}
	totals += fmt.Sprintf(" in %v", report.Duration.Round(time.Millisecond))

	var b strings.Builder
	b.WriteString("\n" + icon + " " + r.styles.heading.Render(totals) + "\n")

	if report.Failed() {
		b.WriteString("\n" + r.styles.heading.Render("Failures:") + "\n")
		for _, f := range report.Failures {
			fmt.Fprintf(&b, "  %s %s %s %s %s\n",
				r.styles.failure.Render(style.Cross),
				f.Source,
				r.styles.faint.Render("["+f.Action.String()+"]"),
				style.Arrow,
				r.styles.name.Render(f.Destination),
			)
			writeFailure(&b, f.Err)
		}
	}

	_, _ = io.WriteString(r.stderr, b.String())
}

// metadataer describes an error carrying structured key/value metadata.
type metadataer interface {
	Metadata() map[string]any
}

func writeFailure(b *strings.Builder, err error) {
	if err == nil {
		return
	}
	for _, line := range strings.Split(err.Error(), "\n") {
		b.WriteString("    " + line + "\n")
	}

	var md metadataer
	if !errors.As(err, &md) {
		return
	}
	meta := md.Metadata()
	for _, key := range slices.Sorted(maps.Keys(meta)) {
		fmt.Fprintf(b, "      %s: %v\n", key, meta[key])
	}
}

// flushBufferLocked flushes any remaining data in the buffer for a task.
// Must be called with r.mu held.
func (r *Renderer) flushBufferLocked(spanID string) {
	task, ok := r.tasks[spanID]
	if !ok {
		return
	}
	buf := r.buffers[spanID]
	if buf.Len() > 0 {
		r.printLineLocked(task.name, buf.Bytes())
		buf.Reset()
	}
}

// printLineLocked prints a line with the task name prefix.
// Must be called with r.mu held.
func (r *Renderer) printLineLocked(taskName string, line []byte) {
	line = bytes.TrimSuffix(line, []byte("\n"))
	line = bytes.TrimSuffix(line, []byte("\r"))
	if len(line) == 0 {
		return
	}
	prefix := r.styles.faint.Render("[" + taskName + "]")
	_, _ = fmt.Fprintf(r.stdout, "%s %s\n", prefix, line)
}
