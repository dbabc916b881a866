package tui

import (
	"context"
	"errors"
	"sync"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"go.trai.ch/kiln/internal/adapters/telemetry"
	"go.trai.ch/kiln/internal/core/domain"
	"go.trai.ch/kiln/internal/core/ports"
)

var _ ports.Renderer = (*Renderer)(nil)

// Summary prints the result of a build once the view has closed.
type Summary interface {
	OnBuildComplete(report *domain.BuildReport)
}

// Renderer wraps the Bubble Tea model as a ports.Renderer.
type Renderer struct {
	program *tea.Program
	model   *Model
	summary Summary
	errCh   chan error

	mu     sync.Mutex
	report *domain.BuildReport
}

// NewRenderer creates a new TUI renderer. The build report is handed to summary after the
// view has been torn down, so totals and failures stay in the scrollback.
func NewRenderer(model *Model, summary Summary, opts ...tea.ProgramOption) *Renderer {
	return &Renderer{
		program: tea.NewProgram(model, opts...),
		model:   model,
		summary: summary,
		errCh:   make(chan error, 1),
	}
}

// Start launches the TUI in a background goroutine.
func (r *Renderer) Start(_ context.Context) error {
	go func() {
		_, err := r.program.Run()
		r.errCh <- err
	}()
	return nil
}

// Stop signals the TUI to quit.
func (r *Renderer) Stop() error {
	r.program.Quit()
	return nil
}

// Wait blocks until the TUI has terminated, then prints the build summary.
// A program killed through its context ended with the session and is not an error.
func (r *Renderer) Wait() error {
	err := <-r.errCh
	if errors.Is(err, tea.ErrProgramKilled) {
		err = nil
	}

	r.mu.Lock()
	report := r.report
	r.mu.Unlock()

	if report != nil && r.summary != nil {
		r.summary.OnBuildComplete(report)
	}
	return err
}

// OnPlanEmit lists the destinations about to be built.
func (r *Renderer) OnPlanEmit(tasks []string) {
	r.program.Send(telemetry.MsgInitTasks{Tasks: tasks})
}

// OnTaskStart forwards task start events to the TUI.
func (r *Renderer) OnTaskStart(spanID, parentID, name string, startTime time.Time) {
	r.program.Send(telemetry.MsgTaskStart{
		SpanID:    spanID,
		ParentID:  parentID,
		Name:      name,
		StartTime: startTime,
	})
}

// OnTaskLog forwards task log data to the TUI.
func (r *Renderer) OnTaskLog(spanID string, data []byte) {
	r.program.Send(telemetry.MsgTaskLog{
		SpanID: spanID,
		Data:   data,
	})
}

// OnTaskComplete forwards task completion events to the TUI.
func (r *Renderer) OnTaskComplete(spanID string, endTime time.Time, err error, cached bool) {
	r.program.Send(telemetry.MsgTaskComplete{
		SpanID:  spanID,
		EndTime: endTime,
		Err:     err,
		Cached:  cached,
	})
}

// OnBuildComplete shows the totals in the view and keeps the report for the summary.
func (r *Renderer) OnBuildComplete(report *domain.BuildReport) {
	r.mu.Lock()
	r.report = report
	r.mu.Unlock()

	r.program.Send(telemetry.MsgBuildComplete{Report: report})
}

// Program returns the underlying tea.Program for testing.
func (r *Renderer) Program() *tea.Program {
	return r.program
}
