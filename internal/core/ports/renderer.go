package ports

import (
	"context"
	"time"

	"go.trai.ch/kiln/internal/core/domain"
)

// Renderer is the abstraction for output rendering.
// It decouples telemetry collection from presentation logic,
// allowing the same event stream to drive either colored terminal output or plain CI logs.
//
//go:generate mockgen -source=renderer.go -destination=mocks/mock_renderer.go -package=mocks
type Renderer interface {
	// Start initializes the renderer and begins its lifecycle.
	Start(ctx context.Context) error

	// Stop signals the renderer to stop accepting new events and flushes buffered output.
	Stop() error

	// Wait blocks until the renderer has fully terminated.
	Wait() error

	// OnPlanEmit is called with the destinations about to be built.
	OnPlanEmit(tasks []string)

	// OnTaskStart is called when a task begins execution.
	// spanID: unique identifier for this task execution
	// parentID: spanID of the parent span (empty if root)
	// name: human-readable task name
	OnTaskStart(spanID, parentID, name string, startTime time.Time)

	// OnTaskLog is called when a task emits output.
	// data: raw log bytes (may contain partial lines or ANSI sequences)
	OnTaskLog(spanID string, data []byte)

	// OnTaskComplete is called when a task finishes execution.
	// err: nil if successful, error otherwise
	// cached: the task was skipped because its inputs were unchanged
	OnTaskComplete(spanID string, endTime time.Time, err error, cached bool)

	// OnBuildComplete prints the summary of a build, including every failure.
	OnBuildComplete(report *domain.BuildReport)
}
