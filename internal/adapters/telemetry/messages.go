package telemetry

import (
	"time"

	"go.trai.ch/kiln/internal/core/domain"
)

// MsgTaskStart indicates a new task (span) has started.
type MsgTaskStart struct {
	SpanID    string
	ParentID  string // May be empty if root
	Name      string
	StartTime time.Time
}

// MsgTaskComplete indicates a task (span) has finished.
type MsgTaskComplete struct {
	SpanID  string
	EndTime time.Time
	Err     error
	Cached  bool
}

// MsgTaskLog carries a chunk of log output for a specific task.
type MsgTaskLog struct {
	SpanID string
	Data   []byte
}

// MsgInitTasks announces the destinations of a build.
type MsgInitTasks struct {
	Tasks []string
}

// MsgBuildComplete carries the report of a finished build.
type MsgBuildComplete struct {
	Report *domain.BuildReport
}
