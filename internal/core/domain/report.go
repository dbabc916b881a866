package domain

import (
	"cmp"
	"slices"
	"time"
)

// TaskStatus is the outcome of one task execution.
type TaskStatus uint8

const (
	// StatusBuilt means the transform ran and wrote its destination.
	StatusBuilt TaskStatus = iota
	// StatusCached means the recorded input hash matched and the destination was left alone.
	StatusCached
	// StatusFailed means the transform or its I/O failed.
	StatusFailed
)

// String returns the status name.
func (s TaskStatus) String() string {
	switch s {
	case StatusBuilt:
		return "built"
	case StatusCached:
		return "cached"
	default:
		return "failed"
	}
}

// TaskResult is the completion signal of one task.
type TaskResult struct {
	Task     BuildTask
	Status   TaskStatus
	Err      error
	Duration time.Duration
}

// TaskFailure describes a failed task for the end-of-build summary.
type TaskFailure struct {
	Source      string
	Destination string
	Action      Action
	Err         error
}

// BuildReport aggregates the results of one build.
type BuildReport struct {
	Built    int
	Cached   int
	Failures []TaskFailure
	Duration time.Duration
}

// Add records a task result.
func (r *BuildReport) Add(res TaskResult) {
	switch res.Status {
	case StatusBuilt:
		r.Built++
	case StatusCached:
		r.Cached++
	case StatusFailed:
		source := res.Task.Source.String()
		if res.Task.Module != "" {
			source = res.Task.Module + "/" + source
		}
		r.Failures = append(r.Failures, TaskFailure{
			Source:      source,
			Destination: res.Task.Destination.String(),
			Action:      res.Task.Action,
			Err:         res.Err,
		})
	}
}

// Failed reports whether any task failed.
func (r *BuildReport) Failed() bool {
	return len(r.Failures) > 0
}

// Total returns the number of executed tasks.
func (r *BuildReport) Total() int {
	return r.Built + r.Cached + len(r.Failures)
}

// SortFailures orders failures by source path.
func (r *BuildReport) SortFailures() {
	slices.SortFunc(r.Failures, func(a, b TaskFailure) int {
		return cmp.Or(cmp.Compare(a.Source, b.Source), cmp.Compare(a.Destination, b.Destination))
	})
}
