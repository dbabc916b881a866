package domain

import (
	"path/filepath"
	"slices"
)

// BuildTask produces exactly one destination file.
// A plan never contains two tasks with the same Destination.
type BuildTask struct {
	// Destination is relative to the destination root and slash separated.
	Destination InternedString
	// Source is relative to the source root, or to the node modules directory when Module is set.
	Source SourceFile
	Action Action
	// Satellites are the sources consumed through the entry's own imports.
	Satellites []SourceFile
	// Module names the server-side node module a pass-through task copies from.
	Module string
}

// Name identifies the task in logs and spans.
func (t BuildTask) Name() string {
	return t.Destination.String()
}

// Inputs returns the source followed by the satellites, in a stable order.
func (t BuildTask) Inputs() []SourceFile {
	inputs := make([]SourceFile, 0, 1+len(t.Satellites))
	inputs = append(inputs, t.Source)
	inputs = append(inputs, t.Satellites...)
	return inputs
}

// clone returns a copy that shares no slices with t.
func (t BuildTask) clone() BuildTask {
	t.Satellites = slices.Clone(t.Satellites)
	return t
}

// Paths holds the absolute roots a plan resolves its relative paths against.
type Paths struct {
	ProjectRoot    string
	SourceRoot     string
	DestRoot       string
	NodeModulesDir string
}

// SourcePath returns the absolute path of the task's source.
func (p Paths) SourcePath(t BuildTask) string {
	if t.Module != "" {
		return filepath.Join(p.NodeModulesDir, filepath.FromSlash(t.Source.String()))
	}
	return p.Resolve(t.Source)
}

// Resolve returns the absolute path of a source file under the source root.
func (p Paths) Resolve(s SourceFile) string {
	return filepath.Join(p.SourceRoot, filepath.FromSlash(s.String()))
}

// DestPath returns the absolute path of the task's destination.
func (p Paths) DestPath(t BuildTask) string {
	return filepath.Join(p.DestRoot, filepath.FromSlash(t.Destination.String()))
}

// Toolchain carries the settings external compilers need beyond the Options bag.
type Toolchain struct {
	SassBinary string
	Targets    []string
	LoadPaths  []string
	// SearchPath lists directories searched for compiler binaries before the system PATH.
	SearchPath []string
}

// Job is one execution of a task: everything a transformer needs, resolved to absolute paths.
type Job struct {
	Task       BuildTask
	Input      string
	Output     string
	Satellites []string
	Options    Options
	Toolchain  Toolchain
}

// NewJob resolves a task against a plan.
func NewJob(plan *Plan, task BuildTask, opts Options) Job {
	paths := plan.Paths()
	satellites := make([]string, len(task.Satellites))
	for i, s := range task.Satellites {
		satellites[i] = paths.Resolve(s)
	}
	return Job{
		Task:       task,
		Input:      paths.SourcePath(task),
		Output:     paths.DestPath(task),
		Satellites: satellites,
		Options:    opts,
		Toolchain:  plan.Toolchain(),
	}
}

// Artifact lists the absolute paths a transform read and wrote.
type Artifact struct {
	// Outputs are the destination and its companions, such as source maps.
	Outputs []string
	// Inputs are files read beyond the job's source and satellites, such as bundled imports.
	Inputs []string
}
