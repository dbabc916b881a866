package domain

import (
	"iter"
	"maps"
	"slices"
	"strings"

	"go.trai.ch/zerr"
)

// Plan is the immutable result of planning: the buildable tasks keyed by destination
// and the watch map binding every classified source to the task it re-triggers.
type Plan struct {
	paths        Paths
	toolchain    Toolchain
	tasks        map[InternedString]BuildTask
	order        []InternedString
	watch        map[SourceFile]InternedString
	unclassified []SourceFile
}

// Paths returns the absolute roots of the plan.
func (p *Plan) Paths() Paths {
	return p.paths
}

// Toolchain returns the compiler settings of the plan.
func (p *Plan) Toolchain() Toolchain {
	tc := p.toolchain
	tc.Targets = slices.Clone(tc.Targets)
	tc.LoadPaths = slices.Clone(tc.LoadPaths)
	tc.SearchPath = slices.Clone(tc.SearchPath)
	return tc
}

// TaskCount returns the number of buildable tasks.
func (p *Plan) TaskCount() int {
	return len(p.order)
}

// Tasks yields the buildable tasks ordered by destination.
func (p *Plan) Tasks() iter.Seq[BuildTask] {
	return func(yield func(BuildTask) bool) {
		for _, dest := range p.order {
			if !yield(p.tasks[dest].clone()) {
				return
			}
		}
	}
}

// Task returns the task producing dest.
func (p *Plan) Task(dest InternedString) (BuildTask, bool) {
	t, ok := p.tasks[dest]
	if !ok {
		return BuildTask{}, false
	}
	return t.clone(), true
}

// TaskFor returns the task that must re-run when src changes.
func (p *Plan) TaskFor(src SourceFile) (BuildTask, bool) {
	dest, ok := p.watch[src]
	if !ok {
		return BuildTask{}, false
	}
	return p.Task(dest)
}

// WatchMap returns a copy of the source to destination bindings.
func (p *Plan) WatchMap() map[SourceFile]InternedString {
	return maps.Clone(p.watch)
}

// Sources yields every bound source ordered by path.
func (p *Plan) Sources() iter.Seq[SourceFile] {
	sources := slices.SortedFunc(maps.Keys(p.watch), compareSources)
	return slices.Values(sources)
}

// Unclassified returns the sources that matched no rule and were left out of the plan.
func (p *Plan) Unclassified() []SourceFile {
	return slices.Clone(p.unclassified)
}

// PlanBuilder accumulates registrations and produces a Plan.
// It is the only way to construct a Plan.
type PlanBuilder struct {
	paths        Paths
	toolchain    Toolchain
	tasks        map[InternedString]BuildTask
	watch        map[SourceFile]InternedString
	unclassified []SourceFile
}

// NewPlanBuilder creates an empty builder.
func NewPlanBuilder(paths Paths, toolchain Toolchain) *PlanBuilder {
	return &PlanBuilder{
		paths:     paths,
		toolchain: toolchain,
		tasks:     make(map[InternedString]BuildTask),
		watch:     make(map[SourceFile]InternedString),
	}
}

// Register adds a buildable task. Tasks copied from the source tree are also bound in the watch map.
// Registering a second task for an existing destination fails instead of replacing it.
// Satellites are only attached through RegisterWatchOnly.
func (b *PlanBuilder) Register(task BuildTask) error {
	if existing, ok := b.tasks[task.Destination]; ok {
		err := zerr.With(ErrDestinationCollision, "destination", task.Destination.String())
		err = zerr.With(err, "first_source", describeSource(existing))
		return zerr.With(err, "second_source", describeSource(task))
	}
	if task.Module == "" {
		if err := b.bind(task.Source, task.Destination); err != nil {
			return err
		}
	}
	task.Satellites = nil
	b.tasks[task.Destination] = task
	return nil
}

// RegisterWatchOnly binds a satellite source to the aggregate task producing dest.
// The aggregate task must already be registered.
func (b *PlanBuilder) RegisterWatchOnly(src SourceFile, dest InternedString) error {
	task, ok := b.tasks[dest]
	if !ok || !task.Action.Aggregate() {
		return zerr.With(ErrSatelliteWithoutEntry, "source", src.String())
	}
	if err := b.bind(src, dest); err != nil {
		return err
	}
	task.Satellites = append(task.Satellites, src)
	b.tasks[dest] = task
	return nil
}

// MarkUnclassified records a source that matched no rule.
func (b *PlanBuilder) MarkUnclassified(src SourceFile) {
	b.unclassified = append(b.unclassified, src)
}

// Build freezes the registrations into a Plan.
func (b *PlanBuilder) Build() *Plan {
	tasks := make(map[InternedString]BuildTask, len(b.tasks))
	for dest, task := range b.tasks {
		task = task.clone()
		slices.SortFunc(task.Satellites, compareSources)
		tasks[dest] = task
	}

	order := slices.SortedFunc(maps.Keys(tasks), func(a, b InternedString) int {
		return strings.Compare(a.String(), b.String())
	})

	unclassified := slices.Clone(b.unclassified)
	slices.SortFunc(unclassified, compareSources)

	return &Plan{
		paths:        b.paths,
		toolchain:    b.toolchain,
		tasks:        tasks,
		order:        order,
		watch:        maps.Clone(b.watch),
		unclassified: unclassified,
	}
}

func (b *PlanBuilder) bind(src SourceFile, dest InternedString) error {
	if existing, ok := b.watch[src]; ok {
		err := zerr.With(ErrDuplicateSource, "source", src.String())
		return zerr.With(err, "bound_to", existing.String())
	}
	b.watch[src] = dest
	return nil
}

func describeSource(t BuildTask) string {
	desc := t.Source.String() + " (" + t.Action.String() + ")"
	if t.Module != "" {
		desc = t.Module + ":" + desc
	}
	return desc
}

func compareSources(a, b SourceFile) int {
	return strings.Compare(a.String(), b.String())
}
