// Package scheduler executes the tasks of a plan.
package scheduler

import (
	"context"
	"errors"
	iofs "io/fs"
	"os"
	"path/filepath"
	"runtime"
	"slices"
	"strings"
	"time"

	"go.trai.ch/kiln/internal/core/domain"
	"go.trai.ch/kiln/internal/core/ports"
	"go.trai.ch/zerr"
	"golang.org/x/sync/errgroup"
)

// BuildOptions controls a single build.
type BuildOptions struct {
	Options domain.Options
	// Jobs bounds the number of concurrent tasks. Zero or less means runtime.NumCPU().
	Jobs int
	// NoCache runs every task regardless of the recorded build info.
	NoCache bool
}

// Scheduler runs tasks concurrently and skips the ones whose inputs are unchanged.
type Scheduler struct {
	transformer ports.Transformer
	store       ports.BuildInfoStore
	hasher      ports.Hasher
	logger      ports.Logger
}

// NewScheduler creates a new Scheduler with the given dependencies.
func NewScheduler(
	transformer ports.Transformer,
	store ports.BuildInfoStore,
	hasher ports.Hasher,
	logger ports.Logger,
) *Scheduler {
	return &Scheduler{
		transformer: transformer,
		store:       store,
		hasher:      hasher,
		logger:      logger,
	}
}

// Build runs every buildable task of plan.
// Task failures do not stop the other tasks. They are collected in the report and returned
// joined with domain.ErrBuildExecutionFailed.
func (s *Scheduler) Build(
	ctx context.Context,
	tracer ports.Tracer,
	plan *domain.Plan,
	opts BuildOptions,
) (*domain.BuildReport, error) {
	return s.Run(ctx, tracer, plan, slices.Collect(plan.Tasks()), opts)
}

// Run executes tasks with at most opts.Jobs running at once.
func (s *Scheduler) Run(
	ctx context.Context,
	tracer ports.Tracer,
	plan *domain.Plan,
	tasks []domain.BuildTask,
	opts BuildOptions,
) (*domain.BuildReport, error) {
	start := time.Now()

	jobs := opts.Jobs
	if jobs <= 0 {
		jobs = runtime.NumCPU()
	}

	results := make([]domain.TaskResult, len(tasks))
	launched := 0

	var g errgroup.Group
	g.SetLimit(jobs)
	for i, task := range tasks {
		if ctx.Err() != nil {
			break
		}
		launched++
		g.Go(func() error {
			results[i] = s.Execute(ctx, tracer, plan, task, opts)
			return nil
		})
	}
	_ = g.Wait()

	report := &domain.BuildReport{}
	var errs []error
	for _, res := range results[:launched] {
		report.Add(res)
		if res.Status == domain.StatusFailed {
			errs = append(errs, taskError(res))
		}
	}
	report.SortFailures()
	report.Duration = time.Since(start)

	if err := ctx.Err(); err != nil {
		return report, err
	}
	if report.Failed() {
		return report, errors.Join(append([]error{domain.ErrBuildExecutionFailed}, errs...)...)
	}
	return report, nil
}

// Execute runs a single task inside its own span and reports the outcome.
func (s *Scheduler) Execute(
	ctx context.Context,
	tracer ports.Tracer,
	plan *domain.Plan,
	task domain.BuildTask,
	opts BuildOptions,
) domain.TaskResult {
	start := time.Now()

	ctx, span := tracer.Start(ctx, task.Name(),
		ports.WithAttribute(ports.AttrTask, true),
		ports.WithAttribute(ports.AttrAction, task.Action.String()),
		ports.WithAttribute(ports.AttrSource, task.Source.String()),
	)
	defer span.End()

	status, err := s.execute(ctx, span, plan, task, opts)
	if err != nil {
		span.RecordError(err)
		status = domain.StatusFailed
	}

	return domain.TaskResult{
		Task:     task,
		Status:   status,
		Err:      err,
		Duration: time.Since(start),
	}
}

func (s *Scheduler) execute(
	ctx context.Context,
	span ports.Span,
	plan *domain.Plan,
	task domain.BuildTask,
	opts BuildOptions,
) (domain.TaskStatus, error) {
	paths := plan.Paths()
	job := domain.NewJob(plan, task, opts.Options)
	dest := task.Destination.String()

	previous, err := s.store.Get(paths.ProjectRoot, dest)
	if err != nil {
		s.logger.Warn("ignoring build info of " + dest + ": " + err.Error())
		previous = nil
	}

	var extra []string
	if previous != nil {
		extra = previous.Inputs
	}

	// A source that cannot be hashed is left for the transform to report.
	hash, hashErr := s.hasher.ComputeInputHash(job, extra)
	if !opts.NoCache && hashErr == nil && s.upToDate(previous, hash) {
		span.SetAttribute(ports.AttrCached, true)
		return domain.StatusCached, nil
	}

	artifact, err := s.transformer.Transform(ctx, job, span)
	if err != nil {
		return domain.StatusFailed, err
	}

	s.removeStale(paths.DestRoot, previous, artifact.Outputs)

	if hashErr != nil || !sameFiles(extra, artifact.Inputs) {
		hash, hashErr = s.hasher.ComputeInputHash(job, artifact.Inputs)
	}
	if hashErr != nil {
		s.logger.Warn("not recording build info of " + dest + ": " + hashErr.Error())
		return domain.StatusBuilt, nil
	}
	s.record(paths.ProjectRoot, dest, hash, artifact)

	return domain.StatusBuilt, nil
}

// upToDate reports whether the recorded run used the same inputs and its outputs are untouched.
func (s *Scheduler) upToDate(info *domain.BuildInfo, hash string) bool {
	if info == nil || info.InputHash != hash || len(info.Outputs) == 0 {
		return false
	}

	outputHash, err := s.hasher.ComputeOutputHash(info.Outputs)
	if err != nil {
		// Missing or unreadable outputs are a cache miss.
		return false
	}
	return outputHash == info.OutputHash
}

func (s *Scheduler) record(root, dest, inputHash string, artifact domain.Artifact) {
	outputHash, err := s.hasher.ComputeOutputHash(artifact.Outputs)
	if err != nil {
		s.logger.Warn("not recording build info of " + dest + ": " + err.Error())
		return
	}

	err = s.store.Put(root, domain.BuildInfo{
		Destination: dest,
		InputHash:   inputHash,
		OutputHash:  outputHash,
		Timestamp:   time.Now(),
		Inputs:      artifact.Inputs,
		Outputs:     artifact.Outputs,
	})
	if err != nil {
		s.logger.Warn("failed to record build info of " + dest + ": " + err.Error())
	}
}

// removeStale deletes the files a previous run wrote that the current run no longer produces,
// such as a source map after switching to a debug build.
func (s *Scheduler) removeStale(destRoot string, previous *domain.BuildInfo, outputs []string) {
	if previous == nil {
		return
	}

	for _, old := range previous.Outputs {
		if slices.Contains(outputs, old) || !within(destRoot, old) {
			continue
		}
		if err := os.Remove(old); err != nil && !errors.Is(err, iofs.ErrNotExist) {
			s.logger.Warn("failed to remove stale output " + old + ": " + err.Error())
		}
	}
}

func within(root, path string) bool {
	rel, err := filepath.Rel(root, path)
	if err != nil {
		return false
	}
	return rel != "." && rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}

func sameFiles(a, b []string) bool {
	a, b = slices.Clone(a), slices.Clone(b)
	slices.Sort(a)
	slices.Sort(b)
	return slices.Equal(slices.Compact(a), slices.Compact(b))
}

// taskError annotates a failed task's error with the source and action it ran.
func taskError(res domain.TaskResult) error {
	err := zerr.Wrap(res.Err, domain.ErrTaskExecutionFailed.Error())
	err = zerr.With(err, "path", res.Task.Source.String())
	return zerr.With(err, "action", res.Task.Action.String())
}
