package app

import (
	"cmp"
	"context"
	"errors"
	iofs "io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"

	"go.trai.ch/kiln/internal/core/domain"
	"go.trai.ch/kiln/internal/core/ports"
	"go.trai.ch/kiln/internal/engine/scheduler"
	"go.trai.ch/zerr"
	"golang.org/x/sync/errgroup"
)

// WatchOptions configuration for the Watch method.
type WatchOptions struct {
	ConfigPath string
	// Port overrides the configured server port when non-zero.
	Port       int
	NoCache    bool
	Jobs       int
	OutputMode string
}

// Watch runs a full debug build, then rebuilds changed sources and serves the project until
// ctx is cancelled. Task failures are reported and never stop the session.
func (a *App) Watch(ctx context.Context, opts WatchOptions) (err error) {
	cfg, plan, err := a.load(ctx, opts.ConfigPath)
	if err != nil {
		return err
	}

	ctx, sess, err := a.startSession(ctx, opts.OutputMode, false)
	if err != nil {
		return err
	}
	defer func() {
		err = errors.Join(err, sess.close(ctx))
	}()

	w := &watchSession{
		app:     a,
		cfg:     cfg,
		plan:    plan,
		session: sess,
		options: scheduler.BuildOptions{
			Options: cfg.Options(domain.ModeDebug, true),
			Jobs:    opts.Jobs,
			NoCache: opts.NoCache,
		},
	}
	w.queue = scheduler.NewQueue(w.run)

	sess.emitPlan(ctx, plan)
	report, err := a.scheduler.Build(ctx, sess.tracer, plan, w.options)
	if ctx.Err() != nil {
		return nil
	}
	if err != nil && !errors.Is(err, domain.ErrBuildExecutionFailed) {
		return err
	}
	sess.complete(report)

	g, gctx := errgroup.WithContext(ctx)

	if err := a.watcher.Start(gctx, cfg.SourceRoot, []string{cfg.DestRoot}); err != nil {
		return err
	}
	defer func() {
		_ = a.watcher.Stop()
	}()

	g.Go(func() error {
		return a.server.Serve(gctx, ports.DevServerConfig{
			Port:         cmp.Or(opts.Port, cfg.ServerPort),
			Upstream:     cfg.UpstreamOrigin,
			AssetsPrefix: cfg.AssetsPrefix,
			DestRoot:     cfg.DestRoot,
			LiveReload:   w.options.Options.LiveReload,
		})
	})

	g.Go(func() error {
		for event := range a.watcher.Events() {
			w.handle(gctx, event)
		}
		w.queue.Wait()
		return nil
	})

	return g.Wait()
}

// watchSession holds the current plan of a watch run and re-runs tasks as sources change.
type watchSession struct {
	app     *App
	cfg     *domain.Config
	session *session
	options scheduler.BuildOptions
	queue   *scheduler.Queue

	mu   sync.RWMutex
	plan *domain.Plan

	// running is held for reading while a task executes and for writing while removed
	// destinations are deleted.
	running sync.RWMutex
}

func (w *watchSession) current() *domain.Plan {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.plan
}

// handle maps a change to the task bound to its source and to every aggregate task that read it.
// Sources appearing or disappearing change the plan itself and trigger re-planning.
func (w *watchSession) handle(ctx context.Context, event ports.WatchEvent) {
	if ctx.Err() != nil {
		return
	}

	src, ok := w.source(event.Path)
	if !ok {
		return
	}

	importers := w.importers(event.Path)

	task, bound := w.current().TaskFor(src)
	switch {
	case event.Operation == ports.OpWrite:
		if bound {
			w.queue.Submit(ctx, task)
		}
	// Editors saving through a rename leave a bound source in place.
	case bound && event.Operation != ports.OpRemove && isFile(event.Path):
		w.queue.Submit(ctx, task)
	default:
		w.replan(ctx)
	}

	for _, importer := range importers {
		w.queue.Submit(ctx, importer)
	}
}

// importers returns the aggregate tasks whose last recorded run read path, such as a bundle
// importing a module that is also copied on its own.
func (w *watchSession) importers(path string) []domain.BuildTask {
	plan := w.current()
	paths := plan.Paths()
	path = filepath.Clean(path)

	var tasks []domain.BuildTask
	for task := range plan.Tasks() {
		if !task.Action.Aggregate() {
			continue
		}
		info, err := w.app.store.Get(paths.ProjectRoot, task.Destination.String())
		if err != nil || info == nil {
			continue
		}
		if slices.Contains(info.Inputs, path) {
			tasks = append(tasks, task)
		}
	}
	return tasks
}

func (w *watchSession) source(path string) (domain.SourceFile, bool) {
	rel, err := filepath.Rel(w.cfg.SourceRoot, path)
	if err != nil || rel == "." || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return domain.SourceFile{}, false
	}
	return domain.NewSourceFile(filepath.ToSlash(rel)), true
}

// replan swaps in a fresh plan. A configuration error keeps the previous plan.
// Destinations that left the plan are deleted and tasks that are new or changed are run.
func (w *watchSession) replan(ctx context.Context) {
	next, err := w.app.planner.Plan(ctx, w.cfg)
	if err != nil {
		w.app.logger.Error(zerr.Wrap(err, "keeping the previous plan"))
		return
	}

	w.mu.Lock()
	prev := w.plan
	w.plan = next
	w.mu.Unlock()

	var removed []string
	// Runs that saw the previous plan finish before their outputs are removed.
	w.running.Lock()
	for task := range prev.Tasks() {
		if _, ok := next.Task(task.Destination); !ok {
			w.removeOutputs(prev, task)
			removed = append(removed, task.Destination.String())
		}
	}
	w.running.Unlock()
	if len(removed) > 0 {
		w.app.server.Reload(removed)
	}

	for task := range next.Tasks() {
		if old, ok := prev.Task(task.Destination); !ok || !sameTask(old, task) {
			w.queue.Submit(ctx, task)
		}
	}
}

// removeOutputs deletes every file the task wrote and forgets its build info.
func (w *watchSession) removeOutputs(plan *domain.Plan, task domain.BuildTask) {
	paths := plan.Paths()
	dest := task.Destination.String()
	outputs := []string{paths.DestPath(task)}

	info, err := w.app.store.Get(paths.ProjectRoot, dest)
	if err == nil && info != nil {
		outputs = append(outputs, info.Outputs...)
	}

	for _, out := range slices.Compact(slices.Sorted(slices.Values(outputs))) {
		if !withinRoot(paths.DestRoot, out) {
			continue
		}
		if err := os.Remove(out); err != nil && !errors.Is(err, iofs.ErrNotExist) {
			w.app.logger.Warn("failed to remove " + out + ": " + err.Error())
		}
	}

	if err := w.app.store.Delete(paths.ProjectRoot, dest); err != nil {
		w.app.logger.Warn("failed to forget build info of " + dest + ": " + err.Error())
	}
	w.app.logger.Info("removed " + dest)
}

// run executes one task against the current plan and reloads the browser when it produced output.
// A task that left the plan after it was queued is skipped.
func (w *watchSession) run(ctx context.Context, task domain.BuildTask) {
	res, ok := w.execute(ctx, task)
	if !ok {
		return
	}
	w.session.taskDone(res)
	if res.Status == domain.StatusBuilt {
		w.app.server.Reload([]string{task.Destination.String()})
	}
}

func (w *watchSession) execute(ctx context.Context, task domain.BuildTask) (domain.TaskResult, bool) {
	w.running.RLock()
	defer w.running.RUnlock()

	plan := w.current()
	if _, ok := plan.Task(task.Destination); !ok {
		return domain.TaskResult{}, false
	}
	return w.app.scheduler.Execute(ctx, w.session.tracer, plan, task, w.options), true
}

func sameTask(a, b domain.BuildTask) bool {
	return a.Source == b.Source &&
		a.Action == b.Action &&
		a.Module == b.Module &&
		slices.Equal(a.Satellites, b.Satellites)
}

func isFile(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular()
}

func withinRoot(root, path string) bool {
	rel, err := filepath.Rel(root, path)
	return err == nil && rel != "." && rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}
