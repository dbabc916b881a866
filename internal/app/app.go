// Package app implements the application layer for kiln.
package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"go.trai.ch/kiln/internal/core/domain"
	"go.trai.ch/kiln/internal/core/ports"
	"go.trai.ch/kiln/internal/engine/planner"
	"go.trai.ch/kiln/internal/engine/scheduler"
	"go.trai.ch/zerr"
)

// App represents the main application logic.
type App struct {
	configLoader ports.ConfigLoader
	planner      *planner.Planner
	scheduler    *scheduler.Scheduler
	store        ports.BuildInfoStore
	watcher      ports.Watcher
	server       ports.DevServer
	logger       ports.Logger

	stdout     io.Writer
	stderr     io.Writer
	jsonLogs   bool
	teaOptions []tea.ProgramOption
}

// New creates a new App instance.
func New(
	loader ports.ConfigLoader,
	plnr *planner.Planner,
	sched *scheduler.Scheduler,
	store ports.BuildInfoStore,
	watcher ports.Watcher,
	server ports.DevServer,
	log ports.Logger,
) *App {
	return &App{
		configLoader: loader,
		planner:      plnr,
		scheduler:    sched,
		store:        store,
		watcher:      watcher,
		server:       server,
		logger:       log,
		stdout:       os.Stdout,
		stderr:       os.Stderr,
	}
}

// WithOutput redirects the plan printout and build progress.
func (a *App) WithOutput(stdout, stderr io.Writer) *App {
	a.stdout = stdout
	a.stderr = stderr
	return a
}

// WithTeaOptions configures the full-screen build view, e.g. to drive it from tests.
func (a *App) WithTeaOptions(opts ...tea.ProgramOption) *App {
	a.teaOptions = append(a.teaOptions, opts...)
	return a
}

// jsonSwitcher is implemented by loggers that can switch to JSON output.
type jsonSwitcher interface {
	SetJSON(enable bool)
}

// SetJSONLogs switches logging to JSON. Progress rendering is turned off so that the
// error stream stays machine readable.
func (a *App) SetJSONLogs(enable bool) {
	a.jsonLogs = enable
	if l, ok := a.logger.(jsonSwitcher); ok {
		l.SetJSON(enable)
	}
}

// Close releases the build state database.
func (a *App) Close() error {
	return a.store.Close()
}

// BuildOptions configuration for the Build method.
type BuildOptions struct {
	ConfigPath string
	Mode       domain.Mode
	NoCache    bool
	Jobs       int
	OutputMode string
}

// Build plans the project and runs every task once.
// Configuration problems abort before any task runs. Task failures are reported together
// and returned joined with domain.ErrBuildExecutionFailed.
func (a *App) Build(ctx context.Context, opts BuildOptions) (err error) {
	cfg, plan, err := a.load(ctx, opts.ConfigPath)
	if err != nil {
		return err
	}

	ctx, sess, err := a.startSession(ctx, opts.OutputMode, true)
	if err != nil {
		return err
	}
	defer func() {
		err = errors.Join(err, sess.close(ctx))
	}()

	sess.emitPlan(ctx, plan)
	report, err := a.scheduler.Build(ctx, sess.tracer, plan, scheduler.BuildOptions{
		Options: cfg.Options(opts.Mode, false),
		Jobs:    opts.Jobs,
		NoCache: opts.NoCache,
	})
	if report != nil && ctx.Err() == nil {
		sess.complete(report)
	}
	return err
}

// CleanOptions configuration for the Clean method.
type CleanOptions struct {
	ConfigPath string
	// State also removes the incremental build state.
	State bool
}

// Clean removes the destination tree and, optionally, the build state.
func (a *App) Clean(_ context.Context, opts CleanOptions) error {
	cfg, err := a.loadConfig(opts.ConfigPath)
	if err != nil {
		return err
	}

	var errs error

	remove := func(path string, name string) {
		if _, statErr := os.Stat(path); errors.Is(statErr, os.ErrNotExist) {
			return
		}
		if err := os.RemoveAll(path); err != nil {
			errs = errors.Join(errs, zerr.With(zerr.Wrap(err, "failed to remove "+name), "path", path))
			return
		}
		a.logger.Info(fmt.Sprintf("removed %s %s", name, relToRoot(cfg.Root, path)))
	}

	remove(cfg.DestRoot, "destination tree")

	if opts.State {
		if err := a.store.Close(); err != nil {
			errs = errors.Join(errs, err)
		}
		remove(domain.DefaultKilnPath(cfg.Root), "build state")
	}

	return errs
}

func (a *App) loadConfig(path string) (*domain.Config, error) {
	if path != "" {
		return a.configLoader.LoadFile(path)
	}
	return a.configLoader.Load(".")
}

func (a *App) load(ctx context.Context, configPath string) (*domain.Config, *domain.Plan, error) {
	cfg, err := a.loadConfig(configPath)
	if err != nil {
		return nil, nil, err
	}

	plan, err := a.planner.Plan(ctx, cfg)
	if err != nil {
		return nil, nil, err
	}
	return cfg, plan, nil
}

// relToRoot shortens path for display when it lies under root.
func relToRoot(root, path string) string {
	rel, err := filepath.Rel(root, path)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return path
	}
	return rel
}
