package app

import (
	"context"
	"errors"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"go.opentelemetry.io/otel"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.trai.ch/kiln/internal/adapters/detector"
	"go.trai.ch/kiln/internal/adapters/linear"
	"go.trai.ch/kiln/internal/adapters/telemetry"
	"go.trai.ch/kiln/internal/adapters/tui"
	"go.trai.ch/kiln/internal/core/domain"
	"go.trai.ch/kiln/internal/core/ports"
	"go.trai.ch/zerr"
)

// session owns the renderer and tracer of one build or watch run.
// In JSON mode progress is not rendered and results go through the logger instead.
type session struct {
	logger   ports.Logger
	renderer ports.Renderer
	provider *sdktrace.TracerProvider
	tracer   ports.Tracer
	cancel   context.CancelFunc
}

// startSession picks the renderer for outputMode. A one-shot build in pretty mode gets the
// full-screen view, which can interrupt the build through the returned context. Watch
// sessions and plain output render linearly.
func (a *App) startSession(ctx context.Context, outputMode string, oneShot bool) (context.Context, *session, error) {
	if a.jsonLogs {
		return ctx, &session{logger: a.logger, tracer: telemetry.NewNoOpTracer()}, nil
	}

	sess := &session{logger: a.logger, cancel: func() {}}
	mode := detector.ResolveMode(detector.DetectEnvironment(), outputMode)
	summary := linear.ForMode(a.stdout, a.stderr, mode)

	if oneShot && mode == detector.ModePretty {
		ctx, sess.cancel = context.WithCancel(ctx)
		model := tui.NewModel(a.stderr).WithInterrupt(sess.cancel)
		opts := append([]tea.ProgramOption{tea.WithContext(ctx), tea.WithOutput(a.stderr)}, a.teaOptions...)
		sess.renderer = tui.NewRenderer(&model, summary, opts...)
	} else {
		sess.renderer = telemetry.NewAsyncRenderer(summary)
	}

	if err := sess.renderer.Start(ctx); err != nil {
		sess.cancel()
		return ctx, nil, err
	}

	// Spans end before the provider shuts down, so the bridge sees every task.
	sess.provider = telemetry.NewProvider(sess.renderer)
	otel.SetTracerProvider(sess.provider)
	sess.tracer = telemetry.NewOTelTracer(sess.provider, "kiln").WithRenderer(sess.renderer)

	return ctx, sess, nil
}

func (s *session) emitPlan(ctx context.Context, plan *domain.Plan) {
	names := make([]string, 0, plan.TaskCount())
	for task := range plan.Tasks() {
		names = append(names, task.Name())
	}
	s.tracer.EmitPlan(ctx, names)
}

// complete reports a finished build.
func (s *session) complete(report *domain.BuildReport) {
	if s.renderer != nil {
		s.renderer.OnBuildComplete(report)
		return
	}

	for _, f := range report.Failures {
		s.logger.Error(failureError(f.Source, f.Action, f.Err))
	}
	s.logger.Info(fmt.Sprintf("built %d, cached %d, failed %d in %v",
		report.Built, report.Cached, len(report.Failures), report.Duration))
}

// taskDone reports a task run outside a build. Only JSON mode needs it, the renderer
// already received the span.
func (s *session) taskDone(res domain.TaskResult) {
	if s.renderer != nil {
		return
	}
	switch res.Status {
	case domain.StatusFailed:
		s.logger.Error(failureError(res.Task.Source.String(), res.Task.Action, res.Err))
	case domain.StatusBuilt:
		s.logger.Info("rebuilt " + res.Task.Name())
	}
}

func failureError(source string, action domain.Action, err error) error {
	wrapped := zerr.Wrap(err, domain.ErrTaskExecutionFailed.Error())
	wrapped = zerr.With(wrapped, "path", source)
	return zerr.With(wrapped, "action", action.String())
}

func (s *session) close(ctx context.Context) error {
	var errs []error
	if s.provider != nil {
		errs = append(errs, s.provider.Shutdown(context.WithoutCancel(ctx)))
	}
	if s.renderer != nil {
		errs = append(errs, s.renderer.Stop(), s.renderer.Wait())
	}
	if s.cancel != nil {
		s.cancel()
	}
	return errors.Join(errs...)
}
