package telemetry_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
	"go.trai.ch/kiln/internal/adapters/telemetry"
	"go.trai.ch/kiln/internal/core/ports"
	"go.trai.ch/kiln/internal/core/ports/mocks"
	"go.uber.org/mock/gomock"
)

func taskSpan(tp *sdktrace.TracerProvider, ctx context.Context, name string) (context.Context, trace.Span) {
	return tp.Tracer("test").Start(ctx, name, trace.WithAttributes(attribute.Bool(ports.AttrTask, true)))
}

func TestBridge_ForwardsTaskSpans(t *testing.T) {
	ctrl := gomock.NewController(t)
	renderer := mocks.NewMockRenderer(ctrl)
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(telemetry.NewBridge(renderer)))
	t.Cleanup(func() { _ = tp.Shutdown(context.Background()) })

	ctx, root := tp.Tracer("test").Start(context.Background(), "build")
	rootID := root.SpanContext().SpanID().String()

	renderer.EXPECT().OnTaskStart(gomock.Any(), rootID, "css/main.css", gomock.Any())
	renderer.EXPECT().OnTaskComplete(gomock.Any(), gomock.Any(), nil, false)

	_, span := taskSpan(tp, ctx, "css/main.css")
	span.End()
	root.End()
}

func TestBridge_ReportsCachedAndFailed(t *testing.T) {
	ctrl := gomock.NewController(t)
	renderer := mocks.NewMockRenderer(ctrl)
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(telemetry.NewBridge(renderer)))
	t.Cleanup(func() { _ = tp.Shutdown(context.Background()) })

	renderer.EXPECT().OnTaskStart(gomock.Any(), "", gomock.Any(), gomock.Any()).Times(3)
	renderer.EXPECT().OnTaskComplete(gomock.Any(), gomock.Any(), nil, true)
	renderer.EXPECT().OnTaskComplete(gomock.Any(), gomock.Any(), gomock.Any(), false).
		Do(func(_ string, _ time.Time, err error, _ bool) {
			require.EqualError(t, err, "transform failed")
		})
	renderer.EXPECT().OnTaskComplete(gomock.Any(), gomock.Any(), gomock.Any(), false).
		Do(func(_ string, _ time.Time, err error, _ bool) {
			require.EqualError(t, err, "task failed")
		})

	_, cached := taskSpan(tp, context.Background(), "a.js")
	cached.SetAttributes(attribute.Bool(ports.AttrCached, true))
	cached.End()

	_, failed := taskSpan(tp, context.Background(), "b.js")
	failed.RecordError(errors.New("transform failed"))
	failed.SetStatus(codes.Error, "transform failed")
	failed.End()

	_, bare := taskSpan(tp, context.Background(), "c.js")
	bare.SetStatus(codes.Error, "")
	bare.End()
}

func TestBridge_NilRenderer(t *testing.T) {
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(telemetry.NewBridge(nil)))
	t.Cleanup(func() { _ = tp.Shutdown(context.Background()) })

	_, span := taskSpan(tp, context.Background(), "a.js")
	span.End()

	bridge := telemetry.NewBridge(nil)
	require.NoError(t, bridge.ForceFlush(context.Background()))
	require.NoError(t, bridge.Shutdown(context.Background()))
}
