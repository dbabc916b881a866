package telemetry_test

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.trai.ch/kiln/internal/adapters/telemetry"
	"go.trai.ch/kiln/internal/core/domain"
	"go.trai.ch/kiln/internal/core/ports/mocks"
	"go.uber.org/mock/gomock"
)

func TestAsyncRenderer_DeliversInOrder(t *testing.T) {
	ctrl := gomock.NewController(t)
	next := mocks.NewMockRenderer(ctrl)

	now := time.Now()
	failure := errors.New("boom")
	report := &domain.BuildReport{Built: 1}

	gomock.InOrder(
		next.EXPECT().OnPlanEmit([]string{"css/main.css"}),
		next.EXPECT().OnTaskStart("s1", "root", "css/main.css", now),
		next.EXPECT().OnTaskLog("s1", []byte("warning\n")),
		next.EXPECT().OnTaskComplete("s1", now, failure, false),
		next.EXPECT().OnBuildComplete(report),
		next.EXPECT().Stop().Return(nil),
	)

	r := telemetry.NewAsyncRenderer(next)
	r.OnPlanEmit([]string{"css/main.css"})
	r.OnTaskStart("s1", "root", "css/main.css", now)
	r.OnTaskLog("s1", []byte("warning\n"))
	r.OnTaskComplete("s1", now, failure, false)
	r.OnBuildComplete(report)

	require.NoError(t, r.Stop())
}

func TestAsyncRenderer_DiscardsAfterStop(t *testing.T) {
	ctrl := gomock.NewController(t)
	next := mocks.NewMockRenderer(ctrl)
	next.EXPECT().Stop().Return(nil).Times(2)

	r := telemetry.NewAsyncRenderer(next)
	require.NoError(t, r.Stop())

	r.OnPlanEmit([]string{"late"})
	r.OnTaskComplete("s1", time.Now(), nil, true)
	require.NoError(t, r.Stop())
}
