package commands_test

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.trai.ch/kiln/cmd/kiln/commands"
	"go.trai.ch/kiln/internal/app"
	"go.trai.ch/kiln/internal/build"
	"go.trai.ch/kiln/internal/core/domain"
)

type mockApp struct {
	buildFunc func(ctx context.Context, opts app.BuildOptions) error
	watchFunc func(ctx context.Context, opts app.WatchOptions) error
	planFunc  func(ctx context.Context, opts app.PlanOptions) error
	cleanFunc func(ctx context.Context, opts app.CleanOptions) error
	jsonLogs  bool
}

func (m *mockApp) Build(ctx context.Context, opts app.BuildOptions) error {
	if m.buildFunc != nil {
		return m.buildFunc(ctx, opts)
	}
	return nil
}

func (m *mockApp) Watch(ctx context.Context, opts app.WatchOptions) error {
	if m.watchFunc != nil {
		return m.watchFunc(ctx, opts)
	}
	return nil
}

func (m *mockApp) Plan(ctx context.Context, opts app.PlanOptions) error {
	if m.planFunc != nil {
		return m.planFunc(ctx, opts)
	}
	return nil
}

func (m *mockApp) Clean(ctx context.Context, opts app.CleanOptions) error {
	if m.cleanFunc != nil {
		return m.cleanFunc(ctx, opts)
	}
	return nil
}

func (m *mockApp) SetJSONLogs(enable bool) {
	m.jsonLogs = enable
}

func execute(t *testing.T, a commands.Application, args ...string) (string, error) {
	t.Helper()
	cli := commands.New(a)
	buf := new(bytes.Buffer)
	cli.SetOutput(buf, buf)
	cli.SetArgs(args)
	err := cli.Execute(t.Context())
	return buf.String(), err
}

func TestCommands_Build(t *testing.T) {
	tests := []struct {
		name string
		args []string
		want app.BuildOptions
	}{
		{
			name: "defaults to debug",
			args: []string{"build"},
			want: app.BuildOptions{Mode: domain.ModeDebug, OutputMode: "auto"},
		},
		{
			name: "release",
			args: []string{"build", "--release"},
			want: app.BuildOptions{Mode: domain.ModeRelease, OutputMode: "auto"},
		},
		{
			name: "explicit debug",
			args: []string{"build", "--debug", "--no-cache", "-j", "4"},
			want: app.BuildOptions{Mode: domain.ModeDebug, NoCache: true, Jobs: 4, OutputMode: "auto"},
		},
		{
			name: "dev alias",
			args: []string{"dev", "--output-mode", "linear"},
			want: app.BuildOptions{Mode: domain.ModeDebug, OutputMode: "linear"},
		},
		{
			name: "global config flag",
			args: []string{"--config", "site/kiln.yaml", "build", "--release"},
			want: app.BuildOptions{ConfigPath: "site/kiln.yaml", Mode: domain.ModeRelease, OutputMode: "auto"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got app.BuildOptions
			called := false
			mock := &mockApp{
				buildFunc: func(_ context.Context, opts app.BuildOptions) error {
					got = opts
					called = true
					return nil
				},
			}

			_, err := execute(t, mock, tt.args...)
			require.NoError(t, err)
			assert.True(t, called)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestCommands_Build_ReleaseAndDebugConflict(t *testing.T) {
	mock := &mockApp{
		buildFunc: func(context.Context, app.BuildOptions) error {
			panic("should not be called")
		},
	}

	_, err := execute(t, mock, "build", "--release", "--debug")
	require.Error(t, err)
}

func TestCommands_Build_ReturnsError(t *testing.T) {
	mock := &mockApp{
		buildFunc: func(context.Context, app.BuildOptions) error {
			return errors.New("simulated error")
		},
	}

	_, err := execute(t, mock, "build")
	require.ErrorContains(t, err, "simulated error")
}

func TestCommands_Watch(t *testing.T) {
	var got app.WatchOptions
	mock := &mockApp{
		watchFunc: func(_ context.Context, opts app.WatchOptions) error {
			got = opts
			return nil
		},
	}

	_, err := execute(t, mock, "watch", "--port", "9000", "--no-cache", "-o", "pretty")
	require.NoError(t, err)
	assert.Equal(t, app.WatchOptions{Port: 9000, NoCache: true, OutputMode: "pretty"}, got)
}

func TestCommands_Plan(t *testing.T) {
	var got app.PlanOptions
	mock := &mockApp{
		planFunc: func(_ context.Context, opts app.PlanOptions) error {
			got = opts
			return nil
		},
	}

	_, err := execute(t, mock, "plan", "--json", "-c", "kiln.yaml")
	require.NoError(t, err)
	assert.Equal(t, app.PlanOptions{ConfigPath: "kiln.yaml", JSON: true}, got)
	assert.True(t, mock.jsonLogs)
}

func TestCommands_Clean(t *testing.T) {
	tests := []struct {
		name string
		args []string
		want app.CleanOptions
	}{
		{name: "destination only", args: []string{"clean"}, want: app.CleanOptions{}},
		{name: "with state", args: []string{"clean", "--state"}, want: app.CleanOptions{State: true}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got app.CleanOptions
			mock := &mockApp{
				cleanFunc: func(_ context.Context, opts app.CleanOptions) error {
					got = opts
					return nil
				},
			}

			_, err := execute(t, mock, tt.args...)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestCommands_JSONLogs(t *testing.T) {
	mock := &mockApp{}

	_, err := execute(t, mock, "--json", "dev")
	require.NoError(t, err)
	assert.True(t, mock.jsonLogs)

	mock = &mockApp{}
	_, err = execute(t, mock, "dev")
	require.NoError(t, err)
	assert.False(t, mock.jsonLogs)
}

func TestCommands_RejectsArguments(t *testing.T) {
	_, err := execute(t, &mockApp{}, "build", "extra")
	require.Error(t, err)
}

func TestCommands_Version(t *testing.T) {
	out, err := execute(t, &mockApp{}, "version")
	require.NoError(t, err)
	assert.Equal(t, "kiln version "+build.Version+" (commit: "+build.Commit+", date: "+build.Date+")\n", out)
}

func TestCommands_VersionFlag(t *testing.T) {
	out, err := execute(t, &mockApp{}, "--version")
	require.NoError(t, err)
	assert.Contains(t, out, "kiln version "+build.Version)
}
