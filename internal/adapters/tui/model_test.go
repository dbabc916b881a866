package tui_test

import (
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.trai.ch/kiln/internal/adapters/telemetry"
	"go.trai.ch/kiln/internal/adapters/tui"
	"go.trai.ch/kiln/internal/core/domain"
	"go.trai.ch/zerr"
)

func TestModel_Update(t *testing.T) {
	const (
		styles  = "css/site.css"
		script  = "js/app.js"
		page    = "index.html"
		spanID1 = "span-1"
		spanID2 = "span-2"
	)
	initialTasks := []string{styles, script, page}

	initModel := func() *tui.Model {
		m, _ := updateModel(&tui.Model{}, telemetry.MsgInitTasks{Tasks: initialTasks})
		return m
	}

	t.Run("Window Resizing", func(t *testing.T) {
		m := initModel()

		width, height := 100, 50
		m, _ = updateModel(m, tea.WindowSizeMsg{Width: width, Height: height})

		expectedListWidth := int(float64(width) * 0.3)
		expectedLogWidth := width - expectedListWidth - 4

		assert.Equal(t, expectedLogWidth, m.LogWidth)
		assert.Equal(t, expectedLogWidth, m.Tasks[0].Term.Width)
		assert.Positive(t, m.ListHeight)
		assert.Less(t, m.ListHeight, height)
		assert.Equal(t, m.LogHeight, m.Tasks[0].Term.Height)
	})

	t.Run("Selection Navigation", func(t *testing.T) {
		m := initModel()

		m, _ = updateModel(m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("j")})
		assert.Equal(t, 1, m.SelectedIdx)
		assert.False(t, m.FollowMode, "FollowMode should be disabled on manual nav")
		assert.Equal(t, script, m.ActiveTaskName)

		m, _ = updateModel(m, tea.KeyMsg{Type: tea.KeyDown})
		m, _ = updateModel(m, tea.KeyMsg{Type: tea.KeyDown})
		assert.Equal(t, 2, m.SelectedIdx, "selection stops at the end of the list")

		m, _ = updateModel(m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("k")})
		m, _ = updateModel(m, tea.KeyMsg{Type: tea.KeyUp})
		m, _ = updateModel(m, tea.KeyMsg{Type: tea.KeyUp})
		assert.Equal(t, 0, m.SelectedIdx, "selection stops at the start of the list")
	})

	t.Run("Quit Keeps The Build Running", func(t *testing.T) {
		m := initModel()

		m, cmd := updateModel(m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("q")})
		assert.Equal(t, tea.Quit(), cmd())
		assert.False(t, m.Interrupted)
	})

	t.Run("Follow Mode (Esc)", func(t *testing.T) {
		m := initModel()
		m, _ = updateModel(m, telemetry.MsgTaskStart{Name: script, SpanID: spanID1})

		m.SelectedIdx = 0
		m.FollowMode = false

		m, _ = updateModel(m, tea.KeyMsg{Type: tea.KeyEsc})

		assert.True(t, m.FollowMode)
		assert.Equal(t, 1, m.SelectedIdx, "Esc should jump to the running task")
	})

	t.Run("MsgTaskStart", func(t *testing.T) {
		m := initModel()

		m, _ = updateModel(m, telemetry.MsgTaskStart{Name: styles, SpanID: spanID1})
		requireTaskStatus(t, m, styles, tui.StatusRunning)
		assert.Equal(t, m.Tasks[0], m.SpanMap[spanID1])

		m.FollowMode = true
		m, _ = updateModel(m, telemetry.MsgTaskStart{Name: page, SpanID: spanID2})
		assert.Equal(t, 2, m.SelectedIdx, "FollowMode should switch selection to the new task")
		assert.Equal(t, page, m.ActiveTaskName)
	})

	t.Run("MsgTaskStart For An Unplanned Destination", func(t *testing.T) {
		m := initModel()

		m, _ = updateModel(m, telemetry.MsgTaskStart{Name: "about.html", SpanID: spanID1})

		require.Len(t, m.Tasks, 4)
		assert.Equal(t, "about.html", m.Tasks[3].Name)
		requireTaskStatus(t, m, "about.html", tui.StatusRunning)
	})

	t.Run("MsgTaskLog", func(t *testing.T) {
		m := initModel()
		m, _ = updateModel(m, telemetry.MsgTaskStart{Name: styles, SpanID: spanID1})

		m, _ = updateModel(m, telemetry.MsgTaskLog{SpanID: spanID1, Data: []byte("Compiling site.scss\n")})

		assert.Positive(t, m.TaskMap[styles].Term.UsedHeight())
	})

	t.Run("MsgTaskComplete", func(t *testing.T) {
		m := initModel()
		start := time.Now()
		m, _ = updateModel(m, telemetry.MsgTaskStart{Name: styles, SpanID: spanID1, StartTime: start})
		m, _ = updateModel(m, telemetry.MsgTaskComplete{SpanID: spanID1, EndTime: start.Add(120 * time.Millisecond)})

		requireTaskStatus(t, m, styles, tui.StatusDone)
		assert.Equal(t, 120*time.Millisecond, m.TaskMap[styles].Duration)
		assert.NotContains(t, m.SpanMap, spanID1)

		m, _ = updateModel(m, telemetry.MsgTaskStart{Name: script, SpanID: spanID2})
		m, _ = updateModel(m, telemetry.MsgTaskComplete{SpanID: spanID2, Err: zerr.New("Unexpected \";\"")})
		requireTaskStatus(t, m, script, tui.StatusError)
		assert.Positive(t, m.TaskMap[script].Term.UsedHeight(), "the error is kept in the log pane")
	})

	t.Run("Cached Task", func(t *testing.T) {
		m := initModel()
		m, _ = updateModel(m, telemetry.MsgTaskStart{Name: page, SpanID: spanID1})
		m, _ = updateModel(m, telemetry.MsgTaskComplete{SpanID: spanID1, Cached: true})

		requireTaskStatus(t, m, page, tui.StatusDone)
		assert.True(t, m.TaskMap[page].Cached)
	})

	t.Run("MsgBuildComplete", func(t *testing.T) {
		m := initModel()
		report := &domain.BuildReport{Built: 2, Cached: 1}

		m, _ = updateModel(m, telemetry.MsgBuildComplete{Report: report})

		assert.Same(t, report, m.Report)
	})
}

func updateModel(m *tui.Model, msg tea.Msg) (*tui.Model, tea.Cmd) {
	updated, cmd := m.Update(msg)
	return updated.(*tui.Model), cmd
}

func requireTaskStatus(t *testing.T, m *tui.Model, taskName string, expected tui.TaskStatus) {
	t.Helper()
	node, ok := m.TaskMap[taskName]
	require.True(t, ok, "Task %s should exist in TaskMap", taskName)
	assert.Equal(t, expected, node.Status)
}
