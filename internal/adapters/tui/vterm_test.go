package tui_test

import (
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.trai.ch/kiln/internal/adapters/tui"
)

func TestVterm_Write(t *testing.T) {
	t.Parallel()

	t.Run("write at bottom sticks to bottom", func(t *testing.T) {
		t.Parallel()
		vt := tui.NewVterm()
		vt.SetHeight(5)

		_, err := vt.Write([]byte("1\n2\n3\n4\n5\n6\n7\n"))
		require.NoError(t, err)

		assert.Positive(t, vt.MaxOffset())
		assert.Equal(t, vt.MaxOffset(), vt.Offset)
	})

	t.Run("write while scrolled up stays scrolled", func(t *testing.T) {
		t.Parallel()
		vt := tui.NewVterm()
		vt.SetHeight(5)
		_, _ = vt.Write([]byte("1\n2\n3\n4\n5\n6\n"))
		vt.Offset = 0

		_, err := vt.Write([]byte("7\n8\n"))
		require.NoError(t, err)

		assert.Equal(t, 0, vt.Offset)
	})
}

func TestVterm_SetHeight(t *testing.T) {
	t.Parallel()

	vt := tui.NewVterm()
	_, _ = vt.Write([]byte("1\n2\n3\n4\n5\n6\n7\n8\n9\n10"))

	vt.Offset = vt.MaxOffset()
	vt.SetHeight(5)
	assert.Equal(t, 5, vt.Height)
	assert.Equal(t, vt.MaxOffset(), vt.Offset)

	vt.Offset = 0
	vt.SetHeight(2)
	assert.Equal(t, 0, vt.Offset)

	vt.SetHeight(20)
	assert.Equal(t, 0, vt.Offset)

	vt.SetHeight(0)
	assert.Equal(t, 1, vt.Height)
}

func TestVterm_SetWidth(t *testing.T) {
	t.Parallel()

	vt := tui.NewVterm()
	vt.Prefix = ">> "

	vt.SetWidth(10)
	assert.Equal(t, 10, vt.Width)

	vt.SetWidth(0)
	assert.Equal(t, 1, vt.Width)
}

func TestVterm_ViewRendersWindow(t *testing.T) {
	t.Parallel()

	vt := tui.NewVterm()
	vt.SetHeight(2)
	_, _ = vt.Write([]byte("first\nsecond\nthird\n"))
	vt.Offset = 0

	view := vt.View()
	assert.Contains(t, view, "first")
	assert.Contains(t, view, "second")
	assert.NotContains(t, view, "third")
}

func TestVterm_Update(t *testing.T) {
	t.Parallel()

	vt := tui.NewVterm()
	vt.SetHeight(2)
	_, _ = vt.Write([]byte("1\n2\n3\n4\n5\n6\n"))

	vt.Update(tea.KeyMsg{Type: tea.KeyHome})
	assert.Equal(t, 0, vt.Offset)

	vt.Update(tea.KeyMsg{Type: tea.KeyPgDown})
	assert.Equal(t, 2, vt.Offset)

	vt.Update(tea.KeyMsg{Type: tea.KeyPgUp})
	vt.Update(tea.KeyMsg{Type: tea.KeyPgUp})
	assert.Equal(t, 0, vt.Offset, "offset is clamped at the top")

	vt.Update(tea.KeyMsg{Type: tea.KeyEnd})
	assert.Equal(t, vt.MaxOffset(), vt.Offset)

	vt.ScrollToBottom()
	assert.Equal(t, vt.MaxOffset(), vt.Offset)
}
