package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"go.trai.ch/kiln/internal/ui/style"
)

// View renders the UI.
//
//nolint:gocritic // hugeParam ignored
func (m *Model) View() string {
	if m.ListHeight <= 0 {
		return "Initializing..."
	}

	return lipgloss.JoinHorizontal(
		lipgloss.Top,
		m.taskList(),
		m.logPane(),
	)
}

//nolint:gocritic // hugeParam ignored
func (m *Model) taskList() string {
	var s strings.Builder

	s.WriteString(titleStyle.Render("DESTINATIONS") + "\n\n")

	start := m.ListOffset
	end := min(m.ListOffset+m.ListHeight, len(m.Tasks))
	start = min(start, end)

	for i := start; i < end; i++ {
		s.WriteString(m.renderTaskRow(i, m.Tasks[i]) + "\n")
	}

	s.WriteString(m.progress())

	return listStyle.Render(s.String())
}

// progress summarizes the list: counts while building, totals once the report arrived.
func (m *Model) progress() string {
	if r := m.Report; r != nil {
		totals := fmt.Sprintf("Built %d, cached %d", r.Built, r.Cached)
		if r.Failed() {
			return failureTitleStyle.Render(fmt.Sprintf("%s, failed %d", totals, len(r.Failures)))
		}
		return titleStyle.Render(totals)
	}

	var done int
	for _, t := range m.Tasks {
		if t.Status == StatusDone || t.Status == StatusError {
			done++
		}
	}
	return faintStyle.Render(fmt.Sprintf("%d/%d", done, len(m.Tasks)))
}

func (m *Model) renderTaskRow(index int, task *TaskNode) string {
	icon := m.getTaskIcon(task)
	rowStyle := m.getTaskStyle(task)

	cursor := "  "
	if index == m.SelectedIdx {
		cursor = selectedStyle.Render("> ")
		if task.Status != StatusDone && task.Status != StatusError {
			rowStyle = selectedStyle
		}
	}

	content := fmt.Sprintf("%s %s", icon, task.Name)
	row := cursor + rowStyle.Render(content)
	if task.Duration > 0 && !task.Cached {
		row += " " + faintStyle.Render(task.Duration.Round(time.Millisecond).String())
	}
	return row
}

func (m *Model) getTaskIcon(task *TaskNode) string {
	if task.Cached {
		return style.Cached
	}

	switch task.Status {
	case StatusRunning:
		return style.Dot
	case StatusDone:
		return style.Check
	case StatusError:
		return style.Cross
	default: // Pending
		return "○"
	}
}

func (m *Model) getTaskStyle(task *TaskNode) lipgloss.Style {
	if task.Cached {
		return taskCachedStyle
	}

	switch task.Status {
	case StatusRunning:
		return taskRunningStyle
	case StatusDone:
		return taskDoneStyle
	case StatusError:
		return taskErrorStyle
	default: // Pending
		return taskPendingStyle
	}
}

//nolint:gocritic // hugeParam ignored
func (m *Model) logPane() string {
	var header, content string

	if node, ok := m.TaskMap[m.ActiveTaskName]; ok {
		status := " (Manual)"
		if m.FollowMode {
			status = " (Following)"
		}
		header = titleStyle.Render("LOGS: " + m.ActiveTaskName + status)
		content = node.Term.View()
	} else {
		header = titleStyle.Render("LOGS (Waiting...)")
	}

	return logStyle.Render(
		lipgloss.JoinVertical(
			lipgloss.Left,
			header,
			content,
		),
	)
}
