package tui

import (
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
	"go.trai.ch/kiln/internal/adapters/telemetry"
	"go.trai.ch/kiln/internal/core/domain"
)

const (
	taskListWidthRatio = 0.3
	logPaneBorderWidth = 4
)

// TaskStatus represents the current state of a destination.
type TaskStatus string

const (
	// StatusPending indicates the task is waiting to start.
	StatusPending TaskStatus = "Pending"
	// StatusRunning indicates the task is currently executing.
	StatusRunning TaskStatus = "Running"
	// StatusDone indicates the task built or was up to date.
	StatusDone TaskStatus = "Done"
	// StatusError indicates the task failed.
	StatusError TaskStatus = "Error"
)

// TaskNode is one destination in the task list.
type TaskNode struct {
	Name     string
	Status   TaskStatus
	Term     *Vterm
	Cached   bool
	Started  time.Time
	Duration time.Duration
}

// Model represents the main TUI state.
type Model struct {
	Tasks          []*TaskNode
	TaskMap        map[string]*TaskNode
	SpanMap        map[string]*TaskNode
	Output         *termenv.Output
	AutoScroll     bool
	ActiveTaskName string
	SelectedIdx    int
	ListOffset     int
	ListHeight     int
	LogWidth       int
	LogHeight      int
	FollowMode     bool

	// Report is set once the build has finished.
	Report *domain.BuildReport
	// Interrupted is set when the user pressed ctrl+c.
	Interrupted bool

	interrupt func()
}

// Init initializes the model.
//
//nolint:gocritic // hugeParam ignored
func (m *Model) Init() tea.Cmd {
	return nil
}

func (m *Model) ensureVisible() {
	if m.ListHeight <= 0 {
		return
	}
	if m.SelectedIdx < m.ListOffset {
		m.ListOffset = m.SelectedIdx
	} else if m.SelectedIdx >= m.ListOffset+m.ListHeight {
		m.ListOffset = m.SelectedIdx - m.ListHeight + 1
	}
}

func (m *Model) getSelectedTask() *TaskNode {
	if m.SelectedIdx >= 0 && m.SelectedIdx < len(m.Tasks) {
		return m.Tasks[m.SelectedIdx]
	}
	return nil
}

func (m *Model) updateActiveView() {
	node := m.getSelectedTask()
	if node == nil {
		return
	}
	m.ActiveTaskName = node.Name

	if m.FollowMode && m.AutoScroll {
		node.Term.ScrollToBottom()
	}
}

func (m *Model) selectTask(name string) {
	for i, t := range m.Tasks {
		if t.Name == name {
			m.SelectedIdx = i
			break
		}
	}
	m.ensureVisible()
	m.updateActiveView()
}

// Update handles incoming messages and updates the model state.
//
//nolint:cyclop,gocritic // hugeParam ignored, cyclop ignored
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m, m.handleKey(msg)

	case tea.WindowSizeMsg:
		m.resize(msg.Width, msg.Height)

	case telemetry.MsgInitTasks:
		m.Tasks = make([]*TaskNode, len(msg.Tasks))
		m.TaskMap = make(map[string]*TaskNode, len(msg.Tasks))
		m.SpanMap = make(map[string]*TaskNode)
		for i, name := range msg.Tasks {
			m.Tasks[i] = &TaskNode{
				Name:   name,
				Status: StatusPending,
				Term:   m.newTerm(),
			}
			m.TaskMap[name] = m.Tasks[i]
		}

	case telemetry.MsgTaskStart:
		if m.TaskMap == nil {
			m.TaskMap = make(map[string]*TaskNode)
			m.SpanMap = make(map[string]*TaskNode)
		}
		node, ok := m.TaskMap[msg.Name]
		if !ok {
			// Destinations re-run outside the announced plan are appended.
			node = &TaskNode{Name: msg.Name, Term: m.newTerm()}
			m.Tasks = append(m.Tasks, node)
			m.TaskMap[msg.Name] = node
		}
		node.Status = StatusRunning
		node.Cached = false
		node.Started = msg.StartTime
		m.SpanMap[msg.SpanID] = node

		// Focus follows activity only in follow mode.
		if m.FollowMode {
			m.selectTask(msg.Name)
		}

	case telemetry.MsgTaskLog:
		if node, ok := m.SpanMap[msg.SpanID]; ok {
			_, _ = node.Term.Write(msg.Data)
		}

	case telemetry.MsgTaskComplete:
		node, ok := m.SpanMap[msg.SpanID]
		if !ok {
			return m, nil
		}
		delete(m.SpanMap, msg.SpanID)
		if !node.Started.IsZero() {
			node.Duration = msg.EndTime.Sub(node.Started)
		}
		node.Cached = msg.Cached
		if msg.Err != nil {
			node.Status = StatusError
			_, _ = node.Term.Write([]byte(msg.Err.Error() + "\n"))
		} else {
			node.Status = StatusDone
		}

	case telemetry.MsgBuildComplete:
		m.Report = msg.Report
	}

	return m, nil
}

func (m *Model) handleKey(msg tea.KeyMsg) tea.Cmd {
	switch msg.String() {
	case "ctrl+c":
		m.Interrupted = true
		if m.interrupt != nil {
			m.interrupt()
		}
		return tea.Quit
	case "q":
		return tea.Quit
	case "k", "up":
		if m.SelectedIdx > 0 {
			m.SelectedIdx--
			m.FollowMode = false
			m.ensureVisible()
			m.updateActiveView()
		}
	case "j", "down":
		if m.SelectedIdx < len(m.Tasks)-1 {
			m.SelectedIdx++
			m.FollowMode = false
			m.ensureVisible()
			m.updateActiveView()
		}
	case "esc":
		m.FollowMode = true
		// Jump to the first running task if any.
		for i, t := range m.Tasks {
			if t.Status == StatusRunning {
				m.SelectedIdx = i
				break
			}
		}
		m.ensureVisible()
		m.updateActiveView()
	default:
		// Remaining keys scroll the log pane.
		if node, ok := m.TaskMap[m.ActiveTaskName]; ok {
			node.Term.Update(msg)
		}
	}
	return nil
}

func (m *Model) resize(width, height int) {
	// 30% for the task list, the rest for the log pane.
	listWidth := int(float64(width) * taskListWidthRatio)
	m.LogWidth = width - listWidth - logPaneBorderWidth

	headerHeight := lipgloss.Height(titleStyle.Render("LOGS"))
	m.LogHeight = height - headerHeight

	// The list header is followed by a blank line and the list by the summary line.
	fullHeader := titleStyle.Render("DESTINATIONS") + "\n\n"
	m.ListHeight = height - lipgloss.Height(fullHeader) - 1
	m.ensureVisible()

	for _, node := range m.Tasks {
		node.Term.SetWidth(m.LogWidth)
		node.Term.SetHeight(m.LogHeight)
	}
}

func (m *Model) newTerm() *Vterm {
	term := NewVterm()
	if m.LogWidth > 0 && m.LogHeight > 0 {
		term.SetWidth(m.LogWidth)
		term.SetHeight(m.LogHeight)
	}
	return term
}
