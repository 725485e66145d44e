// Package tui provides the terminal progress view for prism.
package tui

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/ShayCichocki/prism/internal/graph"
	"github.com/ShayCichocki/prism/pkg/models"
)

// BranchStatus is the display state of one research branch.
type BranchStatus string

const (
	BranchPending BranchStatus = "pending"
	BranchRunning BranchStatus = "running"
	BranchDone    BranchStatus = "done"
	BranchFailed  BranchStatus = "failed"
)

type branchRow struct {
	task     string
	status   BranchStatus
	duration time.Duration
	err      string
}

// EventMsg carries an engine event into the program.
type EventMsg struct {
	Event graph.Event
}

// DoneMsg is sent once the run has returned.
type DoneMsg struct {
	State *models.ExecutionState
	Err   error
}

// ProgressModel renders the live state of a single research run.
type ProgressModel struct {
	question string
	phase    string
	runID    string
	branches map[int]*branchRow
	total    int
	done     int
	finished bool
	result   *models.ExecutionState
	err      error
	started  time.Time
	width    int

	spinner spinner.Model

	// Styles
	headerStyle   lipgloss.Style
	labelStyle    lipgloss.Style
	valueStyle    lipgloss.Style
	progressFull  lipgloss.Style
	progressEmpty lipgloss.Style
	runningStyle  lipgloss.Style
	doneStyle     lipgloss.Style
	failedStyle   lipgloss.Style
	dimStyle      lipgloss.Style
}

// NewProgressModel creates a progress view for question.
func NewProgressModel(question string) *ProgressModel {
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))

	return &ProgressModel{
		question: question,
		phase:    "starting",
		branches: make(map[int]*branchRow),
		started:  time.Now(),
		spinner:  sp,

		headerStyle: lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("15")).
			BorderStyle(lipgloss.NormalBorder()).
			BorderBottom(true).
			BorderForeground(lipgloss.Color("238")).
			MarginBottom(1),
		labelStyle: lipgloss.NewStyle().
			Foreground(lipgloss.Color("245")).
			Width(12),
		valueStyle: lipgloss.NewStyle().
			Foreground(lipgloss.Color("252")).
			Bold(true),
		progressFull:  lipgloss.NewStyle().Foreground(lipgloss.Color("34")),
		progressEmpty: lipgloss.NewStyle().Foreground(lipgloss.Color("240")),
		runningStyle:  lipgloss.NewStyle().Foreground(lipgloss.Color("214")),
		doneStyle:     lipgloss.NewStyle().Foreground(lipgloss.Color("34")),
		failedStyle:   lipgloss.NewStyle().Foreground(lipgloss.Color("196")),
		dimStyle:      lipgloss.NewStyle().Foreground(lipgloss.Color("240")),
	}
}

// Init starts the spinner.
func (m *ProgressModel) Init() tea.Cmd {
	return m.spinner.Tick
}

// Update handles engine events, the final result and key presses.
func (m *ProgressModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			return m, tea.Quit
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width

	case EventMsg:
		m.apply(msg.Event)

	case DoneMsg:
		m.finished = true
		m.result = msg.State
		m.err = msg.Err
		if msg.Err != nil {
			m.phase = "failed"
		} else {
			m.phase = "complete"
		}
		return m, tea.Quit

	case spinner.TickMsg:
		if m.finished {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m *ProgressModel) apply(e graph.Event) {
	if e.RunID != "" {
		m.runID = e.RunID
	}
	if e.Total > m.total {
		m.total = e.Total
	}
	if e.Done > m.done {
		m.done = e.Done
	}

	switch e.Type {
	case graph.EventRunStarted:
		m.phase = "planning"
	case graph.EventPlanned:
		m.phase = "researching"
		for i := 0; i < e.Total; i++ {
			if _, ok := m.branches[i]; !ok {
				m.branches[i] = &branchRow{status: BranchPending}
			}
		}
	case graph.EventBranchStarted:
		m.row(e).status = BranchRunning
	case graph.EventBranchCompleted:
		r := m.row(e)
		r.status = BranchDone
		r.duration = e.Duration
	case graph.EventBranchFailed:
		r := m.row(e)
		r.status = BranchFailed
		r.duration = e.Duration
		if e.Error != nil {
			r.err = e.Error.Error()
		}
	case graph.EventSynthesized:
		m.phase = "synthesized"
	case graph.EventRunFailed:
		m.phase = "failed"
	}
}

func (m *ProgressModel) row(e graph.Event) *branchRow {
	r, ok := m.branches[e.Branch]
	if !ok {
		r = &branchRow{status: BranchPending}
		m.branches[e.Branch] = r
	}
	if e.Task != "" {
		r.task = e.Task
	}
	return r
}

// Status returns the display status of branch i.
func (m *ProgressModel) Status(i int) BranchStatus {
	if r, ok := m.branches[i]; ok {
		return r.status
	}
	return ""
}

// Progress returns merged findings and planned tasks.
func (m *ProgressModel) Progress() (done, total int) {
	return m.done, m.total
}

// Result returns the final state and error once DoneMsg has arrived.
func (m *ProgressModel) Result() (*models.ExecutionState, error) {
	return m.result, m.err
}

// View renders the progress view.
func (m *ProgressModel) View() string {
	var b strings.Builder

	title := "prism"
	if m.runID != "" {
		title += " " + m.runID
	}
	b.WriteString(m.headerStyle.Render(title))
	b.WriteString("\n")

	b.WriteString(m.labelStyle.Render("Question:"))
	b.WriteString(m.valueStyle.Render(m.question))
	b.WriteString("\n")

	b.WriteString(m.labelStyle.Render("Phase:"))
	if m.finished {
		b.WriteString(m.valueStyle.Render(m.phase))
	} else {
		b.WriteString(m.spinner.View() + " " + m.valueStyle.Render(m.phase))
	}
	b.WriteString("\n")

	pct := 0.0
	if m.total > 0 {
		pct = float64(m.done) / float64(m.total)
	}
	b.WriteString(m.labelStyle.Render("Findings:"))
	b.WriteString(fmt.Sprintf("%d/%d ", m.done, m.total))
	b.WriteString(m.renderProgressBar(pct, 30))
	b.WriteString("\n")

	if len(m.branches) > 0 {
		b.WriteString("\n")
		idx := make([]int, 0, len(m.branches))
		for i := range m.branches {
			idx = append(idx, i)
		}
		sort.Ints(idx)
		for _, i := range idx {
			b.WriteString(m.renderBranch(i, m.branches[i]))
			b.WriteString("\n")
		}
	}

	if m.err != nil {
		b.WriteString("\n")
		b.WriteString(m.failedStyle.Render("Error: " + m.err.Error()))
		b.WriteString("\n")
	}

	if !m.finished {
		b.WriteString("\n")
		b.WriteString(m.dimStyle.Render(fmt.Sprintf("elapsed %s · q to quit", time.Since(m.started).Round(time.Second))))
		b.WriteString("\n")
	}

	return b.String()
}

func (m *ProgressModel) renderBranch(i int, r *branchRow) string {
	var icon string
	switch r.status {
	case BranchRunning:
		icon = m.runningStyle.Render("●")
	case BranchDone:
		icon = m.doneStyle.Render("✓")
	case BranchFailed:
		icon = m.failedStyle.Render("✗")
	default:
		icon = m.dimStyle.Render("○")
	}

	task := r.task
	if task == "" {
		task = "(waiting)"
	}
	line := fmt.Sprintf("%s %d. %s", icon, i+1, task)
	if r.duration > 0 {
		line += m.dimStyle.Render(fmt.Sprintf(" (%s)", r.duration.Round(time.Millisecond)))
	}
	if r.err != "" {
		line += "\n     " + m.failedStyle.Render(r.err)
	}
	return line
}

func (m *ProgressModel) renderProgressBar(pct float64, width int) string {
	if pct > 1 {
		pct = 1
	}
	filled := int(pct * float64(width))
	if filled < 0 {
		filled = 0
	}
	return m.progressFull.Render(strings.Repeat("█", filled)) +
		m.progressEmpty.Render(strings.Repeat("░", width-filled))
}

// Forward converts engine events into program messages until the channel closes.
func Forward(program *tea.Program, events <-chan graph.Event) {
	for event := range events {
		program.Send(EventMsg{Event: event})
	}
}
