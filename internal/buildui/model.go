package buildui

import (
	"fmt"
	"time"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

const colorAccent = "154" // lime green, matching the teacher's asitop-inspired palette

var (
	headerStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color(colorAccent))
	dimStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	stageStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("106"))
)

// tickMsg requests a re-render; the model polls the tracker rather
// than being pushed to, since progress updates come from a worker
// pool that doesn't hold a reference to the bubbletea program.
type tickMsg time.Time

func tick() tea.Cmd {
	return tea.Tick(100*time.Millisecond, func(t time.Time) tea.Msg { return tickMsg(t) })
}

// model is the bubbletea model driving the interactive build progress
// display.
type model struct {
	tracker  *Tracker
	progress progress.Model
	spinner  spinner.Model
	done     bool
}

func newModel(tracker *Tracker) model {
	p := progress.New(progress.WithDefaultGradient())
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(lipgloss.Color(colorAccent))
	return model{tracker: tracker, progress: p, spinner: s}
}

func (m model) Init() tea.Cmd {
	return tea.Batch(tick(), m.spinner.Tick)
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			return m, tea.Quit
		}
	case tickMsg:
		if m.done {
			return m, nil
		}
		return m, tick()
	case doneMsg:
		m.done = true
		return m, tea.Quit
	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m model) View() string {
	snap := m.tracker.Snapshot()
	bar := m.progress.ViewAs(snap.Progress)

	header := headerStyle.Render("docsearch-build")
	stage := stageStyle.Render(fmt.Sprintf("%s %s", m.spinner.View(), snap.Stage))
	counts := dimStyle.Render(fmt.Sprintf("%d/%d", snap.Current, snap.Total))
	eta := ""
	if snap.ETA > 0 {
		eta = dimStyle.Render(fmt.Sprintf(" eta %s", snap.ETA.Round(time.Second)))
	}

	return fmt.Sprintf("%s\n%s  %s\n%s%s\n", header, stage, counts, bar, eta)
}

// doneMsg signals the build pipeline finished; Renderer.Finish sends it.
type doneMsg struct{}
