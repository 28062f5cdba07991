package ui

import (
	"fmt"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/anime-shed/webcritic-go/internal/service"
)

type outcomeMsg struct {
	outcome service.Outcome
}

// RoastModel shows a spinner until the critique arrives, then the score cards
type RoastModel struct {
	spinner  spinner.Model
	label    string
	outcomes <-chan service.Outcome
	outcome  *service.Outcome
	width    int
	aborted  bool
}

func NewRoastModel(label string, outcomes <-chan service.Outcome) RoastModel {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = spinnerStyle

	return RoastModel{
		spinner:  s,
		label:    label,
		outcomes: outcomes,
		width:    DefaultWidth,
	}
}

func waitForOutcome(outcomes <-chan service.Outcome) tea.Cmd {
	return func() tea.Msg {
		return outcomeMsg{outcome: <-outcomes}
	}
}

func (m RoastModel) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, waitForOutcome(m.outcomes))
}

func (m RoastModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case outcomeMsg:
		m.outcome = &msg.outcome
		return m, tea.Quit

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q", "esc":
			m.aborted = true
			return m, tea.Quit
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m RoastModel) View() string {
	if m.outcome != nil {
		return RenderSnapshot(m.outcome.Snapshot, m.width) + "\n"
	}
	if m.aborted {
		return mutedStyle.Render("Stopped waiting. The critique keeps running in the background.") + "\n"
	}
	return fmt.Sprintf("%s Roasting %s...\n", m.spinner.View(), m.label)
}

// Outcome returns the critique outcome once it has arrived
func (m RoastModel) Outcome() (service.Outcome, bool) {
	if m.outcome == nil {
		return service.Outcome{}, false
	}
	return *m.outcome, true
}
