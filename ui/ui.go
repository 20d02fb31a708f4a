// Package ui renders a terminal dashboard around a tutoring session: the
// session status, the card under review, and the running transcript. It
// never owns session state; it polls orchestrator snapshots and issues
// operations on keypresses.
package ui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/reflow/wordwrap"

	orchestration "github.com/koscakluka/tutor-core/core"
	"github.com/koscakluka/tutor-core/core/cards"
)

const snapshotInterval = 100 * time.Millisecond

var (
	titleStyle      = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("205"))
	statusStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	cardStyle       = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	correctStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("42"))
	incorrectStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("196"))
	errorStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	transcriptStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("252"))
)

type keyMap struct {
	Connect    key.Binding
	Study      key.Binding
	Disconnect key.Binding
	Quit       key.Binding
}

var keys = keyMap{
	Connect:    key.NewBinding(key.WithKeys("c"), key.WithHelp("c", "connect")),
	Study:      key.NewBinding(key.WithKeys("s"), key.WithHelp("s", "study")),
	Disconnect: key.NewBinding(key.WithKeys("d"), key.WithHelp("d", "disconnect")),
	Quit:       key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
}

type snapshotMsg orchestration.Snapshot

type operationDoneMsg struct{ err error }

// Model is the bubbletea model for the tutoring dashboard.
type Model struct {
	orchestrator *orchestration.Orchestrator
	deck         string

	snapshot   orchestration.Snapshot
	transcript viewport.Model
	width      int
	height     int
	ready      bool
	lastOpErr  error
}

func NewModel(orchestrator *orchestration.Orchestrator, deck string) Model {
	return Model{orchestrator: orchestrator, deck: deck}
}

func (m Model) Init() tea.Cmd {
	return m.pollSnapshot()
}

func (m Model) pollSnapshot() tea.Cmd {
	orchestrator := m.orchestrator
	return tea.Tick(snapshotInterval, func(time.Time) tea.Msg {
		return snapshotMsg(orchestrator.Snapshot())
	})
}

func (m Model) runOperation(operation func(context.Context) error) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		return operationDoneMsg{err: operation(ctx)}
	}
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		transcriptHeight := max(msg.Height-12, 3)
		if !m.ready {
			m.transcript = viewport.New(msg.Width, transcriptHeight)
			m.ready = true
		} else {
			m.transcript.Width = msg.Width
			m.transcript.Height = transcriptHeight
		}
		return m, nil

	case snapshotMsg:
		previousLen := len(m.snapshot.Transcript)
		m.snapshot = orchestration.Snapshot(msg)
		if m.ready {
			m.transcript.SetContent(m.renderTranscript())
			if len(m.snapshot.Transcript) != previousLen {
				m.transcript.GotoBottom()
			}
		}
		return m, m.pollSnapshot()

	case operationDoneMsg:
		m.lastOpErr = msg.err
		return m, nil

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, keys.Quit):
			return m, tea.Sequence(
				m.runOperation(func(ctx context.Context) error {
					return m.orchestrator.Disconnect(ctx)
				}),
				tea.Quit,
			)
		case key.Matches(msg, keys.Connect):
			return m, m.runOperation(m.orchestrator.Connect)
		case key.Matches(msg, keys.Study):
			deck := m.deck
			return m, m.runOperation(func(ctx context.Context) error {
				return m.orchestrator.StartStudySession(ctx, deck)
			})
		case key.Matches(msg, keys.Disconnect):
			return m, m.runOperation(m.orchestrator.Disconnect)
		}
	}

	var cmd tea.Cmd
	m.transcript, cmd = m.transcript.Update(msg)
	return m, cmd
}

func (m Model) renderTranscript() string {
	width := max(m.width-2, 20)
	lines := make([]string, 0, len(m.snapshot.Transcript))
	for _, line := range m.snapshot.Transcript {
		lines = append(lines, wordwrap.String(line, width))
	}
	return transcriptStyle.Render(strings.Join(lines, "\n"))
}

func (m Model) statusLine() string {
	status := fmt.Sprintf("phase: %s", m.snapshot.Phase)
	if m.snapshot.Mode != "" {
		deck := m.snapshot.Deck
		if deck == "" {
			deck = "demo"
		}
		status += fmt.Sprintf(" | deck: %s (%s)", deck, m.snapshot.Mode)
	}
	if m.snapshot.Phase == orchestration.PhaseConnectedStudying {
		status += fmt.Sprintf(" | %d cards remaining", m.snapshot.QueueLength)
	}
	return statusStyle.Render(status)
}

func (m Model) cardPanel() string {
	if m.snapshot.Phase != orchestration.PhaseConnectedStudying {
		return cardStyle.Render("No study session running. Press s to study.")
	}
	if m.snapshot.CurrentCard == nil {
		return cardStyle.Render("Deck finished!")
	}

	width := max(m.width-6, 20)
	content := wordwrap.String(m.snapshot.CurrentCard.Front, width)
	if m.snapshot.Verdict != nil {
		verdict := correctStyle.Render("correct")
		if *m.snapshot.Verdict == cards.VerdictIncorrect {
			verdict = incorrectStyle.Render("incorrect")
		}
		content += "\n\n" + verdict
	}
	return cardStyle.Render(content)
}

func (m Model) View() string {
	if !m.ready {
		return "Starting up..."
	}

	sections := []string{
		titleStyle.Render("Flashcard Tutor"),
		m.statusLine(),
		m.cardPanel(),
		m.transcript.View(),
	}

	if m.lastOpErr != nil {
		sections = append(sections, errorStyle.Render("operation failed: "+m.lastOpErr.Error()))
	} else if m.snapshot.LastError != "" {
		sections = append(sections, errorStyle.Render(m.snapshot.LastError))
	}

	sections = append(sections, statusStyle.Render("c connect | s study | d disconnect | q quit"))
	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}
