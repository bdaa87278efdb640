package meter

import (
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// LevelSource provides the levels to draw.
type LevelSource interface {
	Levels() []float64
}

type tickMsg time.Time

type barMsg Bar

type exitedMsg struct{ err error }

// SetBar returns a message that replaces the model's bar settings.
func SetBar(b Bar) tea.Msg {
	return barMsg(b)
}

// CaptureExited returns a message telling the model the capture ended.
func CaptureExited(err error) tea.Msg {
	return exitedMsg{err: err}
}

var titleStyle = lipgloss.NewStyle().Bold(true)

// Model is the bubbletea model of the level meter.
type Model struct {
	title    string
	source   LevelSource
	bar      Bar
	interval time.Duration
	levels   []float64
	exitErr  error
	exited   bool
}

// NewModel creates a meter redrawing levels from source every interval.
func NewModel(title string, source LevelSource, bar Bar, interval time.Duration) Model {
	return Model{
		title:    title,
		source:   source,
		bar:      bar,
		interval: interval,
		levels:   source.Levels(),
	}
}

func (m Model) tick() tea.Cmd {
	return tea.Tick(m.interval, func(t time.Time) tea.Msg { return tickMsg(t) })
}

func (m Model) Init() tea.Cmd {
	return m.tick()
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "esc", "ctrl+c":
			return m, tea.Quit
		}
	case tickMsg:
		m.levels = m.source.Levels()
		return m, m.tick()
	case barMsg:
		m.bar = Bar(msg)
	case exitedMsg:
		m.exited = true
		m.exitErr = msg.err
		return m, tea.Quit
	}
	return m, nil
}

func (m Model) View() string {
	var sb strings.Builder
	sb.WriteString(titleStyle.Render(m.title))
	sb.WriteString("\n\n")
	for ch, db := range m.levels {
		sb.WriteString(m.bar.Line(ch, db))
		sb.WriteString("\n")
	}
	if m.exited {
		sb.WriteString(fmt.Sprintf("\ncapture ended: %v\n", m.exitErr))
	} else {
		sb.WriteString("\npress q to quit\n")
	}
	return sb.String()
}

// CaptureEnded reports whether the capture ended while the meter was
// running, and its exit status.
func (m Model) CaptureEnded() (bool, error) {
	return m.exited, m.exitErr
}
