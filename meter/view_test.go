package meter

import (
	"errors"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
)

type fixedLevels []float64

func (f fixedLevels) Levels() []float64 { return f }

func TestModel(t *testing.T) {
	t.Run("tick refreshes levels", func(t *testing.T) {
		src := fixedLevels{-30, -50}
		m := NewModel("Audacity", src, DefaultBar(), 10*time.Millisecond)

		updated, cmd := m.Update(tickMsg(time.Now()))
		if cmd == nil {
			t.Error("tick should schedule the next tick")
		}
		view := updated.View()
		if !strings.Contains(view, "Audacity") {
			t.Errorf("View() missing title: %q", view)
		}
		if !strings.Contains(view, "-30.00") || !strings.Contains(view, "-50.00") {
			t.Errorf("View() missing levels: %q", view)
		}
	})

	t.Run("q quits", func(t *testing.T) {
		m := NewModel("x", fixedLevels{0}, DefaultBar(), time.Second)
		_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'q'}})
		if cmd == nil {
			t.Fatal("expected quit command")
		}
		if _, ok := cmd().(tea.QuitMsg); !ok {
			t.Error("q did not quit")
		}
	})

	t.Run("bar settings can be replaced", func(t *testing.T) {
		m := NewModel("x", fixedLevels{-20}, DefaultBar(), time.Second)
		updated, _ := m.Update(SetBar(Bar{MinDB: -60, MaxDB: -20, Width: 3}))
		if !strings.Contains(updated.View(), "[-=#]") {
			t.Errorf("View() = %q, want 3-wide bar", updated.View())
		}
	})

	t.Run("capture exit ends the meter", func(t *testing.T) {
		m := NewModel("x", fixedLevels{0}, DefaultBar(), time.Second)
		exitErr := errors.New("exit status 1")
		updated, cmd := m.Update(CaptureExited(exitErr))
		if cmd == nil {
			t.Fatal("expected quit command")
		}
		ended, err := updated.(Model).CaptureEnded()
		if !ended || err != exitErr {
			t.Errorf("CaptureEnded() = %v, %v", ended, err)
		}
	})
}
