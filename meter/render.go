package meter

import (
	"fmt"
	"math"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// Bar renders a dB level as a fixed-width bar between MinDB and MaxDB.
type Bar struct {
	MinDB float64
	MaxDB float64
	Width int
}

// DefaultBar matches the meter defaults: 50 characters from -60 to -20 dB.
func DefaultBar() Bar {
	return Bar{MinDB: -60, MaxDB: -20, Width: 50}
}

const (
	lowBarChar    = '-'
	mediumBarChar = '='
	fullBarChar   = '#'
	emptyChar     = ' '
)

var (
	channelStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("2"))
	barStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("6"))
	dbStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("7"))
)

// Fill returns how many of the bar's characters are lit for db.
func (b Bar) Fill(db float64) int {
	span := b.MaxDB - b.MinDB
	if span <= 0 || math.IsNaN(db) {
		return 0
	}
	normalized := math.Max(0, math.Min(1, (db-b.MinDB)/span))
	return int(math.Round(normalized * float64(b.Width)))
}

// Render returns the uncolored bar for db. The lit part is split in thirds:
// '-' then '=' then '#'.
func (b Bar) Render(db float64) string {
	lit := b.Fill(db)
	third := float64(lit) / 3

	var sb strings.Builder
	sb.Grow(b.Width)
	for i := 0; i < b.Width; i++ {
		switch {
		case i >= lit:
			sb.WriteRune(emptyChar)
		case float64(i) < third:
			sb.WriteRune(lowBarChar)
		case float64(i) < 2*third:
			sb.WriteRune(mediumBarChar)
		default:
			sb.WriteRune(fullBarChar)
		}
	}
	return sb.String()
}

// Line renders one colored meter line: "<channel> [<bar>] <db> dB".
func (b Bar) Line(channel int, db float64) string {
	return fmt.Sprintf("%s [%s] %s dB",
		channelStyle.Render(fmt.Sprint(channel)),
		barStyle.Render(b.Render(db)),
		dbStyle.Render(fmt.Sprintf("%.2f", db)),
	)
}
