package meter

import (
	"math"
	"strings"
	"testing"
)

func TestBarFill(t *testing.T) {
	b := DefaultBar()
	tests := []struct {
		db   float64
		want int
	}{
		{db: -60, want: 0},
		{db: -80, want: 0},
		{db: math.Inf(-1), want: 0},
		{db: math.NaN(), want: 0},
		{db: -40, want: 25},
		{db: -20, want: 50},
		{db: 0, want: 50},
	}
	for _, tt := range tests {
		if got := b.Fill(tt.db); got != tt.want {
			t.Errorf("Fill(%v) = %d, want %d", tt.db, got, tt.want)
		}
	}
}

func TestBarRender(t *testing.T) {
	b := Bar{MinDB: -60, MaxDB: -20, Width: 12}

	t.Run("full bar in thirds", func(t *testing.T) {
		got := b.Render(-20)
		if got != "----====####" {
			t.Errorf("Render(-20) = %q", got)
		}
	})

	t.Run("half bar is padded", func(t *testing.T) {
		got := b.Render(-40)
		if got != "--==##      " {
			t.Errorf("Render(-40) = %q", got)
		}
	})

	t.Run("width is constant", func(t *testing.T) {
		for _, db := range []float64{-100, -55, -41, -20, 5} {
			if got := b.Render(db); len(got) != b.Width {
				t.Errorf("Render(%v) has width %d, want %d", db, len(got), b.Width)
			}
		}
	})
}

func TestBarLine(t *testing.T) {
	line := DefaultBar().Line(1, -33.333)
	if !strings.Contains(line, "-33.33") || !strings.HasSuffix(line, " dB") {
		t.Errorf("Line() = %q", line)
	}
}
