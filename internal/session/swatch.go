package session

import (
	"time"

	"github.com/jmylchreest/picpalette/internal/colour"
)

const (
	// EntryStagger is the delay between consecutive swatch entry animations.
	EntryStagger = 100 * time.Millisecond

	// PressDuration is how long a clicked swatch stays pressed.
	PressDuration = 150 * time.Millisecond

	// PressedScale is the scale of a pressed swatch.
	PressedScale = 0.95
)

// Swatch is one clickable palette colour and its view state.
type Swatch struct {
	Color colour.RGB
	Index int

	// EntryDelay is when the swatch should appear, relative to the palette.
	EntryDelay time.Duration

	// PressedUntil is the end of the click pulse. Zero when never clicked.
	PressedUntil time.Time
}

// Pressed reports whether the click pulse is running at now.
func (s Swatch) Pressed(now time.Time) bool {
	return now.Before(s.PressedUntil)
}

// Scale returns the display scale at now.
func (s Swatch) Scale(now time.Time) float64 {
	if s.Pressed(now) {
		return PressedScale
	}
	return 1
}

// Hex returns the swatch colour as #rrggbb.
func (s Swatch) Hex() string {
	return s.Color.Hex()
}

func buildSwatches(p *colour.Palette) []Swatch {
	swatches := make([]Swatch, 0, p.Len())
	for i, c := range p.All() {
		swatches = append(swatches, Swatch{
			Color:      c,
			Index:      i,
			EntryDelay: time.Duration(i) * EntryStagger,
		})
	}
	return swatches
}
