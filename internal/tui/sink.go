package tui

import (
	"sync"

	"github.com/gdamore/tcell/v2"

	"github.com/jmylchreest/picpalette/internal/colour"
)

// StatusSink is a notify.Sink that shows the current notification on the
// bottom line of the screen.
type StatusSink struct {
	screen tcell.Screen

	mu      sync.Mutex
	message string
	accent  colour.RGB
	visible bool
}

// NewStatusSink returns a sink drawing on screen.
func NewStatusSink(screen tcell.Screen) *StatusSink {
	return &StatusSink{screen: screen}
}

// Show replaces the status line and asks for a redraw.
func (s *StatusSink) Show(message string, accent colour.RGB) {
	s.mu.Lock()
	s.message, s.accent, s.visible = message, accent, true
	s.mu.Unlock()
	Refresher(s.screen)()
}

// Dismiss empties the status line.
func (s *StatusSink) Dismiss() {
	s.mu.Lock()
	s.visible = false
	s.mu.Unlock()
	Refresher(s.screen)()
}

// Current returns the status line, if any.
func (s *StatusSink) Current() (string, colour.RGB, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.message, s.accent, s.visible
}

// Refresher returns a function that wakes the event loop of screen so it
// redraws. It is safe to call from any goroutine.
func Refresher(screen tcell.Screen) func() {
	return func() {
		_ = screen.PostEvent(tcell.NewEventInterrupt(nil))
	}
}

func tcellColour(c colour.RGB) tcell.Color {
	return tcell.NewRGBColor(int32(c.R), int32(c.G), int32(c.B))
}
