package notify

import (
	"fmt"
	"io"
	"sync"

	"github.com/hashicorp/go-hclog"

	"github.com/jmylchreest/picpalette/internal/colour"
)

// LogSink writes notifications to an hclog logger.
type LogSink struct {
	Logger hclog.Logger
}

// Show logs the message with its accent.
func (s LogSink) Show(message string, accent colour.RGB) {
	s.Logger.Info(message, "accent", accent.Hex())
}

// Dismiss is a no-op; log lines cannot be taken back.
func (s LogSink) Dismiss() {}

// TerminalSink prints notifications as coloured lines.
type TerminalSink struct {
	mu  sync.Mutex
	out io.Writer
}

// NewTerminalSink writes to out.
func NewTerminalSink(out io.Writer) *TerminalSink {
	return &TerminalSink{out: out}
}

// Show prints message on a bar of the accent colour.
func (s *TerminalSink) Show(message string, accent colour.RGB) {
	s.mu.Lock()
	defer s.mu.Unlock()

	fmt.Fprintln(s.out, colour.ColourPreviewWithText(accent, message, len(message)+2))
}

// Dismiss is a no-op; printed lines stay in the scrollback.
func (s *TerminalSink) Dismiss() {}

// Recorder is a Sink that remembers what it was asked to show.
type Recorder struct {
	mu        sync.Mutex
	shown     []Notification
	dismissed int
}

// Show records the notification.
func (r *Recorder) Show(message string, accent colour.RGB) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.shown = append(r.shown, Notification{Message: message, Accent: accent})
}

// Dismiss counts the dismissal.
func (r *Recorder) Dismiss() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.dismissed++
}

// Shown returns every notification recorded so far.
func (r *Recorder) Shown() []Notification {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Notification(nil), r.shown...)
}

// Last returns the most recent notification.
func (r *Recorder) Last() (Notification, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.shown) == 0 {
		return Notification{}, false
	}
	return r.shown[len(r.shown)-1], true
}

// Dismissed returns how many times Dismiss was called.
func (r *Recorder) Dismissed() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.dismissed
}

// Multi fans notifications out to several sinks.
type Multi []Sink

// Show forwards to every sink.
func (m Multi) Show(message string, accent colour.RGB) {
	for _, s := range m {
		s.Show(message, accent)
	}
}

// Dismiss forwards to every sink.
func (m Multi) Dismiss() {
	for _, s := range m {
		s.Dismiss()
	}
}
