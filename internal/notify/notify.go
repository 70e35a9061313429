// Package notify shows short-lived messages to the user. At most one
// notification is visible at a time; a new one replaces the old and restarts
// the dismiss timer.
package notify

import (
	"sync"
	"time"

	"github.com/jmylchreest/picpalette/internal/colour"
)

// DefaultDuration is how long a notification stays up.
const DefaultDuration = 3 * time.Second

// Notification is the message currently on display.
type Notification struct {
	Message string
	Accent  colour.RGB
	Expiry  time.Time
}

// Sink renders notifications.
type Sink interface {
	Show(message string, accent colour.RGB)
	Dismiss()
}

// Notifier keeps a single notification slot in front of a Sink.
type Notifier struct {
	sink     Sink
	duration time.Duration
	now      func() time.Time
	after    func(time.Duration, func()) *time.Timer

	mu      sync.Mutex
	current *Notification
	timer   *time.Timer
	seq     uint64
}

// Option configures a Notifier.
type Option func(*Notifier)

// WithDuration overrides DefaultDuration.
func WithDuration(d time.Duration) Option {
	return func(n *Notifier) {
		n.duration = d
	}
}

// WithClock replaces time.Now and time.AfterFunc, for tests.
func WithClock(now func() time.Time, after func(time.Duration, func()) *time.Timer) Option {
	return func(n *Notifier) {
		n.now = now
		n.after = after
	}
}

// New creates a Notifier writing to sink.
func New(sink Sink, opts ...Option) *Notifier {
	n := &Notifier{
		sink:     sink,
		duration: DefaultDuration,
		now:      time.Now,
		after:    time.AfterFunc,
	}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

// Notify shows message tinted with accent, replacing any current
// notification.
func (n *Notifier) Notify(message string, accent colour.RGB) {
	n.mu.Lock()
	defer n.mu.Unlock()

	if n.timer != nil {
		n.timer.Stop()
	}

	n.seq++
	seq := n.seq
	n.current = &Notification{Message: message, Accent: accent, Expiry: n.now().Add(n.duration)}
	n.sink.Show(message, accent)
	n.timer = n.after(n.duration, func() { n.expire(seq) })
}

// Info shows a neutral notification.
func (n *Notifier) Info(message string) {
	n.Notify(message, colour.Indigo)
}

// Success shows a green notification.
func (n *Notifier) Success(message string) {
	n.Notify(message, colour.Green)
}

// Warn shows an orange notification.
func (n *Notifier) Warn(message string) {
	n.Notify(message, colour.Orange)
}

// Error shows a red notification.
func (n *Notifier) Error(message string) {
	n.Notify(message, colour.Red)
}

// Current returns the notification on display, if any.
func (n *Notifier) Current() (Notification, bool) {
	n.mu.Lock()
	defer n.mu.Unlock()

	if n.current == nil {
		return Notification{}, false
	}
	return *n.current, true
}

// Dismiss hides the current notification immediately.
func (n *Notifier) Dismiss() {
	n.mu.Lock()
	defer n.mu.Unlock()

	if n.timer != nil {
		n.timer.Stop()
		n.timer = nil
	}
	n.seq++
	if n.current != nil {
		n.current = nil
		n.sink.Dismiss()
	}
}

// expire dismisses the notification numbered seq if it is still current.
// A stopped timer can still fire, so stale sequence numbers are ignored.
func (n *Notifier) expire(seq uint64) {
	n.mu.Lock()
	defer n.mu.Unlock()

	if seq != n.seq || n.current == nil {
		return
	}
	n.current = nil
	n.timer = nil
	n.sink.Dismiss()
}
