// Package tui is the interactive terminal front-end of a palette session.
//
// The screen shows a path prompt, the image preview state, one line per
// swatch and a status line for notifications. Swatches are clicked with
// the mouse or picked with the arrow keys and Enter. Pasting or dropping a
// file path into the terminal uploads it.
package tui

import (
	"context"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/gdamore/tcell/v2"
	"github.com/hashicorp/go-hclog"

	"github.com/jmylchreest/picpalette/internal/colour"
	"github.com/jmylchreest/picpalette/internal/session"
)

// tick drives entry and press animations.
const tick = 50 * time.Millisecond

// Layout rows.
const (
	rowTitle   = 0
	rowPrompt  = 1
	rowPreview = 2
	rowSwatch  = 4
	swatchW    = 10
)

// App runs a session.Controller on a tcell screen.
type App struct {
	screen tcell.Screen
	ctrl   *session.Controller
	status *StatusSink
	logger hclog.Logger
	now    func() time.Time

	input    []rune
	pasting  bool
	paste    []rune
	selected int
	buttons  tcell.ButtonMask

	mu      sync.Mutex
	shown   *colour.Palette
	shownAt time.Time

	// clicks tracks clipboard writes running off the event loop.
	clicks sync.WaitGroup
}

// New creates an App. status should be the sink behind the controller's
// notifier.
func New(screen tcell.Screen, ctrl *session.Controller, status *StatusSink, logger hclog.Logger) *App {
	if logger == nil {
		logger = hclog.NewNullLogger()
	}
	return &App{
		screen: screen,
		ctrl:   ctrl,
		status: status,
		logger: logger,
		now:    time.Now,
	}
}

// Run initialises the screen and processes events until the user quits or
// ctx is cancelled. If initial is not empty it is uploaded first.
func (a *App) Run(ctx context.Context, initial string) error {
	if err := a.screen.Init(); err != nil {
		return err
	}
	defer a.screen.Fini()
	defer a.clicks.Wait()

	a.screen.EnableMouse()
	a.screen.EnablePaste()
	a.screen.SetStyle(tcell.StyleDefault)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	go func() {
		ticker := time.NewTicker(tick)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				_ = a.screen.PostEvent(tcell.NewEventInterrupt(ctx.Err()))
				return
			case <-ticker.C:
				if a.animating() {
					_ = a.screen.PostEvent(tcell.NewEventInterrupt(nil))
				}
			}
		}
	}()

	a.ctrl.Start(ctx)
	if initial != "" {
		_ = a.ctrl.UploadPath(initial)
	}

	for {
		a.draw()
		ev := a.screen.PollEvent()
		if ev == nil {
			return nil
		}
		if quit := a.handle(ctx, ev); quit {
			return nil
		}
	}
}

// handle processes one event and reports whether the app should exit.
func (a *App) handle(ctx context.Context, ev tcell.Event) bool {
	switch ev := ev.(type) {
	case *tcell.EventInterrupt:
		if err, ok := ev.Data().(error); ok && err != nil {
			return true
		}
	case *tcell.EventResize:
		a.screen.Sync()
	case *tcell.EventPaste:
		if ev.Start() {
			a.pasting, a.paste = true, a.paste[:0]
			return false
		}
		a.pasting = false
		a.drop(string(a.paste))
	case *tcell.EventMouse:
		a.mouse(ctx, ev)
	case *tcell.EventKey:
		return a.key(ctx, ev)
	}
	return false
}

func (a *App) key(ctx context.Context, ev *tcell.EventKey) bool {
	if a.pasting {
		switch ev.Key() {
		case tcell.KeyRune:
			a.paste = append(a.paste, ev.Rune())
		case tcell.KeyEnter:
			a.paste = append(a.paste, '\n')
		}
		return false
	}

	if ke, ok := shortcut(ev); ok {
		if ke.Rune == 'c' {
			return true
		}
		if a.ctrl.HandleKey(ke) {
			if ke.Rune == 'l' {
				a.input = a.input[:0]
				a.selected = 0
			}
			return false
		}
	}

	switch ev.Key() {
	case tcell.KeyEscape:
		return true
	case tcell.KeyUp:
		a.move(-1)
	case tcell.KeyDown:
		a.move(1)
	case tcell.KeyBackspace, tcell.KeyBackspace2:
		if len(a.input) > 0 {
			a.input = a.input[:len(a.input)-1]
		}
	case tcell.KeyEnter:
		if len(a.input) == 0 {
			a.click(ctx, a.selected)
			return false
		}
		path := cleanPath(string(a.input))
		a.input = a.input[:0]
		if err := a.ctrl.UploadPath(path); err != nil {
			a.logger.Debug("upload rejected", "path", path, "error", err)
		}
	case tcell.KeyRune:
		a.input = append(a.input, ev.Rune())
	}
	return false
}

// shortcut maps Ctrl/Cmd+letter to a session.KeyEvent.
func shortcut(ev *tcell.EventKey) (session.KeyEvent, bool) {
	mod := ev.Modifiers()
	k := ev.Key()

	if k >= tcell.KeyCtrlA && k <= tcell.KeyCtrlZ {
		return session.KeyEvent{Rune: rune('a' + (k - tcell.KeyCtrlA)), Ctrl: true}, true
	}
	if k == tcell.KeyRune && mod&(tcell.ModCtrl|tcell.ModMeta) != 0 {
		return session.KeyEvent{
			Rune: ev.Rune(),
			Ctrl: mod&tcell.ModCtrl != 0,
			Meta: mod&tcell.ModMeta != 0,
		}, true
	}
	return session.KeyEvent{}, false
}

func (a *App) mouse(ctx context.Context, ev *tcell.EventMouse) {
	buttons := ev.Buttons()
	pressed := buttons&tcell.Button1 != 0 && a.buttons&tcell.Button1 == 0
	a.buttons = buttons
	if !pressed {
		return
	}

	_, y := ev.Position()
	if i := y - rowSwatch; i >= 0 && i < len(a.ctrl.Swatches()) {
		a.selected = i
		a.click(ctx, i)
	}
}

// click copies swatch i on its own goroutine; clipboard programs can be
// slow and the event loop must keep running. The result reaches the screen
// through the notifier and a redraw interrupt.
func (a *App) click(ctx context.Context, i int) {
	a.clicks.Add(1)
	go func() {
		defer a.clicks.Done()
		if err := a.ctrl.Click(ctx, i); err != nil {
			a.logger.Debug("swatch click failed", "index", i, "error", err)
		}
		_ = a.screen.PostEvent(tcell.NewEventInterrupt(nil))
	}()
}

func (a *App) move(delta int) {
	n := len(a.ctrl.Swatches())
	if n == 0 {
		a.selected = 0
		return
	}
	a.selected = (a.selected + delta + n) % n
}

// drop uploads the first path in a paste. Terminals deliver dropped files
// as quoted paths or file:// URLs.
func (a *App) drop(text string) {
	var paths []string
	for _, line := range strings.Split(text, "\n") {
		if p := cleanPath(line); p != "" {
			paths = append(paths, p)
		}
	}
	if err := a.ctrl.Drop(paths); err != nil {
		a.logger.Debug("drop rejected", "paths", paths, "error", err)
	}
}

func cleanPath(s string) string {
	s = strings.TrimSpace(s)
	if len(s) >= 2 && (s[0] == '\'' || s[0] == '"') && s[len(s)-1] == s[0] {
		s = s[1 : len(s)-1]
	}
	if strings.HasPrefix(s, "file://") {
		if u, err := url.Parse(s); err == nil {
			return u.Path
		}
	}
	return strings.ReplaceAll(s, `\ `, " ")
}

// animating reports whether an entry or press animation is running.
func (a *App) animating() bool {
	now := a.now()
	swatches := a.ctrl.Swatches()
	if len(swatches) == 0 {
		return false
	}
	a.mu.Lock()
	shownAt := a.shownAt
	a.mu.Unlock()
	if now.Sub(shownAt) <= swatches[len(swatches)-1].EntryDelay {
		return true
	}
	for _, sw := range swatches {
		if sw.Pressed(now) {
			return true
		}
	}
	return false
}
