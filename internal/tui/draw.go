package tui

import (
	"fmt"
	"math"
	"strings"

	"github.com/gdamore/tcell/v2"
	"github.com/rivo/uniseg"

	"github.com/jmylchreest/picpalette/internal/colour"
	"github.com/jmylchreest/picpalette/internal/session"
)

var (
	styleTitle = tcell.StyleDefault.Bold(true)
	styleDim   = tcell.StyleDefault.Dim(true)
)

func (a *App) draw() {
	s := a.screen
	s.Clear()
	w, h := s.Size()

	state := a.ctrl.State()
	title := "picpalette"
	if in := a.ctrl.Input(); in != "" {
		title += "  " + in
	}
	a.text(0, rowTitle, styleTitle, title)
	stateStyle := styleDim
	if state.Busy() {
		stateStyle = styleTitle
	}
	a.text(w-len(state.String())-1, rowTitle, stateStyle, state.String())

	a.text(0, rowPrompt, tcell.StyleDefault, "Image: "+string(a.input))
	s.ShowCursor(len("Image: ")+len(a.input), rowPrompt)

	switch {
	case a.ctrl.Loading():
		a.text(0, rowPreview, styleDim, "Processing image...")
	case a.ctrl.Preview():
		a.text(0, rowPreview, styleDim, "Preview ready. Click a swatch to copy it. Ctrl+E export, Ctrl+L clear, Esc quit.")
	default:
		a.text(0, rowPreview, styleDim, "Type, paste or drop an image path and press Enter.")
	}

	a.drawSwatches(h - 1)
	a.drawStatus(w, h-1)
	s.Show()
}

func (a *App) drawSwatches(limit int) {
	now := a.now()
	palette := a.ctrl.Palette()

	a.mu.Lock()
	if palette != a.shown {
		a.shown, a.shownAt = palette, now
		a.selected = 0
	}
	elapsed := now.Sub(a.shownAt)
	a.mu.Unlock()

	for _, sw := range a.ctrl.Swatches() {
		y := rowSwatch + sw.Index
		if y >= limit {
			break
		}
		if elapsed < sw.EntryDelay {
			continue
		}
		a.drawSwatch(y, sw, sw.Index == a.selected, sw.Scale(now))
	}
}

// drawSwatch draws the colour block shrunk by scale, right aligned in its
// cell so a pressed swatch looks pushed in.
func (a *App) drawSwatch(y int, sw session.Swatch, selected bool, scale float64) {
	marker := "  "
	if selected {
		marker = "> "
	}
	a.text(0, y, tcell.StyleDefault, marker)

	width := int(math.Floor(float64(swatchW) * scale))
	x := len(marker) + swatchW - width
	block := tcell.StyleDefault.Background(tcellColour(sw.Color)).Foreground(tcellColour(colour.ContrastText(sw.Color)))
	for i := range width {
		a.screen.SetContent(x+i, y, ' ', nil, block)
	}

	label := fmt.Sprintf("%s  %s  HSL: %s", sw.Hex(), sw.Color, sw.Color.HSL())
	a.text(len(marker)+swatchW+1, y, tcell.StyleDefault, label)
}

func (a *App) drawStatus(w, y int) {
	message, accent, ok := a.status.Current()
	if !ok {
		return
	}
	a.screen.SetContent(0, y, ' ', nil, tcell.StyleDefault.Background(tcellColour(accent)))
	a.screen.SetContent(1, y, ' ', nil, tcell.StyleDefault.Background(tcellColour(accent)))
	a.text(3, y, tcell.StyleDefault.Foreground(tcellColour(accent)), truncate(message, w-3))
}

// text draws s one grapheme cluster per cell, two cells for wide ones.
func (a *App) text(x, y int, style tcell.Style, s string) {
	g := uniseg.NewGraphemes(s)
	for g.Next() {
		runes := g.Runes()
		a.screen.SetContent(x, y, runes[0], runes[1:], style)
		x += max(1, g.Width())
	}
}

// truncate cuts s to at most cells terminal columns without splitting a
// grapheme cluster.
func truncate(s string, cells int) string {
	if cells <= 0 {
		return ""
	}
	if uniseg.StringWidth(s) <= cells {
		return s
	}

	var b strings.Builder
	width := 0
	g := uniseg.NewGraphemes(s)
	for g.Next() {
		if width+g.Width() > cells {
			break
		}
		b.WriteString(g.Str())
		width += g.Width()
	}
	return b.String()
}
