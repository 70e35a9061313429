package session

import "unicode"

// KeyEvent is a key press as seen by a front-end.
type KeyEvent struct {
	Rune rune
	Ctrl bool

	// Meta is the Cmd key on macOS.
	Meta bool
}

// HandleKey runs the shortcut bound to ev. It returns true when the key
// was consumed and the front-end must not act on it.
//
//	Ctrl/Cmd+E  export the displayed palette
//	Ctrl/Cmd+L  clear
func (c *Controller) HandleKey(ev KeyEvent) bool {
	if !c.opts.EnableKeyboardShortcuts || !(ev.Ctrl || ev.Meta) {
		return false
	}

	switch unicode.ToLower(ev.Rune) {
	case 'e':
		if !c.opts.EnableExport {
			return false
		}
		if c.State() == Displayed {
			if _, err := c.Export(); err != nil {
				c.logger.Debug("export shortcut failed", "error", err)
			}
		}
		return true
	case 'l':
		c.Clear()
		return true
	default:
		return false
	}
}
