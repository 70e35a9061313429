// Package clipboard copies text to the system clipboard.
//
// A platform command (wl-copy, xclip, xsel, pbcopy, clip.exe) is preferred.
// When none works, the text is sent to the controlling terminal as an
// OSC 52 escape, which most modern terminal emulators honour.
package clipboard

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"runtime"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/hashicorp/go-hclog"
	"github.com/mitchellh/go-ps"
	"golang.org/x/term"
)

// ErrClipboardFailure is returned when no backend could take the text.
var ErrClipboardFailure = errors.New("clipboard write failed")

// pipeGrace bounds how long Write waits on stderr after the command has
// exited. xclip and wl-copy fork a child that owns the selection and keeps
// the inherited pipe open.
const pipeGrace = 250 * time.Millisecond

// Writer puts text on a clipboard.
type Writer interface {
	Write(ctx context.Context, text string) error
}

// Command is a clipboard program that reads the text on stdin.
type Command struct {
	Name string
	Args []string
}

// Write runs the command with text on stdin.
func (c Command) Write(ctx context.Context, text string) error {
	cmd := exec.CommandContext(ctx, c.Name, c.Args...) // #nosec G204 - command comes from the fixed table below
	cmd.Stdin = strings.NewReader(text)

	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	cmd.WaitDelay = pipeGrace

	err := cmd.Run()
	if errors.Is(err, exec.ErrWaitDelay) {
		// The command itself succeeded; only a forked child still holds stderr.
		return nil
	}
	if err != nil {
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			return fmt.Errorf("%w: %s: %s", ErrClipboardFailure, c.Name, msg)
		}
		return fmt.Errorf("%w: %s: %w", ErrClipboardFailure, c.Name, err)
	}
	return nil
}

// String returns the command line.
func (c Command) String() string {
	return strings.Join(append([]string{c.Name}, c.Args...), " ")
}

// Commands lists the supported clipboard programs by name.
var Commands = map[string]Command{
	"wl-copy":  {Name: "wl-copy"},
	"xclip":    {Name: "xclip", Args: []string{"-selection", "clipboard"}},
	"xsel":     {Name: "xsel", Args: []string{"--clipboard", "--input"}},
	"pbcopy":   {Name: "pbcopy"},
	"clip.exe": {Name: "clip.exe"},
}

// Backend names accepted by NewSystem besides the command names.
const (
	BackendAuto  = "auto"
	BackendOSC52 = "osc52"
)

// Env is the part of the environment detection looks at.
type Env struct {
	GOOS      string
	Getenv    func(string) string
	LookPath  func(string) (string, error)
	Processes func() ([]string, error)
}

// SystemEnv returns the real environment.
func SystemEnv() Env {
	return Env{
		GOOS:      runtime.GOOS,
		Getenv:    os.Getenv,
		LookPath:  exec.LookPath,
		Processes: runningExecutables,
	}
}

var (
	waylandCompositors = []string{"sway", "Hyprland", "kwin_wayland", "weston", "river", "labwc", "niri", "wayfire"}
	xServers           = []string{"Xorg", "X", "Xwayland"}
)

// Candidates returns clipboard commands in the order they should be tried
// for env. Only commands present on PATH are returned.
func Candidates(env Env) []Command {
	var order []string
	switch {
	case env.GOOS == "darwin":
		order = []string{"pbcopy"}
	case env.GOOS == "windows":
		order = []string{"clip.exe"}
	default:
		wayland := env.Getenv("WAYLAND_DISPLAY") != ""
		x11 := env.Getenv("DISPLAY") != ""
		if !wayland && !x11 && env.Processes != nil {
			if procs, err := env.Processes(); err == nil {
				wayland = containsAny(procs, waylandCompositors)
				x11 = containsAny(procs, xServers)
			}
		}

		if wayland {
			order = append(order, "wl-copy")
		}
		if x11 || wayland {
			order = append(order, "xclip", "xsel")
		}
		if env.Getenv("WSL_DISTRO_NAME") != "" {
			order = append(order, "clip.exe")
		}
	}

	var out []Command
	for _, name := range order {
		if _, err := env.LookPath(name); err == nil {
			out = append(out, Commands[name])
		}
	}
	return out
}

// OSC52 writes the text as an OSC 52 escape sequence.
type OSC52 struct {
	mu  sync.Mutex
	Out io.Writer
}

// Write emits the escape for the system clipboard selection.
func (o *OSC52) Write(_ context.Context, text string) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	seq := "\x1b]52;c;" + base64.StdEncoding.EncodeToString([]byte(text)) + "\x07"
	if _, err := io.WriteString(o.Out, seq); err != nil {
		return fmt.Errorf("%w: osc52: %w", ErrClipboardFailure, err)
	}
	return nil
}

// String names the backend.
func (o *OSC52) String() string {
	return BackendOSC52
}

// Chain tries each writer in turn until one succeeds.
type Chain struct {
	Writers []Writer
	Logger  hclog.Logger
}

// Write tries every writer and returns ErrClipboardFailure when all fail.
func (c *Chain) Write(ctx context.Context, text string) error {
	if len(c.Writers) == 0 {
		return fmt.Errorf("%w: no clipboard backend available", ErrClipboardFailure)
	}

	var errs []error
	for _, w := range c.Writers {
		err := w.Write(ctx, text)
		if err == nil {
			return nil
		}
		if c.Logger != nil {
			c.Logger.Debug("clipboard backend failed", "backend", fmt.Sprint(w), "error", err)
		}
		errs = append(errs, err)
	}
	return fmt.Errorf("%w: %w", ErrClipboardFailure, errors.Join(errs...))
}

// NewSystem builds the clipboard for this machine. backend is "auto", a
// command name from Commands, or "osc52". The OSC 52 fallback is appended
// whenever stdout is a terminal.
func NewSystem(backend string, logger hclog.Logger) (Writer, error) {
	return newChain(backend, SystemEnv(), terminalOut(), logger)
}

func newChain(backend string, env Env, tty io.Writer, logger hclog.Logger) (*Chain, error) {
	if logger == nil {
		logger = hclog.NewNullLogger()
	}
	chain := &Chain{Logger: logger}

	switch backend {
	case "", BackendAuto:
		for _, c := range Candidates(env) {
			chain.Writers = append(chain.Writers, c)
		}
	case BackendOSC52:
	default:
		c, ok := Commands[backend]
		if !ok {
			return nil, fmt.Errorf("unknown clipboard backend: %s (valid: %s)", backend, strings.Join(Backends(), ", "))
		}
		chain.Writers = append(chain.Writers, c)
	}

	if tty != nil {
		chain.Writers = append(chain.Writers, &OSC52{Out: tty})
	}

	logger.Debug("clipboard backends", "count", len(chain.Writers), "backends", fmt.Sprint(chain.Writers))
	return chain, nil
}

// Backends returns every accepted backend name.
func Backends() []string {
	names := []string{BackendAuto, BackendOSC52}
	for name := range Commands {
		names = append(names, name)
	}
	slices.Sort(names[2:])
	return names
}

// terminalOut returns stdout when it is a terminal.
func terminalOut() io.Writer {
	if term.IsTerminal(int(os.Stdout.Fd())) {
		return os.Stdout
	}
	return nil
}

func runningExecutables() ([]string, error) {
	procs, err := ps.Processes()
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(procs))
	for _, p := range procs {
		names = append(names, p.Executable())
	}
	return names, nil
}

func containsAny(haystack, needles []string) bool {
	for _, n := range needles {
		if slices.Contains(haystack, n) {
			return true
		}
	}
	return false
}
