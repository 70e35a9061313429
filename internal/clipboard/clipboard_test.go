package clipboard

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

func fakeEnv(goos string, vars map[string]string, onPath []string, procs []string) Env {
	return Env{
		GOOS:   goos,
		Getenv: func(k string) string { return vars[k] },
		LookPath: func(name string) (string, error) {
			for _, p := range onPath {
				if p == name {
					return "/usr/bin/" + name, nil
				}
			}
			return "", errors.New("not found")
		},
		Processes: func() ([]string, error) { return procs, nil },
	}
}

func names(cmds []Command) []string {
	out := make([]string, len(cmds))
	for i, c := range cmds {
		out[i] = c.Name
	}
	return out
}

func TestCandidates(t *testing.T) {
	all := []string{"wl-copy", "xclip", "xsel", "pbcopy", "clip.exe"}

	tests := []struct {
		name string
		env  Env
		want []string
	}{
		{
			name: "wayland session",
			env:  fakeEnv("linux", map[string]string{"WAYLAND_DISPLAY": "wayland-1"}, all, nil),
			want: []string{"wl-copy", "xclip", "xsel"},
		},
		{
			name: "x11 session",
			env:  fakeEnv("linux", map[string]string{"DISPLAY": ":0"}, all, nil),
			want: []string{"xclip", "xsel"},
		},
		{
			name: "x11 without xclip",
			env:  fakeEnv("linux", map[string]string{"DISPLAY": ":0"}, []string{"xsel"}, nil),
			want: []string{"xsel"},
		},
		{
			name: "compositor found by process",
			env:  fakeEnv("linux", nil, all, []string{"systemd", "Hyprland", "bash"}),
			want: []string{"wl-copy", "xclip", "xsel"},
		},
		{
			name: "x server found by process",
			env:  fakeEnv("linux", nil, all, []string{"Xorg"}),
			want: []string{"xclip", "xsel"},
		},
		{
			name: "wsl",
			env:  fakeEnv("linux", map[string]string{"WSL_DISTRO_NAME": "Ubuntu"}, all, nil),
			want: []string{"clip.exe"},
		},
		{
			name: "macos",
			env:  fakeEnv("darwin", nil, all, nil),
			want: []string{"pbcopy"},
		},
		{
			name: "windows",
			env:  fakeEnv("windows", nil, all, nil),
			want: []string{"clip.exe"},
		},
		{
			name: "headless",
			env:  fakeEnv("linux", nil, all, []string{"sshd"}),
			want: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := names(Candidates(tt.env))
			if len(got) == 0 {
				got = nil
			}
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("Candidates() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestOSC52(t *testing.T) {
	var buf bytes.Buffer
	o := &OSC52{Out: &buf}

	if err := o.Write(context.Background(), "#336699"); err != nil {
		t.Fatalf("Write() error = %v", err)
	}
	if got, want := buf.String(), "\x1b]52;c;IzMzNjY5OQ==\x07"; got != want {
		t.Errorf("Write() emitted %q, want %q", got, want)
	}
}

type fakeWriter struct {
	err error
	got []string
}

func (f *fakeWriter) Write(_ context.Context, text string) error {
	f.got = append(f.got, text)
	return f.err
}

func TestChain(t *testing.T) {
	failing := &fakeWriter{err: errors.New("no display")}
	working := &fakeWriter{}

	chain := &Chain{Writers: []Writer{failing, working}}
	if err := chain.Write(context.Background(), "#ff0000"); err != nil {
		t.Fatalf("Write() error = %v", err)
	}
	if diff := cmp.Diff([]string{"#ff0000"}, working.got); diff != "" {
		t.Errorf("fallback writer mismatch (-want +got):\n%s", diff)
	}

	allFail := &Chain{Writers: []Writer{failing, &fakeWriter{err: errors.New("nope")}}}
	if err := allFail.Write(context.Background(), "x"); !errors.Is(err, ErrClipboardFailure) {
		t.Errorf("Write() error = %v, want ErrClipboardFailure", err)
	}

	if err := (&Chain{}).Write(context.Background(), "x"); !errors.Is(err, ErrClipboardFailure) {
		t.Errorf("empty chain error = %v, want ErrClipboardFailure", err)
	}
}

func TestNewChain(t *testing.T) {
	env := fakeEnv("linux", map[string]string{"DISPLAY": ":0"}, []string{"xclip"}, nil)

	tests := []struct {
		backend string
		tty     io.Writer
		want    int
		wantErr bool
	}{
		{backend: BackendAuto, tty: &bytes.Buffer{}, want: 2},
		{backend: "", want: 1},
		{backend: BackendOSC52, tty: &bytes.Buffer{}, want: 1},
		{backend: "pbcopy", want: 1},
		{backend: "clippy", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.backend, func(t *testing.T) {
			chain, err := newChain(tt.backend, env, tt.tty, nil)
			if (err != nil) != tt.wantErr {
				t.Fatalf("newChain() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err == nil && len(chain.Writers) != tt.want {
				t.Errorf("newChain() built %d writers, want %d", len(chain.Writers), tt.want)
			}
		})
	}
}

func TestCommandWrite(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("uses sh")
	}

	out := filepath.Join(t.TempDir(), "clip.txt")
	cmd := Command{Name: "sh", Args: []string{"-c", "cat > " + out}}

	if err := cmd.Write(context.Background(), "#336699"); err != nil {
		t.Fatalf("Write() error = %v", err)
	}
	data, err := os.ReadFile(out)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "#336699" {
		t.Errorf("clipboard got %q, want #336699", data)
	}

	bad := Command{Name: "sh", Args: []string{"-c", "echo broken >&2; exit 1"}}
	err = bad.Write(context.Background(), "x")
	if !errors.Is(err, ErrClipboardFailure) {
		t.Errorf("Write() error = %v, want ErrClipboardFailure", err)
	}
}

func TestCommandWriteDoesNotWaitForForkedChild(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("uses sh")
	}

	// Like xclip: read the text, leave a child holding stderr, exit at once.
	cmd := Command{Name: "sh", Args: []string{"-c", "cat >/dev/null; (sleep 3) & exit 0"}}

	start := time.Now()
	if err := cmd.Write(context.Background(), "#336699"); err != nil {
		t.Fatalf("Write() error = %v", err)
	}
	if elapsed := time.Since(start); elapsed > 2*time.Second {
		t.Errorf("Write() took %v, want it to return once the command exits", elapsed)
	}
}

func TestBackends(t *testing.T) {
	got := Backends()
	if got[0] != BackendAuto || got[1] != BackendOSC52 || len(got) != 2+len(Commands) {
		t.Errorf("Backends() = %v", got)
	}
}
