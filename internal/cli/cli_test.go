package cli

import (
	"bytes"
	"errors"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/spf13/pflag"

	"github.com/jmylchreest/picpalette/internal/config"
	"github.com/jmylchreest/picpalette/internal/export"
	pimage "github.com/jmylchreest/picpalette/internal/image"
)

// run executes the root command with args and returns stdout.
func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	t.Chdir(t.TempDir())

	reset := func(f *pflag.Flag) {
		_ = f.Value.Set(f.DefValue)
		f.Changed = false
	}
	rootCmd.PersistentFlags().VisitAll(reset)
	for _, c := range rootCmd.Commands() {
		c.Flags().VisitAll(reset)
	}

	var stdout, stderr bytes.Buffer
	rootCmd.SetOut(&stdout)
	rootCmd.SetErr(&stderr)
	rootCmd.SetArgs(args)

	err := rootCmd.Execute()
	return stdout.String(), err
}

func writeImage(t *testing.T, name string, w, h int, c color.Color) string {
	t.Helper()

	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := range h {
		for x := range w {
			img.Set(x, y, c)
		}
	}

	path := filepath.Join(t.TempDir(), name)
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	if err := png.Encode(f, img); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestDeriveCommand(t *testing.T) {
	out, err := run(t, "derive", "#ff0000", "--format", "hex")
	if err != nil {
		t.Fatalf("derive error = %v", err)
	}

	want := []string{"#ff0000", "#00ffff", "#ff0000", "#ff1e00", "#ff001e", "#00ff00", "#0000ff"}
	if diff := cmp.Diff(want, strings.Fields(out)); diff != "" {
		t.Errorf("derive output mismatch (-want +got):\n%s", diff)
	}
}

func TestDeriveTable(t *testing.T) {
	out, err := run(t, "derive", "336699")
	if err != nil {
		t.Fatalf("derive error = %v", err)
	}
	for _, want := range []string{"Role", "base", "#336699", "rgb(51, 102, 153)", "210°, 50%, 40%", "triadic-240"} {
		if !strings.Contains(out, want) {
			t.Errorf("derive table missing %q:\n%s", want, out)
		}
	}
}

func TestDeriveInvalid(t *testing.T) {
	if _, err := run(t, "derive", "not-a-colour"); err == nil {
		t.Error("derive with bad hex expected error")
	}
	if _, err := run(t, "derive", "#fff", "--format", "yaml"); err == nil {
		t.Error("derive with bad format expected error")
	}
}

func TestExtractCommand(t *testing.T) {
	path := writeImage(t, "red.png", 10, 10, color.RGBA{R: 255, A: 255})

	out, err := run(t, "extract", "--quiet", "-c", "1", path)
	if err != nil {
		t.Fatalf("extract error = %v", err)
	}
	if out != "#ff0000\n" {
		t.Errorf("extract output = %q, want %q", out, "#ff0000\n")
	}
}

func TestExtractJSONWithDerive(t *testing.T) {
	path := writeImage(t, "red.png", 10, 10, color.RGBA{R: 255, A: 255})

	out, err := run(t, "extract", "-q", "-c", "1", "-f", "table", "--derive", path)
	if err != nil {
		t.Fatalf("extract error = %v", err)
	}
	for _, want := range []string{"#ff0000", "complement", "#00ffff"} {
		if !strings.Contains(out, want) {
			t.Errorf("extract --derive output missing %q:\n%s", want, out)
		}
	}
}

func TestExtractToFile(t *testing.T) {
	path := writeImage(t, "red.png", 4, 4, color.RGBA{R: 255, A: 255})
	outPath := filepath.Join(t.TempDir(), "palette.json")

	if _, err := run(t, "extract", "-q", "-c", "1", "-f", "json", "-o", outPath, path); err != nil {
		t.Fatalf("extract error = %v", err)
	}

	data, err := os.ReadFile(outPath)
	if err != nil {
		t.Fatal(err)
	}
	entries, err := export.ParseJSON(data)
	if err != nil {
		t.Fatalf("ParseJSON() error = %v", err)
	}
	if len(entries) != 1 || entries[0].Hex != "#ff0000" {
		t.Errorf("entries = %+v, want one #ff0000", entries)
	}
}

func TestExtractRejectsText(t *testing.T) {
	path := filepath.Join(t.TempDir(), "notes.png")
	if err := os.WriteFile(path, []byte("just some text"), 0o600); err != nil {
		t.Fatal(err)
	}

	_, err := run(t, "extract", "-q", path)
	if !errors.Is(err, pimage.ErrInvalidInput) {
		t.Errorf("extract error = %v, want ErrInvalidInput", err)
	}
}

func TestExtractInvalidConfig(t *testing.T) {
	path := writeImage(t, "red.png", 4, 4, color.White)

	_, err := run(t, "extract", "-c", "50", path)
	if !errors.Is(err, config.ErrInvalidConfig) {
		t.Errorf("extract -c 50 error = %v, want ErrInvalidConfig", err)
	}

	if _, err := run(t, "extract", "-a", "octree", path); !errors.Is(err, config.ErrInvalidConfig) {
		t.Errorf("extract -a octree error = %v, want ErrInvalidConfig", err)
	}
}

func TestExportCommand(t *testing.T) {
	path := writeImage(t, "red.png", 8, 8, color.RGBA{R: 255, A: 255})
	dir := t.TempDir()

	out, err := run(t, "export", "-q", "-c", "1", "--dir", dir, "--compress", "xz", path)
	if err != nil {
		t.Fatalf("export error = %v", err)
	}

	want := filepath.Join(dir, "picpalette-colors.json.xz")
	if got := strings.TrimSpace(out); got != want {
		t.Errorf("export printed %q, want %q", got, want)
	}

	entries, err := export.ReadFile(want)
	if err != nil {
		t.Fatalf("ReadFile() error = %v", err)
	}
	if len(entries) != 1 || entries[0].Hex != "#ff0000" {
		t.Errorf("entries = %+v, want one #ff0000", entries)
	}
}

func TestExportPDF(t *testing.T) {
	path := writeImage(t, "grey.png", 8, 8, color.Gray{Y: 128})
	dir := t.TempDir()

	if _, err := run(t, "export", "-q", "-c", "1", "-d", dir, "-f", "pdf", path); err != nil {
		t.Fatalf("export error = %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, "picpalette-colors.pdf")); err != nil {
		t.Errorf("PDF not written: %v", err)
	}
}

func TestVersionCommand(t *testing.T) {
	out, err := run(t, "version")
	if err != nil {
		t.Fatalf("version error = %v", err)
	}
	if strings.TrimSpace(out) == "" {
		t.Error("version printed nothing")
	}
}

func TestPaletteFlagsRegistered(t *testing.T) {
	flags := []string{"colours", "algorithm", "quantizer-plugin", "max-width", "max-height", "max-size", "clipboard"}

	for _, name := range []string{"extract", "export", "interactive"} {
		t.Run(name, func(t *testing.T) {
			cmd, _, err := rootCmd.Find([]string{name})
			if err != nil {
				t.Fatalf("Find(%q) error = %v", name, err)
			}
			for _, flag := range flags {
				if cmd.Flags().Lookup(flag) == nil {
					t.Errorf("%s has no --%s flag", name, flag)
				}
			}
			if cmd.Flags().ShorthandLookup("c") == nil || cmd.Flags().ShorthandLookup("a") == nil {
				t.Errorf("%s is missing the -c or -a shorthand", name)
			}
		})
	}
}

func TestApplyFlags(t *testing.T) {
	if _, err := run(t, "version"); err != nil {
		t.Fatal(err)
	}

	cfg := config.Default()
	cfg.QuantizerPlugin = "/opt/q"
	if err := paletteFlags.Parse([]string{"-c", "3", "--algorithm", "muesli", "--clipboard", "osc52"}); err != nil {
		t.Fatal(err)
	}
	applyFlags(paletteFlags, &cfg)

	if cfg.Swatches != 3 || cfg.Algorithm != "muesli" || cfg.QuantizerPlugin != "" || cfg.Clipboard != "osc52" {
		t.Errorf("applyFlags() = %+v", cfg)
	}
}

func TestTableRender(t *testing.T) {
	table := NewTable("#", "Hex")
	table.AddRow("1", "\x1b[48;2;255;0;0m    \x1b[0m")
	table.AddRow("10", "#ff0000", "extra")

	want := "#   Hex\n--  -------\n1   \x1b[48;2;255;0;0m    \x1b[0m\n10  #ff0000\n"
	if got := table.Render(); got != want {
		t.Errorf("Render() = %q, want %q", got, want)
	}
}

func TestFormatPalette(t *testing.T) {
	if _, err := formatPalette(nil, "yaml", false, nil); err == nil {
		t.Error("formatPalette() with unknown format expected error")
	}
}
