package session

import (
	"bytes"
	"context"
	"errors"
	stdimage "image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/jmylchreest/picpalette/internal/clipboard"
	"github.com/jmylchreest/picpalette/internal/colour"
	"github.com/jmylchreest/picpalette/internal/export"
	"github.com/jmylchreest/picpalette/internal/extract"
	"github.com/jmylchreest/picpalette/internal/image"
	"github.com/jmylchreest/picpalette/internal/notify"
	"github.com/jmylchreest/picpalette/internal/quantize"
)

type extractFunc func(ctx context.Context, img stdimage.Image, n int) (extract.Result, error)

type fakeExtractor struct {
	fn          extractFunc
	unavailable error
}

func (f *fakeExtractor) Extract(ctx context.Context, img stdimage.Image, n int) (extract.Result, error) {
	return f.fn(ctx, img, n)
}

func (f *fakeExtractor) Unavailable() error {
	return f.unavailable
}

func fixed(colors ...colour.RGB) *fakeExtractor {
	return &fakeExtractor{fn: func(context.Context, stdimage.Image, int) (extract.Result, error) {
		return extract.Result{Palette: colour.NewPalette(colors)}, nil
	}}
}

type fakeClipboard struct {
	mu     sync.Mutex
	texts  []string
	failed bool
}

func (f *fakeClipboard) Write(_ context.Context, text string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failed {
		return clipboard.ErrClipboardFailure
	}
	f.texts = append(f.texts, text)
	return nil
}

func pngUpload(t *testing.T, name string, w, h int, c color.Color) *image.Upload {
	t.Helper()

	img := stdimage.NewRGBA(stdimage.Rect(0, 0, w, h))
	for y := range h {
		for x := range w {
			img.Set(x, y, c)
		}
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("png.Encode() error = %v", err)
	}
	return image.FromBytes(name, "", buf.Bytes())
}

func newController(t *testing.T, ext Extractor, opts Options, extra ...Option) (*Controller, *notify.Recorder, *fakeClipboard) {
	t.Helper()

	rec := &notify.Recorder{}
	clip := &fakeClipboard{}
	options := append([]Option{
		WithNotifier(notify.New(rec)),
		WithClipboard(clip),
	}, extra...)

	c, err := New(ext, opts, options...)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	t.Cleanup(c.Close)
	return c, rec, clip
}

func lastMessage(t *testing.T, rec *notify.Recorder) notify.Notification {
	t.Helper()
	n, ok := rec.Last()
	if !ok {
		t.Fatal("no notification shown")
	}
	return n
}

func upload(t *testing.T, c *Controller, u *image.Upload) {
	t.Helper()
	if err := c.Upload(u); err != nil {
		t.Fatalf("Upload() error = %v", err)
	}
	c.Wait()
}

func TestUploadRedImage(t *testing.T) {
	ext := extract.New(context.Background(), quantize.NewKMeans(nil))
	opts := DefaultOptions()
	opts.SwatchCount = 1
	c, rec, _ := newController(t, ext, opts)

	upload(t, c, pngUpload(t, "red.png", 10, 10, color.RGBA{R: 255, A: 255}))

	if got := c.State(); got != Displayed {
		t.Fatalf("State() = %v, want %v (err = %v)", got, Displayed, c.Err())
	}
	if diff := cmp.Diff([]string{"#ff0000"}, c.Palette().Hex()); diff != "" {
		t.Errorf("Palette() mismatch (-want +got):\n%s", diff)
	}
	if got := len(c.Swatches()); got != c.Palette().Len() {
		t.Errorf("len(Swatches()) = %d, want %d", got, c.Palette().Len())
	}
	if !c.Preview() {
		t.Error("Preview() = false after upload")
	}
	if c.Loading() {
		t.Error("Loading() = true after upload")
	}
	if got := c.Input(); got != "red.png" {
		t.Errorf("Input() = %q, want red.png", got)
	}
	if got := lastMessage(t, rec).Message; got != msgProcessed {
		t.Errorf("last notification = %q, want %q", got, msgProcessed)
	}
}

func TestDegradedMode(t *testing.T) {
	ext := extract.New(context.Background(), nil, extract.WithSeed(1))
	opts := DefaultOptions()
	opts.SwatchCount = 1
	c, rec, _ := newController(t, ext, opts)

	c.Start(context.Background())
	if got := lastMessage(t, rec); got.Message != msgDegraded || got.Accent != colour.Orange {
		t.Errorf("start notification = %+v, want %q in orange", got, msgDegraded)
	}
	if first := rec.Shown()[0].Message; first != msgWelcome {
		t.Errorf("first notification = %q, want welcome", first)
	}

	upload(t, c, pngUpload(t, "red.png", 10, 10, color.RGBA{R: 255, A: 255}))

	if got := c.Palette().Len(); got != 1 {
		t.Errorf("Palette().Len() = %d, want 1", got)
	}
	if got := lastMessage(t, rec).Message; got != msgRandom {
		t.Errorf("last notification = %q, want %q", got, msgRandom)
	}
}

func TestStartAvailable(t *testing.T) {
	c, rec, _ := newController(t, fixed(colour.Red), DefaultOptions())
	c.Start(context.Background())

	shown := rec.Shown()
	if len(shown) != 1 || shown[0].Message != msgWelcome {
		t.Errorf("Start() notifications = %+v, want only the welcome", shown)
	}
}

func TestRejectedUploadKeepsPalette(t *testing.T) {
	opts := DefaultOptions()
	opts.MaxFileSize = 1024
	c, rec, _ := newController(t, fixed(colour.Red, colour.Green), opts)

	upload(t, c, pngUpload(t, "ok.png", 4, 4, color.White))
	before := c.Palette().Hex()

	tests := []struct {
		name    string
		upload  *image.Upload
		message string
	}{
		{
			name:    "text file",
			upload:  image.FromBytes("notes.txt", "", []byte("hello, world")),
			message: msgNotImage,
		},
		{
			name:    "too large",
			upload:  &image.Upload{Name: "big.png", MIME: "image/png", Size: 2048},
			message: "File size must be less than 1024 bytes",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := c.Upload(tt.upload)
			if !errors.Is(err, image.ErrInvalidInput) {
				t.Fatalf("Upload() error = %v, want ErrInvalidInput", err)
			}
			c.Wait()

			if got := c.State(); got != Displayed {
				t.Errorf("State() = %v, want %v", got, Displayed)
			}
			if diff := cmp.Diff(before, c.Palette().Hex()); diff != "" {
				t.Errorf("palette changed (-want +got):\n%s", diff)
			}
			if got := c.Input(); got != "ok.png" {
				t.Errorf("Input() = %q, want ok.png", got)
			}
			if got := lastMessage(t, rec).Message; got != tt.message {
				t.Errorf("notification = %q, want %q", got, tt.message)
			}
		})
	}
}

func TestRejectedUploadFromIdle(t *testing.T) {
	c, _, _ := newController(t, fixed(colour.Red), DefaultOptions())

	err := c.Upload(image.FromBytes("notes.txt", "text/plain", []byte("hello")))
	if !errors.Is(err, image.ErrInvalidInput) {
		t.Fatalf("Upload() error = %v, want ErrInvalidInput", err)
	}
	if got := c.State(); got != Idle {
		t.Errorf("State() = %v, want %v", got, Idle)
	}
	if got := len(c.Swatches()); got != 0 {
		t.Errorf("len(Swatches()) = %d, want 0", got)
	}
}

func TestDecodeFailure(t *testing.T) {
	c, rec, _ := newController(t, fixed(colour.Red), DefaultOptions())

	upload(t, c, image.FromBytes("broken.png", "image/png", []byte("\x89PNG\r\n\x1a\nnope")))

	if got := c.State(); got != Idle {
		t.Errorf("State() = %v, want %v", got, Idle)
	}
	if !errors.Is(c.Err(), image.ErrDecodeFailure) {
		t.Errorf("Err() = %v, want ErrDecodeFailure", c.Err())
	}
	if c.Loading() {
		t.Error("Loading() = true after failure")
	}
	if got := lastMessage(t, rec); got.Message != msgDecodeFailed || got.Accent != colour.Red {
		t.Errorf("notification = %+v, want %q in red", got, msgDecodeFailed)
	}

	upload(t, c, pngUpload(t, "ok.png", 2, 2, color.White))
	upload(t, c, image.FromBytes("broken.png", "image/png", []byte("garbage")))
	if got := c.State(); got != Displayed {
		t.Errorf("State() after failure with palette = %v, want %v", got, Displayed)
	}
	if got := c.Input(); got != "ok.png" {
		t.Errorf("Input() = %q, want ok.png", got)
	}
}

func TestExtractionFailureKeepsPalette(t *testing.T) {
	fail := false
	ext := &fakeExtractor{fn: func(context.Context, stdimage.Image, int) (extract.Result, error) {
		if fail {
			return extract.Result{}, extract.ErrExtractionFailed
		}
		return extract.Result{Palette: colour.NewPalette([]colour.RGB{colour.Green})}, nil
	}}
	c, rec, _ := newController(t, ext, DefaultOptions())

	upload(t, c, pngUpload(t, "a.png", 2, 2, color.White))
	fail = true
	upload(t, c, pngUpload(t, "b.png", 2, 2, color.White))

	if !errors.Is(c.Err(), extract.ErrExtractionFailed) {
		t.Errorf("Err() = %v, want ErrExtractionFailed", c.Err())
	}
	if diff := cmp.Diff([]string{"#00ff00"}, c.Palette().Hex()); diff != "" {
		t.Errorf("palette changed (-want +got):\n%s", diff)
	}
	if got := lastMessage(t, rec).Message; got != msgExtractFail {
		t.Errorf("notification = %q, want %q", got, msgExtractFail)
	}
}

func TestStaleUploadDiscarded(t *testing.T) {
	release := make(chan struct{})
	started := make(chan struct{})

	ext := &fakeExtractor{fn: func(_ context.Context, img stdimage.Image, _ int) (extract.Result, error) {
		if img.Bounds().Dx() == 2 {
			close(started)
			<-release
			return extract.Result{Palette: colour.NewPalette([]colour.RGB{colour.Red})}, nil
		}
		return extract.Result{Palette: colour.NewPalette([]colour.RGB{colour.Green})}, nil
	}}
	c, _, _ := newController(t, ext, DefaultOptions())

	if err := c.Upload(pngUpload(t, "slow.png", 2, 2, color.White)); err != nil {
		t.Fatal(err)
	}
	<-started

	if err := c.Upload(pngUpload(t, "fast.png", 3, 3, color.White)); err != nil {
		t.Fatal(err)
	}
	close(release)
	c.Wait()

	if diff := cmp.Diff([]string{"#00ff00"}, c.Palette().Hex()); diff != "" {
		t.Errorf("stale result displayed (-want +got):\n%s", diff)
	}
	if got := c.Input(); got != "fast.png" {
		t.Errorf("Input() = %q, want fast.png", got)
	}
}

func TestCancelledSessionRestoresState(t *testing.T) {
	started := make(chan struct{})
	var calls int
	ext := &fakeExtractor{fn: func(ctx context.Context, _ stdimage.Image, _ int) (extract.Result, error) {
		calls++
		if calls == 1 {
			return extract.Result{Palette: colour.NewPalette([]colour.RGB{colour.Red})}, nil
		}
		close(started)
		<-ctx.Done()
		return extract.Result{}, ctx.Err()
	}}
	c, rec, _ := newController(t, ext, DefaultOptions())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	c.Start(ctx)

	upload(t, c, pngUpload(t, "first.png", 2, 2, color.White))
	shown := len(rec.Shown())

	if err := c.Upload(pngUpload(t, "second.png", 2, 2, color.Black)); err != nil {
		t.Fatal(err)
	}
	<-started
	cancel()
	c.Wait()

	if got := c.State(); got != Displayed {
		t.Errorf("State() = %v, want displayed", got)
	}
	if c.Loading() {
		t.Error("Loading() = true after cancellation")
	}
	if got := c.Input(); got != "first.png" {
		t.Errorf("Input() = %q, want first.png", got)
	}
	if diff := cmp.Diff([]string{"#ff0000"}, c.Palette().Hex()); diff != "" {
		t.Errorf("palette changed (-want +got):\n%s", diff)
	}
	if !errors.Is(c.Err(), context.Canceled) {
		t.Errorf("Err() = %v, want context.Canceled", c.Err())
	}
	if got := len(rec.Shown()); got != shown {
		t.Errorf("cancellation raised %d notifications, want none", got-shown)
	}
}

func TestClickCopiesHex(t *testing.T) {
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	steel := colour.RGB{R: 0x33, G: 0x66, B: 0x99}
	c, rec, clip := newController(t, fixed(colour.Red, steel), DefaultOptions(),
		WithClock(func() time.Time { return now }))

	upload(t, c, pngUpload(t, "a.png", 2, 2, color.White))

	if err := c.Click(context.Background(), 1); err != nil {
		t.Fatalf("Click() error = %v", err)
	}

	if diff := cmp.Diff([]string{"#336699"}, clip.texts); diff != "" {
		t.Errorf("clipboard mismatch (-want +got):\n%s", diff)
	}
	got := lastMessage(t, rec)
	if got.Message != "Color copied: #336699" {
		t.Errorf("notification = %q, want %q", got.Message, "Color copied: #336699")
	}
	if got.Accent != (colour.RGB{R: 51, G: 102, B: 153}) {
		t.Errorf("notification accent = %v, want rgb(51, 102, 153)", got.Accent)
	}

	sw := c.Swatches()[1]
	if !sw.Pressed(now) || sw.Scale(now) != PressedScale {
		t.Errorf("swatch not pressed right after click: %+v", sw)
	}
	if sw.Pressed(now.Add(PressDuration)) {
		t.Error("swatch still pressed after PressDuration")
	}
	if c.Swatches()[0].Pressed(now) {
		t.Error("unclicked swatch is pressed")
	}
}

func TestClickErrors(t *testing.T) {
	c, rec, clip := newController(t, fixed(colour.Red), DefaultOptions())

	if err := c.Click(context.Background(), 0); !errors.Is(err, ErrNoSwatch) {
		t.Errorf("Click() before upload error = %v, want ErrNoSwatch", err)
	}

	upload(t, c, pngUpload(t, "a.png", 2, 2, color.White))
	if err := c.Click(context.Background(), 5); !errors.Is(err, ErrNoSwatch) {
		t.Errorf("Click(5) error = %v, want ErrNoSwatch", err)
	}

	clip.failed = true
	if err := c.Click(context.Background(), 0); !errors.Is(err, clipboard.ErrClipboardFailure) {
		t.Errorf("Click() error = %v, want ErrClipboardFailure", err)
	}
	if got := lastMessage(t, rec).Message; got != msgCopyFailed {
		t.Errorf("notification = %q, want %q", got, msgCopyFailed)
	}
}

func TestClear(t *testing.T) {
	c, rec, _ := newController(t, fixed(colour.Red, colour.Green), DefaultOptions())
	upload(t, c, pngUpload(t, "a.png", 2, 2, color.White))

	c.Clear()

	if got := c.State(); got != Idle {
		t.Errorf("State() = %v, want %v", got, Idle)
	}
	if c.Palette().Len() != 0 || len(c.Swatches()) != 0 {
		t.Errorf("palette/swatches not empty: %d/%d", c.Palette().Len(), len(c.Swatches()))
	}
	if c.Preview() {
		t.Error("Preview() = true after Clear()")
	}
	if c.Input() != "" {
		t.Errorf("Input() = %q after Clear()", c.Input())
	}
	if got := lastMessage(t, rec); got.Message != msgCleared || got.Accent != colour.Orange {
		t.Errorf("notification = %+v, want %q in orange", got, msgCleared)
	}
}

func TestExport(t *testing.T) {
	dir := t.TempDir()
	opts := DefaultOptions()
	opts.ExportDir = dir
	c, rec, _ := newController(t, fixed(colour.Red, colour.Green), opts)

	if _, err := c.Export(); !errors.Is(err, export.ErrEmptyPalette) {
		t.Errorf("Export() with no palette error = %v, want ErrEmptyPalette", err)
	}
	if got := lastMessage(t, rec).Message; got != msgNoColours {
		t.Errorf("notification = %q, want %q", got, msgNoColours)
	}
	if entries, _ := os.ReadDir(dir); len(entries) != 0 {
		t.Errorf("empty export left %d files", len(entries))
	}

	upload(t, c, pngUpload(t, "a.png", 2, 2, color.White))
	path, err := c.Export()
	if err != nil {
		t.Fatalf("Export() error = %v", err)
	}
	if want := filepath.Join(dir, export.DefaultFilename); path != want {
		t.Errorf("Export() path = %q, want %q", path, want)
	}

	entries, err := export.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile() error = %v", err)
	}
	if got := len(entries); got != 2 {
		t.Errorf("exported %d entries, want 2", got)
	}
}

func TestExportDisabled(t *testing.T) {
	opts := DefaultOptions()
	opts.EnableExport = false
	c, _, _ := newController(t, fixed(colour.Red), opts)

	if _, err := c.Export(); !errors.Is(err, ErrDisabled) {
		t.Errorf("Export() error = %v, want ErrDisabled", err)
	}
	if c.HandleKey(KeyEvent{Rune: 'e', Ctrl: true}) {
		t.Error("HandleKey(Ctrl+E) handled with export disabled")
	}
}

func TestHandleKey(t *testing.T) {
	dir := t.TempDir()
	opts := DefaultOptions()
	opts.ExportDir = dir
	c, _, _ := newController(t, fixed(colour.Red), opts)

	if c.HandleKey(KeyEvent{Rune: 'e'}) {
		t.Error("HandleKey(e) without modifier was handled")
	}
	if !c.HandleKey(KeyEvent{Rune: 'e', Ctrl: true}) {
		t.Error("HandleKey(Ctrl+E) not handled")
	}
	if entries, _ := os.ReadDir(dir); len(entries) != 0 {
		t.Error("Ctrl+E exported without a palette")
	}

	upload(t, c, pngUpload(t, "a.png", 2, 2, color.White))
	if !c.HandleKey(KeyEvent{Rune: 'E', Meta: true}) {
		t.Error("HandleKey(Cmd+E) not handled")
	}
	if _, err := os.Stat(filepath.Join(dir, export.DefaultFilename)); err != nil {
		t.Errorf("Cmd+E did not export: %v", err)
	}

	if !c.HandleKey(KeyEvent{Rune: 'l', Ctrl: true}) {
		t.Error("HandleKey(Ctrl+L) not handled")
	}
	if got := c.State(); got != Idle {
		t.Errorf("State() after Ctrl+L = %v, want %v", got, Idle)
	}
	if c.HandleKey(KeyEvent{Rune: 'x', Ctrl: true}) {
		t.Error("HandleKey(Ctrl+X) was handled")
	}
}

func TestHandleKeyDisabled(t *testing.T) {
	opts := DefaultOptions()
	opts.EnableKeyboardShortcuts = false
	c, _, _ := newController(t, fixed(colour.Red), opts)

	if c.HandleKey(KeyEvent{Rune: 'l', Ctrl: true}) {
		t.Error("HandleKey() handled with shortcuts disabled")
	}
}

func TestDrop(t *testing.T) {
	dir := t.TempDir()
	first := filepath.Join(dir, "first.png")
	second := filepath.Join(dir, "second.png")
	for _, p := range []string{first, second} {
		data, err := pngUpload(t, filepath.Base(p), 2, 2, color.White).Read()
		if err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(p, data, 0o600); err != nil {
			t.Fatal(err)
		}
	}

	c, _, _ := newController(t, fixed(colour.Red), DefaultOptions())
	if err := c.Drop([]string{"", first, second}); err != nil {
		t.Fatalf("Drop() error = %v", err)
	}
	c.Wait()
	if got := c.Input(); got != "first.png" {
		t.Errorf("Input() = %q, want first.png", got)
	}

	if err := c.Drop(nil); !errors.Is(err, image.ErrInvalidInput) {
		t.Errorf("Drop(nil) error = %v, want ErrInvalidInput", err)
	}

	opts := DefaultOptions()
	opts.EnableDragDrop = false
	off, _, _ := newController(t, fixed(colour.Red), opts)
	if err := off.Drop([]string{first}); !errors.Is(err, ErrDisabled) {
		t.Errorf("Drop() disabled error = %v, want ErrDisabled", err)
	}
}

func TestSwatchEntryDelay(t *testing.T) {
	c, _, _ := newController(t, fixed(colour.Red, colour.Green, colour.Orange), DefaultOptions())
	upload(t, c, pngUpload(t, "a.png", 2, 2, color.White))

	for i, sw := range c.Swatches() {
		if sw.Index != i {
			t.Errorf("swatch %d Index = %d", i, sw.Index)
		}
		if want := time.Duration(i) * 100 * time.Millisecond; sw.EntryDelay != want {
			t.Errorf("swatch %d EntryDelay = %v, want %v", i, sw.EntryDelay, want)
		}
	}
}

func TestOnChange(t *testing.T) {
	var mu sync.Mutex
	var states []State
	var c *Controller
	c, _, _ = newController(t, fixed(colour.Red), DefaultOptions(), WithOnChange(func() {
		mu.Lock()
		defer mu.Unlock()
		states = append(states, c.State())
	}))

	upload(t, c, pngUpload(t, "a.png", 2, 2, color.White))

	mu.Lock()
	defer mu.Unlock()
	want := []State{Loading, Decoding, Processing, Displayed}
	if diff := cmp.Diff(want, states); diff != "" {
		t.Errorf("observed states mismatch (-want +got):\n%s", diff)
	}
}

func TestNewValidation(t *testing.T) {
	if _, err := New(nil, DefaultOptions()); err == nil {
		t.Error("New(nil) expected error")
	}

	opts := DefaultOptions()
	opts.SwatchCount = 21
	if _, err := New(fixed(), opts); !errors.Is(err, extract.ErrInvalidCount) {
		t.Errorf("New() error = %v, want ErrInvalidCount", err)
	}
}

func TestStateString(t *testing.T) {
	for s, want := range map[State]string{
		Idle:       "idle",
		Validating: "validating",
		Displayed:  "displayed",
		State(42):  "unknown",
	} {
		if got := s.String(); got != want {
			t.Errorf("State(%d).String() = %q, want %q", int(s), got, want)
		}
	}
	if !Processing.Busy() || Displayed.Busy() {
		t.Error("Busy() wrong for Processing/Displayed")
	}
}
