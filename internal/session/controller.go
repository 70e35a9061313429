// Package session drives one interactive palette session: it validates and
// decodes uploads, extracts their palettes, owns the displayed swatches and
// wires clicks, shortcuts and export to the clipboard and notifications.
package session

import (
	"context"
	"errors"
	"fmt"
	stdimage "image"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/hashicorp/go-hclog"

	"github.com/jmylchreest/picpalette/internal/clipboard"
	"github.com/jmylchreest/picpalette/internal/colour"
	"github.com/jmylchreest/picpalette/internal/export"
	"github.com/jmylchreest/picpalette/internal/extract"
	"github.com/jmylchreest/picpalette/internal/geometry"
	"github.com/jmylchreest/picpalette/internal/image"
	"github.com/jmylchreest/picpalette/internal/notify"
	"github.com/jmylchreest/picpalette/internal/surface"
)

var (
	// ErrDisabled is returned for features switched off in Options.
	ErrDisabled = errors.New("feature disabled")

	// ErrNoSwatch is returned when a click does not hit a displayed swatch.
	ErrNoSwatch = errors.New("no such swatch")
)

// Messages shown by the controller.
const (
	msgWelcome      = "Welcome to PicPalette! Upload an image to get started."
	msgDegraded     = "Colour extraction is unavailable, palettes will be random"
	msgRandom       = "Colour extraction unavailable, showing a random palette"
	msgProcessed    = "Image processed successfully!"
	msgNotImage     = "Please select a valid image file"
	msgTooLarge     = "File size must be less than %s"
	msgDecodeFailed = "Could not read that image"
	msgExtractFail  = "Failed to extract colours from the image"
	msgCleared      = "Palette cleared"
	msgNoColours    = "No colours to export"
	msgExported     = "Palette exported to %s"
	msgCopied       = "Color copied: %s"
	msgCopyFailed   = "Failed to copy colour to the clipboard"
)

// Extractor produces palettes from bitmaps.
type Extractor interface {
	Extract(ctx context.Context, img stdimage.Image, n int) (extract.Result, error)
	Unavailable() error
}

// Surface shows the normalised image.
type Surface interface {
	Render(img stdimage.Image, size geometry.Size) error
	Clear()
	Visible() bool
}

// Notifier raises user-facing notifications.
type Notifier interface {
	Notify(message string, accent colour.RGB)
	Info(message string)
	Success(message string)
	Warn(message string)
	Error(message string)
}

// Options parameterises the pipeline.
type Options struct {
	SwatchCount             int
	EnableDragDrop          bool
	EnableExport            bool
	EnableKeyboardShortcuts bool

	// MaxDisplay bounds the rendered image.
	MaxDisplay geometry.Size

	// MaxFileSize is the upload ceiling in bytes.
	MaxFileSize int64

	// ExportDir is where Export writes its artifact.
	ExportDir string

	// ExportFormat and ExportCompression select the artifact.
	ExportFormat      export.Format
	ExportCompression export.Compression
}

// DefaultOptions returns the options of the full interactive session.
func DefaultOptions() Options {
	return Options{
		SwatchCount:             extract.DefaultCount,
		EnableDragDrop:          true,
		EnableExport:            true,
		EnableKeyboardShortcuts: true,
		MaxDisplay:              geometry.DefaultBox,
		MaxFileSize:             image.MaxFileSize,
		ExportDir:               ".",
		ExportFormat:            export.FormatJSON,
	}
}

// Option configures a Controller.
type Option func(*Controller)

// WithSurface replaces the default in-memory canvas.
func WithSurface(s Surface) Option {
	return func(c *Controller) {
		c.surface = s
	}
}

// WithNotifier sets where notifications go. The default logs them.
func WithNotifier(n Notifier) Option {
	return func(c *Controller) {
		c.notes = n
	}
}

// WithClipboard sets the clipboard swatch clicks copy to.
func WithClipboard(w clipboard.Writer) Option {
	return func(c *Controller) {
		c.clip = w
	}
}

// WithLogger sets the logger. The default discards everything.
func WithLogger(logger hclog.Logger) Option {
	return func(c *Controller) {
		c.logger = logger
	}
}

// WithClock replaces time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(c *Controller) {
		c.now = now
	}
}

// WithOnChange registers fn to run after every visible state change.
// fn is called without the controller lock held.
func WithOnChange(fn func()) Option {
	return func(c *Controller) {
		c.onChange = fn
	}
}

// token identifies one upload. Only the upload holding the current
// generation may touch shared state.
type token struct {
	gen uint64
	id  string
}

// Controller owns the displayed palette, its swatches and the surface.
// All methods are safe for concurrent use.
type Controller struct {
	opts     Options
	ext      Extractor
	surface  Surface
	notes    Notifier
	clip     clipboard.Writer
	logger   hclog.Logger
	now      func() time.Time
	onChange func()

	mu       sync.Mutex
	base     context.Context
	state    State
	palette  *colour.Palette
	swatches []Swatch
	source   stdimage.Image
	input    string
	shown    string
	loading  bool
	gen      uint64
	cancel   context.CancelFunc
	lastErr  error
	wg       sync.WaitGroup
}

// New creates a Controller around ext. Zero fields in opts take their
// DefaultOptions values except the feature switches.
func New(ext Extractor, opts Options, options ...Option) (*Controller, error) {
	if ext == nil {
		return nil, fmt.Errorf("extractor cannot be nil")
	}

	defaults := DefaultOptions()
	if opts.SwatchCount == 0 {
		opts.SwatchCount = defaults.SwatchCount
	}
	if err := extract.ValidateCount(opts.SwatchCount); err != nil {
		return nil, err
	}
	if opts.MaxDisplay == (geometry.Size{}) {
		opts.MaxDisplay = defaults.MaxDisplay
	}
	if opts.MaxDisplay.W <= 0 || opts.MaxDisplay.H <= 0 {
		return nil, fmt.Errorf("%w: display box %s", geometry.ErrInvalidDimensions, opts.MaxDisplay)
	}
	if opts.MaxFileSize <= 0 {
		opts.MaxFileSize = defaults.MaxFileSize
	}
	if opts.ExportDir == "" {
		opts.ExportDir = defaults.ExportDir
	}
	if opts.ExportFormat == "" {
		opts.ExportFormat = defaults.ExportFormat
	}

	c := &Controller{
		opts:   opts,
		ext:    ext,
		logger: hclog.NewNullLogger(),
		now:    time.Now,
		base:   context.Background(),
	}
	for _, o := range options {
		o(c)
	}
	if c.surface == nil {
		c.surface = surface.New()
	}
	if c.notes == nil {
		c.notes = notify.New(notify.LogSink{Logger: c.logger.Named("notify")})
	}

	return c, nil
}

// Options returns the effective options.
func (c *Controller) Options() Options {
	return c.opts
}

// Start shows the welcome notification, followed by a warning when the
// extractor is degraded. Uploads started afterwards are cancelled with ctx.
func (c *Controller) Start(ctx context.Context) {
	c.mu.Lock()
	c.base = ctx
	c.mu.Unlock()

	c.notes.Info(msgWelcome)
	if err := c.ext.Unavailable(); err != nil {
		c.logger.Warn("starting in degraded mode", "error", err)
		c.notes.Warn(msgDegraded)
	}
	c.changed()
}

// UploadPath starts processing the image file at path.
func (c *Controller) UploadPath(path string) error {
	u, err := image.FromPath(path)
	if err != nil {
		c.logger.Debug("upload rejected", "path", path, "error", err)
		c.notes.Error(msgNotImage)
		return err
	}
	return c.Upload(u)
}

// Drop handles a drag-and-drop of one or more files. Only the first path is
// used.
func (c *Controller) Drop(paths []string) error {
	if !c.opts.EnableDragDrop {
		return fmt.Errorf("%w: drag and drop", ErrDisabled)
	}
	for _, p := range paths {
		if p = strings.TrimSpace(p); p != "" {
			return c.UploadPath(p)
		}
	}
	c.notes.Error(msgNotImage)
	return fmt.Errorf("%w: nothing was dropped", image.ErrInvalidInput)
}

// Upload validates u synchronously and, when it passes, loads, decodes and
// extracts it in the background. A rejected upload leaves the current
// state untouched. Starting an upload supersedes any upload in flight.
func (c *Controller) Upload(u *image.Upload) error {
	c.mu.Lock()
	prev := c.state
	c.state = Validating
	c.mu.Unlock()

	if err := u.Validate(c.opts.MaxFileSize); err != nil {
		c.mu.Lock()
		if c.state == Validating {
			c.state = prev
		}
		c.lastErr = err
		c.mu.Unlock()

		c.logger.Debug("upload rejected", "name", u.Name, "mime", u.MIME, "size", u.Size, "error", err)
		c.notes.Error(c.rejection(u))
		c.changed()
		return err
	}

	t, ctx := c.begin(u.Name)
	c.changed()

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		c.process(ctx, t, u)
	}()
	return nil
}

// Wait blocks until every upload started so far has finished.
func (c *Controller) Wait() {
	c.wg.Wait()
}

// Err returns the error of the most recent upload, or nil.
func (c *Controller) Err() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastErr
}

// Close cancels any upload in flight and waits for it.
func (c *Controller) Close() {
	c.mu.Lock()
	if c.cancel != nil {
		c.cancel()
		c.cancel = nil
	}
	c.gen++
	c.mu.Unlock()
	c.wg.Wait()
}

// Click copies swatch i to the clipboard and starts its press pulse.
func (c *Controller) Click(ctx context.Context, i int) error {
	c.mu.Lock()
	if c.state != Displayed || i < 0 || i >= len(c.swatches) {
		c.mu.Unlock()
		return fmt.Errorf("%w: %d", ErrNoSwatch, i)
	}
	sw := c.swatches[i]
	gen := c.gen
	c.mu.Unlock()

	if c.clip == nil {
		c.notes.Error(msgCopyFailed)
		return fmt.Errorf("%w: no clipboard configured", clipboard.ErrClipboardFailure)
	}
	if err := c.clip.Write(ctx, sw.Hex()); err != nil {
		c.logger.Warn("clipboard write failed", "hex", sw.Hex(), "error", err)
		c.notes.Error(msgCopyFailed)
		return err
	}

	c.notes.Notify(fmt.Sprintf(msgCopied, sw.Hex()), sw.Color)

	c.mu.Lock()
	if c.gen == gen && i < len(c.swatches) {
		c.swatches[i].PressedUntil = c.now().Add(PressDuration)
	}
	c.mu.Unlock()
	c.changed()
	return nil
}

// Clear drops the palette, hides the surface, forgets the selected input,
// cancels any upload in flight and returns to Idle.
func (c *Controller) Clear() {
	c.mu.Lock()
	if c.cancel != nil {
		c.cancel()
		c.cancel = nil
	}
	c.gen++
	c.palette = nil
	c.swatches = nil
	c.source = nil
	c.input = ""
	c.shown = ""
	c.loading = false
	c.state = Idle
	c.surface.Clear()
	c.mu.Unlock()

	c.notes.Warn(msgCleared)
	c.changed()
}

// Export writes the displayed palette to Options.ExportDir and returns the
// file path. An empty palette produces no file and a notification.
func (c *Controller) Export() (string, error) {
	if !c.opts.EnableExport {
		return "", fmt.Errorf("%w: export", ErrDisabled)
	}

	c.mu.Lock()
	palette, source := c.palette, c.source
	c.mu.Unlock()

	if palette.Len() == 0 {
		c.notes.Warn(msgNoColours)
		return "", export.ErrEmptyPalette
	}

	opts := export.Options{
		Format:      c.opts.ExportFormat,
		Compression: c.opts.ExportCompression,
		Image:       source,
	}
	path := filepath.Join(c.opts.ExportDir, export.Filename(opts))
	if err := export.WriteFile(path, palette, opts); err != nil {
		c.logger.Error("export failed", "path", path, "error", err)
		c.notes.Error("Export failed")
		return "", err
	}

	c.logger.Info("palette exported", "path", path, "colours", palette.Len())
	c.notes.Success(fmt.Sprintf(msgExported, path))
	return path, nil
}

// State returns the current lifecycle stage.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Palette returns the displayed palette, or nil.
func (c *Controller) Palette() *colour.Palette {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.palette
}

// Swatches returns a copy of the displayed swatches.
func (c *Controller) Swatches() []Swatch {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]Swatch(nil), c.swatches...)
}

// Loading reports whether the loading indicator should be shown.
func (c *Controller) Loading() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.loading
}

// Preview reports whether the image preview is visible.
func (c *Controller) Preview() bool {
	return c.surface.Visible()
}

// Input returns the name of the file behind the displayed palette, or of
// the upload in flight.
func (c *Controller) Input() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.input
}

// begin supersedes any upload in flight and hands out a new token.
func (c *Controller) begin(name string) (token, context.Context) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.cancel != nil {
		c.cancel()
	}
	c.gen++
	ctx, cancel := context.WithCancel(c.base)
	c.cancel = cancel

	t := token{gen: c.gen, id: uuid.New().String()}
	c.state = Loading
	c.loading = true
	c.input = name
	c.lastErr = nil
	return t, ctx
}

// advance moves the upload holding t to s. It returns false when t has
// been superseded.
func (c *Controller) advance(t token, s State) bool {
	c.mu.Lock()
	if t.gen != c.gen {
		c.mu.Unlock()
		return false
	}
	c.state = s
	c.mu.Unlock()
	c.changed()
	return true
}

func (c *Controller) process(ctx context.Context, t token, u *image.Upload) {
	logger := c.logger.With("upload", t.id, "name", u.Name)
	logger.Debug("upload started", "mime", u.MIME, "size", u.Size)

	data, err := u.Read()
	if err != nil {
		c.fail(t, logger, err, msgDecodeFailed)
		return
	}

	if !c.advance(t, Decoding) {
		logger.Debug("upload superseded")
		return
	}
	img, format, err := image.Decode(data)
	if err != nil {
		c.fail(t, logger, err, msgDecodeFailed)
		return
	}

	if !c.advance(t, Processing) {
		logger.Debug("upload superseded")
		return
	}
	natural := image.Dimensions(img)
	size, err := geometry.Fit(natural, c.opts.MaxDisplay)
	if err != nil {
		c.fail(t, logger, err, msgDecodeFailed)
		return
	}

	res, err := c.ext.Extract(ctx, img, c.opts.SwatchCount)
	if err != nil {
		if ctx.Err() != nil {
			c.abandon(t, logger, ctx.Err())
			return
		}
		c.fail(t, logger, err, msgExtractFail)
		return
	}

	c.mu.Lock()
	if t.gen != c.gen {
		c.mu.Unlock()
		logger.Debug("discarding stale result")
		return
	}
	if err := c.surface.Render(img, size); err != nil {
		c.mu.Unlock()
		c.fail(t, logger, err, msgDecodeFailed)
		return
	}
	c.palette = res.Palette
	c.swatches = buildSwatches(res.Palette)
	c.source = img
	c.shown = c.input
	c.state = Displayed
	c.loading = false
	c.cancel = nil
	c.mu.Unlock()

	logger.Info("palette displayed", "format", format, "natural", natural, "display", size, "colours", res.Palette.Len(), "degraded", res.Degraded)
	if res.Degraded {
		c.notes.Warn(msgRandom)
	} else {
		c.notes.Success(msgProcessed)
	}
	c.changed()
}

// fail ends the upload holding t. The session goes back to the previous
// palette when there is one, otherwise to Idle.
func (c *Controller) fail(t token, logger hclog.Logger, err error, message string) {
	if !c.restore(t, err) {
		logger.Debug("discarding stale failure", "error", err)
		return
	}

	logger.Warn("upload failed", "error", err)
	c.notes.Error(message)
	c.changed()
}

// abandon ends the upload holding t after its context was cancelled from
// outside the controller. The session is restored as for a failure but the
// user is not notified.
func (c *Controller) abandon(t token, logger hclog.Logger, err error) {
	if !c.restore(t, err) {
		logger.Debug("upload superseded")
		return
	}

	logger.Debug("upload cancelled", "error", err)
	c.changed()
}

// restore clears the loading state of the upload holding t and puts back
// the previous palette, or Idle. It returns false when t is stale.
func (c *Controller) restore(t token, err error) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if t.gen != c.gen {
		return false
	}
	c.loading = false
	c.cancel = nil
	c.lastErr = err
	if c.palette.Len() > 0 {
		c.state = Displayed
		c.input = c.shown
	} else {
		c.state = Idle
		c.input = ""
	}
	return true
}

func (c *Controller) rejection(u *image.Upload) string {
	if !strings.HasPrefix(u.MIME, "image/") {
		return msgNotImage
	}
	return fmt.Sprintf(msgTooLarge, humanLimit(c.opts.MaxFileSize))
}

func humanLimit(n int64) string {
	if n%(1024*1024) == 0 {
		return fmt.Sprintf("%dMB", n/(1024*1024))
	}
	return fmt.Sprintf("%d bytes", n)
}

func (c *Controller) changed() {
	if c.onChange != nil {
		c.onChange()
	}
}
