// Package extract turns a decoded bitmap into a dominance-ordered palette.
//
// An Extractor wraps one quantiser. When the quantiser cannot be reached the
// extractor switches to a degraded mode that returns random colours, and
// flags every such result so callers can tell the user.
package extract

import (
	"context"
	"errors"
	"fmt"
	"image"
	mathrand "math/rand/v2"
	"sync"

	"github.com/hashicorp/go-hclog"
	"github.com/nfnt/resize"

	"github.com/jmylchreest/picpalette/internal/colour"
	"github.com/jmylchreest/picpalette/internal/quantize"
)

const (
	// MinCount is the smallest palette that can be requested.
	MinCount = 1

	// MaxCount is the largest palette that can be requested.
	MaxCount = 20

	// DefaultCount is the number of swatches shown by default.
	DefaultCount = 12

	// thumbnailEdge bounds the bitmap handed to the quantiser.
	thumbnailEdge = 256
)

var (
	// ErrExtractionFailed is returned when a quantiser fails on an image.
	ErrExtractionFailed = errors.New("palette extraction failed")

	// ErrInvalidCount is returned for palette sizes outside [MinCount, MaxCount].
	ErrInvalidCount = errors.New("invalid colour count")
)

// Result is one extracted palette.
type Result struct {
	Palette *colour.Palette

	// Degraded is set when the colours are random because no quantiser was
	// available.
	Degraded bool
}

// Extractor runs a quantiser over bitmaps.
type Extractor struct {
	q      quantize.Quantizer
	logger hclog.Logger

	mu          sync.Mutex
	rng         *mathrand.Rand
	unavailable error
}

// Option configures an Extractor.
type Option func(*Extractor)

// WithLogger sets the logger. The default discards everything.
func WithLogger(logger hclog.Logger) Option {
	return func(e *Extractor) {
		e.logger = logger
	}
}

// WithSeed makes the degraded-mode palette reproducible.
func WithSeed(seed uint64) Option {
	return func(e *Extractor) {
		e.rng = colour.NewRand(&seed)
	}
}

// New creates an Extractor and probes q once. A nil q, or a probe that
// fails with quantize.ErrUnavailable, puts the extractor in degraded mode.
func New(ctx context.Context, q quantize.Quantizer, opts ...Option) *Extractor {
	e := &Extractor{
		q:      q,
		logger: hclog.NewNullLogger(),
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.rng == nil {
		e.rng = colour.NewRand(nil)
	}

	switch p := q.(type) {
	case nil:
		e.markUnavailable(fmt.Errorf("%w: no quantizer configured", quantize.ErrUnavailable))
	case quantize.Prober:
		if err := p.Probe(ctx); err != nil {
			e.markUnavailable(err)
		}
	}

	return e
}

// Unavailable returns the reason the extractor is degraded, or nil.
func (e *Extractor) Unavailable() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.unavailable
}

// Extract returns up to n colours from img, most dominant first.
func (e *Extractor) Extract(ctx context.Context, img image.Image, n int) (Result, error) {
	if err := ValidateCount(n); err != nil {
		return Result{}, err
	}
	if img == nil {
		return Result{}, fmt.Errorf("%w: image cannot be nil", ErrExtractionFailed)
	}

	if e.Unavailable() != nil {
		return e.degraded(n), nil
	}

	colors, err := e.q.Quantize(ctx, thumbnail(img), n)
	switch {
	case err == nil:
	case ctx.Err() != nil:
		return Result{}, ctx.Err()
	case errors.Is(err, quantize.ErrUnavailable):
		e.markUnavailable(err)
		return e.degraded(n), nil
	default:
		return Result{}, fmt.Errorf("%w: %w", ErrExtractionFailed, err)
	}

	if len(colors) == 0 {
		return Result{}, fmt.Errorf("%w: quantizer returned no colours", ErrExtractionFailed)
	}
	if len(colors) > n {
		colors = colors[:n]
	}

	e.logger.Debug("palette extracted", "requested", n, "returned", len(colors))
	return Result{Palette: colour.NewPalette(colors)}, nil
}

// Close releases the quantiser if it holds external resources.
func (e *Extractor) Close() {
	if c, ok := e.q.(quantize.Closer); ok {
		c.Close()
	}
}

// ValidateCount checks n against [MinCount, MaxCount].
func ValidateCount(n int) error {
	if n < MinCount || n > MaxCount {
		return fmt.Errorf("%w: %d (must be between %d and %d)", ErrInvalidCount, n, MinCount, MaxCount)
	}
	return nil
}

// markUnavailable records the first unavailability reason and logs it once.
func (e *Extractor) markUnavailable(err error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.unavailable != nil {
		return
	}
	e.unavailable = err
	e.logger.Warn("quantizer unavailable, falling back to random palettes", "error", err)
}

func (e *Extractor) degraded(n int) Result {
	e.mu.Lock()
	defer e.mu.Unlock()
	return Result{Palette: colour.RandomPalette(n, e.rng), Degraded: true}
}

// thumbnail shrinks large bitmaps before quantisation. Nearest-neighbour
// sampling keeps source colours exact.
func thumbnail(img image.Image) image.Image {
	b := img.Bounds()
	if b.Dx() <= thumbnailEdge && b.Dy() <= thumbnailEdge {
		return img
	}
	return resize.Thumbnail(thumbnailEdge, thumbnailEdge, img, resize.NearestNeighbor)
}
