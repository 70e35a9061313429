// Package surface holds the rendering surface the normalised image is drawn
// on, and composes PNG previews of an image with its palette.
package surface

import (
	"fmt"
	"image"
	"io"
	"sync"

	"github.com/gogpu/gg"

	"github.com/jmylchreest/picpalette/internal/colour"
	"github.com/jmylchreest/picpalette/internal/geometry"
)

// StripHeight is the height of the swatch strip under a preview.
const StripHeight = 48

// Canvas is a software surface backed by gogpu/gg.
// It is safe for concurrent use.
type Canvas struct {
	mu   sync.Mutex
	dc   *gg.Context
	size geometry.Size
}

// New returns an empty, hidden canvas.
func New() *Canvas {
	return &Canvas{}
}

// Render draws img scaled to size and makes the canvas visible. The
// previous contents are discarded.
func (c *Canvas) Render(img image.Image, size geometry.Size) error {
	if img == nil {
		return fmt.Errorf("image cannot be nil")
	}
	if size.W <= 0 || size.H <= 0 {
		return fmt.Errorf("%w: surface size %s", geometry.ErrInvalidDimensions, size)
	}

	dc := gg.NewContext(size.W, size.H)
	dc.DrawImageEx(gg.ImageBufFromImage(img), gg.DrawImageOptions{
		DstWidth:      float64(size.W),
		DstHeight:     float64(size.H),
		Interpolation: gg.InterpBilinear,
	})

	c.mu.Lock()
	defer c.mu.Unlock()

	c.closeLocked()
	c.dc = dc
	c.size = size
	return nil
}

// Clear empties the canvas and hides it.
func (c *Canvas) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closeLocked()
}

// Visible reports whether an image is currently shown.
func (c *Canvas) Visible() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.dc != nil
}

// Size returns the drawn size, or the zero Size when hidden.
func (c *Canvas) Size() geometry.Size {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.size
}

// Snapshot returns the current contents, or nil when hidden.
func (c *Canvas) Snapshot() image.Image {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.dc == nil {
		return nil
	}
	return c.dc.Image()
}

// WritePreview composes img (which may be nil) above a swatch strip for
// palette and encodes the result as PNG.
func WritePreview(w io.Writer, img image.Image, palette *colour.Palette) error {
	width, height := geometry.DefaultBox.W, 0
	if img != nil {
		b := img.Bounds()
		width, height = b.Dx(), b.Dy()
	}

	strip := 0
	if palette.Len() > 0 {
		strip = StripHeight
	}
	if height+strip == 0 {
		return fmt.Errorf("nothing to draw")
	}

	dc := gg.NewContext(width, height+strip)
	defer dc.Close()

	dc.ClearWithColor(gg.RGB(1, 1, 1))

	if img != nil {
		dc.DrawImageEx(gg.ImageBufFromImage(img), gg.DrawImageOptions{
			DstWidth:  float64(width),
			DstHeight: float64(height),
		})
	}

	if n := palette.Len(); n > 0 {
		sw := float64(width) / float64(n)
		for i, rgb := range palette.All() {
			dc.SetColor(rgb.RGBA())
			dc.DrawRectangle(float64(i)*sw, float64(height), sw, float64(strip))
			if err := dc.Fill(); err != nil {
				return fmt.Errorf("failed to draw swatch %d: %w", i, err)
			}
		}
	}

	if err := dc.EncodePNG(w); err != nil {
		return fmt.Errorf("failed to encode preview: %w", err)
	}
	return nil
}

func (c *Canvas) closeLocked() {
	if c.dc != nil {
		_ = c.dc.Close()
	}
	c.dc = nil
	c.size = geometry.Size{}
}
