package quantizer

import (
	"context"
	"fmt"
	"image"
	"image/color"
	"strconv"
	"strings"
)

// PluginInfo contains metadata about a plugin.
type PluginInfo struct {
	Name            string `json:"name"`
	Version         string `json:"version"`
	ProtocolVersion string `json:"protocol_version"`
	Description     string `json:"description"`
}

// Colour is one 8-bit RGB triple on the wire.
type Colour struct {
	R uint8 `json:"r"`
	G uint8 `json:"g"`
	B uint8 `json:"b"`
}

// Request carries a bitmap as packed RGB triples plus the colour count.
// Transparent pixels are dropped before sending.
type Request struct {
	Width  int
	Height int
	Pix    []byte
	Count  int
}

// Quantizer is implemented by plugin binaries.
type Quantizer interface {
	// Quantize returns up to req.Count colours, most dominant first.
	Quantize(ctx context.Context, req Request) ([]Colour, error)

	// GetMetadata returns plugin metadata.
	GetMetadata() PluginInfo
}

// NewRequest packs img for transport.
func NewRequest(img image.Image, count int) Request {
	b := img.Bounds()
	pix := make([]byte, 0, b.Dx()*b.Dy()*3)
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			c := color.NRGBAModel.Convert(img.At(x, y)).(color.NRGBA)
			if c.A == 0 {
				continue
			}
			pix = append(pix, c.R, c.G, c.B)
		}
	}

	return Request{Width: b.Dx(), Height: b.Dy(), Pix: pix, Count: count}
}

// Image unpacks the request into a bitmap. Pixels are laid out row-major;
// when transparent pixels were dropped the tail of the bitmap is left
// transparent.
func (r Request) Image() (*image.NRGBA, error) {
	if r.Width <= 0 || r.Height <= 0 {
		return nil, fmt.Errorf("invalid request dimensions %dx%d", r.Width, r.Height)
	}
	if len(r.Pix)%3 != 0 || len(r.Pix)/3 > r.Width*r.Height {
		return nil, fmt.Errorf("invalid pixel buffer length %d for %dx%d", len(r.Pix), r.Width, r.Height)
	}

	img := image.NewNRGBA(image.Rect(0, 0, r.Width, r.Height))
	for i := 0; i+2 < len(r.Pix); i += 3 {
		o := (i / 3) * 4
		img.Pix[o] = r.Pix[i]
		img.Pix[o+1] = r.Pix[i+1]
		img.Pix[o+2] = r.Pix[i+2]
		img.Pix[o+3] = 0xff
	}
	return img, nil
}

// IsCompatible reports whether a plugin speaking version can be driven by
// this host. The major version must match exactly.
func IsCompatible(version string) (bool, error) {
	major, _, ok := strings.Cut(version, ".")
	if !ok {
		return false, fmt.Errorf("invalid version format: %s (expected MAJOR.MINOR.PATCH)", version)
	}
	got, err := strconv.Atoi(major)
	if err != nil {
		return false, fmt.Errorf("invalid major version: %s", major)
	}

	want, _, _ := strings.Cut(ProtocolVersion, ".")
	current, _ := strconv.Atoi(want)
	return got == current, nil
}
