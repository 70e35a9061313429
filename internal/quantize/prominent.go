package quantize

import (
	"context"
	"fmt"
	"image"

	"github.com/EdlinOrg/prominentcolor"

	"github.com/jmylchreest/picpalette/internal/colour"
)

// prominentResize is the edge length prominentcolor scales images to.
const prominentResize = 256

// Prominent wraps github.com/EdlinOrg/prominentcolor, clustering in Lab
// without the library's default centre crop.
type Prominent struct{}

// NewProminent creates a Prominent quantiser.
func NewProminent() *Prominent {
	return &Prominent{}
}

// Quantize extracts up to n colours ordered by pixel count.
func (q *Prominent) Quantize(ctx context.Context, img image.Image, n int) ([]colour.RGB, error) {
	if err := checkArgs(img, n); err != nil {
		return nil, err
	}

	// The library fails when k exceeds the distinct colours present.
	if counts, ok := countColours(img, distinctLimit); ok {
		if len(counts) == 0 {
			return nil, fmt.Errorf("no opaque pixels found in image")
		}
		if n >= len(counts) {
			return rankByWeight(counts, n), nil
		}
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	items, err := prominentcolor.KmeansWithAll(n, img,
		prominentcolor.ArgumentLAB|prominentcolor.ArgumentNoCropping,
		prominentResize, nil)
	if err != nil {
		return nil, fmt.Errorf("prominentcolor failed: %w", err)
	}

	cands := make([]weighted, 0, len(items))
	for _, item := range items {
		cands = append(cands, weighted{
			rgb: colour.RGB{
				R: uint8(min(item.Color.R, 255)),
				G: uint8(min(item.Color.G, 255)),
				B: uint8(min(item.Color.B, 255)),
			},
			weight: float64(item.Cnt),
		})
	}

	return rankByWeight(cands, n), nil
}
