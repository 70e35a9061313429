package quantize

import (
	"context"
	"fmt"
	"image"

	"github.com/cenkalti/dominantcolor"

	"github.com/jmylchreest/picpalette/internal/colour"
)

// Dominant wraps github.com/cenkalti/dominantcolor.
type Dominant struct{}

// NewDominant creates a Dominant quantiser.
func NewDominant() *Dominant {
	return &Dominant{}
}

// Quantize extracts up to n colours ordered by weight. Extra candidates are
// requested so near-duplicates can be folded without coming up short.
func (q *Dominant) Quantize(ctx context.Context, img image.Image, n int) ([]colour.RGB, error) {
	if err := checkArgs(img, n); err != nil {
		return nil, err
	}
	if counts, ok := countColours(img, distinctLimit); ok && n >= len(counts) {
		if len(counts) == 0 {
			return nil, fmt.Errorf("no opaque pixels found in image")
		}
		return rankByWeight(counts, n), nil
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	found := dominantcolor.FindWeight(img, n*2)

	cands := make([]weighted, 0, len(found))
	for _, c := range found {
		cands = append(cands, weighted{rgb: colour.ToRGB(c.RGBA), weight: c.Weight})
	}

	return rankByWeight(cands, n), nil
}
