package quantize

import (
	"context"
	"fmt"
	"image"
	"math"

	"github.com/muesli/clusters"
	"github.com/muesli/kmeans"

	"github.com/jmylchreest/picpalette/internal/colour"
)

// Muesli wraps github.com/muesli/kmeans, clustering in normalised RGB.
type Muesli struct {
	maxSamples int
}

// NewMuesli creates a Muesli quantiser.
func NewMuesli() *Muesli {
	return &Muesli{maxSamples: 12000}
}

// Quantize extracts up to n colours ordered by cluster population.
func (q *Muesli) Quantize(ctx context.Context, img image.Image, n int) ([]colour.RGB, error) {
	if err := checkArgs(img, n); err != nil {
		return nil, err
	}

	if counts, ok := countColours(img, distinctLimit); ok && n >= len(counts) {
		if len(counts) == 0 {
			return nil, fmt.Errorf("no opaque pixels found in image")
		}
		return rankByWeight(counts, n), nil
	}

	b := img.Bounds()
	width, height := b.Dx(), b.Dy()

	step := 1
	if width*height > q.maxSamples {
		step = int(math.Sqrt(float64(width*height)/float64(q.maxSamples))) + 1
	}

	dataset := make(clusters.Observations, 0, min(width*height, q.maxSamples))
	for y := b.Min.Y; y < b.Max.Y; y += step {
		for x := b.Min.X; x < b.Max.X; x += step {
			r16, g16, b16, a16 := img.At(x, y).RGBA()
			if a16 == 0 {
				continue
			}
			dataset = append(dataset, clusters.Coordinates{
				float64(r16) / 65535.0,
				float64(g16) / 65535.0,
				float64(b16) / 65535.0,
			})
		}
	}
	if len(dataset) == 0 {
		return nil, fmt.Errorf("no opaque pixels found in image")
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	cc, err := kmeans.New().Partition(dataset, min(n, len(dataset)))
	if err != nil {
		return nil, fmt.Errorf("kmeans partition failed: %w", err)
	}

	cands := make([]weighted, 0, len(cc))
	for _, c := range cc {
		if len(c.Center) < 3 || len(c.Observations) == 0 {
			continue
		}
		cands = append(cands, weighted{
			rgb: colour.RGB{
				R: clampByte(c.Center[0] * 255),
				G: clampByte(c.Center[1] * 255),
				B: clampByte(c.Center[2] * 255),
			},
			weight: float64(len(c.Observations)),
		})
	}

	return rankByWeight(cands, n), nil
}
