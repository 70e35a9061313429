package quantize

import (
	"image"
	"math"

	"gonum.org/v1/gonum/floats"

	"github.com/jmylchreest/picpalette/internal/colour"
)

// mergeDistance is the CIE76 distance under which two candidates are
// treated as the same colour, in go-colorful units where L* spans [0,1].
const mergeDistance = 0.03

// weighted is a candidate colour with its pixel share.
type weighted struct {
	rgb    colour.RGB
	weight float64
}

// rankByWeight orders candidates by descending weight, folds candidates that
// are indistinguishable in Lab into the heavier one, and keeps at most n.
func rankByWeight(cands []weighted, n int) []colour.RGB {
	if len(cands) == 0 || n < 1 {
		return nil
	}

	// Ascending sort; negate for most-dominant first. Ties keep scan order.
	keys := make([]float64, len(cands))
	for i, c := range cands {
		keys[i] = -c.weight
	}
	idx := make([]int, len(cands))
	floats.ArgsortStable(keys, idx)

	out := make([]colour.RGB, 0, min(n, len(cands)))
	for _, i := range idx {
		c := cands[i].rgb
		if nearAny(c, out) {
			continue
		}
		out = append(out, c)
		if len(out) == n {
			break
		}
	}
	return out
}

func nearAny(c colour.RGB, picked []colour.RGB) bool {
	for _, p := range picked {
		if p == c || colour.DistanceLab(p, c) < mergeDistance {
			return true
		}
	}
	return false
}

// countColours returns the distinct opaque colours of img with their pixel
// shares, in first-seen scan order. It stops early and reports false once
// more than limit distinct colours have been seen.
func countColours(img image.Image, limit int) ([]weighted, bool) {
	b := img.Bounds()
	total := float64(b.Dx() * b.Dy())

	index := make(map[colour.RGB]int)
	var out []weighted
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			px := img.At(x, y)
			if _, _, _, a := px.RGBA(); a == 0 {
				continue
			}
			rgb := colour.ToRGB(px)
			if i, ok := index[rgb]; ok {
				out[i].weight++
				continue
			}
			if len(out) == limit {
				return nil, false
			}
			index[rgb] = len(out)
			out = append(out, weighted{rgb: rgb, weight: 1})
		}
	}

	for i := range out {
		out[i].weight /= total
	}
	return out, true
}

func clampByte(v float64) uint8 {
	return uint8(math.Round(math.Max(0, math.Min(255, v))))
}
