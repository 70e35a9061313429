package colour

import (
	"fmt"
	"slices"
)

// Palette is an ordered list of colours, most dominant first.
type Palette struct {
	Colors []RGB
}

// NewPalette creates a new Palette with the given colors.
// The slice is copied so later changes by the caller do not leak in.
func NewPalette(colors []RGB) *Palette {
	return &Palette{
		Colors: slices.Clone(colors),
	}
}

// Len returns the number of colors in the palette.
// A nil palette is empty.
func (p *Palette) Len() int {
	if p == nil {
		return 0
	}
	return len(p.Colors)
}

// Hex returns the palette colours as hex strings, in order.
func (p *Palette) Hex() []string {
	hexColors := make([]string, p.Len())
	for i := range hexColors {
		hexColors[i] = p.Colors[i].Hex()
	}
	return hexColors
}

// Get returns the color at the specified index.
// Returns an error if the index is out of bounds.
func (p *Palette) Get(index int) (RGB, error) {
	if index < 0 || index >= p.Len() {
		return RGB{}, fmt.Errorf("index out of bounds: %d (palette has %d colors)", index, p.Len())
	}
	return p.Colors[index], nil
}

// All returns an iterator over all colors in the palette.
func (p *Palette) All() func(func(int, RGB) bool) {
	return func(yield func(int, RGB) bool) {
		if p == nil {
			return
		}
		for i, c := range p.Colors {
			if !yield(i, c) {
				return
			}
		}
	}
}

// String returns a human-readable string representation of the palette.
func (p *Palette) String() string {
	if p.Len() == 0 {
		return "Empty palette"
	}

	result := fmt.Sprintf("Palette with %d colors:\n", len(p.Colors))
	for i, c := range p.Colors {
		result += fmt.Sprintf("  %2d: %s (%s) HSL: %s\n", i+1, c.Hex(), c.String(), c.HSL())
	}
	return result
}
