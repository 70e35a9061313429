// Package geometry computes bounded display sizes for images.
package geometry

import (
	"errors"
	"fmt"
	"math"
)

// ErrInvalidDimensions is returned for zero or negative sizes.
var ErrInvalidDimensions = errors.New("invalid dimensions")

// Size is a width/height pair in pixels.
type Size struct {
	W int `json:"width"`
	H int `json:"height"`
}

// DefaultBox is the display box used for the image preview.
var DefaultBox = Size{W: 400, H: 300}

// String returns "WxH".
func (s Size) String() string {
	return fmt.Sprintf("%dx%d", s.W, s.H)
}

// Fits reports whether s lies within box.
func (s Size) Fits(box Size) bool {
	return s.W <= box.W && s.H <= box.H
}

// Fit scales natural down to fit inside box, preserving aspect ratio.
// Sizes already inside the box are returned unchanged; Fit never upscales.
func Fit(natural, box Size) (Size, error) {
	if natural.W <= 0 || natural.H <= 0 {
		return Size{}, fmt.Errorf("%w: image is %s", ErrInvalidDimensions, natural)
	}
	if box.W <= 0 || box.H <= 0 {
		return Size{}, fmt.Errorf("%w: display box is %s", ErrInvalidDimensions, box)
	}

	if natural.Fits(box) {
		return natural, nil
	}
	ratio := math.Min(float64(box.W)/float64(natural.W), float64(box.H)/float64(natural.H))

	// Extreme aspect ratios can round a side to zero; keep at least one pixel.
	return Size{
		W: max(1, int(math.Round(float64(natural.W)*ratio))),
		H: max(1, int(math.Round(float64(natural.H)*ratio))),
	}, nil
}
