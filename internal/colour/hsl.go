package colour

import (
	"fmt"
	"math"
)

// HSL is the display form of a colour: hue in whole degrees [0,360),
// saturation and lightness in whole percent.
type HSL struct {
	H int `json:"h"`
	S int `json:"s"`
	L int `json:"l"`
}

// String renders the HSL triple as "h°, s%, l%".
func (h HSL) String() string {
	return fmt.Sprintf("%d°, %d%%, %d%%", h.H, h.S, h.L)
}

// HSL converts the colour to its rounded display HSL form.
func (rgb RGB) HSL() HSL {
	h, s, l := rgbToHSL(rgb)

	hue := int(math.Round(h))
	if hue >= 360 {
		hue -= 360
	}

	return HSL{
		H: hue,
		S: int(math.Round(s * 100)),
		L: int(math.Round(l * 100)),
	}
}

// Hue returns the unrounded hue of the colour in degrees [0,360).
// Achromatic colours have hue 0.
func Hue(rgb RGB) float64 {
	h, _, _ := rgbToHSL(rgb)
	return h
}

// rgbToHSL converts RGB to HSL colour space.
// Returns hue (0-360), saturation (0-1), lightness (0-1).
func rgbToHSL(rgb RGB) (h, s, l float64) {
	r := float64(rgb.R) / 255.0
	g := float64(rgb.G) / 255.0
	b := float64(rgb.B) / 255.0

	maxVal := math.Max(r, math.Max(g, b))
	minVal := math.Min(r, math.Min(g, b))
	delta := maxVal - minVal

	l = (maxVal + minVal) / 2.0

	if delta == 0 {
		return 0, 0, l
	}

	if l > 0.5 {
		s = delta / (2.0 - maxVal - minVal)
	} else {
		s = delta / (maxVal + minVal)
	}

	switch maxVal {
	case r:
		h = (g - b) / delta
		if g < b {
			h += 6
		}
	case g:
		h = (b-r)/delta + 2
	case b:
		h = (r-g)/delta + 4
	}

	h *= 60
	if h >= 360 {
		h -= 360
	}
	return h, s, l
}

// HueToRGB returns the fully saturated, mid-lightness colour for hue h
// (degrees). Only chroma is reconstructed; saturation and lightness of any
// source colour are not preserved.
func HueToRGB(h float64) RGB {
	h = math.Mod(h, 360)
	if h < 0 {
		h += 360
	}

	sector := h / 60
	x := 1 - math.Abs(math.Mod(sector, 2)-1)

	var r, g, b float64
	switch {
	case sector < 1:
		r, g, b = 1, x, 0
	case sector < 2:
		r, g, b = x, 1, 0
	case sector < 3:
		r, g, b = 0, 1, x
	case sector < 4:
		r, g, b = 0, x, 1
	case sector < 5:
		r, g, b = x, 0, 1
	default:
		r, g, b = 1, 0, x
	}

	return RGB{R: unitToByte(r), G: unitToByte(g), B: unitToByte(b)}
}

// unitToByte maps [0,1] onto [0,255] rounding to nearest.
func unitToByte(v float64) uint8 {
	return uint8(math.Round(math.Max(0, math.Min(1, v)) * 255))
}
