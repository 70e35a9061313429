// Package colour provides the colour codec, palette type and derived palette
// synthesis used by picpalette.
package colour

import (
	"errors"
	"fmt"
	"image/color"
	"strconv"
	"strings"
)

// ErrInvalidHex is returned by ParseHex for malformed input.
var ErrInvalidHex = errors.New("invalid hex colour")

// RGB represents a colour as three 8-bit channels.
// Hex, HSL and CSS representations are derived on demand.
type RGB struct {
	R uint8 `json:"r"`
	G uint8 `json:"g"`
	B uint8 `json:"b"`
}

// String returns the RGB color as a string in the format "rgb(r, g, b)".
func (rgb RGB) String() string {
	return fmt.Sprintf("rgb(%d, %d, %d)", rgb.R, rgb.G, rgb.B)
}

// Hex returns the RGB color as a hex string (e.g., "#1a2b3c").
func (rgb RGB) Hex() string {
	return fmt.Sprintf("#%02x%02x%02x", rgb.R, rgb.G, rgb.B)
}

// RGBA converts the colour to an opaque color.RGBA.
func (rgb RGB) RGBA() color.RGBA {
	return color.RGBA{R: rgb.R, G: rgb.G, B: rgb.B, A: 255}
}

// Complement replaces every channel c with 255-c.
func (rgb RGB) Complement() RGB {
	return RGB{R: 255 - rgb.R, G: 255 - rgb.G, B: 255 - rgb.B}
}

// ToRGB converts a color.Color to RGB.
// Translucent colours are un-premultiplied first so the channels keep their
// straight values.
func ToRGB(c color.Color) RGB {
	n := color.NRGBAModel.Convert(c).(color.NRGBA)
	return RGB{R: n.R, G: n.G, B: n.B}
}

// ParseHex parses "#rrggbb" or "#rgb" (the leading '#' is optional, case is
// ignored) and is the inverse of RGB.Hex.
func ParseHex(s string) (RGB, error) {
	hex := strings.TrimPrefix(strings.TrimSpace(s), "#")

	if len(hex) == 3 {
		hex = string([]byte{hex[0], hex[0], hex[1], hex[1], hex[2], hex[2]})
	}
	if len(hex) != 6 {
		return RGB{}, fmt.Errorf("%w: %q", ErrInvalidHex, s)
	}

	v, err := strconv.ParseUint(hex, 16, 32)
	if err != nil {
		return RGB{}, fmt.Errorf("%w: %q", ErrInvalidHex, s)
	}

	return RGB{
		R: uint8(v >> 16),
		G: uint8(v >> 8),
		B: uint8(v),
	}, nil
}

// Notification tints used across the application.
var (
	Red    = RGB{R: 255, G: 0, B: 0}
	Green  = RGB{R: 0, G: 255, B: 0}
	Orange = RGB{R: 255, G: 165, B: 0}
	Indigo = RGB{R: 102, G: 126, B: 234}
	Black  = RGB{}
)
