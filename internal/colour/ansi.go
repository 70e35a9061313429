package colour

import (
	"fmt"
	"strings"

	"github.com/lucasb-eyer/go-colorful"
)

// ANSI escape codes for terminal colours.
const (
	ansiReset    = "\033[0m"
	ansiFgPrefix = "\033[38;2;"
	ansiBgPrefix = "\033[48;2;"
	ansiSuffix   = "m"
	defaultWidth = 8
)

// DisableColourOutput can be used to disable colour output.
var DisableColourOutput = false

// ColourPreview returns an ANSI-coloured preview string for a colour.
// Width specifies how many characters wide the colour block should be.
func ColourPreview(c RGB, width int) string {
	if width <= 0 {
		width = defaultWidth
	}

	block := strings.Repeat(" ", width)
	if DisableColourOutput {
		return block
	}

	return background(c) + block + ansiReset
}

// ColourPreviewWithText returns a colour block with centred text drawn in
// whichever of black or white reads better on it.
func ColourPreviewWithText(c RGB, text string, width int) string {
	if width <= 0 {
		width = defaultWidth
	}

	displayText := text
	if len(text) > width {
		displayText = text[:width]
	} else if len(text) < width {
		padding := (width - len(text)) / 2
		displayText = strings.Repeat(" ", padding) + text + strings.Repeat(" ", width-len(text)-padding)
	}

	if DisableColourOutput {
		return displayText
	}

	return background(c) + foreground(ContrastText(c)) + displayText + ansiReset
}

// ColourString returns a coloured string if colour output is enabled, plain text otherwise.
func ColourString(rgb RGB, text string) string {
	if DisableColourOutput {
		return text
	}
	return foreground(rgb) + text + ansiReset
}

// ContrastText picks black or white, whichever is more legible on c.
// Lightness is taken from CIE L*a*b*.
func ContrastText(c RGB) RGB {
	l, _, _ := toColorful(c).Lab()
	if l > 0.6 {
		return Black
	}
	return RGB{R: 255, G: 255, B: 255}
}

// DistanceLab returns the CIE76 distance between two colours.
func DistanceLab(a, b RGB) float64 {
	return toColorful(a).DistanceLab(toColorful(b))
}

func toColorful(c RGB) colorful.Color {
	return colorful.Color{
		R: float64(c.R) / 255.0,
		G: float64(c.G) / 255.0,
		B: float64(c.B) / 255.0,
	}
}

func background(c RGB) string {
	return fmt.Sprintf("%s%d;%d;%d%s", ansiBgPrefix, c.R, c.G, c.B, ansiSuffix)
}

func foreground(c RGB) string {
	return fmt.Sprintf("%s%d;%d;%d%s", ansiFgPrefix, c.R, c.G, c.B, ansiSuffix)
}
