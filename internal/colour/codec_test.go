package colour

import (
	"errors"
	"math"
	"testing"
)

func TestRGBHex(t *testing.T) {
	tests := []struct {
		name string
		rgb  RGB
		want string
	}{
		{name: "red", rgb: RGB{R: 255, G: 0, B: 0}, want: "#ff0000"},
		{name: "black", rgb: RGB{}, want: "#000000"},
		{name: "white", rgb: RGB{R: 255, G: 255, B: 255}, want: "#ffffff"},
		{name: "zero padded", rgb: RGB{R: 1, G: 10, B: 15}, want: "#010a0f"},
		{name: "steel", rgb: RGB{R: 51, G: 102, B: 153}, want: "#336699"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.rgb.Hex(); got != tt.want {
				t.Errorf("Hex() = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestRGBString(t *testing.T) {
	got := RGB{R: 255, G: 128, B: 0}.String()
	if got != "rgb(255, 128, 0)" {
		t.Errorf("String() = %s, want rgb(255, 128, 0)", got)
	}
}

func TestParseHexRoundTrip(t *testing.T) {
	for r := 0; r < 256; r++ {
		for g := 0; g < 256; g += 17 {
			for b := 0; b < 256; b += 15 {
				want := RGB{R: uint8(r), G: uint8(g), B: uint8(b)}
				got, err := ParseHex(want.Hex())
				if err != nil {
					t.Fatalf("ParseHex(%s) error = %v", want.Hex(), err)
				}
				if got != want {
					t.Fatalf("ParseHex(%s) = %v, want %v", want.Hex(), got, want)
				}
			}
		}
	}
}

func TestParseHex(t *testing.T) {
	tests := []struct {
		in      string
		want    RGB
		wantErr bool
	}{
		{in: "#336699", want: RGB{R: 0x33, G: 0x66, B: 0x99}},
		{in: "336699", want: RGB{R: 0x33, G: 0x66, B: 0x99}},
		{in: "#ABCDEF", want: RGB{R: 0xab, G: 0xcd, B: 0xef}},
		{in: "#f00", want: RGB{R: 255}},
		{in: " #00ff00 ", want: RGB{G: 255}},
		{in: "", wantErr: true},
		{in: "#12345", wantErr: true},
		{in: "#gg0000", wantErr: true},
		{in: "#-12345", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseHex(tt.in)
			if tt.wantErr {
				if !errors.Is(err, ErrInvalidHex) {
					t.Errorf("ParseHex(%q) error = %v, want ErrInvalidHex", tt.in, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseHex(%q) error = %v", tt.in, err)
			}
			if got != tt.want {
				t.Errorf("ParseHex(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestRGBToHSL(t *testing.T) {
	tests := []struct {
		name string
		rgb  RGB
		want HSL
	}{
		{name: "red", rgb: RGB{R: 255}, want: HSL{H: 0, S: 100, L: 50}},
		{name: "green", rgb: RGB{G: 255}, want: HSL{H: 120, S: 100, L: 50}},
		{name: "blue", rgb: RGB{B: 255}, want: HSL{H: 240, S: 100, L: 50}},
		{name: "steel", rgb: RGB{R: 51, G: 102, B: 153}, want: HSL{H: 210, S: 50, L: 40}},
		{name: "light pink", rgb: RGB{R: 255, G: 192, B: 203}, want: HSL{H: 350, S: 100, L: 88}},
		{name: "black", rgb: RGB{}, want: HSL{}},
		{name: "white", rgb: RGB{R: 255, G: 255, B: 255}, want: HSL{H: 0, S: 0, L: 100}},
		{name: "near 360 wraps", rgb: RGB{R: 255, G: 0, B: 1}, want: HSL{H: 0, S: 100, L: 50}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.rgb.HSL(); got != tt.want {
				t.Errorf("HSL() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestAchromaticHasZeroSaturation(t *testing.T) {
	for v := 0; v < 256; v++ {
		c := RGB{R: uint8(v), G: uint8(v), B: uint8(v)}
		hsl := c.HSL()
		if hsl.S != 0 || hsl.H != 0 {
			t.Fatalf("HSL(%v) = %+v, want zero hue and saturation", c, hsl)
		}
	}
}

func TestHSLString(t *testing.T) {
	got := HSL{H: 210, S: 50, L: 40}.String()
	if got != "210°, 50%, 40%" {
		t.Errorf("String() = %q, want %q", got, "210°, 50%, 40%")
	}
}

func TestHueUnrounded(t *testing.T) {
	h := Hue(RGB{R: 255, G: 1, B: 0})
	if h <= 0 || h >= 1 {
		t.Errorf("Hue() = %v, want a fractional value in (0,1)", h)
	}

	for r := 0; r < 256; r += 5 {
		for g := 0; g < 256; g += 5 {
			for b := 0; b < 256; b += 5 {
				h := Hue(RGB{R: uint8(r), G: uint8(g), B: uint8(b)})
				if h < 0 || h >= 360 || math.IsNaN(h) {
					t.Fatalf("Hue(%d,%d,%d) = %v, out of [0,360)", r, g, b, h)
				}
			}
		}
	}
}

func TestHueToRGB(t *testing.T) {
	tests := []struct {
		hue  float64
		want RGB
	}{
		{hue: 0, want: RGB{R: 255}},
		{hue: 60, want: RGB{R: 255, G: 255}},
		{hue: 120, want: RGB{G: 255}},
		{hue: 180, want: RGB{G: 255, B: 255}},
		{hue: 240, want: RGB{B: 255}},
		{hue: 300, want: RGB{R: 255, B: 255}},
		{hue: 30, want: RGB{R: 255, G: 128}},
		{hue: 330, want: RGB{R: 255, B: 128}},
		{hue: 360, want: RGB{R: 255}},
		{hue: -120, want: RGB{B: 255}},
	}

	for _, tt := range tests {
		if got := HueToRGB(tt.hue); got != tt.want {
			t.Errorf("HueToRGB(%v) = %v, want %v", tt.hue, got, tt.want)
		}
	}
}

func TestHueToRGBInvertsHue(t *testing.T) {
	for h := 0.0; h < 360; h += 7.5 {
		got := Hue(HueToRGB(h))
		// 8-bit quantisation limits precision to roughly 0.25°.
		if diff := math.Abs(got - h); diff > 0.5 && diff < 359.5 {
			t.Errorf("Hue(HueToRGB(%v)) = %v", h, got)
		}
	}
}

func TestContrastText(t *testing.T) {
	if got := ContrastText(RGB{R: 255, G: 255, B: 255}); got != Black {
		t.Errorf("ContrastText(white) = %v, want black", got)
	}
	if got := ContrastText(Black); got != (RGB{R: 255, G: 255, B: 255}) {
		t.Errorf("ContrastText(black) = %v, want white", got)
	}
}

func TestColourPreviewDisabled(t *testing.T) {
	DisableColourOutput = true
	defer func() { DisableColourOutput = false }()

	if got := ColourPreview(Red, 4); got != "    " {
		t.Errorf("ColourPreview() = %q, want plain spaces", got)
	}
	if got := ColourString(Red, "x"); got != "x" {
		t.Errorf("ColourString() = %q, want plain text", got)
	}
}
