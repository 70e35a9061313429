package colour

const (
	// AnalogousStep is added to a single channel to build each analogous variant.
	AnalogousStep = 30

	// DerivedSize is the number of colours returned by Derive.
	DerivedSize = 7
)

// Derive builds the fixed companion set for base, in order:
//
//	0    base
//	1    complement
//	2-4  analogous variants (+30 on R, then G, then B, clamped at 255)
//	5-6  triadic colours at hue+120° and hue+240°
//
// The triadic colours come from HueToRGB and are therefore always at full
// chroma, whatever the saturation and lightness of base.
func Derive(base RGB) []RGB {
	hue := Hue(base)

	return []RGB{
		base,
		base.Complement(),
		{R: brighten(base.R), G: base.G, B: base.B},
		{R: base.R, G: brighten(base.G), B: base.B},
		{R: base.R, G: base.G, B: brighten(base.B)},
		HueToRGB(hue + 120),
		HueToRGB(hue + 240),
	}
}

// DerivedRoles names the entries returned by Derive.
func DerivedRoles() []string {
	return []string{"base", "complement", "analogous-r", "analogous-g", "analogous-b", "triadic-120", "triadic-240"}
}

func brighten(v uint8) uint8 {
	return uint8(min(255, int(v)+AnalogousStep))
}
