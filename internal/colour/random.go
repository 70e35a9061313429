package colour

import (
	"crypto/rand"
	"encoding/binary"
	mathrand "math/rand/v2"
)

// NewRand returns a ChaCha8 generator. A nil seed draws one from crypto/rand.
func NewRand(seed *uint64) *mathrand.Rand {
	var s uint64
	if seed != nil {
		s = *seed
	} else {
		var randomBytes [8]byte
		if _, err := rand.Read(randomBytes[:]); err == nil {
			s = binary.LittleEndian.Uint64(randomBytes[:])
		}
	}

	var seedArray [32]byte
	binary.LittleEndian.PutUint64(seedArray[:8], s)
	// #nosec G404 -- palette fallback, not cryptography
	return mathrand.New(mathrand.NewChaCha8(seedArray))
}

// RandomPalette returns n colours with every channel drawn uniformly from
// [0,255]. It backs the degraded mode used when no quantiser is available.
func RandomPalette(n int, rng *mathrand.Rand) *Palette {
	if n < 0 {
		n = 0
	}

	colors := make([]RGB, n)
	for i := range n {
		colors[i] = RGB{
			// #nosec G115 -- rng.IntN(256) returns 0-255, safe for uint8
			R: uint8(rng.IntN(256)),
			// #nosec G115 -- rng.IntN(256) returns 0-255, safe for uint8
			G: uint8(rng.IntN(256)),
			// #nosec G115 -- rng.IntN(256) returns 0-255, safe for uint8
			B: uint8(rng.IntN(256)),
		}
	}

	return NewPalette(colors)
}
