// Package quantize reduces a bitmap to a short list of representative colours.
//
// Several backends are available: an in-tree k-means, three library-backed
// quantisers and an out-of-process go-plugin binary. All of them return
// colours ordered by dominance, most frequent first.
package quantize

import (
	"context"
	"errors"
	"fmt"
	"image"
	"slices"
	"strings"

	"github.com/hashicorp/go-hclog"

	"github.com/jmylchreest/picpalette/internal/colour"
)

// ErrUnavailable reports that a quantiser cannot be reached at all, as
// opposed to failing on a particular image.
var ErrUnavailable = errors.New("quantizer unavailable")

// Quantizer extracts at most n colours from img in dominance order.
// Returning fewer than n colours is allowed.
type Quantizer interface {
	Quantize(ctx context.Context, img image.Image, n int) ([]colour.RGB, error)
}

// Prober is implemented by quantisers that can check their availability
// ahead of the first call.
type Prober interface {
	Probe(ctx context.Context) error
}

// Closer is implemented by quantisers that hold external resources.
type Closer interface {
	Close()
}

// Algorithm names a quantiser backend.
type Algorithm string

const (
	// AlgorithmKMeans is the in-tree k-means++ quantiser.
	AlgorithmKMeans Algorithm = "kmeans"

	// AlgorithmDominant uses github.com/cenkalti/dominantcolor.
	AlgorithmDominant Algorithm = "dominant"

	// AlgorithmMuesli uses github.com/muesli/kmeans.
	AlgorithmMuesli Algorithm = "muesli"

	// AlgorithmProminent uses github.com/EdlinOrg/prominentcolor.
	AlgorithmProminent Algorithm = "prominent"

	// AlgorithmPlugin delegates to an external go-plugin binary.
	// Written as "plugin:<path>".
	AlgorithmPlugin Algorithm = "plugin"
)

// ValidAlgorithms returns a list of valid algorithm names.
func ValidAlgorithms() []Algorithm {
	return []Algorithm{
		AlgorithmKMeans,
		AlgorithmDominant,
		AlgorithmMuesli,
		AlgorithmProminent,
		AlgorithmPlugin,
	}
}

// IsValidAlgorithm checks if the given algorithm name is valid.
func IsValidAlgorithm(alg Algorithm) bool {
	return slices.Contains(ValidAlgorithms(), alg)
}

// ParseAlgorithm splits "plugin:<path>" into its algorithm and path.
// Other names are returned unchanged with an empty path.
func ParseAlgorithm(s string) (Algorithm, string, error) {
	name, path, hasPath := strings.Cut(strings.TrimSpace(s), ":")
	alg := Algorithm(strings.ToLower(name))

	if !IsValidAlgorithm(alg) {
		return "", "", fmt.Errorf("unknown algorithm: %s (valid algorithms: %v)", name, ValidAlgorithms())
	}

	switch {
	case alg == AlgorithmPlugin && (!hasPath || path == ""):
		return "", "", fmt.Errorf("algorithm %q requires a path, e.g. plugin:/usr/bin/picpalette-quantizer", alg)
	case alg != AlgorithmPlugin && hasPath:
		return "", "", fmt.Errorf("algorithm %q does not take a path", alg)
	}

	return alg, path, nil
}

// New creates a quantiser for spec, which is an algorithm name or
// "plugin:<path>".
func New(spec string, logger hclog.Logger) (Quantizer, error) {
	if logger == nil {
		logger = hclog.NewNullLogger()
	}

	alg, path, err := ParseAlgorithm(spec)
	if err != nil {
		return nil, err
	}

	switch alg {
	case AlgorithmKMeans:
		return NewKMeans(nil), nil
	case AlgorithmDominant:
		return NewDominant(), nil
	case AlgorithmMuesli:
		return NewMuesli(), nil
	case AlgorithmProminent:
		return NewProminent(), nil
	case AlgorithmPlugin:
		return NewPlugin(path, logger.Named("quantizer")), nil
	default:
		return nil, fmt.Errorf("unknown algorithm: %s", alg)
	}
}

func checkArgs(img image.Image, n int) error {
	if img == nil {
		return fmt.Errorf("image cannot be nil")
	}
	if b := img.Bounds(); b.Dx() <= 0 || b.Dy() <= 0 {
		return fmt.Errorf("image has no pixels")
	}
	if n < 1 {
		return fmt.Errorf("color count must be at least 1, got %d", n)
	}
	return nil
}
