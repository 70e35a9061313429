package export

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/zstd"
	"github.com/ulikunitz/xz"
)

// maxDecompressedSize caps how much a compressed palette may expand to.
const maxDecompressedSize = 10 * 1024 * 1024

// ErrTooLarge is returned when decompressed data exceeds the size limit.
var ErrTooLarge = errors.New("decompressed data exceeds size limit")

// Compression selects an optional stream compressor for exports.
type Compression string

const (
	// CompressionNone writes the artifact as is.
	CompressionNone Compression = ""

	// CompressionXZ wraps the artifact in an xz stream.
	CompressionXZ Compression = "xz"

	// CompressionZstd wraps the artifact in a zstd stream.
	CompressionZstd Compression = "zstd"
)

// ParseCompression validates s. "none" and "" both mean no compression.
func ParseCompression(s string) (Compression, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "none":
		return CompressionNone, nil
	case "xz":
		return CompressionXZ, nil
	case "zstd", "zst":
		return CompressionZstd, nil
	default:
		return "", fmt.Errorf("unknown compression: %s (valid: none, xz, zstd)", s)
	}
}

// String returns the compression name.
func (c Compression) String() string {
	if c == CompressionNone {
		return "none"
	}
	return string(c)
}

// Extension returns the file suffix for c.
func (c Compression) Extension() string {
	switch c {
	case CompressionXZ:
		return ".xz"
	case CompressionZstd:
		return ".zst"
	default:
		return ""
	}
}

// NewWriter wraps w. The returned writer must be closed to flush the stream;
// closing it does not close w.
func (c Compression) NewWriter(w io.Writer) (io.WriteCloser, error) {
	switch c {
	case CompressionNone:
		return nopWriteCloser{w}, nil
	case CompressionXZ:
		xw, err := xz.NewWriter(w)
		if err != nil {
			return nil, fmt.Errorf("failed to create xz writer: %w", err)
		}
		return xw, nil
	case CompressionZstd:
		zw, err := zstd.NewWriter(w)
		if err != nil {
			return nil, fmt.Errorf("failed to create zstd writer: %w", err)
		}
		return zw, nil
	default:
		return nil, fmt.Errorf("unknown compression: %s", string(c))
	}
}

// Decompress reads all of data, undoing c.
func (c Compression) Decompress(data []byte) ([]byte, error) {
	var r io.Reader
	switch c {
	case CompressionNone:
		return data, nil
	case CompressionXZ:
		xr, err := xz.NewReader(bytes.NewReader(data))
		if err != nil {
			return nil, fmt.Errorf("failed to create xz reader: %w", err)
		}
		r = xr
	case CompressionZstd:
		zr, err := zstd.NewReader(bytes.NewReader(data))
		if err != nil {
			return nil, fmt.Errorf("failed to create zstd reader: %w", err)
		}
		defer zr.Close()
		r = zr
	default:
		return nil, fmt.Errorf("unknown compression: %s", string(c))
	}

	out, err := io.ReadAll(io.LimitReader(r, maxDecompressedSize+1))
	if err != nil {
		return nil, fmt.Errorf("failed to decompress %s data: %w", c, err)
	}
	if len(out) > maxDecompressedSize {
		return nil, ErrTooLarge
	}
	return out, nil
}

// CompressionFor guesses the compression of path from its extension.
func CompressionFor(path string) Compression {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".xz":
		return CompressionXZ
	case ".zst", ".zstd":
		return CompressionZstd
	default:
		return CompressionNone
	}
}

// ReadFile loads a JSON export written by WriteFile, decompressing by
// extension.
func ReadFile(path string) ([]Entry, error) {
	data, err := os.ReadFile(path) // #nosec G304 - User-specified palette path, intended to be read
	if err != nil {
		return nil, fmt.Errorf("failed to read palette file: %w", err)
	}

	data, err = CompressionFor(path).Decompress(data)
	if err != nil {
		return nil, err
	}
	return ParseJSON(data)
}

type nopWriteCloser struct {
	io.Writer
}

func (nopWriteCloser) Close() error { return nil }
