// Package export writes palettes to disk as JSON, PDF swatch sheets or PNG
// previews, optionally compressed.
package export

import (
	"encoding/json"
	"errors"
	"fmt"
	"image"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/jmylchreest/picpalette/internal/colour"
	"github.com/jmylchreest/picpalette/internal/surface"
)

// DefaultFilename is the name of the JSON export artifact.
const DefaultFilename = "picpalette-colors.json"

// ErrEmptyPalette is returned when there is nothing to export.
var ErrEmptyPalette = errors.New("no colours to export")

// Entry is one colour in the JSON artifact.
type Entry struct {
	Hex string `json:"hex"`
	RGB string `json:"rgb"`
	HSL string `json:"hsl"`
}

// Entries converts palette to export entries, preserving order.
func Entries(palette *colour.Palette) []Entry {
	entries := make([]Entry, 0, palette.Len())
	for _, c := range palette.All() {
		entries = append(entries, Entry{
			Hex: c.Hex(),
			RGB: c.String(),
			HSL: c.HSL().String(),
		})
	}
	return entries
}

// JSON returns palette as a two-space indented JSON array.
func JSON(palette *colour.Palette) ([]byte, error) {
	if palette.Len() == 0 {
		return nil, ErrEmptyPalette
	}

	data, err := json.MarshalIndent(Entries(palette), "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal palette: %w", err)
	}
	return data, nil
}

// Write writes the JSON artifact for palette to w.
func Write(w io.Writer, palette *colour.Palette) error {
	data, err := JSON(palette)
	if err != nil {
		return err
	}
	if _, err := w.Write(data); err != nil {
		return fmt.Errorf("failed to write palette: %w", err)
	}
	return nil
}

// ParseJSON reads an artifact produced by Write.
func ParseJSON(data []byte) ([]Entry, error) {
	var entries []Entry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("failed to parse palette: %w", err)
	}
	return entries, nil
}

// Palette rebuilds a palette from entries using their hex fields.
func Palette(entries []Entry) (*colour.Palette, error) {
	colors := make([]colour.RGB, 0, len(entries))
	for i, e := range entries {
		c, err := colour.ParseHex(e.Hex)
		if err != nil {
			return nil, fmt.Errorf("entry %d: %w", i, err)
		}
		colors = append(colors, c)
	}
	return colour.NewPalette(colors), nil
}

// Format selects the export artifact.
type Format string

const (
	// FormatJSON is the [{hex, rgb, hsl}] array.
	FormatJSON Format = "json"

	// FormatPDF is a printable swatch sheet.
	FormatPDF Format = "pdf"

	// FormatPNG is the image with a swatch strip underneath.
	FormatPNG Format = "png"
)

// ValidFormats returns a list of valid export formats.
func ValidFormats() []Format {
	return []Format{FormatJSON, FormatPDF, FormatPNG}
}

// ParseFormat validates s as a Format.
func ParseFormat(s string) (Format, error) {
	f := Format(strings.ToLower(strings.TrimSpace(s)))
	for _, valid := range ValidFormats() {
		if f == valid {
			return f, nil
		}
	}
	return "", fmt.Errorf("unknown export format: %s (valid formats: %v)", s, ValidFormats())
}

// Options controls Encode and WriteFile.
type Options struct {
	Format      Format
	Compression Compression

	// Image is drawn above the swatches in PNG output. It may be nil.
	Image image.Image
}

// Filename returns the default file name for opts.
func Filename(opts Options) string {
	name := DefaultFilename
	if opts.Format != "" && opts.Format != FormatJSON {
		name = strings.TrimSuffix(DefaultFilename, ".json") + "." + string(opts.Format)
	}
	return name + opts.Compression.Extension()
}

// Encode writes palette to w in the format and compression of opts.
func Encode(w io.Writer, palette *colour.Palette, opts Options) error {
	if palette.Len() == 0 {
		return ErrEmptyPalette
	}

	cw, err := opts.Compression.NewWriter(w)
	if err != nil {
		return err
	}

	switch opts.Format {
	case "", FormatJSON:
		err = Write(cw, palette)
	case FormatPDF:
		err = WritePDF(cw, palette)
	case FormatPNG:
		err = surface.WritePreview(cw, opts.Image, palette)
	default:
		err = fmt.Errorf("unknown export format: %s", opts.Format)
	}

	if closeErr := cw.Close(); err == nil && closeErr != nil {
		err = fmt.Errorf("failed to finish %s stream: %w", opts.Compression, closeErr)
	}
	return err
}

// WriteFile exports palette to path. Nothing is created when the palette
// is empty, and a failed export leaves no partial file behind.
func WriteFile(path string, palette *colour.Palette, opts Options) error {
	if palette.Len() == 0 {
		return ErrEmptyPalette
	}

	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, ".picpalette-export-*")
	if err != nil {
		return fmt.Errorf("failed to create export file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	encodeErr := Encode(tmp, palette, opts)
	closeErr := tmp.Close()
	if encodeErr != nil {
		return encodeErr
	}
	if closeErr != nil {
		return fmt.Errorf("failed to close export file: %w", closeErr)
	}

	if err := os.Chmod(tmpName, 0o644); err != nil { // #nosec G302 - exported palettes are meant to be shared
		return fmt.Errorf("failed to set export file permissions: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}
