package cli

import (
	"fmt"
	"slices"
	"strconv"
	"strings"

	"github.com/jmylchreest/picpalette/internal/colour"
	"github.com/jmylchreest/picpalette/internal/export"
)

// Output formats for palette listings.
const (
	formatHex   = "hex"
	formatRGB   = "rgb"
	formatHSL   = "hsl"
	formatJSON  = "json"
	formatTable = "table"
)

func outputFormats() []string {
	return []string{formatHex, formatRGB, formatHSL, formatJSON, formatTable}
}

func validateFormat(format string) error {
	if !slices.Contains(outputFormats(), format) {
		return fmt.Errorf("unsupported format: %s (supported: %s)", format, strings.Join(outputFormats(), ", "))
	}
	return nil
}

// formatPalette renders palette in format. labels, when given, name each
// colour in table output.
func formatPalette(palette *colour.Palette, format string, preview bool, labels []string) (string, error) {
	if err := validateFormat(format); err != nil {
		return "", err
	}

	if format == formatJSON {
		data, err := export.JSON(palette)
		if err != nil {
			return "", fmt.Errorf("failed to convert to JSON: %w", err)
		}
		return string(data) + "\n", nil
	}

	if format == formatTable {
		return formatTablePalette(palette, preview, labels), nil
	}

	var b strings.Builder
	for _, c := range palette.All() {
		var value string
		switch format {
		case formatHex:
			value = c.Hex()
		case formatRGB:
			value = c.String()
		case formatHSL:
			value = c.HSL().String()
		}

		if preview {
			b.WriteString(colour.ColourPreview(c, 4))
			b.WriteString("  ")
			value = colour.ColourString(c, value)
		}
		b.WriteString(value)
		b.WriteString("\n")
	}
	return b.String(), nil
}

func formatTablePalette(palette *colour.Palette, preview bool, labels []string) string {
	headers := []string{"#", "Hex", "RGB", "HSL"}
	if preview {
		headers = slices.Insert(headers, 1, "")
	}
	if labels != nil {
		headers[0] = "Role"
	}

	table := NewTable(headers...)
	for i, c := range palette.All() {
		name := strconv.Itoa(i + 1)
		if i < len(labels) {
			name = labels[i]
		}
		cells := []string{name, c.Hex(), c.String(), c.HSL().String()}
		if preview {
			cells = slices.Insert(cells, 1, colour.ColourPreview(c, 4))
		}
		table.AddRow(cells...)
	}
	return table.Render()
}
