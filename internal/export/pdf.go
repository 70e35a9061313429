package export

import (
	"fmt"
	"io"

	"seehuhn.de/go/pdf"
	"seehuhn.de/go/pdf/document"
	"seehuhn.de/go/pdf/graphics/color"

	"github.com/jmylchreest/picpalette/internal/colour"
)

// Swatch sheet layout on an A4 page, in PDF points.
const (
	sheetMargin  = 56.0
	sheetColumns = 4
	sheetGap     = 12.0
)

// WritePDF writes a single A4 page with one filled square per palette
// colour, laid out left to right and top to bottom in palette order.
func WritePDF(w io.Writer, palette *colour.Palette) error {
	if palette.Len() == 0 {
		return ErrEmptyPalette
	}

	page, err := document.WriteSinglePage(w, document.A4, pdf.V1_7, nil)
	if err != nil {
		return fmt.Errorf("failed to start PDF: %w", err)
	}

	pageW := document.A4.URx - document.A4.LLx
	pageH := document.A4.URy - document.A4.LLy
	side := (pageW - 2*sheetMargin - (sheetColumns-1)*sheetGap) / sheetColumns

	for i, c := range palette.All() {
		row, col := i/sheetColumns, i%sheetColumns
		x := sheetMargin + float64(col)*(side+sheetGap)
		y := pageH - sheetMargin - side - float64(row)*(side+sheetGap)

		page.SetFillColor(color.DeviceRGB(
			float64(c.R)/255,
			float64(c.G)/255,
			float64(c.B)/255,
		))
		page.Rectangle(x, y, side, side)
		page.Fill()
	}

	if err := page.Close(); err != nil {
		return fmt.Errorf("failed to write PDF: %w", err)
	}
	return nil
}
