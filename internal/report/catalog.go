package report

import (
	"context"
	"fmt"
	"io"

	"github.com/go-pdf/fpdf"

	"github.com/obralens/obralens/internal/datastore"
)

// Catalog listing column widths in points; they sum to contentWidth.
const (
	colCategoriaW   = 120.0
	colDescripcionW = 275.0
	colFuenteW      = 120.0
)

// RenderCatalog writes the catalog listing PDF for the given entries. The
// entries are natural-sorted in place. Rendering stops with ctx.Err() when
// the context is cancelled, so a dropped client aborts layout work early.
func RenderCatalog(ctx context.Context, w io.Writer, entries []datastore.NormaRepo) error {
	sortCatalog(entries)

	pdf := fpdf.New("P", "pt", "A4", "")
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pdf.SetMargins(pageMargin, pageMargin, pageMargin)
	pdf.SetAutoPageBreak(false, 0)
	pdf.SetTitle("Catálogo de normas", true)

	newPage := func() {
		pdf.AddPage()
		pdf.SetFont("Helvetica", "B", 14)
		pdf.SetXY(pageMargin, pageMargin)
		pdf.CellFormat(contentWidth, 20, tr("Catálogo de normas"), "", 1, "L", false, 0, "")
		pdf.SetFont("Helvetica", "B", 9)
		y := pdf.GetY() + 4
		drawCells(pdf, tr, y, minRowHeight,
			[3]string{"Categoría", "Descripción", "Fuente"}, true)
		pdf.SetFont("Helvetica", "", 9)
	}
	newPage()

	for i := range entries {
		if err := ctx.Err(); err != nil {
			return err
		}
		cells := [3]string{
			entries[i].Categoria,
			describe(&entries[i]),
			sourceText(&entries[i]),
		}
		h := rowHeight(pdf, cells)
		if pdf.GetY()+h > pageBottom {
			newPage()
		}
		drawCells(pdf, tr, pdf.GetY(), h, cells, false)
	}

	if err := pdf.Error(); err != nil {
		return fmt.Errorf("rendering catalog pdf: %w", err)
	}
	if err := pdf.Output(w); err != nil {
		return fmt.Errorf("writing catalog pdf: %w", err)
	}
	return nil
}

// rowHeight measures the wrapped height of each cell at its committed
// column width and returns the row height: the tallest cell, never less
// than minRowHeight. SplitText gets the raw UTF-8 text; translating first
// would hand it cp1252 bytes it cannot decode.
func rowHeight(pdf *fpdf.Fpdf, cells [3]string) float64 {
	widths := [3]float64{colCategoriaW, colDescripcionW, colFuenteW}
	h := minRowHeight
	for i, text := range cells {
		lines := pdf.SplitText(text, widths[i]-2*cellPadding)
		if cellH := float64(len(lines))*lineHeight + 2*cellPadding; cellH > h {
			h = cellH
		}
	}
	return h
}

// drawCells draws one bordered row of the three columns at y with height h
// and leaves the cursor at the row's bottom edge.
func drawCells(pdf *fpdf.Fpdf, tr func(string) string, y, h float64, cells [3]string, fill bool) {
	widths := [3]float64{colCategoriaW, colDescripcionW, colFuenteW}
	style := "D"
	if fill {
		pdf.SetFillColor(235, 235, 235)
		style = "FD"
	}
	x := pageMargin
	for i, text := range cells {
		pdf.Rect(x, y, widths[i], h, style)
		lines := pdf.SplitText(text, widths[i]-2*cellPadding)
		ty := y + cellPadding
		for _, line := range lines {
			if ty+lineHeight > y+h {
				break
			}
			pdf.SetXY(x+cellPadding, ty)
			pdf.CellFormat(widths[i]-2*cellPadding, lineHeight, tr(line), "", 0, "L", false, 0, "")
			ty += lineHeight
		}
		x += widths[i]
	}
	pdf.SetXY(pageMargin, y+h)
}
