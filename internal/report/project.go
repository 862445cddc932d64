package report

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-pdf/fpdf"

	"github.com/obralens/obralens/internal/datastore"
)

// maxNormasPerBlock caps how many linked catalog entries one evidence
// block lists.
const maxNormasPerBlock = 6

const (
	blockImageWidth = 240.0
	markerSize      = 7.0
)

// EvidenceBlock is one evidence item prepared for the project report.
// ImagePath is absolute and may be empty or point at a missing file; the
// renderer tolerates both and simply omits the image.
type EvidenceBlock struct {
	Evidencia   datastore.Evidencia
	ImagePath   string
	TareaNombre string
	Normas      []datastore.NormaLink
}

// ProjectData is everything the project report needs, assembled by the
// caller so the renderer stays free of datastore access.
type ProjectData struct {
	Proyecto       datastore.Proyecto
	Bloques        []EvidenceBlock
	CoverImagePath string
	GeneratedAt    time.Time
}

// RenderProject writes the full project report: a cover page followed by
// one block per evidence item, with "Página X de Y" stamped on every page.
// Layout checks ctx between blocks so a dropped client aborts the work.
func RenderProject(ctx context.Context, w io.Writer, data ProjectData) error {
	pdf := fpdf.New("P", "pt", "A4", "")
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pdf.SetMargins(pageMargin, pageMargin, pageMargin)
	pdf.SetAutoPageBreak(false, 0)
	pdf.SetTitle(data.Proyecto.Nombre, true)

	pdf.AliasNbPages("")
	pdf.SetFooterFunc(func() {
		pdf.SetFont("Helvetica", "I", 8)
		pdf.SetXY(pageMargin, pageBottom+10)
		pdf.CellFormat(contentWidth, 12,
			tr(fmt.Sprintf("Página %d de {nb}", pdf.PageNo())), "", 0, "C", false, 0, "")
	})

	renderCover(pdf, tr, &data)

	for i := range data.Bloques {
		if err := ctx.Err(); err != nil {
			return err
		}
		renderBlock(pdf, tr, &data.Bloques[i])
	}

	if err := pdf.Error(); err != nil {
		return fmt.Errorf("rendering project pdf: %w", err)
	}
	if err := pdf.Output(w); err != nil {
		return fmt.Errorf("writing project pdf: %w", err)
	}
	return nil
}

func renderCover(pdf *fpdf.Fpdf, tr func(string) string, data *ProjectData) {
	pdf.AddPage()
	p := &data.Proyecto

	pdf.SetFont("Helvetica", "B", 24)
	pdf.SetXY(pageMargin, 140)
	pdf.MultiCell(contentWidth, 28, tr(p.Nombre), "", "C", false)

	pdf.SetFont("Helvetica", "", 12)
	lines := []string{"Informe de auditoría de obra"}
	if p.Cliente != "" {
		lines = append(lines, "Cliente: "+p.Cliente)
	}
	if p.Ubicacion != "" {
		lines = append(lines, "Ubicación: "+p.Ubicacion)
	}
	if rng := dateRange(p.FechaInicio, p.FechaFin); rng != "" {
		lines = append(lines, rng)
	}
	lines = append(lines, "Generado: "+data.GeneratedAt.Format("02/01/2006"))
	for _, line := range lines {
		pdf.SetX(pageMargin)
		pdf.CellFormat(contentWidth, 18, tr(line), "", 1, "C", false, 0, "")
	}

	if h := drawImage(pdf, data.CoverImagePath, (595-blockImageWidth)/2, pdf.GetY()+24, blockImageWidth); h > 0 {
		pdf.SetY(pdf.GetY() + 24 + h)
	}
}

// renderBlock draws one evidence block: photo, task name, comment and up
// to six linked catalog entries with severity markers. The whole block
// moves to a fresh page when it would cross the bottom margin.
func renderBlock(pdf *fpdf.Fpdf, tr func(string) string, block *EvidenceBlock) {
	normas := block.Normas
	if len(normas) > maxNormasPerBlock {
		normas = normas[:maxNormasPerBlock]
	}

	imgH := imageHeight(pdf, block.ImagePath, blockImageWidth)
	textH := blockTextHeight(pdf, block, normas)
	blockH := imgH + textH + 30

	if pdf.GetY()+blockH > pageBottom {
		pdf.AddPage()
	} else {
		pdf.SetY(pdf.GetY() + 14)
	}

	top := pdf.GetY()
	if imgH > 0 {
		drawImage(pdf, block.ImagePath, pageMargin, top, blockImageWidth)
		pdf.SetY(top + imgH + 6)
	}

	pdf.SetFont("Helvetica", "B", 11)
	title := block.TareaNombre
	if title == "" {
		title = "Sin tarea"
	}
	pdf.SetX(pageMargin)
	pdf.CellFormat(contentWidth, 14, tr(title), "", 1, "L", false, 0, "")

	if block.Evidencia.Comentario != "" {
		pdf.SetFont("Helvetica", "", 10)
		pdf.SetX(pageMargin)
		pdf.MultiCell(contentWidth, lineHeight, tr(block.Evidencia.Comentario), "", "L", false)
	}

	pdf.SetFont("Helvetica", "", 9)
	for i := range normas {
		n := &normas[i]
		y := pdf.GetY() + 2
		r, g, b := severityFill(n.Clasificacion)
		pdf.SetFillColor(r, g, b)
		pdf.Rect(pageMargin, y+(lineHeight-markerSize)/2, markerSize, markerSize, "F")
		pdf.SetXY(pageMargin+markerSize+5, y)
		pdf.MultiCell(contentWidth-markerSize-5, lineHeight, tr(normaLine(n)), "", "L", false)
	}
}

func normaLine(n *datastore.NormaLink) string {
	parts := []string{n.Titulo}
	if n.Fuente != "" {
		parts = append(parts, "("+sourceText(&n.NormaRepo)+")")
	}
	parts = append(parts, "["+string(n.Clasificacion)+"]")
	return strings.Join(parts, " ")
}

// blockTextHeight pre-measures the text portion of a block so the page
// break decision happens before anything is drawn. SplitText wants the
// raw UTF-8 string; the cp1252 translation happens only when drawing.
func blockTextHeight(pdf *fpdf.Fpdf, block *EvidenceBlock, normas []datastore.NormaLink) float64 {
	h := 14.0 // task title line
	pdf.SetFont("Helvetica", "", 10)
	if block.Evidencia.Comentario != "" {
		h += float64(len(pdf.SplitText(block.Evidencia.Comentario, contentWidth))) * lineHeight
	}
	pdf.SetFont("Helvetica", "", 9)
	for i := range normas {
		lines := pdf.SplitText(normaLine(&normas[i]), contentWidth-markerSize-5)
		h += float64(len(lines))*lineHeight + 2
	}
	return h
}

// imageHeight returns the height the image will occupy at the given width,
// or 0 when the file is missing or unreadable.
func imageHeight(pdf *fpdf.Fpdf, path string, width float64) float64 {
	info := registerImage(pdf, path)
	if info == nil || info.Width() <= 0 {
		return 0
	}
	return width * info.Height() / info.Width()
}

// drawImage places the image at (x, y) scaled to the given width and
// returns the drawn height, or 0 when the image cannot be used.
func drawImage(pdf *fpdf.Fpdf, path string, x, y, width float64) float64 {
	info := registerImage(pdf, path)
	if info == nil || info.Width() <= 0 {
		return 0
	}
	h := width * info.Height() / info.Width()
	pdf.ImageOptions(path, x, y, width, h, false,
		fpdf.ImageOptions{ImageType: imageType(path), ReadDpi: true}, 0, "")
	return h
}

// registerImage registers the file with the document once and returns its
// info, or nil when the file does not exist or is not a supported image.
// A missing photo must not sink the whole report.
func registerImage(pdf *fpdf.Fpdf, path string) *fpdf.ImageInfoType {
	if path == "" {
		return nil
	}
	if _, err := os.Stat(path); err != nil {
		return nil
	}
	info := pdf.RegisterImageOptions(path, fpdf.ImageOptions{ImageType: imageType(path), ReadDpi: true})
	if pdf.Error() != nil {
		// Unsupported or corrupt image: clear the sticky error and move on.
		pdf.ClearError()
		return nil
	}
	return info
}

func imageType(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".png":
		return "PNG"
	case ".gif":
		return "GIF"
	default:
		return "JPG"
	}
}

func dateRange(inicio, fin *time.Time) string {
	const layout = "02/01/2006"
	switch {
	case inicio != nil && fin != nil:
		return "Periodo: " + inicio.Format(layout) + " a " + fin.Format(layout)
	case inicio != nil:
		return "Inicio: " + inicio.Format(layout)
	case fin != nil:
		return "Fin: " + fin.Format(layout)
	default:
		return ""
	}
}
