// Package normas implements the catalog import engine: it turns tabular
// uploads into catalog upserts. A sheet either declares its columns through
// a recognizable header row, or falls back to a positional layout where
// single-cell rows act as category headings for the item rows below them.
// One malformed row never aborts an import; it is counted and skipped.
package normas

import (
	"io"
	"log/slog"
	"regexp"
	"strings"

	"github.com/obralens/obralens/internal/datastore"
)

// headerScanLimit is how many leading rows are searched for a header row.
const headerScanLimit = 10

// Summary aggregates the outcome of one import.
type Summary struct {
	Created int `json:"created"`
	Updated int `json:"updated"`
	Errors  int `json:"errors"`
	Total   int `json:"total"`
}

// rowOutcome keeps per-row detail for logging; only the aggregate Summary
// leaves the package.
type rowOutcome struct {
	row    int
	action string // "created", "updated", "skipped"
	err    error
}

// Store is the slice of the datastore the importer needs. The full
// datastore.Interface satisfies it.
type Store interface {
	FindNormaRepoMatch(n *datastore.NormaRepo) (*datastore.NormaRepo, error)
	SaveNormaRepo(n *datastore.NormaRepo) error
	UpdateNormaRepo(n *datastore.NormaRepo) error
}

// Importer runs catalog imports against a datastore.
type Importer struct {
	ds     Store
	logger *slog.Logger
}

// NewImporter creates an importer. A nil logger falls back to the default.
func NewImporter(ds Store, logger *slog.Logger) *Importer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Importer{ds: ds, logger: logger}
}

// ImportFile parses an .xlsx or .csv upload and imports its rows.
func (im *Importer) ImportFile(filename string, r io.Reader) (Summary, error) {
	rows, err := ReadRows(filename, r)
	if err != nil {
		return Summary{}, err
	}
	return im.ImportRows(rows), nil
}

// ImportRows imports raw cell rows, choosing header-mapped or positional
// parsing, and returns the aggregate counts.
func (im *Importer) ImportRows(rows [][]string) Summary {
	headerRow, columns := detectHeader(rows)

	var drafts []datastore.NormaRepo
	if columns != nil {
		drafts = parseMapped(rows[headerRow+1:], columns)
	} else {
		drafts = parsePositional(rows)
	}

	summary := Summary{}
	outcomes := make([]rowOutcome, 0, len(drafts))
	for i := range drafts {
		action, err := im.upsertRow(&drafts[i])
		outcomes = append(outcomes, rowOutcome{row: i, action: action, err: err})
		switch {
		case err != nil:
			summary.Errors++
		case action == "created":
			summary.Created++
		case action == "updated":
			summary.Updated++
		}
		summary.Total++
	}

	for _, o := range outcomes {
		if o.err != nil {
			im.logger.Warn("catalog import row failed", "row", o.row, "error", o.err)
		}
	}
	im.logger.Info("catalog import finished",
		"created", summary.Created, "updated", summary.Updated,
		"errors", summary.Errors, "total", summary.Total)
	return summary
}

// upsertRow resolves the row's stored identity and either updates the match
// or inserts a new entry.
func (im *Importer) upsertRow(draft *datastore.NormaRepo) (string, error) {
	existing, err := im.ds.FindNormaRepoMatch(draft)
	if err != nil {
		return "", err
	}

	if existing == nil {
		if !draft.Severidad.Valid() {
			draft.Severidad = datastore.SeverityLeve
		}
		if err := im.ds.SaveNormaRepo(draft); err != nil {
			return "", err
		}
		return "created", nil
	}

	mergeDraft(existing, draft)
	if err := im.ds.UpdateNormaRepo(existing); err != nil {
		return "", err
	}
	return "updated", nil
}

// mergeDraft overwrites only the fields the incoming row actually supplied.
func mergeDraft(existing, draft *datastore.NormaRepo) {
	if draft.Codigo != "" {
		existing.Codigo = draft.Codigo
	}
	if draft.Titulo != "" {
		existing.Titulo = draft.Titulo
	}
	if draft.Descripcion != "" {
		existing.Descripcion = draft.Descripcion
	}
	if draft.Categoria != "" {
		existing.Categoria = draft.Categoria
	}
	if draft.Subcategoria != "" {
		existing.Subcategoria = draft.Subcategoria
	}
	if draft.Incumplimiento != "" {
		existing.Incumplimiento = draft.Incumplimiento
	}
	if draft.Severidad.Valid() {
		existing.Severidad = draft.Severidad
	}
	if draft.Etiquetas != "" {
		existing.Etiquetas = draft.Etiquetas
	}
	if draft.Fuente != "" {
		existing.Fuente = draft.Fuente
	}
	if draft.Articulo != "" {
		existing.Articulo = draft.Articulo
	}
}

// detectHeader scans the first rows for one containing any known header
// token. Rows with fewer than two non-empty cells never count: a lone
// header token is a stray cell the positional parser skips, not a header.
// Returns the header row index and a field-to-column map, or (-1, nil)
// when the sheet has no recognizable header.
func detectHeader(rows [][]string) (int, map[string]int) {
	limit := min(len(rows), headerScanLimit)
	for i := 0; i < limit; i++ {
		if len(nonEmptyCells(rows[i])) < 2 {
			continue
		}
		columns := make(map[string]int)
		for col, cell := range rows[i] {
			if field, ok := headerVocab[normalizeToken(cell)]; ok {
				if _, taken := columns[field]; !taken {
					columns[field] = col
				}
			}
		}
		if len(columns) > 0 {
			return i, columns
		}
	}
	return -1, nil
}

// parseMapped builds drafts from data rows using the header column map.
func parseMapped(rows [][]string, columns map[string]int) []datastore.NormaRepo {
	cell := func(row []string, field string) string {
		col, ok := columns[field]
		if !ok || col >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[col])
	}

	var drafts []datastore.NormaRepo
	for _, row := range rows {
		draft := datastore.NormaRepo{
			Codigo:         cell(row, fieldCodigo),
			Titulo:         cell(row, fieldTitulo),
			Descripcion:    cell(row, fieldDescripcion),
			Categoria:      cell(row, fieldCategoria),
			Subcategoria:   cell(row, fieldSubcategoria),
			Incumplimiento: cell(row, fieldIncumplimiento),
			Severidad:      parseSeveridad(cell(row, fieldSeveridad)),
			Etiquetas:      cell(row, fieldEtiquetas),
			Fuente:         cell(row, fieldFuente),
			Articulo:       cell(row, fieldArticulo),
		}
		if !usable(&draft) {
			// Nothing in the mapped columns; try the raw cells before
			// giving up on the row entirely.
			if salvaged, ok := salvageRow(row); ok {
				drafts = append(drafts, salvaged)
			}
			continue
		}
		drafts = append(drafts, draft)
	}
	return drafts
}

// subcategoriaPrefixRe matches "1. Something", "2.3) Something" or
// "IV. Something": a leading arabic or roman index introducing a
// subcategory name. Roman numerals must be uppercase so that ordinary
// words never match.
var subcategoriaPrefixRe = regexp.MustCompile(`^\s*(\d+(?:\.\d+)*|[IVXLCDM]+)[\.\)]\s*(\S.*)$`)

// parsePositional handles sheets without a header row. A row with exactly
// one non-empty cell becomes the current category heading (unless it is
// itself a header token); rows with two or more non-empty cells become
// items under that heading.
func parsePositional(rows [][]string) []datastore.NormaRepo {
	var drafts []datastore.NormaRepo
	currentCategoria := ""

	for _, row := range rows {
		cells := nonEmptyCells(row)
		switch {
		case len(cells) == 0:
			continue
		case len(cells) == 1:
			if isHeaderToken(cells[0]) {
				continue
			}
			currentCategoria = cells[0]
		default:
			if allHeaderTokens(cells) {
				continue
			}
			if draft, ok := itemFromCells(cells, currentCategoria); ok {
				drafts = append(drafts, draft)
			}
		}
	}
	return drafts
}

// itemFromCells maps positional cells to a draft: first cell is the
// category (or, when a numeral prefix marks it as a subcategory or an
// earlier heading row set the category, the subcategory), second the
// title, and the last cell the source when a third exists.
func itemFromCells(cells []string, currentCategoria string) (datastore.NormaRepo, bool) {
	draft := datastore.NormaRepo{Severidad: datastore.SeverityLeve}

	first := cells[0]
	if m := subcategoriaPrefixRe.FindStringSubmatch(first); m != nil {
		draft.Categoria = currentCategoria
		draft.Subcategoria = strings.TrimSpace(m[2])
	} else if currentCategoria != "" {
		draft.Categoria = currentCategoria
		draft.Subcategoria = first
	} else {
		draft.Categoria = first
	}

	draft.Titulo = cells[1]
	if len(cells) >= 3 {
		draft.Fuente = cells[len(cells)-1]
	}

	if !usable(&draft) {
		return datastore.NormaRepo{}, false
	}
	return draft, true
}

// salvageRow applies the positional item mapping to a row whose mapped
// columns were all empty.
func salvageRow(row []string) (datastore.NormaRepo, bool) {
	cells := nonEmptyCells(row)
	if len(cells) < 2 || allHeaderTokens(cells) {
		return datastore.NormaRepo{}, false
	}
	return itemFromCells(cells, "")
}

// usable reports whether the draft carries enough text to be worth
// storing. Rows with no title, description or non-compliance text are
// silently skipped.
func usable(draft *datastore.NormaRepo) bool {
	return draft.Titulo != "" || draft.Descripcion != "" || draft.Incumplimiento != ""
}

func nonEmptyCells(row []string) []string {
	var cells []string
	for _, c := range row {
		if t := strings.TrimSpace(c); t != "" {
			cells = append(cells, t)
		}
	}
	return cells
}

func allHeaderTokens(cells []string) bool {
	for _, c := range cells {
		if !isHeaderToken(c) {
			return false
		}
	}
	return true
}

// parseSeveridad interprets a severity cell, folding accents so that
// "CRÍTICO" parses. Unknown text yields the zero value, which callers
// default to LEVE.
func parseSeveridad(cell string) datastore.Severity {
	s := datastore.Severity(strings.ToUpper(foldAccents(strings.TrimSpace(cell))))
	if s.Valid() {
		return s
	}
	return ""
}
