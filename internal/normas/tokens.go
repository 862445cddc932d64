package normas

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Catalog fields a spreadsheet column can map to.
const (
	fieldCodigo         = "codigo"
	fieldTitulo         = "titulo"
	fieldDescripcion    = "descripcion"
	fieldCategoria      = "categoria"
	fieldSubcategoria   = "subcategoria"
	fieldIncumplimiento = "incumplimiento"
	fieldSeveridad      = "severidad"
	fieldEtiquetas      = "etiquetas"
	fieldFuente         = "fuente"
	fieldArticulo       = "articulo"
)

// headerVocab maps normalized header tokens to catalog fields. Spanish and
// English spellings are both accepted; tokens arrive accent-folded.
var headerVocab = map[string]string{
	"codigo":          fieldCodigo,
	"cod":             fieldCodigo,
	"code":            fieldCodigo,
	"titulo":          fieldTitulo,
	"title":           fieldTitulo,
	"norma":           fieldTitulo,
	"nombre":          fieldTitulo,
	"descripcion":     fieldDescripcion,
	"description":     fieldDescripcion,
	"detalle":         fieldDescripcion,
	"categoria":       fieldCategoria,
	"category":        fieldCategoria,
	"subcategoria":    fieldSubcategoria,
	"sub_categoria":   fieldSubcategoria,
	"subcategory":     fieldSubcategoria,
	"incumplimiento":  fieldIncumplimiento,
	"non_compliance":  fieldIncumplimiento,
	"noncompliance":   fieldIncumplimiento,
	"hallazgo":        fieldIncumplimiento,
	"severidad":       fieldSeveridad,
	"severity":        fieldSeveridad,
	"gravedad":        fieldSeveridad,
	"etiquetas":       fieldEtiquetas,
	"tags":            fieldEtiquetas,
	"fuente":          fieldFuente,
	"source":          fieldFuente,
	"articulo":        fieldArticulo,
	"article":         fieldArticulo,
	"fuente_articulo": fieldFuente,
}

var accentFolder = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// foldAccents strips diacritical marks: "Categoría" becomes "Categoria".
func foldAccents(s string) string {
	folded, _, err := transform.String(accentFolder, s)
	if err != nil {
		return s
	}
	return folded
}

// normalizeToken folds accents, lowercases and collapses every run of
// non-alphanumeric characters to a single underscore. "Sub-Categoría "
// becomes "sub_categoria".
func normalizeToken(s string) string {
	s = strings.ToLower(foldAccents(s))
	var b strings.Builder
	lastUnderscore := true // swallow leading separators
	for _, r := range s {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
			lastUnderscore = false
		} else if !lastUnderscore {
			b.WriteRune('_')
			lastUnderscore = true
		}
	}
	return strings.TrimRight(b.String(), "_")
}

// isHeaderToken reports whether a cell, normalized, is part of the known
// header vocabulary.
func isHeaderToken(cell string) bool {
	_, ok := headerVocab[normalizeToken(cell)]
	return ok
}
