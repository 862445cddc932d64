// Package report renders the catalog listing and the full project report
// as PDF documents. Rendering is context-aware: layout checks the request
// context at row/block granularity so an abandoned download stops the work
// instead of running to completion against a closed connection.
package report

import (
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/obralens/obralens/internal/datastore"
)

// Page geometry in points (A4 is 595 x 842).
const (
	pageMargin   = 40.0
	contentWidth = 515.0 // 595 - 2*pageMargin
	pageBottom   = 802.0 // 842 - pageMargin
	lineHeight   = 12.0
	minRowHeight = 16.0
	cellPadding  = 4.0
)

var leadingNumberRe = regexp.MustCompile(`^\s*(\d+(?:\.\d+)?)`)

// leadingNumber extracts the numeric prefix of a category value such as
// "3.2 Instalaciones".
func leadingNumber(s string) (float64, bool) {
	m := leadingNumberRe.FindStringSubmatch(s)
	if m == nil {
		return 0, false
	}
	n, err := strconv.ParseFloat(m[1], 64)
	if err != nil {
		return 0, false
	}
	return n, true
}

// sortCatalog orders entries by the category's leading numeral, then the
// category text, then the title.
func sortCatalog(entries []datastore.NormaRepo) {
	sort.SliceStable(entries, func(i, j int) bool {
		a, b := &entries[i], &entries[j]
		na, oka := leadingNumber(a.Categoria)
		nb, okb := leadingNumber(b.Categoria)
		switch {
		case oka && okb && na != nb:
			return na < nb
		case oka != okb:
			return oka // numbered categories sort before unnumbered
		}
		if a.Categoria != b.Categoria {
			return a.Categoria < b.Categoria
		}
		return a.Titulo < b.Titulo
	})
}

// severityFill returns the RGB marker color for a severity.
func severityFill(s datastore.Severity) (r, g, b int) {
	switch s {
	case datastore.SeverityOK:
		return 46, 160, 67
	case datastore.SeverityCritico:
		return 204, 51, 51
	default:
		return 226, 160, 26
	}
}

// describe joins the description-ish fields of an entry for the listing
// column, skipping empties.
func describe(n *datastore.NormaRepo) string {
	parts := make([]string, 0, 3)
	for _, p := range []string{n.Titulo, n.Descripcion, n.Incumplimiento} {
		if p != "" {
			parts = append(parts, p)
		}
	}
	return strings.Join(parts, " - ")
}

// sourceText joins source and article for the third column.
func sourceText(n *datastore.NormaRepo) string {
	if n.Articulo == "" {
		return n.Fuente
	}
	if n.Fuente == "" {
		return n.Articulo
	}
	return n.Fuente + ", " + n.Articulo
}
