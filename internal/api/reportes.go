// reportes.go: PDF generation endpoints. Reports render into a buffer
// first, so errors still produce a clean JSON response instead of a
// half-written PDF.
package api

import (
	"bytes"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/obralens/obralens/internal/datastore"
	"github.com/obralens/obralens/internal/grouping"
	"github.com/obralens/obralens/internal/report"
)

func (c *Controller) initReportRoutes() {
	c.Group.GET("/normas-repo/report", c.CatalogReport)
	c.Group.HEAD("/normas-repo/report", c.CatalogReport)
	c.Group.GET("/reportes/proyectos/:id/pdf", c.ProjectReport)
}

// parseIDList parses a comma-separated ids parameter. Malformed entries are
// skipped rather than failing the request.
func parseIDList(raw string) []uint {
	var ids []uint
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		id, err := strconv.ParseUint(part, 10, 32)
		if err != nil || id == 0 {
			continue
		}
		ids = append(ids, uint(id))
	}
	return ids
}

// CatalogReport renders the catalog PDF for either an explicit ids list or
// the same filters the listing endpoint accepts. Unknown ids are omitted;
// the report covers whatever subset exists. HEAD requests get the headers
// without a body.
func (c *Controller) CatalogReport(ctx echo.Context) error {
	var entries []datastore.NormaRepo

	if rawIDs := ctx.QueryParam("ids"); rawIDs != "" {
		ids := parseIDList(rawIDs)
		if len(ids) == 0 {
			return c.HandleError(ctx, nil, "ids inválidos", http.StatusBadRequest)
		}
		found, err := c.DS.GetNormasRepoByIDs(ids)
		if err != nil {
			return c.handleDSError(ctx, err, "normas")
		}
		entries = found
	} else {
		filter, err := normaFilterFromQuery(ctx)
		if err != nil {
			return c.HandleError(ctx, err, "parámetros de búsqueda inválidos", http.StatusBadRequest)
		}
		filter.All = true
		found, _, err := c.DS.GetNormasRepo(filter)
		if err != nil {
			return c.handleDSError(ctx, err, "normas")
		}
		entries = found
	}

	var buf bytes.Buffer
	if err := report.RenderCatalog(ctx.Request().Context(), &buf, entries); err != nil {
		return c.HandleError(ctx, err, "no se pudo generar el reporte", http.StatusInternalServerError)
	}

	if c.Metrics != nil {
		c.Metrics.ReportsGenerated.WithLabelValues("catalog").Inc()
	}

	ctx.Response().Header().Set(echo.HeaderContentDisposition,
		`attachment; filename="normas-repo.pdf"`)
	if ctx.Request().Method == http.MethodHead {
		ctx.Response().Header().Set(echo.HeaderContentType, "application/pdf")
		ctx.Response().Header().Set(echo.HeaderContentLength, strconv.Itoa(buf.Len()))
		return ctx.NoContent(http.StatusOK)
	}
	return ctx.Blob(http.StatusOK, "application/pdf", buf.Bytes())
}

// ProjectReport renders the full project report: cover page, then one
// block per evidence item with its photo and linked catalog entries. The
// optional categoria filter restricts blocks to one severity.
func (c *Controller) ProjectReport(ctx echo.Context) error {
	id, err := idParam(ctx, "id")
	if err != nil {
		return c.HandleError(ctx, err, "id de proyecto inválido", http.StatusBadRequest)
	}
	proyecto, err := c.DS.GetProyecto(id)
	if err != nil {
		return c.handleDSError(ctx, err, "proyecto")
	}

	var categoria datastore.Severity
	if raw := ctx.QueryParam("categoria"); raw != "" {
		categoria = datastore.Severity(strings.ToUpper(raw))
		if !categoria.Valid() {
			return c.HandleError(ctx, nil, "categoria inválida", http.StatusBadRequest)
		}
	}

	evidencias, err := c.DS.GetEvidenciasByProyecto(id)
	if err != nil {
		return c.handleDSError(ctx, err, "evidencias")
	}

	data, err := c.buildProjectData(&proyecto, evidencias, categoria)
	if err != nil {
		return c.handleDSError(ctx, err, "evidencias")
	}

	var buf bytes.Buffer
	if err := report.RenderProject(ctx.Request().Context(), &buf, data); err != nil {
		return c.HandleError(ctx, err, "no se pudo generar el reporte", http.StatusInternalServerError)
	}

	if c.Metrics != nil {
		c.Metrics.ReportsGenerated.WithLabelValues("project").Inc()
	}

	ctx.Response().Header().Set(echo.HeaderContentDisposition,
		fmt.Sprintf(`attachment; filename="proyecto-%d.pdf"`, id))
	return ctx.Blob(http.StatusOK, "application/pdf", buf.Bytes())
}

// buildProjectData assembles the renderer's input: the cover photo comes
// from the newest [PORTADA]-tagged evidence, the blocks from everything
// untagged, each with up to maxNormasPerBlock linked catalog entries.
func (c *Controller) buildProjectData(proyecto *datastore.Proyecto,
	evidencias []datastore.Evidencia, categoria datastore.Severity) (report.ProjectData, error) {

	data := report.ProjectData{
		Proyecto:    *proyecto,
		GeneratedAt: time.Now(),
	}

	var blocks []datastore.Evidencia
	for i := range evidencias {
		e := &evidencias[i]
		if grouping.HasInstitutionalTag(e.Comentario) {
			if data.CoverImagePath == "" {
				if abs, err := c.Media.Abs(e.Archivo); err == nil {
					data.CoverImagePath = abs
				}
			}
			continue
		}
		if categoria != "" && e.Categoria != categoria {
			continue
		}
		blocks = append(blocks, *e)
	}

	ids := make([]uint, len(blocks))
	for i := range blocks {
		ids[i] = blocks[i].ID
	}
	links, err := c.DS.GetNormasForEvidencias(ids)
	if err != nil {
		return report.ProjectData{}, err
	}
	linksByEvidencia := make(map[uint][]datastore.NormaLink)
	for i := range links {
		linksByEvidencia[links[i].EvidenciaID] = append(linksByEvidencia[links[i].EvidenciaID], links[i])
	}

	tareaNames := make(map[uint]string)
	for i := range blocks {
		e := blocks[i]
		block := report.EvidenceBlock{
			Evidencia: e,
			Normas:    linksByEvidencia[e.ID],
		}
		if abs, err := c.Media.Abs(e.Archivo); err == nil {
			block.ImagePath = abs
		}
		if e.TareaID != nil {
			block.TareaNombre = c.tareaName(*e.TareaID, tareaNames)
		}
		data.Bloques = append(data.Bloques, block)
	}
	return data, nil
}
