// normasrepo.go: the regulatory catalog: listing, CRUD, tabular import and
// project/task scoping.
package api

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/obralens/obralens/internal/datastore"
)

func (c *Controller) initNormaRepoRoutes() {
	c.Group.GET("/normas-repo", c.GetNormasRepo)
	c.Group.GET("/normas-repo/:id", c.GetNormaRepo)
	c.Group.GET("/proyectos/:id/normas-repo", c.GetProyectoNormas)
	c.Group.GET("/tareas/:id/normas-repo", c.GetTareaNormas)

	protected := c.Group.Group("", c.authMiddleware)
	protected.POST("/normas-repo", c.CreateNormaRepo)
	protected.PUT("/normas-repo/:id", c.UpdateNormaRepo)
	protected.DELETE("/normas-repo/:id", c.DeleteNormaRepo)
	protected.POST("/normas-repo/import", c.ImportNormasRepo)
	protected.POST("/proyectos/:id/normas-repo", c.AttachProyectoNorma)
	protected.DELETE("/proyectos/:id/normas-repo/:normaRepoId", c.DetachProyectoNorma)
	protected.POST("/tareas/:id/normas-repo", c.AttachTareaNorma)
	protected.DELETE("/tareas/:id/normas-repo/:normaRepoId", c.DetachTareaNorma)
}

// normaFilterFromQuery builds the catalog filter from query parameters.
func normaFilterFromQuery(ctx echo.Context) (datastore.NormaFilter, error) {
	filter := datastore.NormaFilter{
		Search:    ctx.QueryParam("search"),
		Categoria: ctx.QueryParam("categoria"),
	}
	if raw := ctx.QueryParam("severidad"); raw != "" {
		s := datastore.Severity(strings.ToUpper(raw))
		if !s.Valid() {
			return filter, echo.NewHTTPError(http.StatusBadRequest, "severidad inválida")
		}
		filter.Severidad = s
	}
	if raw := ctx.QueryParam("page"); raw != "" {
		page, err := strconv.Atoi(raw)
		if err != nil || page < 1 {
			return filter, echo.NewHTTPError(http.StatusBadRequest, "page inválido")
		}
		filter.Page = page
	}
	if raw := ctx.QueryParam("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit < 1 {
			return filter, echo.NewHTTPError(http.StatusBadRequest, "limit inválido")
		}
		filter.Limit = limit
	}
	filter.All = ctx.QueryParam("all") == "true"
	return filter, nil
}

// GetNormasRepo lists the catalog with search, category and severity
// filters and pagination.
func (c *Controller) GetNormasRepo(ctx echo.Context) error {
	filter, err := normaFilterFromQuery(ctx)
	if err != nil {
		return c.HandleError(ctx, err, "parámetros de búsqueda inválidos", http.StatusBadRequest)
	}

	normas, total, err := c.DS.GetNormasRepo(filter)
	if err != nil {
		return c.handleDSError(ctx, err, "normas")
	}
	return ctx.JSON(http.StatusOK, map[string]any{
		"items": normas,
		"total": total,
	})
}

// GetNormaRepo returns one catalog entry.
func (c *Controller) GetNormaRepo(ctx echo.Context) error {
	id, err := idParam(ctx, "id")
	if err != nil {
		return c.HandleError(ctx, err, "id de norma inválido", http.StatusBadRequest)
	}
	norma, err := c.DS.GetNormaRepo(id)
	if err != nil {
		return c.handleDSError(ctx, err, "norma")
	}
	return ctx.JSON(http.StatusOK, norma)
}

// NormaRepoRequest is the create/update payload for a catalog entry.
type NormaRepoRequest struct {
	Codigo         string `json:"codigo"`
	Titulo         string `json:"titulo"`
	Descripcion    string `json:"descripcion"`
	Categoria      string `json:"categoria"`
	Subcategoria   string `json:"subcategoria"`
	Incumplimiento string `json:"incumplimiento"`
	Severidad      string `json:"severidad"`
	Etiquetas      string `json:"etiquetas"`
	Fuente         string `json:"fuente"`
	Articulo       string `json:"articulo"`
}

func (r *NormaRepoRequest) apply(n *datastore.NormaRepo) error {
	if r.Titulo != "" {
		n.Titulo = r.Titulo
	}
	if r.Severidad != "" {
		s := datastore.Severity(strings.ToUpper(r.Severidad))
		if !s.Valid() {
			return echo.NewHTTPError(http.StatusBadRequest, "severidad inválida")
		}
		n.Severidad = s
	}
	n.Codigo = r.Codigo
	n.Descripcion = r.Descripcion
	n.Categoria = r.Categoria
	n.Subcategoria = r.Subcategoria
	n.Incumplimiento = r.Incumplimiento
	n.Etiquetas = r.Etiquetas
	n.Fuente = r.Fuente
	n.Articulo = r.Articulo
	return nil
}

// CreateNormaRepo adds one catalog entry.
func (c *Controller) CreateNormaRepo(ctx echo.Context) error {
	var req NormaRepoRequest
	if err := ctx.Bind(&req); err != nil {
		return c.HandleError(ctx, err, "cuerpo de petición inválido", http.StatusBadRequest)
	}
	if req.Titulo == "" {
		return c.HandleError(ctx, nil, "titulo es obligatorio", http.StatusBadRequest)
	}

	norma := datastore.NormaRepo{Severidad: datastore.SeverityLeve}
	if err := req.apply(&norma); err != nil {
		return c.HandleError(ctx, err, "severidad inválida", http.StatusBadRequest)
	}
	if err := c.DS.SaveNormaRepo(&norma); err != nil {
		return c.handleDSError(ctx, err, "norma")
	}
	return ctx.JSON(http.StatusCreated, norma)
}

// UpdateNormaRepo updates one catalog entry.
func (c *Controller) UpdateNormaRepo(ctx echo.Context) error {
	id, err := idParam(ctx, "id")
	if err != nil {
		return c.HandleError(ctx, err, "id de norma inválido", http.StatusBadRequest)
	}
	norma, err := c.DS.GetNormaRepo(id)
	if err != nil {
		return c.handleDSError(ctx, err, "norma")
	}

	var req NormaRepoRequest
	if err := ctx.Bind(&req); err != nil {
		return c.HandleError(ctx, err, "cuerpo de petición inválido", http.StatusBadRequest)
	}
	if err := req.apply(&norma); err != nil {
		return c.HandleError(ctx, err, "severidad inválida", http.StatusBadRequest)
	}
	if err := c.DS.UpdateNormaRepo(&norma); err != nil {
		return c.handleDSError(ctx, err, "norma")
	}
	return ctx.JSON(http.StatusOK, norma)
}

// DeleteNormaRepo removes a catalog entry and every link pointing at it.
func (c *Controller) DeleteNormaRepo(ctx echo.Context) error {
	id, err := idParam(ctx, "id")
	if err != nil {
		return c.HandleError(ctx, err, "id de norma inválido", http.StatusBadRequest)
	}
	if err := c.DS.DeleteNormaRepo(id); err != nil {
		return c.handleDSError(ctx, err, "norma")
	}
	return ctx.NoContent(http.StatusNoContent)
}

// ImportNormasRepo ingests an uploaded .xlsx or .csv file into the catalog.
// Rows are processed best-effort; the response reports created, updated and
// failed counts.
func (c *Controller) ImportNormasRepo(ctx echo.Context) error {
	fh, err := ctx.FormFile("file")
	if err != nil {
		return c.HandleError(ctx, err, "se requiere el archivo 'file'", http.StatusBadRequest)
	}
	src, err := fh.Open()
	if err != nil {
		return c.HandleError(ctx, err, "no se pudo leer el archivo", http.StatusBadRequest)
	}
	defer src.Close()

	summary, err := c.importer.ImportFile(fh.Filename, src)
	if err != nil {
		return c.HandleError(ctx, err, "no se pudo importar el archivo", http.StatusBadRequest)
	}

	if c.Metrics != nil {
		c.Metrics.ImportRows.WithLabelValues("created").Add(float64(summary.Created))
		c.Metrics.ImportRows.WithLabelValues("updated").Add(float64(summary.Updated))
		c.Metrics.ImportRows.WithLabelValues("error").Add(float64(summary.Errors))
	}

	return ctx.JSON(http.StatusOK, map[string]any{
		"ok":      true,
		"created": summary.Created,
		"updated": summary.Updated,
		"errors":  summary.Errors,
		"total":   summary.Total,
	})
}

// GetProyectoNormas lists the catalog entries scoped to a project.
func (c *Controller) GetProyectoNormas(ctx echo.Context) error {
	id, err := idParam(ctx, "id")
	if err != nil {
		return c.HandleError(ctx, err, "id de proyecto inválido", http.StatusBadRequest)
	}
	if _, err := c.DS.GetProyecto(id); err != nil {
		return c.handleDSError(ctx, err, "proyecto")
	}
	normas, err := c.DS.GetNormasForProyecto(id)
	if err != nil {
		return c.handleDSError(ctx, err, "normas")
	}
	return ctx.JSON(http.StatusOK, map[string]any{"items": normas})
}

// AttachProyectoNorma scopes a catalog entry to a project. Idempotent.
func (c *Controller) AttachProyectoNorma(ctx echo.Context) error {
	id, err := idParam(ctx, "id")
	if err != nil {
		return c.HandleError(ctx, err, "id de proyecto inválido", http.StatusBadRequest)
	}
	if _, err := c.DS.GetProyecto(id); err != nil {
		return c.handleDSError(ctx, err, "proyecto")
	}

	var req NormaAttachRequest
	if err := ctx.Bind(&req); err != nil {
		return c.HandleError(ctx, err, "cuerpo de petición inválido", http.StatusBadRequest)
	}
	if req.NormaRepoID == 0 {
		return c.HandleError(ctx, nil, "normaRepoId es obligatorio", http.StatusBadRequest)
	}
	if _, err := c.DS.GetNormaRepo(req.NormaRepoID); err != nil {
		return c.handleDSError(ctx, err, "norma")
	}
	if err := c.DS.AttachNormaToProyecto(id, req.NormaRepoID); err != nil {
		return c.handleDSError(ctx, err, "norma")
	}
	return ctx.JSON(http.StatusCreated, map[string]any{"ok": true})
}

// DetachProyectoNorma removes a project-level catalog scoping. Idempotent.
func (c *Controller) DetachProyectoNorma(ctx echo.Context) error {
	id, err := idParam(ctx, "id")
	if err != nil {
		return c.HandleError(ctx, err, "id de proyecto inválido", http.StatusBadRequest)
	}
	normaRepoID, err := idParam(ctx, "normaRepoId")
	if err != nil {
		return c.HandleError(ctx, err, "id de norma inválido", http.StatusBadRequest)
	}
	if err := c.DS.DetachNormaFromProyecto(id, normaRepoID); err != nil {
		return c.handleDSError(ctx, err, "norma")
	}
	return ctx.NoContent(http.StatusNoContent)
}

// GetTareaNormas lists the catalog entries scoped to a task.
func (c *Controller) GetTareaNormas(ctx echo.Context) error {
	id, err := idParam(ctx, "id")
	if err != nil {
		return c.HandleError(ctx, err, "id de tarea inválido", http.StatusBadRequest)
	}
	if _, err := c.DS.GetTarea(id); err != nil {
		return c.handleDSError(ctx, err, "tarea")
	}
	normas, err := c.DS.GetNormasForTarea(id)
	if err != nil {
		return c.handleDSError(ctx, err, "normas")
	}
	return ctx.JSON(http.StatusOK, map[string]any{"items": normas})
}

// AttachTareaNorma scopes a catalog entry to a task. Idempotent.
func (c *Controller) AttachTareaNorma(ctx echo.Context) error {
	id, err := idParam(ctx, "id")
	if err != nil {
		return c.HandleError(ctx, err, "id de tarea inválido", http.StatusBadRequest)
	}
	if _, err := c.DS.GetTarea(id); err != nil {
		return c.handleDSError(ctx, err, "tarea")
	}

	var req NormaAttachRequest
	if err := ctx.Bind(&req); err != nil {
		return c.HandleError(ctx, err, "cuerpo de petición inválido", http.StatusBadRequest)
	}
	if req.NormaRepoID == 0 {
		return c.HandleError(ctx, nil, "normaRepoId es obligatorio", http.StatusBadRequest)
	}
	if _, err := c.DS.GetNormaRepo(req.NormaRepoID); err != nil {
		return c.handleDSError(ctx, err, "norma")
	}
	if err := c.DS.AttachNormaToTarea(id, req.NormaRepoID); err != nil {
		return c.handleDSError(ctx, err, "norma")
	}
	return ctx.JSON(http.StatusCreated, map[string]any{"ok": true})
}

// DetachTareaNorma removes a task-level catalog scoping. Idempotent.
func (c *Controller) DetachTareaNorma(ctx echo.Context) error {
	id, err := idParam(ctx, "id")
	if err != nil {
		return c.HandleError(ctx, err, "id de tarea inválido", http.StatusBadRequest)
	}
	normaRepoID, err := idParam(ctx, "normaRepoId")
	if err != nil {
		return c.HandleError(ctx, err, "id de norma inválido", http.StatusBadRequest)
	}
	if err := c.DS.DetachNormaFromTarea(id, normaRepoID); err != nil {
		return c.handleDSError(ctx, err, "norma")
	}
	return ctx.NoContent(http.StatusNoContent)
}
