// proyectos.go: project CRUD endpoints.
package api

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/obralens/obralens/internal/datastore"
)

func (c *Controller) initProyectoRoutes() {
	c.Group.GET("/proyectos", c.GetProyectos)
	c.Group.GET("/proyectos/:id", c.GetProyecto)

	protected := c.Group.Group("/proyectos", c.authMiddleware)
	protected.POST("", c.CreateProyecto)
	protected.PUT("/:id", c.UpdateProyecto)
	protected.DELETE("/:id", c.DeleteProyecto)
}

// ProyectoRequest is the create/update payload for a project.
type ProyectoRequest struct {
	Nombre      string     `json:"nombre"`
	Descripcion string     `json:"descripcion"`
	Cliente     string     `json:"cliente"`
	Ubicacion   string     `json:"ubicacion"`
	FechaInicio *time.Time `json:"fechaInicio"`
	FechaFin    *time.Time `json:"fechaFin"`
}

// GetProyectos lists every project.
func (c *Controller) GetProyectos(ctx echo.Context) error {
	proyectos, err := c.DS.GetProyectos()
	if err != nil {
		return c.handleDSError(ctx, err, "proyectos")
	}
	return ctx.JSON(http.StatusOK, map[string]any{"items": proyectos})
}

// GetProyecto returns one project with phases and tasks.
func (c *Controller) GetProyecto(ctx echo.Context) error {
	id, err := idParam(ctx, "id")
	if err != nil {
		return c.HandleError(ctx, err, "id de proyecto inválido", http.StatusBadRequest)
	}
	proyecto, err := c.DS.GetProyecto(id)
	if err != nil {
		return c.handleDSError(ctx, err, "proyecto")
	}
	return ctx.JSON(http.StatusOK, proyecto)
}

// CreateProyecto creates a project.
func (c *Controller) CreateProyecto(ctx echo.Context) error {
	var req ProyectoRequest
	if err := ctx.Bind(&req); err != nil {
		return c.HandleError(ctx, err, "cuerpo de petición inválido", http.StatusBadRequest)
	}
	if req.Nombre == "" {
		return c.HandleError(ctx, nil, "nombre es obligatorio", http.StatusBadRequest)
	}

	proyecto := datastore.Proyecto{
		Nombre:      req.Nombre,
		Descripcion: req.Descripcion,
		Cliente:     req.Cliente,
		Ubicacion:   req.Ubicacion,
		FechaInicio: req.FechaInicio,
		FechaFin:    req.FechaFin,
	}
	if err := c.DS.SaveProyecto(&proyecto); err != nil {
		return c.handleDSError(ctx, err, "proyecto")
	}
	return ctx.JSON(http.StatusCreated, proyecto)
}

// UpdateProyecto updates the mutable fields of a project.
func (c *Controller) UpdateProyecto(ctx echo.Context) error {
	id, err := idParam(ctx, "id")
	if err != nil {
		return c.HandleError(ctx, err, "id de proyecto inválido", http.StatusBadRequest)
	}
	proyecto, err := c.DS.GetProyecto(id)
	if err != nil {
		return c.handleDSError(ctx, err, "proyecto")
	}

	var req ProyectoRequest
	if err := ctx.Bind(&req); err != nil {
		return c.HandleError(ctx, err, "cuerpo de petición inválido", http.StatusBadRequest)
	}
	if req.Nombre != "" {
		proyecto.Nombre = req.Nombre
	}
	proyecto.Descripcion = req.Descripcion
	proyecto.Cliente = req.Cliente
	proyecto.Ubicacion = req.Ubicacion
	proyecto.FechaInicio = req.FechaInicio
	proyecto.FechaFin = req.FechaFin
	proyecto.Fases = nil // associations are managed through their own routes

	if err := c.DS.UpdateProyecto(&proyecto); err != nil {
		return c.handleDSError(ctx, err, "proyecto")
	}
	return ctx.JSON(http.StatusOK, proyecto)
}

// DeleteProyecto removes a project, its evidence rows, their links and,
// best-effort, their image files.
func (c *Controller) DeleteProyecto(ctx echo.Context) error {
	id, err := idParam(ctx, "id")
	if err != nil {
		return c.HandleError(ctx, err, "id de proyecto inválido", http.StatusBadRequest)
	}

	evidencias, err := c.DS.GetEvidenciasByProyecto(id)
	if err != nil {
		return c.handleDSError(ctx, err, "proyecto")
	}
	for i := range evidencias {
		if err := c.DS.DeleteEvidenciaNormas(evidencias[i].ID); err != nil {
			c.apiLogger.Warn("failed to delete links for evidence",
				"evidencia", evidencias[i].ID, "error", err)
		}
		if err := c.DS.DeleteEvidencia(evidencias[i].ID); err != nil {
			c.apiLogger.Warn("failed to delete evidence row",
				"evidencia", evidencias[i].ID, "error", err)
			continue
		}
		c.Media.RemoveLogged(evidencias[i].Archivo)
	}

	if err := c.DS.DeleteProyecto(id); err != nil {
		return c.handleDSError(ctx, err, "proyecto")
	}
	c.invalidateGroupCache()
	return ctx.NoContent(http.StatusNoContent)
}
