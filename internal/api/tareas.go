// tareas.go: phase, task and comment endpoints.
package api

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/obralens/obralens/internal/datastore"
)

func (c *Controller) initTareaRoutes() {
	c.Group.GET("/proyectos/:id/fases", c.GetFases)
	c.Group.GET("/fases/:id/tareas", c.GetTareas)
	c.Group.GET("/tareas/:id", c.GetTarea)
	c.Group.GET("/tareas/:id/comentarios", c.GetComentarios)

	fases := c.Group.Group("", c.authMiddleware)
	fases.POST("/proyectos/:id/fases", c.CreateFase)
	fases.PUT("/fases/:id", c.UpdateFase)
	fases.DELETE("/fases/:id", c.DeleteFase)
	fases.POST("/fases/:id/tareas", c.CreateTarea)
	fases.PUT("/tareas/:id", c.UpdateTarea)
	fases.DELETE("/tareas/:id", c.DeleteTarea)
	fases.POST("/tareas/:id/comentarios", c.CreateComentario)
	fases.DELETE("/comentarios/:id", c.DeleteComentario)
}

// FaseRequest is the create/update payload for a phase.
type FaseRequest struct {
	Nombre string `json:"nombre"`
	Orden  int    `json:"orden"`
}

// TareaRequest is the create/update payload for a task.
type TareaRequest struct {
	Nombre      string `json:"nombre"`
	Descripcion string `json:"descripcion"`
	Estado      string `json:"estado"`
	AsignadoA   *uint  `json:"asignadoA"`
}

// ComentarioRequest is the payload for a new task comment.
type ComentarioRequest struct {
	Texto string `json:"texto"`
}

func validEstado(estado string) bool {
	switch estado {
	case datastore.TareaPendiente, datastore.TareaEnProgreso, datastore.TareaCompletada:
		return true
	}
	return false
}

// GetFases lists a project's phases in order.
func (c *Controller) GetFases(ctx echo.Context) error {
	proyectoID, err := idParam(ctx, "id")
	if err != nil {
		return c.HandleError(ctx, err, "id de proyecto inválido", http.StatusBadRequest)
	}
	fases, err := c.DS.GetFases(proyectoID)
	if err != nil {
		return c.handleDSError(ctx, err, "fases")
	}
	return ctx.JSON(http.StatusOK, map[string]any{"items": fases})
}

// CreateFase adds a phase to a project.
func (c *Controller) CreateFase(ctx echo.Context) error {
	proyectoID, err := idParam(ctx, "id")
	if err != nil {
		return c.HandleError(ctx, err, "id de proyecto inválido", http.StatusBadRequest)
	}
	if _, err := c.DS.GetProyecto(proyectoID); err != nil {
		return c.handleDSError(ctx, err, "proyecto")
	}

	var req FaseRequest
	if err := ctx.Bind(&req); err != nil {
		return c.HandleError(ctx, err, "cuerpo de petición inválido", http.StatusBadRequest)
	}
	if req.Nombre == "" {
		return c.HandleError(ctx, nil, "nombre es obligatorio", http.StatusBadRequest)
	}

	fase := datastore.Fase{ProyectoID: proyectoID, Nombre: req.Nombre, Orden: req.Orden}
	if err := c.DS.SaveFase(&fase); err != nil {
		return c.handleDSError(ctx, err, "fase")
	}
	return ctx.JSON(http.StatusCreated, fase)
}

// UpdateFase updates a phase's name or position.
func (c *Controller) UpdateFase(ctx echo.Context) error {
	id, err := idParam(ctx, "id")
	if err != nil {
		return c.HandleError(ctx, err, "id de fase inválido", http.StatusBadRequest)
	}
	fase, err := c.DS.GetFase(id)
	if err != nil {
		return c.handleDSError(ctx, err, "fase")
	}

	var req FaseRequest
	if err := ctx.Bind(&req); err != nil {
		return c.HandleError(ctx, err, "cuerpo de petición inválido", http.StatusBadRequest)
	}
	if req.Nombre != "" {
		fase.Nombre = req.Nombre
	}
	fase.Orden = req.Orden
	fase.Tareas = nil

	if err := c.DS.UpdateFase(&fase); err != nil {
		return c.handleDSError(ctx, err, "fase")
	}
	return ctx.JSON(http.StatusOK, fase)
}

// DeleteFase removes a phase and its tasks.
func (c *Controller) DeleteFase(ctx echo.Context) error {
	id, err := idParam(ctx, "id")
	if err != nil {
		return c.HandleError(ctx, err, "id de fase inválido", http.StatusBadRequest)
	}
	if err := c.DS.DeleteFase(id); err != nil {
		return c.handleDSError(ctx, err, "fase")
	}
	return ctx.NoContent(http.StatusNoContent)
}

// GetTareas lists a phase's tasks.
func (c *Controller) GetTareas(ctx echo.Context) error {
	faseID, err := idParam(ctx, "id")
	if err != nil {
		return c.HandleError(ctx, err, "id de fase inválido", http.StatusBadRequest)
	}
	tareas, err := c.DS.GetTareas(faseID)
	if err != nil {
		return c.handleDSError(ctx, err, "tareas")
	}
	return ctx.JSON(http.StatusOK, map[string]any{"items": tareas})
}

// GetTarea returns one task with its comments.
func (c *Controller) GetTarea(ctx echo.Context) error {
	id, err := idParam(ctx, "id")
	if err != nil {
		return c.HandleError(ctx, err, "id de tarea inválido", http.StatusBadRequest)
	}
	tarea, err := c.DS.GetTarea(id)
	if err != nil {
		return c.handleDSError(ctx, err, "tarea")
	}
	return ctx.JSON(http.StatusOK, tarea)
}

// CreateTarea adds a task to a phase.
func (c *Controller) CreateTarea(ctx echo.Context) error {
	faseID, err := idParam(ctx, "id")
	if err != nil {
		return c.HandleError(ctx, err, "id de fase inválido", http.StatusBadRequest)
	}
	if _, err := c.DS.GetFase(faseID); err != nil {
		return c.handleDSError(ctx, err, "fase")
	}

	var req TareaRequest
	if err := ctx.Bind(&req); err != nil {
		return c.HandleError(ctx, err, "cuerpo de petición inválido", http.StatusBadRequest)
	}
	if req.Nombre == "" {
		return c.HandleError(ctx, nil, "nombre es obligatorio", http.StatusBadRequest)
	}
	if req.Estado == "" {
		req.Estado = datastore.TareaPendiente
	}
	if !validEstado(req.Estado) {
		return c.HandleError(ctx, nil, "estado inválido", http.StatusBadRequest)
	}

	tarea := datastore.Tarea{
		FaseID:      faseID,
		Nombre:      req.Nombre,
		Descripcion: req.Descripcion,
		Estado:      req.Estado,
		AsignadoA:   req.AsignadoA,
	}
	if err := c.DS.SaveTarea(&tarea); err != nil {
		return c.handleDSError(ctx, err, "tarea")
	}
	return ctx.JSON(http.StatusCreated, tarea)
}

// UpdateTarea updates a task.
func (c *Controller) UpdateTarea(ctx echo.Context) error {
	id, err := idParam(ctx, "id")
	if err != nil {
		return c.HandleError(ctx, err, "id de tarea inválido", http.StatusBadRequest)
	}
	tarea, err := c.DS.GetTarea(id)
	if err != nil {
		return c.handleDSError(ctx, err, "tarea")
	}

	var req TareaRequest
	if err := ctx.Bind(&req); err != nil {
		return c.HandleError(ctx, err, "cuerpo de petición inválido", http.StatusBadRequest)
	}
	if req.Nombre != "" {
		tarea.Nombre = req.Nombre
	}
	if req.Estado != "" {
		if !validEstado(req.Estado) {
			return c.HandleError(ctx, nil, "estado inválido", http.StatusBadRequest)
		}
		tarea.Estado = req.Estado
	}
	tarea.Descripcion = req.Descripcion
	tarea.AsignadoA = req.AsignadoA
	tarea.Comentarios = nil

	if err := c.DS.UpdateTarea(&tarea); err != nil {
		return c.handleDSError(ctx, err, "tarea")
	}
	return ctx.JSON(http.StatusOK, tarea)
}

// DeleteTarea removes a task and its comments.
func (c *Controller) DeleteTarea(ctx echo.Context) error {
	id, err := idParam(ctx, "id")
	if err != nil {
		return c.HandleError(ctx, err, "id de tarea inválido", http.StatusBadRequest)
	}
	if err := c.DS.DeleteTarea(id); err != nil {
		return c.handleDSError(ctx, err, "tarea")
	}
	return ctx.NoContent(http.StatusNoContent)
}

// GetComentarios lists a task's comments.
func (c *Controller) GetComentarios(ctx echo.Context) error {
	tareaID, err := idParam(ctx, "id")
	if err != nil {
		return c.HandleError(ctx, err, "id de tarea inválido", http.StatusBadRequest)
	}
	comentarios, err := c.DS.GetComentarios(tareaID)
	if err != nil {
		return c.handleDSError(ctx, err, "comentarios")
	}
	return ctx.JSON(http.StatusOK, map[string]any{"items": comentarios})
}

// CreateComentario adds a comment to a task.
func (c *Controller) CreateComentario(ctx echo.Context) error {
	tareaID, err := idParam(ctx, "id")
	if err != nil {
		return c.HandleError(ctx, err, "id de tarea inválido", http.StatusBadRequest)
	}
	if _, err := c.DS.GetTarea(tareaID); err != nil {
		return c.handleDSError(ctx, err, "tarea")
	}

	var req ComentarioRequest
	if err := ctx.Bind(&req); err != nil {
		return c.HandleError(ctx, err, "cuerpo de petición inválido", http.StatusBadRequest)
	}
	if req.Texto == "" {
		return c.HandleError(ctx, nil, "texto es obligatorio", http.StatusBadRequest)
	}

	comentario := datastore.Comentario{
		TareaID:   tareaID,
		UsuarioID: currentUserID(ctx),
		Texto:     req.Texto,
	}
	if err := c.DS.SaveComentario(&comentario); err != nil {
		return c.handleDSError(ctx, err, "comentario")
	}
	return ctx.JSON(http.StatusCreated, comentario)
}

// DeleteComentario removes a comment.
func (c *Controller) DeleteComentario(ctx echo.Context) error {
	id, err := idParam(ctx, "id")
	if err != nil {
		return c.HandleError(ctx, err, "id de comentario inválido", http.StatusBadRequest)
	}
	if err := c.DS.DeleteComentario(id); err != nil {
		return c.handleDSError(ctx, err, "comentario")
	}
	return ctx.NoContent(http.StatusNoContent)
}
