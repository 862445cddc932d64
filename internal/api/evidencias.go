// evidencias.go: photo evidence upload, listing, edits and norma links.
package api

import (
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/obralens/obralens/internal/datastore"
	"github.com/obralens/obralens/internal/errors"
)

func (c *Controller) initEvidenciaRoutes() {
	c.Group.GET("/evidencias", c.GetEvidencias)
	c.Group.GET("/evidencias/:id", c.GetEvidencia)
	c.Group.GET("/evidencias/:id/normas-repo", c.GetEvidenciaNormas)

	protected := c.Group.Group("/evidencias", c.authMiddleware)
	protected.POST("", c.UploadEvidencias)
	protected.PATCH("/:id", c.UpdateEvidencia)
	protected.DELETE("/:id", c.DeleteEvidencia)
	protected.POST("/:id/normas-repo", c.AttachEvidenciaNorma)
	protected.DELETE("/:id/normas-repo/:normaRepoId", c.DetachEvidenciaNorma)
}

// EvidenciaResponse is one evidence row with its public file URL.
type EvidenciaResponse struct {
	datastore.Evidencia
	URL string `json:"url"`
}

func (c *Controller) evidenciaResponse(e *datastore.Evidencia) EvidenciaResponse {
	return EvidenciaResponse{Evidencia: *e, URL: "/uploads/" + e.Archivo}
}

// allowedEvidenceMime accepts the image formats the report renderer can embed.
func allowedEvidenceMime(mimeType string) bool {
	switch strings.ToLower(mimeType) {
	case "image/jpeg", "image/png", "image/gif", "image/webp":
		return true
	}
	return false
}

// GetEvidencias lists evidence filtered by project and optionally task,
// newest first.
func (c *Controller) GetEvidencias(ctx echo.Context) error {
	proyectoID, err := queryID(ctx, "proyectoId")
	if err != nil || proyectoID == 0 {
		return c.HandleError(ctx, err, "proyectoId es obligatorio", http.StatusBadRequest)
	}

	var tareaID *uint
	if raw := ctx.QueryParam("tareaId"); raw != "" {
		id, err := strconv.ParseUint(raw, 10, 32)
		if err != nil {
			return c.HandleError(ctx, err, "tareaId inválido", http.StatusBadRequest)
		}
		t := uint(id)
		tareaID = &t
	}

	evidencias, err := c.DS.GetEvidencias(proyectoID, tareaID)
	if err != nil {
		return c.handleDSError(ctx, err, "evidencias")
	}

	items := make([]EvidenciaResponse, 0, len(evidencias))
	for i := range evidencias {
		items = append(items, c.evidenciaResponse(&evidencias[i]))
	}
	return ctx.JSON(http.StatusOK, map[string]any{"items": items})
}

// GetEvidencia returns one evidence row.
func (c *Controller) GetEvidencia(ctx echo.Context) error {
	id, err := idParam(ctx, "id")
	if err != nil {
		return c.HandleError(ctx, err, "id de evidencia inválido", http.StatusBadRequest)
	}
	e, err := c.DS.GetEvidencia(id)
	if err != nil {
		return c.handleDSError(ctx, err, "evidencia")
	}
	return ctx.JSON(http.StatusOK, c.evidenciaResponse(&e))
}

// UploadEvidencias accepts a multipart form with either a single "file"
// part or a "files[]" batch, all sharing the form's metadata fields. The
// batch is best-effort: a failed file is reported but does not abort the
// rest.
func (c *Controller) UploadEvidencias(ctx echo.Context) error {
	form, err := ctx.MultipartForm()
	if err != nil {
		return c.HandleError(ctx, err, "formulario multipart inválido", http.StatusBadRequest)
	}

	proyectoID, err := formID(ctx, "proyectoId")
	if err != nil || proyectoID == 0 {
		return c.HandleError(ctx, err, "proyectoId es obligatorio", http.StatusBadRequest)
	}
	if _, err := c.DS.GetProyecto(proyectoID); err != nil {
		return c.handleDSError(ctx, err, "proyecto")
	}

	var tareaID *uint
	if raw := ctx.FormValue("tareaId"); raw != "" {
		id, err := strconv.ParseUint(raw, 10, 32)
		if err != nil {
			return c.HandleError(ctx, err, "tareaId inválido", http.StatusBadRequest)
		}
		t := uint(id)
		tareaID = &t
	}

	categoria := datastore.Severity(strings.ToUpper(ctx.FormValue("categoria")))
	if categoria == "" {
		categoria = datastore.SeverityOK
	}
	if !categoria.Valid() {
		return c.HandleError(ctx, nil, "categoria inválida", http.StatusBadRequest)
	}
	comentario := ctx.FormValue("comentario")

	files := form.File["files[]"]
	single := false
	if len(files) == 0 {
		files = form.File["file"]
		single = true
	}
	if len(files) == 0 {
		return c.HandleError(ctx, nil, "se requiere al menos un archivo", http.StatusBadRequest)
	}

	maxBytes := int64(c.Settings.Uploads.MaxSizeMB) * 1024 * 1024

	var saved []EvidenciaResponse
	var failed []string
	for _, fh := range files {
		e, err := c.saveOneEvidencia(ctx, fh, proyectoID, tareaID, categoria, comentario, maxBytes)
		if err != nil {
			c.apiLogger.Warn("evidence upload rejected",
				"file", fh.Filename, "error", err)
			failed = append(failed, fh.Filename)
			continue
		}
		saved = append(saved, c.evidenciaResponse(e))
	}

	c.invalidateGroupCache()

	if len(saved) == 0 {
		return c.HandleError(ctx, nil, "ningún archivo pudo guardarse", http.StatusBadRequest)
	}
	if single && len(files) == 1 {
		return ctx.JSON(http.StatusCreated, saved[0])
	}
	return ctx.JSON(http.StatusCreated, map[string]any{
		"items":  saved,
		"failed": failed,
	})
}

func (c *Controller) saveOneEvidencia(ctx echo.Context, fh *multipart.FileHeader,
	proyectoID uint, tareaID *uint, categoria datastore.Severity,
	comentario string, maxBytes int64) (*datastore.Evidencia, error) {

	if maxBytes > 0 && fh.Size > maxBytes {
		return nil, errors.ValidationError("archivo demasiado grande")
	}
	mimeType := fh.Header.Get("Content-Type")
	if !allowedEvidenceMime(mimeType) {
		return nil, errors.ValidationError("tipo de archivo no permitido: " + mimeType)
	}

	src, err := fh.Open()
	if err != nil {
		return nil, errors.Wrap(err).Category(errors.CategoryFileIO).Build()
	}
	defer src.Close()

	relPath, size, err := c.Media.Save("evidencias", fh.Filename, src)
	if err != nil {
		return nil, errors.Wrap(err).Category(errors.CategoryFileIO).Build()
	}

	e := datastore.Evidencia{
		ProyectoID: proyectoID,
		TareaID:    tareaID,
		Categoria:  categoria,
		Comentario: comentario,
		Archivo:    relPath,
		MimeType:   mimeType,
		Tamano:     size,
		CreadoPor:  currentUserID(ctx),
	}
	if err := c.DS.SaveEvidencia(&e); err != nil {
		c.Media.RemoveLogged(relPath)
		return nil, err
	}

	if c.Metrics != nil {
		c.Metrics.UploadBytes.Add(float64(size))
	}
	return &e, nil
}

// EvidenciaPatchRequest updates an evidence's category or comment. Nil
// fields are left untouched.
type EvidenciaPatchRequest struct {
	Categoria  *string `json:"categoria"`
	Comentario *string `json:"comentario"`
	TareaID    *uint   `json:"tareaId"`
}

// UpdateEvidencia patches category, comment or task. The group key is
// rederived on save, so edits move the photo between groups.
func (c *Controller) UpdateEvidencia(ctx echo.Context) error {
	id, err := idParam(ctx, "id")
	if err != nil {
		return c.HandleError(ctx, err, "id de evidencia inválido", http.StatusBadRequest)
	}
	e, err := c.DS.GetEvidencia(id)
	if err != nil {
		return c.handleDSError(ctx, err, "evidencia")
	}

	var req EvidenciaPatchRequest
	if err := ctx.Bind(&req); err != nil {
		return c.HandleError(ctx, err, "cuerpo de petición inválido", http.StatusBadRequest)
	}
	if req.Categoria != nil {
		categoria := datastore.Severity(strings.ToUpper(*req.Categoria))
		if !categoria.Valid() {
			return c.HandleError(ctx, nil, "categoria inválida", http.StatusBadRequest)
		}
		e.Categoria = categoria
	}
	if req.Comentario != nil {
		e.Comentario = *req.Comentario
	}
	if req.TareaID != nil {
		if *req.TareaID == 0 {
			e.TareaID = nil
		} else {
			e.TareaID = req.TareaID
		}
	}

	if err := c.DS.UpdateEvidencia(&e); err != nil {
		return c.handleDSError(ctx, err, "evidencia")
	}
	c.invalidateGroupCache()
	return ctx.JSON(http.StatusOK, c.evidenciaResponse(&e))
}

// DeleteEvidencia removes the evidence's links, its row and, best-effort,
// its file.
func (c *Controller) DeleteEvidencia(ctx echo.Context) error {
	id, err := idParam(ctx, "id")
	if err != nil {
		return c.HandleError(ctx, err, "id de evidencia inválido", http.StatusBadRequest)
	}
	e, err := c.DS.GetEvidencia(id)
	if err != nil {
		return c.handleDSError(ctx, err, "evidencia")
	}

	if err := c.DS.DeleteEvidenciaNormas(id); err != nil {
		return c.handleDSError(ctx, err, "evidencia")
	}
	if err := c.DS.DeleteEvidencia(id); err != nil {
		return c.handleDSError(ctx, err, "evidencia")
	}
	c.Media.RemoveLogged(e.Archivo)
	c.invalidateGroupCache()
	return ctx.NoContent(http.StatusNoContent)
}

// GetEvidenciaNormas lists the catalog entries linked to one evidence row.
func (c *Controller) GetEvidenciaNormas(ctx echo.Context) error {
	id, err := idParam(ctx, "id")
	if err != nil {
		return c.HandleError(ctx, err, "id de evidencia inválido", http.StatusBadRequest)
	}
	if _, err := c.DS.GetEvidencia(id); err != nil {
		return c.handleDSError(ctx, err, "evidencia")
	}
	links, err := c.DS.GetNormasForEvidencia(id)
	if err != nil {
		return c.handleDSError(ctx, err, "normas")
	}
	return ctx.JSON(http.StatusOK, map[string]any{"items": links})
}

// NormaAttachRequest links a catalog entry with an optional classification
// and observation. Omitted fields keep the stored value on re-association.
type NormaAttachRequest struct {
	NormaRepoID   uint    `json:"normaRepoId"`
	Clasificacion *string `json:"clasificacion"`
	Observacion   *string `json:"observacion"`
}

func (r *NormaAttachRequest) severity() (datastore.Severity, bool, error) {
	if r.Clasificacion == nil {
		return "", false, nil
	}
	s := datastore.Severity(strings.ToUpper(*r.Clasificacion))
	if !s.Valid() {
		return "", false, errors.ValidationError("clasificacion inválida")
	}
	return s, true, nil
}

// AttachEvidenciaNorma links one catalog entry to one evidence row. A
// repeated attach updates the existing link instead of duplicating it.
func (c *Controller) AttachEvidenciaNorma(ctx echo.Context) error {
	id, err := idParam(ctx, "id")
	if err != nil {
		return c.HandleError(ctx, err, "id de evidencia inválido", http.StatusBadRequest)
	}
	if _, err := c.DS.GetEvidencia(id); err != nil {
		return c.handleDSError(ctx, err, "evidencia")
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

	clasificacion, setClasificacion, err := req.severity()
	if err != nil {
		return c.HandleError(ctx, err, "clasificacion inválida", http.StatusBadRequest)
	}

	link := datastore.EvidenciaNorma{
		EvidenciaID:   id,
		NormaRepoID:   req.NormaRepoID,
		Clasificacion: datastore.SeverityLeve,
	}
	if setClasificacion {
		link.Clasificacion = clasificacion
	}
	setObservacion := req.Observacion != nil
	if setObservacion {
		link.Observacion = *req.Observacion
	}

	if err := c.DS.UpsertEvidenciaNorma(&link, setClasificacion, setObservacion); err != nil {
		return c.handleDSError(ctx, err, "norma")
	}
	c.invalidateGroupCache()

	// Re-read the joined link so the response carries the catalog fields
	// and the stored values an omitted field kept.
	links, err := c.DS.GetNormasForEvidencia(id)
	if err != nil {
		return c.handleDSError(ctx, err, "norma")
	}
	for i := range links {
		if links[i].NormaRepo.ID == req.NormaRepoID {
			return ctx.JSON(http.StatusCreated, links[i])
		}
	}
	return c.HandleError(ctx, nil, "norma no encontrada", http.StatusNotFound)
}

// DetachEvidenciaNorma removes the link. Detaching an absent link still
// returns 204.
func (c *Controller) DetachEvidenciaNorma(ctx echo.Context) error {
	id, err := idParam(ctx, "id")
	if err != nil {
		return c.HandleError(ctx, err, "id de evidencia inválido", http.StatusBadRequest)
	}
	normaRepoID, err := idParam(ctx, "normaRepoId")
	if err != nil {
		return c.HandleError(ctx, err, "id de norma inválido", http.StatusBadRequest)
	}
	if err := c.DS.DeleteEvidenciaNorma(id, normaRepoID); err != nil {
		return c.handleDSError(ctx, err, "norma")
	}
	c.invalidateGroupCache()
	return ctx.NoContent(http.StatusNoContent)
}

// queryID parses an optional positive integer query parameter. Missing
// parameters yield zero, malformed ones an error.
func queryID(ctx echo.Context, name string) (uint, error) {
	raw := ctx.QueryParam(name)
	if raw == "" {
		return 0, nil
	}
	id, err := strconv.ParseUint(raw, 10, 32)
	if err != nil {
		return 0, errors.ValidationError(name + " inválido")
	}
	return uint(id), nil
}

// formID does the same for a multipart form field.
func formID(ctx echo.Context, name string) (uint, error) {
	raw := ctx.FormValue(name)
	if raw == "" {
		return 0, nil
	}
	id, err := strconv.ParseUint(raw, 10, 32)
	if err != nil {
		return 0, errors.ValidationError(name + " inválido")
	}
	return uint(id), nil
}
