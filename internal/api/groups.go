// groups.go: derived evidence groups and their catalog links. A group is
// every evidence row of a project sharing the same (task, normalized
// comment) key; nothing is stored for the group itself.
package api

import (
	"net/http"
	"net/url"

	"github.com/labstack/echo/v4"

	"github.com/obralens/obralens/internal/datastore"
	"github.com/obralens/obralens/internal/grouping"
)

func (c *Controller) initGroupRoutes() {
	c.Group.GET("/evidencias/groups", c.GetGroups)
	c.Group.GET("/evidencias/groups/:groupKey/normas-repo", c.GetGroupNormas)

	protected := c.Group.Group("/evidencias/groups", c.authMiddleware)
	protected.POST("/:groupKey/normas-repo", c.AttachGroupNorma)
	protected.DELETE("/:groupKey/normas-repo/:normaRepoId", c.DetachGroupNorma)
	protected.DELETE("/:groupKey", c.DeleteGroup)
}

const maxGroupImages = 3

// GroupResponse is one derived group in the project listing.
type GroupResponse struct {
	GroupKey     string             `json:"groupKey"`
	TareaID      *uint              `json:"tareaId,omitempty"`
	TareaNombre  string             `json:"tareaNombre,omitempty"`
	Comentario   string             `json:"comentario"`
	Count        int                `json:"count"`
	MaxSeveridad datastore.Severity `json:"maxSeveridad"`
	NormasCount  int                `json:"normasCount"`
	Imagenes     []string           `json:"imagenes"`
	UltimaFecha  string             `json:"ultimaFecha"`
}

// groupKeyParam decodes the :groupKey path parameter. The key contains a
// '|' separator, so clients URL-encode it.
func groupKeyParam(ctx echo.Context) string {
	raw := ctx.Param("groupKey")
	if decoded, err := url.PathUnescape(raw); err == nil {
		return decoded
	}
	return raw
}

// GetGroups lists a project's derived groups, most recent evidence first.
// Evidence tagged for institutional use is left out. Results are cached
// briefly and the cache is flushed on any evidence write.
func (c *Controller) GetGroups(ctx echo.Context) error {
	proyectoID, err := queryID(ctx, "proyectoId")
	if err != nil || proyectoID == 0 {
		return c.HandleError(ctx, err, "proyectoId es obligatorio", http.StatusBadRequest)
	}

	var tareaID *uint
	if id, err := queryID(ctx, "tareaId"); err != nil {
		return c.HandleError(ctx, err, "tareaId inválido", http.StatusBadRequest)
	} else if id != 0 {
		tareaID = &id
	}

	cacheKey := "groups:" + ctx.QueryParam("proyectoId") + ":" + ctx.QueryParam("tareaId")
	if cached, found := c.groupCache.Get(cacheKey); found {
		return ctx.JSON(http.StatusOK, cached)
	}

	evidencias, err := c.DS.GetEvidencias(proyectoID, tareaID)
	if err != nil {
		return c.handleDSError(ctx, err, "evidencias")
	}

	groups := c.buildGroups(evidencias)

	response := map[string]any{"items": groups}
	c.groupCache.SetDefault(cacheKey, response)
	return ctx.JSON(http.StatusOK, response)
}

// buildGroups buckets evidence by group key preserving recency order. The
// input must already be sorted newest first.
func (c *Controller) buildGroups(evidencias []datastore.Evidencia) []GroupResponse {
	var order []string
	byKey := make(map[string][]datastore.Evidencia)
	for i := range evidencias {
		e := &evidencias[i]
		if grouping.HasInstitutionalTag(e.Comentario) {
			continue
		}
		key := e.GroupKey
		if key == "" {
			key = grouping.KeyForTask(e.TareaID, e.Comentario)
		}
		if _, seen := byKey[key]; !seen {
			order = append(order, key)
		}
		byKey[key] = append(byKey[key], *e)
	}

	var allIDs []uint
	for _, members := range byKey {
		for i := range members {
			allIDs = append(allIDs, members[i].ID)
		}
	}
	normaCounts := c.normaCountsByGroup(byKey, allIDs)

	tareaNames := make(map[uint]string)

	groups := make([]GroupResponse, 0, len(order))
	for _, key := range order {
		members := byKey[key]
		newest := members[0]

		g := GroupResponse{
			GroupKey:     key,
			TareaID:      newest.TareaID,
			Comentario:   grouping.NormalizeComment(newest.Comentario),
			Count:        len(members),
			MaxSeveridad: datastore.SeverityOK,
			NormasCount:  normaCounts[key],
			Imagenes:     []string{},
			UltimaFecha:  newest.CreatedAt.Format("2006-01-02T15:04:05Z07:00"),
		}
		for i := range members {
			g.MaxSeveridad = datastore.MaxSeverity(g.MaxSeveridad, members[i].Categoria)
			if len(g.Imagenes) < maxGroupImages {
				g.Imagenes = append(g.Imagenes, "/uploads/"+members[i].Archivo)
			}
		}
		if newest.TareaID != nil {
			g.TareaNombre = c.tareaName(*newest.TareaID, tareaNames)
		}
		groups = append(groups, g)
	}
	return groups
}

// normaCountsByGroup computes the distinct linked norma count per group in
// one batch query over all member ids.
func (c *Controller) normaCountsByGroup(byKey map[string][]datastore.Evidencia, allIDs []uint) map[string]int {
	counts := make(map[string]int, len(byKey))
	if len(allIDs) == 0 {
		return counts
	}

	links, err := c.DS.GetLinksForEvidencias(allIDs)
	if err != nil {
		c.apiLogger.Warn("failed to load links for group listing", "error", err)
		return counts
	}

	linksByEvidencia := make(map[uint][]uint)
	for i := range links {
		linksByEvidencia[links[i].EvidenciaID] = append(linksByEvidencia[links[i].EvidenciaID], links[i].NormaRepoID)
	}

	for key, members := range byKey {
		distinct := make(map[uint]struct{})
		for i := range members {
			for _, normaID := range linksByEvidencia[members[i].ID] {
				distinct[normaID] = struct{}{}
			}
		}
		counts[key] = len(distinct)
	}
	return counts
}

func (c *Controller) tareaName(id uint, cache map[uint]string) string {
	if name, ok := cache[id]; ok {
		return name
	}
	tarea, err := c.DS.GetTarea(id)
	if err != nil {
		cache[id] = ""
		return ""
	}
	cache[id] = tarea.Nombre
	return tarea.Nombre
}

// groupMembers resolves a group key to its evidence rows. When ok is
// false the error response has already been written and the caller must
// stop without touching the response again.
func (c *Controller) groupMembers(ctx echo.Context, groupKey string) ([]datastore.Evidencia, bool) {
	evidencias, err := c.DS.GetEvidenciasByGroupKey(groupKey)
	if err != nil {
		c.handleDSError(ctx, err, "grupo")
		return nil, false
	}
	if len(evidencias) == 0 {
		c.HandleError(ctx, nil, "grupo no encontrado", http.StatusNotFound)
		return nil, false
	}
	return evidencias, true
}

// GetGroupNormas lists the catalog entries linked to any member of the
// group. Duplicate links across members collapse into one entry carrying
// the highest classification seen.
func (c *Controller) GetGroupNormas(ctx echo.Context) error {
	groupKey := groupKeyParam(ctx)
	evidencias, ok := c.groupMembers(ctx, groupKey)
	if !ok {
		return nil
	}

	ids := make([]uint, len(evidencias))
	for i := range evidencias {
		ids[i] = evidencias[i].ID
	}
	links, err := c.DS.GetNormasForEvidencias(ids)
	if err != nil {
		return c.handleDSError(ctx, err, "normas")
	}

	var order []uint
	merged := make(map[uint]datastore.NormaLink)
	for i := range links {
		link := links[i]
		existing, seen := merged[link.NormaRepo.ID]
		if !seen {
			order = append(order, link.NormaRepo.ID)
			merged[link.NormaRepo.ID] = link
			continue
		}
		existing.Clasificacion = datastore.MaxSeverity(existing.Clasificacion, link.Clasificacion)
		if existing.Observacion == "" {
			existing.Observacion = link.Observacion
		}
		merged[link.NormaRepo.ID] = existing
	}

	items := make([]datastore.NormaLink, 0, len(order))
	for _, id := range order {
		items = append(items, merged[id])
	}
	return ctx.JSON(http.StatusOK, map[string]any{"items": items})
}

// AttachGroupNorma links a catalog entry to every member of the group. Each
// member gets its own link row; already linked members are updated, not
// duplicated.
func (c *Controller) AttachGroupNorma(ctx echo.Context) error {
	groupKey := groupKeyParam(ctx)
	evidencias, ok := c.groupMembers(ctx, groupKey)
	if !ok {
		return nil
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
	setObservacion := req.Observacion != nil

	linked := 0
	for i := range evidencias {
		link := datastore.EvidenciaNorma{
			EvidenciaID:   evidencias[i].ID,
			NormaRepoID:   req.NormaRepoID,
			Clasificacion: datastore.SeverityLeve,
		}
		if setClasificacion {
			link.Clasificacion = clasificacion
		}
		if setObservacion {
			link.Observacion = *req.Observacion
		}
		if err := c.DS.UpsertEvidenciaNorma(&link, setClasificacion, setObservacion); err != nil {
			c.apiLogger.Warn("failed to link norma to group member",
				"evidencia", evidencias[i].ID, "norma", req.NormaRepoID, "error", err)
			continue
		}
		linked++
	}

	if linked == 0 {
		return c.HandleError(ctx, nil, "no se pudo vincular la norma", http.StatusInternalServerError)
	}

	c.invalidateGroupCache()
	return ctx.JSON(http.StatusCreated, map[string]any{"ok": true, "linked": linked})
}

// DetachGroupNorma removes the catalog link from every member of the
// group. Members without the link are skipped; repeating the call still
// returns 204 as long as the group exists.
func (c *Controller) DetachGroupNorma(ctx echo.Context) error {
	groupKey := groupKeyParam(ctx)
	evidencias, ok := c.groupMembers(ctx, groupKey)
	if !ok {
		return nil
	}
	normaRepoID, err := idParam(ctx, "normaRepoId")
	if err != nil {
		return c.HandleError(ctx, err, "id de norma inválido", http.StatusBadRequest)
	}

	for i := range evidencias {
		if err := c.DS.DeleteEvidenciaNorma(evidencias[i].ID, normaRepoID); err != nil {
			c.apiLogger.Warn("failed to unlink norma from group member",
				"evidencia", evidencias[i].ID, "norma", normaRepoID, "error", err)
		}
	}

	c.invalidateGroupCache()
	return ctx.NoContent(http.StatusNoContent)
}

// DeleteGroup removes every member of the group: links first, then rows,
// then best-effort the image files.
func (c *Controller) DeleteGroup(ctx echo.Context) error {
	groupKey := groupKeyParam(ctx)
	evidencias, ok := c.groupMembers(ctx, groupKey)
	if !ok {
		return nil
	}

	for i := range evidencias {
		if err := c.DS.DeleteEvidenciaNormas(evidencias[i].ID); err != nil {
			c.apiLogger.Warn("failed to delete links for group member",
				"evidencia", evidencias[i].ID, "error", err)
		}
		if err := c.DS.DeleteEvidencia(evidencias[i].ID); err != nil {
			c.apiLogger.Warn("failed to delete group member",
				"evidencia", evidencias[i].ID, "error", err)
			continue
		}
		c.Media.RemoveLogged(evidencias[i].Archivo)
	}

	c.invalidateGroupCache()
	return ctx.NoContent(http.StatusNoContent)
}
