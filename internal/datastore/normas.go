// normas.go: catalog (normas_repo) queries, filtering and identity resolution.
package datastore

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"gorm.io/gorm"
)

// Text columns the free-text search spans.
var normaSearchColumns = []string{
	"codigo", "titulo", "descripcion", "categoria", "subcategoria",
	"incumplimiento", "etiquetas", "fuente", "articulo",
}

var numericFilterRe = regexp.MustCompile(`^[0-9]+$`)

// GetNormaRepo retrieves one catalog entry.
func (ds *DataStore) GetNormaRepo(id uint) (NormaRepo, error) {
	var n NormaRepo
	if err := ds.DB.First(&n, id).Error; err != nil {
		return NormaRepo{}, fmt.Errorf("getting catalog entry %d: %w", id, err)
	}
	return n, nil
}

// GetNormasRepo lists catalog entries matching the filter and reports the
// total row count before pagination. Free-text search splits into keywords
// that must all match somewhere across the text columns. A purely numeric
// category filter like "3" matches "3" itself and values starting "3.".
func (ds *DataStore) GetNormasRepo(filter NormaFilter) ([]NormaRepo, int64, error) {
	query := ds.DB.Model(&NormaRepo{})

	for _, keyword := range strings.Fields(filter.Search) {
		pattern := "%" + strings.ToLower(keyword) + "%"
		conds := make([]string, 0, len(normaSearchColumns))
		args := make([]any, 0, len(normaSearchColumns))
		for _, col := range normaSearchColumns {
			conds = append(conds, "LOWER("+col+") LIKE ?")
			args = append(args, pattern)
		}
		query = query.Where(strings.Join(conds, " OR "), args...)
	}

	if filter.Categoria != "" {
		if numericFilterRe.MatchString(filter.Categoria) {
			query = query.Where("categoria = ? OR categoria LIKE ?",
				filter.Categoria, filter.Categoria+".%")
		} else {
			query = query.Where("categoria = ?", filter.Categoria)
		}
	}

	if filter.Severidad.Valid() {
		query = query.Where("severidad = ?", filter.Severidad)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("counting catalog entries: %w", err)
	}

	query = query.Order("categoria ASC, titulo ASC")
	if !filter.All {
		limit := filter.Limit
		if limit <= 0 {
			limit = 50
		}
		page := filter.Page
		if page <= 0 {
			page = 1
		}
		query = query.Limit(limit).Offset((page - 1) * limit)
	}

	var normas []NormaRepo
	if err := query.Find(&normas).Error; err != nil {
		return nil, 0, fmt.Errorf("listing catalog entries: %w", err)
	}
	return normas, total, nil
}

// GetNormasRepoByIDs fetches the catalog entries whose ids exist; missing
// ids are silently absent from the result.
func (ds *DataStore) GetNormasRepoByIDs(ids []uint) ([]NormaRepo, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var normas []NormaRepo
	if err := ds.DB.Where("id IN ?", ids).Find(&normas).Error; err != nil {
		return nil, fmt.Errorf("getting catalog entries by ids: %w", err)
	}
	return normas, nil
}

// SaveNormaRepo inserts a new catalog entry.
func (ds *DataStore) SaveNormaRepo(n *NormaRepo) error {
	if err := ds.DB.Create(n).Error; err != nil {
		return fmt.Errorf("saving catalog entry: %w", err)
	}
	return nil
}

// UpdateNormaRepo persists changes to an existing catalog entry.
func (ds *DataStore) UpdateNormaRepo(n *NormaRepo) error {
	if err := ds.DB.Save(n).Error; err != nil {
		return fmt.Errorf("updating catalog entry %d: %w", n.ID, err)
	}
	return nil
}

// DeleteNormaRepo removes a catalog entry and every link referencing it.
func (ds *DataStore) DeleteNormaRepo(id uint) error {
	if err := ds.DB.Where("norma_repo_id = ?", id).Delete(&EvidenciaNorma{}).Error; err != nil {
		return fmt.Errorf("deleting links for catalog entry %d: %w", id, err)
	}
	result := ds.DB.Delete(&NormaRepo{}, id)
	if result.Error != nil {
		return fmt.Errorf("deleting catalog entry %d: %w", id, result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// normalizeMatchText lowers and collapses whitespace for the loose
// (title, source) identity comparison.
func normalizeMatchText(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), " ")
}

// FindNormaRepoMatch resolves the stored identity of an incoming entry, in
// precedence order: exact code match; exact (title, category, subcategory,
// source) match; case/whitespace-insensitive (title, source) match. Returns
// nil when no existing row matches and an insert is warranted.
func (ds *DataStore) FindNormaRepoMatch(n *NormaRepo) (*NormaRepo, error) {
	if n.Codigo != "" {
		var existing NormaRepo
		err := ds.DB.Where("codigo = ?", n.Codigo).First(&existing).Error
		switch {
		case err == nil:
			return &existing, nil
		case !errors.Is(err, gorm.ErrRecordNotFound):
			return nil, fmt.Errorf("matching catalog entry by code: %w", err)
		}
	}

	if n.Titulo != "" {
		var existing NormaRepo
		err := ds.DB.Where("titulo = ? AND categoria = ? AND subcategoria = ? AND fuente = ?",
			n.Titulo, n.Categoria, n.Subcategoria, n.Fuente).First(&existing).Error
		switch {
		case err == nil:
			return &existing, nil
		case !errors.Is(err, gorm.ErrRecordNotFound):
			return nil, fmt.Errorf("matching catalog entry by tuple: %w", err)
		}

		// Loose match: normalized title and source. Candidate set is narrowed
		// in SQL, the normalization comparison happens here.
		var candidates []NormaRepo
		if err := ds.DB.Where("LOWER(titulo) LIKE ?",
			"%"+strings.ToLower(strings.TrimSpace(firstField(n.Titulo)))+"%").
			Find(&candidates).Error; err != nil {
			return nil, fmt.Errorf("matching catalog entry by normalized title: %w", err)
		}
		wantTitulo := normalizeMatchText(n.Titulo)
		wantFuente := normalizeMatchText(n.Fuente)
		for i := range candidates {
			if normalizeMatchText(candidates[i].Titulo) == wantTitulo &&
				normalizeMatchText(candidates[i].Fuente) == wantFuente {
				return &candidates[i], nil
			}
		}
	}

	return nil, nil
}

func firstField(s string) string {
	fields := strings.Fields(s)
	if len(fields) == 0 {
		return ""
	}
	return fields[0]
}

// AttachNormaToProyecto scopes a catalog entry to a project. Idempotent.
func (ds *DataStore) AttachNormaToProyecto(proyectoID, normaRepoID uint) error {
	link := ProyectoNorma{ProyectoID: proyectoID, NormaRepoID: normaRepoID, CreatedAt: time.Now()}
	if err := ds.DB.FirstOrCreate(&link, ProyectoNorma{ProyectoID: proyectoID, NormaRepoID: normaRepoID}).Error; err != nil {
		return fmt.Errorf("attaching norma %d to project %d: %w", normaRepoID, proyectoID, err)
	}
	return nil
}

// DetachNormaFromProyecto removes the project scoping. Idempotent.
func (ds *DataStore) DetachNormaFromProyecto(proyectoID, normaRepoID uint) error {
	err := ds.DB.Where("proyecto_id = ? AND norma_repo_id = ?", proyectoID, normaRepoID).
		Delete(&ProyectoNorma{}).Error
	if err != nil {
		return fmt.Errorf("detaching norma %d from project %d: %w", normaRepoID, proyectoID, err)
	}
	return nil
}

// GetNormasForProyecto lists the catalog entries scoped to a project.
func (ds *DataStore) GetNormasForProyecto(proyectoID uint) ([]NormaRepo, error) {
	var normas []NormaRepo
	err := ds.DB.Joins("JOIN proyecto_normas ON proyecto_normas.norma_repo_id = normas_repo.id").
		Where("proyecto_normas.proyecto_id = ?", proyectoID).
		Order("normas_repo.categoria ASC, normas_repo.titulo ASC").
		Find(&normas).Error
	if err != nil {
		return nil, fmt.Errorf("getting normas for project %d: %w", proyectoID, err)
	}
	return normas, nil
}

// AttachNormaToTarea scopes a catalog entry to a task. Idempotent.
func (ds *DataStore) AttachNormaToTarea(tareaID, normaRepoID uint) error {
	link := TareaNorma{TareaID: tareaID, NormaRepoID: normaRepoID, CreatedAt: time.Now()}
	if err := ds.DB.FirstOrCreate(&link, TareaNorma{TareaID: tareaID, NormaRepoID: normaRepoID}).Error; err != nil {
		return fmt.Errorf("attaching norma %d to task %d: %w", normaRepoID, tareaID, err)
	}
	return nil
}

// DetachNormaFromTarea removes the task scoping. Idempotent.
func (ds *DataStore) DetachNormaFromTarea(tareaID, normaRepoID uint) error {
	err := ds.DB.Where("tarea_id = ? AND norma_repo_id = ?", tareaID, normaRepoID).
		Delete(&TareaNorma{}).Error
	if err != nil {
		return fmt.Errorf("detaching norma %d from task %d: %w", normaRepoID, tareaID, err)
	}
	return nil
}

// GetNormasForTarea lists the catalog entries scoped to a task.
func (ds *DataStore) GetNormasForTarea(tareaID uint) ([]NormaRepo, error) {
	var normas []NormaRepo
	err := ds.DB.Joins("JOIN tarea_normas ON tarea_normas.norma_repo_id = normas_repo.id").
		Where("tarea_normas.tarea_id = ?", tareaID).
		Order("normas_repo.categoria ASC, normas_repo.titulo ASC").
		Find(&normas).Error
	if err != nil {
		return nil, fmt.Errorf("getting normas for task %d: %w", tareaID, err)
	}
	return normas, nil
}
