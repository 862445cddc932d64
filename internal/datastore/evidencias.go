// evidencias.go: evidence rows and their catalog links.
package datastore

import (
	"fmt"
	"time"

	"gorm.io/gorm/clause"

	"github.com/obralens/obralens/internal/grouping"
)

// SaveEvidencia inserts a new evidence row, deriving the group key before
// the write so reads can rely on the stored column.
func (ds *DataStore) SaveEvidencia(e *Evidencia) error {
	e.GroupKey = grouping.KeyForTask(e.TareaID, e.Comentario)
	if err := ds.DB.Create(e).Error; err != nil {
		return fmt.Errorf("saving evidence: %w", err)
	}
	return nil
}

// GetEvidencia retrieves one evidence row.
func (ds *DataStore) GetEvidencia(id uint) (Evidencia, error) {
	var e Evidencia
	if err := ds.DB.First(&e, id).Error; err != nil {
		return Evidencia{}, fmt.Errorf("getting evidence %d: %w", id, err)
	}
	return e, nil
}

// GetEvidencias lists a project's evidence newest first, optionally
// restricted to one task.
func (ds *DataStore) GetEvidencias(proyectoID uint, tareaID *uint) ([]Evidencia, error) {
	query := ds.DB.Where("proyecto_id = ?", proyectoID)
	if tareaID != nil {
		query = query.Where("tarea_id = ?", *tareaID)
	}
	var evidencias []Evidencia
	if err := query.Order("created_at DESC, id DESC").Find(&evidencias).Error; err != nil {
		return nil, fmt.Errorf("getting evidence for project %d: %w", proyectoID, err)
	}
	return evidencias, nil
}

// GetEvidenciasByProyecto lists every evidence row of a project newest first.
func (ds *DataStore) GetEvidenciasByProyecto(proyectoID uint) ([]Evidencia, error) {
	return ds.GetEvidencias(proyectoID, nil)
}

// GetEvidenciasByGroupKey resolves a group key to its member rows. Rows
// written before the group_key column existed carry an empty key; those are
// matched by recomputing the key with the same derivation function.
func (ds *DataStore) GetEvidenciasByGroupKey(groupKey string) ([]Evidencia, error) {
	var evidencias []Evidencia
	if err := ds.DB.Where("group_key = ?", groupKey).
		Order("created_at DESC, id DESC").Find(&evidencias).Error; err != nil {
		return nil, fmt.Errorf("getting evidence for group %q: %w", groupKey, err)
	}

	var legacy []Evidencia
	if err := ds.DB.Where("group_key = '' OR group_key IS NULL").Find(&legacy).Error; err != nil {
		return nil, fmt.Errorf("getting unkeyed evidence: %w", err)
	}
	for i := range legacy {
		if grouping.KeyForTask(legacy[i].TareaID, legacy[i].Comentario) == groupKey {
			evidencias = append(evidencias, legacy[i])
		}
	}
	return evidencias, nil
}

// UpdateEvidencia persists changes to an evidence row, rederiving the group
// key in case the comment or task changed.
func (ds *DataStore) UpdateEvidencia(e *Evidencia) error {
	e.GroupKey = grouping.KeyForTask(e.TareaID, e.Comentario)
	if err := ds.DB.Save(e).Error; err != nil {
		return fmt.Errorf("updating evidence %d: %w", e.ID, err)
	}
	return nil
}

// DeleteEvidencia removes one evidence row. Its links must be removed first
// to keep referential order; callers use DeleteEvidenciaNormas.
func (ds *DataStore) DeleteEvidencia(id uint) error {
	result := ds.DB.Delete(&Evidencia{}, id)
	if result.Error != nil {
		return fmt.Errorf("deleting evidence %d: %w", id, result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// UpsertEvidenciaNorma inserts or updates the link for one (evidence, norma)
// pair. On conflict only the explicitly supplied fields overwrite the
// existing row: setClasificacion and setObservacion mark which of the two
// the caller provided.
func (ds *DataStore) UpsertEvidenciaNorma(link *EvidenciaNorma, setClasificacion, setObservacion bool) error {
	link.UpdatedAt = time.Now()
	assignments := map[string]any{"updated_at": link.UpdatedAt}
	if setClasificacion {
		assignments["clasificacion"] = link.Clasificacion
	}
	if setObservacion {
		assignments["observacion"] = link.Observacion
	}

	err := ds.DB.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "evidencia_id"}, {Name: "norma_repo_id"}},
		DoUpdates: clause.Assignments(assignments),
	}).Create(link).Error
	if err != nil {
		return fmt.Errorf("upserting link evidence=%d norma=%d: %w", link.EvidenciaID, link.NormaRepoID, err)
	}
	return nil
}

// DeleteEvidenciaNorma removes one link row. Deleting a link that does not
// exist is not an error; detach is idempotent.
func (ds *DataStore) DeleteEvidenciaNorma(evidenciaID, normaRepoID uint) error {
	err := ds.DB.Where("evidencia_id = ? AND norma_repo_id = ?", evidenciaID, normaRepoID).
		Delete(&EvidenciaNorma{}).Error
	if err != nil {
		return fmt.Errorf("deleting link evidence=%d norma=%d: %w", evidenciaID, normaRepoID, err)
	}
	return nil
}

// DeleteEvidenciaNormas removes every link of one evidence row.
func (ds *DataStore) DeleteEvidenciaNormas(evidenciaID uint) error {
	if err := ds.DB.Where("evidencia_id = ?", evidenciaID).Delete(&EvidenciaNorma{}).Error; err != nil {
		return fmt.Errorf("deleting links for evidence %d: %w", evidenciaID, err)
	}
	return nil
}

// GetNormasForEvidencia returns the catalog entries linked to one evidence
// row, joined with link metadata, ordered by category then title.
func (ds *DataStore) GetNormasForEvidencia(evidenciaID uint) ([]NormaLink, error) {
	return ds.GetNormasForEvidencias([]uint{evidenciaID})
}

// GetNormasForEvidencias returns joined link rows for a set of evidence ids
// in one query, ordered by category then title. Used by the group listing,
// which deduplicates and merges severities on top of this.
func (ds *DataStore) GetNormasForEvidencias(evidenciaIDs []uint) ([]NormaLink, error) {
	if len(evidenciaIDs) == 0 {
		return nil, nil
	}
	var links []NormaLink
	err := ds.DB.Table("evidencia_normas").
		Select("normas_repo.*, evidencia_normas.evidencia_id, evidencia_normas.clasificacion, evidencia_normas.observacion").
		Joins("JOIN normas_repo ON normas_repo.id = evidencia_normas.norma_repo_id").
		Where("evidencia_normas.evidencia_id IN ?", evidenciaIDs).
		Order("normas_repo.categoria ASC, normas_repo.titulo ASC").
		Scan(&links).Error
	if err != nil {
		return nil, fmt.Errorf("getting linked normas for %d evidence rows: %w", len(evidenciaIDs), err)
	}
	return links, nil
}

// GetLinksForEvidencias returns the raw link rows for a set of evidence ids
// in one batch query. The group listing uses this to compute per-group
// distinct norma counts.
func (ds *DataStore) GetLinksForEvidencias(evidenciaIDs []uint) ([]EvidenciaNorma, error) {
	if len(evidenciaIDs) == 0 {
		return nil, nil
	}
	var links []EvidenciaNorma
	if err := ds.DB.Where("evidencia_id IN ?", evidenciaIDs).Find(&links).Error; err != nil {
		return nil, fmt.Errorf("getting links for %d evidence rows: %w", len(evidenciaIDs), err)
	}
	return links, nil
}
