// manage.go: CRUD operations for projects, phases, tasks, comments and users.
package datastore

import (
	"fmt"
)

// GetProyectos returns all projects with their phases preloaded, newest first.
func (ds *DataStore) GetProyectos() ([]Proyecto, error) {
	var proyectos []Proyecto
	if err := ds.DB.Preload("Fases").Order("created_at DESC").Find(&proyectos).Error; err != nil {
		return nil, fmt.Errorf("getting projects: %w", err)
	}
	return proyectos, nil
}

// GetProyecto retrieves one project with phases and tasks preloaded.
func (ds *DataStore) GetProyecto(id uint) (Proyecto, error) {
	var p Proyecto
	if err := ds.DB.Preload("Fases.Tareas").First(&p, id).Error; err != nil {
		return Proyecto{}, fmt.Errorf("getting project %d: %w", id, err)
	}
	return p, nil
}

// SaveProyecto inserts a new project.
func (ds *DataStore) SaveProyecto(p *Proyecto) error {
	if err := ds.DB.Create(p).Error; err != nil {
		return fmt.Errorf("saving project: %w", err)
	}
	return nil
}

// UpdateProyecto persists changes to an existing project.
func (ds *DataStore) UpdateProyecto(p *Proyecto) error {
	if err := ds.DB.Save(p).Error; err != nil {
		return fmt.Errorf("updating project %d: %w", p.ID, err)
	}
	return nil
}

// DeleteProyecto removes a project. Phases and tasks cascade at the schema
// level; evidence rows, links and files are the caller's responsibility
// because file removal is best-effort and lives outside the database.
func (ds *DataStore) DeleteProyecto(id uint) error {
	result := ds.DB.Delete(&Proyecto{}, id)
	if result.Error != nil {
		return fmt.Errorf("deleting project %d: %w", id, result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// GetFases returns a project's phases in display order.
func (ds *DataStore) GetFases(proyectoID uint) ([]Fase, error) {
	var fases []Fase
	if err := ds.DB.Where("proyecto_id = ?", proyectoID).Order("orden ASC, id ASC").Find(&fases).Error; err != nil {
		return nil, fmt.Errorf("getting phases for project %d: %w", proyectoID, err)
	}
	return fases, nil
}

// GetFase retrieves one phase.
func (ds *DataStore) GetFase(id uint) (Fase, error) {
	var f Fase
	if err := ds.DB.First(&f, id).Error; err != nil {
		return Fase{}, fmt.Errorf("getting phase %d: %w", id, err)
	}
	return f, nil
}

// SaveFase inserts a new phase.
func (ds *DataStore) SaveFase(f *Fase) error {
	if err := ds.DB.Create(f).Error; err != nil {
		return fmt.Errorf("saving phase: %w", err)
	}
	return nil
}

// UpdateFase persists changes to an existing phase.
func (ds *DataStore) UpdateFase(f *Fase) error {
	if err := ds.DB.Save(f).Error; err != nil {
		return fmt.Errorf("updating phase %d: %w", f.ID, err)
	}
	return nil
}

// DeleteFase removes a phase and, via schema cascade, its tasks.
func (ds *DataStore) DeleteFase(id uint) error {
	result := ds.DB.Delete(&Fase{}, id)
	if result.Error != nil {
		return fmt.Errorf("deleting phase %d: %w", id, result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// GetTareas returns a phase's tasks.
func (ds *DataStore) GetTareas(faseID uint) ([]Tarea, error) {
	var tareas []Tarea
	if err := ds.DB.Where("fase_id = ?", faseID).Order("id ASC").Find(&tareas).Error; err != nil {
		return nil, fmt.Errorf("getting tasks for phase %d: %w", faseID, err)
	}
	return tareas, nil
}

// GetTarea retrieves one task with its comments preloaded.
func (ds *DataStore) GetTarea(id uint) (Tarea, error) {
	var t Tarea
	if err := ds.DB.Preload("Comentarios").First(&t, id).Error; err != nil {
		return Tarea{}, fmt.Errorf("getting task %d: %w", id, err)
	}
	return t, nil
}

// SaveTarea inserts a new task.
func (ds *DataStore) SaveTarea(t *Tarea) error {
	if err := ds.DB.Create(t).Error; err != nil {
		return fmt.Errorf("saving task: %w", err)
	}
	return nil
}

// UpdateTarea persists changes to an existing task.
func (ds *DataStore) UpdateTarea(t *Tarea) error {
	if err := ds.DB.Save(t).Error; err != nil {
		return fmt.Errorf("updating task %d: %w", t.ID, err)
	}
	return nil
}

// DeleteTarea removes a task and, via schema cascade, its comments.
func (ds *DataStore) DeleteTarea(id uint) error {
	result := ds.DB.Delete(&Tarea{}, id)
	if result.Error != nil {
		return fmt.Errorf("deleting task %d: %w", id, result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// GetComentarios returns a task's comments oldest first.
func (ds *DataStore) GetComentarios(tareaID uint) ([]Comentario, error) {
	var comentarios []Comentario
	if err := ds.DB.Where("tarea_id = ?", tareaID).Order("created_at ASC").Find(&comentarios).Error; err != nil {
		return nil, fmt.Errorf("getting comments for task %d: %w", tareaID, err)
	}
	return comentarios, nil
}

// SaveComentario inserts a new comment.
func (ds *DataStore) SaveComentario(c *Comentario) error {
	if err := ds.DB.Create(c).Error; err != nil {
		return fmt.Errorf("saving comment: %w", err)
	}
	return nil
}

// DeleteComentario removes a comment.
func (ds *DataStore) DeleteComentario(id uint) error {
	result := ds.DB.Delete(&Comentario{}, id)
	if result.Error != nil {
		return fmt.Errorf("deleting comment %d: %w", id, result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// GetUsuarioByEmail looks up an account by its unique email.
func (ds *DataStore) GetUsuarioByEmail(email string) (Usuario, error) {
	var u Usuario
	if err := ds.DB.Where("email = ?", email).First(&u).Error; err != nil {
		return Usuario{}, fmt.Errorf("getting user by email: %w", err)
	}
	return u, nil
}

// GetUsuario retrieves one account by id.
func (ds *DataStore) GetUsuario(id uint) (Usuario, error) {
	var u Usuario
	if err := ds.DB.First(&u, id).Error; err != nil {
		return Usuario{}, fmt.Errorf("getting user %d: %w", id, err)
	}
	return u, nil
}

// SaveUsuario inserts a new account.
func (ds *DataStore) SaveUsuario(u *Usuario) error {
	if err := ds.DB.Create(u).Error; err != nil {
		return fmt.Errorf("saving user: %w", err)
	}
	return nil
}
