// model.go defines the data model for the application
package datastore

import "time"

// Severity is the ordered classification shared by evidence categories,
// catalog entries and evidence-norma links. The rank order OK < LEVE <
// CRITICO resolves conflicting classifications when a group is merged.
type Severity string

const (
	SeverityOK      Severity = "OK"
	SeverityLeve    Severity = "LEVE"
	SeverityCritico Severity = "CRITICO"
)

// Rank returns the position of the severity in the total order. Unknown
// values rank below OK so they never win a merge.
func (s Severity) Rank() int {
	switch s {
	case SeverityOK:
		return 0
	case SeverityLeve:
		return 1
	case SeverityCritico:
		return 2
	default:
		return -1
	}
}

// Valid reports whether s is one of the three known severities.
func (s Severity) Valid() bool {
	return s.Rank() >= 0
}

// MaxSeverity returns the higher-ranked of a and b, keeping a on ties.
func MaxSeverity(a, b Severity) Severity {
	if b.Rank() > a.Rank() {
		return b
	}
	return a
}

// Proyecto is a construction project under audit.
type Proyecto struct {
	ID          uint       `gorm:"primaryKey" json:"id"`
	Nombre      string     `gorm:"not null;index:idx_proyectos_nombre" json:"nombre"`
	Descripcion string     `gorm:"type:text" json:"descripcion"`
	Cliente     string     `json:"cliente"`
	Ubicacion   string     `json:"ubicacion"`
	FechaInicio *time.Time `json:"fechaInicio,omitempty"`
	FechaFin    *time.Time `json:"fechaFin,omitempty"`
	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   time.Time  `json:"updatedAt"`
	Fases       []Fase     `gorm:"foreignKey:ProyectoID;constraint:OnDelete:CASCADE" json:"fases,omitempty"`
}

// Fase is an ordered phase within a project.
type Fase struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	ProyectoID uint      `gorm:"index;not null" json:"proyectoId"`
	Nombre     string    `gorm:"not null" json:"nombre"`
	Orden      int       `gorm:"index" json:"orden"`
	CreatedAt  time.Time `json:"createdAt"`
	UpdatedAt  time.Time `json:"updatedAt"`
	Tareas     []Tarea   `gorm:"foreignKey:FaseID;constraint:OnDelete:CASCADE" json:"tareas,omitempty"`
}

// Task states.
const (
	TareaPendiente  = "PENDIENTE"
	TareaEnProgreso = "EN_PROGRESO"
	TareaCompletada = "COMPLETADA"
)

// Tarea is a unit of work within a phase. Evidence optionally points at it.
type Tarea struct {
	ID          uint         `gorm:"primaryKey" json:"id"`
	FaseID      uint         `gorm:"index;not null" json:"faseId"`
	Nombre      string       `gorm:"not null" json:"nombre"`
	Descripcion string       `gorm:"type:text" json:"descripcion"`
	Estado      string       `gorm:"type:varchar(20);default:PENDIENTE" json:"estado"`
	AsignadoA   *uint        `gorm:"index" json:"asignadoA,omitempty"`
	CreatedAt   time.Time    `json:"createdAt"`
	UpdatedAt   time.Time    `json:"updatedAt"`
	Comentarios []Comentario `gorm:"foreignKey:TareaID;constraint:OnDelete:CASCADE" json:"comentarios,omitempty"`
}

// Comentario is a free-text note on a task.
type Comentario struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	TareaID   uint      `gorm:"index;not null" json:"tareaId"`
	UsuarioID uint      `gorm:"index" json:"usuarioId"`
	Texto     string    `gorm:"type:text;not null" json:"texto"`
	CreatedAt time.Time `json:"createdAt"`
}

// Usuario is an application account.
type Usuario struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	Email        string    `gorm:"uniqueIndex;not null" json:"email"`
	Nombre       string    `json:"nombre"`
	PasswordHash string    `gorm:"not null" json:"-"`
	Rol          string    `gorm:"type:varchar(20);default:inspector" json:"rol"`
	Activo       bool      `gorm:"default:true" json:"activo"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// Evidencia is one uploaded photo tied to a project and optionally a task.
// GroupKey is derived from (TareaID, Comentario) on every write; readers
// may recompute it with the same function when the column is empty.
type Evidencia struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	ProyectoID uint      `gorm:"index;not null" json:"proyectoId"`
	TareaID    *uint     `gorm:"index" json:"tareaId,omitempty"`
	Categoria  Severity  `gorm:"type:varchar(10);default:OK" json:"categoria"`
	Comentario string    `gorm:"type:text" json:"comentario"`
	Archivo    string    `gorm:"not null" json:"archivo"`
	MimeType   string    `json:"mimeType"`
	Tamano     int64     `json:"tamano"`
	CreadoPor  uint      `json:"creadoPor"`
	GroupKey   string    `gorm:"index:idx_evidencias_group_key" json:"groupKey"`
	CreatedAt  time.Time `gorm:"index" json:"createdAt"`
	UpdatedAt  time.Time `json:"updatedAt"`
}

// NormaRepo is a regulatory non-compliance catalog entry.
type NormaRepo struct {
	ID             uint      `gorm:"primaryKey" json:"id"`
	Codigo         string    `gorm:"index:idx_normas_repo_codigo" json:"codigo"`
	Titulo         string    `gorm:"not null;index:idx_normas_repo_titulo" json:"titulo"`
	Descripcion    string    `gorm:"type:text" json:"descripcion"`
	Categoria      string    `gorm:"index:idx_normas_repo_categoria" json:"categoria"`
	Subcategoria   string    `json:"subcategoria"`
	Incumplimiento string    `gorm:"type:text" json:"incumplimiento"`
	Severidad      Severity  `gorm:"type:varchar(10);default:LEVE" json:"severidad"`
	Etiquetas      string    `json:"etiquetas"`
	Fuente         string    `json:"fuente"`
	Articulo       string    `json:"articulo"`
	CreatedAt      time.Time `json:"createdAt"`
	UpdatedAt      time.Time `json:"updatedAt"`
}

// TableName pins the catalog table to the schema name used by the importer
// and the join queries.
func (NormaRepo) TableName() string { return "normas_repo" }

// EvidenciaNorma links one evidence row to one catalog entry. The composite
// primary key guarantees at most one link per pair; re-association updates
// the existing row.
type EvidenciaNorma struct {
	EvidenciaID   uint      `gorm:"primaryKey;autoIncrement:false" json:"evidenciaId"`
	NormaRepoID   uint      `gorm:"primaryKey;autoIncrement:false" json:"normaRepoId"`
	Clasificacion Severity  `gorm:"type:varchar(10);default:LEVE" json:"clasificacion"`
	Observacion   string    `gorm:"type:text" json:"observacion"`
	UpdatedAt     time.Time `json:"updatedAt"`
}

// ProyectoNorma scopes a catalog entry to a whole project.
type ProyectoNorma struct {
	ProyectoID  uint      `gorm:"primaryKey;autoIncrement:false" json:"proyectoId"`
	NormaRepoID uint      `gorm:"primaryKey;autoIncrement:false" json:"normaRepoId"`
	CreatedAt   time.Time `json:"createdAt"`
}

// TareaNorma scopes a catalog entry to a single task.
type TareaNorma struct {
	TareaID     uint      `gorm:"primaryKey;autoIncrement:false" json:"tareaId"`
	NormaRepoID uint      `gorm:"primaryKey;autoIncrement:false" json:"normaRepoId"`
	CreatedAt   time.Time `json:"createdAt"`
}

// NormaLink is a catalog entry joined with its link metadata for one
// evidence row. Not a stored table.
type NormaLink struct {
	NormaRepo
	EvidenciaID   uint     `json:"evidenciaId"`
	Clasificacion Severity `json:"clasificacion"`
	Observacion   string   `json:"observacion"`
}
