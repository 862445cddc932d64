// interfaces.go: this code defines the interface for the database operations
package datastore

import (
	"fmt"
	"log/slog"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/obralens/obralens/internal/conf"
)

// ErrNotFound is returned when a lookup matches no row. It wraps the GORM
// sentinel so errors.Is works across layers.
var ErrNotFound = gorm.ErrRecordNotFound

// Interface abstracts the underlying database implementation and defines
// the operations the rest of the application is allowed to perform.
type Interface interface {
	Open() error
	Close() error

	// proyectos
	GetProyectos() ([]Proyecto, error)
	GetProyecto(id uint) (Proyecto, error)
	SaveProyecto(p *Proyecto) error
	UpdateProyecto(p *Proyecto) error
	DeleteProyecto(id uint) error

	// fases
	GetFases(proyectoID uint) ([]Fase, error)
	GetFase(id uint) (Fase, error)
	SaveFase(f *Fase) error
	UpdateFase(f *Fase) error
	DeleteFase(id uint) error

	// tareas
	GetTareas(faseID uint) ([]Tarea, error)
	GetTarea(id uint) (Tarea, error)
	SaveTarea(t *Tarea) error
	UpdateTarea(t *Tarea) error
	DeleteTarea(id uint) error

	// comentarios
	GetComentarios(tareaID uint) ([]Comentario, error)
	SaveComentario(c *Comentario) error
	DeleteComentario(id uint) error

	// usuarios
	GetUsuarioByEmail(email string) (Usuario, error)
	GetUsuario(id uint) (Usuario, error)
	SaveUsuario(u *Usuario) error

	// evidencias
	SaveEvidencia(e *Evidencia) error
	GetEvidencia(id uint) (Evidencia, error)
	GetEvidencias(proyectoID uint, tareaID *uint) ([]Evidencia, error)
	GetEvidenciasByGroupKey(groupKey string) ([]Evidencia, error)
	GetEvidenciasByProyecto(proyectoID uint) ([]Evidencia, error)
	UpdateEvidencia(e *Evidencia) error
	DeleteEvidencia(id uint) error

	// evidencia <-> norma links
	UpsertEvidenciaNorma(link *EvidenciaNorma, setClasificacion, setObservacion bool) error
	DeleteEvidenciaNorma(evidenciaID, normaRepoID uint) error
	DeleteEvidenciaNormas(evidenciaID uint) error
	GetNormasForEvidencia(evidenciaID uint) ([]NormaLink, error)
	GetLinksForEvidencias(evidenciaIDs []uint) ([]EvidenciaNorma, error)
	GetNormasForEvidencias(evidenciaIDs []uint) ([]NormaLink, error)

	// normas repo (catalog)
	GetNormaRepo(id uint) (NormaRepo, error)
	GetNormasRepo(filter NormaFilter) ([]NormaRepo, int64, error)
	GetNormasRepoByIDs(ids []uint) ([]NormaRepo, error)
	SaveNormaRepo(n *NormaRepo) error
	UpdateNormaRepo(n *NormaRepo) error
	DeleteNormaRepo(id uint) error
	FindNormaRepoMatch(n *NormaRepo) (*NormaRepo, error)

	// project/task catalog scoping
	AttachNormaToProyecto(proyectoID, normaRepoID uint) error
	DetachNormaFromProyecto(proyectoID, normaRepoID uint) error
	GetNormasForProyecto(proyectoID uint) ([]NormaRepo, error)
	AttachNormaToTarea(tareaID, normaRepoID uint) error
	DetachNormaFromTarea(tareaID, normaRepoID uint) error
	GetNormasForTarea(tareaID uint) ([]NormaRepo, error)
}

// NormaFilter holds the list/report query parameters for the catalog.
type NormaFilter struct {
	Search    string   // free text, AND-ed keywords over the text columns
	Categoria string   // exact or numeric-prefix match
	Severidad Severity // exact match when valid
	Page      int
	Limit     int
	All       bool // disable pagination
}

// DataStore implements Interface using a GORM database.
type DataStore struct {
	DB *gorm.DB
}

// New creates a datastore for the configured backend.
func New(settings *conf.Settings) Interface {
	switch settings.Database.Type {
	case conf.DatabaseMySQL:
		return &MySQLStore{Settings: settings}
	default:
		return &SQLiteStore{Settings: settings}
	}
}

// createGormLogger routes GORM's own logging through slog at warn level so
// slow queries and errors surface in the structured log.
func createGormLogger() logger.Interface {
	return logger.New(
		slogWriter{},
		logger.Config{
			SlowThreshold:             time.Second,
			LogLevel:                  logger.Warn,
			IgnoreRecordNotFoundError: true,
			Colorful:                  false,
		},
	)
}

type slogWriter struct{}

func (slogWriter) Printf(format string, args ...any) {
	slog.Default().Warn("gorm", "msg", format, "args", args)
}

// performAutoMigration creates or updates the schema on open.
func performAutoMigration(db *gorm.DB, debug bool, dbType, connectionInfo string) error {
	if err := db.AutoMigrate(
		&Proyecto{},
		&Fase{},
		&Tarea{},
		&Comentario{},
		&Usuario{},
		&Evidencia{},
		&NormaRepo{},
		&EvidenciaNorma{},
		&ProyectoNorma{},
		&TareaNorma{},
	); err != nil {
		return fmt.Errorf("failed to auto-migrate %s database: %w", dbType, err)
	}
	if debug {
		slog.Debug("database connection initialized", "type", dbType, "connection", connectionInfo)
	}
	return nil
}
