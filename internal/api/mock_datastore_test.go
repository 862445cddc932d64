// Mock datastore used across the handler tests.
package api

import (
	"github.com/stretchr/testify/mock"

	"github.com/obralens/obralens/internal/datastore"
)

// MockDatastore implements datastore.Interface for handler tests.
type MockDatastore struct {
	mock.Mock
}

func (m *MockDatastore) Open() error  { return m.Called().Error(0) }
func (m *MockDatastore) Close() error { return m.Called().Error(0) }

func (m *MockDatastore) GetProyectos() ([]datastore.Proyecto, error) {
	args := m.Called()
	return args.Get(0).([]datastore.Proyecto), args.Error(1)
}

func (m *MockDatastore) GetProyecto(id uint) (datastore.Proyecto, error) {
	args := m.Called(id)
	return args.Get(0).(datastore.Proyecto), args.Error(1)
}

func (m *MockDatastore) SaveProyecto(p *datastore.Proyecto) error {
	return m.Called(p).Error(0)
}

func (m *MockDatastore) UpdateProyecto(p *datastore.Proyecto) error {
	return m.Called(p).Error(0)
}

func (m *MockDatastore) DeleteProyecto(id uint) error {
	return m.Called(id).Error(0)
}

func (m *MockDatastore) GetFases(proyectoID uint) ([]datastore.Fase, error) {
	args := m.Called(proyectoID)
	return args.Get(0).([]datastore.Fase), args.Error(1)
}

func (m *MockDatastore) GetFase(id uint) (datastore.Fase, error) {
	args := m.Called(id)
	return args.Get(0).(datastore.Fase), args.Error(1)
}

func (m *MockDatastore) SaveFase(f *datastore.Fase) error {
	return m.Called(f).Error(0)
}

func (m *MockDatastore) UpdateFase(f *datastore.Fase) error {
	return m.Called(f).Error(0)
}

func (m *MockDatastore) DeleteFase(id uint) error {
	return m.Called(id).Error(0)
}

func (m *MockDatastore) GetTareas(faseID uint) ([]datastore.Tarea, error) {
	args := m.Called(faseID)
	return args.Get(0).([]datastore.Tarea), args.Error(1)
}

func (m *MockDatastore) GetTarea(id uint) (datastore.Tarea, error) {
	args := m.Called(id)
	return args.Get(0).(datastore.Tarea), args.Error(1)
}

func (m *MockDatastore) SaveTarea(t *datastore.Tarea) error {
	return m.Called(t).Error(0)
}

func (m *MockDatastore) UpdateTarea(t *datastore.Tarea) error {
	return m.Called(t).Error(0)
}

func (m *MockDatastore) DeleteTarea(id uint) error {
	return m.Called(id).Error(0)
}

func (m *MockDatastore) GetComentarios(tareaID uint) ([]datastore.Comentario, error) {
	args := m.Called(tareaID)
	return args.Get(0).([]datastore.Comentario), args.Error(1)
}

func (m *MockDatastore) SaveComentario(c *datastore.Comentario) error {
	return m.Called(c).Error(0)
}

func (m *MockDatastore) DeleteComentario(id uint) error {
	return m.Called(id).Error(0)
}

func (m *MockDatastore) GetUsuarioByEmail(email string) (datastore.Usuario, error) {
	args := m.Called(email)
	return args.Get(0).(datastore.Usuario), args.Error(1)
}

func (m *MockDatastore) GetUsuario(id uint) (datastore.Usuario, error) {
	args := m.Called(id)
	return args.Get(0).(datastore.Usuario), args.Error(1)
}

func (m *MockDatastore) SaveUsuario(u *datastore.Usuario) error {
	return m.Called(u).Error(0)
}

func (m *MockDatastore) SaveEvidencia(e *datastore.Evidencia) error {
	return m.Called(e).Error(0)
}

func (m *MockDatastore) GetEvidencia(id uint) (datastore.Evidencia, error) {
	args := m.Called(id)
	return args.Get(0).(datastore.Evidencia), args.Error(1)
}

func (m *MockDatastore) GetEvidencias(proyectoID uint, tareaID *uint) ([]datastore.Evidencia, error) {
	args := m.Called(proyectoID, tareaID)
	return args.Get(0).([]datastore.Evidencia), args.Error(1)
}

func (m *MockDatastore) GetEvidenciasByGroupKey(groupKey string) ([]datastore.Evidencia, error) {
	args := m.Called(groupKey)
	return args.Get(0).([]datastore.Evidencia), args.Error(1)
}

func (m *MockDatastore) GetEvidenciasByProyecto(proyectoID uint) ([]datastore.Evidencia, error) {
	args := m.Called(proyectoID)
	return args.Get(0).([]datastore.Evidencia), args.Error(1)
}

func (m *MockDatastore) UpdateEvidencia(e *datastore.Evidencia) error {
	return m.Called(e).Error(0)
}

func (m *MockDatastore) DeleteEvidencia(id uint) error {
	return m.Called(id).Error(0)
}

func (m *MockDatastore) UpsertEvidenciaNorma(link *datastore.EvidenciaNorma, setClasificacion, setObservacion bool) error {
	return m.Called(link, setClasificacion, setObservacion).Error(0)
}

func (m *MockDatastore) DeleteEvidenciaNorma(evidenciaID, normaRepoID uint) error {
	return m.Called(evidenciaID, normaRepoID).Error(0)
}

func (m *MockDatastore) DeleteEvidenciaNormas(evidenciaID uint) error {
	return m.Called(evidenciaID).Error(0)
}

func (m *MockDatastore) GetNormasForEvidencia(evidenciaID uint) ([]datastore.NormaLink, error) {
	args := m.Called(evidenciaID)
	return args.Get(0).([]datastore.NormaLink), args.Error(1)
}

func (m *MockDatastore) GetLinksForEvidencias(evidenciaIDs []uint) ([]datastore.EvidenciaNorma, error) {
	args := m.Called(evidenciaIDs)
	return args.Get(0).([]datastore.EvidenciaNorma), args.Error(1)
}

func (m *MockDatastore) GetNormasForEvidencias(evidenciaIDs []uint) ([]datastore.NormaLink, error) {
	args := m.Called(evidenciaIDs)
	return args.Get(0).([]datastore.NormaLink), args.Error(1)
}

func (m *MockDatastore) GetNormaRepo(id uint) (datastore.NormaRepo, error) {
	args := m.Called(id)
	return args.Get(0).(datastore.NormaRepo), args.Error(1)
}

func (m *MockDatastore) GetNormasRepo(filter datastore.NormaFilter) ([]datastore.NormaRepo, int64, error) {
	args := m.Called(filter)
	return args.Get(0).([]datastore.NormaRepo), args.Get(1).(int64), args.Error(2)
}

func (m *MockDatastore) GetNormasRepoByIDs(ids []uint) ([]datastore.NormaRepo, error) {
	args := m.Called(ids)
	return args.Get(0).([]datastore.NormaRepo), args.Error(1)
}

func (m *MockDatastore) SaveNormaRepo(n *datastore.NormaRepo) error {
	return m.Called(n).Error(0)
}

func (m *MockDatastore) UpdateNormaRepo(n *datastore.NormaRepo) error {
	return m.Called(n).Error(0)
}

func (m *MockDatastore) DeleteNormaRepo(id uint) error {
	return m.Called(id).Error(0)
}

func (m *MockDatastore) FindNormaRepoMatch(n *datastore.NormaRepo) (*datastore.NormaRepo, error) {
	args := m.Called(n)
	if match := args.Get(0); match != nil {
		return match.(*datastore.NormaRepo), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockDatastore) AttachNormaToProyecto(proyectoID, normaRepoID uint) error {
	return m.Called(proyectoID, normaRepoID).Error(0)
}

func (m *MockDatastore) DetachNormaFromProyecto(proyectoID, normaRepoID uint) error {
	return m.Called(proyectoID, normaRepoID).Error(0)
}

func (m *MockDatastore) GetNormasForProyecto(proyectoID uint) ([]datastore.NormaRepo, error) {
	args := m.Called(proyectoID)
	return args.Get(0).([]datastore.NormaRepo), args.Error(1)
}

func (m *MockDatastore) AttachNormaToTarea(tareaID, normaRepoID uint) error {
	return m.Called(tareaID, normaRepoID).Error(0)
}

func (m *MockDatastore) DetachNormaFromTarea(tareaID, normaRepoID uint) error {
	return m.Called(tareaID, normaRepoID).Error(0)
}

func (m *MockDatastore) GetNormasForTarea(tareaID uint) ([]datastore.NormaRepo, error) {
	args := m.Called(tareaID)
	return args.Get(0).([]datastore.NormaRepo), args.Error(1)
}
