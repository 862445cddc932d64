package api

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/obralens/obralens/internal/datastore"
)

func TestCreateProyecto(t *testing.T) {
	e, mockDS, _ := setupTestEnvironment(t)

	mockDS.On("SaveProyecto", mock.MatchedBy(func(p *datastore.Proyecto) bool {
		return p.Nombre == "Torre Norte" && p.Cliente == "Constructora XYZ"
	})).Run(func(args mock.Arguments) {
		args.Get(0).(*datastore.Proyecto).ID = 1
	}).Return(nil)

	payload := []byte(`{"nombre":"Torre Norte","cliente":"Constructora XYZ"}`)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/proyectos", bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	rec := doRequest(e, req)

	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var resp datastore.Proyecto
	decodeBody(t, rec, &resp)
	assert.Equal(t, uint(1), resp.ID)
}

func TestCreateProyectoRequiresNombre(t *testing.T) {
	e, mockDS, _ := setupTestEnvironment(t)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/proyectos",
		bytes.NewReader([]byte(`{"cliente":"Constructora XYZ"}`)))
	req.Header.Set("Content-Type", "application/json")
	rec := doRequest(e, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	mockDS.AssertNotCalled(t, "SaveProyecto")
}

func TestGetProyectoUnknownIs404(t *testing.T) {
	e, mockDS, _ := setupTestEnvironment(t)

	mockDS.On("GetProyecto", uint(7)).Return(datastore.Proyecto{}, datastore.ErrNotFound)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/proyectos/7", http.NoBody)
	rec := doRequest(e, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestDeleteProyectoCascadesEvidence(t *testing.T) {
	e, mockDS, _ := setupTestEnvironment(t)

	evidencias := []datastore.Evidencia{
		evidencia(1, nil, "Grieta", datastore.SeverityLeve, time.Now()),
		evidencia(2, nil, "Humedad", datastore.SeverityOK, time.Now()),
	}
	mockDS.On("GetEvidenciasByProyecto", uint(1)).Return(evidencias, nil)
	mockDS.On("DeleteEvidenciaNormas", uint(1)).Return(nil)
	mockDS.On("DeleteEvidenciaNormas", uint(2)).Return(nil)
	mockDS.On("DeleteEvidencia", uint(1)).Return(nil)
	mockDS.On("DeleteEvidencia", uint(2)).Return(nil)
	mockDS.On("DeleteProyecto", uint(1)).Return(nil)

	req := httptest.NewRequest(http.MethodDelete, "/api/v1/proyectos/1", http.NoBody)
	rec := doRequest(e, req)

	assert.Equal(t, http.StatusNoContent, rec.Code)
	mockDS.AssertExpectations(t)
}

func TestCreateTareaDefaultsEstado(t *testing.T) {
	e, mockDS, _ := setupTestEnvironment(t)

	mockDS.On("GetFase", uint(2)).Return(datastore.Fase{ID: 2}, nil)
	mockDS.On("SaveTarea", mock.MatchedBy(func(tarea *datastore.Tarea) bool {
		return tarea.Estado == datastore.TareaPendiente && tarea.FaseID == 2
	})).Return(nil)

	payload := []byte(`{"nombre":"Revisar cimentación"}`)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/fases/2/tareas", bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	rec := doRequest(e, req)

	assert.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	mockDS.AssertExpectations(t)
}

func TestUpdateTareaRejectsBadEstado(t *testing.T) {
	e, mockDS, _ := setupTestEnvironment(t)

	mockDS.On("GetTarea", uint(3)).Return(datastore.Tarea{ID: 3, Estado: datastore.TareaPendiente}, nil)

	payload := []byte(`{"estado":"TERMINADA"}`)
	req := httptest.NewRequest(http.MethodPut, "/api/v1/tareas/3", bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	rec := doRequest(e, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	mockDS.AssertNotCalled(t, "UpdateTarea")
}

func TestCreateComentarioRequiresTexto(t *testing.T) {
	e, mockDS, _ := setupTestEnvironment(t)

	mockDS.On("GetTarea", uint(3)).Return(datastore.Tarea{ID: 3}, nil)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/tareas/3/comentarios",
		bytes.NewReader([]byte(`{}`)))
	req.Header.Set("Content-Type", "application/json")
	rec := doRequest(e, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	mockDS.AssertNotCalled(t, "SaveComentario")
}
