package api

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/obralens/obralens/internal/datastore"
)

func TestCatalogReportByIDsToleratesMissing(t *testing.T) {
	e, mockDS, _ := setupTestEnvironment(t)

	// id 2 no longer exists; the report covers whatever subset remains.
	mockDS.On("GetNormasRepoByIDs", []uint{1, 2, 3}).Return([]datastore.NormaRepo{
		{ID: 1, Titulo: "Fisuras", Severidad: datastore.SeverityCritico},
		{ID: 3, Titulo: "Humedad", Severidad: datastore.SeverityLeve},
	}, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/normas-repo/report?ids=1,2,3", http.NoBody)
	rec := doRequest(e, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/pdf", rec.Header().Get("Content-Type"))
	assert.True(t, len(rec.Body.Bytes()) > 4)
	assert.Equal(t, "%PDF", string(rec.Body.Bytes()[:4]))
}

func TestCatalogReportHeadReturnsHeadersOnly(t *testing.T) {
	e, mockDS, _ := setupTestEnvironment(t)

	mockDS.On("GetNormasRepoByIDs", []uint{1}).Return([]datastore.NormaRepo{
		{ID: 1, Titulo: "Fisuras"},
	}, nil)

	req := httptest.NewRequest(http.MethodHead, "/api/v1/normas-repo/report?ids=1", http.NoBody)
	rec := doRequest(e, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/pdf", rec.Header().Get("Content-Type"))
	assert.NotEmpty(t, rec.Header().Get("Content-Length"))
	assert.Empty(t, rec.Body.Bytes())
}

func TestCatalogReportByFilterUsesUnpaginatedQuery(t *testing.T) {
	e, mockDS, _ := setupTestEnvironment(t)

	mockDS.On("GetNormasRepo", mock.MatchedBy(func(f datastore.NormaFilter) bool {
		return f.All && f.Categoria == "3"
	})).Return([]datastore.NormaRepo{{ID: 1, Titulo: "Fisuras"}}, int64(1), nil)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/normas-repo/report?categoria=3", http.NoBody)
	rec := doRequest(e, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "%PDF", string(rec.Body.Bytes()[:4]))
}

func TestCatalogReportRejectsGarbageIDs(t *testing.T) {
	e, _, _ := setupTestEnvironment(t)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/normas-repo/report?ids=a,b", http.NoBody)
	rec := doRequest(e, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestProjectReportRendersBlocks(t *testing.T) {
	e, mockDS, _ := setupTestEnvironment(t)

	tarea := uint(5)
	now := time.Now()
	evidencias := []datastore.Evidencia{
		evidencia(1, &tarea, "[PORTADA] Fachada", datastore.SeverityOK, now),
		evidencia(2, &tarea, "Grieta en muro", datastore.SeverityCritico, now),
		evidencia(3, nil, "Humedad en losa", datastore.SeverityLeve, now),
	}

	mockDS.On("GetProyecto", uint(1)).Return(datastore.Proyecto{ID: 1, Nombre: "Torre Norte"}, nil)
	mockDS.On("GetEvidenciasByProyecto", uint(1)).Return(evidencias, nil)
	mockDS.On("GetNormasForEvidencias", []uint{2, 3}).Return([]datastore.NormaLink{
		{NormaRepo: datastore.NormaRepo{ID: 9, Titulo: "Fisuras"}, EvidenciaID: 2,
			Clasificacion: datastore.SeverityCritico},
	}, nil)
	mockDS.On("GetTarea", tarea).Return(datastore.Tarea{ID: tarea, Nombre: "Muro norte"}, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/reportes/proyectos/1/pdf", http.NoBody)
	rec := doRequest(e, req)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "application/pdf", rec.Header().Get("Content-Type"))
	assert.Equal(t, "%PDF", string(rec.Body.Bytes()[:4]))
}

func TestProjectReportFiltersByCategoria(t *testing.T) {
	e, mockDS, _ := setupTestEnvironment(t)

	now := time.Now()
	evidencias := []datastore.Evidencia{
		evidencia(1, nil, "Grieta en muro", datastore.SeverityCritico, now),
		evidencia(2, nil, "Pintura pendiente", datastore.SeverityOK, now),
	}

	mockDS.On("GetProyecto", uint(1)).Return(datastore.Proyecto{ID: 1, Nombre: "Torre Norte"}, nil)
	mockDS.On("GetEvidenciasByProyecto", uint(1)).Return(evidencias, nil)
	// Only the CRITICO evidence survives the filter.
	mockDS.On("GetNormasForEvidencias", []uint{1}).Return([]datastore.NormaLink{}, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/reportes/proyectos/1/pdf?categoria=critico", http.NoBody)
	rec := doRequest(e, req)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	mockDS.AssertExpectations(t)
}

func TestProjectReportUnknownProjectIs404(t *testing.T) {
	e, mockDS, _ := setupTestEnvironment(t)

	mockDS.On("GetProyecto", uint(7)).Return(datastore.Proyecto{}, datastore.ErrNotFound)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/reportes/proyectos/7/pdf", http.NoBody)
	rec := doRequest(e, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}
