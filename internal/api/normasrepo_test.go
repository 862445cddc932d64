package api

import (
	"bytes"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/obralens/obralens/internal/datastore"
)

func TestGetNormasRepoAppliesFilters(t *testing.T) {
	e, mockDS, _ := setupTestEnvironment(t)

	expected := datastore.NormaFilter{
		Search:    "grieta",
		Categoria: "3",
		Severidad: datastore.SeverityCritico,
		Page:      2,
		Limit:     10,
	}
	mockDS.On("GetNormasRepo", expected).Return([]datastore.NormaRepo{
		{ID: 1, Titulo: "Fisuras"},
	}, int64(11), nil)

	req := httptest.NewRequest(http.MethodGet,
		"/api/v1/normas-repo?search=grieta&categoria=3&severidad=critico&page=2&limit=10", http.NoBody)
	rec := doRequest(e, req)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var body struct {
		Items []datastore.NormaRepo `json:"items"`
		Total int64                 `json:"total"`
	}
	decodeBody(t, rec, &body)
	assert.Len(t, body.Items, 1)
	assert.Equal(t, int64(11), body.Total)
}

func TestGetNormasRepoRejectsBadSeverity(t *testing.T) {
	e, mockDS, _ := setupTestEnvironment(t)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/normas-repo?severidad=ALTA", http.NoBody)
	rec := doRequest(e, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	mockDS.AssertNotCalled(t, "GetNormasRepo")
}

func TestCreateNormaRepoRequiresTitulo(t *testing.T) {
	e, mockDS, _ := setupTestEnvironment(t)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/normas-repo",
		bytes.NewReader([]byte(`{"descripcion":"sin titulo"}`)))
	req.Header.Set("Content-Type", "application/json")
	rec := doRequest(e, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	mockDS.AssertNotCalled(t, "SaveNormaRepo")
}

func TestCreateNormaRepoDefaultsSeverity(t *testing.T) {
	e, mockDS, _ := setupTestEnvironment(t)

	mockDS.On("SaveNormaRepo", mock.MatchedBy(func(n *datastore.NormaRepo) bool {
		return n.Titulo == "Fisuras" && n.Severidad == datastore.SeverityLeve
	})).Return(nil)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/normas-repo",
		bytes.NewReader([]byte(`{"titulo":"Fisuras"}`)))
	req.Header.Set("Content-Type", "application/json")
	rec := doRequest(e, req)

	assert.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	mockDS.AssertExpectations(t)
}

func TestDeleteNormaRepoUnknownIs404(t *testing.T) {
	e, mockDS, _ := setupTestEnvironment(t)

	mockDS.On("DeleteNormaRepo", uint(99)).Return(datastore.ErrNotFound)

	req := httptest.NewRequest(http.MethodDelete, "/api/v1/normas-repo/99", http.NoBody)
	rec := doRequest(e, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestImportNormasRepoFromCSV(t *testing.T) {
	e, mockDS, _ := setupTestEnvironment(t)

	// First row is detected as the header, the next two are catalog items.
	csv := "titulo;descripcion;incumplimiento;severidad\n" +
		"Fisuras;Grietas estructurales;Falta refuerzo;CRITICO\n" +
		"Humedad;Filtraciones;Sin impermeabilizar;LEVE\n"

	mockDS.On("FindNormaRepoMatch", mock.Anything).Return(nil, nil)
	var nextID uint
	mockDS.On("SaveNormaRepo", mock.AnythingOfType("*datastore.NormaRepo")).
		Run(func(args mock.Arguments) {
			nextID++
			args.Get(0).(*datastore.NormaRepo).ID = nextID
		}).Return(nil)

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	part, err := w.CreateFormFile("file", "normas.csv")
	require.NoError(t, err)
	_, err = part.Write([]byte(csv))
	require.NoError(t, err)
	require.NoError(t, w.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/v1/normas-repo/import", &buf)
	req.Header.Set("Content-Type", w.FormDataContentType())
	rec := doRequest(e, req)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var body map[string]any
	decodeBody(t, rec, &body)
	assert.Equal(t, true, body["ok"])
	assert.InDelta(t, 2, body["created"], 0)
	assert.InDelta(t, 0, body["updated"], 0)
	assert.InDelta(t, 0, body["errors"], 0)
}

func TestImportNormasRepoRequiresFile(t *testing.T) {
	e, _, _ := setupTestEnvironment(t)

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	require.NoError(t, w.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/v1/normas-repo/import", &buf)
	req.Header.Set("Content-Type", w.FormDataContentType())
	rec := doRequest(e, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestProyectoNormaScoping(t *testing.T) {
	e, mockDS, _ := setupTestEnvironment(t)

	mockDS.On("GetProyecto", uint(1)).Return(datastore.Proyecto{ID: 1}, nil)
	mockDS.On("GetNormaRepo", uint(9)).Return(datastore.NormaRepo{ID: 9}, nil)
	mockDS.On("AttachNormaToProyecto", uint(1), uint(9)).Return(nil)
	mockDS.On("DetachNormaFromProyecto", uint(1), uint(9)).Return(nil)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/proyectos/1/normas-repo",
		bytes.NewReader([]byte(`{"normaRepoId":9}`)))
	req.Header.Set("Content-Type", "application/json")
	rec := doRequest(e, req)
	assert.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	req = httptest.NewRequest(http.MethodDelete, "/api/v1/proyectos/1/normas-repo/9", http.NoBody)
	rec = doRequest(e, req)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	mockDS.AssertExpectations(t)
}
