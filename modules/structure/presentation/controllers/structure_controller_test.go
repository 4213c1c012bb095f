package controllers

import (
	"bytes"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/require"

	"github.com/atviriduomenys/katalogas-sub000/modules/structure/domain/manifest"
	"github.com/atviriduomenys/katalogas-sub000/modules/structure/infrastructure/memory"
	"github.com/atviriduomenys/katalogas-sub000/modules/structure/presentation/controllers/dtos"
	"github.com/atviriduomenys/katalogas-sub000/modules/structure/services"
	"github.com/atviriduomenys/katalogas-sub000/pkg/application"
	"github.com/atviriduomenys/katalogas-sub000/pkg/httpapi"
)

const dsName = "datasets/gov/example"

func newRouter(t *testing.T, maxUpload int64) *mux.Router {
	t.Helper()
	return newLimitedRouter(t, ControllerOptions{MaxUploadSize: maxUpload})
}

func newLimitedRouter(t *testing.T, opts ControllerOptions) *mux.Router {
	t.Helper()
	store := memory.NewStore()
	app := application.New(&application.ApplicationOptions{})
	app.RegisterServices(
		services.NewStructureService(store, nil, services.Options{APIHost: "get.data.gov.lt"}),
		services.NewVersionService(store, nil),
	)
	r := mux.NewRouter()
	NewStructureController(app, opts).Register(r)
	return r
}

func do(t *testing.T, r http.Handler, req *http.Request) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func createDataset(t *testing.T, r http.Handler) dtos.Dataset {
	t.Helper()
	rec := do(t, r, httptest.NewRequest(http.MethodPost, "/api/datasets", strings.NewReader(`{"name":"`+dsName+`"}`)))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var ds dtos.Dataset
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &ds))
	return ds
}

func manifestCSV(t *testing.T) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, manifest.WriteCSV(&buf, []manifest.Row{
		{Dataset: dsName},
		{Model: "City"},
		{Property: "name", Type: "string"},
	}))
	return buf.Bytes()
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) httpapi.ErrorEnvelope {
	t.Helper()
	var env httpapi.ErrorEnvelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	return env
}

func TestStructureController_CreateDatasetValidates(t *testing.T) {
	r := newRouter(t, 0)
	rec := do(t, r, httptest.NewRequest(http.MethodPost, "/api/datasets", strings.NewReader(`{"name":""}`)))
	require.Equal(t, http.StatusBadRequest, rec.Code)
	env := decodeError(t, rec)
	require.Equal(t, "STRUCTURE_INVALID_REQUEST", env.Code)
	require.Equal(t, "name is a required field", env.Message)

	rec = do(t, r, httptest.NewRequest(http.MethodPost, "/api/datasets", strings.NewReader(`{`)))
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Equal(t, "STRUCTURE_INVALID_BODY", decodeError(t, rec).Code)
}

func TestStructureController_ImportRawBody(t *testing.T) {
	r := newRouter(t, 0)
	ds := createDataset(t, r)

	url := fmt.Sprintf("/api/datasets/%d/structure?filename=manifest.csv", ds.ID)
	rec := do(t, r, httptest.NewRequest(http.MethodPost, url, bytes.NewReader(manifestCSV(t))))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var res services.ImportResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
	require.Equal(t, ds.ID, res.DatasetID)
	require.Equal(t, 3, res.Created)
	require.Empty(t, res.Errors)
}

func TestStructureController_ImportMultipart(t *testing.T) {
	r := newRouter(t, 0)
	ds := createDataset(t, r)

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	fw, err := mw.CreateFormFile("file", "manifest.csv")
	require.NoError(t, err)
	_, err = fw.Write(manifestCSV(t))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, fmt.Sprintf("/api/datasets/%d/structure", ds.ID), &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rec := do(t, r, req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = do(t, r, httptest.NewRequest(http.MethodGet, fmt.Sprintf("/api/datasets/%d/comments", ds.ID), nil))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var comments []dtos.Comment
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &comments))
	require.Empty(t, comments)
}

func TestStructureController_ImportTooLarge(t *testing.T) {
	r := newRouter(t, 16)
	ds := createDataset(t, r)

	rec := do(t, r, httptest.NewRequest(http.MethodPost, fmt.Sprintf("/api/datasets/%d/structure", ds.ID), bytes.NewReader(manifestCSV(t))))
	require.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
	require.Equal(t, "STRUCTURE_TOO_LARGE", decodeError(t, rec).Code)
}

func TestStructureController_ImportUnknownDataset(t *testing.T) {
	r := newRouter(t, 0)
	rec := do(t, r, httptest.NewRequest(http.MethodPost, "/api/datasets/404/structure", bytes.NewReader(manifestCSV(t))))
	require.Equal(t, http.StatusNotFound, rec.Code)
	require.Equal(t, "STRUCTURE_NOT_FOUND", decodeError(t, rec).Code)
}

func TestStructureController_ImportUnsupportedFormat(t *testing.T) {
	r := newRouter(t, 0)
	ds := createDataset(t, r)
	rec := do(t, r, httptest.NewRequest(http.MethodPost, fmt.Sprintf("/api/datasets/%d/structure?format=ods", ds.ID), bytes.NewReader(manifestCSV(t))))
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Equal(t, "STRUCTURE_INVALID_REQUEST", decodeError(t, rec).Code)
}

func TestStructureController_Export(t *testing.T) {
	r := newRouter(t, 0)
	ds := createDataset(t, r)
	rec := do(t, r, httptest.NewRequest(http.MethodPost, fmt.Sprintf("/api/datasets/%d/structure", ds.ID), bytes.NewReader(manifestCSV(t))))
	require.Equal(t, http.StatusOK, rec.Code)

	rec = do(t, r, httptest.NewRequest(http.MethodGet, fmt.Sprintf("/api/datasets/%d/structure.csv", ds.ID), nil))
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "text/csv; charset=utf-8", rec.Header().Get("Content-Type"))
	require.Contains(t, rec.Header().Get("Content-Disposition"), fmt.Sprintf("dataset-%d.csv", ds.ID))
	require.True(t, strings.HasPrefix(rec.Body.String(), strings.Join(manifest.Header, ",")))
	require.Contains(t, rec.Body.String(), "City")

	rec = do(t, r, httptest.NewRequest(http.MethodGet, fmt.Sprintf("/api/datasets/%d/structure.xlsx", ds.ID), nil))
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, manifest.FormatXLSX, manifest.DetectFormat(rec.Body.Bytes(), ""))
}

func TestStructureController_Versions(t *testing.T) {
	r := newRouter(t, 0)
	ds := createDataset(t, r)
	rec := do(t, r, httptest.NewRequest(http.MethodPost, fmt.Sprintf("/api/datasets/%d/structure", ds.ID), bytes.NewReader(manifestCSV(t))))
	require.Equal(t, http.StatusOK, rec.Code)

	versionsURL := fmt.Sprintf("/api/datasets/%d/versions", ds.ID)
	rec = do(t, r, httptest.NewRequest(http.MethodPost, versionsURL, strings.NewReader(`{"name":"v1"}`)))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var v dtos.Version
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v))
	require.Equal(t, "v1", v.Name)
	require.Equal(t, 4, v.Frozen)

	rec = do(t, r, httptest.NewRequest(http.MethodPost, versionsURL, strings.NewReader(`{"name":"v2"}`)))
	require.Equal(t, http.StatusConflict, rec.Code)
	require.Equal(t, "STRUCTURE_NO_DRAFTS", decodeError(t, rec).Code)

	rec = do(t, r, httptest.NewRequest(http.MethodGet, versionsURL, nil))
	require.Equal(t, http.StatusOK, rec.Code)
	var versions []dtos.Version
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &versions))
	require.Len(t, versions, 1)
}

func TestStructureController_CommentsQueryValidation(t *testing.T) {
	r := newRouter(t, 0)
	ds := createDataset(t, r)

	rec := do(t, r, httptest.NewRequest(http.MethodGet, fmt.Sprintf("/api/datasets/%d/comments?kind=model", ds.ID), nil))
	require.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, r, httptest.NewRequest(http.MethodGet, fmt.Sprintf("/api/datasets/%d/comments?kind=model&object_id=x", ds.ID), nil))
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Equal(t, "STRUCTURE_INVALID_QUERY", decodeError(t, rec).Code)

	rec = do(t, r, httptest.NewRequest(http.MethodGet, fmt.Sprintf("/api/datasets/%d/comments", ds.ID), nil))
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestStructureController_ImportRateLimited(t *testing.T) {
	r := newLimitedRouter(t, ControllerOptions{ImportsPerMinute: 1})
	ds := createDataset(t, r)
	url := fmt.Sprintf("/api/datasets/%d/structure", ds.ID)

	rec := do(t, r, httptest.NewRequest(http.MethodPost, url, bytes.NewReader(manifestCSV(t))))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = do(t, r, httptest.NewRequest(http.MethodPost, url, bytes.NewReader(manifestCSV(t))))
	require.Equal(t, http.StatusTooManyRequests, rec.Code)
	require.Equal(t, "RATE_LIMITED", decodeError(t, rec).Code)

	rec = do(t, r, httptest.NewRequest(http.MethodGet, fmt.Sprintf("/api/datasets/%d/structure.csv", ds.ID), nil))
	require.Equal(t, http.StatusOK, rec.Code)
}
