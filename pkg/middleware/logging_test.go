package middleware

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"

	"github.com/atviriduomenys/katalogas-sub000/pkg/composables"
	"github.com/atviriduomenys/katalogas-sub000/pkg/httpapi"
)

func quietLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

func TestWithLogger_PropagatesRequestID(t *testing.T) {
	var seen string
	r := mux.NewRouter()
	r.Use(WithLogger(quietLogger(), DefaultLoggerOptions()))
	r.HandleFunc("/api/ping", func(w http.ResponseWriter, r *http.Request) {
		seen = composables.UseRequestID(r.Context())
		require.NotNil(t, composables.UseLogger(r.Context()))
		w.WriteHeader(http.StatusNoContent)
	})

	req := httptest.NewRequest(http.MethodGet, "/api/ping", nil)
	req.Header.Set("X-Request-ID", "req-1")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	require.Equal(t, http.StatusNoContent, rec.Code)
	require.Equal(t, "req-1", seen)
	require.Equal(t, "req-1", rec.Header().Get("X-Request-Id"))
}

func TestWithLogger_GeneratesRequestID(t *testing.T) {
	r := mux.NewRouter()
	r.Use(WithLogger(quietLogger(), DefaultLoggerOptions()))
	r.HandleFunc("/x", func(w http.ResponseWriter, r *http.Request) {})

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/x", nil))
	require.Len(t, rec.Header().Get("X-Request-Id"), 36)
}

func TestWithLogger_RecoversPanicWithEnvelope(t *testing.T) {
	r := mux.NewRouter()
	r.Use(WithLogger(quietLogger(), DefaultLoggerOptions()))
	r.HandleFunc("/api/boom", func(w http.ResponseWriter, r *http.Request) { panic("boom") })
	r.HandleFunc("/boom", func(w http.ResponseWriter, r *http.Request) { panic("boom") })

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/boom", nil)
	req.Header.Set("X-Request-ID", "req-2")
	r.ServeHTTP(rec, req)
	require.Equal(t, http.StatusInternalServerError, rec.Code)
	var env httpapi.ErrorEnvelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	require.Equal(t, "INTERNAL_SERVER_ERROR", env.Code)
	require.Equal(t, "req-2", env.Meta["request_id"])

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/boom", nil))
	require.Equal(t, http.StatusInternalServerError, rec.Code)
	require.Contains(t, rec.Body.String(), "Internal Server Error")
}

func TestResponseCaptureWriter_LimitsCapturedBody(t *testing.T) {
	rec := httptest.NewRecorder()
	w := wrapResponseWriter(rec, 4)
	_, err := w.Write([]byte("abcdef"))
	require.NoError(t, err)
	require.Equal(t, "abcd", w.body.String())
	require.Equal(t, "abcdef", rec.Body.String())
	require.Equal(t, http.StatusOK, w.Status())
}

func TestShouldLogBody(t *testing.T) {
	require.True(t, shouldLogBody("application/json; charset=utf-8"))
	require.False(t, shouldLogBody("text/csv"))
	require.False(t, shouldLogBody("multipart/form-data; boundary=x"))
}
