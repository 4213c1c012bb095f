package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/atviriduomenys/katalogas-sub000/pkg/httpapi"
)

func limited(cfg RateLimitConfig) http.Handler {
	return RateLimit(cfg)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))
}

func request(addr string) *http.Request {
	req := httptest.NewRequest(http.MethodPost, "/api/datasets/1/structure", nil)
	req.RemoteAddr = addr
	return req
}

func TestRateLimit_RejectsOverBudget(t *testing.T) {
	h := limited(RateLimitConfig{RequestsPerPeriod: 2, Period: time.Minute})

	for i := 0; i < 2; i++ {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, request("10.0.0.1:1000"))
		require.Equal(t, http.StatusNoContent, rec.Code)
	}

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, request("10.0.0.1:1000"))
	require.Equal(t, http.StatusTooManyRequests, rec.Code)
	require.Equal(t, "0", rec.Header().Get("X-RateLimit-Remaining"))
	var env httpapi.ErrorEnvelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	require.Equal(t, "RATE_LIMITED", env.Code)

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, request("10.0.0.2:1000"))
	require.Equal(t, http.StatusNoContent, rec.Code)
}

func TestRateLimit_ZeroBudgetDisables(t *testing.T) {
	h := limited(RateLimitConfig{})
	for i := 0; i < 5; i++ {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, request("10.0.0.1:1000"))
		require.Equal(t, http.StatusNoContent, rec.Code)
	}
}

func TestEndpointKeyFunc(t *testing.T) {
	key := EndpointKeyFunc("structure.import")(request("10.0.0.9:5555"))
	require.Equal(t, "structure.import:10.0.0.9", key)
}

func TestNewRedisStore_BadURL(t *testing.T) {
	_, err := NewRedisStore("not a url")
	require.Error(t, err)
}
