package routes

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/CS-UWC/OralSmart-sub001/pkg/gateway/httpclient"
	"github.com/CS-UWC/OralSmart-sub001/pkg/gateway/middleware"
)

func gateway(t *testing.T, upstream http.Handler, attempts int) *mux.Router {
	t.Helper()
	backend := httptest.NewServer(upstream)
	t.Cleanup(backend.Close)

	router := mux.NewRouter()
	api := router.PathPrefix("/api/v1").Subrouter()
	p := NewProxy("serving", backend.URL+"/", httpclient.New(time.Second), time.Second, attempts, 1<<10)
	RegisterRiskRoutes(api, p)
	RegisterTrainingRoutes(api, p)
	return router
}

func TestForwardPreservesPathQueryAndBody(t *testing.T) {
	var gotPath, gotQuery, gotBody, gotID string
	router := gateway(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath, gotQuery = r.URL.Path, r.URL.RawQuery
		b, _ := io.ReadAll(r.Body)
		gotBody = string(b)
		gotID = r.Header.Get(middleware.RequestIDHeader)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"risk_level":"low"}`))
	}), 1)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/risk/assess?trace=1", strings.NewReader(`{"patient_id":"p"}`))
	req.Header.Set(middleware.RequestIDHeader, "req-1")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "/api/v1/risk/assess", gotPath)
	assert.Equal(t, "trace=1", gotQuery)
	assert.Equal(t, `{"patient_id":"p"}`, gotBody)
	assert.Equal(t, "req-1", gotID)
	assert.JSONEq(t, `{"risk_level":"low"}`, rec.Body.String())
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
}

func TestForwardRetriesIdempotentRequests(t *testing.T) {
	var calls int32
	router := gateway(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) < 3 {
			http.Error(w, "warming up", http.StatusServiceUnavailable)
			return
		}
		w.Write([]byte(`{"mode":"model"}`))
	}), 3)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/model", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
}

func TestForwardRelaysLastFailure(t *testing.T) {
	var calls int32
	router := gateway(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		http.Error(w, "broken", http.StatusInternalServerError)
	}), 2)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/training/jobs", nil))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))

	// writes are never replayed
	atomic.StoreInt32(&calls, 0)
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/v1/training/jobs", strings.NewReader(`{}`)))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestForwardUnavailableBackend(t *testing.T) {
	router := mux.NewRouter()
	RegisterRiskRoutes(router, NewProxy("serving", "http://127.0.0.1:1", httpclient.New(time.Second), time.Second, 1, 0))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/features", nil))
	assert.Equal(t, http.StatusBadGateway, rec.Code)
}

func TestForwardRejectsOversizedBody(t *testing.T) {
	router := gateway(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("oversized body reached the backend")
	}), 1)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/v1/risk/predict", strings.NewReader(strings.Repeat("x", 2048))))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
