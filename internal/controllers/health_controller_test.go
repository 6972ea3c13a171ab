package controllers

import (
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	json "github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixedCounter int

func (f fixedCounter) Active() int { return int(f) }

func newTestHealth(t *testing.T, monitors, fetches int) *HealthController {
	t.Helper()
	return &HealthController{
		monitors:  fixedCounter(monitors),
		fetches:   fixedCounter(fetches),
		capacity:  5,
		dataDir:   t.TempDir(),
		startTime: time.Now().Add(-90 * time.Minute),
	}
}

func probe(hc *HealthController, method string) (*httptest.ResponseRecorder, healthResponse) {
	rr := httptest.NewRecorder()
	hc.Health(rr, httptest.NewRequest(method, "/health", nil))
	var resp healthResponse
	_ = json.Unmarshal(rr.Body.Bytes(), &resp)
	return rr, resp
}

func TestHealth_ReportsSchedulerAndPool(t *testing.T) {
	rr, resp := probe(newTestHealth(t, 4, 2), http.MethodGet)

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "application/json", rr.Header().Get("Content-Type"))
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, "ok", resp.Storage)
	assert.Equal(t, 4, resp.ActiveMonitors)
	assert.Equal(t, 2, resp.ActiveFetches)
	assert.Equal(t, 5, resp.FetchCapacity)
	assert.Equal(t, "1h30m0s", resp.Uptime)
	assert.GreaterOrEqual(t, resp.UptimeSeconds, 5400.0)
}

func TestHealth_MissingDataDirIsDegraded(t *testing.T) {
	hc := newTestHealth(t, 0, 0)
	hc.dataDir = filepath.Join(hc.dataDir, "gone")

	rr, resp := probe(hc, http.MethodGet)

	assert.Equal(t, http.StatusServiceUnavailable, rr.Code)
	assert.Equal(t, "degraded", resp.Status)
	assert.NotEqual(t, "ok", resp.Storage)
}

func TestHealth_DataDirIsAFile(t *testing.T) {
	hc := newTestHealth(t, 0, 0)
	file := filepath.Join(hc.dataDir, "monitor.json")
	require.NoError(t, os.WriteFile(file, []byte("{}"), 0o644))
	hc.dataDir = file

	rr, _ := probe(hc, http.MethodGet)
	assert.Equal(t, http.StatusServiceUnavailable, rr.Code)
}

func TestHealth_Methods(t *testing.T) {
	hc := newTestHealth(t, 0, 0)

	rr, _ := probe(hc, http.MethodHead)
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Zero(t, rr.Body.Len())

	rr, _ = probe(hc, http.MethodPost)
	assert.Equal(t, http.StatusMethodNotAllowed, rr.Code)
}
