package providers

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordedRequest struct {
	endpoint string
	status   int
}

type requestRecorder struct {
	requests  []recordedRequest
	durations []string
}

func (m *requestRecorder) IncRequestsTotal(endpoint string, status int) {
	m.requests = append(m.requests, recordedRequest{endpoint: endpoint, status: status})
}

func (m *requestRecorder) ObserveRequestDuration(endpoint string, _ time.Duration) {
	m.durations = append(m.durations, endpoint)
}

func serveThrough(h http.Handler, method, target string) *httptest.ResponseRecorder {
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(method, target, nil))
	return rr
}

func TestMetricsMiddleware_LabelsByMatchedPattern(t *testing.T) {
	rec := &requestRecorder{}
	mux := http.NewServeMux()
	mux.HandleFunc("GET /monitors/status", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusCreated)
	})

	serveThrough(MetricsMiddleware(rec, mux), http.MethodGet, "/monitors/status?user_id=42")

	require.Len(t, rec.requests, 1)
	assert.Equal(t, "GET /monitors/status", rec.requests[0].endpoint)
	assert.Equal(t, http.StatusCreated, rec.requests[0].status)
	assert.Equal(t, []string{"GET /monitors/status"}, rec.durations)
}

func TestMetricsMiddleware_UnknownPathIsUnmatched(t *testing.T) {
	rec := &requestRecorder{}
	mux := http.NewServeMux()
	mux.HandleFunc("GET /monitors/status", func(w http.ResponseWriter, r *http.Request) {})

	rr := serveThrough(MetricsMiddleware(rec, mux), http.MethodGet, "/monitors/12345")

	assert.Equal(t, http.StatusNotFound, rr.Code)
	require.Len(t, rec.requests, 1)
	assert.Equal(t, unmatchedEndpoint, rec.requests[0].endpoint)
	assert.Equal(t, http.StatusNotFound, rec.requests[0].status)
}

func TestMetricsMiddleware_DefaultStatus200(t *testing.T) {
	rec := &requestRecorder{}
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("ok"))
	})

	serveThrough(MetricsMiddleware(rec, handler), http.MethodGet, "/settings")

	require.Len(t, rec.requests, 1)
	assert.Equal(t, http.StatusOK, rec.requests[0].status)
}

func TestStatusWriter_WriteHeader(t *testing.T) {
	rr := httptest.NewRecorder()
	sw := &statusWriter{ResponseWriter: rr, status: http.StatusOK}

	sw.WriteHeader(http.StatusNotFound)
	assert.Equal(t, http.StatusNotFound, sw.status)
	assert.Equal(t, http.StatusNotFound, rr.Code)
}
