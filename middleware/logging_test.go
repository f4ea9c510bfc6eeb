package middleware

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

type recordedRequest struct {
	route  string
	status int
}

type recordingMetrics struct {
	mu       sync.Mutex
	requests []recordedRequest
}

func (m *recordingMetrics) RecordDispatch(string, string, time.Duration) {}
func (m *recordingMetrics) RecordSkip(string, string)                    {}
func (m *recordingMetrics) RecordVote(string, string)                    {}

func (m *recordingMetrics) RecordRequest(route string, status int, _ time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.requests = append(m.requests, recordedRequest{route: route, status: status})
}

func TestRequestLogger(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	metrics := &recordingMetrics{}

	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(RequestLogger(zap.New(core), metrics))
	r.Get("/api/get-response-data/{session_id}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})
	r.Get("/boom", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})
	r.Get("/quiet", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("ok"))
	})

	for _, path := range []string{"/api/get-response-data/20240101_120000", "/boom", "/quiet"} {
		r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, path, nil))
	}

	require.Len(t, metrics.requests, 3)
	assert.Equal(t, recordedRequest{"/api/get-response-data/{session_id}", http.StatusNotFound}, metrics.requests[0])
	assert.Equal(t, recordedRequest{"/boom", http.StatusInternalServerError}, metrics.requests[1])
	assert.Equal(t, recordedRequest{"/quiet", http.StatusOK}, metrics.requests[2])

	entries := logs.All()
	require.Len(t, entries, 3)
	assert.Equal(t, zapcore.InfoLevel, entries[0].Level)
	assert.Equal(t, zapcore.WarnLevel, entries[1].Level)

	fields := entries[0].ContextMap()
	assert.Equal(t, "/api/get-response-data/20240101_120000", fields["path"])
	assert.Equal(t, int64(http.StatusNotFound), fields["status"])
	assert.NotEmpty(t, fields["request_id"])
}

func TestRequestLogger_UnmatchedRouteUsesFixedLabel(t *testing.T) {
	metrics := &recordingMetrics{}

	r := chi.NewRouter()
	r.Use(RequestLogger(zap.NewNop(), metrics))
	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {})

	for i := 0; i < 20; i++ {
		path := fmt.Sprintf("/scan/%d", i)
		r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, path, nil))
	}

	require.Len(t, metrics.requests, 20)
	for _, req := range metrics.requests {
		assert.Equal(t, recordedRequest{"not_found", http.StatusNotFound}, req)
	}
}

func TestRequestLogger_NilMetrics(t *testing.T) {
	h := RequestLogger(zap.NewNop(), nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

	w := httptest.NewRecorder()
	assert.NotPanics(t, func() {
		h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	})
}
