package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/macrolab/macindex/internal/composite"
	"github.com/macrolab/macindex/internal/telemetry"
	"github.com/macrolab/macindex/internal/validate"
)

type stubStore struct {
	rows []composite.Row
	err  error
}

func (s *stubStore) LatestSeries(context.Context) ([]composite.Row, error) {
	return s.rows, s.err
}

func TestServer_Health(t *testing.T) {
	srv := NewServer(DefaultServerConfig(), &stubStore{}, nil, nil, nil)

	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "ok")
}

func TestServer_LatestSeries(t *testing.T) {
	store := &stubStore{rows: []composite.Row{
		{Date: time.Date(2020, 3, 16, 0, 0, 0, 0, time.UTC), MACScore: 0.31, Status: composite.StatusStretched},
	}}
	srv := NewServer(DefaultServerConfig(), store, nil, nil, nil)

	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/series/latest", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var payload struct {
		Count int             `json:"count"`
		Rows  []composite.Row `json:"rows"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &payload))
	require.Equal(t, 1, payload.Count)
	assert.Equal(t, 0.31, payload.Rows[0].MACScore)
	assert.Equal(t, composite.StatusStretched, payload.Rows[0].Status)
}

func TestServer_ValidationBeforeRunIs404(t *testing.T) {
	srv := NewServer(DefaultServerConfig(), &stubStore{}, nil, nil, nil)

	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/validation", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestServer_ValidationMetrics(t *testing.T) {
	metrics := &validate.Metrics{TotalEvents: 9, DetectedEvents: 7, TruePositiveRate: 7.0 / 9.0}
	srv := NewServer(DefaultServerConfig(), &stubStore{}, metrics, nil, nil)

	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/validation", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var got validate.Metrics
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, 9, got.TotalEvents)
	assert.Equal(t, 7, got.DetectedEvents)
}

func TestServer_MetricsEndpoint(t *testing.T) {
	m := telemetry.NewMetrics()
	m.DatesProcessed.Inc()
	srv := NewServer(DefaultServerConfig(), &stubStore{}, nil, m, nil)

	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "macindex_backtest_dates_total")
}

func TestServer_StoreErrorIs500(t *testing.T) {
	srv := NewServer(DefaultServerConfig(), &stubStore{err: assert.AnError}, nil, nil, nil)

	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/series/latest", nil))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}
