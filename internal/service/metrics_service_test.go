package service

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetricsServiceSnapshot(t *testing.T) {
	m := NewMetricsService()
	m.ObserveHTTPRequest("GET", "/api/v1/timetables", 200, 4*time.Millisecond)
	m.ObserveHTTPRequest("POST", "/api/v1/timetables/generate", 201, 8*time.Millisecond)
	m.RecordCacheOperation(true, time.Millisecond)
	m.RecordCacheOperation(false, time.Millisecond)
	m.RecordCacheOperation(true, time.Millisecond)
	m.ObserveDBQuery("timetable_save", 10*time.Millisecond)
	m.ObserveTimetableRun("short", 30, map[string]int{"capacity": 2, "teacher_conflict": 1}, time.Millisecond)
	m.ObserveRebalance("ok")
	m.ObserveArchive("rendered", 4)

	snap := m.Snapshot()
	assert.EqualValues(t, 2, snap.RequestsTotal)
	assert.InDelta(t, 6.0, snap.AverageRequestDurationMs, 0.001)
	assert.InDelta(t, 2.0/3.0, snap.CacheHitRatio, 0.001)
	assert.EqualValues(t, 1, snap.DBQueryCount)
	assert.InDelta(t, 10.0, snap.AverageDBQueryDurationMs, 0.001)
	assert.EqualValues(t, 1, snap.TimetableRuns)
	assert.EqualValues(t, 30, snap.PeriodsPlaced)
	assert.EqualValues(t, 3, snap.PeriodsShort)
	assert.EqualValues(t, 1, snap.Rebalances)
	assert.EqualValues(t, 4, snap.ArchivedFiles)
	assert.Positive(t, snap.Goroutines)
}

func TestMetricsServiceExposition(t *testing.T) {
	m := NewMetricsService()
	m.ObserveRebalance("invalid")
	m.RecordCacheOperation(false, time.Millisecond)

	w := httptest.NewRecorder()
	m.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, w.Code)
	body := w.Body.String()
	assert.Contains(t, body, `sma_timetable_rebalances_total{outcome="invalid"} 1`)
	assert.Contains(t, body, `sma_cache_lookups_total{result="miss"} 1`)
	assert.Contains(t, body, "go_goroutines")
}

func TestNilMetricsServiceIsSafe(t *testing.T) {
	var m *MetricsService
	m.ObserveHTTPRequest("GET", "/", 200, time.Millisecond)
	m.RecordCacheOperation(true, time.Millisecond)
	m.ObserveArchive("failed", 0)
	assert.Zero(t, m.Snapshot().RequestsTotal)

	w := httptest.NewRecorder()
	m.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}
