package health

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vladislavdragonenkov/orderengine/internal/domain"
)

func okCheck(context.Context) error { return nil }

func TestHealthHandler(t *testing.T) {
	handler := NewHandler("v1.0.0")
	handler.RegisterChecker("test-healthy", NewSimpleChecker("test", okCheck))

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	w := httptest.NewRecorder()

	handler.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)

	var response Response
	require.NoError(t, json.NewDecoder(w.Body).Decode(&response))
	assert.Equal(t, StatusHealthy, response.Status)
	assert.Equal(t, "v1.0.0", response.Version)
	assert.Len(t, response.Checks, 1)
}

func TestHealthHandler_Unhealthy(t *testing.T) {
	handler := NewHandler("v1.0.0")
	handler.RegisterChecker("test-unhealthy", NewSimpleChecker("test", func(context.Context) error {
		return errors.New("service unavailable")
	}))

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	w := httptest.NewRecorder()

	handler.ServeHTTP(w, req)

	require.Equal(t, http.StatusServiceUnavailable, w.Code)

	var response Response
	require.NoError(t, json.NewDecoder(w.Body).Decode(&response))
	assert.Equal(t, StatusUnhealthy, response.Status)
	assert.Equal(t, "service unavailable", response.Checks["test-unhealthy"].Message)
}

func TestHealthHandler_DegradedStillServes(t *testing.T) {
	handler := NewHandler("v1.0.0")
	handler.RegisterChecker("storage", NewSimpleChecker("storage", okCheck))
	handler.RegisterChecker("outbox", NewOutboxBacklogChecker("outbox", stubStats{
		stats: domain.OutboxStats{PendingCount: 10, OldestPendingAt: time.Now().UTC()},
	}, 5, 0))

	response := handler.Evaluate(context.Background())
	assert.Equal(t, StatusDegraded, response.Status)

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestLivenessHandler(t *testing.T) {
	w := httptest.NewRecorder()
	LivenessHandler(w, httptest.NewRequest(http.MethodGet, "/livez", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "ok", w.Body.String())
}

func TestReadinessHandler(t *testing.T) {
	handler := NewHandler("v1.0.0")
	handler.RegisterChecker("test", NewSimpleChecker("test", okCheck))

	w := httptest.NewRecorder()
	handler.ReadinessHandler(w, httptest.NewRequest(http.MethodGet, "/readyz", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "ready", w.Body.String())
}

func TestReadinessHandler_NotReady(t *testing.T) {
	handler := NewHandler("v1.0.0")
	handler.RegisterChecker("test", NewSimpleChecker("test", func(context.Context) error {
		return errors.New("not ready")
	}))

	w := httptest.NewRecorder()
	handler.ReadinessHandler(w, httptest.NewRequest(http.MethodGet, "/readyz", nil))

	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Equal(t, "not ready", w.Body.String())
}

func TestStorageChecker(t *testing.T) {
	healthy := NewStorageChecker("postgres", stubPinger{})
	assert.Equal(t, StatusHealthy, healthy.Check(context.Background()).Status)

	broken := NewStorageChecker("postgres", stubPinger{err: errors.New("connection refused")})
	check := broken.Check(context.Background())
	assert.Equal(t, StatusUnhealthy, check.Status)
	assert.Equal(t, "connection refused", check.Message)
	assert.Equal(t, "postgres", check.Name)
}

func TestOutboxBacklogChecker(t *testing.T) {
	now := time.Date(2026, 4, 10, 9, 30, 0, 0, time.UTC)

	tests := []struct {
		name   string
		stats  stubStats
		status Status
	}{
		{name: "empty", stats: stubStats{}, status: StatusHealthy},
		{name: "within limits", stats: stubStats{stats: domain.OutboxStats{PendingCount: 3, OldestPendingAt: now.Add(-time.Second)}}, status: StatusHealthy},
		{name: "too many", stats: stubStats{stats: domain.OutboxStats{PendingCount: 11, OldestPendingAt: now}}, status: StatusDegraded},
		{name: "too old", stats: stubStats{stats: domain.OutboxStats{PendingCount: 1, OldestPendingAt: now.Add(-time.Hour)}}, status: StatusDegraded},
		{name: "stats error", stats: stubStats{err: errors.New("db down")}, status: StatusUnhealthy},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			checker := NewOutboxBacklogChecker("outbox", tt.stats, 10, time.Minute)
			checker.now = func() time.Time { return now }

			assert.Equal(t, tt.status, checker.Check(context.Background()).Status)
		})
	}
}

type stubPinger struct{ err error }

func (s stubPinger) Ping(context.Context) error { return s.err }

type stubStats struct {
	stats domain.OutboxStats
	err   error
}

func (s stubStats) Stats() (domain.OutboxStats, error) { return s.stats, s.err }
