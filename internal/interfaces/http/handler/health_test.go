package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/pdv/backend/internal/infrastructure/scheduler"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type staticJobs []scheduler.JobStatus

func (s staticJobs) Status() []scheduler.JobStatus { return s }

func healthEngine(checks map[string]HealthCheck, jobs JobReporter) *gin.Engine {
	engine := gin.New()
	HealthRoutes(engine, NewHealthHandler("1.2.3", checks, jobs), http.NotFoundHandler())
	return engine
}

func up(context.Context) error { return nil }

func TestHealthHandler_Health(t *testing.T) {
	t.Run("all dependencies up", func(t *testing.T) {
		engine := healthEngine(map[string]HealthCheck{"database": up, "redis": up}, nil)

		w := perform(engine, http.MethodGet, "/health", nil)

		require.Equal(t, http.StatusOK, w.Code)
		var got HealthResponse
		require.NoError(t, json.Unmarshal(decode(t, w).Data, &got))
		assert.Equal(t, "ok", got.Status)
		assert.Equal(t, "1.2.3", got.Version)
		assert.Equal(t, "up", got.Checks["database"].Status)
		assert.Equal(t, "up", got.Checks["redis"].Status)
	})

	t.Run("one dependency down", func(t *testing.T) {
		engine := healthEngine(map[string]HealthCheck{
			"database": up,
			"redis": func(context.Context) error {
				return errors.New("dial tcp: connection refused")
			},
		}, nil)

		w := perform(engine, http.MethodGet, "/health", nil)

		require.Equal(t, http.StatusServiceUnavailable, w.Code)
		var got HealthResponse
		require.NoError(t, json.Unmarshal(decode(t, w).Data, &got))
		assert.Equal(t, "degraded", got.Status)
		assert.Equal(t, "down", got.Checks["redis"].Status)
		assert.Contains(t, got.Checks["redis"].Error, "connection refused")
	})

	t.Run("checks are bounded by a timeout", func(t *testing.T) {
		engine := healthEngine(map[string]HealthCheck{
			"database": func(ctx context.Context) error {
				<-ctx.Done()
				return ctx.Err()
			},
		}, nil)

		start := time.Now()
		w := perform(engine, http.MethodGet, "/health", nil)

		assert.Equal(t, http.StatusServiceUnavailable, w.Code)
		assert.Less(t, time.Since(start), healthCheckTimeout+time.Second)
	})
}

func TestHealthHandler_Details(t *testing.T) {
	jobs := staticJobs{{Name: "fiscal-sync", Schedule: "@every 5m", Runs: 3}}
	engine := healthEngine(map[string]HealthCheck{"database": up}, jobs)

	w := perform(engine, http.MethodGet, "/health/details", nil)

	require.Equal(t, http.StatusOK, w.Code)
	var got HealthDetailsResponse
	require.NoError(t, json.Unmarshal(decode(t, w).Data, &got))
	assert.Equal(t, "ok", got.Status)
	assert.NotEmpty(t, got.System.GoVersion)
	assert.Positive(t, got.System.Goroutines)
	require.Len(t, got.Jobs, 1)
	assert.Equal(t, "fiscal-sync", got.Jobs[0].Name)
	assert.Equal(t, int64(3), got.Jobs[0].Runs)
}
