package handler

import (
	"context"
	"net/http"
	"runtime"
	"sort"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/pdv/backend/internal/infrastructure/scheduler"
	"github.com/pdv/backend/internal/interfaces/http/dto"
	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"
)

const healthCheckTimeout = 2 * time.Second

// HealthCheck reports whether a dependency is reachable
type HealthCheck func(ctx context.Context) error

// JobReporter exposes the background job snapshot
type JobReporter interface {
	Status() []scheduler.JobStatus
}

// HealthHandler serves liveness and dependency status
type HealthHandler struct {
	BaseHandler
	version   string
	startTime time.Time
	checks    map[string]HealthCheck
	jobs      JobReporter
}

// NewHealthHandler creates a new HealthHandler. jobs may be nil.
func NewHealthHandler(version string, checks map[string]HealthCheck, jobs JobReporter) *HealthHandler {
	return &HealthHandler{
		version:   version,
		startTime: time.Now(),
		checks:    checks,
		jobs:      jobs,
	}
}

// CheckResult is the outcome of one dependency check
type CheckResult struct {
	Status  string `json:"status" example:"up"`
	Latency string `json:"latency" example:"1.2ms"`
	Error   string `json:"error,omitempty"`
}

// HealthResponse is the basic health payload
type HealthResponse struct {
	Status  string                 `json:"status" example:"ok"`
	Version string                 `json:"version" example:"1.0.0"`
	Uptime  string                 `json:"uptime" example:"1h30m45s"`
	Checks  map[string]CheckResult `json:"checks"`
}

// SystemStats is a host resource snapshot
type SystemStats struct {
	GoVersion     string  `json:"go_version" example:"go1.25.5"`
	Goroutines    int     `json:"goroutines"`
	HeapAlloc     uint64  `json:"heap_alloc_bytes"`
	CPUPercent    float64 `json:"cpu_percent"`
	MemoryPercent float64 `json:"memory_percent"`
	MemoryTotal   uint64  `json:"memory_total_bytes"`
}

// HealthDetailsResponse adds host statistics and background jobs
type HealthDetailsResponse struct {
	HealthResponse
	System SystemStats           `json:"system"`
	Jobs   []scheduler.JobStatus `json:"jobs"`
}

// Health godoc
// @ID           getHealth
// @Summary      Health check
// @Description  Pings the database and Redis; 503 when any of them is down
// @Tags         system
// @Produce      json
// @Success      200 {object} APIResponse[HealthResponse]
// @Failure      503 {object} APIResponse[HealthResponse]
// @Router       /health [get]
func (h *HealthHandler) Health(c *gin.Context) {
	resp := h.run(c.Request.Context())
	c.JSON(statusOf(resp), dto.NewSuccessResponse(resp))
}

// Details godoc
// @ID           getHealthDetails
// @Summary      Detailed health check
// @Description  Includes host CPU and memory usage and the scheduler job status
// @Tags         system
// @Produce      json
// @Success      200 {object} APIResponse[HealthDetailsResponse]
// @Failure      503 {object} APIResponse[HealthDetailsResponse]
// @Router       /health/details [get]
func (h *HealthHandler) Details(c *gin.Context) {
	ctx := c.Request.Context()
	resp := HealthDetailsResponse{
		HealthResponse: h.run(ctx),
		System:         h.system(ctx),
		Jobs:           []scheduler.JobStatus{},
	}
	if h.jobs != nil {
		resp.Jobs = h.jobs.Status()
	}
	c.JSON(statusOf(resp.HealthResponse), dto.NewSuccessResponse(resp))
}

func (h *HealthHandler) run(ctx context.Context) HealthResponse {
	ctx, cancel := context.WithTimeout(ctx, healthCheckTimeout)
	defer cancel()

	names := make([]string, 0, len(h.checks))
	for name := range h.checks {
		names = append(names, name)
	}
	sort.Strings(names)

	results := make([]CheckResult, len(names))
	var wg sync.WaitGroup
	for i, name := range names {
		wg.Add(1)
		go func(i int, check HealthCheck) {
			defer wg.Done()
			start := time.Now()
			result := CheckResult{Status: "up"}
			if err := check(ctx); err != nil {
				result.Status = "down"
				result.Error = err.Error()
			}
			result.Latency = time.Since(start).Round(time.Microsecond).String()
			results[i] = result
		}(i, h.checks[name])
	}
	wg.Wait()

	resp := HealthResponse{
		Status:  "ok",
		Version: h.version,
		Uptime:  time.Since(h.startTime).Round(time.Second).String(),
		Checks:  make(map[string]CheckResult, len(names)),
	}
	for i, name := range names {
		resp.Checks[name] = results[i]
		if results[i].Status != "up" {
			resp.Status = "degraded"
		}
	}
	return resp
}

func (h *HealthHandler) system(ctx context.Context) SystemStats {
	var ms runtime.MemStats
	runtime.ReadMemStats(&ms)
	stats := SystemStats{
		GoVersion:  runtime.Version(),
		Goroutines: runtime.NumGoroutine(),
		HeapAlloc:  ms.HeapAlloc,
	}
	if percents, err := cpu.PercentWithContext(ctx, 0, false); err == nil && len(percents) > 0 {
		stats.CPUPercent = percents[0]
	}
	if vm, err := mem.VirtualMemoryWithContext(ctx); err == nil {
		stats.MemoryPercent = vm.UsedPercent
		stats.MemoryTotal = vm.Total
	}
	return stats
}

func statusOf(resp HealthResponse) int {
	if resp.Status == "ok" {
		return http.StatusOK
	}
	return http.StatusServiceUnavailable
}

// HealthRoutes registers the public health endpoints on the engine root
func HealthRoutes(engine *gin.Engine, h *HealthHandler, metrics http.Handler) {
	engine.GET("/health", h.Health)
	engine.GET("/health/details", h.Details)
	if metrics != nil {
		engine.GET("/metrics", gin.WrapH(metrics))
	}
}
