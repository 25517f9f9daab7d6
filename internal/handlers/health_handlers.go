package handlers

import (
	"context"
	"net/http"
	"runtime"
	"time"

	"github.com/labstack/echo/v4"
)

// Pinger is anything whose reachability the health endpoints report.
type Pinger interface {
	Ping(ctx context.Context) error
}

// PingFunc adapts a function to Pinger.
type PingFunc func(ctx context.Context) error

func (f PingFunc) Ping(ctx context.Context) error { return f(ctx) }

// HealthHandlers reports process and dependency health.
type HealthHandlers struct {
	critical map[string]Pinger
	optional map[string]Pinger
	version  string
	started  time.Time
}

// NewHealthHandlers takes the dependencies that gate readiness and those that
// only degrade the service.
func NewHealthHandlers(critical, optional map[string]Pinger, version string, started time.Time) *HealthHandlers {
	return &HealthHandlers{
		critical: critical,
		optional: optional,
		version:  version,
		started:  started,
	}
}

// HealthStatus represents the overall health status
type HealthStatus struct {
	Status     string            `json:"status"`
	Timestamp  string            `json:"timestamp"`
	Services   map[string]string `json:"services"`
	Uptime     string            `json:"uptime"`
	Version    string            `json:"version"`
	Goroutines int               `json:"goroutines"`
}

func (h *HealthHandlers) check(ctx context.Context, deps map[string]Pinger, into map[string]string) bool {
	healthy := true
	for name, dep := range deps {
		if err := dep.Ping(ctx); err != nil {
			into[name] = "unhealthy: " + err.Error()
			healthy = false
			continue
		}
		into[name] = "healthy"
	}
	return healthy
}

// HealthCheck godoc
// @Summary  Dependency health
// @Tags     health
// @Produce  json
// @Success  200 {object} HealthStatus
// @Failure  503 {object} HealthStatus
// @Router   /health [get]
func (h *HealthHandlers) HealthCheck(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 3*time.Second)
	defer cancel()

	health := &HealthStatus{
		Status:     "healthy",
		Timestamp:  time.Now().UTC().Format(time.RFC3339),
		Services:   make(map[string]string),
		Uptime:     time.Since(h.started).Truncate(time.Second).String(),
		Version:    h.version,
		Goroutines: runtime.NumGoroutine(),
	}

	statusCode := http.StatusOK
	if !h.check(ctx, h.optional, health.Services) {
		health.Status = "degraded"
	}
	if !h.check(ctx, h.critical, health.Services) {
		health.Status = "unhealthy"
		statusCode = http.StatusServiceUnavailable
	}
	return c.JSON(statusCode, health)
}

// ReadinessCheck determines if the application is ready to serve traffic
func (h *HealthHandlers) ReadinessCheck(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 3*time.Second)
	defer cancel()

	if !h.check(ctx, h.critical, make(map[string]string)) {
		return c.JSON(http.StatusServiceUnavailable, map[string]string{
			"status":  "not_ready",
			"message": "Critical services unavailable",
		})
	}
	return c.JSON(http.StatusOK, map[string]string{"status": "ready"})
}

// LivenessCheck determines if the application is running (basic liveness probe)
func (h *HealthHandlers) LivenessCheck(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{
		"status":    "alive",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}
