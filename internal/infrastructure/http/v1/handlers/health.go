package handlers

import (
	"context"
	"database/sql"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// Version is stamped at build time with -ldflags.
var Version = "dev"

// Database is the part of the store the health checks read.
type Database interface {
	PingContext(ctx context.Context) error
	Stats() sql.DBStats
}

// HealthHandler provides health check endpoints.
type HealthHandler struct {
	db      Database
	driver  string
	started time.Time
}

// NewHealthHandler creates a new health handler.
func NewHealthHandler(db Database, driver string) *HealthHandler {
	return &HealthHandler{db: db, driver: driver, started: time.Now()}
}

// Live reports that the process is up.
// GET /health/live
func (h *HealthHandler) Live(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// Ready reports whether the service can accept traffic.
// GET /health/ready
func (h *HealthHandler) Ready(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	if err := h.db.PingContext(ctx); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status": "error",
			"checks": map[string]string{
				"database": "unhealthy: " + err.Error(),
			},
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status": "ok",
		"checks": map[string]string{
			"database": "healthy",
		},
	})
}

// Info returns application information.
// GET /health/info
func (h *HealthHandler) Info(c *gin.Context) {
	stat := h.db.Stats()

	c.JSON(http.StatusOK, gin.H{
		"app":            "pomegranate",
		"version":        Version,
		"uptime_seconds": int64(time.Since(h.started).Seconds()),
		"database": map[string]any{
			"driver":           h.driver,
			"open_conns":       stat.OpenConnections,
			"in_use":           stat.InUse,
			"idle":             stat.Idle,
			"max_open_conns":   stat.MaxOpenConnections,
			"wait_count":       stat.WaitCount,
			"wait_duration_ms": stat.WaitDuration.Milliseconds(),
		},
	})
}
