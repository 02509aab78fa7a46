package handler

import (
	"context"
	"net/http"
	"runtime"
	"time"

	"github.com/erp/landedcost/internal/infrastructure/persistence"
	"github.com/erp/landedcost/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
)

// DatabasePinger is the part of persistence.Database used by the health checks
type DatabasePinger interface {
	PingContext(ctx context.Context) error
	Stats() (persistence.ConnectionStats, error)
}

// EventBusStats reports delivered and failed event handler runs
type EventBusStats interface {
	Stats() (delivered, failed int64)
}

// HealthHandler serves liveness, readiness and service information
type HealthHandler struct {
	BaseHandler
	db        DatabasePinger
	bus       EventBusStats
	version   string
	startTime time.Time
	timeout   time.Duration
}

// NewHealthHandler creates a new HealthHandler. bus may be nil.
func NewHealthHandler(db DatabasePinger, bus EventBusStats, version string) *HealthHandler {
	return &HealthHandler{
		db:        db,
		bus:       bus,
		version:   version,
		startTime: time.Now(),
		timeout:   2 * time.Second,
	}
}

// HealthResponse represents the health response
type HealthResponse struct {
	Status    string                       `json:"status"`
	Version   string                       `json:"version"`
	GoVersion string                       `json:"go_version"`
	Uptime    string                       `json:"uptime"`
	Database  *persistence.ConnectionStats `json:"database,omitempty"`
	Events    *EventStatsResponse          `json:"events,omitempty"`
}

// EventStatsResponse reports event handler outcomes since start
type EventStatsResponse struct {
	Delivered int64 `json:"delivered"`
	Failed    int64 `json:"failed"`
}

// Live godoc
// @Summary      Liveness check
// @Tags         system
// @Router       /health/live [get]
func (h *HealthHandler) Live(c *gin.Context) {
	c.JSON(http.StatusOK, dto.NewSuccessResponse(gin.H{"status": "ok"}))
}

// Ready godoc
// @Summary      Readiness check
// @Description  Fails with 503 when the database does not answer a ping
// @Tags         system
// @Router       /health/ready [get]
func (h *HealthHandler) Ready(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), h.timeout)
	defer cancel()

	if err := h.db.PingContext(ctx); err != nil {
		h.Error(c, http.StatusServiceUnavailable, dto.ErrCodeInternal, "database unavailable")
		return
	}
	c.JSON(http.StatusOK, dto.NewSuccessResponse(gin.H{"status": "ready"}))
}

// Health godoc
// @Summary      Service health with pool and event statistics
// @Tags         system
// @Router       /health [get]
func (h *HealthHandler) Health(c *gin.Context) {
	resp := HealthResponse{
		Status:    "ok",
		Version:   h.version,
		GoVersion: runtime.Version(),
		Uptime:    time.Since(h.startTime).Round(time.Second).String(),
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), h.timeout)
	defer cancel()
	if err := h.db.PingContext(ctx); err != nil {
		resp.Status = "degraded"
	}
	if stats, err := h.db.Stats(); err == nil {
		resp.Database = &stats
	}
	if h.bus != nil {
		delivered, failed := h.bus.Stats()
		resp.Events = &EventStatsResponse{Delivered: delivered, Failed: failed}
	}

	status := http.StatusOK
	if resp.Status != "ok" {
		status = http.StatusServiceUnavailable
	}
	c.JSON(status, dto.NewSuccessResponse(resp))
}
