package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"github.com/winisorts/classifier-api/internal/domain/service"
)

// HealthHandler handles health check endpoints
type HealthHandler struct {
	bundle *service.Bundle
	db     *gorm.DB
	redis  *redis.Client
}

// NewHealthHandler creates a new health handler. db and redis are optional.
func NewHealthHandler(bundle *service.Bundle, db *gorm.DB, redis *redis.Client) *HealthHandler {
	return &HealthHandler{
		bundle: bundle,
		db:     db,
		redis:  redis,
	}
}

// LivenessStatus represents the liveness response
type LivenessStatus struct {
	Status string `json:"status"`
	TS     int64  `json:"ts"`
}

// ReadinessStatus represents the readiness response
type ReadinessStatus struct {
	Status     string            `json:"status"`
	Components map[string]string `json:"components"`
}

// Health handles GET /health. It reports process liveness only.
func (h *HealthHandler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, LivenessStatus{
		Status: "ok",
		TS:     time.Now().Unix(),
	})
}

// Ready handles GET /ready
func (h *HealthHandler) Ready(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	components := make(map[string]string)
	ready := true

	if h.bundle != nil {
		components["models"] = "ok"
	} else {
		components["models"] = "not loaded"
		ready = false
	}

	// Check database
	if h.db != nil {
		sqlDB, err := h.db.DB()
		if err != nil {
			components["database"] = "error: " + err.Error()
			ready = false
		} else if err := sqlDB.PingContext(ctx); err != nil {
			components["database"] = "error: " + err.Error()
			ready = false
		} else {
			components["database"] = "ok"
		}
	} else {
		components["database"] = "not configured"
	}

	// Check Redis
	if h.redis != nil {
		if err := h.redis.Ping(ctx).Err(); err != nil {
			components["redis"] = "error: " + err.Error()
			ready = false
		} else {
			components["redis"] = "ok"
		}
	} else {
		components["redis"] = "not configured"
	}

	status := "ready"
	httpStatus := http.StatusOK
	if !ready {
		status = "not ready"
		httpStatus = http.StatusServiceUnavailable
	}

	c.JSON(httpStatus, ReadinessStatus{
		Status:     status,
		Components: components,
	})
}
