package handler

import (
	"net/http"
	"runtime"
	"time"

	taxonomyapp "github.com/finz/backend/internal/application/taxonomy"
	"github.com/finz/backend/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// SystemHandler handles system-related API endpoints
type SystemHandler struct {
	BaseHandler
	startTime time.Time
}

// NewSystemHandler creates a new SystemHandler
func NewSystemHandler() *SystemHandler {
	return &SystemHandler{
		startTime: time.Now(),
	}
}

// SystemInfoResponse represents the system information response
// @name HandlerSystemInfoResponse
type SystemInfoResponse struct {
	Name      string `json:"name" example:"Finz Backend API"`
	Version   string `json:"version" example:"1.0.0"`
	GoVersion string `json:"go_version" example:"go1.25.5"`
	Uptime    string `json:"uptime" example:"1h30m45s"`
}

// GetSystemInfo godoc
// @ID           getSystemSystemInfo
// @Summary      Get system information
// @Description  Returns basic system information including version and uptime
// @Tags         system
// @Produce      json
// @Success      200 {object} APIResponse[SystemInfoResponse]
// @Failure      500 {object} ErrorResponse
// @Router       /system/info [get]
func (h *SystemHandler) GetSystemInfo(c *gin.Context) {
	info := SystemInfoResponse{
		Name:      "Finz Backend API",
		Version:   "1.0.0",
		GoVersion: runtime.Version(),
		Uptime:    time.Since(h.startTime).Round(time.Second).String(),
	}

	c.JSON(http.StatusOK, dto.NewSuccessResponse(info))
}

// PingResponse represents the ping response
// @name HandlerPingResponse
type PingResponse struct {
	Message   string `json:"message" example:"pong"`
	Timestamp string `json:"timestamp" example:"2026-01-23T12:00:00Z"`
}

// Ping godoc
// @ID           pingSystem
// @Summary      Ping the API
// @Description  Simple ping endpoint to check if the API is responsive
// @Tags         system
// @Produce      json
// @Success      200 {object} APIResponse[PingResponse]
// @Router       /system/ping [get]
func (h *SystemHandler) Ping(c *gin.Context) {
	response := PingResponse{
		Message:   "pong",
		Timestamp: time.Now().Format(time.RFC3339),
	}

	c.JSON(http.StatusOK, dto.NewSuccessResponse(response))
}

// HealthHandler reports liveness and readiness. Readiness requires a
// reachable database and a loaded taxonomy snapshot; a pod that cannot
// resolve rubro identifiers must not receive traffic.
type HealthHandler struct {
	BaseHandler
	db              *gorm.DB
	taxonomyService *taxonomyapp.TaxonomyService
}

// NewHealthHandler creates a new HealthHandler
func NewHealthHandler(db *gorm.DB, taxonomyService *taxonomyapp.TaxonomyService) *HealthHandler {
	return &HealthHandler{
		db:              db,
		taxonomyService: taxonomyService,
	}
}

// HealthResponse represents the health check response
// @name HandlerHealthResponse
type HealthResponse struct {
	Status   string                      `json:"status" example:"ok"`
	Checks   map[string]string           `json:"checks,omitempty"`
	Taxonomy *taxonomyapp.StatusResponse `json:"taxonomy,omitempty"`
}

// Live godoc
// @ID           getHealthLive
// @Summary      Liveness probe
// @Description  Returns 200 while the process is running
// @Tags         system
// @Produce      json
// @Success      200 {object} HealthResponse
// @Router       /health [get]
func (h *HealthHandler) Live(c *gin.Context) {
	c.JSON(http.StatusOK, HealthResponse{Status: "ok"})
}

// Ready godoc
// @ID           getHealthReady
// @Summary      Readiness probe
// @Description  Returns 200 only when the database is reachable and the rubro taxonomy is loaded
// @Tags         system
// @Produce      json
// @Success      200 {object} HealthResponse
// @Failure      503 {object} HealthResponse
// @Router       /ready [get]
func (h *HealthHandler) Ready(c *gin.Context) {
	checks := make(map[string]string)
	healthy := true

	if h.db != nil {
		sqlDB, err := h.db.DB()
		if err == nil {
			err = sqlDB.PingContext(c.Request.Context())
		}
		if err != nil {
			checks["database"] = "unreachable: " + err.Error()
			healthy = false
		} else {
			checks["database"] = "ok"
		}
	}

	var taxonomyStatus *taxonomyapp.StatusResponse
	if h.taxonomyService != nil {
		status := h.taxonomyService.Status()
		taxonomyStatus = &status
		if status.Loaded {
			checks["taxonomy"] = "ok"
		} else {
			checks["taxonomy"] = "not loaded"
			healthy = false
		}
	}

	resp := HealthResponse{
		Status:   "ok",
		Checks:   checks,
		Taxonomy: taxonomyStatus,
	}
	code := http.StatusOK
	if !healthy {
		resp.Status = "unavailable"
		code = http.StatusServiceUnavailable
	}

	c.JSON(code, resp)
}
