package handler

import (
	"net/http"
	"runtime"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/use-agent/wxcrawl/models"
)

// Version is reported by the health endpoint.
const Version = "0.1.0"

// SessionCounter reports how many browser sessions are open.
type SessionCounter interface {
	Active() int
}

// Health returns a handler for GET /api/v1/health.
func Health(startTime time.Time) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, models.HealthResponse{
			Status:    "healthy",
			Timestamp: time.Now(),
			Uptime:    time.Since(startTime).Round(time.Second).String(),
			Version:   Version,
		})
	}
}

// Status returns a handler for GET /api/v1/status: uptime, the strategy
// catalog, open sessions and process memory. sessions may be nil.
func Status(strategies []string, sessions SessionCounter, startTime time.Time) gin.HandlerFunc {
	return func(c *gin.Context) {
		var mem runtime.MemStats
		runtime.ReadMemStats(&mem)

		resp := models.StatusResponse{
			Status:     "running",
			Uptime:     time.Since(startTime).Round(time.Second).String(),
			Strategies: strategies,
			Memory: models.MemoryStats{
				HeapAllocBytes: mem.HeapAlloc,
				HeapSysBytes:   mem.HeapSys,
				NumGoroutine:   runtime.NumGoroutine(),
			},
			Timestamp: time.Now(),
		}
		if sessions != nil {
			resp.ActiveSessions = sessions.Active()
		}
		c.JSON(http.StatusOK, resp)
	}
}
