package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"
)

// Health reports service liveness plus host resource usage and the
// upstream event stream state.
func (h *Handlers) Health(c *gin.Context) {
	health := gin.H{
		"status":    "healthy",
		"uptime":    time.Since(h.started).Truncate(time.Second).String(),
		"timestamp": time.Now().UTC(),
	}

	if vm, err := mem.VirtualMemory(); err == nil {
		health["memory"] = gin.H{
			"used_percent": vm.UsedPercent,
			"total_mb":     vm.Total / 1024 / 1024,
			"available_mb": vm.Available / 1024 / 1024,
		}
	}
	if percents, err := cpu.Percent(0, false); err == nil && len(percents) > 0 {
		health["cpu_percent"] = percents[0]
	}

	if h.events != nil {
		connected := h.events.IsConnected()
		health["event_stream"] = connected
		if !connected {
			health["status"] = "degraded"
		}
	}

	c.JSON(http.StatusOK, health)
}
