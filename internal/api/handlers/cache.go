package handlers

import (
	"net/http"

	apperrors "github.com/freellm/freellm-backend-go/pkg/errors"
	"github.com/gin-gonic/gin"
)

// CacheStats returns response cache counters and recent entries.
func (h *Handlers) CacheStats(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"stats":          h.cache.Stats(),
		"recent_queries": h.cache.RecentQueries(10),
	})
}

type invalidateRequest struct {
	Pattern string `json:"pattern"`
}

// CacheInvalidate removes entries matching a pattern; an empty pattern
// clears the whole cache.
func (h *Handlers) CacheInvalidate(c *gin.Context) {
	var req invalidateRequest
	if err := c.ShouldBindJSON(&req); err != nil && c.Request.ContentLength > 0 {
		h.respondError(c, apperrors.WithDetails(apperrors.ErrBadRequest, "invalid request body"))
		return
	}

	removed := h.cache.Invalidate(req.Pattern)
	h.logger.WithFields(map[string]interface{}{
		"pattern": req.Pattern,
		"removed": removed,
	}).Info("Response cache invalidated")

	c.JSON(http.StatusOK, gin.H{"removed": removed})
}

// CacheCleanup sweeps expired entries.
func (h *Handlers) CacheCleanup(c *gin.Context) {
	removed := h.cache.CleanupExpired()
	c.JSON(http.StatusOK, gin.H{"removed": removed})
}
