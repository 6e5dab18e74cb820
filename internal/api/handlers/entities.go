package handlers

import (
	"net/http"
	"sort"

	"github.com/freellm/freellm-backend-go/internal/core/entities"
	apperrors "github.com/freellm/freellm-backend-go/pkg/errors"
	"github.com/gin-gonic/gin"
)

// ListEntities returns the currently resolved controllable set.
func (h *Handlers) ListEntities(c *gin.Context) {
	includeSensors := c.DefaultQuery("sensors", "true") == "true"

	resolved, err := h.resolver.Resolve(c.Request.Context(), includeSensors)
	if err != nil {
		h.logger.WithError(err).Error("Entity resolution failed")
		h.respondError(c, apperrors.WithDetails(apperrors.ErrUpstream, err.Error()))
		return
	}

	list := make([]entities.ControllableEntity, 0, len(resolved))
	for _, e := range resolved {
		list = append(list, e)
	}
	sort.Slice(list, func(i, j int) bool { return list[i].EntityID < list[j].EntityID })

	c.JSON(http.StatusOK, gin.H{
		"count":    len(list),
		"entities": list,
	})
}

// EntityContext returns the rendered prompt context block, mainly for
// debugging prompt composition.
func (h *Handlers) EntityContext(c *gin.Context) {
	context, err := h.resolver.BuildContext(c.Request.Context())
	if err != nil {
		h.respondError(c, apperrors.WithDetails(apperrors.ErrUpstream, err.Error()))
		return
	}
	c.JSON(http.StatusOK, gin.H{"context": context})
}
