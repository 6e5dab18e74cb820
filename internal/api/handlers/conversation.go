package handlers

import (
	"net/http"

	"github.com/freellm/freellm-backend-go/internal/core/metrics"
	apperrors "github.com/freellm/freellm-backend-go/pkg/errors"
	"github.com/gin-gonic/gin"
)

type converseRequest struct {
	Text           string `json:"text" binding:"required"`
	ConversationID string `json:"conversation_id"`
}

// Converse handles one utterance through the full pipeline.
func (h *Handlers) Converse(c *gin.Context) {
	var req converseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.respondError(c, apperrors.WithDetails(apperrors.ErrBadRequest, "text is required"))
		return
	}

	result, err := h.agent.Handle(c.Request.Context(), req.ConversationID, req.Text)
	if err != nil {
		h.logger.WithError(err).Error("Conversation handling failed")
		h.respondError(c, apperrors.WithDetails(apperrors.ErrInternalServer, err.Error()))
		return
	}

	cached := "false"
	if result.Cached {
		cached = "true"
	}
	metrics.Conversations.WithLabelValues(result.Kind, cached).Inc()

	c.JSON(http.StatusOK, result)
}

// ListConversations returns recent persisted conversations.
func (h *Handlers) ListConversations(c *gin.Context) {
	if h.repo == nil {
		c.JSON(http.StatusOK, gin.H{"conversations": []interface{}{}})
		return
	}

	conversations, err := h.repo.ListConversations(c.Request.Context(), 50)
	if err != nil {
		h.logger.WithError(err).Error("Failed to list conversations")
		h.respondError(c, apperrors.WithDetails(apperrors.ErrInternalServer, err.Error()))
		return
	}
	c.JSON(http.StatusOK, gin.H{"conversations": conversations})
}

// GetConversationMessages returns the persisted transcript tail.
func (h *Handlers) GetConversationMessages(c *gin.Context) {
	if h.repo == nil {
		h.respondError(c, apperrors.WithDetails(apperrors.ErrNotFound, "persistence disabled"))
		return
	}

	id := c.Param("id")
	messages, err := h.repo.LoadMessages(c.Request.Context(), id, 100)
	if err != nil {
		h.logger.WithError(err).Error("Failed to load messages")
		h.respondError(c, apperrors.WithDetails(apperrors.ErrInternalServer, err.Error()))
		return
	}
	c.JSON(http.StatusOK, gin.H{"conversation_id": id, "messages": messages})
}

// DeleteConversation removes a conversation from store and memory.
func (h *Handlers) DeleteConversation(c *gin.Context) {
	id := c.Param("id")

	if h.repo != nil {
		if err := h.repo.DeleteConversation(c.Request.Context(), id); err != nil {
			h.logger.WithError(err).Error("Failed to delete conversation")
			h.respondError(c, apperrors.WithDetails(apperrors.ErrInternalServer, err.Error()))
			return
		}
	}
	h.history.Reset(id)

	c.JSON(http.StatusOK, gin.H{"deleted": id})
}
