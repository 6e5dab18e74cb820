// Package handlers implements the HTTP API endpoints.
package handlers

import (
	"time"

	"github.com/freellm/freellm-backend-go/internal/config"
	"github.com/freellm/freellm-backend-go/internal/core/conversation"
	"github.com/freellm/freellm-backend-go/internal/core/entities"
	"github.com/freellm/freellm-backend-go/internal/core/respcache"
	"github.com/freellm/freellm-backend-go/internal/database/repositories"
	apperrors "github.com/freellm/freellm-backend-go/pkg/errors"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// ConnectionChecker reports whether the upstream event stream is up.
type ConnectionChecker interface {
	IsConnected() bool
}

// Handlers bundles the dependencies of all endpoints.
type Handlers struct {
	cfg      *config.Config
	agent    *conversation.Agent
	history  *conversation.History
	cache    *respcache.Cache
	resolver *entities.Resolver
	repo     *repositories.ConversationRepository
	events   ConnectionChecker
	logger   *logrus.Logger
	started  time.Time
}

// New creates the handler set. events may be nil when the WebSocket
// listener is disabled.
func New(
	cfg *config.Config,
	agent *conversation.Agent,
	history *conversation.History,
	cache *respcache.Cache,
	resolver *entities.Resolver,
	repo *repositories.ConversationRepository,
	events ConnectionChecker,
	logger *logrus.Logger,
) *Handlers {
	return &Handlers{
		cfg:      cfg,
		agent:    agent,
		history:  history,
		cache:    cache,
		resolver: resolver,
		repo:     repo,
		events:   events,
		logger:   logger,
		started:  time.Now(),
	}
}

// respondError writes an AppError with its status code and a uniform
// body shape across all endpoints.
func (h *Handlers) respondError(c *gin.Context, err *apperrors.AppError) {
	c.JSON(apperrors.GetStatusCode(err), gin.H{"error": err})
}
