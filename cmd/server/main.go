package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/freellm/freellm-backend-go/internal/adapters/homeassistant"
	"github.com/freellm/freellm-backend-go/internal/ai/providers"
	"github.com/freellm/freellm-backend-go/internal/api"
	"github.com/freellm/freellm-backend-go/internal/api/handlers"
	"github.com/freellm/freellm-backend-go/internal/config"
	"github.com/freellm/freellm-backend-go/internal/core/analysis"
	"github.com/freellm/freellm-backend-go/internal/core/colors"
	"github.com/freellm/freellm-backend-go/internal/core/command"
	"github.com/freellm/freellm-backend-go/internal/core/conversation"
	"github.com/freellm/freellm-backend-go/internal/core/entities"
	"github.com/freellm/freellm-backend-go/internal/core/metrics"
	"github.com/freellm/freellm-backend-go/internal/core/prompt"
	"github.com/freellm/freellm-backend-go/internal/core/respcache"
	"github.com/freellm/freellm-backend-go/internal/database"
	"github.com/freellm/freellm-backend-go/internal/database/repositories"
	"github.com/freellm/freellm-backend-go/pkg/logger"
	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	log := logger.New(cfg.Logging.Level, cfg.Logging.Format)
	log.Info("Starting freellm backend")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Persistence.
	db, err := database.Initialize(cfg.Database, log)
	if err != nil {
		log.WithError(err).Fatal("Database initialization failed")
	}
	defer db.Close()
	repo := repositories.NewConversationRepository(db, log)

	// Home Assistant adapter.
	restClient := homeassistant.NewRESTClient(cfg.HomeAssistant.URL, cfg.HomeAssistant.Token, log)
	registry := homeassistant.NewRegistry(restClient, config.Duration(cfg.HomeAssistant.RegistryRefresh, 5*time.Minute), log)
	if err := registry.Refresh(ctx); err != nil {
		log.WithError(err).Warn("Initial area mapping refresh failed, continuing")
	}

	locationName := "Home"
	if haCfg, err := restClient.GetConfig(ctx); err == nil && haCfg.LocationName != "" {
		locationName = haCfg.LocationName
	}

	// Core pipeline.
	snapshots := entities.NewSnapshotCache()
	resolver := entities.NewResolver(
		registry, snapshots,
		cfg.Conversation.SelectedEntities, cfg.Conversation.SelectedAreas,
		cfg.Conversation.EnableSensors, log,
	)
	colorManager := colors.NewManager(cfg.Conversation.CustomColors)
	analyzer := analysis.New(registry, log)
	optimizer := prompt.New(cfg.Conversation.CompressionLevel, log)
	cache := respcache.New(
		time.Duration(cfg.Cache.MaxAgeSeconds)*time.Second,
		cfg.Cache.MaxEntries, log,
	)
	executor := command.NewExecutor(resolver, registry, analyzer, colorManager, restClient, log)
	history := conversation.NewHistory(cfg.Conversation.HistoryLimit, repo)

	provider := metrics.InstrumentProvider(providers.NewLLM7Provider(cfg.AI, log))
	agent := conversation.NewAgent(
		cfg.Conversation, cfg.AI, cfg.Cache.Enabled, locationName,
		provider, resolver, optimizer, cache, executor, history, log,
	)

	metrics.RegisterCacheMetrics(cache)
	metrics.RegisterSnapshotMetrics(snapshots)

	// Event stream keeps the snapshot cache and area mapping fresh.
	var events *homeassistant.WSClient
	if cfg.HomeAssistant.EventsEnabled {
		events, err = homeassistant.NewWSClient(
			cfg.HomeAssistant.URL, cfg.HomeAssistant.Token,
			func(eventType string, _ *homeassistant.StateChangedEvent) {
				switch eventType {
				case "area_registry_updated", "device_registry_updated", "entity_registry_updated":
					snapshots.Invalidate()
					if err := registry.Refresh(context.Background()); err != nil {
						log.WithError(err).Warn("Area mapping refresh failed")
					}
				}
			},
			log,
		)
		if err != nil {
			log.WithError(err).Fatal("WebSocket client setup failed")
		}
		go events.Run(ctx)
	}

	// Periodic maintenance.
	scheduler := cron.New()
	interval := cfg.Cache.CleanupInterval
	if interval == "" {
		interval = "@every 1m"
	}
	if _, err := scheduler.AddFunc(interval, func() {
		if removed := cache.CleanupExpired(); removed > 0 {
			log.WithField("removed", removed).Debug("Swept expired cache entries")
		}
	}); err != nil {
		log.WithError(err).Fatal("Invalid cache cleanup schedule")
	}
	if _, err := scheduler.AddFunc("@daily", func() {
		if _, err := repo.CleanupOld(context.Background(), cfg.Database.RetentionDays); err != nil {
			log.WithError(err).Warn("Conversation cleanup failed")
		}
	}); err != nil {
		log.WithError(err).Fatal("Invalid retention schedule")
	}
	scheduler.Start()
	defer scheduler.Stop()

	// HTTP server.
	var eventsChecker handlers.ConnectionChecker
	if events != nil {
		eventsChecker = events
	}
	h := handlers.New(cfg, agent, history, cache, resolver, repo, eventsChecker, log)
	router := api.NewRouter(cfg, h, log)

	srv := &http.Server{
		Addr:    fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler: router,
	}

	go func() {
		log.WithFields(logrus.Fields{
			"addr": srv.Addr,
			"mode": cfg.Server.Mode,
		}).Info("HTTP server listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.WithError(err).Fatal("HTTP server failed")
		}
	}()

	<-ctx.Done()
	log.Info("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Error("Graceful shutdown failed")
	}
}
