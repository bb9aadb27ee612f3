package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	botconfig "throp/internal/config"
	"throp/internal/history"
	"throp/internal/monitor"
	"throp/internal/orchestrator"
	"throp/internal/persona"
	"throp/internal/platform"
	"throp/internal/server"
	"throp/internal/tools"
	"throp/pkg/config"
	"throp/pkg/database"
	"throp/pkg/llm"
	"throp/pkg/logging"
	"throp/pkg/monitoring"
	"throp/pkg/search"

	statecache "throp/internal/cache"
)

var version = "dev"

func main() {
	logger := logging.NewLoggerWithService("throp")
	config.LoadEnv(logger)

	cfg := botconfig.Load()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// State store. Falls back to process memory when redis is unreachable.
	store := statecache.New(ctx, cfg.RedisURL, logger)
	defer store.Close()

	// Platform gateway.
	client := platform.NewClient(platform.Config{
		APIURL:      cfg.PlatformAPIURL,
		BearerToken: cfg.BearerToken,
		BotUserID:   cfg.BotUserID,
		Tier:        cfg.Tier,
		DryRun:      cfg.DryRun,
		Logger:      logger,
	})
	if cfg.DryRun {
		logger.Warn("Dry run enabled: platform writes will be logged, not sent")
	}

	// Post history, optional.
	var hist *history.Store
	if cfg.DatabaseURL != "" {
		dbCfg := database.DefaultConfig()
		dbCfg.URL = cfg.DatabaseURL
		db, err := database.Connect(dbCfg, logger)
		if err != nil {
			logger.WithError(err).Warn("Failed to connect to database - post history disabled")
		} else {
			defer db.Close()
			hist = history.NewStore(db, logger)
			if err := hist.EnsureSchema(ctx); err != nil {
				logger.WithError(err).Warn("Failed to ensure post history schema - post history disabled")
				hist = nil
			}
		}
	}

	// Evidence tools. Each is optional; a missing one just means less
	// evidence for the intents it serves.
	var webTool, socialTool, profileTool, priceTool tools.Tool
	searchProvider, err := search.NewProvider(search.LoadConfig())
	if err != nil {
		logger.WithError(err).Warn("Failed to create search provider - web search disabled")
	} else {
		webTool = tools.NewWebSearch(searchProvider, logger)
	}
	socialTool = tools.NewSocialSearch(client, logger)
	profileTool = tools.NewProfileLookup(client, logger)
	priceTool = tools.NewPriceLookup(cfg.PriceAPIURL, logger)

	// Persona generator. Without a model provider it uses deterministic
	// templates, so answers still go out.
	llmProvider, err := llm.NewProvider(llm.LoadConfig())
	if err != nil {
		logger.WithError(err).Warn("Failed to create language model provider - using template replies")
		llmProvider = nil
	}
	generator := persona.NewGenerator(llmProvider, logger)

	orch := orchestrator.New(orchestrator.Config{
		Registry:  orchestrator.NewRegistry(webTool, socialTool, profileTool, priceTool),
		Generator: generator,
		Store:     store,
		Logger:    logger,
	})

	// Mention monitor.
	var mon *monitor.Monitor
	if cfg.MonitorEnabled {
		if cfg.BotUserID == "" || cfg.BearerToken == "" {
			logger.Warn("Platform credentials missing - mention monitor disabled")
		} else {
			mon = monitor.New(monitor.Config{
				CheckInterval:     cfg.CheckInterval,
				FetchBatch:        cfg.FetchBatch,
				Accounts:          cfg.Accounts,
				Keywords:          cfg.Keywords,
				MinEngagement:     cfg.MinEngagement,
				MaxActionsPerHour: cfg.MaxActionsPerHour,
				MaxAge:            cfg.MaxMentionAge,
			}, client, orch, store, hist, logger)
			mon.Start(ctx)
			logger.WithField("interval", cfg.CheckInterval.String()).Info("Mention monitor started")
		}
	}

	monitoring.ServiceInfo("throp", version)
	health := monitoring.NewHealthChecker("throp", version)
	health.AddCheck("config", monitoring.ConfigurationHealthCheck(map[string]string{
		"PLATFORM_BEARER_TOKEN": cfg.BearerToken,
	}))
	health.AddCheck("store", func() monitoring.CheckResult {
		if store.Connected() {
			return monitoring.CheckResult{Status: monitoring.StatusHealthy}
		}
		return monitoring.CheckResult{Status: monitoring.StatusDegraded, Message: "state store in memory fallback"}
	})

	srv := server.New(orch, store, client, cfg.TrendRegion, health, logger)

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Run(cfg.ListenAddr)
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		logger.WithField("signal", sig.String()).Info("Shutting down")
	case err := <-errCh:
		logger.WithError(err).Error("HTTP server exited")
	}

	if mon != nil {
		mon.Stop()
	}
	cancel()
}
