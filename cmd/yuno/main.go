package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"yuno-bot/internal/analytics"
	"yuno-bot/internal/api"
	"yuno-bot/internal/autoclean"
	"yuno-bot/internal/bot"
	"yuno-bot/internal/command"
	"yuno-bot/internal/config"
	"yuno-bot/internal/leveling"
	"yuno-bot/internal/modules/antispam"
	"yuno-bot/internal/modules/audit"
	"yuno-bot/internal/modules/fun"
	"yuno-bot/internal/modules/levels"
	"yuno-bot/internal/modules/moderation"
	"yuno-bot/internal/modules/utility"
	"yuno-bot/internal/settings"
	"yuno-bot/internal/storage"

	"go.uber.org/zap"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	logger, err := config.BuildLogger(cfg.LogLevel)
	if err != nil {
		panic(err)
	}
	defer func() {
		_ = logger.Sync()
	}()

	store, err := storage.New(cfg.DatabasePath, logger)
	if err != nil {
		logger.Fatal("storage init failed", zap.Error(err))
	}
	defer store.Close()
	if err := store.Migrate(); err != nil {
		logger.Fatal("migrations failed", zap.Error(err))
	}

	settingsService := settings.New(store, cfg.DefaultPrefix, logger)

	botSvc, err := bot.New(cfg, logger)
	if err != nil {
		logger.Fatal("bot init failed", zap.Error(err))
	}
	discord := botSvc.Actions()

	gate := command.NewGate(discord, cfg)
	router := command.NewRouter(discord, settingsService, cfg.DMMessage, logger)
	auditLogger := audit.NewLogger(store, logger)
	analyticsService := analytics.New(store)
	engine := leveling.NewEngine(store, logger)
	scheduler := autoclean.New(store, discord, cfg.AutoClean.DeletesPerSecond, cfg.AutoClean.Burst, logger)

	levelsModule := levels.New(store, engine, settingsService, discord, logger)
	spamModule := antispam.New(cfg.Spam, store, discord, settingsService, gate, auditLogger, logger)

	router.Register(moderation.New(discord, gate, auditLogger, analyticsService, logger).Commands()...)
	router.Register(utility.New(router, discord, settingsService, scheduler, gate, logger).Commands()...)
	router.Register(levelsModule.Commands()...)
	router.Register(fun.New().Commands()...)

	// Spam runs first so flagged messages earn no XP.
	router.OnChat(spamModule.HandleChat)
	router.OnChat(levelsModule.HandleChat)

	if err := botSvc.Start(router); err != nil {
		logger.Fatal("bot start failed", zap.Error(err))
	}
	logger.Info("bot started", zap.Int("commands", len(router.Definitions())))

	scheduler.Start(context.Background())

	var server *api.Server
	if cfg.HTTP.Enabled {
		handler := api.NewRouter(&api.Handler{Store: store, Settings: settingsService}, logger)
		server = api.NewServer(cfg.HTTP.Addr, handler, logger)
		server.Start()
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh
	logger.Info("shutdown requested")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := scheduler.Stop(ctx); err != nil {
		logger.Warn("auto-clean scheduler stop failed", zap.Error(err))
	}
	if server != nil {
		if err := server.Shutdown(ctx); err != nil {
			logger.Warn("http api shutdown failed", zap.Error(err))
		}
	}
	if err := botSvc.Close(ctx); err != nil {
		logger.Warn("bot close failed", zap.Error(err))
	}
}
