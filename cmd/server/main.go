// Package main is the entry point for the comet-router server.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"

	"github.com/cometlabs/comet-router/internal/adapter"
	"github.com/cometlabs/comet-router/internal/config"
	"github.com/cometlabs/comet-router/internal/credential"
	"github.com/cometlabs/comet-router/internal/domain"
	"github.com/cometlabs/comet-router/internal/handler"
	"github.com/cometlabs/comet-router/internal/planner"
	"github.com/cometlabs/comet-router/internal/ratelimit"
	"github.com/cometlabs/comet-router/internal/router"
	"github.com/cometlabs/comet-router/internal/security"
	"github.com/cometlabs/comet-router/internal/tool"
	"github.com/cometlabs/comet-router/internal/ui"
)

func main() {
	// .env is a local-development convenience; absence is fine.
	_ = godotenv.Load()

	cfg, err := config.Get()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logger := setupLogger(cfg)

	ui.PrintBanner()
	logger.Info("starting comet-router",
		slog.String("host", cfg.Server.Host),
		slog.Int("port", cfg.Server.Port),
	)

	// Platform credential pools, one per provider with keys configured.
	cooldown := time.Duration(cfg.Limits.KeyCooldownSeconds) * time.Second
	pools := make(map[domain.ProviderID]*domain.CredentialPool)
	for provider, keys := range cfg.PlatformKeys {
		pools[provider] = domain.NewCredentialPool(provider, keys, cooldown)
		logger.Info("credential pool ready",
			slog.String("provider", string(provider)),
			slog.Int("keys", len(keys)),
			slog.Duration("cooldown", cooldown),
		)
	}
	if len(pools) == 0 {
		logger.Warn("no platform credentials configured, every proxied request will fail")
	}
	resolver := credential.NewResolver(pools)

	// Provider adapters over the effective endpoint table.
	registry := adapter.DefaultRegistry(cfg.EndpointOverrides())
	endpoints := make(map[domain.ProviderID]domain.Endpoint)
	for _, id := range domain.AllProviders() {
		if ep, ok := cfg.EndpointFor(id); ok {
			endpoints[id] = ep
		}
	}

	limiter := ratelimit.NewLimiter(ratelimit.NewMemoryStore(cfg.Limits.WindowStoreSize))
	modelRouter := router.NewModelRouter(limiter, resolver, registry,
		router.WithRequestTimeout(time.Duration(cfg.Limits.RequestTimeoutSeconds)*time.Second))

	// Built-in tool catalog. Server deployments drive the no-op browser; a
	// desktop shell swaps in its own controller.
	tools := tool.NewRegistry()
	tool.RegisterBuiltins(tools, tool.NoopBrowser{})

	plannerOpts := []planner.Option{}
	if cfg.Planner.Provider != "" {
		plannerOpts = append(plannerOpts, planner.WithProvider(domain.ProviderID(cfg.Planner.Provider)))
	}
	if cfg.Planner.Model != "" {
		plannerOpts = append(plannerOpts, planner.WithModel(cfg.Planner.Model))
	}
	plnr := planner.New(modelRouter, tools, plannerOpts...)

	modelHandler := handler.NewModelHandler(modelRouter, plnr, resolver, endpoints, logger)
	agentHandler := handler.NewAgentHandler(plnr, tools, logger)

	if cfg.Logging.Level != "debug" {
		gin.SetMode(gin.ReleaseMode)
	}

	engine := gin.New()
	engine.Use(handler.RecoveryMiddleware(logger))
	engine.Use(handler.CORSMiddleware())
	engine.Use(handler.RequestIDMiddleware())
	engine.Use(handler.LoggingMiddleware(logger))
	engine.Use(handler.JWTAuthMiddleware(cfg.Auth.JWTSecret))
	if cfg.Cache.Enabled {
		cache := handler.NewRouteCache(
			handler.WithCacheTTL(time.Duration(cfg.Cache.TTLSeconds)*time.Second),
			handler.WithCacheSize(cfg.Cache.MaxEntries),
			handler.WithCacheLogger(logger),
		)
		engine.Use(handler.CacheMiddleware(cache, logger))
	}

	engine.POST("/model/route", modelHandler.HandleRoute)
	engine.POST("/model/plan", modelHandler.HandlePlan)
	engine.GET("/model/status", modelHandler.HandleStatus)
	engine.GET("/model/usage", modelHandler.HandleUsage)
	engine.POST("/agent/run", agentHandler.HandleRun)
	engine.GET("/health", modelHandler.HandleHealth)

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      engine,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeoutSeconds) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeoutSeconds) * time.Second,
	}

	go func() {
		providerNames := make([]string, 0, len(pools))
		for _, id := range cfg.ConfiguredProviders() {
			providerNames = append(providerNames, string(id))
		}
		ui.PrintStartupInfo(cfg.Server.Host, cfg.Server.Port, providerNames)

		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", slog.String("error", err.Error()))
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit

	logger.Info("shutdown signal received", slog.String("signal", sig.String()))
	ui.PrintShutdown()

	shutdownTimeout := time.Duration(cfg.Server.ShutdownTimeoutSeconds) * time.Second
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("server shutdown error", slog.String("error", err.Error()))
		os.Exit(1)
	}

	logger.Info("server stopped gracefully")
	ui.PrintGoodbye()
}

// setupLogger builds the process logger: JSON or text per config, always
// wrapped in the credential redactor, installed as the slog default.
func setupLogger(cfg *config.Configuration) *slog.Logger {
	level := slog.LevelInfo
	switch cfg.Logging.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}

	opts := &slog.HandlerOptions{Level: level}

	var inner slog.Handler
	if cfg.Logging.Format == "text" {
		inner = slog.NewTextHandler(os.Stdout, opts)
	} else {
		inner = slog.NewJSONHandler(os.Stdout, opts)
	}

	logger := slog.New(security.NewRedactingHandler(inner))
	slog.SetDefault(logger)
	return logger
}
