package main

import (
	"context"
	"log"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.etcd.io/bbolt"

	"github.com/iptvkit/aggregator/internal/adapter/driven"
	"github.com/iptvkit/aggregator/internal/adapter/driver"
	"github.com/iptvkit/aggregator/internal/application"
	"github.com/iptvkit/aggregator/internal/cache"
	"github.com/iptvkit/aggregator/internal/channel"
	"github.com/iptvkit/aggregator/internal/circuitbreaker"
	"github.com/iptvkit/aggregator/internal/config"
	"github.com/iptvkit/aggregator/internal/store"
)

func logLevel(name string) slog.Level {
	switch strings.ToLower(name) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	// Create structured logger
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel(cfg.Log.Level),
	}))
	slog.SetDefault(logger)

	logger.Info("starting iptv-aggregator",
		"address", cfg.HTTP.Address,
		"port", cfg.HTTP.Port,
		"db_path", cfg.Data.DBPath,
		"refresh_interval", cfg.Refresh.Interval,
		"probe_concurrency", cfg.Probe.Concurrency,
		"log_level", cfg.Log.Level,
	)

	// Open BoltDB
	db, err := bbolt.Open(cfg.Data.DBPath, 0600, &bbolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		log.Fatalf("failed to open database: %v", err)
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Printf("error closing database: %v", err)
		}
	}()

	// Create driven adapters (repositories and external services)
	channelRepo, err := driven.NewChannelBoltDBRepository(db)
	if err != nil {
		log.Fatalf("failed to create channel repository: %v", err)
	}

	subscriptionRepo, err := driven.NewSubscriptionBoltDBRepository(db)
	if err != nil {
		log.Fatalf("failed to create subscription repository: %v", err)
	}

	playlistCache, err := cache.NewFileCache(cfg.Data.CacheDir)
	if err != nil {
		log.Fatalf("failed to create playlist cache: %v", err)
	}

	playlistSource := driven.NewPlaylistHTTPSource(cfg.Refresh.FetchTimeout, playlistCache, circuitbreaker.Config{
		FailureThreshold: cfg.Breaker.FailureThreshold,
		Timeout:          cfg.Breaker.Timeout,
		HalfOpenRequests: cfg.Breaker.HalfOpenRequests,
		Logger:           logger,
	}, logger)

	prober, err := driven.NewStreamProberHTTPAdapter(cfg.Platforms, logger)
	if err != nil {
		log.Fatalf("failed to create stream prober: %v", err)
	}

	// Build the in-memory channel set and rehydrate it from the last run
	// Config rules come first so they win over the defaults on overlap.
	groupRules := make([]channel.GroupRule, 0, len(cfg.Groups))
	for _, g := range cfg.Groups {
		groupRules = append(groupRules, channel.GroupRule{Pattern: g.Pattern, Bucket: g.Bucket})
	}
	groupRules = append(groupRules, channel.DefaultGroupRules()...)
	groupMapper, err := channel.NewGroupMapper(groupRules)
	if err != nil {
		log.Fatalf("failed to compile group rules: %v", err)
	}

	matcher := channel.Matcher{
		Policy:    channel.MatchPolicy(cfg.Match.Policy),
		Threshold: cfg.Match.Threshold,
	}
	channelStore := store.New(matcher, groupMapper)

	persisted, err := channelRepo.LoadAll(context.Background())
	if err != nil {
		log.Fatalf("failed to load persisted channels: %v", err)
	}
	channelStore.Replace(persisted)
	logger.Info("channel set rehydrated", "channels", channelStore.Len())

	// Create application services
	probeOptions := application.ProbeOptions{
		TestAllSources: cfg.Probe.TestAllSources,
		Concurrency:    cfg.Probe.Concurrency,
		Timeout:        cfg.Probe.Timeout,
	}
	probeService := application.NewProbeService(channelStore, prober, logger)
	refreshService := application.NewRefreshService(subscriptionRepo, channelRepo, playlistSource, channelStore, probeService, probeOptions, logger)
	subscriptionService := application.NewSubscriptionService(subscriptionRepo)
	channelService := application.NewChannelService(channelStore, channelRepo)
	playlistService := application.NewPlaylistService(channelStore)
	healthService := application.NewHealthService(channelRepo, subscriptionRepo, channelStore)

	// Create HTTP handlers
	channelHandler := driver.NewChannelHTTPHandler(channelService)
	subscriptionHandler := driver.NewSubscriptionHTTPHandler(subscriptionService)
	playlistHandler := driver.NewPlaylistHTTPHandler(playlistService)
	refreshHandler := driver.NewRefreshHTTPHandler(refreshService)
	healthHandler := driver.NewHealthHTTPHandler(healthService)

	// Register API routes
	apiMux := http.NewServeMux()
	apiMux.Handle("/channels", channelHandler)
	apiMux.Handle("/channels/", channelHandler)
	apiMux.Handle("/subscriptions", subscriptionHandler)
	apiMux.Handle("/refresh", refreshHandler)
	apiMux.Handle("/health", healthHandler)

	// Root router: API under /api/, exports and metrics at root
	rootMux := http.NewServeMux()
	rootMux.Handle("/api/", http.StripPrefix("/api", apiMux))
	rootMux.Handle("/playlist.m3u", playlistHandler)
	rootMux.Handle("/playlist.json", playlistHandler)
	rootMux.Handle("/metrics", promhttp.Handler())

	// Create HTTP server
	server := &http.Server{
		Addr:         net.JoinHostPort(cfg.HTTP.Address, cfg.HTTP.Port),
		Handler:      rootMux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start the refresh scheduler
	schedulerCtx, stopScheduler := context.WithCancel(context.Background())
	scheduler := application.NewScheduler(refreshService, cfg.Refresh.Interval, logger)
	go scheduler.Run(schedulerCtx)

	// Start server in a goroutine
	go func() {
		logger.Info("http server listening", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server error: %v", err)
		}
	}()

	// Graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	logger.Info("shutdown signal received, shutting down gracefully")
	stopScheduler()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Error("server shutdown error", "error", err)
	}

	logger.Info("server stopped")
}
