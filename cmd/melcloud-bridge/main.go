package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/julienschmidt/httprouter"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"melcloud_bridge/internal/api"
	"melcloud_bridge/internal/auth"
	"melcloud_bridge/internal/bridge"
	"melcloud_bridge/internal/cache"
	"melcloud_bridge/internal/collector"
	"melcloud_bridge/internal/config"
	"melcloud_bridge/internal/energy"
	"melcloud_bridge/internal/poller"
	"melcloud_bridge/internal/routes"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		slog.Error("Failed to load config", "error", err)
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		slog.Error("Invalid config", "error", err)
		os.Exit(1)
	}

	logger := setupLogger(cfg.LogLevel, cfg.LogFormat)
	logger.Info("Starting MELCloud bridge",
		"listen_addr", cfg.ListenAddr,
		"poll_interval", cfg.PollInterval,
		"energy_interval", cfg.EnergyInterval)

	// Core wiring: session -> gateway -> coordinator/accumulator.
	session := auth.NewSessionManager(auth.Credentials{
		Username: cfg.Username,
		Password: cfg.Password,
	}, logger)
	gateway := api.NewGateway(session, logger)
	snapshotCache := cache.New()
	coordinator := poller.New(gateway, snapshotCache, cfg.PollInterval, logger)

	store := energy.NewStore(cfg.EnergyStatePath)
	accumulator, err := energy.New(gateway, coordinator, store, cfg.EnergyInterval, logger)
	if err != nil {
		logger.Error("Failed to initialize energy accumulator", "error", err)
		os.Exit(1)
	}

	prometheus.MustRegister(collector.NewBridgeCollector(coordinator, accumulator))

	router := httprouter.New()
	router.GET("/state", routes.State(coordinator, accumulator, logger))
	router.GET("/health", routes.Health())
	router.Handler("GET", "/metrics", promhttp.Handler())

	srv := &http.Server{
		Addr:         cfg.ListenAddr,
		Handler:      router,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	ctx, cancel := context.WithCancel(context.Background())
	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		coordinator.Run(ctx)
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		accumulator.Run(ctx)
	}()

	var mqttClient mqtt.Client
	if cfg.MQTTBroker != "" {
		b := bridge.New(gateway, coordinator, snapshotCache, logger)
		mqttClient = mqtt.NewClient(b.ClientOptions(cfg.MQTTBroker, cfg.MQTTUsername, cfg.MQTTPassword))
		if t := mqttClient.Connect(); t.Wait() && t.Error() != nil {
			logger.Error("MQTT connection failed", "broker", cfg.MQTTBroker, "error", t.Error())
			os.Exit(1)
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			b.Run(ctx, mqttClient, cfg.PollInterval)
		}()
	}

	go func() {
		logger.Info("Server listening", "addr", cfg.ListenAddr)
		if err := srv.ListenAndServe(); err != http.ErrServerClosed {
			logger.Error("Server error", "error", err)
			os.Exit(1)
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	logger.Info("Shutting down gracefully...")

	// Stop scheduling new work, let in-flight cycles finish, then close the
	// outward surfaces.
	cancel()
	wg.Wait()

	if mqttClient != nil {
		mqttClient.Disconnect(250)
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Shutdown error", "error", err)
	}

	logger.Info("Bridge stopped")
}

// setupLogger creates a structured logger based on configuration.
func setupLogger(level, format string) *slog.Logger {
	opts := &slog.HandlerOptions{
		Level: parseLevel(level),
	}

	var handler slog.Handler
	if format == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}

	return slog.New(handler)
}

// parseLevel converts a string log level to slog.Level.
func parseLevel(s string) slog.Level {
	switch s {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
