package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"medrelay/internal/core/domain"
	"medrelay/internal/core/ports"
	"medrelay/internal/core/services"
	httphandlers "medrelay/internal/handlers/http"
	"medrelay/internal/infrastructure/middleware"
	"medrelay/internal/infrastructure/monitoring"
	"medrelay/internal/infrastructure/presence"
	"medrelay/internal/infrastructure/registry/memory"
	signalws "medrelay/internal/infrastructure/signal"
	"medrelay/pkg/config"
	"medrelay/pkg/logger"
	"medrelay/pkg/tracing"

	"github.com/gin-gonic/gin"
	"github.com/pion/webrtc/v3"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func main() {
	startTime := time.Now()

	configPaths := []string{
		"configs/config.yaml",
		"./configs/config.yaml",
		"/etc/medrelay/config.yaml",
		"config.yaml",
	}

	var cfg *config.Config
	var err error

	for _, path := range configPaths {
		cfg, err = config.Load(path)
		if err == nil {
			break
		}
	}
	if err != nil {
		cfg = config.DefaultConfig()
	}

	zapLogger := logger.New(cfg.Logging.Level, cfg.Logging.Format)
	defer zapLogger.Sync()

	log := zapLogger.Sugar()

	// Tracing
	tp, err := tracing.Init(tracing.Config{
		Enabled:     cfg.Tracing.Enabled,
		ServiceName: cfg.Tracing.ServiceName,
		JaegerURL:   cfg.Tracing.JaegerURL,
		Environment: cfg.Tracing.Environment,
		SampleRate:  cfg.Tracing.SampleRate,
	})
	if err != nil {
		log.Fatalw("failed to initialize tracing", "error", err)
	}

	// ICE servers advertised to joining clients
	var iceServers []webrtc.ICEServer
	for _, s := range cfg.ICEServers {
		iceServers = append(iceServers, webrtc.ICEServer{
			URLs:       s.URLs,
			Username:   s.Username,
			Credential: s.Credential,
		})
	}
	if len(iceServers) == 0 {
		iceServers = []webrtc.ICEServer{
			{URLs: []string{"stun:stun.l.google.com:19302"}},
		}
	}

	// State
	connRegistry := memory.NewConnectionRegistry()
	roomDirectory := memory.NewRoomDirectory(domain.EncryptionAdvertisement{
		Algorithm:   cfg.Encryption.Algorithm,
		KeyExchange: cfg.Encryption.KeyExchange,
	})

	// Presence mirror
	var presencePublisher ports.PresencePublisher = presence.NewNoopPublisher()
	var redisPublisher *presence.RedisPublisher
	if cfg.Redis.Enabled {
		redisPublisher, err = presence.NewRedisPublisher(context.Background(), presence.RedisOptions{
			Address:  cfg.Redis.Address,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
			PoolSize: cfg.Redis.PoolSize,
			TTL:      cfg.Redis.PresenceTTL,
		}, log)
		if err != nil {
			log.Fatalw("failed to connect presence mirror", "error", err)
		}
		defer redisPublisher.Close()
		presencePublisher = redisPublisher
	}

	// Monitoring
	collector := monitoring.NewPrometheusCollector()

	healthChecker := monitoring.NewHealthChecker()
	if redisPublisher != nil {
		healthChecker.AddCheck("redis", redisPublisher.HealthCheck,
			cfg.Monitoring.HealthCheckInterval, 2*time.Second)
	}

	// Relay service and transport
	hub := signalws.NewHub(log)
	relayService := services.NewRelayService(connRegistry, roomDirectory, hub, presencePublisher, collector, iceServers, log)

	wsOpts := signalws.Options{
		PingInterval:   cfg.WebSocket.PingInterval,
		PongTimeout:    cfg.WebSocket.PongTimeout,
		ReadTimeout:    cfg.WebSocket.ReadTimeout,
		WriteTimeout:   cfg.WebSocket.WriteTimeout,
		MaxMessageSize: cfg.WebSocket.MaxMessageSizeBytes,
		SendBufferSize: cfg.WebSocket.SendBufferSize,
		AllowedOrigins: cfg.WebSocket.AllowedOrigins,
	}
	if cfg.RateLimiting.Enabled {
		wsOpts.MessagesPerSecond = cfg.RateLimiting.WebSocket.MessagesPerSecond
		wsOpts.MessageBurst = cfg.RateLimiting.WebSocket.Burst
	}
	wsServer := signalws.NewServer(hub, relayService, wsOpts, log)

	// HTTP handlers
	roomsHandler := httphandlers.NewRoomsHandler(roomDirectory, connRegistry, iceServers)

	if cfg.Logging.Level != "debug" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(middleware.RecoveryMiddleware(log))
	router.Use(middleware.ErrorHandlerMiddleware(log))
	if cfg.Tracing.Enabled {
		router.Use(middleware.TracingMiddleware())
	}
	router.Use(middleware.NewHTTPRateLimitMiddleware(cfg))

	// Signaling endpoint
	router.GET("/ws",
		middleware.ConnectTokenMiddleware(cfg.Auth.RequireConnectToken, cfg.Auth.JWTSecret),
		wsServer.HandleSignaling,
	)

	// Operations API
	api := router.Group("/api/v1")
	api.Use(middleware.AuthMiddleware(cfg.Auth.JWTSecret))
	{
		api.GET("/rooms", roomsHandler.ListRooms)
		api.GET("/rooms/:id", roomsHandler.GetRoom)
		api.GET("/ice", roomsHandler.GetICEServers)
	}

	router.GET("/health", func(c *gin.Context) {
		status := "healthy"
		degraded := healthChecker.Degraded()
		if len(degraded) > 0 {
			status = "degraded"
		}
		c.JSON(http.StatusOK, gin.H{
			"status":      status,
			"degraded":    degraded,
			"timestamp":   time.Now(),
			"uptime":      time.Since(startTime).String(),
			"rooms":       roomDirectory.Count(c.Request.Context()),
			"connections": connRegistry.Count(c.Request.Context()),
		})
	})

	router.GET("/ready", func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()

		status := healthChecker.CheckAll(ctx)
		if status.Status != "healthy" {
			c.JSON(http.StatusServiceUnavailable, status)
			return
		}
		c.JSON(http.StatusOK, status)
	})

	if cfg.Monitoring.PrometheusEnabled {
		router.GET("/metrics", gin.WrapH(promhttp.Handler()))
		log.Info("Prometheus metrics enabled")
	}

	checkCtx, stopChecks := context.WithCancel(context.Background())
	healthChecker.StartBackgroundChecks(checkCtx)
	defer stopChecks()

	srv := &http.Server{
		Addr:         cfg.Server.Address,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	serverErr := make(chan error, 1)
	go func() {
		log.Infof("Starting MedRelay signaling server on %s", cfg.Server.Address)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErr <- err
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-serverErr:
		log.Fatalw("Server failed", "error", err)
	case sig := <-sigChan:
		log.Infow("Received shutdown signal", "signal", sig)
	}

	log.Info("Shutting down MedRelay server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Errorw("Error during server shutdown", "error", err)
		if closeErr := srv.Close(); closeErr != nil {
			log.Errorw("Error force closing server", "error", closeErr)
		}
	} else {
		log.Info("Server shutdown gracefully")
	}

	if err := tp.Shutdown(shutdownCtx); err != nil {
		log.Errorw("Error shutting down tracer provider", "error", err)
	}
}
