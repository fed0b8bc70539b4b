package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"tiny-url-service/cache"
	"tiny-url-service/config"
	"tiny-url-service/csvjob"
	"tiny-url-service/handler"
	appLogger "tiny-url-service/logger"
	"tiny-url-service/middleware"
	"tiny-url-service/qr"
	"tiny-url-service/queue"
	redisClient "tiny-url-service/redis"
	"tiny-url-service/shortener"
	"tiny-url-service/store"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog/log"
)

func main() {
	// Initialize logger
	appLogger.Initialize()

	// Load configuration
	cfg := config.MustLoadConfig()
	log.Info().Msg("Configuration loaded successfully")

	// Initialize Redis client
	rdb := redisClient.NewClient(cfg.Redis)

	// Initialize cache (if enabled)
	var cacheClient *cache.Cache
	if cfg.Cache.Enabled {
		var err error
		cacheClient, err = cache.New(cfg.Cache)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to initialize cache")
		}
	} else {
		log.Info().Msg("Cache disabled in configuration")
	}

	st := store.New(rdb)
	q := queue.New(rdb, cfg.Queue.PollSeconds)

	prober := shortener.NewHTTPProber(cfg.Probe.TimeoutMs)
	svc := shortener.New(st, prober, cfg.Probe.TimeoutMs)

	baseURL := cfg.WebServer.BaseURL
	if baseURL == "" {
		baseURL = fmt.Sprintf("%s://%s:%s", cfg.WebServer.Scheme, cfg.WebServer.IP, cfg.WebServer.Port)
	}

	qrPipeline := qr.NewPipeline(q, st, cfg.Queue.QRQueue, baseURL)
	csvPipeline := csvjob.NewPipeline(q, st, svc, qrPipeline, cfg.Queue.CSVQueue, baseURL, cfg.CSV.ProgressPollMs)

	// Start queue workers
	workerCtx, stopWorkers := context.WithCancel(context.Background())
	for i := 0; i < max(cfg.Queue.QRWorkers, 1); i++ {
		go qrPipeline.Run(workerCtx)
	}
	for i := 0; i < max(cfg.Queue.CSVWorkers, 1); i++ {
		go csvPipeline.Run(workerCtx)
	}
	log.Info().
		Int("qr_workers", max(cfg.Queue.QRWorkers, 1)).
		Int("csv_workers", max(cfg.Queue.CSVWorkers, 1)).
		Msg("Queue workers started")

	// Create handler with dependency injection
	h := handler.New(svc, qrPipeline, csvPipeline, st, cacheClient, cfg)

	// Set up router
	r := mux.NewRouter()

	// Apply global middleware
	rateLimiter := middleware.NewRateLimiter(cfg.RateLimit.RequestsPerSecond, cfg.RateLimit.Burst)

	r.Use(middleware.CORS)
	r.Use(middleware.RequestLogger)
	r.Use(rateLimiter.Limit)

	// Register routes
	r.HandleFunc("/health", h.HealthCheck).Methods("GET")
	r.HandleFunc("/cache/metrics", h.CacheMetrics).Methods("GET")
	r.HandleFunc("/api/link", h.CreateShortURL).Methods("POST")
	r.HandleFunc("/api/info/{hash}", h.GetInfo).Methods("GET")
	r.HandleFunc("/qr/{hash}", h.GetQR).Methods("GET")
	r.HandleFunc("/csv", h.UploadCSV).Methods("POST")
	r.HandleFunc("/csv/progress", h.CSVProgress).Methods("GET")
	r.HandleFunc("/csv/progress-events", h.CSVProgressEvents).Methods("GET")
	r.HandleFunc("/csv/download", h.DownloadCSV).Methods("GET")
	r.HandleFunc("/tiny-{hash}", h.RedirectURL).Methods("GET")

	// Configure HTTP server
	serverAddress := fmt.Sprintf("%s:%s", cfg.WebServer.IP, cfg.WebServer.Port)
	server := &http.Server{
		Addr:         serverAddress,
		Handler:      r,
		ReadTimeout:  time.Duration(cfg.WebServer.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.WebServer.WriteTimeout) * time.Second,
	}

	// Start server in goroutine
	go func() {
		log.Info().
			Str("address", serverAddress).
			Str("scheme", cfg.WebServer.Scheme).
			Msg("Starting server")

		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.WebServer.ShutdownTimeout)*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Fatal().Err(err).Msg("Server forced to shutdown")
	}

	// Stop queue workers and wait for in-flight probes
	stopWorkers()
	svc.Wait()

	// Close cache
	if cacheClient != nil {
		cacheClient.Close()
	}

	// Close Redis connection
	if err := rdb.Close(); err != nil {
		log.Error().Err(err).Msg("Failed to close Redis connection")
	}

	log.Info().Msg("Server stopped gracefully")
}
