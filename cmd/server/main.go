package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"studyroom-backend/internal/config"
	"studyroom-backend/internal/database"
	"studyroom-backend/internal/handlers"
	"studyroom-backend/internal/logger"
	"studyroom-backend/internal/middleware"
	"studyroom-backend/internal/repository"
	"studyroom-backend/internal/router"
	"studyroom-backend/internal/services"
	"studyroom-backend/internal/websocket"
)

func main() {
	// ──── Step 1: Load Environment Variables ────
	cfg := config.Load()

	log, err := logger.New(cfg.Env)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to build logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()
	log.Info("Starting StudyRoom backend", "env", cfg.Env)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// ──── Step 2: Initialize PostgreSQL Connection Pool ────
	pool, err := database.NewPostgresPool(cfg.DatabaseURL)
	if err != nil {
		log.Fatal("PostgreSQL connection failed", "error", err)
	}
	defer pool.Close()
	log.Info("PostgreSQL connected")

	// ──── Step 3: Run Database Migrations ────
	if err := database.RunMigrations(pool, log); err != nil {
		log.Fatal("Database migration failed", "error", err)
	}
	log.Info("Database migrations applied")

	// ──── Step 4: Initialize Redis Clients (optional) ────
	var redisClients *database.RedisClients
	if cfg.RedisURL != "" {
		redisClients, err = database.NewRedisClients(cfg.RedisURL)
		if err != nil {
			log.Fatal("Redis connection failed", "error", err)
		}
		defer redisClients.Close()
		log.Info("Redis connected")
	} else {
		log.Warn("REDIS_URL not set: generation cache disabled, updates delivered in process only")
	}

	// ──── Step 5: Initialize Gemini Client ────
	gemini, err := services.NewGeminiModel(ctx, cfg.GeminiAPIKey, cfg.GeminiModel, log)
	if err != nil {
		log.Fatal("Gemini client initialization failed", "error", err)
	}
	defer gemini.Close()
	log.Info("Gemini client initialized", "model", cfg.GeminiModel)

	// ──── Step 6: Initialize Services ────
	jwtAuth := middleware.NewJWTAuth(cfg.JWTSecret)

	var (
		cache     services.GenerationCache
		publisher services.Publisher
		pubsub    *redis.Client
	)
	if redisClients != nil {
		pubsub = redisClients.PubSub
		publisher = services.NewRedisPublisher(redisClients.Cache)
		if cfg.GenerationCacheTTL > 0 {
			cache = services.NewRedisGenerationCache(redisClients.Cache, cfg.GenerationCacheTTL)
		}
	}

	wsHub := websocket.NewHub(pubsub, jwtAuth, cfg.FrontendURL, log.With("component", "websocket"))
	defer wsHub.Close()
	if publisher == nil {
		publisher = wsHub
	}

	generator := services.NewGenerator(gemini, cache, services.GeneratorConfig{
		ModelName:           cfg.GeminiModel,
		Temperature:         float32(cfg.GenerationTemperature),
		Timeout:             cfg.GenerationTimeout,
		MaxConcurrent:       cfg.GeminiConcurrentReqs,
		FlashcardMaxTokens:  int32(cfg.FlashcardMaxTokens),
		QuizMaxTokens:       int32(cfg.QuizMaxTokens),
		StudyGuideMaxTokens: int32(cfg.StudyGuideMaxTokens),
	}, log.With("component", "generator"))
	aggregator := services.NewAggregator(generator, log.With("component", "aggregator"))

	studyMaterialService := services.NewStudyMaterialService(
		repository.NewStudyMaterialRepo(pool),
		aggregator,
		services.NewFileExtractService(),
		publisher,
		log.With("component", "study_materials"),
	)

	// ──── Step 7: Start HTTP Server ────
	r := router.New(
		ctx,
		jwtAuth,
		handlers.NewStudyMaterialHandler(studyMaterialService, cfg.MaxUploadMB, log),
		wsHub,
		cfg.FrontendURL,
	)

	server := &http.Server{
		Addr:        fmt.Sprintf(":%s", cfg.Port),
		Handler:     r,
		ReadTimeout: 30 * time.Second,
		// a create waits for all three generation calls
		WriteTimeout: cfg.GenerationTimeout + 30*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown
	go func() {
		<-ctx.Done()
		log.Info("Shutting down...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			log.Error("Graceful shutdown failed", "error", err)
		}
	}()

	log.Info("StudyRoom backend ready",
		"api", fmt.Sprintf("http://localhost:%s/api/v1", cfg.Port),
		"ws", fmt.Sprintf("ws://localhost:%s/api/v1/ws", cfg.Port),
	)

	if err := server.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
		log.Fatal("Server error", "error", err)
	}
}
