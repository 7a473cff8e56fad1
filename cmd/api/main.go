package main

import (
	"context"
	"log"
	"net/http"
	"time"

	"glow-llm/internal/config"
	"glow-llm/internal/db"
	apihttp "glow-llm/internal/http"
	"glow-llm/internal/llm"
	"glow-llm/internal/repository"
	"glow-llm/internal/service"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

func main() {
	ctx := context.Background()

	if err := godotenv.Load(); err != nil {
		log.Printf("warning: loading .env: %v", err)
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		panic(err)
	}

	logger, _ := zap.NewProduction()
	defer logger.Sync()

	pool, err := db.NewPool(ctx, cfg)
	if err != nil {
		logger.Fatal("db connect", zap.Error(err))
	}
	defer pool.Close()

	catalogRepo := repository.NewPgCatalogRepository(pool)
	cartRepo := repository.NewPgCartRepository(pool)

	llmClient := llm.NewHTTPClient(cfg.LLMBaseURL, cfg.LLMAPIKey, cfg.LLMModel, cfg.LLMEmbeddingModel, logger)
	if !llmClient.Available() {
		logger.Warn("llm api key not configured, routines will use rule-based fallback")
	}

	params := service.DefaultSearchParams()
	params.CoverageThreshold = cfg.SearchCoverageThreshold
	params.SimilarityFloor = cfg.SearchSimilarityFloor

	routineCache := service.NewMemoryRoutineCache()
	if cfg.RedisAddr != "" {
		redisClient := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		ctxPing, cancel := context.WithTimeout(ctx, 2*time.Second)
		if err := redisClient.Ping(ctxPing).Err(); err != nil {
			logger.Warn("redis ping failed, using in-memory routine cache", zap.Error(err))
		} else {
			routineCache = service.NewRedisRoutineCache(redisClient)
		}
		cancel()
	}

	searchSvc := service.NewSearchService(catalogRepo, llmClient, logger, params)
	resolver := service.NewProductResolver(catalogRepo, logger)
	coverageSvc := service.NewCoverageService(searchSvc, logger)
	synthesisSvc := service.NewSynthesisService(
		llmClient,
		catalogRepo,
		searchSvc,
		resolver,
		coverageSvc,
		routineCache,
		time.Duration(cfg.RoutineCacheTTLMinutes)*time.Minute,
		logger,
	)

	inferenceHandler := apihttp.NewInferenceHandler(logger, synthesisSvc)
	cartHandler := apihttp.NewCartHandler(logger, cartRepo)
	router := apihttp.NewRouter(logger, inferenceHandler, cartHandler)

	server := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	logger.Info("starting server", zap.String("port", cfg.HTTPPort))

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Fatal("server error", zap.Error(err))
	}
}
