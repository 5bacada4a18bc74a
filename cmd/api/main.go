package main

import (
	"context"
	"log"
	"net/http"
	"time"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"cohabisafe/internal/catalog"
	"cohabisafe/internal/config"
	"cohabisafe/internal/db"
	apihttp "cohabisafe/internal/http"
	"cohabisafe/internal/repository"
	"cohabisafe/internal/service"
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

	cat := catalog.Default()

	userRepo := repository.NewPgUserRepository(pool)
	assessmentRepo := repository.NewPgAssessmentRepository(pool)
	answerRepo := repository.NewPgAnswerRepository(pool)
	profileRepo := repository.NewPgProfileRepository(pool)

	var dedupe service.AutosaveDeduper
	if cfg.RedisAddr != "" {
		redisClient := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		ctxPing, cancel := context.WithTimeout(ctx, 2*time.Second)
		if err := redisClient.Ping(ctxPing).Err(); err != nil {
			logger.Warn("redis ping failed", zap.Error(err))
		} else {
			dedupe = service.NewRedisAutosaveDeduper(redisClient, time.Duration(cfg.AutosaveDedupeTTLMinutes)*time.Minute)
		}
		cancel()
	}

	assessmentSvc := service.NewAssessmentService(cat, assessmentRepo, answerRepo, profileRepo, userRepo, service.ThresholdLabeler{}, dedupe, logger)
	onboardingSvc := service.NewOnboardingService(logger, userRepo, assessmentSvc, cfg.BcryptCost)

	userHandler := apihttp.NewUserHandler(logger, onboardingSvc)
	assessmentHandler := apihttp.NewAssessmentHandler(logger, assessmentSvc)
	catalogHandler := apihttp.NewCatalogHandler(cat)
	router := apihttp.NewRouter(logger, userHandler, assessmentHandler, catalogHandler)

	server := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	logger.Info("starting server", zap.String("port", cfg.HTTPPort), zap.String("catalog", cat.Version))

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Fatal("server error", zap.Error(err))
	}
}
