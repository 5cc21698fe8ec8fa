package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/nats-io/nats.go"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/drona-ai/grading-api/internal/config"
	"github.com/drona-ai/grading-api/internal/database"
	"github.com/drona-ai/grading-api/internal/handler"
	"github.com/drona-ai/grading-api/internal/middleware"
	"github.com/drona-ai/grading-api/internal/retrieval"
	"github.com/drona-ai/grading-api/internal/router"
	"github.com/drona-ai/grading-api/internal/service"
	"github.com/drona-ai/grading-api/pkg/ai"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()

	var redisClient *redis.Client
	if cfg.RedisURL != "" {
		redisClient, err = database.ConnectRedis(cfg.RedisURL)
		if err != nil {
			log.Fatalf("failed to connect to redis: %v", err)
		}
		defer redisClient.Close()
	} else {
		logger.Warn().Msg("redis url not configured, retrieval cache disabled")
	}

	var natsConn *nats.Conn
	if cfg.NATSURL != "" {
		natsConn, err = nats.Connect(cfg.NATSURL)
		if err != nil {
			log.Fatalf("failed to connect to nats: %v", err)
		}
		defer natsConn.Close()
	} else {
		logger.Warn().Msg("nats url not configured, event publishing disabled")
	}

	searcher, err := retrieval.NewWeaviateSearcher(retrieval.WeaviateConfig{
		Scheme:    cfg.WeaviateScheme,
		Host:      cfg.WeaviateHost,
		ClassName: cfg.WeaviateClassName,
	})
	if err != nil {
		log.Fatalf("failed to create weaviate searcher: %v", err)
	}

	retriever := retrieval.NewRetriever(searcher, redisClient, retrieval.Config{
		Timeout:  cfg.RetrievalTimeout,
		CacheTTL: cfg.RetrievalCacheTTL,
	}, logger)

	generator, err := buildGenerator(cfg, logger)
	if err != nil {
		log.Fatalf("failed to create generator: %v", err)
	}

	validate := validator.New(validator.WithRequiredStructEnabled())
	events := service.NewNATSPublisher(natsConn, cfg.EventSubjectBase, logger)

	rubricService := service.NewRubricService(retriever, generator, events, validate, logger, service.RubricConfig{
		RetrievalTopK: cfg.RetrievalTopK,
		Temperature:   cfg.RubricTemperature,
	})
	evaluationService := service.NewEvaluationService(generator, events, validate, logger, service.ConsensusConfig{
		Runs:              cfg.ConsensusRuns,
		VarianceThreshold: cfg.VarianceThreshold,
		Temperature:       cfg.EvalTemperature,
	})

	gradingHandler := handler.NewGradingHandler(rubricService, evaluationService, validate, logger)

	app := fiber.New(fiber.Config{
		AppName:      cfg.AppName,
		ServerHeader: cfg.AppName,
	})

	middleware.Register(app, middleware.Config{Logger: &logger})

	var jwtMiddleware fiber.Handler
	if cfg.JWTSecret != "" {
		jwtMiddleware = middleware.JWTProtected(cfg.JWTSecret)
	}

	router.Register(app, cfg, router.Dependencies{
		GradingHandler: gradingHandler,
		JWTMiddleware:  jwtMiddleware,
	})

	go func() {
		if err := app.Listen(cfg.HTTPAddress()); err != nil {
			log.Fatalf("failed to start server: %v", err)
		}
	}()

	waitForShutdown(app)
}

func buildGenerator(cfg config.Config, logger zerolog.Logger) (ai.Generator, error) {
	switch cfg.AIProvider {
	case "anthropic":
		return ai.NewAnthropicGenerator(ai.AnthropicConfig{
			APIKey: cfg.AnthropicAPIKey,
			Model:  cfg.GenerationModel,
		})
	default:
		return ai.NewOpenAIGenerator(ai.OpenAIConfig{
			APIKey:    cfg.OpenAIAPIKey,
			Model:     cfg.GenerationModel,
			MaxTokens: cfg.GenerationMaxTokens,
			Timeout:   cfg.GenerationTimeout,
			Logger:    logger,
		})
	}
}

func waitForShutdown(app *fiber.App) {
	shutdownCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	<-shutdownCtx.Done()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(ctx); err != nil {
		log.Printf("graceful shutdown failed: %v", err)
	}

	log.Println("server stopped")
}
