package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/adpilot/backend/internal/adplatform"
	"github.com/adpilot/backend/internal/assistant"
	"github.com/adpilot/backend/internal/config"
	"github.com/adpilot/backend/internal/db"
	"github.com/adpilot/backend/internal/dialogue"
	"github.com/adpilot/backend/internal/events"
	"github.com/adpilot/backend/internal/generation"
	apphttp "github.com/adpilot/backend/internal/http"
	"github.com/adpilot/backend/internal/http/dto"
	"github.com/adpilot/backend/internal/http/handlers"
	"github.com/adpilot/backend/internal/middleware"
	"github.com/adpilot/backend/internal/queue"
	"github.com/adpilot/backend/internal/repositories"
	"github.com/adpilot/backend/internal/services"
	"github.com/adpilot/backend/migrations"
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

func main() {
	log, _ := zap.NewProduction()
	defer log.Sync()

	cfg := config.Load()
	cfg.Validate(log)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Database
	pool, err := db.NewPostgresPool(ctx, cfg.PostgresDSN, cfg.PostgresMaxConns, log)
	if err != nil {
		log.Fatal("failed to connect to postgres", zap.Error(err))
	}
	defer pool.Close()

	if err := db.RunMigrations(ctx, pool, migrations.FS, log); err != nil {
		log.Fatal("failed to run migrations", zap.Error(err))
	}

	// Redis
	rdb, err := db.NewRedisClient(ctx, cfg.RedisURL, log)
	if err != nil {
		log.Fatal("failed to connect to redis", zap.Error(err))
	}
	defer rdb.Close()

	// Repositories
	campaignRepo := repositories.NewCampaignRepo(pool)
	adSetRepo := repositories.NewAdSetRepo(pool)
	creativeRepo := repositories.NewCreativeRepo(pool)
	adRepo := repositories.NewAdRepo(pool)
	auditRepo := repositories.NewAuditRepo(pool)

	// Events
	publisher := events.NewRedisPublisher(rdb, log)
	subscriber := events.NewRedisSubscriber(rdb, log)

	// Ad platform and generation
	platform := adplatform.NewClient(adplatform.Options{
		BaseURL:     cfg.MetaGraphURL,
		AccessToken: cfg.MetaAccessToken,
		AdAccountID: cfg.MetaAdAccountID,
		PageID:      cfg.MetaPageID,
		MaxRetries:  cfg.MetaMaxRetries,
	}, log.Named("adplatform"))

	pipeline, err := generation.NewPipelineFromConfig(ctx, cfg, log)
	if err != nil {
		log.Fatal("failed to build generation pipeline", zap.Error(err))
	}

	// Services
	provisioning := services.NewProvisioningService(services.Stores{
		Campaigns: campaignRepo,
		AdSets:    adSetRepo,
		Creatives: creativeRepo,
		Ads:       adRepo,
		Audit:     auditRepo,
	}, platform, publisher, cfg.MetaCallTimeout, cfg.MetaCurrencyOffset, log)
	performance := services.NewPerformanceService(campaignRepo, platform, cfg.MetaCallTimeout, log)
	generationRequests := services.NewGenerationRequestService(
		campaignRepo, queue.NewPublisher(rdb, cfg.GenerationQueue), auditRepo, log)

	sessions := dialogue.NewRedisSessionStore(rdb, cfg.ChatSessionTTL, cfg.ChatTurnLock)
	engine := dialogue.NewEngine(sessions, pipeline, provisioning, cfg.DefaultDailyBudget, log.Named("dialogue"))
	if cfg.GeminiAPIKey != "" {
		helper, err := assistant.NewGemini(ctx, cfg.GeminiAPIKey, cfg.GeminiModel, performance, cfg.GenerationCallTimeout, log.Named("assistant"))
		if err != nil {
			log.Fatal("failed to create assistant", zap.Error(err))
		}
		engine.WithAssistant(helper)
	}

	// Handlers
	wsHub := handlers.NewWSHub(cfg.JWTSecret, subscriber, log)
	if err := wsHub.Start(ctx); err != nil {
		log.Fatal("failed to subscribe to campaign events", zap.Error(err))
	}

	app := fiber.New(fiber.Config{
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			code := fiber.StatusInternalServerError
			var e *fiber.Error
			if errors.As(err, &e) {
				code = e.Code
			}
			return c.Status(code).JSON(dto.ErrorResponse{Error: err.Error(), RequestID: middleware.GetRequestID(c)})
		},
	})

	apphttp.SetupRouter(app, cfg, log, rdb, apphttp.Handlers{
		Campaigns:   handlers.NewCampaignHandler(provisioning, auditRepo, log),
		Performance: handlers.NewPerformanceHandler(performance, log),
		Generation:  handlers.NewGenerationHandler(generationRequests, log),
		Chat:        handlers.NewChatHandler(engine, log),
		Meta:        handlers.NewMetaHandler(),
		WS:          wsHub,
	})

	// Graceful shutdown
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh
		log.Info("shutting down...")
		cancel()
		_ = app.Shutdown()
	}()

	addr := fmt.Sprintf(":%s", cfg.APIPort)
	log.Info("starting API server", zap.String("addr", addr))
	if err := app.Listen(addr); err != nil {
		log.Fatal("server error", zap.Error(err))
	}
}
