package http

import (
	"time"

	"github.com/adpilot/backend/internal/config"
	"github.com/adpilot/backend/internal/http/handlers"
	"github.com/adpilot/backend/internal/middleware"
	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

type Handlers struct {
	Campaigns   *handlers.CampaignHandler
	Performance *handlers.PerformanceHandler
	Generation  *handlers.GenerationHandler
	Chat        *handlers.ChatHandler
	Meta        *handlers.MetaHandler
	WS          *handlers.WSHub
}

func SetupRouter(app *fiber.App, cfg *config.Config, log *zap.Logger, rdb *redis.Client, h Handlers) {
	// Global middleware
	app.Use(recover.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowHeaders: "Origin, Content-Type, Accept, Authorization, X-Request-ID",
	}))
	app.Use(middleware.RequestIDMiddleware())
	app.Use(middleware.LoggerMiddleware(log))

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})

	api := app.Group("/api/v1")
	limit := middleware.RateLimitMiddleware(rdb, cfg.RateLimitPerMinute, time.Minute, log)

	// Meta (public, limited per IP)
	api.Get("/meta/objectives", limit, h.Meta.GetObjectives)
	api.Get("/meta/insight-levels", limit, h.Meta.GetInsightLevels)

	// Limited per user from here on
	protected := api.Group("", middleware.AuthMiddleware(cfg.JWTSecret, log))

	// Campaigns
	protected.Post("/campaigns", limit, h.Campaigns.CreateCampaign)
	protected.Get("/campaigns", limit, h.Campaigns.ListCampaigns)
	protected.Get("/campaigns/:id", limit, h.Campaigns.GetCampaign)
	protected.Put("/campaigns/:id", limit, h.Campaigns.UpdateCampaign)
	protected.Delete("/campaigns/:id", limit, h.Campaigns.DeleteCampaign)
	protected.Get("/campaigns/:id/history", limit, h.Campaigns.GetHistory)
	protected.Get("/campaigns/:id/performance", limit, h.Performance.GetPerformance)
	protected.Post("/campaigns/:id/generate", limit, h.Generation.RequestGeneration)

	// Guided chat
	protected.Get("/chat", limit, h.Chat.GetChat)
	protected.Post("/chat/messages", limit, h.Chat.PostMessage)
	protected.Delete("/chat", limit, h.Chat.ResetChat)

	// WebSocket
	app.Use("/ws", handlers.WSUpgradeMiddleware())
	app.Get("/ws", websocket.New(h.WS.HandleWS))
}
