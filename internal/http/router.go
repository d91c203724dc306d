package http

import (
	"errors"

	"github.com/crowdfund/backend/internal/config"
	"github.com/crowdfund/backend/internal/http/dto"
	"github.com/crowdfund/backend/internal/http/handlers"
	"github.com/crowdfund/backend/internal/middleware"
	"github.com/crowdfund/backend/internal/storage"
	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// ErrorHandler renders errors no handler dealt with in the API error shape.
func ErrorHandler(log *zap.Logger) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		code := fiber.StatusInternalServerError
		msg := "internal server error"

		var fe *fiber.Error
		if errors.As(err, &fe) {
			code = fe.Code
			msg = fe.Message
		} else {
			log.Error("unhandled error", zap.String("path", c.Path()), zap.Error(err))
		}

		return c.Status(code).JSON(dto.ErrorResponse{Error: msg, RequestID: middleware.GetRequestID(c)})
	}
}

// SetupRouter mounts the API. uploadDir is served under /uploads when images
// are stored locally; pass "" when they live in S3.
func SetupRouter(
	app *fiber.App,
	cfg *config.Config,
	log *zap.Logger,
	rdb *redis.Client,
	authHandler *handlers.AuthHandler,
	campaignHandler *handlers.CampaignHandler,
	wsHub *handlers.WSHub,
	uploadDir string,
) {
	// Global middleware
	app.Use(recover.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins:  "*",
		AllowHeaders:  "Origin, Content-Type, Accept, Authorization, X-Request-ID",
		ExposeHeaders: "RateLimit-Limit, RateLimit-Remaining, RateLimit-Reset, X-Request-ID",
	}))
	app.Use(middleware.RequestIDMiddleware())
	app.Use(middleware.LoggerMiddleware(log))

	// Health check
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})

	if uploadDir != "" {
		app.Static(storage.PublicPrefix, uploadDir)
	}

	api := app.Group("/api/v1")
	api.Use(middleware.RateLimitMiddleware(rdb, cfg.RateLimitMax, cfg.RateLimitWindow, log))

	// Auth (public)
	api.Post("/auth/nonce", authHandler.Nonce)
	api.Post("/auth/verify", authHandler.Verify)

	// Campaigns (public reads)
	api.Get("/campaigns", campaignHandler.ListCampaigns)
	api.Get("/campaigns/donations/:id/:address", campaignHandler.GetDonation)
	api.Get("/campaigns/:id/history", campaignHandler.GetHistory)
	api.Get("/campaigns/:id", campaignHandler.GetCampaign)

	// Protected endpoints
	protected := api.Group("", middleware.AuthMiddleware(cfg, log))
	protected.Post("/campaigns", middleware.ImageUpload("image", cfg.UploadMaxBytes), campaignHandler.CreateCampaign)
	protected.Put("/campaigns/:id", campaignHandler.UpdateCampaign)

	// WebSocket
	app.Use("/ws", handlers.WSUpgradeMiddleware())
	app.Get("/ws", websocket.New(wsHub.HandleWS))
}
