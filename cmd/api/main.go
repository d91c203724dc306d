package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/crowdfund/backend/internal/config"
	"github.com/crowdfund/backend/internal/db"
	"github.com/crowdfund/backend/internal/events"
	apphttp "github.com/crowdfund/backend/internal/http"
	"github.com/crowdfund/backend/internal/http/handlers"
	"github.com/crowdfund/backend/internal/logger"
	"github.com/crowdfund/backend/internal/repositories"
	"github.com/crowdfund/backend/internal/services"
	"github.com/crowdfund/backend/internal/storage"
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

func main() {
	cfg := config.Load()

	log, err := logger.New(cfg)
	if err != nil {
		fmt.Fprintln(os.Stderr, "logger:", err)
		os.Exit(1)
	}
	defer log.Sync()

	cfg.Validate(log)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// MongoDB
	connectCtx, connectCancel := context.WithTimeout(ctx, 15*time.Second)
	mongoClient, err := db.NewMongoClient(connectCtx, cfg.MongoURI(), log)
	connectCancel()
	if cfg.CI {
		// CI only checks that the database is reachable.
		if err != nil {
			os.Exit(1)
		}
		db.DisconnectMongo(ctx, mongoClient, log)
		os.Exit(0)
	}
	if err != nil {
		log.Fatal("failed to connect to mongoDB", zap.Error(err))
	}
	defer db.DisconnectMongo(context.Background(), mongoClient, log)

	database := mongoClient.Database(cfg.MongoDatabase)
	if err := db.EnsureIndexes(ctx, database); err != nil {
		log.Fatal("failed to create indexes", zap.Error(err))
	}

	// Redis
	rdb, err := db.NewRedisClient(ctx, cfg.RedisURL, log)
	if err != nil {
		log.Fatal("failed to connect to redis", zap.Error(err))
	}
	defer rdb.Close()

	// Audit log (optional)
	var audit services.AuditLogger = repositories.NopAuditRepo{}
	if cfg.PostgresDSN != "" {
		pool, err := db.NewPostgresPool(ctx, cfg.PostgresDSN, log)
		if err != nil {
			log.Fatal("failed to connect to postgres", zap.Error(err))
		}
		defer pool.Close()

		if err := db.RunMigrations(ctx, pool, "migrations", log); err != nil {
			log.Fatal("failed to run migrations", zap.Error(err))
		}
		audit = repositories.NewAuditRepo(pool)
	}

	// Image storage
	var images storage.ImageStore
	uploadDir := ""
	if cfg.S3Bucket != "" {
		s3Store, err := storage.NewS3(storage.S3Config{
			Bucket:      cfg.S3Bucket,
			Region:      cfg.S3Region,
			EndpointURL: cfg.S3EndpointURL,
		}, log)
		if err != nil {
			log.Fatal("failed to init s3 storage", zap.Error(err))
		}
		images = s3Store
	} else {
		local, err := storage.NewLocal(cfg.UploadDir, cfg.PublicURL, log)
		if err != nil {
			log.Fatal("failed to init upload dir", zap.Error(err))
		}
		images = local
		uploadDir = local.RootDir()
	}

	// Repositories
	campaignRepo := repositories.NewCampaignRepo(database)
	donationRepo := repositories.NewDonationRepo(database)
	nonceRepo := repositories.NewNonceRepo(rdb)

	// Events
	publisher := events.NewRedisPublisher(rdb, log)
	subscriber := events.NewRedisSubscriber(rdb, log)

	// Services
	campaignService := services.NewCampaignService(campaignRepo, donationRepo, images, audit, publisher, log)
	authService := services.NewAuthService(nonceRepo, audit, cfg.JWTSecret, cfg.JWTExpiration, cfg.NonceTTL, log)

	// Handlers
	authHandler := handlers.NewAuthHandler(authService, log)
	campaignHandler := handlers.NewCampaignHandler(campaignService, log)
	wsHub := handlers.NewWSHub(subscriber, log)

	if err := wsHub.Start(ctx); err != nil {
		log.Fatal("failed to start websocket hub", zap.Error(err))
	}

	app := fiber.New(fiber.Config{
		ErrorHandler: apphttp.ErrorHandler(log),
		BodyLimit:    int(cfg.UploadMaxBytes) + 1024*1024,
	})

	apphttp.SetupRouter(app, cfg, log, rdb, authHandler, campaignHandler, wsHub, uploadDir)

	// Graceful shutdown
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh
		log.Info("shutting down...")
		cancel()
		_ = app.Shutdown()
	}()

	addr := fmt.Sprintf(":%s", cfg.Port)
	log.Info("starting API server", zap.String("addr", addr))
	if err := app.Listen(addr); err != nil {
		log.Fatal("server error", zap.Error(err))
	}
}
