package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/crowdfund/backend/internal/config"
	"github.com/crowdfund/backend/internal/db"
	"github.com/crowdfund/backend/internal/ethereum"
	"github.com/crowdfund/backend/internal/events"
	"github.com/crowdfund/backend/internal/indexer"
	"github.com/crowdfund/backend/internal/logger"
	"github.com/crowdfund/backend/internal/repositories"
	"github.com/crowdfund/backend/internal/services"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethclient"
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

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if !common.IsHexAddress(cfg.CampaignContractAddress) {
		log.Fatal("CAMPAIGN_CONTRACT_ADDRESS is required", zap.String("addr", cfg.CampaignContractAddress))
	}

	parsed, err := ethereum.LoadABI(cfg.CampaignContractABIPath)
	if err != nil {
		log.Fatal("failed to load contract ABI", zap.Error(err))
	}

	client, err := ethclient.DialContext(ctx, cfg.EthNodeURL)
	if err != nil {
		log.Fatal("failed to connect to ethereum node", zap.String("url", cfg.EthNodeURL), zap.Error(err))
	}
	defer client.Close()

	mongoClient, err := db.NewMongoClient(ctx, cfg.MongoURI(), log)
	if err != nil {
		log.Fatal("failed to connect to mongoDB", zap.Error(err))
	}
	defer db.DisconnectMongo(context.Background(), mongoClient, log)
	database := mongoClient.Database(cfg.MongoDatabase)
	if err := db.EnsureIndexes(ctx, database); err != nil {
		log.Fatal("failed to create indexes", zap.Error(err))
	}

	rdb, err := db.NewRedisClient(ctx, cfg.RedisURL, log)
	if err != nil {
		log.Fatal("failed to connect to redis", zap.Error(err))
	}
	defer rdb.Close()

	var audit services.AuditLogger = repositories.NopAuditRepo{}
	if cfg.PostgresDSN != "" {
		pool, err := db.NewPostgresPool(ctx, cfg.PostgresDSN, log)
		if err != nil {
			log.Fatal("failed to connect to postgres", zap.Error(err))
		}
		defer pool.Close()
		audit = repositories.NewAuditRepo(pool)
	}

	contract := ethereum.NewCampaignContract(common.HexToAddress(cfg.CampaignContractAddress), parsed, client)
	publisher := events.NewRedisPublisher(rdb, log)
	campaignService := services.NewCampaignService(
		repositories.NewCampaignRepo(database),
		repositories.NewDonationRepo(database),
		nil,
		audit,
		publisher,
		log,
	)

	idx := indexer.New(client, contract, campaignService, rdb, indexer.Config{
		StartBlock:    cfg.IndexerStartBlock,
		Confirmations: cfg.IndexerConfirmations,
		BatchSize:     cfg.IndexerBatchSize,
		PollInterval:  cfg.IndexerPollInterval,
	}, log)

	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh
		log.Info("shutting down indexer")
		cancel()
	}()

	log.Info("indexer started",
		zap.String("contract", contract.Address().Hex()),
		zap.String("node", cfg.EthNodeURL),
	)
	if err := idx.Run(ctx); err != nil {
		log.Fatal("indexer stopped", zap.Error(err))
	}
}
