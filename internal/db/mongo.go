package db

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/event"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
)

const (
	CampaignsCollection = "campaigns"
	DonationsCollection = "donations"
)

// NewMongoClient connects and pings the server. Heartbeat failures after the
// initial connect are logged and the process keeps running.
func NewMongoClient(ctx context.Context, uri string, log *zap.Logger) (*mongo.Client, error) {
	monitor := &event.ServerMonitor{
		ServerHeartbeatFailed: func(e *event.ServerHeartbeatFailedEvent) {
			log.Error("mongoDB disconnected", zap.String("connection_id", e.ConnectionID), zap.Error(e.Failure))
		},
	}

	opts := options.Client().
		ApplyURI(uri).
		SetServerMonitor(monitor).
		SetMaxPoolSize(20).
		SetConnectTimeout(10 * time.Second)

	client, err := mongo.Connect(ctx, opts)
	if err != nil {
		log.Error("mongoDB connection failed", zap.Error(err))
		return nil, err
	}

	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(ctx)
		log.Error("mongoDB connection failed", zap.Error(err))
		return nil, err
	}

	log.Info("mongoDB connected")
	return client, nil
}

func DisconnectMongo(ctx context.Context, client *mongo.Client, log *zap.Logger) {
	if err := client.Disconnect(ctx); err != nil {
		log.Error("mongoDB disconnect failed", zap.Error(err))
		return
	}
	log.Warn("mongoDB disconnected")
}

// EnsureIndexes creates the indexes the repositories rely on.
func EnsureIndexes(ctx context.Context, database *mongo.Database) error {
	_, err := database.Collection(CampaignsCollection).Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "pId", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "owner", Value: 1}}},
	})
	if err != nil {
		return fmt.Errorf("campaign indexes: %w", err)
	}

	_, err = database.Collection(DonationsCollection).Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "txHash", Value: 1}, {Key: "logIndex", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "campaign", Value: 1}, {Key: "funder", Value: 1}}},
	})
	if err != nil {
		return fmt.Errorf("donation indexes: %w", err)
	}
	return nil
}
