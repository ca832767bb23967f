package database

import (
	"context"
	"fmt"
	"time"

	"github.com/Dias221467/connections-chat/internal/config"
	"github.com/Dias221467/connections-chat/pkg/logger"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// ConnectDB opens a client, verifies it with a ping and ensures indexes.
func ConnectDB(ctx context.Context, cfg *config.Config) (*mongo.Database, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.MongoURI))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("failed to ping MongoDB: %w", err)
	}

	db := client.Database(cfg.DBName)
	if err := EnsureIndexes(ctx, db); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, err
	}

	logger.Log.WithField("db", cfg.DBName).Info("Connected to MongoDB")
	return db, nil
}

// EnsureIndexes creates the indexes the repositories rely on for uniqueness
// and ordering. It is idempotent.
func EnsureIndexes(ctx context.Context, db *mongo.Database) error {
	collections := map[string][]mongo.IndexModel{
		"connection_requests": {
			{
				Keys:    bson.D{{Key: "active_pair", Value: 1}},
				Options: options.Index().SetUnique(true).SetSparse(true).SetName("unique_active_pair"),
			},
			{Keys: bson.D{{Key: "receiver_id", Value: 1}, {Key: "status", Value: 1}, {Key: "created_at", Value: -1}}},
			{Keys: bson.D{{Key: "sender_id", Value: 1}, {Key: "status", Value: 1}, {Key: "created_at", Value: -1}}},
		},
		"conversations": {
			{
				Keys:    bson.D{{Key: "pair_key", Value: 1}},
				Options: options.Index().SetUnique(true).SetName("unique_pair_key"),
			},
			{Keys: bson.D{{Key: "participants", Value: 1}, {Key: "last_message_time", Value: -1}}},
		},
		"messages": {
			{Keys: bson.D{{Key: "conversation_id", Value: 1}, {Key: "created_at", Value: 1}, {Key: "seq", Value: 1}}},
			{Keys: bson.D{{Key: "conversation_id", Value: 1}, {Key: "is_read", Value: 1}}},
		},
		"notifications": {
			{
				Keys:    bson.D{{Key: "owner_id", Value: 1}, {Key: "ordinal", Value: -1}},
				Options: options.Index().SetUnique(true).SetName("unique_owner_ordinal"),
			},
		},
	}

	for name, indexes := range collections {
		if _, err := db.Collection(name).Indexes().CreateMany(ctx, indexes); err != nil {
			return fmt.Errorf("failed to create indexes for %s: %w", name, err)
		}
	}
	return nil
}
