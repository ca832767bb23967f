package database

import (
	"context"
	"fmt"
	"time"

	"github.com/Dias221467/connections-chat/pkg/logger"
	"github.com/redis/go-redis/v9"
)

// ConnectRedis opens a client for the given redis URL and verifies it with a ping.
func ConnectRedis(ctx context.Context, url string) (*redis.Client, error) {
	opt, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("redis: parse url: %w", err)
	}
	client := redis.NewClient(opt)

	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis: ping: %w", err)
	}

	logger.Log.Info("Connected to Redis")
	return client, nil
}
