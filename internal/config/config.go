package config

import (
	"errors"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/Dias221467/connections-chat/pkg/logger"
)

// Config holds the runtime settings of the service.
type Config struct {
	Port        string
	MongoURI    string
	DBName      string
	StoreDriver string

	JWTSecret string

	RedisURL          string
	AsynqConcurrency  int
	AsynqQueues       string
	ReconcileSchedule string

	AllowedOrigins           []string
	RequireConnectionForChat bool
	LogLevel                 string
}

const (
	StoreMongo  = "mongo"
	StoreMemory = "memory"
)

// LoadConfig reads .env (when present) and the process environment.
func LoadConfig() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		logger.Log.Debug("No .env file found, using process environment")
	}
	return Parse(NewViper())
}

// NewViper returns a viper instance bound to the environment with defaults applied.
func NewViper() *viper.Viper {
	v := viper.New()
	v.AutomaticEnv()

	v.SetDefault("PORT", "8080")
	v.SetDefault("MONGO_URI", "mongodb://localhost:27017")
	v.SetDefault("DB_NAME", "connections")
	v.SetDefault("STORE_DRIVER", StoreMongo)
	v.SetDefault("ASYNQ_CONCURRENCY", 10)
	v.SetDefault("ASYNQ_QUEUES", "default=1")
	v.SetDefault("RECONCILE_SCHEDULE", "@hourly")
	v.SetDefault("ALLOWED_ORIGINS", "http://localhost:3000")
	v.SetDefault("REQUIRE_CONNECTION_FOR_CHAT", false)
	v.SetDefault("LOG_LEVEL", "info")
	return v
}

func Parse(v *viper.Viper) (*Config, error) {
	cfg := &Config{
		Port:                     v.GetString("PORT"),
		MongoURI:                 v.GetString("MONGO_URI"),
		DBName:                   v.GetString("DB_NAME"),
		StoreDriver:              strings.ToLower(v.GetString("STORE_DRIVER")),
		JWTSecret:                v.GetString("JWT_SECRET"),
		RedisURL:                 v.GetString("REDIS_URL"),
		AsynqConcurrency:         v.GetInt("ASYNQ_CONCURRENCY"),
		AsynqQueues:              v.GetString("ASYNQ_QUEUES"),
		ReconcileSchedule:        v.GetString("RECONCILE_SCHEDULE"),
		RequireConnectionForChat: v.GetBool("REQUIRE_CONNECTION_FOR_CHAT"),
		LogLevel:                 v.GetString("LOG_LEVEL"),
	}

	for _, origin := range strings.Split(v.GetString("ALLOWED_ORIGINS"), ",") {
		if origin = strings.TrimSpace(origin); origin != "" {
			cfg.AllowedOrigins = append(cfg.AllowedOrigins, origin)
		}
	}

	if cfg.JWTSecret == "" {
		return nil, errors.New("JWT_SECRET is required")
	}
	if cfg.StoreDriver != StoreMongo && cfg.StoreDriver != StoreMemory {
		return nil, errors.New("STORE_DRIVER must be mongo or memory")
	}
	if cfg.AsynqConcurrency <= 0 {
		cfg.AsynqConcurrency = 10
	}
	return cfg, nil
}
