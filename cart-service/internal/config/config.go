package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/joeshaw/envdecode"
	"github.com/joho/godotenv"
)

const (
	StorageMemory = "memory"
	StorageRedis  = "redis"
	StorageMongo  = "mongo"
)

type Config struct {
	HTTPPort           string        `env:"PORT,default=8080"`
	RequestTimeout     time.Duration `env:"REQUEST_TIMEOUT,default=30s"`
	ShutdownTimeout    time.Duration `env:"SHUTDOWN_TIMEOUT,default=10s"`
	MaxRequestBodySize int64         `env:"MAX_REQUEST_BODY_SIZE,default=1048576"`

	Storage      string        `env:"CART_STORAGE,default=memory"`
	Namespace    string        `env:"CART_NAMESPACE,default=tomoca_cart_v1"`
	TTL          time.Duration `env:"CART_TTL,default=0s"`
	MaxOpenCarts int           `env:"CART_CACHE_SIZE,default=10000"`

	RedisAddr     string `env:"REDIS_ADDR,default=localhost:6379"`
	RedisPassword string `env:"REDIS_PASSWORD"`
	RedisDB       int    `env:"REDIS_DB,default=0"`

	MongoURI    string `env:"MONGO_URI,default=mongodb://localhost:27017"`
	MongoDBName string `env:"MONGO_DB_NAME,default=cartdb"`

	LogLevel  string `env:"LOG_LEVEL,default=info"`
	LogPretty bool   `env:"LOG_PRETTY,default=false"`
}

// Load reads an optional .env file and then the process environment.
func Load() (*Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if err := envdecode.Decode(&cfg); err != nil && !errors.Is(err, envdecode.ErrNoTargetFieldsAreSet) {
		return nil, fmt.Errorf("decode env: %w", err)
	}

	cfg.Storage = strings.ToLower(strings.TrimSpace(cfg.Storage))
	switch cfg.Storage {
	case StorageMemory, StorageRedis, StorageMongo:
	default:
		return nil, fmt.Errorf("unsupported CART_STORAGE %q", cfg.Storage)
	}
	if cfg.TTL < 0 {
		return nil, fmt.Errorf("CART_TTL must not be negative")
	}

	return &cfg, nil
}
