package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/joeshaw/envdecode"
	"github.com/joho/godotenv"
)

type Config struct {
	BotToken    string `env:"BOT_TOKEN"`
	BotUsername string `env:"BOT_USERNAME,default=Tomocashopbot"`

	SupabaseURL     string        `env:"SUPABASE_URL"`
	SupabaseKey     string        `env:"SUPABASE_SERVICE_ROLE_KEY"`
	SupabaseTimeout time.Duration `env:"SUPABASE_TIMEOUT,default=10s"`

	PublicBaseURL string `env:"PUBLIC_BASE_URL"`
	WebhookSecret string `env:"WEBHOOK_SECRET"`
	HTTPPort      string `env:"PORT,default=3000"`

	AdminChatID string `env:"ADMIN_CHAT_ID"`
	DatabaseURL string `env:"DATABASE_URL"`

	KafkaBrokers    string `env:"KAFKA_BROKERS"`
	KafkaOrderTopic string `env:"KAFKA_ORDER_TOPIC,default=order-events"`

	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT,default=10s"`
	LogLevel        string        `env:"LOG_LEVEL,default=info"`
	LogPretty       bool          `env:"LOG_PRETTY,default=false"`
}

// Load reads an optional .env file and then the process environment. A
// missing required variable is reported by name.
func Load() (*Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if err := envdecode.Decode(&cfg); err != nil && !errors.Is(err, envdecode.ErrNoTargetFieldsAreSet) {
		return nil, fmt.Errorf("decode env: %w", err)
	}

	required := []struct {
		name  string
		value string
	}{
		{"BOT_TOKEN", cfg.BotToken},
		{"SUPABASE_URL", cfg.SupabaseURL},
		{"SUPABASE_SERVICE_ROLE_KEY", cfg.SupabaseKey},
		{"PUBLIC_BASE_URL", cfg.PublicBaseURL},
		{"WEBHOOK_SECRET", cfg.WebhookSecret},
	}
	for _, r := range required {
		if strings.TrimSpace(r.value) == "" {
			return nil, fmt.Errorf("missing required env var: %s", r.name)
		}
	}

	cfg.BotUsername = strings.TrimPrefix(strings.TrimSpace(cfg.BotUsername), "@")
	if cfg.BotUsername == "" {
		cfg.BotUsername = "Tomocashopbot"
	}

	return &cfg, nil
}

// WebhookURL is the public URL Telegram posts updates to.
func (c *Config) WebhookURL() string {
	return strings.TrimRight(c.PublicBaseURL, "/") + "/webhook/" + c.WebhookSecret
}

func (c *Config) Brokers() []string {
	var out []string
	for _, b := range strings.Split(c.KafkaBrokers, ",") {
		if b = strings.TrimSpace(b); b != "" {
			out = append(out, b)
		}
	}
	return out
}
