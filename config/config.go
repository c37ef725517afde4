package config

import (
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Port             string        `mapstructure:"PORT"`
	DBDriver         string        `mapstructure:"DB_DRIVER"`
	DatabaseURL      string        `mapstructure:"DATABASE_URL"`
	GameServiceToken string        `mapstructure:"GAME_SERVICE_TOKEN"`
	JWTSecret        string        `mapstructure:"JWT_SECRET"`
	AllowedOrigins   string        `mapstructure:"ALLOWED_ORIGINS"`
	DefaultQuestions int           `mapstructure:"DEFAULT_QUESTION_COUNT"`
	SeedCatalog      bool          `mapstructure:"SEED_CATALOG"`
	BackfillInterval time.Duration `mapstructure:"BACKFILL_INTERVAL"`

	Redis   RedisConfig   `mapstructure:",squash"`
	MQ      MQConfig      `mapstructure:",squash"`
	R2      R2Config      `mapstructure:",squash"`
	Catalog CatalogConfig `mapstructure:",squash"`
}

type RedisConfig struct {
	Addr     string `mapstructure:"REDIS_ADDR"`
	Password string `mapstructure:"REDIS_PASSWORD"`
	DB       int    `mapstructure:"REDIS_DB"`
}

type MQConfig struct {
	URL       string `mapstructure:"AMQP_URL"`
	QueueName string `mapstructure:"AMQP_QUEUE"`
}

type R2Config struct {
	AccountID       string `mapstructure:"CLOUDFLARE_ACCOUNT_ID"`
	AccessKeyID     string `mapstructure:"R2_ACCESS_KEY_ID"`
	AccessKeySecret string `mapstructure:"R2_ACCESS_KEY_SECRET"`
	Bucket          string `mapstructure:"R2_BUCKET_NAME"`
	CDNBaseURL      string `mapstructure:"CDN_BASE_URL"`
}

// Enabled is true when enough is set to talk to the bucket.
func (c R2Config) Enabled() bool {
	return c.AccountID != "" && c.AccessKeyID != "" && c.Bucket != ""
}

type CatalogConfig struct {
	SyncURL      string        `mapstructure:"CATALOG_SYNC_URL"`
	SyncPath     string        `mapstructure:"CATALOG_SYNC_PATH"`
	SyncInterval time.Duration `mapstructure:"CATALOG_SYNC_INTERVAL"`
}

var keys = []string{
	"PORT", "DB_DRIVER", "DATABASE_URL", "GAME_SERVICE_TOKEN", "JWT_SECRET", "ALLOWED_ORIGINS",
	"DEFAULT_QUESTION_COUNT", "SEED_CATALOG", "BACKFILL_INTERVAL",
	"REDIS_ADDR", "REDIS_PASSWORD", "REDIS_DB",
	"AMQP_URL", "AMQP_QUEUE",
	"CLOUDFLARE_ACCOUNT_ID", "R2_ACCESS_KEY_ID", "R2_ACCESS_KEY_SECRET", "R2_BUCKET_NAME", "CDN_BASE_URL",
	"CATALOG_SYNC_URL", "CATALOG_SYNC_PATH", "CATALOG_SYNC_INTERVAL",
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("PORT", "5200")
	v.SetDefault("DB_DRIVER", "postgres")
	v.SetDefault("ALLOWED_ORIGINS", "http://localhost:3000")
	v.SetDefault("DEFAULT_QUESTION_COUNT", 5)
	v.SetDefault("SEED_CATALOG", true)
	v.SetDefault("BACKFILL_INTERVAL", time.Minute)
	v.SetDefault("AMQP_QUEUE", "match_events")
	v.SetDefault("CATALOG_SYNC_PATH", "/api/v1/flashcards")
	v.SetDefault("CATALOG_SYNC_INTERVAL", 10*time.Minute)
}

// Load reads .env (if present) and the process environment.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Println("⚠️  No .env file found, reading environment variables directly")
	}
	return FromViper(viper.New())
}

// FromViper resolves the configuration from v, falling back to the environment.
func FromViper(v *viper.Viper) (*Config, error) {
	setDefaults(v)
	v.AutomaticEnv()
	// AutomaticEnv alone is not enough for Unmarshal; every key must be known
	for _, k := range keys {
		if err := v.BindEnv(k); err != nil {
			return nil, err
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}
	cfg.DBDriver = strings.ToLower(strings.TrimSpace(cfg.DBDriver))

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL environment variable not set")
	}
	if cfg.GameServiceToken == "" {
		return nil, fmt.Errorf("GAME_SERVICE_TOKEN environment variable not set")
	}
	return &cfg, nil
}

// Origins returns ALLOWED_ORIGINS trimmed and re-joined for fiber's CORS config.
func (c *Config) Origins() string {
	list := strings.Split(c.AllowedOrigins, ",")
	for i, origin := range list {
		list[i] = strings.TrimSpace(origin)
	}
	return strings.Join(list, ",")
}
