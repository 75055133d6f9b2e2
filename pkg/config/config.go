package config

import (
	"errors"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

type Config struct {
	Env  string
	Port int

	Log          LogConfig
	Approvals    ApprovalsConfig
	Inventory    InventoryConfig
	Subscription SubscriptionConfig
	Reports      ReportsConfig
	Seed         SeedConfig
}

type LogConfig struct {
	Level  string
	Format string
}

// ApprovalsConfig tunes the approval engine defaults.
type ApprovalsConfig struct {
	DefaultCurrency string
	MaxBulkSize     int
}

// InventoryConfig governs stock alerting.
type InventoryConfig struct {
	DefaultMinQuantity int
}

// SubscriptionConfig selects the active billing tier.
type SubscriptionConfig struct {
	Tier string
}

// ReportsConfig configures asynchronous report generation.
type ReportsConfig struct {
	WorkerConcurrency int
	QueueSize         int
	WorkerRetries     int
	RetryDelay        time.Duration
}

// SeedConfig toggles the demo dataset loaded at startup.
type SeedConfig struct {
	Enabled bool
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigFile(".env")
	v.SetConfigType("env")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, err
		}
	}

	cfg := &Config{}

	cfg.Env = v.GetString("ENV")
	cfg.Port = v.GetInt("PORT")

	cfg.Log = LogConfig{
		Level:  v.GetString("LOG_LEVEL"),
		Format: v.GetString("LOG_FORMAT"),
	}

	cfg.Approvals = ApprovalsConfig{
		DefaultCurrency: v.GetString("APPROVALS_DEFAULT_CURRENCY"),
		MaxBulkSize:     v.GetInt("APPROVALS_MAX_BULK_SIZE"),
	}

	cfg.Inventory = InventoryConfig{
		DefaultMinQuantity: v.GetInt("INVENTORY_DEFAULT_MIN_QUANTITY"),
	}

	cfg.Subscription = SubscriptionConfig{
		Tier: v.GetString("SUBSCRIPTION_TIER"),
	}

	cfg.Reports = ReportsConfig{
		WorkerConcurrency: v.GetInt("REPORTS_WORKER_CONCURRENCY"),
		QueueSize:         v.GetInt("REPORTS_QUEUE_SIZE"),
		WorkerRetries:     v.GetInt("REPORTS_WORKER_RETRIES"),
		RetryDelay:        parseDuration(v.GetString("REPORTS_RETRY_DELAY"), time.Second),
	}

	cfg.Seed = SeedConfig{
		Enabled: v.GetBool("SEED_DEMO_DATA"),
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("ENV", EnvDevelopment)
	v.SetDefault("PORT", 9090)

	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")

	v.SetDefault("APPROVALS_DEFAULT_CURRENCY", "TND")
	v.SetDefault("APPROVALS_MAX_BULK_SIZE", 100)

	v.SetDefault("INVENTORY_DEFAULT_MIN_QUANTITY", 5)

	v.SetDefault("SUBSCRIPTION_TIER", "starter")

	v.SetDefault("REPORTS_WORKER_CONCURRENCY", 1)
	v.SetDefault("REPORTS_QUEUE_SIZE", 16)
	v.SetDefault("REPORTS_WORKER_RETRIES", 3)
	v.SetDefault("REPORTS_RETRY_DELAY", "1s")

	v.SetDefault("SEED_DEMO_DATA", true)
}

func parseDuration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}

	d, err := time.ParseDuration(raw)
	if err != nil {
		return fallback
	}

	return d
}
