package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/rewired-gh/quickodds/internal/models"
	"github.com/rewired-gh/quickodds/internal/odds"
	"github.com/rewired-gh/quickodds/internal/session"
)

// Config represents the complete application configuration
type Config struct {
	Feed     FeedConfig     `mapstructure:"feed"`
	Market   MarketConfig   `mapstructure:"market"`
	Odds     OddsConfig     `mapstructure:"odds"`
	Assets   []models.Asset `mapstructure:"assets"`
	Cache    CacheConfig    `mapstructure:"cache"`
	Server   ServerConfig   `mapstructure:"server"`
	Telegram TelegramConfig `mapstructure:"telegram"`
	Logging  LoggingConfig  `mapstructure:"logging"`
}

// FeedConfig holds price source configuration
type FeedConfig struct {
	BaseURL       string        `mapstructure:"base_url"`
	VsCurrency    string        `mapstructure:"vs_currency"`
	APIKey        string        `mapstructure:"api_key"`
	PollInterval  time.Duration `mapstructure:"poll_interval"`
	Timeout       time.Duration `mapstructure:"timeout"`
	RatePerMinute int           `mapstructure:"rate_per_minute"`
	RateBurst     int           `mapstructure:"rate_burst"`
}

// MarketConfig holds quick market and series configuration
type MarketConfig struct {
	Duration          time.Duration `mapstructure:"duration"`
	SeriesCap         int           `mapstructure:"series_cap"`
	SeedPoints        int           `mapstructure:"seed_points"`
	SeedSpacing       time.Duration `mapstructure:"seed_spacing"`
	CountdownInterval time.Duration `mapstructure:"countdown_interval"`
}

// OddsConfig holds odds calculator bounds
type OddsConfig struct {
	DefaultSensitivity float64 `mapstructure:"default_sensitivity"`
	Floor              float64 `mapstructure:"floor"`
	Ceiling            float64 `mapstructure:"ceiling"`
}

// CacheConfig selects the last-price cache backend
type CacheConfig struct {
	Backend string      `mapstructure:"backend"` // sqlite | redis | memory
	DBPath  string      `mapstructure:"db_path"`
	Redis   RedisConfig `mapstructure:"redis"`
}

// RedisConfig holds Redis connection parameters
type RedisConfig struct {
	Addr       string `mapstructure:"addr"`
	Password   string `mapstructure:"password"`
	DB         int    `mapstructure:"db"`
	PoolSize   int    `mapstructure:"pool_size"`
	MaxRetries int    `mapstructure:"max_retries"`
	TLSEnabled bool   `mapstructure:"tls_enabled"`
}

// ServerConfig holds the HTTP/websocket API configuration
type ServerConfig struct {
	Enabled         bool          `mapstructure:"enabled"`
	Addr            string        `mapstructure:"addr"`
	AllowedOrigins  []string      `mapstructure:"allowed_origins"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// TelegramConfig holds Telegram notification configuration
type TelegramConfig struct {
	BotToken       string        `mapstructure:"bot_token"`
	ChatID         string        `mapstructure:"chat_id"`
	Enabled        bool          `mapstructure:"enabled"`
	MaxRetries     int           `mapstructure:"max_retries"`
	RetryDelayBase time.Duration `mapstructure:"retry_delay_base"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level      string `mapstructure:"level"`
	Format     string `mapstructure:"format"`
	File       string `mapstructure:"file"`
	MaxSizeMB  int    `mapstructure:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAgeDays int    `mapstructure:"max_age_days"`
}

// Load reads configuration from file and environment variables.
// An empty path loads defaults and environment only.
func Load(path string) (*Config, error) {
	// .env is optional
	_ = godotenv.Load()

	v := viper.New()

	setDefaults(v)

	v.SetEnvPrefix("QUICKODDS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &cfg, nil
}

// setDefaults configures default values for all configuration options
func setDefaults(v *viper.Viper) {
	// Feed defaults
	v.SetDefault("feed.base_url", "https://api.coingecko.com/api/v3")
	v.SetDefault("feed.vs_currency", "usd")
	v.SetDefault("feed.poll_interval", "10s")
	v.SetDefault("feed.timeout", "30s")
	v.SetDefault("feed.rate_per_minute", 30) // public API tier
	v.SetDefault("feed.rate_burst", 5)

	// Market defaults
	v.SetDefault("market.duration", "15m")
	v.SetDefault("market.series_cap", 90)
	v.SetDefault("market.seed_points", 21)
	v.SetDefault("market.seed_spacing", "10s")
	v.SetDefault("market.countdown_interval", "1s")

	// Odds defaults
	v.SetDefault("odds.default_sensitivity", 10.0)
	v.SetDefault("odds.floor", 0.05)
	v.SetDefault("odds.ceiling", 0.95)

	assets := make([]map[string]any, 0, 5)
	for _, a := range models.DefaultAssets() {
		assets = append(assets, map[string]any{
			"id":          a.ID,
			"key":         a.Key,
			"name":        a.Name,
			"symbol":      a.Symbol,
			"image":       a.Image,
			"sensitivity": a.Sensitivity,
		})
	}
	v.SetDefault("assets", assets)

	// Cache defaults
	v.SetDefault("cache.backend", "sqlite")
	v.SetDefault("cache.db_path", "")
	v.SetDefault("cache.redis.addr", "localhost:6379")
	v.SetDefault("cache.redis.pool_size", 10)
	v.SetDefault("cache.redis.max_retries", 3)

	// Server defaults
	v.SetDefault("server.enabled", true)
	v.SetDefault("server.addr", ":8080")
	v.SetDefault("server.shutdown_timeout", "5s")

	// Telegram defaults
	v.SetDefault("telegram.enabled", false)
	v.SetDefault("telegram.max_retries", 3)
	v.SetDefault("telegram.retry_delay_base", "1s")

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
	v.SetDefault("logging.max_size_mb", 10)
	v.SetDefault("logging.max_backups", 3)
	v.SetDefault("logging.max_age_days", 28)
}

// Validate checks that all configuration values are valid
func (c *Config) Validate() error {
	// Validate Feed config
	if c.Feed.BaseURL == "" {
		return fmt.Errorf("feed.base_url is required")
	}
	if c.Feed.VsCurrency == "" {
		return fmt.Errorf("feed.vs_currency is required")
	}
	if c.Feed.PollInterval < time.Second {
		return fmt.Errorf("feed.poll_interval must be at least 1 second")
	}
	if c.Feed.Timeout < 0 {
		return fmt.Errorf("feed.timeout must not be negative")
	}
	if c.Feed.RatePerMinute < 0 {
		return fmt.Errorf("feed.rate_per_minute must not be negative")
	}

	// Validate Market config
	if c.Market.Duration < time.Minute {
		return fmt.Errorf("market.duration must be at least 1 minute")
	}
	if c.Market.SeriesCap < 2 {
		return fmt.Errorf("market.series_cap must be at least 2")
	}
	if c.Market.SeedPoints < 0 || c.Market.SeedPoints > c.Market.SeriesCap {
		return fmt.Errorf("market.seed_points must be between 0 and market.series_cap")
	}
	if c.Market.SeedSpacing <= 0 {
		return fmt.Errorf("market.seed_spacing must be positive")
	}
	if c.Market.CountdownInterval <= 0 || c.Market.CountdownInterval > c.Feed.PollInterval {
		return fmt.Errorf("market.countdown_interval must be positive and not exceed feed.poll_interval")
	}

	// Validate Odds config
	if c.Odds.DefaultSensitivity <= 0 {
		return fmt.Errorf("odds.default_sensitivity must be positive")
	}
	if c.Odds.Floor <= 0 || c.Odds.Ceiling >= 1 || c.Odds.Floor >= c.Odds.Ceiling {
		return fmt.Errorf("odds.floor and odds.ceiling must satisfy 0 < floor < ceiling < 1")
	}

	// Validate Assets
	if len(c.Assets) == 0 {
		return fmt.Errorf("assets must contain at least one asset")
	}
	for i, a := range c.Assets {
		if a.ID == "" || a.Symbol == "" {
			return fmt.Errorf("assets[%d]: id and symbol are required", i)
		}
		if a.Sensitivity < 0 {
			return fmt.Errorf("assets[%d]: sensitivity must not be negative", i)
		}
	}

	// Validate Cache config
	switch c.Cache.Backend {
	case "sqlite", "memory":
	case "redis":
		if c.Cache.Redis.Addr == "" {
			return fmt.Errorf("cache.redis.addr is required when cache.backend is redis")
		}
	default:
		return fmt.Errorf("cache.backend must be one of: sqlite, redis, memory")
	}

	// Validate Server config
	if c.Server.Enabled && c.Server.Addr == "" {
		return fmt.Errorf("server.addr is required when server is enabled")
	}

	// Validate Telegram config
	if c.Telegram.Enabled {
		if c.Telegram.BotToken == "" {
			return fmt.Errorf("telegram.bot_token is required when telegram is enabled")
		}
		if c.Telegram.ChatID == "" {
			return fmt.Errorf("telegram.chat_id is required when telegram is enabled")
		}
	}

	// Validate Logging config
	validLogLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLogLevels[c.Logging.Level] {
		return fmt.Errorf("logging.level must be one of: debug, info, warn, error")
	}
	validFormats := map[string]bool{"json": true, "text": true}
	if !validFormats[c.Logging.Format] {
		return fmt.Errorf("logging.format must be one of: json, text")
	}

	return nil
}

// SessionConfig builds the per-session engine configuration.
func (c *Config) SessionConfig() session.Config {
	return session.Config{
		SeriesCap:         c.Market.SeriesCap,
		SeedPoints:        c.Market.SeedPoints,
		SeedSpacing:       c.Market.SeedSpacing,
		PollInterval:      c.Feed.PollInterval,
		CountdownInterval: c.Market.CountdownInterval,
		MarketDuration:    c.Market.Duration,
		Odds: odds.ConfigFromAssets(c.Assets,
			c.Odds.DefaultSensitivity, c.Odds.Floor, c.Odds.Ceiling),
	}
}

// Catalog returns the configured asset catalog.
func (c *Config) Catalog() *models.Catalog {
	return models.NewCatalog(c.Assets)
}
