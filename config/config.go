package config

import (
	"fmt"
	"strings"
	"time"

	goValidator "github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Log          Logger       `mapstructure:"logger"`
	API          API          `mapstructure:"api"`
	AI           AI           `mapstructure:"ai"`
	YahooFinance YahooFinance `mapstructure:"yahoo_finance"`
	Scanner      Scanner      `mapstructure:"scanner"`
	Scheduler    Scheduler    `mapstructure:"scheduler"`
	Cache        Cache        `mapstructure:"cache"`
	Market       Market       `mapstructure:"market"`
}

type Logger struct {
	Level    string `mapstructure:"level" validate:"required,oneof=debug info warn error"`
	Encoding string `mapstructure:"encoding" validate:"required,oneof=json console"`
}

type API struct {
	Port             int           `mapstructure:"port" validate:"gt=0"`
	RateLimitPerSec  float64       `mapstructure:"rate_limit_per_sec" validate:"gt=0"`
	RateLimitBurst   int           `mapstructure:"rate_limit_burst" validate:"gt=0"`
	RateLimitExpires time.Duration `mapstructure:"rate_limit_expires"`
}

type AI struct {
	BaseURL             string        `mapstructure:"base_url" validate:"required,url"`
	APIKey              string        `mapstructure:"api_key"`
	Model               string        `mapstructure:"model" validate:"required"`
	Temperature         float32       `mapstructure:"temperature" validate:"gte=0,lte=2"`
	Timeout             time.Duration `mapstructure:"timeout" validate:"gt=0"`
	PullTimeout         time.Duration `mapstructure:"pull_timeout" validate:"gt=0"`
	Stream              bool          `mapstructure:"stream"`
	MaxRequestPerMinute int           `mapstructure:"max_request_per_minute" validate:"gt=0"`
	MaxTokenPerMinute   int           `mapstructure:"max_token_per_minute" validate:"gt=0"`
	TokenCounter        TokenCounter  `mapstructure:"token_counter"`
}

// TokenCounter selects how prompt tokens are counted before the token limiter is charged.
// Provider "gemini" asks the Gemini CountTokens API, anything else uses a local estimate.
type TokenCounter struct {
	Provider string `mapstructure:"provider" validate:"omitempty,oneof=estimate gemini"`
	APIKey   string `mapstructure:"api_key"`
	Model    string `mapstructure:"model"`
}

type YahooFinance struct {
	BaseURL             string        `mapstructure:"base_url" validate:"required,url"`
	Timeout             time.Duration `mapstructure:"timeout" validate:"gt=0"`
	MaxRequestPerMinute int           `mapstructure:"max_request_per_minute" validate:"gt=0"`
	Range               string        `mapstructure:"range" validate:"required"`
	Interval            string        `mapstructure:"interval" validate:"required"`
}

type Scanner struct {
	BatchSize  int           `mapstructure:"batch_size" validate:"gt=0"`
	BatchPause time.Duration `mapstructure:"batch_pause"`
}

type Scheduler struct {
	WatchlistCron   string        `mapstructure:"watchlist_cron"`
	Watchlist       []string      `mapstructure:"watchlist"`
	WatchlistMarket string        `mapstructure:"watchlist_market"`
	ResultTTL       time.Duration `mapstructure:"result_ttl"`
}

type Cache struct {
	DefaultExpiration time.Duration `mapstructure:"default_expiration"`
	CleanupInterval   time.Duration `mapstructure:"cleanup_interval"`
	StockDataTTL      time.Duration `mapstructure:"stock_data_ttl"`
}

type Market struct {
	TimeZone string `mapstructure:"time_zone"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.encoding", "json")

	v.SetDefault("api.port", 8080)
	v.SetDefault("api.rate_limit_per_sec", 10)
	v.SetDefault("api.rate_limit_burst", 30)
	v.SetDefault("api.rate_limit_expires", 3*time.Minute)

	v.SetDefault("ai.base_url", "https://api.openai.com/v1")
	v.SetDefault("ai.api_key", "")
	v.SetDefault("ai.model", "gpt-3.5-turbo")
	v.SetDefault("ai.temperature", 0.7)
	v.SetDefault("ai.timeout", 60*time.Second)
	v.SetDefault("ai.pull_timeout", 30*time.Second)
	v.SetDefault("ai.stream", true)
	v.SetDefault("ai.max_request_per_minute", 30)
	v.SetDefault("ai.max_token_per_minute", 200000)
	v.SetDefault("ai.token_counter.provider", "estimate")
	v.SetDefault("ai.token_counter.api_key", "")
	v.SetDefault("ai.token_counter.model", "gemini-2.0-flash")

	v.SetDefault("yahoo_finance.base_url", "https://query1.finance.yahoo.com/v8/finance/chart")
	v.SetDefault("yahoo_finance.timeout", 15*time.Second)
	v.SetDefault("yahoo_finance.max_request_per_minute", 60)
	v.SetDefault("yahoo_finance.range", "1y")
	v.SetDefault("yahoo_finance.interval", "1d")

	v.SetDefault("scanner.batch_size", 4)
	v.SetDefault("scanner.batch_pause", 2*time.Second)

	v.SetDefault("scheduler.watchlist_cron", "")
	v.SetDefault("scheduler.watchlist", []string{})
	v.SetDefault("scheduler.watchlist_market", "A")
	v.SetDefault("scheduler.result_ttl", 24*time.Hour)

	v.SetDefault("cache.default_expiration", 10*time.Minute)
	v.SetDefault("cache.cleanup_interval", 15*time.Minute)
	v.SetDefault("cache.stock_data_ttl", 5*time.Minute)

	v.SetDefault("market.time_zone", "Asia/Shanghai")
}

// Load reads .env, config.yaml and the environment into a validated Config.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		fmt.Println("No .env file loaded:", err)
	}

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AddConfigPath(".")
	v.AutomaticEnv()
	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		fmt.Println("No config file loaded:", err)
	}

	return unmarshal(v)
}

func unmarshal(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := goValidator.New().Struct(&cfg); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &cfg, nil
}
