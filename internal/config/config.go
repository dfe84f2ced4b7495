package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration
type Config struct {
	App       AppConfig       `mapstructure:"app"`
	Universe  UniverseConfig  `mapstructure:"universe"`
	Triggers  TriggerConfig   `mapstructure:"triggers"`
	Selection SelectionConfig `mapstructure:"selection"`
	Trading   TradingConfig   `mapstructure:"trading"`
	Oracle    OracleConfig    `mapstructure:"oracle"`
	Market    MarketConfig    `mapstructure:"market"`
	Redis     RedisConfig     `mapstructure:"redis"`
	Benchmark BenchmarkConfig `mapstructure:"benchmark"`
}

// AppConfig contains application-level settings
type AppConfig struct {
	Name     string `mapstructure:"name"`
	LogLevel string `mapstructure:"log_level"`
	LogFmt   string `mapstructure:"log_format"` // "json" or "console"
}

// UniverseConfig defines the symbol universe scanned each cycle
type UniverseConfig struct {
	Symbols  []string `mapstructure:"symbols"`
	Interval string   `mapstructure:"interval"` // e.g. 15m, 1h, 2h, 4h, 1d
	Period   string   `mapstructure:"period"`   // e.g. 7d, 14d, 30d
}

// TriggerConfig contains base trigger thresholds before adaptive tightening
type TriggerConfig struct {
	VolumeRatioMin       float64 `mapstructure:"volume_ratio_min"`        // volume-momentum gate
	Ret1MinPct           float64 `mapstructure:"ret1_min_pct"`            // volume-momentum gate
	Ret4MinPct           float64 `mapstructure:"ret4_min_pct"`            // volatility-trend gate
	BreakoutVolRatioMin  float64 `mapstructure:"breakout_vol_ratio_min"`  // range-breakout gate
	TighteningFactor     float64 `mapstructure:"tightening_factor"`       // median ATR-expansion scaling
	TopNPerTrigger       int     `mapstructure:"top_n_per_trigger"`
}

// SelectionConfig controls the final hybrid selector
type SelectionConfig struct {
	MaxPositions       int `mapstructure:"max_positions"`
	FallbackMaxEntries int `mapstructure:"fallback_max_entries"`
}

// TradingConfig contains Phase-2 controller settings
type TradingConfig struct {
	Mode                   string  `mapstructure:"mode"` // "paper" only; "real" rejects
	MaxSlots               int     `mapstructure:"max_slots"`
	QuoteAmount            float64 `mapstructure:"quote_amount"`
	FeeRate                float64 `mapstructure:"fee_rate"`
	SlippageRate           float64 `mapstructure:"slippage_rate"`
	RotationMinScoreDelta  float64 `mapstructure:"rotation_min_score_delta"`
	RotationLossPriority   float64 `mapstructure:"rotation_loss_priority_pct"`
	RotationMaxPerCycle    int     `mapstructure:"rotation_max_per_cycle"`
	RotationMinHoldHours   float64 `mapstructure:"rotation_min_holding_hours"`
	ReentryCooldownHours   float64 `mapstructure:"reentry_cooldown_hours"`
}

// OracleConfig contains scenario oracle settings
type OracleConfig struct {
	Endpoint    string  `mapstructure:"endpoint"`
	Model       string  `mapstructure:"model"`
	Temperature float64 `mapstructure:"temperature"`
	MaxTokens   int     `mapstructure:"max_tokens"`
	TimeoutMS   int     `mapstructure:"timeout_ms"`
	MaxRetries  int     `mapstructure:"max_retries"`
	Language    string  `mapstructure:"language"` // ko or en
}

// MarketConfig contains market data client settings
type MarketConfig struct {
	BaseURL           string  `mapstructure:"base_url"`
	TimeoutMS         int     `mapstructure:"timeout_ms"`
	RequestsPerSecond float64 `mapstructure:"requests_per_second"`
	FetchConcurrency  int     `mapstructure:"fetch_concurrency"`
	SpotCacheTTL      int     `mapstructure:"spot_cache_ttl"` // seconds
}

// RedisConfig contains optional Redis settings for the spot-price cache
type RedisConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// BenchmarkConfig contains benchmark exporter settings
type BenchmarkConfig struct {
	OutputPath     string  `mapstructure:"output_path"`
	InitialCapital float64 `mapstructure:"initial_capital"`
	LogDir         string  `mapstructure:"log_dir"`
	ExecutionLimit int     `mapstructure:"execution_limit"`
	CoinGeckoURL   string  `mapstructure:"coingecko_url"`
}

// Load loads configuration from file and environment variables
func Load(configPath string) (*Config, error) {
	v := viper.New()

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath("./configs")
		v.AddConfigPath(".")
	}

	v.AutomaticEnv()
	v.SetEnvPrefix("CRYPTOSWING")

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		// Config file not found; using defaults and environment variables
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// DefaultUniverse is the symbol set scanned when none is configured.
var DefaultUniverse = []string{
	"BTC-USD", "ETH-USD", "SOL-USD", "BNB-USD",
	"XRP-USD", "ADA-USD", "DOGE-USD", "AVAX-USD",
	"LINK-USD", "DOT-USD", "TRX-USD", "XLM-USD",
	"LTC-USD", "BCH-USD", "ATOM-USD", "NEAR-USD",
}

// setDefaults sets default configuration values
func setDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "cryptoswing")
	v.SetDefault("app.log_level", "info")
	v.SetDefault("app.log_format", "console")

	v.SetDefault("universe.symbols", DefaultUniverse)
	v.SetDefault("universe.interval", "1h")
	v.SetDefault("universe.period", "14d")

	v.SetDefault("triggers.volume_ratio_min", 1.20)
	v.SetDefault("triggers.ret1_min_pct", 0.15)
	v.SetDefault("triggers.ret4_min_pct", 0.25)
	v.SetDefault("triggers.breakout_vol_ratio_min", 1.10)
	v.SetDefault("triggers.tightening_factor", 0.25)
	v.SetDefault("triggers.top_n_per_trigger", 10)

	v.SetDefault("selection.max_positions", 3)
	v.SetDefault("selection.fallback_max_entries", 1)

	v.SetDefault("trading.mode", "paper")
	v.SetDefault("trading.max_slots", 10)
	v.SetDefault("trading.quote_amount", 100.0)
	v.SetDefault("trading.fee_rate", 0.001)
	v.SetDefault("trading.slippage_rate", 0.0005)
	v.SetDefault("trading.rotation_min_score_delta", 0.12)
	v.SetDefault("trading.rotation_loss_priority_pct", -2.0)
	v.SetDefault("trading.rotation_max_per_cycle", 1)
	v.SetDefault("trading.rotation_min_holding_hours", 4.0)
	v.SetDefault("trading.reentry_cooldown_hours", 0.0)

	v.SetDefault("oracle.endpoint", "https://api.openai.com/v1/chat/completions")
	v.SetDefault("oracle.model", "gpt-5-nano")
	v.SetDefault("oracle.temperature", 0.2)
	v.SetDefault("oracle.max_tokens", 4000)
	v.SetDefault("oracle.timeout_ms", 15000)
	v.SetDefault("oracle.max_retries", 2)
	v.SetDefault("oracle.language", "ko")

	v.SetDefault("market.base_url", "https://query1.finance.yahoo.com")
	v.SetDefault("market.timeout_ms", 15000)
	v.SetDefault("market.requests_per_second", 4.0)
	v.SetDefault("market.fetch_concurrency", 4)
	v.SetDefault("market.spot_cache_ttl", 60)

	v.SetDefault("redis.enabled", false)
	v.SetDefault("redis.host", "localhost")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("redis.db", 0)

	v.SetDefault("benchmark.output_path", "examples/dashboard/public/crypto_benchmark_data.json")
	v.SetDefault("benchmark.initial_capital", 1000.0)
	v.SetDefault("benchmark.log_dir", "logs")
	v.SetDefault("benchmark.execution_limit", 200)
	v.SetDefault("benchmark.coingecko_url", "https://api.coingecko.com/api/v3")
}

// Validate checks configuration invariants that would otherwise surface
// deep inside a cycle.
func (c *Config) Validate() error {
	if c.Trading.Mode != "paper" {
		return fmt.Errorf("unsupported trade mode %q: only paper is implemented", c.Trading.Mode)
	}
	if c.Trading.MaxSlots <= 0 {
		return fmt.Errorf("trading.max_slots must be positive, got %d", c.Trading.MaxSlots)
	}
	if c.Trading.QuoteAmount <= 0 {
		return fmt.Errorf("trading.quote_amount must be positive, got %f", c.Trading.QuoteAmount)
	}
	if c.Trading.ReentryCooldownHours < 0 {
		return fmt.Errorf("trading.reentry_cooldown_hours must be >= 0, got %f", c.Trading.ReentryCooldownHours)
	}
	if c.Selection.MaxPositions <= 0 {
		return fmt.Errorf("selection.max_positions must be positive, got %d", c.Selection.MaxPositions)
	}
	if len(c.Universe.Symbols) == 0 {
		return fmt.Errorf("universe.symbols must not be empty")
	}
	if c.Oracle.Language != "ko" && c.Oracle.Language != "en" {
		return fmt.Errorf("oracle.language must be ko or en, got %q", c.Oracle.Language)
	}
	return nil
}

// GetRedisAddr returns the Redis address
func (c *RedisConfig) GetRedisAddr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// GetTimeout returns the oracle timeout as time.Duration
func (c *OracleConfig) GetTimeout() time.Duration {
	return time.Duration(c.TimeoutMS) * time.Millisecond
}

// GetTimeout returns the market client timeout as time.Duration
func (c *MarketConfig) GetTimeout() time.Duration {
	return time.Duration(c.TimeoutMS) * time.Millisecond
}
