// Package config loads service settings from YAML, a .env file and the
// environment, in that order of increasing precedence.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Quote providers. ProviderAuto picks massive when an API key is set, then
// http when a base URL is set, then synthetic.
const (
	ProviderAuto      = "auto"
	ProviderMassive   = "massive"
	ProviderHTTP      = "http"
	ProviderSynthetic = "synthetic"
	ProviderNone      = "none"
)

// Config is the full service configuration, one field per YAML section.
//
// LoadConfig fills it from Default, the YAML file and the environment, in
// that order, and validates the result.
type Config struct {
	Service  ServiceConfig  `yaml:"service"`
	Server   ServerConfig   `yaml:"server"`
	Quote    QuoteConfig    `yaml:"quote"`
	Fallback FallbackConfig `yaml:"fallback"`
	Chain    ChainConfig    `yaml:"chain"`
	Cache    CacheConfig    `yaml:"cache"`
	Logging  LoggingConfig  `yaml:"logging"`
}

// ServiceConfig names the service in logs and on /health.
type ServiceConfig struct {
	Name    string `yaml:"name"`
	Version string `yaml:"version"`
}

// ServerConfig controls the HTTP listener and its graceful shutdown.
type ServerConfig struct {
	Addr            string        `yaml:"addr"`
	Mode            string        `yaml:"mode"` // gin mode: debug, release, test
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// QuoteConfig selects and tunes the live spot source.
//
// Fields:
//   - Provider: auto, massive, http, synthetic or none
//   - BaseURL: quote service root for the http provider
//   - APIKey: Massive API key, usually from MASSIVE_API_KEY
//   - Timeout: hard deadline for one spot lookup before the fallback table is used
//   - RequestTimeout: transport timeout, a backstop behind Timeout
//   - Tickers: index symbol to provider ticker, e.g. NIFTY -> I:NIFTY
//   - SyntheticSeed: seed for the synthetic random walk; 0 uses the wall clock
type QuoteConfig struct {
	Provider       string               `yaml:"provider"`
	BaseURL        string               `yaml:"base_url"`
	APIKey         string               `yaml:"api_key"`
	Timeout        time.Duration        `yaml:"timeout"`         // hard spot deadline
	RequestTimeout time.Duration        `yaml:"request_timeout"` // transport backstop
	Tickers        map[string]string    `yaml:"tickers"`
	RateLimit      RateLimitConfig      `yaml:"rate_limit"`
	Breaker        CircuitBreakerConfig `yaml:"breaker"`
	SyntheticSeed  int64                `yaml:"synthetic_seed"`
}

// RateLimitConfig throttles live lookups. A zero rate disables the limiter;
// throttled lookups resolve from the fallback table.
type RateLimitConfig struct {
	RequestsPerSecond float64 `yaml:"requests_per_second"`
	BurstSize         int     `yaml:"burst_size"`
}

// CircuitBreakerConfig opens the breaker after FailureThreshold consecutive
// live failures and lets one request through after RecoveryTimeout. Zero disables it.
type CircuitBreakerConfig struct {
	FailureThreshold int           `yaml:"failure_threshold"`
	RecoveryTimeout  time.Duration `yaml:"recovery_timeout"`
}

// FallbackConfig seeds the static price table. Prices from YAML are merged
// over the built-in defaults; rows from File are merged over both.
type FallbackConfig struct {
	Prices map[string]float64 `yaml:"prices"`
	File   string             `yaml:"file"`
}

// ChainConfig holds the chain defaults applied when a request omits a value,
// plus the ladder width and the implied-volatility band.
type ChainConfig struct {
	StrikeGap int `yaml:"strike_gap"`
	// StrikeGapRule, when set, replaces StrikeGap for requests without one:
	// an expression over spot and symbol, e.g. "spot >= 40000 ? 100 : 50".
	StrikeGapRule string  `yaml:"strike_gap_rule"`
	DaysToExpiry  int     `yaml:"days_to_expiry"`
	LegCount      int     `yaml:"leg_count"`
	VolMin        float64 `yaml:"vol_min"`
	VolMax        float64 `yaml:"vol_max"`
	Seed          int64   `yaml:"seed"` // 0 = wall clock
}

// CacheConfig selects the response cache. A zero TTL disables caching.
type CacheConfig struct {
	Backend   string        `yaml:"backend"` // none, memory, redis
	TTL       time.Duration `yaml:"ttl"`
	RedisAddr string        `yaml:"redis_addr"`
}

// LoggingConfig is passed to logger.Configure.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
	MaxAge int    `yaml:"max_age"` // days; rotates file output when > 0
}

// DefaultFallbackPrices are used when no live source answers.
func DefaultFallbackPrices() map[string]float64 {
	return map[string]float64{
		"NIFTY":      24850,
		"BANKNIFTY":  51200,
		"FINNIFTY":   23400,
		"MIDCPNIFTY": 12850,
		"SENSEX":     81500,
	}
}

// Default returns a configuration that runs offline on the synthetic source.
func Default() Config {
	return Config{
		Service: ServiceConfig{Name: "option-chain", Version: "1.0.0"},
		Server: ServerConfig{
			Addr:            ":8080",
			Mode:            "release",
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    15 * time.Second,
			ShutdownTimeout: 10 * time.Second,
		},
		Quote: QuoteConfig{
			Provider:       ProviderAuto,
			Timeout:        8 * time.Second,
			RequestTimeout: 30 * time.Second,
			RateLimit:      RateLimitConfig{RequestsPerSecond: 5, BurstSize: 10},
			Breaker:        CircuitBreakerConfig{FailureThreshold: 5, RecoveryTimeout: 30 * time.Second},
		},
		Fallback: FallbackConfig{Prices: DefaultFallbackPrices()},
		Chain: ChainConfig{
			StrikeGap:    50,
			DaysToExpiry: 7,
			LegCount:     15,
			VolMin:       18,
			VolMax:       26,
		},
		Cache: CacheConfig{Backend: "memory", TTL: 2 * time.Second},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
			Output: "stderr",
		},
	}
}

// LoadEnvFile loads KEY=VALUE pairs from path into the process environment.
// A missing file is not an error; variables already set are kept.
func LoadEnvFile(path string) error {
	if path == "" {
		path = ".env"
	}
	if err := godotenv.Load(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to load %s: %w", path, err)
	}
	return nil
}

// LoadConfig reads path over the defaults, applies environment overrides
// and validates the result. An empty path uses defaults and environment only.
func LoadConfig(path string) (*Config, error) {
	config := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, &config); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	applyEnv(&config)

	if err := validateConfig(&config); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return &config, nil
}

func applyEnv(cfg *Config) {
	if v := strings.TrimSpace(os.Getenv("MASSIVE_API_KEY")); v != "" {
		cfg.Quote.APIKey = v
	}
	if v := strings.TrimSpace(os.Getenv("QUOTE_BASE_URL")); v != "" {
		cfg.Quote.BaseURL = v
	}
	if v := strings.TrimSpace(os.Getenv("QUOTE_PROVIDER")); v != "" {
		cfg.Quote.Provider = strings.ToLower(v)
	}
	if v := strings.TrimSpace(os.Getenv("REDIS_ADDR")); v != "" {
		cfg.Cache.RedisAddr = v
	}
	if v := strings.TrimSpace(os.Getenv("LOG_LEVEL")); v != "" {
		cfg.Logging.Level = v
	}
	if v := strings.TrimSpace(os.Getenv("SERVER_ADDR")); v != "" {
		cfg.Server.Addr = v
	}
}

// ResolvedProvider turns ProviderAuto into a concrete provider name.
func (c *Config) ResolvedProvider() string {
	if c.Quote.Provider != ProviderAuto && c.Quote.Provider != "" {
		return c.Quote.Provider
	}
	switch {
	case c.Quote.APIKey != "":
		return ProviderMassive
	case c.Quote.BaseURL != "":
		return ProviderHTTP
	default:
		return ProviderSynthetic
	}
}

func validateConfig(cfg *Config) error {
	if cfg.Server.Addr == "" {
		return fmt.Errorf("server.addr is required")
	}
	switch cfg.Server.Mode {
	case "debug", "release", "test":
	default:
		return fmt.Errorf("server.mode must be debug, release or test")
	}

	switch cfg.Quote.Provider {
	case ProviderAuto, ProviderSynthetic, ProviderNone:
	case ProviderMassive:
		if cfg.Quote.APIKey == "" {
			return fmt.Errorf("quote.api_key (or MASSIVE_API_KEY) is required for the massive provider")
		}
	case ProviderHTTP:
		if cfg.Quote.BaseURL == "" {
			return fmt.Errorf("quote.base_url (or QUOTE_BASE_URL) is required for the http provider")
		}
	default:
		return fmt.Errorf("quote.provider '%s' is not supported", cfg.Quote.Provider)
	}
	if cfg.Quote.Timeout <= 0 {
		return fmt.Errorf("quote.timeout must be greater than 0")
	}
	if cfg.Quote.RateLimit.RequestsPerSecond < 0 || cfg.Quote.RateLimit.BurstSize < 0 {
		return fmt.Errorf("quote.rate_limit values must not be negative")
	}
	if cfg.Quote.Breaker.FailureThreshold < 0 {
		return fmt.Errorf("quote.breaker.failure_threshold must not be negative")
	}

	for sym, p := range cfg.Fallback.Prices {
		if !(p > 0) {
			return fmt.Errorf("fallback.prices.%s must be greater than 0", sym)
		}
	}

	if cfg.Chain.StrikeGap <= 0 {
		return fmt.Errorf("chain.strike_gap must be greater than 0")
	}
	if cfg.Chain.DaysToExpiry <= 0 {
		return fmt.Errorf("chain.days_to_expiry must be greater than 0")
	}
	if cfg.Chain.LegCount <= 0 || cfg.Chain.LegCount%2 == 0 {
		return fmt.Errorf("chain.leg_count must be a positive odd number")
	}
	if cfg.Chain.VolMin <= 0 || cfg.Chain.VolMax <= cfg.Chain.VolMin {
		return fmt.Errorf("chain.vol_min must be positive and below chain.vol_max")
	}

	switch cfg.Cache.Backend {
	case "none", "memory":
	case "redis":
		if cfg.Cache.RedisAddr == "" {
			return fmt.Errorf("cache.redis_addr (or REDIS_ADDR) is required for the redis backend")
		}
	default:
		return fmt.Errorf("cache.backend '%s' is not supported", cfg.Cache.Backend)
	}
	if cfg.Cache.TTL < 0 {
		return fmt.Errorf("cache.ttl must not be negative")
	}

	switch cfg.Logging.Format {
	case "json", "text":
	default:
		return fmt.Errorf("logging.format must be json or text")
	}
	return nil
}
