// Package config loads flightfinder settings from defaults, an optional YAML
// file, a .env file and FLIGHTS_* environment variables, in increasing order
// of precedence.
package config

import (
	"os"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/dharmasatrya/flightfinder/internal/ratelimit"
)

const EnvPrefix = "FLIGHTS"

// Known provider names, in default fallback order.
const (
	ProviderScrape     = "scrape"
	ProviderAggregator = "aggregator"
	ProviderAmadeus    = "amadeus"
)

type Config struct {
	Server     ServerConfig     `mapstructure:"server" yaml:"server"`
	Log        LogConfig        `mapstructure:"log" yaml:"log"`
	Search     SearchConfig     `mapstructure:"search" yaml:"search"`
	RoundTrip  RoundTripConfig  `mapstructure:"roundtrip" yaml:"roundtrip"`
	Providers  ProvidersConfig  `mapstructure:"providers" yaml:"providers"`
	Scrape     ScrapeConfig     `mapstructure:"scrape" yaml:"scrape"`
	Aggregator AggregatorConfig `mapstructure:"aggregator" yaml:"aggregator"`
	Amadeus    AmadeusConfig    `mapstructure:"amadeus" yaml:"amadeus"`
	Cache      CacheConfig      `mapstructure:"cache" yaml:"cache"`
	RateLimit  RateLimitConfig  `mapstructure:"ratelimit" yaml:"ratelimit"`
}

type ServerConfig struct {
	Port string `mapstructure:"port" yaml:"port"`
}

type LogConfig struct {
	Level       string `mapstructure:"level" yaml:"level"`
	Development bool   `mapstructure:"development" yaml:"development"`
}

type SearchConfig struct {
	CallTimeout    time.Duration `mapstructure:"call_timeout" yaml:"call_timeout"`
	OverallTimeout time.Duration `mapstructure:"overall_timeout" yaml:"overall_timeout"`
}

type RoundTripConfig struct {
	MaxOutboundExpansions int `mapstructure:"max_outbound_expansions" yaml:"max_outbound_expansions"`
	Concurrency           int `mapstructure:"concurrency" yaml:"concurrency"`
}

type ProvidersConfig struct {
	// Order is the fallback order. Providers missing from it are not used.
	Order []string `mapstructure:"order" yaml:"order"`
}

type ScrapeConfig struct {
	BaseURL         string `mapstructure:"base_url" yaml:"base_url"`
	FetchMode       string `mapstructure:"fetch_mode" yaml:"fetch_mode"`
	Currency        string `mapstructure:"currency" yaml:"currency"`
	NativeRoundTrip bool   `mapstructure:"native_round_trip" yaml:"native_round_trip"`
}

type AggregatorConfig struct {
	BaseURL  string `mapstructure:"base_url" yaml:"base_url"`
	APIKey   string `mapstructure:"api_key" yaml:"api_key"`
	Currency string `mapstructure:"currency" yaml:"currency"`
}

type AmadeusConfig struct {
	BaseURL      string `mapstructure:"base_url" yaml:"base_url"`
	ClientID     string `mapstructure:"client_id" yaml:"client_id"`
	ClientSecret string `mapstructure:"client_secret" yaml:"client_secret"`
	MaxResults   int    `mapstructure:"max_results" yaml:"max_results"`
	Currency     string `mapstructure:"currency" yaml:"currency"`
}

type CacheConfig struct {
	Enabled       bool          `mapstructure:"enabled" yaml:"enabled"`
	RedisAddr     string        `mapstructure:"redis_addr" yaml:"redis_addr"`
	RedisPassword string        `mapstructure:"redis_password" yaml:"redis_password"`
	RedisDB       int           `mapstructure:"redis_db" yaml:"redis_db"`
	TTL           time.Duration `mapstructure:"ttl" yaml:"ttl"`
}

type RateLimitConfig struct {
	DefaultRPS   float64                 `mapstructure:"default_rps" yaml:"default_rps"`
	DefaultBurst int                     `mapstructure:"default_burst" yaml:"default_burst"`
	Providers    map[string]ProviderRate `mapstructure:"providers" yaml:"providers"`
}

type ProviderRate struct {
	RPS   float64 `mapstructure:"rps" yaml:"rps"`
	Burst int     `mapstructure:"burst" yaml:"burst"`
}

// Configured reports whether the scrape sidecar has an endpoint.
func (c ScrapeConfig) Configured() bool { return c.BaseURL != "" }

// Configured reports whether the aggregator has an API key.
func (c AggregatorConfig) Configured() bool { return c.BaseURL != "" && c.APIKey != "" }

// Configured reports whether Amadeus client credentials are present.
func (c AmadeusConfig) Configured() bool {
	return c.BaseURL != "" && c.ClientID != "" && c.ClientSecret != ""
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", "8080")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.development", false)

	v.SetDefault("search.call_timeout", 20*time.Second)
	v.SetDefault("search.overall_timeout", 45*time.Second)

	v.SetDefault("roundtrip.max_outbound_expansions", 5)
	v.SetDefault("roundtrip.concurrency", 5)

	v.SetDefault("providers.order", []string{ProviderScrape, ProviderAggregator, ProviderAmadeus})

	v.SetDefault("scrape.base_url", "")
	v.SetDefault("scrape.fetch_mode", "fallback")
	v.SetDefault("scrape.currency", "USD")
	v.SetDefault("scrape.native_round_trip", true)

	v.SetDefault("aggregator.base_url", "https://serpapi.com")
	v.SetDefault("aggregator.api_key", "")
	v.SetDefault("aggregator.currency", "USD")

	v.SetDefault("amadeus.base_url", "https://test.api.amadeus.com")
	v.SetDefault("amadeus.client_id", "")
	v.SetDefault("amadeus.client_secret", "")
	v.SetDefault("amadeus.max_results", 20)
	v.SetDefault("amadeus.currency", "USD")

	v.SetDefault("cache.enabled", false)
	v.SetDefault("cache.redis_addr", "localhost:6379")
	v.SetDefault("cache.redis_password", "")
	v.SetDefault("cache.redis_db", 0)
	v.SetDefault("cache.ttl", 5*time.Minute)

	v.SetDefault("ratelimit.default_rps", ratelimit.DefaultLimit().RequestsPerSecond)
	v.SetDefault("ratelimit.default_burst", ratelimit.DefaultLimit().Burst)
}

// Load builds the configuration. An explicit path must exist; without one a
// config.yaml in the working directory or ./config is used when present.
// A .env file in the working directory is loaded into the environment first
// and never overrides variables that are already set.
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, errors.Wrap(err, "loading .env")
	}

	v := viper.New()
	setDefaults(v)

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	if path != "" {
		v.SetConfigFile(path)
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		switch {
		case path != "":
			return nil, errors.Wrapf(err, "reading config file %s", path)
		case !errors.As(err, &notFound):
			return nil, errors.Wrap(err, "reading config file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, errors.Wrap(err, "unmarshaling config")
	}
	cfg.Providers.Order = splitOrder(cfg.Providers.Order)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// splitOrder accepts both list values and a single comma-separated string,
// which is how the order arrives from an environment variable.
func splitOrder(order []string) []string {
	var out []string
	for _, item := range order {
		for _, name := range strings.Split(item, ",") {
			name = strings.ToLower(strings.TrimSpace(name))
			if name != "" {
				out = append(out, name)
			}
		}
	}
	return out
}
