package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Port        string   `mapstructure:"PORT"`
	Env         string   `mapstructure:"ENV"`
	CORSOrigins []string `mapstructure:"CORS_ORIGINS"`

	RateLimitRPS   float64 `mapstructure:"RATE_LIMIT_RPS"`
	RateLimitBurst int     `mapstructure:"RATE_LIMIT_BURST"`

	// Batch processing profile. When set, its presets seed the cache and
	// worker defaults below; explicit env vars still win.
	Profile string `mapstructure:"PROFILE"`

	CacheMaxEntries  int `mapstructure:"CACHE_MAX_ENTRIES"`
	CacheTTLHours    int `mapstructure:"CACHE_TTL_HOURS"`
	ExplainWorkers   int `mapstructure:"EXPLAIN_WORKERS"`
	MaxExplainClaims int `mapstructure:"MAX_EXPLAIN_CLAIMS"`

	ExplainerBaseURL     string  `mapstructure:"EXPLAINER_BASE_URL"`
	ExplainerAPIKey      string  `mapstructure:"EXPLAINER_API_KEY"`
	ExplainerModel       string  `mapstructure:"EXPLAINER_MODEL"`
	ExplainerMaxTokens   int     `mapstructure:"EXPLAINER_MAX_TOKENS"`
	ExplainerTemperature float64 `mapstructure:"EXPLAINER_TEMPERATURE"`
}

func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigFile(".env")
	v.AutomaticEnv()

	// Bind env vars explicitly so Unmarshal picks them up
	v.BindEnv("PORT")
	v.BindEnv("ENV")
	v.BindEnv("CORS_ORIGINS")
	v.BindEnv("RATE_LIMIT_RPS")
	v.BindEnv("RATE_LIMIT_BURST")
	v.BindEnv("PROFILE")
	v.BindEnv("CACHE_MAX_ENTRIES")
	v.BindEnv("CACHE_TTL_HOURS")
	v.BindEnv("EXPLAIN_WORKERS")
	v.BindEnv("MAX_EXPLAIN_CLAIMS")
	v.BindEnv("EXPLAINER_BASE_URL")
	v.BindEnv("EXPLAINER_API_KEY")
	v.BindEnv("EXPLAINER_MODEL")
	v.BindEnv("EXPLAINER_MAX_TOKENS")
	v.BindEnv("EXPLAINER_TEMPERATURE")

	// Try reading .env file, but don't fail if missing
	_ = v.ReadInConfig()

	// Profile presets seed the defaults so explicit env vars override them.
	profile, ok := ProfileByName(v.GetString("PROFILE"))
	if !ok {
		profile = Profiles["small"]
	}

	// Defaults
	v.SetDefault("PORT", "8000")
	v.SetDefault("ENV", "development")
	v.SetDefault("CORS_ORIGINS", "http://localhost:3000")
	v.SetDefault("RATE_LIMIT_RPS", 100)
	v.SetDefault("RATE_LIMIT_BURST", 200)
	v.SetDefault("CACHE_MAX_ENTRIES", profile.CacheSize)
	v.SetDefault("CACHE_TTL_HOURS", profile.CacheTTLHours)
	v.SetDefault("EXPLAIN_WORKERS", profile.MaxConcurrentRequests)
	v.SetDefault("MAX_EXPLAIN_CLAIMS", profile.BatchSize)
	v.SetDefault("EXPLAINER_BASE_URL", "https://api.openai.com/v1")
	v.SetDefault("EXPLAINER_MODEL", "gpt-4o-mini")
	v.SetDefault("EXPLAINER_MAX_TOKENS", 800)
	v.SetDefault("EXPLAINER_TEMPERATURE", 0.1)

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if cfg.CORSOrigins == nil {
		origins := v.GetString("CORS_ORIGINS")
		if origins != "" {
			cfg.CORSOrigins = strings.Split(origins, ",")
		}
	}

	return cfg, nil
}

func (c *Config) IsDev() bool {
	return c.Env == "development"
}

// IsProduction returns true when the server is configured for production mode.
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

// CacheTTL returns the explanation cache TTL as a duration.
func (c *Config) CacheTTL() time.Duration {
	return time.Duration(c.CacheTTLHours) * time.Hour
}

// Validate checks that the configuration is safe to run. Non-positive cache
// or worker settings would silently disable core behavior, so they are
// rejected rather than clamped.
func (c *Config) Validate() error {
	if c.Profile != "" {
		if _, ok := ProfileByName(c.Profile); !ok {
			return fmt.Errorf("PROFILE must be one of %s, got %q", strings.Join(ProfileNames(), ", "), c.Profile)
		}
	}
	if c.CacheMaxEntries <= 0 {
		return fmt.Errorf("CACHE_MAX_ENTRIES must be positive, got %d", c.CacheMaxEntries)
	}
	if c.CacheTTLHours <= 0 {
		return fmt.Errorf("CACHE_TTL_HOURS must be positive, got %d", c.CacheTTLHours)
	}
	if c.ExplainWorkers <= 0 {
		return fmt.Errorf("EXPLAIN_WORKERS must be positive, got %d", c.ExplainWorkers)
	}
	if c.MaxExplainClaims <= 0 {
		return fmt.Errorf("MAX_EXPLAIN_CLAIMS must be positive, got %d", c.MaxExplainClaims)
	}
	if c.ExplainerMaxTokens <= 0 {
		return fmt.Errorf("EXPLAINER_MAX_TOKENS must be positive, got %d", c.ExplainerMaxTokens)
	}
	if c.ExplainerTemperature < 0 || c.ExplainerTemperature > 2 {
		return fmt.Errorf("EXPLAINER_TEMPERATURE must be between 0 and 2, got %v", c.ExplainerTemperature)
	}
	if c.RateLimitRPS <= 0 {
		return fmt.Errorf("RATE_LIMIT_RPS must be positive, got %v", c.RateLimitRPS)
	}
	if c.RateLimitBurst <= 0 {
		return fmt.Errorf("RATE_LIMIT_BURST must be positive, got %d", c.RateLimitBurst)
	}
	return nil
}
