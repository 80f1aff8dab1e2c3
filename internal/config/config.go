// Package config loads process configuration from the environment.
package config

import (
	"fmt"
	"time"

	"github.com/joeshaw/envdecode"
)

// Config holds every tunable of the read layer process.
type Config struct {
	Port     int    `env:"PORT,default=3000"`
	BaseURL  string `env:"BASE_URL,default=http://localhost:3000"`
	LogLevel string `env:"LOG_LEVEL,default=info"`

	// SchemaPath points at the versioned data-schema definitions document.
	SchemaPath string `env:"SCHEMA_PATH,default=config/schemas.yaml"`
	// DataFormatVersions is the accepted semver range for record data.
	DataFormatVersions string `env:"DATA_FORMAT_VERSIONS,default=>=0.8.0 <0.9.0"`

	DefaultPageSize int           `env:"DEFAULT_PAGE_SIZE,default=30"`
	RequestTimeout  time.Duration `env:"REQUEST_TIMEOUT,default=20s"`

	// Off-chain storage tuning.
	OffChainRateLimit float64       `env:"OFFCHAIN_RATE_LIMIT,default=20"`
	OffChainTimeout   time.Duration `env:"OFFCHAIN_TIMEOUT,default=10s"`

	// RedisURL enables the off-chain document cache when set.
	RedisURL string        `env:"REDIS_URL"`
	CacheTTL time.Duration `env:"CACHE_TTL,default=1h"`

	// GuaranteeKey enables trustworthiness checks when set.
	GuaranteeKey string `env:"GUARANTEE_HMAC_KEY"`

	// SeedPath loads a YAML seed of records and documents into the
	// in-memory directory and store. Development only.
	SeedPath string `env:"SEED_PATH"`
}

// Load decodes the configuration from the environment.
func Load() (*Config, error) {
	var cfg Config
	if err := envdecode.Decode(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if cfg.DefaultPageSize <= 0 {
		return nil, fmt.Errorf("DEFAULT_PAGE_SIZE must be positive, got %d", cfg.DefaultPageSize)
	}
	return &cfg, nil
}
