package config

import (
	"time"

	"github.com/vietddude/chaintrace/internal/core/domain"
	"github.com/vietddude/chaintrace/internal/infra/cache"
	"github.com/vietddude/chaintrace/internal/infra/rpc/routing"
	"github.com/vietddude/chaintrace/internal/infra/storage/postgres"
)

// AppConfig represents the top-level configuration.
type AppConfig struct {
	Server      ServerConfig    `yaml:"server"`
	Chains      []ChainConfig   `yaml:"chains"`
	Cache       CacheConfig     `yaml:"cache"`
	Output      OutputConfig    `yaml:"output"`
	Logging     LoggingConfig   `yaml:"logging"`
	Database    postgres.Config `yaml:"database"`
	Concurrency int             `yaml:"concurrency"`
}

// ServerConfig holds the metrics HTTP server settings. Port 0 disables it.
type ServerConfig struct {
	Port int `yaml:"port"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // json, text
}

// CacheConfig selects and tunes the raw-response cache.
type CacheConfig struct {
	Backend string            `yaml:"backend"` // file, redis, none
	Dir     string            `yaml:"dir"`
	TTL     time.Duration     `yaml:"ttl"`
	Redis   cache.RedisConfig `yaml:"redis"`
}

// OutputConfig controls where per-address reports are written.
type OutputConfig struct {
	Dir string `yaml:"dir"`
}

// ChainConfig holds settings for a specific blockchain source.
type ChainConfig struct {
	ChainID     domain.ChainID      `yaml:"id"`
	Type        domain.ChainType    `yaml:"type"` // evm, bitcoin
	APIURL      string              `yaml:"api_url"`
	APIKey      string              `yaml:"api_key"`
	NetworkID   string              `yaml:"chain_id"` // upstream chainid parameter (EVM)
	Symbol      string              `yaml:"symbol"`   // native unit, EVM only
	MinInterval time.Duration       `yaml:"min_interval"`
	Timeout     time.Duration       `yaml:"timeout"`
	PageSize    int                 `yaml:"page_size"`
	MaxPages    int                 `yaml:"max_pages"`
	DailyQuota  int                 `yaml:"daily_quota"` // live calls per day, 0 is unlimited
	Retry       routing.RetryConfig `yaml:"retry"`
}
