package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"gopkg.in/yaml.v2"

	"github.com/vietddude/chaintrace/internal/core/domain"
	"github.com/vietddude/chaintrace/internal/infra/rpc/routing"
)

const (
	DefaultCacheDir   = "data/raw/cache"
	DefaultCacheTTL   = 24 * time.Hour
	DefaultOutputDir  = "data/outputs"
	DefaultEVMAPIURL  = "https://api.etherscan.io/v2/api"
	DefaultBTCAPIURL  = "https://mempool.space/api"
	DefaultEVMPage    = 10000
	defaultWorkers    = 4
	defaultEVMGap     = 250 * time.Millisecond
	defaultBTCGap     = 500 * time.Millisecond
	defaultEVMTimeout = 10 * time.Second
	defaultBTCTimeout = 15 * time.Second
)

// Load reads configuration from a YAML file. A missing file yields the
// built-in defaults so the CLI works without any config.
func Load(path string) (*AppConfig, error) {
	var cfg AppConfig

	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
	case err != nil:
		return nil, fmt.Errorf("failed to read config file: %w", err)
	default:
		// Expand environment variables in the YAML content
		expandedData := os.ExpandEnv(string(data))
		if err := yaml.Unmarshal([]byte(expandedData), &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	applyDefaults(&cfg)
	return &cfg, nil
}

func applyDefaults(cfg *AppConfig) {
	if cfg.Cache.Backend == "" {
		cfg.Cache.Backend = "file"
	}
	if cfg.Cache.Dir == "" {
		cfg.Cache.Dir = DefaultCacheDir
	}
	if cfg.Cache.TTL == 0 {
		cfg.Cache.TTL = DefaultCacheTTL
	}
	if cfg.Output.Dir == "" {
		cfg.Output.Dir = DefaultOutputDir
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = defaultWorkers
	}

	if len(cfg.Chains) == 0 {
		cfg.Chains = []ChainConfig{
			{ChainID: domain.ChainIDEthereum, APIKey: os.Getenv("ETHERSCAN_API_KEY")},
			{ChainID: domain.ChainIDBitcoin},
		}
	}

	for i := range cfg.Chains {
		c := &cfg.Chains[i]
		if c.Type == "" {
			if t, ok := domain.ChainIDToType[c.ChainID]; ok {
				c.Type = t
			} else {
				c.Type = domain.ChainTypeEVM
			}
		}

		switch c.Type {
		case domain.ChainTypeBitcoin:
			setDefaults(c, DefaultBTCAPIURL, defaultBTCGap, defaultBTCTimeout)
		default:
			setDefaults(c, DefaultEVMAPIURL, defaultEVMGap, defaultEVMTimeout)
			if c.NetworkID == "" {
				c.NetworkID = "1"
			}
			if c.PageSize <= 0 {
				c.PageSize = DefaultEVMPage
			}
		}
		if c.MaxPages <= 0 {
			c.MaxPages = 1
		}
		if c.Retry.MaxAttempts <= 0 {
			c.Retry = routing.DefaultRetryConfig
		}
	}
}

func setDefaults(c *ChainConfig, url string, gap, timeout time.Duration) {
	if c.APIURL == "" {
		c.APIURL = url
	}
	if c.MinInterval == 0 {
		c.MinInterval = gap
	}
	if c.Timeout == 0 {
		c.Timeout = timeout
	}
}

// Chain returns the configuration for the given chain id.
func (c *AppConfig) Chain(id domain.ChainID) (ChainConfig, error) {
	for _, ch := range c.Chains {
		if ch.ChainID == id {
			return ch, nil
		}
	}
	return ChainConfig{}, &domain.ConfigurationError{Chain: id, Reason: "chain not configured"}
}

// Validate reports chains that cannot be fetched, before any network call is made.
func (c ChainConfig) Validate() error {
	switch c.Type {
	case domain.ChainTypeEVM:
		if c.APIKey == "" {
			return &domain.ConfigurationError{Chain: c.ChainID, Reason: "missing api key"}
		}
	case domain.ChainTypeBitcoin:
	default:
		return &domain.ConfigurationError{Chain: c.ChainID, Reason: fmt.Sprintf("unknown chain type %q", c.Type)}
	}
	if c.APIURL == "" {
		return &domain.ConfigurationError{Chain: c.ChainID, Reason: "missing api url"}
	}
	return nil
}
