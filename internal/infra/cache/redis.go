package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/vietddude/chaintrace/internal/core/clock"
	"github.com/vietddude/chaintrace/internal/core/domain"
	"github.com/vietddude/chaintrace/internal/metrics"
)

// RedisConfig holds Redis connection configuration.
type RedisConfig struct {
	URL      string `yaml:"url"`
	Password string `yaml:"password"`
}

// RedisStore keeps entries in Redis with an expiry equal to the TTL.
// SET replaces the whole value atomically, so readers never see partial writes.
type RedisStore struct {
	rdb   redis.UniversalClient
	ttl   time.Duration
	clock clock.Clock
	log   *slog.Logger
}

type envelope struct {
	StoredAt time.Time       `json:"stored_at"`
	Payload  json.RawMessage `json:"payload"`
}

// NewRedisClient parses cfg and verifies the connection.
func NewRedisClient(cfg RedisConfig) (*redis.Client, error) {
	opts, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis URL: %w", err)
	}
	if cfg.Password != "" {
		opts.Password = cfg.Password
	}

	rdb := redis.NewClient(opts)

	// Test connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return rdb, nil
}

// NewRedisStore wraps an existing client.
func NewRedisStore(rdb redis.UniversalClient, ttl time.Duration, clk clock.Clock) *RedisStore {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if clk == nil {
		clk = clock.SystemClock{}
	}
	return &RedisStore{
		rdb:   rdb,
		ttl:   ttl,
		clock: clk,
		log:   slog.Default().With("component", "redis_cache"),
	}
}

func redisKey(chain domain.ChainID, key string) string {
	return fmt.Sprintf("chaintrace:%s:%s", chain, HashKey(key))
}

// Get returns a fresh entry or ErrCacheMiss.
func (s *RedisStore) Get(ctx context.Context, chain domain.ChainID, key string) (*Entry, error) {
	raw, err := s.rdb.Get(ctx, redisKey(chain, key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrCacheMiss
	}
	if err != nil {
		s.corrupt(chain, err)
		return nil, ErrCacheMiss
	}

	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		s.corrupt(chain, fmt.Errorf("decode envelope: %w", err))
		return nil, ErrCacheMiss
	}
	if len(env.Payload) == 0 {
		s.corrupt(chain, errors.New("empty payload"))
		return nil, ErrCacheMiss
	}
	if !IsFresh(env.StoredAt, s.clock.Now(), s.ttl) {
		return nil, ErrCacheMiss
	}

	return &Entry{Payload: env.Payload, StoredAt: env.StoredAt}, nil
}

// Put overwrites the entry for key.
func (s *RedisStore) Put(ctx context.Context, chain domain.ChainID, key string, payload []byte) error {
	if !json.Valid(payload) {
		return fmt.Errorf("%w: payload is not valid json", domain.ErrCache)
	}
	data, err := json.Marshal(envelope{StoredAt: s.clock.Now(), Payload: payload})
	if err != nil {
		return fmt.Errorf("%w: encode envelope: %w", domain.ErrCache, err)
	}
	if err := s.rdb.Set(ctx, redisKey(chain, key), data, s.ttl).Err(); err != nil {
		return fmt.Errorf("%w: redis set: %w", domain.ErrCache, err)
	}
	return nil
}

// TTL returns the freshness window.
func (s *RedisStore) TTL() time.Duration {
	return s.ttl
}

func (s *RedisStore) corrupt(chain domain.ChainID, err error) {
	metrics.CacheErrors.WithLabelValues("redis").Inc()
	s.log.Warn("unreadable cache entry, treating as miss", "chain", chain, "error", err)
}
