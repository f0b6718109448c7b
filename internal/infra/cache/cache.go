// Package cache stores raw upstream payloads keyed by a hash of the logical query.
//
// Entries are fresh while now - storedAt < TTL. Writes overwrite unconditionally
// and readers never observe a partially written entry; concurrent misses on the
// same key may both fetch, and the last writer wins.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"strings"
	"time"

	"github.com/vietddude/chaintrace/internal/core/domain"
)

// DefaultTTL is the default freshness window for cached payloads.
const DefaultTTL = 24 * time.Hour

// ErrCacheMiss is returned for missing, stale or unreadable entries.
var ErrCacheMiss = errors.New("cache miss")

// Entry is a cached raw payload.
type Entry struct {
	Payload  []byte
	StoredAt time.Time
}

// Store is a content-addressed key/value store with a TTL policy.
type Store interface {
	// Get returns a fresh entry or ErrCacheMiss.
	Get(ctx context.Context, chain domain.ChainID, key string) (*Entry, error)

	// Put overwrites the entry for key.
	Put(ctx context.Context, chain domain.ChainID, key string, payload []byte) error

	// TTL returns the freshness window.
	TTL() time.Duration
}

// Key builds the logical cache key for a query.
func Key(chain domain.ChainID, address string, params ...string) string {
	parts := append([]string{string(chain), domain.CanonicalAddress(address)}, params...)
	return strings.Join(parts, "|")
}

// HashKey returns the content address of a logical key.
func HashKey(key string) string {
	sum := sha256.Sum256([]byte(key))
	return hex.EncodeToString(sum[:])
}

// IsFresh reports whether an entry stored at storedAt is still valid at now.
func IsFresh(storedAt, now time.Time, ttl time.Duration) bool {
	return now.Sub(storedAt) < ttl
}
