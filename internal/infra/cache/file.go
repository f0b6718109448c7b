package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/vietddude/chaintrace/internal/core/clock"
	"github.com/vietddude/chaintrace/internal/core/domain"
	"github.com/vietddude/chaintrace/internal/metrics"
)

// FileStore persists one JSON blob per (chain, key hash) in a directory.
// Freshness is decided by the file modification time.
type FileStore struct {
	dir   string
	ttl   time.Duration
	clock clock.Clock
	log   *slog.Logger
}

// NewFileStore creates the cache directory if needed.
func NewFileStore(dir string, ttl time.Duration, clk clock.Clock) (*FileStore, error) {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if clk == nil {
		clk = clock.SystemClock{}
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create cache dir: %w", err)
	}
	return &FileStore{
		dir:   dir,
		ttl:   ttl,
		clock: clk,
		log:   slog.Default().With("component", "file_cache"),
	}, nil
}

// Path returns the file backing key.
func (s *FileStore) Path(chain domain.ChainID, key string) string {
	return filepath.Join(s.dir, fmt.Sprintf("%s_%s.json", chain, HashKey(key)))
}

// Get returns a fresh entry or ErrCacheMiss.
func (s *FileStore) Get(_ context.Context, chain domain.ChainID, key string) (*Entry, error) {
	path := s.Path(chain, key)

	info, err := os.Stat(path)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			s.corrupt(path, err)
		}
		return nil, ErrCacheMiss
	}

	storedAt := info.ModTime()
	if !IsFresh(storedAt, s.clock.Now(), s.ttl) {
		return nil, ErrCacheMiss
	}

	data, err := os.ReadFile(path)
	if err != nil {
		s.corrupt(path, err)
		return nil, ErrCacheMiss
	}
	if !json.Valid(data) {
		s.corrupt(path, errors.New("invalid json"))
		return nil, ErrCacheMiss
	}

	return &Entry{Payload: data, StoredAt: storedAt}, nil
}

// Put writes payload through a temp file and renames it into place so
// readers see either the old or the new entry.
func (s *FileStore) Put(_ context.Context, chain domain.ChainID, key string, payload []byte) error {
	path := s.Path(chain, key)

	tmp, err := os.CreateTemp(s.dir, ".tmp-*")
	if err != nil {
		return fmt.Errorf("%w: create temp file: %w", domain.ErrCache, err)
	}
	tmpName := tmp.Name()
	defer func() {
		_ = os.Remove(tmpName)
	}()

	if _, err := tmp.Write(payload); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("%w: write temp file: %w", domain.ErrCache, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("%w: close temp file: %w", domain.ErrCache, err)
	}

	now := s.clock.Now()
	if err := os.Chtimes(tmpName, now, now); err != nil {
		return fmt.Errorf("%w: stamp temp file: %w", domain.ErrCache, err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("%w: rename into place: %w", domain.ErrCache, err)
	}
	return nil
}

// TTL returns the freshness window.
func (s *FileStore) TTL() time.Duration {
	return s.ttl
}

func (s *FileStore) corrupt(path string, err error) {
	metrics.CacheErrors.WithLabelValues("file").Inc()
	s.log.Warn("unreadable cache entry, treating as miss", "path", path, "error", err)
}
