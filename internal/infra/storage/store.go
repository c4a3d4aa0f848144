// Package storage persists per-scope collection snapshots as JSON files
// on disk. Each identity scope owns exactly one file; a save replaces
// the whole snapshot atomically via a temp file and rename.
package storage

import (
	"context"
	"encoding/json"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"go.uber.org/zap"

	"github.com/rentbook/rentbook-api/internal/domain"
	"github.com/rentbook/rentbook-api/internal/infra/cache"
	"github.com/rentbook/rentbook-api/internal/infra/observability"
)

const snapshotCache = "snapshot"

// FileStore implements port.LedgerStore on a directory of JSON files.
type FileStore struct {
	dir     string
	logger  *zap.Logger
	metrics *observability.Metrics
	cache   *cache.InMemory[*domain.Collection]

	mu sync.Mutex
}

// NewFileStore creates the snapshot directory if needed.
func NewFileStore(dir string, c *cache.InMemory[*domain.Collection], logger *zap.Logger, metrics *observability.Metrics) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	return &FileStore{
		dir:     dir,
		logger:  logger,
		metrics: metrics,
		cache:   c,
	}, nil
}

// Load returns the collection for a scope. A missing snapshot means a
// fresh scope and yields the seed data; a corrupt snapshot is logged,
// counted and also yields the seed data. Load never surfaces storage
// problems to the caller.
func (s *FileStore) Load(ctx context.Context, scopeKey string) (*domain.Collection, error) {
	if scopeKey == "" {
		return nil, &domain.ErrValidation{Field: "scopeKey", Message: "must not be empty"}
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if cached, ok := s.cache.Get(scopeKey); ok {
		s.metrics.IncrCacheHit(snapshotCache)
		return cloneCollection(cached), nil
	}
	s.metrics.IncrCacheMiss(snapshotCache)

	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.path(scopeKey))
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			s.logger.Warn("snapshot unreadable, falling back to seed data",
				zap.String("scope", scopeKey), zap.Error(err))
			s.metrics.IncrStorageRecovery()
		}
		seeded := SeedCollection()
		s.cache.Set(scopeKey, cloneCollection(seeded))
		return seeded, nil
	}

	var c domain.Collection
	if err := json.Unmarshal(data, &c); err != nil {
		s.logger.Warn("snapshot corrupt, falling back to seed data",
			zap.String("scope", scopeKey), zap.Error(err))
		s.metrics.IncrStorageRecovery()
		seeded := SeedCollection()
		s.cache.Set(scopeKey, cloneCollection(seeded))
		return seeded, nil
	}

	s.cache.Set(scopeKey, cloneCollection(&c))
	return &c, nil
}

// Save atomically replaces the scope's snapshot.
func (s *FileStore) Save(ctx context.Context, scopeKey string, c *domain.Collection) error {
	if scopeKey == "" {
		return &domain.ErrValidation{Field: "scopeKey", Message: "must not be empty"}
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := writeFileAtomic(s.path(scopeKey), data); err != nil {
		return err
	}
	s.cache.Set(scopeKey, cloneCollection(c))
	return nil
}

func (s *FileStore) path(scopeKey string) string {
	return filepath.Join(s.dir, scopeKey+".json")
}

// writeFileAtomic writes to a temp file in the same directory and
// renames it over the target, so readers never observe a partial write.
func writeFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, ".snapshot-*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return err
	}
	return os.Rename(tmpName, path)
}

// cloneCollection deep-copies a collection so cached state is never
// aliased by callers that go on to mutate their copy.
func cloneCollection(c *domain.Collection) *domain.Collection {
	data, err := json.Marshal(c)
	if err != nil {
		// Collections only hold plain data types; marshal cannot fail.
		panic(err)
	}
	var out domain.Collection
	if err := json.Unmarshal(data, &out); err != nil {
		panic(err)
	}
	return &out
}
