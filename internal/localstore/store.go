// Package localstore keeps the catalog in three keyed JSON blobs ("auth",
// "users", "books") held in a go-cache instance and optionally mirrored to a
// file. Every mutation rewrites the whole blob.
package localstore

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/patrickmn/go-cache"

	"github.com/FACorreiaa/go-book-catalog/internal/api"
)

const (
	KeySession = "auth"
	KeyUsers   = "users"
	KeyBooks   = "books"
)

// Store is safe for concurrent use. Read-modify-write cycles run under one lock.
type Store struct {
	mu     sync.Mutex
	cache  *cache.Cache
	path   string
	logger *slog.Logger
}

// New opens a store. With an empty path the store lives only in memory.
func New(path string, logger *slog.Logger) (*Store, error) {
	s := &Store{
		cache:  cache.New(cache.NoExpiration, 0),
		path:   path,
		logger: logger,
	}
	if path == "" {
		return s, nil
	}

	if err := s.cache.LoadFile(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load local store %q: %w", path, err)
	}
	logger.Info("Local store opened", slog.String("path", path), slog.Int("keys", s.cache.ItemCount()))
	return s, nil
}

// read decodes the blob under key into dst. A missing key leaves dst untouched.
// Unknown fields or the wrong JSON shape fail with api.ErrCorruptRecord.
func (s *Store) read(key string, dst any) error {
	v, found := s.cache.Get(key)
	if !found {
		return nil
	}
	blob, ok := v.([]byte)
	if !ok {
		return fmt.Errorf("%w: key %q holds %T", api.ErrCorruptRecord, key, v)
	}

	dec := json.NewDecoder(bytes.NewReader(blob))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return fmt.Errorf("%w: key %q: %v", api.ErrCorruptRecord, key, err)
	}
	return nil
}

func (s *Store) write(key string, v any) error {
	blob, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to encode %q: %w", key, err)
	}
	return s.commit(key, blob)
}

func (s *Store) remove(key string) error {
	return s.commit(key, nil)
}

// commit replaces the blob under key, or deletes it when blob is nil, and
// persists. If persisting fails the previous blob is put back so memory and
// file agree.
func (s *Store) commit(key string, blob []byte) error {
	prev, had := s.cache.Get(key)
	if blob == nil {
		s.cache.Delete(key)
	} else {
		s.cache.Set(key, blob, cache.NoExpiration)
	}

	if err := s.persist(); err != nil {
		if had {
			s.cache.Set(key, prev, cache.NoExpiration)
		} else {
			s.cache.Delete(key)
		}
		return err
	}
	return nil
}

func (s *Store) persist() error {
	if s.path == "" {
		return nil
	}
	if dir := filepath.Dir(s.path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create store directory: %w", err)
		}
	}
	if err := s.cache.SaveFile(s.path); err != nil {
		s.logger.Error("Failed to persist local store", slog.String("path", s.path), slog.Any("error", err))
		return fmt.Errorf("failed to persist local store: %w", err)
	}
	return nil
}
