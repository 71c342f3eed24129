package localstore

import "github.com/patrickmn/go-cache"

// putRaw stores blob under key without any shape check.
func (s *Store) putRaw(key string, blob []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cache.Set(key, blob, cache.NoExpiration)
}
