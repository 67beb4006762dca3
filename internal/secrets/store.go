// Package secrets provides API key lookup for providers. Keys are addressed
// by lowercase provider name; implementations must be safe for concurrent
// reads.
package secrets

import (
	"strings"

	"github.com/alphadose/haxmap"
)

// Store is the read side consumed by dispatch.
type Store interface {
	HasAPIKey(key string) bool
	GetAPIKey(key string) (string, bool)
}

func normalizeKey(key string) string {
	return strings.ToLower(strings.TrimSpace(key))
}

// MemoryStore keeps keys in a lock-free concurrent map.
type MemoryStore struct {
	keys *haxmap.Map[string, string]
}

// NewMemoryStore seeds a store from initial. Blank values are skipped.
func NewMemoryStore(initial map[string]string) *MemoryStore {
	s := &MemoryStore{keys: haxmap.New[string, string]()}
	for k, v := range initial {
		s.Set(k, v)
	}
	return s
}

// Set stores value under key. A blank value removes the key.
func (s *MemoryStore) Set(key, value string) {
	key = normalizeKey(key)
	if strings.TrimSpace(value) == "" {
		s.keys.Del(key)
		return
	}
	s.keys.Set(key, value)
}

func (s *MemoryStore) Delete(key string) {
	s.keys.Del(normalizeKey(key))
}

func (s *MemoryStore) HasAPIKey(key string) bool {
	_, ok := s.GetAPIKey(key)
	return ok
}

func (s *MemoryStore) GetAPIKey(key string) (string, bool) {
	return s.keys.Get(normalizeKey(key))
}

// Chain consults each store in order and returns the first hit.
type Chain []Store

func (c Chain) HasAPIKey(key string) bool {
	_, ok := c.GetAPIKey(key)
	return ok
}

func (c Chain) GetAPIKey(key string) (string, bool) {
	for _, s := range c {
		if s == nil {
			continue
		}
		if v, ok := s.GetAPIKey(key); ok {
			return v, true
		}
	}
	return "", false
}
