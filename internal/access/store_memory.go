package access

import (
	"context"
	"sync"
	"time"
)

// InMemoryGrantStore keeps grants in a lock-free concurrent map, safe for
// unguarded concurrent insert/scan/remove. Expiry is enforced by the lazy
// sweep the cache service runs on every insert; there is no background
// reaper.
type InMemoryGrantStore struct {
	grants sync.Map // key -> Grant
}

func NewInMemoryGrantStore() *InMemoryGrantStore {
	return &InMemoryGrantStore{}
}

func (s *InMemoryGrantStore) Put(_ context.Context, key string, grant Grant, _ time.Duration) error {
	s.grants.Store(key, grant)
	return nil
}

func (s *InMemoryGrantStore) Scan(_ context.Context, fn func(key string, grant Grant) bool) error {
	s.grants.Range(func(k, v any) bool {
		return fn(k.(string), v.(Grant))
	})
	return nil
}

func (s *InMemoryGrantStore) Delete(_ context.Context, key string) error {
	s.grants.Delete(key)
	return nil
}

func (s *InMemoryGrantStore) Sweep(_ context.Context, now time.Time) error {
	s.grants.Range(func(k, v any) bool {
		if v.(Grant).Expired(now) {
			s.grants.Delete(k)
		}
		return true
	})
	return nil
}

// Len reports the number of cached grants. Test helper.
func (s *InMemoryGrantStore) Len() int {
	n := 0
	s.grants.Range(func(any, any) bool {
		n++
		return true
	})
	return n
}
