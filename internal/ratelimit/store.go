// Package ratelimit implements per-identity fixed-window admission control.
package ratelimit

import (
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
)

// Window is one identity's admission-control record.
type Window struct {
	// Count is the number of admitted requests in the current window.
	Count int

	// Start is when the current window opened.
	Start time.Time
}

// WindowStore abstracts the backing store for rate windows so the limiter
// contract holds for both single-instance (in-memory) and multi-instance
// (remote atomic counter) deployments.
type WindowStore interface {
	// Get returns the window for an identity. ok is false when no window exists.
	Get(identity string) (w Window, ok bool)

	// CompareAndSwap replaces the stored window for identity only if the
	// currently stored value equals old (or no value is stored and old is the
	// zero Window). It returns true on success.
	CompareAndSwap(identity string, old, new Window) bool
}

// DefaultStoreSize bounds the number of identities tracked in memory.
// Least-recently-admitted identities are evicted first; an evicted identity
// simply starts a fresh window on its next request.
const DefaultStoreSize = 16384

// MemoryStore is an in-process WindowStore backed by an LRU cache.
type MemoryStore struct {
	mu    sync.Mutex
	cache *lru.Cache[string, Window]
}

// NewMemoryStore creates a MemoryStore holding at most size identities.
// Size values below 1 fall back to DefaultStoreSize.
func NewMemoryStore(size int) *MemoryStore {
	if size < 1 {
		size = DefaultStoreSize
	}
	// lru.New only fails for non-positive sizes, which we just excluded.
	cache, _ := lru.New[string, Window](size)
	return &MemoryStore{cache: cache}
}

// Get returns the stored window for an identity.
func (s *MemoryStore) Get(identity string) (Window, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cache.Get(identity)
}

// CompareAndSwap implements the atomic read-check-replace required by the
// limiter. The whole comparison runs under one lock so two concurrent
// admissions cannot both observe a stale under-quota window.
func (s *MemoryStore) CompareAndSwap(identity string, old, new Window) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, ok := s.cache.Get(identity)
	if !ok {
		if old != (Window{}) {
			return false
		}
	} else if current != old {
		return false
	}

	s.cache.Add(identity, new)
	return true
}

// Len returns the number of identities currently tracked.
func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cache.Len()
}
