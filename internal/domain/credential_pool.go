// Package domain contains the core business entities and value objects.
package domain

import (
	"errors"
	"sync"
	"sync/atomic"
	"time"
)

// ErrNoCredentialsAvailable is returned when a provider's pool is empty
// or every credential in it is cooling down.
var ErrNoCredentialsAvailable = errors.New("no platform credentials available for provider")

// CredentialPool holds the platform credentials for a single provider and
// hands them out round-robin. A credential that triggers provider-side
// failures can be benched for a cooldown period and is revived automatically.
//
// It is safe for concurrent use: the rotation index is an atomic counter and
// the backing slices are guarded by RWMutexes.
type CredentialPool struct {
	provider ProviderID

	// keys holds the credentials currently in rotation.
	keys []string

	// benched tracks temporarily removed credentials with their bench timestamp.
	benched map[string]time.Time

	// index is the atomic round-robin counter.
	index int64

	// mu protects keys; benchMu protects benched. Separate mutexes keep the
	// hot GetNext path from contending with bench bookkeeping.
	mu      sync.RWMutex
	benchMu sync.RWMutex

	// cooldown is how long a benched credential stays out of rotation.
	// Zero disables automatic revival.
	cooldown time.Duration

	// known is the initial credential set; only known credentials can be
	// benched or revived.
	known map[string]struct{}
}

// NewCredentialPool creates a pool for one provider. Empty and duplicate
// credentials are dropped.
func NewCredentialPool(provider ProviderID, keys []string, cooldown time.Duration) *CredentialPool {
	p := &CredentialPool{
		provider: provider,
		keys:     make([]string, 0, len(keys)),
		benched:  make(map[string]time.Time),
		cooldown: cooldown,
		known:    make(map[string]struct{}),
	}

	for _, key := range keys {
		if key == "" {
			continue
		}
		if _, dup := p.known[key]; dup {
			continue
		}
		p.known[key] = struct{}{}
		p.keys = append(p.keys, key)
	}

	return p
}

// Provider returns the provider this pool serves.
func (p *CredentialPool) Provider() ProviderID {
	return p.provider
}

// GetNext returns the next credential in round-robin order, reviving any
// credential whose cooldown has elapsed first.
// Returns ErrNoCredentialsAvailable when the rotation is empty.
func (p *CredentialPool) GetNext() (string, error) {
	p.reviveExpired()

	p.mu.RLock()
	n := len(p.keys)
	if n == 0 {
		p.mu.RUnlock()
		return "", ErrNoCredentialsAvailable
	}

	// AddInt64 returns the new value, so subtract 1 for the current slot.
	idx := int((atomic.AddInt64(&p.index, 1) - 1) % int64(n))
	key := p.keys[idx]
	p.mu.RUnlock()

	return key, nil
}

// Bench removes a credential from rotation for the cooldown duration.
// Unknown credentials are ignored.
func (p *CredentialPool) Bench(key string) {
	if key == "" {
		return
	}
	if _, ok := p.known[key]; !ok {
		return
	}

	p.benchMu.Lock()
	p.benched[key] = time.Now()
	p.benchMu.Unlock()

	p.mu.Lock()
	defer p.mu.Unlock()

	// Preserve order so round-robin stays predictable.
	kept := make([]string, 0, len(p.keys))
	for _, k := range p.keys {
		if k != key {
			kept = append(kept, k)
		}
	}
	p.keys = kept
}

// Revive returns a benched credential to the rotation immediately.
func (p *CredentialPool) Revive(key string) {
	if key == "" {
		return
	}
	if _, ok := p.known[key]; !ok {
		return
	}

	p.benchMu.Lock()
	_, wasBenched := p.benched[key]
	delete(p.benched, key)
	p.benchMu.Unlock()

	if !wasBenched {
		return
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	for _, k := range p.keys {
		if k == key {
			return
		}
	}
	p.keys = append(p.keys, key)
}

// reviveExpired revives every benched credential past its cooldown.
func (p *CredentialPool) reviveExpired() {
	if p.cooldown == 0 {
		return
	}

	now := time.Now()
	var due []string

	p.benchMu.RLock()
	for key, since := range p.benched {
		if now.Sub(since) >= p.cooldown {
			due = append(due, key)
		}
	}
	p.benchMu.RUnlock()

	for _, key := range due {
		p.Revive(key)
	}
}

// ActiveCount returns the number of credentials currently in rotation.
func (p *CredentialPool) ActiveCount() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.keys)
}

// BenchedCount returns the number of credentials currently benched.
func (p *CredentialPool) BenchedCount() int {
	p.benchMu.RLock()
	defer p.benchMu.RUnlock()
	return len(p.benched)
}

// TotalCount returns the total number of managed credentials.
func (p *CredentialPool) TotalCount() int {
	return len(p.known)
}
