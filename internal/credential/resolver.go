// Package credential decides which credential and transport path a request
// uses, based on tier policy and the platform credential pools.
package credential

import (
	"fmt"

	"github.com/cometlabs/comet-router/internal/domain"
)

// Source records where a resolved credential came from.
type Source string

const (
	// SourcePlatform means the operator-held key pool supplied the credential.
	SourcePlatform Source = "platform"

	// SourceCaller means the caller supplied the credential (Premium only).
	SourceCaller Source = "caller"
)

// Resolution is the outcome of resolving a request's credential.
type Resolution struct {
	// Key is the provider API key. Never log or echo this value.
	Key string

	// Source is where the key came from.
	Source Source

	// Transport is the path the request takes to the provider.
	Transport domain.Transport
}

// ConfigurationError indicates the platform credential for a requested
// provider is absent. This is an operator misconfiguration, not a bad
// request, and is surfaced distinctly so the HTTP layer can report 5xx.
type ConfigurationError struct {
	Provider domain.ProviderID
	Err      error
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("platform credential not configured for provider %q", e.Provider)
}

func (e *ConfigurationError) Unwrap() error {
	return e.Err
}

// Resolver resolves credentials from the per-provider platform pools.
type Resolver struct {
	pools map[domain.ProviderID]*domain.CredentialPool
}

// NewResolver creates a Resolver over the given platform pools.
// Providers without a pool entry resolve to a ConfigurationError.
func NewResolver(pools map[domain.ProviderID]*domain.CredentialPool) *Resolver {
	if pools == nil {
		pools = make(map[domain.ProviderID]*domain.CredentialPool)
	}
	return &Resolver{pools: pools}
}

// Resolve picks the credential and transport for a request.
//
// Premium callers that supply a non-empty key go direct with that key; every
// other combination draws a platform key from the provider's pool and routes
// through the proxied transport. A caller key is scoped to this one
// resolution and is never retained.
func (r *Resolver) Resolve(tier domain.Tier, provider domain.ProviderID, callerKey string) (Resolution, error) {
	rule := domain.CredentialRuleFor(tier)

	if rule.AllowsCallerKey && callerKey != "" {
		return Resolution{
			Key:       callerKey,
			Source:    SourceCaller,
			Transport: domain.TransportDirect,
		}, nil
	}

	pool, ok := r.pools[provider]
	if !ok {
		return Resolution{}, &ConfigurationError{Provider: provider}
	}

	key, err := pool.GetNext()
	if err != nil {
		return Resolution{}, &ConfigurationError{Provider: provider, Err: err}
	}

	return Resolution{
		Key:       key,
		Source:    SourcePlatform,
		Transport: domain.TransportProxied,
	}, nil
}

// Bench takes a failing platform credential out of rotation for its pool's
// cooldown. Caller-supplied credentials are never pooled, so benching them
// is a no-op.
func (r *Resolver) Bench(provider domain.ProviderID, res Resolution) {
	if res.Source != SourcePlatform {
		return
	}
	if pool, ok := r.pools[provider]; ok {
		pool.Bench(res.Key)
	}
}

// PoolStatus reports active/benched/total counts per configured provider.
func (r *Resolver) PoolStatus() map[domain.ProviderID]PoolCounts {
	status := make(map[domain.ProviderID]PoolCounts, len(r.pools))
	for p, pool := range r.pools {
		status[p] = PoolCounts{
			Active:  pool.ActiveCount(),
			Benched: pool.BenchedCount(),
			Total:   pool.TotalCount(),
		}
	}
	return status
}

// PoolCounts summarizes one provider's credential pool.
type PoolCounts struct {
	Active  int `json:"active"`
	Benched int `json:"benched"`
	Total   int `json:"total"`
}
