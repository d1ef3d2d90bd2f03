// Package domain contains the core business entities and value objects.
// These structs are framework-agnostic and represent the heart of the application.
package domain

import "time"

// Tier represents a subscription tier. Tiers are totally ordered:
// Free < Upgraded < Premium.
type Tier int

const (
	// TierFree is the entry tier: platform credentials, proxied transport.
	TierFree Tier = 1

	// TierUpgraded unlocks AI features but still routes through platform credentials.
	TierUpgraded Tier = 2

	// TierPremium may supply its own provider credential and route directly.
	TierPremium Tier = 3
)

// IsValid reports whether the tier is one of the three known tiers.
func (t Tier) IsValid() bool {
	return t >= TierFree && t <= TierPremium
}

// String returns the human-readable tier name.
func (t Tier) String() string {
	switch t {
	case TierFree:
		return "free"
	case TierUpgraded:
		return "upgraded"
	case TierPremium:
		return "premium"
	default:
		return "unknown"
	}
}

// Transport identifies the path a request takes to the provider.
type Transport string

const (
	// TransportProxied routes through the platform egress with a platform credential.
	TransportProxied Transport = "proxied"

	// TransportDirect goes straight to the provider with a caller credential.
	TransportDirect Transport = "direct"
)

// RateWindowDuration is the length of one admission-control window.
const RateWindowDuration = time.Hour

// tierQuotas maps each tier to its requests-per-hour quota.
var tierQuotas = map[Tier]int{
	TierFree:     10,
	TierUpgraded: 100,
	TierPremium:  1000,
}

// CredentialRule describes how credentials are selected for a tier.
type CredentialRule struct {
	// AllowsCallerKey is true when the caller may supply its own provider credential.
	AllowsCallerKey bool

	// Transport is the default transport path for the tier.
	Transport Transport
}

// QuotaFor returns the requests-per-hour quota for a tier.
// Callers are expected to have validated the tier; unknown tiers get zero quota.
func QuotaFor(tier Tier) int {
	return tierQuotas[tier]
}

// CredentialRuleFor returns the credential-selection rule for a tier.
// Only Premium may bring its own key and use the direct transport.
func CredentialRuleFor(tier Tier) CredentialRule {
	if tier == TierPremium {
		return CredentialRule{AllowsCallerKey: true, Transport: TransportDirect}
	}
	return CredentialRule{AllowsCallerKey: false, Transport: TransportProxied}
}
