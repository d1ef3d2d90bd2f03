package router

import (
	"sync"
	"time"
	"unicode"

	"github.com/cometlabs/comet-router/internal/domain"
)

// TokensPerWord approximates tokens from word count (1 word ≈ 1.3 tokens).
// Used only when the provider reports no usage of its own.
const TokensPerWord = 1.3

// IdentityUsage is the analytics snapshot for one identity. This counter is
// separate from the rate-limit window on purpose: recording usage never
// re-enters the admission path.
type IdentityUsage struct {
	TotalRequests int                       `json:"total_requests"`
	TotalTokens   int                       `json:"total_tokens"`
	ByProvider    map[domain.ProviderID]int `json:"by_provider"`
	LastRequestAt time.Time                 `json:"last_request_at"`
}

// UsageTracker accumulates per-identity request and token counts for the
// usage endpoint. Thread-safe.
type UsageTracker struct {
	mu    sync.RWMutex
	stats map[string]*IdentityUsage
}

// NewUsageTracker creates an empty tracker.
func NewUsageTracker() *UsageTracker {
	return &UsageTracker{stats: make(map[string]*IdentityUsage)}
}

// Record notes one successful completion for an identity. tokens should be
// the provider-reported total; pass 0 to fall back to an estimate from the
// prompt text.
func (t *UsageTracker) Record(identity string, provider domain.ProviderID, prompt string, tokens int) {
	if tokens <= 0 {
		tokens = EstimateTokens(prompt)
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	u, ok := t.stats[identity]
	if !ok {
		u = &IdentityUsage{ByProvider: make(map[domain.ProviderID]int)}
		t.stats[identity] = u
	}

	u.TotalRequests++
	u.TotalTokens += tokens
	u.ByProvider[provider]++
	u.LastRequestAt = time.Now()
}

// Snapshot returns a copy of one identity's usage. Unknown identities get a
// zero snapshot.
func (t *UsageTracker) Snapshot(identity string) IdentityUsage {
	t.mu.RLock()
	defer t.mu.RUnlock()

	u, ok := t.stats[identity]
	if !ok {
		return IdentityUsage{ByProvider: map[domain.ProviderID]int{}}
	}

	byProvider := make(map[domain.ProviderID]int, len(u.ByProvider))
	for p, n := range u.ByProvider {
		byProvider[p] = n
	}

	return IdentityUsage{
		TotalRequests: u.TotalRequests,
		TotalTokens:   u.TotalTokens,
		ByProvider:    byProvider,
		LastRequestAt: u.LastRequestAt,
	}
}

// EstimateTokens estimates the token count of a text using the word-count
// approximation. Avoids a tokenizer dependency while staying close enough
// for analytics.
func EstimateTokens(text string) int {
	if text == "" {
		return 0
	}

	wordCount := 0
	inWord := false
	for _, r := range text {
		if unicode.IsLetter(r) || unicode.IsNumber(r) {
			if !inWord {
				wordCount++
				inWord = true
			}
		} else {
			inWord = false
		}
	}

	tokens := int(float64(wordCount) * TokensPerWord)
	if tokens == 0 && wordCount > 0 {
		tokens = 1
	}
	return tokens
}
