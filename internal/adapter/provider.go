// Package adapter translates normalized completion requests into
// provider-specific HTTP calls and parses the responses back into a
// normalized result. It uses the Adapter pattern so the router never
// branches on provider identity: adding a provider means adding one
// implementation of ProviderAdapter and registering it.
package adapter

import (
	"encoding/json"
	"fmt"

	"github.com/cometlabs/comet-router/internal/domain"
)

// Request is the normalized completion request handed to an adapter.
// Credential and transport decisions have already been made by the caller.
type Request struct {
	// Model is the provider model name; empty selects the adapter's default.
	Model string

	// Prompt is the user prompt.
	Prompt string

	// SystemPrompt optionally steers the model; adapters place it in the
	// provider's native envelope (system message, top-level field, ...).
	SystemPrompt string

	// Temperature is the sampling temperature. Optional.
	Temperature *float64

	// MaxTokens caps the completion length. Optional.
	MaxTokens *int
}

// HTTPRequest is the provider-specific wire call an adapter builds.
type HTTPRequest struct {
	URL     string
	Headers map[string]string
	Body    []byte
}

// Usage holds normalized token accounting.
type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// Result is the normalized outcome of a provider call.
type Result struct {
	// Model is the model the provider reports having used.
	Model string `json:"model"`

	// Content is the completion text.
	Content string `json:"content"`

	// FinishReason is the provider's stop reason, normalized to
	// "stop" | "length" | "content_filter" where possible.
	FinishReason string `json:"finish_reason,omitempty"`

	// Usage is the token accounting, when the provider reports it.
	Usage Usage `json:"usage"`

	// Raw is the untouched provider response body for callers that need it.
	Raw json.RawMessage `json:"-"`
}

// ProviderError is a non-2xx response from a provider, carrying the status
// and the provider-reported message.
type ProviderError struct {
	Provider domain.ProviderID
	Status   int
	Message  string
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("%s API error [%d]: %s", e.Provider, e.Status, e.Message)
}

// ProviderAdapter is the contract every provider implementation satisfies.
type ProviderAdapter interface {
	// Name returns the provider this adapter serves.
	Name() domain.ProviderID

	// BuildRequest translates a normalized request into the provider's wire
	// call, embedding the credential in the provider's header shape.
	BuildRequest(credential string, req Request) (*HTTPRequest, error)

	// ParseResponse turns a raw provider response into a normalized Result.
	// Non-2xx statuses return a *ProviderError.
	ParseResponse(status int, body []byte) (*Result, error)
}

// Registry maps provider IDs to their adapters.
type Registry struct {
	adapters map[domain.ProviderID]ProviderAdapter
}

// NewRegistry creates a registry holding the given adapters.
func NewRegistry(adapters ...ProviderAdapter) *Registry {
	r := &Registry{adapters: make(map[domain.ProviderID]ProviderAdapter, len(adapters))}
	for _, a := range adapters {
		r.adapters[a.Name()] = a
	}
	return r
}

// Register adds or replaces an adapter.
func (r *Registry) Register(a ProviderAdapter) {
	r.adapters[a.Name()] = a
}

// Get returns the adapter for a provider.
func (r *Registry) Get(p domain.ProviderID) (ProviderAdapter, bool) {
	a, ok := r.adapters[p]
	return a, ok
}

// Providers returns the registered provider IDs in a stable order.
func (r *Registry) Providers() []domain.ProviderID {
	ids := make([]domain.ProviderID, 0, len(r.adapters))
	for _, p := range domain.AllProviders() {
		if _, ok := r.adapters[p]; ok {
			ids = append(ids, p)
		}
	}
	return ids
}

// DefaultRegistry builds a registry with the three stock providers, using
// each provider's default endpoint unless an override is supplied.
func DefaultRegistry(overrides map[domain.ProviderID]domain.Endpoint) *Registry {
	endpoint := func(p domain.ProviderID) domain.Endpoint {
		if ep, ok := overrides[p]; ok {
			return ep
		}
		ep, _ := domain.DefaultEndpoint(p)
		return ep
	}

	return NewRegistry(
		NewOpenAIAdapter(endpoint(domain.ProviderOpenAI)),
		NewClaudeAdapter(endpoint(domain.ProviderClaude)),
		NewPerplexityAdapter(endpoint(domain.ProviderPerplexity)),
	)
}
