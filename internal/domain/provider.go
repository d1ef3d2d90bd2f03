// Package domain contains the core business entities and value objects.
package domain

// ProviderID identifies a model provider (e.g., OpenAI, Claude, Perplexity).
type ProviderID string

const (
	ProviderOpenAI     ProviderID = "openai"
	ProviderClaude     ProviderID = "claude"
	ProviderPerplexity ProviderID = "perplexity"
)

// IsValid reports whether the provider is one of the known providers.
func (p ProviderID) IsValid() bool {
	switch p {
	case ProviderOpenAI, ProviderClaude, ProviderPerplexity:
		return true
	default:
		return false
	}
}

// Endpoint holds the wire-level configuration for a provider.
type Endpoint struct {
	// BaseURL is the provider's API root.
	BaseURL string `json:"base_url" mapstructure:"base_url"`

	// ChatPath is the path of the chat/messages resource, joined to BaseURL.
	ChatPath string `json:"chat_path" mapstructure:"chat_path"`

	// DefaultModel is used when the caller does not name a model.
	DefaultModel string `json:"default_model" mapstructure:"default_model"`

	// Models lists the models the platform advertises for this provider.
	Models []string `json:"models" mapstructure:"models"`
}

// defaultEndpoints mirrors the provider catalog the platform ships with.
// Each entry can be overridden from configuration.
var defaultEndpoints = map[ProviderID]Endpoint{
	ProviderOpenAI: {
		BaseURL:      "https://api.openai.com/v1",
		ChatPath:     "/chat/completions",
		DefaultModel: "gpt-3.5-turbo",
		Models:       []string{"gpt-4", "gpt-3.5-turbo"},
	},
	ProviderClaude: {
		BaseURL:      "https://api.anthropic.com/v1",
		ChatPath:     "/messages",
		DefaultModel: "claude-3-sonnet-20240229",
		Models:       []string{"claude-3-opus-20240229", "claude-3-sonnet-20240229"},
	},
	ProviderPerplexity: {
		BaseURL:      "https://api.perplexity.ai",
		ChatPath:     "/chat/completions",
		DefaultModel: "pplx-7b-online",
		Models:       []string{"pplx-7b-online", "pplx-70b-online"},
	},
}

// DefaultEndpoint returns the built-in endpoint configuration for a provider.
// The second return value is false for unknown providers.
func DefaultEndpoint(p ProviderID) (Endpoint, bool) {
	ep, ok := defaultEndpoints[p]
	return ep, ok
}

// AllProviders returns the known provider IDs in a stable order.
func AllProviders() []ProviderID {
	return []ProviderID{ProviderOpenAI, ProviderClaude, ProviderPerplexity}
}
