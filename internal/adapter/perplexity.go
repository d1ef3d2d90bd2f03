package adapter

import (
	"encoding/json"
	"fmt"

	"github.com/cometlabs/comet-router/internal/domain"
)

// PerplexityAdapter implements ProviderAdapter for the Perplexity chat API.
// The wire format is OpenAI-compatible (bearer token, chat completions
// envelope); only the endpoint and default model differ.
type PerplexityAdapter struct {
	endpoint domain.Endpoint
}

// NewPerplexityAdapter creates an adapter bound to the given endpoint config.
func NewPerplexityAdapter(endpoint domain.Endpoint) *PerplexityAdapter {
	return &PerplexityAdapter{endpoint: endpoint}
}

// Name returns the provider identifier.
func (a *PerplexityAdapter) Name() domain.ProviderID {
	return domain.ProviderPerplexity
}

// BuildRequest builds the Perplexity chat completion wire call.
func (a *PerplexityAdapter) BuildRequest(credential string, req Request) (*HTTPRequest, error) {
	model := req.Model
	if model == "" {
		model = a.endpoint.DefaultModel
	}

	body, err := json.Marshal(chatRequest{
		Model:       model,
		Messages:    buildChatMessages(req),
		Temperature: req.Temperature,
		MaxTokens:   req.MaxTokens,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal perplexity request: %w", err)
	}

	return &HTTPRequest{
		URL: joinURL(a.endpoint.BaseURL, a.endpoint.ChatPath),
		Headers: map[string]string{
			"Content-Type":  "application/json",
			"Authorization": "Bearer " + credential,
		},
		Body: body,
	}, nil
}

// ParseResponse normalizes a Perplexity chat completion response.
func (a *PerplexityAdapter) ParseResponse(status int, body []byte) (*Result, error) {
	return parseChatResponse(domain.ProviderPerplexity, status, body)
}
