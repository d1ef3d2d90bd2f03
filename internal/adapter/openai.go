// Package adapter translates normalized requests into provider wire formats.
package adapter

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/cometlabs/comet-router/internal/domain"
)

// chatMessage is the role-tagged message shape shared by the OpenAI-style
// chat APIs (OpenAI, Perplexity).
type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// chatRequest is the OpenAI-style chat completion request body.
type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature *float64      `json:"temperature,omitempty"`
	MaxTokens   *int          `json:"max_tokens,omitempty"`
}

// chatResponse is the OpenAI-style chat completion response body.
type chatResponse struct {
	ID      string `json:"id"`
	Model   string `json:"model"`
	Choices []struct {
		Index        int         `json:"index"`
		Message      chatMessage `json:"message"`
		FinishReason string      `json:"finish_reason"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
		TotalTokens      int `json:"total_tokens"`
	} `json:"usage"`
}

// chatErrorResponse is the OpenAI-style error envelope.
type chatErrorResponse struct {
	Error struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error"`
}

// OpenAIAdapter implements ProviderAdapter for the OpenAI chat API.
// Header shape: bearer token.
type OpenAIAdapter struct {
	endpoint domain.Endpoint
}

// NewOpenAIAdapter creates an adapter bound to the given endpoint config.
func NewOpenAIAdapter(endpoint domain.Endpoint) *OpenAIAdapter {
	return &OpenAIAdapter{endpoint: endpoint}
}

// Name returns the provider identifier.
func (a *OpenAIAdapter) Name() domain.ProviderID {
	return domain.ProviderOpenAI
}

// BuildRequest builds the OpenAI chat completion wire call.
func (a *OpenAIAdapter) BuildRequest(credential string, req Request) (*HTTPRequest, error) {
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
		return nil, fmt.Errorf("failed to marshal openai request: %w", err)
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

// ParseResponse normalizes an OpenAI chat completion response.
func (a *OpenAIAdapter) ParseResponse(status int, body []byte) (*Result, error) {
	return parseChatResponse(domain.ProviderOpenAI, status, body)
}

// buildChatMessages wraps the prompt (and optional system prompt) into the
// role-tagged message list.
func buildChatMessages(req Request) []chatMessage {
	msgs := make([]chatMessage, 0, 2)
	if req.SystemPrompt != "" {
		msgs = append(msgs, chatMessage{Role: "system", Content: req.SystemPrompt})
	}
	msgs = append(msgs, chatMessage{Role: "user", Content: req.Prompt})
	return msgs
}

// parseChatResponse handles the OpenAI-style response envelope shared by
// OpenAI and Perplexity.
func parseChatResponse(provider domain.ProviderID, status int, body []byte) (*Result, error) {
	if status < http.StatusOK || status >= http.StatusMultipleChoices {
		return nil, &ProviderError{
			Provider: provider,
			Status:   status,
			Message:  extractChatError(body),
		}
	}

	var resp chatResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("failed to unmarshal %s response: %w", provider, err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("%s response contained no choices", provider)
	}

	choice := resp.Choices[0]
	return &Result{
		Model:        resp.Model,
		Content:      choice.Message.Content,
		FinishReason: choice.FinishReason,
		Usage: Usage{
			PromptTokens:     resp.Usage.PromptTokens,
			CompletionTokens: resp.Usage.CompletionTokens,
			TotalTokens:      resp.Usage.TotalTokens,
		},
		Raw: json.RawMessage(body),
	}, nil
}

// extractChatError pulls the provider message out of an error body,
// falling back to the raw body.
func extractChatError(body []byte) string {
	var errResp chatErrorResponse
	if err := json.Unmarshal(body, &errResp); err == nil && errResp.Error.Message != "" {
		return errResp.Error.Message
	}
	return strings.TrimSpace(string(body))
}

// joinURL joins a base URL and a path without doubling slashes.
func joinURL(base, path string) string {
	return strings.TrimSuffix(base, "/") + path
}
