package adapter

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/cometlabs/comet-router/internal/domain"
)

const (
	// anthropicVersion is the API version header Claude requires.
	anthropicVersion = "2024-01-01"

	// defaultClaudeMaxTokens is used when the caller sets no cap;
	// the messages API makes max_tokens mandatory.
	defaultClaudeMaxTokens = 1024
)

// claudeRequest is the Anthropic messages API request body.
type claudeRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	System      string        `json:"system,omitempty"`
	MaxTokens   int           `json:"max_tokens"`
	Temperature *float64      `json:"temperature,omitempty"`
}

// claudeResponse is the Anthropic messages API response body.
type claudeResponse struct {
	ID      string `json:"id"`
	Model   string `json:"model"`
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
	StopReason string `json:"stop_reason"`
	Usage      struct {
		InputTokens  int `json:"input_tokens"`
		OutputTokens int `json:"output_tokens"`
	} `json:"usage"`
}

// claudeErrorResponse is the Anthropic error envelope.
type claudeErrorResponse struct {
	Error struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error"`
}

// ClaudeAdapter implements ProviderAdapter for the Anthropic messages API.
// Header shape: x-api-key plus anthropic-version; the system prompt rides in
// a top-level field instead of a system message.
type ClaudeAdapter struct {
	endpoint domain.Endpoint
}

// NewClaudeAdapter creates an adapter bound to the given endpoint config.
func NewClaudeAdapter(endpoint domain.Endpoint) *ClaudeAdapter {
	return &ClaudeAdapter{endpoint: endpoint}
}

// Name returns the provider identifier.
func (a *ClaudeAdapter) Name() domain.ProviderID {
	return domain.ProviderClaude
}

// BuildRequest builds the Anthropic messages wire call.
func (a *ClaudeAdapter) BuildRequest(credential string, req Request) (*HTTPRequest, error) {
	model := req.Model
	if model == "" {
		model = a.endpoint.DefaultModel
	}

	maxTokens := defaultClaudeMaxTokens
	if req.MaxTokens != nil {
		maxTokens = *req.MaxTokens
	}

	body, err := json.Marshal(claudeRequest{
		Model:       model,
		Messages:    []chatMessage{{Role: "user", Content: req.Prompt}},
		System:      req.SystemPrompt,
		MaxTokens:   maxTokens,
		Temperature: req.Temperature,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal claude request: %w", err)
	}

	return &HTTPRequest{
		URL: joinURL(a.endpoint.BaseURL, a.endpoint.ChatPath),
		Headers: map[string]string{
			"Content-Type":      "application/json",
			"x-api-key":         credential,
			"anthropic-version": anthropicVersion,
		},
		Body: body,
	}, nil
}

// ParseResponse normalizes an Anthropic messages response.
func (a *ClaudeAdapter) ParseResponse(status int, body []byte) (*Result, error) {
	if status < http.StatusOK || status >= http.StatusMultipleChoices {
		return nil, &ProviderError{
			Provider: domain.ProviderClaude,
			Status:   status,
			Message:  extractClaudeError(body),
		}
	}

	var resp claudeResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("failed to unmarshal claude response: %w", err)
	}

	content := ""
	for _, block := range resp.Content {
		if block.Type == "text" {
			content += block.Text
		}
	}

	return &Result{
		Model:        resp.Model,
		Content:      content,
		FinishReason: mapClaudeStopReason(resp.StopReason),
		Usage: Usage{
			PromptTokens:     resp.Usage.InputTokens,
			CompletionTokens: resp.Usage.OutputTokens,
			TotalTokens:      resp.Usage.InputTokens + resp.Usage.OutputTokens,
		},
		Raw: json.RawMessage(body),
	}, nil
}

// mapClaudeStopReason converts Anthropic stop reasons to the normalized set.
func mapClaudeStopReason(reason string) string {
	switch reason {
	case "end_turn", "stop_sequence":
		return "stop"
	case "max_tokens":
		return "length"
	default:
		return reason
	}
}

func extractClaudeError(body []byte) string {
	var errResp claudeErrorResponse
	if err := json.Unmarshal(body, &errResp); err == nil && errResp.Error.Message != "" {
		return errResp.Error.Message
	}
	return string(body)
}
