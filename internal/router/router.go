package router

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/cometlabs/comet-router/internal/adapter"
	"github.com/cometlabs/comet-router/internal/credential"
	"github.com/cometlabs/comet-router/internal/domain"
	"github.com/cometlabs/comet-router/internal/ratelimit"
	"github.com/cometlabs/comet-router/internal/ui"
)

// DefaultRequestTimeout bounds each outbound provider call.
const DefaultRequestTimeout = 30 * time.Second

// CompletionRequest is a single routed completion.
type CompletionRequest struct {
	Provider     domain.ProviderID
	Model        string
	Prompt       string
	SystemPrompt string
	Temperature  *float64
	MaxTokens    *int

	// Tier and Identity drive admission control and credential policy.
	Tier     domain.Tier
	Identity string

	// UseCallerKey with a non-empty CallerKey requests direct transport.
	// Honored only for Premium; silently ignored otherwise.
	UseCallerKey bool
	CallerKey    string
}

// Metadata describes how a request was fulfilled.
type Metadata struct {
	Provider      domain.ProviderID `json:"provider"`
	Model         string            `json:"model"`
	Tier          domain.Tier       `json:"tier"`
	Transport     domain.Transport  `json:"transport"`
	UsedCallerKey bool              `json:"used_caller_key"`
}

// CompletionResult is the normalized outcome of a routed completion.
type CompletionResult struct {
	Success  bool            `json:"success"`
	Data     *adapter.Result `json:"data,omitempty"`
	Metadata Metadata        `json:"metadata"`
}

// ModelRouter is the synchronous request/response core: it validates,
// admits, resolves a credential, dispatches through the provider adapter,
// and records usage.
type ModelRouter struct {
	limiter  *ratelimit.Limiter
	resolver *credential.Resolver
	registry *adapter.Registry
	usage    *UsageTracker
	client   *http.Client
}

// RouterOption configures a ModelRouter.
type RouterOption func(*ModelRouter)

// WithHTTPClient sets a custom HTTP client (tests point it at a mock server).
func WithHTTPClient(client *http.Client) RouterOption {
	return func(r *ModelRouter) {
		r.client = client
	}
}

// WithRequestTimeout sets the outbound call timeout.
func WithRequestTimeout(d time.Duration) RouterOption {
	return func(r *ModelRouter) {
		r.client.Timeout = d
	}
}

// NewModelRouter creates a router over the given collaborators.
func NewModelRouter(
	limiter *ratelimit.Limiter,
	resolver *credential.Resolver,
	registry *adapter.Registry,
	opts ...RouterOption,
) *ModelRouter {
	r := &ModelRouter{
		limiter:  limiter,
		resolver: resolver,
		registry: registry,
		usage:    NewUsageTracker(),
		client:   &http.Client{Timeout: DefaultRequestTimeout},
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Usage exposes the analytics tracker for the usage endpoint.
func (r *ModelRouter) Usage() *UsageTracker {
	return r.usage
}

// Providers returns the provider IDs this router can serve.
func (r *ModelRouter) Providers() []domain.ProviderID {
	return r.registry.Providers()
}

// Route fulfils one completion request. Validation and admission run before
// any credential work or network I/O, so a rejected request has no side
// effects beyond its own window increment.
func (r *ModelRouter) Route(ctx context.Context, req CompletionRequest) (*CompletionResult, error) {
	// 1. Tier validation. Fails before the limiter is touched.
	if !req.Tier.IsValid() {
		return nil, NewError(KindInvalidTier, fmt.Sprintf("invalid tier %d: must be 1, 2, or 3", req.Tier))
	}

	// 2. Admission control.
	if !r.limiter.Admit(req.Identity, req.Tier) {
		ui.PrintRateLimited(req.Identity, req.Tier.String())
		return nil, NewError(KindRateLimitExceeded, "rate limit exceeded, please upgrade or wait")
	}

	// 3. Credential and transport.
	callerKey := ""
	if req.UseCallerKey {
		callerKey = req.CallerKey
	}
	res, err := r.resolver.Resolve(req.Tier, req.Provider, callerKey)
	if err != nil {
		var cfgErr *credential.ConfigurationError
		if errors.As(err, &cfgErr) {
			return nil, WrapError(KindConfiguration, "platform credential not configured, please contact support", err)
		}
		return nil, WrapError(KindConfiguration, "credential resolution failed", err)
	}

	// 4. Adapter selection.
	ad, ok := r.registry.Get(req.Provider)
	if !ok {
		return nil, NewError(KindUnsupportedProvider, fmt.Sprintf("unsupported provider: %s", req.Provider))
	}

	// 5. Build and send.
	result, err := r.dispatch(ctx, ad, res.Key, adapter.Request{
		Model:        req.Model,
		Prompt:       req.Prompt,
		SystemPrompt: req.SystemPrompt,
		Temperature:  req.Temperature,
		MaxTokens:    req.MaxTokens,
	})
	if err != nil {
		var perr *adapter.ProviderError
		if errors.As(err, &perr) {
			// Bench platform credentials the provider rejects or throttles,
			// so the pool rotates past them.
			if perr.Status == http.StatusUnauthorized ||
				perr.Status == http.StatusTooManyRequests ||
				perr.Status >= http.StatusInternalServerError {
				r.resolver.Bench(req.Provider, res)
				if res.Source == credential.SourcePlatform {
					ui.PrintBenchedKey(string(req.Provider), res.Key,
						fmt.Sprintf("provider status %d", perr.Status))
				}
			}
			return nil, WrapError(KindProviderRequest,
				fmt.Sprintf("provider returned status %d", perr.Status), err)
		}
		if isTimeout(ctx, err) {
			return nil, WrapError(KindTimeout, "provider request timed out", err)
		}
		return nil, WrapError(KindProviderRequest, "provider request failed", err)
	}

	// 6. Usage recording: separate analytics counter, never re-enters the
	// admission window.
	r.usage.Record(req.Identity, req.Provider, req.Prompt, result.Usage.TotalTokens)

	return &CompletionResult{
		Success: true,
		Data:    result,
		Metadata: Metadata{
			Provider:      req.Provider,
			Model:         result.Model,
			Tier:          req.Tier,
			Transport:     res.Transport,
			UsedCallerKey: res.Source == credential.SourceCaller,
		},
	}, nil
}

// dispatch performs the wire call through the adapter contract.
func (r *ModelRouter) dispatch(ctx context.Context, ad adapter.ProviderAdapter, key string, req adapter.Request) (*adapter.Result, error) {
	wire, err := ad.BuildRequest(key, req)
	if err != nil {
		return nil, err
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, wire.URL, bytes.NewReader(wire.Body))
	if err != nil {
		return nil, fmt.Errorf("failed to create http request: %w", err)
	}
	for k, v := range wire.Headers {
		httpReq.Header.Set(k, v)
	}

	resp, err := r.client.Do(httpReq)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read provider response: %w", err)
	}

	return ad.ParseResponse(resp.StatusCode, body)
}

// isTimeout reports whether an outbound call failed on a deadline.
func isTimeout(ctx context.Context, err error) bool {
	if errors.Is(err, context.DeadlineExceeded) || ctx.Err() == context.DeadlineExceeded {
		return true
	}
	var netErr interface{ Timeout() bool }
	return errors.As(err, &netErr) && netErr.Timeout()
}
