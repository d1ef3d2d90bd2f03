// Package planner turns a natural-language goal into an ordered tool plan by
// asking a model through the router.
package planner

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/cometlabs/comet-router/internal/domain"
	"github.com/cometlabs/comet-router/internal/router"
	"github.com/cometlabs/comet-router/internal/tool"
)

// Planning requests are internal, not user-tiered: plan quality must not
// degrade by subscription level, so every planning call runs at a fixed tier
// under a reserved identity.
const (
	PlanningTier     = domain.TierUpgraded
	PlanningIdentity = "internal:planner"
)

// FallbackAction is the action text of the single-step fallback plan.
const FallbackAction = "Manual execution required"

// Step is one validated plan entry.
type Step struct {
	Tool   string         `json:"tool"`
	Action string         `json:"action"`
	Params map[string]any `json:"params,omitempty"`
}

// Plan is an ordered, non-empty sequence of steps. Fallback marks plans
// substituted after a planning failure.
type Plan struct {
	ID        string    `json:"id"`
	Goal      string    `json:"goal"`
	Steps     []Step    `json:"steps"`
	Fallback  bool      `json:"fallback"`
	CreatedAt time.Time `json:"created_at"`
}

// CompletionService is the slice of the router the planner needs.
type CompletionService interface {
	Route(ctx context.Context, req router.CompletionRequest) (*router.CompletionResult, error)
}

// Planner builds plans against a tool catalog.
type Planner struct {
	svc      CompletionService
	registry *tool.Registry
	provider domain.ProviderID
	model    string
}

// Option configures a Planner.
type Option func(*Planner)

// WithProvider sets the provider used for planning calls.
func WithProvider(p domain.ProviderID) Option {
	return func(pl *Planner) {
		pl.provider = p
	}
}

// WithModel pins the planning model instead of the provider default.
func WithModel(model string) Option {
	return func(pl *Planner) {
		pl.model = model
	}
}

// New creates a planner over the given completion service and tool registry.
func New(svc CompletionService, registry *tool.Registry, opts ...Option) *Planner {
	p := &Planner{
		svc:      svc,
		registry: registry,
		provider: domain.ProviderOpenAI,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Plan produces an executable plan for the goal against the registry's own
// catalog. It never fails: any routing, parse, or validation error yields the
// one-step manual fallback, so callers always receive something runnable.
func (p *Planner) Plan(ctx context.Context, goal, extraContext string) *Plan {
	return p.PlanWithCatalog(ctx, goal, extraContext, p.registry.Catalog())
}

// PlanWithCatalog plans against a caller-supplied tool catalog instead of the
// registry's. Same never-fails contract as Plan.
func (p *Planner) PlanWithCatalog(ctx context.Context, goal, extraContext string, catalog []tool.CatalogEntry) *Plan {
	res, err := p.svc.Route(ctx, router.CompletionRequest{
		Provider:     p.provider,
		Model:        p.model,
		Prompt:       p.buildPrompt(goal, extraContext),
		SystemPrompt: p.buildSystemPrompt(catalog),
		Tier:         PlanningTier,
		Identity:     PlanningIdentity,
	})
	if err != nil || res == nil || res.Data == nil {
		return p.fallback(goal)
	}

	steps, err := parseSteps(res.Data.Content)
	if err != nil {
		return p.fallback(goal)
	}

	return &Plan{
		ID:        uuid.New().String(),
		Goal:      goal,
		Steps:     steps,
		CreatedAt: time.Now(),
	}
}

// fallback builds the one-step manual plan.
func (p *Planner) fallback(goal string) *Plan {
	return &Plan{
		ID:   uuid.New().String(),
		Goal: goal,
		Steps: []Step{{
			Tool:   "manual",
			Action: FallbackAction,
			Params: map[string]any{"goal": goal},
		}},
		Fallback:  true,
		CreatedAt: time.Now(),
	}
}

func (p *Planner) buildSystemPrompt(catalog []tool.CatalogEntry) string {
	var b strings.Builder
	b.WriteString("You are a task planner for a browser automation assistant.\n")
	b.WriteString("Available tools:\n")
	for _, entry := range catalog {
		fmt.Fprintf(&b, "- %s: %s\n", entry.Name, entry.Description)
	}
	b.WriteString("\nRespond with ONLY a JSON array of steps. Each step is an object ")
	b.WriteString(`{"tool": "<tool name>", "action": "<what this step does>", "params": {...}}. `)
	b.WriteString("Use only the tools listed above. No prose, no markdown.")
	return b.String()
}

func (p *Planner) buildPrompt(goal, extraContext string) string {
	if extraContext == "" {
		return "Goal: " + goal
	}
	return "Goal: " + goal + "\n\nContext: " + extraContext
}

// parseSteps decodes model output into validated steps. Models often fence
// JSON in markdown code blocks despite instructions, so fences are stripped
// before decoding.
func parseSteps(content string) ([]Step, error) {
	text := stripCodeFences(content)

	var steps []Step
	if err := json.Unmarshal([]byte(text), &steps); err != nil {
		return nil, fmt.Errorf("plan output is not a JSON array: %w", err)
	}
	if len(steps) == 0 {
		return nil, fmt.Errorf("plan output is empty")
	}
	for i, s := range steps {
		if strings.TrimSpace(s.Tool) == "" {
			return nil, fmt.Errorf("step %d has no tool", i)
		}
		if strings.TrimSpace(s.Action) == "" {
			return nil, fmt.Errorf("step %d has no action", i)
		}
	}
	return steps, nil
}

// stripCodeFences removes a surrounding ```...``` block, including an
// optional language tag on the opening fence.
func stripCodeFences(s string) string {
	text := strings.TrimSpace(s)
	if !strings.HasPrefix(text, "```") {
		return text
	}
	text = strings.TrimPrefix(text, "```")
	if idx := strings.Index(text, "\n"); idx >= 0 {
		// Drop the language tag line ("json", "JSON", or empty).
		text = text[idx+1:]
	}
	text = strings.TrimSuffix(strings.TrimSpace(text), "```")
	return strings.TrimSpace(text)
}
