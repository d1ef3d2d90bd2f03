// Package executor runs plans step by step against the tool registry.
package executor

import (
	"context"

	"github.com/cometlabs/comet-router/internal/planner"
	"github.com/cometlabs/comet-router/internal/tool"
)

// StepResult records the outcome of one executed step.
type StepResult struct {
	StepIndex  int    `json:"step_index"`
	Tool       string `json:"tool"`
	Action     string `json:"action"`
	Success    bool   `json:"success"`
	Data       any    `json:"data,omitempty"`
	Error      string `json:"error,omitempty"`
	DurationMs int64  `json:"duration_ms"`
}

// StepEvent is pushed to the observer as each step finishes, suitable for
// live display.
type StepEvent struct {
	StepIndex int        `json:"step_index"`
	Action    string     `json:"action"`
	Result    StepResult `json:"result"`
}

// Observer receives step events during a run. May be nil.
type Observer func(StepEvent)

// ExecutionSummary aggregates a completed run. TotalCount is the plan length;
// a cancelled run reports fewer results than TotalCount.
type ExecutionSummary struct {
	PlanID       string       `json:"plan_id"`
	Results      []StepResult `json:"results"`
	SuccessCount int          `json:"success_count"`
	TotalCount   int          `json:"total_count"`
	Cancelled    bool         `json:"cancelled,omitempty"`
}

// PlanExecutor interprets plans sequentially. Steps run strictly one after
// another because later steps depend on state left by earlier ones.
type PlanExecutor struct {
	registry *tool.Registry
	observer Observer
}

// Option configures a PlanExecutor.
type Option func(*PlanExecutor)

// WithObserver sets the per-step event callback.
func WithObserver(obs Observer) Option {
	return func(e *PlanExecutor) {
		e.observer = obs
	}
}

// New creates an executor over the given registry.
func New(registry *tool.Registry, opts ...Option) *PlanExecutor {
	e := &PlanExecutor{registry: registry}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Run executes every step in order. A failed step never aborts the run; the
// next step still executes. Cancellation is cooperative: the context is
// checked between steps, never mid-step.
func (e *PlanExecutor) Run(ctx context.Context, plan *planner.Plan) *ExecutionSummary {
	summary := &ExecutionSummary{
		PlanID:     plan.ID,
		Results:    make([]StepResult, 0, len(plan.Steps)),
		TotalCount: len(plan.Steps),
	}

	for i, step := range plan.Steps {
		if ctx.Err() != nil {
			summary.Cancelled = true
			break
		}

		sr := e.runStep(ctx, i, step)
		summary.Results = append(summary.Results, sr)
		if sr.Success {
			summary.SuccessCount++
		}

		if e.observer != nil {
			e.observer(StepEvent{StepIndex: i, Action: step.Action, Result: sr})
		}
	}

	return summary
}

// runStep executes one step. Registry-level errors (unknown tool, schema
// violation) become failed results so the run continues uniformly.
func (e *PlanExecutor) runStep(ctx context.Context, index int, step planner.Step) StepResult {
	sr := StepResult{
		StepIndex: index,
		Tool:      step.Tool,
		Action:    step.Action,
	}

	res, err := e.registry.Execute(ctx, step.Tool, step.Params)
	if err != nil {
		sr.Error = err.Error()
		return sr
	}

	sr.Success = res.Success
	sr.Data = res.Data
	sr.Error = res.Error
	sr.DurationMs = res.DurationMs
	return sr
}
