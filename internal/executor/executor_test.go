package executor

import (
	"context"
	"testing"
	"time"

	"github.com/cometlabs/comet-router/internal/planner"
	"github.com/cometlabs/comet-router/internal/tool"
)

func newTestRegistry(t *testing.T) *tool.Registry {
	t.Helper()
	r := tool.NewRegistry()
	r.Register(tool.Tool{
		Name:   "ok",
		Schema: tool.NewSchema().Build(),
		Handler: func(ctx context.Context, params map[string]any) (any, error) {
			return "done", nil
		},
	})
	r.Register(tool.Tool{
		Name:   "boom",
		Schema: tool.NewSchema().Build(),
		Handler: func(ctx context.Context, params map[string]any) (any, error) {
			panic("handler exploded")
		},
	})
	return r
}

func TestRun_ContinuesPastFailedStep(t *testing.T) {
	exec := New(newTestRegistry(t))

	plan := &planner.Plan{
		ID: "p1",
		Steps: []planner.Step{
			{Tool: "ok", Action: "first"},
			{Tool: "boom", Action: "second"},
			{Tool: "ok", Action: "third"},
		},
	}

	summary := exec.Run(context.Background(), plan)
	if summary.TotalCount != 3 {
		t.Errorf("TotalCount = %d, want 3", summary.TotalCount)
	}
	if summary.SuccessCount != 2 {
		t.Errorf("SuccessCount = %d, want 2", summary.SuccessCount)
	}
	if len(summary.Results) != 3 {
		t.Fatalf("len(Results) = %d, want 3 (run must reach the last step)", len(summary.Results))
	}
	if summary.Results[1].Success {
		t.Error("Results[1].Success = true, want false")
	}
	if summary.Results[1].Error == "" {
		t.Error("Results[1].Error is empty, want panic message")
	}
	if !summary.Results[2].Success {
		t.Error("Results[2].Success = false, step after failure must still run")
	}
}

func TestRun_UnknownToolIsFailedStep(t *testing.T) {
	exec := New(newTestRegistry(t))

	plan := &planner.Plan{
		ID: "p2",
		Steps: []planner.Step{
			{Tool: "ghost", Action: "use missing tool"},
			{Tool: "ok", Action: "still runs"},
		},
	}

	summary := exec.Run(context.Background(), plan)
	if summary.SuccessCount != 1 {
		t.Errorf("SuccessCount = %d, want 1", summary.SuccessCount)
	}
	if summary.Results[0].Success {
		t.Error("unknown tool step Success = true, want false")
	}
	if summary.Results[0].Error == "" {
		t.Error("unknown tool step has no error message")
	}
}

func TestRun_ObserverSeesEveryStep(t *testing.T) {
	var events []StepEvent
	exec := New(newTestRegistry(t), WithObserver(func(e StepEvent) {
		events = append(events, e)
	}))

	plan := &planner.Plan{
		ID: "p3",
		Steps: []planner.Step{
			{Tool: "ok", Action: "one"},
			{Tool: "boom", Action: "two"},
		},
	}

	exec.Run(context.Background(), plan)
	if len(events) != 2 {
		t.Fatalf("observer saw %d events, want 2", len(events))
	}
	if events[0].StepIndex != 0 || events[0].Action != "one" {
		t.Errorf("events[0] = %+v", events[0])
	}
	if events[1].Result.Success {
		t.Error("events[1].Result.Success = true, want false")
	}
}

func TestRun_CancellationStopsBetweenSteps(t *testing.T) {
	registry := tool.NewRegistry()
	ctx, cancel := context.WithCancel(context.Background())
	registry.Register(tool.Tool{
		Name:   "cancel-after",
		Schema: tool.NewSchema().Build(),
		Handler: func(ctx context.Context, params map[string]any) (any, error) {
			cancel()
			return "ran", nil
		},
	})

	exec := New(registry)
	plan := &planner.Plan{
		ID: "p4",
		Steps: []planner.Step{
			{Tool: "cancel-after", Action: "first"},
			{Tool: "cancel-after", Action: "never reached"},
		},
	}

	summary := exec.Run(ctx, plan)
	if !summary.Cancelled {
		t.Error("Cancelled = false, want true")
	}
	if len(summary.Results) != 1 {
		t.Errorf("len(Results) = %d, want 1", len(summary.Results))
	}
	if summary.TotalCount != 2 {
		t.Errorf("TotalCount = %d, want plan length 2", summary.TotalCount)
	}
}

func TestRun_EmptyPlan(t *testing.T) {
	exec := New(newTestRegistry(t))

	summary := exec.Run(context.Background(), &planner.Plan{ID: "p5"})
	if summary.TotalCount != 0 || summary.SuccessCount != 0 || len(summary.Results) != 0 {
		t.Errorf("summary = %+v, want empty", summary)
	}
}

func TestRun_RecordsStepDuration(t *testing.T) {
	r := tool.NewRegistry()
	r.Register(tool.Tool{
		Name:   "slow",
		Schema: tool.NewSchema().Build(),
		Handler: func(ctx context.Context, params map[string]any) (any, error) {
			time.Sleep(25 * time.Millisecond)
			return "done", nil
		},
	})
	exec := New(r)

	plan := &planner.Plan{
		ID:    "p-duration",
		Steps: []planner.Step{{Tool: "slow", Action: "wait"}},
	}

	summary := exec.Run(context.Background(), plan)
	if summary.Results[0].DurationMs < 10 {
		t.Errorf("DurationMs = %d, want at least 10", summary.Results[0].DurationMs)
	}
}
