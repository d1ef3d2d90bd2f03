package handler

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/cometlabs/comet-router/internal/executor"
	"github.com/cometlabs/comet-router/internal/planner"
	"github.com/cometlabs/comet-router/internal/tool"
	"github.com/cometlabs/comet-router/internal/ui"
)

// AgentHandler serves the plan-then-execute endpoint.
type AgentHandler struct {
	planner  *planner.Planner
	registry *tool.Registry
	logger   *slog.Logger
}

// NewAgentHandler creates the handler. Executors are built per request so
// each run gets its own event stream.
func NewAgentHandler(p *planner.Planner, registry *tool.Registry, logger *slog.Logger) *AgentHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &AgentHandler{planner: p, registry: registry, logger: logger}
}

// agentRunRequest is the body of POST /agent/run.
type agentRunRequest struct {
	Goal    string `json:"goal"`
	Context string `json:"context"`
}

// HandleRun handles POST /agent/run: plan the goal, run the plan against the
// built-in tools, and return the plan, per-step events, and the summary.
func (h *AgentHandler) HandleRun(c *gin.Context) {
	var req agentRunRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error": gin.H{
				"kind":    "invalid_request",
				"message": "invalid request body: " + err.Error(),
			},
		})
		return
	}
	if req.Goal == "" {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error": gin.H{
				"kind":    "invalid_request",
				"message": "goal is required",
			},
		})
		return
	}

	plan := h.planner.Plan(c.Request.Context(), req.Goal, req.Context)
	ui.PrintPlanStart(plan.ID, plan.Goal, len(plan.Steps), plan.Fallback)
	h.logger.Info("plan built",
		slog.String("plan_id", plan.ID),
		slog.Int("steps", len(plan.Steps)),
		slog.Bool("fallback", plan.Fallback),
	)

	events := make([]executor.StepEvent, 0, len(plan.Steps))
	total := len(plan.Steps)
	run := executor.New(h.registry, executor.WithObserver(func(e executor.StepEvent) {
		events = append(events, e)
		ui.PrintStepResult(e.StepIndex, total, e.Result.Tool, e.Result.Action,
			e.Result.Success, time.Duration(e.Result.DurationMs)*time.Millisecond)
	}))
	summary := run.Run(c.Request.Context(), plan)
	ui.PrintPlanSummary(summary.SuccessCount, summary.TotalCount)

	c.JSON(http.StatusOK, gin.H{
		"success": summary.SuccessCount == summary.TotalCount,
		"plan":    plan,
		"events":  events,
		"summary": summary,
	})
}
