package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/cometlabs/comet-router/internal/credential"
	"github.com/cometlabs/comet-router/internal/domain"
	"github.com/cometlabs/comet-router/internal/planner"
	"github.com/cometlabs/comet-router/internal/router"
	"github.com/cometlabs/comet-router/internal/tool"
)

// ModelHandler serves the model routing and planning endpoints.
type ModelHandler struct {
	router    *router.ModelRouter
	planner   *planner.Planner
	resolver  *credential.Resolver
	endpoints map[domain.ProviderID]domain.Endpoint
	logger    *slog.Logger
}

// NewModelHandler creates the handler over its collaborators. endpoints is
// the effective (override-merged) provider table, used by the status
// endpoint.
func NewModelHandler(
	r *router.ModelRouter,
	p *planner.Planner,
	resolver *credential.Resolver,
	endpoints map[domain.ProviderID]domain.Endpoint,
	logger *slog.Logger,
) *ModelHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &ModelHandler{
		router:    r,
		planner:   p,
		resolver:  resolver,
		endpoints: endpoints,
		logger:    logger,
	}
}

// routeRequest is the body of POST /model/route.
type routeRequest struct {
	Tier         int      `json:"tier"`
	Provider     string   `json:"provider"`
	Prompt       string   `json:"prompt"`
	Model        string   `json:"model"`
	SystemPrompt string   `json:"systemPrompt"`
	Temperature  *float64 `json:"temperature"`
	MaxTokens    *int     `json:"maxTokens"`
	UseUserKey   bool     `json:"useUserKey"`
	UserAPIKey   string   `json:"userApiKey"`
	UserID       string   `json:"userId"`
}

// HandleRoute handles POST /model/route.
func (h *ModelHandler) HandleRoute(c *gin.Context) {
	var req routeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.sendError(c, http.StatusBadRequest, "invalid_request", "invalid request body: "+err.Error())
		return
	}
	if req.Prompt == "" {
		h.sendError(c, http.StatusBadRequest, "invalid_request", "prompt is required")
		return
	}

	identity := authIdentity(c, req.UserID)
	if identity == "" {
		h.sendError(c, http.StatusBadRequest, "invalid_request", "userId is required")
		return
	}

	result, err := h.router.Route(c.Request.Context(), router.CompletionRequest{
		Provider:     domain.ProviderID(req.Provider),
		Model:        req.Model,
		Prompt:       req.Prompt,
		SystemPrompt: req.SystemPrompt,
		Temperature:  req.Temperature,
		MaxTokens:    req.MaxTokens,
		Tier:         authTier(c, domain.Tier(req.Tier)),
		Identity:     identity,
		UseCallerKey: req.UseUserKey,
		CallerKey:    req.UserAPIKey,
	})
	if err != nil {
		h.sendRouterError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":  true,
		"data":     result.Data,
		"metadata": result.Metadata,
	})
}

// planRequest is the body of POST /model/plan. Tools optionally narrows the
// catalog the model sees; omitted, the built-in registry catalog is used.
type planRequest struct {
	Query   string              `json:"query"`
	Context string              `json:"context"`
	Tools   []tool.CatalogEntry `json:"tools"`
}

// HandlePlan handles POST /model/plan. By contract the response always
// carries an executable plan: a planning failure degrades to the one-step
// manual fallback, reported as a 500 with the fallback attached.
func (h *ModelHandler) HandlePlan(c *gin.Context) {
	var req planRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.sendError(c, http.StatusBadRequest, "invalid_request", "invalid request body: "+err.Error())
		return
	}
	if req.Query == "" {
		h.sendError(c, http.StatusBadRequest, "invalid_request", "query is required")
		return
	}

	var plan *planner.Plan
	if len(req.Tools) > 0 {
		plan = h.planner.PlanWithCatalog(c.Request.Context(), req.Query, req.Context, req.Tools)
	} else {
		plan = h.planner.Plan(c.Request.Context(), req.Query, req.Context)
	}

	if plan.Fallback {
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error": gin.H{
				"kind":    string(router.KindPlanValidation),
				"message": "planning failed, manual fallback attached",
			},
			"fallback": plan.Steps,
			"metadata": gin.H{"plan_id": plan.ID},
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"plan":    plan.Steps,
		"metadata": gin.H{
			"plan_id":    plan.ID,
			"goal":       plan.Goal,
			"created_at": plan.CreatedAt,
		},
	})
}

// HandleStatus handles GET /model/status.
func (h *ModelHandler) HandleStatus(c *gin.Context) {
	providers := h.router.Providers()
	endpoints := make(gin.H, len(providers))
	for _, id := range providers {
		if ep, ok := h.endpoints[id]; ok {
			endpoints[string(id)] = gin.H{
				"base_url":      ep.BaseURL,
				"default_model": ep.DefaultModel,
				"models":        ep.Models,
			}
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"status":    "operational",
		"endpoints": endpoints,
		"providers": providers,
	})
}

// HandleUsage handles GET /model/usage. Identity comes from the JWT when auth
// is on, else from the userId query parameter.
func (h *ModelHandler) HandleUsage(c *gin.Context) {
	identity := authIdentity(c, c.Query("userId"))
	if identity == "" {
		h.sendError(c, http.StatusBadRequest, "invalid_request", "userId is required")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"usage":   h.router.Usage().Snapshot(identity),
	})
}

// HandleHealth handles GET /health. Degraded means some configured provider
// has no usable platform credential left.
func (h *ModelHandler) HandleHealth(c *gin.Context) {
	status := "healthy"
	pools := make(gin.H)
	for id, counts := range h.resolver.PoolStatus() {
		if counts.Total > 0 && counts.Active == 0 {
			status = "degraded"
		}
		pools[string(id)] = counts
	}

	c.JSON(http.StatusOK, gin.H{
		"status": status,
		"pools":  pools,
	})
}

// sendRouterError maps a router error onto the wire envelope. Provider error
// bodies are summarized, never passed through raw.
func (h *ModelHandler) sendRouterError(c *gin.Context, err error) {
	var rerr *router.Error
	if !errors.As(err, &rerr) {
		h.logger.Error("unclassified routing failure", slog.String("error", err.Error()))
		h.sendError(c, http.StatusInternalServerError, string(router.KindConfiguration), "internal error")
		return
	}

	if rerr.HTTPStatus() >= http.StatusInternalServerError {
		h.logger.Error("routing failed",
			slog.String("kind", string(rerr.Kind)),
			slog.String("error", rerr.Error()),
		)
	}
	h.sendError(c, rerr.HTTPStatus(), string(rerr.Kind), rerr.Message)
}

func (h *ModelHandler) sendError(c *gin.Context, status int, kind, message string) {
	c.JSON(status, gin.H{
		"success": false,
		"error": gin.H{
			"kind":    kind,
			"message": message,
		},
	})
}
