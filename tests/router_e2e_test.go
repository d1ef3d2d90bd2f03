// Package tests provides end-to-end integration tests for comet-router.
package tests

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/cometlabs/comet-router/internal/adapter"
	"github.com/cometlabs/comet-router/internal/credential"
	"github.com/cometlabs/comet-router/internal/domain"
	"github.com/cometlabs/comet-router/internal/executor"
	"github.com/cometlabs/comet-router/internal/handler"
	"github.com/cometlabs/comet-router/internal/planner"
	"github.com/cometlabs/comet-router/internal/ratelimit"
	"github.com/cometlabs/comet-router/internal/router"
	"github.com/cometlabs/comet-router/internal/tool"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// mockProvider simulates an OpenAI-compatible provider. The reply content is
// settable per test; requests are recorded for assertions.
type mockProvider struct {
	server *httptest.Server

	mu       sync.Mutex
	content  string
	requests []string // prompts seen
}

func newMockProvider() *mockProvider {
	m := &mockProvider{content: "mock reply"}
	m.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			Messages []struct {
				Role    string `json:"role"`
				Content string `json:"content"`
			} `json:"messages"`
		}
		json.NewDecoder(r.Body).Decode(&body)

		m.mu.Lock()
		for _, msg := range body.Messages {
			if msg.Role == "user" {
				m.requests = append(m.requests, msg.Content)
			}
		}
		content := m.content
		m.mu.Unlock()

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"id":    "chatcmpl-e2e",
			"model": "gpt-3.5-turbo",
			"choices": []map[string]any{{
				"message":       map[string]any{"role": "assistant", "content": content},
				"finish_reason": "stop",
			}},
			"usage": map[string]any{"prompt_tokens": 10, "completion_tokens": 15, "total_tokens": 25},
		})
	}))
	return m
}

func (m *mockProvider) setContent(content string) {
	m.mu.Lock()
	m.content = content
	m.mu.Unlock()
}

// newStack wires the full engine against the mock provider, mirroring the
// production wiring in cmd/server.
func newStack(t *testing.T, provider *mockProvider) *gin.Engine {
	t.Helper()

	ep := domain.Endpoint{
		BaseURL:      provider.server.URL,
		ChatPath:     "/chat/completions",
		DefaultModel: "gpt-3.5-turbo",
		Models:       []string{"gpt-4", "gpt-3.5-turbo"},
	}
	pool := domain.NewCredentialPool(domain.ProviderOpenAI, []string{"platform-e2e-key"}, time.Minute)
	resolver := credential.NewResolver(map[domain.ProviderID]*domain.CredentialPool{
		domain.ProviderOpenAI: pool,
	})
	registry := adapter.NewRegistry(adapter.NewOpenAIAdapter(ep))
	limiter := ratelimit.NewLimiter(ratelimit.NewMemoryStore(256))
	modelRouter := router.NewModelRouter(limiter, resolver, registry,
		router.WithHTTPClient(provider.server.Client()))

	tools := tool.NewRegistry()
	tool.RegisterBuiltins(tools, tool.NoopBrowser{})
	plnr := planner.New(modelRouter, tools)

	modelHandler := handler.NewModelHandler(modelRouter, plnr, resolver,
		map[domain.ProviderID]domain.Endpoint{domain.ProviderOpenAI: ep}, nil)
	agentHandler := handler.NewAgentHandler(plnr, tools, nil)

	engine := gin.New()
	engine.POST("/model/route", modelHandler.HandleRoute)
	engine.POST("/model/plan", modelHandler.HandlePlan)
	engine.GET("/model/status", modelHandler.HandleStatus)
	engine.GET("/model/usage", modelHandler.HandleUsage)
	engine.POST("/agent/run", agentHandler.HandleRun)
	engine.GET("/health", modelHandler.HandleHealth)
	return engine
}

func doJSON(t *testing.T, engine *gin.Engine, method, path, body string) (int, map[string]any) {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)

	var decoded map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &decoded); err != nil {
		t.Fatalf("response is not JSON: %v\n%s", err, w.Body.String())
	}
	return w.Code, decoded
}

// TestGoalToSummary walks the whole pipeline: a goal is planned into a search
// step, executed against the built-in tools, and summarized.
func TestGoalToSummary(t *testing.T) {
	provider := newMockProvider()
	defer provider.server.Close()
	engine := newStack(t, provider)

	provider.setContent(`[{"tool": "search", "action": "Search the web", "params": {"query": "open-source rate limiters"}}]`)

	code, body := doJSON(t, engine, http.MethodPost, "/agent/run",
		`{"goal": "search for open-source rate limiters"}`)
	if code != http.StatusOK {
		t.Fatalf("status = %d, want 200", code)
	}
	if body["success"] != true {
		t.Errorf("success = %v, want true", body["success"])
	}

	plan, _ := body["plan"].(map[string]any)
	steps, _ := plan["steps"].([]any)
	if len(steps) != 1 {
		t.Fatalf("len(plan.steps) = %d, want 1", len(steps))
	}
	step, _ := steps[0].(map[string]any)
	if step["tool"] != "search" {
		t.Errorf("plan step tool = %v, want search", step["tool"])
	}
	params, _ := step["params"].(map[string]any)
	if params["query"] != "open-source rate limiters" {
		t.Errorf("plan step query = %v", params["query"])
	}

	summary, _ := body["summary"].(map[string]any)
	if summary["success_count"] != float64(1) || summary["total_count"] != float64(1) {
		t.Errorf("summary = %v, want success_count 1 total_count 1", summary)
	}

	results, _ := summary["results"].([]any)
	first, _ := results[0].(map[string]any)
	data, _ := first["data"].(map[string]any)
	if data["status"] != "search_started" {
		t.Errorf("step data = %v, want status search_started", data)
	}
}

// TestRouteThenUsage checks that routed completions accrue to the usage
// endpoint without touching the admission window twice.
func TestRouteThenUsage(t *testing.T) {
	provider := newMockProvider()
	defer provider.server.Close()
	engine := newStack(t, provider)

	for i := 0; i < 3; i++ {
		code, body := doJSON(t, engine, http.MethodPost, "/model/route",
			`{"tier": 2, "provider": "openai", "prompt": "summarize this page", "userId": "e2e-user"}`)
		if code != http.StatusOK {
			t.Fatalf("route call %d status = %d", i+1, code)
		}
		data, _ := body["data"].(map[string]any)
		if data["content"] != "mock reply" {
			t.Errorf("content = %v", data["content"])
		}
	}

	code, body := doJSON(t, engine, http.MethodGet, "/model/usage?userId=e2e-user", "")
	if code != http.StatusOK {
		t.Fatalf("usage status = %d", code)
	}
	usage, _ := body["usage"].(map[string]any)
	if usage["total_requests"] != float64(3) {
		t.Errorf("total_requests = %v, want 3", usage["total_requests"])
	}
	if usage["total_tokens"] != float64(75) {
		t.Errorf("total_tokens = %v, want 75 (provider-reported)", usage["total_tokens"])
	}
}

// TestFreeTierQuotaExhaustion drives a Free identity past its quota and then
// confirms an Upgraded identity is unaffected.
func TestFreeTierQuotaExhaustion(t *testing.T) {
	provider := newMockProvider()
	defer provider.server.Close()
	engine := newStack(t, provider)

	freeBody := `{"tier": 1, "provider": "openai", "prompt": "hi", "userId": "free-user"}`
	for i := 0; i < domain.QuotaFor(domain.TierFree); i++ {
		if code, _ := doJSON(t, engine, http.MethodPost, "/model/route", freeBody); code != http.StatusOK {
			t.Fatalf("free call %d status = %d", i+1, code)
		}
	}
	code, body := doJSON(t, engine, http.MethodPost, "/model/route", freeBody)
	if code != http.StatusTooManyRequests {
		t.Fatalf("over-quota status = %d, want 429", code)
	}
	errObj, _ := body["error"].(map[string]any)
	if errObj["kind"] != "rate_limit_exceeded" {
		t.Errorf("error.kind = %v", errObj["kind"])
	}

	// Another identity at a higher tier sails through.
	code, _ = doJSON(t, engine, http.MethodPost, "/model/route",
		`{"tier": 2, "provider": "openai", "prompt": "hi", "userId": "paying-user"}`)
	if code != http.StatusOK {
		t.Errorf("upgraded user status = %d, want 200", code)
	}
}

// TestPlanEndpointCarriesFallback verifies the plan endpoint's contract that
// even garbage model output yields an executable plan.
func TestPlanEndpointCarriesFallback(t *testing.T) {
	provider := newMockProvider()
	defer provider.server.Close()
	engine := newStack(t, provider)

	provider.setContent("I'd rather chat about something else")

	code, body := doJSON(t, engine, http.MethodPost, "/model/plan", `{"query": "book a flight"}`)
	if code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", code)
	}
	fallback, _ := body["fallback"].([]any)
	if len(fallback) != 1 {
		t.Fatalf("len(fallback) = %d, want 1", len(fallback))
	}
	step, _ := fallback[0].(map[string]any)
	if step["tool"] != "manual" || step["action"] != planner.FallbackAction {
		t.Errorf("fallback step = %v", step)
	}

	// The fallback plan is actually executable.
	tools := tool.NewRegistry()
	tool.RegisterBuiltins(tools, tool.NoopBrowser{})
	exec := executor.New(tools)
	summary := exec.Run(context.Background(), &planner.Plan{
		ID: "fallback-check",
		Steps: []planner.Step{{
			Tool:   step["tool"].(string),
			Action: step["action"].(string),
			Params: step["params"].(map[string]any),
		}},
	})
	if summary.SuccessCount != 1 {
		t.Errorf("fallback plan execution SuccessCount = %d, want 1", summary.SuccessCount)
	}
}

// TestStatusAndHealth sanity-checks the operational endpoints.
func TestStatusAndHealth(t *testing.T) {
	provider := newMockProvider()
	defer provider.server.Close()
	engine := newStack(t, provider)

	code, body := doJSON(t, engine, http.MethodGet, "/model/status", "")
	if code != http.StatusOK || body["status"] != "operational" {
		t.Errorf("status endpoint = %d %v", code, body["status"])
	}

	code, body = doJSON(t, engine, http.MethodGet, "/health", "")
	if code != http.StatusOK || body["status"] != "healthy" {
		t.Errorf("health endpoint = %d %v", code, body["status"])
	}
}

// TestPlanningPromptEnumeratesTools confirms the model sees the tool catalog
// when planning.
func TestPlanningPromptEnumeratesTools(t *testing.T) {
	provider := newMockProvider()
	defer provider.server.Close()
	engine := newStack(t, provider)

	provider.setContent(`[{"tool": "navigate", "action": "Open the page", "params": {"url": "https://example.com"}}]`)

	code, _ := doJSON(t, engine, http.MethodPost, "/model/plan", `{"query": "open example.com"}`)
	if code != http.StatusOK {
		t.Fatalf("status = %d, want 200", code)
	}

	provider.mu.Lock()
	defer provider.mu.Unlock()
	if len(provider.requests) == 0 {
		t.Fatal("provider saw no planning request")
	}
	prompt := provider.requests[len(provider.requests)-1]
	if !strings.Contains(prompt, "open example.com") {
		t.Errorf("planning prompt missing goal: %q", prompt)
	}
}
