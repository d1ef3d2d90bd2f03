package tool

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"
)

// Handler is a tool's execution function. Returned errors become failed
// results; they never propagate out of the registry.
type Handler func(ctx context.Context, params map[string]any) (any, error)

// Tool is a named, schema-described capability.
type Tool struct {
	Name        string
	Description string
	Schema      Schema
	Handler     Handler
}

// Result is the outcome of one tool execution. Failures travel as data so the
// caller decides how to react.
type Result struct {
	Success    bool   `json:"success"`
	Data       any    `json:"data,omitempty"`
	Error      string `json:"error,omitempty"`
	DurationMs int64  `json:"duration_ms"`
}

// CatalogEntry is the planner-facing description of one tool.
type CatalogEntry struct {
	Name        string           `json:"name"`
	Description string           `json:"description"`
	Params      map[string]Param `json:"params"`
}

// Registry maps tool names to executable capabilities. Read-mostly after
// startup registration, but safe for concurrent use.
type Registry struct {
	mu    sync.RWMutex
	tools map[string]Tool
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{tools: make(map[string]Tool)}
}

// Register adds a tool, replacing any existing tool of the same name.
func (r *Registry) Register(t Tool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tools[t.Name] = t
}

// Get retrieves a tool by name.
func (r *Registry) Get(name string) (Tool, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.tools[name]
	return t, ok
}

// List returns all registered tool names, sorted.
func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.tools))
	for name := range r.tools {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Catalog returns planner-facing entries for every tool, sorted by name.
func (r *Registry) Catalog() []CatalogEntry {
	r.mu.RLock()
	defer r.mu.RUnlock()
	entries := make([]CatalogEntry, 0, len(r.tools))
	for _, t := range r.tools {
		entries = append(entries, CatalogEntry{
			Name:        t.Name,
			Description: t.Description,
			Params:      t.Schema.Params,
		})
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name < entries[j].Name })
	return entries
}

// ErrToolNotFound reports an unregistered tool name.
type ErrToolNotFound struct {
	Name string
}

func (e *ErrToolNotFound) Error() string {
	return "tool not found: " + e.Name
}

// Execute resolves and runs a tool. Params are validated against the tool's
// schema before the handler is invoked; a validation failure returns
// *InvalidParamsError and the handler never runs. Handler errors and panics
// are captured into a failed Result, never propagated.
func (r *Registry) Execute(ctx context.Context, name string, params map[string]any) (*Result, error) {
	t, ok := r.Get(name)
	if !ok {
		return nil, &ErrToolNotFound{Name: name}
	}

	if err := t.Schema.Validate(t.Name, params); err != nil {
		return nil, err
	}

	start := time.Now()
	res := &Result{}
	func() {
		defer func() {
			if rec := recover(); rec != nil {
				res.Success = false
				res.Data = nil
				res.Error = fmt.Sprintf("tool %q panicked: %v", name, rec)
			}
		}()
		data, err := t.Handler(ctx, params)
		if err != nil {
			res.Error = err.Error()
			return
		}
		res.Success = true
		res.Data = data
	}()
	res.DurationMs = time.Since(start).Milliseconds()
	return res, nil
}
