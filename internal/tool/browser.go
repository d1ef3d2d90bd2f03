package tool

import "context"

// BrowserController is the surface the browser-backed tools drive. The UI
// layer supplies the real implementation; server-only deployments get the
// no-op stub.
type BrowserController interface {
	Navigate(ctx context.Context, url string) error
	Click(ctx context.Context, selector string) error
	Type(ctx context.Context, selector, text string) error
	Search(ctx context.Context, query string) error
	Scrape(ctx context.Context, selector string) (string, error)
}

// NoopBrowser acknowledges every operation without driving a real view.
type NoopBrowser struct{}

func (NoopBrowser) Navigate(ctx context.Context, url string) error { return nil }

func (NoopBrowser) Click(ctx context.Context, selector string) error { return nil }

func (NoopBrowser) Type(ctx context.Context, selector, text string) error { return nil }

func (NoopBrowser) Search(ctx context.Context, query string) error { return nil }

func (NoopBrowser) Scrape(ctx context.Context, selector string) (string, error) { return "", nil }

func stringParam(params map[string]any, key string) string {
	s, _ := params[key].(string)
	return s
}

// RegisterBuiltins registers the browser tool set plus the manual fallback
// tool against the given controller.
func RegisterBuiltins(r *Registry, browser BrowserController) {
	r.Register(Tool{
		Name:        "navigate",
		Description: "Navigate the browser to a URL",
		Schema: NewSchema().
			Param("url", "string", "Absolute URL to open", true).
			Build(),
		Handler: func(ctx context.Context, params map[string]any) (any, error) {
			url := stringParam(params, "url")
			if err := browser.Navigate(ctx, url); err != nil {
				return nil, err
			}
			return map[string]any{"status": "navigated", "url": url}, nil
		},
	})

	r.Register(Tool{
		Name:        "click",
		Description: "Click an element on the current page",
		Schema: NewSchema().
			Param("selector", "string", "CSS selector of the element", true).
			Build(),
		Handler: func(ctx context.Context, params map[string]any) (any, error) {
			sel := stringParam(params, "selector")
			if err := browser.Click(ctx, sel); err != nil {
				return nil, err
			}
			return map[string]any{"status": "clicked", "selector": sel}, nil
		},
	})

	r.Register(Tool{
		Name:        "type",
		Description: "Type text into an input on the current page",
		Schema: NewSchema().
			Param("selector", "string", "CSS selector of the input", true).
			Param("text", "string", "Text to type", true).
			Build(),
		Handler: func(ctx context.Context, params map[string]any) (any, error) {
			sel := stringParam(params, "selector")
			if err := browser.Type(ctx, sel, stringParam(params, "text")); err != nil {
				return nil, err
			}
			return map[string]any{"status": "typed", "selector": sel}, nil
		},
	})

	r.Register(Tool{
		Name:        "search",
		Description: "Search the web for a query",
		Schema: NewSchema().
			Param("query", "string", "Search query", true).
			Build(),
		Handler: func(ctx context.Context, params map[string]any) (any, error) {
			if err := browser.Search(ctx, stringParam(params, "query")); err != nil {
				return nil, err
			}
			return map[string]any{"status": "search_started"}, nil
		},
	})

	r.Register(Tool{
		Name:        "scrape",
		Description: "Extract text content from the current page",
		Schema: NewSchema().
			Param("selector", "string", "CSS selector to extract; empty for whole page", false).
			Build(),
		Handler: func(ctx context.Context, params map[string]any) (any, error) {
			content, err := browser.Scrape(ctx, stringParam(params, "selector"))
			if err != nil {
				return nil, err
			}
			return map[string]any{"status": "scraped", "content": content}, nil
		},
	})

	// manual is always registered: it is the target of the planner's
	// fallback plan and must resolve for any goal.
	r.Register(Tool{
		Name:        "manual",
		Description: "Hand the goal back to the user for manual execution",
		Schema: NewSchema().
			Param("goal", "string", "Goal the user should carry out by hand", false).
			Build(),
		Handler: func(ctx context.Context, params map[string]any) (any, error) {
			return map[string]any{
				"status": "manual_required",
				"goal":   stringParam(params, "goal"),
			}, nil
		},
	})
}
