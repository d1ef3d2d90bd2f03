// Package security keeps provider credentials out of log output.
package security

import (
	"context"
	"log/slog"
	"regexp"
	"strings"
)

// Placeholder substituted for any value that looks like a credential.
const Placeholder = "[REDACTED]"

// credentialPatterns match the key formats of the supported providers plus
// generic token shapes that show up in headers and URLs.
var credentialPatterns = []*regexp.Regexp{
	// Anthropic keys: sk-ant-... (checked before the generic sk- form)
	regexp.MustCompile(`sk-ant-[a-zA-Z0-9_-]{20,}`),
	// OpenAI keys: sk-...
	regexp.MustCompile(`sk-[a-zA-Z0-9]{20,}`),
	// Perplexity keys: pplx-...
	regexp.MustCompile(`pplx-[a-zA-Z0-9]{20,}`),
	// Bearer tokens inside header dumps
	regexp.MustCompile(`Bearer\s+[a-zA-Z0-9._-]{20,}`),
	// Keys leaked into query strings
	regexp.MustCompile(`(api_?key|key)=[a-zA-Z0-9_-]{20,}`),
	// Anything long enough to be a raw secret
	regexp.MustCompile(`[a-zA-Z0-9_-]{40,}`),
}

var sensitiveKeyFragments = []string{
	"authorization",
	"api_key",
	"apikey",
	"api-key",
	"x-api-key",
	"caller_key",
	"user_api_key",
	"credential",
	"secret",
	"password",
	"token",
	"bearer",
}

// Redact replaces credential-shaped substrings with the placeholder.
func Redact(s string) string {
	out := s
	for _, p := range credentialPatterns {
		out = p.ReplaceAllString(out, Placeholder)
	}
	return out
}

// RedactingHandler wraps an slog.Handler and scrubs credentials from every
// record before it reaches the inner handler.
type RedactingHandler struct {
	inner slog.Handler
}

// NewRedactingHandler wraps inner with credential scrubbing.
func NewRedactingHandler(inner slog.Handler) *RedactingHandler {
	return &RedactingHandler{inner: inner}
}

func (h *RedactingHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.inner.Enabled(ctx, level)
}

func (h *RedactingHandler) Handle(ctx context.Context, r slog.Record) error {
	clean := slog.Record{
		Time:    r.Time,
		Message: Redact(r.Message),
		Level:   r.Level,
		PC:      r.PC,
	}

	r.Attrs(func(a slog.Attr) bool {
		clean.AddAttrs(redactAttr(a))
		return true
	})

	return h.inner.Handle(ctx, clean)
}

func (h *RedactingHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	clean := make([]slog.Attr, len(attrs))
	for i, a := range attrs {
		clean[i] = redactAttr(a)
	}
	return &RedactingHandler{inner: h.inner.WithAttrs(clean)}
}

func (h *RedactingHandler) WithGroup(name string) slog.Handler {
	return &RedactingHandler{inner: h.inner.WithGroup(name)}
}

// redactAttr blanks attributes whose key names a credential and scrubs string
// values regardless of key.
func redactAttr(a slog.Attr) slog.Attr {
	if isSensitiveKey(strings.ToLower(a.Key)) {
		return slog.String(a.Key, Placeholder)
	}

	switch v := a.Value.Any().(type) {
	case string:
		return slog.String(a.Key, Redact(v))
	case []string:
		clean := make([]string, len(v))
		for i, s := range v {
			clean[i] = Redact(s)
		}
		return slog.Any(a.Key, clean)
	}

	return a
}

func isSensitiveKey(key string) bool {
	for _, fragment := range sensitiveKeyFragments {
		if strings.Contains(key, fragment) {
			return true
		}
	}
	return false
}
