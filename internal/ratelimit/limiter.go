package ratelimit

import (
	"time"

	"github.com/cometlabs/comet-router/internal/domain"
)

// Limiter is a fixed-window admission controller. On each call the window is
// reset if expired, then the request is admitted iff the count is under the
// tier quota. Fixed windows deliberately permit up to 2x the quota across a
// window boundary: the quota is a coarse abuse deterrent, not a billing-grade
// guarantee.
type Limiter struct {
	store WindowStore

	// window is the admission window length; overridable for tests.
	window time.Duration

	// now is the clock; overridable for tests.
	now func() time.Time
}

// Option configures a Limiter.
type Option func(*Limiter)

// WithWindow overrides the window duration.
func WithWindow(d time.Duration) Option {
	return func(l *Limiter) {
		l.window = d
	}
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(l *Limiter) {
		l.now = now
	}
}

// NewLimiter creates a Limiter over the given store.
func NewLimiter(store WindowStore, opts ...Option) *Limiter {
	l := &Limiter{
		store:  store,
		window: domain.RateWindowDuration,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Admit reports whether a request from identity at the given tier may
// proceed, incrementing the identity's window count on admission.
//
// The read-check-increment is retried as a CAS loop against the store, so
// concurrent calls for the same identity can never both be admitted past the
// quota.
func (l *Limiter) Admit(identity string, tier domain.Tier) bool {
	quota := domain.QuotaFor(tier)
	if quota <= 0 {
		return false
	}

	for {
		old, ok := l.store.Get(identity)
		now := l.now()

		next := old
		if !ok || now.Sub(old.Start) >= l.window {
			// New identity or expired window: start over.
			next = Window{Start: now}
			if !ok {
				old = Window{}
			}
		}

		if next.Count >= quota {
			return false
		}
		next.Count++

		if l.store.CompareAndSwap(identity, old, next) {
			return true
		}
		// Lost the race; re-read and try again.
	}
}

// Usage is a read-only snapshot of one identity's current window.
type Usage struct {
	RequestsInWindow int       `json:"requests_in_window"`
	WindowStart      time.Time `json:"window_start"`
	WindowResetsAt   time.Time `json:"window_resets_at"`
}

// Usage returns the identity's current window state. Identities with no live
// window report zero requests.
func (l *Limiter) Usage(identity string) Usage {
	w, ok := l.store.Get(identity)
	if !ok || l.now().Sub(w.Start) >= l.window {
		return Usage{}
	}
	return Usage{
		RequestsInWindow: w.Count,
		WindowStart:      w.Start,
		WindowResetsAt:   w.Start.Add(l.window),
	}
}
