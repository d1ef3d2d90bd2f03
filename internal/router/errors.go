// Package router orchestrates credential resolution, admission control, and
// provider adapters to fulfil completion requests.
package router

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind is a stable machine-readable error tag. Every top-level failure
// carries exactly one kind plus a human-readable message.
type Kind string

const (
	// KindInvalidTier: the request named a tier outside {1,2,3}.
	KindInvalidTier Kind = "invalid_tier"

	// KindRateLimitExceeded: the identity is over its tier quota.
	KindRateLimitExceeded Kind = "rate_limit_exceeded"

	// KindUnsupportedProvider: no adapter is registered for the provider.
	KindUnsupportedProvider Kind = "unsupported_provider"

	// KindConfiguration: an operator-side misconfiguration, e.g. a missing
	// platform credential. Reported as 5xx, never 4xx.
	KindConfiguration Kind = "configuration_error"

	// KindProviderRequest: the provider returned a non-success status.
	KindProviderRequest Kind = "provider_request_error"

	// KindTimeout: the outbound provider call exceeded its deadline.
	KindTimeout Kind = "timeout"

	// KindInvalidParams: tool arguments failed schema validation.
	KindInvalidParams Kind = "invalid_params"

	// KindPlanValidation: the planner produced unusable output. Recovered
	// internally via the fallback plan; callers never see this as a hard
	// failure.
	KindPlanValidation Kind = "plan_validation"
)

// Error is the router's typed error: a kind tag, a message safe to show the
// caller, and an optional wrapped cause.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// HTTPStatus maps the error kind to the status the HTTP layer should report.
// Caller-input kinds map to 4xx; operator/provider kinds to 5xx.
func (e *Error) HTTPStatus() int {
	switch e.Kind {
	case KindInvalidTier, KindUnsupportedProvider, KindInvalidParams:
		return http.StatusBadRequest
	case KindRateLimitExceeded:
		return http.StatusTooManyRequests
	case KindTimeout:
		return http.StatusGatewayTimeout
	case KindProviderRequest:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// NewError creates a router error.
func NewError(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// WrapError creates a router error with a cause.
func WrapError(kind Kind, message string, err error) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}

// KindOf extracts the kind from an error chain; unknown errors report
// configuration_error so they surface as 5xx rather than blaming the caller.
func KindOf(err error) Kind {
	var rerr *Error
	if errors.As(err, &rerr) {
		return rerr.Kind
	}
	return KindConfiguration
}
