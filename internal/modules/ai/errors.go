package ai

import (
	"errors"
	"fmt"
)

// Sentinel errors for the orchestration layer. Callers classify with
// errors.Is; handler code maps them to HTTP statuses.
var (
	// ErrQuotaExceeded is raised at admission time, before any provider call.
	ErrQuotaExceeded = errors.New("ai quota exceeded")

	// ErrTemplateNotFound is raised when no active template matches the lookup.
	ErrTemplateNotFound = errors.New("ai template not found")

	// ErrNotFound is raised when the referenced note or task vanished.
	ErrNotFound = errors.New("entity not found")
)

// TemplateError reports a configuration fault while rendering a prompt,
// typically a placeholder with no supplied variable. Terminal, never retried.
type TemplateError struct {
	Template string
	Missing  string
}

func (e *TemplateError) Error() string {
	return fmt.Sprintf("template %q: missing variable %q", e.Template, e.Missing)
}

// ProviderErrorKind buckets provider failures for retry decisions.
type ProviderErrorKind string

const (
	ErrKindRateLimited    ProviderErrorKind = "rate_limited"
	ErrKindAuthFailed     ProviderErrorKind = "auth_failed"
	ErrKindInvalidRequest ProviderErrorKind = "invalid_request"
	ErrKindUnknown        ProviderErrorKind = "unknown"
)

// Retryable reports whether a failure of this kind may succeed on a later
// attempt. Auth and request-shape faults never do.
func (k ProviderErrorKind) Retryable() bool {
	return k == ErrKindRateLimited || k == ErrKindUnknown
}

// ProviderError wraps a failed provider call with its taxonomy bucket.
type ProviderError struct {
	Kind    ProviderErrorKind
	Status  int
	Message string
	Err     error
}

func (e *ProviderError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("provider %s: %s", e.Kind, e.Message)
	}
	if e.Err != nil {
		return fmt.Sprintf("provider %s: %v", e.Kind, e.Err)
	}
	return fmt.Sprintf("provider %s", e.Kind)
}

func (e *ProviderError) Unwrap() error { return e.Err }

// ServiceError is the orchestrator-level wrapper for provider and infra
// faults. Async workers retry these; QuotaExceeded and TemplateError they
// do not.
type ServiceError struct {
	Op  string
	Err error
}

func (e *ServiceError) Error() string {
	return fmt.Sprintf("ai %s: %v", e.Op, e.Err)
}

func (e *ServiceError) Unwrap() error { return e.Err }

// IsRateLimited reports whether err is a provider throttle response.
func IsRateLimited(err error) bool {
	var pe *ProviderError
	return errors.As(err, &pe) && pe.Kind == ErrKindRateLimited
}

// IsRetryable reports whether an orchestrator error may be retried by an
// async worker.
func IsRetryable(err error) bool {
	if errors.Is(err, ErrQuotaExceeded) || errors.Is(err, ErrNotFound) || errors.Is(err, ErrTemplateNotFound) {
		return false
	}
	var te *TemplateError
	if errors.As(err, &te) {
		return false
	}
	var pe *ProviderError
	if errors.As(err, &pe) {
		return pe.Kind.Retryable()
	}
	return true
}
