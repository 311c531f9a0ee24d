// Package verrors defines the closed error-kind taxonomy used across
// every veritas package: scheduler, providers, extraction, verification,
// and the MCP tool surface all classify failures into one of these kinds
// rather than inventing ad-hoc sentinel errors per package.
package verrors

import (
	"errors"
	"fmt"
)

// Kind is a closed taxonomy of error classes. Every error returned across
// a package boundary in veritas carries one of these kinds, recoverable
// via KindOf.
type Kind string

const (
	// InvalidInput means the caller supplied a malformed or out-of-range
	// argument (bad task params, invalid query, malformed URL).
	InvalidInput Kind = "invalid_input"
	// BudgetExhausted means a task, job, or provider has exceeded its
	// configured resource budget (token, request-count, or time budget).
	BudgetExhausted Kind = "budget_exhausted"
	// RateLimited means an upstream provider or RPC endpoint rejected
	// the call due to rate limiting; the scheduler should back off.
	RateLimited Kind = "rate_limited"
	// AuthRequired means a provider needs credentials that are missing,
	// expired, or rejected; the job should move to the auth queue.
	AuthRequired Kind = "auth_required"
	// Transient means the failure is likely to succeed on retry (network
	// blip, connection reset, upstream 5xx).
	Transient Kind = "transient"
	// ExtractionError means claim/fragment extraction failed in a way
	// that should be recorded against the source, not retried blindly.
	ExtractionError Kind = "extraction_error"
	// CalibrationDegraded means the NLI verifier's calibration quality
	// has fallen below the configured threshold.
	CalibrationDegraded Kind = "calibration_degraded"
	// Fatal means the error is not retryable and the enclosing task or
	// job should be marked failed.
	Fatal Kind = "fatal"
)

// Error is the concrete error type carrying a Kind alongside the
// standard message/wrapped-error pair.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// Unwrap exposes the wrapped error for errors.Is/errors.As chains.
func (e *Error) Unwrap() error {
	return e.Err
}

// New creates a new error of the given kind.
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Newf creates a new error of the given kind with a formatted message.
func Newf(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Wrap wraps an existing error with a kind and contextual message.
func Wrap(kind Kind, message string, err error) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}

// Wrapf wraps an existing error with a kind and a formatted message.
func Wrapf(kind Kind, err error, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...), Err: err}
}

// KindOf extracts the Kind of err, walking the Unwrap chain. Returns
// Fatal for any error that was never classified — an unclassified error
// is treated as non-retryable until proven otherwise.
func KindOf(err error) Kind {
	var ve *Error
	if errors.As(err, &ve) {
		return ve.Kind
	}
	return Fatal
}

// Is reports whether err (or anything in its Unwrap chain) carries the
// given Kind.
func Is(err error, kind Kind) bool {
	return KindOf(err) == kind
}

// Retryable reports whether a job scheduler should attempt to retry the
// operation that produced err.
func Retryable(err error) bool {
	switch KindOf(err) {
	case Transient, RateLimited:
		return true
	default:
		return false
	}
}
