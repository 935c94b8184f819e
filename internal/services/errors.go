package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// Sentinel markers for failure classification. Collaborator wrappers tag their
// errors with one of these so pipeline code can decide between retrying,
// surfacing to the operator, or aborting.
var (
	// ErrQuotaExceeded marks a collaborator quota/rate-limit rejection. Retryable.
	ErrQuotaExceeded = errors.New("quota exceeded")
	// ErrServiceUnavailable marks a transient collaborator outage. Retryable.
	ErrServiceUnavailable = errors.New("service unavailable")
	// ErrTimeout marks a collaborator call that exceeded its deadline. Retryable.
	ErrTimeout = errors.New("timeout")
	// ErrInvalidInput marks malformed source text or assets. Requires operator
	// intervention; retrying without a change cannot succeed.
	ErrInvalidInput = errors.New("invalid input")
	// ErrPermanentFailure marks a story whose retry budget is exhausted.
	ErrPermanentFailure = errors.New("permanent failure")
	// ErrTransient is the fallback marker for unclassified collaborator failures.
	ErrTransient = errors.New("transient failure")
)

// Wrap builds an error message that includes stage context while tagging it with
// the provided marker for later classification. The marker should be one of the
// exported sentinel errors above.
func Wrap(marker error, stage, operation, message string, err error) error {
	detail := buildDetail(stage, operation, message)
	if marker == nil {
		marker = ErrTransient
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

// IsRetryable reports whether an error represents a transient collaborator
// fault that a bounded retry may resolve.
func IsRetryable(err error) bool {
	switch {
	case err == nil:
		return false
	case errors.Is(err, ErrInvalidInput), errors.Is(err, ErrPermanentFailure):
		return false
	case errors.Is(err, ErrQuotaExceeded), errors.Is(err, ErrServiceUnavailable),
		errors.Is(err, ErrTimeout), errors.Is(err, ErrTransient):
		return true
	case errors.Is(err, context.DeadlineExceeded):
		return true
	default:
		return false
	}
}

// Message strips sentinel prefixes from a wrapped error, leaving the
// stage-context detail suitable for persistence on a story record.
func Message(err error) string {
	if err == nil {
		return ""
	}
	msg := err.Error()
	for _, marker := range []error{ErrQuotaExceeded, ErrServiceUnavailable, ErrTimeout, ErrInvalidInput, ErrPermanentFailure, ErrTransient} {
		prefix := marker.Error() + ": "
		if strings.HasPrefix(msg, prefix) {
			return strings.TrimPrefix(msg, prefix)
		}
	}
	return msg
}

func buildDetail(stage, operation, message string) string {
	parts := make([]string, 0, 3)
	if stage = strings.TrimSpace(stage); stage != "" {
		parts = append(parts, stage)
	}
	if operation = strings.TrimSpace(operation); operation != "" {
		parts = append(parts, operation)
	}
	if message = strings.TrimSpace(message); message != "" {
		parts = append(parts, message)
	}
	if len(parts) == 0 {
		return "service failure"
	}
	return strings.Join(parts, ": ")
}
