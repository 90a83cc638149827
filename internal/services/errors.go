package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrExternalTool marks failures reported by an external binary.
	ErrExternalTool = errors.New("external tool error")
	// ErrValidation marks input that can never succeed (bad URL, bad filename).
	ErrValidation = errors.New("validation error")
	// ErrNotFound marks content that is missing, private, or region-locked.
	ErrNotFound = errors.New("not found")
	// ErrTimeout marks an adapter-level deadline expiry.
	ErrTimeout = errors.New("timeout")
	// ErrTransient marks failures worth retrying.
	ErrTransient = errors.New("transient failure")
)

// Wrap builds an error message that includes component context while tagging it
// with the provided marker for later classification. The marker should be one
// of the exported sentinel errors above.
func Wrap(marker error, component, operation, message string, err error) error {
	detail := buildDetail(component, operation, message)
	if marker == nil {
		marker = ErrTransient
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

// IsPermanent reports whether an error must never be retried.
func IsPermanent(err error) bool {
	return errors.Is(err, ErrValidation) || errors.Is(err, ErrNotFound)
}

// IsRetryable reports whether the orchestrator may re-attempt after backoff.
// Context cancellation is neither permanent nor retryable; callers handle it
// before consulting this predicate.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) {
		return false
	}
	return !IsPermanent(err)
}

func buildDetail(component, operation, message string) string {
	parts := make([]string, 0, 3)
	if component = strings.TrimSpace(component); component != "" {
		parts = append(parts, component)
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
