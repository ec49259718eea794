package risk

import (
	"fmt"
	"strings"
)

// InvalidInputError marks a malformed order request. Non-retryable; the
// caller must fix the input.
type InvalidInputError struct {
	Field  string
	Reason string
}

func (e *InvalidInputError) Error() string {
	return fmt.Sprintf("invalid input: %s: %s", e.Field, e.Reason)
}

// ConfigurationError marks missing or invalid risk limits for a workspace.
// Fail-closed: evaluation still returns a denial verdict alongside this error.
type ConfigurationError struct {
	Missing []string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("risk limits configuration missing fields: %s", strings.Join(e.Missing, ", "))
}

// UpstreamUnavailableError marks a failed account or limits provider.
// The engine never defaults to allow when it cannot evaluate.
type UpstreamUnavailableError struct {
	Upstream string
	Err      error
}

func (e *UpstreamUnavailableError) Error() string {
	return fmt.Sprintf("upstream %s unavailable: %v", e.Upstream, e.Err)
}

func (e *UpstreamUnavailableError) Unwrap() error {
	return e.Err
}
