package domain

import (
	"errors"
	"fmt"
)

// ErrInvalidConfig marks configuration errors that abort the run before
// any work starts.
var ErrInvalidConfig = errors.New("invalid config")

// ErrDataIntegrity marks batch-level data corruption (dimension mismatch,
// conflicting duplicate ids). Fatal for the affected batch only.
var ErrDataIntegrity = errors.New("data integrity")

// ProviderError wraps a failed vendor call. Recorded per call and
// surfaced in reports, never fatal to the whole run.
type ProviderError struct {
	Provider  string
	Op        string
	Status    int
	Retryable bool
	Err       error
}

func (e *ProviderError) Error() string {
	if e.Status > 0 {
		return fmt.Sprintf("%s %s: status %d: %v", e.Provider, e.Op, e.Status, e.Err)
	}
	return fmt.Sprintf("%s %s: %v", e.Provider, e.Op, e.Err)
}

func (e *ProviderError) Unwrap() error { return e.Err }

// NewProviderError builds a ProviderError for one failed vendor call.
func NewProviderError(provider, op string, status int, retryable bool, err error) *ProviderError {
	return &ProviderError{Provider: provider, Op: op, Status: status, Retryable: retryable, Err: err}
}
