package oauth

import (
	"errors"
	"fmt"

	"github.com/dropDatabas3/socialconnect/internal/platform"
)

// Error taxonomy. Every error returned by this package matches exactly one of
// these with errors.Is.
var (
	// ErrUnsupportedPlatform: the platform is unknown or not configured. Caller error.
	ErrUnsupportedPlatform = errors.New("unsupported platform")
	// ErrInvalidState: state missing, expired, already used, or bound to another platform.
	ErrInvalidState = errors.New("invalid state")
	// ErrInvalidInput: a required argument is empty.
	ErrInvalidInput = errors.New("invalid input")
	// ErrExchangeRejected: the provider refused the authorization code. Never retried.
	ErrExchangeRejected = errors.New("authorization code rejected by provider")
	// ErrRefreshRejected: the provider refused the refresh token. Never retried;
	// the user has to reconnect.
	ErrRefreshRejected = errors.New("refresh token rejected by provider")
	// ErrProviderUnavailable: network failure, timeout, 5xx or 429. Retryable by the caller.
	ErrProviderUnavailable = errors.New("provider unavailable")
)

// ProviderError carries the provider response that produced a failure. Details
// is the raw body, passed through for diagnostics and never parsed for
// control flow.
type ProviderError struct {
	Kind       error
	Platform   platform.Platform
	Op         string
	StatusCode int
	Details    string
	Err        error
}

func (e *ProviderError) Error() string {
	msg := fmt.Sprintf("%s %s: %v", e.Platform, e.Op, e.Kind)
	if e.StatusCode != 0 {
		msg += fmt.Sprintf(" (status %d)", e.StatusCode)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Is matches the taxonomy sentinel held in Kind.
func (e *ProviderError) Is(target error) bool {
	return target == e.Kind
}

func (e *ProviderError) Unwrap() error { return e.Err }

// DetailsOf returns the provider body attached to err, if any.
func DetailsOf(err error) string {
	var pe *ProviderError
	if errors.As(err, &pe) {
		return pe.Details
	}
	return ""
}

// Retryable reports whether the caller may retry the operation. Only
// ErrProviderUnavailable qualifies; rejected codes and tokens are final.
func Retryable(err error) bool {
	return errors.Is(err, ErrProviderUnavailable)
}

func unsupported(p platform.Platform) error {
	return fmt.Errorf("%w: %q", ErrUnsupportedPlatform, p)
}
