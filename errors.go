package chorus

import (
	"errors"
	"fmt"
)

// Sentinel errors for common failure cases.
var (
	// ErrUnknownProvider is returned for names that resolve to no known provider.
	ErrUnknownProvider = errors.New("unknown provider")

	// ErrNoProvider is returned when a recognized provider has no registered
	// connector factory (its package was not imported).
	ErrNoProvider = errors.New("provider not registered")

	// ErrNoText is returned when a text response was expected but not present.
	ErrNoText = errors.New("no text in response")
)

// UnknownProviderError provides detailed information about name resolution failures.
type UnknownProviderError struct {
	Name  string   // The provider name that failed to resolve
	Known []string // Recognized provider names (if applicable)
}

func (e *UnknownProviderError) Error() string {
	if len(e.Known) > 0 {
		return fmt.Sprintf("provider %q: %v (known providers: %v)", e.Name, ErrUnknownProvider, e.Known)
	}
	return fmt.Sprintf("provider %q: %v", e.Name, ErrUnknownProvider)
}

func (e *UnknownProviderError) Unwrap() error {
	return ErrUnknownProvider
}

// ProviderError wraps errors from connector operations.
type ProviderError struct {
	Provider string
	Op       string
	Err      error
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("%s: %s: %v", e.Provider, e.Op, e.Err)
}

func (e *ProviderError) Unwrap() error {
	return e.Err
}
