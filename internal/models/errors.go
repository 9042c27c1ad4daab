package models

import "fmt"

// ProviderErrorKind is the closed set of ways a generation provider call can fail.
type ProviderErrorKind string

const (
	// ProviderErrorTimeout means the call did not finish before its deadline.
	ProviderErrorTimeout ProviderErrorKind = "timeout"
	// ProviderErrorRejected means the provider answered with an error status.
	ProviderErrorRejected ProviderErrorKind = "rejected"
	// ProviderErrorMalformed means the provider answered but the answer had no usable result.
	ProviderErrorMalformed ProviderErrorKind = "malformed"
	// ProviderErrorUnknown is the fallback for anything that could not be classified.
	ProviderErrorUnknown ProviderErrorKind = "unknown"
)

// UnknownErrorDetail is reported to clients when a failure carries no message.
const UnknownErrorDetail = "Unknown error occurred"

// ProviderError is returned by every generation adapter when the outbound call fails.
type ProviderError struct {
	Provider   string
	Kind       ProviderErrorKind
	StatusCode int    // HTTP status reported by the provider, if any.
	Message    string // Human readable detail, safe to show to the caller.
	Err        error
}

func (e *ProviderError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("provider %s %s (status %d): %s", e.Provider, e.Kind, e.StatusCode, e.Detail())
	}
	return fmt.Sprintf("provider %s %s: %s", e.Provider, e.Kind, e.Detail())
}

func (e *ProviderError) Unwrap() error {
	return e.Err
}

// Detail returns the message to surface to the caller, or UnknownErrorDetail when there is none.
func (e *ProviderError) Detail() string {
	if e.Message == "" {
		return UnknownErrorDetail
	}
	return e.Message
}
