package entity

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidKeyFormat is returned when a key is neither an IP literal nor an http(s) URL
	ErrInvalidKeyFormat = errors.New("invalid key format")
	// ErrNoAdapters is returned when no provider can be attempted for a key
	ErrNoAdapters = errors.New("no provider adapters available for key")
	// ErrMissingCredential is returned by adapters whose API credential is unset
	ErrMissingCredential = errors.New("provider credential not configured")
	// ErrTimeout marks an adapter call that exceeded its deadline
	ErrTimeout = errors.New("provider timed out")
)

// AdapterErrorKind classifies why a provider did not produce a record
type AdapterErrorKind string

const (
	AdapterMissingCredential AdapterErrorKind = "missing_credential"
	AdapterFetchFailed       AdapterErrorKind = "fetch_failed"
	AdapterTimeout           AdapterErrorKind = "timeout"
)

// AdapterError is the failure of a single provider adapter
type AdapterError struct {
	Provider string
	Kind     AdapterErrorKind
	Cause    error
}

func (e *AdapterError) Error() string {
	return fmt.Sprintf("%s: %s: %v", e.Provider, e.Kind, e.Cause)
}

func (e *AdapterError) Unwrap() error {
	return e.Cause
}

// NewAdapterError classifies err for the given provider
func NewAdapterError(provider string, err error) *AdapterError {
	var ae *AdapterError
	if errors.As(err, &ae) {
		return ae
	}

	kind := AdapterFetchFailed
	switch {
	case errors.Is(err, ErrMissingCredential):
		kind = AdapterMissingCredential
	case errors.Is(err, ErrTimeout):
		kind = AdapterTimeout
	}

	return &AdapterError{Provider: provider, Kind: kind, Cause: err}
}
