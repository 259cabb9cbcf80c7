package stream

import (
	"errors"
	"fmt"
)

var (
	ErrMissingEndpoint   = errors.New("endpoint not configured")
	ErrMissingCredential = errors.New("credential not configured")
	ErrMissingModel      = errors.New("model not configured")
)

// ConfigError reports a provider setting that is missing. It is returned
// before any request is made.
type ConfigError struct {
	Provider string
	Field    string
	Err      error
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("%s %s not configured", e.Provider, e.Field)
}

func (e *ConfigError) Unwrap() error {
	return e.Err
}

// TransportError is the terminal element of a stream whose request failed,
// returned a non-2xx status, or broke while the body was being read.
// Fragments yielded before it remain valid.
type TransportError struct {
	Provider   string
	StatusCode int
	Body       string
	Err        error
}

func (e *TransportError) Error() string {
	if e.StatusCode != 0 {
		if e.Body != "" {
			return fmt.Sprintf("%s API error: HTTP error! status: %d: %s", e.Provider, e.StatusCode, e.Body)
		}
		return fmt.Sprintf("%s API error: HTTP error! status: %d", e.Provider, e.StatusCode)
	}
	return fmt.Sprintf("%s API error: %v", e.Provider, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}
