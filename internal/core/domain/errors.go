package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrConfiguration indicates a missing credential or invalid chain setup.
	ErrConfiguration = errors.New("configuration error")

	// ErrTransport indicates a network failure, timeout or non-success HTTP status.
	ErrTransport = errors.New("transport error")

	// ErrUpstream indicates the upstream API answered with a non-success status payload.
	ErrUpstream = errors.New("upstream error")

	// ErrParse indicates a single malformed upstream record.
	ErrParse = errors.New("parse error")

	// ErrCache indicates an unreadable cache entry.
	ErrCache = errors.New("cache error")

	errNegativeValue = errors.New("negative value")
)

// ConfigurationError reports a chain that cannot be fetched at all.
type ConfigurationError struct {
	Chain  ChainID
	Reason string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("configuration error for chain %s: %s", e.Chain, e.Reason)
}

func (e *ConfigurationError) Unwrap() error { return ErrConfiguration }

// ParseError reports one upstream record that could not be normalized.
type ParseError struct {
	Chain ChainID
	Ref   string
	Err   error
}

// NewParseError wraps err as a ParseError for the record identified by ref.
func NewParseError(chain ChainID, ref string, err error) *ParseError {
	return &ParseError{Chain: chain, Ref: ref, Err: err}
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse %s record %q: %v", e.Chain, e.Ref, e.Err)
}

func (e *ParseError) Unwrap() []error { return []error{ErrParse, e.Err} }
