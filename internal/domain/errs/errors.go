package errs

import (
	"errors"
	"fmt"
)

// ErrNoEnabledSources is wrapped by ConfigurationError when a cycle finds nothing to collect.
var ErrNoEnabledSources = errors.New("no enabled sources")

// FetchError is a per-source network, status or parse failure.
type FetchError struct {
	URL string
	Op  string // "request", "status", "parse", "ratelimit"
	Err error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetch %s (%s): %v", e.URL, e.Op, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// NewFetchError wraps err as a FetchError.
func NewFetchError(url, op string, err error) *FetchError {
	return &FetchError{URL: url, Op: op, Err: err}
}

// PersistenceError is a failed write or read against one of the stores.
// It is recoverable at the granularity of the entity named by Entity.
type PersistenceError struct {
	Entity string // "source", "item", "alert", "market"
	ID     string
	Err    error
}

func (e *PersistenceError) Error() string {
	if e.ID != "" {
		return fmt.Sprintf("persist %s %s: %v", e.Entity, e.ID, e.Err)
	}
	return fmt.Sprintf("persist %s: %v", e.Entity, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }

// NewPersistenceError wraps err as a PersistenceError.
func NewPersistenceError(entity, id string, err error) *PersistenceError {
	return &PersistenceError{Entity: entity, ID: id, Err: err}
}

// ConfigurationError reports a setup problem that turns a cycle into a no-op.
type ConfigurationError struct {
	Reason string
	Err    error
}

func (e *ConfigurationError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("configuration: %s: %v", e.Reason, e.Err)
	}
	return "configuration: " + e.Reason
}

func (e *ConfigurationError) Unwrap() error { return e.Err }

// IsFetch reports whether err carries a FetchError.
func IsFetch(err error) bool {
	var fe *FetchError
	return errors.As(err, &fe)
}

// IsPersistence reports whether err carries a PersistenceError.
func IsPersistence(err error) bool {
	var pe *PersistenceError
	return errors.As(err, &pe)
}

// IsConfiguration reports whether err carries a ConfigurationError.
func IsConfiguration(err error) bool {
	var ce *ConfigurationError
	return errors.As(err, &ce)
}
