package persistence

import (
	"errors"
	"sort"
	"strings"
)

var (
	// ErrNotFound is returned when the requested key does not exist.
	ErrNotFound = errors.New("persistence: not found")
	// ErrCorrupt is returned when a stored value fails its integrity check.
	ErrCorrupt = errors.New("persistence: corrupt value")
	// ErrNotSaved marks a write that did not reach the substrate.
	ErrNotSaved = errors.New("persistence: not saved")
)

// WriteError reports the keys of a multi-key write that failed. Keys not
// listed were written successfully.
type WriteError struct {
	Failures map[string]error
}

// Error implements the error interface.
func (e *WriteError) Error() string {
	if e == nil || len(e.Failures) == 0 {
		return ErrNotSaved.Error()
	}
	return ErrNotSaved.Error() + ": " + strings.Join(e.Keys(), ", ")
}

// Keys returns the failed keys in sorted order.
func (e *WriteError) Keys() []string {
	if e == nil {
		return nil
	}
	keys := make([]string, 0, len(e.Failures))
	for key := range e.Failures {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

// Is reports ErrNotSaved so callers can match any failed write.
func (e *WriteError) Is(target error) bool {
	return target == ErrNotSaved
}

// Unwrap exposes the per-key causes.
func (e *WriteError) Unwrap() []error {
	if e == nil {
		return nil
	}
	errs := make([]error, 0, len(e.Failures))
	for _, key := range e.Keys() {
		errs = append(errs, e.Failures[key])
	}
	return errs
}

func (e *WriteError) add(key string, err error) {
	if e.Failures == nil {
		e.Failures = make(map[string]error)
	}
	e.Failures[key] = err
}
