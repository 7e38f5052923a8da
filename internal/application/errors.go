package application

import (
	"errors"
	"sort"
	"strings"

	"github.com/deepshift/mineshift/internal/persistence"
)

var (
	// ErrNotFound is returned when a mutation names a record that does not exist.
	ErrNotFound = errors.New("application: not found")
	// ErrInvalidTransition is returned when a status change is not allowed
	// from the record's current status.
	ErrInvalidTransition = errors.New("application: invalid status transition")
	// ErrSubmissionRejected matches every *SubmissionError.
	ErrSubmissionRejected = errors.New("application: submission rejected")
	// ErrNotSaved is wrapped by mutations whose in-memory change was applied
	// but could not be persisted. The write is queued for RetryPendingWrites.
	ErrNotSaved = persistence.ErrNotSaved
)

// ValidationError captures field level validation issues that callers can surface to users.
type ValidationError struct {
	FieldErrors map[string]string
}

// Error implements the error interface.
func (v *ValidationError) Error() string {
	if v == nil {
		return ""
	}
	if len(v.FieldErrors) == 0 {
		return "validation failed"
	}
	fields := make([]string, 0, len(v.FieldErrors))
	for field := range v.FieldErrors {
		fields = append(fields, field)
	}
	sort.Strings(fields)
	return "validation failed: " + strings.Join(fields, ", ")
}

// HasErrors reports whether any field level issues were recorded.
func (v *ValidationError) HasErrors() bool {
	return v != nil && len(v.FieldErrors) > 0
}

func (v *ValidationError) add(field, message string) {
	if v.FieldErrors == nil {
		v.FieldErrors = make(map[string]string)
	}
	v.FieldErrors[field] = message
}

// errOrNil avoids returning a typed nil through the error interface.
func (v *ValidationError) errOrNil() error {
	if v.HasErrors() {
		return v
	}
	return nil
}

// SubmissionError is returned when a report or shift fails the submission
// gate. Result carries the errors and warnings to display.
type SubmissionError struct {
	RecordID string
	Result   ValidationResult
}

// Error implements the error interface.
func (e *SubmissionError) Error() string {
	if e == nil {
		return ""
	}
	if len(e.Result.Errors) == 0 {
		return "submission rejected"
	}
	return "submission rejected: " + strings.Join(e.Result.Errors, "; ")
}

// Is matches ErrSubmissionRejected.
func (e *SubmissionError) Is(target error) bool {
	return target == ErrSubmissionRejected
}

// isNotSaved reports whether err only signals a failed write of an applied change.
func isNotSaved(err error) bool {
	return errors.Is(err, ErrNotSaved)
}
