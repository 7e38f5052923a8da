package application

import (
	"errors"
	"fmt"
	"testing"
)

func TestValidationError_Error(t *testing.T) {
	t.Parallel()

	var err *ValidationError
	if err.Error() != "" {
		t.Fatalf("expected empty string for nil error, got %q", err.Error())
	}

	empty := &ValidationError{}
	if got := empty.Error(); got != "validation failed" {
		t.Fatalf("expected generic message for empty error, got %q", got)
	}

	withFields := &ValidationError{FieldErrors: map[string]string{"severity": "bad", "description": "missing"}}
	if got := withFields.Error(); got != "validation failed: description, severity" {
		t.Fatalf("expected sorted field names, got %q", got)
	}
}

func TestValidationError_HasErrors(t *testing.T) {
	t.Parallel()

	if err := (&ValidationError{}).HasErrors(); err {
		t.Fatalf("expected HasErrors to report false for empty error")
	}

	if err := (&ValidationError{FieldErrors: map[string]string{"field": "bad"}}).HasErrors(); !err {
		t.Fatalf("expected HasErrors to report true when fields are present")
	}
}

func TestValidationError_ErrOrNil(t *testing.T) {
	t.Parallel()

	empty := &ValidationError{}
	if err := empty.errOrNil(); err != nil {
		t.Fatalf("expected nil interface for empty error, got %v", err)
	}

	empty.add("first", "value")
	if got := empty.FieldErrors["first"]; got != "value" {
		t.Fatalf("expected add to populate map, got %q", got)
	}
	if err := empty.errOrNil(); err == nil {
		t.Fatalf("expected error once a field is recorded")
	}
}

func TestSubmissionError(t *testing.T) {
	t.Parallel()

	err := &SubmissionError{
		RecordID: "r-1",
		Result:   ValidationResult{Errors: []string{msgGasRequired, msgVentilationRequired}},
	}
	wrapped := fmt.Errorf("submit: %w", err)

	if !errors.Is(wrapped, ErrSubmissionRejected) {
		t.Fatalf("expected errors.Is to match ErrSubmissionRejected")
	}
	var sErr *SubmissionError
	if !errors.As(wrapped, &sErr) || sErr.RecordID != "r-1" {
		t.Fatalf("expected errors.As to recover the submission error")
	}
	want := "submission rejected: " + msgGasRequired + "; " + msgVentilationRequired
	if got := err.Error(); got != want {
		t.Fatalf("expected %q, got %q", want, got)
	}
	if got := (&SubmissionError{}).Error(); got != "submission rejected" {
		t.Fatalf("expected bare message without errors, got %q", got)
	}
}
