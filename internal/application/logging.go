package application

import (
	"context"
	"errors"
	"log/slog"

	"github.com/deepshift/mineshift/internal/logging"
)

func defaultLogger(logger *slog.Logger) *slog.Logger {
	if logger != nil {
		return logger
	}
	return slog.Default()
}

func serviceLogger(ctx context.Context, base *slog.Logger, serviceName, operation string, attrs ...any) *slog.Logger {
	logger := logging.FromContext(ctx)
	if logger == nil {
		logger = base
	}
	if logger == nil {
		logger = slog.Default()
	}

	pairs := []any{"service", serviceName}
	if operation != "" {
		pairs = append(pairs, "operation", operation)
	}
	if len(attrs) > 0 {
		pairs = append(pairs, attrs...)
	}
	return logger.With(pairs...)
}

// logOutcome records the result of a mutation. A not-saved error means the
// state changed in memory, so it is logged as a warning rather than a failure.
func logOutcome(ctx context.Context, logger *slog.Logger, err error, success string, attrs ...any) {
	switch {
	case err == nil:
		logger.With(attrs...).InfoContext(ctx, success)
	case errors.Is(err, ErrNotSaved):
		logger.With(attrs...).WarnContext(ctx, success+" but not saved", "error", err, "error_kind", ErrorKind(err))
	default:
		logger.ErrorContext(ctx, "operation failed", "error", err, "error_kind", ErrorKind(err))
	}
}

// ErrorKind maps sentinel and validation errors to a stable logging label.
func ErrorKind(err error) string {
	if err == nil {
		return ""
	}
	switch {
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrInvalidTransition):
		return "invalid_transition"
	case errors.Is(err, ErrSubmissionRejected):
		return "submission_rejected"
	case errors.Is(err, ErrNotSaved):
		return "not_saved"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "canceled"
	}

	var vErr *ValidationError
	if errors.As(err, &vErr) {
		return "validation"
	}

	return "unexpected"
}
