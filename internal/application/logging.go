package application

import (
	"context"
	"errors"
	"log/slog"

	"github.com/example/varaamo/internal/logging"
)

func serviceLogger(ctx context.Context, base *slog.Logger, serviceName, operation string, attrs ...any) *slog.Logger {
	logger := logging.OrDefault(ctx, base)

	pairs := []any{"service", serviceName}
	if operation != "" {
		pairs = append(pairs, "operation", operation)
	}
	if len(attrs) > 0 {
		pairs = append(pairs, attrs...)
	}
	return logger.With(pairs...)
}

// ErrorKind maps errors to a stable logging label.
func ErrorKind(err error) string {
	if err == nil {
		return ""
	}

	if code := CodeOf(err); code != "" {
		if code == CodeNoPermission {
			return "no_permission"
		}
		return "rejected"
	}

	if errors.Is(err, ErrNotFound) {
		return "not_found"
	}
	if errors.Is(err, ErrInvalidCredentials) {
		return "invalid_credentials"
	}

	var vErr *ValidationError
	if errors.As(err, &vErr) {
		return "validation"
	}

	return "unexpected"
}
