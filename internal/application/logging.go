package application

import (
	"context"
	"errors"
	"log/slog"

	"github.com/example/hotel-booking/internal/logging"
)

func defaultLogger(logger *slog.Logger) *slog.Logger {
	if logger != nil {
		return logger
	}
	return slog.Default()
}

// serviceLogger scopes a logger to one service operation, preferring the
// request logger carried by ctx over base.
func serviceLogger(ctx context.Context, base *slog.Logger, service, operation string, attrs ...any) *slog.Logger {
	logger := logging.FromContext(ctx)
	if logger == nil {
		logger = defaultLogger(base)
	}
	pairs := append([]any{"service", service, "operation", operation}, attrs...)
	return logger.With(pairs...)
}

// errorKinds lists the sentinels checked by ErrorKind; the first match wins.
var errorKinds = []struct {
	err  error
	kind string
}{
	{ErrInvalidCredentials, "invalid_credentials"},
	{ErrSessionExpired, "session_expired"},
	{ErrSessionRevoked, "session_revoked"},
	{ErrUnauthorized, "unauthorized"},
	{ErrStepUpFailed, "step_up_failed"},
	{ErrForbidden, "forbidden"},
	{ErrNotFound, "not_found"},
	{ErrEmailTaken, "email_taken"},
	{ErrAlreadyExists, "already_exists"},
	{ErrRoomUnavailable, "room_unavailable"},
	{ErrInvalidTransition, "invalid_transition"},
	{ErrInUse, "in_use"},
	{ErrBusy, "busy"},
}

// ErrorKind maps sentinel and validation errors to a stable logging label.
func ErrorKind(err error) string {
	if err == nil {
		return ""
	}
	for _, candidate := range errorKinds {
		if errors.Is(err, candidate.err) {
			return candidate.kind
		}
	}
	var vErr *ValidationError
	if errors.As(err, &vErr) {
		return "validation"
	}
	return "unexpected"
}
