package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/example/hotel-booking/internal/application"
)

const maxBodyBytes = 1 << 20

var (
	errBadRequestBody      = errors.New("request body is not valid JSON")
	errMissingSessionToken = errors.New("authentication token is required")
)

// Machine readable error codes carried in the error envelope.
const (
	codeBadRequest         = "bad_request"
	codeValidation         = "validation_failed"
	codeUnauthorized       = "unauthorized"
	codeInvalidCredentials = "invalid_credentials"
	codeSessionExpired     = "session_expired"
	codeSessionRevoked     = "session_revoked"
	codeForbidden          = "forbidden"
	codeStepUpFailed       = "step_up_failed"
	codeNotFound           = "not_found"
	codeEmailTaken         = "email_taken"
	codeAlreadyExists      = "already_exists"
	codeRoomUnavailable    = "room_unavailable"
	codeInvalidTransition  = "invalid_transition"
	codeInUse              = "in_use"
	codeBusy               = "busy"
	codeRateLimited        = "rate_limited"
	codeInternal           = "internal_error"
)

type responder struct {
	logger *slog.Logger
}

func newResponder(logger *slog.Logger) responder {
	if logger == nil {
		logger = slog.Default()
	}
	return responder{logger: logger}
}

type dataEnvelope struct {
	Data any `json:"data"`
}

type errorEnvelope struct {
	Error errorBody `json:"error"`
}

type errorBody struct {
	Code    string            `json:"code"`
	Message string            `json:"message"`
	Fields  map[string]string `json:"fields,omitempty"`
}

type messageResponse struct {
	Message string `json:"message"`
}

func (r responder) writeJSON(ctx context.Context, w http.ResponseWriter, status int, payload any) {
	if w == nil {
		return
	}

	if status == http.StatusNoContent || payload == nil {
		w.WriteHeader(status)
		return
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		r.loggerFor(ctx).ErrorContext(ctx, "failed to encode response", "error", err)
	}
}

func (r responder) writeData(ctx context.Context, w http.ResponseWriter, status int, data any) {
	r.writeJSON(ctx, w, status, dataEnvelope{Data: data})
}

func (r responder) writeMessage(ctx context.Context, w http.ResponseWriter, message string) {
	r.writeData(ctx, w, http.StatusOK, messageResponse{Message: message})
}

func (r responder) writeError(ctx context.Context, w http.ResponseWriter, status int, code, message string, fields map[string]string) {
	if message == "" {
		message = http.StatusText(status)
	}
	r.writeJSON(ctx, w, status, errorEnvelope{Error: errorBody{Code: code, Message: message, Fields: fields}})
}

func (r responder) badRequest(ctx context.Context, w http.ResponseWriter, err error) {
	r.writeError(ctx, w, http.StatusBadRequest, codeBadRequest, err.Error(), nil)
}

// handleServiceError maps application errors onto the HTTP error envelope.
func (r responder) handleServiceError(ctx context.Context, w http.ResponseWriter, err error) {
	status, code, message, fields := classifyError(err)
	if status >= http.StatusInternalServerError {
		r.loggerFor(ctx).ErrorContext(ctx, "request failed", "status", status, "error", err)
	}
	r.writeError(ctx, w, status, code, message, fields)
}

func classifyError(err error) (status int, code, message string, fields map[string]string) {
	var vErr *application.ValidationError
	switch {
	case err == nil:
		return http.StatusInternalServerError, codeInternal, "unknown error", nil
	case errors.As(err, &vErr):
		return http.StatusBadRequest, codeValidation, "validation failed", vErr.FieldErrors
	case errors.Is(err, application.ErrInvalidCredentials):
		return http.StatusUnauthorized, codeInvalidCredentials, "invalid email or password", nil
	case errors.Is(err, application.ErrSessionExpired):
		return http.StatusUnauthorized, codeSessionExpired, "session expired, please log in again", nil
	case errors.Is(err, application.ErrSessionRevoked):
		return http.StatusUnauthorized, codeSessionRevoked, "session has been logged out", nil
	case errors.Is(err, application.ErrUnauthorized):
		return http.StatusUnauthorized, codeUnauthorized, "authentication required", nil
	case errors.Is(err, application.ErrStepUpFailed):
		return http.StatusForbidden, codeStepUpFailed, "administrator password did not verify", nil
	case errors.Is(err, application.ErrForbidden):
		return http.StatusForbidden, codeForbidden, "you are not allowed to perform this operation", nil
	case errors.Is(err, application.ErrNotFound):
		return http.StatusNotFound, codeNotFound, "resource not found", nil
	case errors.Is(err, application.ErrEmailTaken):
		return http.StatusConflict, codeEmailTaken, "email is already registered", nil
	case errors.Is(err, application.ErrAlreadyExists):
		return http.StatusConflict, codeAlreadyExists, "resource already exists", nil
	case errors.Is(err, application.ErrRoomUnavailable):
		return http.StatusConflict, codeRoomUnavailable, "room is not available for the requested dates", nil
	case errors.Is(err, application.ErrInvalidTransition):
		return http.StatusConflict, codeInvalidTransition, transitionMessage(err), nil
	case errors.Is(err, application.ErrInUse):
		return http.StatusConflict, codeInUse, "resource is still referenced by other records", nil
	case errors.Is(err, application.ErrBusy):
		return http.StatusConflict, codeBusy, "resource is busy, please retry", nil
	}
	return http.StatusInternalServerError, codeInternal, "internal server error", nil
}

// transitionMessage keeps the detail wrapped around ErrInvalidTransition.
func transitionMessage(err error) string {
	prefix := application.ErrInvalidTransition.Error() + ": "
	if msg := err.Error(); strings.HasPrefix(msg, prefix) {
		return strings.TrimPrefix(msg, prefix)
	}
	return "operation not allowed in the current state"
}

func (r responder) loggerFor(ctx context.Context) *slog.Logger {
	if logger := LoggerFromContext(ctx); logger != nil {
		return logger
	}
	return r.logger
}

// decodeJSON reads a single JSON object from the request body.
func decodeJSON(r *http.Request, dst any) error {
	if r.Body == nil {
		return errBadRequestBody
	}
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return fmt.Errorf("request body is required")
		}
		return errBadRequestBody
	}
	return nil
}
