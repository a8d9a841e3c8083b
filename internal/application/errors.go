package application

import (
	"errors"
	"sort"
	"strings"

	"github.com/example/hotel-booking/internal/lock"
	"github.com/example/hotel-booking/internal/persistence"
)

var (
	// ErrUnauthorized is returned when no valid principal is attached to the call.
	ErrUnauthorized = errors.New("application: unauthorized")
	// ErrForbidden is returned when the principal lacks permission for an operation.
	ErrForbidden = errors.New("application: forbidden")
	// ErrNotFound is returned when the requested resource does not exist.
	ErrNotFound = errors.New("application: not found")
	// ErrAlreadyExists is returned when a unique attribute is already taken.
	ErrAlreadyExists = errors.New("application: already exists")
	// ErrEmailTaken is returned when an account with the email already exists.
	ErrEmailTaken = errors.New("application: email already registered")
	// ErrInvalidCredentials is returned for any failed password check.
	ErrInvalidCredentials = errors.New("application: invalid credentials")
	// ErrStepUpFailed is returned when the acting administrator's password does not verify.
	ErrStepUpFailed = errors.New("application: administrator re-authentication failed")
	// ErrRoomUnavailable is returned when the room is booked for an overlapping stay.
	ErrRoomUnavailable = errors.New("application: room unavailable for the requested dates")
	// ErrInvalidTransition is returned when an entity is not in a state that allows the operation.
	ErrInvalidTransition = errors.New("application: invalid state transition")
	// ErrInUse is returned when a record cannot be deleted because other records reference it.
	ErrInUse = errors.New("application: resource in use")
	// ErrSessionExpired is returned for tokens or sessions past their expiry.
	ErrSessionExpired = errors.New("application: session expired")
	// ErrSessionRevoked is returned for sessions ended by logout.
	ErrSessionRevoked = errors.New("application: session revoked")
	// ErrBusy is returned when the room lock could not be acquired in time.
	ErrBusy = errors.New("application: resource busy")
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

// NewValidationError returns a validation error for a single field.
func NewValidationError(field, message string) *ValidationError {
	vErr := &ValidationError{}
	vErr.add(field, message)
	return vErr
}

// add records a field level validation error. The first message for a field wins.
func (v *ValidationError) add(field, message string) {
	if v.FieldErrors == nil {
		v.FieldErrors = make(map[string]string)
	}
	if _, exists := v.FieldErrors[field]; exists {
		return
	}
	v.FieldErrors[field] = message
}

// merge copies entries from another validation error into the receiver.
func (v *ValidationError) merge(other *ValidationError) {
	if other == nil || len(other.FieldErrors) == 0 {
		return
	}
	for field, msg := range other.FieldErrors {
		v.add(field, msg)
	}
}

// orNil returns nil when no field errors were recorded so the result can be
// assigned to an error without producing a typed nil.
func (v *ValidationError) orNil() error {
	if !v.HasErrors() {
		return nil
	}
	return v
}

// mapRepoError translates persistence and lock failures into application
// sentinels. Unknown errors are returned unchanged.
func mapRepoError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, ErrNotFound), errors.Is(err, persistence.ErrNotFound):
		return ErrNotFound
	case errors.Is(err, persistence.ErrDuplicate):
		return ErrAlreadyExists
	case errors.Is(err, persistence.ErrForeignKeyViolation):
		return ErrInUse
	case errors.Is(err, persistence.ErrConflict):
		return ErrRoomUnavailable
	case errors.Is(err, persistence.ErrStaleState):
		return ErrInvalidTransition
	case errors.Is(err, lock.ErrNotAcquired):
		return ErrBusy
	}
	return err
}

func requireAuthenticated(p Principal) error {
	if !p.Authenticated() {
		return ErrUnauthorized
	}
	return nil
}

func requireStaff(p Principal) error {
	if !p.Authenticated() {
		return ErrUnauthorized
	}
	if !p.IsStaff() {
		return ErrForbidden
	}
	return nil
}

func requireAdmin(p Principal) error {
	if !p.Authenticated() {
		return ErrUnauthorized
	}
	if !p.IsAdmin() {
		return ErrForbidden
	}
	return nil
}
