package shared

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors forming the error taxonomy shared by every module.
// Handlers translate them into RFC7807 responses in platform/httpx.
var (
	// ErrNotFound indicates an unknown record id.
	ErrNotFound = errors.New("not found")
	// ErrValidation indicates malformed or out-of-range input.
	ErrValidation = errors.New("validation failed")
	// ErrForbidden indicates the actor's role is insufficient for the operation.
	ErrForbidden = errors.New("forbidden")
	// ErrInvalidState indicates a transition that is not legal from the current status.
	ErrInvalidState = errors.New("invalid state transition")
	// ErrConflict indicates an optimistic version mismatch; callers must re-read before retrying.
	ErrConflict = errors.New("version conflict")
	// ErrDispatch indicates a renderer/notifier failure. Dispatch errors are
	// logged and retried out-of-band, never surfaced to the triggering request.
	ErrDispatch = errors.New("dispatch failed")
	// ErrInvalidCredentials indicates login failure.
	ErrInvalidCredentials = errors.New("invalid credentials")
)

// FieldError pinpoints a single invalid input field.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationErrors aggregates field errors. errors.Is(err, ErrValidation)
// holds for any non-empty value.
type ValidationErrors []FieldError

func (v ValidationErrors) Error() string {
	parts := make([]string, 0, len(v))
	for _, fe := range v {
		parts = append(parts, fe.Field+": "+fe.Message)
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

func (v ValidationErrors) Unwrap() error {
	return ErrValidation
}

// InvalidStatef wraps ErrInvalidState with the status that blocked the
// transition so callers can decide whether to re-read and retry.
func InvalidStatef(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidState, fmt.Sprintf(format, args...))
}

// UserSafeMessage returns a message that can be shown to API consumers
// without leaking internals.
func UserSafeMessage(err error) string {
	switch {
	case errors.Is(err, ErrValidation),
		errors.Is(err, ErrNotFound),
		errors.Is(err, ErrForbidden),
		errors.Is(err, ErrInvalidState),
		errors.Is(err, ErrConflict),
		errors.Is(err, ErrInvalidCredentials):
		return err.Error()
	default:
		return "internal error"
	}
}
