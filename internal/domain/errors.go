package domain

import (
	"errors"
	"fmt"
)

// Error kinds. Match them with errors.Is.
var (
	ErrValidation         = errors.New("validation error")
	ErrInvalidSchedule    = errors.New("invalid schedule")
	ErrSlotConflict       = errors.New("slot conflict")
	ErrDuplicateActive    = errors.New("duplicate active booking")
	ErrNotFound           = errors.New("not found")
	ErrForbidden          = errors.New("forbidden")
	ErrUnauthorized       = errors.New("unauthorized")
	ErrInvalidTransition  = errors.New("invalid transition")
	ErrAccountLocked      = errors.New("account locked")
	ErrRateLimited        = errors.New("rate limited")
	ErrConcurrentModified = errors.New("concurrent modification")
)

// Error is a domain failure with a client-facing message.
type Error struct {
	Kind    error
	Message string
}

func (e *Error) Error() string {
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Kind
}

// Errorf builds an Error of the given kind.
func Errorf(kind error, format string, args ...interface{}) error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// KindName returns the wire name of the error kind, "internal" for anything unknown.
func KindName(err error) string {
	switch {
	case errors.Is(err, ErrValidation):
		return "validation"
	case errors.Is(err, ErrInvalidSchedule):
		return "invalid_schedule"
	case errors.Is(err, ErrSlotConflict):
		return "slot_conflict"
	case errors.Is(err, ErrDuplicateActive):
		return "duplicate_active_booking"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrForbidden):
		return "forbidden"
	case errors.Is(err, ErrUnauthorized):
		return "unauthorized"
	case errors.Is(err, ErrInvalidTransition):
		return "invalid_transition"
	case errors.Is(err, ErrAccountLocked):
		return "account_locked"
	case errors.Is(err, ErrRateLimited):
		return "rate_limited"
	case errors.Is(err, ErrConcurrentModified):
		return "conflict"
	default:
		return "internal"
	}
}

// Message returns the client-facing text of err. Internal errors are not exposed.
func Message(err error) string {
	var de *Error
	if errors.As(err, &de) {
		return de.Message
	}
	if KindName(err) != "internal" {
		return err.Error()
	}
	return "internal server error"
}
