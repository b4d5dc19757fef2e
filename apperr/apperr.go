// Package apperr is the error taxonomy shared by the core services. Every
// failure a caller can act on is an *Error with a Kind; anything else is an
// internal failure.
package apperr

import (
	"errors"
	"fmt"
)

type Kind string

const (
	KindValidation         Kind = "validation"
	KindNotFound           Kind = "not_found"
	KindForbidden          Kind = "forbidden"
	KindStateConflict      Kind = "state_conflict"
	KindRestaurantConflict Kind = "restaurant_conflict"
	KindConflict           Kind = "conflict"
	KindUnauthenticated    Kind = "unauthenticated"
)

type Error struct {
	Kind    Kind
	Message string
	// Current is the order status observed when a StateConflict was raised.
	Current string
	Details map[string]string
}

// Sentinels for errors.Is; they match any *Error of the same kind.
var (
	ErrValidation         = &Error{Kind: KindValidation}
	ErrNotFound           = &Error{Kind: KindNotFound}
	ErrForbidden          = &Error{Kind: KindForbidden}
	ErrStateConflict      = &Error{Kind: KindStateConflict}
	ErrRestaurantConflict = &Error{Kind: KindRestaurantConflict}
	ErrConflict           = &Error{Kind: KindConflict}
	ErrUnauthenticated    = &Error{Kind: KindUnauthenticated}
)

func (e *Error) Error() string {
	msg := e.Message
	if msg == "" {
		msg = string(e.Kind)
	}
	if e.Current != "" {
		return fmt.Sprintf("%s (current status: %s)", msg, e.Current)
	}
	return msg
}

func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind && (t.Message == "" || t.Message == e.Message)
}

func Validation(format string, args ...any) *Error {
	return &Error{Kind: KindValidation, Message: fmt.Sprintf(format, args...)}
}

// NotFound reports that an entity of the given kind does not exist.
func NotFound(entity string) *Error {
	return &Error{Kind: KindNotFound, Message: entity + " not found"}
}

func Forbidden(format string, args ...any) *Error {
	return &Error{Kind: KindForbidden, Message: fmt.Sprintf(format, args...)}
}

// StateConflict reports a transition attempted from the wrong status.
func StateConflict(current string, format string, args ...any) *Error {
	return &Error{Kind: KindStateConflict, Message: fmt.Sprintf(format, args...), Current: current}
}

func RestaurantConflict(current, requested string) *Error {
	return &Error{
		Kind:    KindRestaurantConflict,
		Message: "cannot add items from different restaurants, clear your cart first",
		Details: map[string]string{
			"currentRestaurant": current,
			"newRestaurant":     requested,
		},
	}
}

func Conflict(format string, args ...any) *Error {
	return &Error{Kind: KindConflict, Message: fmt.Sprintf(format, args...)}
}

func Unauthenticated(msg string) *Error {
	return &Error{Kind: KindUnauthenticated, Message: msg}
}

// KindOf returns the kind of err, or "" when err is not an *Error.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}
