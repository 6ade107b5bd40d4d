package core

import (
	"errors"
	"fmt"
	"strings"
)

// Kind classifies an Error so callers can branch without string matching.
type Kind string

const (
	KindValidation Kind = "validation"
	KindNotFound   Kind = "not_found"
	KindConflict   Kind = "conflict"
	KindStorage    Kind = "storage"
)

// Sentinels match any Error of the same kind through errors.Is.
var (
	ErrValidation = &Error{Kind: KindValidation}
	ErrNotFound   = &Error{Kind: KindNotFound}
	ErrConflict   = &Error{Kind: KindConflict}
	ErrStorage    = &Error{Kind: KindStorage}
)

// Error is the domain error returned by every ledger operation.
type Error struct {
	Kind    Kind
	Field   string
	Value   string
	Message string
	Err     error
}

func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString(strings.ReplaceAll(string(e.Kind), "_", " "))
	b.WriteString(" error")
	if e.Field != "" {
		b.WriteString(": ")
		b.WriteString(e.Field)
	}
	if e.Message != "" {
		b.WriteString(": ")
		b.WriteString(e.Message)
	}
	if e.Value != "" {
		fmt.Fprintf(&b, " (got %s)", e.Value)
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches on kind only, so wrapped errors compare equal to the sentinels.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

// Invalid builds a validation error for one input field.
func Invalid(field, value, msg string) *Error {
	return &Error{Kind: KindValidation, Field: field, Value: value, Message: msg}
}

// NotFound builds a not-found error for an entity key.
func NotFound(entity, key string) *Error {
	return &Error{Kind: KindNotFound, Field: entity, Value: key, Message: "does not exist"}
}

func Conflict(entity, msg string, err error) *Error {
	return &Error{Kind: KindConflict, Field: entity, Message: msg, Err: err}
}

// StorageFailure wraps a driver error raised while running op.
func StorageFailure(op string, err error) *Error {
	return &Error{Kind: KindStorage, Message: op, Err: err}
}

// KindOf returns the kind of the first Error in err's chain, or KindStorage for foreign errors.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindStorage
}
