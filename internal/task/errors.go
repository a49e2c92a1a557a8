package task

import (
	"errors"
	"fmt"
)

// Code categorizes task errors.
type Code string

const (
	// CodeValidation indicates rejected input; no state was changed.
	CodeValidation Code = "VALIDATION"

	// CodeNotFound indicates the mutation or delete target is absent.
	CodeNotFound Code = "NOT_FOUND"

	// CodeUnavailable indicates a durable operation failed.
	CodeUnavailable Code = "UNAVAILABLE"

	// CodeUnauthorized indicates there is no active session.
	CodeUnauthorized Code = "UNAUTHORIZED"
)

// Error is the error type surfaced by stores and the collection manager.
//
// Match categories with errors.Is against the sentinels below:
//
//	if errors.Is(err, task.ErrNotFound) { ... }
type Error struct {
	Code    Code
	Op      string // operation that failed, for logs
	ID      string // task id or store key, when known
	Message string // human-readable reason
	Err     error  // underlying cause (optional)
}

// Sentinels for errors.Is matching. Only Code is compared.
var (
	ErrValidation   = &Error{Code: CodeValidation}
	ErrNotFound     = &Error{Code: CodeNotFound}
	ErrUnavailable  = &Error{Code: CodeUnavailable}
	ErrUnauthorized = &Error{Code: CodeUnauthorized}
)

func (e *Error) Error() string {
	msg := e.Message
	if msg == "" {
		msg = string(e.Code)
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is reports whether target is an *Error with the same Code.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Code == e.Code
}

// Validation returns a CodeValidation error.
func Validation(op, format string, args ...any) *Error {
	return &Error{Code: CodeValidation, Op: op, Message: fmt.Sprintf(format, args...)}
}

// NotFound returns a CodeNotFound error for id.
func NotFound(op, id string) *Error {
	return &Error{Code: CodeNotFound, Op: op, ID: id, Message: "task not found: " + id}
}

// Unavailable wraps a backend failure.
func Unavailable(op string, err error) *Error {
	return &Error{Code: CodeUnavailable, Op: op, Message: "store unavailable", Err: err}
}

// Unauthorized returns a CodeUnauthorized error.
func Unauthorized(op string) *Error {
	return &Error{Code: CodeUnauthorized, Op: op, Message: "no active session"}
}

// CodeOf returns the Code of the first *Error in err's chain.
// Errors outside the taxonomy are reported as CodeUnavailable.
func CodeOf(err error) Code {
	if err == nil {
		return ""
	}
	var te *Error
	if errors.As(err, &te) {
		return te.Code
	}
	return CodeUnavailable
}
