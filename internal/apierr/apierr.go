package apierr

import (
	"errors"
	"fmt"
	"net/http"
)

// Error codes, one per failure class. Handlers map these onto HTTP statuses;
// services never touch status codes directly.
const (
	CodeValidation    = "validation_error"
	CodeAuthorization = "authorization_error"
	CodeNotFound      = "not_found"
	CodeConflict      = "conflict_error"
	CodePrecondition  = "precondition_error"
	CodePersistence   = "persistence_error"
)

type Error struct {
	Status int
	Code   string
	Err    error
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	if e.Code != "" {
		return e.Code
	}
	if e.Status != 0 {
		return fmt.Sprintf("api error (%d)", e.Status)
	}
	return "api error"
}

func (e *Error) Unwrap() error { return e.Err }

func New(status int, code string, err error) *Error {
	return &Error{Status: status, Code: code, Err: err}
}

func Validation(format string, args ...interface{}) *Error {
	return New(http.StatusBadRequest, CodeValidation, fmt.Errorf(format, args...))
}

func Authorization(format string, args ...interface{}) *Error {
	return New(http.StatusForbidden, CodeAuthorization, fmt.Errorf(format, args...))
}

func NotFound(format string, args ...interface{}) *Error {
	return New(http.StatusNotFound, CodeNotFound, fmt.Errorf(format, args...))
}

func Conflict(format string, args ...interface{}) *Error {
	return New(http.StatusConflict, CodeConflict, fmt.Errorf(format, args...))
}

func Precondition(format string, args ...interface{}) *Error {
	return New(http.StatusUnprocessableEntity, CodePrecondition, fmt.Errorf(format, args...))
}

func Persistence(err error) *Error {
	return New(http.StatusInternalServerError, CodePersistence, err)
}

// From normalizes any error into an *Error, wrapping unknown failures as
// persistence errors so partial store failures never leak raw driver messages
// with a misleading status.
func From(err error) *Error {
	if err == nil {
		return nil
	}
	var ae *Error
	if errors.As(err, &ae) {
		return ae
	}
	return Persistence(err)
}
