package apierr

import (
	"errors"
	"fmt"
	"net/http"
)

// Sentinel kinds. Services wrap these so callers can errors.Is on them
// regardless of the HTTP mapping carried by *Error.
var (
	ErrNotFound        = errors.New("not found")
	ErrForbidden       = errors.New("forbidden")
	ErrUnauthenticated = errors.New("unauthenticated")
	ErrNotEligible     = errors.New("not eligible")
	ErrConflict        = errors.New("conflict")
	ErrInvalidArgument = errors.New("invalid argument")
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

func NotFound(code string, format string, args ...any) *Error {
	return New(http.StatusNotFound, code, wrapKind(ErrNotFound, format, args...))
}

func Forbidden(code string, format string, args ...any) *Error {
	return New(http.StatusForbidden, code, wrapKind(ErrForbidden, format, args...))
}

func Unauthenticated(code string, format string, args ...any) *Error {
	return New(http.StatusUnauthorized, code, wrapKind(ErrUnauthenticated, format, args...))
}

func NotEligible(code string, format string, args ...any) *Error {
	return New(http.StatusConflict, code, wrapKind(ErrNotEligible, format, args...))
}

func Conflict(code string, format string, args ...any) *Error {
	return New(http.StatusConflict, code, wrapKind(ErrConflict, format, args...))
}

func InvalidArgument(code string, format string, args ...any) *Error {
	return New(http.StatusBadRequest, code, wrapKind(ErrInvalidArgument, format, args...))
}

// StatusOf maps any error onto an HTTP status and code. Untyped errors are 500s.
func StatusOf(err error) (int, string) {
	var ae *Error
	if errors.As(err, &ae) && ae.Status != 0 {
		return ae.Status, ae.Code
	}
	switch {
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound, "not_found"
	case errors.Is(err, ErrForbidden):
		return http.StatusForbidden, "forbidden"
	case errors.Is(err, ErrUnauthenticated):
		return http.StatusUnauthorized, "unauthenticated"
	case errors.Is(err, ErrNotEligible):
		return http.StatusConflict, "not_eligible"
	case errors.Is(err, ErrConflict):
		return http.StatusConflict, "conflict"
	case errors.Is(err, ErrInvalidArgument):
		return http.StatusBadRequest, "invalid_argument"
	default:
		return http.StatusInternalServerError, "internal"
	}
}

func wrapKind(kind error, format string, args ...any) error {
	if format == "" {
		return kind
	}
	return fmt.Errorf("%w: %s", kind, fmt.Sprintf(format, args...))
}
