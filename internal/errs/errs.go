// Package errs provides coded errors for request handling.
//
// Validation outcomes of the country form are results, not errors; this package
// covers the transport failures around them (bad request bodies, missing records,
// unavailable storage).
package errs

import (
	"encoding/json"
	"errors"
	"net/http"
)

// Code is an application error code.
type Code string

const (
	InvalidArgument Code = "invalid_argument"
	NotFound        Code = "not_found"
	TooLarge        Code = "too_large"
	TooManyRequests Code = "too_many_requests"
	Unavailable     Code = "unavailable"
	Internal        Code = "internal"
)

// Error is a coded application error. Field names the offending request field, if any.
type Error struct {
	Code    Code
	Field   string
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.Message != "" {
		return e.Message
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return string(e.Code)
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// New creates a coded error with message.
func New(code Code, message string) error {
	return &Error{Code: code, Message: message}
}

// Wrap creates a coded error with message and cause.
func Wrap(code Code, message string, cause error) error {
	return &Error{Code: code, Message: message, Err: cause}
}

// Invalid creates an InvalidArgument error for a single request field.
func Invalid(field, message string) error {
	return &Error{Code: InvalidArgument, Field: field, Message: message}
}

// CodeOf returns the error code, defaulting to internal.
func CodeOf(err error) Code {
	var coded *Error
	if err == nil || !errors.As(err, &coded) || coded.Code == "" {
		return Internal
	}
	return coded.Code
}

// FieldOf returns the offending field of a coded error, or "".
func FieldOf(err error) string {
	var coded *Error
	if errors.As(err, &coded) {
		return coded.Field
	}
	return ""
}

// MessageOf returns a user-facing error message.
// Untyped errors map to "internal error" so raw causes never reach clients.
func MessageOf(err error) string {
	if err == nil {
		return string(Internal)
	}
	var coded *Error
	if errors.As(err, &coded) && coded.Message != "" {
		return coded.Message
	}
	return "internal error"
}

// HTTPStatus maps error code to HTTP status.
func HTTPStatus(code Code) int {
	switch code {
	case InvalidArgument:
		return http.StatusBadRequest
	case NotFound:
		return http.StatusNotFound
	case TooLarge:
		return http.StatusRequestEntityTooLarge
	case TooManyRequests:
		return http.StatusTooManyRequests
	case Unavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

type errorBody struct {
	Error string `json:"error"`
	Code  Code   `json:"code"`
	Field string `json:"field,omitempty"`
}

// WriteJSON writes err as a JSON error body with the mapped status code.
func WriteJSON(w http.ResponseWriter, err error) {
	code := CodeOf(err)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(HTTPStatus(code))
	_ = json.NewEncoder(w).Encode(errorBody{
		Error: MessageOf(err),
		Code:  code,
		Field: FieldOf(err),
	})
}
