// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package apierr defines typed API errors and writes them as JSON
// responses.
package apierr

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/pdiddy/ieee-docgen/pkg/types"
)

// Type classifies an API error.
type Type string

// Error types reported in the error_type field.
const (
	Validation      Type = "VALIDATION_ERROR"
	Processing      Type = "PROCESSING_ERROR"
	ExternalService Type = "EXTERNAL_SERVICE_ERROR"
	RateLimit       Type = "RATE_LIMIT_ERROR"
	NotFound        Type = "NOT_FOUND_ERROR"
	Internal        Type = "INTERNAL_ERROR"
	FileSize        Type = "FILE_SIZE_ERROR"
)

// Error is an error with an HTTP status and a machine-readable type.
type Error struct {
	Type    Type
	Message string
	Status  int
	Details map[string]any
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches another *Error of the same type, so errors.Is(err,
// &Error{Type: NotFound}) works as a category check.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Message == "" && t.Type == e.Type
}

// New returns an error of type t with the status conventional for it.
func New(t Type, msg string) *Error {
	return &Error{Type: t, Message: msg, Status: statusFor(t)}
}

// Wrap returns an error of type t wrapping cause.
func Wrap(t Type, msg string, cause error) *Error {
	e := New(t, msg)
	e.Err = cause
	return e
}

// WithDetails attaches details to e and returns it.
func (e *Error) WithDetails(d map[string]any) *Error {
	e.Details = d
	return e
}

func statusFor(t Type) int {
	switch t {
	case Validation:
		return http.StatusBadRequest
	case NotFound:
		return http.StatusNotFound
	case RateLimit:
		return http.StatusTooManyRequests
	case FileSize:
		return http.StatusRequestEntityTooLarge
	case ExternalService:
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}

// From returns err as an *Error. Errors without one in their chain
// become INTERNAL_ERROR with status 500.
func From(err error) *Error {
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	return Wrap(Internal, "internal server error", err)
}

// Write sends err as the standard JSON error body.
func Write(w http.ResponseWriter, err error) {
	e := From(err)
	body := types.ErrorResponse{
		Success:   false,
		Error:     e.Message,
		ErrorType: string(e.Type),
		Details:   e.Details,
	}
	WriteJSON(w, e.Status, body)
}

// WriteJSON sends v as JSON with status.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
