// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package pdfservice

import (
	"errors"
	"time"
)

// Code classifies a service failure.
type Code string

const (
	CodeInvalidRequest     Code = "INVALID_REQUEST"
	CodeRateLimited        Code = "RATE_LIMITED"
	CodeServiceUnavailable Code = "SERVICE_UNAVAILABLE"
	CodeTimeout            Code = "TIMEOUT"
	CodeConnection         Code = "CONNECTION_ERROR"
	CodeConversionFailed   Code = "CONVERSION_FAILED"
	CodeHealthCheckFailed  Code = "HEALTH_CHECK_FAILED"
	CodeMaxRetriesExceeded Code = "MAX_RETRIES_EXCEEDED"
	CodeUnknown            Code = "UNKNOWN_ERROR"
)

// Error is a failure reported by or while talking to the service.
type Error struct {
	Code    Code
	Message string

	// RetryAfter is the wait the service asked for, if any.
	RetryAfter time.Duration

	Err error
}

func (e *Error) Error() string {
	msg := "pdfservice: " + string(e.Code) + ": " + e.Message
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

// CodeOf returns the code of the first *Error in err's chain, or
// CodeUnknown.
func CodeOf(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return CodeUnknown
}
