package pagesignal

import (
	"errors"
	"fmt"
)

// Application error codes.
const (
	EINTERNAL = "internal"
	EINVALID  = "invalid"
)

// Fetch failure codes. Each one is reported per URL and never aborts a batch.
const (
	EINVALIDSCHEME = "invalid_scheme"
	EDNS           = "dns_error"
	EPRIVATE       = "private_network_blocked"
	EHTTPSTATUS    = "http_status"
	ECONTENTTYPE   = "unexpected_content_type"
	ETOOLARGE      = "response_too_large"
	ETIMEOUT       = "timeout"
	ENETWORK       = "network_error"
)

// Error represents an application-specific error.
type Error struct {
	// Machine-readable error code.
	Code string

	// Human-readable error message.
	Message string

	// Status holds the upstream HTTP status code for EHTTPSTATUS errors.
	Status int
}

// Error implements the error interface. Not used by the application otherwise.
func (e *Error) Error() string {
	return fmt.Sprintf("pagesignal error: code=%s message=%s", e.Code, e.Message)
}

// Errorf is a helper function to return an Error with a given code and formatted message.
func Errorf(code string, format string, args ...any) *Error {
	return &Error{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
	}
}

// StatusError returns an EHTTPSTATUS error for a non-2xx upstream response.
func StatusError(status int) *Error {
	return &Error{
		Code:    EHTTPSTATUS,
		Message: fmt.Sprintf("unexpected HTTP status %d", status),
		Status:  status,
	}
}

// ErrorCode unwraps an application error and returns its code.
// Non-application errors always return EINTERNAL.
func ErrorCode(err error) string {
	var e *Error
	if err == nil {
		return ""
	} else if errors.As(err, &e) {
		return e.Code
	}
	return EINTERNAL
}

// ErrorMessage unwraps an application error and returns its message.
// Non-application errors always return "Internal error.".
func ErrorMessage(err error) string {
	var e *Error
	if err == nil {
		return ""
	} else if errors.As(err, &e) {
		return e.Message
	}
	return "Internal error."
}

// ErrorStatus returns the upstream HTTP status carried by an EHTTPSTATUS
// error, or zero.
func ErrorStatus(err error) int {
	var e *Error
	if errors.As(err, &e) {
		return e.Status
	}
	return 0
}
