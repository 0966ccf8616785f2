package pictura

import (
	"errors"
	"fmt"
)

// Domain error codes - transport layer maps these to HTTP status codes.
const (
	ECONFLICT          = "conflict"               // 409 - Resource already exists
	EINTERNAL          = "internal"               // 500 - Internal server error
	EINVALID           = "invalid"                // 400 - Invalid input
	ENOTFOUND          = "not_found"              // 404 - Resource not found
	EUNSUPPORTEDMEDIA  = "unsupported_media_type" // 415 - Declared MIME type not allowed
	EUNKNOWNSTYLE      = "unknown_style"          // 400 - Requested style not registered
	ECORRUPTIMAGE      = "corrupt_image"          // 422 - Source bytes cannot be decoded
	EUNSUPPORTEDFORMAT = "unsupported_format"     // 422 - Image format not recognized
	EENCODE            = "encode_failed"          // 500 - Derivative could not be encoded
	ESTORAGEREAD       = "storage_read"           // 500 - Blob read failed (retryable)
	ESTORAGEWRITE      = "storage_write"          // 500 - Blob write failed (retryable)
)

// Error represents an application-specific error.
type Error struct {
	// Code is a machine-readable error code.
	Code string `json:"code"`

	// Message is a human-readable error message.
	Message string `json:"message"`

	// Fields contains field-specific validation errors.
	Fields map[string]string `json:"fields,omitempty"`

	// Err is the underlying error (not exposed to clients).
	Err error `json:"-"`
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying error for errors.Is/As support.
func (e *Error) Unwrap() error {
	return e.Err
}

// Errorf creates a new application error with a formatted message.
func Errorf(code string, format string, args ...any) *Error {
	return &Error{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
	}
}

// WrapError wraps an underlying error with application context.
func WrapError(code string, message string, err error) *Error {
	return &Error{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// ErrorWithFields creates an error carrying field-specific messages.
func ErrorWithFields(code string, message string, fields map[string]string) *Error {
	return &Error{
		Code:    code,
		Message: message,
		Fields:  fields,
	}
}

// ErrorCode extracts the error code from an error.
// Returns EINTERNAL if the error is not an *Error.
func ErrorCode(err error) string {
	if err == nil {
		return ""
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return EINTERNAL
}

// ErrorMessage extracts the user-safe message from an error.
// Returns a generic message if the error is not an *Error.
func ErrorMessage(err error) string {
	if err == nil {
		return ""
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Message
	}
	return "An internal error occurred."
}

// ErrorFields extracts field-specific errors from a validation error.
// Returns nil if the error has no field errors.
func ErrorFields(err error) map[string]string {
	var e *Error
	if errors.As(err, &e) {
		return e.Fields
	}
	return nil
}

// IsErrorCode checks if an error has the specified error code.
func IsErrorCode(err error, code string) bool {
	return ErrorCode(err) == code
}

// IsRetryable reports whether an error represents a transient storage
// failure. Variant generation is idempotent and at-most-once-stored, so
// these are safe to retry with backoff.
func IsRetryable(err error) bool {
	code := ErrorCode(err)
	return code == ESTORAGEREAD || code == ESTORAGEWRITE
}

// NotFound creates a not found error.
func NotFound(format string, args ...any) *Error {
	return Errorf(ENOTFOUND, format, args...)
}

// Invalid creates a validation error.
func Invalid(format string, args ...any) *Error {
	return Errorf(EINVALID, format, args...)
}

// Conflict creates a conflict error.
func Conflict(format string, args ...any) *Error {
	return Errorf(ECONFLICT, format, args...)
}

// UnsupportedMedia creates an error for a declared MIME type outside the
// configured allow-list.
func UnsupportedMedia(format string, args ...any) *Error {
	return Errorf(EUNSUPPORTEDMEDIA, format, args...)
}

// UnknownStyle creates an error for a style name absent from the registry.
func UnknownStyle(name string) *Error {
	return Errorf(EUNKNOWNSTYLE, "Style %q is not registered", name)
}

// Internal creates an internal error, wrapping the underlying cause.
func Internal(message string, err error) *Error {
	return WrapError(EINTERNAL, message, err)
}
