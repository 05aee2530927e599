// Package errors provides the coded error types shared by the banner
// compositor, the HTTP API and the CLI.
//
// Every failure the session can report carries a Code so callers can decide
// how to surface it (HTTP status, notice level) without string matching:
//
//	err := errors.New(errors.ErrCodeMissingInput, "upload a template image first")
//	if errors.Is(err, errors.ErrCodeMissingInput) {
//	    // prompt for the upload
//	}
package errors

import (
	"errors"
	"fmt"
)

// Code is a machine-readable error code.
type Code string

const (
	// ErrCodeMissingInput: template, visuals or size not supplied yet.
	ErrCodeMissingInput Code = "MISSING_INPUT"
	// ErrCodeNotReady: a decode is still outstanding.
	ErrCodeNotReady Code = "NOT_READY"
	// ErrCodeSizeMismatch: a visual failed validation for the geometry.
	ErrCodeSizeMismatch Code = "SIZE_MISMATCH"
	// ErrCodeUnknownSize: the size id is not in the catalog.
	ErrCodeUnknownSize Code = "UNKNOWN_SIZE"
	// ErrCodeTooLarge: an upload, download or decoded image exceeds a limit.
	ErrCodeTooLarge Code = "TOO_LARGE"
	// ErrCodeDecode: an uploaded file could not be decoded as an image.
	ErrCodeDecode Code = "DECODE_FAILED"
	// ErrCodeEncode: a composited surface could not be encoded.
	ErrCodeEncode Code = "ENCODE_FAILED"
	// ErrCodeArchive: encoded banners could not be bundled.
	ErrCodeArchive Code = "ARCHIVE_FAILED"
)

// Error is a structured error with a code and optional cause.
type Error struct {
	Code    Code
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// New creates an Error with the given code and formatted message.
func New(code Code, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Wrap creates an Error wrapping cause.
func Wrap(code Code, cause error, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...), Cause: cause}
}

// TooLarge reports that name exceeds a byte limit.
func TooLarge(name string, limit int64) *Error {
	size := fmt.Sprintf("%d MB", limit>>20)
	if limit < 1<<20 {
		size = fmt.Sprintf("%d KB", limit>>10)
	}
	return New(ErrCodeTooLarge, "%s is larger than the %s upload limit", name, size)
}

// Is reports whether err carries the given code anywhere in its chain.
func Is(err error, code Code) bool {
	return GetCode(err) == code
}

// GetCode extracts the code from err, or "" if it has none.
func GetCode(err error) Code {
	var sm *SizeMismatchError
	if errors.As(err, &sm) {
		return ErrCodeSizeMismatch
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

// UserMessage returns the message meant for a person, without the code
// prefix or wrapped diagnostic detail.
func UserMessage(err error) string {
	var sm *SizeMismatchError
	if errors.As(err, &sm) {
		return sm.Error()
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Message
	}
	return err.Error()
}
