package core

import (
	"errors"
	"fmt"
	"os"
	"syscall"
)

// ErrorCategory classifies errors for handling decisions.
type ErrorCategory string

const (
	ErrCatNotFound     ErrorCategory = "not_found"           // Process gone or never existed
	ErrCatAccessDenied ErrorCategory = "access_denied"       // Caller lacks privilege
	ErrCatPartialData  ErrorCategory = "partial_data"        // Listing succeeded with unreadable items
	ErrCatNativeCall   ErrorCategory = "native_call_failure" // Platform primitive reported failure
	ErrCatUnsupported  ErrorCategory = "unsupported"         // Not available on this platform
	ErrCatValidation   ErrorCategory = "validation"          // Invalid input
	ErrCatInternal     ErrorCategory = "internal"            // Unexpected internal error
)

// DomainError represents a structured error from the inspection engine.
type DomainError struct {
	Category ErrorCategory
	Code     string
	Message  string
	Cause    error
	Details  map[string]interface{}
}

// Error implements the error interface.
func (e *DomainError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %s (%v)", e.Category, e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s: %s", e.Category, e.Code, e.Message)
}

// Unwrap returns the underlying cause.
func (e *DomainError) Unwrap() error {
	return e.Cause
}

// Is checks if this error matches a target.
func (e *DomainError) Is(target error) bool {
	t, ok := target.(*DomainError)
	if !ok {
		return false
	}
	return e.Category == t.Category && e.Code == t.Code
}

// WithCause wraps an underlying error.
func (e *DomainError) WithCause(cause error) *DomainError {
	e.Cause = cause
	return e
}

// WithDetail adds contextual information.
func (e *DomainError) WithDetail(key string, value interface{}) *DomainError {
	if e.Details == nil {
		e.Details = make(map[string]interface{})
	}
	e.Details[key] = value
	return e
}

// ErrNotFound creates an error for a process id that does not resolve to a
// running process.
func ErrNotFound(pid int32) *DomainError {
	return &DomainError{
		Category: ErrCatNotFound,
		Code:     CodeProcessNotFound,
		Message:  fmt.Sprintf("process %d is not running", pid),
		Details:  map[string]interface{}{"pid": pid},
	}
}

// ErrAccessDenied creates an error for a counter, list or property the caller
// may not read.
func ErrAccessDenied(what string) *DomainError {
	return &DomainError{
		Category: ErrCatAccessDenied,
		Code:     CodeAccessDenied,
		Message:  fmt.Sprintf("access denied reading %s", what),
	}
}

// ErrPartialData creates an error describing a listing with skipped items.
func ErrPartialData(what string, skipped int) *DomainError {
	return &DomainError{
		Category: ErrCatPartialData,
		Code:     CodePartialData,
		Message:  fmt.Sprintf("%d %s could not be read", skipped, what),
		Details:  map[string]interface{}{"skipped": skipped},
	}
}

// ErrNativeCall creates an error for a failed platform primitive. code is the
// native error code when the primitive reported one.
func ErrNativeCall(op string, code *uint32) *DomainError {
	e := &DomainError{
		Category: ErrCatNativeCall,
		Code:     CodeNativeCallFailed,
		Message:  fmt.Sprintf("%s failed", op),
	}
	if code != nil {
		e.Message = fmt.Sprintf("%s failed with native error 0x%08X", op, *code)
		e.WithDetail("native_error_code", *code)
	}
	return e
}

// ErrUnsupported creates an error for a feature missing on this platform.
func ErrUnsupported(feature string) *DomainError {
	return &DomainError{
		Category: ErrCatUnsupported,
		Code:     CodeUnsupported,
		Message:  fmt.Sprintf("%s is not supported on this platform", feature),
	}
}

// ErrValidation creates a validation error.
func ErrValidation(code, message string) *DomainError {
	return &DomainError{
		Category: ErrCatValidation,
		Code:     code,
		Message:  message,
	}
}

// ErrInternal creates an internal error, typically from a recovered panic.
func ErrInternal(message string) *DomainError {
	return &DomainError{
		Category: ErrCatInternal,
		Code:     CodeInternal,
		Message:  message,
	}
}

// Classify converts an OS-level error into a DomainError. Errors that are
// already classified pass through unchanged; what names the data being read.
func Classify(err error, pid int32, what string) error {
	if err == nil {
		return nil
	}
	var domErr *DomainError
	if errors.As(err, &domErr) {
		return err
	}
	switch {
	case errors.Is(err, os.ErrNotExist):
		return ErrNotFound(pid).WithCause(err)
	case errors.Is(err, os.ErrPermission):
		return ErrAccessDenied(what).WithCause(err)
	default:
		return fmt.Errorf("reading %s: %w", what, err)
	}
}

// GetCategory extracts the error category.
func GetCategory(err error) ErrorCategory {
	var domErr *DomainError
	if errors.As(err, &domErr) {
		return domErr.Category
	}
	return ErrCatInternal
}

// IsCategory checks if an error belongs to a category.
func IsCategory(err error, cat ErrorCategory) bool {
	return GetCategory(err) == cat
}

// IsNotFound reports whether err means the target process is gone.
func IsNotFound(err error) bool {
	return err != nil && IsCategory(err, ErrCatNotFound)
}

// IsAccessDenied reports whether err is a privilege failure.
func IsAccessDenied(err error) bool {
	return err != nil && IsCategory(err, ErrCatAccessDenied)
}

// NativeErrorCode returns the native error code attached to err, if any.
func NativeErrorCode(err error) (uint32, bool) {
	var domErr *DomainError
	if !errors.As(err, &domErr) || domErr.Details == nil {
		return 0, false
	}
	code, ok := domErr.Details["native_error_code"].(uint32)
	return code, ok
}

// OSErrorCode extracts the raw errno / Win32 code from err, or nil.
func OSErrorCode(err error) *uint32 {
	var errno syscall.Errno
	if !errors.As(err, &errno) || errno == 0 {
		return nil
	}
	code := uint32(errno)
	return &code
}

// Predefined error codes
const (
	CodeProcessNotFound  = "PROCESS_NOT_FOUND"
	CodeAccessDenied     = "ACCESS_DENIED"
	CodePartialData      = "PARTIAL_DATA"
	CodeNativeCallFailed = "NATIVE_CALL_FAILED"
	CodeUnsupported      = "UNSUPPORTED"
	CodeInternal         = "INTERNAL"

	// Validation error codes
	CodeInvalidPID      = "INVALID_PID"
	CodeInvalidDumpMode = "INVALID_DUMP_MODE"
	CodeInvalidConfig   = "INVALID_CONFIG"
	CodeZeroUptime      = "ZERO_UPTIME"
)
