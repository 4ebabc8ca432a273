// Package errors provides the error taxonomy shared by the CLI, the HTTP API
// and the service layer.
//
// Errors carry a code, a category and a severity. Severity drives how an
// interface presents the failure: warnings and info are advisory, errors and
// critical failures abort the current operation. Variable collection never
// produces an AppError; its failures are reported as advisories and the
// affected variable falls back to its default.
//
// USAGE PATTERNS:
// - Create errors: NotFoundError(), ValidationError(), StorageError()
// - Wrap errors: Wrap() keeps the cause reachable through errors.Is/As
// - Present errors: CLIErrorHandler for terminals, HTTPStatus for the API
package errors

import (
	stderrors "errors"
	"fmt"
	"time"
)

// ErrorCode represents standardized error codes
type ErrorCode string

const (
	// Validation errors
	ErrCodeValidation    ErrorCode = "VALIDATION_ERROR"
	ErrCodeInvalidInput  ErrorCode = "INVALID_INPUT"
	ErrCodeInvalidFormat ErrorCode = "INVALID_FORMAT"

	ErrCodeInternalError ErrorCode = "INTERNAL_ERROR"
	ErrCodeNotFound      ErrorCode = "NOT_FOUND"

	// Storage errors
	ErrCodeStorageFailure ErrorCode = "STORAGE_FAILURE"
	ErrCodeFileNotFound   ErrorCode = "FILE_NOT_FOUND"
	ErrCodeFileCorrupted  ErrorCode = "FILE_CORRUPTED"

	// Editor surface errors
	ErrCodeInsertFailed     ErrorCode = "INSERT_FAILED"
	ErrCodeClipboardFailure ErrorCode = "CLIPBOARD_FAILURE"

	// Resolution
	ErrCodeCancelled ErrorCode = "CANCELLED"
)

// ErrorSeverity represents the severity level of an error
type ErrorSeverity string

const (
	SeverityInfo     ErrorSeverity = "info"
	SeverityWarning  ErrorSeverity = "warning"
	SeverityError    ErrorSeverity = "error"
	SeverityCritical ErrorSeverity = "critical"
)

// ErrorCategory represents the category of an error
type ErrorCategory string

const (
	CategoryValidation ErrorCategory = "validation"
	CategoryService    ErrorCategory = "service"
	CategoryStorage    ErrorCategory = "storage"
	CategoryEditor     ErrorCategory = "editor"
	CategorySystem     ErrorCategory = "system"
)

// AppError represents a standardized application error
type AppError struct {
	Code      ErrorCode              `json:"code"`
	Message   string                 `json:"message"`
	Details   string                 `json:"details,omitempty"`
	Severity  ErrorSeverity          `json:"severity"`
	Category  ErrorCategory          `json:"category"`
	Cause     error                  `json:"-"`
	Context   map[string]interface{} `json:"context,omitempty"`
	Timestamp time.Time              `json:"timestamp"`
}

// Error implements the error interface
func (e *AppError) Error() string {
	msg := fmt.Sprintf("%s: %s", e.Code, e.Message)
	if e.Details != "" {
		msg = fmt.Sprintf("%s (%s)", msg, e.Details)
	}
	if e.Cause != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Cause)
	}
	return msg
}

// Unwrap returns the underlying error
func (e *AppError) Unwrap() error {
	return e.Cause
}

// WithContext adds context to the error
func (e *AppError) WithContext(key string, value interface{}) *AppError {
	if e.Context == nil {
		e.Context = make(map[string]interface{})
	}
	e.Context[key] = value
	return e
}

// WithDetails adds details to the error
func (e *AppError) WithDetails(details string) *AppError {
	e.Details = details
	return e
}

// NewAppError creates a new application error
func NewAppError(code ErrorCode, message string) *AppError {
	category, severity := categorizeError(code)
	return &AppError{
		Code:      code,
		Message:   message,
		Severity:  severity,
		Category:  category,
		Timestamp: time.Now(),
	}
}

// Wrap wraps an existing error with application error context
func Wrap(err error, code ErrorCode, message string) *AppError {
	appErr := NewAppError(code, message)
	appErr.Cause = err
	return appErr
}

func categorizeError(code ErrorCode) (ErrorCategory, ErrorSeverity) {
	switch code {
	case ErrCodeValidation, ErrCodeInvalidInput, ErrCodeInvalidFormat:
		return CategoryValidation, SeverityWarning

	case ErrCodeInternalError:
		return CategoryService, SeverityCritical
	case ErrCodeNotFound:
		return CategoryService, SeverityInfo
	case ErrCodeCancelled:
		return CategoryService, SeverityInfo

	case ErrCodeStorageFailure, ErrCodeFileCorrupted:
		return CategoryStorage, SeverityError
	case ErrCodeFileNotFound:
		return CategoryStorage, SeverityInfo

	case ErrCodeInsertFailed, ErrCodeClipboardFailure:
		return CategoryEditor, SeverityError

	default:
		return CategorySystem, SeverityError
	}
}

// IsAppError checks if an error is or wraps an AppError
func IsAppError(err error) bool {
	var appErr *AppError
	return stderrors.As(err, &appErr)
}

// GetAppError extracts an AppError from an error chain, or converts it to one
func GetAppError(err error) *AppError {
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr
	}
	return Wrap(err, ErrCodeInternalError, "Internal error occurred")
}

// HasCode reports whether err carries the given code
func HasCode(err error, code ErrorCode) bool {
	var appErr *AppError
	return stderrors.As(err, &appErr) && appErr.Code == code
}

func ValidationError(message string) *AppError {
	return NewAppError(ErrCodeValidation, message)
}

func NotFoundError(resource string) *AppError {
	return NewAppError(ErrCodeNotFound, fmt.Sprintf("%s not found", resource))
}

func InternalError(message string) *AppError {
	return NewAppError(ErrCodeInternalError, message)
}

func StorageError(operation string, err error) *AppError {
	return Wrap(err, ErrCodeStorageFailure, fmt.Sprintf("Storage operation failed: %s", operation))
}

func InsertError(target string, err error) *AppError {
	return Wrap(err, ErrCodeInsertFailed, fmt.Sprintf("Failed to insert into %s", target))
}

func ClipboardError(err error) *AppError {
	return Wrap(err, ErrCodeClipboardFailure, "Failed to copy to clipboard")
}
