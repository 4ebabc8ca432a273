package errors

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/rs/zerolog"
)

// ErrorHandler provides interface-specific error handling
type ErrorHandler interface {
	HandleError(err error) error
	FormatError(err error) string
}

// CLIErrorHandler handles errors for the command line
type CLIErrorHandler struct {
	Verbose bool
	Logger  zerolog.Logger
}

// NewCLIErrorHandler creates a new CLI error handler
func NewCLIErrorHandler(verbose bool, logger zerolog.Logger) *CLIErrorHandler {
	return &CLIErrorHandler{
		Verbose: verbose,
		Logger:  logger,
	}
}

// HandleError logs err and returns it formatted for terminal display
func (h *CLIErrorHandler) HandleError(err error) error {
	if err == nil {
		return nil
	}
	appErr := GetAppError(err)

	if h.Verbose {
		h.Logger.Error().
			Str("code", string(appErr.Code)).
			Str("severity", string(appErr.Severity)).
			Err(appErr.Cause).
			Msg(appErr.Message)
	}

	return fmt.Errorf("%s", h.FormatError(appErr))
}

// FormatError formats an error for CLI display
func (h *CLIErrorHandler) FormatError(err error) string {
	appErr := GetAppError(err)

	msg := appErr.Message
	if appErr.Details != "" {
		msg = fmt.Sprintf("%s (%s)", msg, appErr.Details)
	}
	if h.Verbose && appErr.Cause != nil {
		msg = fmt.Sprintf("%s: %v", msg, appErr.Cause)
	}

	switch appErr.Severity {
	case SeverityCritical:
		return fmt.Sprintf("❌ CRITICAL: %s", msg)
	case SeverityError:
		return fmt.Sprintf("❌ ERROR: %s", msg)
	case SeverityWarning:
		return fmt.Sprintf("⚠️  WARNING: %s", msg)
	case SeverityInfo:
		return fmt.Sprintf("ℹ️  INFO: %s", msg)
	default:
		return fmt.Sprintf("❌ %s", msg)
	}
}

// HTTPErrorHandler handles errors for the HTTP API
type HTTPErrorHandler struct {
	IncludeDetails bool
	Logger         zerolog.Logger
}

// NewHTTPErrorHandler creates a new HTTP error handler
func NewHTTPErrorHandler(includeDetails bool, logger zerolog.Logger) *HTTPErrorHandler {
	return &HTTPErrorHandler{
		IncludeDetails: includeDetails,
		Logger:         logger,
	}
}

// HandleError logs the error and returns it as an AppError
func (h *HTTPErrorHandler) HandleError(err error) error {
	appErr := GetAppError(err)
	h.Logger.Warn().
		Str("code", string(appErr.Code)).
		Str("severity", string(appErr.Severity)).
		Err(appErr.Cause).
		Msg(appErr.Message)
	return appErr
}

// FormatError formats an error as a JSON response body
func (h *HTTPErrorHandler) FormatError(err error) string {
	appErr := GetAppError(err)

	body := map[string]interface{}{
		"code":      appErr.Code,
		"message":   appErr.Message,
		"timestamp": appErr.Timestamp,
	}
	if h.IncludeDetails && appErr.Details != "" {
		body["details"] = appErr.Details
	}
	if h.IncludeDetails && appErr.Context != nil {
		body["context"] = appErr.Context
	}

	jsonBytes, _ := json.Marshal(map[string]interface{}{
		"success": false,
		"error":   body,
	})
	return string(jsonBytes)
}

// WriteHTTPError writes err to w with the status mapped from its code
func (h *HTTPErrorHandler) WriteHTTPError(w http.ResponseWriter, err error) {
	appErr := GetAppError(h.HandleError(err))
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(HTTPStatus(appErr))
	fmt.Fprint(w, h.FormatError(appErr))
}

// HTTPStatus maps an error to an HTTP status code
func HTTPStatus(err error) int {
	appErr := GetAppError(err)
	switch appErr.Code {
	case ErrCodeValidation, ErrCodeInvalidInput, ErrCodeInvalidFormat:
		return http.StatusBadRequest
	case ErrCodeNotFound, ErrCodeFileNotFound:
		return http.StatusNotFound
	case ErrCodeCancelled:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}
