package errors

import (
	"errors"
	"fmt"

	"sanepanel/domain/core"
)

// AppError represents a structured application error
type AppError struct {
	Code    string
	Message string
	Cause   error
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

// New creates a new AppError
func New(code, message string) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
	}
}

// Wrap wraps an error with additional context
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	if appErr, ok := err.(*AppError); ok {
		return &AppError{
			Code:    appErr.Code,
			Message: message,
			Cause:   appErr,
		}
	}
	return &AppError{
		Code:    codeFor(err),
		Message: message,
		Cause:   err,
	}
}

// Wrapf wraps an error with formatted additional context
func Wrapf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return Wrap(err, fmt.Sprintf(format, args...))
}

// GetCode returns the error code if it's an AppError, otherwise maps known
// domain sentinels, otherwise returns "UNKNOWN"
func GetCode(err error) string {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	if code := codeFor(err); code != CodeInternalError {
		return code
	}
	return "UNKNOWN"
}

// Predefined error codes
const (
	CodeMalformedInput       = "MALFORMED_INPUT"
	CodeSingularDesign       = "SINGULAR_DESIGN"
	CodeIncompatibleModels   = "INCOMPATIBLE_MODELS"
	CodeInsufficientData     = "INSUFFICIENT_DATA"
	CodeNoCovariatesSelected = "NO_COVARIATES_SELECTED"
	CodeConfigInvalid        = "CONFIG_INVALID"
	CodeExportFailed         = "EXPORT_FAILED"
	CodeInternalError        = "INTERNAL_ERROR"
)

func codeFor(err error) string {
	switch {
	case errors.Is(err, core.ErrMalformedInput):
		return CodeMalformedInput
	case errors.Is(err, core.ErrSingularDesign):
		return CodeSingularDesign
	case errors.Is(err, core.ErrIncompatibleModels):
		return CodeIncompatibleModels
	case errors.Is(err, core.ErrInsufficientData):
		return CodeInsufficientData
	case errors.Is(err, core.ErrNoCovariatesSelected):
		return CodeNoCovariatesSelected
	default:
		return CodeInternalError
	}
}

// Common error constructors. Each wraps the matching domain sentinel so
// callers can branch with errors.Is across package boundaries.

func MalformedInput(message string) *AppError {
	return &AppError{Code: CodeMalformedInput, Message: message, Cause: core.ErrMalformedInput}
}

func SingularDesign(message string) *AppError {
	return &AppError{Code: CodeSingularDesign, Message: message, Cause: core.ErrSingularDesign}
}

func IncompatibleModels(message string) *AppError {
	return &AppError{Code: CodeIncompatibleModels, Message: message, Cause: core.ErrIncompatibleModels}
}

func InsufficientData(message string) *AppError {
	return &AppError{Code: CodeInsufficientData, Message: message, Cause: core.ErrInsufficientData}
}

func NoCovariatesSelected(message string) *AppError {
	return &AppError{Code: CodeNoCovariatesSelected, Message: message, Cause: core.ErrNoCovariatesSelected}
}

func ConfigInvalid(message string) *AppError {
	return New(CodeConfigInvalid, message)
}

func ExportFailed(message string, cause error) *AppError {
	return &AppError{Code: CodeExportFailed, Message: message, Cause: cause}
}

func InternalError(message string) *AppError {
	return New(CodeInternalError, message)
}
