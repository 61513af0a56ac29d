package errors

import (
	stderrors "errors"
	"fmt"
)

// AppError carries a machine-readable code through the error chain. The HTTP
// layer and the CLI classify failures by Code; domain sentinels stay reachable
// through Cause.
type AppError struct {
	Code    string
	Message string
	Cause   error
}

func (e *AppError) Error() string {
	switch {
	case e.Cause == nil:
		return e.Message
	case e.Message == "":
		return e.Cause.Error()
	default:
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

// Error codes
const (
	CodeConfigInvalid    = "CONFIG_INVALID"
	CodeDatabaseError    = "DATABASE_ERROR"
	CodeNotFound         = "NOT_FOUND"
	CodeInternalError    = "INTERNAL_ERROR"
	CodeInvalidInput     = "INVALID_INPUT"
	CodeSimulationFailed = "SIMULATION_FAILED"
	CodeOutputFailed     = "OUTPUT_FAILED"

	codeUnknown = "UNKNOWN"
)

// New creates an AppError without a cause
func New(code, message string) *AppError {
	return &AppError{Code: code, Message: message}
}

// Wrap adds context to err. The code of the nearest AppError in the chain is
// kept; foreign errors become INTERNAL_ERROR.
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	code := CodeInternalError
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		code = appErr.Code
	}
	return &AppError{Code: code, Message: message, Cause: err}
}

// Wrapf is Wrap with a formatted message
func Wrapf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return Wrap(err, fmt.Sprintf(format, args...))
}

// WithCode tags err with code without changing its message
func WithCode(code string, err error) error {
	if err == nil {
		return nil
	}
	if appErr, ok := err.(*AppError); ok {
		return &AppError{Code: code, Message: appErr.Message, Cause: appErr.Cause}
	}
	return &AppError{Code: code, Cause: err}
}

// GetCode returns the code of the outermost AppError in the chain, otherwise "UNKNOWN"
func GetCode(err error) string {
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr.Code
	}
	return codeUnknown
}

// HasCode reports whether any AppError in the chain carries code
func HasCode(err error, code string) bool {
	for err != nil {
		if appErr, ok := err.(*AppError); ok && appErr.Code == code {
			return true
		}
		switch x := err.(type) {
		case interface{ Unwrap() []error }:
			for _, e := range x.Unwrap() {
				if HasCode(e, code) {
					return true
				}
			}
			return false
		case interface{ Unwrap() error }:
			err = x.Unwrap()
		default:
			return false
		}
	}
	return false
}

func ConfigInvalid(message string) *AppError {
	return New(CodeConfigInvalid, message)
}

func InvalidInput(message string) *AppError {
	return New(CodeInvalidInput, message)
}

// DatabaseError tags a storage failure
func DatabaseError(cause error, message string) *AppError {
	return &AppError{Code: CodeDatabaseError, Message: message, Cause: cause}
}

// SimulationFailed reports a trial that could not complete; the batch it belonged to has no summary
func SimulationFailed(trial int, cause error) *AppError {
	return &AppError{
		Code:    CodeSimulationFailed,
		Message: fmt.Sprintf("simulation trial %d failed", trial),
		Cause:   cause,
	}
}

// OutputFailed reports a sink that could not record a summary
func OutputFailed(sink string, cause error) *AppError {
	return &AppError{
		Code:    CodeOutputFailed,
		Message: fmt.Sprintf("%s output failed", sink),
		Cause:   cause,
	}
}
