package core

import (
	appErrors "hmetrics/internal/errors"
)

// Domain errors. Each is a code-only AppError, so errors.Is(err, ErrX)
// matches any AppError carrying the same code.
var (
	ErrInvalidConfig      = &appErrors.AppError{Code: appErrors.CodeConfigInvalid}
	ErrMissingField       = &appErrors.AppError{Code: appErrors.CodeMissingField}
	ErrInsufficientData   = &appErrors.AppError{Code: appErrors.CodeInsufficientData}
	ErrDataShape          = &appErrors.AppError{Code: appErrors.CodeDataShape}
	ErrOptionalDependency = &appErrors.AppError{Code: appErrors.CodeOptionalDependency}
	ErrInvalidInput       = &appErrors.AppError{Code: appErrors.CodeInvalidInput}
)

// IsConfigError reports configuration and field errors, the ones that
// surface immediately without any rendering.
func IsConfigError(err error) bool {
	code := appErrors.GetCode(err)
	return code == appErrors.CodeConfigInvalid || code == appErrors.CodeMissingField
}

// IsDataError reports errors caused by the shape or amount of input data
func IsDataError(err error) bool {
	code := appErrors.GetCode(err)
	return code == appErrors.CodeInsufficientData ||
		code == appErrors.CodeDataShape ||
		code == appErrors.CodeInvalidInput
}
