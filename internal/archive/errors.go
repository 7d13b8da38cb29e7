package archive

import (
	"errors"
	"fmt"
)

// Code categorizes processing failures.
type Code string

const (
	// CodeInvalidInput indicates a bad archive path or extension.
	CodeInvalidInput Code = "INVALID_INPUT"

	// CodeReadError indicates the archive or target resource could not be read.
	CodeReadError Code = "READ_ERROR"

	// CodeBlockNotFound indicates the marker lines are missing or unpaired.
	CodeBlockNotFound Code = "BLOCK_NOT_FOUND"

	// CodeNoMatches indicates the block holds no candidate lines. This is a
	// benign no-op outcome: the archive is left untouched.
	CodeNoMatches Code = "NO_MATCHES"

	// CodeWriteError indicates archive construction or the final replace failed.
	CodeWriteError Code = "WRITE_ERROR"
)

// ProcessError is a processing failure tied to one archive.
//
// All failures are recovered at the operation boundary: callers receive a
// code for dispatch plus a human-readable message, never a panic.
type ProcessError struct {
	// Code identifies the failure category.
	Code Code

	// Path is the archive under transformation.
	Path string

	// Message is a human-readable description.
	Message string

	// Err is the underlying cause, if any.
	Err error
}

// Error implements the error interface.
func (e *ProcessError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v (archive=%s)", e.Code, e.Message, e.Err, e.Path)
	}
	return fmt.Sprintf("%s: %s (archive=%s)", e.Code, e.Message, e.Path)
}

// Unwrap returns the underlying cause for errors.Is/As chains.
func (e *ProcessError) Unwrap() error {
	return e.Err
}

// CodeOf extracts the failure code from an error chain.
// Returns the empty Code when err carries no ProcessError.
func CodeOf(err error) Code {
	var procErr *ProcessError
	if errors.As(err, &procErr) {
		return procErr.Code
	}
	return ""
}

func newError(code Code, path, message string) *ProcessError {
	return &ProcessError{Code: code, Path: path, Message: message}
}

func wrapError(code Code, path, message string, err error) *ProcessError {
	return &ProcessError{Code: code, Path: path, Message: message, Err: err}
}
