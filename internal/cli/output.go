package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
)

// Exit codes for CLI commands.
const (
	ExitSuccess      = 0 // successful execution
	ExitFailure      = 1 // processing failure (markers missing, write failed, ...)
	ExitCommandError = 2 // command error (bad flags, unreadable profile file, ...)
)

// Command-level error codes. Processing errors carry their own codes
// (archive.Code); these cover everything outside the transactor.
const (
	ErrCodeConfig  = "CONFIG_ERROR"
	ErrCodeJournal = "JOURNAL_ERROR"
)

// ExitError is an error with a specific process exit code.
type ExitError struct {
	Code    int
	Message string
	Err     error
}

func (e *ExitError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *ExitError) Unwrap() error {
	return e.Err
}

// NewExitError creates an ExitError with the given code and message.
func NewExitError(code int, message string) *ExitError {
	return &ExitError{Code: code, Message: message}
}

// GetExitCode extracts the exit code from an error.
// Returns ExitFailure when the error is not an ExitError.
func GetExitCode(err error) int {
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}
	return ExitFailure
}

// OutputFormatter handles JSON vs text output for CLI commands.
type OutputFormatter struct {
	Format    string
	Writer    io.Writer
	ErrWriter io.Writer // diagnostics; kept off Writer so JSON output stays parseable
	Verbose   bool
}

// Response is the JSON envelope for command output.
type Response struct {
	Status string         `json:"status"` // "ok" or "error"
	Data   any            `json:"data,omitempty"`
	Error  *ResponseError `json:"error,omitempty"`
}

// ResponseError carries error details in JSON output.
type ResponseError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Success outputs a successful result in the configured format.
func (f *OutputFormatter) Success(data any) error {
	if f.Format == "json" {
		return json.NewEncoder(f.Writer).Encode(Response{Status: "ok", Data: data})
	}
	fmt.Fprintln(f.Writer, data)
	return nil
}

// Error outputs an error in the configured format.
func (f *OutputFormatter) Error(code, message string) error {
	if f.Format == "json" {
		return json.NewEncoder(f.Writer).Encode(Response{
			Status: "error",
			Error:  &ResponseError{Code: code, Message: message},
		})
	}
	fmt.Fprintf(f.Writer, "Error [%s]: %s\n", code, message)
	return nil
}

// Textf writes formatted text output, suppressed in JSON mode.
func (f *OutputFormatter) Textf(format string, args ...any) {
	if f.Format == "json" {
		return
	}
	fmt.Fprintf(f.Writer, format, args...)
}

// VerboseLog outputs a diagnostic message when verbose mode is enabled.
func (f *OutputFormatter) VerboseLog(format string, args ...any) {
	if !f.Verbose {
		return
	}
	w := f.ErrWriter
	if w == nil {
		w = f.Writer
	}
	fmt.Fprintf(w, format+"\n", args...)
}
