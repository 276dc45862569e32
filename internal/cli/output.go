package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
)

// Exit codes for CLI commands.
const (
	ExitSuccess      = 0 // Successful execution
	ExitFailure      = 1 // Validation failure (invalid states, schema issues, unreadable inputs)
	ExitCommandError = 2 // Command error (run contract violation, bad flags, missing files)
)

// Error codes carried in CLI error responses.
const (
	ErrCodeGeneric     = "E001" // Generic/unknown error
	ErrCodeNotFound    = "E002" // Input path not found
	ErrCodeLoadFailed  = "E003" // Document could not be read or decoded
	ErrCodeValidation  = "E004" // Records failed validation
	ErrCodeContract    = "E005" // Run contract violated
	ErrCodeConfig      = "E006" // Configuration or profile error
	ErrCodeWriteFailed = "E007" // Artifact write error
)

// ExitError represents an error with a specific exit code.
// Use this to return errors with meaningful exit codes from CLI commands.
type ExitError struct {
	Code    int    // Exit code (use ExitFailure or ExitCommandError)
	Message string // Error message
	Err     error  // Underlying error (optional)
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

// NewExitError creates a new ExitError with the given code and message.
func NewExitError(code int, message string) *ExitError {
	return &ExitError{Code: code, Message: message}
}

// WrapExitError wraps an existing error with an exit code.
func WrapExitError(code int, message string, err error) *ExitError {
	return &ExitError{Code: code, Message: message, Err: err}
}

// GetExitCode extracts the exit code from an error.
// Returns ExitFailure (1) if the error is not an ExitError.
func GetExitCode(err error) int {
	if err == nil {
		return ExitSuccess
	}
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
	ErrWriter io.Writer // Diagnostic output; defaults to Writer
	Verbose   bool
	TraceID   string // Copied into every JSON response
}

// CLIResponse is the standard JSON response format for CLI output.
type CLIResponse struct {
	Status  string      `json:"status"`             // "ok" or "error"
	Data    interface{} `json:"data,omitempty"`     // payload
	Error   *CLIError   `json:"error,omitempty"`    // error details
	TraceID string      `json:"trace_id,omitempty"` // invocation correlation id
}

// CLIError is the error structure for CLI responses.
type CLIError struct {
	Code    string      `json:"code"`
	Message string      `json:"message"`
	Details interface{} `json:"details,omitempty"`
}

// JSON reports whether responses are machine readable.
func (f *OutputFormatter) JSON() bool {
	return f.Format == "json"
}

// Success outputs a successful result in the configured format.
func (f *OutputFormatter) Success(data interface{}) error {
	if f.JSON() {
		return f.encode(CLIResponse{Status: "ok", Data: data, TraceID: f.TraceID})
	}

	fmt.Fprintln(f.Writer, data)
	return nil
}

// Failure outputs a result payload alongside an error, so JSON consumers
// get both the report and the failure reason.
func (f *OutputFormatter) Failure(code, message string, data interface{}) error {
	return f.encode(CLIResponse{
		Status:  "error",
		Data:    data,
		Error:   &CLIError{Code: code, Message: message},
		TraceID: f.TraceID,
	})
}

// Error outputs an error in the configured format.
func (f *OutputFormatter) Error(code, message string, details interface{}) error {
	if f.JSON() {
		return f.encode(CLIResponse{
			Status:  "error",
			Error:   &CLIError{Code: code, Message: message, Details: details},
			TraceID: f.TraceID,
		})
	}

	fmt.Fprintf(f.Writer, "Error [%s]: %s\n", code, message)
	if f.Verbose && details != nil {
		fmt.Fprintf(f.Writer, "Details: %v\n", details)
	}
	return nil
}

func (f *OutputFormatter) encode(resp CLIResponse) error {
	enc := json.NewEncoder(f.Writer)
	enc.SetIndent("", "  ")
	return enc.Encode(resp)
}

// encodeRaw writes v as indented JSON without the response envelope.
func (f *OutputFormatter) encodeRaw(v interface{}) error {
	enc := json.NewEncoder(f.Writer)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return enc.Encode(v)
}

// VerboseLog outputs a message only if verbose mode is enabled.
// When format is JSON, verbose logs go to ErrWriter to avoid corrupting JSON output.
func (f *OutputFormatter) VerboseLog(format string, args ...interface{}) {
	if !f.Verbose {
		return
	}
	fmt.Fprintf(f.GetErrWriter(), format+"\n", args...)
}

// GetErrWriter returns the appropriate writer for diagnostic output.
func (f *OutputFormatter) GetErrWriter() io.Writer {
	if f.ErrWriter != nil {
		return f.ErrWriter
	}
	return f.Writer
}

// fail prints an error response and returns the matching ExitError.
func (f *OutputFormatter) fail(exit int, code, message string, err error) error {
	text := message
	if err != nil {
		text = fmt.Sprintf("%s: %v", message, err)
	}
	_ = f.Error(code, text, nil)
	return WrapExitError(exit, fmt.Sprintf("%s: %s", code, message), err)
}
