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
	ExitFailure      = 1 // Run failure (failed publish, invalid record)
	ExitCommandError = 2 // Command error (bad flags, unreadable archive or data folder)
)

// Error codes reported in JSON responses.
const (
	CodeConfig        = "E_CONFIG"
	CodeArchive       = "E_ARCHIVE"
	CodeDataFolder    = "E_DATA_FOLDER"
	CodeInvalidRecord = "E_INVALID_RECORD"
	CodePublish       = "E_PUBLISH"
	CodeJournal       = "E_JOURNAL"
	CodeServe         = "E_SERVE"
)

// ExitError represents an error with a specific exit code.
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
// Returns ExitSuccess for nil and ExitFailure if the error is not an ExitError.
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

// CLIResponse is the standard JSON response format for CLI output.
type CLIResponse struct {
	Status string    `json:"status"`           // "ok" or "error"
	Data   any       `json:"data,omitempty"`   // success payload, or partial result on error
	Error  *CLIError `json:"error,omitempty"`  // error details
	RunID  string    `json:"run_id,omitempty"` // reconcile run correlation
}

// CLIError is the error structure for CLI responses.
type CLIError struct {
	Code    string `json:"code"`    // "E_PUBLISH", "E_ARCHIVE", etc.
	Message string `json:"message"` // human-readable message
}

// OutputFormatter handles JSON vs text output for CLI commands.
//
// In JSON mode only the final response goes to Writer; progress lines go to
// ErrWriter so stdout stays a single JSON document.
type OutputFormatter struct {
	Format    string
	Writer    io.Writer
	ErrWriter io.Writer
}

func newFormatter(opts *RootOptions, out, errOut io.Writer) *OutputFormatter {
	return &OutputFormatter{Format: opts.Format, Writer: out, ErrWriter: errOut}
}

// JSON reports whether the formatter emits JSON.
func (f *OutputFormatter) JSON() bool {
	return f.Format == "json"
}

// Progress returns the writer for line-oriented progress output.
func (f *OutputFormatter) Progress() io.Writer {
	if f.JSON() {
		if f.ErrWriter != nil {
			return f.ErrWriter
		}
		return io.Discard
	}
	return f.Writer
}

// Printf writes a text-mode line. It is a no-op in JSON mode.
func (f *OutputFormatter) Printf(format string, args ...any) {
	if f.JSON() {
		return
	}
	fmt.Fprintf(f.Writer, format, args...)
}

// Success writes data as an "ok" response. Text mode writes nothing.
func (f *OutputFormatter) Success(runID string, data any) error {
	if !f.JSON() {
		return nil
	}
	return f.encode(CLIResponse{Status: "ok", Data: data, RunID: runID})
}

// Fail reports err and returns it as an ExitError with the given code.
// In JSON mode an "error" response carrying data is written first.
func (f *OutputFormatter) Fail(exitCode int, code, message string, err error, runID string, data any) error {
	exitErr := WrapExitError(exitCode, message, err)
	if f.JSON() {
		if encErr := f.encode(CLIResponse{
			Status: "error",
			Data:   data,
			Error:  &CLIError{Code: code, Message: exitErr.Error()},
			RunID:  runID,
		}); encErr != nil {
			return encErr
		}
	}
	return exitErr
}

func (f *OutputFormatter) encode(resp CLIResponse) error {
	encoder := json.NewEncoder(f.Writer)
	encoder.SetIndent("", "  ")
	return encoder.Encode(resp)
}
