package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/w3f/edunews/internal/engine"
)

// Exit codes for CLI commands.
const (
	ExitSuccess      = 0 // Successful execution
	ExitFailure      = 1 // Any other failure (failed scenarios, inconsistent audit, ...)
	ExitInvalidInput = 2 // Malformed input or command usage
	ExitUnreachable  = 3 // A ledger could not be reached
	ExitNotFound     = 4 // The requested article or unit does not exist
	ExitPartial      = 5 // A registration stopped after finalized writes; resume it
)

// ExitCommandError is kept for command usage errors; it shares the invalid
// input code.
const ExitCommandError = ExitInvalidInput

// ExitError represents an error with a specific exit code.
// Use this to return errors with meaningful exit codes from CLI commands.
type ExitError struct {
	Code    int    // Exit code
	Message string // Error message
	Err     error  // Underlying error (optional)

	// Reported is set when the error was already written to the command
	// output, so main must not print it again.
	Reported bool
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
// Returns ExitSuccess for nil and ExitFailure if the error is not an
// ExitError.
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

// IsReported reports whether err was already written to the command output.
func IsReported(err error) bool {
	var exitErr *ExitError
	return errors.As(err, &exitErr) && exitErr.Reported
}

// ExitCodeFor maps an engine error to the exit code of its category. A
// partial write has its own code whatever stopped it.
func ExitCodeFor(err error) int {
	if engine.IsPartialWrite(err) {
		return ExitPartial
	}
	switch engine.Classify(err) {
	case engine.CategoryInvalidInput:
		return ExitInvalidInput
	case engine.CategoryUnreachable:
		return ExitUnreachable
	case engine.CategoryNotFound:
		return ExitNotFound
	default:
		return ExitFailure
	}
}

// OutputFormatter handles JSON vs text output for CLI commands.
type OutputFormatter struct {
	Format    string
	Writer    io.Writer
	ErrWriter io.Writer // Separate writer for verbose/diagnostic output (defaults to Writer)
	Verbose   bool
}

// CLIResponse is the standard JSON response format for CLI output.
type CLIResponse struct {
	Status  string      `json:"status"`             // "ok" or "error"
	Data    interface{} `json:"data"`               // success payload, null when absent
	Error   *CLIError   `json:"error,omitempty"`    // error details
	TraceID string      `json:"trace_id,omitempty"` // flow token of a registration
}

// CLIError is the error structure for CLI responses.
type CLIError struct {
	Code    string      `json:"code"`              // engine error code, e.g. "NOT_FOUND"
	Message string      `json:"message"`           // human-readable message
	Details interface{} `json:"details,omitempty"` // additional context
}

// Success outputs a successful result in the configured format.
func (f *OutputFormatter) Success(data interface{}) error {
	if f.Format == "json" {
		return json.NewEncoder(f.Writer).Encode(CLIResponse{
			Status: "ok",
			Data:   data,
		})
	}

	// Human-readable text output
	fmt.Fprintln(f.Writer, data)
	return nil
}

// Result outputs data as JSON, or the text produced by render.
func (f *OutputFormatter) Result(data interface{}, render func(Theme) string) error {
	return f.Traced("", data, render)
}

// Traced is Result with the flow token that produced data.
func (f *OutputFormatter) Traced(traceID string, data interface{}, render func(Theme) string) error {
	if f.Format == "json" {
		return json.NewEncoder(f.Writer).Encode(CLIResponse{
			Status:  "ok",
			Data:    data,
			TraceID: traceID,
		})
	}
	_, err := io.WriteString(f.Writer, render(NewTheme(f.Writer)))
	return err
}

// Error outputs an error in the configured format.
func (f *OutputFormatter) Error(code, message string, details interface{}) error {
	if f.Format == "json" {
		return json.NewEncoder(f.Writer).Encode(CLIResponse{
			Status: "error",
			Error: &CLIError{
				Code:    code,
				Message: message,
				Details: details,
			},
		})
	}

	// Human-readable error
	theme := NewTheme(f.Writer)
	fmt.Fprintf(f.Writer, "%s %s\n", theme.Fail.Render("Error ["+code+"]:"), message)
	if f.Verbose && details != nil {
		fmt.Fprintf(f.Writer, "Details: %v\n", details)
	}
	return nil
}

// Fail reports an engine error and returns the ExitError carrying the
// exit code of its category.
func (f *OutputFormatter) Fail(message string, err error) error {
	code := string(engine.Code(err))
	if code == "" {
		code = "ERROR"
	}
	var details interface{}
	var pwe *engine.PartialWriteError
	if errors.As(err, &pwe) {
		details = partialDetails(pwe)
	}
	if outErr := f.Error(code, fmt.Sprintf("%s: %v", message, err), details); outErr != nil {
		return outErr
	}
	return &ExitError{Code: ExitCodeFor(err), Message: message, Err: err, Reported: true}
}

// PartialDetails describes the finalized writes of a stopped registration
// and how to resume it.
type PartialDetails struct {
	Phase        string `json:"phase"`
	CollectionID uint32 `json:"collection_id"`
	ItemID       uint32 `json:"item_id,omitempty"`
	HasItem      bool   `json:"has_item"`
	FlowToken    string `json:"flow_token"`
	Resume       string `json:"resume"`
}

func partialDetails(e *engine.PartialWriteError) PartialDetails {
	resume := fmt.Sprintf("--resume-phase %s --collection %d", e.Phase, e.ContainerID)
	if e.HasUnit {
		resume += fmt.Sprintf(" --item %d", e.UnitID)
	}
	return PartialDetails{
		Phase:        string(e.Phase),
		CollectionID: e.ContainerID,
		ItemID:       e.UnitID,
		HasItem:      e.HasUnit,
		FlowToken:    e.FlowToken,
		Resume:       resume,
	}
}

// VerboseLog outputs a message only if verbose mode is enabled.
// Uses ErrWriter if set, otherwise falls back to Writer.
// When format is JSON, verbose logs go to ErrWriter to avoid corrupting JSON output.
func (f *OutputFormatter) VerboseLog(format string, args ...interface{}) {
	if !f.Verbose {
		return
	}
	w := f.ErrWriter
	if w == nil {
		w = f.Writer
	}
	fmt.Fprintf(w, format+"\n", args...)
}

// GetErrWriter returns the appropriate writer for diagnostic output.
// Returns ErrWriter if set, otherwise Writer.
func (f *OutputFormatter) GetErrWriter() io.Writer {
	if f.ErrWriter != nil {
		return f.ErrWriter
	}
	return f.Writer
}
