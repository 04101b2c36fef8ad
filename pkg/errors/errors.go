package errors

import (
	"errors"
	"fmt"
	"strings"
)

// ErrorCode categorizes errors
type ErrorCode string

const (
	ErrCodeInputNotFound     ErrorCode = "INPUT_NOT_FOUND"
	ErrCodeProbeFailed       ErrorCode = "PROBE_FAILED"
	ErrCodeEngineUnavailable ErrorCode = "ENGINE_UNAVAILABLE"
	ErrCodeStageExecution    ErrorCode = "STAGE_EXECUTION_ERROR"
	ErrCodeOutputCollision   ErrorCode = "OUTPUT_COLLISION"
	ErrCodeOutputWriteFailed ErrorCode = "OUTPUT_WRITE_FAILED"
	ErrCodeFFmpeg            ErrorCode = "FFMPEG_ERROR"
	ErrCodeValidation        ErrorCode = "VALIDATION_ERROR"
	ErrCodeTimeout           ErrorCode = "TIMEOUT_ERROR"
	ErrCodeCanceled          ErrorCode = "CANCELED_ERROR"
)

// Sentinels for errors.Is. Any PrepError with the same code matches.
var (
	ErrInputNotFound     = &PrepError{Code: ErrCodeInputNotFound, Message: "input not found"}
	ErrProbeFailed       = &PrepError{Code: ErrCodeProbeFailed, Message: "probe failed"}
	ErrEngineUnavailable = &PrepError{Code: ErrCodeEngineUnavailable, Message: "audio engine unavailable"}
	ErrStageExecution    = &PrepError{Code: ErrCodeStageExecution, Message: "stage execution failed"}
	ErrOutputCollision   = &PrepError{Code: ErrCodeOutputCollision, Message: "output collides with an existing path"}
	ErrOutputWriteFailed = &PrepError{Code: ErrCodeOutputWriteFailed, Message: "output write failed"}
	ErrValidation        = &PrepError{Code: ErrCodeValidation, Message: "validation failed"}
	ErrTimeout           = &PrepError{Code: ErrCodeTimeout, Message: "engine call timed out"}
	ErrCanceled          = &PrepError{Code: ErrCodeCanceled, Message: "canceled"}
)

// PrepError is the base structured error
type PrepError struct {
	Code    ErrorCode
	Message string
	Cause   error
	Fields  map[string]interface{}
}

func (e *PrepError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

func (e *PrepError) Unwrap() error {
	return e.Cause
}

// Is matches any *PrepError carrying the same code.
func (e *PrepError) Is(target error) bool {
	t, ok := target.(*PrepError)
	if !ok {
		return false
	}
	return t.Code == e.Code
}

// New creates a coded error.
func New(code ErrorCode, message string, cause error) *PrepError {
	return &PrepError{Code: code, Message: message, Cause: cause}
}

// NewInputNotFound reports a missing input path.
func NewInputNotFound(path string, cause error) *PrepError {
	return &PrepError{
		Code:    ErrCodeInputNotFound,
		Message: fmt.Sprintf("input %q does not exist", path),
		Cause:   cause,
		Fields:  map[string]interface{}{"path": path},
	}
}

// NewInputNotRegular reports an input that exists but is not a regular file,
// such as a directory.
func NewInputNotRegular(path string) *PrepError {
	return &PrepError{
		Code:    ErrCodeInputNotFound,
		Message: fmt.Sprintf("input %q is not a regular file", path),
		Fields:  map[string]interface{}{"path": path},
	}
}

// NewEngineUnavailable reports a missing or unusable ffmpeg/ffprobe.
func NewEngineUnavailable(message string, cause error) *PrepError {
	return &PrepError{Code: ErrCodeEngineUnavailable, Message: message, Cause: cause}
}

// NewOutputWriteFailed reports a failure writing the final output.
func NewOutputWriteFailed(path string, cause error) *PrepError {
	return &PrepError{
		Code:    ErrCodeOutputWriteFailed,
		Message: fmt.Sprintf("cannot write output %q", path),
		Cause:   cause,
		Fields:  map[string]interface{}{"path": path},
	}
}

// NewOutputCollision reports an output path that would clobber another file.
func NewOutputCollision(input, output string) *PrepError {
	return &PrepError{
		Code:    ErrCodeOutputCollision,
		Message: fmt.Sprintf("output %q collides with %q", output, input),
		Fields:  map[string]interface{}{"input": input, "output": output},
	}
}

// NewProbeFailed wraps a probe failure. Callers treat it as diagnostic only.
func NewProbeFailed(path string, cause error) *PrepError {
	return &PrepError{
		Code:    ErrCodeProbeFailed,
		Message: fmt.Sprintf("probe %q failed", path),
		Cause:   cause,
	}
}

// StageExecutionError is fatal to the job it occurred in.
type StageExecutionError struct {
	PrepError
	Stage      string
	Diagnostic string
}

func NewStageExecutionError(stage, diagnostic string, cause error) *StageExecutionError {
	return &StageExecutionError{
		PrepError: PrepError{
			Code:    ErrCodeStageExecution,
			Message: "stage execution failed",
			Cause:   cause,
		},
		Stage:      stage,
		Diagnostic: diagnostic,
	}
}

func (e *StageExecutionError) Error() string {
	msg := fmt.Sprintf("[%s] stage %s failed", e.Code, e.Stage)
	if e.Diagnostic != "" {
		msg += ": " + e.Diagnostic
	}
	if e.Cause != nil {
		msg += fmt.Sprintf(" (%v)", e.Cause)
	}
	return msg
}

// FFmpegError represents an FFmpeg execution failure
type FFmpegError struct {
	PrepError
	Args     []string
	ExitCode int
	Stderr   string
}

func NewFFmpegError(message string, args []string, exitCode int, stderr string, cause error) *FFmpegError {
	return &FFmpegError{
		PrepError: PrepError{
			Code:    ErrCodeFFmpeg,
			Message: message,
			Cause:   cause,
		},
		Args:     args,
		ExitCode: exitCode,
		Stderr:   stderr,
	}
}

func (e *FFmpegError) Error() string {
	return fmt.Sprintf("[%s] %s (exit=%d, stderr=%q): %v",
		e.Code, e.Message, e.ExitCode, truncate(e.Stderr, 200), e.Cause)
}

// ValidationError represents input validation failure
type ValidationError struct {
	PrepError
	Field string
	Value interface{}
}

func NewValidationError(field string, value interface{}, message string) *ValidationError {
	return &ValidationError{
		PrepError: PrepError{
			Code:    ErrCodeValidation,
			Message: message,
		},
		Field: field,
		Value: value,
	}
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("[%s] field=%s value=%v: %s", e.Code, e.Field, e.Value, e.Message)
}

// Diagnostic extracts the most useful engine text from err: the stage
// diagnostic, else the tail of ffmpeg's stderr, else the error string.
func Diagnostic(err error) string {
	if err == nil {
		return ""
	}
	if se, ok := As[*StageExecutionError](err); ok && se.Diagnostic != "" {
		return se.Diagnostic
	}
	if fe, ok := As[*FFmpegError](err); ok {
		if s := Tail(fe.Stderr, 400); s != "" {
			return s
		}
	}
	return err.Error()
}

// CodeOf returns the code of the first PrepError in err's chain.
func CodeOf(err error) (ErrorCode, bool) {
	var pe *PrepError
	if errors.As(err, &pe) {
		return pe.Code, true
	}
	if se, ok := As[*StageExecutionError](err); ok {
		return se.Code, true
	}
	if fe, ok := As[*FFmpegError](err); ok {
		return fe.Code, true
	}
	if ve, ok := As[*ValidationError](err); ok {
		return ve.Code, true
	}
	return "", false
}

// Is enables errors.Is checks
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As enables errors.As checks
func As[T error](err error) (T, bool) {
	var target T
	ok := errors.As(err, &target)
	return target, ok
}

// Tail keeps the last n bytes of trimmed s, cut at a line boundary when possible.
func Tail(s string, n int) string {
	s = strings.TrimSpace(s)
	if len(s) <= n {
		return s
	}
	s = s[len(s)-n:]
	if i := strings.IndexByte(s, '\n'); i >= 0 && i < len(s)-1 {
		s = s[i+1:]
	}
	return "..." + s
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
