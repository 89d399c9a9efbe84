package exitcodes

import (
	"errors"
	"fmt"
)

// Exit codes returned by yabridge-updater
const (
	Success = 0

	// GeneralError is used for anything without a more specific code
	GeneralError = 1

	// InvalidArgs indicates malformed command-line arguments
	InvalidArgs = 2
)

// ErrorWithCode is an error that carries an explicit exit code
type ErrorWithCode struct {
	Code    int
	Message string
	Cause   error
}

func (e *ErrorWithCode) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *ErrorWithCode) Unwrap() error {
	return e.Cause
}

// NewError creates an error with an explicit exit code
func NewError(code int, message string) *ErrorWithCode {
	return &ErrorWithCode{Code: code, Message: message}
}

// WrapError wraps an existing error with an exit code
func WrapError(code int, message string, cause error) *ErrorWithCode {
	return &ErrorWithCode{Code: code, Message: message, Cause: cause}
}

func InvalidArgsError(format string, args ...any) *ErrorWithCode {
	return NewError(InvalidArgs, fmt.Sprintf(format, args...))
}

// CodeForError returns the exit code for err. The outermost ErrorWithCode in the
// chain wins, which is how a failing yabridgectl's own status reaches the shell;
// errors without one map to GeneralError.
func CodeForError(err error) int {
	if err == nil {
		return Success
	}
	var ec *ErrorWithCode
	if errors.As(err, &ec) && ec.Code != Success {
		return ec.Code
	}
	return GeneralError
}
