package plan

import (
	"errors"
	"fmt"
	"strings"
)

// Code identifies which admission or ordering rule rejected a request.
type Code string

const (
	CodeEmptyRequest         Code = "EMPTY_REQUEST"
	CodeExclusivityViolation Code = "EXCLUSIVITY_VIOLATION"
	CodeUnknownAction        Code = "UNKNOWN_ACTION"
	CodeUnknownDependency    Code = "UNKNOWN_DEPENDENCY"
	CodeCycleDetected        Code = "CYCLE_DETECTED"
)

var (
	ErrEmptyRequest         = errors.New("empty request")
	ErrExclusivityViolation = errors.New("exclusivity violation")
	ErrUnknownAction        = errors.New("unknown action")
	ErrUnknownDependency    = errors.New("unknown dependency")
	ErrCycleDetected        = errors.New("cycle detected")
)

var sentinels = map[Code]error{
	CodeEmptyRequest:         ErrEmptyRequest,
	CodeExclusivityViolation: ErrExclusivityViolation,
	CodeUnknownAction:        ErrUnknownAction,
	CodeUnknownDependency:    ErrUnknownDependency,
	CodeCycleDetected:        ErrCycleDetected,
}

// Error is the single failure returned when a plan cannot be built. No
// partial plan accompanies it.
type Error struct {
	Code    Code
	Actions []string // offending action names, if any
	Msg     string
}

func newError(code Code, actions []string, format string, args ...any) *Error {
	return &Error{Code: code, Actions: actions, Msg: fmt.Sprintf(format, args...)}
}

func (e *Error) Error() string {
	return e.Msg
}

// Is matches the sentinel for the error's code, so callers can write
// errors.Is(err, plan.ErrCycleDetected).
func (e *Error) Is(target error) bool {
	return sentinels[e.Code] == target
}

func (e *Error) ErrorCode() string {
	return string(e.Code)
}

func (e *Error) FormatStderr() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "error: %s\n", e.Msg)
	if len(e.Actions) > 0 {
		fmt.Fprintf(&sb, "actions: %s\n", strings.Join(e.Actions, ", "))
	}
	fmt.Fprintf(&sb, "code: %s\n", e.Code)
	return sb.String()
}
