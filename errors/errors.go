package errors

import (
	"errors"
	"fmt"
	"net/http"
	"runtime"
	"strings"
)

// ErrorType represents the type of error
type ErrorType string

const (
	ErrorTypeValidation   ErrorType = "validation"
	ErrorTypeNotFound     ErrorType = "not_found"
	ErrorTypeForbidden    ErrorType = "forbidden"
	ErrorTypePrecondition ErrorType = "precondition"

	// Collaborator failures surfaced while wiring a plugin.
	ErrorTypeConfig   ErrorType = "config"
	ErrorTypeTemplate ErrorType = "template"
	ErrorTypeDatabase ErrorType = "database"

	ErrorTypeInternal ErrorType = "internal"
	ErrorTypeUnknown  ErrorType = "unknown"
)

const maxStackDepth = 32

// Frame is a single call site captured with an error.
type Frame struct {
	File     string `json:"file"`
	Line     int    `json:"line"`
	Function string `json:"function"`
}

func (f Frame) String() string {
	return fmt.Sprintf("%s:%d %s", f.File, f.Line, f.Function)
}

// AppError represents a structured application error
type AppError struct {
	Type       ErrorType      `json:"type"`
	Code       string         `json:"code"`
	Message    string         `json:"message"`
	Details    map[string]any `json:"details,omitempty"`
	InnerError error          `json:"-"`
	Stack      []Frame        `json:"-"`
	HTTPStatus int            `json:"-"`
}

// Error implements the error interface
func (e *AppError) Error() string {
	msg := e.Message
	if msg == "" {
		msg = string(e.Type)
	}
	if e.InnerError != nil {
		return msg + ": " + e.InnerError.Error()
	}
	return msg
}

// Unwrap returns the inner error
func (e *AppError) Unwrap() error {
	return e.InnerError
}

// Is checks if this error is of a specific type
func (e *AppError) Is(target error) bool {
	if targetApp, ok := target.(*AppError); ok {
		return e.Type == targetApp.Type && (targetApp.Code == "" || targetApp.Code == e.Code)
	}
	return false
}

// WithCode sets the error code
func (e *AppError) WithCode(code string) *AppError {
	e.Code = code
	return e
}

// WithDetail adds a detail to the error
func (e *AppError) WithDetail(key string, value any) *AppError {
	if e.Details == nil {
		e.Details = make(map[string]any)
	}
	e.Details[key] = value
	return e
}

// WithHTTPStatus sets the HTTP status code
func (e *AppError) WithHTTPStatus(status int) *AppError {
	e.HTTPStatus = status
	return e
}

// Location returns the call site the error was created at.
func (e *AppError) Location() (Frame, bool) {
	if len(e.Stack) == 0 {
		return Frame{}, false
	}
	return e.Stack[0], true
}

func newError(errType ErrorType, message string, inner error, status int) *AppError {
	return &AppError{
		Type:       errType,
		Code:       string(errType),
		Message:    message,
		InnerError: inner,
		HTTPStatus: status,
		Stack:      CaptureStack(2),
	}
}

// New creates a new AppError
func New(errType ErrorType, message string) *AppError {
	return newError(errType, message, nil, http.StatusInternalServerError)
}

// Wrap wraps err with a typed message. Returns nil for a nil err.
func Wrap(err error, errType ErrorType, message string) *AppError {
	if err == nil {
		return nil
	}
	return newError(errType, message, err, statusFor(errType))
}

func NewValidation(message string) *AppError {
	return newError(ErrorTypeValidation, message, nil, http.StatusBadRequest)
}

func NewNotFound(resource string, id any) *AppError {
	return newError(ErrorTypeNotFound, fmt.Sprintf("%s %v not found", resource, id), nil, http.StatusNotFound).
		WithDetail("resource", resource).
		WithDetail("id", id)
}

func NewForbidden(message string) *AppError {
	return newError(ErrorTypeForbidden, message, nil, http.StatusForbidden)
}

func NewPrecondition(message string) *AppError {
	return newError(ErrorTypePrecondition, message, nil, http.StatusNotFound)
}

func NewInternal(message string) *AppError {
	return newError(ErrorTypeInternal, message, nil, http.StatusInternalServerError)
}

// FromError converts a standard error to AppError
func FromError(err error) *AppError {
	if err == nil {
		return nil
	}

	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr
	}

	return &AppError{
		Type:       ErrorTypeUnknown,
		Code:       string(ErrorTypeUnknown),
		Message:    err.Error(),
		HTTPStatus: http.StatusInternalServerError,
	}
}

// HTTPStatus returns the status attached to err, or 500.
func HTTPStatus(err error) int {
	var appErr *AppError
	if errors.As(err, &appErr) && appErr.HTTPStatus > 0 {
		return appErr.HTTPStatus
	}
	return http.StatusInternalServerError
}

// StackOf returns the stack captured by the innermost AppError in err's chain.
func StackOf(err error) []Frame {
	var stack []Frame
	for err != nil {
		if appErr, ok := err.(*AppError); ok && len(appErr.Stack) > 0 {
			stack = appErr.Stack
		}
		err = errors.Unwrap(err)
	}
	return stack
}

// IsType reports whether any AppError in err's chain has the given type.
func IsType(err error, errType ErrorType) bool {
	return errors.Is(err, &AppError{Type: errType})
}

func statusFor(errType ErrorType) int {
	switch errType {
	case ErrorTypeValidation:
		return http.StatusBadRequest
	case ErrorTypeNotFound, ErrorTypePrecondition:
		return http.StatusNotFound
	case ErrorTypeForbidden:
		return http.StatusForbidden
	default:
		return http.StatusInternalServerError
	}
}

// CaptureStack captures the call stack. skip 0 starts at the caller of CaptureStack.
func CaptureStack(skip int) []Frame {
	pcs := make([]uintptr, maxStackDepth)
	n := runtime.Callers(skip+2, pcs)
	frames := runtime.CallersFrames(pcs[:n])

	var stack []Frame
	for {
		frame, more := frames.Next()
		funcName := frame.Function
		if idx := strings.LastIndex(funcName, "/"); idx >= 0 {
			funcName = funcName[idx+1:]
		}
		if funcName != "" && !strings.HasPrefix(funcName, "runtime.") {
			stack = append(stack, Frame{File: frame.File, Line: frame.Line, Function: funcName})
		}
		if !more {
			break
		}
	}
	return stack
}

// FormatStack renders frames one per line, numbered like a trace.
func FormatStack(stack []Frame) string {
	var b strings.Builder
	for i, f := range stack {
		fmt.Fprintf(&b, "#%d %s\n", i, f.String())
	}
	return b.String()
}
