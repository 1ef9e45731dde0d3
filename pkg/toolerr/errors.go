// Package toolerr defines the structured error taxonomy shared by the source
// registry, statement compiler, tool registry, invocation engine and transports.
package toolerr

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies an error for callers and transports.
type Kind string

// Error kinds.
const (
	KindConfig           Kind = "ConfigError"
	KindInvalidSource    Kind = "InvalidSource"
	KindDuplicateSource  Kind = "DuplicateSource"
	KindCompile          Kind = "CompileError"
	KindConnection       Kind = "ConnectionError"
	KindToolNotFound     Kind = "ToolNotFound"
	KindToolsetNotFound  Kind = "ToolsetNotFound"
	KindInvalidArgument  Kind = "InvalidArgument"
	KindTimeout          Kind = "TimeoutError"
	KindBackendExecution Kind = "BackendExecutionError"
	KindInternal         Kind = "Internal"
)

// Error is a classified error. Param is set for InvalidArgument errors.
type Error struct {
	Kind    Kind
	Message string
	Param   string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil && e.Message == "" {
		return fmt.Sprintf("%s: %v", e.Kind, e.Err)
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches any *Error of the same kind, so errors.Is(err, toolerr.ErrTimeout)
// works through wrapping.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Message == "" && t.Param == "" && t.Err == nil && t.Kind == e.Kind
}

// Detail returns the human-readable part of the error without the kind prefix.
func (e *Error) Detail() string {
	switch {
	case e.Message != "" && e.Err != nil:
		return e.Message + ": " + e.Err.Error()
	case e.Message != "":
		return e.Message
	case e.Err != nil:
		return e.Err.Error()
	default:
		return string(e.Kind)
	}
}

// Sentinels for errors.Is comparisons.
var (
	ErrConfig           = &Error{Kind: KindConfig}
	ErrInvalidSource    = &Error{Kind: KindInvalidSource}
	ErrDuplicateSource  = &Error{Kind: KindDuplicateSource}
	ErrCompile          = &Error{Kind: KindCompile}
	ErrConnection       = &Error{Kind: KindConnection}
	ErrToolNotFound     = &Error{Kind: KindToolNotFound}
	ErrToolsetNotFound  = &Error{Kind: KindToolsetNotFound}
	ErrInvalidArgument  = &Error{Kind: KindInvalidArgument}
	ErrTimeout          = &Error{Kind: KindTimeout}
	ErrBackendExecution = &Error{Kind: KindBackendExecution}
)

// New creates a classified error with a formatted message.
func New(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Wrap classifies err. A nil err returns nil.
func Wrap(kind Kind, err error, format string, args ...any) error {
	if err == nil {
		return nil
	}
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...), Err: err}
}

// InvalidArgument creates an InvalidArgument error naming the offending parameter.
func InvalidArgument(param, format string, args ...any) *Error {
	return &Error{
		Kind:    KindInvalidArgument,
		Param:   param,
		Message: fmt.Sprintf("parameter %q: %s", param, fmt.Sprintf(format, args...)),
	}
}

// KindOf returns the kind of the first *Error in err's chain, or KindInternal.
func KindOf(err error) Kind {
	var te *Error
	if errors.As(err, &te) {
		return te.Kind
	}
	return KindInternal
}

// HTTPStatus maps an error to the status code returned by the REST transport.
func HTTPStatus(err error) int {
	switch KindOf(err) {
	case KindToolNotFound, KindToolsetNotFound:
		return http.StatusNotFound
	case KindInvalidArgument:
		return http.StatusBadRequest
	case KindConnection:
		return http.StatusBadGateway
	case KindTimeout:
		return http.StatusGatewayTimeout
	case KindBackendExecution:
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}
