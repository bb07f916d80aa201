package fault

import (
	"errors"
	"fmt"
	"net/http"
)

const DefaultMessage = "something went wrong"

type Kind string

const (
	KindValidation Kind = "validation"
	KindNotFound   Kind = "not_found"
	KindSchema     Kind = "schema"
	KindTimeout    Kind = "timeout"
	KindInternal   Kind = "internal"
)

// Error is the single error type produced by the dispatch pipeline. Status is
// the HTTP status the dispatcher answers with.
type Error struct {
	Kind    Kind
	Status  int
	Message string
	cause   error
}

func (e *Error) Error() string {
	if e.Message == "" {
		return DefaultMessage
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.cause
}

func (e *Error) StatusCode() int {
	if e.Status == 0 {
		return http.StatusInternalServerError
	}
	return e.Status
}

// Wrap attaches cause to e and returns e.
func (e *Error) Wrap(cause error) *Error {
	e.cause = cause
	return e
}

func Validation(status int, format string, args ...any) *Error {
	if status == 0 {
		status = http.StatusBadRequest
	}
	return &Error{Kind: KindValidation, Status: status, Message: fmt.Sprintf(format, args...)}
}

func NotFound(format string, args ...any) *Error {
	return &Error{Kind: KindNotFound, Status: http.StatusNotFound, Message: fmt.Sprintf(format, args...)}
}

// Schema reports a deployment defect in the declarative metadata.
func Schema(format string, args ...any) *Error {
	return &Error{Kind: KindSchema, Status: http.StatusInternalServerError, Message: fmt.Sprintf(format, args...)}
}

func Timeout(format string, args ...any) *Error {
	return &Error{Kind: KindTimeout, Status: http.StatusGatewayTimeout, Message: fmt.Sprintf(format, args...)}
}

// Internal reports an unexpected failure, such as a recovered panic. The
// client only sees DefaultMessage.
func Internal(cause error) *Error {
	return &Error{Kind: KindInternal, Status: http.StatusInternalServerError, Message: DefaultMessage, cause: cause}
}

// StatusOf returns the status carried by err, or 500.
func StatusOf(err error) int {
	var fe *Error
	if errors.As(err, &fe) {
		return fe.StatusCode()
	}
	var sc interface{ StatusCode() int }
	if errors.As(err, &sc) && sc.StatusCode() > 0 {
		return sc.StatusCode()
	}
	return http.StatusInternalServerError
}

// MessageOf returns the message carried by err, or DefaultMessage.
func MessageOf(err error) string {
	if err == nil || err.Error() == "" {
		return DefaultMessage
	}
	return err.Error()
}

// Body is the JSON error body written by the dispatcher.
func Body(err error) map[string]any {
	return map[string]any{
		"message": MessageOf(err),
		"status":  StatusOf(err),
	}
}

func Is(err error, kind Kind) bool {
	var fe *Error
	return errors.As(err, &fe) && fe.Kind == kind
}
