package errorbank

import (
	"errors"
	"fmt"
	"net/http"

	"google.golang.org/grpc/codes"
)

// Kind names a category of failure the client can act on.
type Kind string

const (
	// KindBadRequest is input the caller must fix before retrying.
	KindBadRequest Kind = "bad_request"
	// KindInternal is everything else; its cause stays server side.
	KindInternal Kind = "internal"
)

type mapping struct {
	status int
	code   codes.Code
}

var kinds = map[Kind]mapping{
	KindBadRequest: {status: http.StatusBadRequest, code: codes.InvalidArgument},
	KindInternal:   {status: http.StatusInternalServerError, code: codes.Internal},
}

func (k Kind) mapping() mapping {
	if m, ok := kinds[k]; ok {
		return m
	}
	return kinds[KindInternal]
}

// FieldDetail is the detail key naming the input field an error refers to.
const FieldDetail = "field"

// AppError is the error type every transport knows how to render. Only kind,
// message and details are shown to clients.
type AppError struct {
	kind    Kind
	message string
	details map[string]any
	cause   error
}

// Option configures an AppError at construction.
type Option func(*AppError)

func WithCause(err error) Option {
	return func(e *AppError) { e.cause = err }
}

func WithDetail(key string, value any) Option {
	return func(e *AppError) {
		if e.details == nil {
			e.details = map[string]any{}
		}
		e.details[key] = value
	}
}

// WithField records the input field an error refers to.
func WithField(name string) Option {
	return WithDetail(FieldDetail, name)
}

// New builds an AppError; an empty message falls back to the kind.
func New(kind Kind, message string, opts ...Option) *AppError {
	e := &AppError{kind: kind, message: message}
	if e.message == "" {
		e.message = string(kind)
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

func BadRequest(message string, opts ...Option) *AppError {
	return New(KindBadRequest, message, opts...)
}

func Internal(message string, opts ...Option) *AppError {
	return New(KindInternal, message, opts...)
}

// From finds the AppError in err's chain. Anything else becomes an opaque
// internal error wrapping err.
func From(err error) *AppError {
	if err == nil {
		return nil
	}
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr
	}
	return Internal("internal error", WithCause(err))
}

func (e *AppError) Error() string {
	switch {
	case e == nil:
		return "<nil>"
	case e.cause == nil:
		return e.message
	default:
		return fmt.Sprintf("%s: %v", e.message, e.cause)
	}
}

func (e *AppError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.cause
}

// Kind reports the category; a nil error counts as internal.
func (e *AppError) Kind() Kind {
	if e == nil {
		return KindInternal
	}
	return e.kind
}

func (e *AppError) Message() string {
	if e == nil {
		return ""
	}
	return e.message
}

func (e *AppError) Details() map[string]any {
	if e == nil {
		return nil
	}
	return e.details
}

// Field returns the offending input field recorded with WithField, or "".
func (e *AppError) Field() string {
	field, _ := e.Details()[FieldDetail].(string)
	return field
}

// StatusCode is the HTTP status for the error's kind.
func (e *AppError) StatusCode() int { return e.Kind().mapping().status }

// GRPCCode is the gRPC status code for the error's kind.
func (e *AppError) GRPCCode() codes.Code { return e.Kind().mapping().code }
