package domain

import (
	"errors"
	"fmt"
)

var (
	ErrUploadNotFound   = errors.New("upload not found")
	ErrInvalidInput     = errors.New("invalid input")
	ErrTemporary        = errors.New("temporary failure")
	ErrModelInvocation  = errors.New("model invocation failed")
	ErrUnsupportedMedia = errors.New("unsupported media type")
)

// WrapError preserves typed semantic errors with operation context.
func WrapError(kind error, operation string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w: %w", operation, kind, err)
}

func IsKind(err error, kind error) bool {
	return errors.Is(err, kind)
}

type ModelFailureKind string

const (
	ModelFailureTransport      ModelFailureKind = "transport"
	ModelFailureAuthentication ModelFailureKind = "authentication"
	ModelFailureEnvelope       ModelFailureKind = "envelope"
)

// ModelInvocationError reports a failed call to the external language model.
// It matches ErrModelInvocation with errors.Is.
type ModelInvocationError struct {
	Kind ModelFailureKind
	Err  error
}

func NewModelInvocationError(kind ModelFailureKind, err error) *ModelInvocationError {
	return &ModelInvocationError{Kind: kind, Err: err}
}

func (e *ModelInvocationError) Error() string {
	if e == nil || e.Err == nil {
		return fmt.Sprintf("model invocation %s failure", e.kind())
	}
	return fmt.Sprintf("model invocation %s failure: %v", e.kind(), e.Err)
}

func (e *ModelInvocationError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

func (e *ModelInvocationError) Is(target error) bool {
	return target == ErrModelInvocation
}

func (e *ModelInvocationError) kind() ModelFailureKind {
	if e == nil || e.Kind == "" {
		return ModelFailureTransport
	}
	return e.Kind
}

// UserMessage is the outward, human-readable description of the failure.
func (e *ModelInvocationError) UserMessage() string {
	switch e.kind() {
	case ModelFailureAuthentication:
		return "the language model service rejected the configured credentials"
	case ModelFailureEnvelope:
		return "the language model service returned a malformed response"
	default:
		return "the language model service is unreachable"
	}
}
