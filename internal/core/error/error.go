package errx

import (
	"errors"
	"fmt"
)

// Kind classifies an error by the boundary it crossed.
type Kind string

const (
	// KindConnectivity marks an unreachable store or provider.
	KindConnectivity Kind = "connectivity"
	// KindStatement marks a malformed or rejected graph statement.
	KindStatement Kind = "statement"
	// KindUnknownAction marks a request for an action the catalog does not know.
	KindUnknownAction Kind = "unknown_action"
	// KindProvider marks auth, rate-limit or timeout failures from an optional provider.
	KindProvider Kind = "provider"
	// KindModelCall marks a reasoning model that failed to respond.
	KindModelCall Kind = "model_call"
	// KindClosed marks use of a resource after it was closed.
	KindClosed Kind = "closed"
)

// Sentinels usable with errors.Is to test an error's kind.
var (
	ErrConnectivity  = &Error{Kind: KindConnectivity}
	ErrStatement     = &Error{Kind: KindStatement}
	ErrUnknownAction = &Error{Kind: KindUnknownAction}
	ErrProvider      = &Error{Kind: KindProvider}
	ErrModelCall     = &Error{Kind: KindModelCall}
	ErrClosed        = &Error{Kind: KindClosed}
)

// Error wraps an underlying error with a kind and a readable message.
type Error struct {
	Kind    Kind
	Err     error
	Message string
}

// Error implements the error interface.
func (e *Error) Error() string {
	switch {
	case e.Err == nil && e.Message == "":
		return string(e.Kind) + " error"
	case e.Err == nil:
		return e.Message
	case e.Message == "":
		return e.Err.Error()
	}
	return fmt.Sprintf("%s: %v", e.Message, e.Err)
}

// Unwrap exposes the underlying error for errors.Is / errors.As support.
func (e *Error) Unwrap() error {
	return e.Err
}

// New creates a new Error with the provided information.
func New(kind Kind, err error, message string) *Error {
	return &Error{
		Kind:    kind,
		Err:     err,
		Message: message,
	}
}

// Is reports whether target is a sentinel of the same kind, or matches the wrapped error.
func (e *Error) Is(target error) bool {
	if t, ok := target.(*Error); ok && t.Err == nil && t.Message == "" {
		return t.Kind == e.Kind
	}
	return errors.Is(e.Err, target)
}

// As allows casting to Error or the wrapped error in a chain.
func (e *Error) As(target any) bool {
	if t, ok := target.(**Error); ok {
		*t = e
		return true
	}
	return errors.As(e.Err, target)
}

// KindOf returns the kind of the first Error in err's chain, or "" when there is none.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// WrapProvider marks err as a failure of an optional provider.
func WrapProvider(err error, provider string) error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) && e.Kind == KindProvider {
		return err
	}
	return New(KindProvider, err, provider+" failed")
}

// WrapModelCall marks err as a failed reasoning model call.
func WrapModelCall(err error) error {
	if err == nil {
		return nil
	}
	return New(KindModelCall, err, "model call failed")
}
