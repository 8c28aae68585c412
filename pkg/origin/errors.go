package origin

import (
	"errors"
	"fmt"
)

// Sentinel errors matched with errors.Is against an *Error.
var (
	// ErrUpstreamUnreachable is matched by transport and connection failures.
	ErrUpstreamUnreachable = errors.New("upstream unreachable")

	// ErrUpstreamError is matched by non-2xx responses and undecodable bodies.
	ErrUpstreamError = errors.New("upstream error")
)

// ErrorClass represents a classification of origin failures.
type ErrorClass string

const (
	// ErrorClassUnreachable represents network, DNS, TLS and timeout errors.
	ErrorClassUnreachable ErrorClass = "unreachable"

	// ErrorClassStatus represents a non-2xx response.
	ErrorClassStatus ErrorClass = "status"

	// ErrorClassDecode represents a body that could not be read or decoded as text.
	ErrorClassDecode ErrorClass = "decode"
)

// Error is returned by Client.Fetch.
type Error struct {
	StatusCode int
	ErrorClass ErrorClass
	Message    string
	Err        error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("origin %s error (status %d): %s: %v",
			e.ErrorClass, e.StatusCode, e.Message, e.Err)
	}
	return fmt.Sprintf("origin %s error (status %d): %s",
		e.ErrorClass, e.StatusCode, e.Message)
}

// Unwrap implements error unwrapping for errors.Is/As.
func (e *Error) Unwrap() error {
	return e.Err
}

// Is maps the error class onto ErrUpstreamUnreachable or ErrUpstreamError.
func (e *Error) Is(target error) bool {
	switch target {
	case ErrUpstreamUnreachable:
		return e.ErrorClass == ErrorClassUnreachable
	case ErrUpstreamError:
		return e.ErrorClass == ErrorClassStatus || e.ErrorClass == ErrorClassDecode
	default:
		return false
	}
}
