package cip

import (
	"errors"
	"fmt"
)

var (
	// ErrShortPayload indicates that a response payload is shorter than the requested type.
	ErrShortPayload = errors.New("response payload too short")

	// ErrSessionClosed indicates that a request was issued on a closed session.
	ErrSessionClosed = errors.New("session closed")

	// ErrUnsupportedService indicates that a transport does not implement the requested service.
	ErrUnsupportedService = errors.New("unsupported service")
)

// TransportError wraps a session-level failure of one request.
type TransportError struct {
	Service Service
	Path    Path
	Err     error
}

// Error implements the error interface.
func (e *TransportError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Service, e.Path, e.Err)
}

// Unwrap returns the underlying error.
func (e *TransportError) Unwrap() error { return e.Err }

// NewTransportError wraps err as a TransportError, or returns nil when err is nil.
func NewTransportError(service Service, path Path, err error) error {
	if err == nil {
		return nil
	}

	return &TransportError{Service: service, Path: path, Err: err}
}
