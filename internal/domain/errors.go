package domain

import (
	"errors"
	"fmt"
)

// Sentinel errors for the dashboard error taxonomy.
var (
	// ErrAuthentication indicates the Dimensions credential was rejected.
	ErrAuthentication = errors.New("authentication failed")

	// ErrTransport indicates the request to the bibliometric source could
	// not complete (network failure, non-2xx response, malformed payload).
	ErrTransport = errors.New("transport failure")

	// ErrDataShape indicates a record was missing a required field during
	// normalization.
	ErrDataShape = errors.New("unexpected data shape")

	// ErrSessionNotFound indicates an unknown dashboard session ID.
	ErrSessionNotFound = errors.New("session not found")

	// ErrInvalidState indicates an operation not permitted in the
	// session's current state.
	ErrInvalidState = errors.New("invalid session state")
)

// AuthenticationError provides details about a rejected credential.
type AuthenticationError struct {
	Source  string
	Message string
}

// Error implements the error interface.
func (e *AuthenticationError) Error() string {
	return fmt.Sprintf("%s authentication failed: %s", e.Source, e.Message)
}

// Unwrap returns the underlying sentinel error for use with errors.Is.
func (e *AuthenticationError) Unwrap() error {
	return ErrAuthentication
}

// TransportError provides details about a failed request to the
// bibliometric source.
type TransportError struct {
	Source     string
	StatusCode int
	Message    string
	Cause      error
}

// Error implements the error interface.
func (e *TransportError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("%s request failed (status %d): %s", e.Source, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("%s request failed: %s", e.Source, e.Message)
}

// Unwrap returns the underlying sentinel error for use with errors.Is.
// The original cause remains reachable through the error chain.
func (e *TransportError) Unwrap() error {
	if e.Cause != nil {
		return fmt.Errorf("%w: %w", ErrTransport, e.Cause)
	}
	return ErrTransport
}

// DataShapeError provides details about a record that failed normalization.
type DataShapeError struct {
	Field   string
	Message string
}

// Error implements the error interface.
func (e *DataShapeError) Error() string {
	return fmt.Sprintf("data shape error: %s: %s", e.Field, e.Message)
}

// Unwrap returns the underlying sentinel error for use with errors.Is.
func (e *DataShapeError) Unwrap() error {
	return ErrDataShape
}

// NewAuthenticationError creates a new AuthenticationError.
func NewAuthenticationError(source, message string) *AuthenticationError {
	return &AuthenticationError{
		Source:  source,
		Message: message,
	}
}

// NewTransportError creates a new TransportError.
func NewTransportError(source string, statusCode int, message string, cause error) *TransportError {
	return &TransportError{
		Source:     source,
		StatusCode: statusCode,
		Message:    message,
		Cause:      cause,
	}
}

// NewDataShapeError creates a new DataShapeError.
func NewDataShapeError(field, message string) *DataShapeError {
	return &DataShapeError{
		Field:   field,
		Message: message,
	}
}

// ErrorKind classifies an error into the taxonomy used by the API surface.
// Unknown errors are reported as transport failures since every failure in
// this system resolves to a retryable page-level message.
func ErrorKind(err error) string {
	switch {
	case errors.Is(err, ErrAuthentication):
		return "authentication"
	case errors.Is(err, ErrDataShape):
		return "data_shape"
	default:
		return "transport"
	}
}
