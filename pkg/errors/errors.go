// Package errors defines the error types used throughout the Twitter API wrapper.
//
// Errors fall into two groups. Local errors are raised before any network call
// (ConfigError, MissingCredentialsError, PaginationError, UnresolvedIdentifierError)
// and are never retried. Remote errors (APIError, RequestError, ParseError) describe
// what happened on the wire.
package errors

import (
	stderrors "errors"
	"fmt"
	"strings"

	"github.com/jamesprial/go-twitter-api-wrapper/pkg/types"
)

var (
	// ErrTailReached is matched by a PaginationError raised when a Book has no next page.
	ErrTailReached = stderrors.New("paginated response tail reached")
	// ErrHeadReached is matched by a PaginationError raised when a Book has no previous page.
	ErrHeadReached = stderrors.New("paginated response head reached")
	// ErrMissingCredentials is matched by every MissingCredentialsError.
	ErrMissingCredentials = stderrors.New("missing credentials")
	// ErrUnresolvedIdentifier is matched by every UnresolvedIdentifierError.
	ErrUnresolvedIdentifier = stderrors.New("unresolved identifier")
)

// ConfigError indicates a problem with the client configuration.
type ConfigError struct {
	// Field contains the name of the configuration field that caused the error
	Field string
	// Message contains the detailed error message
	Message string
}

func (e *ConfigError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("config error in field %s: %s", e.Field, e.Message)
	}
	return fmt.Sprintf("config error: %s", e.Message)
}

// AuthError indicates that the configured credentials were rejected while the
// client was connecting.
type AuthError struct {
	// StatusCode is the HTTP status code (if from an HTTP response)
	StatusCode int
	// Message contains the detailed error message
	Message string
	// Err contains the underlying error if available
	Err error
}

func (e *AuthError) Error() string {
	parts := []string{}
	if e.StatusCode > 0 {
		parts = append(parts, fmt.Sprintf("status code %d", e.StatusCode))
	}
	if e.Message != "" {
		parts = append(parts, e.Message)
	}
	if e.Err != nil {
		parts = append(parts, fmt.Sprintf("err: %v", e.Err))
	}

	if len(parts) == 0 {
		return "auth error"
	}
	return "auth error: " + strings.Join(parts, ", ")
}

func (e *AuthError) Unwrap() error {
	return e.Err
}

// MissingCredentialsError is returned when a request needs authorization material
// the client session does not carry: a bearer token for app-only requests, or the
// OAuth1 four-tuple for user-context requests.
type MissingCredentialsError struct {
	// Scheme is "bearer" or "oauth1"
	Scheme string
}

func (e *MissingCredentialsError) Error() string {
	if e.Scheme != "" {
		return fmt.Sprintf("missing credentials: %s authorization is not configured", e.Scheme)
	}
	return "missing credentials"
}

// Is reports whether target is ErrMissingCredentials.
func (e *MissingCredentialsError) Is(target error) bool {
	return target == ErrMissingCredentials
}

// StateError indicates an operation was attempted when the client is not ready.
type StateError struct {
	// Operation is the name of the operation that was attempted
	Operation string
	// Message contains the detailed error message
	Message string
}

func (e *StateError) Error() string {
	if e.Operation != "" {
		return fmt.Sprintf("state error during %s: %s", e.Operation, e.Message)
	}
	return fmt.Sprintf("state error: %s", e.Message)
}

// Direction names a pagination direction.
type Direction string

const (
	// Forward walks towards older results using the next token.
	Forward Direction = "next"
	// Backward walks towards newer results using the previous token.
	Backward Direction = "previous"
)

// PaginationError is the local guard error a Book raises when asked to move in a
// direction it has no token for. No request is made.
type PaginationError struct {
	Direction Direction
	// Endpoint is the bucketed route of the Book
	Endpoint string
}

func (e *PaginationError) Error() string {
	sentinel := ErrTailReached
	if e.Direction == Backward {
		sentinel = ErrHeadReached
	}
	if e.Endpoint != "" {
		return fmt.Sprintf("%s for %s", sentinel.Error(), e.Endpoint)
	}
	return sentinel.Error()
}

// Is matches ErrTailReached for forward errors and ErrHeadReached for backward ones.
func (e *PaginationError) Is(target error) bool {
	if e.Direction == Backward {
		return target == ErrHeadReached
	}
	return target == ErrTailReached
}

// UnresolvedIdentifierError is returned when a caller-supplied reference (a username,
// an empty ID, a nil object) cannot be turned into a concrete ID before building a request.
type UnresolvedIdentifierError struct {
	// Kind is the resource kind, such as "user" or "tweet"
	Kind string
	// Reference is the value supplied by the caller
	Reference string
	// Err is the lookup failure, if a lookup was attempted
	Err error
}

func (e *UnresolvedIdentifierError) Error() string {
	msg := fmt.Sprintf("unresolved %s identifier %q", e.Kind, e.Reference)
	if e.Err != nil {
		msg += fmt.Sprintf(": %v", e.Err)
	}
	return msg
}

// Is reports whether target is ErrUnresolvedIdentifier.
func (e *UnresolvedIdentifierError) Is(target error) bool {
	return target == ErrUnresolvedIdentifier
}

func (e *UnresolvedIdentifierError) Unwrap() error {
	return e.Err
}

// RequestError indicates a problem with making an API request.
type RequestError struct {
	// Operation is the name of the API operation that failed
	Operation string
	// URL is the URL that was being accessed
	URL string
	// Message contains the detailed error message
	Message string
	// Err contains the underlying error if available
	Err error
}

func (e *RequestError) Error() string {
	msg := e.Message
	if msg == "" && e.Err != nil {
		msg = e.Err.Error()
	}

	if e.Operation != "" && e.URL != "" {
		return fmt.Sprintf("request error during %s to %s: %s", e.Operation, e.URL, msg)
	} else if e.Operation != "" {
		return fmt.Sprintf("request error during %s: %s", e.Operation, msg)
	}
	return fmt.Sprintf("request error: %s", msg)
}

func (e *RequestError) Unwrap() error {
	return e.Err
}

// ParseError indicates a problem parsing the API response.
type ParseError struct {
	// Operation is the name of the API operation where parsing failed
	Operation string
	// Message contains the detailed error message
	Message string
	// Err contains the underlying error if available
	Err error
}

func (e *ParseError) Error() string {
	msg := e.Message
	if msg == "" && e.Err != nil {
		msg = e.Err.Error()
	}

	if e.Operation != "" {
		return fmt.Sprintf("parse error during %s: %s", e.Operation, msg)
	}
	return fmt.Sprintf("parse error: %s", msg)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// APIError is the remote API reporting a problem, either through a non-2xx status
// or through a 2xx body that carries "errors" and no "data".
type APIError struct {
	// StatusCode is the HTTP status code
	StatusCode int
	// Problem holds the structured fields of the primary problem
	Problem types.Problem
	// Additional holds any further problems reported alongside the primary one
	Additional []types.Problem
}

func (e *APIError) Error() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "twitter API error (status %d", e.StatusCode)
	if e.Problem.Type != nil && *e.Problem.Type != "" {
		fmt.Fprintf(&sb, ", type %s", *e.Problem.Type)
	}
	fmt.Fprintf(&sb, "): %s", e.Problem.Summary())
	if n := len(e.Additional); n > 0 {
		fmt.Fprintf(&sb, " (+%d more)", n)
	}
	return sb.String()
}

// ClientError indicates a problem with the HTTP client operations.
type ClientError struct {
	// Operation describes what the client was trying to do
	Operation string
	// Message contains the detailed error message
	Message string
	// Err contains the underlying error if available
	Err error
}

func (e *ClientError) Error() string {
	if e.Err != nil && e.Operation == "" && e.Message == "" {
		return e.Err.Error()
	}
	if e.Err != nil {
		if e.Operation != "" {
			return fmt.Sprintf("client error during %s: %v", e.Operation, e.Err)
		}
		return fmt.Sprintf("client error: %v", e.Err)
	}
	if e.Operation != "" && e.Message != "" {
		return fmt.Sprintf("client error during %s: %s", e.Operation, e.Message)
	}
	if e.Operation != "" {
		return fmt.Sprintf("client error during %s", e.Operation)
	}
	if e.Message != "" {
		return fmt.Sprintf("client error: %s", e.Message)
	}
	return "client error"
}

func (e *ClientError) Unwrap() error {
	return e.Err
}
