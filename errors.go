package gtaw

import (
	"errors"

	pkgerrs "github.com/jamesprial/go-twitter-api-wrapper/pkg/errors"
)

// Error types, re-exported from pkg/errors so callers need a single import.
type (
	ConfigError               = pkgerrs.ConfigError
	AuthError                 = pkgerrs.AuthError
	MissingCredentialsError   = pkgerrs.MissingCredentialsError
	StateError                = pkgerrs.StateError
	PaginationError           = pkgerrs.PaginationError
	UnresolvedIdentifierError = pkgerrs.UnresolvedIdentifierError
	RequestError              = pkgerrs.RequestError
	ParseError                = pkgerrs.ParseError
	APIError                  = pkgerrs.APIError
)

// Sentinels re-exported from pkg/errors for errors.Is checks.
var (
	ErrTailReached          = pkgerrs.ErrTailReached
	ErrHeadReached          = pkgerrs.ErrHeadReached
	ErrMissingCredentials   = pkgerrs.ErrMissingCredentials
	ErrUnresolvedIdentifier = pkgerrs.ErrUnresolvedIdentifier
)

func isTail(err error) bool {
	return errors.Is(err, pkgerrs.ErrTailReached)
}
