package core

import (
	"errors"
	"strings"
)

// Failure taxonomy for token verification and authorization. The guards map
// each of these to exactly two client-visible outcomes (401 or 403); the
// specific cause stays server-side.
var (
	// ErrMetadataUnavailable means the provider's discovery or JWKS
	// endpoint could not be reached or returned malformed data and no
	// usable cached snapshot exists.
	ErrMetadataUnavailable = errors.New("entrakit: provider metadata unavailable")

	// ErrUnknownSigningKey means the token's key id resolved to no key,
	// even after a refresh.
	ErrUnknownSigningKey = errors.New("entrakit: unknown signing key")

	// ErrMalformedToken means the bearer credential is not a parseable
	// JWT or its claim set is not usable.
	ErrMalformedToken = errors.New("entrakit: malformed token")

	// ErrInvalidSignature covers both failed signature verification and
	// tokens declaring an algorithm outside the allow-list.
	ErrInvalidSignature = errors.New("entrakit: invalid token signature")

	ErrInvalidIssuer   = errors.New("entrakit: invalid issuer")
	ErrInvalidAudience = errors.New("entrakit: invalid audience")
	ErrTokenExpired    = errors.New("entrakit: token expired")
	ErrTokenNotYetValid = errors.New("entrakit: token not yet valid")

	// ErrInsufficientScope means the token verified but lacks the
	// delegated permissions the route requires.
	ErrInsufficientScope = errors.New("entrakit: insufficient scope")

	// ErrMissingCredentials means no bearer token was presented.
	ErrMissingCredentials = errors.New("entrakit: missing credentials")
)

// InsufficientScopeError reports which required scopes the token lacked.
// The detail is for server-side observability; guards never forward it
// to clients.
type InsufficientScopeError struct {
	Missing []string
}

func (e *InsufficientScopeError) Error() string {
	return ErrInsufficientScope.Error() + ": missing " + strings.Join(e.Missing, ", ")
}

func (e *InsufficientScopeError) Unwrap() error { return ErrInsufficientScope }
