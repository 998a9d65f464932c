package domain

import (
	"errors"
	"fmt"
)

// Claim decoding errors.
var (
	ErrMalformedToken   = errors.New("malformed token")
	ErrInvalidSignature = errors.New("invalid signature")
	ErrTokenExpired     = errors.New("token expired")
	ErrUntrustedIssuer  = errors.New("untrusted issuer")
	ErrUnknownRole      = errors.New("unknown role")
)

// Token exchange errors. ErrExchangeTimeout matches ErrExchangeFailed under errors.Is.
var (
	ErrMissingGrant    = errors.New("authorization grant missing")
	ErrExchangeFailed  = errors.New("token exchange failed")
	ErrExchangeTimeout = fmt.Errorf("%w: timed out", ErrExchangeFailed)
)

// Session validation errors. ErrInvalidSignature is shared with claim decoding.
var (
	ErrMalformedSession = errors.New("malformed session")
	ErrSessionExpired   = errors.New("session expired")
)

var (
	ErrNotAuthenticated      = errors.New("not authenticated")
	ErrForbidden             = errors.New("forbidden")
	ErrSigningKeyUnavailable = errors.New("signing key unavailable")
)

// AccessDeniedError carries the policy decision that rejected a request.
type AccessDeniedError struct {
	Endpoint string
	Role     Role
	Reason   DecisionReason
}

func (e *AccessDeniedError) Error() string {
	return fmt.Sprintf("%s: role %q on %q (%s)", ErrForbidden, e.Role, e.Endpoint, e.Reason)
}

func (e *AccessDeniedError) Unwrap() error {
	return ErrForbidden
}
