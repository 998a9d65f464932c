package util

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/AbubakarMugha1/Authentication-and-Access-Control-for-a-Web-Application/internal/domain"
)

// DomainError standardizes application errors.
type DomainError struct {
	Code       string
	Message    string
	HTTPStatus int
	Details    map[string]any
	Err        error
}

func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *DomainError) Unwrap() error {
	return e.Err
}

// NewDomainError constructs a DomainError.
func NewDomainError(code, message string, status int, details map[string]any) *DomainError {
	return &DomainError{Code: code, Message: message, HTTPStatus: status, Details: details}
}

func NewUnauthorized(message string) error {
	return NewDomainError("UNAUTHORIZED", message, http.StatusUnauthorized, nil)
}

func NewInternalError(err error) error {
	return &DomainError{
		Code:       "INTERNAL_ERROR",
		Message:    "internal server error",
		HTTPStatus: http.StatusInternalServerError,
		Err:        err,
	}
}

// authErrorMappings is checked in order; the first match wins.
var authErrorMappings = []struct {
	target  error
	code    string
	message string
	status  int
}{
	{domain.ErrMissingGrant, "MISSING_GRANT", "authorization code not provided", http.StatusBadRequest},
	{domain.ErrExchangeTimeout, "EXCHANGE_TIMEOUT", "authorization server did not answer in time", http.StatusGatewayTimeout},
	{domain.ErrExchangeFailed, "EXCHANGE_FAILED", "failed to retrieve token", http.StatusBadGateway},
	{domain.ErrSessionExpired, "SESSION_EXPIRED", "session has expired", http.StatusUnauthorized},
	{domain.ErrMalformedSession, "MALFORMED_SESSION", "invalid session token", http.StatusUnauthorized},
	{domain.ErrTokenExpired, "TOKEN_EXPIRED", "token has expired", http.StatusUnauthorized},
	{domain.ErrInvalidSignature, "INVALID_SIGNATURE", "invalid token signature", http.StatusUnauthorized},
	{domain.ErrUntrustedIssuer, "UNTRUSTED_ISSUER", "token issuer is not trusted", http.StatusUnauthorized},
	{domain.ErrUnknownRole, "UNKNOWN_ROLE", "token carries no recognized role", http.StatusUnauthorized},
	{domain.ErrMalformedToken, "MALFORMED_TOKEN", "invalid token", http.StatusUnauthorized},
	{domain.ErrNotAuthenticated, "UNAUTHORIZED", "not authenticated", http.StatusUnauthorized},
}

// ToDomainError converts generic errors to DomainError.
func ToDomainError(err error) *DomainError {
	if err == nil {
		return nil
	}
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr
	}

	var denied *domain.AccessDeniedError
	if errors.As(err, &denied) {
		return &DomainError{
			Code:       "FORBIDDEN",
			Message:    "forbidden",
			HTTPStatus: http.StatusForbidden,
			Details:    map[string]any{"reason": string(denied.Reason)},
			Err:        err,
		}
	}
	if errors.Is(err, domain.ErrForbidden) {
		return NewDomainError("FORBIDDEN", "forbidden", http.StatusForbidden, nil)
	}

	for _, m := range authErrorMappings {
		if errors.Is(err, m.target) {
			return &DomainError{Code: m.code, Message: m.message, HTTPStatus: m.status, Err: err}
		}
	}

	var fiberErr *fiber.Error
	if errors.As(err, &fiberErr) {
		return &DomainError{
			Code:       codeForStatus(fiberErr.Code),
			Message:    fiberErr.Message,
			HTTPStatus: fiberErr.Code,
		}
	}

	return &DomainError{
		Code:       "INTERNAL_ERROR",
		Message:    "internal server error",
		HTTPStatus: http.StatusInternalServerError,
		Err:        err,
	}
}

func codeForStatus(status int) string {
	switch status {
	case http.StatusBadRequest:
		return "BAD_REQUEST"
	case http.StatusUnauthorized:
		return "UNAUTHORIZED"
	case http.StatusForbidden:
		return "FORBIDDEN"
	case http.StatusNotFound:
		return "NOT_FOUND"
	case http.StatusMethodNotAllowed:
		return "METHOD_NOT_ALLOWED"
	case http.StatusRequestTimeout:
		return "REQUEST_TIMEOUT"
	default:
		if status >= http.StatusInternalServerError {
			return "INTERNAL_ERROR"
		}
		return "REQUEST_FAILED"
	}
}
