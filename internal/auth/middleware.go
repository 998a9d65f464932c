package auth

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/AbubakarMugha1/Authentication-and-Access-Control-for-a-Web-Application/internal/domain"
	apperrors "github.com/AbubakarMugha1/Authentication-and-Access-Control-for-a-Web-Application/pkg/util"
)

const principalKey = "auth_principal"

// Principal represents the authenticated caller.
type Principal struct {
	Subject   string
	Role      domain.Role
	SessionID string
	ExpiresAt time.Time
}

// RequestMediator runs the per-request authentication and authorization flow.
type RequestMediator interface {
	Handle(ctx context.Context, req domain.AccessRequest) domain.Outcome
}

// MiddlewareConfig configures AuthMiddleware.
type MiddlewareConfig struct {
	Cookie SessionCookie
	// LandingURL receives browsers whose session expired. Empty disables the redirect.
	LandingURL string
}

// AuthMiddleware validates session tokens and enforces the access policy for the matched route.
type AuthMiddleware struct {
	mediator   RequestMediator
	cookie     SessionCookie
	landingURL string
}

// NewAuthMiddleware constructs middleware.
func NewAuthMiddleware(mediator RequestMediator, cfg MiddlewareConfig) *AuthMiddleware {
	return &AuthMiddleware{mediator: mediator, cookie: cfg.Cookie, landingURL: cfg.LandingURL}
}

// Handle enforces authentication and authorization for protected routes.
func (m *AuthMiddleware) Handle(c *fiber.Ctx) error {
	token, fromCookie, err := m.sessionToken(c)
	if err != nil {
		return err
	}

	outcome := m.mediator.Handle(c.UserContext(), domain.AccessRequest{
		Endpoint:     c.Route().Path,
		SessionToken: token,
	})
	if outcome.State != domain.StateServed || outcome.Session == nil {
		return m.reject(c, outcome.Err, fromCookie)
	}

	c.Locals(principalKey, &Principal{
		Subject:   outcome.Session.Subject,
		Role:      outcome.Session.Role,
		SessionID: outcome.Session.ID,
		ExpiresAt: outcome.Session.ExpiresAt,
	})
	return c.Next()
}

func (m *AuthMiddleware) sessionToken(c *fiber.Ctx) (string, bool, error) {
	if authHeader := c.Get(fiber.HeaderAuthorization); authHeader != "" {
		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
			return "", false, apperrors.NewUnauthorized("invalid authorization header")
		}
		return strings.TrimSpace(parts[1]), false, nil
	}
	if m.cookie.Name == "" {
		return "", false, nil
	}
	token := strings.TrimSpace(c.Cookies(m.cookie.Name))
	return token, token != "", nil
}

func (m *AuthMiddleware) reject(c *fiber.Ctx, err error, fromCookie bool) error {
	if err == nil {
		err = domain.ErrNotAuthenticated
	}

	invalidSession := errors.Is(err, domain.ErrSessionExpired) ||
		errors.Is(err, domain.ErrMalformedSession) ||
		errors.Is(err, domain.ErrInvalidSignature)
	if fromCookie && invalidSession {
		m.cookie.Clear(c)
	}

	if errors.Is(err, domain.ErrSessionExpired) && m.landingURL != "" && WantsHTML(c) {
		return c.Redirect(m.landingURL, fiber.StatusFound)
	}
	return err
}

// WantsHTML reports whether the caller is a browser asking for a page.
func WantsHTML(c *fiber.Ctx) bool {
	return strings.Contains(c.Get(fiber.HeaderAccept), fiber.MIMETextHTML)
}

// PrincipalFromContext retrieves the authenticated entity.
func PrincipalFromContext(c *fiber.Ctx) (*Principal, bool) {
	val := c.Locals(principalKey)
	if val == nil {
		return nil, false
	}
	principal, ok := val.(*Principal)
	return principal, ok
}
