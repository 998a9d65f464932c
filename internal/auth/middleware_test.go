package auth

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AbubakarMugha1/Authentication-and-Access-Control-for-a-Web-Application/internal/domain"
	apperrors "github.com/AbubakarMugha1/Authentication-and-Access-Control-for-a-Web-Application/pkg/util"
)

type stubMediator struct {
	mu       sync.Mutex
	outcome  domain.Outcome
	requests []domain.AccessRequest
}

func (s *stubMediator) Handle(_ context.Context, req domain.AccessRequest) domain.Outcome {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.requests = append(s.requests, req)
	return s.outcome
}

func (s *stubMediator) last() domain.AccessRequest {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.requests[len(s.requests)-1]
}

func newMiddlewareApp(mediator RequestMediator) *fiber.App {
	app := fiber.New(fiber.Config{
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			de := apperrors.ToDomainError(err)
			return c.Status(de.HTTPStatus).SendString(de.Code)
		},
	})
	mw := NewAuthMiddleware(mediator, MiddlewareConfig{
		Cookie:     SessionCookie{Name: "session_token", Secure: true, SameSite: fiber.CookieSameSiteLaxMode},
		LandingURL: "/",
	})
	page := func(c *fiber.Ctx) error {
		principal, ok := PrincipalFromContext(c)
		if !ok {
			return fiber.ErrInternalServerError
		}
		return c.SendString(principal.Subject + ":" + principal.Role.String())
	}
	app.Get("/dashboard", mw.Handle, page)
	app.Get("/admin/delete", mw.Handle, page)
	return app
}

func served(subject string, role domain.Role) domain.Outcome {
	return domain.Outcome{
		State: domain.StateServed,
		Session: &domain.Session{
			ID: "sid", Subject: subject, Role: role, ExpiresAt: time.Now().Add(time.Minute),
		},
	}
}

func rejected(err error) domain.Outcome {
	return domain.Outcome{State: domain.StateRejected, Err: err}
}

func body(t *testing.T, resp *http.Response) string {
	t.Helper()
	b, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return string(b)
}

func TestAuthMiddleware_ServesWithPrincipal(t *testing.T) {
	t.Parallel()

	mediator := &stubMediator{outcome: served("alice", domain.RoleCustomer)}
	app := newMiddlewareApp(mediator)

	req := httptest.NewRequest(http.MethodGet, "/dashboard", nil)
	req.AddCookie(&http.Cookie{Name: "session_token", Value: "cookie-token"})
	resp, err := app.Test(req)
	require.NoError(t, err)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "alice:customer", body(t, resp))
	assert.Equal(t, domain.AccessRequest{Endpoint: "/dashboard", SessionToken: "cookie-token"}, mediator.last())
}

func TestAuthMiddleware_BearerTakesPrecedence(t *testing.T) {
	t.Parallel()

	mediator := &stubMediator{outcome: served("alice", domain.RoleAdmin)}
	app := newMiddlewareApp(mediator)

	req := httptest.NewRequest(http.MethodGet, "/dashboard", nil)
	req.Header.Set("Authorization", "Bearer header-token")
	req.AddCookie(&http.Cookie{Name: "session_token", Value: "cookie-token"})
	resp, err := app.Test(req)
	require.NoError(t, err)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "header-token", mediator.last().SessionToken)
}

func TestAuthMiddleware_MalformedAuthorizationHeader(t *testing.T) {
	t.Parallel()

	mediator := &stubMediator{outcome: served("alice", domain.RoleAdmin)}
	app := newMiddlewareApp(mediator)

	req := httptest.NewRequest(http.MethodGet, "/dashboard", nil)
	req.Header.Set("Authorization", "Basic abc")
	resp, err := app.Test(req)
	require.NoError(t, err)

	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Empty(t, mediator.requests)
}

func TestAuthMiddleware_Rejections(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name        string
		outcome     domain.Outcome
		accept      string
		cookie      bool
		status      int
		code        string
		location    string
		clearCookie bool
	}{
		{
			name: "no session", outcome: rejected(domain.ErrNotAuthenticated),
			status: http.StatusUnauthorized, code: "UNAUTHORIZED",
		},
		{
			name: "rejected without error", outcome: domain.Outcome{State: domain.StateRejected},
			status: http.StatusUnauthorized, code: "UNAUTHORIZED",
		},
		{
			name: "expired api call", outcome: rejected(domain.ErrSessionExpired), cookie: true,
			accept: fiber.MIMEApplicationJSON, status: http.StatusUnauthorized, code: "SESSION_EXPIRED", clearCookie: true,
		},
		{
			name: "expired browser", outcome: rejected(domain.ErrSessionExpired), cookie: true,
			accept: "text/html,application/xhtml+xml", status: http.StatusFound, location: "/", clearCookie: true,
		},
		{
			name: "tampered cookie", outcome: rejected(domain.ErrInvalidSignature), cookie: true,
			status: http.StatusUnauthorized, code: "INVALID_SIGNATURE", clearCookie: true,
		},
		{
			name: "forbidden keeps cookie", cookie: true,
			outcome: rejected(&domain.AccessDeniedError{Endpoint: "/dashboard", Role: domain.RoleReader, Reason: domain.ReasonRoleNotPermitted}),
			status:  http.StatusForbidden, code: "FORBIDDEN",
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			app := newMiddlewareApp(&stubMediator{outcome: tt.outcome})
			req := httptest.NewRequest(http.MethodGet, "/dashboard", nil)
			if tt.accept != "" {
				req.Header.Set("Accept", tt.accept)
			}
			if tt.cookie {
				req.AddCookie(&http.Cookie{Name: "session_token", Value: "some-token"})
			}

			resp, err := app.Test(req)
			require.NoError(t, err)

			assert.Equal(t, tt.status, resp.StatusCode)
			if tt.code != "" {
				assert.Equal(t, tt.code, body(t, resp))
			}
			if tt.location != "" {
				assert.Equal(t, tt.location, resp.Header.Get("Location"))
			}
			assert.Equal(t, tt.clearCookie, hasCookieCleared(resp, "session_token"))
		})
	}
}

func TestAuthMiddleware_ClearsCookieAtRootOnNestedRoutes(t *testing.T) {
	t.Parallel()

	app := newMiddlewareApp(&stubMediator{outcome: rejected(domain.ErrSessionExpired)})
	req := httptest.NewRequest(http.MethodGet, "/admin/delete", nil)
	req.AddCookie(&http.Cookie{Name: "session_token", Value: "stale"})

	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	var cleared *http.Cookie
	for _, cookie := range resp.Cookies() {
		if cookie.Name == "session_token" {
			cleared = cookie
		}
	}
	require.NotNil(t, cleared)
	assert.Empty(t, cleared.Value)
	assert.Equal(t, "/", cleared.Path)
	assert.True(t, cleared.Secure)
	assert.True(t, cleared.HttpOnly)
	assert.Equal(t, http.SameSiteLaxMode, cleared.SameSite)
	assert.True(t, cleared.Expires.Before(time.Now()))
}

func hasCookieCleared(resp *http.Response, name string) bool {
	for _, cookie := range resp.Cookies() {
		if cookie.Name == name && cookie.Value == "" {
			return true
		}
	}
	return false
}
