package handlers

import (
	"context"
	"crypto/subtle"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/oauth2"

	"github.com/AbubakarMugha1/Authentication-and-Access-Control-for-a-Web-Application/internal/api/dto"
	"github.com/AbubakarMugha1/Authentication-and-Access-Control-for-a-Web-Application/internal/auth"
	"github.com/AbubakarMugha1/Authentication-and-Access-Control-for-a-Web-Application/internal/domain"
	"github.com/AbubakarMugha1/Authentication-and-Access-Control-for-a-Web-Application/internal/events"
	apperrors "github.com/AbubakarMugha1/Authentication-and-Access-Control-for-a-Web-Application/pkg/util"
)

const (
	stateCookieName = "oauth_state"
	stateCookieTTL  = 10 * time.Minute
)

// GrantRedeemer turns an authorization grant into a session.
type GrantRedeemer interface {
	Redeem(ctx context.Context, code, endpoint string) domain.Outcome
}

// SessionReader reads the session behind a token without enforcing any policy.
type SessionReader interface {
	Validate(token string) (*domain.Session, error)
}

// OAuthHandlerConfig configures the login flow endpoints.
type OAuthHandlerConfig struct {
	OAuth         *oauth2.Config
	RequireState  bool
	Session       auth.SessionCookie
	LandingURL    string
	PostLoginPath string
}

// OAuthHandler exposes login, callback and sign-out.
type OAuthHandler struct {
	redeemer GrantRedeemer
	sessions SessionReader
	events   events.Dispatcher
	cfg      OAuthHandlerConfig
	logger   *zap.Logger
}

// NewOAuthHandler constructs handler.
func NewOAuthHandler(redeemer GrantRedeemer, sessions SessionReader, dispatcher events.Dispatcher, cfg OAuthHandlerConfig, logger *zap.Logger) *OAuthHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &OAuthHandler{redeemer: redeemer, sessions: sessions, events: dispatcher, cfg: cfg, logger: logger}
}

// Login handles GET /login by sending the browser to the authorization server.
func (h *OAuthHandler) Login(c *fiber.Ctx) error {
	state := uuid.NewString()
	h.stateCookie(c, state, time.Now().Add(stateCookieTTL))
	return c.Redirect(h.cfg.OAuth.AuthCodeURL(state), http.StatusFound)
}

// Callback handles GET|POST /callback.
func (h *OAuthHandler) Callback(c *fiber.Ctx) error {
	if reason := param(c, "error"); reason != "" {
		return apperrors.NewDomainError("AUTHORIZATION_DENIED", "authorization was not granted", http.StatusUnauthorized,
			map[string]any{"error": reason})
	}

	if h.cfg.RequireState {
		expected := c.Cookies(stateCookieName)
		got := param(c, "state")
		h.stateCookie(c, "", time.Unix(0, 0).UTC())
		if expected == "" || got == "" || subtle.ConstantTimeCompare([]byte(expected), []byte(got)) != 1 {
			return apperrors.NewDomainError("INVALID_STATE", "state parameter does not match", http.StatusBadRequest, nil)
		}
	}

	code := param(c, "code")
	if code == "" {
		return domain.ErrMissingGrant
	}

	outcome := h.redeemer.Redeem(c.UserContext(), code, c.Route().Path)
	if outcome.Err != nil {
		if errors.Is(outcome.Err, domain.ErrTokenExpired) && h.cfg.LandingURL != "" && auth.WantsHTML(c) {
			return c.Redirect(h.cfg.LandingURL, http.StatusFound)
		}
		return outcome.Err
	}
	if outcome.Session == nil || outcome.Token == "" {
		return apperrors.NewInternalError(nil)
	}
	session := outcome.Session

	h.cfg.Session.Set(c, outcome.Token, session.ExpiresAt)

	if strings.Contains(c.Get(fiber.HeaderAccept), fiber.MIMEApplicationJSON) {
		return c.JSON(fiber.Map{
			"data": dto.AuthResponse{
				Token:     outcome.Token,
				ExpiresAt: session.ExpiresAt,
				Subject:   session.Subject,
				Role:      session.Role.String(),
			},
		})
	}
	return c.Redirect(h.cfg.PostLoginPath, http.StatusFound)
}

// SignOut handles GET /sign-out. Issued tokens stay valid until they expire.
func (h *OAuthHandler) SignOut(c *fiber.Ctx) error {
	actor := events.Actor{}
	if token := c.Cookies(h.cfg.Session.Name); token != "" && h.sessions != nil {
		if session, err := h.sessions.Validate(token); err == nil {
			actor = events.Actor{Subject: session.Subject, Role: session.Role, SessionID: session.ID}
		}
	}
	h.cfg.Session.Clear(c)

	if h.events != nil {
		_ = h.events.Publish(c.UserContext(), events.New(events.EventSignedOut, c.Route().Path, actor, nil))
	}
	h.logger.Debug("signed out", zap.String("subject", actor.Subject))
	return c.Redirect(h.cfg.LandingURL, http.StatusFound)
}

// stateCookie writes the login state cookie. A past expiry clears it.
func (h *OAuthHandler) stateCookie(c *fiber.Ctx, value string, expires time.Time) {
	maxAge := int(stateCookieTTL.Seconds())
	if !expires.After(time.Now()) {
		maxAge = -1
	}
	c.Cookie(&fiber.Cookie{
		Name:     stateCookieName,
		Value:    value,
		Path:     "/",
		MaxAge:   maxAge,
		Expires:  expires,
		HTTPOnly: true,
		Secure:   h.cfg.Session.Secure,
		SameSite: fiber.CookieSameSiteLaxMode,
	})
}

// param reads a value from the query string, falling back to the form body.
func param(c *fiber.Ctx, key string) string {
	if v := strings.TrimSpace(c.Query(key)); v != "" {
		return v
	}
	if c.Method() == fiber.MethodPost {
		return strings.TrimSpace(c.FormValue(key))
	}
	return ""
}
