package auth

import (
	"time"

	"github.com/gofiber/fiber/v2"
)

const sessionCookiePath = "/"

// SessionCookie holds the attributes shared by every write of the session cookie.
// Clearing must repeat Path, Secure and SameSite or browsers keep the original cookie.
type SessionCookie struct {
	Name     string
	Secure   bool
	SameSite string
	Lifetime time.Duration
}

// Set stores token until expiresAt.
func (s SessionCookie) Set(c *fiber.Ctx, token string, expiresAt time.Time) {
	cookie := s.base()
	cookie.Value = token
	cookie.Expires = expiresAt
	if s.Lifetime > 0 {
		cookie.MaxAge = int(s.Lifetime.Seconds())
	}
	c.Cookie(cookie)
}

// Clear expires the session cookie.
func (s SessionCookie) Clear(c *fiber.Ctx) {
	cookie := s.base()
	// fasthttp only writes Max-Age when positive, so the past Expires does the deleting.
	cookie.MaxAge = -1
	cookie.Expires = time.Unix(0, 0).UTC()
	c.Cookie(cookie)
}

func (s SessionCookie) base() *fiber.Cookie {
	return &fiber.Cookie{
		Name:     s.Name,
		Path:     sessionCookiePath,
		HTTPOnly: true,
		Secure:   s.Secure,
		SameSite: s.SameSite,
	}
}
