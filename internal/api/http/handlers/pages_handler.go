package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/AbubakarMugha1/Authentication-and-Access-Control-for-a-Web-Application/internal/api/dto"
	"github.com/AbubakarMugha1/Authentication-and-Access-Control-for-a-Web-Application/internal/auth"
	"github.com/AbubakarMugha1/Authentication-and-Access-Control-for-a-Web-Application/internal/domain"
)

// PagesHandler renders the protected pages once the auth middleware has let the caller through.
type PagesHandler struct{}

// NewPagesHandler constructs handler.
func NewPagesHandler() *PagesHandler {
	return &PagesHandler{}
}

// Landing handles the public landing page.
func (h *PagesHandler) Landing(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"data": fiber.Map{
			"login":    "/login",
			"sign_out": "/sign-out",
		},
	})
}

// Show handles every protected GET route.
func (h *PagesHandler) Show(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return domain.ErrNotAuthenticated
	}
	return c.JSON(fiber.Map{
		"data": dto.PageResponse{
			Endpoint: c.Route().Path,
			User: dto.UserResponse{
				Subject:   principal.Subject,
				Role:      principal.Role.String(),
				SessionID: principal.SessionID,
				ExpiresAt: principal.ExpiresAt,
			},
		},
	})
}
