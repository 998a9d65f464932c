package http

import (
	nethttp "net/http"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"

	"github.com/AbubakarMugha1/Authentication-and-Access-Control-for-a-Web-Application/internal/api/http/handlers"
	"github.com/AbubakarMugha1/Authentication-and-Access-Control-for-a-Web-Application/internal/auth"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health         *handlers.HealthHandler
	OAuth          *handlers.OAuthHandler
	Pages          *handlers.PagesHandler
	AuthMiddleware *auth.AuthMiddleware
	// Landing is served publicly when it is a local path.
	Landing string
	// Metrics serves the prometheus exposition format. Nil leaves /metrics unrouted.
	Metrics nethttp.Handler
	// ProtectedPaths are the policy endpoints served as pages.
	ProtectedPaths []string
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)
	if cfg.Metrics != nil {
		app.Get("/metrics", adaptor.HTTPHandler(cfg.Metrics))
	}

	if strings.HasPrefix(cfg.Landing, "/") {
		app.Get(cfg.Landing, cfg.Pages.Landing)
	}
	app.Get("/login", cfg.OAuth.Login)
	app.Get("/callback", cfg.OAuth.Callback)
	app.Post("/callback", cfg.OAuth.Callback)
	app.Get("/sign-out", cfg.OAuth.SignOut)

	for _, path := range cfg.ProtectedPaths {
		app.Get(path, cfg.AuthMiddleware.Handle, cfg.Pages.Show)
	}
}
