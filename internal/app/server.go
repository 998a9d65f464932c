// Package app assembles the service from configuration.
package app

import (
	"context"
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"golang.org/x/oauth2"

	httptransport "github.com/AbubakarMugha1/Authentication-and-Access-Control-for-a-Web-Application/internal/api/http"
	"github.com/AbubakarMugha1/Authentication-and-Access-Control-for-a-Web-Application/internal/api/http/handlers"
	"github.com/AbubakarMugha1/Authentication-and-Access-Control-for-a-Web-Application/internal/auth"
	"github.com/AbubakarMugha1/Authentication-and-Access-Control-for-a-Web-Application/internal/config"
	"github.com/AbubakarMugha1/Authentication-and-Access-Control-for-a-Web-Application/internal/events"
	"github.com/AbubakarMugha1/Authentication-and-Access-Control-for-a-Web-Application/internal/messaging"
	"github.com/AbubakarMugha1/Authentication-and-Access-Control-for-a-Web-Application/internal/observability"
	"github.com/AbubakarMugha1/Authentication-and-Access-Control-for-a-Web-Application/internal/policy"
	"github.com/AbubakarMugha1/Authentication-and-Access-Control-for-a-Web-Application/internal/service"
	"github.com/AbubakarMugha1/Authentication-and-Access-Control-for-a-Web-Application/internal/worker"
)

// Server is the assembled HTTP application.
type Server struct {
	Fiber    *fiber.App
	Mediator *service.Mediator
	Policy   *policy.Engine
	redis    *messaging.Redis
}

type options struct {
	registry *prometheus.Registry
	now      func() time.Time
}

// Option customizes New.
type Option func(*options)

// WithRegistry registers metrics with reg instead of a fresh registry.
func WithRegistry(reg *prometheus.Registry) Option {
	return func(o *options) { o.registry = reg }
}

// WithClock replaces the time source used by token verification and sessions.
func WithClock(now func() time.Time) Option {
	return func(o *options) { o.now = now }
}

// New builds every component from cfg. Key material problems are returned, never deferred to the
// first request.
func New(ctx context.Context, cfg *config.Config, logger *zap.Logger, opts ...Option) (*Server, error) {
	o := options{now: time.Now}
	for _, opt := range opts {
		opt(&o)
	}
	if o.registry == nil {
		o.registry = prometheus.NewRegistry()
	}

	verificationKey, err := auth.LoadVerificationKey(cfg.Issuer.Algorithm, cfg.Issuer.Secret, cfg.Issuer.PublicKeyFile)
	if err != nil {
		return nil, fmt.Errorf("issuer verification key: %w", err)
	}
	sessionKey, err := auth.DeriveSessionKey(cfg.Session.Secret)
	if err != nil {
		return nil, err
	}

	codec, err := auth.NewClaimCodec(auth.ClaimCodecConfig{
		Key:             verificationKey,
		Issuer:          cfg.Issuer.Issuer,
		RoleFromSubject: cfg.Issuer.RoleFromSubject,
		Now:             o.now,
	})
	if err != nil {
		return nil, err
	}
	exchanger, err := auth.NewTokenExchanger(auth.ExchangeConfig{
		TokenURL:     cfg.OAuth.TokenURL,
		ClientID:     cfg.OAuth.ClientID,
		ClientSecret: cfg.OAuth.ClientSecret,
		RedirectURL:  cfg.OAuth.RedirectURL,
		Timeout:      cfg.OAuth.ExchangeTimeout,
	}, codec, logger.Named("exchange"))
	if err != nil {
		return nil, err
	}

	sessionCfg := auth.SessionConfig{
		Key:      sessionKey,
		Issuer:   cfg.App.Name,
		Lifetime: cfg.Session.Lifetime,
		Now:      o.now,
	}
	issuer, err := auth.NewSessionIssuer(sessionCfg)
	if err != nil {
		return nil, err
	}
	validator, err := auth.NewSessionValidator(sessionCfg)
	if err != nil {
		return nil, err
	}

	engine, err := policy.LoadFile(cfg.Policy.File)
	if err != nil {
		return nil, err
	}
	logger.Info("access policy loaded", zap.String("file", cfg.Policy.File), zap.Strings("endpoints", engine.Endpoints()))

	metrics := observability.NewMetrics(o.registry)
	dispatcher := events.NewInMemoryDispatcher(logger)

	var (
		redis     *messaging.Redis
		publisher service.Publisher
		deps      = map[string]handlers.Pinger{}
	)
	if cfg.Redis.Enabled() {
		redis = messaging.NewRedis(ctx, cfg.Redis, logger)
		publisher = redis
		deps["redis"] = redis
	}
	worker.StartAuditWorker(service.NewAuditService(dispatcher, logger, publisher, cfg.Redis.AuditChannel))

	mediator, err := service.NewMediator(service.MediatorDependencies{
		Exchanger: exchanger,
		Issuer:    issuer,
		Validator: validator,
		Policy:    engine,
		Events:    dispatcher,
		Metrics:   metrics,
		Logger:    logger.Named("mediator"),
	})
	if err != nil {
		redis.Close()
		return nil, err
	}

	app := fiber.New(fiber.Config{
		AppName:               cfg.App.Name,
		DisableStartupMessage: true,
		ErrorHandler:          httptransport.ErrorHandler(logger, metrics),
	})
	httptransport.RegisterMiddlewares(app, logger, metrics, cfg.App.RequestTimeout())

	sessionCookie := auth.SessionCookie{
		Name:     cfg.Session.CookieName,
		Secure:   cfg.Session.CookieSecure,
		SameSite: cfg.Session.CookieSameSite,
		Lifetime: issuer.Lifetime(),
	}
	oauthHandler := handlers.NewOAuthHandler(mediator, validator, dispatcher, handlers.OAuthHandlerConfig{
		OAuth: &oauth2.Config{
			ClientID:     cfg.OAuth.ClientID,
			ClientSecret: cfg.OAuth.ClientSecret,
			RedirectURL:  cfg.OAuth.RedirectURL,
			Scopes:       cfg.OAuth.Scopes,
			Endpoint: oauth2.Endpoint{
				AuthURL:  cfg.OAuth.AuthorizeURL,
				TokenURL: cfg.OAuth.TokenURL,
			},
		},
		RequireState:  cfg.OAuth.RequireState,
		Session:       sessionCookie,
		LandingURL:    cfg.App.LandingURL,
		PostLoginPath: cfg.App.PostLoginPath,
	}, logger.Named("oauth"))

	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health:  handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, deps),
		OAuth:   oauthHandler,
		Pages:   handlers.NewPagesHandler(),
		Landing: cfg.App.LandingURL,
		AuthMiddleware: auth.NewAuthMiddleware(mediator, auth.MiddlewareConfig{
			Cookie:     sessionCookie,
			LandingURL: cfg.App.LandingURL,
		}),
		Metrics:        promhttp.HandlerFor(o.registry, promhttp.HandlerOpts{}),
		ProtectedPaths: engine.Endpoints(),
	})

	return &Server{Fiber: app, Mediator: mediator, Policy: engine, redis: redis}, nil
}

// Shutdown stops the HTTP server and releases connections.
func (s *Server) Shutdown() error {
	err := s.Fiber.Shutdown()
	s.redis.Close()
	return err
}
