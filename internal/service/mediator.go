package service

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/AbubakarMugha1/Authentication-and-Access-Control-for-a-Web-Application/internal/domain"
	"github.com/AbubakarMugha1/Authentication-and-Access-Control-for-a-Web-Application/internal/events"
	"github.com/AbubakarMugha1/Authentication-and-Access-Control-for-a-Web-Application/internal/observability"
)

// GrantExchanger redeems an authorization grant for validated external claims.
type GrantExchanger interface {
	Exchange(ctx context.Context, code string) (*domain.ExternalClaimSet, error)
}

// SessionIssuer mints a session from external claims.
type SessionIssuer interface {
	Issue(claims *domain.ExternalClaimSet) (*domain.Session, string, error)
}

// SessionValidator verifies a presented session token.
type SessionValidator interface {
	Validate(token string) (*domain.Session, error)
}

// AccessPolicy decides whether a role may reach an endpoint.
type AccessPolicy interface {
	Authorize(endpoint string, role domain.Role) domain.AuthzDecision
}

// MediatorDependencies bundles the collaborators of a Mediator.
type MediatorDependencies struct {
	Exchanger GrantExchanger
	Issuer    SessionIssuer
	Validator SessionValidator
	Policy    AccessPolicy
	Events    events.Dispatcher
	Metrics   *observability.Metrics
	Logger    *zap.Logger
}

// Mediator runs the per-request state machine:
//
//	unauthenticated --grant--> authenticated --> served
//	authenticated --valid session--> authorized_pending --allow--> served
//	any failure --> rejected
//
// It holds no state across requests.
type Mediator struct {
	exchanger GrantExchanger
	issuer    SessionIssuer
	validator SessionValidator
	policy    AccessPolicy
	events    events.Dispatcher
	metrics   *observability.Metrics
	logger    *zap.Logger
}

// NewMediator builds the mediator. Events and Metrics are optional.
func NewMediator(deps MediatorDependencies) (*Mediator, error) {
	switch {
	case deps.Exchanger == nil:
		return nil, errors.New("mediator: exchanger is required")
	case deps.Issuer == nil:
		return nil, errors.New("mediator: session issuer is required")
	case deps.Validator == nil:
		return nil, errors.New("mediator: session validator is required")
	case deps.Policy == nil:
		return nil, errors.New("mediator: access policy is required")
	}
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Mediator{
		exchanger: deps.Exchanger,
		issuer:    deps.Issuer,
		validator: deps.Validator,
		policy:    deps.Policy,
		events:    deps.Events,
		metrics:   deps.Metrics,
		logger:    logger,
	}, nil
}

// flow accumulates the transitions of a single request.
type flow struct {
	outcome domain.Outcome
}

func (f *flow) enter(state domain.MediatorState) {
	f.outcome.State = state
	f.outcome.Transitions = append(f.outcome.Transitions, state)
}

func (f *flow) reject(err error) domain.Outcome {
	f.outcome.Err = err
	f.enter(domain.StateRejected)
	return f.outcome
}

func (f *flow) serve() domain.Outcome {
	f.enter(domain.StateServed)
	return f.outcome
}

// Handle mediates one request. A presented session token takes precedence over a grant.
func (m *Mediator) Handle(ctx context.Context, req domain.AccessRequest) domain.Outcome {
	if req.SessionToken != "" {
		return m.authorize(ctx, req.SessionToken, req.Endpoint)
	}

	f := &flow{}
	f.enter(domain.StateUnauthenticated)
	if req.GrantCode == "" {
		return f.reject(domain.ErrNotAuthenticated)
	}
	return m.redeem(ctx, f, req.GrantCode, req.Endpoint)
}

// Redeem exchanges a grant and issues a session.
func (m *Mediator) Redeem(ctx context.Context, code, endpoint string) domain.Outcome {
	f := &flow{}
	f.enter(domain.StateUnauthenticated)
	return m.redeem(ctx, f, code, endpoint)
}

// Authorize validates a session token and checks the policy for endpoint.
func (m *Mediator) Authorize(ctx context.Context, token, endpoint string) domain.Outcome {
	return m.authorize(ctx, token, endpoint)
}

func (m *Mediator) redeem(ctx context.Context, f *flow, code, endpoint string) domain.Outcome {
	claims, err := m.exchanger.Exchange(ctx, code)
	if err != nil {
		m.metrics.RecordExchange(exchangeOutcome(err))
		m.logger.Warn("grant exchange failed", zap.String("endpoint", endpoint), zap.Error(err))
		m.publish(ctx, events.New(events.EventExchangeFailed, endpoint, events.Actor{},
			events.FailurePayload{Error: err.Error()}))
		return f.reject(err)
	}

	session, token, err := m.issuer.Issue(claims)
	if err != nil {
		m.metrics.RecordExchange("rejected")
		m.logger.Error("session issuance failed", zap.String("subject", claims.Subject), zap.Error(err))
		m.publish(ctx, events.New(events.EventExchangeFailed, endpoint, events.Actor{Subject: claims.Subject},
			events.FailurePayload{Error: err.Error()}))
		return f.reject(err)
	}
	m.metrics.RecordExchange("success")

	f.outcome.Session = session
	f.outcome.Token = token
	f.enter(domain.StateAuthenticated)

	m.logger.Info("session issued",
		zap.String("subject", session.Subject),
		zap.String("role", session.Role.String()),
		zap.String("session_id", session.ID),
		zap.Time("expires_at", session.ExpiresAt))
	m.publish(ctx, events.New(events.EventSessionIssued, endpoint, actorOf(session),
		events.SessionIssuedPayload{ExpiresAt: session.ExpiresAt}))

	return f.serve()
}

func (m *Mediator) authorize(ctx context.Context, token, endpoint string) domain.Outcome {
	f := &flow{}
	f.enter(domain.StateAuthenticated)

	session, err := m.validator.Validate(token)
	if err != nil {
		reason := rejectionReason(err)
		m.metrics.RecordSessionRejected(reason)
		m.logger.Debug("session rejected", zap.String("endpoint", endpoint), zap.String("reason", reason))
		m.publish(ctx, events.New(events.EventSessionRejected, endpoint, events.Actor{},
			events.FailurePayload{Error: reason}))
		return f.reject(err)
	}
	f.outcome.Session = session
	f.enter(domain.StateAuthorizedPending)

	decision := m.policy.Authorize(endpoint, session.Role)
	f.outcome.Decision = decision
	m.metrics.RecordDecision(decision)
	if !decision.Allow {
		m.logger.Info("access denied",
			zap.String("endpoint", endpoint),
			zap.String("subject", session.Subject),
			zap.String("role", session.Role.String()),
			zap.String("reason", string(decision.Reason)))
		m.publish(ctx, events.New(events.EventAccessDenied, endpoint, actorOf(session),
			events.AccessDeniedPayload{Reason: decision.Reason}))
		return f.reject(&domain.AccessDeniedError{Endpoint: endpoint, Role: session.Role, Reason: decision.Reason})
	}

	return f.serve()
}

func (m *Mediator) publish(ctx context.Context, event events.Event) {
	if m.events == nil {
		return
	}
	_ = m.events.Publish(ctx, event)
}

func actorOf(session *domain.Session) events.Actor {
	return events.Actor{Subject: session.Subject, Role: session.Role, SessionID: session.ID}
}

func exchangeOutcome(err error) string {
	switch {
	case errors.Is(err, domain.ErrExchangeTimeout):
		return "timeout"
	case errors.Is(err, domain.ErrExchangeFailed), errors.Is(err, domain.ErrMissingGrant):
		return "failed"
	default:
		return "rejected"
	}
}

func rejectionReason(err error) string {
	switch {
	case errors.Is(err, domain.ErrSessionExpired):
		return "session_expired"
	case errors.Is(err, domain.ErrInvalidSignature):
		return "invalid_signature"
	default:
		return "malformed_session"
	}
}
