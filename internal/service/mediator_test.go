package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	promtest "github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/AbubakarMugha1/Authentication-and-Access-Control-for-a-Web-Application/internal/auth"
	"github.com/AbubakarMugha1/Authentication-and-Access-Control-for-a-Web-Application/internal/domain"
	"github.com/AbubakarMugha1/Authentication-and-Access-Control-for-a-Web-Application/internal/events"
	"github.com/AbubakarMugha1/Authentication-and-Access-Control-for-a-Web-Application/internal/observability"
	"github.com/AbubakarMugha1/Authentication-and-Access-Control-for-a-Web-Application/internal/policy"
	"github.com/AbubakarMugha1/Authentication-and-Access-Control-for-a-Web-Application/internal/testutil"
)

const (
	issuerURL     = "https://auth.example.test"
	sessionSecret = "mediator-test-session-secret-0123456789"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type eventRecorder struct {
	mu     sync.Mutex
	events []events.Event
}

func (r *eventRecorder) record(_ context.Context, e events.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
	return nil
}

func (r *eventRecorder) types() []events.EventType {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]events.EventType, 0, len(r.events))
	for _, e := range r.events {
		out = append(out, e.Type)
	}
	return out
}

type mediatorFixture struct {
	mediator *Mediator
	server   *testutil.AuthServer
	clock    *fakeClock
	recorder *eventRecorder
	registry *prometheus.Registry
}

func newMediatorFixture(t *testing.T, lifetime, exchangeTimeout time.Duration) *mediatorFixture {
	t.Helper()
	logger := zaptest.NewLogger(t)

	server := testutil.NewAuthServer(t, []byte("issuer-secret"), issuerURL)
	key, err := auth.NewHMACVerificationKey("HS256", server.Secret)
	require.NoError(t, err)
	codec, err := auth.NewClaimCodec(auth.ClaimCodecConfig{Key: key, Issuer: issuerURL})
	require.NoError(t, err)
	exchanger, err := auth.NewTokenExchanger(auth.ExchangeConfig{
		TokenURL: server.TokenURL(),
		ClientID: "web-app",
		Timeout:  exchangeTimeout,
	}, codec, logger)
	require.NoError(t, err)

	clock := &fakeClock{now: time.Now()}
	sessionKey, err := auth.DeriveSessionKey(sessionSecret)
	require.NoError(t, err)
	sessionCfg := auth.SessionConfig{Key: sessionKey, Issuer: "web-app", Lifetime: lifetime, Now: clock.Now}
	issuer, err := auth.NewSessionIssuer(sessionCfg)
	require.NoError(t, err)
	validator, err := auth.NewSessionValidator(sessionCfg)
	require.NoError(t, err)

	engine, err := policy.New([]domain.AccessPolicyEntry{
		{Endpoint: "/dashboard", Roles: []domain.Role{domain.RoleAdmin, domain.RoleReader, domain.RoleCustomer}},
		{Endpoint: "/admin/delete", Roles: []domain.Role{domain.RoleAdmin}},
	})
	require.NoError(t, err)

	recorder := &eventRecorder{}
	dispatcher := events.NewInMemoryDispatcher(logger)
	for _, eventType := range []events.EventType{
		events.EventSessionIssued, events.EventExchangeFailed, events.EventSessionRejected, events.EventAccessDenied,
	} {
		dispatcher.Subscribe(eventType, recorder.record)
	}

	registry := prometheus.NewRegistry()
	mediator, err := NewMediator(MediatorDependencies{
		Exchanger: exchanger,
		Issuer:    issuer,
		Validator: validator,
		Policy:    engine,
		Events:    dispatcher,
		Metrics:   observability.NewMetrics(registry),
		Logger:    logger,
	})
	require.NoError(t, err)

	return &mediatorFixture{mediator: mediator, server: server, clock: clock, recorder: recorder, registry: registry}
}

func (f *mediatorFixture) login(t *testing.T, code, subject, role string) domain.Outcome {
	t.Helper()
	f.server.Grant(code, subject, role, time.Hour)
	outcome := f.mediator.Handle(context.Background(), domain.AccessRequest{Endpoint: "/callback", GrantCode: code})
	require.NoError(t, outcome.Err)
	require.Equal(t, domain.StateServed, outcome.State)
	return outcome
}

// Login, then use the session until its one minute lifetime runs out.
func TestMediator_LoginThenSessionExpires(t *testing.T) {
	t.Parallel()

	f := newMediatorFixture(t, time.Minute, time.Second)
	login := f.login(t, "code-a", "alice", "customer")

	assert.Equal(t, []domain.MediatorState{
		domain.StateUnauthenticated, domain.StateAuthenticated, domain.StateServed,
	}, login.Transitions)
	require.NotEmpty(t, login.Token)
	require.NotNil(t, login.Session)
	assert.Equal(t, "alice", login.Session.Subject)
	assert.Equal(t, domain.RoleCustomer, login.Session.Role)
	assert.Equal(t, time.Minute, login.Session.ExpiresAt.Sub(login.Session.CreatedAt))

	f.clock.Advance(59 * time.Second)
	ok := f.mediator.Handle(context.Background(), domain.AccessRequest{Endpoint: "/dashboard", SessionToken: login.Token})
	require.NoError(t, ok.Err)
	assert.Equal(t, domain.StateServed, ok.State)
	assert.Equal(t, []domain.MediatorState{
		domain.StateAuthenticated, domain.StateAuthorizedPending, domain.StateServed,
	}, ok.Transitions)
	assert.Empty(t, ok.Token)
	assert.True(t, ok.Decision.Allow)

	f.clock.Advance(2 * time.Second)
	expired := f.mediator.Handle(context.Background(), domain.AccessRequest{Endpoint: "/dashboard", SessionToken: login.Token})
	assert.ErrorIs(t, expired.Err, domain.ErrSessionExpired)
	assert.Equal(t, []domain.MediatorState{domain.StateAuthenticated, domain.StateRejected}, expired.Transitions)
	assert.Nil(t, expired.Session)

	assert.Equal(t, []events.EventType{events.EventSessionIssued, events.EventSessionRejected}, f.recorder.types())
	assert.Equal(t, 1, f.server.Requests(), "validation must not contact the authorization server")
}

func TestMediator_PolicyDecisions(t *testing.T) {
	t.Parallel()

	f := newMediatorFixture(t, time.Hour, time.Second)
	reader := f.login(t, "code-reader", "rita", "reader")
	admin := f.login(t, "code-admin", "adam", "admin")

	denied := f.mediator.Authorize(context.Background(), reader.Token, "/admin/delete")
	var accessErr *domain.AccessDeniedError
	require.True(t, errors.As(denied.Err, &accessErr))
	assert.Equal(t, domain.ReasonRoleNotPermitted, accessErr.Reason)
	assert.ErrorIs(t, denied.Err, domain.ErrForbidden)
	assert.Equal(t, []domain.MediatorState{
		domain.StateAuthenticated, domain.StateAuthorizedPending, domain.StateRejected,
	}, denied.Transitions)
	assert.False(t, denied.Decision.Allow)

	allowed := f.mediator.Authorize(context.Background(), admin.Token, "/admin/delete")
	require.NoError(t, allowed.Err)
	assert.Equal(t, domain.StateServed, allowed.State)

	unknown := f.mediator.Authorize(context.Background(), admin.Token, "/nowhere")
	require.True(t, errors.As(unknown.Err, &accessErr))
	assert.Equal(t, domain.ReasonUnknownEndpoint, accessErr.Reason)

	count, err := promtest.GatherAndCount(f.registry, "authz_decisions_total")
	require.NoError(t, err)
	assert.Equal(t, 3, count)
}

func TestMediator_ExchangeTimeout(t *testing.T) {
	t.Parallel()

	f := newMediatorFixture(t, time.Hour, 50*time.Millisecond)
	f.server.Grant("slow", "alice", "customer", time.Hour)
	f.server.SetDelay(time.Second)

	outcome := f.mediator.Redeem(context.Background(), "slow", "/callback")

	assert.ErrorIs(t, outcome.Err, domain.ErrExchangeTimeout)
	assert.Equal(t, []domain.MediatorState{domain.StateUnauthenticated, domain.StateRejected}, outcome.Transitions)
	assert.Empty(t, outcome.Token)
	assert.Nil(t, outcome.Session)
	assert.Equal(t, []events.EventType{events.EventExchangeFailed}, f.recorder.types())
}

func TestMediator_RejectedGrants(t *testing.T) {
	t.Parallel()

	f := newMediatorFixture(t, time.Hour, time.Second)
	f.server.Grant("no-role", "alice", "", time.Hour)

	tests := []struct {
		name string
		req  domain.AccessRequest
		want error
	}{
		{"nothing presented", domain.AccessRequest{Endpoint: "/dashboard"}, domain.ErrNotAuthenticated},
		{"unknown grant", domain.AccessRequest{Endpoint: "/callback", GrantCode: "bogus"}, domain.ErrExchangeFailed},
		{"token without role", domain.AccessRequest{Endpoint: "/callback", GrantCode: "no-role"}, domain.ErrUnknownRole},
		{"garbage session", domain.AccessRequest{Endpoint: "/dashboard", SessionToken: "x.y.z"}, domain.ErrMalformedSession},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			outcome := f.mediator.Handle(context.Background(), tt.req)
			assert.ErrorIs(t, outcome.Err, tt.want)
			assert.Equal(t, domain.StateRejected, outcome.State)
			assert.True(t, outcome.State.Terminal())
			assert.Empty(t, outcome.Token)
		})
	}
}

func TestMediator_SessionTakesPrecedenceOverGrant(t *testing.T) {
	t.Parallel()

	f := newMediatorFixture(t, time.Hour, time.Second)
	login := f.login(t, "code-a", "alice", "customer")

	outcome := f.mediator.Handle(context.Background(), domain.AccessRequest{
		Endpoint: "/dashboard", SessionToken: login.Token, GrantCode: "code-a",
	})
	require.NoError(t, outcome.Err)
	assert.Equal(t, 1, f.server.Requests())
}

func TestNewMediator_RequiresCollaborators(t *testing.T) {
	t.Parallel()

	_, err := NewMediator(MediatorDependencies{})
	assert.Error(t, err)
}

// Code abc123 for u1/reader with a one hour external token yields a 30 minute session.
func TestMediator_SessionLifetimeIgnoresExternalExpiry(t *testing.T) {
	t.Parallel()

	f := newMediatorFixture(t, 30*time.Minute, time.Second)
	outcome := f.login(t, "abc123", "u1", "reader")

	assert.Equal(t, "u1", outcome.Session.Subject)
	assert.Equal(t, domain.RoleReader, outcome.Session.Role)
	assert.WithinDuration(t, f.clock.Now().Add(30*time.Minute), outcome.Session.ExpiresAt, time.Second)

	count, err := promtest.GatherAndCount(f.registry, "token_exchanges_total")
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}
