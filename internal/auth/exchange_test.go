package auth

import (
	"context"
	"net/http"
	"testing"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/AbubakarMugha1/Authentication-and-Access-Control-for-a-Web-Application/internal/domain"
	"github.com/AbubakarMugha1/Authentication-and-Access-Control-for-a-Web-Application/internal/testutil"
)

func newExchangeFixture(t *testing.T, timeout time.Duration) (*TokenExchanger, *testutil.AuthServer) {
	t.Helper()

	server := testutil.NewAuthServer(t, []byte(testIssuerSecret), testIssuer)
	key, err := NewHMACVerificationKey("HS256", server.Secret)
	require.NoError(t, err)
	codec, err := NewClaimCodec(ClaimCodecConfig{Key: key, Issuer: testIssuer})
	require.NoError(t, err)

	exchanger, err := NewTokenExchanger(ExchangeConfig{
		TokenURL:     server.TokenURL(),
		ClientID:     "web-app",
		ClientSecret: "client-secret",
		RedirectURL:  "http://localhost:8080/callback",
		Timeout:      timeout,
	}, codec, zaptest.NewLogger(t))
	require.NoError(t, err)
	return exchanger, server
}

func TestTokenExchanger_Success(t *testing.T) {
	t.Parallel()

	exchanger, server := newExchangeFixture(t, 2*time.Second)
	server.Grant("code-123", "alice", "customer", time.Hour)

	claims, err := exchanger.Exchange(context.Background(), "code-123")
	require.NoError(t, err)
	assert.Equal(t, "alice", claims.Subject)
	assert.Equal(t, []domain.Role{domain.RoleCustomer}, claims.Roles)

	form := server.LastForm()
	assert.Equal(t, "authorization_code", form["grant_type"])
	assert.Equal(t, "code-123", form["code"])
	assert.Equal(t, "web-app", form["client_id"])
	assert.Equal(t, "client-secret", form["client_secret"])
	assert.Equal(t, "http://localhost:8080/callback", form["redirect_uri"])
	assert.Equal(t, 1, server.Requests())
}

func TestTokenExchanger_MissingGrantMakesNoCall(t *testing.T) {
	t.Parallel()

	exchanger, server := newExchangeFixture(t, time.Second)

	for _, code := range []string{"", "   "} {
		_, err := exchanger.Exchange(context.Background(), code)
		assert.ErrorIs(t, err, domain.ErrMissingGrant)
	}
	assert.Zero(t, server.Requests())
}

func TestTokenExchanger_Timeout(t *testing.T) {
	t.Parallel()

	exchanger, server := newExchangeFixture(t, 50*time.Millisecond)
	server.Grant("slow", "alice", "customer", time.Hour)
	server.SetDelay(time.Second)

	start := time.Now()
	_, err := exchanger.Exchange(context.Background(), "slow")

	assert.ErrorIs(t, err, domain.ErrExchangeTimeout)
	assert.ErrorIs(t, err, domain.ErrExchangeFailed)
	assert.Less(t, time.Since(start), 900*time.Millisecond)
}

func TestTokenExchanger_CallerDeadline(t *testing.T) {
	t.Parallel()

	exchanger, server := newExchangeFixture(t, 5*time.Second)
	server.Grant("slow", "alice", "customer", time.Hour)
	server.SetDelay(time.Second)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := exchanger.Exchange(ctx, "slow")
	assert.ErrorIs(t, err, domain.ErrExchangeTimeout)
}

func TestTokenExchanger_ServerFailures(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		setup func(*testutil.AuthServer)
		code  string
	}{
		{"unknown grant", func(*testutil.AuthServer) {}, "nope"},
		{"server error", func(s *testutil.AuthServer) {
			s.Grant("code", "alice", "customer", time.Hour)
			s.SetStatus(http.StatusInternalServerError)
		}, "code"},
		{"unavailable", func(s *testutil.AuthServer) {
			s.Grant("code", "alice", "customer", time.Hour)
			s.SetStatus(http.StatusServiceUnavailable)
		}, "code"},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			exchanger, server := newExchangeFixture(t, time.Second)
			tt.setup(server)

			claims, err := exchanger.Exchange(context.Background(), tt.code)
			assert.Nil(t, claims)
			assert.ErrorIs(t, err, domain.ErrExchangeFailed)
			assert.NotErrorIs(t, err, domain.ErrExchangeTimeout)
		})
	}
}

func TestTokenExchanger_UnreachableServer(t *testing.T) {
	t.Parallel()

	exchanger, server := newExchangeFixture(t, time.Second)
	server.Server.Close()

	_, err := exchanger.Exchange(context.Background(), "code")
	assert.ErrorIs(t, err, domain.ErrExchangeFailed)
}

func TestTokenExchanger_DecoderErrorsPassThrough(t *testing.T) {
	t.Parallel()

	exchanger, server := newExchangeFixture(t, time.Second)
	server.GrantClaims("wrong-issuer", jwt.MapClaims{
		"sub": "alice", "iss": "https://evil.test", "role": "admin", "exp": time.Now().Add(time.Hour).Unix(),
	})
	server.GrantClaims("expired", jwt.MapClaims{
		"sub": "alice", "iss": testIssuer, "role": "admin", "exp": time.Now().Add(-time.Hour).Unix(),
	})

	_, err := exchanger.Exchange(context.Background(), "wrong-issuer")
	assert.ErrorIs(t, err, domain.ErrUntrustedIssuer)
	assert.NotErrorIs(t, err, domain.ErrExchangeFailed)

	_, err = exchanger.Exchange(context.Background(), "expired")
	assert.ErrorIs(t, err, domain.ErrTokenExpired)
}

func TestExchangeConfig_ValidateAndRedact(t *testing.T) {
	t.Parallel()

	cfg := ExchangeConfig{TokenURL: "http://auth.test/token", ClientID: "id", ClientSecret: "hunter2", Timeout: time.Second}
	require.NoError(t, cfg.Validate())
	assert.NotContains(t, cfg.String(), "hunter2")
	assert.Contains(t, cfg.String(), "[REDACTED]")

	assert.Error(t, ExchangeConfig{ClientID: "id", Timeout: time.Second}.Validate())
	assert.Error(t, ExchangeConfig{TokenURL: "not a url", ClientID: "id", Timeout: time.Second}.Validate())
	assert.Error(t, ExchangeConfig{TokenURL: "http://auth.test/token", Timeout: time.Second}.Validate())
	assert.Error(t, ExchangeConfig{TokenURL: "http://auth.test/token", ClientID: "id"}.Validate())

	_, err := NewTokenExchanger(cfg, nil, nil)
	assert.Error(t, err)
}
