package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/AbubakarMugha1/Authentication-and-Access-Control-for-a-Web-Application/internal/domain"
)

const (
	grantTypeAuthorizationCode = "authorization_code"

	// maxResponseBodySize caps how much of a token endpoint response is read (1 MiB).
	maxResponseBodySize = 1 << 20

	redactedPlaceholder = "[REDACTED]"
	emptyPlaceholder    = "<empty>"
)

// ClaimDecoder turns a raw signed token into a validated claim set.
type ClaimDecoder interface {
	Decode(raw []byte) (*domain.ExternalClaimSet, error)
}

// ExchangeConfig holds the client settings for the authorization server's token endpoint.
type ExchangeConfig struct {
	TokenURL     string
	ClientID     string
	ClientSecret string
	RedirectURL  string
	// Timeout bounds the whole round trip, including reading the body.
	Timeout time.Duration
	// HTTPClient overrides the client built from Timeout.
	HTTPClient *http.Client
}

// String implements fmt.Stringer, redacting the client secret.
func (c ExchangeConfig) String() string {
	secret := redactedPlaceholder
	if c.ClientSecret == "" {
		secret = emptyPlaceholder
	}
	return fmt.Sprintf("ExchangeConfig{TokenURL: %s, ClientID: %s, ClientSecret: %s, Timeout: %s}",
		c.TokenURL, c.ClientID, secret, c.Timeout)
}

// Validate checks that the configuration can reach a token endpoint.
func (c ExchangeConfig) Validate() error {
	if c.TokenURL == "" {
		return errors.New("TokenURL is required")
	}
	if _, err := url.ParseRequestURI(c.TokenURL); err != nil {
		return fmt.Errorf("TokenURL is not a valid URL: %w", err)
	}
	if c.ClientID == "" {
		return errors.New("ClientID is required")
	}
	if c.Timeout <= 0 {
		return errors.New("Timeout must be positive")
	}
	return nil
}

// oAuthError is an RFC 6749 section 5.2 error body.
type oAuthError struct {
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description,omitempty"`
}

// tokenResponse accepts the dummy server's "token" field as well as the standard ones.
type tokenResponse struct {
	IDToken     string `json:"id_token"`
	Token       string `json:"token"`
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int    `json:"expires_in"`
}

func (r tokenResponse) signedToken() string {
	for _, candidate := range []string{r.IDToken, r.Token, r.AccessToken} {
		if candidate != "" {
			return candidate
		}
	}
	return ""
}

// TokenExchanger redeems authorization grants at the token endpoint.
type TokenExchanger struct {
	cfg    ExchangeConfig
	client *http.Client
	codec  ClaimDecoder
	logger *zap.Logger
}

// NewTokenExchanger builds an exchanger. It keeps no state between calls.
func NewTokenExchanger(cfg ExchangeConfig, codec ClaimDecoder, logger *zap.Logger) (*TokenExchanger, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid exchange config: %w", err)
	}
	if codec == nil {
		return nil, errors.New("claim decoder is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	client := cfg.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: cfg.Timeout}
	}
	return &TokenExchanger{cfg: cfg, client: client, codec: codec, logger: logger}, nil
}

// Exchange performs one round trip for code and decodes the returned token.
// Decoder errors are returned unchanged.
func (e *TokenExchanger) Exchange(ctx context.Context, code string) (*domain.ExternalClaimSet, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return nil, domain.ErrMissingGrant
	}

	ctx, cancel := context.WithTimeout(ctx, e.cfg.Timeout)
	defer cancel()

	raw, err := e.requestToken(ctx, code)
	if err != nil {
		return nil, err
	}
	return e.codec.Decode([]byte(raw))
}

func (e *TokenExchanger) requestToken(ctx context.Context, code string) (string, error) {
	form := url.Values{}
	form.Set("grant_type", grantTypeAuthorizationCode)
	form.Set("code", code)
	form.Set("client_id", e.cfg.ClientID)
	if e.cfg.ClientSecret != "" {
		form.Set("client_secret", e.cfg.ClientSecret)
	}
	if e.cfg.RedirectURL != "" {
		form.Set("redirect_uri", e.cfg.RedirectURL)
	}
	encoded := form.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.cfg.TokenURL, strings.NewReader(encoded))
	if err != nil {
		return "", fmt.Errorf("%w: build request: %v", domain.ErrExchangeFailed, err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Content-Length", strconv.Itoa(len(encoded)))
	req.Header.Set("Accept", "application/json")

	resp, err := e.client.Do(req)
	if err != nil {
		return "", e.transportError(ctx, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBodySize))
	if err != nil {
		return "", e.transportError(ctx, err)
	}

	if err := e.validateResponseStatus(resp.StatusCode, body); err != nil {
		return "", err
	}

	var tokenResp tokenResponse
	if err := json.Unmarshal(body, &tokenResp); err != nil {
		e.logger.Debug("token endpoint returned unparsable body", zap.Error(err))
		return "", fmt.Errorf("%w: unparsable token response", domain.ErrExchangeFailed)
	}
	token := tokenResp.signedToken()
	if token == "" {
		return "", fmt.Errorf("%w: token response carries no token", domain.ErrExchangeFailed)
	}
	return token, nil
}

func (e *TokenExchanger) validateResponseStatus(statusCode int, body []byte) error {
	if statusCode >= http.StatusOK && statusCode < http.StatusMultipleChoices {
		return nil
	}

	var oauthErr oAuthError
	if err := json.Unmarshal(body, &oauthErr); err == nil && oauthErr.Error != "" {
		e.logger.Debug("token endpoint rejected grant",
			zap.Int("status", statusCode),
			zap.String("error", oauthErr.Error),
			zap.String("description", oauthErr.ErrorDescription))
		return fmt.Errorf("%w: status %d: %s", domain.ErrExchangeFailed, statusCode, oauthErr.Error)
	}

	e.logger.Debug("token endpoint failed", zap.Int("status", statusCode))
	return fmt.Errorf("%w: status %d", domain.ErrExchangeFailed, statusCode)
}

func (e *TokenExchanger) transportError(ctx context.Context, err error) error {
	if errors.Is(ctx.Err(), context.DeadlineExceeded) || errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w after %s", domain.ErrExchangeTimeout, e.cfg.Timeout)
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return fmt.Errorf("%w after %s", domain.ErrExchangeTimeout, e.cfg.Timeout)
	}
	return fmt.Errorf("%w: %v", domain.ErrExchangeFailed, err)
}
