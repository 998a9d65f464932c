package auth

import (
	"errors"
	"fmt"
	"strings"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/AbubakarMugha1/Authentication-and-Access-Control-for-a-Web-Application/internal/domain"
)

// sessionClaims describes the session token payload.
type sessionClaims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// SessionConfig configures both halves of the session mechanism.
type SessionConfig struct {
	Key      []byte
	Issuer   string
	Lifetime time.Duration
	Now      func() time.Time
}

func (c SessionConfig) validate() error {
	if len(c.Key) == 0 {
		return domain.ErrSigningKeyUnavailable
	}
	if c.Issuer == "" {
		return errors.New("session issuer name is required")
	}
	if c.Lifetime <= 0 {
		return errors.New("session lifetime must be positive")
	}
	return nil
}

func (c SessionConfig) clock() func() time.Time {
	if c.Now == nil {
		return time.Now
	}
	return c.Now
}

// SessionIssuer mints signed session tokens from validated external claims.
type SessionIssuer struct {
	key      []byte
	issuer   string
	lifetime time.Duration
	now      func() time.Time
}

// NewSessionIssuer builds an issuer.
func NewSessionIssuer(cfg SessionConfig) (*SessionIssuer, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &SessionIssuer{key: cfg.Key, issuer: cfg.Issuer, lifetime: cfg.Lifetime, now: cfg.clock()}, nil
}

// Lifetime returns the fixed session lifetime.
func (i *SessionIssuer) Lifetime() time.Duration {
	return i.lifetime
}

// Issue derives a session from claims and returns it with its wire form.
func (i *SessionIssuer) Issue(claims *domain.ExternalClaimSet) (*domain.Session, string, error) {
	if claims == nil || claims.Subject == "" {
		return nil, "", fmt.Errorf("%w: no subject to issue a session for", domain.ErrMalformedToken)
	}
	role, ok := claims.PrimaryRole()
	if !ok || !role.Valid() {
		return nil, "", fmt.Errorf("%w: claims carry no usable role", domain.ErrUnknownRole)
	}
	if len(i.key) == 0 {
		return nil, "", domain.ErrSigningKeyUnavailable
	}

	createdAt := i.now().UTC().Truncate(time.Second)
	session := &domain.Session{
		ID:        uuid.NewString(),
		Subject:   claims.Subject,
		Role:      role,
		CreatedAt: createdAt,
		ExpiresAt: createdAt.Add(i.lifetime),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, &sessionClaims{
		Role: string(role),
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        session.ID,
			Subject:   session.Subject,
			Issuer:    i.issuer,
			IssuedAt:  jwt.NewNumericDate(session.CreatedAt),
			ExpiresAt: jwt.NewNumericDate(session.ExpiresAt),
		},
	})

	signingString, err := token.SigningString()
	if err != nil {
		return nil, "", fmt.Errorf("encode session: %w", err)
	}
	signature, err := token.Method.Sign(signingString, i.key)
	if err != nil {
		return nil, "", fmt.Errorf("%w: %v", domain.ErrSigningKeyUnavailable, err)
	}
	session.Signature = signature

	return session, signingString + "." + token.EncodeSegment(signature), nil
}

// SessionValidator verifies session tokens without any server-side lookup.
type SessionValidator struct {
	key      []byte
	issuer   string
	lifetime time.Duration
	now      func() time.Time
	parser   *jwt.Parser
}

// NewSessionValidator builds a validator sharing the issuer's configuration.
func NewSessionValidator(cfg SessionConfig) (*SessionValidator, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	now := cfg.clock()
	return &SessionValidator{
		key:      cfg.Key,
		issuer:   cfg.Issuer,
		lifetime: cfg.Lifetime,
		now:      now,
		parser: jwt.NewParser(
			jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
			jwt.WithExpirationRequired(),
			jwt.WithIssuer(cfg.Issuer),
			jwt.WithStrictDecoding(),
			jwt.WithTimeFunc(now),
		),
	}, nil
}

// Validate checks structure, signature, expiry and claim consistency, in that order.
func (v *SessionValidator) Validate(raw string) (*domain.Session, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, fmt.Errorf("%w: empty token", domain.ErrMalformedSession)
	}

	var claims sessionClaims
	token, err := v.parser.ParseWithClaims(raw, &claims, func(*jwt.Token) (interface{}, error) {
		return v.key, nil
	})
	if err != nil {
		return nil, classifySessionError(err)
	}
	if !token.Valid {
		return nil, domain.ErrMalformedSession
	}

	session := &domain.Session{
		ID:        claims.ID,
		Subject:   claims.Subject,
		ExpiresAt: claims.ExpiresAt.Time.UTC(),
		Signature: token.Signature,
	}
	if session.Expired(v.now()) {
		return nil, domain.ErrSessionExpired
	}

	if claims.ID == "" || claims.Subject == "" || claims.IssuedAt == nil {
		return nil, fmt.Errorf("%w: missing claims", domain.ErrMalformedSession)
	}
	session.CreatedAt = claims.IssuedAt.Time.UTC()
	if !session.ExpiresAt.After(session.CreatedAt) || session.ExpiresAt.Sub(session.CreatedAt) > v.lifetime {
		return nil, fmt.Errorf("%w: inconsistent lifetime", domain.ErrMalformedSession)
	}
	role, err := domain.ParseRole(claims.Role)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrMalformedSession, err)
	}
	session.Role = role

	return session, nil
}

func classifySessionError(err error) error {
	switch {
	case errors.Is(err, jwt.ErrTokenMalformed), errors.Is(err, jwt.ErrTokenUnverifiable):
		return fmt.Errorf("%w: %v", domain.ErrMalformedSession, err)
	case errors.Is(err, jwt.ErrTokenSignatureInvalid):
		return fmt.Errorf("%w: %v", domain.ErrInvalidSignature, err)
	case errors.Is(err, jwt.ErrTokenExpired):
		return domain.ErrSessionExpired
	default:
		return fmt.Errorf("%w: %v", domain.ErrMalformedSession, err)
	}
}
