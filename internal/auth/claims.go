package auth

import (
	"errors"
	"fmt"
	"strings"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"

	"github.com/AbubakarMugha1/Authentication-and-Access-Control-for-a-Web-Application/internal/domain"
)

// externalClaims is the payload of a token issued by the authorization server. The role may arrive
// as "role" (string or list), "roles" (list) or "scope" (space delimited), in that precedence.
type externalClaims struct {
	Role  any      `json:"role,omitempty"`
	Roles []string `json:"roles,omitempty"`
	Scope string   `json:"scope,omitempty"`
	jwt.RegisteredClaims
}

// ClaimCodecConfig configures a ClaimCodec.
type ClaimCodecConfig struct {
	Key             VerificationKey
	Issuer          string
	RoleFromSubject bool
	Now             func() time.Time
}

// ClaimCodec decodes and validates tokens issued by the trusted authorization server.
type ClaimCodec struct {
	key             VerificationKey
	issuer          string
	roleFromSubject bool
	now             func() time.Time
	parser          *jwt.Parser
}

// NewClaimCodec builds a codec bound to one issuer and one verification key.
func NewClaimCodec(cfg ClaimCodecConfig) (*ClaimCodec, error) {
	if cfg.Key.Method == nil || cfg.Key.Key == nil {
		return nil, errors.New("claim codec: verification key is required")
	}
	if cfg.Issuer == "" {
		return nil, errors.New("claim codec: trusted issuer is required")
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	return &ClaimCodec{
		key:             cfg.Key,
		issuer:          cfg.Issuer,
		roleFromSubject: cfg.RoleFromSubject,
		now:             now,
		parser: jwt.NewParser(
			jwt.WithValidMethods([]string{cfg.Key.Method.Alg()}),
			jwt.WithExpirationRequired(),
			jwt.WithStrictDecoding(),
			jwt.WithTimeFunc(now),
		),
	}, nil
}

// Decode verifies raw and returns its claim set.
func (c *ClaimCodec) Decode(raw []byte) (*domain.ExternalClaimSet, error) {
	if len(raw) == 0 {
		return nil, fmt.Errorf("%w: empty token", domain.ErrMalformedToken)
	}

	var claims externalClaims
	token, err := c.parser.ParseWithClaims(string(raw), &claims, func(*jwt.Token) (interface{}, error) {
		return c.key.Key, nil
	})
	if err != nil {
		return nil, classifyDecodeError(err)
	}
	if !token.Valid {
		return nil, domain.ErrMalformedToken
	}

	if claims.Issuer != c.issuer {
		return nil, fmt.Errorf("%w: %q", domain.ErrUntrustedIssuer, claims.Issuer)
	}
	if strings.TrimSpace(claims.Subject) == "" {
		return nil, fmt.Errorf("%w: subject missing", domain.ErrMalformedToken)
	}

	set := &domain.ExternalClaimSet{
		Subject:   claims.Subject,
		Issuer:    claims.Issuer,
		ExpiresAt: claims.ExpiresAt.Time,
		Signature: token.Signature,
	}
	if claims.IssuedAt != nil {
		set.IssuedAt = claims.IssuedAt.Time
		if !set.ExpiresAt.After(set.IssuedAt) {
			return nil, fmt.Errorf("%w: expiry not after issued-at", domain.ErrMalformedToken)
		}
	}

	roles, err := c.resolveRoles(&claims)
	if err != nil {
		return nil, err
	}
	set.Roles = roles
	return set, nil
}

func (c *ClaimCodec) resolveRoles(claims *externalClaims) ([]domain.Role, error) {
	raw, err := claims.rawRoles()
	if err != nil {
		return nil, err
	}

	if len(raw) == 0 {
		if !c.roleFromSubject {
			return nil, fmt.Errorf("%w: token carries no role", domain.ErrUnknownRole)
		}
		role, err := domain.RoleFromSubject(claims.Subject)
		if err != nil {
			return nil, err
		}
		return []domain.Role{role}, nil
	}

	roles := make([]domain.Role, 0, len(raw))
	seen := make(map[domain.Role]struct{}, len(raw))
	for _, value := range raw {
		role, err := domain.ParseRole(value)
		if err != nil {
			return nil, err
		}
		if _, dup := seen[role]; dup {
			continue
		}
		seen[role] = struct{}{}
		roles = append(roles, role)
	}
	return roles, nil
}

func (c *externalClaims) rawRoles() ([]string, error) {
	switch v := c.Role.(type) {
	case nil:
	case string:
		if v != "" {
			return []string{v}, nil
		}
	case []interface{}:
		out := make([]string, 0, len(v))
		for _, item := range v {
			s, ok := item.(string)
			if !ok {
				return nil, fmt.Errorf("%w: role list contains %T", domain.ErrMalformedToken, item)
			}
			out = append(out, s)
		}
		if len(out) > 0 {
			return out, nil
		}
	default:
		return nil, fmt.Errorf("%w: role claim has type %T", domain.ErrMalformedToken, v)
	}

	if len(c.Roles) > 0 {
		return c.Roles, nil
	}
	return strings.Fields(c.Scope), nil
}

func classifyDecodeError(err error) error {
	switch {
	case errors.Is(err, jwt.ErrTokenMalformed), errors.Is(err, jwt.ErrTokenUnverifiable):
		return fmt.Errorf("%w: %v", domain.ErrMalformedToken, err)
	case errors.Is(err, jwt.ErrTokenSignatureInvalid):
		return fmt.Errorf("%w: %v", domain.ErrInvalidSignature, err)
	case errors.Is(err, jwt.ErrTokenExpired):
		return fmt.Errorf("%w: %v", domain.ErrTokenExpired, err)
	default:
		return fmt.Errorf("%w: %v", domain.ErrMalformedToken, err)
	}
}
