package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config aggregates runtime configuration for the service.
type Config struct {
	App     AppConfig
	Redis   RedisConfig
	Logger  LoggerConfig
	OAuth   OAuthConfig
	Issuer  IssuerConfig
	Session SessionConfig
	Policy  PolicyConfig
}

// AppConfig controls server level behavior.
type AppConfig struct {
	Name                  string
	Env                   string
	Host                  string
	Port                  string
	Version               string
	RequestTimeoutSeconds int
	// LandingURL is where signed-out and expired browsers are sent.
	LandingURL    string
	PostLoginPath string
}

// RedisConfig holds Redis connection values. An empty Addr disables audit fan-out.
type RedisConfig struct {
	Addr         string
	Password     string
	DB           int
	AuditChannel string
}

// LoggerConfig configures logging behavior.
type LoggerConfig struct {
	Level string
}

// OAuthConfig describes this application as an OAuth client of the authorization server.
type OAuthConfig struct {
	AuthorizeURL    string
	TokenURL        string
	ClientID        string
	ClientSecret    string
	RedirectURL     string
	Scopes          []string
	ExchangeTimeout time.Duration
	RequireState    bool
}

// IssuerConfig describes how tokens from the authorization server are verified.
type IssuerConfig struct {
	Issuer        string
	Algorithm     string
	Secret        string
	PublicKeyFile string
	// RoleFromSubject derives the role from the username suffix when the token carries none.
	RoleFromSubject bool
}

// SessionConfig defines locally issued session parameters.
type SessionConfig struct {
	Secret         string
	Lifetime       time.Duration
	CookieName     string
	CookieSecure   bool
	CookieSameSite string
}

// PolicyConfig points at the access policy table.
type PolicyConfig struct {
	File string
}

// Load reads configuration from environment variables, applying defaults where possible.
func Load() (*Config, error) {
	_ = godotenv.Load()

	redisDB, err := strconv.Atoi(getEnv("REDIS_DB", "0"))
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_DB: %w", err)
	}

	cfg := &Config{
		App: AppConfig{
			Name:                  getEnv("APP_NAME", "access-control-client"),
			Env:                   getEnv("APP_ENV", "development"),
			Host:                  getEnv("APP_HOST", "0.0.0.0"),
			Port:                  getEnv("APP_PORT", "8080"),
			Version:               getEnv("APP_VERSION", "dev"),
			RequestTimeoutSeconds: getEnvAsInt("HTTP_REQUEST_TIMEOUT_SECONDS", 30),
			LandingURL:            getEnv("APP_LANDING_URL", "/"),
			PostLoginPath:         getEnv("APP_POST_LOGIN_PATH", "/dashboard"),
		},
		Redis: RedisConfig{
			Addr:         os.Getenv("REDIS_ADDR"),
			Password:     os.Getenv("REDIS_PASSWORD"),
			DB:           redisDB,
			AuditChannel: getEnv("REDIS_AUDIT_CHANNEL", "auth.audit"),
		},
		Logger: LoggerConfig{
			Level: getEnv("LOG_LEVEL", "info"),
		},
		OAuth: OAuthConfig{
			AuthorizeURL:    os.Getenv("OAUTH_AUTHORIZE_URL"),
			TokenURL:        os.Getenv("OAUTH_TOKEN_URL"),
			ClientID:        os.Getenv("CLIENT_ID"),
			ClientSecret:    os.Getenv("CLIENT_SECRET"),
			RedirectURL:     os.Getenv("OAUTH_REDIRECT_URL"),
			Scopes:          getEnvAsList("OAUTH_SCOPES", nil),
			ExchangeTimeout: getEnvAsDuration("OAUTH_EXCHANGE_TIMEOUT", 5*time.Second),
			RequireState:    getEnvAsBool("OAUTH_REQUIRE_STATE", true),
		},
		Issuer: IssuerConfig{
			Issuer:          os.Getenv("AUTH_SERVER_ISSUER"),
			Algorithm:       getEnv("ALGORITHM", "HS256"),
			Secret:          os.Getenv("AUTH_SERVER_SECRET"),
			PublicKeyFile:   os.Getenv("AUTH_SERVER_PUBLIC_KEY_FILE"),
			RoleFromSubject: getEnvAsBool("AUTH_ROLE_FROM_SUBJECT", false),
		},
		Session: SessionConfig{
			Secret:         os.Getenv("SESSION_SECRET"),
			Lifetime:       getEnvAsDuration("SESSION_LIFETIME", 30*time.Minute),
			CookieName:     getEnv("SESSION_COOKIE_NAME", "session_token"),
			CookieSecure:   getEnvAsBool("SESSION_COOKIE_SECURE", true),
			CookieSameSite: getEnv("SESSION_COOKIE_SAMESITE", "Lax"),
		},
		Policy: PolicyConfig{
			File: getEnv("POLICY_FILE", "configs/policy.yaml"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate reports every missing or inconsistent setting at once.
func (c *Config) Validate() error {
	var errs []error
	if c.OAuth.TokenURL == "" {
		errs = append(errs, errors.New("OAUTH_TOKEN_URL is required"))
	}
	if c.OAuth.ClientID == "" {
		errs = append(errs, errors.New("CLIENT_ID is required"))
	}
	if c.OAuth.ExchangeTimeout <= 0 {
		errs = append(errs, errors.New("OAUTH_EXCHANGE_TIMEOUT must be positive"))
	}
	if c.Issuer.Issuer == "" {
		errs = append(errs, errors.New("AUTH_SERVER_ISSUER is required"))
	}
	if c.Issuer.Secret == "" && c.Issuer.PublicKeyFile == "" {
		errs = append(errs, errors.New("AUTH_SERVER_SECRET or AUTH_SERVER_PUBLIC_KEY_FILE is required"))
	}
	if c.Session.Secret == "" {
		errs = append(errs, errors.New("SESSION_SECRET is required"))
	}
	if c.Session.Lifetime <= 0 {
		errs = append(errs, errors.New("SESSION_LIFETIME must be positive"))
	}
	if c.Policy.File == "" {
		errs = append(errs, errors.New("POLICY_FILE is required"))
	}
	return errors.Join(errs...)
}

// Addr returns the HTTP bind address.
func (a AppConfig) Addr() string {
	return fmt.Sprintf("%s:%s", a.Host, a.Port)
}

// RequestTimeout returns the configured request timeout duration.
func (a AppConfig) RequestTimeout() time.Duration {
	if a.RequestTimeoutSeconds <= 0 {
		return 0
	}
	return time.Duration(a.RequestTimeoutSeconds) * time.Second
}

// Enabled reports whether audit events should be published to Redis.
func (r RedisConfig) Enabled() bool {
	return r.Addr != ""
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(val)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvAsBool(key string, fallback bool) bool {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(val)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvAsDuration(key string, fallback time.Duration) time.Duration {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parsed, err := time.ParseDuration(val)
	if err != nil {
		return fallback
	}
	return parsed
}

// getEnvAsList splits a comma or space separated value.
func getEnvAsList(key string, fallback []string) []string {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	return strings.FieldsFunc(val, func(r rune) bool {
		return r == ',' || r == ' '
	})
}
