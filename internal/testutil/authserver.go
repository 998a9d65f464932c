// Package testutil holds fakes shared by package tests.
package testutil

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"
)

// AuthServer is a stand-in for the external authorization server's token endpoint.
// Each registered grant code is answered with an HS256 token signed with Secret.
type AuthServer struct {
	Server *httptest.Server
	Secret []byte
	Issuer string

	mu     sync.Mutex
	grants map[string]jwt.MapClaims
	delay  time.Duration
	status int
	forms  []map[string]string
}

// NewAuthServer starts the fake and closes it when t finishes.
func NewAuthServer(t testing.TB, secret []byte, issuer string) *AuthServer {
	t.Helper()

	s := &AuthServer{
		Secret: secret,
		Issuer: issuer,
		grants: make(map[string]jwt.MapClaims),
	}
	s.Server = httptest.NewServer(http.HandlerFunc(s.serveToken))
	t.Cleanup(s.Server.Close)
	return s
}

// TokenURL is the endpoint to configure the exchanger with.
func (s *AuthServer) TokenURL() string {
	return s.Server.URL + "/token"
}

// Grant registers code for subject with role and a token lifetime of ttl.
func (s *AuthServer) Grant(code, subject, role string, ttl time.Duration) {
	now := time.Now()
	claims := jwt.MapClaims{
		"sub": subject,
		"iss": s.Issuer,
		"iat": now.Unix(),
		"exp": now.Add(ttl).Unix(),
	}
	if role != "" {
		claims["role"] = role
	}
	s.GrantClaims(code, claims)
}

// GrantClaims registers code with an arbitrary claim set.
func (s *AuthServer) GrantClaims(code string, claims jwt.MapClaims) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.grants[code] = claims
}

// SetDelay makes the endpoint wait before answering.
func (s *AuthServer) SetDelay(d time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.delay = d
}

// SetStatus forces every response to status with an OAuth error body. Zero restores normal behaviour.
func (s *AuthServer) SetStatus(status int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.status = status
}

// Requests returns how many token requests were received.
func (s *AuthServer) Requests() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.forms)
}

// LastForm returns the form values of the most recent token request.
func (s *AuthServer) LastForm() map[string]string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.forms) == 0 {
		return nil
	}
	return s.forms[len(s.forms)-1]
}

// SignHS256 signs claims with secret.
func SignHS256(t testing.TB, secret []byte, claims jwt.MapClaims) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return token
}

func (s *AuthServer) serveToken(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost || r.URL.Path != "/token" {
		http.NotFound(w, r)
		return
	}
	if err := r.ParseForm(); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid_request"})
		return
	}

	form := make(map[string]string, len(r.PostForm))
	for key := range r.PostForm {
		form[key] = r.PostForm.Get(key)
	}

	s.mu.Lock()
	s.forms = append(s.forms, form)
	delay, status := s.delay, s.status
	claims, ok := s.grants[form["code"]]
	s.mu.Unlock()

	if delay > 0 {
		select {
		case <-time.After(delay):
		case <-r.Context().Done():
			return
		}
	}

	if status != 0 {
		writeJSON(w, status, map[string]string{"error": "server_error"})
		return
	}
	if form["grant_type"] != "authorization_code" || !ok {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid_grant"})
		return
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.Secret)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "server_error"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"token": token})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
