package domain

import "time"

// ExternalClaimSet is the decoded claim set of a token issued by the authorization server.
type ExternalClaimSet struct {
	Subject   string
	Issuer    string
	Roles     []Role
	IssuedAt  time.Time
	ExpiresAt time.Time
	Signature []byte
}

// PrimaryRole returns the role carried into a session.
func (c *ExternalClaimSet) PrimaryRole() (Role, bool) {
	if c == nil || len(c.Roles) == 0 {
		return "", false
	}
	return c.Roles[0], true
}

// Session is the locally issued, self-contained session record.
type Session struct {
	ID        string
	Subject   string
	Role      Role
	CreatedAt time.Time
	ExpiresAt time.Time
	Signature []byte
}

// Expired reports whether the session is no longer valid at now.
func (s *Session) Expired(now time.Time) bool {
	return !now.Before(s.ExpiresAt)
}
