package domain

// MediatorState is a step of the per-request authentication state machine.
type MediatorState string

const (
	StateUnauthenticated   MediatorState = "unauthenticated"
	StateAuthenticated     MediatorState = "authenticated"
	StateAuthorizedPending MediatorState = "authorized_pending"
	StateServed            MediatorState = "served"
	StateRejected          MediatorState = "rejected"
)

// Terminal reports whether no further transition follows s.
func (s MediatorState) Terminal() bool {
	return s == StateServed || s == StateRejected
}

// AccessRequest is what the transport layer knows about an incoming request.
type AccessRequest struct {
	Endpoint     string
	SessionToken string
	GrantCode    string
}

// Outcome is the result of mediating one request.
type Outcome struct {
	State       MediatorState
	Transitions []MediatorState
	Session     *Session
	// Token is set only when a new session was issued during this request.
	Token    string
	Decision AuthzDecision
	Err      error
}
