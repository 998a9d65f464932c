package domain

// DecisionReason explains a denied authorization decision.
type DecisionReason string

const (
	ReasonUnknownEndpoint  DecisionReason = "unknown_endpoint"
	ReasonRoleNotPermitted DecisionReason = "role_not_permitted"
)

// AccessPolicyEntry lists the roles permitted on one endpoint.
type AccessPolicyEntry struct {
	Endpoint string
	Roles    []Role
}

// AuthzDecision is the per-request outcome of a policy check.
type AuthzDecision struct {
	Allow  bool
	Reason DecisionReason
}

// Allowed builds a positive decision.
func Allowed() AuthzDecision {
	return AuthzDecision{Allow: true}
}

// Denied builds a negative decision with the given reason.
func Denied(reason DecisionReason) AuthzDecision {
	return AuthzDecision{Allow: false, Reason: reason}
}
