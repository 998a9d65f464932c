package domain

import (
	"fmt"
	"strings"
)

// Role enumerates the caller roles understood by the access policy.
type Role string

const (
	RoleAdmin         Role = "admin"
	RoleReader        Role = "reader"
	RoleCustomer      Role = "customer"
	RoleBankCashier   Role = "bank_cashier"
	RoleDiscoEmployee Role = "disco_employee"
)

var knownRoles = map[Role]struct{}{
	RoleAdmin:         {},
	RoleReader:        {},
	RoleCustomer:      {},
	RoleBankCashier:   {},
	RoleDiscoEmployee: {},
}

// ParseRole converts a raw claim value into a Role. Unrecognized values are rejected.
func ParseRole(raw string) (Role, error) {
	role := Role(strings.ToLower(strings.TrimSpace(raw)))
	if _, ok := knownRoles[role]; !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownRole, raw)
	}
	return role, nil
}

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	_, ok := knownRoles[r]
	return ok
}

func (r Role) String() string {
	return string(r)
}

// subjectSuffixRoles maps the demo authorization server's username suffixes to roles.
var subjectSuffixRoles = []struct {
	suffix string
	role   Role
}{
	{suffix: "_u1", role: RoleCustomer},
	{suffix: "_u2", role: RoleBankCashier},
	{suffix: "_u3", role: RoleDiscoEmployee},
}

// RoleFromSubject derives a role from the subject's username suffix.
func RoleFromSubject(subject string) (Role, error) {
	for _, entry := range subjectSuffixRoles {
		if strings.HasSuffix(subject, entry.suffix) {
			return entry.role, nil
		}
	}
	return "", fmt.Errorf("%w: no role for subject %q", ErrUnknownRole, subject)
}
