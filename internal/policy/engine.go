// Package policy holds the static endpoint-to-role access table.
package policy

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/AbubakarMugha1/Authentication-and-Access-Control-for-a-Web-Application/internal/domain"
)

// Engine answers (endpoint, role) questions against a table that never changes after construction.
type Engine struct {
	table map[string]map[domain.Role]struct{}
}

// New builds an engine from endpoint -> permitted roles. The input is copied.
func New(entries []domain.AccessPolicyEntry) (*Engine, error) {
	table := make(map[string]map[domain.Role]struct{}, len(entries))
	for _, entry := range entries {
		endpoint := strings.TrimSpace(entry.Endpoint)
		if endpoint == "" {
			return nil, errors.New("policy entry with empty endpoint")
		}
		if _, dup := table[endpoint]; dup {
			return nil, fmt.Errorf("duplicate policy entry for %q", endpoint)
		}
		roles := make(map[domain.Role]struct{}, len(entry.Roles))
		for _, role := range entry.Roles {
			if !role.Valid() {
				return nil, fmt.Errorf("endpoint %q: %w: %q", endpoint, domain.ErrUnknownRole, role)
			}
			roles[role] = struct{}{}
		}
		table[endpoint] = roles
	}
	return &Engine{table: table}, nil
}

// Authorize allows role on endpoint only when the table lists it. Unlisted endpoints are denied.
func (e *Engine) Authorize(endpoint string, role domain.Role) domain.AuthzDecision {
	if e == nil {
		return domain.Denied(domain.ReasonUnknownEndpoint)
	}
	roles, ok := e.table[endpoint]
	if !ok {
		return domain.Denied(domain.ReasonUnknownEndpoint)
	}
	if _, permitted := roles[role]; !permitted {
		return domain.Denied(domain.ReasonRoleNotPermitted)
	}
	return domain.Allowed()
}

// Endpoints lists the configured endpoints in sorted order.
func (e *Engine) Endpoints() []string {
	endpoints := make([]string, 0, len(e.table))
	for endpoint := range e.table {
		endpoints = append(endpoints, endpoint)
	}
	sort.Strings(endpoints)
	return endpoints
}
