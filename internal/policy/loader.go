package policy

import (
	"errors"
	"fmt"
	"os"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/AbubakarMugha1/Authentication-and-Access-Control-for-a-Web-Application/internal/domain"
)

// document is the on-disk policy format:
//
//	endpoints:
//	  /dashboard: [customer, bank_cashier]
type document struct {
	Endpoints map[string][]string `yaml:"endpoints"`
}

// LoadFile reads a YAML policy file and builds an Engine.
func LoadFile(path string) (*Engine, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read policy: %w", err)
	}
	return Parse(data)
}

// Parse builds an Engine from YAML bytes. Unknown role names fail the whole load.
func Parse(data []byte) (*Engine, error) {
	var doc document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("unmarshal policy: %w", err)
	}
	if len(doc.Endpoints) == 0 {
		return nil, errors.New("policy defines no endpoints")
	}

	endpoints := make([]string, 0, len(doc.Endpoints))
	for endpoint := range doc.Endpoints {
		endpoints = append(endpoints, endpoint)
	}
	sort.Strings(endpoints)

	entries := make([]domain.AccessPolicyEntry, 0, len(endpoints))
	for _, endpoint := range endpoints {
		entry := domain.AccessPolicyEntry{Endpoint: endpoint}
		for _, raw := range doc.Endpoints[endpoint] {
			role, err := domain.ParseRole(raw)
			if err != nil {
				return nil, fmt.Errorf("endpoint %q: %w", endpoint, err)
			}
			entry.Roles = append(entry.Roles, role)
		}
		entries = append(entries, entry)
	}
	return New(entries)
}
