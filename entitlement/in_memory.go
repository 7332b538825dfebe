// Package entitlement provides an in-memory core.EntitlementSource. It backs
// tests, demos and single-process deployments; production systems typically
// implement the interface over their tenant database.
package entitlement

import (
	"context"
	"fmt"
	"sync"

	"github.com/zapdesk/zapdesk/core"
)

// InMemorySource stores tenants and their per-agent configs in process-local
// maps. It is safe for concurrent use; snapshots returned by Entitlement are
// detached copies and reflect the state at call time.
type InMemorySource struct {
	mu         sync.RWMutex
	tenants    map[string]core.Tenant
	configs    map[string]map[string]core.TenantAgentConfig
	allowLists map[string][]string
}

// NewInMemorySource constructs an empty source.
func NewInMemorySource() *InMemorySource {
	return &InMemorySource{
		tenants:    make(map[string]core.Tenant),
		configs:    make(map[string]map[string]core.TenantAgentConfig),
		allowLists: make(map[string][]string),
	}
}

// PutTenant stores or replaces a tenant record.
func (s *InMemorySource) PutTenant(t core.Tenant) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tenants[t.ID] = t
}

// SetAgentConfig stores or replaces the enablement record for one
// (tenant, agent) pair.
func (s *InMemorySource) SetAgentConfig(cfg core.TenantAgentConfig) {
	s.mu.Lock()
	defer s.mu.Unlock()
	byAgent, ok := s.configs[cfg.TenantID]
	if !ok {
		byAgent = make(map[string]core.TenantAgentConfig)
		s.configs[cfg.TenantID] = byAgent
	}
	byAgent[cfg.AgentSlug] = cfg
}

// Revoke disables an agent for a tenant, keeping any overrides in place.
func (s *InMemorySource) Revoke(tenantID, agentSlug string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if byAgent, ok := s.configs[tenantID]; ok {
		cfg := byAgent[agentSlug]
		cfg.TenantID = tenantID
		cfg.AgentSlug = agentSlug
		cfg.Enabled = false
		byAgent[agentSlug] = cfg
	}
}

// SetAllowList installs an allow-list override for the tenant. Passing nil
// removes the override; an empty non-nil list disables every agent.
func (s *InMemorySource) SetAllowList(tenantID string, slugs []string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if slugs == nil {
		delete(s.allowLists, tenantID)
		return
	}
	cp := make([]string, len(slugs))
	copy(cp, slugs)
	s.allowLists[tenantID] = cp
}

// Entitlement implements core.EntitlementSource.
func (s *InMemorySource) Entitlement(_ context.Context, tenantID string) (*core.Entitlement, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	t, ok := s.tenants[tenantID]
	if !ok {
		return nil, fmt.Errorf("tenant %q: %w", tenantID, core.ErrTenantNotFound)
	}

	ent := &core.Entitlement{
		TenantID:  tenantID,
		Plan:      t.Plan,
		Enabled:   make(map[string]bool),
		Overrides: make(map[string][]core.PersonaPart),
	}
	for slug, cfg := range s.configs[tenantID] {
		ent.Enabled[slug] = cfg.Enabled
		if len(cfg.Overrides) > 0 {
			parts := make([]core.PersonaPart, len(cfg.Overrides))
			copy(parts, cfg.Overrides)
			ent.Overrides[slug] = parts
		}
	}
	if list, ok := s.allowLists[tenantID]; ok {
		cp := make([]string, len(list))
		copy(cp, list)
		ent.AllowList = cp
	}
	return ent, nil
}
