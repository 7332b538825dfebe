// Package catalog holds the registry of agent definitions and the resolver
// that narrows it to the set a tenant is entitled to use on a given channel.
package catalog

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/zapdesk/zapdesk/core"
	"github.com/zapdesk/zapdesk/logging"
)

// Catalog is a registry of agent definitions keyed by slug. Registration
// order is preserved and used as the final tie-break during agent selection.
// It is safe for concurrent use; definitions are treated as immutable once
// registered.
type Catalog struct {
	mu     sync.RWMutex
	agents []core.AgentDefinition
	index  map[string]int
}

// New constructs an empty catalog.
func New() *Catalog {
	return &Catalog{index: make(map[string]int)}
}

// Register validates and adds a definition. Registering a slug twice is an
// error: the catalog is assembled once at startup, not hot-swapped.
func (c *Catalog) Register(def core.AgentDefinition) error {
	if err := def.Validate(); err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.index[def.Slug]; exists {
		return fmt.Errorf("agent %q already registered", def.Slug)
	}
	c.index[def.Slug] = len(c.agents)
	c.agents = append(c.agents, def)
	return nil
}

// Get returns the definition for a slug.
func (c *Catalog) Get(slug string) (*core.AgentDefinition, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	i, ok := c.index[slug]
	if !ok {
		return nil, false
	}
	def := c.agents[i]
	return &def, true
}

// Agents returns all definitions in registration order.
func (c *Catalog) Agents() []core.AgentDefinition {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]core.AgentDefinition, len(c.agents))
	copy(out, c.agents)
	return out
}

// Len returns the number of registered agents.
func (c *Catalog) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.agents)
}

// ResolverOptions configures a Resolver.
type ResolverOptions struct {
	Logger logging.Logger
}

// Resolver computes the ordered set of agents a tenant may use on a channel.
// It combines the static catalog with the tenant's entitlement snapshot.
type Resolver struct {
	catalog      *Catalog
	entitlements core.EntitlementSource
	logger       logging.Logger
}

// NewResolver constructs a Resolver over the given catalog and entitlement
// source.
func NewResolver(cat *Catalog, src core.EntitlementSource, optFns ...func(o *ResolverOptions)) *Resolver {
	opts := ResolverOptions{Logger: logging.NoOpLogger{}}
	for _, fn := range optFns {
		fn(&opts)
	}
	return &Resolver{catalog: cat, entitlements: src, logger: opts.Logger}
}

// ResolveEligibleAgents filters the catalog by (a) channel support, (b) the
// tenant's enabled flag, (c) the plan-tier constraint, and (d) the optional
// allow-list override. The result is ordered by priority (descending) then
// catalog registration order. An empty result is a valid outcome, not an
// error; the caller produces a graceful decline. Unknown tenants fail with
// core.ErrTenantNotFound.
func (r *Resolver) ResolveEligibleAgents(ctx context.Context, tenantID string, channel core.Channel) ([]core.AgentDefinition, *core.Entitlement, error) {
	ent, err := r.entitlements.Entitlement(ctx, tenantID)
	if err != nil {
		return nil, nil, err
	}

	var eligible []core.AgentDefinition
	for _, def := range r.catalog.Agents() {
		if !def.SupportsChannel(channel) {
			continue
		}
		if !ent.Enabled[def.Slug] {
			continue
		}
		if !ent.Plan.Covers(def.MinPlan) {
			continue
		}
		if !ent.Allows(def.Slug) {
			continue
		}
		eligible = append(eligible, def)
	}

	// Stable sort keeps catalog order within equal priorities.
	sort.SliceStable(eligible, func(i, j int) bool {
		return eligible[i].Priority > eligible[j].Priority
	})

	r.logger.Debug("resolved eligible agents",
		"tenant_id", tenantID, "channel", string(channel), "count", len(eligible))

	return eligible, ent, nil
}
