package core

import "context"

// PlanTier identifies a subscription tier. Tiers form a total order used by
// agent plan constraints (an agent requiring "pro" is available to "pro" and
// "enterprise" tenants).
type PlanTier string

const (
	PlanFree       PlanTier = "free"
	PlanStarter    PlanTier = "starter"
	PlanPro        PlanTier = "pro"
	PlanEnterprise PlanTier = "enterprise"
)

var planRank = map[PlanTier]int{
	PlanFree:       0,
	PlanStarter:    1,
	PlanPro:        2,
	PlanEnterprise: 3,
}

// Rank returns the ordinal position of the tier. Unknown tiers rank below
// free so that a mistyped constraint never silently widens access.
func (p PlanTier) Rank() int {
	if r, ok := planRank[p]; ok {
		return r
	}
	return -1
}

// Covers reports whether a tenant on this tier satisfies the given minimum
// tier constraint. An empty constraint is satisfied by every tier.
func (p PlanTier) Covers(min PlanTier) bool {
	if min == "" {
		return true
	}
	return p.Rank() >= min.Rank()
}

// TenantStatus is the lifecycle state of a tenant account.
type TenantStatus string

const (
	TenantActive    TenantStatus = "active"
	TenantSuspended TenantStatus = "suspended"
)

// Tenant is an independent customer of the platform. Identity is immutable;
// plan and status are mutated by administration outside this engine.
type Tenant struct {
	ID     string       `json:"id"`
	Plan   PlanTier     `json:"plan"`
	Status TenantStatus `json:"status"`
}

// Channel identifies the conversational surface a message arrived on.
type Channel string

const (
	ChannelWeb       Channel = "web"
	ChannelWhatsApp  Channel = "whatsapp"
	ChannelInstagram Channel = "instagram"
)

// Valid reports whether the channel is one of the known surfaces.
func (c Channel) Valid() bool {
	switch c {
	case ChannelWeb, ChannelWhatsApp, ChannelInstagram:
		return true
	default:
		return false
	}
}

// Entitlement is a point-in-time snapshot of which agents a tenant may use.
// It is produced by an EntitlementSource and consumed by the catalog resolver;
// the engine never mutates it.
type Entitlement struct {
	TenantID string
	Plan     PlanTier
	// Enabled maps agent slug to the enabled flag of the tenant's agent
	// config. Slugs absent from the map are not enabled.
	Enabled map[string]bool
	// AllowList, when non-nil, narrows the eligible set to the listed slugs
	// regardless of the enabled flags. A nil slice means no narrowing; an
	// empty non-nil slice disables every agent.
	AllowList []string
	// Overrides carries per-agent tenant persona overrides keyed by slug.
	Overrides map[string][]PersonaPart
}

// Allows reports whether the allow-list (if any) admits the given slug.
func (e *Entitlement) Allows(slug string) bool {
	if e.AllowList == nil {
		return true
	}
	for _, s := range e.AllowList {
		if s == slug {
			return true
		}
	}
	return false
}

// EntitlementSource supplies the tenant's enabled-agent set and plan tier.
// Implementations return ErrTenantNotFound for unknown tenant ids.
type EntitlementSource interface {
	Entitlement(ctx context.Context, tenantID string) (*Entitlement, error)
}
