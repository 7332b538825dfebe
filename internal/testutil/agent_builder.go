package testutil

import (
	"github.com/zapdesk/zapdesk/core"
)

// AgentBuilder helps construct agent definitions with fluent chaining.
// Example:
//
//	def := NewAgentBuilder("billing").Intents("billing").Priority(2).Build()
type AgentBuilder struct {
	def core.AgentDefinition
}

// NewAgentBuilder creates a builder for an agent with the given slug. The
// category defaults to the slug; use chainable methods then call Build.
func NewAgentBuilder(slug string) *AgentBuilder {
	return &AgentBuilder{def: core.AgentDefinition{Slug: slug, Category: slug}}
}

// Category overrides the default category (chainable).
func (b *AgentBuilder) Category(category string) *AgentBuilder {
	b.def.Category = category
	return b
}

// Intents sets the intent labels the agent serves (chainable).
func (b *AgentBuilder) Intents(intents ...string) *AgentBuilder {
	b.def.Intents = intents
	return b
}

// Channels restricts the agent to the given channels (chainable).
func (b *AgentBuilder) Channels(channels ...core.Channel) *AgentBuilder {
	b.def.Channels = channels
	return b
}

// MinPlan sets the minimum plan tier (chainable).
func (b *AgentBuilder) MinPlan(plan core.PlanTier) *AgentBuilder {
	b.def.MinPlan = plan
	return b
}

// Priority sets the selection priority (chainable).
func (b *AgentBuilder) Priority(p int) *AgentBuilder {
	b.def.Priority = p
	return b
}

// Default marks the agent as the fallback for unmatched intents (chainable).
func (b *AgentBuilder) Default() *AgentBuilder {
	b.def.Default = true
	return b
}

// Persona appends persona parts (chainable).
func (b *AgentBuilder) Persona(parts ...core.PersonaPart) *AgentBuilder {
	b.def.Persona = append(b.def.Persona, parts...)
	return b
}

// Build returns the assembled definition.
func (b *AgentBuilder) Build() core.AgentDefinition {
	return b.def
}
