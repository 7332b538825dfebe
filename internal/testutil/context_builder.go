package testutil

import (
	"time"

	"github.com/zapdesk/zapdesk/core"
)

// ContextBuilder helps construct conversation contexts with fluent chaining.
// Example:
//
//	cc := NewContextBuilder("conv-1").ActiveAgent("support").Build()
type ContextBuilder struct {
	ctx *core.Context
}

// NewContextBuilder creates a builder for the given conversation ID.
func NewContextBuilder(conversationID string) *ContextBuilder {
	return &ContextBuilder{ctx: core.NewContext(conversationID)}
}

// ActiveAgent sets the assigned agent (chainable).
func (b *ContextBuilder) ActiveAgent(slug string) *ContextBuilder {
	b.ctx.ActiveAgent = slug
	return b
}

// Summary sets the rolling summary (chainable).
func (b *ContextBuilder) Summary(s string) *ContextBuilder {
	b.ctx.Summary = s
	return b
}

// Pending installs an open pending action (chainable).
func (b *ContextBuilder) Pending(action core.PendingAction) *ContextBuilder {
	a := action
	b.ctx.Pending = &a
	return b
}

// Handoff appends a handoff record without touching the active agent
// (chainable).
func (b *ContextBuilder) Handoff(from, to string, reason core.HandoffReason) *ContextBuilder {
	b.ctx.Handoffs = append(b.ctx.Handoffs, core.HandoffRecord{
		FromAgent: from, ToAgent: to, Reason: reason, Timestamp: time.Now(),
	})
	return b
}

// Build returns the assembled context.
func (b *ContextBuilder) Build() *core.Context {
	return b.ctx
}
