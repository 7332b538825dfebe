package core

import "time"

// ConversationStatus is the lifecycle state of a conversation.
type ConversationStatus string

const (
	ConversationActive ConversationStatus = "active"
	ConversationClosed ConversationStatus = "closed"
)

// Conversation is a tenant-scoped message thread on one channel. It owns an
// ordered sequence of turns and exactly one context record.
type Conversation struct {
	ID       string             `json:"id"`
	TenantID string             `json:"tenant_id"`
	Channel  Channel            `json:"channel"`
	Status   ConversationStatus `json:"status"`
	Created  time.Time          `json:"created"`
}

// TurnRole identifies the author side of a turn.
type TurnRole string

const (
	RoleUser   TurnRole = "user"
	RoleAgent  TurnRole = "agent"
	RoleSystem TurnRole = "system"
)

// Turn is one immutable message in a conversation's history. Turns are
// append-only and totally ordered by creation time; they are never mutated
// after being written.
type Turn struct {
	ID             string            `json:"id"`
	ConversationID string            `json:"conversation_id"`
	Role           TurnRole          `json:"role"`
	// AgentSlug is set on agent-authored turns to record which persona
	// produced the reply.
	AgentSlug string            `json:"agent_slug,omitempty"`
	Content   string            `json:"content"`
	Metadata  map[string]string `json:"metadata,omitempty"`
	Created   time.Time         `json:"created"`
}

// HandoffReason encodes why conversation ownership moved between agents.
type HandoffReason string

const (
	// HandoffUserRequest: the user explicitly asked for a different agent.
	HandoffUserRequest HandoffReason = "user_request"
	// HandoffIntentMismatch: the active agent does not serve the inferred intent.
	HandoffIntentMismatch HandoffReason = "intent_mismatch"
	// HandoffEntitlementRevoked: the active agent is no longer entitled to the tenant.
	HandoffEntitlementRevoked HandoffReason = "entitlement_revoked"
	// HandoffPendingAgentIneligible: the agent holding a pending action lost eligibility.
	HandoffPendingAgentIneligible HandoffReason = "pending_agent_ineligible"
)

// HandoffRecord is one entry of a conversation's strictly growing handoff
// history. FromAgent is empty for the initial assignment of a conversation.
type HandoffRecord struct {
	FromAgent string        `json:"from_agent,omitempty"`
	ToAgent   string        `json:"to_agent"`
	Reason    HandoffReason `json:"reason"`
	Timestamp time.Time     `json:"timestamp"`
}

// PendingAction is a structured, agent-issued request awaiting a specific
// user follow-up (e.g. a yes/no confirmation) before normal intent routing
// resumes.
type PendingAction struct {
	// AgentSlug is the agent that issued the action and expects the answer.
	AgentSlug string `json:"agent_slug"`
	// Kind labels the action for the issuing agent's resolution logic
	// ("confirm_order", "choose_option", ...).
	Kind string `json:"kind"`
	// Prompt is the question that was put to the user.
	Prompt string `json:"prompt"`
	// Options enumerates acceptable answers when the action is a choice.
	Options []string `json:"options,omitempty"`
	// Payload carries the action's structured parameters.
	Payload map[string]any `json:"payload,omitempty"`
	Created time.Time      `json:"created"`
}

// Context is the single mutable record of a conversation. It is mutated
// exactly once per processed message, by the orchestrator only.
type Context struct {
	ConversationID string `json:"conversation_id"`
	// Summary is a bounded-length rolling summary of turns that fell out of
	// the recent-turn window.
	Summary string `json:"summary,omitempty"`
	// ActiveAgent is the slug of the agent owning the conversation, or empty
	// while unassigned.
	ActiveAgent string `json:"active_agent,omitempty"`
	// Pending is the action awaiting user follow-up, if any.
	Pending *PendingAction `json:"pending,omitempty"`
	// Handoffs strictly grows; entries are never removed or reordered.
	Handoffs []HandoffRecord `json:"handoffs,omitempty"`
	Updated  time.Time       `json:"updated"`
}

// NewContext creates an empty context for a conversation. A fresh context is
// unassigned: no active agent, no pending action, no handoff history.
func NewContext(conversationID string) *Context {
	return &Context{ConversationID: conversationID, Updated: time.Now().UTC()}
}

// Clone returns a deep copy safe for independent mutation. The orchestrator
// clones the stored context before applying a decision so that audit events
// can capture true before/after snapshots.
func (c *Context) Clone() *Context {
	if c == nil {
		return nil
	}
	clone := *c
	if c.Pending != nil {
		p := *c.Pending
		if c.Pending.Options != nil {
			p.Options = make([]string, len(c.Pending.Options))
			copy(p.Options, c.Pending.Options)
		}
		if c.Pending.Payload != nil {
			p.Payload = make(map[string]any, len(c.Pending.Payload))
			for k, v := range c.Pending.Payload {
				p.Payload[k] = v
			}
		}
		clone.Pending = &p
	}
	if c.Handoffs != nil {
		clone.Handoffs = make([]HandoffRecord, len(c.Handoffs))
		copy(clone.Handoffs, c.Handoffs)
	}
	return &clone
}

// RecordHandoff appends a handoff entry and updates the active agent.
func (c *Context) RecordHandoff(toAgent string, reason HandoffReason, at time.Time) {
	c.Handoffs = append(c.Handoffs, HandoffRecord{
		FromAgent: c.ActiveAgent,
		ToAgent:   toAgent,
		Reason:    reason,
		Timestamp: at,
	})
	c.ActiveAgent = toAgent
}
