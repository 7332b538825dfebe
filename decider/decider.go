// Package decider implements the per-message agent selection state machine:
// pending-action resolution, intent classification with continuity bias, and
// reason-coded handoffs. It is evaluated synchronously and deterministically;
// generating the reply is someone else's job.
package decider

import (
	"strings"

	"github.com/zapdesk/zapdesk/core"
	"github.com/zapdesk/zapdesk/logging"
)

// Decision is the outcome of routing one message.
type Decision struct {
	// Agent owns this turn. Nil means no agent can serve the message and the
	// caller must produce a capability-unavailable reply without mutating
	// conversation state.
	Agent *core.AgentDefinition

	// Intent is the inferred intent label, empty when the message resolved a
	// pending action or nothing matched.
	Intent string

	// ResolvedPending is set when the message answered the pending action;
	// the caller clears it from the context and hands the answer to the
	// owning agent's prompt.
	ResolvedPending *core.PendingAction

	// Handoff is true when ownership moved from a different, previously
	// assigned agent. The caller appends a handoff record with Reason.
	Handoff bool
	Reason  core.HandoffReason
}

// Options configures a Decider.
type Options struct {
	Classifier Classifier
	// Resolvers maps agent slug to that agent's pending-action predicate.
	Resolvers map[string]PendingResolver
	// DefaultResolver handles agents without a dedicated resolver.
	DefaultResolver PendingResolver
	Logger          logging.Logger
}

// Decider selects the agent owning each turn. It holds no mutable state of
// its own and is safe for concurrent use across conversations.
type Decider struct {
	classifier      Classifier
	resolvers       map[string]PendingResolver
	defaultResolver PendingResolver
	logger          logging.Logger
}

// New constructs a Decider with a keyword classifier and the default
// pending-action resolver unless overridden.
func New(optFns ...func(o *Options)) *Decider {
	opts := Options{
		Classifier:      NewKeywordClassifier(),
		Resolvers:       map[string]PendingResolver{},
		DefaultResolver: DefaultPendingResolver{},
		Logger:          logging.NoOpLogger{},
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	return &Decider{
		classifier:      opts.Classifier,
		resolvers:       opts.Resolvers,
		defaultResolver: opts.DefaultResolver,
		logger:          opts.Logger,
	}
}

// Decide routes one message given the conversation context and the tenant's
// eligible agent set. It never mutates its inputs.
//
// Transition order: pending-action resolution first, then explicit user
// transfer requests, then intent classification with continuity bias, then
// best-match selection with a default-agent fallback. A previously assigned
// agent that dropped out of the eligible set forces reselection with an
// entitlement-revoked reason.
func (d *Decider) Decide(convCtx *core.Context, message string, eligible []core.AgentDefinition) Decision {
	bySlug := make(map[string]*core.AgentDefinition, len(eligible))
	for i := range eligible {
		bySlug[eligible[i].Slug] = &eligible[i]
	}

	// Step 1: a pending action owned by a still-eligible agent gets first
	// claim on the message.
	if p := convCtx.Pending; p != nil {
		owner, ownerEligible := bySlug[p.AgentSlug]
		if ownerEligible && d.resolverFor(p.AgentSlug).Resolves(*p, message) {
			d.logger.Debug("pending action resolved",
				"conversation_id", convCtx.ConversationID, "agent", p.AgentSlug, "kind", p.Kind)
			return Decision{Agent: owner, ResolvedPending: p}
		}
		if !ownerEligible {
			// The issuing agent lost eligibility between turns; the pending
			// action is abandoned and the message re-routed below.
			return d.reselect(convCtx, message, eligible, bySlug, core.HandoffPendingAgentIneligible)
		}
		// Message did not answer the action: fall through to normal routing
		// with the pending action left untouched unless a handoff occurs.
	}

	// Explicit transfer request trumps continuity. On an unassigned
	// conversation it is a plain first assignment, not a handoff.
	if target := d.explicitTarget(message, eligible); target != nil && target.Slug != convCtx.ActiveAgent {
		dec := Decision{Agent: target}
		if convCtx.ActiveAgent != "" {
			dec.Handoff = true
			dec.Reason = core.HandoffUserRequest
		}
		return dec
	}

	// Step 5: an active agent that is no longer entitled forces reselection
	// before the message is considered at all.
	if convCtx.ActiveAgent != "" {
		if _, stillEligible := bySlug[convCtx.ActiveAgent]; !stillEligible {
			return d.reselect(convCtx, message, eligible, bySlug, core.HandoffEntitlementRevoked)
		}
	}

	intent := d.classifier.Classify(message, eligible)

	// Step 2: continuity bias. The assigned agent keeps the conversation when
	// it still serves the inferred intent, or when nothing matched at all.
	if convCtx.ActiveAgent != "" {
		active := bySlug[convCtx.ActiveAgent]
		if intent == "" || active.SupportsIntent(intent) {
			return Decision{Agent: active, Intent: intent}
		}
	}

	// Step 3: best match, default fallback.
	dec := d.selectByIntent(intent, eligible)
	if dec.Agent != nil && convCtx.ActiveAgent != "" && dec.Agent.Slug != convCtx.ActiveAgent {
		dec.Handoff = true
		dec.Reason = core.HandoffIntentMismatch
	}
	return dec
}

// reselect re-runs best-match selection after the current owner (assigned or
// pending) lost eligibility, tagging any resulting transition with reason.
func (d *Decider) reselect(convCtx *core.Context, message string, eligible []core.AgentDefinition, bySlug map[string]*core.AgentDefinition, reason core.HandoffReason) Decision {
	intent := d.classifier.Classify(message, eligible)
	dec := d.selectByIntent(intent, eligible)
	if dec.Agent != nil && convCtx.ActiveAgent != "" && dec.Agent.Slug != convCtx.ActiveAgent {
		dec.Handoff = true
		dec.Reason = reason
	}
	return dec
}

// selectByIntent picks the first eligible agent supporting the intent (the
// eligible slice is already ordered by priority then catalog order) and falls
// back to a designated default agent.
func (d *Decider) selectByIntent(intent string, eligible []core.AgentDefinition) Decision {
	if intent != "" {
		for i := range eligible {
			if eligible[i].SupportsIntent(intent) {
				return Decision{Agent: &eligible[i], Intent: intent}
			}
		}
	}
	for i := range eligible {
		if eligible[i].Default {
			return Decision{Agent: &eligible[i], Intent: intent}
		}
	}
	return Decision{Intent: intent}
}

var transferPhrases = []string{
	"falar com", "quero falar com", "transferir para", "me passa para",
	"talk to", "speak to", "speak with", "transfer to", "transfer me to",
}

// explicitTarget detects "I want to talk to X" style requests where X names
// an eligible agent's slug or category.
func (d *Decider) explicitTarget(message string, eligible []core.AgentDefinition) *core.AgentDefinition {
	lower := strings.ToLower(message)
	phrased := false
	for _, p := range transferPhrases {
		if strings.Contains(lower, p) {
			phrased = true
			break
		}
	}
	if !phrased {
		return nil
	}
	tokens := tokenize(message)
	for i := range eligible {
		if tokens[strings.ToLower(eligible[i].Slug)] || tokens[strings.ToLower(eligible[i].Category)] {
			return &eligible[i]
		}
	}
	return nil
}

func (d *Decider) resolverFor(slug string) PendingResolver {
	if r, ok := d.resolvers[slug]; ok {
		return r
	}
	return d.defaultResolver
}
