// Package orchestrator sequences one inbound message end to end: resolve the
// tenant's eligible agents, decide the owning agent, compose the prompt,
// invoke the model with retry and failover, persist the turn pair atomically
// and emit audit events. Messages for the same conversation are serialized;
// different conversations proceed in parallel.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/zapdesk/zapdesk/catalog"
	"github.com/zapdesk/zapdesk/core"
	"github.com/zapdesk/zapdesk/decider"
	"github.com/zapdesk/zapdesk/internal/util"
	"github.com/zapdesk/zapdesk/invoker"
	"github.com/zapdesk/zapdesk/logging"
	"github.com/zapdesk/zapdesk/model"
	"github.com/zapdesk/zapdesk/prompt"
)

// Default user-facing copy. Tenants usually override these via options.
const (
	DefaultDeclineReply  = "Desculpe, não consigo ajudar com isso por aqui no momento."
	DefaultFallbackReply = "Estamos com instabilidade no momento. Pode tentar novamente em instantes?"
)

// Options configures an Orchestrator.
type Options struct {
	Decider  *decider.Decider
	Composer *prompt.Composer
	Audit    core.AuditSink
	Logger   logging.Logger

	// Timeout bounds one whole ProcessMessage call. Zero disables the bound.
	Timeout time.Duration
	// HistoryWindow is how many stored turns are loaded for the prompt tail.
	// Older turns are folded into the rolling summary as they leave the
	// window.
	HistoryWindow int
	// MaxSummaryRunes bounds the rolling summary the folding maintains.
	MaxSummaryRunes int
	// DeclineReply is returned when no agent can serve the message.
	DeclineReply string
	// FallbackReply is the tenant-safe copy carried on an UnavailableError
	// when generation is transiently unavailable. It never leaks internal
	// diagnostics to the end user.
	FallbackReply string

	// now and newID are swapped in tests.
	now   func() time.Time
	newID func() string
}

// Orchestrator is the message-processing engine. It is safe for concurrent
// use; per-conversation ordering is enforced internally.
type Orchestrator struct {
	resolver *catalog.Resolver
	store    core.ConversationStore
	invoker  *invoker.Invoker
	opts     Options
	locks    *keyedMutex
}

// New wires an Orchestrator over its collaborators. The store and resolver
// are required; everything else has a working default.
func New(resolver *catalog.Resolver, store core.ConversationStore, inv *invoker.Invoker, optFns ...func(o *Options)) *Orchestrator {
	opts := Options{
		Decider:         decider.New(),
		Composer:        prompt.New(),
		Logger:          logging.NoOpLogger{},
		Timeout:         60 * time.Second,
		HistoryWindow:   24,
		MaxSummaryRunes: 1200,
		DeclineReply:    DefaultDeclineReply,
		FallbackReply:   DefaultFallbackReply,
		now:             time.Now,
		newID:           util.NewID,
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.Audit == nil {
		opts.Audit = noopSink{}
	}
	return &Orchestrator{
		resolver: resolver,
		store:    store,
		invoker:  inv,
		opts:     opts,
		locks:    newKeyedMutex(),
	}
}

// Request is one inbound user message.
type Request struct {
	TenantID string
	UserID   string
	// ConversationID continues an existing conversation; empty opens one.
	ConversationID string
	Message        string
	Channel        core.Channel
	// TestMode generates a real reply but skips persistence and audit.
	TestMode bool
}

// Reply is the engine's answer to one message.
type Reply struct {
	ConversationID string
	Text           string
	// AgentSlug is the agent that produced the reply; empty on a decline.
	AgentSlug string
	// Declined is true when no agent could serve the message and Text holds
	// the graceful-decline copy. Declined turns are never persisted.
	Declined bool
	// Handoff reports an ownership change this turn.
	Handoff bool
	Reason  core.HandoffReason
	// Attempts is the model invocation trail for diagnostics.
	Attempts []invoker.Attempt
}

// UnavailableError is returned when generation was transiently unavailable
// (provider exhaustion or deadline). It carries the tenant-safe fallback copy
// the caller may show the user and the attempt trail for diagnostics. It
// unwraps to core.ErrProviderUnavailable or core.ErrTimeout. Nothing was
// persisted for the turn.
type UnavailableError struct {
	Copy     string
	Attempts []invoker.Attempt
	Err      error
}

func (e *UnavailableError) Error() string { return e.Err.Error() }

func (e *UnavailableError) Unwrap() error { return e.Err }

// ProcessMessage runs the full pipeline for one message. Messages addressed
// to the same conversation are processed strictly one at a time, in arrival
// order at the internal lock.
//
// Error contract: core.ErrInvalidInput for malformed requests,
// core.ErrTenantNotFound / core.ErrConversationNotFound /
// core.ErrConversationClosed for resolution failures, the invoker's error
// taxonomy for generation failures (transient exhaustion and deadlines arrive
// as an *UnavailableError), and core.ErrPersistence when the reply was
// generated but could not be stored.
func (o *Orchestrator) ProcessMessage(ctx context.Context, req Request) (*Reply, error) {
	if err := validate(req); err != nil {
		return nil, err
	}
	if o.opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, o.opts.Timeout)
		defer cancel()
	}

	conversationID := req.ConversationID
	opened := conversationID == ""
	if opened {
		conversationID = o.opts.newID()
	}

	unlock := o.locks.lock(req.TenantID + "/" + conversationID)
	defer unlock()

	conv, convCtx, history, err := o.loadConversation(ctx, req, conversationID, opened)
	if err != nil {
		return nil, err
	}

	eligible, ent, err := o.resolver.ResolveEligibleAgents(ctx, req.TenantID, req.Channel)
	if err != nil {
		return nil, err
	}

	before := convCtx.Clone()
	dec := o.opts.Decider.Decide(convCtx, req.Message, eligible)
	if dec.Agent == nil {
		return o.decline(ctx, req, conversationID), nil
	}
	agent := dec.Agent

	now := o.opts.now()
	if dec.Handoff {
		convCtx.RecordHandoff(agent.Slug, dec.Reason, now)
		// Ownership moved; any open pending action belonged to the old owner.
		convCtx.Pending = nil
	} else {
		convCtx.ActiveAgent = agent.Slug
	}
	if dec.ResolvedPending != nil {
		convCtx.Pending = nil
	}

	p, err := o.opts.Composer.Compose(prompt.Input{
		Agent:          agent,
		Overrides:      ent.Overrides[agent.Slug],
		Context:        convCtx,
		RecentTurns:    history,
		Channel:        req.Channel,
		ResolvedAction: dec.ResolvedPending,
		AnswerText:     req.Message,
	})
	if err != nil {
		return nil, err
	}

	res, err := o.invoker.Invoke(ctx, buildModelRequest(p, req.Message))
	if err != nil {
		o.opts.Logger.Error("generation failed",
			"tenant_id", req.TenantID, "conversation_id", conversationID,
			"agent", agent.Slug, "error", err)
		// Transient exhaustion surfaces as an UnavailableError carrying the
		// tenant-safe fallback copy and the attempt trail; configuration and
		// request-shape failures propagate unwrapped. Nothing is persisted.
		if errors.Is(err, core.ErrProviderUnavailable) || errors.Is(err, core.ErrTimeout) {
			return nil, &UnavailableError{
				Copy:     o.opts.FallbackReply,
				Attempts: attemptsOf(res),
				Err:      err,
			}
		}
		return nil, err
	}

	reply := &Reply{
		ConversationID: conversationID,
		Text:           res.Response.Text,
		AgentSlug:      agent.Slug,
		Handoff:        dec.Handoff,
		Reason:         dec.Reason,
		Attempts:       res.Attempts,
	}

	if req.TestMode {
		o.opts.Logger.Debug("test mode, skipping persistence and audit",
			"tenant_id", req.TenantID, "conversation_id", conversationID,
			"agent", agent.Slug)
		return reply, nil
	}

	userTurn := core.Turn{
		ID: o.opts.newID(), ConversationID: conversationID,
		Role: core.RoleUser, Content: req.Message, Created: now,
		Metadata: map[string]string{"user_id": req.UserID, "channel": string(req.Channel)},
	}
	agentTurn := core.Turn{
		ID: o.opts.newID(), ConversationID: conversationID,
		Role: core.RoleAgent, AgentSlug: agent.Slug,
		Content: res.Response.Text, Created: now,
	}

	o.foldSummary(convCtx, history, []core.Turn{userTurn, agentTurn})
	convCtx.Updated = now

	if opened {
		if err := o.store.CreateConversation(ctx, conv); err != nil {
			return nil, fmt.Errorf("reply generated but conversation not stored: %w", err)
		}
	}
	if err := o.store.CommitTurns(ctx, req.TenantID, []core.Turn{userTurn, agentTurn}, convCtx); err != nil {
		// The reply exists; the caller decides whether to surface it anyway.
		return nil, fmt.Errorf("reply generated but turns not stored: %w", err)
	}

	if opened {
		o.emit(ctx, req, core.AuditEvent{
			TenantID: req.TenantID, UserID: req.UserID,
			Action: core.AuditConversationOpened, EntityType: "conversation",
			EntityID: conversationID, Timestamp: now,
		})
	}
	o.emit(ctx, req, core.AuditEvent{
		TenantID: req.TenantID, UserID: req.UserID, AgentSlug: agent.Slug,
		Action: core.AuditMessageProcessed, EntityType: "conversation",
		EntityID: conversationID,
		Before:   before, After: convCtx.Clone(),
		Metadata: auditMetadata(dec), Timestamp: now,
	})

	return reply, nil
}

// CloseConversation marks a conversation closed and audits the transition.
func (o *Orchestrator) CloseConversation(ctx context.Context, tenantID, userID, conversationID string) error {
	if tenantID == "" || conversationID == "" {
		return fmt.Errorf("tenant and conversation IDs are required: %w", core.ErrInvalidInput)
	}
	unlock := o.locks.lock(tenantID + "/" + conversationID)
	defer unlock()

	if err := o.store.CloseConversation(ctx, tenantID, conversationID); err != nil {
		return err
	}
	o.emit(ctx, Request{TenantID: tenantID}, core.AuditEvent{
		TenantID: tenantID, UserID: userID,
		Action: core.AuditConversationClosed, EntityType: "conversation",
		EntityID: conversationID, Timestamp: o.opts.now(),
	})
	return nil
}

// SetPendingAction installs a pending action on an active conversation on
// behalf of the named agent; the next user message that the owning agent's
// resolver accepts will resolve it. The conversation context is mutated only
// through here and ProcessMessage.
func (o *Orchestrator) SetPendingAction(ctx context.Context, tenantID, conversationID string, action core.PendingAction) error {
	if tenantID == "" || conversationID == "" {
		return fmt.Errorf("tenant and conversation IDs are required: %w", core.ErrInvalidInput)
	}
	if action.AgentSlug == "" {
		return fmt.Errorf("pending action needs an owning agent: %w", core.ErrInvalidInput)
	}
	unlock := o.locks.lock(tenantID + "/" + conversationID)
	defer unlock()

	conv, err := o.store.GetConversation(ctx, tenantID, conversationID)
	if err != nil {
		return err
	}
	if conv.Status == core.ConversationClosed {
		return fmt.Errorf("conversation %q: %w", conversationID, core.ErrConversationClosed)
	}
	convCtx, err := o.store.GetContext(ctx, tenantID, conversationID)
	if err != nil {
		return err
	}

	now := o.opts.now()
	if action.Created.IsZero() {
		action.Created = now
	}
	convCtx.Pending = &action
	convCtx.Updated = now
	return o.store.CommitTurns(ctx, tenantID, nil, convCtx)
}

// loadConversation fetches (or builds, for a fresh ID) the conversation, its
// context and the recent-turn window. New conversations are not persisted
// here; that happens only after a reply was generated.
func (o *Orchestrator) loadConversation(ctx context.Context, req Request, conversationID string, opened bool) (*core.Conversation, *core.Context, []core.Turn, error) {
	if opened {
		conv := &core.Conversation{
			ID: conversationID, TenantID: req.TenantID,
			Channel: req.Channel, Status: core.ConversationActive,
			Created: o.opts.now(),
		}
		return conv, core.NewContext(conversationID), nil, nil
	}

	conv, err := o.store.GetConversation(ctx, req.TenantID, conversationID)
	if err != nil {
		return nil, nil, nil, err
	}
	if conv.Status == core.ConversationClosed {
		return nil, nil, nil, fmt.Errorf("conversation %q: %w", conversationID, core.ErrConversationClosed)
	}
	convCtx, err := o.store.GetContext(ctx, req.TenantID, conversationID)
	if err != nil {
		return nil, nil, nil, err
	}
	history, err := o.store.RecentTurns(ctx, req.TenantID, conversationID, o.opts.HistoryWindow)
	if err != nil {
		return nil, nil, nil, err
	}
	return conv, convCtx, history, nil
}

// decline produces the graceful-decline reply. Nothing is persisted: a
// conversation no agent can serve records no turns.
func (o *Orchestrator) decline(ctx context.Context, req Request, conversationID string) *Reply {
	o.opts.Logger.Info("no agent available, declining",
		"tenant_id", req.TenantID, "conversation_id", conversationID,
		"channel", string(req.Channel))
	o.emit(ctx, req, core.AuditEvent{
		TenantID: req.TenantID, UserID: req.UserID,
		Action: core.AuditDeclined, EntityType: "conversation",
		EntityID:  conversationID,
		Metadata:  map[string]string{"channel": string(req.Channel)},
		Timestamp: o.opts.now(),
	})
	return &Reply{
		ConversationID: conversationID,
		Text:           o.opts.DeclineReply,
		Declined:       true,
	}
}

// foldSummary folds the turns that the new pair pushes out of the history
// window into the rolling summary, oldest first, bounded by MaxSummaryRunes.
func (o *Orchestrator) foldSummary(convCtx *core.Context, history, appended []core.Turn) {
	window := o.opts.HistoryWindow
	if window <= 0 {
		return
	}
	all := make([]core.Turn, 0, len(history)+len(appended))
	all = append(all, history...)
	all = append(all, appended...)
	if len(all) <= window {
		return
	}
	var b strings.Builder
	b.WriteString(convCtx.Summary)
	for _, t := range all[:len(all)-window] {
		if b.Len() > 0 {
			b.WriteString(" ")
		}
		speaker := "user"
		if t.Role == core.RoleAgent {
			speaker = t.AgentSlug
		}
		fmt.Fprintf(&b, "[%s] %s", speaker, t.Content)
	}
	convCtx.Summary = tailRunes(b.String(), o.opts.MaxSummaryRunes)
}

// emit records an audit event unless the request runs in test mode. Sink
// failures are logged, never propagated.
func (o *Orchestrator) emit(ctx context.Context, req Request, ev core.AuditEvent) {
	if req.TestMode {
		return
	}
	if err := o.opts.Audit.Record(ctx, ev); err != nil {
		o.opts.Logger.Warn("audit sink failed",
			"action", ev.Action, "entity_id", ev.EntityID, "error", err)
	}
}

func validate(req Request) error {
	if req.TenantID == "" {
		return fmt.Errorf("tenant ID is required: %w", core.ErrInvalidInput)
	}
	if req.UserID == "" {
		return fmt.Errorf("user ID is required: %w", core.ErrInvalidInput)
	}
	if strings.TrimSpace(req.Message) == "" {
		return fmt.Errorf("message is empty: %w", core.ErrInvalidInput)
	}
	if !req.Channel.Valid() {
		return fmt.Errorf("unknown channel %q: %w", string(req.Channel), core.ErrInvalidInput)
	}
	return nil
}

func buildModelRequest(p *prompt.Prompt, message string) model.Request {
	msgs := make([]model.Message, 0, len(p.History)+1)
	for _, t := range p.History {
		role := model.RoleUser
		if t.Role == core.RoleAgent {
			role = model.RoleAssistant
		}
		msgs = append(msgs, model.Message{Role: role, Text: t.Content})
	}
	msgs = append(msgs, model.Message{Role: model.RoleUser, Text: message})
	return model.Request{Instructions: p.Instructions, Messages: msgs}
}

func auditMetadata(dec decider.Decision) map[string]string {
	md := map[string]string{}
	if dec.Intent != "" {
		md["intent"] = dec.Intent
	}
	if dec.Handoff {
		md["handoff_reason"] = string(dec.Reason)
	}
	if dec.ResolvedPending != nil {
		md["resolved_pending"] = dec.ResolvedPending.Kind
	}
	if len(md) == 0 {
		return nil
	}
	return md
}

// tailRunes keeps the last max runes: once the summary is full, the oldest
// folded content is what gets evicted.
func tailRunes(s string, max int) string {
	if max <= 0 {
		return s
	}
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[len(r)-max:])
}

func attemptsOf(res *invoker.Result) []invoker.Attempt {
	if res == nil {
		return nil
	}
	return res.Attempts
}

type noopSink struct{}

func (noopSink) Record(context.Context, core.AuditEvent) error { return nil }

var _ core.AuditSink = noopSink{}
