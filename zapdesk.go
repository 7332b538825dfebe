// Package zapdesk provides a high-level façade over the message orchestration
// engine: an agent catalog with tenant entitlements, deterministic agent
// selection, persona-driven prompt composition and resilient model
// invocation. Most applications interact with this package by:
//  1. Creating a ZapDesk via New() (optionally overriding the default
//     in-memory stores and the provider list)
//  2. Registering agent definitions and tenant entitlements
//  3. Calling ProcessMessage per inbound user message
//
// The façade delegates sequencing to orchestrator.Orchestrator while keeping
// setup ergonomics concise. All defaults are safe for local development and
// testing; production deployments typically supply a durable store (see
// store/gormstore), real provider credentials (see config) and a structured
// logger.
package zapdesk

import (
	"context"

	"github.com/zapdesk/zapdesk/audit"
	"github.com/zapdesk/zapdesk/catalog"
	"github.com/zapdesk/zapdesk/core"
	"github.com/zapdesk/zapdesk/decider"
	"github.com/zapdesk/zapdesk/entitlement"
	"github.com/zapdesk/zapdesk/invoker"
	"github.com/zapdesk/zapdesk/logging"
	"github.com/zapdesk/zapdesk/model"
	"github.com/zapdesk/zapdesk/orchestrator"
	"github.com/zapdesk/zapdesk/prompt"
	"github.com/zapdesk/zapdesk/store"
)

// Options configures the ZapDesk instance.
type Options struct {
	// Providers is the priority-ordered model provider list. Empty means no
	// generation is possible; config.Config.Providers builds one from the
	// environment, and tests pass a model.MockProvider.
	Providers []model.Provider

	// Stores (default to in-memory implementations if not provided)
	ConversationStore core.ConversationStore
	Entitlements      core.EntitlementSource

	// AuditSink receives engine events (defaults to a log-backed sink).
	AuditSink core.AuditSink

	// Tuning hooks forwarded to the underlying components.
	DeciderOptions      []func(o *decider.Options)
	ComposerOptions     []func(o *prompt.Options)
	InvokerOptions      []func(o *invoker.Options)
	OrchestratorOptions []func(o *orchestrator.Options)

	// Logger (defaults to NoOp logger if nil)
	Logger logging.Logger
}

// ZapDesk is the high-level façade aggregating the catalog and the engine.
type ZapDesk struct {
	opts    Options
	catalog *catalog.Catalog
	orch    *orchestrator.Orchestrator
}

// New creates a ZapDesk instance with optional overrides. Any unset store is
// initialized with an in-memory implementation.
func New(optFns ...func(o *Options)) *ZapDesk {
	opts := Options{
		ConversationStore: store.NewInMemoryStore(),
		Entitlements:      entitlement.NewInMemorySource(),
		Logger:            logging.NoOpLogger{},
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.AuditSink == nil {
		opts.AuditSink = audit.NewLogSink(opts.Logger)
	}

	cat := catalog.New()
	resolver := catalog.NewResolver(cat, opts.Entitlements, func(o *catalog.ResolverOptions) {
		o.Logger = opts.Logger
	})

	deciderFns := append([]func(o *decider.Options){func(o *decider.Options) {
		o.Logger = opts.Logger
	}}, opts.DeciderOptions...)
	invokerFns := append([]func(o *invoker.Options){func(o *invoker.Options) {
		o.Logger = opts.Logger
	}}, opts.InvokerOptions...)

	dec := decider.New(deciderFns...)
	comp := prompt.New(opts.ComposerOptions...)
	inv := invoker.New(opts.Providers, invokerFns...)

	orchFns := append([]func(o *orchestrator.Options){func(o *orchestrator.Options) {
		o.Decider = dec
		o.Composer = comp
		o.Audit = opts.AuditSink
		o.Logger = opts.Logger
	}}, opts.OrchestratorOptions...)

	return &ZapDesk{
		opts:    opts,
		catalog: cat,
		orch:    orchestrator.New(resolver, opts.ConversationStore, inv, orchFns...),
	}
}

// RegisterAgent adds an agent definition to the catalog.
func (z *ZapDesk) RegisterAgent(def core.AgentDefinition) error {
	return z.catalog.Register(def)
}

// Catalog exposes the underlying agent registry.
func (z *ZapDesk) Catalog() *catalog.Catalog { return z.catalog }

// ProcessMessage runs one inbound message through the engine.
func (z *ZapDesk) ProcessMessage(ctx context.Context, req orchestrator.Request) (*orchestrator.Reply, error) {
	return z.orch.ProcessMessage(ctx, req)
}

// Preview generates a reply without persisting anything, for trying agent
// configurations out before going live.
func (z *ZapDesk) Preview(ctx context.Context, req orchestrator.Request) (*orchestrator.Reply, error) {
	req.TestMode = true
	return z.orch.ProcessMessage(ctx, req)
}

// SetPendingAction installs a pending action on an active conversation on
// behalf of the named agent, to be resolved by the next matching user
// message.
func (z *ZapDesk) SetPendingAction(ctx context.Context, tenantID, conversationID string, action core.PendingAction) error {
	return z.orch.SetPendingAction(ctx, tenantID, conversationID, action)
}

// CloseConversation marks a conversation closed.
func (z *ZapDesk) CloseConversation(ctx context.Context, tenantID, userID, conversationID string) error {
	return z.orch.CloseConversation(ctx, tenantID, userID, conversationID)
}
