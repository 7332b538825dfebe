package core

import (
	"context"
	"time"
)

// AuditEvent is an append-only record of one engine action. The engine emits
// events; it never reads them back.
type AuditEvent struct {
	TenantID   string            `json:"tenant_id"`
	UserID     string            `json:"user_id"`
	AgentSlug  string            `json:"agent_slug,omitempty"`
	Action     string            `json:"action"`
	EntityType string            `json:"entity_type"`
	EntityID   string            `json:"entity_id"`
	Before     any               `json:"before,omitempty"`
	After      any               `json:"after,omitempty"`
	Metadata   map[string]string `json:"metadata,omitempty"`
	Timestamp  time.Time         `json:"timestamp"`
}

// Audit action names emitted by the orchestrator.
const (
	AuditMessageProcessed   = "message_processed"
	AuditConversationOpened = "conversation_opened"
	AuditConversationClosed = "conversation_closed"
	AuditDeclined           = "declined"
)

// AuditSink accepts audit events. A failing sink must never fail the parent
// operation; the orchestrator logs sink errors and moves on.
type AuditSink interface {
	Record(ctx context.Context, ev AuditEvent) error
}
