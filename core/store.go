package core

import "context"

// ConversationStore is the persistence contract required by the orchestrator.
// All lookups are scoped by tenant id; a conversation belonging to a different
// tenant behaves as if it did not exist.
//
// Contract:
//   - Turns are append-only and returned in creation order.
//   - Each conversation has exactly one context record, upserted as a whole.
//   - CommitTurns applies the turn appends and the context upsert as one
//     logical unit: either everything is durable or nothing is. The
//     orchestrator serializes commits per conversation, so implementations
//     only need enough isolation to prevent lost updates across
//     conversations.
type ConversationStore interface {
	// GetConversation returns the conversation or ErrConversationNotFound.
	GetConversation(ctx context.Context, tenantID, conversationID string) (*Conversation, error)

	// CreateConversation stores a new conversation together with its empty
	// context record.
	CreateConversation(ctx context.Context, conv *Conversation) error

	// GetContext returns the conversation's context record.
	GetContext(ctx context.Context, tenantID, conversationID string) (*Context, error)

	// RecentTurns returns up to limit most recent turns in creation order
	// (oldest of the window first). limit <= 0 returns all turns.
	RecentTurns(ctx context.Context, tenantID, conversationID string, limit int) ([]Turn, error)

	// TurnCount returns the number of turns recorded for the conversation.
	TurnCount(ctx context.Context, tenantID, conversationID string) (int, error)

	// CommitTurns atomically appends the given turns and upserts the context.
	CommitTurns(ctx context.Context, tenantID string, turns []Turn, updated *Context) error

	// CloseConversation marks the conversation closed. Closing an already
	// closed conversation is a no-op.
	CloseConversation(ctx context.Context, tenantID, conversationID string) error
}
