// Package store provides core.ConversationStore implementations. The
// in-memory store backs tests and single-process demos; gormstore persists to
// a relational database.
package store

import (
	"context"
	"fmt"
	"sync"

	"github.com/zapdesk/zapdesk/core"
)

type record struct {
	conv  core.Conversation
	ctx   *core.Context
	turns []core.Turn
}

// InMemoryStore is a volatile ConversationStore keeping conversations in a
// process-local map. It is safe for concurrent access; returned values are
// detached copies so callers cannot mutate stored state.
type InMemoryStore struct {
	mu      sync.RWMutex
	records map[string]*record
}

// NewInMemoryStore constructs an empty in-memory store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{records: make(map[string]*record)}
}

// GetConversation implements core.ConversationStore.
func (s *InMemoryStore) GetConversation(_ context.Context, tenantID, conversationID string) (*core.Conversation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, err := s.lookup(tenantID, conversationID)
	if err != nil {
		return nil, err
	}
	conv := rec.conv
	return &conv, nil
}

// CreateConversation implements core.ConversationStore.
func (s *InMemoryStore) CreateConversation(_ context.Context, conv *core.Conversation) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.records[conv.ID]; exists {
		return fmt.Errorf("conversation %q already exists: %w", conv.ID, core.ErrPersistence)
	}
	s.records[conv.ID] = &record{conv: *conv, ctx: core.NewContext(conv.ID)}
	return nil
}

// GetContext implements core.ConversationStore.
func (s *InMemoryStore) GetContext(_ context.Context, tenantID, conversationID string) (*core.Context, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, err := s.lookup(tenantID, conversationID)
	if err != nil {
		return nil, err
	}
	return rec.ctx.Clone(), nil
}

// RecentTurns implements core.ConversationStore.
func (s *InMemoryStore) RecentTurns(_ context.Context, tenantID, conversationID string, limit int) ([]core.Turn, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, err := s.lookup(tenantID, conversationID)
	if err != nil {
		return nil, err
	}
	turns := rec.turns
	if limit > 0 && len(turns) > limit {
		turns = turns[len(turns)-limit:]
	}
	out := make([]core.Turn, len(turns))
	copy(out, turns)
	return out, nil
}

// TurnCount implements core.ConversationStore.
func (s *InMemoryStore) TurnCount(_ context.Context, tenantID, conversationID string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, err := s.lookup(tenantID, conversationID)
	if err != nil {
		return 0, err
	}
	return len(rec.turns), nil
}

// CommitTurns implements core.ConversationStore. The turn appends and the
// context upsert happen under one lock acquisition, so a reader never sees a
// context ahead of (or behind) its turns.
func (s *InMemoryStore) CommitTurns(_ context.Context, tenantID string, turns []core.Turn, updated *core.Context) error {
	if updated == nil {
		return fmt.Errorf("nil context: %w", core.ErrPersistence)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, err := s.lookup(tenantID, updated.ConversationID)
	if err != nil {
		return err
	}
	for _, t := range turns {
		if t.ConversationID != updated.ConversationID {
			return fmt.Errorf("turn %q belongs to another conversation: %w", t.ID, core.ErrPersistence)
		}
	}
	rec.turns = append(rec.turns, turns...)
	rec.ctx = updated.Clone()
	return nil
}

// CloseConversation implements core.ConversationStore.
func (s *InMemoryStore) CloseConversation(_ context.Context, tenantID, conversationID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, err := s.lookup(tenantID, conversationID)
	if err != nil {
		return err
	}
	rec.conv.Status = core.ConversationClosed
	return nil
}

// lookup resolves a record enforcing tenant scoping; callers hold the lock.
func (s *InMemoryStore) lookup(tenantID, conversationID string) (*record, error) {
	rec, ok := s.records[conversationID]
	if !ok || rec.conv.TenantID != tenantID {
		return nil, fmt.Errorf("conversation %q: %w", conversationID, core.ErrConversationNotFound)
	}
	return rec, nil
}
