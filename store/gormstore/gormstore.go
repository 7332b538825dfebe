// Package gormstore persists conversations through GORM, giving the engine a
// durable core.ConversationStore over SQLite, Postgres or MySQL. The commit
// unit (turn appends + context upsert) maps to one database transaction.
package gormstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/zapdesk/zapdesk/core"
)

type conversationRow struct {
	ID       string `gorm:"primaryKey;size:64"`
	TenantID string `gorm:"index;size:64"`
	Channel  string `gorm:"size:32"`
	Status   string `gorm:"size:16"`
	Created  time.Time
}

func (conversationRow) TableName() string { return "conversations" }

type turnRow struct {
	Seq            int64  `gorm:"primaryKey;autoIncrement"`
	TurnID         string `gorm:"uniqueIndex;size:64"`
	ConversationID string `gorm:"index;size:64"`
	Role           string `gorm:"size:16"`
	AgentSlug      string `gorm:"size:64"`
	Content        string
	Metadata       []byte
	Created        time.Time
}

func (turnRow) TableName() string { return "conversation_turns" }

type contextRow struct {
	ConversationID string `gorm:"primaryKey;size:64"`
	Summary        string
	ActiveAgent    string `gorm:"size:64"`
	Pending        []byte
	Handoffs       []byte
	Updated        time.Time
}

func (contextRow) TableName() string { return "conversation_contexts" }

// Store is a GORM-backed core.ConversationStore.
type Store struct {
	db *gorm.DB
}

// New wraps an open *gorm.DB and migrates the schema.
func New(db *gorm.DB) (*Store, error) {
	if err := db.AutoMigrate(&conversationRow{}, &turnRow{}, &contextRow{}); err != nil {
		return nil, fmt.Errorf("migrate conversation schema: %w", err)
	}
	return &Store{db: db}, nil
}

// GetConversation implements core.ConversationStore.
func (s *Store) GetConversation(ctx context.Context, tenantID, conversationID string) (*core.Conversation, error) {
	var row conversationRow
	err := s.db.WithContext(ctx).
		Where("id = ? AND tenant_id = ?", conversationID, tenantID).
		First(&row).Error
	if err != nil {
		return nil, translate(err, conversationID)
	}
	return &core.Conversation{
		ID:       row.ID,
		TenantID: row.TenantID,
		Channel:  core.Channel(row.Channel),
		Status:   core.ConversationStatus(row.Status),
		Created:  row.Created,
	}, nil
}

// CreateConversation implements core.ConversationStore.
func (s *Store) CreateConversation(ctx context.Context, conv *core.Conversation) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		row := conversationRow{
			ID:       conv.ID,
			TenantID: conv.TenantID,
			Channel:  string(conv.Channel),
			Status:   string(conv.Status),
			Created:  conv.Created,
		}
		if err := tx.Create(&row).Error; err != nil {
			return fmt.Errorf("create conversation: %w: %v", core.ErrPersistence, err)
		}
		cc, err := encodeContext(core.NewContext(conv.ID))
		if err != nil {
			return err
		}
		if err := tx.Create(cc).Error; err != nil {
			return fmt.Errorf("create context: %w: %v", core.ErrPersistence, err)
		}
		return nil
	})
}

// GetContext implements core.ConversationStore.
func (s *Store) GetContext(ctx context.Context, tenantID, conversationID string) (*core.Context, error) {
	if _, err := s.GetConversation(ctx, tenantID, conversationID); err != nil {
		return nil, err
	}
	var row contextRow
	err := s.db.WithContext(ctx).
		Where("conversation_id = ?", conversationID).
		First(&row).Error
	if err != nil {
		return nil, translate(err, conversationID)
	}
	return decodeContext(&row)
}

// RecentTurns implements core.ConversationStore.
func (s *Store) RecentTurns(ctx context.Context, tenantID, conversationID string, limit int) ([]core.Turn, error) {
	if _, err := s.GetConversation(ctx, tenantID, conversationID); err != nil {
		return nil, err
	}
	q := s.db.WithContext(ctx).
		Where("conversation_id = ?", conversationID).
		Order("seq DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	var rows []turnRow
	if err := q.Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("load turns: %w: %v", core.ErrPersistence, err)
	}
	// Rows arrive newest-first; reverse into creation order.
	turns := make([]core.Turn, len(rows))
	for i, row := range rows {
		t, err := decodeTurn(&row)
		if err != nil {
			return nil, err
		}
		turns[len(rows)-1-i] = t
	}
	return turns, nil
}

// TurnCount implements core.ConversationStore.
func (s *Store) TurnCount(ctx context.Context, tenantID, conversationID string) (int, error) {
	if _, err := s.GetConversation(ctx, tenantID, conversationID); err != nil {
		return 0, err
	}
	var n int64
	err := s.db.WithContext(ctx).Model(&turnRow{}).
		Where("conversation_id = ?", conversationID).
		Count(&n).Error
	if err != nil {
		return 0, fmt.Errorf("count turns: %w: %v", core.ErrPersistence, err)
	}
	return int(n), nil
}

// CommitTurns implements core.ConversationStore.
func (s *Store) CommitTurns(ctx context.Context, tenantID string, turns []core.Turn, updated *core.Context) error {
	if updated == nil {
		return fmt.Errorf("nil context: %w", core.ErrPersistence)
	}
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var conv conversationRow
		err := tx.Where("id = ? AND tenant_id = ?", updated.ConversationID, tenantID).
			First(&conv).Error
		if err != nil {
			return translate(err, updated.ConversationID)
		}
		for _, t := range turns {
			if t.ConversationID != updated.ConversationID {
				return fmt.Errorf("turn %q belongs to another conversation: %w", t.ID, core.ErrPersistence)
			}
			row, err := encodeTurn(&t)
			if err != nil {
				return err
			}
			if err := tx.Create(row).Error; err != nil {
				return fmt.Errorf("append turn: %w: %v", core.ErrPersistence, err)
			}
		}
		row, err := encodeContext(updated)
		if err != nil {
			return err
		}
		if err := tx.Save(row).Error; err != nil {
			return fmt.Errorf("upsert context: %w: %v", core.ErrPersistence, err)
		}
		return nil
	})
}

// CloseConversation implements core.ConversationStore.
func (s *Store) CloseConversation(ctx context.Context, tenantID, conversationID string) error {
	res := s.db.WithContext(ctx).Model(&conversationRow{}).
		Where("id = ? AND tenant_id = ?", conversationID, tenantID).
		Update("status", string(core.ConversationClosed))
	if res.Error != nil {
		return fmt.Errorf("close conversation: %w: %v", core.ErrPersistence, res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("conversation %q: %w", conversationID, core.ErrConversationNotFound)
	}
	return nil
}

func encodeTurn(t *core.Turn) (*turnRow, error) {
	row := &turnRow{
		TurnID:         t.ID,
		ConversationID: t.ConversationID,
		Role:           string(t.Role),
		AgentSlug:      t.AgentSlug,
		Content:        t.Content,
		Created:        t.Created,
	}
	if len(t.Metadata) > 0 {
		b, err := json.Marshal(t.Metadata)
		if err != nil {
			return nil, fmt.Errorf("encode turn metadata: %w: %v", core.ErrPersistence, err)
		}
		row.Metadata = b
	}
	return row, nil
}

func decodeTurn(row *turnRow) (core.Turn, error) {
	t := core.Turn{
		ID:             row.TurnID,
		ConversationID: row.ConversationID,
		Role:           core.TurnRole(row.Role),
		AgentSlug:      row.AgentSlug,
		Content:        row.Content,
		Created:        row.Created,
	}
	if len(row.Metadata) > 0 {
		if err := json.Unmarshal(row.Metadata, &t.Metadata); err != nil {
			return core.Turn{}, fmt.Errorf("decode turn metadata: %w: %v", core.ErrPersistence, err)
		}
	}
	return t, nil
}

func encodeContext(c *core.Context) (*contextRow, error) {
	row := &contextRow{
		ConversationID: c.ConversationID,
		Summary:        c.Summary,
		ActiveAgent:    c.ActiveAgent,
		Updated:        c.Updated,
	}
	if c.Pending != nil {
		b, err := json.Marshal(c.Pending)
		if err != nil {
			return nil, fmt.Errorf("encode pending action: %w: %v", core.ErrPersistence, err)
		}
		row.Pending = b
	}
	if len(c.Handoffs) > 0 {
		b, err := json.Marshal(c.Handoffs)
		if err != nil {
			return nil, fmt.Errorf("encode handoffs: %w: %v", core.ErrPersistence, err)
		}
		row.Handoffs = b
	}
	return row, nil
}

func decodeContext(row *contextRow) (*core.Context, error) {
	c := &core.Context{
		ConversationID: row.ConversationID,
		Summary:        row.Summary,
		ActiveAgent:    row.ActiveAgent,
		Updated:        row.Updated,
	}
	if len(row.Pending) > 0 {
		if err := json.Unmarshal(row.Pending, &c.Pending); err != nil {
			return nil, fmt.Errorf("decode pending action: %w: %v", core.ErrPersistence, err)
		}
	}
	if len(row.Handoffs) > 0 {
		if err := json.Unmarshal(row.Handoffs, &c.Handoffs); err != nil {
			return nil, fmt.Errorf("decode handoffs: %w: %v", core.ErrPersistence, err)
		}
	}
	return c, nil
}

func translate(err error, conversationID string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("conversation %q: %w", conversationID, core.ErrConversationNotFound)
	}
	return fmt.Errorf("conversation %q: %w: %v", conversationID, core.ErrPersistence, err)
}
