package gormstore

import (
	"context"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/zapdesk/zapdesk/core"
)

// Interface compliance (compile-time assertion)
var _ core.ConversationStore = (*Store)(nil)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	s, err := New(db)
	require.NoError(t, err)
	return s
}

func seedConversation(t *testing.T, s *Store, id, tenant string) {
	t.Helper()
	require.NoError(t, s.CreateConversation(context.Background(), &core.Conversation{
		ID: id, TenantID: tenant, Channel: core.ChannelWhatsApp,
		Status: core.ConversationActive, Created: time.Now(),
	}))
}

func TestCreateAndGetConversation(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	seedConversation(t, s, "c1", "t1")

	conv, err := s.GetConversation(ctx, "t1", "c1")
	require.NoError(t, err)
	assert.Equal(t, core.ChannelWhatsApp, conv.Channel)
	assert.Equal(t, core.ConversationActive, conv.Status)

	cc, err := s.GetContext(ctx, "t1", "c1")
	require.NoError(t, err)
	assert.Equal(t, "c1", cc.ConversationID)
	assert.Empty(t, cc.ActiveAgent)
}

func TestTenantScoping(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	seedConversation(t, s, "c1", "t1")

	_, err := s.GetConversation(ctx, "t2", "c1")
	assert.ErrorIs(t, err, core.ErrConversationNotFound)
	_, err = s.RecentTurns(ctx, "t2", "c1", 0)
	assert.ErrorIs(t, err, core.ErrConversationNotFound)
	err = s.CloseConversation(ctx, "t2", "c1")
	assert.ErrorIs(t, err, core.ErrConversationNotFound)
}

func TestCommitTurnsRoundTrip(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	seedConversation(t, s, "c1", "t1")

	cc, err := s.GetContext(ctx, "t1", "c1")
	require.NoError(t, err)
	cc.ActiveAgent = "billing"
	cc.Summary = "user asked about an invoice"
	cc.Pending = &core.PendingAction{
		AgentSlug: "billing", Kind: "confirm",
		Prompt: "Deseja a segunda via?", Options: []string{"sim", "não"},
		Created: time.Now(),
	}
	cc.RecordHandoff("billing", core.HandoffIntentMismatch, time.Now())
	cc.Updated = time.Now()

	turns := []core.Turn{
		{ID: "u1", ConversationID: "c1", Role: core.RoleUser, Content: "preciso do boleto", Created: time.Now(), Metadata: map[string]string{"channel": "whatsapp"}},
		{ID: "a1", ConversationID: "c1", Role: core.RoleAgent, AgentSlug: "billing", Content: "claro, segue", Created: time.Now()},
	}
	require.NoError(t, s.CommitTurns(ctx, "t1", turns, cc))

	got, err := s.RecentTurns(ctx, "t1", "c1", 0)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "u1", got[0].ID)
	assert.Equal(t, "whatsapp", got[0].Metadata["channel"])
	assert.Equal(t, "a1", got[1].ID)

	n, err := s.TurnCount(ctx, "t1", "c1")
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	cc2, err := s.GetContext(ctx, "t1", "c1")
	require.NoError(t, err)
	assert.Equal(t, "billing", cc2.ActiveAgent)
	require.NotNil(t, cc2.Pending)
	assert.Equal(t, []string{"sim", "não"}, cc2.Pending.Options)
	require.Len(t, cc2.Handoffs, 1)
	assert.Equal(t, core.HandoffIntentMismatch, cc2.Handoffs[0].Reason)
}

func TestRecentTurnsLimit(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	seedConversation(t, s, "c1", "t1")

	cc, err := s.GetContext(ctx, "t1", "c1")
	require.NoError(t, err)
	turns := make([]core.Turn, 0, 5)
	for i := 0; i < 5; i++ {
		turns = append(turns, core.Turn{
			ID: string(rune('a' + i)), ConversationID: "c1",
			Role: core.RoleUser, Content: "m", Created: time.Now(),
		})
	}
	require.NoError(t, s.CommitTurns(ctx, "t1", turns, cc))

	got, err := s.RecentTurns(ctx, "t1", "c1", 2)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "d", got[0].ID)
	assert.Equal(t, "e", got[1].ID)
}

func TestCommitTurnsRejectsForeignTurns(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	seedConversation(t, s, "c1", "t1")

	cc, err := s.GetContext(ctx, "t1", "c1")
	require.NoError(t, err)
	err = s.CommitTurns(ctx, "t1", []core.Turn{
		{ID: "x", ConversationID: "other", Role: core.RoleUser},
	}, cc)
	assert.ErrorIs(t, err, core.ErrPersistence)

	// The rejected batch rolled back entirely.
	n, err := s.TurnCount(ctx, "t1", "c1")
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestCloseConversation(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	seedConversation(t, s, "c1", "t1")

	require.NoError(t, s.CloseConversation(ctx, "t1", "c1"))
	conv, err := s.GetConversation(ctx, "t1", "c1")
	require.NoError(t, err)
	assert.Equal(t, core.ConversationClosed, conv.Status)

	// Idempotent.
	assert.NoError(t, s.CloseConversation(ctx, "t1", "c1"))
}
