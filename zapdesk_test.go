package zapdesk

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zapdesk/zapdesk/core"
	"github.com/zapdesk/zapdesk/entitlement"
	"github.com/zapdesk/zapdesk/model"
	"github.com/zapdesk/zapdesk/orchestrator"
)

func newDesk(t *testing.T) (*ZapDesk, *model.MockProvider) {
	t.Helper()

	src := entitlement.NewInMemorySource()
	src.PutTenant(core.Tenant{ID: "acme", Plan: core.PlanStarter, Status: core.TenantActive})
	src.SetAgentConfig(core.TenantAgentConfig{TenantID: "acme", AgentSlug: "concierge", Enabled: true})

	provider := model.NewMockProvider("mock")
	desk := New(func(o *Options) {
		o.Providers = []model.Provider{provider}
		o.Entitlements = src
	})
	require.NoError(t, desk.RegisterAgent(core.AgentDefinition{
		Slug: "concierge", Category: "support", Default: true,
	}))
	return desk, provider
}

func TestProcessMessageEndToEnd(t *testing.T) {
	desk, provider := newDesk(t)
	provider.AddResponse("olá, tudo bem?", "Tudo ótimo! Como posso ajudar?")

	reply, err := desk.ProcessMessage(context.Background(), orchestrator.Request{
		TenantID: "acme", UserID: "u1", Message: "olá, tudo bem?",
		Channel: core.ChannelWeb,
	})
	require.NoError(t, err)
	assert.Equal(t, "Tudo ótimo! Como posso ajudar?", reply.Text)
	assert.Equal(t, "concierge", reply.AgentSlug)
	require.NotEmpty(t, reply.ConversationID)

	// The façade defaults persist between calls on the same conversation.
	reply2, err := desk.ProcessMessage(context.Background(), orchestrator.Request{
		TenantID: "acme", UserID: "u1", ConversationID: reply.ConversationID,
		Message: "segunda mensagem", Channel: core.ChannelWeb,
	})
	require.NoError(t, err)
	assert.Equal(t, reply.ConversationID, reply2.ConversationID)

	require.NoError(t, desk.CloseConversation(context.Background(), "acme", "u1", reply.ConversationID))
	_, err = desk.ProcessMessage(context.Background(), orchestrator.Request{
		TenantID: "acme", UserID: "u1", ConversationID: reply.ConversationID,
		Message: "oi?", Channel: core.ChannelWeb,
	})
	assert.ErrorIs(t, err, core.ErrConversationClosed)
}

func TestSetPendingActionRoundTrip(t *testing.T) {
	desk, provider := newDesk(t)
	provider.AddResponse("olá", "Oi! Posso agendar sua visita?")

	reply, err := desk.ProcessMessage(context.Background(), orchestrator.Request{
		TenantID: "acme", UserID: "u1", Message: "olá", Channel: core.ChannelWeb,
	})
	require.NoError(t, err)

	require.NoError(t, desk.SetPendingAction(context.Background(), "acme", reply.ConversationID, core.PendingAction{
		AgentSlug: "concierge", Kind: "confirm_visit",
		Prompt: "Confirma a visita amanhã?",
	}))

	reply2, err := desk.ProcessMessage(context.Background(), orchestrator.Request{
		TenantID: "acme", UserID: "u1", ConversationID: reply.ConversationID,
		Message: "sim", Channel: core.ChannelWeb,
	})
	require.NoError(t, err)
	assert.Equal(t, "concierge", reply2.AgentSlug)
}

func TestPreviewLeavesNoTrace(t *testing.T) {
	desk, _ := newDesk(t)

	reply, err := desk.Preview(context.Background(), orchestrator.Request{
		TenantID: "acme", UserID: "u1", Message: "testando o agente", Channel: core.ChannelWeb,
	})
	require.NoError(t, err)
	assert.NotEmpty(t, reply.Text)

	// A follow-up on the previewed conversation ID fails: nothing was stored.
	_, err = desk.ProcessMessage(context.Background(), orchestrator.Request{
		TenantID: "acme", UserID: "u1", ConversationID: reply.ConversationID,
		Message: "continuando", Channel: core.ChannelWeb,
	})
	assert.ErrorIs(t, err, core.ErrConversationNotFound)
}

func TestRegisterAgentValidation(t *testing.T) {
	desk, _ := newDesk(t)
	err := desk.RegisterAgent(core.AgentDefinition{Slug: ""})
	assert.Error(t, err)
	assert.Equal(t, 1, desk.Catalog().Len())
}
