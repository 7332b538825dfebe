package decider

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zapdesk/zapdesk/core"
	"github.com/zapdesk/zapdesk/internal/testutil"
)

// Walks one conversation through the whole selection lifecycle: first
// assignment, continuity, a topic switch, a pending confirmation and its
// resolution.
func TestConversationLifecycle(t *testing.T) {
	d := New()
	eligible := []core.AgentDefinition{
		testutil.NewAgentBuilder("support").Intents("support").Priority(1).Default().Build(),
		testutil.NewAgentBuilder("sales").Intents("sales").Build(),
		testutil.NewAgentBuilder("billing").Intents("billing").Build(),
	}
	cc := testutil.NewContextBuilder("conv-1").Build()

	// First message assigns by intent.
	dec := d.Decide(cc, "o aplicativo apresenta um erro ao abrir", eligible)
	require.NotNil(t, dec.Agent)
	assert.Equal(t, "support", dec.Agent.Slug)
	assert.False(t, dec.Handoff)
	cc.ActiveAgent = dec.Agent.Slug

	// Ambiguous follow-up stays put.
	dec = d.Decide(cc, "entendi, vou tentar de novo", eligible)
	require.NotNil(t, dec.Agent)
	assert.Equal(t, "support", dec.Agent.Slug)

	// Topic switch hands off with a reason.
	dec = d.Decide(cc, "aproveitando: quanto custa o plano maior?", eligible)
	require.NotNil(t, dec.Agent)
	assert.Equal(t, "sales", dec.Agent.Slug)
	assert.True(t, dec.Handoff)
	assert.Equal(t, core.HandoffIntentMismatch, dec.Reason)
	cc.RecordHandoff(dec.Agent.Slug, dec.Reason, time.Now())

	// The sales agent asks for confirmation; "sim" resolves it.
	cc = testutil.NewContextBuilder("conv-1").
		ActiveAgent("sales").
		Handoff("support", "sales", core.HandoffIntentMismatch).
		Pending(core.PendingAction{
			AgentSlug: "sales", Kind: "confirm_upgrade",
			Prompt: "Confirma o upgrade para o plano Pro?", Created: time.Now(),
		}).
		Build()
	dec = d.Decide(cc, "sim", eligible)
	require.NotNil(t, dec.Agent)
	assert.Equal(t, "sales", dec.Agent.Slug)
	require.NotNil(t, dec.ResolvedPending)
	assert.Equal(t, "confirm_upgrade", dec.ResolvedPending.Kind)
}
