package decider

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zapdesk/zapdesk/core"
)

func eligibleSet() []core.AgentDefinition {
	return []core.AgentDefinition{
		{Slug: "support", Category: "support", Intents: []string{"support", "billing"}, Priority: 1},
		{Slug: "sales", Category: "sales", Intents: []string{"sales"}},
		{Slug: "concierge", Category: "general", Default: true},
	}
}

func TestUnassignedRoutesByIntent(t *testing.T) {
	d := New()
	convCtx := core.NewContext("c1")

	dec := d.Decide(convCtx, "preciso de ajuda com o sistema", eligibleSet())

	require.NotNil(t, dec.Agent)
	assert.Equal(t, "support", dec.Agent.Slug)
	assert.Equal(t, "support", dec.Intent)
	assert.False(t, dec.Handoff)
	assert.Nil(t, dec.ResolvedPending)
}

func TestContinuityBiasKeepsActiveAgent(t *testing.T) {
	d := New()
	convCtx := core.NewContext("c1")
	convCtx.ActiveAgent = "support"

	// "billing" is also served by support: no handoff even though other
	// agents exist.
	dec := d.Decide(convCtx, "tenho um problema com a fatura", eligibleSet())

	require.NotNil(t, dec.Agent)
	assert.Equal(t, "support", dec.Agent.Slug)
	assert.False(t, dec.Handoff)
}

func TestNoMatchKeepsActiveAgent(t *testing.T) {
	d := New()
	convCtx := core.NewContext("c1")
	convCtx.ActiveAgent = "sales"

	dec := d.Decide(convCtx, "hmm interessante", eligibleSet())

	require.NotNil(t, dec.Agent)
	assert.Equal(t, "sales", dec.Agent.Slug)
	assert.False(t, dec.Handoff)
}

func TestIntentMismatchHandsOff(t *testing.T) {
	d := New()
	convCtx := core.NewContext("c1")
	convCtx.ActiveAgent = "sales"

	dec := d.Decide(convCtx, "meu sistema está com erro, preciso de suporte", eligibleSet())

	require.NotNil(t, dec.Agent)
	assert.Equal(t, "support", dec.Agent.Slug)
	assert.True(t, dec.Handoff)
	assert.Equal(t, core.HandoffIntentMismatch, dec.Reason)
}

func TestDefaultFallbackWhenNoIntentMatches(t *testing.T) {
	d := New()
	convCtx := core.NewContext("c1")

	dec := d.Decide(convCtx, "bom dia", eligibleSet())

	require.NotNil(t, dec.Agent)
	assert.Equal(t, "concierge", dec.Agent.Slug)
	assert.False(t, dec.Handoff)
}

func TestNoAgentAtAll(t *testing.T) {
	d := New()
	convCtx := core.NewContext("c1")

	noDefault := []core.AgentDefinition{
		{Slug: "sales", Category: "sales", Intents: []string{"sales"}},
	}
	dec := d.Decide(convCtx, "bom dia", noDefault)
	assert.Nil(t, dec.Agent)
}

func TestPendingActionResolved(t *testing.T) {
	d := New()
	convCtx := core.NewContext("c1")
	convCtx.ActiveAgent = "sales"
	convCtx.Pending = &core.PendingAction{
		AgentSlug: "sales",
		Kind:      "confirm_order",
		Prompt:    "Confirma o pedido?",
		Created:   time.Now(),
	}

	dec := d.Decide(convCtx, "sim", eligibleSet())

	require.NotNil(t, dec.Agent)
	assert.Equal(t, "sales", dec.Agent.Slug)
	require.NotNil(t, dec.ResolvedPending)
	assert.Equal(t, "confirm_order", dec.ResolvedPending.Kind)
	assert.False(t, dec.Handoff)
}

func TestPendingActionIgnoredFallsThroughToRouting(t *testing.T) {
	d := New()
	convCtx := core.NewContext("c1")
	convCtx.ActiveAgent = "sales"
	convCtx.Pending = &core.PendingAction{AgentSlug: "sales", Kind: "confirm_order"}

	dec := d.Decide(convCtx, "antes disso, meu boleto veio errado, problema na cobrança", eligibleSet())

	require.NotNil(t, dec.Agent)
	assert.Equal(t, "support", dec.Agent.Slug)
	assert.Nil(t, dec.ResolvedPending)
	assert.True(t, dec.Handoff)
}

func TestPendingAgentNoLongerEligible(t *testing.T) {
	d := New()
	convCtx := core.NewContext("c1")
	convCtx.ActiveAgent = "sales"
	convCtx.Pending = &core.PendingAction{AgentSlug: "sales", Kind: "confirm_order"}

	withoutSales := []core.AgentDefinition{
		{Slug: "support", Category: "support", Intents: []string{"support"}, Default: true},
	}
	dec := d.Decide(convCtx, "sim", withoutSales)

	require.NotNil(t, dec.Agent)
	assert.Equal(t, "support", dec.Agent.Slug)
	assert.Nil(t, dec.ResolvedPending)
	assert.True(t, dec.Handoff)
	assert.Equal(t, core.HandoffPendingAgentIneligible, dec.Reason)
}

func TestRevokedActiveAgentForcesHandoff(t *testing.T) {
	d := New()
	convCtx := core.NewContext("c1")
	convCtx.ActiveAgent = "sales"

	withoutSales := []core.AgentDefinition{
		{Slug: "support", Category: "support", Intents: []string{"support"}, Default: true},
	}
	dec := d.Decide(convCtx, "quanto custa o plano?", withoutSales)

	require.NotNil(t, dec.Agent)
	assert.Equal(t, "support", dec.Agent.Slug)
	assert.True(t, dec.Handoff)
	assert.Equal(t, core.HandoffEntitlementRevoked, dec.Reason)
}

func TestExplicitTransferRequest(t *testing.T) {
	d := New()
	convCtx := core.NewContext("c1")
	convCtx.ActiveAgent = "support"

	dec := d.Decide(convCtx, "quero falar com vendas, me passa para sales", eligibleSet())

	require.NotNil(t, dec.Agent)
	assert.Equal(t, "sales", dec.Agent.Slug)
	assert.True(t, dec.Handoff)
	assert.Equal(t, core.HandoffUserRequest, dec.Reason)
}

func TestExplicitTransferOnUnassignedConversation(t *testing.T) {
	d := New()
	convCtx := core.NewContext("c1")

	dec := d.Decide(convCtx, "quero falar com vendas, me passa para sales", eligibleSet())

	require.NotNil(t, dec.Agent)
	assert.Equal(t, "sales", dec.Agent.Slug)
	assert.False(t, dec.Handoff, "first assignment is not a handoff")
	assert.Empty(t, dec.Reason)
}

func TestCustomPendingResolver(t *testing.T) {
	always := PendingResolverFunc(func(core.PendingAction, string) bool { return true })
	d := New(func(o *Options) {
		o.Resolvers = map[string]PendingResolver{"sales": always}
	})
	convCtx := core.NewContext("c1")
	convCtx.ActiveAgent = "sales"
	convCtx.Pending = &core.PendingAction{AgentSlug: "sales", Kind: "freeform"}

	dec := d.Decide(convCtx, "qualquer texto livre", eligibleSet())
	require.NotNil(t, dec.ResolvedPending)
	assert.Equal(t, "sales", dec.Agent.Slug)
}

func TestDecideIsDeterministic(t *testing.T) {
	d := New()
	convCtx := core.NewContext("c1")
	for i := 0; i < 5; i++ {
		dec := d.Decide(convCtx, "preciso de ajuda", eligibleSet())
		require.NotNil(t, dec.Agent)
		assert.Equal(t, "support", dec.Agent.Slug)
	}
}
