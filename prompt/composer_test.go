package prompt

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zapdesk/zapdesk/core"
)

func supportAgent() *core.AgentDefinition {
	return &core.AgentDefinition{
		Slug:     "support",
		Category: "support",
		Intents:  []string{"support"},
		Persona: []core.PersonaPart{
			core.ToneConfig{Tone: "friendly", Style: "concise"},
			core.InstructionSet{Instructions: []string{"Answer in the user's language."}},
			core.ExampleSet{Positive: []string{"Claro! Posso ajudar."}},
		},
	}
}

func TestComposeIsDeterministic(t *testing.T) {
	c := New()
	in := Input{
		Agent:   supportAgent(),
		Context: &core.Context{ConversationID: "c1", Summary: "user asked about billing"},
		RecentTurns: []core.Turn{
			{Role: core.RoleUser, Content: "oi"},
			{Role: core.RoleAgent, Content: "olá!"},
		},
		Channel: core.ChannelWhatsApp,
		Overrides: []core.PersonaPart{
			core.BusinessContext{Description: "Acme sells widgets."},
		},
	}

	first, err := c.Compose(in)
	require.NoError(t, err)
	second, err := c.Compose(in)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestComposeSectionsAndPrecedence(t *testing.T) {
	c := New()
	in := Input{
		Agent: supportAgent(),
		Overrides: []core.PersonaPart{
			core.ToneConfig{Tone: "formal"},
			core.InstructionSet{Instructions: []string{"Always mention the help center."}},
			core.BusinessContext{Description: "Acme sells widgets."},
		},
		Channel: core.ChannelWeb,
	}

	p, err := c.Compose(in)
	require.NoError(t, err)

	// Tenant tone replaces the agent default.
	assert.Contains(t, p.Instructions, "Tone: formal.")
	assert.NotContains(t, p.Instructions, "friendly")

	// Tenant instructions are appended after the agent's own.
	base := strings.Index(p.Instructions, "Answer in the user's language.")
	extra := strings.Index(p.Instructions, "Always mention the help center.")
	require.True(t, base >= 0 && extra >= 0)
	assert.Less(t, base, extra)

	assert.Contains(t, p.Instructions, "Acme sells widgets.")
}

func TestComposeOmitsEmptyExampleSections(t *testing.T) {
	c := New()
	agent := &core.AgentDefinition{
		Slug: "faq", Category: "general", Intents: []string{"faq"},
		Persona: []core.PersonaPart{core.ExampleSet{}},
	}
	p, err := c.Compose(Input{Agent: agent, Channel: core.ChannelWeb})
	require.NoError(t, err)
	assert.NotContains(t, p.Instructions, "examples")
}

func TestComposeRendersTemplates(t *testing.T) {
	c := New()
	agent := &core.AgentDefinition{
		Slug: "concierge", Category: "general", Default: true,
		Persona: []core.PersonaPart{
			core.PromptTemplate{Text: "You greet users of {{default \"our product\" .Business}} on {{.Channel}}."},
		},
	}
	p, err := c.Compose(Input{
		Agent:     agent,
		Channel:   core.ChannelWhatsApp,
		Overrides: []core.PersonaPart{core.BusinessContext{Description: "Acme"}},
	})
	require.NoError(t, err)
	assert.Contains(t, p.Instructions, "You greet users of Acme on whatsapp.")
}

func TestComposeBoundsTurnTail(t *testing.T) {
	c := New(func(o *Options) {
		o.MaxTurns = 2
		o.MaxTurnRunes = 5
	})
	turns := []core.Turn{
		{Role: core.RoleUser, Content: "first message"},
		{Role: core.RoleAgent, Content: "second message"},
		{Role: core.RoleUser, Content: "third message"},
	}
	p, err := c.Compose(Input{Agent: supportAgent(), RecentTurns: turns, Channel: core.ChannelWeb})
	require.NoError(t, err)
	require.Len(t, p.History, 2)
	assert.Equal(t, "secon", p.History[0].Content)
	assert.Equal(t, "third", p.History[1].Content)
}

func TestComposeIncludesResolvedAction(t *testing.T) {
	c := New()
	p, err := c.Compose(Input{
		Agent:   supportAgent(),
		Channel: core.ChannelWeb,
		ResolvedAction: &core.PendingAction{
			AgentSlug: "support", Kind: "confirm_ticket", Prompt: "Abro o chamado?",
		},
		AnswerText: "sim",
	})
	require.NoError(t, err)
	assert.Contains(t, p.Instructions, "confirm_ticket")
	assert.Contains(t, p.Instructions, "sim")
}

func TestComposeNilAgent(t *testing.T) {
	_, err := New().Compose(Input{})
	assert.Error(t, err)
}
