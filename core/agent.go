package core

import "fmt"

// PersonaPart is a polymorphic fragment of an agent's persona configuration.
// Concrete part types implement the unexported isPersonaPart marker enabling a
// closed set that is validated at load time instead of probed field-by-field.
type PersonaPart interface{ isPersonaPart() }

// ToneConfig sets the voice of the agent (e.g. "friendly", "formal") and an
// optional free-form style note.
type ToneConfig struct {
	Tone  string `json:"tone" yaml:"tone"`
	Style string `json:"style,omitempty" yaml:"style,omitempty"`
}

func (ToneConfig) isPersonaPart() {}

// InstructionSet is an ordered list of behavioral instructions rendered into
// the system prompt verbatim.
type InstructionSet struct {
	Instructions []string `json:"instructions" yaml:"instructions"`
}

func (InstructionSet) isPersonaPart() {}

// ExampleSet carries example utterances the agent should emulate (positive)
// or avoid (negative). Empty lists are omitted from composed prompts.
type ExampleSet struct {
	Positive []string `json:"positive,omitempty" yaml:"positive,omitempty"`
	Negative []string `json:"negative,omitempty" yaml:"negative,omitempty"`
}

func (ExampleSet) isPersonaPart() {}

// PromptTemplate is a prompt fragment that may reference composition state
// (agent name, channel, business context) through text/template syntax.
type PromptTemplate struct {
	Text string `json:"text" yaml:"text"`
}

func (PromptTemplate) isPersonaPart() {}

// BusinessContext describes the tenant's business for the model. It normally
// appears only in tenant overrides, layered on top of the agent defaults.
type BusinessContext struct {
	Description string `json:"description" yaml:"description"`
}

func (BusinessContext) isPersonaPart() {}

// AgentDefinition describes one agent persona in the catalog: its stable
// identity, routing metadata (intents, channels, plan constraint) and persona
// configuration. Definitions are created by administration and are read-only
// to the engine.
type AgentDefinition struct {
	// Slug is the unique, stable identifier of the agent.
	Slug string
	// Category groups agents for tie-breaking and display ("support",
	// "sales", "general", ...).
	Category string
	// Intents lists the intent labels this agent can serve.
	Intents []string
	// Channels lists the surfaces the agent supports. Empty means all.
	Channels []Channel
	// MinPlan is the lowest plan tier allowed to use the agent. Empty means
	// no plan constraint.
	MinPlan PlanTier
	// Priority breaks score ties during agent selection; higher wins.
	Priority int
	// Default marks the agent as the fallback when no intent matches.
	Default bool
	// Persona is the ordered persona configuration of the agent.
	Persona []PersonaPart
}

// SupportsChannel reports whether the agent serves the given channel.
// An agent with no declared channels serves all of them.
func (a *AgentDefinition) SupportsChannel(ch Channel) bool {
	if len(a.Channels) == 0 {
		return true
	}
	for _, c := range a.Channels {
		if c == ch {
			return true
		}
	}
	return false
}

// SupportsIntent reports whether the agent declares the given intent label.
func (a *AgentDefinition) SupportsIntent(intent string) bool {
	for _, i := range a.Intents {
		if i == intent {
			return true
		}
	}
	return false
}

// Validate checks the structural invariants of a definition. It is called by
// the catalog on registration and by the YAML loader.
func (a *AgentDefinition) Validate() error {
	if a.Slug == "" {
		return fmt.Errorf("agent definition missing slug")
	}
	if len(a.Intents) == 0 && !a.Default {
		return fmt.Errorf("agent %q declares no intents and is not a default agent", a.Slug)
	}
	for _, ch := range a.Channels {
		if !ch.Valid() {
			return fmt.Errorf("agent %q declares unknown channel %q", a.Slug, ch)
		}
	}
	if a.MinPlan != "" && a.MinPlan.Rank() < 0 {
		return fmt.Errorf("agent %q declares unknown plan tier %q", a.Slug, a.MinPlan)
	}
	return nil
}

// TenantAgentConfig is the per-tenant enablement record for one agent. It
// governs entitlement together with the tenant's plan tier.
type TenantAgentConfig struct {
	TenantID  string
	AgentSlug string
	Enabled   bool
	// Overrides layers tenant-specific persona parts over the agent's
	// defaults during prompt composition.
	Overrides []PersonaPart
}
