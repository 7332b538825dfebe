// Package prompt composes the system instructions sent to the language model
// for a chosen agent. Composition is a pure function of its inputs: agent
// persona, tenant overrides, rolling summary and a bounded tail of recent
// turns. No randomness, no clock reads, no I/O.
package prompt

import (
	"fmt"
	"strings"

	"github.com/zapdesk/zapdesk/core"
	"github.com/zapdesk/zapdesk/internal/util"
)

// Options bounds the composed prompt.
type Options struct {
	// MaxTurns caps the recent-turn tail included verbatim.
	MaxTurns int
	// MaxTurnRunes truncates each included turn to bound token cost.
	MaxTurnRunes int
	// MaxSummaryRunes truncates the rolling summary.
	MaxSummaryRunes int
}

// Composer builds prompts. Zero-value bounds are replaced with defaults in
// New; a Composer is immutable and safe for concurrent use.
type Composer struct {
	opts Options
}

// New constructs a Composer.
func New(optFns ...func(o *Options)) *Composer {
	opts := Options{
		MaxTurns:        12,
		MaxTurnRunes:    600,
		MaxSummaryRunes: 1200,
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	return &Composer{opts: opts}
}

// Input gathers everything a composition depends on.
type Input struct {
	Agent *core.AgentDefinition
	// Overrides are tenant persona parts layered over the agent defaults.
	Overrides []core.PersonaPart
	Context   *core.Context
	// RecentTurns is the conversation tail in creation order; the composer
	// applies its own MaxTurns bound.
	RecentTurns []core.Turn
	Channel     core.Channel
	// ResolvedAction, when set, tells the agent the user just answered its
	// pending action so the reply can act on it.
	ResolvedAction *core.PendingAction
	// AnswerText is the user's answer to the resolved action.
	AnswerText string
}

// Prompt is the composed model input: system instructions plus the bounded
// turn history to replay as messages.
type Prompt struct {
	Instructions string
	History      []core.Turn
}

// Compose merges, in increasing precedence: agent base persona, tenant
// overrides, the rolling summary, and the recent-turn tail. Identical inputs
// always produce identical output. Absent or empty example lists are omitted
// rather than rendered as empty sections.
func (c *Composer) Compose(in Input) (*Prompt, error) {
	if in.Agent == nil {
		return nil, fmt.Errorf("compose: nil agent")
	}

	merged := mergePersona(in.Agent.Persona, in.Overrides)

	data := map[string]any{
		"Agent":    in.Agent.Slug,
		"Category": in.Agent.Category,
		"Channel":  string(in.Channel),
		"Business": merged.business,
	}

	var b strings.Builder
	fmt.Fprintf(&b, "You are %q, a %s assistant.\n", in.Agent.Slug, displayCategory(in.Agent.Category))

	if merged.business != "" {
		b.WriteString("\nBusiness context:\n")
		b.WriteString(merged.business)
		b.WriteString("\n")
	}

	if merged.tone != nil {
		fmt.Fprintf(&b, "\nTone: %s.", merged.tone.Tone)
		if merged.tone.Style != "" {
			fmt.Fprintf(&b, " Style: %s.", merged.tone.Style)
		}
		b.WriteString("\n")
	}

	if len(merged.instructions) > 0 {
		b.WriteString("\nInstructions:\n")
		for _, instr := range merged.instructions {
			fmt.Fprintf(&b, "- %s\n", instr)
		}
	}

	if len(merged.positive) > 0 {
		b.WriteString("\nRespond like these examples:\n")
		for _, ex := range merged.positive {
			fmt.Fprintf(&b, "- %s\n", ex)
		}
	}
	if len(merged.negative) > 0 {
		b.WriteString("\nNever respond like these examples:\n")
		for _, ex := range merged.negative {
			fmt.Fprintf(&b, "- %s\n", ex)
		}
	}

	for _, tpl := range merged.templates {
		rendered, err := util.RenderTemplate(tpl, data)
		if err != nil {
			return nil, fmt.Errorf("render persona template: %w", err)
		}
		b.WriteString("\n")
		b.WriteString(rendered)
		b.WriteString("\n")
	}

	if in.Context != nil && in.Context.Summary != "" {
		b.WriteString("\nConversation summary so far:\n")
		b.WriteString(truncateRunes(in.Context.Summary, c.opts.MaxSummaryRunes))
		b.WriteString("\n")
	}

	if in.ResolvedAction != nil {
		fmt.Fprintf(&b, "\nThe user just answered your pending %q request (%s) with: %s\nAct on that answer.\n",
			in.ResolvedAction.Kind, in.ResolvedAction.Prompt, in.AnswerText)
	}

	return &Prompt{
		Instructions: b.String(),
		History:      c.tail(in.RecentTurns),
	}, nil
}

// mergedPersona is the flattened view of base + override parts. Tone,
// business context and templates from overrides replace the base values;
// instructions and examples from overrides are appended after the base ones
// so tenant guidance sharpens rather than erases agent behavior.
type mergedPersona struct {
	tone         *core.ToneConfig
	business     string
	instructions []string
	positive     []string
	negative     []string
	templates    []string
}

func mergePersona(base, overrides []core.PersonaPart) mergedPersona {
	var m mergedPersona
	apply := func(parts []core.PersonaPart, replaceTemplates bool) {
		replaced := false
		for _, p := range parts {
			switch part := p.(type) {
			case core.ToneConfig:
				t := part
				m.tone = &t
			case core.BusinessContext:
				m.business = part.Description
			case core.InstructionSet:
				m.instructions = append(m.instructions, part.Instructions...)
			case core.ExampleSet:
				m.positive = append(m.positive, part.Positive...)
				m.negative = append(m.negative, part.Negative...)
			case core.PromptTemplate:
				if replaceTemplates && !replaced {
					m.templates = nil
					replaced = true
				}
				m.templates = append(m.templates, part.Text)
			}
		}
	}
	apply(base, false)
	apply(overrides, true)
	return m
}

// tail returns the last MaxTurns turns, each truncated to MaxTurnRunes.
func (c *Composer) tail(turns []core.Turn) []core.Turn {
	if len(turns) > c.opts.MaxTurns {
		turns = turns[len(turns)-c.opts.MaxTurns:]
	}
	out := make([]core.Turn, len(turns))
	for i, t := range turns {
		t.Content = truncateRunes(t.Content, c.opts.MaxTurnRunes)
		out[i] = t
	}
	return out
}

func truncateRunes(s string, max int) string {
	if max <= 0 {
		return s
	}
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max])
}

func displayCategory(category string) string {
	if category == "" {
		return "general"
	}
	return category
}
