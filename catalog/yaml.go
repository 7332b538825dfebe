package catalog

import (
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/zapdesk/zapdesk/core"
)

// yamlDocument is the top-level shape of a catalog file.
type yamlDocument struct {
	Agents []yamlAgent `yaml:"agents"`
}

type yamlAgent struct {
	Slug     string            `yaml:"slug"`
	Category string            `yaml:"category"`
	Intents  []string          `yaml:"intents"`
	Channels []string          `yaml:"channels"`
	MinPlan  string            `yaml:"min_plan"`
	Priority int               `yaml:"priority"`
	Default  bool              `yaml:"default"`
	Persona  []yamlPersonaPart `yaml:"persona"`
}

// yamlPersonaPart is the tagged-union encoding of a persona part. Kind selects
// the variant; the remaining fields belong to exactly one variant each.
type yamlPersonaPart struct {
	Kind string `yaml:"kind"`

	// kind: tone
	Tone  string `yaml:"tone"`
	Style string `yaml:"style"`

	// kind: instructions
	Instructions []string `yaml:"instructions"`

	// kind: examples
	Positive []string `yaml:"positive"`
	Negative []string `yaml:"negative"`

	// kind: template
	Text string `yaml:"text"`

	// kind: business
	Description string `yaml:"description"`
}

// Load parses a catalog document and registers every agent it defines.
// Persona parts are validated into the closed variant set here, so malformed
// documents fail at load time rather than during prompt composition.
func Load(r io.Reader, cat *Catalog) error {
	var doc yamlDocument
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&doc); err != nil {
		return fmt.Errorf("decode catalog document: %w", err)
	}

	for i, ya := range doc.Agents {
		def, err := ya.toDefinition()
		if err != nil {
			return fmt.Errorf("agent %d (%q): %w", i, ya.Slug, err)
		}
		if err := cat.Register(def); err != nil {
			return fmt.Errorf("agent %d (%q): %w", i, ya.Slug, err)
		}
	}
	return nil
}

// LoadFile opens and loads a catalog YAML file.
func LoadFile(path string, cat *Catalog) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open catalog file: %w", err)
	}
	defer f.Close()
	return Load(f, cat)
}

func (ya yamlAgent) toDefinition() (core.AgentDefinition, error) {
	def := core.AgentDefinition{
		Slug:     ya.Slug,
		Category: ya.Category,
		Intents:  ya.Intents,
		MinPlan:  core.PlanTier(ya.MinPlan),
		Priority: ya.Priority,
		Default:  ya.Default,
	}
	for _, ch := range ya.Channels {
		def.Channels = append(def.Channels, core.Channel(ch))
	}
	for j, part := range ya.Persona {
		p, err := part.toPersonaPart()
		if err != nil {
			return core.AgentDefinition{}, fmt.Errorf("persona part %d: %w", j, err)
		}
		def.Persona = append(def.Persona, p)
	}
	return def, nil
}

func (yp yamlPersonaPart) toPersonaPart() (core.PersonaPart, error) {
	switch yp.Kind {
	case "tone":
		if yp.Tone == "" {
			return nil, fmt.Errorf("tone part missing tone")
		}
		return core.ToneConfig{Tone: yp.Tone, Style: yp.Style}, nil
	case "instructions":
		if len(yp.Instructions) == 0 {
			return nil, fmt.Errorf("instructions part is empty")
		}
		return core.InstructionSet{Instructions: yp.Instructions}, nil
	case "examples":
		return core.ExampleSet{Positive: yp.Positive, Negative: yp.Negative}, nil
	case "template":
		if yp.Text == "" {
			return nil, fmt.Errorf("template part missing text")
		}
		return core.PromptTemplate{Text: yp.Text}, nil
	case "business":
		if yp.Description == "" {
			return nil, fmt.Errorf("business part missing description")
		}
		return core.BusinessContext{Description: yp.Description}, nil
	case "":
		return nil, fmt.Errorf("persona part missing kind")
	default:
		return nil, fmt.Errorf("unknown persona part kind %q", yp.Kind)
	}
}
