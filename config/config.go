// Package config loads engine configuration from the environment and turns
// provider credentials into a priority-ordered model.Provider list. Provider
// selection happens once here, at startup; the invoker never re-reads the
// environment per message.
package config

import (
	"fmt"
	"strings"
	"time"

	anthropicsdk "github.com/anthropics/anthropic-sdk-go"
	"github.com/kelseyhightower/envconfig"

	"github.com/zapdesk/zapdesk/core"
	"github.com/zapdesk/zapdesk/model"
	"github.com/zapdesk/zapdesk/model/anthropic"
	"github.com/zapdesk/zapdesk/model/openai"
)

// Provider names accepted in LLM_PROVIDER.
const (
	ProviderAnthropic = "anthropic"
	ProviderOpenAI    = "openai"
)

// Config is the engine's environment-driven configuration. Variables are
// read without a prefix (LLM_PROVIDER, ANTHROPIC_API_KEY, ...).
type Config struct {
	// Provider forces a single provider. Empty means "use every provider
	// with a key, Anthropic first".
	Provider string `envconfig:"LLM_PROVIDER"`

	AnthropicAPIKey string `envconfig:"ANTHROPIC_API_KEY"`
	AnthropicModel  string `envconfig:"ANTHROPIC_MODEL"`

	OpenAIAPIKey string `envconfig:"OPENAI_API_KEY"`
	OpenAIModel  string `envconfig:"OPENAI_MODEL"`

	Temperature float64 `envconfig:"LLM_TEMPERATURE" default:"0.7"`
	MaxTokens   int64   `envconfig:"LLM_MAX_TOKENS" default:"1024"`

	// RequestTimeout bounds one whole ProcessMessage call.
	RequestTimeout time.Duration `envconfig:"REQUEST_TIMEOUT" default:"60s"`

	// DatabaseDSN selects the relational store; empty keeps the in-memory one.
	DatabaseDSN string `envconfig:"DATABASE_DSN"`

	LogLevel string `envconfig:"LOG_LEVEL" default:"info"`
}

// Load reads configuration from the process environment.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	cfg.Provider = strings.ToLower(strings.TrimSpace(cfg.Provider))
	return &cfg, nil
}

// Providers builds the priority-ordered provider list. An explicit
// LLM_PROVIDER wins; otherwise every provider with a key is included,
// Anthropic before OpenAI. No usable provider yields
// core.ErrNoProviderConfigured.
func (c *Config) Providers() ([]model.Provider, error) {
	switch c.Provider {
	case "":
		var providers []model.Provider
		if c.AnthropicAPIKey != "" {
			providers = append(providers, c.anthropicProvider())
		}
		if c.OpenAIAPIKey != "" {
			providers = append(providers, c.openaiProvider())
		}
		if len(providers) == 0 {
			return nil, fmt.Errorf("no API key set: %w", core.ErrNoProviderConfigured)
		}
		return providers, nil
	case ProviderAnthropic:
		if c.AnthropicAPIKey == "" {
			return nil, fmt.Errorf("LLM_PROVIDER=%s but ANTHROPIC_API_KEY is empty: %w",
				c.Provider, core.ErrNoProviderConfigured)
		}
		return []model.Provider{c.anthropicProvider()}, nil
	case ProviderOpenAI:
		if c.OpenAIAPIKey == "" {
			return nil, fmt.Errorf("LLM_PROVIDER=%s but OPENAI_API_KEY is empty: %w",
				c.Provider, core.ErrNoProviderConfigured)
		}
		return []model.Provider{c.openaiProvider()}, nil
	default:
		return nil, fmt.Errorf("unknown LLM_PROVIDER %q: %w", c.Provider, core.ErrInvalidInput)
	}
}

func (c *Config) anthropicProvider() model.Provider {
	return anthropic.NewProvider(func(o *anthropic.Options) {
		o.APIKey = c.AnthropicAPIKey
		o.Temperature = c.Temperature
		o.MaxTokens = c.MaxTokens
		if c.AnthropicModel != "" {
			o.Model = anthropicsdk.Model(c.AnthropicModel)
		}
	})
}

func (c *Config) openaiProvider() model.Provider {
	return openai.NewProvider(func(o *openai.Options) {
		o.APIKey = c.OpenAIAPIKey
		o.Temperature = c.Temperature
		o.MaxCompletionTokens = c.MaxTokens
		if c.OpenAIModel != "" {
			o.Model = c.OpenAIModel
		}
	})
}
