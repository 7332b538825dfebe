// Package anthropic adapts the Anthropic Messages API to the generic
// model.Provider interface.
package anthropic

import (
	"context"
	"errors"
	"fmt"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/zapdesk/zapdesk/model"
)

// Options configures the Anthropic provider adapter.
type Options struct {
	Model       anthropic.Model
	Temperature float64
	MaxTokens   int64
	APIKey      string
}

// Provider wraps the Anthropic Messages API behind model.Provider.
type Provider struct {
	client *anthropic.Client
	opts   Options
}

// NewProvider creates an Anthropic provider using the official client.
func NewProvider(optFns ...func(o *Options)) *Provider {
	opts := defaultOptions(optFns...)

	var clientOpts []option.RequestOption
	if opts.APIKey != "" {
		clientOpts = append(clientOpts, option.WithAPIKey(opts.APIKey))
	}
	client := anthropic.NewClient(clientOpts...)

	return &Provider{client: &client, opts: opts}
}

// NewProviderFromClient creates an Anthropic provider from an existing client.
func NewProviderFromClient(client *anthropic.Client, optFns ...func(o *Options)) *Provider {
	return &Provider{client: client, opts: defaultOptions(optFns...)}
}

func defaultOptions(optFns ...func(o *Options)) Options {
	opts := Options{
		Model:       anthropic.ModelClaude3_5Sonnet20241022,
		Temperature: 0.7,
		MaxTokens:   1024,
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	return opts
}

// Generate implements model.Provider. Failures carry a retry class derived
// from the API status code.
func (p *Provider) Generate(ctx context.Context, req model.Request) (*model.Response, error) {
	params := anthropic.MessageNewParams{
		Model:       p.opts.Model,
		MaxTokens:   p.opts.MaxTokens,
		Temperature: anthropic.Float(p.opts.Temperature),
		Messages:    buildMessages(req.Messages),
	}
	if req.Params.Model != "" {
		params.Model = anthropic.Model(req.Params.Model)
	}
	if req.Params.Temperature != 0 {
		params.Temperature = anthropic.Float(req.Params.Temperature)
	}
	if req.Params.MaxTokens != 0 {
		params.MaxTokens = req.Params.MaxTokens
	}
	if req.Instructions != "" {
		params.System = []anthropic.TextBlockParam{{Text: req.Instructions}}
	}

	resp, err := p.client.Messages.New(ctx, params)
	if err != nil {
		return nil, classify(fmt.Errorf("anthropic api error: %w", err))
	}

	var text string
	for _, block := range resp.Content {
		if block.Type == "text" {
			text += block.AsText().Text
		}
	}

	out := &model.Response{
		Text:         text,
		Model:        string(resp.Model),
		Provider:     "anthropic",
		FinishReason: string(resp.StopReason),
		Usage: &model.TokenUsage{
			PromptTokens:     int(resp.Usage.InputTokens),
			CompletionTokens: int(resp.Usage.OutputTokens),
			TotalTokens:      int(resp.Usage.InputTokens + resp.Usage.OutputTokens),
		},
	}
	return out, nil
}

// buildMessages converts replayed history to Anthropic message params.
// System content is carried separately via params.System.
func buildMessages(messages []model.Message) []anthropic.MessageParam {
	out := make([]anthropic.MessageParam, 0, len(messages))
	for _, m := range messages {
		if m.Text == "" {
			continue
		}
		switch m.Role {
		case model.RoleAssistant:
			out = append(out, anthropic.NewAssistantMessage(anthropic.NewTextBlock(m.Text)))
		case model.RoleSystem:
			continue
		default:
			out = append(out, anthropic.NewUserMessage(anthropic.NewTextBlock(m.Text)))
		}
	}
	return out
}

func classify(err error) error {
	var apierr *anthropic.Error
	if errors.As(err, &apierr) {
		if model.ClassifyStatus(apierr.StatusCode) == model.ClassFatal {
			return model.Fatal(err)
		}
		return model.Transient(err)
	}
	// Transport-level failure without a status: retryable.
	return model.Transient(err)
}

// Info implements model.Provider.
func (p *Provider) Info() model.Info {
	return model.Info{Name: string(p.opts.Model), Provider: "anthropic"}
}
