// Package openai adapts the OpenAI Chat Completions API to the generic
// model.Provider interface.
package openai

import (
	"context"
	"errors"
	"fmt"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"github.com/zapdesk/zapdesk/model"
)

// Options configures the OpenAI provider adapter.
type Options struct {
	Model               string
	Temperature         float64
	MaxCompletionTokens int64
	APIKey              string
}

// Provider wraps the OpenAI Chat Completions API behind model.Provider.
type Provider struct {
	client *openai.Client
	opts   Options
}

// NewProvider creates an OpenAI provider using the official client.
func NewProvider(optFns ...func(o *Options)) *Provider {
	opts := defaultOptions(optFns...)

	var clientOpts []option.RequestOption
	if opts.APIKey != "" {
		clientOpts = append(clientOpts, option.WithAPIKey(opts.APIKey))
	}
	client := openai.NewClient(clientOpts...)

	return &Provider{client: &client, opts: opts}
}

// NewProviderFromClient creates an OpenAI provider from an existing client.
func NewProviderFromClient(client *openai.Client, optFns ...func(o *Options)) *Provider {
	return &Provider{client: client, opts: defaultOptions(optFns...)}
}

func defaultOptions(optFns ...func(o *Options)) Options {
	opts := Options{
		Model:               openai.ChatModelGPT4oMini,
		Temperature:         0.7,
		MaxCompletionTokens: 1024,
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	return opts
}

// Generate implements model.Provider. Failures carry a retry class derived
// from the API status code.
func (p *Provider) Generate(ctx context.Context, req model.Request) (*model.Response, error) {
	modelID := p.opts.Model
	if req.Params.Model != "" {
		modelID = req.Params.Model
	}
	temperature := p.opts.Temperature
	if req.Params.Temperature != 0 {
		temperature = req.Params.Temperature
	}
	maxTokens := p.opts.MaxCompletionTokens
	if req.Params.MaxTokens != 0 {
		maxTokens = req.Params.MaxTokens
	}

	params := openai.ChatCompletionNewParams{
		Model:               modelID,
		Messages:            buildMessages(req),
		Temperature:         openai.Float(temperature),
		MaxCompletionTokens: openai.Int(maxTokens),
	}

	resp, err := p.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return nil, classify(fmt.Errorf("openai api error: %w", err))
	}
	if len(resp.Choices) == 0 {
		return nil, model.Transient(fmt.Errorf("openai returned no choices"))
	}

	choice := resp.Choices[0]
	return &model.Response{
		Text:         choice.Message.Content,
		Model:        resp.Model,
		Provider:     "openai",
		FinishReason: choice.FinishReason,
		Usage: &model.TokenUsage{
			PromptTokens:     int(resp.Usage.PromptTokens),
			CompletionTokens: int(resp.Usage.CompletionTokens),
			TotalTokens:      int(resp.Usage.TotalTokens),
		},
	}, nil
}

// buildMessages converts instructions + replayed history to chat messages.
func buildMessages(req model.Request) []openai.ChatCompletionMessageParamUnion {
	var messages []openai.ChatCompletionMessageParamUnion
	if req.Instructions != "" {
		messages = append(messages, openai.SystemMessage(req.Instructions))
	}
	for _, m := range req.Messages {
		if m.Text == "" {
			continue
		}
		switch m.Role {
		case model.RoleAssistant:
			messages = append(messages, openai.AssistantMessage(m.Text))
		case model.RoleSystem:
			messages = append(messages, openai.SystemMessage(m.Text))
		default:
			messages = append(messages, openai.UserMessage(m.Text))
		}
	}
	return messages
}

func classify(err error) error {
	var apierr *openai.Error
	if errors.As(err, &apierr) {
		if model.ClassifyStatus(apierr.StatusCode) == model.ClassFatal {
			return model.Fatal(err)
		}
		return model.Transient(err)
	}
	return model.Transient(err)
}

// Info implements model.Provider.
func (p *Provider) Info() model.Info {
	return model.Info{Name: p.opts.Model, Provider: "openai"}
}
