// Package anthropic adapts Claude models via the Anthropic API. It is the one
// adapter that consumes cache-annotated system blocks: cacheable parts are
// marked with ephemeral cache_control so stable prefixes hit the prompt cache.
package anthropic

import (
	"context"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/pkg/errors"

	"github.com/modelmux/modelmux/pkg/dispatch/domain"
	"github.com/modelmux/modelmux/pkg/message"
)

// The API rejects small max_tokens values on current Claude models.
const minMaxTokens = 1024

// Adapter drives one Claude model.
type Adapter struct {
	client *anthropic.Client
	model  string
}

// New creates an adapter for the model using the given API key.
func New(model, apiKey string) (*Adapter, error) {
	if apiKey == "" {
		return nil, errors.New("anthropic: API key not set")
	}
	client := anthropic.NewClient(option.WithAPIKey(apiKey))
	return &Adapter{client: &client, model: model}, nil
}

func (a *Adapter) ModelID() string           { return a.model }
func (a *Adapter) SupportsPromptCache() bool { return true }

// Chat streams one exchange, accumulating events into a complete message and
// forwarding text deltas to the chunk callback.
func (a *Adapter) Chat(ctx context.Context, req domain.ChatRequest) (*domain.Reply, error) {
	blocks, msgs := req.Parts.CacheAnnotated()

	system := make([]anthropic.TextBlockParam, 0, len(blocks))
	for _, b := range blocks {
		param := anthropic.TextBlockParam{Text: b.Text}
		if b.Cacheable {
			param.CacheControl = anthropic.NewCacheControlEphemeralParam()
		}
		system = append(system, param)
	}

	anthropicMessages := make([]anthropic.MessageParam, 0, len(msgs))
	for _, m := range msgs {
		block := anthropic.NewTextBlock(m.Content)
		if m.Role == message.RoleAssistant {
			anthropicMessages = append(anthropicMessages, anthropic.NewAssistantMessage(block))
		} else {
			anthropicMessages = append(anthropicMessages, anthropic.NewUserMessage(block))
		}
	}

	maxTokens := req.MaxTokens
	if maxTokens < minMaxTokens {
		maxTokens = minMaxTokens
	}
	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(a.model),
		MaxTokens: int64(maxTokens),
		System:    system,
		Messages:  anthropicMessages,
	}
	if req.Temperature > 0 {
		params.Temperature = anthropic.Float(req.Temperature)
	}

	stream := a.client.Messages.NewStreaming(ctx, params)

	var acc anthropic.Message
	var thinkingBuilder strings.Builder
	for stream.Next() {
		event := stream.Current()
		if err := acc.Accumulate(event); err != nil {
			return nil, errors.Wrap(err, "accumulating stream event")
		}

		if deltaEvent, ok := event.AsAny().(anthropic.ContentBlockDeltaEvent); ok {
			switch delta := deltaEvent.Delta.AsAny().(type) {
			case anthropic.TextDelta:
				if delta.Text != "" && req.OnChunk != nil {
					req.OnChunk(delta.Text)
				}
			case anthropic.ThinkingDelta:
				thinkingBuilder.WriteString(delta.Thinking)
			}
		}
	}
	if err := stream.Err(); err != nil {
		return nil, errors.Wrap(err, "anthropic streaming")
	}

	var content strings.Builder
	for _, block := range acc.Content {
		if text, ok := block.AsAny().(anthropic.TextBlock); ok {
			content.WriteString(text.Text)
		}
	}

	return &domain.Reply{
		Content:  content.String(),
		Thinking: thinkingBuilder.String(),
		Usage: message.TokenUsage{
			InputTokens:         int(acc.Usage.InputTokens),
			OutputTokens:        int(acc.Usage.OutputTokens),
			TotalTokens:         int(acc.Usage.InputTokens + acc.Usage.OutputTokens),
			CachedTokens:        int(acc.Usage.CacheReadInputTokens),
			CacheCreationTokens: int(acc.Usage.CacheCreationInputTokens),
		},
	}, nil
}
