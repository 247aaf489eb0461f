// Package openai adapts two provider shapes through one SDK: the OpenAI API
// itself, and self-hosted OpenAI-compatible servers (vLLM, llama.cpp server)
// reached through a base URL override.
package openai

import (
	"context"

	"github.com/openai/openai-go/v2"
	"github.com/openai/openai-go/v2/option"
	"github.com/openai/openai-go/v2/shared"
	"github.com/pkg/errors"

	"github.com/modelmux/modelmux/pkg/dispatch/domain"
	"github.com/modelmux/modelmux/pkg/message"
)

// Adapter drives one model behind a chat-completions endpoint.
type Adapter struct {
	client openai.Client
	model  string
}

// NewCloud creates an adapter for the OpenAI API.
func NewCloud(model, apiKey string) (*Adapter, error) {
	if apiKey == "" {
		return nil, errors.New("openai: API key not set")
	}
	return &Adapter{
		client: openai.NewClient(option.WithAPIKey(apiKey)),
		model:  model,
	}, nil
}

// NewServer creates an adapter for an OpenAI-compatible server. The API key
// is optional; many local servers ignore it.
func NewServer(model, baseURL, apiKey string) (*Adapter, error) {
	if baseURL == "" {
		return nil, errors.New("openai: server base URL not set")
	}
	opts := []option.RequestOption{option.WithBaseURL(baseURL)}
	if apiKey != "" {
		opts = append(opts, option.WithAPIKey(apiKey))
	}
	return &Adapter{client: openai.NewClient(opts...), model: model}, nil
}

func (a *Adapter) ModelID() string           { return a.model }
func (a *Adapter) SupportsPromptCache() bool { return false }

// Chat streams one exchange through the chat-completions API, accumulating
// chunks into the final completion.
func (a *Adapter) Chat(ctx context.Context, req domain.ChatRequest) (*domain.Reply, error) {
	system, msgs := req.Parts.Flattened()

	completionMessages := make([]openai.ChatCompletionMessageParamUnion, 0, len(msgs)+1)
	if system != "" {
		completionMessages = append(completionMessages, openai.SystemMessage(system))
	}
	for _, m := range msgs {
		if m.Role == message.RoleAssistant {
			completionMessages = append(completionMessages, openai.AssistantMessage(m.Content))
		} else {
			completionMessages = append(completionMessages, openai.UserMessage(m.Content))
		}
	}

	params := openai.ChatCompletionNewParams{
		Model:    shared.ChatModel(a.model),
		Messages: completionMessages,
	}
	if req.MaxTokens > 0 {
		params.MaxCompletionTokens = openai.Int(int64(req.MaxTokens))
	}
	if req.Temperature > 0 {
		params.Temperature = openai.Float(req.Temperature)
	}

	stream := a.client.Chat.Completions.NewStreaming(ctx, params)
	acc := openai.ChatCompletionAccumulator{}
	for stream.Next() {
		chunk := stream.Current()
		acc.AddChunk(chunk)
		if len(chunk.Choices) > 0 {
			if delta := chunk.Choices[0].Delta.Content; delta != "" && req.OnChunk != nil {
				req.OnChunk(delta)
			}
		}
	}
	if err := stream.Err(); err != nil {
		return nil, errors.Wrap(err, "openai streaming")
	}
	if len(acc.Choices) == 0 {
		return nil, errors.New("openai: empty completion")
	}

	return &domain.Reply{
		Content: acc.Choices[0].Message.Content,
		Usage: message.TokenUsage{
			InputTokens:  int(acc.Usage.PromptTokens),
			OutputTokens: int(acc.Usage.CompletionTokens),
			TotalTokens:  int(acc.Usage.TotalTokens),
			CachedTokens: int(acc.Usage.PromptTokensDetails.CachedTokens),
		},
	}, nil
}
