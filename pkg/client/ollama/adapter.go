// Package ollama adapts local on-device models served by the Ollama runtime.
package ollama

import (
	"context"
	"net/http"
	"net/url"
	"strings"

	"github.com/ollama/ollama/api"
	"github.com/pkg/errors"

	"github.com/modelmux/modelmux/pkg/dispatch/domain"
	"github.com/modelmux/modelmux/pkg/message"
)

const defaultTemperature = 0.1

// Adapter drives one Ollama-served model.
type Adapter struct {
	client *api.Client
	model  string
}

// New creates an adapter for the model. An empty host uses the runtime's
// environment-configured address (OLLAMA_HOST or the default).
func New(model, host string) (*Adapter, error) {
	var client *api.Client
	if host == "" {
		c, err := api.ClientFromEnvironment()
		if err != nil {
			return nil, errors.Wrap(err, "creating ollama client")
		}
		client = c
	} else {
		base, err := url.Parse(host)
		if err != nil {
			return nil, errors.Wrapf(err, "parsing ollama host %q", host)
		}
		client = api.NewClient(base, http.DefaultClient)
	}
	return &Adapter{client: client, model: model}, nil
}

func (a *Adapter) ModelID() string           { return a.model }
func (a *Adapter) SupportsPromptCache() bool { return false }

// Chat streams one exchange through the runtime, accumulating content and
// thinking separately and capturing eval counts from the final chunk.
func (a *Adapter) Chat(ctx context.Context, req domain.ChatRequest) (*domain.Reply, error) {
	system, msgs := req.Parts.Flattened()

	ollamaMessages := make([]api.Message, 0, len(msgs)+1)
	if system != "" {
		ollamaMessages = append(ollamaMessages, api.Message{Role: "system", Content: system})
	}
	for _, m := range msgs {
		ollamaMessages = append(ollamaMessages, api.Message{Role: m.Role.String(), Content: m.Content})
	}

	temperature := req.Temperature
	if temperature <= 0 {
		temperature = defaultTemperature
	}
	chatRequest := &api.ChatRequest{
		Model:    a.model,
		Messages: ollamaMessages,
		Options: map[string]any{
			"temperature": temperature,
			"num_predict": req.MaxTokens,
		},
	}

	var contentBuilder, thinkingBuilder strings.Builder
	var usage message.TokenUsage

	err := a.client.Chat(ctx, chatRequest, func(resp api.ChatResponse) error {
		if resp.Message.Content != "" {
			contentBuilder.WriteString(resp.Message.Content)
			if req.OnChunk != nil {
				req.OnChunk(resp.Message.Content)
			}
		}
		if resp.Message.Thinking != "" {
			thinkingBuilder.WriteString(resp.Message.Thinking)
		}
		if resp.Done {
			// prompt_eval_count / eval_count may be zero on older runtimes.
			usage.InputTokens = resp.PromptEvalCount
			usage.OutputTokens = resp.EvalCount
			usage.TotalTokens = usage.InputTokens + usage.OutputTokens
		}
		return nil
	})
	if err != nil {
		return nil, errors.Wrap(err, "ollama chat")
	}

	return &domain.Reply{
		Content:  contentBuilder.String(),
		Thinking: thinkingBuilder.String(),
		Usage:    usage,
	}, nil
}
