// Package gemini adapts Gemini models via the google.golang.org/genai SDK.
package gemini

import (
	"context"
	"strings"

	"github.com/pkg/errors"
	"google.golang.org/genai"

	"github.com/modelmux/modelmux/pkg/dispatch/domain"
	"github.com/modelmux/modelmux/pkg/message"
)

// Adapter drives one Gemini model.
type Adapter struct {
	client *genai.Client
	model  string
}

// New creates an adapter for the model using the given API key.
func New(model, apiKey string) (*Adapter, error) {
	if apiKey == "" {
		return nil, errors.New("gemini: API key not set")
	}
	client, err := genai.NewClient(context.Background(), &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, errors.Wrap(err, "creating gemini client")
	}
	return &Adapter{client: client, model: model}, nil
}

func (a *Adapter) ModelID() string           { return a.model }
func (a *Adapter) SupportsPromptCache() bool { return false }

// Chat streams one exchange through GenerateContentStream, separating thought
// parts from answer text.
func (a *Adapter) Chat(ctx context.Context, req domain.ChatRequest) (*domain.Reply, error) {
	system, msgs := req.Parts.Flattened()

	contents := make([]*genai.Content, 0, len(msgs))
	for _, m := range msgs {
		var role genai.Role = genai.RoleUser
		if m.Role == message.RoleAssistant {
			role = genai.RoleModel
		}
		contents = append(contents, genai.NewContentFromText(m.Content, role))
	}

	config := &genai.GenerateContentConfig{}
	if system != "" {
		config.SystemInstruction = genai.NewContentFromText(system, genai.RoleUser)
	}
	if req.MaxTokens > 0 {
		config.MaxOutputTokens = int32(req.MaxTokens)
	}
	if req.Temperature > 0 {
		config.Temperature = genai.Ptr(float32(req.Temperature))
	}

	var contentBuilder, thinkingBuilder strings.Builder
	var usage message.TokenUsage

	for resp, err := range a.client.Models.GenerateContentStream(ctx, a.model, contents, config) {
		if err != nil {
			return nil, errors.Wrap(err, "gemini streaming")
		}
		if len(resp.Candidates) > 0 && resp.Candidates[0].Content != nil {
			for _, part := range resp.Candidates[0].Content.Parts {
				if part.Text == "" {
					continue
				}
				if part.Thought {
					thinkingBuilder.WriteString(part.Text)
					continue
				}
				contentBuilder.WriteString(part.Text)
				if req.OnChunk != nil {
					req.OnChunk(part.Text)
				}
			}
		}
		if resp.UsageMetadata != nil {
			usage = message.TokenUsage{
				InputTokens:  int(resp.UsageMetadata.PromptTokenCount),
				OutputTokens: int(resp.UsageMetadata.CandidatesTokenCount),
				TotalTokens:  int(resp.UsageMetadata.TotalTokenCount),
				CachedTokens: int(resp.UsageMetadata.CachedContentTokenCount),
			}
		}
	}

	if contentBuilder.Len() == 0 {
		return nil, errors.New("gemini: empty response")
	}
	return &domain.Reply{
		Content:  contentBuilder.String(),
		Thinking: thinkingBuilder.String(),
		Usage:    usage,
	}, nil
}
