package domain

import (
	"context"

	"github.com/modelmux/modelmux/pkg/dispatch/budget"
	"github.com/modelmux/modelmux/pkg/message"
)

// StreamFunc receives incremental output chunks as the backend produces them.
// Implementations must be fast; a slow callback stalls the stream.
type StreamFunc func(chunk string)

// ChatRequest is the backend-neutral inference request an adapter translates
// into its provider's wire format.
type ChatRequest struct {
	// Parts is the fitted four-part prompt. Adapters pick the rendering
	// matching their backend: Flattened for plain system strings,
	// CacheAnnotated when the backend has native prompt caching.
	Parts *budget.PromptParts

	MaxTokens   int
	Temperature float64

	// OnChunk, when non-nil, streams output as it arrives. The full reply is
	// still returned afterwards.
	OnChunk StreamFunc
}

// Reply is a completed inference result.
type Reply struct {
	Content  string
	Thinking string
	Usage    message.TokenUsage
}

// Adapter converts neutral chat requests into one provider's API calls. One
// adapter instance serves one model.
type Adapter interface {
	// Chat runs a single inference round trip. The context governs the whole
	// call including streaming.
	Chat(ctx context.Context, req ChatRequest) (*Reply, error)

	// SupportsPromptCache reports whether the backend honors cache
	// annotations on system blocks.
	SupportsPromptCache() bool

	// ModelID returns the id of the model this adapter serves.
	ModelID() string
}

// AdapterResolver turns a descriptor into a ready adapter. Implementations
// may cache adapters per descriptor.
type AdapterResolver interface {
	Resolve(desc Descriptor) (Adapter, error)
}
