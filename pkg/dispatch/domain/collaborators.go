package domain

import (
	"context"

	"github.com/modelmux/modelmux/pkg/dispatch/budget"
	"github.com/modelmux/modelmux/pkg/message"
)

// HistoryProvider supplies per-topic conversation state to the dispatcher and
// records completed exchanges back into it.
type HistoryProvider interface {
	// Recent returns up to limit messages for the topic, oldest first.
	Recent(ctx context.Context, topic string, limit int) ([]message.Message, error)

	// Subjects returns the compressed past-subject summaries for the topic,
	// oldest first.
	Subjects(ctx context.Context, topic string) ([]budget.Subject, error)

	// Append records messages produced by a completed exchange.
	Append(ctx context.Context, topic string, msgs ...message.Message) error
}

// ToolExecutor runs a named tool on behalf of the model. It is an injected
// boundary: the dispatcher never knows how tools are implemented.
type ToolExecutor interface {
	// Execute runs the tool with the given parameters and returns its raw
	// result.
	Execute(ctx context.Context, name string, params map[string]any) (string, error)

	// FormatResultForLLM renders a tool result (or error note) as the content
	// of the follow-up turn fed back to the model.
	FormatResultForLLM(name string, result string, execErr error) string

	// Definitions returns the instruction text advertising the available
	// tools, injected into the system prompt when tools are enabled.
	Definitions() string
}
