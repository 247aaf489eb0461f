package message

import (
	"fmt"
	"time"
)

// Role identifies who produced a message.
type Role int

const (
	RoleUser Role = iota
	RoleAssistant
	RoleSystem
)

// String returns the wire-level role name shared by all backends.
func (r Role) String() string {
	switch r {
	case RoleUser:
		return "user"
	case RoleAssistant:
		return "assistant"
	case RoleSystem:
		return "system"
	default:
		return "unknown"
	}
}

// Source distinguishes organic conversation messages from ones this system
// synthesized (compressed subject summaries, tool-result follow-up turns).
type Source int

const (
	SourceDefault Source = iota
	SourceSummary
	SourceToolFollowup
)

func (s Source) String() string {
	switch s {
	case SourceDefault:
		return "default"
	case SourceSummary:
		return "summary"
	case SourceToolFollowup:
		return "tool_followup"
	default:
		return "unknown"
	}
}

// Message is a neutral chat message usable with any backend.
type Message struct {
	Role      Role      `json:"role"`
	Content   string    `json:"content"`
	Thinking  string    `json:"thinking,omitempty"`
	Source    Source    `json:"source,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// NewUserMessage creates a user message with the current timestamp.
func NewUserMessage(content string) Message {
	return Message{Role: RoleUser, Content: content, Timestamp: time.Now()}
}

// NewAssistantMessage creates an assistant message with the current timestamp.
func NewAssistantMessage(content string) Message {
	return Message{Role: RoleAssistant, Content: content, Timestamp: time.Now()}
}

// NewSystemMessage creates a system message with the current timestamp.
func NewSystemMessage(content string) Message {
	return Message{Role: RoleSystem, Content: content, Timestamp: time.Now()}
}

// NewToolFollowupMessage creates the synthetic user turn that feeds a tool
// result back to the model.
func NewToolFollowupMessage(content string) Message {
	return Message{Role: RoleUser, Content: content, Source: SourceToolFollowup, Timestamp: time.Now()}
}

// EstimatedTokens returns the chars/4 token estimate for this message,
// including thinking content.
func (m Message) EstimatedTokens() int {
	return EstimateTokens(m.Content) + EstimateTokens(m.Thinking)
}

func (m Message) String() string {
	return fmt.Sprintf("Message(%s, %q, source=%s)", m.Role, m.Content, m.Source)
}
