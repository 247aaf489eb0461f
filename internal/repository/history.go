package repository

import (
	"github.com/modelmux/modelmux/pkg/dispatch/budget"
	"github.com/modelmux/modelmux/pkg/message"
)

// HistoryState is the serialized conversation state of one topic.
type HistoryState struct {
	Messages []message.Message `json:"messages"`
	Subjects []budget.Subject  `json:"subjects,omitempty"`
}

// HistoryRepository abstracts per-topic conversation persistence.
type HistoryRepository interface {
	Load(topic string) (HistoryState, error)
	Save(topic string, state HistoryState) error
	Clear(topic string) error
}
